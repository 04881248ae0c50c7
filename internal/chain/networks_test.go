package chain

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/airswap/airswap-bot/internal/model"
)

func TestBuildNetworksAssignsTransport(t *testing.T) {
	networks, err := BuildNetworks([]uint64{1}, []uint64{137, 43114})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(networks) != 3 {
		t.Fatalf("expected 3 networks, got %d", len(networks))
	}
	if networks[0].Transport != model.TransportPush || networks[1].Transport != model.TransportPoll {
		t.Fatalf("unexpected transports: %+v", networks)
	}
	if got := networks[0].WSURL("abc"); got != "wss://mainnet.infura.io/ws/v3/abc" {
		t.Fatalf("unexpected ws url %q", got)
	}
	if networks[2].Reference.Symbol != "USDt" {
		t.Fatalf("unexpected avalanche reference %+v", networks[2].Reference)
	}
}

func TestBuildNetworksRejectsDuplicatesAndUnknown(t *testing.T) {
	if _, err := BuildNetworks([]uint64{1}, []uint64{1}); err == nil {
		t.Fatalf("expected error for chain in both lists")
	}
	if _, err := BuildNetworks(nil, []uint64{999999}); err == nil {
		t.Fatalf("expected error for unknown chain")
	}
}

func TestRetryPolicyStopsAfterMaxRetries(t *testing.T) {
	attempts := 0
	retried := 0
	policy := RetryPolicy{MaxRetries: 2, Backoff: time.Millisecond}
	err := policy.Do(context.Background(), func(context.Context) error {
		attempts++
		return errors.New("boom")
	}, func(int, error) { retried++ })
	if err == nil {
		t.Fatalf("expected error")
	}
	if attempts != 3 || retried != 2 {
		t.Fatalf("expected 3 attempts and 2 retries, got %d and %d", attempts, retried)
	}
}

func TestRetryPolicySucceedsAfterFailure(t *testing.T) {
	attempts := 0
	policy := RetryPolicy{MaxRetries: 3, Backoff: time.Millisecond}
	err := policy.Do(context.Background(), func(context.Context) error {
		attempts++
		if attempts < 2 {
			return errors.New("transient")
		}
		return nil
	}, nil)
	if err != nil || attempts != 2 {
		t.Fatalf("expected success on second attempt, got err=%v attempts=%d", err, attempts)
	}
}
