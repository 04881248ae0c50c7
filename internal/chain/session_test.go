package chain

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"github.com/airswap/airswap-bot/internal/model"
)

type fakeConn struct {
	hang   atomic.Bool
	probes atomic.Int32
	closes atomic.Int32
}

func (f *fakeConn) Probe(ctx context.Context) error {
	f.probes.Add(1)
	if f.hang.Load() {
		<-ctx.Done()
		return ctx.Err()
	}
	return nil
}

func (f *fakeConn) Close() { f.closes.Add(1) }

func (f *fakeConn) SubscribeFilterLogs(context.Context, ethereum.FilterQuery, chan<- types.Log) (ethereum.Subscription, error) {
	return nil, errors.New("not supported")
}

func (f *fakeConn) TransactionReceipt(context.Context, common.Hash) (*types.Receipt, error) {
	return nil, errors.New("not supported")
}

func (f *fakeConn) BlockTimestamp(context.Context, uint64) (uint64, error) { return 0, nil }

func (f *fakeConn) CallContract(context.Context, ethereum.CallMsg, *big.Int) ([]byte, error) {
	return nil, nil
}

type lostRecorder struct {
	mu   sync.Mutex
	errs []error
	ch   chan struct{}
}

func newLostRecorder() *lostRecorder {
	return &lostRecorder{ch: make(chan struct{}, 8)}
}

func (r *lostRecorder) onLost(err error) {
	r.mu.Lock()
	r.errs = append(r.errs, err)
	r.mu.Unlock()
	r.ch <- struct{}{}
}

func (r *lostRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.errs)
}

func TestSessionPongTimeoutSignalsConnectionLost(t *testing.T) {
	conn := &fakeConn{}
	conn.hang.Store(true)
	rec := newLostRecorder()

	s := NewSession(1, conn, SessionConfig{KeepAliveInterval: 10 * time.Millisecond, PongTimeout: 30 * time.Millisecond}, rec.onLost, zap.NewNop())
	defer s.Close()

	select {
	case <-rec.ch:
	case <-time.After(2 * time.Second):
		t.Fatalf("expected connection lost signal")
	}

	err := rec.errs[0]
	if !errors.Is(err, model.ErrConnectionLost) {
		t.Fatalf("expected ErrConnectionLost, got %v", err)
	}
	if !errors.Is(err, ErrPongTimeout) {
		t.Fatalf("expected pong timeout cause, got %v", err)
	}
	var lost *model.ConnectionLostError
	if !errors.As(err, &lost) || lost.ChainID != 1 {
		t.Fatalf("expected ConnectionLostError for chain 1, got %v", err)
	}
	if conn.closes.Load() != 1 {
		t.Fatalf("expected connection terminated once, got %d", conn.closes.Load())
	}
	if s.Phase() != PhaseDisconnected {
		t.Fatalf("expected disconnected phase, got %s", s.Phase())
	}

	// Only one probe may be outstanding at a time.
	if conn.probes.Load() != 1 {
		t.Fatalf("expected a single outstanding probe, got %d", conn.probes.Load())
	}
}

func TestSessionAnsweredProbesStayLive(t *testing.T) {
	conn := &fakeConn{}
	rec := newLostRecorder()

	s := NewSession(1, conn, SessionConfig{KeepAliveInterval: 5 * time.Millisecond, PongTimeout: 20 * time.Millisecond}, rec.onLost, zap.NewNop())

	deadline := time.Now().Add(2 * time.Second)
	for conn.probes.Load() < 5 {
		if time.Now().After(deadline) {
			t.Fatalf("keepalive did not probe, got %d probes", conn.probes.Load())
		}
		time.Sleep(5 * time.Millisecond)
	}
	s.Close()

	if rec.count() != 0 {
		t.Fatalf("expected no loss signal, got %v", rec.errs)
	}
}

func TestSessionCloseIsIdempotentAndSilent(t *testing.T) {
	conn := &fakeConn{}
	conn.hang.Store(true)
	rec := newLostRecorder()

	s := NewSession(1, conn, SessionConfig{KeepAliveInterval: 5 * time.Millisecond, PongTimeout: 20 * time.Millisecond}, rec.onLost, zap.NewNop())
	for conn.probes.Load() == 0 {
		time.Sleep(time.Millisecond)
	}

	s.Close()
	s.Close()

	time.Sleep(60 * time.Millisecond)
	if rec.count() != 0 {
		t.Fatalf("expected no loss signal after close, got %v", rec.errs)
	}
	if conn.closes.Load() != 1 {
		t.Fatalf("expected connection closed once, got %d", conn.closes.Load())
	}
	if s.Phase() != PhaseDisconnected {
		t.Fatalf("expected disconnected phase, got %s", s.Phase())
	}
}

func TestSessionLateExpiryAfterAcknowledgmentIsIgnored(t *testing.T) {
	conn := &fakeConn{}
	conn.hang.Store(true)
	rec := newLostRecorder()

	s := NewSession(1, conn, SessionConfig{PongTimeout: time.Hour}, rec.onLost, zap.NewNop())
	defer s.Close()

	s.sendProbe()
	if s.Phase() != PhaseDegraded {
		t.Fatalf("expected degraded while probe outstanding, got %s", s.Phase())
	}

	// The pong timer fired and its callback lost the race for the lock to the acknowledgment.
	s.acknowledge(1)
	s.expire(1)

	if rec.count() != 0 {
		t.Fatalf("acknowledged probe must not terminate the connection: %v", rec.errs)
	}
	if s.Phase() != PhaseLive || conn.closes.Load() != 0 {
		t.Fatalf("expected live connection, got %s with %d closes", s.Phase(), conn.closes.Load())
	}

	s.sendProbe()
	s.expire(2)
	if rec.count() != 1 {
		t.Fatalf("unacknowledged probe should still expire")
	}
}
