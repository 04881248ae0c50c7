package stats

import (
	"strings"
	"testing"
	"time"

	"github.com/airswap/airswap-bot/internal/model"
)

func swapAt(chainID uint64, ts time.Time, value float64) model.SwapEvent {
	return model.SwapEvent{
		DomainEvent:         model.DomainEvent{ChainID: chainID, BlockNumber: uint64(ts.Unix() / 12)},
		SwapValueUSD:        value,
		ProtocolFeeValueUSD: value * 0.0005,
		Timestamp:           ts,
	}
}

func TestTrackerSumsPerChain(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)
	tracker := NewTracker(time.Hour, 24)
	tracker.now = func() time.Time { return now }

	tracker.RecordSwap(swapAt(1, now.Add(-10*time.Minute), 1000))
	tracker.RecordSwap(swapAt(1, now.Add(-2*time.Hour), 500))
	tracker.RecordSwap(swapAt(1, now, 0))
	tracker.RecordSwap(swapAt(137, now, 250))

	summaries := tracker.Summaries()
	if len(summaries) != 2 {
		t.Fatalf("expected two chains, got %d", len(summaries))
	}
	eth := summaries[0]
	if eth.ChainID != 1 || eth.SwapCount != 3 || eth.ValuedCount != 2 {
		t.Fatalf("unexpected ethereum summary %+v", eth)
	}
	if eth.VolumeUSD.StringFixed(2) != "1500.00" || eth.FeesUSD.StringFixed(2) != "0.75" {
		t.Fatalf("unexpected totals %s %s", eth.VolumeUSD, eth.FeesUSD)
	}
	if !eth.Since.Equal(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected since %s", eth.Since)
	}
}

func TestTrackerDropsExpiredWindows(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	tracker := NewTracker(time.Hour, 2)
	tracker.now = func() time.Time { return now }

	tracker.RecordSwap(swapAt(1, now.Add(-3*time.Hour), 100))
	tracker.RecordSwap(swapAt(1, now.Add(-30*time.Minute), 200))

	summaries := tracker.Summaries()
	if len(summaries) != 1 || summaries[0].SwapCount != 1 {
		t.Fatalf("expected only the recent window, got %+v", summaries)
	}
}

func TestTrackerReport(t *testing.T) {
	tracker := NewTracker(time.Hour, 24)
	if got := tracker.Report(nil); got != "no swaps recorded" {
		t.Fatalf("unexpected empty report %q", got)
	}
	tracker.RecordSwap(swapAt(1, time.Now(), 1234.5))
	report := tracker.Report(func(uint64) string { return "Ethereum" })
	if !strings.Contains(report, "Ethereum: 1 swaps (1 valued), volume $1234.50") {
		t.Fatalf("unexpected report %q", report)
	}
}
