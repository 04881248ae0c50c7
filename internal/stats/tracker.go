package stats

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/airswap/airswap-bot/internal/model"
)

// Summary totals the retained windows of one chain.
type Summary struct {
	ChainID     uint64          `json:"chain_id"`
	Since       time.Time       `json:"since"`
	SwapCount   uint64          `json:"swap_count"`
	ValuedCount uint64          `json:"valued_count"`
	VolumeUSD   decimal.Decimal `json:"volume_usd"`
	FeesUSD     decimal.Decimal `json:"fees_usd"`
}

// Tracker keeps swap totals in fixed windows per chain and drops windows older than the retention.
type Tracker struct {
	windowSeconds uint64
	retain        uint64
	now           func() time.Time

	mu           sync.Mutex
	accumulators map[string]*Accumulator
}

// NewTracker keeps retain windows of the given size.
func NewTracker(window time.Duration, retain int) *Tracker {
	if window < time.Second {
		window = time.Hour
	}
	if retain <= 0 {
		retain = 24
	}
	return &Tracker{
		windowSeconds: uint64(window / time.Second),
		retain:        uint64(retain),
		now:           time.Now,
		accumulators:  make(map[string]*Accumulator),
	}
}

func accumulatorKey(chainID, start uint64) string {
	return fmt.Sprintf("%d:%d", chainID, start)
}

// RecordSwap adds a swap to its chain window.
func (t *Tracker) RecordSwap(swap model.SwapEvent) {
	if swap.Timestamp.IsZero() {
		swap.Timestamp = t.now()
	}
	ts := uint64(swap.Timestamp.Unix())
	start := windowStart(ts, t.windowSeconds)
	key := accumulatorKey(swap.ChainID, start)

	t.mu.Lock()
	defer t.mu.Unlock()

	acc, ok := t.accumulators[key]
	if !ok {
		acc = NewAccumulator(swap, start, start+t.windowSeconds)
		t.accumulators[key] = acc
	}
	acc.AddSwap(swap)
	t.pruneLocked()
}

// Summaries returns per-chain totals over the retained windows, ordered by chain id.
func (t *Tracker) Summaries() []Summary {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pruneLocked()

	byChain := make(map[uint64]*Summary)
	for _, acc := range t.accumulators {
		s, ok := byChain[acc.ChainID]
		if !ok {
			s = &Summary{ChainID: acc.ChainID, Since: time.Unix(int64(acc.WindowStart), 0).UTC(), VolumeUSD: decimal.Zero, FeesUSD: decimal.Zero}
			byChain[acc.ChainID] = s
		}
		if since := time.Unix(int64(acc.WindowStart), 0).UTC(); since.Before(s.Since) {
			s.Since = since
		}
		s.SwapCount += acc.SwapCount
		s.ValuedCount += acc.ValuedCount
		s.VolumeUSD = s.VolumeUSD.Add(acc.VolumeUSD)
		s.FeesUSD = s.FeesUSD.Add(acc.FeesUSD)
	}

	out := make([]Summary, 0, len(byChain))
	for _, s := range byChain {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChainID < out[j].ChainID })
	return out
}

// Report renders Summaries as one line per chain.
func (t *Tracker) Report(chainName func(uint64) string) string {
	summaries := t.Summaries()
	if len(summaries) == 0 {
		return "no swaps recorded"
	}
	lines := make([]string, 0, len(summaries))
	for _, s := range summaries {
		name := fmt.Sprintf("%d", s.ChainID)
		if chainName != nil {
			name = chainName(s.ChainID)
		}
		lines = append(lines, fmt.Sprintf("%s: %d swaps (%d valued), volume $%s, fees $%s since %s",
			name, s.SwapCount, s.ValuedCount, s.VolumeUSD.StringFixed(2), s.FeesUSD.StringFixed(2), s.Since.Format(time.RFC3339)))
	}
	return strings.Join(lines, "\n")
}

func (t *Tracker) pruneLocked() {
	now := uint64(t.now().Unix())
	oldest := windowStart(now, t.windowSeconds)
	if span := (t.retain - 1) * t.windowSeconds; oldest > span {
		oldest -= span
	} else {
		oldest = 0
	}
	for key, acc := range t.accumulators {
		if acc.WindowStart < oldest {
			delete(t.accumulators, key)
		}
	}
}
