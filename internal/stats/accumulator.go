package stats

import (
	"github.com/shopspring/decimal"

	"github.com/airswap/airswap-bot/internal/model"
)

// Accumulator holds swap totals for one chain window.
type Accumulator struct {
	ChainID     uint64
	WindowStart uint64
	WindowEnd   uint64
	SwapCount   uint64
	ValuedCount uint64
	VolumeUSD   decimal.Decimal
	FeesUSD     decimal.Decimal
	FirstBlock  uint64
	LastBlock   uint64
	LastTS      uint64
}

func NewAccumulator(swap model.SwapEvent, windowStart, windowEnd uint64) *Accumulator {
	return &Accumulator{
		ChainID:     swap.ChainID,
		WindowStart: windowStart,
		WindowEnd:   windowEnd,
		VolumeUSD:   decimal.Zero,
		FeesUSD:     decimal.Zero,
		FirstBlock:  swap.BlockNumber,
		LastBlock:   swap.BlockNumber,
		LastTS:      uint64(swap.Timestamp.Unix()),
	}
}

// AddSwap folds one swap into the window. Unvalued swaps only bump the count.
func (a *Accumulator) AddSwap(swap model.SwapEvent) {
	ts := uint64(swap.Timestamp.Unix())
	if ts >= a.LastTS {
		a.LastTS = ts
		a.LastBlock = swap.BlockNumber
	}
	if a.FirstBlock == 0 || swap.BlockNumber < a.FirstBlock {
		a.FirstBlock = swap.BlockNumber
	}

	a.SwapCount++
	if swap.SwapValueUSD <= 0 {
		return
	}
	a.ValuedCount++
	a.VolumeUSD = a.VolumeUSD.Add(decimal.NewFromFloat(swap.SwapValueUSD))
	a.FeesUSD = a.FeesUSD.Add(decimal.NewFromFloat(swap.ProtocolFeeValueUSD))
}

func windowStart(ts uint64, windowSec uint64) uint64 {
	return ts - (ts % windowSec)
}
