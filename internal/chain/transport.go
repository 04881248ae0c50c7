package chain

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Caller performs read-only contract calls.
type Caller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// Transport is a live connection to one chain, push or poll.
type Transport interface {
	Caller
	ChainID() uint64
	SubscribeLogs(ctx context.Context, query ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error)
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	BlockTimestamp(ctx context.Context, number uint64) (uint64, error)
	Phase() Phase
	Close()
}

// Phase is the connection state of a transport.
type Phase int

const (
	PhaseDisconnected Phase = iota
	PhaseConnecting
	PhaseLive
	PhaseDegraded
	PhaseClosing
)

func (p Phase) String() string {
	switch p {
	case PhaseDisconnected:
		return "disconnected"
	case PhaseConnecting:
		return "connecting"
	case PhaseLive:
		return "live"
	case PhaseDegraded:
		return "degraded"
	case PhaseClosing:
		return "closing"
	default:
		return "unknown"
	}
}

var (
	_ Transport  = (*Session)(nil)
	_ Transport  = (*Poller)(nil)
	_ Conn       = (*Client)(nil)
	_ PollClient = (*Client)(nil)
)
