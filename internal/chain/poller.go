package chain

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/event"
	"go.uber.org/zap"

	"github.com/airswap/airswap-bot/internal/model"
)

// PollConfig holds settings for a request/response transport.
type PollConfig struct {
	Interval  time.Duration
	BatchSize uint64
	MaxLag    uint64
	Retry     RetryPolicy
}

// PollClient is the subset of Client a Poller needs.
type PollClient interface {
	Caller
	LatestBlockNumber(ctx context.Context) (uint64, error)
	FilterLogs(ctx context.Context, fromBlock, toBlock uint64, addresses []common.Address, topic0 []common.Hash) ([]types.Log, error)
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	BlockTimestamp(ctx context.Context, number uint64) (uint64, error)
	Close()
}

// Poller emulates log subscriptions over plain HTTP by polling eth_getLogs.
type Poller struct {
	chainID uint64
	client  PollClient
	cfg     PollConfig
	logger  *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	phase  Phase
	closed bool
}

// OpenPoller dials the network's HTTP endpoint and checks it answers for the expected chain.
func OpenPoller(ctx context.Context, network model.ChainNetwork, credential string, cfg PollConfig, logger *zap.Logger) (*Poller, error) {
	client, err := DialClient(ctx, network.ChainID, network.HTTPURL(credential))
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", network.Name, err)
	}
	return NewPoller(network.ChainID, client, cfg, logger), nil
}

// NewPoller wraps an already dialed client.
func NewPoller(chainID uint64, client PollClient, cfg PollConfig, logger *zap.Logger) *Poller {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Second
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 500
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Poller{
		chainID: chainID,
		client:  client,
		cfg:     cfg,
		logger:  logger.With(zap.Uint64("chain_id", chainID)),
		ctx:     ctx,
		cancel:  cancel,
		phase:   PhaseLive,
	}
}

// ChainID returns the polled chain.
func (p *Poller) ChainID() uint64 {
	return p.chainID
}

// Phase returns the current transport state.
func (p *Poller) Phase() Phase {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.phase
}

func (p *Poller) setPhase(phase Phase) {
	p.mu.Lock()
	if !p.closed {
		p.phase = phase
	}
	p.mu.Unlock()
}

// Close stops every poll loop and releases the client. It is safe to call repeatedly.
func (p *Poller) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.phase = PhaseClosing
	p.mu.Unlock()

	p.cancel()
	p.client.Close()

	p.mu.Lock()
	p.phase = PhaseDisconnected
	p.mu.Unlock()
	p.logger.Info("poller closed")
}

// SubscribeLogs starts polling from the current head. Logs are delivered in block order.
// A loop that exhausts its retries ends the subscription with a ConnectionLostError.
func (p *Poller) SubscribeLogs(ctx context.Context, query ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error) {
	cursor, err := p.latestBlock(ctx)
	if err != nil {
		return nil, fmt.Errorf("get latest block: %w", err)
	}

	var topic0 []common.Hash
	if len(query.Topics) > 0 {
		topic0 = query.Topics[0]
	}

	return event.NewSubscription(func(quit <-chan struct{}) error {
		ctx, cancel := context.WithCancel(p.ctx)
		defer cancel()
		go func() {
			select {
			case <-quit:
				cancel()
			case <-ctx.Done():
			}
		}()
		return p.loop(ctx, cursor, query.Addresses, topic0, ch)
	}), nil
}

func (p *Poller) loop(ctx context.Context, cursor uint64, addresses []common.Address, topic0 []common.Hash, ch chan<- types.Log) error {
	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		next, err := p.pollOnce(ctx, cursor, addresses, topic0, ch)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			p.setPhase(PhaseDegraded)
			return &model.ConnectionLostError{ChainID: p.chainID, Cause: err}
		}
		cursor = next
	}
}

func (p *Poller) pollOnce(ctx context.Context, cursor uint64, addresses []common.Address, topic0 []common.Hash, ch chan<- types.Log) (uint64, error) {
	head, err := p.latestBlock(ctx)
	if err != nil {
		return cursor, fmt.Errorf("get latest block: %w", err)
	}

	pending, skipped, ok := PendingRange(cursor, head, p.cfg.MaxLag)
	if !ok {
		return cursor, nil
	}
	if skipped > 0 {
		p.logger.Warn("poller fell behind, skipping blocks", zap.Uint64("skipped", skipped), zap.Uint64("head", head))
	}

	ranges, err := SplitRange(pending.From, pending.To, p.cfg.BatchSize)
	if err != nil {
		return cursor, err
	}

	for _, blockRange := range ranges {
		logs, err := p.filterLogs(ctx, blockRange, addresses, topic0)
		if err != nil {
			return cursor, fmt.Errorf("filter logs %d-%d: %w", blockRange.From, blockRange.To, err)
		}
		for _, log := range logs {
			select {
			case ch <- log:
			case <-ctx.Done():
				return cursor, ctx.Err()
			}
		}
		cursor = blockRange.To
		p.setPhase(PhaseLive)
		if len(logs) > 0 {
			p.logger.Debug("poll batch complete", zap.Int("logs", len(logs)), zap.Uint64("from", blockRange.From), zap.Uint64("to", blockRange.To))
		}
	}
	return cursor, nil
}

func (p *Poller) latestBlock(ctx context.Context) (uint64, error) {
	var head uint64
	err := p.cfg.Retry.Do(ctx, func(ctx context.Context) error {
		var err error
		head, err = p.client.LatestBlockNumber(ctx)
		return err
	}, p.onRetry("latest block"))
	return head, err
}

func (p *Poller) filterLogs(ctx context.Context, r BlockRange, addresses []common.Address, topic0 []common.Hash) ([]types.Log, error) {
	var logs []types.Log
	err := p.cfg.Retry.Do(ctx, func(ctx context.Context) error {
		var err error
		logs, err = p.client.FilterLogs(ctx, r.From, r.To, addresses, topic0)
		return err
	}, p.onRetry("filter logs"))
	return logs, err
}

func (p *Poller) onRetry(op string) func(int, error) {
	return func(attempt int, err error) {
		p.setPhase(PhaseDegraded)
		p.logger.Warn(op+" failed", zap.Int("attempt", attempt), zap.Error(err))
	}
}

// TransactionReceipt returns the receipt of a mined transaction.
func (p *Poller) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	var receipt *types.Receipt
	err := p.cfg.Retry.Do(ctx, func(ctx context.Context) error {
		var err error
		receipt, err = p.client.TransactionReceipt(ctx, txHash)
		return err
	}, p.onRetry("transaction receipt"))
	return receipt, err
}

// BlockTimestamp returns the block timestamp.
func (p *Poller) BlockTimestamp(ctx context.Context, number uint64) (uint64, error) {
	return p.client.BlockTimestamp(ctx, number)
}

// CallContract performs an eth_call.
func (p *Poller) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	return p.client.CallContract(ctx, msg, blockNumber)
}
