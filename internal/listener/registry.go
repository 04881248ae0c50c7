package listener

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"github.com/airswap/airswap-bot/internal/chain"
	"github.com/airswap/airswap-bot/internal/metrics"
	"github.com/airswap/airswap-bot/internal/model"
)

const logBuffer = 128

// Handler consumes decoded events of one subscription, in log order.
type Handler interface {
	Handle(ctx context.Context, transport chain.Transport, event model.DomainEvent, log types.Log) error
}

type subKey struct {
	contract string
	chainID  uint64
}

func (k subKey) String() string {
	return fmt.Sprintf("%s@%d", k.contract, k.chainID)
}

// Subscription is a live binding of one contract on one chain.
type Subscription struct {
	key       subKey
	binding   *ContractBinding
	transport chain.Transport
	handler   Handler
	sub       ethereum.Subscription
	logs      chan types.Log
	ctx       context.Context
	cancel    context.CancelFunc
}

// Registry owns every live Subscription. At most one exists per (contract, chain).
type Registry struct {
	onFatal func(error)
	metrics *metrics.Metrics
	logger  *zap.Logger

	mu      sync.Mutex
	subs    map[subKey]*Subscription
	pending map[subKey]struct{}
}

// NewRegistry builds an empty registry. onFatal receives stream failures and handler panics.
func NewRegistry(onFatal func(error), m *metrics.Metrics, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	if onFatal == nil {
		onFatal = func(error) {}
	}
	return &Registry{
		onFatal: onFatal,
		metrics: m,
		logger:  logger,
		subs:    make(map[subKey]*Subscription),
		pending: make(map[subKey]struct{}),
	}
}

// Start subscribes binding on the transport's chain. It returns a NoDeploymentError
// when the contract is not deployed there, and is a no-op when already started.
func (r *Registry) Start(ctx context.Context, binding *ContractBinding, transport chain.Transport, handler Handler) error {
	chainID := transport.ChainID()
	key := subKey{contract: binding.Name, chainID: chainID}

	query, err := binding.Query(chainID)
	if err != nil {
		return err
	}

	r.mu.Lock()
	_, live := r.subs[key]
	_, opening := r.pending[key]
	if live || opening {
		r.mu.Unlock()
		r.logger.Debug("already listening", zap.String("subscription", key.String()))
		return nil
	}
	r.pending[key] = struct{}{}
	r.mu.Unlock()

	// Subscribing may block on the transport, so it runs outside the lock.
	subCtx, cancel := context.WithCancel(ctx)
	logs := make(chan types.Log, logBuffer)
	sub, err := transport.SubscribeLogs(subCtx, query, logs)

	r.mu.Lock()
	_, stillWanted := r.pending[key]
	delete(r.pending, key)
	if err != nil {
		r.mu.Unlock()
		cancel()
		return fmt.Errorf("%s: subscribe: %w", key, err)
	}
	if !stillWanted {
		r.mu.Unlock()
		cancel()
		sub.Unsubscribe()
		r.logger.Info("stopped while subscribing", zap.String("subscription", key.String()))
		return nil
	}

	s := &Subscription{
		key:       key,
		binding:   binding,
		transport: transport,
		handler:   handler,
		sub:       sub,
		logs:      logs,
		ctx:       subCtx,
		cancel:    cancel,
	}
	r.subs[key] = s
	r.mu.Unlock()
	go r.run(s)

	r.logger.Info("listening",
		zap.Uint64("chain_id", chainID),
		zap.String("contract", binding.Name),
		zap.String("address", query.Addresses[0].Hex()),
		zap.Strings("events", binding.EventNames()),
	)
	return nil
}

// Stop unsubscribes binding on a chain. Stopping a subscription that does not exist is a no-op.
func (r *Registry) Stop(binding *ContractBinding, chainID uint64) {
	key := subKey{contract: binding.Name, chainID: chainID}

	r.mu.Lock()
	s, ok := r.subs[key]
	delete(r.subs, key)
	delete(r.pending, key)
	r.mu.Unlock()

	if !ok {
		return
	}
	r.release(s)
}

// StopAll unsubscribes everything.
func (r *Registry) StopAll() {
	r.mu.Lock()
	subs := make([]*Subscription, 0, len(r.subs))
	for key, s := range r.subs {
		subs = append(subs, s)
		delete(r.subs, key)
	}
	for key := range r.pending {
		delete(r.pending, key)
	}
	r.mu.Unlock()

	for _, s := range subs {
		r.release(s)
	}
}

func (r *Registry) release(s *Subscription) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("unsubscribe failed", zap.String("subscription", s.key.String()), zap.Any("panic", rec))
		}
	}()
	s.cancel()
	s.sub.Unsubscribe()
	r.logger.Info("stopped listening", zap.String("subscription", s.key.String()))
}

// Active lists live subscriptions as "<contract>@<chain id>".
func (r *Registry) Active() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.subs))
	for key := range r.subs {
		out = append(out, key.String())
	}
	sort.Strings(out)
	return out
}

func (r *Registry) run(s *Subscription) {
	logger := r.logger.With(zap.Uint64("chain_id", s.key.chainID), zap.String("contract", s.key.contract))

	for {
		select {
		case <-s.ctx.Done():
			return
		case err, ok := <-s.sub.Err():
			if !ok || err == nil || s.ctx.Err() != nil {
				return
			}
			r.evict(s)
			if !errors.Is(err, model.ErrConnectionLost) {
				err = &model.ConnectionLostError{ChainID: s.key.chainID, Cause: err}
			}
			logger.Warn("subscription ended", zap.Error(err))
			r.onFatal(err)
			return
		case log := <-s.logs:
			if log.Removed {
				continue
			}
			r.dispatch(s, log, logger)
		}
	}
}

// evict drops s from the table if it is still the registered subscription.
func (r *Registry) evict(s *Subscription) {
	r.mu.Lock()
	if r.subs[s.key] == s {
		delete(r.subs, s.key)
	}
	r.mu.Unlock()
	s.cancel()
	s.sub.Unsubscribe()
}

func (r *Registry) dispatch(s *Subscription, log types.Log, logger *zap.Logger) {
	defer func() {
		if rec := recover(); rec != nil {
			err := fmt.Errorf("%s: handler panic: %v", s.key, rec)
			logger.Error("handler panic", zap.Error(err))
			r.onFatal(err)
		}
	}()

	event, err := s.binding.Decode(s.key.chainID, log)
	if err != nil {
		r.metrics.DecodeError(s.key.chainID, s.key.contract)
		logger.Warn("decode failed", zap.Error(err))
		return
	}
	r.metrics.EventDecoded(s.key.chainID, event.EventName)

	if err := s.handler.Handle(s.ctx, s.transport, event, log); err != nil {
		if s.ctx.Err() != nil {
			return
		}
		var decodeErr *model.DecodeError
		if errors.As(err, &decodeErr) {
			r.metrics.DecodeError(s.key.chainID, s.key.contract)
		}
		logger.Warn("event dropped", zap.String("event", event.EventName), zap.String("tx_hash", event.TxHash), zap.Error(err))
	}
}
