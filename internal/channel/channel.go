package channel

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/airswap/airswap-bot/internal/metrics"
	"github.com/airswap/airswap-bot/internal/model"
)

// ErrRateLimited is returned by a channel whose remote side refused it for now.
// Init failures of this kind do not abort startup.
var ErrRateLimited = errors.New("channel rate limited")

const publishTimeout = 15 * time.Second

// Channel is one publication target.
type Channel interface {
	Name() string
	Init(ctx context.Context) error
	Close() error
	PublishEvent(ctx context.Context, event model.DomainEvent) error
	PublishSwap(ctx context.Context, swap model.SwapEvent) error
}

// Fanout publishes every event to all initialized channels in parallel.
type Fanout struct {
	channels []Channel
	metrics  *metrics.Metrics
	logger   *zap.Logger

	mu     sync.RWMutex
	active []Channel
	wg     sync.WaitGroup
}

// NewFanout builds a fan-out over channels. Nothing is published until Init.
func NewFanout(channels []Channel, m *metrics.Metrics, logger *zap.Logger) *Fanout {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fanout{channels: channels, metrics: m, logger: logger}
}

// Init initializes each channel. A rate-limited channel is skipped; any other
// failure closes what was opened and is returned.
func (f *Fanout) Init(ctx context.Context) error {
	active := make([]Channel, 0, len(f.channels))
	for _, ch := range f.channels {
		err := ch.Init(ctx)
		if err == nil {
			active = append(active, ch)
			f.logger.Info("channel ready", zap.String("channel", ch.Name()))
			continue
		}
		if errors.Is(err, ErrRateLimited) {
			f.logger.Warn("channel rate limited, continuing without it", zap.String("channel", ch.Name()), zap.Error(err))
			continue
		}
		for _, opened := range active {
			if cerr := opened.Close(); cerr != nil {
				f.logger.Warn("channel close failed", zap.String("channel", opened.Name()), zap.Error(cerr))
			}
		}
		return &model.PublishError{Channel: ch.Name(), Err: err}
	}

	f.mu.Lock()
	f.active = active
	f.mu.Unlock()
	return nil
}

// Close waits for in-flight publications, then closes every channel. Errors are logged per channel.
func (f *Fanout) Close() {
	f.mu.Lock()
	active := f.active
	f.active = nil
	f.mu.Unlock()

	f.wg.Wait()
	for _, ch := range active {
		if err := ch.Close(); err != nil {
			f.logger.Warn("channel close failed", zap.String("channel", ch.Name()), zap.Error(err))
		}
	}
}

// Active lists the names of initialized channels.
func (f *Fanout) Active() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	names := make([]string, 0, len(f.active))
	for _, ch := range f.active {
		names = append(names, ch.Name())
	}
	return names
}

// PublishEvent hands a generic event to every channel without waiting.
func (f *Fanout) PublishEvent(ctx context.Context, event model.DomainEvent) {
	f.each(ctx, func(ctx context.Context, ch Channel) error {
		return ch.PublishEvent(ctx, event)
	})
}

// PublishSwap hands a valued swap to every channel without waiting.
func (f *Fanout) PublishSwap(ctx context.Context, swap model.SwapEvent) {
	f.each(ctx, func(ctx context.Context, ch Channel) error {
		return ch.PublishSwap(ctx, swap)
	})
}

// Wait blocks until in-flight publications finish.
func (f *Fanout) Wait() {
	f.wg.Wait()
}

func (f *Fanout) each(ctx context.Context, publish func(context.Context, Channel) error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	// Publications outlive the subscription that produced them.
	base := context.WithoutCancel(ctx)
	for _, ch := range f.active {
		f.wg.Add(1)
		go func(ch Channel) {
			defer f.wg.Done()
			pubCtx, cancel := context.WithTimeout(base, publishTimeout)
			defer cancel()
			if err := publish(pubCtx, ch); err != nil {
				err = &model.PublishError{Channel: ch.Name(), Err: err}
				f.metrics.PublishError(ch.Name())
				f.logger.Warn("publish failed", zap.Error(err))
			}
		}(ch)
	}
}
