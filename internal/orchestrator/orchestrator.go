package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/airswap/airswap-bot/internal/chain"
	"github.com/airswap/airswap-bot/internal/config"
	"github.com/airswap/airswap-bot/internal/listener"
	"github.com/airswap/airswap-bot/internal/metrics"
	"github.com/airswap/airswap-bot/internal/model"
)

const (
	fatalBuffer = 16
	recheckPoll = 100 * time.Millisecond
)

var (
	errStopped    = errors.New("orchestrator stopped")
	errSuperseded = errors.New("startup superseded by restart")
)

// Phase is the pipeline lifecycle state.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseStarting
	PhaseRunning
	PhaseBackoff
	PhaseStopping
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseStarting:
		return "starting"
	case PhaseRunning:
		return "running"
	case PhaseBackoff:
		return "backoff"
	case PhaseStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// Dialer opens the transport of one network. onLost must be reported at most once per transport.
type Dialer func(ctx context.Context, network model.ChainNetwork, onLost func(error)) (chain.Transport, error)

// Channels is the publication fan-out as seen by the lifecycle.
type Channels interface {
	Init(ctx context.Context) error
	Close()
	Active() []string
}

// Route pairs a contract binding with the handler of its events.
type Route struct {
	Binding *listener.ContractBinding
	Handler listener.Handler
}

// Config wires an Orchestrator.
type Config struct {
	Networks []model.ChainNetwork
	Routes   []Route
	Store    config.Reader
	Dial     Dialer
	Channels Channels
	Metrics  *metrics.Metrics
}

// Status is a point-in-time view of the pipeline.
type Status struct {
	Phase         Phase
	Chains        map[uint64]chain.Phase
	Subscriptions []string
	Channels      []string
	LastRestart   time.Time
}

// Orchestrator owns startup, restart and shutdown of the whole pipeline.
// Every fatal error reaches it through Fatal and is handled on the Run goroutine.
type Orchestrator struct {
	networks []model.ChainNetwork
	routes   []Route
	store    config.Reader
	dial     Dialer
	channels Channels
	metrics  *metrics.Metrics
	logger   *zap.Logger
	registry *listener.Registry
	fatal    chan error
	now      func() time.Time

	lifecycle sync.Mutex

	mu          sync.Mutex
	ctx         context.Context
	phase       Phase
	restarting  bool
	stopped     bool
	lastRestart time.Time
	generation  uint64
	transports  map[uint64]chain.Transport
	expected    int
	timer       *time.Timer
	recheck     *time.Timer
}

// New builds an idle orchestrator.
func New(cfg Config, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	o := &Orchestrator{
		networks:   cfg.Networks,
		routes:     cfg.Routes,
		store:      cfg.Store,
		dial:       cfg.Dial,
		channels:   cfg.Channels,
		metrics:    cfg.Metrics,
		logger:     logger,
		fatal:      make(chan error, fatalBuffer),
		now:        time.Now,
		ctx:        context.Background(),
		transports: make(map[uint64]chain.Transport),
	}
	o.registry = listener.NewRegistry(o.Fatal, cfg.Metrics, logger)
	return o
}

// Fatal reports an unrecoverable pipeline error. It never blocks.
func (o *Orchestrator) Fatal(err error) {
	select {
	case o.fatal <- err:
	default:
		o.logger.Warn("fatal error dropped, queue full", zap.Error(err))
	}
}

// Run starts the pipeline and serves fatal errors until ctx is done, then shuts down.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.mu.Lock()
	o.ctx = ctx
	o.mu.Unlock()

	if err := o.Startup(ctx); err != nil && !errors.Is(err, errSuperseded) {
		o.logger.Error("startup failed", zap.Error(err))
		o.scheduleRetry(err)
	}

	for {
		select {
		case <-ctx.Done():
			o.Shutdown()
			return nil
		case err := <-o.fatal:
			o.handleFatal(err)
		}
	}
}

// Startup initializes the channels, opens one transport per network and starts
// every route on it. A route without a deployment on a chain is skipped.
func (o *Orchestrator) Startup(ctx context.Context) error {
	o.mu.Lock()
	generation := o.generation
	o.mu.Unlock()
	return o.startup(ctx, generation)
}

func (o *Orchestrator) startup(ctx context.Context, generation uint64) error {
	o.lifecycle.Lock()
	defer o.lifecycle.Unlock()

	o.mu.Lock()
	switch {
	case o.stopped:
		o.mu.Unlock()
		return errStopped
	case generation != o.generation:
		o.mu.Unlock()
		return errSuperseded
	}
	o.phase = PhaseStarting
	o.mu.Unlock()

	if err := o.channels.Init(ctx); err != nil {
		return fmt.Errorf("init channels: %w", err)
	}

	started := 0
	for _, network := range o.networks {
		logger := o.logger.With(zap.Uint64("chain_id", network.ChainID), zap.String("network", network.Name))

		transport, err := o.dial(ctx, network, o.Fatal)
		if err != nil {
			return fmt.Errorf("open %s transport: %w", network.Name, err)
		}
		o.mu.Lock()
		o.transports[network.ChainID] = transport
		o.mu.Unlock()

		for _, route := range o.routes {
			err := o.registry.Start(ctx, route.Binding, transport, route.Handler)
			var noDeploy *model.NoDeploymentError
			switch {
			case err == nil:
				started++
			case errors.As(err, &noDeploy):
				logger.Info("contract not deployed, skipping", zap.String("contract", route.Binding.Name))
			default:
				return fmt.Errorf("start %s on %s: %w", route.Binding.Name, network.Name, err)
			}
		}
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	// A restart requested meanwhile is waiting on the lifecycle lock to tear this down.
	if o.stopped || generation != o.generation {
		return errSuperseded
	}
	o.expected = started
	o.phase = PhaseRunning
	o.logger.Info("pipeline running", zap.Int("subscriptions", started), zap.Strings("channels", o.channels.Active()))
	return nil
}

// Restart tears the pipeline down and schedules a fresh startup after RECONNECT_DELAY_MS.
// It is ignored while a restart is in progress or within MIN_RESTART_INTERVAL_MS of the last one.
func (o *Orchestrator) Restart(cause error) bool {
	o.mu.Lock()
	if o.stopped || o.restarting {
		o.mu.Unlock()
		o.metrics.RestartSkipped()
		o.logger.Info("restart already in progress", zap.Error(cause))
		return false
	}
	now := o.now()
	if minInterval := o.store.Duration(config.KeyMinRestartIntervalMS); !o.lastRestart.IsZero() && now.Sub(o.lastRestart) < minInterval {
		last := o.lastRestart
		o.mu.Unlock()
		o.metrics.RestartSkipped()
		o.logger.Warn("restart requested too soon, ignoring", zap.Time("last_restart", last), zap.Error(cause))
		return false
	}
	o.restarting = true
	o.lastRestart = now
	o.phase = PhaseBackoff
	o.generation++
	generation := o.generation
	o.mu.Unlock()

	o.metrics.Restarted()
	o.logger.Warn("restarting pipeline", zap.Error(cause))
	o.lifecycle.Lock()
	o.teardown()
	o.lifecycle.Unlock()

	delay := o.store.Duration(config.KeyReconnectDelayMS)
	o.schedule(delay, func() { o.resume(generation) })
	return true
}

func (o *Orchestrator) resume(generation uint64) {
	o.mu.Lock()
	if o.stopped || generation != o.generation {
		o.mu.Unlock()
		return
	}
	o.restarting = false
	ctx := o.ctx
	o.mu.Unlock()

	if err := o.startup(ctx, generation); err != nil {
		if errors.Is(err, errStopped) || errors.Is(err, errSuperseded) {
			return
		}
		o.logger.Error("startup after restart failed", zap.Error(err))
		o.scheduleRetry(err)
	}
}

// scheduleRetry requests a restart after RECONNECT_DELAY_MS, or later if the rate limit would refuse it.
func (o *Orchestrator) scheduleRetry(cause error) {
	o.mu.Lock()
	o.phase = PhaseBackoff
	wait := o.store.Duration(config.KeyReconnectDelayMS)
	if !o.lastRestart.IsZero() {
		remaining := o.lastRestart.Add(o.store.Duration(config.KeyMinRestartIntervalMS)).Sub(o.now())
		if remaining > wait {
			wait = remaining
		}
	}
	o.mu.Unlock()

	o.schedule(wait, func() { o.Restart(cause) })
}

func (o *Orchestrator) schedule(d time.Duration, fn func()) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.stopped {
		return
	}
	if o.timer != nil {
		o.timer.Stop()
	}
	o.timer = time.AfterFunc(d, fn)
}

func (o *Orchestrator) handleFatal(err error) {
	var lost *model.ConnectionLostError
	if errors.As(err, &lost) {
		o.metrics.ConnectionLost(lost.ChainID)
	}
	o.logger.Error("fatal pipeline error", zap.Error(err))
	if o.Restart(err) {
		return
	}
	o.deferRecheck(err)
}

// deferRecheck reports err again once the restart interval has passed, if the
// pipeline is still degraded by then. A startup still in progress postpones the check.
func (o *Orchestrator) deferRecheck(err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.armRecheckLocked(err, 0)
}

func (o *Orchestrator) armRecheckLocked(err error, floor time.Duration) {
	if o.stopped || o.restarting || o.recheck != nil {
		return
	}
	wait := o.lastRestart.Add(o.store.Duration(config.KeyMinRestartIntervalMS)).Sub(o.now())
	if wait < floor {
		wait = floor
	}
	o.recheck = time.AfterFunc(wait, func() {
		o.mu.Lock()
		o.recheck = nil
		starting := o.phase == PhaseStarting
		if starting {
			o.armRecheckLocked(err, recheckPoll)
		}
		o.mu.Unlock()
		if !starting && o.degraded() {
			o.Fatal(err)
		}
	})
}

// degraded reports whether a running pipeline lost a transport or a subscription.
func (o *Orchestrator) degraded() bool {
	o.mu.Lock()
	if o.stopped || o.phase != PhaseRunning {
		o.mu.Unlock()
		return false
	}
	expected := o.expected
	transports := make([]chain.Transport, 0, len(o.transports))
	for _, t := range o.transports {
		transports = append(transports, t)
	}
	o.mu.Unlock()

	for _, t := range transports {
		if phase := t.Phase(); phase == chain.PhaseDisconnected || phase == chain.PhaseClosing {
			return true
		}
	}
	return len(o.registry.Active()) < expected
}

// Shutdown tears the pipeline down for good. Later restarts are ignored.
func (o *Orchestrator) Shutdown() {
	o.mu.Lock()
	if o.stopped {
		o.mu.Unlock()
		return
	}
	o.stopped = true
	o.restarting = true
	o.phase = PhaseStopping
	if o.timer != nil {
		o.timer.Stop()
	}
	if o.recheck != nil {
		o.recheck.Stop()
	}
	o.mu.Unlock()

	o.logger.Info("shutting down")
	o.lifecycle.Lock()
	o.teardown()
	o.lifecycle.Unlock()

	o.mu.Lock()
	o.phase = PhaseIdle
	o.mu.Unlock()
}

// teardown closes channels, stops every subscription and disposes every transport, in that order.
func (o *Orchestrator) teardown() {
	o.channels.Close()
	o.registry.StopAll()

	o.mu.Lock()
	transports := o.transports
	o.transports = make(map[uint64]chain.Transport)
	o.expected = 0
	o.mu.Unlock()

	for chainID, t := range transports {
		t.Close()
		o.logger.Debug("transport disposed", zap.Uint64("chain_id", chainID))
	}
}

// Status reports the lifecycle phase and per-chain transport phases.
func (o *Orchestrator) Status() Status {
	o.mu.Lock()
	status := Status{
		Phase:       o.phase,
		Chains:      make(map[uint64]chain.Phase, len(o.transports)),
		LastRestart: o.lastRestart,
	}
	for chainID, t := range o.transports {
		status.Chains[chainID] = t.Phase()
	}
	o.mu.Unlock()

	status.Subscriptions = o.registry.Active()
	status.Channels = o.channels.Active()
	return status
}

// Healthy reports a running pipeline with no disconnected transport.
func (s Status) Healthy() bool {
	if s.Phase != PhaseRunning {
		return false
	}
	for _, phase := range s.Chains {
		if phase == chain.PhaseDisconnected || phase == chain.PhaseClosing {
			return false
		}
	}
	return true
}
