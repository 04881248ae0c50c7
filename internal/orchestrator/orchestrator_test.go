package orchestrator

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

	"github.com/airswap/airswap-bot/internal/chain"
	"github.com/airswap/airswap-bot/internal/config"
	"github.com/airswap/airswap-bot/internal/listener"
	"github.com/airswap/airswap-bot/internal/model"
)

type fakeSub struct {
	errc chan error
	once sync.Once
}

func (s *fakeSub) Unsubscribe()      { s.once.Do(func() { close(s.errc) }) }
func (s *fakeSub) Err() <-chan error { return s.errc }

type fakeTransport struct {
	chainID uint64
	closes  atomic.Int32
}

func (f *fakeTransport) ChainID() uint64 { return f.chainID }

func (f *fakeTransport) SubscribeLogs(context.Context, ethereum.FilterQuery, chan<- types.Log) (ethereum.Subscription, error) {
	return &fakeSub{errc: make(chan error, 1)}, nil
}

func (f *fakeTransport) TransactionReceipt(context.Context, common.Hash) (*types.Receipt, error) {
	return nil, ethereum.NotFound
}

func (f *fakeTransport) BlockTimestamp(context.Context, uint64) (uint64, error) { return 0, nil }

func (f *fakeTransport) CallContract(context.Context, ethereum.CallMsg, *big.Int) ([]byte, error) {
	return nil, errors.New("no contract")
}

func (f *fakeTransport) Phase() chain.Phase {
	if f.closes.Load() > 0 {
		return chain.PhaseDisconnected
	}
	return chain.PhaseLive
}

func (f *fakeTransport) Close() { f.closes.Add(1) }

type fakeChannels struct {
	inits  atomic.Int32
	closes atomic.Int32
}

func (c *fakeChannels) Init(context.Context) error { c.inits.Add(1); return nil }
func (c *fakeChannels) Close()                     { c.closes.Add(1) }
func (c *fakeChannels) Active() []string           { return []string{"log"} }

type noopHandler struct{}

func (noopHandler) Handle(context.Context, chain.Transport, model.DomainEvent, types.Log) error {
	return nil
}

type fakeDialer struct {
	mu         sync.Mutex
	failures   int
	dials      int
	transports []*fakeTransport
	onLost     map[uint64]func(error)

	holdChain   uint64
	holdEntered chan struct{}
	holdRelease chan struct{}
}

// holdNext blocks the next dial of chainID until release is closed.
func (d *fakeDialer) holdNext(chainID uint64) (entered <-chan struct{}, release chan struct{}) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.holdChain = chainID
	d.holdEntered = make(chan struct{})
	d.holdRelease = make(chan struct{})
	return d.holdEntered, d.holdRelease
}

func (d *fakeDialer) dial(_ context.Context, network model.ChainNetwork, onLost func(error)) (chain.Transport, error) {
	d.mu.Lock()
	if d.holdRelease != nil && d.holdChain == network.ChainID {
		entered, release := d.holdEntered, d.holdRelease
		d.holdEntered, d.holdRelease = nil, nil
		d.mu.Unlock()
		close(entered)
		<-release
		d.mu.Lock()
	}
	defer d.mu.Unlock()
	d.dials++
	if d.failures > 0 {
		d.failures--
		return nil, errors.New("dial refused")
	}
	if d.onLost == nil {
		d.onLost = make(map[uint64]func(error))
	}
	d.onLost[network.ChainID] = onLost
	t := &fakeTransport{chainID: network.ChainID}
	d.transports = append(d.transports, t)
	return t, nil
}

func (d *fakeDialer) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

func (d *fakeDialer) latest(chainID uint64) *fakeTransport {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := len(d.transports) - 1; i >= 0; i-- {
		if d.transports[i].chainID == chainID {
			return d.transports[i]
		}
	}
	return nil
}

func (d *fakeDialer) lost(chainID uint64) func(error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.onLost[chainID]
}

func swapRoute(t *testing.T) Route {
	t.Helper()
	bindings, err := listener.DefaultBindings(nil)
	if err != nil {
		t.Fatalf("bindings: %v", err)
	}
	for _, b := range bindings {
		if b.Name == listener.ContractSwapERC20 {
			return Route{Binding: b, Handler: noopHandler{}}
		}
	}
	t.Fatalf("no SwapERC20 binding")
	return Route{}
}

func newTestOrchestrator(t *testing.T, store *config.Store, dialer *fakeDialer) (*Orchestrator, *fakeChannels) {
	t.Helper()
	channels := &fakeChannels{}
	o := New(Config{
		Networks: []model.ChainNetwork{
			{ChainID: 1, Name: "Ethereum"},
			{ChainID: 999, Name: "Nowhere"},
		},
		Routes:   []Route{swapRoute(t)},
		Store:    store,
		Dial:     dialer.dial,
		Channels: channels,
	}, zap.NewNop())
	return o, channels
}

func testStore(reconnect, minInterval float64) *config.Store {
	return config.NewMemoryStore(map[string]any{
		config.KeyReconnectDelayMS:     reconnect,
		config.KeyMinRestartIntervalMS: minInterval,
	})
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestStartupSkipsMissingDeployments(t *testing.T) {
	dialer := &fakeDialer{}
	o, channels := newTestOrchestrator(t, testStore(10, 0), dialer)

	if err := o.Startup(context.Background()); err != nil {
		t.Fatalf("startup: %v", err)
	}
	status := o.Status()
	if status.Phase != PhaseRunning || !status.Healthy() {
		t.Fatalf("unexpected status %+v", status)
	}
	if len(status.Subscriptions) != 1 || status.Subscriptions[0] != "SwapERC20@1" {
		t.Fatalf("unexpected subscriptions %v", status.Subscriptions)
	}
	if dialer.dialCount() != 2 || channels.inits.Load() != 1 {
		t.Fatalf("expected two dials and one channel init, got %d and %d", dialer.dialCount(), channels.inits.Load())
	}
	o.Shutdown()
}

func TestRestartTwiceWithinIntervalRunsOnce(t *testing.T) {
	dialer := &fakeDialer{}
	o, channels := newTestOrchestrator(t, testStore(10, 60000), dialer)
	if err := o.Startup(context.Background()); err != nil {
		t.Fatalf("startup: %v", err)
	}

	if !o.Restart(errors.New("first")) {
		t.Fatalf("first restart should proceed")
	}
	waitFor(t, "pipeline restarted", func() bool { return o.Status().Phase == PhaseRunning })

	if o.Restart(errors.New("second")) {
		t.Fatalf("second restart within the interval should be ignored")
	}
	time.Sleep(50 * time.Millisecond)

	if got := channels.closes.Load(); got != 1 {
		t.Fatalf("expected one teardown, got %d", got)
	}
	if got := dialer.dialCount(); got != 4 {
		t.Fatalf("expected one startup after restart, got %d dials", got)
	}
	for _, tr := range dialer.transports[:2] {
		if tr.closes.Load() != 1 {
			t.Fatalf("transport %d disposed %d times", tr.chainID, tr.closes.Load())
		}
	}
	o.Shutdown()
}

func TestRestartIgnoredWhileInProgress(t *testing.T) {
	dialer := &fakeDialer{}
	o, channels := newTestOrchestrator(t, testStore(60000, 0), dialer)
	if err := o.Startup(context.Background()); err != nil {
		t.Fatalf("startup: %v", err)
	}

	if !o.Restart(errors.New("first")) {
		t.Fatalf("first restart should proceed")
	}
	if o.Restart(errors.New("second")) {
		t.Fatalf("restart during backoff should be ignored")
	}
	if o.Status().Phase != PhaseBackoff {
		t.Fatalf("expected backoff, got %s", o.Status().Phase)
	}
	if channels.closes.Load() != 1 {
		t.Fatalf("expected one teardown")
	}
	o.Shutdown()
}

func TestConnectionLostRestartsPipeline(t *testing.T) {
	dialer := &fakeDialer{}
	o, channels := newTestOrchestrator(t, testStore(10, 0), dialer)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- o.Run(ctx) }()

	waitFor(t, "initial startup", func() bool { return o.Status().Phase == PhaseRunning })
	dialer.lost(1)(&model.ConnectionLostError{ChainID: 1, Cause: chain.ErrPongTimeout})

	waitFor(t, "restart", func() bool { return dialer.dialCount() == 4 && o.Status().Phase == PhaseRunning })
	if got := o.Status().Subscriptions; len(got) != 1 {
		t.Fatalf("expected subscription restored, got %v", got)
	}
	if channels.closes.Load() != 1 || channels.inits.Load() != 2 {
		t.Fatalf("unexpected channel lifecycle: %d closes %d inits", channels.closes.Load(), channels.inits.Load())
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("run: %v", err)
	}
	if o.Status().Phase != PhaseIdle {
		t.Fatalf("expected idle after shutdown")
	}
	if o.Restart(errors.New("late")) {
		t.Fatalf("restart after shutdown should be ignored")
	}
}

func TestStartupFailureSchedulesRetry(t *testing.T) {
	dialer := &fakeDialer{failures: 1}
	o, _ := newTestOrchestrator(t, testStore(10, 0), dialer)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = o.Run(ctx) }()

	waitFor(t, "recovery after failed startup", func() bool { return o.Status().Phase == PhaseRunning })
	if dialer.dialCount() != 3 {
		t.Fatalf("expected one failed and two successful dials, got %d", dialer.dialCount())
	}
}

func TestShutdownIsIdempotent(t *testing.T) {
	dialer := &fakeDialer{}
	o, channels := newTestOrchestrator(t, testStore(10, 0), dialer)
	if err := o.Startup(context.Background()); err != nil {
		t.Fatalf("startup: %v", err)
	}
	o.Shutdown()
	o.Shutdown()
	if channels.closes.Load() != 1 {
		t.Fatalf("expected a single teardown, got %d", channels.closes.Load())
	}
	if err := o.Startup(context.Background()); !errors.Is(err, errStopped) {
		t.Fatalf("expected errStopped, got %v", err)
	}
}

func TestConnectionLostDuringSlowStartupIsRecovered(t *testing.T) {
	dialer := &fakeDialer{}
	o, _ := newTestOrchestrator(t, testStore(10, 200), dialer)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = o.Run(ctx) }()
	waitFor(t, "initial startup", func() bool { return o.Status().Phase == PhaseRunning })

	entered, release := dialer.holdNext(999)
	if !o.Restart(errors.New("first")) {
		t.Fatalf("first restart should proceed")
	}
	<-entered

	// Chain 1 is already redialed; it dies while chain 999 is still dialing.
	fresh := dialer.latest(1)
	if fresh == nil || dialer.dialCount() != 3 {
		t.Fatalf("expected chain 1 redialed before the held dial, got %d dials", dialer.dialCount())
	}
	fresh.Close()
	dialer.lost(1)(&model.ConnectionLostError{ChainID: 1, Cause: chain.ErrPongTimeout})

	// Keep startup in progress past the restart interval.
	time.Sleep(400 * time.Millisecond)
	if o.Status().Phase != PhaseStarting {
		t.Fatalf("expected startup still in progress, got %s", o.Status().Phase)
	}
	close(release)

	waitFor(t, "recovery of the lost chain", func() bool {
		return dialer.dialCount() == 6 && o.Status().Healthy()
	})
	if got := o.Status().Chains[1]; got != chain.PhaseLive {
		t.Fatalf("expected chain 1 live, got %s", got)
	}
}
