package chain

import (
	"context"
	"errors"
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

// ErrPongTimeout is the cause reported when a liveness probe goes unanswered.
var ErrPongTimeout = errors.New("liveness probe timed out")

// Conn is the raw streaming connection supervised by a Session.
type Conn interface {
	Caller
	Probe(ctx context.Context) error
	SubscribeFilterLogs(ctx context.Context, query ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error)
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	BlockTimestamp(ctx context.Context, number uint64) (uint64, error)
	Close()
}

// SessionConfig holds the liveness timing for a push transport.
type SessionConfig struct {
	KeepAliveInterval time.Duration
	PongTimeout       time.Duration
}

// Session keeps one push connection alive and reports silent failure.
// onLost is invoked at most once, and never after Close returns.
type Session struct {
	chainID uint64
	conn    Conn
	cfg     SessionConfig
	onLost  func(error)
	logger  *zap.Logger

	mu          sync.Mutex
	phase       Phase
	closed      bool
	ticker      *time.Ticker
	pongTimer   *time.Timer
	probeSeq    uint64
	ackSeq      uint64
	stop        chan struct{}
	probeCtx    context.Context
	cancelProbe context.CancelFunc
}

// OpenSession dials the network's websocket endpoint and starts supervising it.
func OpenSession(ctx context.Context, network model.ChainNetwork, credential string, cfg SessionConfig, onLost func(error), logger *zap.Logger) (*Session, error) {
	client, err := DialClient(ctx, network.ChainID, network.WSURL(credential))
	if err != nil {
		return nil, fmt.Errorf("dial %s websocket: %w", network.Name, err)
	}
	return NewSession(network.ChainID, client, cfg, onLost, logger), nil
}

// NewSession supervises an already established connection.
func NewSession(chainID uint64, conn Conn, cfg SessionConfig, onLost func(error), logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	if onLost == nil {
		onLost = func(error) {}
	}
	probeCtx, cancel := context.WithCancel(context.Background())
	s := &Session{
		chainID:     chainID,
		conn:        conn,
		cfg:         cfg,
		onLost:      onLost,
		logger:      logger.With(zap.Uint64("chain_id", chainID)),
		phase:       PhaseConnecting,
		stop:        make(chan struct{}),
		probeCtx:    probeCtx,
		cancelProbe: cancel,
	}
	s.open()
	return s
}

func (s *Session) open() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.phase = PhaseLive
	if s.cfg.KeepAliveInterval <= 0 {
		return
	}
	s.ticker = time.NewTicker(s.cfg.KeepAliveInterval)
	go s.keepAlive(s.ticker.C)
	s.logger.Debug("keepalive started",
		zap.Duration("interval", s.cfg.KeepAliveInterval),
		zap.Duration("pong_timeout", s.cfg.PongTimeout),
	)
}

func (s *Session) keepAlive(tick <-chan time.Time) {
	for {
		select {
		case <-s.stop:
			return
		case <-tick:
			s.sendProbe()
		}
	}
}

func (s *Session) sendProbe() {
	s.mu.Lock()
	if s.closed || s.pongTimer != nil {
		s.mu.Unlock()
		return
	}
	s.probeSeq++
	seq := s.probeSeq
	s.phase = PhaseDegraded
	if s.cfg.PongTimeout > 0 {
		s.pongTimer = time.AfterFunc(s.cfg.PongTimeout, func() { s.expire(seq) })
	}
	ctx := s.probeCtx
	s.mu.Unlock()

	go func() {
		if err := s.conn.Probe(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			s.fail(fmt.Errorf("liveness probe: %w", err))
			return
		}
		s.acknowledge(seq)
	}()
}

func (s *Session) acknowledge(seq uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || seq != s.probeSeq {
		return
	}
	if s.pongTimer != nil {
		s.pongTimer.Stop()
		s.pongTimer = nil
	}
	s.ackSeq = seq
	s.phase = PhaseLive
}

func (s *Session) expire(seq uint64) {
	s.mu.Lock()
	// The timer may have fired just before the acknowledgment took the lock.
	stale := s.closed || seq != s.probeSeq || s.ackSeq >= seq
	s.mu.Unlock()
	if stale {
		return
	}
	s.fail(ErrPongTimeout)
}

// fail terminates the connection and signals loss, unless already torn down.
func (s *Session) fail(cause error) {
	if !s.teardown() {
		return
	}
	s.logger.Warn("connection lost", zap.Error(cause))
	s.onLost(&model.ConnectionLostError{ChainID: s.chainID, Cause: cause})
}

// Close cancels all timers and closes the connection. It is safe to call repeatedly.
func (s *Session) Close() {
	if s.teardown() {
		s.logger.Info("connection closed")
	}
}

func (s *Session) teardown() bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	s.closed = true
	s.phase = PhaseClosing
	if s.ticker != nil {
		s.ticker.Stop()
	}
	if s.pongTimer != nil {
		s.pongTimer.Stop()
		s.pongTimer = nil
	}
	close(s.stop)
	s.cancelProbe()
	s.mu.Unlock()

	s.conn.Close()

	s.mu.Lock()
	s.phase = PhaseDisconnected
	s.mu.Unlock()
	return true
}

// ChainID returns the supervised chain.
func (s *Session) ChainID() uint64 {
	return s.chainID
}

// Phase returns the current connection state.
func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// SubscribeLogs opens a log stream. A stream error is treated as loss of the whole connection.
func (s *Session) SubscribeLogs(ctx context.Context, query ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error) {
	sub, err := s.conn.SubscribeFilterLogs(ctx, query, ch)
	if err != nil {
		return nil, err
	}
	return event.NewSubscription(func(quit <-chan struct{}) error {
		select {
		case err := <-sub.Err():
			if err != nil {
				s.fail(fmt.Errorf("log subscription: %w", err))
			}
			return err
		case <-quit:
			sub.Unsubscribe()
			return nil
		}
	}), nil
}

// TransactionReceipt returns the receipt of a mined transaction.
func (s *Session) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	return s.conn.TransactionReceipt(ctx, txHash)
}

// BlockTimestamp returns the block timestamp.
func (s *Session) BlockTimestamp(ctx context.Context, number uint64) (uint64, error) {
	return s.conn.BlockTimestamp(ctx, number)
}

// CallContract performs an eth_call.
func (s *Session) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	return s.conn.CallContract(ctx, msg, blockNumber)
}
