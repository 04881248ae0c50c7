package listener

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"github.com/airswap/airswap-bot/internal/chain"
	"github.com/airswap/airswap-bot/internal/config"
	"github.com/airswap/airswap-bot/internal/dex"
	"github.com/airswap/airswap-bot/internal/metrics"
	"github.com/airswap/airswap-bot/internal/model"
	"github.com/airswap/airswap-bot/internal/valuation"
)

// Publisher delivers events to the output channels.
type Publisher interface {
	PublishEvent(ctx context.Context, event model.DomainEvent)
	PublishSwap(ctx context.Context, swap model.SwapEvent)
}

// SwapRecorder receives every valued swap, published or not.
type SwapRecorder interface {
	RecordSwap(swap model.SwapEvent)
}

// ShouldPublish reports whether a swap of value passes the runtime filter.
// A maximum of zero or less disables the upper bound.
func ShouldPublish(value float64, store config.Reader) bool {
	if !store.Bool(config.KeyPublishing) {
		return false
	}
	if value < store.Float(config.KeyBigSwapMinValue) {
		return false
	}
	maxValue := store.Float(config.KeyBigSwapMaxValue)
	return maxValue <= 0 || value <= maxValue
}

// SwapListener turns SwapERC20 events into valued swaps.
type SwapListener struct {
	tokens    *dex.TokenCache
	engine    *valuation.Engine
	store     config.Reader
	publisher Publisher
	recorder  SwapRecorder
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

// NewSwapListener wires the swap handler. recorder may be nil.
func NewSwapListener(tokens *dex.TokenCache, engine *valuation.Engine, store config.Reader, publisher Publisher, recorder SwapRecorder, m *metrics.Metrics, logger *zap.Logger) *SwapListener {
	if logger == nil {
		logger = zap.NewNop()
	}
	if tokens == nil {
		tokens = dex.NewTokenCache()
	}
	return &SwapListener{
		tokens:    tokens,
		engine:    engine,
		store:     store,
		publisher: publisher,
		recorder:  recorder,
		metrics:   m,
		logger:    logger,
	}
}

// Handle reads the swap receipt, resolves both legs and values the trade before filtering it.
func (l *SwapListener) Handle(ctx context.Context, transport chain.Transport, event model.DomainEvent, log types.Log) error {
	chainID := transport.ChainID()

	signerWallet, ok := paramAddress(event.Params, "signerWallet")
	if !ok {
		return l.decodeError(event, log, fmt.Errorf("missing signerWallet"))
	}
	nonce, ok := paramBigInt(event.Params, "nonce")
	if !ok {
		return l.decodeError(event, log, fmt.Errorf("missing nonce"))
	}

	receipt, err := transport.TransactionReceipt(ctx, log.TxHash)
	if err != nil {
		return l.decodeError(event, log, fmt.Errorf("receipt: %w", err))
	}
	legs, err := dex.ResolveSwapLegs(receipt, signerWallet)
	if err != nil {
		return l.decodeError(event, log, err)
	}

	signerToken := l.resolveToken(ctx, transport, chainID, legs.SignerToken)
	senderToken := l.resolveToken(ctx, transport, chainID, legs.SenderToken)
	signerLeg := valuation.Leg{Token: signerToken, Amount: legs.SignerAmount}
	senderLeg := valuation.Leg{Token: senderToken, Amount: legs.SenderAmount}

	value, valueErr := l.engine.Value(ctx, transport, chainID, signerLeg, senderLeg)
	fee := value * l.store.Float(config.KeyProtocolFeeRate)

	swap := model.SwapEvent{
		DomainEvent:         event,
		Nonce:               nonce.String(),
		SignerWallet:        legs.SignerWallet.Hex(),
		SignerToken:         legs.SignerToken.Hex(),
		SignerAmount:        legs.SignerAmount.String(),
		SenderWallet:        legs.SenderWallet.Hex(),
		SenderToken:         legs.SenderToken.Hex(),
		SenderAmount:        legs.SenderAmount.String(),
		SignerTokens:        displayAmount(signerLeg),
		SenderTokens:        displayAmount(senderLeg),
		SwapValueUSD:        value,
		ProtocolFeeValueUSD: fee,
		Timestamp:           l.blockTime(ctx, transport, log.BlockNumber),
	}
	if legs.FeeReceiver != (common.Address{}) {
		swap.FeeReceiver = legs.FeeReceiver.Hex()
	}

	logger := l.logger.With(zap.Uint64("chain_id", chainID), zap.String("tx_hash", swap.TxHash))
	logger.Info("swap",
		zap.String("nonce", swap.Nonce),
		zap.String("signer_wallet", swap.SignerWallet),
		zap.String("signer_tokens", swap.SignerTokens),
		zap.String("sender_wallet", swap.SenderWallet),
		zap.String("sender_tokens", swap.SenderTokens),
		zap.Float64("value_usd", value),
		zap.Float64("fee_usd", fee),
	)

	if l.recorder != nil {
		l.recorder.RecordSwap(swap)
	}

	if valueErr != nil {
		l.metrics.ValuationFailed(chainID)
		logger.Warn("swap not valued", zap.Error(valueErr))
		return nil
	}
	if !ShouldPublish(value, l.store) || ctx.Err() != nil {
		l.metrics.EventMuted(chainID, event.EventName)
		logger.Debug("swap muted", zap.Float64("value_usd", value))
		return nil
	}

	l.publisher.PublishSwap(ctx, swap)
	l.metrics.EventPublished(chainID, event.EventName)
	return nil
}

func (l *SwapListener) resolveToken(ctx context.Context, caller chain.Caller, chainID uint64, address common.Address) model.TokenInfo {
	info, err := l.tokens.Resolve(ctx, caller, chainID, address, l.logger)
	if err != nil {
		l.logger.Debug("token metadata unavailable", zap.Uint64("chain_id", chainID), zap.String("token", address.Hex()), zap.Error(err))
	}
	return info
}

func (l *SwapListener) blockTime(ctx context.Context, transport chain.Transport, number uint64) time.Time {
	ts, err := transport.BlockTimestamp(ctx, number)
	if err != nil {
		l.logger.Debug("block timestamp unavailable", zap.Uint64("block", number), zap.Error(err))
		return time.Now().UTC()
	}
	return time.Unix(int64(ts), 0).UTC()
}

func (l *SwapListener) decodeError(event model.DomainEvent, log types.Log, err error) error {
	topic0 := ""
	if len(log.Topics) > 0 {
		topic0 = log.Topics[0].Hex()
	}
	return &model.DecodeError{
		ChainID:  event.ChainID,
		Contract: event.ContractName,
		TxHash:   event.TxHash,
		LogIndex: event.LogIndex,
		Topic0:   topic0,
		Err:      err,
	}
}

func displayAmount(leg valuation.Leg) string {
	return fmt.Sprintf("%s %s", leg.Units().String(), leg.Token.Symbol)
}

// EventPublisher forwards generic contract events while publishing is on.
type EventPublisher struct {
	store     config.Reader
	publisher Publisher
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

// NewEventPublisher builds the handler used by every non-swap binding.
func NewEventPublisher(store config.Reader, publisher Publisher, m *metrics.Metrics, logger *zap.Logger) *EventPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventPublisher{store: store, publisher: publisher, metrics: m, logger: logger}
}

// Handle publishes event or logs it as muted.
func (p *EventPublisher) Handle(ctx context.Context, _ chain.Transport, event model.DomainEvent, _ types.Log) error {
	logger := p.logger.With(
		zap.Uint64("chain_id", event.ChainID),
		zap.String("contract", event.ContractName),
		zap.String("event", event.EventName),
		zap.String("tx_hash", event.TxHash),
	)
	if !p.store.Bool(config.KeyPublishing) || ctx.Err() != nil {
		p.metrics.EventMuted(event.ChainID, event.EventName)
		logger.Info("event muted", zap.String("description", event.Description))
		return nil
	}
	logger.Info("event", zap.String("description", event.Description))
	p.publisher.PublishEvent(ctx, event)
	p.metrics.EventPublished(event.ChainID, event.EventName)
	return nil
}
