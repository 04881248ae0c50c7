package channel

import (
	"context"

	"go.uber.org/zap"

	"github.com/airswap/airswap-bot/internal/model"
)

// Log writes published events to the process logger.
type Log struct {
	logger *zap.Logger
}

func NewLog(logger *zap.Logger) *Log {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Log{logger: logger.Named("publish")}
}

func (l *Log) Name() string               { return "log" }
func (l *Log) Init(context.Context) error { return nil }
func (l *Log) Close() error               { return nil }

func (l *Log) PublishEvent(_ context.Context, event model.DomainEvent) error {
	l.logger.Info(event.EventName+" Event",
		zap.Uint64("chain_id", event.ChainID),
		zap.String("contract", event.ContractName),
		zap.String("tx_hash", event.TxHash),
		zap.String("description", event.Description),
		zap.Any("params", event.StringParams()),
	)
	return nil
}

func (l *Log) PublishSwap(_ context.Context, swap model.SwapEvent) error {
	l.logger.Info("New Swap",
		zap.Uint64("chain_id", swap.ChainID),
		zap.String("tx_hash", swap.TxHash),
		zap.String("signer_tokens", swap.SignerTokens),
		zap.String("sender_tokens", swap.SenderTokens),
		zap.String("value", FormatUSD(swap.SwapValueUSD)),
		zap.String("protocol_fee", FormatUSD(swap.ProtocolFeeValueUSD)),
		zap.String("signer", MinifyAddress(swap.SignerWallet)),
	)
	return nil
}
