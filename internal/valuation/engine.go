package valuation

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/airswap/airswap-bot/internal/chain"
	"github.com/airswap/airswap-bot/internal/model"
)

// DefaultStables are symbols valued at one USD per unit.
var DefaultStables = []string{"USDT", "USDC", "BUSD", "DAI"}

// Oracle returns amountOut of tokenOut, in its smallest unit, for amountIn of tokenIn.
type Oracle interface {
	Quote(ctx context.Context, caller chain.Caller, chainID uint64, tokenIn, tokenOut common.Address, amountIn *big.Int) (*big.Int, error)
}

// Leg is one side of a swap.
type Leg struct {
	Token  model.TokenInfo
	Amount *big.Int
}

// Units returns the leg amount scaled by the token decimals.
func (l Leg) Units() decimal.Decimal {
	return ToUnits(l.Amount, l.Token.Decimals)
}

// Engine prices swaps in USD.
type Engine struct {
	oracle   Oracle
	stables  map[string]struct{}
	networks map[uint64]model.ChainNetwork
	logger   *zap.Logger
}

// NewEngine builds an engine for the given networks. Each network supplies the
// wrapped-native token and the reference stable used as quote target.
func NewEngine(oracle Oracle, networks []model.ChainNetwork, stables []string, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if stables == nil {
		stables = DefaultStables
	}
	e := &Engine{
		oracle:   oracle,
		stables:  make(map[string]struct{}, len(stables)),
		networks: make(map[uint64]model.ChainNetwork, len(networks)),
		logger:   logger,
	}
	for _, s := range stables {
		e.stables[strings.ToUpper(s)] = struct{}{}
	}
	for _, n := range networks {
		e.networks[n.ChainID] = n
	}
	return e
}

// IsStable reports whether the token symbol is in the stable set. Matching ignores case.
func (e *Engine) IsStable(token model.TokenInfo) bool {
	_, ok := e.stables[strings.ToUpper(token.Symbol)]
	return ok
}

// Value prices the swap in strict order: a stable leg is taken at face value,
// then a wrapped-native leg is quoted once against the reference stable, then
// the signer leg is quoted with the sender leg as fallback.
// On failure it returns 0 and an error wrapping model.ErrValuation; it never panics.
func (e *Engine) Value(ctx context.Context, caller chain.Caller, chainID uint64, signer, sender Leg) (value float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			value = 0
			err = fmt.Errorf("%w: panic: %v", model.ErrValuation, r)
		}
	}()

	if e.IsStable(signer.Token) {
		return signer.Units().InexactFloat64(), nil
	}
	if e.IsStable(sender.Token) {
		return sender.Units().InexactFloat64(), nil
	}

	network, ok := e.networks[chainID]
	if !ok || network.Reference.Address == "" {
		return 0, fmt.Errorf("%w: no reference token on chain %d", model.ErrValuation, chainID)
	}
	if e.oracle == nil {
		return 0, fmt.Errorf("%w: no oracle", model.ErrValuation)
	}

	for _, leg := range []Leg{signer, sender} {
		if network.WrappedNative == "" || !leg.Token.SameAddress(network.WrappedNative) {
			continue
		}
		v, err := e.quote(ctx, caller, network, leg)
		if err != nil {
			return 0, fmt.Errorf("%w: wrapped native quote: %v", model.ErrValuation, err)
		}
		return v, nil
	}

	v, signerErr := e.quote(ctx, caller, network, signer)
	if signerErr == nil {
		return v, nil
	}
	e.logger.Debug("signer leg quote failed", zap.Uint64("chain_id", chainID), zap.String("token", signer.Token.Address), zap.Error(signerErr))

	v, senderErr := e.quote(ctx, caller, network, sender)
	if senderErr == nil {
		return v, nil
	}
	return 0, fmt.Errorf("%w: %v", model.ErrValuation, errors.Join(signerErr, senderErr))
}

func (e *Engine) quote(ctx context.Context, caller chain.Caller, network model.ChainNetwork, leg Leg) (float64, error) {
	if leg.Amount == nil || leg.Amount.Sign() <= 0 {
		return 0, fmt.Errorf("token %s: no amount", leg.Token.Address)
	}
	if !common.IsHexAddress(leg.Token.Address) {
		return 0, fmt.Errorf("token %q: invalid address", leg.Token.Address)
	}
	out, err := e.oracle.Quote(ctx, caller, network.ChainID,
		common.HexToAddress(leg.Token.Address),
		common.HexToAddress(network.Reference.Address),
		leg.Amount,
	)
	if err != nil {
		return 0, err
	}
	return ToUnits(out, network.Reference.Decimals).InexactFloat64(), nil
}

// ToUnits converts an integer amount in the smallest unit to a decimal amount.
func ToUnits(amount *big.Int, decimals uint8) decimal.Decimal {
	if amount == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(amount, -int32(decimals))
}
