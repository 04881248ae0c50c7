package dex

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/airswap/airswap-bot/internal/chain"
)

// FeeMedium is the 0.3% fee tier used to locate the pricing pool.
const FeeMedium uint32 = 3000

var (
	// ErrNoOracle is returned for chains without a known quoter deployment.
	ErrNoOracle = errors.New("no price oracle on chain")
	// ErrPoolNotFound is returned when the derived pool address holds no pool.
	ErrPoolNotFound = errors.New("pool not found")
)

// UniswapV3Deployment locates the factory and quoter on one chain.
type UniswapV3Deployment struct {
	Factory          common.Address
	Quoter           common.Address
	PoolInitCodeHash common.Hash
}

var canonicalV3 = UniswapV3Deployment{
	Factory:          common.HexToAddress("0x1F98431c8aD98523631AE4a59f267346ea31F984"),
	Quoter:           common.HexToAddress("0xb27308f9F90D607463bb33eA1BeBb41C27CE5AB6"),
	PoolInitCodeHash: common.HexToHash("0xe34f199b19b2b4f47f68442619d555527d244f78a3297ea89325f843f87b8b54"),
}

// DefaultUniswapV3Deployments lists the chains where the canonical factory and quoter are deployed.
func DefaultUniswapV3Deployments() map[uint64]UniswapV3Deployment {
	return map[uint64]UniswapV3Deployment{
		1:     canonicalV3,
		137:   canonicalV3,
		42161: canonicalV3,
	}
}

// PoolAddress derives a V3 pool address with CREATE2. Token order does not matter.
func PoolAddress(factory common.Address, initCodeHash common.Hash, tokenA, tokenB common.Address, fee uint32) common.Address {
	token0, token1 := tokenA, tokenB
	if bytes.Compare(token0.Bytes(), token1.Bytes()) > 0 {
		token0, token1 = token1, token0
	}

	encoded := make([]byte, 0, 96)
	encoded = append(encoded, common.LeftPadBytes(token0.Bytes(), 32)...)
	encoded = append(encoded, common.LeftPadBytes(token1.Bytes(), 32)...)
	encoded = append(encoded, common.LeftPadBytes(new(big.Int).SetUint64(uint64(fee)).Bytes(), 32)...)

	var salt [32]byte
	copy(salt[:], crypto.Keccak256(encoded))
	return crypto.CreateAddress2(factory, salt, initCodeHash.Bytes())
}

// Quoter prices token amounts through Uniswap V3 pools.
type Quoter struct {
	deployments map[uint64]UniswapV3Deployment
	fee         uint32
}

// NewQuoter builds a quoter over the given deployments.
func NewQuoter(deployments map[uint64]UniswapV3Deployment) *Quoter {
	if deployments == nil {
		deployments = DefaultUniswapV3Deployments()
	}
	return &Quoter{deployments: deployments, fee: FeeMedium}
}

// Quote returns the amountOut of tokenOut, in its smallest unit, for amountIn of tokenIn.
func (q *Quoter) Quote(ctx context.Context, caller chain.Caller, chainID uint64, tokenIn, tokenOut common.Address, amountIn *big.Int) (*big.Int, error) {
	dep, ok := q.deployments[chainID]
	if !ok {
		return nil, fmt.Errorf("%w %d", ErrNoOracle, chainID)
	}
	if amountIn == nil || amountIn.Sign() <= 0 {
		return nil, fmt.Errorf("quote: non-positive amount")
	}

	poolABI, err := V3PoolABI()
	if err != nil {
		return nil, fmt.Errorf("parse pool abi: %w", err)
	}
	quoterABI, err := V3QuoterABI()
	if err != nil {
		return nil, fmt.Errorf("parse quoter abi: %w", err)
	}

	pool := PoolAddress(dep.Factory, dep.PoolInitCodeHash, tokenIn, tokenOut, q.fee)
	values, err := callMethod(ctx, caller, pool, poolABI, "fee", nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrPoolNotFound, pool.Hex(), err)
	}
	fee, err := asBigInt(values[0])
	if err != nil {
		return nil, fmt.Errorf("pool fee: %w", err)
	}

	values, err = callMethod(ctx, caller, dep.Quoter, quoterABI, "quoteExactInputSingle", nil,
		tokenIn, tokenOut, fee, amountIn, big.NewInt(0))
	if err != nil {
		return nil, err
	}
	return asBigInt(values[0])
}
