package dex

import (
	"bytes"
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/airswap/airswap-bot/internal/chain"
	"github.com/airswap/airswap-bot/internal/model"
)

type tokenKey struct {
	chainID uint64
	address string
}

func newTokenKey(chainID uint64, address string) tokenKey {
	return tokenKey{chainID: chainID, address: strings.ToLower(address)}
}

// TokenCache holds token metadata for the process lifetime. Entries are never invalidated.
type TokenCache struct {
	mu   sync.RWMutex
	data map[tokenKey]model.TokenInfo
}

// NewTokenCache builds a cache seeded with the known token table.
func NewTokenCache() *TokenCache {
	c := &TokenCache{data: make(map[tokenKey]model.TokenInfo, len(knownTokens))}
	for _, token := range knownTokens {
		c.data[newTokenKey(token.ChainID, token.Address)] = token
	}
	return c
}

func (c *TokenCache) Get(chainID uint64, address string) (model.TokenInfo, bool) {
	c.mu.RLock()
	info, ok := c.data[newTokenKey(chainID, address)]
	c.mu.RUnlock()
	return info, ok
}

func (c *TokenCache) Set(info model.TokenInfo) {
	c.mu.Lock()
	c.data[newTokenKey(info.ChainID, info.Address)] = info
	c.mu.Unlock()
}

// Resolve returns cached metadata, else fetches it from the chain and fills the cache.
// Failed lookups are not cached so a later event can retry.
func (c *TokenCache) Resolve(ctx context.Context, caller chain.Caller, chainID uint64, address common.Address, logger *zap.Logger) (model.TokenInfo, error) {
	if info, ok := c.Get(chainID, address.Hex()); ok {
		return info, nil
	}
	info, err := FetchTokenInfo(ctx, caller, chainID, address, logger)
	if err != nil {
		return model.UnknownToken(chainID, address.Hex()), err
	}
	c.Set(info)
	return info, nil
}

// FetchTokenInfo loads token metadata via ERC20 calls.
func FetchTokenInfo(ctx context.Context, caller chain.Caller, chainID uint64, token common.Address, logger *zap.Logger) (model.TokenInfo, error) {
	info := model.TokenInfo{ChainID: chainID, Address: token.Hex()}
	if caller == nil {
		return info, fmt.Errorf("chain caller is nil")
	}

	stringABI, err := ERC20ABI()
	if err != nil {
		return info, fmt.Errorf("parse erc20 string abi: %w", err)
	}
	bytes32ABI, err := erc20ABIBytes32Instance()
	if err != nil {
		return info, fmt.Errorf("parse erc20 bytes32 abi: %w", err)
	}

	call := func(method string, parsed abi.ABI) ([]interface{}, error) {
		return callMethod(ctx, caller, token, parsed, method, nil)
	}

	values, err := call("decimals", stringABI)
	if err != nil {
		return info, err
	}
	decimals, err := asUint8(values[0])
	if err != nil {
		return info, err
	}
	info.Decimals = decimals

	if values, err := call("symbol", stringABI); err == nil {
		if symbol, ok := values[0].(string); ok {
			info.Symbol = symbol
		}
	} else if values, err := call("symbol", bytes32ABI); err == nil {
		if symbol, ok := bytes32ToString(values[0]); ok {
			info.Symbol = symbol
		}
	} else if logger != nil {
		logger.Debug("symbol call failed", zap.String("token", token.Hex()), zap.Error(err))
	}

	if values, err := call("name", stringABI); err == nil {
		if name, ok := values[0].(string); ok {
			info.Name = name
		}
	} else if values, err := call("name", bytes32ABI); err == nil {
		if name, ok := bytes32ToString(values[0]); ok {
			info.Name = name
		}
	} else if logger != nil {
		logger.Debug("name call failed", zap.String("token", token.Hex()), zap.Error(err))
	}

	if info.Symbol == "" {
		info.Symbol = "?"
	}
	return info, nil
}

func callMethod(ctx context.Context, caller chain.Caller, to common.Address, parsed abi.ABI, method string, block *big.Int, args ...interface{}) ([]interface{}, error) {
	data, err := parsed.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	msg := ethereum.CallMsg{To: &to, Data: data}
	resp, err := caller.CallContract(ctx, msg, block)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	values, err := parsed.Unpack(method, resp)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("unpack %s: empty result", method)
	}
	return values, nil
}

func bytes32ToString(value interface{}) (string, bool) {
	switch v := value.(type) {
	case [32]byte:
		return string(bytes.TrimRight(v[:], "\x00")), true
	case []byte:
		return string(bytes.TrimRight(v, "\x00")), true
	default:
		return "", false
	}
}

func asBigInt(value interface{}) (*big.Int, error) {
	switch v := value.(type) {
	case *big.Int:
		return new(big.Int).Set(v), nil
	case big.Int:
		return new(big.Int).Set(&v), nil
	case uint8:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint16:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint32:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint64:
		return new(big.Int).SetUint64(v), nil
	default:
		return nil, fmt.Errorf("unsupported int type %T", value)
	}
}

func asUint8(value interface{}) (uint8, error) {
	switch v := value.(type) {
	case uint8:
		return v, nil
	case uint16:
		return uint8(v), nil
	case uint32:
		return uint8(v), nil
	case uint64:
		return uint8(v), nil
	case *big.Int:
		return uint8(v.Uint64()), nil
	default:
		return 0, fmt.Errorf("unsupported uint8 type %T", value)
	}
}
