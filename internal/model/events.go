package model

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// KindSwapERC20 is the publish kind for valued swaps; every other kind is a generic contract event.
const KindSwapERC20 = "SwapERC20"

// DomainEvent is a decoded contract log. It is created once per observed log and never mutated.
type DomainEvent struct {
	ChainID      uint64         `json:"chain_id"`
	ContractName string         `json:"contract"`
	Address      string         `json:"address"`
	EventName    string         `json:"event"`
	TxHash       string         `json:"tx_hash"`
	BlockNumber  uint64         `json:"block_number"`
	LogIndex     uint64         `json:"log_index"`
	Description  string         `json:"description"`
	Params       map[string]any `json:"params"`
	ParamOrder   []string       `json:"-"`
}

// StringParams renders decoded parameters as display strings, keyed by name.
func (e DomainEvent) StringParams() map[string]string {
	out := make(map[string]string, len(e.Params))
	for k, v := range e.Params {
		out[k] = FormatParam(v)
	}
	return out
}

// OrderedParams returns name/value pairs in declaration order.
func (e DomainEvent) OrderedParams() [][2]string {
	out := make([][2]string, 0, len(e.ParamOrder))
	for _, name := range e.ParamOrder {
		v, ok := e.Params[name]
		if !ok {
			continue
		}
		out = append(out, [2]string{name, FormatParam(v)})
	}
	return out
}

// SwapEvent is a DomainEvent for SwapERC20 enriched with trade legs and USD valuation.
type SwapEvent struct {
	DomainEvent
	Nonce               string    `json:"nonce"`
	SignerWallet        string    `json:"signer_wallet"`
	SignerToken         string    `json:"signer_token"`
	SignerAmount        string    `json:"signer_amount"`
	SenderWallet        string    `json:"sender_wallet"`
	SenderToken         string    `json:"sender_token"`
	SenderAmount        string    `json:"sender_amount"`
	SignerTokens        string    `json:"signer_tokens"`
	SenderTokens        string    `json:"sender_tokens"`
	FeeReceiver         string    `json:"fee_receiver,omitempty"`
	SwapValueUSD        float64   `json:"swap_value_usd"`
	ProtocolFeeValueUSD float64   `json:"protocol_fee_value_usd"`
	Timestamp           time.Time `json:"timestamp"`
}

// FormatParam converts an ABI-decoded value into a readable string.
func FormatParam(v any) string {
	switch typed := v.(type) {
	case nil:
		return ""
	case string:
		return typed
	case common.Address:
		return typed.Hex()
	case []common.Address:
		parts := make([]string, 0, len(typed))
		for _, a := range typed {
			parts = append(parts, a.Hex())
		}
		return strings.Join(parts, ", ")
	case *big.Int:
		if typed == nil {
			return "0"
		}
		return typed.String()
	case [32]byte:
		return "0x" + hex.EncodeToString(typed[:])
	case [4]byte:
		return "0x" + hex.EncodeToString(typed[:])
	case [][4]byte:
		parts := make([]string, 0, len(typed))
		for _, b := range typed {
			parts = append(parts, "0x"+hex.EncodeToString(b[:]))
		}
		return strings.Join(parts, ", ")
	case []byte:
		return "0x" + hex.EncodeToString(typed)
	default:
		return fmt.Sprintf("%v", typed)
	}
}
