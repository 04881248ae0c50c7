package model

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestOrderedParamsFollowsDeclaration(t *testing.T) {
	staker := common.HexToAddress("0x1111111111111111111111111111111111111111")
	ev := DomainEvent{
		Params: map[string]any{
			"value": big.NewInt(42),
			"from":  staker,
			"to":    common.Address{},
		},
		ParamOrder: []string{"from", "to", "value", "missing"},
	}

	got := ev.OrderedParams()
	if len(got) != 3 {
		t.Fatalf("expected 3 params, got %d", len(got))
	}
	if got[0][0] != "from" || got[0][1] != staker.Hex() {
		t.Fatalf("first param mismatch: %v", got[0])
	}
	if got[2][0] != "value" || got[2][1] != "42" {
		t.Fatalf("value param mismatch: %v", got[2])
	}
}

func TestFormatParamAddressList(t *testing.T) {
	a := common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	b := common.HexToAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
	got := FormatParam([]common.Address{a, b})
	if got != a.Hex()+", "+b.Hex() {
		t.Fatalf("unexpected list format: %s", got)
	}
	if FormatParam([4]byte{0x01, 0xff, 0, 0}) != "0x01ff0000" {
		t.Fatalf("unexpected bytes4 format")
	}
}

func TestNetworkURLs(t *testing.T) {
	n := ChainNetwork{
		Label:        "Mainnet",
		HTTPTemplate: "https://{label}.infura.io/v3/{key}",
		WSTemplate:   "wss://{label}.infura.io/ws/v3/{key}",
		ExplorerURL:  "https://etherscan.io/",
	}
	if got := n.WSURL("abc"); got != "wss://mainnet.infura.io/ws/v3/abc" {
		t.Fatalf("ws url mismatch: %s", got)
	}
	if got := n.HTTPURL("abc"); got != "https://mainnet.infura.io/v3/abc" {
		t.Fatalf("http url mismatch: %s", got)
	}
	if got := n.ReceiptURL("0x01"); got != "https://etherscan.io/tx/0x01" {
		t.Fatalf("receipt url mismatch: %s", got)
	}
}

func TestConnectionLostErrorIs(t *testing.T) {
	cause := errors.New("pong timeout")
	err := error(&ConnectionLostError{ChainID: 1, Cause: cause})
	if !errors.Is(err, ErrConnectionLost) {
		t.Fatalf("expected ErrConnectionLost")
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected cause to unwrap")
	}
}
