package valuation

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/airswap/airswap-bot/internal/chain"
	"github.com/airswap/airswap-bot/internal/model"
)

const (
	usdt   = "0xdAC17F958D2ee523a2206206994597C13D831ec7"
	weth   = "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"
	tokA   = "0x1111111111111111111111111111111111111111"
	tokB   = "0x2222222222222222222222222222222222222222"
	usdc   = "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"
	chain1 = uint64(1)
)

type fakeOracle struct {
	quotes map[string]*big.Int
	calls  []string
	panic  bool
}

func (f *fakeOracle) Quote(_ context.Context, _ chain.Caller, _ uint64, tokenIn, _ common.Address, _ *big.Int) (*big.Int, error) {
	if f.panic {
		panic("boom")
	}
	key := strings.ToLower(tokenIn.Hex())
	f.calls = append(f.calls, key)
	out, ok := f.quotes[key]
	if !ok {
		return nil, errors.New("pool not found")
	}
	return out, nil
}

func testNetwork() model.ChainNetwork {
	return model.ChainNetwork{
		ChainID:       chain1,
		WrappedNative: weth,
		Reference:     model.TokenInfo{ChainID: chain1, Address: usdt, Symbol: "USDT", Decimals: 6},
	}
}

func token(address, symbol string, decimals uint8) model.TokenInfo {
	return model.TokenInfo{ChainID: chain1, Address: address, Symbol: symbol, Decimals: decimals}
}

func amount(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic("bad amount " + s)
	}
	return v
}

func TestValueStableLegSkipsOracle(t *testing.T) {
	oracle := &fakeOracle{}
	engine := NewEngine(oracle, []model.ChainNetwork{testNetwork()}, nil, zap.NewNop())

	cases := []struct {
		name   string
		signer Leg
		sender Leg
		want   float64
	}{
		{
			name:   "signer stable",
			signer: Leg{Token: token(usdc, "USDC", 6), Amount: amount("1500000000")},
			sender: Leg{Token: token(tokA, "AAA", 18), Amount: amount("1")},
			want:   1500,
		},
		{
			name:   "sender stable",
			signer: Leg{Token: token(tokA, "AAA", 18), Amount: amount("1")},
			sender: Leg{Token: token(usdt, "USDT", 6), Amount: amount("2500000")},
			want:   2.5,
		},
		{
			name:   "stable symbol case-insensitive",
			signer: Leg{Token: token(tokA, "USDt", 6), Amount: amount("1000000")},
			sender: Leg{Token: token(tokB, "BBB", 18), Amount: amount("1")},
			want:   1,
		},
	}

	for _, tc := range cases {
		got, err := engine.Value(context.Background(), nil, chain1, tc.signer, tc.sender)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.name, err)
		}
		if got != tc.want {
			t.Fatalf("%s: got %v want %v", tc.name, got, tc.want)
		}
	}
	if len(oracle.calls) != 0 {
		t.Fatalf("expected no oracle calls, got %v", oracle.calls)
	}
}

func TestValueWrappedNativeQuotedOnce(t *testing.T) {
	oracle := &fakeOracle{quotes: map[string]*big.Int{strings.ToLower(weth): amount("3000000000")}}
	engine := NewEngine(oracle, []model.ChainNetwork{testNetwork()}, nil, zap.NewNop())

	got, err := engine.Value(context.Background(), nil, chain1,
		Leg{Token: token(tokA, "AAA", 18), Amount: amount("5")},
		Leg{Token: token(weth, "WETH", 18), Amount: amount("1000000000000000000")},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 3000 {
		t.Fatalf("got %v want 3000", got)
	}
	if len(oracle.calls) != 1 || oracle.calls[0] != strings.ToLower(weth) {
		t.Fatalf("expected a single wrapped native quote, got %v", oracle.calls)
	}
}

func TestValueSignerFailsSenderSucceeds(t *testing.T) {
	oracle := &fakeOracle{quotes: map[string]*big.Int{tokB: amount("42000000")}}
	engine := NewEngine(oracle, []model.ChainNetwork{testNetwork()}, nil, zap.NewNop())

	got, err := engine.Value(context.Background(), nil, chain1,
		Leg{Token: token(tokA, "AAA", 18), Amount: amount("10")},
		Leg{Token: token(tokB, "BBB", 18), Amount: amount("20")},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 42 {
		t.Fatalf("got %v want 42", got)
	}
	if len(oracle.calls) != 2 || oracle.calls[0] != tokA || oracle.calls[1] != tokB {
		t.Fatalf("expected signer then sender quote, got %v", oracle.calls)
	}
}

func TestValueBothFailReturnsZero(t *testing.T) {
	oracle := &fakeOracle{}
	engine := NewEngine(oracle, []model.ChainNetwork{testNetwork()}, nil, zap.NewNop())

	got, err := engine.Value(context.Background(), nil, chain1,
		Leg{Token: token(tokA, "AAA", 18), Amount: amount("10")},
		Leg{Token: token(tokB, "BBB", 18), Amount: amount("20")},
	)
	if got != 0 {
		t.Fatalf("expected exactly 0, got %v", got)
	}
	if !errors.Is(err, model.ErrValuation) {
		t.Fatalf("expected ErrValuation, got %v", err)
	}
}

func TestValueRecoversFromOraclePanic(t *testing.T) {
	engine := NewEngine(&fakeOracle{panic: true}, []model.ChainNetwork{testNetwork()}, nil, zap.NewNop())

	got, err := engine.Value(context.Background(), nil, chain1,
		Leg{Token: token(tokA, "AAA", 18), Amount: amount("10")},
		Leg{Token: token(tokB, "BBB", 18), Amount: amount("20")},
	)
	if got != 0 || !errors.Is(err, model.ErrValuation) {
		t.Fatalf("expected 0 and ErrValuation, got %v %v", got, err)
	}
}

func TestValueUnknownChain(t *testing.T) {
	engine := NewEngine(&fakeOracle{}, nil, nil, zap.NewNop())
	got, err := engine.Value(context.Background(), nil, 999,
		Leg{Token: token(tokA, "AAA", 18), Amount: amount("10")},
		Leg{Token: token(tokB, "BBB", 18), Amount: amount("20")},
	)
	if got != 0 || !errors.Is(err, model.ErrValuation) {
		t.Fatalf("expected 0 and ErrValuation, got %v %v", got, err)
	}
}

func TestToUnits(t *testing.T) {
	if got := ToUnits(amount("1234500"), 6).String(); got != "1.2345" {
		t.Fatalf("unexpected units %s", got)
	}
	if got := ToUnits(nil, 18).String(); got != "0" {
		t.Fatalf("unexpected units for nil %s", got)
	}
}
