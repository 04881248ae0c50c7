package channel

import (
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/airswap/airswap-bot/internal/model"
)

// Networks resolves explorer links for a chain id.
type Networks map[uint64]model.ChainNetwork

// NewNetworks indexes networks by chain id.
func NewNetworks(networks []model.ChainNetwork) Networks {
	out := make(Networks, len(networks))
	for _, n := range networks {
		out[n.ChainID] = n
	}
	return out
}

// Name returns the display name of a chain, or its id.
func (n Networks) Name(chainID uint64) string {
	if network, ok := n[chainID]; ok && network.Name != "" {
		return network.Name
	}
	return strconv.FormatUint(chainID, 10)
}

func (n Networks) receiptURL(chainID uint64, txHash string) string {
	return n[chainID].ReceiptURL(txHash)
}

func (n Networks) accountURL(chainID uint64, address string) string {
	return n[chainID].AccountURL(address)
}

// Commify inserts thousands separators into the integer part of a decimal string.
func Commify(s string) string {
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	whole, frac, hasFrac := strings.Cut(s, ".")
	if len(whole) > 3 {
		var b strings.Builder
		head := len(whole) % 3
		if head > 0 {
			b.WriteString(whole[:head])
		}
		for i := head; i < len(whole); i += 3 {
			if b.Len() > 0 {
				b.WriteByte(',')
			}
			b.WriteString(whole[i : i+3])
		}
		whole = b.String()
	}
	if hasFrac {
		return sign + whole + "." + frac
	}
	return sign + whole
}

// FormatUSD renders a dollar value with two decimals and separators.
func FormatUSD(v float64) string {
	return "$" + Commify(decimal.NewFromFloat(v).StringFixed(2))
}

// MinifyAddress shortens an address to 0x1234…abcd.
func MinifyAddress(address string) string {
	if len(address) <= 10 {
		return address
	}
	return address[:6] + "…" + address[len(address)-4:]
}

// CompactNumber renders v with a K/M/B/T suffix.
func CompactNumber(v float64) string {
	units := []struct {
		limit  float64
		suffix string
	}{
		{1e12, "T"},
		{1e9, "B"},
		{1e6, "M"},
		{1e3, "K"},
	}
	abs := math.Abs(v)
	for _, u := range units {
		if abs >= u.limit {
			return strconv.FormatFloat(math.Round(v/u.limit*10)/10, 'f', -1, 64) + u.suffix
		}
	}
	return strconv.FormatFloat(math.Round(v*100)/100, 'f', -1, 64)
}
