package model

import "strings"

// TokenInfo captures ERC20 metadata for a token on one chain.
type TokenInfo struct {
	ChainID  uint64 `json:"chain_id"`
	Address  string `json:"address"`
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Decimals uint8  `json:"decimals"`
}

// UnknownToken is used for display when metadata cannot be resolved.
func UnknownToken(chainID uint64, address string) TokenInfo {
	return TokenInfo{ChainID: chainID, Address: address, Symbol: "?", Name: "?"}
}

// SameAddress reports whether the token lives at the given address (case-insensitive).
func (t TokenInfo) SameAddress(address string) bool {
	return t.Address != "" && strings.EqualFold(t.Address, address)
}
