package chain

import (
	"fmt"
	"sort"

	"github.com/airswap/airswap-bot/internal/model"
)

const (
	infuraHTTPTemplate = "https://{label}.infura.io/v3/{key}"
	infuraWSTemplate   = "wss://{label}.infura.io/ws/v3/{key}"
)

var knownNetworks = map[uint64]model.ChainNetwork{
	1: {
		ChainID:       1,
		Name:          "Ethereum",
		Label:         "mainnet",
		ExplorerURL:   "https://etherscan.io",
		WrappedNative: "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2",
		Reference:     usdt(1, "0xdAC17F958D2ee523a2206206994597C13D831ec7", "USDT", 6),
	},
	56: {
		ChainID:       56,
		Name:          "BSC",
		Label:         "bsc-mainnet",
		ExplorerURL:   "https://bscscan.com",
		WrappedNative: "0xbb4CdB9CBd36B01bD1cBaEBF2De08d9173bc095c",
		Reference:     usdt(56, "0x55d398326f99059fF775485246999027B3197955", "USDT", 18),
	},
	137: {
		ChainID:       137,
		Name:          "Polygon",
		Label:         "polygon-mainnet",
		ExplorerURL:   "https://polygonscan.com",
		WrappedNative: "0x0d500B1d8E8eF31E21C99d1Db9A6444d3ADf1270",
		Reference:     usdt(137, "0xc2132D05D31c914a87C6611C10748AEb04B58e8F", "USDT", 6),
	},
	8453: {
		ChainID:       8453,
		Name:          "Base",
		Label:         "base-mainnet",
		ExplorerURL:   "https://basescan.org",
		WrappedNative: "0x4200000000000000000000000000000000000006",
		Reference:     usdt(8453, "0xfde4C96c8593536E31F229EA8f37b2ADa2699bb2", "USDT", 6),
	},
	42161: {
		ChainID:       42161,
		Name:          "Arbitrum",
		Label:         "arbitrum-mainnet",
		ExplorerURL:   "https://arbiscan.io",
		WrappedNative: "0x82aF49447D8a07e3bd95BD0d56f35241523fBab1",
		Reference:     usdt(42161, "0xFd086bC7CD5C481DCC9C85ebE478A1C0b69FCbb9", "USDT", 6),
	},
	43114: {
		ChainID:       43114,
		Name:          "Avalanche",
		Label:         "avalanche-mainnet",
		ExplorerURL:   "https://snowtrace.io",
		WrappedNative: "0xB31f66AA3C1e785363F0875A1B74E27b85FD66c7",
		Reference:     usdt(43114, "0x9702230A8Ea53601f5cD2dc00fDBc13d4dF4A8c7", "USDt", 6),
	},
	59144: {
		ChainID:       59144,
		Name:          "Linea",
		Label:         "linea-mainnet",
		ExplorerURL:   "https://lineascan.build",
		WrappedNative: "0xe5D7C2a44FfDDf6b295A15c148167daaAf5Cf34f",
		Reference:     usdt(59144, "0xA219439258ca9da29E9Cc4cE5596924745e12B93", "USDT", 6),
	},
}

func usdt(chainID uint64, address, symbol string, decimals uint8) model.TokenInfo {
	return model.TokenInfo{ChainID: chainID, Address: address, Symbol: symbol, Name: "Tether USD", Decimals: decimals}
}

// LookupNetwork returns the static description of a chain, without a transport kind.
func LookupNetwork(chainID uint64) (model.ChainNetwork, bool) {
	n, ok := knownNetworks[chainID]
	if !ok {
		return model.ChainNetwork{}, false
	}
	n.HTTPTemplate = infuraHTTPTemplate
	n.WSTemplate = infuraWSTemplate
	return n, true
}

// KnownChainIDs lists every chain in the network table.
func KnownChainIDs() []uint64 {
	ids := make([]uint64, 0, len(knownNetworks))
	for id := range knownNetworks {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// BuildNetworks resolves the active chains. A chain may appear in only one transport list.
func BuildNetworks(push, poll []uint64) ([]model.ChainNetwork, error) {
	seen := make(map[uint64]model.TransportKind, len(push)+len(poll))
	out := make([]model.ChainNetwork, 0, len(push)+len(poll))

	add := func(ids []uint64, kind model.TransportKind) error {
		for _, id := range ids {
			if prev, ok := seen[id]; ok {
				return fmt.Errorf("chain %d listed as both %s and %s", id, prev, kind)
			}
			n, ok := LookupNetwork(id)
			if !ok {
				return fmt.Errorf("unsupported chain %d", id)
			}
			n.Transport = kind
			seen[id] = kind
			out = append(out, n)
		}
		return nil
	}

	if err := add(push, model.TransportPush); err != nil {
		return nil, err
	}
	if err := add(poll, model.TransportPoll); err != nil {
		return nil, err
	}
	return out, nil
}
