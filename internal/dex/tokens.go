package dex

import "github.com/airswap/airswap-bot/internal/model"

var knownTokens = []model.TokenInfo{
	{ChainID: 1, Address: "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48", Symbol: "USDC", Name: "USD Coin", Decimals: 6},
	{ChainID: 1, Address: "0xdAC17F958D2ee523a2206206994597C13D831ec7", Symbol: "USDT", Name: "Tether USD", Decimals: 6},
	{ChainID: 1, Address: "0x6B175474E89094C44Da98b954EedeAC495271d0F", Symbol: "DAI", Name: "Dai Stablecoin", Decimals: 18},
	{ChainID: 1, Address: "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2", Symbol: "WETH", Name: "Wrapped Ether", Decimals: 18},
	{ChainID: 1, Address: "0x2260FAC5E5542a773Aa44fBCfeDf7C193bc2C599", Symbol: "WBTC", Name: "Wrapped BTC", Decimals: 8},
	{ChainID: 1, Address: "0x27054b13b1B798B345b591a4d22e6562d47eA75a", Symbol: "AST", Name: "AirSwap Token", Decimals: 4},

	{ChainID: 56, Address: "0x55d398326f99059fF775485246999027B3197955", Symbol: "USDT", Name: "Tether USD", Decimals: 18},
	{ChainID: 56, Address: "0x8AC76a51cc950d9822D68b83fE1Ad97B32Cd580d", Symbol: "USDC", Name: "USD Coin", Decimals: 18},
	{ChainID: 56, Address: "0xe9e7CEA3DedcA5984780Bafc599bD69ADd087D56", Symbol: "BUSD", Name: "BUSD Token", Decimals: 18},
	{ChainID: 56, Address: "0xbb4CdB9CBd36B01bD1cBaEBF2De08d9173bc095c", Symbol: "WBNB", Name: "Wrapped BNB", Decimals: 18},

	{ChainID: 137, Address: "0xc2132D05D31c914a87C6611C10748AEb04B58e8F", Symbol: "USDT", Name: "Tether USD (PoS)", Decimals: 6},
	{ChainID: 137, Address: "0x2791Bca1f2de4661ED88A30C99A7a9449Aa84174", Symbol: "USDC", Name: "USD Coin (PoS)", Decimals: 6},
	{ChainID: 137, Address: "0x8f3Cf7ad23Cd3CaDbD9735AFf958023239c6A063", Symbol: "DAI", Name: "Dai Stablecoin (PoS)", Decimals: 18},
	{ChainID: 137, Address: "0x0d500B1d8E8eF31E21C99d1Db9A6444d3ADf1270", Symbol: "WMATIC", Name: "Wrapped Matic", Decimals: 18},
	{ChainID: 137, Address: "0x7ceB23fD6bC0adD59E62ac25578270cFf1b9f619", Symbol: "WETH", Name: "Wrapped Ether", Decimals: 18},

	{ChainID: 8453, Address: "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913", Symbol: "USDC", Name: "USD Coin", Decimals: 6},
	{ChainID: 8453, Address: "0xfde4C96c8593536E31F229EA8f37b2ADa2699bb2", Symbol: "USDT", Name: "Tether USD", Decimals: 6},
	{ChainID: 8453, Address: "0x4200000000000000000000000000000000000006", Symbol: "WETH", Name: "Wrapped Ether", Decimals: 18},

	{ChainID: 42161, Address: "0xaf88d065e77c8cC2239327C5EDb3A432268e5831", Symbol: "USDC", Name: "USD Coin", Decimals: 6},
	{ChainID: 42161, Address: "0xFd086bC7CD5C481DCC9C85ebE478A1C0b69FCbb9", Symbol: "USDT", Name: "Tether USD", Decimals: 6},
	{ChainID: 42161, Address: "0x82aF49447D8a07e3bd95BD0d56f35241523fBab1", Symbol: "WETH", Name: "Wrapped Ether", Decimals: 18},

	{ChainID: 43114, Address: "0x9702230A8Ea53601f5cD2dc00fDBc13d4dF4A8c7", Symbol: "USDt", Name: "TetherToken", Decimals: 6},
	{ChainID: 43114, Address: "0xB97EF9Ef8734C71904D8002F8b6Bc66Dd9c48a6E", Symbol: "USDC", Name: "USD Coin", Decimals: 6},
	{ChainID: 43114, Address: "0xB31f66AA3C1e785363F0875A1B74E27b85FD66c7", Symbol: "WAVAX", Name: "Wrapped AVAX", Decimals: 18},

	{ChainID: 59144, Address: "0x176211869cA2b568f2A7D4EE941E073a821EE1ff", Symbol: "USDC", Name: "USD Coin", Decimals: 6},
	{ChainID: 59144, Address: "0xA219439258ca9da29E9Cc4cE5596924745e12B93", Symbol: "USDT", Name: "Tether USD", Decimals: 6},
	{ChainID: 59144, Address: "0xe5D7C2a44FfDDf6b295A15c148167daaAf5Cf34f", Symbol: "WETH", Name: "Wrapped Ether", Decimals: 18},
}
