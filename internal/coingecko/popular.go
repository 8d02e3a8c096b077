package coingecko

import "github.com/Tonic56/cryptofolio/internal/models"

// PopularCoins is the quick-add list offered before the user searches.
var PopularCoins = []models.CoinSearchResult{
	{ID: "bitcoin", Symbol: "BTC", Name: "Bitcoin"},
	{ID: "ethereum", Symbol: "ETH", Name: "Ethereum"},
	{ID: "solana", Symbol: "SOL", Name: "Solana"},
	{ID: "cardano", Symbol: "ADA", Name: "Cardano"},
	{ID: "polkadot", Symbol: "DOT", Name: "Polkadot"},
	{ID: "chainlink", Symbol: "LINK", Name: "Chainlink"},
	{ID: "avalanche-2", Symbol: "AVAX", Name: "Avalanche"},
	{ID: "polygon", Symbol: "MATIC", Name: "Polygon"},
}
