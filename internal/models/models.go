package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Asset struct {
	ID        uuid.UUID       `json:"id"`
	CoinID    string          `json:"coinId"`
	Symbol    string          `json:"symbol"`
	Name      string          `json:"name"`
	Quantity  decimal.Decimal `json:"quantity"`
	BuyPrice  decimal.Decimal `json:"buyPrice"`
	DateAdded time.Time       `json:"dateAdded"`
}

// AssetDraft is an asset before the store assigns its identity.
type AssetDraft struct {
	CoinID   string
	Symbol   string
	Name     string
	Quantity decimal.Decimal
	BuyPrice decimal.Decimal
}

// AssetUpdate carries the editable fields of an asset. Nil fields are left untouched.
type AssetUpdate struct {
	Quantity *decimal.Decimal
	BuyPrice *decimal.Decimal
}

type PriceData struct {
	Current          decimal.Decimal   `json:"current"`
	Change24h        decimal.Decimal   `json:"change24h"`
	ChangePercent24h decimal.Decimal   `json:"changePercent24h"`
	Sparkline7d      []decimal.Decimal `json:"sparkline7d,omitempty"`
	LastUpdated      time.Time         `json:"lastUpdated"`
}

// Quote is a single coin entry of the price feed response.
type Quote struct {
	USD          decimal.Decimal `json:"usd"`
	USD24hChange decimal.Decimal `json:"usd_24h_change"`
}

type AssetWithPrice struct {
	Asset
	CurrentPrice      decimal.Decimal `json:"currentPrice"`
	CurrentValue      decimal.Decimal `json:"currentValue"`
	CostBasis         decimal.Decimal `json:"costBasis"`
	ProfitLoss        decimal.Decimal `json:"profitLoss"`
	ProfitLossPercent decimal.Decimal `json:"profitLossPercent"`
	Change24h         decimal.Decimal `json:"change24h"`
	ChangePercent24h  decimal.Decimal `json:"changePercent24h"`
}

type PortfolioSummary struct {
	TotalValue             decimal.Decimal `json:"totalValue"`
	TotalCostBasis         decimal.Decimal `json:"totalCostBasis"`
	TotalProfitLoss        decimal.Decimal `json:"totalProfitLoss"`
	TotalProfitLossPercent decimal.Decimal `json:"totalProfitLossPercent"`
	Total24hChange         decimal.Decimal `json:"total24hChange"`
	Total24hChangePercent  decimal.Decimal `json:"total24hChangePercent"`
	BestPerformer          *AssetWithPrice `json:"bestPerformer"`
	WorstPerformer         *AssetWithPrice `json:"worstPerformer"`
}

type AllocationSlice struct {
	CoinID     string          `json:"coinId"`
	Name       string          `json:"name"`
	Symbol     string          `json:"symbol"`
	Value      decimal.Decimal `json:"value"`
	Percentage decimal.Decimal `json:"percentage"`
}

type CoinSearchResult struct {
	ID     string `json:"id"`
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
	Thumb  string `json:"thumb,omitempty"`
}

type CoinDetails struct {
	ID          string            `json:"id"`
	Symbol      string            `json:"symbol"`
	Name        string            `json:"name"`
	Sparkline7d []decimal.Decimal `json:"sparkline7d"`
}

// RefreshInterval is the auto-refresh period in seconds.
type RefreshInterval int

const (
	Refresh30s  RefreshInterval = 30
	Refresh60s  RefreshInterval = 60
	Refresh120s RefreshInterval = 120
	Refresh300s RefreshInterval = 300
)

var RefreshIntervals = []RefreshInterval{Refresh30s, Refresh60s, Refresh120s, Refresh300s}

func (r RefreshInterval) Valid() bool {
	switch r {
	case Refresh30s, Refresh60s, Refresh120s, Refresh300s:
		return true
	}
	return false
}

func (r RefreshInterval) Duration() time.Duration {
	return time.Duration(r) * time.Second
}

// PersistedState is the subset of State that survives a restart.
type PersistedState struct {
	Assets          []Asset         `json:"assets"`
	AutoRefresh     bool            `json:"autoRefresh"`
	RefreshInterval RefreshInterval `json:"refreshInterval"`
}

type State struct {
	Assets          []Asset              `json:"assets"`
	Prices          map[string]PriceData `json:"prices"`
	IsLoading       bool                 `json:"isLoading"`
	Error           string               `json:"error,omitempty"`
	LastUpdated     *time.Time           `json:"lastUpdated"`
	AutoRefresh     bool                 `json:"autoRefresh"`
	RefreshInterval RefreshInterval      `json:"refreshInterval"`
}
