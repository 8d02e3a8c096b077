package models

import "time"

// PriceRefreshed is emitted after a refresh cycle replaced the price map.
type PriceRefreshed struct {
	Prices    map[string]PriceData `json:"prices"`
	UpdatedAt time.Time            `json:"updatedAt"`
}

type PortfolioView struct {
	Assets          []AssetWithPrice  `json:"assets"`
	Summary         PortfolioSummary  `json:"summary"`
	Allocation      []AllocationSlice `json:"allocation"`
	IsLoading       bool              `json:"isLoading"`
	Error           string            `json:"error,omitempty"`
	LastUpdated     *time.Time        `json:"lastUpdated"`
	AutoRefresh     bool              `json:"autoRefresh"`
	RefreshInterval RefreshInterval   `json:"refreshInterval"`
	NextRefreshIn   int               `json:"nextRefreshIn"`
}
