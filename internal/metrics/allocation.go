package metrics

import (
	"sort"

	"github.com/Tonic56/cryptofolio/internal/models"
	"github.com/shopspring/decimal"
)

// CalculateAllocation splits the portfolio value by asset, largest holding first.
func CalculateAllocation(assets []models.AssetWithPrice) []models.AllocationSlice {
	total := decimal.Zero
	for _, a := range assets {
		total = total.Add(a.CurrentValue)
	}

	slices := make([]models.AllocationSlice, 0, len(assets))
	for _, a := range assets {
		slices = append(slices, models.AllocationSlice{
			CoinID:     a.CoinID,
			Name:       a.Name,
			Symbol:     a.Symbol,
			Value:      a.CurrentValue,
			Percentage: percentOf(a.CurrentValue, total),
		})
	}

	sort.SliceStable(slices, func(i, j int) bool {
		return slices[i].Value.GreaterThan(slices[j].Value)
	})

	return slices
}

// BuildAssets computes metrics for every asset in order, looking prices up by coin id.
func BuildAssets(assets []models.Asset, prices map[string]models.PriceData) []models.AssetWithPrice {
	out := make([]models.AssetWithPrice, 0, len(assets))
	for _, asset := range assets {
		var price *models.PriceData
		if p, ok := prices[asset.CoinID]; ok {
			price = &p
		}
		out = append(out, CalculateAssetMetrics(asset, price))
	}
	return out
}
