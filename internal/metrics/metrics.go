// Package metrics derives profit/loss figures from holdings and their latest prices.
// Every function here is pure: nothing is cached or persisted.
package metrics

import (
	"sort"

	"github.com/Tonic56/cryptofolio/internal/models"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// CalculateAssetMetrics joins an asset with its price. A nil price is treated as a
// current price of zero, so the whole cost basis shows up as an unrealized loss.
func CalculateAssetMetrics(asset models.Asset, price *models.PriceData) models.AssetWithPrice {
	currentPrice := decimal.Zero
	changePercent := decimal.Zero
	if price != nil {
		currentPrice = price.Current
		changePercent = price.ChangePercent24h
	}

	currentValue := asset.Quantity.Mul(currentPrice)
	costBasis := asset.Quantity.Mul(asset.BuyPrice)
	profitLoss := currentValue.Sub(costBasis)

	// The holding's 24h change is its share of the current value, not a price from 24h ago.
	change24h := currentValue.Mul(changePercent).Div(hundred)

	return models.AssetWithPrice{
		Asset:             asset,
		CurrentPrice:      currentPrice,
		CurrentValue:      currentValue,
		CostBasis:         costBasis,
		ProfitLoss:        profitLoss,
		ProfitLossPercent: percentOf(profitLoss, costBasis),
		Change24h:         change24h,
		ChangePercent24h:  changePercent,
	}
}

// CalculatePortfolioSummary aggregates per-asset metrics. Best and worst performers are
// picked by ProfitLossPercent; with a single asset both point at it.
func CalculatePortfolioSummary(assets []models.AssetWithPrice) models.PortfolioSummary {
	summary := models.PortfolioSummary{
		TotalValue:             decimal.Zero,
		TotalCostBasis:         decimal.Zero,
		TotalProfitLoss:        decimal.Zero,
		TotalProfitLossPercent: decimal.Zero,
		Total24hChange:         decimal.Zero,
		Total24hChangePercent:  decimal.Zero,
	}
	if len(assets) == 0 {
		return summary
	}

	for _, a := range assets {
		summary.TotalValue = summary.TotalValue.Add(a.CurrentValue)
		summary.TotalCostBasis = summary.TotalCostBasis.Add(a.CostBasis)
		summary.Total24hChange = summary.Total24hChange.Add(a.Change24h)
	}

	summary.TotalProfitLoss = summary.TotalValue.Sub(summary.TotalCostBasis)
	summary.TotalProfitLossPercent = percentOf(summary.TotalProfitLoss, summary.TotalCostBasis)

	if summary.TotalValue.IsPositive() {
		valueBefore := summary.TotalValue.Sub(summary.Total24hChange)
		summary.Total24hChangePercent = percentOf(summary.Total24hChange, valueBefore)
	}

	sorted := make([]models.AssetWithPrice, len(assets))
	copy(sorted, assets)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].ProfitLossPercent.GreaterThan(sorted[j].ProfitLossPercent)
	})

	summary.BestPerformer = &sorted[0]
	summary.WorstPerformer = &sorted[len(sorted)-1]

	return summary
}

// percentOf returns part/whole*100, or zero when whole is zero.
func percentOf(part, whole decimal.Decimal) decimal.Decimal {
	if whole.IsZero() {
		return decimal.Zero
	}
	return part.Div(whole).Mul(hundred)
}
