package metrics

import "github.com/Tonic56/cryptofolio/internal/models"

// BuildView derives everything a client renders from the store state.
func BuildView(state models.State, nextRefreshIn int) models.PortfolioView {
	assets := BuildAssets(state.Assets, state.Prices)

	return models.PortfolioView{
		Assets:          assets,
		Summary:         CalculatePortfolioSummary(assets),
		Allocation:      CalculateAllocation(assets),
		IsLoading:       state.IsLoading,
		Error:           state.Error,
		LastUpdated:     state.LastUpdated,
		AutoRefresh:     state.AutoRefresh,
		RefreshInterval: state.RefreshInterval,
		NextRefreshIn:   nextRefreshIn,
	}
}
