package http

import (
	"fmt"
	"strings"

	"github.com/Tonic56/cryptofolio/internal/models"
	"github.com/Tonic56/cryptofolio/lib/errs"
	"github.com/shopspring/decimal"
)

// Amounts are accepted both as JSON numbers and as numeric strings.
type addAssetRequest struct {
	CoinID   string           `json:"coinId" binding:"required"`
	Symbol   string           `json:"symbol" binding:"required"`
	Name     string           `json:"name" binding:"required"`
	Quantity *decimal.Decimal `json:"quantity" binding:"required"`
	BuyPrice *decimal.Decimal `json:"buyPrice" binding:"required"`
}

func (r addAssetRequest) draft() (models.AssetDraft, error) {
	if err := positive("quantity", r.Quantity); err != nil {
		return models.AssetDraft{}, err
	}
	if err := positive("buyPrice", r.BuyPrice); err != nil {
		return models.AssetDraft{}, err
	}

	return models.AssetDraft{
		CoinID:   strings.TrimSpace(r.CoinID),
		Symbol:   strings.ToUpper(strings.TrimSpace(r.Symbol)),
		Name:     strings.TrimSpace(r.Name),
		Quantity: *r.Quantity,
		BuyPrice: *r.BuyPrice,
	}, nil
}

type updateAssetRequest struct {
	Quantity *decimal.Decimal `json:"quantity"`
	BuyPrice *decimal.Decimal `json:"buyPrice"`
}

func (r updateAssetRequest) update() (models.AssetUpdate, error) {
	if r.Quantity == nil && r.BuyPrice == nil {
		return models.AssetUpdate{}, fmt.Errorf("%w: quantity or buyPrice is required", errs.ErrInvalidAsset)
	}
	if r.Quantity != nil {
		if err := positive("quantity", r.Quantity); err != nil {
			return models.AssetUpdate{}, err
		}
	}
	if r.BuyPrice != nil {
		if err := positive("buyPrice", r.BuyPrice); err != nil {
			return models.AssetUpdate{}, err
		}
	}

	return models.AssetUpdate{Quantity: r.Quantity, BuyPrice: r.BuyPrice}, nil
}

type settingsRequest struct {
	AutoRefresh     *bool `json:"autoRefresh"`
	RefreshInterval *int  `json:"refreshInterval"`
}

type settingsResponse struct {
	AutoRefresh      bool                     `json:"autoRefresh"`
	RefreshInterval  models.RefreshInterval   `json:"refreshInterval"`
	RefreshIntervals []models.RefreshInterval `json:"refreshIntervals"`
	NextRefreshIn    int                      `json:"nextRefreshIn"`
}

func positive(field string, value *decimal.Decimal) error {
	if value == nil || !value.IsPositive() {
		return fmt.Errorf("%w: %s must be a positive number", errs.ErrInvalidAsset, field)
	}
	return nil
}
