package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Tonic56/cryptofolio/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// StateRepository stores the persisted subset of the portfolio under a single name.
type StateRepository interface {
	// Load returns false when nothing has been saved yet.
	Load(ctx context.Context) (models.PersistedState, bool, error)
	Save(ctx context.Context, state models.PersistedState) error
}

type stateRepository struct {
	db   *gorm.DB
	name string
}

func NewStateRepository(db *gorm.DB, name string) StateRepository {
	return &stateRepository{
		db:   db,
		name: name,
	}
}

func (r *stateRepository) Load(ctx context.Context) (models.PersistedState, bool, error) {
	const op = "repository.state.Load"

	db := r.db.WithContext(ctx)

	var record models.StateRecord
	if err := db.Where("name = ?", r.name).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.PersistedState{}, false, nil
		}
		return models.PersistedState{}, false, fmt.Errorf("%s: %w", op, err)
	}

	var rows []models.AssetRecord
	if err := db.Where("state_name = ?", r.name).Order("position ASC").Find(&rows).Error; err != nil {
		return models.PersistedState{}, false, fmt.Errorf("%s: %w", op, err)
	}

	assets := make([]models.Asset, 0, len(rows))
	for _, row := range rows {
		assets = append(assets, models.Asset{
			ID:        row.ID,
			CoinID:    row.CoinID,
			Symbol:    row.Symbol,
			Name:      row.Name,
			Quantity:  row.Quantity,
			BuyPrice:  row.BuyPrice,
			DateAdded: row.DateAdded,
		})
	}

	return models.PersistedState{
		Assets:          assets,
		AutoRefresh:     record.AutoRefresh,
		RefreshInterval: models.RefreshInterval(record.RefreshInterval),
	}, true, nil
}

func (r *stateRepository) Save(ctx context.Context, state models.PersistedState) error {
	const op = "repository.state.Save"

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		record := models.StateRecord{
			Name:            r.name,
			AutoRefresh:     state.AutoRefresh,
			RefreshInterval: int(state.RefreshInterval),
		}
		if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&record).Error; err != nil {
			return err
		}

		if err := tx.Where("state_name = ?", r.name).Delete(&models.AssetRecord{}).Error; err != nil {
			return err
		}

		if len(state.Assets) == 0 {
			return nil
		}

		rows := make([]models.AssetRecord, 0, len(state.Assets))
		for i, asset := range state.Assets {
			rows = append(rows, models.AssetRecord{
				ID:        asset.ID,
				StateName: r.name,
				Position:  i,
				CoinID:    asset.CoinID,
				Symbol:    asset.Symbol,
				Name:      asset.Name,
				Quantity:  asset.Quantity,
				BuyPrice:  asset.BuyPrice,
				DateAdded: asset.DateAdded,
			})
		}
		return tx.Create(&rows).Error
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
