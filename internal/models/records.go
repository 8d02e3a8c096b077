package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StateRecord is the stored row for a named persisted state.
type StateRecord struct {
	Name            string `gorm:"primaryKey"`
	AutoRefresh     bool   `gorm:"not null"`
	RefreshInterval int    `gorm:"not null"`
	UpdatedAt       time.Time
}

func (StateRecord) TableName() string { return "portfolio_states" }

// AssetRecord is an asset row. Decimals are stored as text so they round-trip exactly.
type AssetRecord struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey;"`
	StateName string          `gorm:"index;not null"`
	Position  int             `gorm:"not null"`
	CoinID    string          `gorm:"not null"`
	Symbol    string          `gorm:"not null"`
	Name      string          `gorm:"not null"`
	Quantity  decimal.Decimal `gorm:"type:text;not null"`
	BuyPrice  decimal.Decimal `gorm:"type:text;not null"`
	DateAdded time.Time       `gorm:"not null"`
}

func (AssetRecord) TableName() string { return "assets" }
