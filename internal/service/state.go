package service

import (
	"maps"
	"slices"

	"github.com/Tonic56/cryptofolio/internal/models"
)

// Project extracts the part of the state that is written to storage.
func Project(state models.State) models.PersistedState {
	assets := slices.Clone(state.Assets)
	if assets == nil {
		assets = []models.Asset{}
	}
	return models.PersistedState{
		Assets:          assets,
		AutoRefresh:     state.AutoRefresh,
		RefreshInterval: state.RefreshInterval,
	}
}

// Hydrate applies a persisted record onto a fresh default state. Prices, loading,
// error and lastUpdated always start empty. An interval outside the allowed set
// falls back to the default one.
func Hydrate(persisted models.PersistedState, defaults models.PersistedState) models.State {
	state := DefaultState(defaults)

	state.Assets = slices.Clone(persisted.Assets)
	if state.Assets == nil {
		state.Assets = []models.Asset{}
	}
	state.AutoRefresh = persisted.AutoRefresh
	if persisted.RefreshInterval.Valid() {
		state.RefreshInterval = persisted.RefreshInterval
	}

	return state
}

func DefaultState(defaults models.PersistedState) models.State {
	interval := defaults.RefreshInterval
	if !interval.Valid() {
		interval = models.Refresh60s
	}
	return models.State{
		Assets:          []models.Asset{},
		Prices:          map[string]models.PriceData{},
		AutoRefresh:     defaults.AutoRefresh,
		RefreshInterval: interval,
	}
}

func cloneState(state models.State) models.State {
	out := state
	out.Assets = slices.Clone(state.Assets)
	out.Prices = maps.Clone(state.Prices)
	if state.LastUpdated != nil {
		t := *state.LastUpdated
		out.LastUpdated = &t
	}
	return out
}
