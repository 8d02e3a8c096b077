package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Tonic56/cryptofolio/internal/coingecko"
	"github.com/Tonic56/cryptofolio/internal/models"
	"github.com/Tonic56/cryptofolio/internal/repository"
	"github.com/Tonic56/cryptofolio/lib/errs"
	"github.com/google/uuid"
)

const fallbackFetchMessage = "Failed to fetch prices"

type PriceFeed interface {
	FetchPrices(ctx context.Context, coinIDs []string) (map[string]models.Quote, error)
}

type PortfolioService interface {
	State() models.State

	// AddAsset stores the draft as a new asset and then refreshes prices. A refresh
	// failure is recorded in the state and does not fail the call.
	AddAsset(ctx context.Context, draft models.AssetDraft) (models.Asset, error)
	UpdateAsset(ctx context.Context, id uuid.UUID, update models.AssetUpdate) (models.Asset, error)
	RemoveAsset(ctx context.Context, id uuid.UUID) error

	FetchAllPrices(ctx context.Context) error

	SetAutoRefresh(ctx context.Context, enabled bool) error
	SetRefreshInterval(ctx context.Context, interval models.RefreshInterval) error
	ClearError()

	// Subscribe registers fn to receive a copy of the state after every change.
	Subscribe(fn func(models.State))
	// OnRefreshed registers fn to be called after prices were replaced.
	OnRefreshed(fn func(models.PriceRefreshed))
}

type portfolioService struct {
	mu    sync.RWMutex
	state models.State

	feed PriceFeed
	repo repository.StateRepository
	log  *slog.Logger

	now   func() time.Time
	newID func() uuid.UUID

	listenersMu sync.RWMutex
	listeners   []func(models.State)
	refreshed   []func(models.PriceRefreshed)
}

// NewPortfolioService restores the saved state from repo, or starts from defaults
// when nothing was saved yet.
func NewPortfolioService(ctx context.Context, feed PriceFeed, repo repository.StateRepository, defaults models.PersistedState, log *slog.Logger) (PortfolioService, error) {
	const op = "service.NewPortfolioService"

	persisted, found, err := repo.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	state := DefaultState(defaults)
	if found {
		state = Hydrate(persisted, defaults)
		log.Info("portfolio restored", "assets", len(state.Assets), "auto_refresh", state.AutoRefresh, "interval", int(state.RefreshInterval))
	} else {
		log.Info("no saved portfolio, starting empty")
	}

	return newPortfolioService(state, feed, repo, log), nil
}

func newPortfolioService(state models.State, feed PriceFeed, repo repository.StateRepository, log *slog.Logger) *portfolioService {
	return &portfolioService{
		state: state,
		feed:  feed,
		repo:  repo,
		log:   log,
		now:   time.Now,
		newID: uuid.New,
	}
}

func (s *portfolioService) State() models.State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return cloneState(s.state)
}

func (s *portfolioService) AddAsset(ctx context.Context, draft models.AssetDraft) (models.Asset, error) {
	const op = "service.portfolio.AddAsset"

	asset := models.Asset{
		ID:        s.newID(),
		CoinID:    draft.CoinID,
		Symbol:    draft.Symbol,
		Name:      draft.Name,
		Quantity:  draft.Quantity,
		BuyPrice:  draft.BuyPrice,
		DateAdded: s.now(),
	}

	err := s.mutate(ctx, func(state *models.State) error {
		state.Assets = append(state.Assets, asset)
		return nil
	})
	if err != nil {
		return models.Asset{}, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("asset added", "id", asset.ID, "coin_id", asset.CoinID)

	// the outcome is kept in the state
	_ = s.FetchAllPrices(context.WithoutCancel(ctx))

	return asset, nil
}

func (s *portfolioService) UpdateAsset(ctx context.Context, id uuid.UUID, update models.AssetUpdate) (models.Asset, error) {
	const op = "service.portfolio.UpdateAsset"

	var updated models.Asset
	err := s.mutate(ctx, func(state *models.State) error {
		i := indexOf(state.Assets, id)
		if i < 0 {
			return errs.ErrNotFound
		}
		if update.Quantity != nil {
			state.Assets[i].Quantity = *update.Quantity
		}
		if update.BuyPrice != nil {
			state.Assets[i].BuyPrice = *update.BuyPrice
		}
		updated = state.Assets[i]
		return nil
	})
	if err != nil {
		return models.Asset{}, fmt.Errorf("%s: %w", op, err)
	}

	return updated, nil
}

func (s *portfolioService) RemoveAsset(ctx context.Context, id uuid.UUID) error {
	const op = "service.portfolio.RemoveAsset"

	err := s.mutate(ctx, func(state *models.State) error {
		i := indexOf(state.Assets, id)
		if i < 0 {
			return errs.ErrNotFound
		}
		state.Assets = append(state.Assets[:i:i], state.Assets[i+1:]...)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("asset removed", "id", id)

	return nil
}

func (s *portfolioService) FetchAllPrices(ctx context.Context) error {
	const op = "service.portfolio.FetchAllPrices"

	s.mu.Lock()
	if len(s.state.Assets) == 0 {
		s.state.IsLoading = false
		s.state.Error = ""
		snapshot := cloneState(s.state)
		s.mu.Unlock()
		s.notify(snapshot)
		return nil
	}

	coinIDs := distinctCoinIDs(s.state.Assets)
	s.state.IsLoading = true
	s.state.Error = ""
	snapshot := cloneState(s.state)
	s.mu.Unlock()
	s.notify(snapshot)

	s.log.Debug("refreshing prices", "coins", len(coinIDs))
	quotes, err := s.feed.FetchPrices(ctx, coinIDs)

	s.mu.Lock()
	if err != nil {
		s.state.IsLoading = false
		s.state.Error = userMessage(err)
		snapshot = cloneState(s.state)
		s.mu.Unlock()

		s.log.Warn("price refresh failed", "error", err)
		s.notify(snapshot)
		return fmt.Errorf("%s: %w", op, err)
	}

	now := s.now()
	prices := make(map[string]models.PriceData, len(coinIDs))
	for _, coinID := range coinIDs {
		quote, ok := quotes[coinID]
		if !ok {
			continue
		}
		prices[coinID] = models.PriceData{
			Current:          quote.USD,
			ChangePercent24h: quote.USD24hChange,
			LastUpdated:      now,
		}
	}
	s.state.Prices = prices
	s.state.IsLoading = false
	s.state.LastUpdated = &now
	snapshot = cloneState(s.state)
	s.mu.Unlock()

	s.log.Info("prices refreshed", "coins", len(prices))
	s.notify(snapshot)
	s.emitRefreshed(models.PriceRefreshed{Prices: snapshot.Prices, UpdatedAt: now})

	return nil
}

func (s *portfolioService) SetAutoRefresh(ctx context.Context, enabled bool) error {
	const op = "service.portfolio.SetAutoRefresh"

	err := s.mutate(ctx, func(state *models.State) error {
		state.AutoRefresh = enabled
		return nil
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *portfolioService) SetRefreshInterval(ctx context.Context, interval models.RefreshInterval) error {
	const op = "service.portfolio.SetRefreshInterval"

	if !interval.Valid() {
		return fmt.Errorf("%s: %w", op, errs.ErrInvalidInterval)
	}

	err := s.mutate(ctx, func(state *models.State) error {
		state.RefreshInterval = interval
		return nil
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *portfolioService) ClearError() {
	s.mu.Lock()
	s.state.Error = ""
	snapshot := cloneState(s.state)
	s.mu.Unlock()

	s.notify(snapshot)
}

func (s *portfolioService) Subscribe(fn func(models.State)) {
	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()

	s.listeners = append(s.listeners, fn)
}

func (s *portfolioService) OnRefreshed(fn func(models.PriceRefreshed)) {
	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()

	s.refreshed = append(s.refreshed, fn)
}

// mutate applies fn to a copy of the state, saves the persisted part of the result
// and only then makes it current.
func (s *portfolioService) mutate(ctx context.Context, fn func(state *models.State) error) error {
	s.mu.Lock()

	next := cloneState(s.state)
	if err := fn(&next); err != nil {
		s.mu.Unlock()
		return err
	}

	if err := s.repo.Save(ctx, Project(next)); err != nil {
		s.mu.Unlock()
		s.log.Error("failed to save portfolio", "error", err)
		return err
	}

	s.state = next
	snapshot := cloneState(s.state)
	s.mu.Unlock()

	s.notify(snapshot)
	return nil
}

func (s *portfolioService) notify(state models.State) {
	s.listenersMu.RLock()
	listeners := s.listeners
	s.listenersMu.RUnlock()

	for _, fn := range listeners {
		fn(state)
	}
}

func (s *portfolioService) emitRefreshed(event models.PriceRefreshed) {
	s.listenersMu.RLock()
	listeners := s.refreshed
	s.listenersMu.RUnlock()

	for _, fn := range listeners {
		fn(event)
	}
}

func indexOf(assets []models.Asset, id uuid.UUID) int {
	for i, asset := range assets {
		if asset.ID == id {
			return i
		}
	}
	return -1
}

func distinctCoinIDs(assets []models.Asset) []string {
	seen := make(map[string]struct{}, len(assets))
	ids := make([]string, 0, len(assets))
	for _, asset := range assets {
		if _, ok := seen[asset.CoinID]; ok {
			continue
		}
		seen[asset.CoinID] = struct{}{}
		ids = append(ids, asset.CoinID)
	}
	return ids
}

func userMessage(err error) string {
	var feedErr *coingecko.Error
	if errors.As(err, &feedErr) && feedErr.Message != "" {
		return feedErr.Message
	}
	return fallbackFetchMessage
}
