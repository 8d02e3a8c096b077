package repository_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/Tonic56/cryptofolio/internal/models"
	"github.com/Tonic56/cryptofolio/internal/repository"
	"github.com/Tonic56/cryptofolio/storage/database"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	storage, err := database.OpenSQLite(dsn)
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}
	t.Cleanup(func() { _ = storage.Stop() })

	return storage.DB
}

func sampleState() models.PersistedState {
	added := time.Date(2025, 3, 14, 9, 26, 53, 589793000, time.UTC)
	return models.PersistedState{
		Assets: []models.Asset{
			{
				ID:        uuid.New(),
				CoinID:    "ethereum",
				Symbol:    "ETH",
				Name:      "Ethereum",
				Quantity:  decimal.RequireFromString("1.123456789012345678"),
				BuyPrice:  decimal.RequireFromString("2500.75"),
				DateAdded: added,
			},
			{
				ID:        uuid.New(),
				CoinID:    "bitcoin",
				Symbol:    "BTC",
				Name:      "Bitcoin",
				Quantity:  decimal.RequireFromString("0.5"),
				BuyPrice:  decimal.RequireFromString("42000"),
				DateAdded: added.Add(time.Minute),
			},
		},
		AutoRefresh:     false,
		RefreshInterval: models.Refresh120s,
	}
}

func assertSameState(t *testing.T, want, got models.PersistedState) {
	t.Helper()

	if got.AutoRefresh != want.AutoRefresh {
		t.Errorf("autoRefresh: expected %v, got %v", want.AutoRefresh, got.AutoRefresh)
	}
	if got.RefreshInterval != want.RefreshInterval {
		t.Errorf("refreshInterval: expected %d, got %d", want.RefreshInterval, got.RefreshInterval)
	}
	if len(got.Assets) != len(want.Assets) {
		t.Fatalf("assets: expected %d, got %d", len(want.Assets), len(got.Assets))
	}
	for i := range want.Assets {
		w, g := want.Assets[i], got.Assets[i]
		if g.ID != w.ID || g.CoinID != w.CoinID || g.Symbol != w.Symbol || g.Name != w.Name {
			t.Errorf("asset %d identity: expected %+v, got %+v", i, w, g)
		}
		if !g.Quantity.Equal(w.Quantity) || !g.BuyPrice.Equal(w.BuyPrice) {
			t.Errorf("asset %d amounts: expected %s@%s, got %s@%s", i, w.Quantity, w.BuyPrice, g.Quantity, g.BuyPrice)
		}
		if !g.DateAdded.Equal(w.DateAdded) {
			t.Errorf("asset %d dateAdded: expected %s, got %s", i, w.DateAdded, g.DateAdded)
		}
	}
}

func TestStateRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("load_without_saved_state", func(t *testing.T) {
		repo := repository.NewStateRepository(setupTestDB(t), "portfolio-storage")

		_, found, err := repo.Load(ctx)
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if found {
			t.Errorf("expected no saved state")
		}
	})

	t.Run("round_trip", func(t *testing.T) {
		repo := repository.NewStateRepository(setupTestDB(t), "portfolio-storage")
		want := sampleState()

		if err := repo.Save(ctx, want); err != nil {
			t.Fatalf("Save failed: %v", err)
		}

		got, found, err := repo.Load(ctx)
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if !found {
			t.Fatalf("expected saved state to be found")
		}
		assertSameState(t, want, got)
	})

	t.Run("save_replaces_previous_record", func(t *testing.T) {
		repo := repository.NewStateRepository(setupTestDB(t), "portfolio-storage")
		first := sampleState()
		if err := repo.Save(ctx, first); err != nil {
			t.Fatalf("first Save failed: %v", err)
		}

		second := models.PersistedState{
			Assets:          first.Assets[1:],
			AutoRefresh:     true,
			RefreshInterval: models.Refresh30s,
		}
		if err := repo.Save(ctx, second); err != nil {
			t.Fatalf("second Save failed: %v", err)
		}

		got, _, err := repo.Load(ctx)
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		assertSameState(t, second, got)
	})

	t.Run("empty_portfolio", func(t *testing.T) {
		repo := repository.NewStateRepository(setupTestDB(t), "portfolio-storage")
		want := models.PersistedState{AutoRefresh: true, RefreshInterval: models.Refresh60s}

		if err := repo.Save(ctx, want); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
		got, found, err := repo.Load(ctx)
		if err != nil || !found {
			t.Fatalf("Load failed: found=%v err=%v", found, err)
		}
		if got.Assets == nil || len(got.Assets) != 0 {
			t.Errorf("expected empty non-nil assets, got %v", got.Assets)
		}
		assertSameState(t, want, got)
	})

	t.Run("names_are_isolated", func(t *testing.T) {
		db := setupTestDB(t)
		one := repository.NewStateRepository(db, "one")
		two := repository.NewStateRepository(db, "two")

		if err := one.Save(ctx, sampleState()); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
		if _, found, _ := two.Load(ctx); found {
			t.Errorf("expected state %q to be absent", "two")
		}
	})
}

func TestRedisStateRepository(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}

	ctx := context.Background()
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })

	key := "cryptofolio-test-" + uuid.NewString()
	t.Cleanup(func() { client.Del(context.Background(), key) })

	repo := repository.NewRedisStateRepository(client, key)

	if _, found, err := repo.Load(ctx); err != nil || found {
		t.Fatalf("expected empty key, found=%v err=%v", found, err)
	}

	want := sampleState()
	if err := repo.Save(ctx, want); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	got, found, err := repo.Load(ctx)
	if err != nil || !found {
		t.Fatalf("Load failed: found=%v err=%v", found, err)
	}
	assertSameState(t, want, got)
}
