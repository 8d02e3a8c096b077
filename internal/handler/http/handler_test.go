package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/Tonic56/cryptofolio/internal/coingecko"
	"github.com/Tonic56/cryptofolio/internal/models"
	"github.com/Tonic56/cryptofolio/internal/service"
	"github.com/Tonic56/cryptofolio/internal/websocket"
	"github.com/Tonic56/cryptofolio/lib/errs"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type stubFeed struct {
	mu     sync.Mutex
	calls  int
	quotes map[string]models.Quote
}

func (f *stubFeed) FetchPrices(_ context.Context, _ []string) (map[string]models.Quote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.quotes, nil
}

type memoryRepo struct {
	mu    sync.Mutex
	saved *models.PersistedState
}

func (r *memoryRepo) Load(_ context.Context) (models.PersistedState, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saved == nil {
		return models.PersistedState{}, false, nil
	}
	return *r.saved, true, nil
}

func (r *memoryRepo) Save(_ context.Context, state models.PersistedState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saved = &state
	return nil
}

type stubCoins struct {
	results []models.CoinSearchResult
	err     error
}

func (s *stubCoins) SearchCoins(_ context.Context, _ string) ([]models.CoinSearchResult, error) {
	return s.results, s.err
}

func (s *stubCoins) CoinDetails(_ context.Context, coinID string) (*models.CoinDetails, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &models.CoinDetails{ID: coinID, Symbol: "BTC", Name: "Bitcoin"}, nil
}

type stubRefresher struct {
	manualOK bool
	manual   int
	visible  []bool
}

func (r *stubRefresher) Manual() bool {
	r.manual++
	return r.manualOK
}

func (r *stubRefresher) Foreground(visible bool) bool {
	r.visible = append(r.visible, visible)
	return visible
}

func (r *stubRefresher) Countdown() int { return 17 }

type testEnv struct {
	router    *gin.Engine
	portfolio service.PortfolioService
	feed      *stubFeed
	coins     *stubCoins
	refresher *stubRefresher
}

func setupTest(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	feed := &stubFeed{quotes: map[string]models.Quote{
		"bitcoin": {USD: decimal.RequireFromString("150"), USD24hChange: decimal.RequireFromString("10")},
	}}
	defaults := models.PersistedState{AutoRefresh: true, RefreshInterval: models.Refresh60s}

	portfolio, err := service.NewPortfolioService(context.Background(), feed, &memoryRepo{}, defaults, log)
	if err != nil {
		t.Fatalf("failed to create portfolio service: %v", err)
	}

	coins := &stubCoins{}
	refresher := &stubRefresher{manualOK: true}
	manager := websocket.NewManager(log, func() models.PortfolioView { return models.PortfolioView{} }, refresher)

	router := gin.New()
	NewHandler(portfolio, coins, refresher, manager, log, "").RegisterRoutes(router)

	return &testEnv{
		router:    router,
		portfolio: portfolio,
		feed:      feed,
		coins:     coins,
		refresher: refresher,
	}
}

func (e *testEnv) do(method, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()

	var out T
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("failed to decode response %q: %v", w.Body.String(), err)
	}
	return out
}

const validAsset = `{"coinId":"bitcoin","symbol":"btc","name":"Bitcoin","quantity":"2","buyPrice":100}`

func TestAddAsset(t *testing.T) {
	t.Run("created", func(t *testing.T) {
		env := setupTest(t)

		w := env.do(http.MethodPost, "/api/v1/assets", validAsset)
		if w.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
		}

		asset := decode[models.Asset](t, w)
		if asset.Symbol != "BTC" {
			t.Errorf("expected upper-cased symbol, got %q", asset.Symbol)
		}
		if !asset.Quantity.Equal(decimal.NewFromInt(2)) || !asset.BuyPrice.Equal(decimal.NewFromInt(100)) {
			t.Errorf("unexpected amounts %s@%s", asset.Quantity, asset.BuyPrice)
		}
		if env.feed.calls != 1 {
			t.Errorf("expected one price refresh, got %d", env.feed.calls)
		}
	})

	rejected := []struct {
		name string
		body string
	}{
		{"zero_quantity", `{"coinId":"bitcoin","symbol":"BTC","name":"Bitcoin","quantity":0,"buyPrice":100}`},
		{"negative_buy_price", `{"coinId":"bitcoin","symbol":"BTC","name":"Bitcoin","quantity":1,"buyPrice":"-5"}`},
		{"non_numeric_quantity", `{"coinId":"bitcoin","symbol":"BTC","name":"Bitcoin","quantity":"abc","buyPrice":100}`},
		{"missing_buy_price", `{"coinId":"bitcoin","symbol":"BTC","name":"Bitcoin","quantity":1}`},
		{"missing_coin_id", `{"symbol":"BTC","name":"Bitcoin","quantity":1,"buyPrice":100}`},
		{"malformed_json", `{"coinId":`},
	}
	for _, tt := range rejected {
		t.Run(tt.name, func(t *testing.T) {
			env := setupTest(t)

			w := env.do(http.MethodPost, "/api/v1/assets", tt.body)
			if w.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d: %s", w.Code, w.Body.String())
			}
			if n := len(env.portfolio.State().Assets); n != 0 {
				t.Errorf("expected no assets after rejection, got %d", n)
			}
			if env.feed.calls != 0 {
				t.Errorf("expected no refresh after rejection")
			}
		})
	}
}

func TestUpdateAndRemoveAsset(t *testing.T) {
	env := setupTest(t)
	created := decode[models.Asset](t, env.do(http.MethodPost, "/api/v1/assets", validAsset))
	path := "/api/v1/assets/" + created.ID.String()

	t.Run("update", func(t *testing.T) {
		w := env.do(http.MethodPatch, path, `{"quantity":"3.5"}`)
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
		}
		asset := decode[models.Asset](t, w)
		if !asset.Quantity.Equal(decimal.RequireFromString("3.5")) {
			t.Errorf("expected quantity 3.5, got %s", asset.Quantity)
		}
	})

	t.Run("update_rejects_zero", func(t *testing.T) {
		w := env.do(http.MethodPatch, path, `{"buyPrice":0}`)
		if w.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", w.Code)
		}
	})

	t.Run("update_requires_a_field", func(t *testing.T) {
		w := env.do(http.MethodPatch, path, `{}`)
		if w.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", w.Code)
		}
	})

	t.Run("update_unknown", func(t *testing.T) {
		w := env.do(http.MethodPatch, "/api/v1/assets/"+uuid.NewString(), `{"quantity":1}`)
		if w.Code != http.StatusNotFound {
			t.Errorf("expected 404, got %d", w.Code)
		}
	})

	t.Run("invalid_id", func(t *testing.T) {
		w := env.do(http.MethodDelete, "/api/v1/assets/not-a-uuid", "")
		if w.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", w.Code)
		}
	})

	t.Run("remove_only_asset", func(t *testing.T) {
		w := env.do(http.MethodDelete, path, "")
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
		}

		view := decode[models.PortfolioView](t, env.do(http.MethodGet, "/api/v1/portfolio", ""))
		if len(view.Assets) != 0 {
			t.Errorf("expected empty portfolio, got %d assets", len(view.Assets))
		}
		if !view.Summary.TotalValue.IsZero() || view.Summary.BestPerformer != nil || view.Summary.WorstPerformer != nil {
			t.Errorf("expected empty summary, got %+v", view.Summary)
		}
	})

	t.Run("remove_again", func(t *testing.T) {
		w := env.do(http.MethodDelete, path, "")
		if w.Code != http.StatusNotFound {
			t.Errorf("expected 404, got %d", w.Code)
		}
	})
}

func TestGetPortfolio(t *testing.T) {
	env := setupTest(t)
	env.do(http.MethodPost, "/api/v1/assets", validAsset)

	w := env.do(http.MethodGet, "/api/v1/portfolio", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	view := decode[models.PortfolioView](t, w)
	if len(view.Assets) != 1 {
		t.Fatalf("expected 1 asset, got %d", len(view.Assets))
	}
	asset := view.Assets[0]
	checks := map[string]struct {
		got  decimal.Decimal
		want string
	}{
		"costBasis":         {asset.CostBasis, "200"},
		"currentValue":      {asset.CurrentValue, "300"},
		"profitLoss":        {asset.ProfitLoss, "100"},
		"profitLossPercent": {asset.ProfitLossPercent, "50"},
		"change24h":         {asset.Change24h, "30"},
	}
	for field, c := range checks {
		if !c.got.Equal(decimal.RequireFromString(c.want)) {
			t.Errorf("%s: expected %s, got %s", field, c.want, c.got)
		}
	}
	if view.NextRefreshIn != 17 {
		t.Errorf("expected countdown 17, got %d", view.NextRefreshIn)
	}
}

func TestRefreshAndVisibility(t *testing.T) {
	t.Run("refresh_started", func(t *testing.T) {
		env := setupTest(t)
		w := env.do(http.MethodPost, "/api/v1/prices/refresh", "")
		if w.Code != http.StatusAccepted {
			t.Errorf("expected 202, got %d", w.Code)
		}
	})

	t.Run("refresh_dropped", func(t *testing.T) {
		env := setupTest(t)
		env.refresher.manualOK = false
		w := env.do(http.MethodPost, "/api/v1/prices/refresh", "")
		if w.Code != http.StatusConflict {
			t.Errorf("expected 409, got %d", w.Code)
		}
	})

	t.Run("visibility", func(t *testing.T) {
		env := setupTest(t)
		w := env.do(http.MethodPost, "/api/v1/visibility", `{"visible":true}`)
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		if len(env.refresher.visible) != 1 || !env.refresher.visible[0] {
			t.Errorf("expected visible=true to be forwarded, got %v", env.refresher.visible)
		}

		w = env.do(http.MethodPost, "/api/v1/visibility", `{}`)
		if w.Code != http.StatusBadRequest {
			t.Errorf("expected 400 without 'visible', got %d", w.Code)
		}
	})
}

func TestSettings(t *testing.T) {
	env := setupTest(t)

	w := env.do(http.MethodPut, "/api/v1/settings", `{"autoRefresh":false,"refreshInterval":120}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	got := decode[settingsResponse](t, w)
	if got.AutoRefresh || got.RefreshInterval != models.Refresh120s {
		t.Errorf("unexpected settings %+v", got)
	}
	if len(got.RefreshIntervals) != 4 {
		t.Errorf("expected 4 allowed intervals, got %v", got.RefreshIntervals)
	}

	w = env.do(http.MethodPut, "/api/v1/settings", `{"autoRefresh":true,"refreshInterval":45}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for interval 45, got %d", w.Code)
	}
	state := env.portfolio.State()
	if state.AutoRefresh || state.RefreshInterval != models.Refresh120s {
		t.Errorf("expected rejected update to change nothing, got %v/%d", state.AutoRefresh, state.RefreshInterval)
	}
}

func TestClearError(t *testing.T) {
	env := setupTest(t)

	w := env.do(http.MethodDelete, "/api/v1/error", "")
	if w.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", w.Code)
	}
}

func TestCoins(t *testing.T) {
	t.Run("search", func(t *testing.T) {
		env := setupTest(t)
		env.coins.results = []models.CoinSearchResult{{ID: "bitcoin", Symbol: "BTC", Name: "Bitcoin"}}

		w := env.do(http.MethodGet, "/api/v1/coins/search?q=bit", "")
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		results := decode[[]models.CoinSearchResult](t, w)
		if len(results) != 1 || results[0].ID != "bitcoin" {
			t.Errorf("unexpected results %+v", results)
		}
	})

	t.Run("search_rate_limited", func(t *testing.T) {
		env := setupTest(t)
		env.coins.err = &coingecko.Error{Kind: errs.ErrRateLimited, StatusCode: http.StatusTooManyRequests, Message: "API rate limit exceeded. Please wait a moment."}

		w := env.do(http.MethodGet, "/api/v1/coins/search?q=bit", "")
		if w.Code != http.StatusTooManyRequests {
			t.Fatalf("expected 429, got %d", w.Code)
		}
		body := decode[map[string]string](t, w)
		if body["error"] != "API rate limit exceeded. Please wait a moment." {
			t.Errorf("unexpected error body %v", body)
		}
	})

	t.Run("details_failed", func(t *testing.T) {
		env := setupTest(t)
		env.coins.err = &coingecko.Error{Kind: errs.ErrFetchFailed, StatusCode: http.StatusNotFound, Message: "Failed to fetch coin details: Not Found"}

		w := env.do(http.MethodGet, "/api/v1/coins/unknown/details", "")
		if w.Code != http.StatusBadGateway {
			t.Errorf("expected 502, got %d", w.Code)
		}
	})

	t.Run("popular", func(t *testing.T) {
		env := setupTest(t)
		results := decode[[]models.CoinSearchResult](t, env.do(http.MethodGet, "/api/v1/coins/popular", ""))
		if len(results) != len(coingecko.PopularCoins) {
			t.Errorf("expected %d popular coins, got %d", len(coingecko.PopularCoins), len(results))
		}
	})
}

func TestHealth(t *testing.T) {
	env := setupTest(t)
	if w := env.do(http.MethodGet, "/health", ""); w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}
