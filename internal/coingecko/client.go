package coingecko

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/Tonic56/cryptofolio/internal/config"
	"github.com/Tonic56/cryptofolio/internal/models"
	"github.com/shopspring/decimal"
)

const (
	maxSearchResults = 10
	minQueryLength   = 2
	apiKeyHeader     = "x-cg-demo-api-key"
)

type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	cache      *priceCache
	log        *slog.Logger
}

func New(cfg config.CoinGeckoConfig, log *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		cache:      newPriceCache(cfg.CacheTTL),
		log:        log,
	}
}

// FetchPrices returns the USD price and 24h percent change for each known coin id.
// Identical id sets, in any order, are served from cache inside the TTL.
func (c *Client) FetchPrices(ctx context.Context, coinIDs []string) (map[string]models.Quote, error) {
	ids := normalizeIDs(coinIDs)
	if len(ids) == 0 {
		return map[string]models.Quote{}, nil
	}

	cacheKey := strings.Join(ids, ",")
	if quotes, ok := c.cache.get(cacheKey); ok {
		c.log.Debug("price cache hit", "ids", cacheKey)
		return quotes, nil
	}

	values := url.Values{}
	values.Set("ids", cacheKey)
	values.Set("vs_currencies", "usd")
	values.Set("include_24hr_change", "true")

	quotes := make(map[string]models.Quote)
	if err := c.getJSON(ctx, "/simple/price?"+values.Encode(), priceMessages, &quotes); err != nil {
		return nil, err
	}

	c.cache.set(cacheKey, quotes)
	c.log.Debug("prices fetched", "ids", cacheKey, "count", len(quotes))

	return quotes, nil
}

// SearchCoins looks coins up by name or symbol. Results are never cached.
func (c *Client) SearchCoins(ctx context.Context, query string) ([]models.CoinSearchResult, error) {
	if utf8.RuneCountInString(query) < minQueryLength {
		return []models.CoinSearchResult{}, nil
	}

	var payload struct {
		Coins []models.CoinSearchResult `json:"coins"`
	}
	if err := c.getJSON(ctx, "/search?query="+url.QueryEscape(query), searchMessages, &payload); err != nil {
		return nil, err
	}

	coins := payload.Coins
	if coins == nil {
		coins = []models.CoinSearchResult{}
	}
	if len(coins) > maxSearchResults {
		coins = coins[:maxSearchResults]
	}
	return coins, nil
}

// CoinDetails fetches a coin with its 7 day sparkline. It is not part of the refresh path.
func (c *Client) CoinDetails(ctx context.Context, coinID string) (*models.CoinDetails, error) {
	values := url.Values{}
	values.Set("localization", "false")
	values.Set("tickers", "false")
	values.Set("community_data", "false")
	values.Set("developer_data", "false")
	values.Set("sparkline", "true")

	var payload struct {
		ID         string `json:"id"`
		Symbol     string `json:"symbol"`
		Name       string `json:"name"`
		MarketData struct {
			Sparkline7d struct {
				Price []decimal.Decimal `json:"price"`
			} `json:"sparkline_7d"`
		} `json:"market_data"`
	}
	endpoint := "/coins/" + url.PathEscape(coinID) + "?" + values.Encode()
	if err := c.getJSON(ctx, endpoint, detailsMessages, &payload); err != nil {
		return nil, err
	}

	sparkline := payload.MarketData.Sparkline7d.Price
	if sparkline == nil {
		sparkline = []decimal.Decimal{}
	}

	return &models.CoinDetails{
		ID:          payload.ID,
		Symbol:      strings.ToUpper(payload.Symbol),
		Name:        payload.Name,
		Sparkline7d: sparkline,
	}, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, msgs messages, out any) error {
	const op = "coingecko.getJSON"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return transportError(msgs, fmt.Errorf("%s: %w", op, err))
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set(apiKeyHeader, c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Warn("coingecko request failed", "endpoint", endpoint, "error", err)
		return transportError(msgs, fmt.Errorf("%s: %w", op, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.log.Warn("coingecko returned non-2xx status", "endpoint", endpoint, "status", resp.StatusCode)
		return statusError(msgs, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return transportError(msgs, fmt.Errorf("%s: decode response: %w", op, err))
	}

	return nil
}

// normalizeIDs drops blanks and duplicates and sorts the rest.
func normalizeIDs(coinIDs []string) []string {
	ids := make([]string, 0, len(coinIDs))
	for _, id := range coinIDs {
		id = strings.TrimSpace(id)
		if id != "" {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return slices.Compact(ids)
}
