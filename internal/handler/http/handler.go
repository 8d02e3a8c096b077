package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Tonic56/cryptofolio/internal/coingecko"
	"github.com/Tonic56/cryptofolio/internal/handler/middleware"
	"github.com/Tonic56/cryptofolio/internal/metrics"
	"github.com/Tonic56/cryptofolio/internal/models"
	"github.com/Tonic56/cryptofolio/internal/service"
	"github.com/Tonic56/cryptofolio/internal/websocket"
	"github.com/Tonic56/cryptofolio/lib/errs"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	gorilla_ws "github.com/gorilla/websocket"
)

type CoinSource interface {
	SearchCoins(ctx context.Context, query string) ([]models.CoinSearchResult, error)
	CoinDetails(ctx context.Context, coinID string) (*models.CoinDetails, error)
}

type Refresher interface {
	Manual() bool
	Foreground(visible bool) bool
	Countdown() int
}

type Handler struct {
	portfolio service.PortfolioService
	coins     CoinSource
	refresher Refresher
	wsManager *websocket.Manager
	log       *slog.Logger
	jwtSecret string
	upgrader  gorilla_ws.Upgrader
}

func NewHandler(portfolio service.PortfolioService, coins CoinSource, refresher Refresher, wsManager *websocket.Manager, log *slog.Logger, jwtSecret string) *Handler {
	return &Handler{
		portfolio: portfolio,
		coins:     coins,
		refresher: refresher,
		wsManager: wsManager,
		log:       log,
		jwtSecret: jwtSecret,
		upgrader: gorilla_ws.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(middleware.RequestLogger(h.log))
	router.GET("/health", h.health)

	api := router.Group("/api/v1")
	if h.jwtSecret != "" {
		api.Use(middleware.AuthMiddleware(h.jwtSecret, h.log))
	}
	{
		api.GET("/portfolio", h.getPortfolio)

		assets := api.Group("/assets")
		{
			assets.GET("", h.listAssets)
			assets.POST("", h.addAsset)
			assets.PATCH("/:id", h.updateAsset)
			assets.DELETE("/:id", h.removeAsset)
		}

		prices := api.Group("/prices")
		{
			prices.GET("", h.getPrices)
			prices.POST("/refresh", h.refreshPrices)
		}

		api.POST("/visibility", h.setVisibility)
		api.GET("/settings", h.getSettings)
		api.PUT("/settings", h.updateSettings)
		api.DELETE("/error", h.clearError)

		coins := api.Group("/coins")
		{
			coins.GET("/search", h.searchCoins)
			coins.GET("/popular", h.popularCoins)
			coins.GET("/:id/details", h.coinDetails)
		}

		api.GET("/ws", h.wsConnect)
	}
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) getPortfolio(c *gin.Context) {
	c.JSON(http.StatusOK, metrics.BuildView(h.portfolio.State(), h.refresher.Countdown()))
}

func (h *Handler) listAssets(c *gin.Context) {
	c.JSON(http.StatusOK, h.portfolio.State().Assets)
}

func (h *Handler) addAsset(c *gin.Context) {
	var req addAssetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	draft, err := req.draft()
	if err != nil {
		h.writeError(c, err)
		return
	}

	asset, err := h.portfolio.AddAsset(c.Request.Context(), draft)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, asset)
}

func (h *Handler) updateAsset(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid asset id"})
		return
	}

	var req updateAssetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	update, err := req.update()
	if err != nil {
		h.writeError(c, err)
		return
	}

	asset, err := h.portfolio.UpdateAsset(c.Request.Context(), id, update)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, asset)
}

func (h *Handler) removeAsset(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid asset id"})
		return
	}

	if err := h.portfolio.RemoveAsset(c.Request.Context(), id); err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "asset successfully removed"})
}

func (h *Handler) getPrices(c *gin.Context) {
	state := h.portfolio.State()

	c.JSON(http.StatusOK, gin.H{
		"prices":      state.Prices,
		"isLoading":   state.IsLoading,
		"error":       state.Error,
		"lastUpdated": state.LastUpdated,
	})
}

func (h *Handler) refreshPrices(c *gin.Context) {
	if !h.refresher.Manual() {
		c.JSON(http.StatusConflict, gin.H{"error": "refresh already in progress"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"status": "refresh_started"})
}

type visibilityRequest struct {
	Visible *bool `json:"visible" binding:"required"`
}

func (h *Handler) setVisibility(c *gin.Context) {
	var req visibilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body, 'visible' is required"})
		return
	}

	refreshed := h.refresher.Foreground(*req.Visible)

	c.JSON(http.StatusOK, gin.H{"refreshed": refreshed})
}

func (h *Handler) getSettings(c *gin.Context) {
	c.JSON(http.StatusOK, h.settings())
}

func (h *Handler) updateSettings(c *gin.Context) {
	var req settingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	if req.RefreshInterval != nil && !models.RefreshInterval(*req.RefreshInterval).Valid() {
		h.writeError(c, errs.ErrInvalidInterval)
		return
	}

	ctx := c.Request.Context()
	if req.RefreshInterval != nil {
		if err := h.portfolio.SetRefreshInterval(ctx, models.RefreshInterval(*req.RefreshInterval)); err != nil {
			h.writeError(c, err)
			return
		}
	}
	if req.AutoRefresh != nil {
		if err := h.portfolio.SetAutoRefresh(ctx, *req.AutoRefresh); err != nil {
			h.writeError(c, err)
			return
		}
	}

	c.JSON(http.StatusOK, h.settings())
}

func (h *Handler) settings() settingsResponse {
	state := h.portfolio.State()
	return settingsResponse{
		AutoRefresh:      state.AutoRefresh,
		RefreshInterval:  state.RefreshInterval,
		RefreshIntervals: models.RefreshIntervals,
		NextRefreshIn:    h.refresher.Countdown(),
	}
}

func (h *Handler) clearError(c *gin.Context) {
	h.portfolio.ClearError()
	c.Status(http.StatusNoContent)
}

func (h *Handler) searchCoins(c *gin.Context) {
	results, err := h.coins.SearchCoins(c.Request.Context(), strings.TrimSpace(c.Query("q")))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, results)
}

func (h *Handler) popularCoins(c *gin.Context) {
	c.JSON(http.StatusOK, coingecko.PopularCoins)
}

func (h *Handler) coinDetails(c *gin.Context) {
	details, err := h.coins.CoinDetails(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, details)
}

func (h *Handler) wsConnect(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error("failed to upgrade connection", "error", err)
		return
	}

	client := websocket.NewClient(h.wsManager, conn)
	if !h.wsManager.Register(client) {
		conn.Close()
		return
	}

	go client.Writer()
	go client.Reader()
}

func (h *Handler) writeError(c *gin.Context, err error) {
	message := err.Error()
	var feedErr *coingecko.Error
	if errors.As(err, &feedErr) {
		message = feedErr.Message
	}

	switch {
	case errors.Is(err, errs.ErrInvalidAsset), errors.Is(err, errs.ErrInvalidInterval):
		c.JSON(http.StatusBadRequest, gin.H{"error": message})
	case errors.Is(err, errs.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "asset not found"})
	case errors.Is(err, errs.ErrRateLimited):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": message})
	case errors.Is(err, errs.ErrFetchFailed):
		c.JSON(http.StatusBadGateway, gin.H{"error": message})
	default:
		h.log.Error("request failed", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
