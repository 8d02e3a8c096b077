package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"

	"github.com/Tonic56/cryptofolio/internal/coingecko"
	"github.com/Tonic56/cryptofolio/internal/config"
	"github.com/Tonic56/cryptofolio/internal/events"
	httphandler "github.com/Tonic56/cryptofolio/internal/handler/http"
	"github.com/Tonic56/cryptofolio/internal/metrics"
	"github.com/Tonic56/cryptofolio/internal/models"
	"github.com/Tonic56/cryptofolio/internal/repository"
	"github.com/Tonic56/cryptofolio/internal/scheduler"
	"github.com/Tonic56/cryptofolio/internal/service"
	"github.com/Tonic56/cryptofolio/internal/websocket"
	"github.com/Tonic56/cryptofolio/storage/database"
	"github.com/Tonic56/cryptofolio/storage/redis"
	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
)

const (
	driverRedis = "redis"
	eventBuffer = 64
)

type App struct {
	cfg        *config.Config
	log        *slog.Logger
	httpServer *http.Server
	database   *database.Storage
	redis      *redis.Storage
	scheduler  *scheduler.Scheduler
	wsManager  *websocket.Manager
	dispatcher *events.Dispatcher

	wg       sync.WaitGroup
	stopOnce sync.Once
	ctx      context.Context
	cancel   context.CancelFunc
}

func New(log *slog.Logger, cfg *config.Config) *App {
	ctx, cancel := context.WithCancel(context.Background())

	a := &App{
		cfg:    cfg,
		log:    log,
		ctx:    ctx,
		cancel: cancel,
	}

	if cfg.Storage.Driver == driverRedis || cfg.Events.Driver == events.DriverRedis {
		redisStorage, err := redis.New(ctx, cfg.Redis)
		if err != nil {
			panic(fmt.Errorf("failed to init redis: %w", err))
		}
		a.redis = redisStorage
	}

	var stateRepo repository.StateRepository
	if cfg.Storage.Driver == driverRedis {
		stateRepo = repository.NewRedisStateRepository(a.redis.Client, cfg.Storage.StateKey)
	} else {
		storage, err := database.New(cfg.Storage, cfg.Database, log)
		if err != nil {
			panic(fmt.Errorf("failed to init storage: %w", err))
		}
		a.database = storage
		stateRepo = repository.NewStateRepository(storage.DB, cfg.Storage.StateKey)
	}

	priceFeed := coingecko.New(cfg.CoinGecko, log)

	defaults := models.PersistedState{
		AutoRefresh:     cfg.Refresh.AutoRefresh,
		RefreshInterval: models.RefreshInterval(cfg.Refresh.Interval),
	}
	portfolio, err := service.NewPortfolioService(ctx, priceFeed, stateRepo, defaults, log)
	if err != nil {
		panic(fmt.Errorf("failed to load portfolio: %w", err))
	}

	a.scheduler = scheduler.New(portfolio, log)

	view := func() models.PortfolioView {
		return metrics.BuildView(portfolio.State(), a.scheduler.Countdown())
	}
	a.wsManager = websocket.NewManager(log, view, a.scheduler)
	portfolio.Subscribe(func(state models.State) {
		a.wsManager.Broadcast(metrics.BuildView(state, a.scheduler.Countdown()))
	})

	publisher, err := events.NewPublisher(cfg.Events, cfg.Redis, a.redisClient())
	if err != nil {
		panic(fmt.Errorf("failed to init event publisher: %w", err))
	}
	a.dispatcher = events.NewDispatcher(publisher, eventBuffer, log)
	portfolio.OnRefreshed(a.dispatcher.Enqueue)

	ginEngine := gin.New()
	ginEngine.Use(gin.Recovery())
	httpHandler := httphandler.NewHandler(portfolio, priceFeed, a.scheduler, a.wsManager, log, cfg.Security.JWTSecret)
	httpHandler.RegisterRoutes(ginEngine)

	a.httpServer = &http.Server{
		Addr:    net.JoinHostPort("", strconv.FormatUint(uint64(cfg.HTTP.Port), 10)),
		Handler: ginEngine,
	}

	return a
}

func (a *App) Run() error {
	errChan := make(chan error, 1)
	a.log.Info("starting application components...")

	a.wg.Add(2)
	go func() {
		defer a.wg.Done()
		a.log.Info("websocket manager started")
		a.wsManager.Run(a.ctx)
		a.log.Info("websocket manager stopped")
	}()

	go func() {
		defer a.wg.Done()
		a.log.Info("refresh scheduler started")
		a.scheduler.Run(a.ctx)
	}()

	a.dispatcher.Start(a.ctx, &a.wg)

	go func() {
		if err := a.runHTTP(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	err := <-errChan
	a.log.Warn("shutting down application due to an error", "error", err)

	a.Stop()
	return err
}

func (a *App) Stop() {
	a.stopOnce.Do(a.stop)
}

func (a *App) stop() {
	a.log.Info("stopping application components gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), a.cfg.HTTP.Timeout)
	defer shutdownCancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.log.Warn("failed to gracefully shutdown HTTP server", "error", err)
	} else {
		a.log.Info("HTTP server stopped")
	}

	a.cancel()
	a.wg.Wait()

	if a.database != nil {
		if err := a.database.Stop(); err != nil {
			a.log.Error("failed to stop storage", "error", err)
		} else {
			a.log.Info("database connection closed")
		}
	}

	if a.redis != nil {
		if err := a.redis.Stop(); err != nil {
			a.log.Error("failed to close redis", "error", err)
		} else {
			a.log.Info("redis connection closed")
		}
	}
}

func (a *App) redisClient() *goredis.Client {
	if a.redis == nil {
		return nil
	}
	return a.redis.Client
}

func (a *App) runHTTP() error {
	const op = "app.runHTTP"

	a.log.Info("HTTP server is running", "addr", a.httpServer.Addr)

	if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
