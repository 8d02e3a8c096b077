package config

import (
	"log/slog"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Config struct {
	Env       string `env:"ENV" env-default:"local"`
	HTTP      HTTPConfig
	CoinGecko CoinGeckoConfig
	Storage   StorageConfig
	Database  DBConfig
	Redis     RedisConfig
	Refresh   RefreshConfig
	Events    EventsConfig
	Security  SecConfig
}

type HTTPConfig struct {
	Port    uint16        `env:"HTTP_PORT" env-default:"8080"`
	Timeout time.Duration `env:"HTTP_TIMEOUT" env-default:"30s"`
}

type CoinGeckoConfig struct {
	BaseURL  string        `env:"COINGECKO_BASE_URL" env-default:"https://api.coingecko.com/api/v3"`
	APIKey   string        `env:"COINGECKO_API_KEY"`
	Timeout  time.Duration `env:"COINGECKO_TIMEOUT" env-default:"10s"`
	CacheTTL time.Duration `env:"PRICE_CACHE_TTL" env-default:"30s"`
}

type StorageConfig struct {
	Driver     string `env:"STORAGE_DRIVER" env-default:"sqlite"`
	SQLitePath string `env:"SQLITE_PATH" env-default:"cryptofolio.db"`
	StateKey   string `env:"STATE_KEY" env-default:"portfolio-storage"`
}

type DBConfig struct {
	Host     string `env:"POSTGRES_HOST" env-default:"localhost"`
	Port     uint16 `env:"POSTGRES_PORT" env-default:"5432"`
	User     string `env:"POSTGRES_USER" env-default:"postgres"`
	Password string `env:"POSTGRES_PASSWORD" env-default:"postgres"`
	DBName   string `env:"POSTGRES_DB" env-default:"cryptofolio"`
}

type RedisConfig struct {
	Addr         string `env:"REDIS_ADDR" env-default:"localhost:6379"`
	Password     string `env:"REDIS_PASSWORD"`
	DB           int    `env:"REDIS_DB" env-default:"0"`
	PriceChannel string `env:"REDIS_PRICE_CHANNEL" env-default:"cryptofolio.prices"`
}

// RefreshConfig holds the settings used when no persisted state exists yet.
type RefreshConfig struct {
	AutoRefresh bool `env:"AUTO_REFRESH" env-default:"true"`
	Interval    int  `env:"REFRESH_INTERVAL" env-default:"60"`
}

type EventsConfig struct {
	Driver       string        `env:"EVENTS_DRIVER" env-default:"none"`
	Brokers      []string      `env:"KAFKA_BROKERS" env-separator:"," env-default:"localhost:9092"`
	Topic        string        `env:"KAFKA_TOPIC" env-default:"cryptofolio.prices"`
	BatchTimeout time.Duration `env:"KAFKA_BATCH_TIMEOUT" env-default:"1s"`
	WriteTimeout time.Duration `env:"KAFKA_WRITE_TIMEOUT" env-default:"10s"`
	MaxAttempts  int           `env:"KAFKA_MAX_ATTEMPTS" env-default:"3"`
}

type SecConfig struct {
	JWTSecret string `env:"JWT_SECRET"`
}

func MustLoad() *Config {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, reading from environment variables")
	}

	var cfg Config

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		slog.Error("failed to read environment variables", "error", err)
		os.Exit(1)
	}

	return &cfg
}
