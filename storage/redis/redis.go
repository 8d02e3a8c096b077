package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/Tonic56/cryptofolio/internal/config"
	"github.com/redis/go-redis/v9"
)

type Storage struct {
	Client *redis.Client
}

func New(ctx context.Context, cfg config.RedisConfig) (*Storage, error) {
	const op = "storage/redis"

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Storage{Client: client}, nil
}

func (s *Storage) Stop() error {
	return s.Client.Close()
}
