package events

import (
	"context"
	"fmt"

	"github.com/Tonic56/cryptofolio/internal/config"
	"github.com/Tonic56/cryptofolio/internal/models"
	"github.com/redis/go-redis/v9"
)

const (
	DriverNone  = "none"
	DriverKafka = "kafka"
	DriverRedis = "redis"
)

type Publisher interface {
	Publish(ctx context.Context, event models.PriceRefreshed) error
	Close() error
}

// NewPublisher builds the publisher selected by cfg.Driver. client is only used by
// the redis driver and may be nil otherwise.
func NewPublisher(cfg config.EventsConfig, redisCfg config.RedisConfig, client *redis.Client) (Publisher, error) {
	const op = "events.NewPublisher"

	switch cfg.Driver {
	case DriverNone, "":
		return nopPublisher{}, nil
	case DriverKafka:
		return NewKafkaPublisher(cfg), nil
	case DriverRedis:
		if client == nil {
			return nil, fmt.Errorf("%s: redis driver needs a redis client", op)
		}
		return NewRedisPublisher(client, redisCfg.PriceChannel), nil
	default:
		return nil, fmt.Errorf("%s: unsupported driver %q", op, cfg.Driver)
	}
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, models.PriceRefreshed) error { return nil }

func (nopPublisher) Close() error { return nil }
