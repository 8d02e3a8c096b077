package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Tonic56/cryptofolio/internal/models"
	"github.com/redis/go-redis/v9"
)

type RedisPublisher struct {
	client  *redis.Client
	channel string
}

func NewRedisPublisher(client *redis.Client, channel string) *RedisPublisher {
	return &RedisPublisher{
		client:  client,
		channel: channel,
	}
}

func (p *RedisPublisher) Publish(ctx context.Context, event models.PriceRefreshed) error {
	const op = "events.redis.Publish"

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Close is a no-op; the client belongs to the redis storage.
func (p *RedisPublisher) Close() error {
	return nil
}
