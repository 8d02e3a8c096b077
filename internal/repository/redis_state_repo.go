package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Tonic56/cryptofolio/internal/models"
	"github.com/redis/go-redis/v9"
)

type redisStateRepository struct {
	client *redis.Client
	key    string
}

// NewRedisStateRepository keeps the persisted state as one JSON document at key.
func NewRedisStateRepository(client *redis.Client, key string) StateRepository {
	return &redisStateRepository{
		client: client,
		key:    key,
	}
}

func (r *redisStateRepository) Load(ctx context.Context) (models.PersistedState, bool, error) {
	const op = "repository.redisState.Load"

	raw, err := r.client.Get(ctx, r.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return models.PersistedState{}, false, nil
		}
		return models.PersistedState{}, false, fmt.Errorf("%s: %w", op, err)
	}

	var state models.PersistedState
	if err := json.Unmarshal(raw, &state); err != nil {
		return models.PersistedState{}, false, fmt.Errorf("%s: %w", op, err)
	}
	if state.Assets == nil {
		state.Assets = []models.Asset{}
	}

	return state, true, nil
}

func (r *redisStateRepository) Save(ctx context.Context, state models.PersistedState) error {
	const op = "repository.redisState.Save"

	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := r.client.Set(ctx, r.key, raw, 0).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
