// Package redis keeps small pieces of worker state in Redis.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jwalitptl/cliniccare-api/internal/repository"
)

const sweepLastRunKey = "cliniccare:card_sweep:last_run"

type sweepStateStore struct {
	client *redis.Client
	key    string
}

func NewSweepStateStore(client *redis.Client) repository.SweepStateStore {
	return &sweepStateStore{client: client, key: sweepLastRunKey}
}

func (s *sweepStateStore) LastRun(ctx context.Context) (time.Time, bool, error) {
	raw, err := s.client.Get(ctx, s.key).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to read sweep marker: %w", err)
	}

	at, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to parse sweep marker %q: %w", raw, err)
	}
	return at, true, nil
}

func (s *sweepStateStore) SetLastRun(ctx context.Context, at time.Time) error {
	if err := s.client.Set(ctx, s.key, at.UTC().Format(time.RFC3339Nano), 0).Err(); err != nil {
		return fmt.Errorf("failed to write sweep marker: %w", err)
	}
	return nil
}
