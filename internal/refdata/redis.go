package refdata

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "hcert:valueset:"

// Redis serves lookups from one hash per value set, keyed
// hcert:valueset:<set>, field = source code, value = schema code.
type Redis struct {
	client redis.UniversalClient
}

func NewRedis(client redis.UniversalClient) *Redis {
	return &Redis{client: client}
}

func (r *Redis) Lookup(ctx context.Context, set ValueSet, code string) (string, error) {
	mapped, err := r.client.HGet(ctx, redisKeyPrefix+string(set), code).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", fmt.Errorf("%s %q: %w", set, code, ErrUnmapped)
		}
		return "", fmt.Errorf("lookup %s: %w", set, err)
	}
	return mapped, nil
}

// Publish writes tables into Redis, overwriting existing entries.
func (r *Redis) Publish(ctx context.Context, tables Tables) error {
	pipe := r.client.TxPipeline()
	for set, entries := range tables {
		if len(entries) == 0 {
			continue
		}
		values := make(map[string]any, len(entries))
		for code, mapped := range entries {
			values[code] = mapped
		}
		pipe.HSet(ctx, redisKeyPrefix+string(set), values)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("publish value sets: %w", err)
	}
	return nil
}
