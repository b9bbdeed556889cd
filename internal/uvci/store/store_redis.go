package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"hcert/internal/uvci"
	"hcert/pkg/platform/sentinel"
)

const redisKeyPrefix = "hcert:uvci:"

// RedisStore persists ledger rows as JSON values keyed by UVCI. SETNX gives
// the insert-if-absent guarantee; keys carry no TTL.
type RedisStore struct {
	client redis.UniversalClient
}

// NewRedis constructs a Redis-backed ledger store.
func NewRedis(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) InsertIfAbsent(ctx context.Context, record *uvci.Record) error {
	if record == nil {
		return fmt.Errorf("ledger record is required")
	}
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal uvci ledger row: %w", err)
	}
	ok, err := s.client.SetNX(ctx, redisKeyPrefix+record.UVCI, payload, 0).Result()
	if err != nil {
		return fmt.Errorf("insert uvci ledger row: %w", err)
	}
	if !ok {
		return fmt.Errorf("insert uvci ledger row: %w", sentinel.ErrConflict)
	}
	return nil
}

func (s *RedisStore) FindByUVCI(ctx context.Context, value string) (*uvci.Record, error) {
	payload, err := s.client.Get(ctx, redisKeyPrefix+value).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find uvci ledger row: %w", err)
	}
	var record uvci.Record
	if err := json.Unmarshal(payload, &record); err != nil {
		return nil, fmt.Errorf("unmarshal uvci ledger row: %w", err)
	}
	return &record, nil
}
