package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/okian/salescore/internal/domain/journey"
	"github.com/okian/salescore/pkg/logger"
)

// RedisStore keeps one JSON document per customer. Appends run inside a
// WATCH transaction so a concurrent writer makes the append fail with
// journey.ErrConflict instead of overwriting it.
type RedisStore struct {
	client *redis.Client
	opts   storeOptions
}

// NewRedisStore connects to addr and verifies the connection.
func NewRedisStore(ctx context.Context, addr string, opts ...Option) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect redis %s: %w", addr, err)
	}
	return NewRedisStoreFromClient(client, opts...), nil
}

// NewRedisStoreFromClient wraps an existing client.
func NewRedisStoreFromClient(client *redis.Client, opts ...Option) *RedisStore {
	return &RedisStore{client: client, opts: applyOptions(opts)}
}

func (s *RedisStore) journeyKey(customerID string) string {
	return s.opts.keyPrefix + "journey:" + customerID
}

func (s *RedisStore) indexKey() string {
	return s.opts.keyPrefix + "journeys"
}

// Load implements journey.Store.
func (s *RedisStore) Load(ctx context.Context, customerID string) (journey.Journey, error) {
	defer observe(BackendRedis, "load", time.Now())

	j, exists, err := readJourney(ctx, s.client, s.journeyKey(customerID))
	if err != nil {
		return journey.Journey{}, err
	}
	if !exists {
		return journey.Journey{}, journey.ErrNotFound
	}
	return j, nil
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func readJourney(ctx context.Context, c getter, key string) (journey.Journey, bool, error) {
	raw, err := c.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return journey.Journey{}, false, nil
	}
	if err != nil {
		return journey.Journey{}, false, fmt.Errorf("redis get %s: %w", key, err)
	}
	var j journey.Journey
	if err := json.Unmarshal(raw, &j); err != nil {
		return journey.Journey{}, false, fmt.Errorf("decode journey %s: %w", key, err)
	}
	return j, true, nil
}

// Append implements journey.Store.
func (s *RedisStore) Append(ctx context.Context, customerID, sessionID string, expectedLen int, rec journey.Record) (journey.Journey, error) {
	defer observe(BackendRedis, "append", time.Now())

	key := s.journeyKey(customerID)
	var out journey.Journey
	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		current, exists, err := readJourney(ctx, tx, key)
		if err != nil {
			return err
		}
		if err := checkAppend(current, exists, sessionID, expectedLen); err != nil {
			return err
		}
		if !exists {
			current = journey.Journey{CustomerID: customerID, SessionID: sessionID, StartedAt: rec.Timestamp}
		}
		current.Records = append(current.Records, rec)

		data, err := json.Marshal(current)
		if err != nil {
			return fmt.Errorf("encode journey: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, key, data, 0)
			p.SAdd(ctx, s.indexKey(), customerID)
			return nil
		})
		if err != nil {
			return err
		}
		out = current
		return nil
	}, key)

	if errors.Is(err, redis.TxFailedErr) {
		s.opts.logger.Warn(ctx, "redis watch aborted append",
			logger.String("customer_id", customerID))
		return journey.Journey{}, journey.ErrConflict
	}
	if err != nil {
		return journey.Journey{}, err
	}
	return out, nil
}

// Reset implements journey.Store.
func (s *RedisStore) Reset(ctx context.Context, customerID, sessionID string, at time.Time) (journey.Journey, error) {
	defer observe(BackendRedis, "reset", time.Now())

	j := journey.Journey{CustomerID: customerID, SessionID: sessionID, StartedAt: at, Records: []journey.Record{}}
	data, err := json.Marshal(j)
	if err != nil {
		return journey.Journey{}, fmt.Errorf("encode journey: %w", err)
	}
	_, err = s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, s.journeyKey(customerID), data, 0)
		p.SAdd(ctx, s.indexKey(), customerID)
		return nil
	})
	if err != nil {
		return journey.Journey{}, fmt.Errorf("redis reset %s: %w", customerID, err)
	}
	return j, nil
}

// Count implements journey.Store.
func (s *RedisStore) Count(ctx context.Context) (int, error) {
	n, err := s.client.SCard(ctx, s.indexKey()).Result()
	if err != nil {
		return 0, fmt.Errorf("redis scard: %w", err)
	}
	return int(n), nil
}

// Close closes the underlying client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
