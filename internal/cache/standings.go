package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	standingsPrefix = "gauntlet:standings:round:"
	versionPrefix   = "gauntlet:standings:version:"
)

// StandingsCache keeps computed round standings in Redis. A cache built
// without an address is disabled: reads always miss and writes are dropped.
//
// Every invalidation bumps a per-round version. Writers pass the version they
// read before loading, and a write made against an older version is dropped.
type StandingsCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewStandingsCache(addr string, ttl time.Duration) *StandingsCache {
	if addr == "" {
		return &StandingsCache{}
	}
	return &StandingsCache{
		client: redis.NewClient(&redis.Options{
			Addr: addr,
		}),
		ttl: ttl,
	}
}

func (c *StandingsCache) Enabled() bool {
	return c != nil && c.client != nil
}

func (c *StandingsCache) Ping(ctx context.Context) error {
	if !c.Enabled() {
		return nil
	}
	return c.client.Ping(ctx).Err()
}

func standingsKey(roundID uint) string {
	return fmt.Sprintf("%s%d", standingsPrefix, roundID)
}

func versionKey(roundID uint) string {
	return fmt.Sprintf("%s%d", versionPrefix, roundID)
}

// Version returns the invalidation counter of a round. Read it before
// loading the standings that are later passed to Set.
func (c *StandingsCache) Version(ctx context.Context, roundID uint) (int64, error) {
	if !c.Enabled() {
		return 0, nil
	}
	version, err := c.client.Get(ctx, versionKey(roundID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return version, err
}

// Get decodes the cached standings of a round into v. It reports false on a
// miss.
func (c *StandingsCache) Get(ctx context.Context, roundID uint, v any) (bool, error) {
	if !c.Enabled() {
		return false, nil
	}
	data, err := c.client.Get(ctx, standingsKey(roundID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		// A payload from an older layout is a miss.
		return false, nil
	}
	return true, nil
}

// Set stores standings computed while the round was at version. It reports
// false without error when the round was invalidated since then.
func (c *StandingsCache) Set(ctx context.Context, roundID uint, version int64, v any) (bool, error) {
	if !c.Enabled() {
		return false, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return false, err
	}

	stored := false
	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, versionKey(roundID)).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != version {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, standingsKey(roundID), data, c.ttl)
			return nil
		})
		if err == nil {
			stored = true
		}
		return err
	}, versionKey(roundID))
	if errors.Is(err, redis.TxFailedErr) {
		return false, nil
	}
	return stored, err
}

// Invalidate drops the cached standings of the rounds and bumps their
// versions.
func (c *StandingsCache) Invalidate(ctx context.Context, roundIDs ...uint) error {
	if !c.Enabled() || len(roundIDs) == 0 {
		return nil
	}
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, id := range roundIDs {
			pipe.Del(ctx, standingsKey(id))
			pipe.Incr(ctx, versionKey(id))
		}
		return nil
	})
	return err
}

func (c *StandingsCache) Close() error {
	if !c.Enabled() {
		return nil
	}
	return c.client.Close()
}
