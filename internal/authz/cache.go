package authz

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/clinicore/clinicore/internal/capability"
)

const invalidationChannel = "authz.bump"

// CachedResolver caches resolutions in Redis behind a per-practice version
// counter. Invalidation bumps the counter, so stale entries are never read
// again and simply age out via TTL. A nil client degrades to direct
// resolution.
type CachedResolver struct {
	resolver *Resolver
	client   *redis.Client
	ttl      time.Duration
	logger   *slog.Logger
	hits     func()
	misses   func()
	bumps    func()
}

// NewCachedResolver wraps a resolver with Redis caching.
func NewCachedResolver(resolver *Resolver, client *redis.Client, ttl time.Duration, logger *slog.Logger) *CachedResolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedResolver{resolver: resolver, client: client, ttl: ttl, logger: logger}
}

// SetCounters installs optional callbacks for metrics.
func (c *CachedResolver) SetCounters(hits, misses, invalidations func()) {
	c.hits = hits
	c.misses = misses
	c.bumps = invalidations
}

// cachedResolution is the wire form stored in Redis. The capability set is
// flattened to its sorted slice so payloads are stable and small. Assignments
// are stored already filtered to live rows; liveness fields excluded from the
// JSON form are zero after a round trip, so cached rows must never be
// re-filtered.
type cachedResolution struct {
	UserID       int64                   `json:"user_id"`
	PracticeID   int64                   `json:"practice_id"`
	Capabilities []capability.Capability `json:"capabilities"`
	Assignments  []MemberAssignment      `json:"assignments"`
}

func versionKey(practiceID int64) string {
	return fmt.Sprintf("authz:%d:version", practiceID)
}

func (c *CachedResolver) version(ctx context.Context, practiceID int64) (int64, error) {
	ver, err := c.client.Get(ctx, versionKey(practiceID)).Int64()
	if err == redis.Nil {
		if err := c.client.Set(ctx, versionKey(practiceID), 1, 0).Err(); err != nil {
			return 0, err
		}
		return 1, nil
	}
	if err != nil {
		return 0, err
	}
	return ver, nil
}

// Resolve returns the cached resolution when present, recomputing and
// storing it otherwise. Cache failures are logged and fall through to direct
// resolution; they never deny or grant on their own.
func (c *CachedResolver) Resolve(ctx context.Context, userID, practiceID int64) (Resolution, error) {
	if c.client == nil {
		return c.resolver.Resolve(ctx, userID, practiceID)
	}

	ver, err := c.version(ctx, practiceID)
	if err != nil {
		c.logger.Warn("authz cache version unavailable", "error", err)
		return c.resolver.Resolve(ctx, userID, practiceID)
	}
	key := fmt.Sprintf("authz:%d:%d:%d", practiceID, ver, userID)

	payload, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var cached cachedResolution
		if err := json.Unmarshal(payload, &cached); err == nil {
			if c.hits != nil {
				c.hits()
			}
			return Resolution{
				UserID:       cached.UserID,
				PracticeID:   cached.PracticeID,
				Capabilities: capability.NewSet(cached.Capabilities...),
				Assignments:  cached.Assignments,
			}, nil
		}
		c.logger.Warn("authz cache payload corrupt", "key", key)
	} else if err != redis.Nil {
		c.logger.Warn("authz cache read failed", "error", err)
	}

	if c.misses != nil {
		c.misses()
	}
	res, err := c.resolver.Resolve(ctx, userID, practiceID)
	if err != nil {
		return res, err
	}

	raw, err := json.Marshal(cachedResolution{
		UserID:       res.UserID,
		PracticeID:   res.PracticeID,
		Capabilities: res.Capabilities.Sorted(),
		Assignments:  res.Assignments,
	})
	if err == nil {
		if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
			c.logger.Warn("authz cache write failed", "error", err)
		}
	}
	return res, nil
}

// InvalidatePractice bumps the practice version so every cached resolution
// for it becomes unreachable, and announces the bump for other instances.
func (c *CachedResolver) InvalidatePractice(ctx context.Context, practiceID int64) error {
	if c.client == nil {
		return nil
	}
	ver, err := c.client.Incr(ctx, versionKey(practiceID)).Result()
	if err != nil {
		return err
	}
	if c.bumps != nil {
		c.bumps()
	}
	return c.client.Publish(ctx, invalidationChannel, fmt.Sprintf("%d:%d", practiceID, ver)).Err()
}
