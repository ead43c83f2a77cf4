package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"taskify/internal/model"

	"github.com/redis/go-redis/v9"
)

const (
	keyViewGen = "taskify:view:gen:"
	keyView    = "taskify:view:"
)

// ViewCache caches each user's unified task view in Redis.
// A per-user generation counter is part of the view key: invalidation bumps it,
// which orphans the old entry until its TTL runs out.
type ViewCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewViewCache returns a new ViewCache.
func NewViewCache(rdb *redis.Client, ttl time.Duration) *ViewCache {
	return &ViewCache{rdb: rdb, ttl: ttl}
}

// Get returns the cached view for the user's current generation, and that generation.
func (c *ViewCache) Get(ctx context.Context, username string) ([]model.UnifiedTask, int64, bool, error) {
	gen, err := c.rdb.Get(ctx, keyViewGen+username).Int64()
	if err != nil && err != redis.Nil {
		return nil, 0, false, err
	}

	b, err := c.rdb.Get(ctx, viewKey(username, gen)).Bytes()
	if err == redis.Nil {
		return nil, gen, false, nil
	}
	if err != nil {
		return nil, gen, false, err
	}
	var view []model.UnifiedTask
	if err := json.Unmarshal(b, &view); err != nil {
		return nil, gen, false, err
	}
	return view, gen, true, nil
}

// Set stores view under generation gen.
func (c *ViewCache) Set(ctx context.Context, username string, gen int64, view []model.UnifiedTask) error {
	b, err := json.Marshal(view)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, viewKey(username, gen), b, c.ttl).Err()
}

// Invalidate bumps the generation of every given user.
func (c *ViewCache) Invalidate(ctx context.Context, usernames ...string) error {
	for _, u := range usernames {
		if err := c.rdb.Incr(ctx, keyViewGen+u).Err(); err != nil {
			return err
		}
	}
	return nil
}

func viewKey(username string, gen int64) string {
	return fmt.Sprintf("%s%s:%d", keyView, username, gen)
}
