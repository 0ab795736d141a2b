package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/recetteplus/recette-backend/internal/app/service"
	"github.com/recetteplus/recette-backend/pkg/logger"
	"github.com/redis/go-redis/v9"
)

const (
	cartViewKeyPrefix = "cart:view:"
	cartGenKeyPrefix  = "cart:gen:"
	cartGenAllKey     = "cart:gen:all"
	opTimeout         = 500 * time.Millisecond
	scanBatch         = 200
)

var errStaleView = errors.New("cart view generation changed")

// RedisCartViewCache stores main cart views as JSON with a TTL. Every error is
// logged and degrades to a miss: the database stays the source of truth.
//
// Generations live in counters outside the view keyspace: cart:gen:<id> per
// user and cart:gen:all for catalog-wide invalidation. Set is a WATCH/MULTI
// transaction on both counters, so it fails if either moved since Version.
type RedisCartViewCache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

func NewRedisCartViewCache(client redis.UniversalClient, ttl time.Duration) *RedisCartViewCache {
	return &RedisCartViewCache{client: client, ttl: ttl}
}

func cartViewKey(userID uint) string {
	return fmt.Sprintf("%s%d", cartViewKeyPrefix, userID)
}

func cartGenKey(userID uint) string {
	return fmt.Sprintf("%s%d", cartGenKeyPrefix, userID)
}

// versionOf renders MGET results of the generation counters. A counter that
// was never bumped reads as 0.
func versionOf(vals []interface{}) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		s, _ := v.(string)
		if s == "" {
			s = "0"
		}
		parts[i] = s
	}
	return strings.Join(parts, ":")
}

func (c *RedisCartViewCache) Version(userID uint) (string, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	vals, err := c.client.MGet(ctx, cartGenKey(userID), cartGenAllKey).Result()
	if err != nil {
		logger.Warn("Cart view generation read failed", map[string]interface{}{
			"user_id": userID,
			"error":   err.Error(),
		})
		return "", false
	}
	return versionOf(vals), true
}

func (c *RedisCartViewCache) Get(userID uint) (*service.MainCartView, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	data, err := c.client.Get(ctx, cartViewKey(userID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.Warn("Cart view cache read failed", map[string]interface{}{
				"user_id": userID,
				"error":   err.Error(),
			})
		}
		return nil, false
	}

	var view service.MainCartView
	if err := json.Unmarshal(data, &view); err != nil {
		logger.Warn("Discarding undecodable cart view", map[string]interface{}{
			"user_id": userID,
			"error":   err.Error(),
		})
		c.Invalidate(userID)
		return nil, false
	}
	return &view, true
}

// Set stores view unless the user's generation changed since version was read.
func (c *RedisCartViewCache) Set(userID uint, version string, view *service.MainCartView) {
	data, err := json.Marshal(view)
	if err != nil {
		logger.Error("Failed to encode cart view", err, map[string]interface{}{
			"user_id": userID,
		})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	genKey := cartGenKey(userID)
	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		vals, err := tx.MGet(ctx, genKey, cartGenAllKey).Result()
		if err != nil {
			return err
		}
		if versionOf(vals) != version {
			return errStaleView
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, cartViewKey(userID), data, c.ttl)
			return nil
		})
		return err
	}, genKey, cartGenAllKey)

	switch {
	case err == nil:
	case errors.Is(err, errStaleView), errors.Is(err, redis.TxFailedErr):
		logger.Debug("Skipped caching superseded cart view", map[string]interface{}{
			"user_id": userID,
		})
	default:
		logger.Warn("Cart view cache write failed", map[string]interface{}{
			"user_id": userID,
			"error":   err.Error(),
		})
	}
}

func (c *RedisCartViewCache) Invalidate(userIDs ...uint) {
	if len(userIDs) == 0 {
		return
	}
	keys := make([]string, len(userIDs))
	for i, id := range userIDs {
		keys[i] = cartViewKey(id)
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, id := range userIDs {
			pipe.Incr(ctx, cartGenKey(id))
		}
		pipe.Del(ctx, keys...)
		return nil
	})
	if err != nil {
		logger.Warn("Cart view cache invalidation failed", map[string]interface{}{
			"user_ids": userIDs,
			"error":    err.Error(),
		})
	}
}

// InvalidateAll drops every cached view. Used when a price or stock flag
// changes, since any cart may hold the product.
func (c *RedisCartViewCache) InvalidateAll() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*opTimeout)
	defer cancel()

	// bumped first so a view computed during the scan cannot be stored
	if err := c.client.Incr(ctx, cartGenAllKey).Err(); err != nil {
		logger.Warn("Cart view generation bump failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	deleted := 0
	iter := c.client.Scan(ctx, 0, cartViewKeyPrefix+"*", scanBatch).Iterator()
	batch := make([]string, 0, scanBatch)
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == scanBatch {
			deleted += c.del(ctx, batch)
			batch = batch[:0]
		}
	}
	if len(batch) > 0 {
		deleted += c.del(ctx, batch)
	}
	if err := iter.Err(); err != nil {
		logger.Warn("Cart view cache scan failed", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	logger.Debug("Cart view cache flushed", map[string]interface{}{
		"keys": deleted,
	})
}

func (c *RedisCartViewCache) del(ctx context.Context, keys []string) int {
	n, err := c.client.Del(ctx, keys...).Result()
	if err != nil {
		logger.Warn("Cart view cache delete failed", map[string]interface{}{
			"keys":  len(keys),
			"error": err.Error(),
		})
		return 0
	}
	return int(n)
}

var _ service.CartViewCache = (*RedisCartViewCache)(nil)
