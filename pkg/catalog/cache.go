package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/redis/go-redis/v9"

	"github.com/kozydot/findr/pkg/models"
	"github.com/kozydot/findr/pkg/tracing"
)

const catalogSnapshotKey = "catalog:snapshot"

// SnapshotCache keeps the catalog summary list in Redis so repeated searches
// do not hammer the upstream. Strictly a read-through cache: the upstream
// stays the source of truth and a cache failure degrades to a direct fetch.
type SnapshotCache struct {
	rdb    *redis.Client
	client *Client
	ttl    time.Duration
	logger ectologger.Logger
}

// NewSnapshotCache builds a cache over client with the given TTL.
func NewSnapshotCache(rdb *redis.Client, client *Client, ttl time.Duration, logger ectologger.Logger) *SnapshotCache {
	return &SnapshotCache{
		rdb:    rdb,
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

// Snapshot returns the current catalog summary list, from Redis when fresh,
// otherwise from the upstream (repopulating the cache on the way out).
func (c *SnapshotCache) Snapshot(ctx context.Context) ([]models.ProductSummary, error) {
	ctx, span := tracing.StartSpan(ctx, "catalog.SnapshotCache.Snapshot")
	defer span.End()

	log := c.logger.WithContext(ctx)

	cached, err := c.rdb.Get(ctx, catalogSnapshotKey).Result()
	if err == nil {
		var summaries []models.ProductSummary
		if err := json.Unmarshal([]byte(cached), &summaries); err == nil {
			return summaries, nil
		}
		// A corrupt entry is dropped and refetched.
		log.Warn("Corrupt catalog snapshot in cache; refetching")
		if err := c.rdb.Del(ctx, catalogSnapshotKey).Err(); err != nil {
			log.WithError(err).Warn("Failed to drop corrupt catalog snapshot")
		}
	} else if !errors.Is(err, redis.Nil) {
		log.WithError(err).Warn("Catalog snapshot cache read failed; falling back to upstream")
	}

	summaries, err := c.client.FetchCatalog(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("refresh catalog snapshot: %w", err)
	}

	encoded, err := json.Marshal(summaries)
	if err == nil {
		if err := c.rdb.Set(ctx, catalogSnapshotKey, encoded, c.ttl).Err(); err != nil {
			log.WithError(err).Warn("Failed to cache catalog snapshot")
		}
	}

	return summaries, nil
}

// Invalidate drops the cached snapshot.
func (c *SnapshotCache) Invalidate(ctx context.Context) error {
	return c.rdb.Del(ctx, catalogSnapshotKey).Err()
}
