package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/brickvest-labs/brickvest/internal/domain"
)

// propertyTTL is deliberately short: sale state is owned by the offerings
// service and this cache only absorbs per-render reads.
const propertyTTL = 30 * time.Second

// PropertyCache implements domain.PropertyCache using Redis strings with
// JSON-serialized property data.
//
// Key schema:
//
//	brickvest:property:{id} - JSON-encoded domain.Property
type PropertyCache struct {
	rdb *redis.Client
}

// NewPropertyCache creates a PropertyCache backed by the given Client.
func NewPropertyCache(c *Client) *PropertyCache {
	return &PropertyCache{rdb: c.Underlying()}
}

func propertyKey(id string) string { return key("property", id) }

// Set stores a property snapshot with the cache TTL.
func (pc *PropertyCache) Set(ctx context.Context, property domain.Property) error {
	data, err := json.Marshal(property)
	if err != nil {
		return fmt.Errorf("redis: marshal property %s: %w", property.ID, err)
	}
	if err := pc.rdb.Set(ctx, propertyKey(property.ID), data, propertyTTL).Err(); err != nil {
		return fmt.Errorf("redis: set property %s: %w", property.ID, err)
	}
	return nil
}

// Get retrieves a property snapshot. It returns domain.ErrNotFound when the
// key does not exist or has expired.
func (pc *PropertyCache) Get(ctx context.Context, id string) (domain.Property, error) {
	data, err := pc.rdb.Get(ctx, propertyKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.Property{}, domain.ErrNotFound
		}
		return domain.Property{}, fmt.Errorf("redis: get property %s: %w", id, err)
	}

	var p domain.Property
	if err := json.Unmarshal(data, &p); err != nil {
		return domain.Property{}, fmt.Errorf("redis: unmarshal property %s: %w", id, err)
	}
	return p, nil
}

// Invalidate removes a property snapshot.
func (pc *PropertyCache) Invalidate(ctx context.Context, id string) error {
	if err := pc.rdb.Del(ctx, propertyKey(id)).Err(); err != nil {
		return fmt.Errorf("redis: invalidate property %s: %w", id, err)
	}
	return nil
}

var _ domain.PropertyCache = (*PropertyCache)(nil)
