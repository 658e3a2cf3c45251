package domain

import (
	"context"
	"time"
)

// PropertyCache is a short-TTL read cache in front of the offerings service.
// Sale state is externally owned, so entries expire quickly rather than
// being invalidated by writers.
type PropertyCache interface {
	Set(ctx context.Context, property Property) error
	Get(ctx context.Context, id string) (Property, error)
	Invalidate(ctx context.Context, id string) error
}

// RateLimiter bounds how often a key may perform an action.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// SignalBus fans lifecycle events out to subscribers (the WebSocket hub and
// any external consumers).
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}
