// Package cache provides the byte-oriented store used to keep the hub tool
// catalog between runs of the conversation.
package cache

import (
	"context"
	"time"
)

// Store is a TTL key/value store. Implementations treat backend failures as misses.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
}
