// internal/cache/cache.go
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// actionStream is the pub/sub channel carrying every room action record
// for out-of-process consumers (history, analytics).
const actionStream = "giftswap:room_actions"

// lookupTTL bounds how long a code -> room id mapping is served from
// Redis before falling back to the store.
const lookupTTL = 10 * time.Minute

// RoomActionRecord is the serialized form of one action-log append,
// mirrored to Redis. The durable copy lives in the entity store; this
// record is a best-effort feed and is never read back by the engine.
type RoomActionRecord struct {
	RoomID    uuid.UUID `json:"roomId"`
	Index     int       `json:"index"`
	ActorID   uuid.UUID `json:"actorId,omitempty"` // uuid.Nil for room-level events.
	Action    string    `json:"action"`
	Timestamp int64     `json:"timestamp"` // Unix milliseconds.
}

// Cache wraps the Redis client used for the action-record mirror and
// the room-code lookup cache. A nil *Cache is valid and disables both.
type Cache struct {
	rdb    *redis.Client
	prefix string
}

// New creates a Cache over an established Redis client. prefix
// namespaces all keys (e.g. "gs:").
func New(rdb *redis.Client, prefix string) *Cache {
	return &Cache{rdb: rdb, prefix: prefix}
}

// Connect dials Redis and verifies the connection.
func Connect(ctx context.Context, addr, password string, db int, prefix string) (*Cache, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("cache: ping: %w", err)
	}
	return New(rdb, prefix), nil
}

// Close releases the Redis connection.
func (c *Cache) Close() error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}

// PublishRoomAction appends the record to the room's action list and
// publishes it on the shared action channel.
func (c *Cache) PublishRoomAction(ctx context.Context, rec RoomActionRecord) error {
	if c == nil || c.rdb == nil {
		return nil
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("cache: marshal action record: %w", err)
	}
	key := c.prefix + "actions:" + rec.RoomID.String()
	pipe := c.rdb.Pipeline()
	pipe.RPush(ctx, key, data)
	pipe.Publish(ctx, c.prefix+actionStream, data)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cache: publish action record: %w", err)
	}
	return nil
}

// SetRoomLookup caches a join code -> room id mapping for the lookup
// endpoint.
func (c *Cache) SetRoomLookup(ctx context.Context, code string, roomID uuid.UUID) error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Set(ctx, c.prefix+"room_code:"+code, roomID.String(), lookupTTL).Err()
}

// RoomLookup resolves a cached join code. Returns uuid.Nil (and no
// error) on a miss.
func (c *Cache) RoomLookup(ctx context.Context, code string) (uuid.UUID, error) {
	if c == nil || c.rdb == nil {
		return uuid.Nil, nil
	}
	raw, err := c.rdb.Get(ctx, c.prefix+"room_code:"+code).Result()
	if err == redis.Nil {
		return uuid.Nil, nil
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("cache: room lookup: %w", err)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, nil
	}
	return id, nil
}
