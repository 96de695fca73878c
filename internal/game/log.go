// internal/game/log.go
package game

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"giftswap/internal/cache"
	"giftswap/internal/models"
)

// appendLog appends one entry to the room's action log. The index is
// the current entry count, so indices are consecutive from 0 as long as
// every append happens inside the room lock. The durable write is
// awaited before the in-memory append; the Redis mirror is fired
// asynchronously and its failure only warns.
// Assumes lock is held by caller.
func (r *Room) appendLog(ctx context.Context, actorID uuid.UUID, action string) error {
	entry := models.LogEntry{
		RoomID: r.ID,
		Index:  len(r.Log),
		Action: action,
		At:     time.Now(),
	}
	if err := r.store.AppendLog(ctx, &entry); err != nil {
		return fmt.Errorf("append log: %w", err)
	}
	r.Log = append(r.Log, entry)

	if r.mirror != nil {
		rec := cache.RoomActionRecord{
			RoomID:    r.ID,
			Index:     entry.Index,
			ActorID:   actorID,
			Action:    action,
			Timestamp: entry.At.UnixMilli(),
		}
		go func() {
			mctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := r.mirror.PublishRoomAction(mctx, rec); err != nil {
				logrus.WithError(err).WithField("room_id", rec.RoomID).Warn("action mirror publish failed")
			}
		}()
	}
	return nil
}
