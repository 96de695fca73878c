// internal/store/store.go
package store

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"giftswap/internal/models"
)

// Store errors. Callers match with errors.Is; everything else a store
// returns is an infrastructure failure.
var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("store: record not found")
	// ErrDuplicate indicates a write violated a uniqueness constraint
	// (user name, room code, one participant per user per room).
	ErrDuplicate = errors.New("store: duplicate entry")
)

// Store is the entity store boundary: durable records for users, rooms,
// participants, gifts and log entries. The engine reads and writes
// through this only and never assumes in-memory durability. All calls
// are expected to complete or fail within a bounded time; they are
// awaited synchronously inside a room's serialized action slot.
type Store interface {
	// CreateUser persists a new user. Returns ErrDuplicate if the name
	// is taken.
	CreateUser(ctx context.Context, u *models.User) error
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)

	// CreateRoom persists a new room. Returns ErrDuplicate on a code
	// collision so callers can regenerate.
	CreateRoom(ctx context.Context, r *models.Room) error
	GetRoomByCode(ctx context.Context, code string) (*models.Room, error)
	UpdateRoom(ctx context.Context, r *models.Room) error

	CreateParticipant(ctx context.Context, p *models.Participant) error
	UpdateParticipant(ctx context.Context, p *models.Participant) error
	// ListParticipants returns a room's participants in join order.
	ListParticipants(ctx context.Context, roomID uuid.UUID) ([]*models.Participant, error)

	CreateGift(ctx context.Context, g *models.Gift) error
	UpdateGift(ctx context.Context, g *models.Gift) error
	ListGifts(ctx context.Context, roomID uuid.UUID) ([]*models.Gift, error)

	// AppendLog persists one log entry. Index uniqueness per room is
	// enforced by the store; the caller guarantees gap-free assignment
	// by appending only inside the room's serialized slot.
	AppendLog(ctx context.Context, e *models.LogEntry) error
	// ListLogs returns a room's log entries ordered by index.
	ListLogs(ctx context.Context, roomID uuid.UUID) ([]models.LogEntry, error)
}
