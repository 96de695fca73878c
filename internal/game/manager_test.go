// internal/game/manager_test.go
package game

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"giftswap/internal/models"
	"giftswap/internal/store"
)

// participantFailStore passes everything through to the wrapped store
// but rejects participant inserts, and remembers the last room code it
// saw committed.
type participantFailStore struct {
	store.Store
	lastCode string
}

func (s *participantFailStore) CreateRoom(ctx context.Context, r *models.Room) error {
	if err := s.Store.CreateRoom(ctx, r); err != nil {
		return err
	}
	s.lastCode = r.Code
	return nil
}

func (s *participantFailStore) CreateParticipant(context.Context, *models.Participant) error {
	return errors.New("participant insert rejected")
}

func TestCreateRoomRetiresRoomWhenOwnerInsertFails(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	fs := &participantFailStore{Store: mem}
	mgr := NewManager(fs, nil, 1)

	u := &models.User{ID: uuid.New(), Name: "alice", CreatedAt: time.Now()}
	require.NoError(t, mem.CreateUser(ctx, u))

	_, _, err := mgr.CreateRoom(ctx, u)
	require.Error(t, err)

	// The committed room row is retired rather than left ownerless and
	// joinable under its code.
	require.NotEmpty(t, fs.lastCode)
	rec, err := mem.GetRoomByCode(ctx, fs.lastCode)
	require.NoError(t, err)
	assert.Equal(t, models.RoomFinished, rec.Status)
}
