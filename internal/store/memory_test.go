// internal/store/memory_test.go
package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"giftswap/internal/models"
)

func TestMemoryUserNameUniqueness(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	u := &models.User{ID: uuid.New(), Name: "alice", CreatedAt: time.Now()}
	require.NoError(t, m.CreateUser(ctx, u))

	dup := &models.User{ID: uuid.New(), Name: "alice", CreatedAt: time.Now()}
	assert.ErrorIs(t, m.CreateUser(ctx, dup), ErrDuplicate)

	got, err := m.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Name)

	_, err = m.GetUser(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryRoomCodeUniqueness(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	r := &models.Room{ID: uuid.New(), Code: "ABC123", Status: models.RoomNotStarted}
	require.NoError(t, m.CreateRoom(ctx, r))

	dup := &models.Room{ID: uuid.New(), Code: "ABC123", Status: models.RoomNotStarted}
	assert.ErrorIs(t, m.CreateRoom(ctx, dup), ErrDuplicate)

	got, err := m.GetRoomByCode(ctx, "ABC123")
	require.NoError(t, err)
	assert.Equal(t, r.ID, got.ID)
}

func TestMemoryRoomUpdateDoesNotAliasTurnOrder(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	order := []uuid.UUID{uuid.New(), uuid.New()}
	r := &models.Room{ID: uuid.New(), Code: "XYZ789", Status: models.RoomOngoing, TurnOrder: order}
	require.NoError(t, m.CreateRoom(ctx, r))

	order[0] = uuid.New() // caller keeps mutating its slice

	got, err := m.GetRoomByCode(ctx, "XYZ789")
	require.NoError(t, err)
	assert.NotEqual(t, order[0], got.TurnOrder[0])
}

func TestMemoryOneParticipantPerUserPerRoom(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	roomID, userID := uuid.New(), uuid.New()
	p := &models.Participant{ID: uuid.New(), RoomID: roomID, UserID: userID, JoinedAt: time.Now()}
	require.NoError(t, m.CreateParticipant(ctx, p))

	dup := &models.Participant{ID: uuid.New(), RoomID: roomID, UserID: userID, JoinedAt: time.Now()}
	assert.ErrorIs(t, m.CreateParticipant(ctx, dup), ErrDuplicate)

	// Same user in another room is fine.
	other := &models.Participant{ID: uuid.New(), RoomID: uuid.New(), UserID: userID, JoinedAt: time.Now()}
	assert.NoError(t, m.CreateParticipant(ctx, other))
}

func TestMemoryListParticipantsJoinOrder(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	roomID := uuid.New()

	base := time.Now()
	for i := 0; i < 5; i++ {
		p := &models.Participant{
			ID:       uuid.New(),
			RoomID:   roomID,
			UserID:   uuid.New(),
			JoinedAt: base.Add(time.Duration(5-i) * time.Second),
		}
		require.NoError(t, m.CreateParticipant(ctx, p))
	}

	got, err := m.ListParticipants(ctx, roomID)
	require.NoError(t, err)
	require.Len(t, got, 5)
	for i := 1; i < len(got); i++ {
		assert.True(t, got[i-1].JoinedAt.Before(got[i].JoinedAt))
	}
}

func TestMemoryLogIndexUniqueness(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	roomID := uuid.New()

	require.NoError(t, m.AppendLog(ctx, &models.LogEntry{RoomID: roomID, Index: 0, Action: "a", At: time.Now()}))
	require.NoError(t, m.AppendLog(ctx, &models.LogEntry{RoomID: roomID, Index: 1, Action: "b", At: time.Now()}))
	assert.ErrorIs(t, m.AppendLog(ctx, &models.LogEntry{RoomID: roomID, Index: 1, Action: "dup", At: time.Now()}), ErrDuplicate)

	logs, err := m.ListLogs(ctx, roomID)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, "a", logs[0].Action)
	assert.Equal(t, "b", logs[1].Action)
}
