// internal/game/room_test.go
package game

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"giftswap/internal/models"
	"giftswap/internal/store"
)

// fixture wires a manager over the in-memory store with one room and
// the named users as participants. The first name is the owner.
type fixture struct {
	t     *testing.T
	ctx   context.Context
	mgr   *Manager
	room  *Room
	users map[string]*models.User
}

func newFixture(t *testing.T, names ...string) *fixture {
	t.Helper()
	ctx := context.Background()
	mem := store.NewMemory()
	mgr := NewManager(mem, nil, 1)

	users := make(map[string]*models.User, len(names))
	for _, n := range names {
		u := &models.User{ID: uuid.New(), Name: n, CreatedAt: time.Now()}
		require.NoError(t, mem.CreateUser(ctx, u))
		users[n] = u
	}

	room, _, err := mgr.CreateRoom(ctx, users[names[0]])
	require.NoError(t, err)
	for _, n := range names[1:] {
		_, err := room.Join(ctx, users[n])
		require.NoError(t, err)
	}
	return &fixture{t: t, ctx: ctx, mgr: mgr, room: room, users: users}
}

func (f *fixture) id(name string) uuid.UUID { return f.users[name].ID }

// contribute adds a gift named "<name>'s gift" and checks the user in.
func (f *fixture) contribute(name string) {
	f.t.Helper()
	_, err := f.room.AddGift(f.ctx, f.id(name), name+"'s gift")
	require.NoError(f.t, err)
	_, err = f.room.CheckIn(f.ctx, f.id(name))
	require.NoError(f.t, err)
}

// giftOf returns the gift contributed by the named user.
func (f *fixture) giftOf(name string) *models.Gift {
	f.t.Helper()
	f.room.Mu.Lock()
	defer f.room.Mu.Unlock()
	g := f.room.gift(f.room.participant(f.id(name)).GiftID)
	require.NotNil(f.t, g)
	return g
}

// startOngoing drives the room to ONGOING with the given caps, then
// forces the turn queue to the given name order so turn tests are
// deterministic.
func (f *fixture) startOngoing(maxStealPerUser, maxStealPerGame int, order ...string) {
	f.t.Helper()
	owner := f.room.OwnerID
	_, err := f.room.StartChecking(f.ctx, owner)
	require.NoError(f.t, err)
	for n := range f.users {
		f.contribute(n)
	}
	_, err = f.room.StartGame(f.ctx, owner, maxStealPerUser, maxStealPerGame)
	require.NoError(f.t, err)

	f.room.Mu.Lock()
	f.room.TurnOrder = f.room.TurnOrder[:0]
	for _, n := range order {
		f.room.TurnOrder = append(f.room.TurnOrder, f.id(n))
	}
	f.room.CurrentTurn = f.room.TurnOrder[0]
	f.room.Mu.Unlock()
}

func TestLifecycleFullScenario(t *testing.T) {
	f := newFixture(t, "alice", "bob", "carol")
	ctx := f.ctx

	// Check-in before contributing a gift is rejected.
	_, err := f.room.CheckIn(ctx, f.id("alice"))
	require.ErrorIs(t, err, ErrNoGift)
	assert.Equal(t, CodePrecondition, CodeOf(err))

	_, err = f.room.AddGift(ctx, f.id("alice"), "wool socks")
	require.NoError(t, err)
	_, err = f.room.CheckIn(ctx, f.id("alice"))
	require.NoError(t, err)

	snap, err := f.room.StartChecking(ctx, f.id("alice"))
	require.NoError(t, err)
	assert.Equal(t, models.RoomCheckin, snap.Status)

	for _, n := range []string{"bob", "carol"} {
		f.contribute(n)
	}

	snap, err = f.room.StartGame(ctx, f.id("alice"), 1, 3)
	require.NoError(t, err)
	assert.Equal(t, models.RoomOngoing, snap.Status)
	assert.Equal(t, 1, snap.MaxStealPerUser)
	assert.Equal(t, 3, snap.MaxStealPerGame)

	// Turn order is a permutation of the three participants.
	require.Len(t, snap.TurnOrder, 3)
	seen := map[uuid.UUID]bool{}
	for _, id := range snap.TurnOrder {
		seen[id] = true
	}
	for _, n := range []string{"alice", "bob", "carol"} {
		assert.True(t, seen[f.id(n)], "turn order missing %s", n)
	}
	require.NotNil(t, snap.CurrentTurn)
	assert.Equal(t, snap.TurnOrder[0], *snap.CurrentTurn)
}

func TestStartCheckingGuards(t *testing.T) {
	f := newFixture(t, "alice", "bob")

	_, err := f.room.StartChecking(f.ctx, f.id("bob"))
	require.ErrorIs(t, err, ErrNotOwner)
	assert.Equal(t, CodeForbidden, CodeOf(err))

	_, err = f.room.StartChecking(f.ctx, f.id("alice"))
	require.NoError(t, err)

	// No backward transition, second call is rejected.
	_, err = f.room.StartChecking(f.ctx, f.id("alice"))
	require.ErrorIs(t, err, ErrInvalidState)
}

func TestStartGameGuards(t *testing.T) {
	f := newFixture(t, "alice", "bob")
	ctx := f.ctx

	_, err := f.room.StartGame(ctx, f.id("alice"), 1, 3)
	require.ErrorIs(t, err, ErrInvalidState, "start before CHECKIN")

	_, err = f.room.StartChecking(ctx, f.id("alice"))
	require.NoError(t, err)

	_, err = f.room.StartGame(ctx, f.id("bob"), 1, 3)
	require.ErrorIs(t, err, ErrNotOwner)

	_, err = f.room.StartGame(ctx, f.id("alice"), -1, 3)
	require.ErrorIs(t, err, ErrInvalidCaps)
}

func TestAddGiftGuards(t *testing.T) {
	f := newFixture(t, "alice")
	ctx := f.ctx

	stranger := uuid.New()
	_, err := f.room.AddGift(ctx, stranger, "mystery box")
	require.ErrorIs(t, err, ErrNotMember)

	_, err = f.room.AddGift(ctx, f.id("alice"), "wool socks")
	require.NoError(t, err)
	_, err = f.room.AddGift(ctx, f.id("alice"), "another one")
	require.ErrorIs(t, err, ErrGiftAlreadyAdded)
}

func TestCheckInIsIdempotent(t *testing.T) {
	f := newFixture(t, "alice")
	ctx := f.ctx

	_, err := f.room.AddGift(ctx, f.id("alice"), "wool socks")
	require.NoError(t, err)
	_, err = f.room.CheckIn(ctx, f.id("alice"))
	require.NoError(t, err)
	snap, err := f.room.CheckIn(ctx, f.id("alice"))
	require.NoError(t, err)
	assert.True(t, snap.Participants[0].CheckedIn)
}

func TestJoinIsIdempotent(t *testing.T) {
	f := newFixture(t, "alice", "bob")

	snap, err := f.room.Join(f.ctx, f.users["bob"])
	require.NoError(t, err)
	assert.Len(t, snap.Participants, 2)
}

func TestJoinReactivatesAfterLeave(t *testing.T) {
	f := newFixture(t, "alice", "bob")

	_, err := f.room.Leave(f.ctx, f.id("bob"))
	require.NoError(t, err)
	snap, err := f.room.Join(f.ctx, f.users["bob"])
	require.NoError(t, err)

	require.Len(t, snap.Participants, 2)
	for _, p := range snap.Participants {
		assert.Equal(t, string(models.Connected), p.Connection)
	}
}

func TestOwnerLeaveTransfersToEarliestJoined(t *testing.T) {
	f := newFixture(t, "alice", "bob", "carol")

	snap, err := f.room.Leave(f.ctx, f.id("alice"))
	require.NoError(t, err)
	assert.Equal(t, f.id("bob"), snap.OwnerID, "earliest-joined connected participant becomes owner")
	assert.NotEqual(t, models.RoomFinished, snap.Status)
}

func TestLastConnectedOwnerLeaveFinishesRoom(t *testing.T) {
	f := newFixture(t, "alice", "bob")

	_, err := f.room.Leave(f.ctx, f.id("bob"))
	require.NoError(t, err)
	snap, err := f.room.Leave(f.ctx, f.id("alice"))
	require.NoError(t, err)

	assert.Equal(t, models.RoomFinished, snap.Status)
	assert.Nil(t, snap.CurrentTurn)
}

func TestCreateRoomGeneratesDistinctCodes(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	mgr := NewManager(mem, nil, 1)

	codes := map[string]bool{}
	for i := 0; i < 20; i++ {
		u := &models.User{ID: uuid.New(), Name: string(rune('a' + i)), CreatedAt: time.Now()}
		require.NoError(t, mem.CreateUser(ctx, u))
		room, _, err := mgr.CreateRoom(ctx, u)
		require.NoError(t, err)
		assert.Len(t, room.Code, codeLength)
		assert.False(t, codes[room.Code], "duplicate code %s", room.Code)
		codes[room.Code] = true
	}
}

func TestRoomByCodeHydratesFromStore(t *testing.T) {
	f := newFixture(t, "alice", "bob")
	f.startOngoing(1, 3, "alice", "bob")

	// A fresh manager over the same store sees the room's full state.
	other := NewManager(f.mgr.store, nil, 1)
	room, err := other.RoomByCode(f.ctx, f.room.Code)
	require.NoError(t, err)

	snap := room.State()
	assert.Equal(t, models.RoomOngoing, snap.Status)
	assert.Len(t, snap.Participants, 2)
	assert.Len(t, snap.Gifts, 2)
	assert.NotEmpty(t, snap.Log)

	_, err = other.RoomByCode(f.ctx, "ZZZZZZ")
	require.ErrorIs(t, err, ErrRoomNotFound)
}
