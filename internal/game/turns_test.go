// internal/game/turns_test.go
package game

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"giftswap/internal/models"
)

func TestPickAdvancesQueue(t *testing.T) {
	f := newFixture(t, "alice", "bob", "carol")
	f.startOngoing(1, 3, "alice", "bob", "carol")
	target := f.giftOf("bob")

	snap, err := f.room.PickGift(f.ctx, f.id("alice"), target.ID)
	require.NoError(t, err)

	require.NotNil(t, snap.CurrentTurn)
	assert.Equal(t, f.id("bob"), *snap.CurrentTurn)
	assert.Equal(t, []uuid.UUID{f.id("bob"), f.id("carol")}, snap.TurnOrder)
	for _, g := range snap.Gifts {
		if g.ID == target.ID {
			require.NotNil(t, g.ReceivedBy)
			assert.Equal(t, f.id("alice"), *g.ReceivedBy)
		}
	}
	assert.Equal(t, 0, snap.TotalSteals, "picks never touch steal counters")
}

func TestPickGuards(t *testing.T) {
	f := newFixture(t, "alice", "bob")
	f.startOngoing(1, 3, "alice", "bob")

	before := f.room.State()

	// Out of turn: nothing mutates.
	_, err := f.room.PickGift(f.ctx, f.id("bob"), f.giftOf("alice").ID)
	require.ErrorIs(t, err, ErrNotYourTurn)
	assert.Equal(t, before, f.room.State())

	_, err = f.room.PickGift(f.ctx, f.id("alice"), uuid.New())
	require.ErrorIs(t, err, ErrGiftNotFound)

	// Taken gift cannot be picked again.
	target := f.giftOf("bob")
	_, err = f.room.PickGift(f.ctx, f.id("alice"), target.ID)
	require.NoError(t, err)
	_, err = f.room.PickGift(f.ctx, f.id("bob"), target.ID)
	require.ErrorIs(t, err, ErrGiftTaken)
}

func TestLastPickFinishesGame(t *testing.T) {
	f := newFixture(t, "alice", "bob")
	f.startOngoing(1, 3, "alice", "bob")

	_, err := f.room.PickGift(f.ctx, f.id("alice"), f.giftOf("bob").ID)
	require.NoError(t, err)
	snap, err := f.room.PickGift(f.ctx, f.id("bob"), f.giftOf("alice").ID)
	require.NoError(t, err)

	assert.Equal(t, models.RoomFinished, snap.Status)
	assert.Nil(t, snap.CurrentTurn)
	assert.Empty(t, snap.TurnOrder)

	// Nothing succeeds after FINISHED.
	_, err = f.room.PickGift(f.ctx, f.id("alice"), f.giftOf("bob").ID)
	require.ErrorIs(t, err, ErrInvalidState)
	_, err = f.room.StealGift(f.ctx, f.id("alice"), f.giftOf("bob").ID)
	require.ErrorIs(t, err, ErrInvalidState)
}

func TestStealChain(t *testing.T) {
	f := newFixture(t, "alice", "bob", "carol")
	f.startOngoing(2, 3, "alice", "bob", "carol")
	target := f.giftOf("carol")

	_, err := f.room.PickGift(f.ctx, f.id("alice"), target.ID)
	require.NoError(t, err)

	// Bob steals from Alice: the victim is front of queue and acts next.
	snap, err := f.room.StealGift(f.ctx, f.id("bob"), target.ID)
	require.NoError(t, err)

	require.NotNil(t, snap.CurrentTurn)
	assert.Equal(t, f.id("alice"), *snap.CurrentTurn)
	assert.Equal(t, []uuid.UUID{f.id("alice"), f.id("carol")}, snap.TurnOrder)
	assert.Equal(t, 1, snap.TotalSteals)
	for _, g := range snap.Gifts {
		if g.ID == target.ID {
			require.NotNil(t, g.ReceivedBy)
			assert.Equal(t, f.id("bob"), *g.ReceivedBy)
			assert.Equal(t, 1, g.StolenCount)
		}
	}
	for _, p := range snap.Participants {
		if p.UserID == f.id("bob") {
			assert.Equal(t, 1, p.Steals)
		}
	}
}

func TestStealGiftLimit(t *testing.T) {
	// maxStealPerGift is 1 in the fixture, so a gift stolen once is
	// settled for good.
	f := newFixture(t, "alice", "bob", "carol")
	f.startOngoing(2, 5, "alice", "bob", "carol")
	target := f.giftOf("carol")

	_, err := f.room.PickGift(f.ctx, f.id("alice"), target.ID)
	require.NoError(t, err)
	_, err = f.room.StealGift(f.ctx, f.id("bob"), target.ID)
	require.NoError(t, err)

	// Alice (the victim, now current turn) tries to steal it back.
	_, err = f.room.StealGift(f.ctx, f.id("alice"), target.ID)
	require.ErrorIs(t, err, ErrGiftStealLimit)
}

func TestStealGuards(t *testing.T) {
	f := newFixture(t, "alice", "bob", "carol")
	f.startOngoing(1, 3, "alice", "bob", "carol")

	own := f.giftOf("alice")
	other := f.giftOf("carol")

	// Nothing is held yet.
	_, err := f.room.StealGift(f.ctx, f.id("alice"), other.ID)
	require.ErrorIs(t, err, ErrGiftUnowned)

	_, err = f.room.StealGift(f.ctx, f.id("alice"), uuid.New())
	require.ErrorIs(t, err, ErrGiftNotFound)

	_, err = f.room.PickGift(f.ctx, f.id("alice"), other.ID)
	require.NoError(t, err)

	_, err = f.room.StealGift(f.ctx, f.id("alice"), other.ID)
	require.ErrorIs(t, err, ErrNotYourTurn, "alice's turn ended on pick")

	// Bob picks Alice's contribution; Alice must not steal it back from
	// herself nor reclaim her own contribution.
	_, err = f.room.PickGift(f.ctx, f.id("bob"), own.ID)
	require.NoError(t, err)

	f.forceTurn("carol")
	_, err = f.room.StealGift(f.ctx, f.id("carol"), other.ID)
	require.ErrorIs(t, err, ErrOwnGift, "carol contributed that gift")

	f.forceTurn("alice")
	_, err = f.room.StealGift(f.ctx, f.id("alice"), other.ID)
	require.ErrorIs(t, err, ErrSelfSteal, "alice already holds it")
	_, err = f.room.StealGift(f.ctx, f.id("alice"), own.ID)
	require.ErrorIs(t, err, ErrOwnGift)
}

func TestStealUserLimit(t *testing.T) {
	f := newFixture(t, "alice", "bob", "carol", "dave")
	f.startOngoing(1, 10, "alice", "bob", "carol", "dave")

	_, err := f.room.PickGift(f.ctx, f.id("alice"), f.giftOf("bob").ID)
	require.NoError(t, err)
	_, err = f.room.PickGift(f.ctx, f.id("bob"), f.giftOf("dave").ID)
	require.NoError(t, err)

	f.forceTurn("carol")
	_, err = f.room.StealGift(f.ctx, f.id("carol"), f.giftOf("bob").ID)
	require.NoError(t, err)

	// Carol's one steal is spent.
	f.forceTurn("carol")
	_, err = f.room.StealGift(f.ctx, f.id("carol"), f.giftOf("dave").ID)
	require.ErrorIs(t, err, ErrUserStealLimit)
}

func TestStealGameLimit(t *testing.T) {
	f := newFixture(t, "alice", "bob")
	f.startOngoing(5, 0, "alice", "bob")

	_, err := f.room.PickGift(f.ctx, f.id("alice"), f.giftOf("bob").ID)
	require.NoError(t, err)
	_, err = f.room.StealGift(f.ctx, f.id("bob"), f.giftOf("bob").ID)
	require.ErrorIs(t, err, ErrGameStealLimit, "zero steals allowed for the whole game")
}

func TestStealVictimNeverDuplicatedInQueue(t *testing.T) {
	f := newFixture(t, "alice", "bob", "carol")
	f.startOngoing(5, 10, "alice", "bob", "carol")
	target := f.giftOf("carol")

	_, err := f.room.PickGift(f.ctx, f.id("alice"), target.ID)
	require.NoError(t, err)

	// Alice is still in the queue when Bob steals from her; she must be
	// moved to the front, not inserted a second time.
	f.room.Mu.Lock()
	f.room.TurnOrder = []uuid.UUID{f.id("bob"), f.id("alice"), f.id("carol")}
	f.room.CurrentTurn = f.id("bob")
	f.room.Mu.Unlock()

	snap, err := f.room.StealGift(f.ctx, f.id("bob"), target.ID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{f.id("alice"), f.id("carol")}, snap.TurnOrder)
}

// forceTurn puts the named user at the front of the queue.
func (f *fixture) forceTurn(name string) {
	f.t.Helper()
	f.room.Mu.Lock()
	f.room.pushFront(f.id(name))
	f.room.CurrentTurn = f.id(name)
	f.room.Mu.Unlock()
}
