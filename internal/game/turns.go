// internal/game/turns.go
package game

import (
	"context"

	"github.com/google/uuid"

	"giftswap/internal/models"
)

// PickGift assigns an unowned gift to the actor and ends their turn.
func (r *Room) PickGift(ctx context.Context, userID, giftID uuid.UUID) (Snapshot, error) {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	if r.Status != models.RoomOngoing {
		return Snapshot{}, ErrInvalidState
	}
	if userID != r.CurrentTurn {
		return Snapshot{}, ErrNotYourTurn
	}
	g := r.gift(giftID)
	if g == nil {
		return Snapshot{}, ErrGiftNotFound
	}
	if g.ReceivedBy != uuid.Nil {
		return Snapshot{}, ErrGiftTaken
	}

	p := r.participant(userID)

	g.ReceivedBy = userID
	if err := r.persistGift(ctx, g); err != nil {
		return Snapshot{}, err
	}
	r.advanceTurn()
	if err := r.persistRoom(ctx); err != nil {
		return Snapshot{}, err
	}
	if err := r.appendLog(ctx, userID, p.Name+" picked a gift"); err != nil {
		return Snapshot{}, err
	}
	return r.snapshot(), nil
}

// StealGift takes an owned gift from its holder. The actor's turn ends
// and the victim takes over immediately: they are moved to the front of
// the queue (joining it if they had already had their turn) and become
// the current turn. Every guard is checked before any state changes, so
// a rejected steal leaves the room untouched.
func (r *Room) StealGift(ctx context.Context, userID, giftID uuid.UUID) (Snapshot, error) {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	if r.Status != models.RoomOngoing {
		return Snapshot{}, ErrInvalidState
	}
	if userID != r.CurrentTurn {
		return Snapshot{}, ErrNotYourTurn
	}
	if r.TotalSteals >= r.MaxStealPerGame {
		return Snapshot{}, ErrGameStealLimit
	}
	g := r.gift(giftID)
	if g == nil {
		return Snapshot{}, ErrGiftNotFound
	}
	if g.ReceivedBy == uuid.Nil {
		return Snapshot{}, ErrGiftUnowned
	}
	if g.ReceivedBy == userID {
		return Snapshot{}, ErrSelfSteal
	}
	if g.AddedBy == userID {
		return Snapshot{}, ErrOwnGift
	}
	if g.StolenCount >= r.MaxStealPerGift {
		return Snapshot{}, ErrGiftStealLimit
	}
	p := r.participant(userID)
	if p.Steals >= r.MaxStealPerUser {
		return Snapshot{}, ErrUserStealLimit
	}

	victim := g.ReceivedBy

	g.ReceivedBy = userID
	g.StolenCount++
	if err := r.persistGift(ctx, g); err != nil {
		return Snapshot{}, err
	}
	p.Steals++
	if err := r.persistParticipant(ctx, p); err != nil {
		return Snapshot{}, err
	}

	r.TotalSteals++
	r.popTurn(userID)
	r.pushFront(victim)
	r.CurrentTurn = victim
	if err := r.persistRoom(ctx); err != nil {
		return Snapshot{}, err
	}

	victimName := victim.String()
	if vp := r.participant(victim); vp != nil {
		victimName = vp.Name
	}
	if err := r.appendLog(ctx, userID, p.Name+" stole a gift from "+victimName); err != nil {
		return Snapshot{}, err
	}
	return r.snapshot(), nil
}

// advanceTurn removes the current player from the queue and hands the
// turn to the new front. An empty queue finishes the game.
// Assumes lock is held by caller.
func (r *Room) advanceTurn() {
	r.popTurn(r.CurrentTurn)
	if len(r.TurnOrder) == 0 {
		r.Status = models.RoomFinished
		r.CurrentTurn = uuid.Nil
		return
	}
	r.CurrentTurn = r.TurnOrder[0]
}

// popTurn removes userID from the turn queue wherever it sits.
// Assumes lock is held by caller.
func (r *Room) popTurn(userID uuid.UUID) {
	for i, id := range r.TurnOrder {
		if id == userID {
			r.TurnOrder = append(r.TurnOrder[:i], r.TurnOrder[i+1:]...)
			return
		}
	}
}

// pushFront puts userID at the front of the turn queue, removing any
// existing occurrence first so the queue never holds duplicates.
// Assumes lock is held by caller.
func (r *Room) pushFront(userID uuid.UUID) {
	r.popTurn(userID)
	r.TurnOrder = append([]uuid.UUID{userID}, r.TurnOrder...)
}
