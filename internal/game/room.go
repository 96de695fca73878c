// internal/game/room.go
package game

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"

	"giftswap/internal/cache"
	"giftswap/internal/models"
	"giftswap/internal/store"
)

// Room is the live aggregate for one gift-exchange session. Exactly one
// Room instance exists per active room in the process; every mutating
// operation locks Mu for its full read-validate-mutate-persist-log
// sequence, which is the per-room serialization boundary. The turn
// order is owned exclusively by this struct and never escapes an
// operation.
type Room struct {
	ID          uuid.UUID
	Code        string
	Status      models.RoomStatus
	OwnerID     uuid.UUID
	TurnOrder   []uuid.UUID
	CurrentTurn uuid.UUID // uuid.Nil when no one's turn.
	TotalSteals int

	MaxStealPerUser int
	MaxStealPerGame int
	MaxStealPerGift int

	CreatedAt time.Time

	Participants []*models.Participant // join order; owner is first.
	Gifts        []*models.Gift
	Log          []models.LogEntry

	Mu sync.Mutex // Protects all fields above.

	store  store.Store
	mirror *cache.Cache // may be nil; mirror failures never fail an action.
}

// StartChecking moves the room from NOT_STARTED to CHECKIN. Owner only.
func (r *Room) StartChecking(ctx context.Context, userID uuid.UUID) (Snapshot, error) {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	if userID != r.OwnerID {
		return Snapshot{}, ErrNotOwner
	}
	if r.Status != models.RoomNotStarted {
		return Snapshot{}, ErrInvalidState
	}

	r.Status = models.RoomCheckin
	if err := r.persistRoom(ctx); err != nil {
		return Snapshot{}, err
	}
	if err := r.appendLog(ctx, userID, "Check-in started, participants can now check in"); err != nil {
		return Snapshot{}, err
	}
	return r.snapshot(), nil
}

// AddGift records the participant's contributed gift. Each participant
// contributes at most one gift, and only before the game starts.
func (r *Room) AddGift(ctx context.Context, userID uuid.UUID, name string) (Snapshot, error) {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	p := r.participant(userID)
	if p == nil {
		return Snapshot{}, ErrNotMember
	}
	if r.Status != models.RoomNotStarted && r.Status != models.RoomCheckin {
		return Snapshot{}, ErrInvalidState
	}
	if p.GiftID != uuid.Nil {
		return Snapshot{}, ErrGiftAlreadyAdded
	}

	gift := &models.Gift{
		ID:         uuid.New(),
		RoomID:     r.ID,
		Name:       name,
		AddedBy:    userID,
		ReceivedBy: uuid.Nil,
	}
	if err := r.store.CreateGift(ctx, gift); err != nil {
		return Snapshot{}, fmt.Errorf("persist gift: %w", err)
	}
	p.GiftID = gift.ID
	if err := r.persistParticipant(ctx, p); err != nil {
		return Snapshot{}, err
	}
	r.Gifts = append(r.Gifts, gift)

	if err := r.appendLog(ctx, userID, p.Name+" added a gift"); err != nil {
		return Snapshot{}, err
	}
	return r.snapshot(), nil
}

// CheckIn marks the participant as checked in. Requires a contributed
// gift; checking in twice is idempotent.
func (r *Room) CheckIn(ctx context.Context, userID uuid.UUID) (Snapshot, error) {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	p := r.participant(userID)
	if p == nil {
		return Snapshot{}, ErrNotMember
	}
	if p.GiftID == uuid.Nil {
		return Snapshot{}, ErrNoGift
	}

	p.CheckedIn = true
	if err := r.persistParticipant(ctx, p); err != nil {
		return Snapshot{}, err
	}
	if err := r.appendLog(ctx, userID, p.Name+" checked in"); err != nil {
		return Snapshot{}, err
	}
	return r.snapshot(), nil
}

// StartGame moves the room from CHECKIN to ONGOING: fixes the steal
// caps, deals a uniformly random turn order (Fisher-Yates) over all
// current participants, and hands the first turn to its front. Owner
// only.
func (r *Room) StartGame(ctx context.Context, userID uuid.UUID, maxStealPerUser, maxStealPerGame int) (Snapshot, error) {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	if userID != r.OwnerID {
		return Snapshot{}, ErrNotOwner
	}
	if r.Status != models.RoomCheckin {
		return Snapshot{}, ErrInvalidState
	}
	if maxStealPerUser < 0 || maxStealPerGame < 0 {
		return Snapshot{}, ErrInvalidCaps
	}
	if len(r.Participants) == 0 {
		return Snapshot{}, ErrNoParticipants
	}

	order := make([]uuid.UUID, len(r.Participants))
	for i, p := range r.Participants {
		order[i] = p.UserID
	}
	rand.Shuffle(len(order), func(i, j int) {
		order[i], order[j] = order[j], order[i]
	})

	r.TurnOrder = order
	r.CurrentTurn = order[0]
	r.MaxStealPerUser = maxStealPerUser
	r.MaxStealPerGame = maxStealPerGame
	r.TotalSteals = 0
	r.Status = models.RoomOngoing

	if err := r.persistRoom(ctx); err != nil {
		return Snapshot{}, err
	}
	if err := r.appendLog(ctx, userID, "Game started, participants can now pick or steal gifts"); err != nil {
		return Snapshot{}, err
	}
	return r.snapshot(), nil
}

// Join adds the user as a participant, or reactivates their existing
// membership. Idempotent under repeated joins.
func (r *Room) Join(ctx context.Context, user *models.User) (Snapshot, error) {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	if p := r.participant(user.ID); p != nil {
		if p.Connection != models.Connected {
			p.Connection = models.Connected
			if err := r.persistParticipant(ctx, p); err != nil {
				return Snapshot{}, err
			}
		}
		return r.snapshot(), nil
	}

	p := &models.Participant{
		ID:         uuid.New(),
		RoomID:     r.ID,
		UserID:     user.ID,
		Name:       user.Name,
		Connection: models.Connected,
		JoinedAt:   time.Now(),
	}
	if err := r.store.CreateParticipant(ctx, p); err != nil {
		return Snapshot{}, fmt.Errorf("persist participant: %w", err)
	}
	r.Participants = append(r.Participants, p)
	return r.snapshot(), nil
}

// Leave marks the participant disconnected. If the owner leaves,
// ownership transfers to the earliest-joined connected participant;
// with nobody left connected the room finishes (it is never deleted,
// so the session stays inspectable).
func (r *Room) Leave(ctx context.Context, userID uuid.UUID) (Snapshot, error) {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	p := r.participant(userID)
	if p == nil {
		return Snapshot{}, ErrNotMember
	}

	p.Connection = models.Disconnected
	if err := r.persistParticipant(ctx, p); err != nil {
		return Snapshot{}, err
	}

	if r.OwnerID == userID {
		if next := r.firstConnected(); next != nil {
			r.OwnerID = next.UserID
		} else if r.Status != models.RoomFinished {
			r.Status = models.RoomFinished
			r.CurrentTurn = uuid.Nil
		}
		if err := r.persistRoom(ctx); err != nil {
			return Snapshot{}, err
		}
	}
	return r.snapshot(), nil
}

// participant returns the membership record for userID, or nil.
// Assumes lock is held by caller.
func (r *Room) participant(userID uuid.UUID) *models.Participant {
	for _, p := range r.Participants {
		if p.UserID == userID {
			return p
		}
	}
	return nil
}

// firstConnected returns the earliest-joined connected participant, or
// nil. Join order makes the owner-transfer tie-break deterministic.
// Assumes lock is held by caller.
func (r *Room) firstConnected() *models.Participant {
	for _, p := range r.Participants {
		if p.Connection == models.Connected {
			return p
		}
	}
	return nil
}

// gift returns the room's gift with the given id, or nil.
// Assumes lock is held by caller.
func (r *Room) gift(giftID uuid.UUID) *models.Gift {
	for _, g := range r.Gifts {
		if g.ID == giftID {
			return g
		}
	}
	return nil
}

// record flattens the aggregate's scalar state into its durable form.
// Assumes lock is held by caller.
func (r *Room) record() *models.Room {
	return &models.Room{
		ID:              r.ID,
		Code:            r.Code,
		Status:          r.Status,
		OwnerID:         r.OwnerID,
		TurnOrder:       append([]uuid.UUID(nil), r.TurnOrder...),
		CurrentTurn:     r.CurrentTurn,
		TotalSteals:     r.TotalSteals,
		MaxStealPerUser: r.MaxStealPerUser,
		MaxStealPerGame: r.MaxStealPerGame,
		MaxStealPerGift: r.MaxStealPerGift,
		CreatedAt:       r.CreatedAt,
	}
}

// persistRoom writes the room record through the entity store.
// Assumes lock is held by caller.
func (r *Room) persistRoom(ctx context.Context) error {
	if err := r.store.UpdateRoom(ctx, r.record()); err != nil {
		return fmt.Errorf("persist room: %w", err)
	}
	return nil
}

// persistParticipant writes one participant record through the store.
// Assumes lock is held by caller.
func (r *Room) persistParticipant(ctx context.Context, p *models.Participant) error {
	if err := r.store.UpdateParticipant(ctx, p); err != nil {
		return fmt.Errorf("persist participant: %w", err)
	}
	return nil
}

// persistGift writes one gift record through the store.
// Assumes lock is held by caller.
func (r *Room) persistGift(ctx context.Context, g *models.Gift) error {
	if err := r.store.UpdateGift(ctx, g); err != nil {
		return fmt.Errorf("persist gift: %w", err)
	}
	return nil
}
