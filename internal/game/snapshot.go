// internal/game/snapshot.go
package game

import (
	"time"

	"github.com/google/uuid"

	"giftswap/internal/models"
)

// Snapshot is the full game state broadcast to every room member after
// a mutation. It is a value type assembled under the room lock, so a
// snapshot returned by an operation is exactly the state that operation
// committed.
type Snapshot struct {
	RoomID          uuid.UUID           `json:"roomId"`
	Code            string              `json:"code"`
	Status          models.RoomStatus   `json:"status"`
	OwnerID         uuid.UUID           `json:"ownerId"`
	OwnerName       string              `json:"ownerName,omitempty"`
	CurrentTurn     *uuid.UUID          `json:"currentTurn"`
	TurnOrder       []uuid.UUID         `json:"turnOrder"`
	TotalSteals     int                 `json:"totalStealsSoFar"`
	MaxStealPerUser int                 `json:"maxStealPerUser"`
	MaxStealPerGame int                 `json:"maxStealPerGame"`
	MaxStealPerGift int                 `json:"maxStealPerGift"`
	Participants    []ParticipantState  `json:"participants"`
	Gifts           []GiftState         `json:"gifts"`
	Log             []LogLine           `json:"log"`
}

// ParticipantState is one participant as seen in a snapshot.
// Participants are listed in join order.
type ParticipantState struct {
	UserID         uuid.UUID  `json:"userId"`
	Name           string     `json:"name"`
	Connection     string     `json:"connectionStatus"`
	CheckedIn      bool       `json:"checkedIn"`
	GiftID         *uuid.UUID `json:"giftId"`         // contributed gift
	ReceivedGiftID *uuid.UUID `json:"receivedGiftId"` // currently held gift
	Steals         int        `json:"steals"`
}

// GiftState is one gift as seen in a snapshot.
type GiftState struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	AddedBy     uuid.UUID  `json:"addedBy"`
	ReceivedBy  *uuid.UUID `json:"receivedBy"`
	StolenCount int        `json:"stolenCount"`
	Locked      bool       `json:"isLocked"`
}

// LogLine is one action-log entry as seen in a snapshot.
type LogLine struct {
	Index  int       `json:"index"`
	Action string    `json:"action"`
	At     time.Time `json:"at"`
}

// State returns a consistent snapshot of the room.
func (r *Room) State() Snapshot {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	return r.snapshot()
}

// snapshot assembles the broadcast payload from the aggregate.
// Assumes lock is held by caller.
func (r *Room) snapshot() Snapshot {
	s := Snapshot{
		RoomID:          r.ID,
		Code:            r.Code,
		Status:          r.Status,
		OwnerID:         r.OwnerID,
		CurrentTurn:     nullableID(r.CurrentTurn),
		TurnOrder:       append([]uuid.UUID{}, r.TurnOrder...),
		TotalSteals:     r.TotalSteals,
		MaxStealPerUser: r.MaxStealPerUser,
		MaxStealPerGame: r.MaxStealPerGame,
		MaxStealPerGift: r.MaxStealPerGift,
		Participants:    make([]ParticipantState, 0, len(r.Participants)),
		Gifts:           make([]GiftState, 0, len(r.Gifts)),
		Log:             make([]LogLine, 0, len(r.Log)),
	}

	heldBy := make(map[uuid.UUID]uuid.UUID, len(r.Gifts)) // userID -> gift held
	for _, g := range r.Gifts {
		if g.ReceivedBy != uuid.Nil {
			heldBy[g.ReceivedBy] = g.ID
		}
	}

	for _, p := range r.Participants {
		if p.UserID == r.OwnerID {
			s.OwnerName = p.Name
		}
		ps := ParticipantState{
			UserID:     p.UserID,
			Name:       p.Name,
			Connection: string(p.Connection),
			CheckedIn:  p.CheckedIn,
			GiftID:     nullableID(p.GiftID),
			Steals:     p.Steals,
		}
		if held, ok := heldBy[p.UserID]; ok {
			ps.ReceivedGiftID = nullableID(held)
		}
		s.Participants = append(s.Participants, ps)
	}

	for _, g := range r.Gifts {
		s.Gifts = append(s.Gifts, GiftState{
			ID:          g.ID,
			Name:        g.Name,
			AddedBy:     g.AddedBy,
			ReceivedBy:  nullableID(g.ReceivedBy),
			StolenCount: g.StolenCount,
			Locked:      g.Locked,
		})
	}

	for _, e := range r.Log {
		s.Log = append(s.Log, LogLine{Index: e.Index, Action: e.Action, At: e.At})
	}
	return s
}

// nullableID maps uuid.Nil to a JSON null.
func nullableID(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}
