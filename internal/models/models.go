// internal/models/models.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// RoomStatus is the lifecycle state of a room. Transitions are strictly
// linear: NOT_STARTED -> CHECKIN -> ONGOING -> FINISHED.
type RoomStatus string

const (
	RoomNotStarted RoomStatus = "NOT_STARTED"
	RoomCheckin    RoomStatus = "CHECKIN"
	RoomOngoing    RoomStatus = "ONGOING"
	RoomFinished   RoomStatus = "FINISHED"
)

// ConnectionStatus tracks whether a participant currently holds a live
// connection to the room.
type ConnectionStatus string

const (
	Connected    ConnectionStatus = "CONNECTED"
	Disconnected ConnectionStatus = "DISCONNECTED"
)

// User is a display-name identity. Names are unique; creation with a
// taken name is rejected. Users are shared across rooms, never owned by
// one.
type User struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// Room is the durable record of a session aggregate. The live turn
// queue and collections are managed by the game package; this struct is
// what the entity store persists.
type Room struct {
	ID          uuid.UUID   `json:"id"`
	Code        string      `json:"code"`
	Status      RoomStatus  `json:"status"`
	OwnerID     uuid.UUID   `json:"ownerId"`
	TurnOrder   []uuid.UUID `json:"turnOrder"`
	CurrentTurn uuid.UUID   `json:"currentTurn"` // uuid.Nil when no one's turn.
	TotalSteals int         `json:"totalSteals"`

	// Steal caps. MaxStealPerUser and MaxStealPerGame are fixed at game
	// start; MaxStealPerGift is fixed at room creation.
	MaxStealPerUser int `json:"maxStealPerUser"`
	MaxStealPerGame int `json:"maxStealPerGame"`
	MaxStealPerGift int `json:"maxStealPerGift"`

	CreatedAt time.Time `json:"createdAt"`
}

// Participant is a user's membership and per-session state within a
// room. Participants are created on room creation or first join and
// live as long as the room does.
type Participant struct {
	ID     uuid.UUID `json:"id"`
	RoomID uuid.UUID `json:"roomId"`
	UserID uuid.UUID `json:"userId"`

	// Name is denormalized from the user record so log lines and
	// snapshots never need a user lookup inside the serialized slot.
	Name string `json:"name"`

	Connection ConnectionStatus `json:"connection"`
	CheckedIn  bool             `json:"checkedIn"`
	GiftID     uuid.UUID        `json:"giftId"` // contributed gift; uuid.Nil until added.
	Steals     int              `json:"steals"`
	JoinedAt   time.Time        `json:"joinedAt"`
}

// Gift is a contributed present. AddedBy is immutable after creation;
// ReceivedBy and StolenCount change only through pick/steal. Gifts are
// never deleted during a session.
//
// Locked is persisted and carried through snapshots but read by no
// guard; it is reserved for a transfer-freeze feature that never
// shipped.
type Gift struct {
	ID          uuid.UUID `json:"id"`
	RoomID      uuid.UUID `json:"roomId"`
	Name        string    `json:"name"`
	AddedBy     uuid.UUID `json:"addedBy"`
	ReceivedBy  uuid.UUID `json:"receivedBy"` // uuid.Nil until picked.
	StolenCount int       `json:"stolenCount"`
	Locked      bool      `json:"isLocked"`
}

// LogEntry is one line of a room's append-only audit trail. Index is
// gap-free and strictly increasing from 0 within a room.
type LogEntry struct {
	RoomID uuid.UUID `json:"-"`
	Index  int       `json:"index"`
	Action string    `json:"action"`
	At     time.Time `json:"at"`
}
