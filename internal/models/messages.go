// internal/models/messages.go
package models

import (
	"encoding/json"

	"github.com/google/uuid"
)

// ActionType names a client-initiated room action.
type ActionType string

// The closed set of actions a connection may issue. Anything else is
// rejected at the decode boundary.
const (
	ActionCreateRoom    ActionType = "create_room"
	ActionJoinRoom      ActionType = "join_room"
	ActionLeaveRoom     ActionType = "leave_room"
	ActionGetGameState  ActionType = "get_game_state"
	ActionAddGift       ActionType = "add_gift"
	ActionCheckIn       ActionType = "check_in"
	ActionStartChecking ActionType = "start_checking"
	ActionStartGame     ActionType = "start_game"
	ActionPickGift      ActionType = "pick_gift"
	ActionStealGift     ActionType = "steal_gift"
)

// Envelope is the wire frame for every inbound message. The payload is
// decoded once, into the typed struct matching Action; unknown fields
// are ignored, unknown actions are errors.
type Envelope struct {
	Action  ActionType      `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// JoinRoomPayload carries the join code for join_room.
type JoinRoomPayload struct {
	Code string `json:"code"`
}

// AddGiftPayload carries the gift's display name for add_gift.
type AddGiftPayload struct {
	Name string `json:"giftName"`
}

// StartGamePayload carries the owner-chosen steal caps for start_game.
type StartGamePayload struct {
	MaxStealPerUser int `json:"maxStealPerUser"`
	MaxStealPerGame int `json:"maxStealPerGame"`
}

// GiftActionPayload identifies the target gift for pick_gift and
// steal_gift.
type GiftActionPayload struct {
	GiftID uuid.UUID `json:"giftId"`
}
