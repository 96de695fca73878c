// internal/session/events.go
package session

import (
	"github.com/google/uuid"

	"giftswap/internal/game"
	"giftswap/internal/models"
)

// Message type discriminators for everything the server pushes.
const (
	TypeAck              = "ack"
	TypeRoomCreated      = "room_created"
	TypeGameState        = "game_state"
	TypeUserJoined       = "user_joined"
	TypeUserLeft         = "user_left"
	TypeParticipantCount = "participant_count"
)

// ServerMessage is the single outbound frame shape. Type selects which
// of the optional fields are populated.
type ServerMessage struct {
	Type    string            `json:"type"`
	Action  models.ActionType `json:"action,omitempty"`
	Success *bool             `json:"success,omitempty"`
	Message string            `json:"message,omitempty"`
	Code    game.Code         `json:"code,omitempty"`

	RoomCode string         `json:"roomCode,omitempty"`
	State    *game.Snapshot `json:"state,omitempty"`
	UserID   uuid.UUID      `json:"userId,omitempty"`
	Name     string         `json:"name,omitempty"`
	Count    *int           `json:"count,omitempty"`
}

func ackOK(action models.ActionType) ServerMessage {
	ok := true
	return ServerMessage{Type: TypeAck, Action: action, Success: &ok}
}

func ackErr(action models.ActionType, err error) ServerMessage {
	ok := false
	return ServerMessage{
		Type:    TypeAck,
		Action:  action,
		Success: &ok,
		Message: err.Error(),
		Code:    game.CodeOf(err),
	}
}

func stateMsg(s game.Snapshot) ServerMessage {
	return ServerMessage{Type: TypeGameState, State: &s}
}

func userJoinedMsg(userID uuid.UUID, name string) ServerMessage {
	return ServerMessage{Type: TypeUserJoined, UserID: userID, Name: name}
}

func userLeftMsg(userID uuid.UUID) ServerMessage {
	return ServerMessage{Type: TypeUserLeft, UserID: userID}
}

func countMsg(n int) ServerMessage {
	return ServerMessage{Type: TypeParticipantCount, Count: &n}
}
