// internal/game/errors.go
package game

import "errors"

// Code classifies a game error for the wire protocol. Every failure a
// player can cause maps to exactly one code; the session layer sends it
// back to the acting connection and nobody else.
type Code string

const (
	CodeNotFound       Code = "not_found"
	CodeForbidden      Code = "forbidden"
	CodeInvalidState   Code = "invalid_state"
	CodeNotYourTurn    Code = "not_your_turn"
	CodeGiftTaken      Code = "gift_taken"
	CodeGiftUnowned    Code = "gift_unowned"
	CodeSelfSteal      Code = "self_steal"
	CodeOwnGift        Code = "own_gift"
	CodeGiftStealLimit Code = "gift_steal_limit"
	CodeUserStealLimit Code = "user_steal_limit"
	CodeGameStealLimit Code = "game_steal_limit"
	CodeConflict       Code = "conflict"
	CodeNotMember      Code = "not_member"
	CodePrecondition   Code = "precondition_failed"
	CodeInternal       Code = "internal"
)

// Error is a recoverable game-rule violation. It never crashes the
// room's session; it is returned to the requesting connection as a
// structured failure.
type Error struct {
	Code Code
	msg  string
}

func (e *Error) Error() string { return e.msg }

var (
	ErrRoomNotFound = &Error{CodeNotFound, "room not found"}
	ErrUserNotFound = &Error{CodeNotFound, "user not found"}
	ErrGiftNotFound = &Error{CodeNotFound, "gift not found"}

	ErrNotOwner     = &Error{CodeForbidden, "only the room owner can do that"}
	ErrInvalidState = &Error{CodeInvalidState, "room is not in a valid state for that action"}
	ErrNotYourTurn  = &Error{CodeNotYourTurn, "it is not your turn"}
	ErrNotMember    = &Error{CodeNotMember, "user is not in this room"}

	ErrGiftTaken   = &Error{CodeGiftTaken, "gift has already been taken"}
	ErrGiftUnowned = &Error{CodeGiftUnowned, "gift is not currently held by anyone"}
	ErrSelfSteal   = &Error{CodeSelfSteal, "cannot steal a gift you are holding"}
	ErrOwnGift     = &Error{CodeOwnGift, "cannot steal the gift you contributed"}

	ErrGiftStealLimit = &Error{CodeGiftStealLimit, "this gift cannot be stolen again"}
	ErrUserStealLimit = &Error{CodeUserStealLimit, "you have no steals remaining"}
	ErrGameStealLimit = &Error{CodeGameStealLimit, "the game's steal limit has been reached"}

	ErrGiftAlreadyAdded = &Error{CodePrecondition, "you have already added a gift"}
	ErrNoGift           = &Error{CodePrecondition, "you must add a gift before checking in"}
	ErrNoParticipants   = &Error{CodePrecondition, "cannot start a game with no participants"}
	ErrInvalidCaps      = &Error{CodePrecondition, "steal limits must not be negative"}
)

// CodeOf extracts the wire code from err, or CodeInternal for anything
// that is not a game Error (store failures and the like).
func CodeOf(err error) Code {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Code
	}
	return CodeInternal
}
