package game

import "errors"

var (
	ErrSessionClosed     = errors.New("session_closed")
	ErrSessionExpired    = errors.New("session_expired")
	ErrShoeExhausted     = errors.New("shoe_exhausted")
	ErrIllegalTransition = errors.New("illegal_transition")
	ErrRoomUnavailable   = errors.New("room_unavailable")
	ErrNotYourTurn       = errors.New("not_your_turn")
	ErrNotParticipant    = errors.New("not_a_participant")
	ErrNotCreator        = errors.New("not_creator")
)
