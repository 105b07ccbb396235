package app

import "errors"

var (
	ErrNotInLobby        = errors.New("game already started")
	ErrNotPlaying        = errors.New("no turn in progress")
	ErrNotYourTurn       = errors.New("not your turn")
	ErrNotOwner          = errors.New("only the room owner can start the game")
	ErrTooFewPlayers     = errors.New("not enough players to start")
	ErrRoomFull          = errors.New("room is full")
	ErrUnknownPeer       = errors.New("peer has no seat")
	ErrNoSongs           = errors.New("no songs selected")
	ErrInvalidPosition   = errors.New("position outside the timeline")
	ErrPositionTaken     = errors.New("position already taken")
	ErrNoTokens          = errors.New("no tokens left")
	ErrTokenUsed         = errors.New("token already used this window")
	ErrActiveCannotSteal = errors.New("active player cannot steal")
	ErrNoSelection       = errors.New("no position selected")
	ErrNoWindow          = errors.New("steal window is not open")

	ErrInboxFull = errors.New("host inbox full")
	ErrStopped   = errors.New("host stopped")
)

// Error codes carried by protocol.Error.
const (
	CodeBadRequest = 400
	CodeForbidden  = 403
	CodeConflict   = 409
)

// errorCode maps an intent rejection to the code sent back to the guest.
func errorCode(err error) int {
	switch {
	case errors.Is(err, ErrNotYourTurn), errors.Is(err, ErrNotOwner), errors.Is(err, ErrUnknownPeer), errors.Is(err, ErrActiveCannotSteal):
		return CodeForbidden
	case errors.Is(err, ErrNotInLobby), errors.Is(err, ErrRoomFull), errors.Is(err, ErrPositionTaken), errors.Is(err, ErrTokenUsed), errors.Is(err, ErrNoTokens):
		return CodeConflict
	default:
		return CodeBadRequest
	}
}
