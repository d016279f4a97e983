package game

import "errors"

var (
	ErrRoomNotFound      = errors.New("room not found")
	ErrNotMember         = errors.New("user is not a member of the room")
	ErrNotHost           = errors.New("only the host can start the game")
	ErrInvalidTransition = errors.New("action not allowed in the current room state")
	ErrNoQuestions       = errors.New("no questions to play")
	ErrGameInProgress    = errors.New("game already in progress")
	ErrNoSupplier        = errors.New("no question supplier configured")
)
