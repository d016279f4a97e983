package game

import (
	"github.com/wfunc/triviaserver/models"
)

// EventType names an outbound room broadcast.
type EventType string

const (
	EventPlayerJoined  EventType = "player-joined"
	EventPlayerLeft    EventType = "player-left"
	EventGameStarted   EventType = "game-started"
	EventTimerUpdate   EventType = "timer-update"
	EventQuestionEnded EventType = "question-ended"
	EventNextQuestion  EventType = "next-question"
	EventGameEnded     EventType = "game-ended"
)

// Event is one broadcast addressed to every member of RoomID.
type Event struct {
	RoomID  string
	Type    EventType
	Payload any
}

type PlayersPayload struct {
	Players []models.Player `json:"players"`
}

type GameStartedPayload struct {
	Questions []models.Question `json:"questions"`
}

type TimerUpdatePayload struct {
	TimeLeft int `json:"timeLeft"`
}

type QuestionEndedPayload struct {
	CorrectAnswer string            `json:"correctAnswer"`
	Scores        []models.ScoreRow `json:"scores"`
}

type NextQuestionPayload struct {
	QuestionIndex int `json:"questionIndex"`
}

type GameEndedPayload struct{}

// Emitter delivers room broadcasts. Emit is called while the room is locked,
// so implementations must not block and must not call back into the Coordinator.
// Events for one room are emitted in order.
type Emitter interface {
	Emit(ev Event)
}

// EmitterFunc adapts a function to the Emitter interface.
type EmitterFunc func(ev Event)

func (f EmitterFunc) Emit(ev Event) { f(ev) }
