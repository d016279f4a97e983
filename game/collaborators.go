package game

import (
	"context"

	"github.com/wfunc/triviaserver/models"
)

// QuestionSupplier returns count questions for a category and difficulty.
type QuestionSupplier interface {
	Questions(ctx context.Context, category, difficulty string, count int) ([]models.Question, error)
}

// ResultSink receives one summary per finished game.
type ResultSink interface {
	RecordGame(ctx context.Context, summary models.GameSummary) error
}

// Metrics is the subset of monitoring the coordinator reports to.
type Metrics interface {
	SetActiveRooms(count int)
	IncGamesStarted()
	IncGamesFinished()
	IncAnswers()
	IncRoundsClosed(reason string)
}

type nopMetrics struct{}

func (nopMetrics) SetActiveRooms(int)     {}
func (nopMetrics) IncGamesStarted()       {}
func (nopMetrics) IncGamesFinished()      {}
func (nopMetrics) IncAnswers()            {}
func (nopMetrics) IncRoundsClosed(string) {}
