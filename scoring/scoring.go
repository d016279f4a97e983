// Package scoring turns a round's submissions into updated score rows.
// Everything here is pure: no locks, no clocks, no I/O.
package scoring

import "github.com/wfunc/triviaserver/models"

// DefaultPointsPerCorrect is awarded for each correct answer.
const DefaultPointsPerCorrect = 100

type Engine struct {
	PointsPerCorrect int
}

func NewEngine(pointsPerCorrect int) Engine {
	if pointsPerCorrect <= 0 {
		pointsPerCorrect = DefaultPointsPerCorrect
	}
	return Engine{PointsPerCorrect: pointsPerCorrect}
}

// ApplyAnswer always counts the question as answered; a correct answer also
// adds one correct answer and the fixed points.
func (e Engine) ApplyAnswer(row models.ScoreRow, isCorrect bool) models.ScoreRow {
	row.AnsweredQuestions++
	if isCorrect {
		row.CorrectAnswers++
		row.Score += e.PointsPerCorrect
	}
	return row
}

// Round is the input to CloseRound.
type Round struct {
	Question models.Question
	Scores   []models.ScoreRow
	Answers  map[string]models.AnswerRecord
}

type RoundResult struct {
	CorrectAnswer string            `json:"correctAnswer"`
	Scores        []models.ScoreRow `json:"scores"`
}

// CloseRound applies every row exactly once: rows with a submission are
// graded against the question, rows without one count as answered incorrectly.
// The input slice is not modified.
func (e Engine) CloseRound(round Round) RoundResult {
	correct := round.Question.CorrectAnswer
	scores := make([]models.ScoreRow, len(round.Scores))
	for i, row := range round.Scores {
		record, answered := round.Answers[row.UserID]
		scores[i] = e.ApplyAnswer(row, answered && record.SubmittedAnswer == correct)
	}
	return RoundResult{CorrectAnswer: correct, Scores: scores}
}
