// models/models.go
package models

import (
	"errors"
	"fmt"
	"time"
)

// OptionsPerQuestion is the number of choices every question carries.
const OptionsPerQuestion = 4

var ErrMalformedQuestion = errors.New("malformed question")

// Player 房间内的一名玩家，每个 (room, user) 对应一个实例
type Player struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	AvatarURL         string `json:"avatarUrl"`
	Score             int    `json:"score"`
	CorrectAnswers    int    `json:"correctAnswers"`
	AnsweredQuestions int    `json:"answeredQuestions"`
}

// Question 一道选择题，分配给房间后不可修改
type Question struct {
	ID            string   `json:"id"`
	Text          string   `json:"text"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correctAnswer"`
	Category      string   `json:"category"`
	Difficulty    string   `json:"difficulty"`
}

// Validate checks the shape invariant: four distinct options, one of which is the correct answer.
func (q Question) Validate() error {
	if len(q.Options) != OptionsPerQuestion {
		return fmt.Errorf("%w: question %q has %d options", ErrMalformedQuestion, q.ID, len(q.Options))
	}
	seen := make(map[string]struct{}, len(q.Options))
	hasCorrect := false
	for _, opt := range q.Options {
		if _, dup := seen[opt]; dup {
			return fmt.Errorf("%w: question %q repeats option %q", ErrMalformedQuestion, q.ID, opt)
		}
		seen[opt] = struct{}{}
		if opt == q.CorrectAnswer {
			hasCorrect = true
		}
	}
	if !hasCorrect {
		return fmt.Errorf("%w: question %q correct answer is not an option", ErrMalformedQuestion, q.ID)
	}
	return nil
}

// ValidateQuestions rejects the whole batch if any question fails Validate.
func ValidateQuestions(questions []Question) error {
	for i, q := range questions {
		if err := q.Validate(); err != nil {
			return fmt.Errorf("question %d: %w", i, err)
		}
	}
	return nil
}

// AnswerRecord is one player's submission for one round.
type AnswerRecord struct {
	UserID          string `json:"userId"`
	SubmittedAnswer string `json:"submittedAnswer"`
}

// ScoreRow 玩家的累计得分
type ScoreRow struct {
	UserID            string `json:"userId"`
	Name              string `json:"name"`
	AvatarURL         string `json:"avatarUrl"`
	Score             int    `json:"score"`
	CorrectAnswers    int    `json:"correctAnswers"`
	AnsweredQuestions int    `json:"answeredQuestions"`
}

// Settings are chosen by the host when a room is created.
type Settings struct {
	Category      string `json:"category"`
	Difficulty    string `json:"difficulty"`
	QuestionCount int    `json:"questionCount"`
	CustomTopic   string `json:"customTopic,omitempty"`
}

// GameSummary is emitted once per finished game for the result store.
type GameSummary struct {
	RoomID     string     `json:"roomId"`
	HostID     string     `json:"hostId"`
	Settings   Settings   `json:"settings"`
	Questions  []Question `json:"questions"`
	Scores     []ScoreRow `json:"scores"`
	StartedAt  time.Time  `json:"startedAt"`
	FinishedAt time.Time  `json:"finishedAt"`
}

// Duration 游戏时长
func (s GameSummary) Duration() time.Duration {
	return s.FinishedAt.Sub(s.StartedAt)
}

// LeaderboardEntry is one ranked row of the global leaderboard.
type LeaderboardEntry struct {
	Rank         int     `json:"rank"`
	UserID       string  `json:"userId"`
	Name         string  `json:"name"`
	AvatarURL    string  `json:"avatarUrl"`
	TotalScore   int64   `json:"totalScore"`
	GamesPlayed  int     `json:"gamesPlayed"`
	AverageScore int     `json:"averageScore"`
	Accuracy     float64 `json:"accuracy"`
}

// PlayerStats 玩家统计信息
type PlayerStats struct {
	UserID         string       `json:"userId"`
	TotalGames     int          `json:"totalGames"`
	TotalScore     int64        `json:"totalScore"`
	CorrectAnswers int          `json:"correctAnswers"`
	TotalQuestions int          `json:"totalQuestions"`
	AverageScore   int          `json:"averageScore"`
	Accuracy       float64      `json:"accuracy"`
	RecentGames    []RecentGame `json:"recentGames"`
}

type RecentGame struct {
	RoomID         string    `json:"roomId"`
	Date           time.Time `json:"date"`
	Score          int       `json:"score"`
	CorrectAnswers int       `json:"correctAnswers"`
	TotalQuestions int       `json:"totalQuestions"`
}
