// persistence/interface.go
package persistence

import (
	"context"
	"errors"

	"github.com/wfunc/triviaserver/models"
)

// Store 结果存储接口
type Store interface {
	// SaveGame writes the game record and folds every score row into the
	// players' running stats in one transaction.
	SaveGame(ctx context.Context, summary models.GameSummary) error
	GetPlayerStats(ctx context.Context, userID string) (models.PlayerStats, error)
	TopPlayers(ctx context.Context, limit int) ([]models.LeaderboardEntry, error)
	Close() error
}

// QuestionBank serves stored questions.
type QuestionBank interface {
	Questions(ctx context.Context, category, difficulty string, count int) ([]models.Question, error)
	SeedQuestions(ctx context.Context, questions []models.Question) (int, error)
}

// 错误定义
var (
	ErrRecordNotFound    = errors.New("record not found")
	ErrNotEnoughQuestion = errors.New("not enough questions in bank")
)

const recentGamesLimit = 10

// StatsFromModel derives the averages the API reports from the stored totals.
func StatsFromModel(m models.GormPlayerStats) models.PlayerStats {
	return models.PlayerStats{
		UserID:         m.UserID,
		TotalGames:     m.TotalGames,
		TotalScore:     m.TotalScore,
		CorrectAnswers: m.CorrectAnswers,
		TotalQuestions: m.TotalQuestions,
		AverageScore:   averageScore(m.TotalScore, m.TotalGames),
		Accuracy:       accuracy(m.CorrectAnswers, m.TotalQuestions),
	}
}

func averageScore(total int64, games int) int {
	if games <= 0 {
		return 0
	}
	return int((total + int64(games)/2) / int64(games))
}

// accuracy 正确率（百分比）
func accuracy(correct, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(correct) * 100 / float64(total)
}

// LeaderboardFromModels ranks rows that are already ordered by score.
func LeaderboardFromModels(rows []models.GormPlayerStats) []models.LeaderboardEntry {
	out := make([]models.LeaderboardEntry, 0, len(rows))
	for i, m := range rows {
		out = append(out, models.LeaderboardEntry{
			Rank:         i + 1,
			UserID:       m.UserID,
			Name:         m.Name,
			AvatarURL:    m.AvatarURL,
			TotalScore:   m.TotalScore,
			GamesPlayed:  m.TotalGames,
			AverageScore: averageScore(m.TotalScore, m.TotalGames),
			Accuracy:     accuracy(m.CorrectAnswers, m.TotalQuestions),
		})
	}
	return out
}

// NewGameRecord converts a finished game into its row plus one result per player.
func NewGameRecord(s models.GameSummary) models.GormGameRecord {
	record := models.GormGameRecord{
		RoomID:        s.RoomID,
		HostID:        s.HostID,
		Category:      s.Settings.Category,
		Difficulty:    s.Settings.Difficulty,
		QuestionCount: len(s.Questions),
		Duration:      int(s.Duration().Seconds()),
		FinishedAt:    s.FinishedAt,
	}
	for _, row := range s.Scores {
		record.Results = append(record.Results, models.GormGameResult{
			UserID:            row.UserID,
			Name:              row.Name,
			Score:             row.Score,
			CorrectAnswers:    row.CorrectAnswers,
			AnsweredQuestions: row.AnsweredQuestions,
		})
	}
	return record
}
