package persistence

import (
	"context"
	"sort"
	"sync"

	"github.com/wfunc/triviaserver/models"
)

// MemoryStore keeps results in process memory. Used when no database is configured.
type MemoryStore struct {
	mutex  sync.RWMutex
	stats  map[string]*models.GormPlayerStats
	recent map[string][]models.RecentGame
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		stats:  make(map[string]*models.GormPlayerStats),
		recent: make(map[string][]models.RecentGame),
	}
}

func (m *MemoryStore) SaveGame(ctx context.Context, summary models.GameSummary) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mutex.Lock()
	defer m.mutex.Unlock()

	for _, row := range summary.Scores {
		s, ok := m.stats[row.UserID]
		if !ok {
			s = &models.GormPlayerStats{UserID: row.UserID}
			m.stats[row.UserID] = s
		}
		s.Name = row.Name
		s.AvatarURL = row.AvatarURL
		s.TotalGames++
		s.TotalScore += int64(row.Score)
		s.CorrectAnswers += row.CorrectAnswers
		s.TotalQuestions += row.AnsweredQuestions

		games := append([]models.RecentGame{{
			RoomID:         summary.RoomID,
			Date:           summary.FinishedAt,
			Score:          row.Score,
			CorrectAnswers: row.CorrectAnswers,
			TotalQuestions: row.AnsweredQuestions,
		}}, m.recent[row.UserID]...)
		if len(games) > recentGamesLimit {
			games = games[:recentGamesLimit]
		}
		m.recent[row.UserID] = games
	}
	return nil
}

func (m *MemoryStore) GetPlayerStats(_ context.Context, userID string) (models.PlayerStats, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	s, ok := m.stats[userID]
	if !ok {
		return models.PlayerStats{}, ErrRecordNotFound
	}
	stats := StatsFromModel(*s)
	stats.RecentGames = append([]models.RecentGame(nil), m.recent[userID]...)
	return stats, nil
}

func (m *MemoryStore) TopPlayers(_ context.Context, limit int) ([]models.LeaderboardEntry, error) {
	m.mutex.RLock()
	rows := make([]models.GormPlayerStats, 0, len(m.stats))
	for _, s := range m.stats {
		rows = append(rows, *s)
	}
	m.mutex.RUnlock()

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].TotalScore == rows[j].TotalScore {
			return rows[i].UserID < rows[j].UserID
		}
		return rows[i].TotalScore > rows[j].TotalScore
	})
	if limit >= 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return LeaderboardFromModels(rows), nil
}

func (m *MemoryStore) Close() error { return nil }
