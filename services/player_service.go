// services/player_service.go
package services

import (
	"context"
	"fmt"

	"github.com/wfunc/triviaserver/logger"
	"github.com/wfunc/triviaserver/models"
	"github.com/wfunc/triviaserver/persistence"
)

// LeaderboardCache is the fast path for the global ranking.
type LeaderboardCache interface {
	RecordGame(ctx context.Context, summary models.GameSummary) error
	Top(ctx context.Context, n int) ([]models.LeaderboardEntry, error)
}

// PlayerService 处理对局结果，并提供排行榜和玩家统计查询
type PlayerService struct {
	store           persistence.Store
	board           LeaderboardCache
	leaderboardSize int
}

func NewPlayerService(store persistence.Store, board LeaderboardCache, leaderboardSize int) *PlayerService {
	if leaderboardSize <= 0 {
		leaderboardSize = 10
	}
	return &PlayerService{store: store, board: board, leaderboardSize: leaderboardSize}
}

// RecordGame 保存对局结果。数据库写入失败时不更新排行榜缓存
func (s *PlayerService) RecordGame(ctx context.Context, summary models.GameSummary) error {
	if err := s.store.SaveGame(ctx, summary); err != nil {
		return fmt.Errorf("save game %s: %w", summary.RoomID, err)
	}
	if s.board != nil {
		if err := s.board.RecordGame(ctx, summary); err != nil {
			logger.Log.Warnw("leaderboard cache update failed", "room", summary.RoomID, "error", err)
		}
	}
	logger.Log.Infow("game recorded", "room", summary.RoomID, "players", len(summary.Scores),
		"duration", summary.Duration().String())
	return nil
}

// GetLeaderboard 读取排行榜，缓存不可用时回退到数据库
func (s *PlayerService) GetLeaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	if limit <= 0 || limit > s.leaderboardSize {
		limit = s.leaderboardSize
	}
	if s.board != nil {
		entries, err := s.board.Top(ctx, limit)
		if err == nil && len(entries) > 0 {
			return entries, nil
		}
		if err != nil {
			logger.Log.Warnw("leaderboard cache read failed, using store", "error", err)
		}
	}
	return s.store.TopPlayers(ctx, limit)
}

func (s *PlayerService) GetPlayerStats(ctx context.Context, userID string) (models.PlayerStats, error) {
	return s.store.GetPlayerStats(ctx, userID)
}
