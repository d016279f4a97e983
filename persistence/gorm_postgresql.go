// persistence/gorm_postgresql.go
package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/wfunc/triviaserver/config"
	"github.com/wfunc/triviaserver/logger"
	"github.com/wfunc/triviaserver/models"
)

// GormPostgreSQL 使用GORM的PostgreSQL实现
type GormPostgreSQL struct {
	db *gorm.DB
}

// zapWriter 把 GORM 日志转到 zap
type zapWriter struct{}

func (zapWriter) Printf(format string, args ...interface{}) {
	logger.Log.Debugf(format, args...)
}

func DSN(cfg config.PostgresConfig) string {
	sslmode := cfg.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, sslmode)
}

// NewGormPostgreSQL 创建GORM PostgreSQL数据库连接
func NewGormPostgreSQL(cfg config.PostgresConfig) (*GormPostgreSQL, error) {
	gormLogger := gormlogger.New(
		zapWriter{},
		gormlogger.Config{
			SlowThreshold:             time.Second, // 慢SQL阈值
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(postgres.Open(DSN(cfg)), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	// 设置连接池
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := autoMigrate(db); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return &GormPostgreSQL{db: db}, nil
}

func autoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.GormGameRecord{},
		&models.GormGameResult{},
		&models.GormPlayerStats{},
		&models.GormQuestion{},
	)
}

// SaveGame 保存游戏记录并累加玩家统计
func (p *GormPostgreSQL) SaveGame(ctx context.Context, summary models.GameSummary) error {
	record := NewGameRecord(summary)
	avatars := make(map[string]string, len(summary.Scores))
	for _, row := range summary.Scores {
		avatars[row.UserID] = row.AvatarURL
	}

	return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&record).Error; err != nil {
			return fmt.Errorf("create game record: %w", err)
		}
		for _, result := range record.Results {
			stats := models.GormPlayerStats{
				UserID:         result.UserID,
				Name:           result.Name,
				AvatarURL:      avatars[result.UserID],
				TotalGames:     1,
				TotalScore:     int64(result.Score),
				CorrectAnswers: result.CorrectAnswers,
				TotalQuestions: result.AnsweredQuestions,
			}
			err := tx.Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "user_id"}},
				DoUpdates: clause.Assignments(map[string]interface{}{
					"name":            stats.Name,
					"avatar_url":      stats.AvatarURL,
					"total_games":     gorm.Expr("gorm_player_stats.total_games + ?", 1),
					"total_score":     gorm.Expr("gorm_player_stats.total_score + ?", stats.TotalScore),
					"correct_answers": gorm.Expr("gorm_player_stats.correct_answers + ?", stats.CorrectAnswers),
					"total_questions": gorm.Expr("gorm_player_stats.total_questions + ?", stats.TotalQuestions),
					"updated_at":      time.Now(),
				}),
			}).Create(&stats).Error
			if err != nil {
				return fmt.Errorf("upsert stats for %s: %w", result.UserID, err)
			}
		}
		return nil
	})
}

// GetPlayerStats 获取玩家统计及最近的对局
func (p *GormPostgreSQL) GetPlayerStats(ctx context.Context, userID string) (models.PlayerStats, error) {
	db := p.db.WithContext(ctx)

	var row models.GormPlayerStats
	if err := db.Where("user_id = ?", userID).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.PlayerStats{}, ErrRecordNotFound
		}
		return models.PlayerStats{}, err
	}
	stats := StatsFromModel(row)

	var recent []struct {
		RoomID            string
		FinishedAt        time.Time
		Score             int
		CorrectAnswers    int
		AnsweredQuestions int
	}
	err := db.Table("gorm_game_results AS r").
		Select("g.room_id, g.finished_at, r.score, r.correct_answers, r.answered_questions").
		Joins("JOIN gorm_game_records AS g ON g.id = r.game_record_id").
		Where("r.user_id = ? AND r.deleted_at IS NULL", userID).
		Order("g.finished_at DESC").
		Limit(recentGamesLimit).
		Scan(&recent).Error
	if err != nil {
		return models.PlayerStats{}, fmt.Errorf("recent games: %w", err)
	}
	for _, g := range recent {
		stats.RecentGames = append(stats.RecentGames, models.RecentGame{
			RoomID:         g.RoomID,
			Date:           g.FinishedAt,
			Score:          g.Score,
			CorrectAnswers: g.CorrectAnswers,
			TotalQuestions: g.AnsweredQuestions,
		})
	}
	return stats, nil
}

// TopPlayers 按总分排名
func (p *GormPostgreSQL) TopPlayers(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	var rows []models.GormPlayerStats
	err := p.db.WithContext(ctx).
		Order("total_score DESC").
		Order("user_id").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return LeaderboardFromModels(rows), nil
}

// Questions 随机抽取题目
func (p *GormPostgreSQL) Questions(ctx context.Context, category, difficulty string, count int) ([]models.Question, error) {
	var rows []models.GormQuestion
	err := p.db.WithContext(ctx).
		Where("category = ? AND difficulty = ?", category, difficulty).
		Order("RANDOM()").
		Limit(count).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) < count {
		return nil, fmt.Errorf("%w: %s/%s has %d, want %d", ErrNotEnoughQuestion, category, difficulty, len(rows), count)
	}
	out := make([]models.Question, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.ToQuestion())
	}
	return out, nil
}

// SeedQuestions inserts the questions, skipping ids already stored.
func (p *GormPostgreSQL) SeedQuestions(ctx context.Context, questions []models.Question) (int, error) {
	if err := models.ValidateQuestions(questions); err != nil {
		return 0, err
	}
	rows := make([]models.GormQuestion, 0, len(questions))
	for _, q := range questions {
		rows = append(rows, models.NewGormQuestion(q))
	}
	if len(rows) == 0 {
		return 0, nil
	}
	result := p.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "external_id"}}, DoNothing: true}).
		Create(&rows)
	return int(result.RowsAffected), result.Error
}

// Close 关闭数据库连接
func (p *GormPostgreSQL) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
