// models/gorm_models.go
package models

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

// GormGameRecord 游戏记录模型，每局结束写入一条
type GormGameRecord struct {
	gorm.Model
	RoomID        string           `gorm:"index;not null"`
	HostID        string           `gorm:"not null"`
	Category      string
	Difficulty    string
	QuestionCount int
	Duration      int              `gorm:"default:0"` // 游戏时长(秒)
	FinishedAt    time.Time        `gorm:"index"`
	Results       []GormGameResult `gorm:"foreignKey:GameRecordID"`
}

// GormGameResult is one player's line in a finished game.
type GormGameResult struct {
	gorm.Model
	GameRecordID      uint   `gorm:"index;not null"`
	UserID            string `gorm:"index;not null"`
	Name              string
	Score             int
	CorrectAnswers    int
	AnsweredQuestions int
}

// GormPlayerStats 玩家累计统计
type GormPlayerStats struct {
	gorm.Model
	UserID         string `gorm:"uniqueIndex;not null"`
	Name           string
	AvatarURL      string
	TotalGames     int   `gorm:"default:0"`
	TotalScore     int64 `gorm:"default:0;index"`
	CorrectAnswers int   `gorm:"default:0"`
	TotalQuestions int   `gorm:"default:0"`
}

// GormQuestion backs the static question bank.
type GormQuestion struct {
	gorm.Model
	ExternalID    string         `gorm:"uniqueIndex;not null"`
	Text          string         `gorm:"not null"`
	Options       pq.StringArray `gorm:"type:text[];not null"`
	CorrectAnswer string         `gorm:"not null"`
	Category      string         `gorm:"index;not null"`
	Difficulty    string         `gorm:"index;not null"`
}

func (q GormQuestion) ToQuestion() Question {
	return Question{
		ID:            q.ExternalID,
		Text:          q.Text,
		Options:       []string(q.Options),
		CorrectAnswer: q.CorrectAnswer,
		Category:      q.Category,
		Difficulty:    q.Difficulty,
	}
}

func NewGormQuestion(q Question) GormQuestion {
	return GormQuestion{
		ExternalID:    q.ID,
		Text:          q.Text,
		Options:       pq.StringArray(q.Options),
		CorrectAnswer: q.CorrectAnswer,
		Category:      q.Category,
		Difficulty:    q.Difficulty,
	}
}
