package cache

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/wfunc/triviaserver/models"
)

const (
	leaderboardKey  = "trivia:leaderboard"
	playerKeyPrefix = "trivia:player:"
)

// Leaderboard keeps total scores in a sorted set and the display fields
// plus counters in one hash per player.
type Leaderboard struct {
	client redis.UniversalClient
}

func NewLeaderboard(client redis.UniversalClient) *Leaderboard {
	return &Leaderboard{client: client}
}

func playerKey(userID string) string { return playerKeyPrefix + userID }

// RecordGame adds every row of a finished game to the board.
func (l *Leaderboard) RecordGame(ctx context.Context, summary models.GameSummary) error {
	if len(summary.Scores) == 0 {
		return nil
	}
	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, row := range summary.Scores {
			pipe.ZIncrBy(ctx, leaderboardKey, float64(row.Score), row.UserID)
			key := playerKey(row.UserID)
			pipe.HSet(ctx, key, "name", row.Name, "avatar", row.AvatarURL)
			pipe.HIncrBy(ctx, key, "games", 1)
			pipe.HIncrBy(ctx, key, "correct", int64(row.CorrectAnswers))
			pipe.HIncrBy(ctx, key, "answered", int64(row.AnsweredQuestions))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("update leaderboard: %w", err)
	}
	return nil
}

// Top returns the n best players by total score.
func (l *Leaderboard) Top(ctx context.Context, n int) ([]models.LeaderboardEntry, error) {
	if n <= 0 {
		return nil, nil
	}
	members, err := l.client.ZRevRangeWithScores(ctx, leaderboardKey, 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("read leaderboard: %w", err)
	}
	if len(members) == 0 {
		return nil, nil
	}

	pipe := l.client.Pipeline()
	details := make([]*redis.MapStringStringCmd, len(members))
	for i, m := range members {
		details[i] = pipe.HGetAll(ctx, playerKey(fmt.Sprint(m.Member)))
	}
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, fmt.Errorf("read player details: %w", err)
	}

	out := make([]models.LeaderboardEntry, 0, len(members))
	for i, m := range members {
		out = append(out, entryFrom(i+1, fmt.Sprint(m.Member), m.Score, details[i].Val()))
	}
	return out, nil
}

func entryFrom(rank int, userID string, score float64, fields map[string]string) models.LeaderboardEntry {
	games := atoi(fields["games"])
	correct := atoi(fields["correct"])
	answered := atoi(fields["answered"])
	e := models.LeaderboardEntry{
		Rank:        rank,
		UserID:      userID,
		Name:        fields["name"],
		AvatarURL:   fields["avatar"],
		TotalScore:  int64(score),
		GamesPlayed: games,
	}
	if games > 0 {
		e.AverageScore = int((e.TotalScore + int64(games)/2) / int64(games))
	}
	if answered > 0 {
		e.Accuracy = float64(correct) * 100 / float64(answered)
	}
	return e
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

// Reset drops the whole board.
func (l *Leaderboard) Reset(ctx context.Context) error {
	ids, err := l.client.ZRange(ctx, leaderboardKey, 0, -1).Result()
	if err != nil {
		return err
	}
	keys := []string{leaderboardKey}
	for _, id := range ids {
		keys = append(keys, playerKey(id))
	}
	return l.client.Del(ctx, keys...).Err()
}
