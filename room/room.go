// room/room.go
package room

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/wfunc/triviaserver/models"
	"github.com/wfunc/triviaserver/state"
)

// Room 是一局问答游戏的核心结构。
// 除 Lock/Unlock 外的方法都要求调用方已持有房间锁，
// 这样客户端动作与计时器回调在同一把锁上线性化。
type Room struct {
	ID        string
	HostID    string
	Settings  models.Settings
	CreatedAt time.Time

	mutex        sync.Mutex
	stateMachine *state.BaseStateMachine
	players      []*models.Player // insertion order
	questions    []models.Question
	currentIndex int
	answers      map[int]map[string]models.AnswerRecord
	scores       []models.ScoreRow
	closedRounds map[int]bool
	startedAt    time.Time
	closed       atomic.Bool

	// Timer bookkeeping owned by the coordinator.
	CountdownGen uint64
	ResultsTimer int64
	ResultsGen   uint64
}

// NewRoom 创建一个处于 waiting 状态的空房间
func NewRoom(id, hostID string, settings models.Settings) *Room {
	return &Room{
		ID:           id,
		HostID:       hostID,
		Settings:     settings,
		CreatedAt:    time.Now(),
		stateMachine: state.NewRoomStateMachine(),
		answers:      make(map[int]map[string]models.AnswerRecord),
		closedRounds: make(map[int]bool),
	}
}

func (r *Room) Lock()   { r.mutex.Lock() }
func (r *Room) Unlock() { r.mutex.Unlock() }

// Closed reports whether the room was removed from its registry.
func (r *Room) Closed() bool { return r.closed.Load() }

func (r *Room) markClosed() { r.closed.Store(true) }

// --- 状态 ---

func (r *Room) Status() state.Status { return r.stateMachine.Current() }

func (r *Room) ChangeStatus(to state.Status) error { return r.stateMachine.ChangeState(to) }

// --- 玩家 ---

// AddPlayer appends the player unless the user is already a member.
func (r *Room) AddPlayer(p models.Player) bool {
	if r.HasPlayer(p.ID) {
		return false
	}
	player := p
	r.players = append(r.players, &player)
	if r.HostID == "" {
		r.HostID = p.ID
	}
	return true
}

// RemovePlayer removes the member and hands the host role to the first
// remaining player when the host leaves.
func (r *Room) RemovePlayer(userID string) bool {
	for i, p := range r.players {
		if p.ID != userID {
			continue
		}
		r.players = append(r.players[:i], r.players[i+1:]...)
		if r.HostID == userID && len(r.players) > 0 {
			r.HostID = r.players[0].ID
		}
		return true
	}
	return false
}

func (r *Room) HasPlayer(userID string) bool {
	for _, p := range r.players {
		if p.ID == userID {
			return true
		}
	}
	return false
}

func (r *Room) PlayerCount() int { return len(r.players) }

// Players returns a copy of the members in join order.
func (r *Room) Players() []models.Player {
	players := make([]models.Player, len(r.players))
	for i, p := range r.players {
		players[i] = *p
	}
	return players
}

// --- 游戏过程 ---

// Begin assigns the question set and zeroes a score row for every current member.
func (r *Room) Begin(questions []models.Question, now time.Time) {
	r.questions = append([]models.Question(nil), questions...)
	r.currentIndex = 0
	r.answers = make(map[int]map[string]models.AnswerRecord)
	r.closedRounds = make(map[int]bool)
	r.startedAt = now

	r.scores = make([]models.ScoreRow, 0, len(r.players))
	for _, p := range r.players {
		r.scores = append(r.scores, newScoreRow(p))
		p.Score, p.CorrectAnswers, p.AnsweredQuestions = 0, 0, 0
	}
}

// EnsureScoreRow appends a zeroed row for a member that joined while a game is running.
// The table of an ended game is final.
func (r *Room) EnsureScoreRow(userID string) bool {
	if status := r.Status(); status != state.StatusQuestion && status != state.StatusResults {
		return false
	}
	for _, row := range r.scores {
		if row.UserID == userID {
			return false
		}
	}
	for _, p := range r.players {
		if p.ID == userID {
			r.scores = append(r.scores, newScoreRow(p))
			return true
		}
	}
	return false
}

func newScoreRow(p *models.Player) models.ScoreRow {
	return models.ScoreRow{UserID: p.ID, Name: p.Name, AvatarURL: p.AvatarURL}
}

func (r *Room) Questions() []models.Question {
	return append([]models.Question(nil), r.questions...)
}

func (r *Room) QuestionCount() int { return len(r.questions) }

func (r *Room) CurrentIndex() int { return r.currentIndex }

func (r *Room) CurrentQuestion() (models.Question, bool) {
	if r.currentIndex < 0 || r.currentIndex >= len(r.questions) {
		return models.Question{}, false
	}
	return r.questions[r.currentIndex], true
}

// RecordAnswer stores the submission, overwriting an earlier one from the same user.
func (r *Room) RecordAnswer(questionIndex int, userID, answer string) {
	round, ok := r.answers[questionIndex]
	if !ok {
		round = make(map[string]models.AnswerRecord)
		r.answers[questionIndex] = round
	}
	round[userID] = models.AnswerRecord{UserID: userID, SubmittedAnswer: answer}
}

// Answers returns a copy of the submissions for one round keyed by user id.
func (r *Room) Answers(questionIndex int) map[string]models.AnswerRecord {
	round := r.answers[questionIndex]
	out := make(map[string]models.AnswerRecord, len(round))
	for k, v := range round {
		out[k] = v
	}
	return out
}

// AllMembersAnswered reports whether every current member has a record for the round.
func (r *Room) AllMembersAnswered(questionIndex int) bool {
	if len(r.players) == 0 {
		return false
	}
	round := r.answers[questionIndex]
	for _, p := range r.players {
		if _, ok := round[p.ID]; !ok {
			return false
		}
	}
	return true
}

func (r *Room) RoundClosed(questionIndex int) bool { return r.closedRounds[questionIndex] }

// MarkRoundClosed returns false if the round was already closed.
func (r *Room) MarkRoundClosed(questionIndex int) bool {
	if r.closedRounds[questionIndex] {
		return false
	}
	r.closedRounds[questionIndex] = true
	return true
}

// SetScores replaces the running totals and mirrors them onto the member records.
func (r *Room) SetScores(scores []models.ScoreRow) {
	r.scores = append([]models.ScoreRow(nil), scores...)
	byUser := make(map[string]models.ScoreRow, len(r.scores))
	for _, row := range r.scores {
		byUser[row.UserID] = row
	}
	for _, p := range r.players {
		if row, ok := byUser[p.ID]; ok {
			p.Score = row.Score
			p.CorrectAnswers = row.CorrectAnswers
			p.AnsweredQuestions = row.AnsweredQuestions
		}
	}
}

func (r *Room) Scores() []models.ScoreRow {
	return append([]models.ScoreRow(nil), r.scores...)
}

// Advance moves to the next question; it reports whether one exists.
func (r *Room) Advance() bool {
	if r.currentIndex < len(r.questions) {
		r.currentIndex++
	}
	return r.currentIndex < len(r.questions)
}

// Summary builds the finished-game record for the result store.
func (r *Room) Summary(finishedAt time.Time) models.GameSummary {
	return models.GameSummary{
		RoomID:     r.ID,
		HostID:     r.HostID,
		Settings:   r.Settings,
		Questions:  r.Questions(),
		Scores:     r.Scores(),
		StartedAt:  r.startedAt,
		FinishedAt: finishedAt,
	}
}

// Snapshot 房间的只读快照，用于 HTTP / RPC 查询
type Snapshot struct {
	ID                   string            `json:"roomId"`
	HostID               string            `json:"hostId"`
	Status               state.Status      `json:"status"`
	Settings             models.Settings   `json:"settings"`
	Players              []models.Player   `json:"players"`
	QuestionCount        int               `json:"questionCount"`
	CurrentQuestionIndex int               `json:"currentQuestionIndex"`
	Scores               []models.ScoreRow `json:"scores"`
	TimeLeft             int               `json:"timeLeft"`
	CreatedAt            time.Time         `json:"createdAt"`
}

func (r *Room) Snapshot() Snapshot {
	return Snapshot{
		ID:                   r.ID,
		HostID:               r.HostID,
		Status:               r.Status(),
		Settings:             r.Settings,
		Players:              r.Players(),
		QuestionCount:        len(r.questions),
		CurrentQuestionIndex: r.currentIndex,
		Scores:               r.Scores(),
		CreatedAt:            r.CreatedAt,
	}
}
