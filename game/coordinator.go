package game

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wfunc/triviaserver/logger"
	"github.com/wfunc/triviaserver/models"
	"github.com/wfunc/triviaserver/room"
	"github.com/wfunc/triviaserver/scoring"
	"github.com/wfunc/triviaserver/state"
	"github.com/wfunc/triviaserver/timer"
)

const (
	CloseReasonTimeout     = "timeout"
	CloseReasonAllAnswered = "all_answered"

	resultSinkTimeout = 10 * time.Second
)

// Options configures round timing and defaults for rooms created by a join.
type Options struct {
	TickInterval      time.Duration
	QuestionTicks     int
	ResultsTicks      int
	PointsPerCorrect  int
	DefaultCategory   string
	DefaultDifficulty string
	DefaultCount      int
}

func (o Options) withDefaults() Options {
	if o.TickInterval <= 0 {
		o.TickInterval = time.Second
	}
	if o.QuestionTicks <= 0 {
		o.QuestionTicks = 15
	}
	if o.ResultsTicks <= 0 {
		o.ResultsTicks = 5
	}
	if o.DefaultCategory == "" {
		o.DefaultCategory = "general"
	}
	if o.DefaultDifficulty == "" {
		o.DefaultDifficulty = "medium"
	}
	if o.DefaultCount <= 0 {
		o.DefaultCount = 5
	}
	return o
}

// Coordinator owns every room's lifecycle: membership, the round state
// machine, the question countdown and scoring. All mutations of a room happen
// under that room's lock, including timer callbacks.
type Coordinator struct {
	rooms     *room.Registry
	scheduler timer.Scheduler
	countdown *timer.Countdown
	engine    scoring.Engine
	emitter   Emitter
	supplier  QuestionSupplier
	sink      ResultSink
	metrics   Metrics
	opts      Options
	now       func() time.Time
}

type Option func(*Coordinator)

func WithSupplier(s QuestionSupplier) Option { return func(c *Coordinator) { c.supplier = s } }

func WithResultSink(s ResultSink) Option { return func(c *Coordinator) { c.sink = s } }

func WithMetrics(m Metrics) Option { return func(c *Coordinator) { c.metrics = m } }

func WithClock(now func() time.Time) Option { return func(c *Coordinator) { c.now = now } }

func NewCoordinator(rooms *room.Registry, scheduler timer.Scheduler, emitter Emitter, opts Options, options ...Option) *Coordinator {
	opts = opts.withDefaults()
	c := &Coordinator{
		rooms:     rooms,
		scheduler: scheduler,
		countdown: timer.NewCountdown(scheduler, opts.TickInterval),
		engine:    scoring.NewEngine(opts.PointsPerCorrect),
		emitter:   emitter,
		metrics:   nopMetrics{},
		opts:      opts,
		now:       time.Now,
	}
	for _, o := range options {
		o(c)
	}
	return c
}

// CreateRoom registers an empty room with a fresh code. The host still has to join it.
func (c *Coordinator) CreateRoom(hostID string, settings models.Settings) (string, error) {
	r, err := c.rooms.Create(hostID, c.withSettingDefaults(settings))
	if err != nil {
		return "", err
	}
	c.metrics.SetActiveRooms(c.rooms.Count())
	logger.Log.Infow("room created", "room", r.ID, "host", hostID, "category", r.Settings.Category)
	return r.ID, nil
}

func (c *Coordinator) withSettingDefaults(s models.Settings) models.Settings {
	if s.Category == "" {
		s.Category = c.opts.DefaultCategory
	}
	if s.Difficulty == "" {
		s.Difficulty = c.opts.DefaultDifficulty
	}
	if s.QuestionCount <= 0 {
		s.QuestionCount = c.opts.DefaultCount
	}
	return s
}

// Join adds the player to the room, creating the room when the id is unseen.
// Joining twice is harmless; the player list is broadcast either way so a new
// connection of an existing member receives it.
func (c *Coordinator) Join(roomID string, player models.Player) error {
	for {
		r, created := c.rooms.GetOrCreate(roomID)
		r.Lock()
		if r.Closed() {
			// Lost a race with the last leave; the registry already forgot this instance.
			r.Unlock()
			continue
		}
		if created {
			r.Settings = c.withSettingDefaults(r.Settings)
			c.metrics.SetActiveRooms(c.rooms.Count())
			logger.Log.Infow("room created by join", "room", roomID, "host", player.ID)
		}

		if r.AddPlayer(player) {
			if r.EnsureScoreRow(player.ID) {
				logger.Log.Debugw("late joiner added to score table", "room", roomID, "user", player.ID)
			}
			logger.Log.Infow("player joined", "room", roomID, "user", player.ID, "players", r.PlayerCount())
		}
		c.emit(r, EventPlayerJoined, PlayersPayload{Players: r.Players()})
		r.Unlock()
		return nil
	}
}

// Leave removes the player. An empty room is deleted with all of its timers.
func (c *Coordinator) Leave(roomID, userID string) error {
	r, err := c.lockRoom(roomID)
	if err != nil {
		return err
	}
	defer r.Unlock()

	if !r.RemovePlayer(userID) {
		return ErrNotMember
	}
	logger.Log.Infow("player left", "room", roomID, "user", userID, "players", r.PlayerCount())
	c.emit(r, EventPlayerLeft, PlayersPayload{Players: r.Players()})

	if r.PlayerCount() == 0 {
		c.teardown(r)
		return nil
	}

	if r.Status() == state.StatusQuestion && r.AllMembersAnswered(r.CurrentIndex()) {
		c.closeRound(r, r.CurrentIndex(), CloseReasonAllAnswered)
	}
	return nil
}

// Disconnect leaves every room the user is a member of.
func (c *Coordinator) Disconnect(userID string) {
	for _, id := range c.rooms.RoomsWithPlayer(userID) {
		if err := c.Leave(id, userID); err != nil && !errors.Is(err, ErrNotMember) && !errors.Is(err, ErrRoomNotFound) {
			logger.Log.Warnw("leave on disconnect failed", "room", id, "user", userID, "error", err)
		}
	}
}

// CheckJoinable reports whether a waiting room with the id exists.
func (c *Coordinator) CheckJoinable(roomID string) error {
	r, err := c.lockRoom(roomID)
	if err != nil {
		return err
	}
	defer r.Unlock()

	if r.Status() != state.StatusWaiting {
		return ErrGameInProgress
	}
	return nil
}

// StartGame is the host's action that moves a waiting room into its first round.
func (c *Coordinator) StartGame(roomID, userID string, questions []models.Question) error {
	r, err := c.lockRoom(roomID)
	if err != nil {
		return err
	}
	defer r.Unlock()

	if err := c.checkStart(r, userID); err != nil {
		return err
	}
	if len(questions) == 0 {
		return ErrNoQuestions
	}
	if err := models.ValidateQuestions(questions); err != nil {
		logger.Log.Warnw("rejected question batch", "room", roomID, "error", err)
		return err
	}

	if err := r.ChangeStatus(state.StatusStarting); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidTransition, err)
	}
	r.Begin(questions, c.now())
	if err := r.ChangeStatus(state.StatusQuestion); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidTransition, err)
	}

	c.metrics.IncGamesStarted()
	logger.Log.Infow("game started", "room", roomID, "questions", len(questions), "players", r.PlayerCount())
	c.emit(r, EventGameStarted, GameStartedPayload{Questions: r.Questions()})
	c.startRound(r)
	return nil
}

// StartGameFromSupplier fetches the room's configured question set and starts the game.
// The supplier is called without holding the room lock.
func (c *Coordinator) StartGameFromSupplier(ctx context.Context, roomID, userID string) error {
	if c.supplier == nil {
		return ErrNoSupplier
	}

	r, err := c.lockRoom(roomID)
	if err != nil {
		return err
	}
	settings := r.Settings
	err = c.checkStart(r, userID)
	r.Unlock()
	if err != nil {
		return err
	}

	questions, err := c.supplier.Questions(ctx, settings.Category, settings.Difficulty, settings.QuestionCount)
	if err != nil {
		return fmt.Errorf("fetch questions: %w", err)
	}
	if len(questions) != settings.QuestionCount {
		return fmt.Errorf("%w: supplier returned %d questions, want %d",
			models.ErrMalformedQuestion, len(questions), settings.QuestionCount)
	}
	return c.StartGame(roomID, userID, questions)
}

func (c *Coordinator) checkStart(r *room.Room, userID string) error {
	if !r.HasPlayer(userID) {
		return ErrNotMember
	}
	if r.HostID != userID {
		return ErrNotHost
	}
	if r.Status() != state.StatusWaiting {
		return fmt.Errorf("%w: room is %s", ErrInvalidTransition, r.Status())
	}
	return nil
}

// SubmitAnswer records the member's answer for the open round. Answers for a
// past or future round, or outside the question state, are dropped without error.
func (c *Coordinator) SubmitAnswer(roomID, userID string, questionIndex int, answer string) error {
	r, err := c.lockRoom(roomID)
	if err != nil {
		return err
	}
	defer r.Unlock()

	if !r.HasPlayer(userID) {
		return ErrNotMember
	}
	if r.Status() != state.StatusQuestion || questionIndex != r.CurrentIndex() || r.RoundClosed(questionIndex) {
		logger.Log.Debugw("ignored answer outside the open round",
			"room", roomID, "user", userID, "question", questionIndex,
			"current", r.CurrentIndex(), "status", r.Status())
		return nil
	}

	r.RecordAnswer(questionIndex, userID, answer)
	c.metrics.IncAnswers()

	if r.AllMembersAnswered(questionIndex) {
		c.closeRound(r, questionIndex, CloseReasonAllAnswered)
	}
	return nil
}

// Snapshot returns a read-only copy of the room.
func (c *Coordinator) Snapshot(roomID string) (room.Snapshot, error) {
	r, err := c.lockRoom(roomID)
	if err != nil {
		return room.Snapshot{}, err
	}
	defer r.Unlock()

	snap := r.Snapshot()
	if r.Status() == state.StatusQuestion {
		snap.TimeLeft = c.countdown.Remaining(r.ID)
	}
	return snap, nil
}

func (c *Coordinator) RoomCount() int { return c.rooms.Count() }

// lockRoom returns the live room locked, or ErrRoomNotFound.
func (c *Coordinator) lockRoom(roomID string) (*room.Room, error) {
	r, ok := c.rooms.Get(roomID)
	if !ok {
		return nil, ErrRoomNotFound
	}
	r.Lock()
	if r.Closed() {
		r.Unlock()
		return nil, ErrRoomNotFound
	}
	return r, nil
}

// --- round lifecycle, room lock held ---

func (c *Coordinator) startRound(r *room.Room) {
	r.CountdownGen = c.countdown.Start(r.ID, c.opts.QuestionTicks,
		func(gen uint64, remaining int) { c.onTick(r, gen, remaining) },
		func(gen uint64) { c.onExpire(r, gen) },
	)
}

func (c *Coordinator) onTick(r *room.Room, gen uint64, remaining int) {
	r.Lock()
	defer r.Unlock()

	if r.Closed() || r.CountdownGen != gen || r.Status() != state.StatusQuestion {
		return
	}
	c.emit(r, EventTimerUpdate, TimerUpdatePayload{TimeLeft: remaining})
}

func (c *Coordinator) onExpire(r *room.Room, gen uint64) {
	r.Lock()
	defer r.Unlock()

	if r.Closed() || r.CountdownGen != gen || r.Status() != state.StatusQuestion {
		return
	}
	c.closeRound(r, r.CurrentIndex(), CloseReasonTimeout)
}

// closeRound scores the round at most once, whichever of timeout and
// all-answered reaches it first.
func (c *Coordinator) closeRound(r *room.Room, questionIndex int, reason string) {
	if questionIndex != r.CurrentIndex() || !r.MarkRoundClosed(questionIndex) {
		return
	}
	c.countdown.Cancel(r.ID)
	r.CountdownGen = 0

	question, ok := r.CurrentQuestion()
	if !ok {
		logger.Log.Errorw("closing round without a question", "room", r.ID, "question", questionIndex)
		return
	}
	result := c.engine.CloseRound(scoring.Round{
		Question: question,
		Scores:   r.Scores(),
		Answers:  r.Answers(questionIndex),
	})
	r.SetScores(result.Scores)

	if err := r.ChangeStatus(state.StatusResults); err != nil {
		logger.Log.Errorw("round close transition failed", "room", r.ID, "error", err)
		return
	}
	c.metrics.IncRoundsClosed(reason)
	logger.Log.Infow("round closed", "room", r.ID, "question", questionIndex, "reason", reason)
	c.emit(r, EventQuestionEnded, QuestionEndedPayload{CorrectAnswer: result.CorrectAnswer, Scores: result.Scores})

	r.ResultsGen++
	gen := r.ResultsGen
	delay := time.Duration(c.opts.ResultsTicks) * c.opts.TickInterval
	r.ResultsTimer = c.scheduler.AddTimer(delay, 0, func() { c.advance(r, gen) })
}

func (c *Coordinator) advance(r *room.Room, gen uint64) {
	r.Lock()
	defer r.Unlock()

	if r.Closed() || r.ResultsGen != gen || r.Status() != state.StatusResults {
		return
	}
	r.ResultsTimer = 0

	if r.Advance() {
		if err := r.ChangeStatus(state.StatusQuestion); err != nil {
			logger.Log.Errorw("next question transition failed", "room", r.ID, "error", err)
			return
		}
		c.emit(r, EventNextQuestion, NextQuestionPayload{QuestionIndex: r.CurrentIndex()})
		c.startRound(r)
		return
	}

	if err := r.ChangeStatus(state.StatusEnded); err != nil {
		logger.Log.Errorw("game end transition failed", "room", r.ID, "error", err)
		return
	}
	c.metrics.IncGamesFinished()
	logger.Log.Infow("game ended", "room", r.ID, "questions", r.QuestionCount())
	c.emit(r, EventGameEnded, GameEndedPayload{})
	c.publish(r.Summary(c.now()))
}

func (c *Coordinator) publish(summary models.GameSummary) {
	if c.sink == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), resultSinkTimeout)
		defer cancel()
		if err := c.sink.RecordGame(ctx, summary); err != nil {
			logger.Log.Errorw("failed to record game", "room", summary.RoomID, "error", err)
		}
	}()
}

// teardown cancels the room's timers and drops it from the registry.
func (c *Coordinator) teardown(r *room.Room) {
	c.countdown.Cancel(r.ID)
	r.CountdownGen = 0
	if r.ResultsTimer != 0 {
		c.scheduler.RemoveTimer(r.ResultsTimer)
		r.ResultsTimer = 0
	}
	r.ResultsGen++
	c.rooms.Remove(r)
	c.metrics.SetActiveRooms(c.rooms.Count())
	logger.Log.Infow("room deleted", "room", r.ID, "status", r.Status())
}

func (c *Coordinator) emit(r *room.Room, typ EventType, payload any) {
	if c.emitter == nil {
		return
	}
	c.emitter.Emit(Event{RoomID: r.ID, Type: typ, Payload: payload})
}
