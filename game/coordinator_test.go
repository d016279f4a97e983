package game

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wfunc/triviaserver/models"
	"github.com/wfunc/triviaserver/room"
	"github.com/wfunc/triviaserver/state"
	"github.com/wfunc/triviaserver/timer"
)

type recorder struct {
	mutex  sync.Mutex
	events []Event
}

func (r *recorder) Emit(ev Event) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) all() []Event {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return append([]Event(nil), r.events...)
}

func (r *recorder) ofType(typ EventType) []Event {
	var out []Event
	for _, ev := range r.all() {
		if ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out
}

func (r *recorder) reset() {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.events = nil
}

type fixture struct {
	coord     *Coordinator
	rooms     *room.Registry
	scheduler *timer.ManualScheduler
	events    *recorder
}

func newFixture(t *testing.T, options ...Option) *fixture {
	t.Helper()
	f := &fixture{
		rooms:     room.NewRegistry(6),
		scheduler: timer.NewManualScheduler(),
		events:    &recorder{},
	}
	f.coord = NewCoordinator(f.rooms, f.scheduler, f.events, Options{
		TickInterval:  time.Second,
		QuestionTicks: 15,
		ResultsTicks:  5,
	}, options...)
	return f
}

func (f *fixture) ticks(n int) { f.scheduler.Advance(time.Duration(n) * time.Second) }

func question(id, correct string) models.Question {
	return models.Question{
		ID:            id,
		Text:          "question " + id,
		Options:       []string{"A", "B", "C", "D"},
		CorrectAnswer: correct,
		Category:      "general",
		Difficulty:    "easy",
	}
}

func player(id string) models.Player { return models.Player{ID: id, Name: "name-" + id} }

func scoreOf(t *testing.T, rows []models.ScoreRow, userID string) models.ScoreRow {
	t.Helper()
	for _, row := range rows {
		if row.UserID == userID {
			return row
		}
	}
	t.Fatalf("no score row for %s", userID)
	return models.ScoreRow{}
}

func TestCorrectAnswerClosesRoundImmediately(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.coord.Join("ABC123", player("P")))
	require.NoError(t, f.coord.StartGame("ABC123", "P", []models.Question{question("q1", "B")}))

	require.NoError(t, f.coord.SubmitAnswer("ABC123", "P", 0, "B"))

	ended := f.events.ofType(EventQuestionEnded)
	require.Len(t, ended, 1)
	payload := ended[0].Payload.(QuestionEndedPayload)
	assert.Equal(t, "B", payload.CorrectAnswer)
	assert.Equal(t, []models.ScoreRow{{UserID: "P", Name: "name-P", Score: 100, CorrectAnswers: 1, AnsweredQuestions: 1}}, payload.Scores)
	assert.Empty(t, f.events.ofType(EventTimerUpdate), "closed before any tick")

	snap, err := f.coord.Snapshot("ABC123")
	require.NoError(t, err)
	assert.Equal(t, state.StatusResults, snap.Status)
}

func TestTimeoutCountsSilentPlayerAsAnswered(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.coord.Join("ABC123", player("P")))
	require.NoError(t, f.coord.StartGame("ABC123", "P", []models.Question{question("q1", "B")}))

	f.ticks(14)
	assert.Empty(t, f.events.ofType(EventQuestionEnded))

	f.ticks(1)
	ended := f.events.ofType(EventQuestionEnded)
	require.Len(t, ended, 1)
	row := scoreOf(t, ended[0].Payload.(QuestionEndedPayload).Scores, "P")
	assert.Equal(t, 0, row.Score)
	assert.Equal(t, 0, row.CorrectAnswers)
	assert.Equal(t, 1, row.AnsweredQuestions)

	var left []int
	for _, ev := range f.events.ofType(EventTimerUpdate) {
		left = append(left, ev.Payload.(TimerUpdatePayload).TimeLeft)
	}
	require.Len(t, left, 15)
	assert.Equal(t, 14, left[0])
	assert.Equal(t, 0, left[14])
}

func TestTwoPlayersGetDifferentScores(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.coord.Join("ROOM01", player("alice")))
	require.NoError(t, f.coord.Join("ROOM01", player("bob")))
	require.NoError(t, f.coord.StartGame("ROOM01", "alice", []models.Question{question("q1", "C")}))

	require.NoError(t, f.coord.SubmitAnswer("ROOM01", "alice", 0, "C"))
	assert.Empty(t, f.events.ofType(EventQuestionEnded), "bob has not answered")
	require.NoError(t, f.coord.SubmitAnswer("ROOM01", "bob", 0, "A"))

	ended := f.events.ofType(EventQuestionEnded)
	require.Len(t, ended, 1)
	scores := ended[0].Payload.(QuestionEndedPayload).Scores
	assert.Equal(t, 100, scoreOf(t, scores, "alice").Score)
	assert.Equal(t, 0, scoreOf(t, scores, "bob").Score)
	assert.Equal(t, 1, scoreOf(t, scores, "bob").AnsweredQuestions)
}

func TestAnswerOverwriteBeforeClose(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.coord.Join("ROOM01", player("alice")))
	require.NoError(t, f.coord.Join("ROOM01", player("bob")))
	require.NoError(t, f.coord.StartGame("ROOM01", "alice", []models.Question{question("q1", "C")}))

	require.NoError(t, f.coord.SubmitAnswer("ROOM01", "alice", 0, "A"))
	require.NoError(t, f.coord.SubmitAnswer("ROOM01", "alice", 0, "C"))
	f.ticks(15)

	ended := f.events.ofType(EventQuestionEnded)
	require.Len(t, ended, 1)
	assert.Equal(t, 100, scoreOf(t, ended[0].Payload.(QuestionEndedPayload).Scores, "alice").Score)
}

func TestLastPlayerLeavingDeletesRoomAndSilencesTimers(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.coord.Join("ROOM01", player("alice")))
	require.NoError(t, f.coord.StartGame("ROOM01", "alice", []models.Question{question("q1", "A"), question("q2", "B")}))
	f.ticks(3)

	require.NoError(t, f.coord.Leave("ROOM01", "alice"))
	_, ok := f.rooms.Get("ROOM01")
	assert.False(t, ok)
	assert.Equal(t, 0, f.coord.RoomCount())
	assert.Equal(t, 0, f.scheduler.Pending())

	f.events.reset()
	f.ticks(60)
	assert.Empty(t, f.events.all())

	_, err := f.coord.Snapshot("ROOM01")
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestLeaveDuringResultsCancelsAdvance(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.coord.Join("ROOM01", player("alice")))
	require.NoError(t, f.coord.StartGame("ROOM01", "alice", []models.Question{question("q1", "A"), question("q2", "B")}))
	require.NoError(t, f.coord.SubmitAnswer("ROOM01", "alice", 0, "A"))

	require.NoError(t, f.coord.Leave("ROOM01", "alice"))
	f.events.reset()
	f.ticks(30)
	assert.Empty(t, f.events.all())
	assert.Equal(t, 0, f.scheduler.Pending())
}

func TestRejoinAfterDeletionGetsFreshRoom(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.coord.Join("ROOM01", player("alice")))
	require.NoError(t, f.coord.StartGame("ROOM01", "alice", []models.Question{question("q1", "A")}))
	require.NoError(t, f.coord.Leave("ROOM01", "alice"))

	require.NoError(t, f.coord.Join("ROOM01", player("bob")))
	snap, err := f.coord.Snapshot("ROOM01")
	require.NoError(t, err)
	assert.Equal(t, state.StatusWaiting, snap.Status)
	assert.Equal(t, "bob", snap.HostID)
	assert.Equal(t, 0, snap.QuestionCount)
}

func TestRoundClosesOnceWhenAnswerRacesExpiry(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.coord.Join("ROOM01", player("alice")))
	require.NoError(t, f.coord.StartGame("ROOM01", "alice", []models.Question{question("q1", "A"), question("q2", "B")}))

	f.ticks(15)
	require.NoError(t, f.coord.SubmitAnswer("ROOM01", "alice", 0, "A"))

	ended := f.events.ofType(EventQuestionEnded)
	require.Len(t, ended, 1)
	row := scoreOf(t, ended[0].Payload.(QuestionEndedPayload).Scores, "alice")
	assert.Equal(t, 0, row.Score, "late answer is ignored")
	assert.Equal(t, 1, row.AnsweredQuestions)
}

func TestConcurrentAnswersAndTicksCloseEachRoundOnce(t *testing.T) {
	f := newFixture(t)
	ids := []string{"p1", "p2", "p3", "p4", "p5", "p6"}
	for _, id := range ids {
		require.NoError(t, f.coord.Join("RACE01", player(id)))
	}
	require.NoError(t, f.coord.StartGame("RACE01", "p1", []models.Question{question("q1", "D")}))

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_ = f.coord.SubmitAnswer("RACE01", id, 0, "D")
		}(id)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		f.ticks(15)
	}()
	wg.Wait()

	ended := f.events.ofType(EventQuestionEnded)
	require.Len(t, ended, 1)
	for _, row := range ended[0].Payload.(QuestionEndedPayload).Scores {
		assert.Equal(t, 1, row.AnsweredQuestions)
	}
}

func TestFullGameProgressesThroughEveryQuestion(t *testing.T) {
	sink := &recordingSink{done: make(chan models.GameSummary, 1)}
	f := newFixture(t, WithResultSink(sink))
	questions := []models.Question{question("q1", "A"), question("q2", "B"), question("q3", "C")}
	require.NoError(t, f.coord.Join("GAME01", player("alice")))
	require.NoError(t, f.coord.Join("GAME01", player("bob")))
	require.NoError(t, f.coord.StartGame("GAME01", "alice", questions))

	prevScore := 0
	for i, q := range questions {
		snap, err := f.coord.Snapshot("GAME01")
		require.NoError(t, err)
		assert.Equal(t, i, snap.CurrentQuestionIndex)
		assert.Equal(t, state.StatusQuestion, snap.Status)

		require.NoError(t, f.coord.SubmitAnswer("GAME01", "alice", i, q.CorrectAnswer))
		f.ticks(15) // bob stays silent

		snap, err = f.coord.Snapshot("GAME01")
		require.NoError(t, err)
		alice := scoreOf(t, snap.Scores, "alice")
		assert.GreaterOrEqual(t, alice.Score, prevScore)
		prevScore = alice.Score

		assert.Empty(t, f.events.ofType(EventGameEnded))
		f.ticks(5)
	}

	var indexes []int
	for _, ev := range f.events.ofType(EventNextQuestion) {
		indexes = append(indexes, ev.Payload.(NextQuestionPayload).QuestionIndex)
	}
	assert.Equal(t, []int{1, 2}, indexes)
	require.Len(t, f.events.ofType(EventGameEnded), 1)

	snap, err := f.coord.Snapshot("GAME01")
	require.NoError(t, err)
	assert.Equal(t, state.StatusEnded, snap.Status)
	assert.Equal(t, len(questions), snap.CurrentQuestionIndex)
	assert.Equal(t, 300, scoreOf(t, snap.Scores, "alice").Score)
	bob := scoreOf(t, snap.Scores, "bob")
	assert.Equal(t, 0, bob.Score)
	assert.Equal(t, 3, bob.AnsweredQuestions)

	select {
	case summary := <-sink.done:
		assert.Equal(t, "GAME01", summary.RoomID)
		assert.Len(t, summary.Questions, 3)
		assert.Equal(t, 300, scoreOf(t, summary.Scores, "alice").Score)
	case <-time.After(2 * time.Second):
		t.Fatal("result sink was not called")
	}

	// ended rooms reject lifecycle actions but still allow leave
	assert.ErrorIs(t, f.coord.StartGame("GAME01", "alice", questions), ErrInvalidTransition)
	require.NoError(t, f.coord.SubmitAnswer("GAME01", "alice", 3, "A"))
	require.NoError(t, f.coord.Leave("GAME01", "bob"))
}

func TestResultsDelayHoldsForFiveTicks(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.coord.Join("DELAY1", player("alice")))
	require.NoError(t, f.coord.StartGame("DELAY1", "alice", []models.Question{question("q1", "A"), question("q2", "B")}))
	require.NoError(t, f.coord.SubmitAnswer("DELAY1", "alice", 0, "A"))
	require.Len(t, f.events.ofType(EventQuestionEnded), 1)

	f.ticks(4)
	assert.Empty(t, f.events.ofType(EventNextQuestion))
	snap, err := f.coord.Snapshot("DELAY1")
	require.NoError(t, err)
	assert.Equal(t, state.StatusResults, snap.Status)

	f.ticks(1)
	require.Len(t, f.events.ofType(EventNextQuestion), 1)

	require.NoError(t, f.coord.SubmitAnswer("DELAY1", "alice", 1, "B"))
	f.ticks(4)
	assert.Empty(t, f.events.ofType(EventGameEnded))
	f.ticks(1)
	assert.Len(t, f.events.ofType(EventGameEnded), 1)
}

func TestZeroOptionsKeepResultsDelay(t *testing.T) {
	events := &recorder{}
	scheduler := timer.NewManualScheduler()
	coord := NewCoordinator(room.NewRegistry(6), scheduler, events, Options{})
	require.NoError(t, coord.Join("ZERO01", player("alice")))
	require.NoError(t, coord.StartGame("ZERO01", "alice", []models.Question{question("q1", "A")}))
	require.NoError(t, coord.SubmitAnswer("ZERO01", "alice", 0, "A"))

	scheduler.Advance(time.Millisecond)
	assert.Empty(t, events.ofType(EventGameEnded))
	scheduler.Advance(4*time.Second + 998*time.Millisecond)
	assert.Empty(t, events.ofType(EventGameEnded))
	scheduler.Advance(time.Millisecond)
	assert.Len(t, events.ofType(EventGameEnded), 1)
}

func TestJoinAfterGameEndedLeavesScoresFinal(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.coord.Join("DONE01", player("P")))
	require.NoError(t, f.coord.StartGame("DONE01", "P", []models.Question{question("q1", "A")}))
	require.NoError(t, f.coord.SubmitAnswer("DONE01", "P", 0, "A"))
	f.ticks(5)

	before, err := f.coord.Snapshot("DONE01")
	require.NoError(t, err)
	require.Equal(t, state.StatusEnded, before.Status)

	require.NoError(t, f.coord.Join("DONE01", player("LATE")))
	after, err := f.coord.Snapshot("DONE01")
	require.NoError(t, err)
	assert.Equal(t, before.Scores, after.Scores)
	assert.Len(t, after.Players, 2)
}

func TestEventOrderForOneRound(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.coord.Join("ORDER1", player("alice")))
	require.NoError(t, f.coord.StartGame("ORDER1", "alice", []models.Question{question("q1", "A"), question("q2", "B")}))
	f.ticks(1)
	require.NoError(t, f.coord.SubmitAnswer("ORDER1", "alice", 0, "A"))
	f.ticks(5)

	var types []EventType
	for _, ev := range f.events.all() {
		types = append(types, ev.Type)
		assert.Equal(t, "ORDER1", ev.RoomID)
	}
	assert.Equal(t, []EventType{
		EventPlayerJoined, EventGameStarted, EventTimerUpdate,
		EventQuestionEnded, EventNextQuestion,
	}, types)
}

func TestJoinIsIdempotentAndBroadcasts(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.coord.Join("ROOM01", player("alice")))
	require.NoError(t, f.coord.Join("ROOM01", player("alice")))

	joined := f.events.ofType(EventPlayerJoined)
	require.Len(t, joined, 2)
	assert.Len(t, joined[1].Payload.(PlayersPayload).Players, 1)
}

func TestLateJoinerGetsScoreRow(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.coord.Join("ROOM01", player("alice")))
	require.NoError(t, f.coord.StartGame("ROOM01", "alice", []models.Question{question("q1", "A")}))
	require.NoError(t, f.coord.Join("ROOM01", player("bob")))

	require.NoError(t, f.coord.SubmitAnswer("ROOM01", "alice", 0, "A"))
	assert.Empty(t, f.events.ofType(EventQuestionEnded), "bob is a member and has not answered")
	require.NoError(t, f.coord.SubmitAnswer("ROOM01", "bob", 0, "A"))

	ended := f.events.ofType(EventQuestionEnded)
	require.Len(t, ended, 1)
	assert.Equal(t, 100, scoreOf(t, ended[0].Payload.(QuestionEndedPayload).Scores, "bob").Score)
}

func TestLeaveOfLastSilentPlayerClosesRound(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.coord.Join("ROOM01", player("alice")))
	require.NoError(t, f.coord.Join("ROOM01", player("bob")))
	require.NoError(t, f.coord.StartGame("ROOM01", "alice", []models.Question{question("q1", "A")}))
	require.NoError(t, f.coord.SubmitAnswer("ROOM01", "alice", 0, "A"))

	require.NoError(t, f.coord.Leave("ROOM01", "bob"))
	require.Len(t, f.events.ofType(EventQuestionEnded), 1)
}

func TestHostReassignedWhenHostLeaves(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.coord.Join("ROOM01", player("alice")))
	require.NoError(t, f.coord.Join("ROOM01", player("bob")))
	require.NoError(t, f.coord.Join("ROOM01", player("carol")))

	require.NoError(t, f.coord.Leave("ROOM01", "alice"))
	snap, err := f.coord.Snapshot("ROOM01")
	require.NoError(t, err)
	assert.Equal(t, "bob", snap.HostID)
	require.NoError(t, f.coord.StartGame("ROOM01", "bob", []models.Question{question("q1", "A")}))
}

func TestDisconnectLeavesEveryRoom(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.coord.Join("ROOM01", player("alice")))
	require.NoError(t, f.coord.Join("ROOM02", player("alice")))
	require.NoError(t, f.coord.Join("ROOM02", player("bob")))

	f.coord.Disconnect("alice")

	_, ok := f.rooms.Get("ROOM01")
	assert.False(t, ok)
	snap, err := f.coord.Snapshot("ROOM02")
	require.NoError(t, err)
	require.Len(t, snap.Players, 1)
	assert.Equal(t, "bob", snap.Players[0].ID)
}

func TestActionErrors(t *testing.T) {
	f := newFixture(t)
	qs := []models.Question{question("q1", "A")}

	assert.ErrorIs(t, f.coord.Leave("NOPE", "alice"), ErrRoomNotFound)
	assert.ErrorIs(t, f.coord.StartGame("NOPE", "alice", qs), ErrRoomNotFound)
	assert.ErrorIs(t, f.coord.SubmitAnswer("NOPE", "alice", 0, "A"), ErrRoomNotFound)
	assert.Empty(t, f.events.all())

	require.NoError(t, f.coord.Join("ROOM01", player("alice")))
	require.NoError(t, f.coord.Join("ROOM01", player("bob")))
	f.events.reset()

	assert.ErrorIs(t, f.coord.StartGame("ROOM01", "mallory", qs), ErrNotMember)
	assert.ErrorIs(t, f.coord.StartGame("ROOM01", "bob", qs), ErrNotHost)
	assert.ErrorIs(t, f.coord.StartGame("ROOM01", "alice", nil), ErrNoQuestions)
	assert.ErrorIs(t, f.coord.SubmitAnswer("ROOM01", "mallory", 0, "A"), ErrNotMember)
	assert.ErrorIs(t, f.coord.Leave("ROOM01", "mallory"), ErrNotMember)

	bad := question("bad", "E")
	assert.ErrorIs(t, f.coord.StartGame("ROOM01", "alice", []models.Question{question("q1", "A"), bad}), models.ErrMalformedQuestion)
	assert.Empty(t, f.events.all())

	snap, err := f.coord.Snapshot("ROOM01")
	require.NoError(t, err)
	assert.Equal(t, state.StatusWaiting, snap.Status)

	require.NoError(t, f.coord.StartGame("ROOM01", "alice", qs))
	assert.ErrorIs(t, f.coord.StartGame("ROOM01", "alice", qs), ErrInvalidTransition)
	assert.ErrorIs(t, f.coord.CheckJoinable("ROOM01"), ErrGameInProgress)
	assert.ErrorIs(t, f.coord.CheckJoinable("NOPE"), ErrRoomNotFound)
}

func TestStaleAnswersAreIgnored(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.coord.Join("ROOM01", player("alice")))

	require.NoError(t, f.coord.SubmitAnswer("ROOM01", "alice", 0, "A"), "waiting room absorbs answers")
	require.NoError(t, f.coord.StartGame("ROOM01", "alice", []models.Question{question("q1", "A"), question("q2", "B")}))
	require.NoError(t, f.coord.SubmitAnswer("ROOM01", "alice", 1, "B"), "future index")
	assert.Empty(t, f.events.ofType(EventQuestionEnded))
}

func TestCreateRoomAppliesDefaults(t *testing.T) {
	f := newFixture(t)
	id, err := f.coord.CreateRoom("alice", models.Settings{Category: "science"})
	require.NoError(t, err)
	assert.Len(t, id, 6)

	r, ok := f.rooms.Get(id)
	require.True(t, ok)
	assert.Equal(t, "alice", r.HostID)
	assert.Equal(t, "science", r.Settings.Category)
	assert.Equal(t, "medium", r.Settings.Difficulty)
	assert.Equal(t, 5, r.Settings.QuestionCount)

	require.NoError(t, f.coord.CheckJoinable(id))
	require.NoError(t, f.coord.Join(id, player("alice")))
	snap, err := f.coord.Snapshot(id)
	require.NoError(t, err)
	assert.Equal(t, "alice", snap.HostID)
}

func TestSnapshotReportsTimeLeft(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.coord.Join("ROOM01", player("alice")))
	require.NoError(t, f.coord.StartGame("ROOM01", "alice", []models.Question{question("q1", "A")}))
	f.ticks(4)

	snap, err := f.coord.Snapshot("ROOM01")
	require.NoError(t, err)
	assert.Equal(t, 11, snap.TimeLeft)
}

type stubSupplier struct {
	questions []models.Question
	err       error
	calls     []string
}

func (s *stubSupplier) Questions(_ context.Context, category, difficulty string, count int) ([]models.Question, error) {
	s.calls = append(s.calls, category+"/"+difficulty)
	if s.err != nil {
		return nil, s.err
	}
	if count < len(s.questions) {
		return s.questions[:count], nil
	}
	return s.questions, nil
}

type recordingSink struct {
	done chan models.GameSummary
}

func (s *recordingSink) RecordGame(_ context.Context, summary models.GameSummary) error {
	s.done <- summary
	return nil
}

func TestStartGameFromSupplier(t *testing.T) {
	supplier := &stubSupplier{questions: []models.Question{question("q1", "A"), question("q2", "B")}}
	f := newFixture(t, WithSupplier(supplier))

	id, err := f.coord.CreateRoom("alice", models.Settings{Category: "history", Difficulty: "hard", QuestionCount: 2})
	require.NoError(t, err)
	require.NoError(t, f.coord.Join(id, player("alice")))

	require.NoError(t, f.coord.StartGameFromSupplier(context.Background(), id, "alice"))
	assert.Equal(t, []string{"history/hard"}, supplier.calls)
	started := f.events.ofType(EventGameStarted)
	require.Len(t, started, 1)
	assert.Len(t, started[0].Payload.(GameStartedPayload).Questions, 2)
}

func TestStartGameFromSupplierRejectsShortOrFailedBatch(t *testing.T) {
	supplier := &stubSupplier{questions: []models.Question{question("q1", "A")}}
	f := newFixture(t, WithSupplier(supplier))

	id, err := f.coord.CreateRoom("alice", models.Settings{QuestionCount: 3})
	require.NoError(t, err)
	require.NoError(t, f.coord.Join(id, player("alice")))

	assert.ErrorIs(t, f.coord.StartGameFromSupplier(context.Background(), id, "alice"), models.ErrMalformedQuestion)

	supplier.err = errors.New("upstream down")
	assert.Error(t, f.coord.StartGameFromSupplier(context.Background(), id, "alice"))
	assert.ErrorIs(t, f.coord.StartGameFromSupplier(context.Background(), id, "bob"), ErrNotMember)
	assert.Empty(t, f.events.ofType(EventGameStarted))

	noSupplier := newFixture(t)
	assert.ErrorIs(t, noSupplier.coord.StartGameFromSupplier(context.Background(), id, "alice"), ErrNoSupplier)
}

type countingMetrics struct {
	nopMetrics
	mutex  sync.Mutex
	rooms  int
	closed map[string]int
}

func (m *countingMetrics) SetActiveRooms(n int) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.rooms = n
}

func (m *countingMetrics) IncRoundsClosed(reason string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.closed[reason]++
}

func TestMetricsReported(t *testing.T) {
	m := &countingMetrics{closed: map[string]int{}}
	f := newFixture(t, WithMetrics(m))
	require.NoError(t, f.coord.Join("ROOM01", player("alice")))
	assert.Equal(t, 1, m.rooms)

	require.NoError(t, f.coord.StartGame("ROOM01", "alice", []models.Question{question("q1", "A"), question("q2", "B")}))
	require.NoError(t, f.coord.SubmitAnswer("ROOM01", "alice", 0, "A"))
	f.ticks(5)
	f.ticks(15)

	assert.Equal(t, map[string]int{CloseReasonAllAnswered: 1, CloseReasonTimeout: 1}, m.closed)
	require.NoError(t, f.coord.Leave("ROOM01", "alice"))
	assert.Equal(t, 0, m.rooms)
}
