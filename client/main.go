// Command client is a websocket bot that joins a trivia room and answers every question.
package main

import (
	"math/rand/v2"
	"net/url"
	"os"
	"os/signal"
	"time"

	"github.com/gorilla/websocket"
	flag "github.com/spf13/pflag"

	"github.com/wfunc/triviaserver/game"
	"github.com/wfunc/triviaserver/logger"
	"github.com/wfunc/triviaserver/models"
	"github.com/wfunc/triviaserver/network"
)

type bot struct {
	conn      *websocket.Conn
	roomID    string
	host      bool
	accuracy  float64
	questions []models.Question
}

func (b *bot) send(msgType network.MessageType, payload any) error {
	data, err := network.Encode(msgType, payload)
	if err != nil {
		return err
	}
	return b.conn.WriteMessage(websocket.TextMessage, data)
}

// pick 按设定的正确率选择答案
func (b *bot) pick(q models.Question) string {
	if rand.Float64() < b.accuracy {
		return q.CorrectAnswer
	}
	return q.Options[rand.IntN(len(q.Options))]
}

func (b *bot) answer(index int) {
	if index >= len(b.questions) {
		return
	}
	q := b.questions[index]
	// 模拟思考时间
	time.Sleep(time.Duration(500+rand.IntN(1500)) * time.Millisecond)
	choice := b.pick(q)
	if err := b.send(network.MsgTypeSubmitAnswer, network.SubmitAnswerPayload{
		RoomID: b.roomID, QuestionIndex: index, SelectedAnswer: choice,
	}); err != nil {
		logger.Log.Warnw("submit failed", "error", err)
		return
	}
	logger.Log.Infow("-> answered", "question", index, "answer", choice)
}

func (b *bot) handle(msg network.Message) (done bool) {
	switch game.EventType(msg.Type) {
	case game.EventPlayerJoined, game.EventPlayerLeft:
		p, _ := network.DecodePayload[game.PlayersPayload](msg)
		logger.Log.Infow("<- players", "event", msg.Type, "count", len(p.Players))
	case game.EventGameStarted:
		p, err := network.DecodePayload[game.GameStartedPayload](msg)
		if err != nil {
			logger.Log.Warnw("bad game-started payload", "error", err)
			return false
		}
		b.questions = p.Questions
		logger.Log.Infow("<- game started", "questions", len(p.Questions))
		go b.answer(0)
	case game.EventNextQuestion:
		p, _ := network.DecodePayload[game.NextQuestionPayload](msg)
		go b.answer(p.QuestionIndex)
	case game.EventQuestionEnded:
		p, _ := network.DecodePayload[game.QuestionEndedPayload](msg)
		logger.Log.Infow("<- question ended", "correct", p.CorrectAnswer, "scores", p.Scores)
	case game.EventGameEnded:
		logger.Log.Info("<- game ended")
		return true
	case game.EventTimerUpdate:
	default:
		logger.Log.Infow("<- recv", "type", msg.Type, "payload", string(msg.Payload))
	}
	return false
}

func main() {
	addr := flag.String("addr", "localhost:3001", "server address")
	roomID := flag.String("room", "", "room code to join")
	userID := flag.String("user", "", "user id (random when empty)")
	name := flag.String("name", "bot", "display name")
	host := flag.Bool("host", false, "start the game once joined")
	accuracy := flag.Float64("accuracy", 0.7, "probability of answering correctly")
	wait := flag.Duration("start-after", 3*time.Second, "delay before a host bot starts the game")
	flag.Parse()

	logger.Init("info")
	defer logger.Sync()

	if *roomID == "" {
		logger.Log.Fatal("--room is required")
	}
	if *userID == "" {
		*userID = "bot-" + time.Now().Format("150405.000")
	}

	u := url.URL{Scheme: "ws", Host: *addr, Path: "/ws"}
	u.RawQuery = url.Values{"userId": {*userID}, "userName": {*name}}.Encode()
	logger.Log.Infof("Connecting to %s", u.String())

	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		logger.Log.Fatalf("Dial failed: %v", err)
	}
	defer c.Close()

	b := &bot{conn: c, roomID: *roomID, host: *host, accuracy: *accuracy}
	done := make(chan struct{})

	go func() {
		defer close(done)
		for {
			_, data, err := c.ReadMessage()
			if err != nil {
				logger.Log.Infow("read loop finished", "error", err)
				return
			}
			msg, err := network.Decode(data)
			if err != nil {
				logger.Log.Warnw("bad frame", "error", err)
				continue
			}
			if b.handle(msg) {
				return
			}
		}
	}()

	if err := b.send(network.MsgTypeJoinRoom, network.JoinRoomPayload{RoomID: b.roomID}); err != nil {
		logger.Log.Fatalf("Join failed: %v", err)
	}
	if b.host {
		go func() {
			time.Sleep(*wait)
			if err := b.send(network.MsgTypeStartGame, network.StartGamePayload{RoomID: b.roomID}); err != nil {
				logger.Log.Warnw("start failed", "error", err)
			}
		}()
	}

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	select {
	case <-done:
	case <-interrupt:
		logger.Log.Info("Interrupt received, closing connection.")
		_ = b.send(network.MsgTypeLeaveRoom, network.LeaveRoomPayload{RoomID: b.roomID})
		err := c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		if err != nil {
			logger.Log.Warnw("write close error", "error", err)
		}
		select {
		case <-done:
		case <-time.After(time.Second):
		}
	}
}
