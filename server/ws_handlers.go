package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/wfunc/triviaserver/game"
	"github.com/wfunc/triviaserver/logger"
	"github.com/wfunc/triviaserver/models"
	"github.com/wfunc/triviaserver/network"
	"github.com/wfunc/triviaserver/room"
	"github.com/wfunc/triviaserver/session"
)

const (
	userIDHeader   = "X-User-ID"
	supplierWait   = 10 * time.Second
	codeBadRequest = "bad_request"
)

// identity 从握手参数中读取玩家身份
func identity(c *gin.Context) (models.Player, bool) {
	p := models.Player{
		ID:        c.Query("userId"),
		Name:      c.Query("userName"),
		AvatarURL: c.Query("userPhoto"),
	}
	if p.ID == "" {
		p.ID = c.GetHeader(userIDHeader)
	}
	if p.ID == "" {
		return p, false
	}
	if p.Name == "" {
		p.Name = p.ID
	}
	return p, true
}

func (s *GameServer) handleWebSocket(c *gin.Context) {
	player, ok := identity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Log.Infof("Failed to upgrade connection: %v", err)
		return
	}

	wsConn := network.NewWSConnection(conn)
	sess := session.NewSession(uuid.NewString(), wsConn)
	sess.UserID = player.ID
	sess.Name = player.Name
	sess.AvatarURL = player.AvatarURL
	sess.SetRateLimit(s.cfg.ActionRate, s.cfg.ActionBurst)
	s.sessions.Add(sess)
	if s.monitor != nil {
		s.monitor.IncOnlinePlayers()
	}

	logger.Log.Infow("connection opened", "session", sess.ID, "user", sess.UserID, "remote", wsConn.RemoteAddr().String())
	_ = sess.SendMessage(network.MsgTypeConnected, network.ConnectedPayload{SessionID: sess.ID, UserID: sess.UserID})

	go wsConn.WritePump()
	go func() {
		defer s.handleDisconnect(sess)
		wsConn.ReadPump(func(data []byte) { s.handleFrame(sess, data) })
	}()
}

// handleDisconnect 连接断开等同于对该连接所在的每个房间执行 leave-room
func (s *GameServer) handleDisconnect(sess *session.Session) {
	s.sessions.Remove(sess.ID)
	s.hub.UnsubscribeAll(sess.ID)
	sess.Close()
	if s.monitor != nil {
		s.monitor.DecOnlinePlayers()
	}
	logger.Log.Infow("connection closed", "session", sess.ID, "user", sess.UserID)

	if len(s.sessions.GetByUserID(sess.UserID)) == 0 {
		s.coordinator.Disconnect(sess.UserID)
		return
	}
	for _, roomID := range sess.Rooms() {
		if s.userSubscribed(roomID, sess.UserID) {
			// 同一用户的其他连接仍在该房间
			logger.Log.Debugw("room kept by another connection", "room", roomID, "user", sess.UserID)
			continue
		}
		err := s.coordinator.Leave(roomID, sess.UserID)
		if err != nil && !errors.Is(err, game.ErrNotMember) && !errors.Is(err, game.ErrRoomNotFound) {
			logger.Log.Warnw("leave on disconnect failed", "room", roomID, "user", sess.UserID, "error", err)
		}
	}
}

// userSubscribed reports whether any live connection of the user listens on the room.
func (s *GameServer) userSubscribed(roomID, userID string) bool {
	for _, sub := range s.hub.Subscribers(roomID) {
		if sub.UserID == userID {
			return true
		}
	}
	return false
}

func (s *GameServer) handleFrame(sess *session.Session, data []byte) {
	start := time.Now()

	msg, err := network.Decode(data)
	if err != nil {
		_ = sess.SendError(codeBadRequest, "invalid message format")
		return
	}
	if s.monitor != nil {
		s.monitor.IncMessagesReceived(string(msg.Type))
		defer func() { s.monitor.ObserveMessageLatency(time.Since(start)) }()
	}
	if msg.Type != network.MsgTypePing && !sess.Allow() {
		_ = sess.SendError("rate_limited", "too many actions")
		return
	}

	if err := s.dispatch(sess, msg); err != nil {
		s.replyError(sess, msg.Type, err)
	}
}

func (s *GameServer) dispatch(sess *session.Session, msg network.Message) error {
	switch msg.Type {
	case network.MsgTypePing:
		return sess.SendMessage(network.MsgTypePong, nil)

	case network.MsgTypeJoinRoom:
		p, err := network.DecodePayload[network.JoinRoomPayload](msg)
		if err != nil {
			return err
		}
		roomID := room.NormalizeID(p.RoomID)
		if roomID == "" {
			return errMissingRoom
		}
		// 先订阅，保证加入者能收到自己的 player-joined
		s.hub.Subscribe(roomID, sess)
		sess.AddRoom(roomID)
		return s.coordinator.Join(roomID, models.Player{ID: sess.UserID, Name: sess.Name, AvatarURL: sess.AvatarURL})

	case network.MsgTypeStartGame:
		p, err := network.DecodePayload[network.StartGamePayload](msg)
		if err != nil {
			return err
		}
		roomID := room.NormalizeID(p.RoomID)
		if len(p.Questions) > 0 {
			return s.coordinator.StartGame(roomID, sess.UserID, p.Questions)
		}
		ctx, cancel := context.WithTimeout(context.Background(), supplierWait)
		defer cancel()
		return s.coordinator.StartGameFromSupplier(ctx, roomID, sess.UserID)

	case network.MsgTypeSubmitAnswer:
		p, err := network.DecodePayload[network.SubmitAnswerPayload](msg)
		if err != nil {
			return err
		}
		return s.coordinator.SubmitAnswer(room.NormalizeID(p.RoomID), sess.UserID, p.QuestionIndex, p.SelectedAnswer)

	case network.MsgTypeLeaveRoom:
		p, err := network.DecodePayload[network.LeaveRoomPayload](msg)
		if err != nil {
			return err
		}
		roomID := room.NormalizeID(p.RoomID)
		err = s.coordinator.Leave(roomID, sess.UserID)
		s.hub.Unsubscribe(roomID, sess.ID)
		sess.RemoveRoom(roomID)
		return err

	default:
		return errUnknownType
	}
}

var (
	errMissingRoom = errors.New("roomId is required")
	errUnknownType = errors.New("unknown message type")
)

func (s *GameServer) replyError(sess *session.Session, msgType network.MessageType, err error) {
	code, _ := errorCode(err)
	if errors.Is(err, network.ErrBadMessage) || errors.Is(err, errMissingRoom) || errors.Is(err, errUnknownType) {
		code = codeBadRequest
	}
	logger.Log.Debugw("action rejected", "session", sess.ID, "user", sess.UserID, "type", msgType, "code", code, "error", err)
	_ = sess.SendError(code, err.Error())
}
