package network

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/wfunc/triviaserver/models"
)

type MessageType string

const (
	// Client -> Server
	MsgTypeJoinRoom     MessageType = "join-room"
	MsgTypeStartGame    MessageType = "start-game"
	MsgTypeSubmitAnswer MessageType = "submit-answer"
	MsgTypeLeaveRoom    MessageType = "leave-room"
	MsgTypePing         MessageType = "ping"

	// Server -> Client, unicast
	MsgTypeConnected MessageType = "connected"
	MsgTypeError     MessageType = "error"
	MsgTypePong      MessageType = "pong"
)

var ErrBadMessage = errors.New("bad message")

// Message 客户端与服务端之间的 JSON 帧
type Message struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type outbound struct {
	Type    MessageType `json:"type"`
	Payload any         `json:"payload,omitempty"`
}

type JoinRoomPayload struct {
	RoomID string `json:"roomId"`
}

type StartGamePayload struct {
	RoomID    string            `json:"roomId"`
	Questions []models.Question `json:"questions,omitempty"`
}

type SubmitAnswerPayload struct {
	RoomID         string `json:"roomId"`
	QuestionIndex  int    `json:"questionIndex"`
	SelectedAnswer string `json:"selectedAnswer"`
}

type LeaveRoomPayload struct {
	RoomID string `json:"roomId"`
}

type ConnectedPayload struct {
	SessionID string `json:"sessionId"`
	UserID    string `json:"userId"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Encode 序列化一条下行消息
func Encode(msgType MessageType, payload any) ([]byte, error) {
	return json.Marshal(outbound{Type: msgType, Payload: payload})
}

// Decode parses an inbound frame; the payload is left raw for DecodePayload.
func Decode(data []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrBadMessage, err)
	}
	if msg.Type == "" {
		return Message{}, fmt.Errorf("%w: missing type", ErrBadMessage)
	}
	return msg, nil
}

func DecodePayload[T any](msg Message) (T, error) {
	var payload T
	if len(msg.Payload) == 0 {
		return payload, fmt.Errorf("%w: %s without payload", ErrBadMessage, msg.Type)
	}
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		return payload, fmt.Errorf("%w: %s payload: %v", ErrBadMessage, msg.Type, err)
	}
	return payload, nil
}
