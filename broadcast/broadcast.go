// broadcast/broadcast.go
package broadcast

import (
	"errors"
	"sync"

	"github.com/wfunc/triviaserver/game"
	"github.com/wfunc/triviaserver/logger"
	"github.com/wfunc/triviaserver/network"
	"github.com/wfunc/triviaserver/session"
)

var (
	ErrRoomNotFound = errors.New("room not found")
)

// Hub 维护房间到连接的订阅关系，并实现 game.Emitter
type Hub struct {
	groups map[string]map[string]*session.Session
	mutex  sync.RWMutex
	onDrop func()
}

func NewHub() *Hub {
	return &Hub{
		groups: make(map[string]map[string]*session.Session),
	}
}

// OnDrop registers a callback for every frame a full or closed connection refused.
func (h *Hub) OnDrop(fn func()) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.onDrop = fn
}

func (h *Hub) Subscribe(roomID string, s *session.Session) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	group, ok := h.groups[roomID]
	if !ok {
		group = make(map[string]*session.Session)
		h.groups[roomID] = group
	}
	group[s.ID] = s
}

func (h *Hub) Unsubscribe(roomID, sessionID string) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.unsubscribeLocked(roomID, sessionID)
}

func (h *Hub) unsubscribeLocked(roomID, sessionID string) {
	group, ok := h.groups[roomID]
	if !ok {
		return
	}
	delete(group, sessionID)
	if len(group) == 0 {
		delete(h.groups, roomID)
	}
}

// UnsubscribeAll 连接断开时移除该连接的全部订阅
func (h *Hub) UnsubscribeAll(sessionID string) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	for roomID := range h.groups {
		h.unsubscribeLocked(roomID, sessionID)
	}
}

// Subscribers returns the sessions listening on the room.
func (h *Hub) Subscribers(roomID string) []*session.Session {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	out := make([]*session.Session, 0, len(h.groups[roomID]))
	for _, s := range h.groups[roomID] {
		out = append(out, s)
	}
	return out
}

// Emit 把协调器事件编码一次后投递给房间内所有连接
func (h *Hub) Emit(ev game.Event) {
	if err := h.BroadcastToRoom(ev.RoomID, network.MessageType(ev.Type), ev.Payload); err != nil &&
		!errors.Is(err, ErrRoomNotFound) {
		logger.Log.Warnw("broadcast failed", "room", ev.RoomID, "type", ev.Type, "error", err)
	}
}

func (h *Hub) BroadcastToRoom(roomID string, msgType network.MessageType, payload any) error {
	data, err := network.Encode(msgType, payload)
	if err != nil {
		return err
	}

	h.mutex.RLock()
	group, exists := h.groups[roomID]
	if !exists {
		h.mutex.RUnlock()
		return ErrRoomNotFound
	}
	targets := make([]*session.Session, 0, len(group))
	for _, s := range group {
		targets = append(targets, s)
	}
	onDrop := h.onDrop
	h.mutex.RUnlock()

	for _, s := range targets {
		h.deliver(s, data, onDrop)
	}
	return nil
}

func (h *Hub) deliver(s *session.Session, data []byte, onDrop func()) {
	if err := s.Send(data); err != nil {
		logger.Log.Debugw("dropped frame", "session", s.ID, "user", s.UserID, "error", err)
		if onDrop != nil {
			onDrop()
		}
	}
}
