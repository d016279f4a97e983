package room

import (
	"crypto/rand"
	"errors"
	"strings"
	"sync"

	"github.com/wfunc/triviaserver/models"
)

const maxCodeAttempts = 32

var ErrCodeSpaceExhausted = errors.New("could not allocate a unique room code")

// Registry 管理所有房间，房间没有过期时间，最后一名玩家离开时删除
type Registry struct {
	rooms      map[string]*Room
	mutex      sync.RWMutex
	codeLength int
	newCode    func(n int) string
}

// NewRegistry 创建一个新的房间管理器
func NewRegistry(codeLength int) *Registry {
	return &Registry{
		rooms:      make(map[string]*Room),
		codeLength: codeLength,
		newCode:    randomCode,
	}
}

// NormalizeID trims and upper-cases a user supplied room code.
func NormalizeID(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}

// randomCode returns n characters from the base32 alphabet (A-Z, 2-7).
func randomCode(n int) string {
	var b strings.Builder
	for b.Len() < n {
		b.WriteString(rand.Text())
	}
	return b.String()[:n]
}

// GetOrCreate returns the room with the id, creating an empty waiting room when absent.
// The boolean reports whether a room was created.
func (m *Registry) GetOrCreate(id string) (*Room, bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if r, exists := m.rooms[id]; exists {
		return r, false
	}
	r := NewRoom(id, "", models.Settings{})
	m.rooms[id] = r
	return r, true
}

// Create allocates a fresh collision-checked room code for an explicitly created room.
func (m *Registry) Create(hostID string, settings models.Settings) (*Room, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	for range maxCodeAttempts {
		id := m.newCode(m.codeLength)
		if _, exists := m.rooms[id]; exists {
			continue
		}
		r := NewRoom(id, hostID, settings)
		m.rooms[id] = r
		return r, nil
	}
	return nil, ErrCodeSpaceExhausted
}

// Get 从管理器中获取一个房间
func (m *Registry) Get(id string) (*Room, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	r, exists := m.rooms[id]
	return r, exists
}

// Delete removes the room with the id.
func (m *Registry) Delete(id string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if r, exists := m.rooms[id]; exists {
		r.markClosed()
		delete(m.rooms, id)
	}
}

// Remove deletes r only if it is still the registered instance for its id.
// The caller must hold r's lock.
func (m *Registry) Remove(r *Room) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	r.markClosed()
	if current, exists := m.rooms[r.ID]; exists && current == r {
		delete(m.rooms, r.ID)
	}
}

// All returns the registered rooms; the slice is a copy.
func (m *Registry) All() []*Room {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	rooms := make([]*Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		rooms = append(rooms, r)
	}
	return rooms
}

// RoomsWithPlayer lists the ids of rooms the user is currently a member of.
func (m *Registry) RoomsWithPlayer(userID string) []string {
	var ids []string
	for _, r := range m.All() {
		r.Lock()
		if !r.Closed() && r.HasPlayer(userID) {
			ids = append(ids, r.ID)
		}
		r.Unlock()
	}
	return ids
}

func (m *Registry) Count() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.rooms)
}
