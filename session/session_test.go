package session

import (
	"encoding/json"
	"net"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wfunc/triviaserver/network"
)

// MockConnection records every frame handed to Send.
type MockConnection struct {
	mutex  sync.Mutex
	frames [][]byte
	closed bool
}

func (m *MockConnection) Send(data []byte) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if m.closed {
		return network.ErrConnectionClosed
	}
	m.frames = append(m.frames, data)
	return nil
}

func (m *MockConnection) Close() error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.closed = true
	return nil
}

func (m *MockConnection) RemoteAddr() net.Addr { return &net.TCPAddr{} }

func TestNewManager(t *testing.T) {
	manager := NewManager()
	require.NotNil(t, manager)
	assert.NotNil(t, manager.sessions)
	assert.Equal(t, 0, manager.Count())
}

func TestManager_Add_Get_Remove(t *testing.T) {
	manager := NewManager()
	sess := NewSession("test_session_1", &MockConnection{})

	manager.Add(sess)
	assert.Equal(t, 1, manager.Count())

	got, exists := manager.Get("test_session_1")
	require.True(t, exists)
	assert.Same(t, sess, got)

	manager.Remove("test_session_1")
	assert.Equal(t, 0, manager.Count())
	_, exists = manager.Get("test_session_1")
	assert.False(t, exists)
}

func TestManager_GetByUserID(t *testing.T) {
	manager := NewManager()
	a1 := NewSession("s1", &MockConnection{})
	a1.UserID = "alice"
	a2 := NewSession("s2", &MockConnection{})
	a2.UserID = "alice"
	b := NewSession("s3", &MockConnection{})
	b.UserID = "bob"
	manager.Add(a1)
	manager.Add(a2)
	manager.Add(b)

	assert.Len(t, manager.GetByUserID("alice"), 2)
	assert.Len(t, manager.GetByUserID("bob"), 1)
	assert.Empty(t, manager.GetByUserID("carol"))
	assert.Len(t, manager.All(), 3)
}

func TestSession_SendError(t *testing.T) {
	conn := &MockConnection{}
	sess := NewSession("s1", conn)

	require.NoError(t, sess.SendError("not_host", "only the host can start"))
	require.Len(t, conn.frames, 1)

	var got struct {
		Type    string               `json:"type"`
		Payload network.ErrorPayload `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(conn.frames[0], &got))
	assert.Equal(t, "error", got.Type)
	assert.Equal(t, "not_host", got.Payload.Code)

	require.NoError(t, sess.Close())
	assert.ErrorIs(t, sess.Send([]byte("x")), network.ErrConnectionClosed)
}

func TestSession_Rooms(t *testing.T) {
	sess := NewSession("s1", &MockConnection{})
	sess.AddRoom("A")
	sess.AddRoom("B")
	sess.AddRoom("A")
	assert.ElementsMatch(t, []string{"A", "B"}, sess.Rooms())

	sess.RemoveRoom("A")
	assert.False(t, sess.InRoom("A"))
	assert.True(t, sess.InRoom("B"))
}

func TestSession_RateLimit(t *testing.T) {
	sess := NewSession("s1", &MockConnection{})
	assert.True(t, sess.Allow(), "no limiter configured")

	sess.SetRateLimit(0.001, 2)
	assert.True(t, sess.Allow())
	assert.True(t, sess.Allow())
	assert.False(t, sess.Allow())
}
