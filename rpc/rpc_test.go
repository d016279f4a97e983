package rpc

import (
	"context"
	"net"
	"net/rpc"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wfunc/triviaserver/game"
	"github.com/wfunc/triviaserver/models"
	"github.com/wfunc/triviaserver/persistence"
	"github.com/wfunc/triviaserver/room"
	"github.com/wfunc/triviaserver/timer"
)

func newClient(t *testing.T, svc *RoomService) *rpc.Client {
	t.Helper()
	srv, err := NewServer("127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(srv.Stop)
	require.NoError(t, srv.Register(ServiceName, svc))

	serverConn, clientConn := net.Pipe()
	go srv.ServeConn(serverConn)
	client := rpc.NewClient(clientConn)
	t.Cleanup(func() { client.Close() })
	return client
}

func TestGetRoom(t *testing.T) {
	coord := game.NewCoordinator(room.NewRegistry(6), timer.NewManualScheduler(), nil, game.Options{})
	require.NoError(t, coord.Join("ABC123", models.Player{ID: "alice", Name: "Alice"}))
	client := newClient(t, NewRoomService(coord, nil))

	var reply GetRoomReply
	require.NoError(t, client.Call(ServiceName+".GetRoom", &GetRoomArgs{RoomID: " abc123 "}, &reply))
	assert.Equal(t, "ABC123", reply.Room.ID)
	assert.Equal(t, "alice", reply.Room.HostID)
	require.Len(t, reply.Room.Players, 1)

	err := client.Call(ServiceName+".GetRoom", &GetRoomArgs{RoomID: "NOPE"}, &reply)
	require.Error(t, err)
	assert.Equal(t, game.ErrRoomNotFound.Error(), err.Error())

	var count CountRoomsReply
	require.NoError(t, client.Call(ServiceName+".CountRooms", &CountRoomsArgs{}, &count))
	assert.Equal(t, 1, count.Count)
}

func TestGetPlayerStats(t *testing.T) {
	store := persistence.NewMemoryStore()
	require.NoError(t, store.SaveGame(context.Background(), models.GameSummary{
		RoomID: "R1",
		Scores: []models.ScoreRow{{UserID: "alice", Score: 300, CorrectAnswers: 3, AnsweredQuestions: 4}},
	}))
	coord := game.NewCoordinator(room.NewRegistry(6), timer.NewManualScheduler(), nil, game.Options{})
	client := newClient(t, NewRoomService(coord, store))

	var reply GetPlayerStatsReply
	require.NoError(t, client.Call(ServiceName+".GetPlayerStats", &GetPlayerStatsArgs{UserID: "alice"}, &reply))
	assert.EqualValues(t, 300, reply.Stats.TotalScore)
	assert.InDelta(t, 75.0, reply.Stats.Accuracy, 0.001)

	err := client.Call(ServiceName+".GetPlayerStats", &GetPlayerStatsArgs{UserID: "bob"}, &reply)
	require.Error(t, err)
	assert.Equal(t, persistence.ErrRecordNotFound.Error(), err.Error())
}
