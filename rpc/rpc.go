package rpc

import (
	"context"
	"errors"
	"net"
	"net/rpc"
	"time"

	"github.com/wfunc/triviaserver/logger"
	"github.com/wfunc/triviaserver/models"
	"github.com/wfunc/triviaserver/room"
)

// Server manages the admin RPC listener.
type Server struct {
	listener net.Listener
	address  string
	rpc      *rpc.Server
}

// NewServer listens on addr. Services are added with Register before Start.
func NewServer(addr string) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{
		listener: listener,
		address:  listener.Addr().String(),
		rpc:      rpc.NewServer(),
	}, nil
}

func (s *Server) Register(name string, service any) error {
	return s.rpc.RegisterName(name, service)
}

func (s *Server) Addr() string { return s.address }

// ServeConn serves a single connection; used by tests with net.Pipe.
func (s *Server) ServeConn(conn net.Conn) {
	s.rpc.ServeConn(conn)
}

// Start begins listening for RPC requests.
func (s *Server) Start() {
	logger.Log.Infof("RPC server listening on %s", s.address)
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				logger.Log.Info("RPC server listener closed.")
				return
			}
			logger.Log.Errorf("RPC server accept error: %v", err)
			continue
		}
		go s.rpc.ServeConn(conn)
	}
}

// Stop closes the RPC listener.
func (s *Server) Stop() {
	if s.listener != nil {
		logger.Log.Info("Stopping RPC server.")
		s.listener.Close()
	}
}

const ServiceName = "RoomService"

type RoomReader interface {
	Snapshot(roomID string) (room.Snapshot, error)
	RoomCount() int
}

type StatsReader interface {
	GetPlayerStats(ctx context.Context, userID string) (models.PlayerStats, error)
}

// RoomService exposes read-only room and player data to operators.
type RoomService struct {
	rooms   RoomReader
	players StatsReader
	timeout time.Duration
}

func NewRoomService(rooms RoomReader, players StatsReader) *RoomService {
	return &RoomService{rooms: rooms, players: players, timeout: 5 * time.Second}
}

type GetRoomArgs struct {
	RoomID string
}

type GetRoomReply struct {
	Room room.Snapshot
}

// GetRoom follows the net/rpc signature: exported args, pointer reply, error result.
func (rs *RoomService) GetRoom(args *GetRoomArgs, reply *GetRoomReply) error {
	snap, err := rs.rooms.Snapshot(room.NormalizeID(args.RoomID))
	if err != nil {
		return err
	}
	reply.Room = snap
	return nil
}

type GetPlayerStatsArgs struct {
	UserID string
}

type GetPlayerStatsReply struct {
	Stats models.PlayerStats
}

func (rs *RoomService) GetPlayerStats(args *GetPlayerStatsArgs, reply *GetPlayerStatsReply) error {
	if rs.players == nil {
		return errors.New("player stats unavailable")
	}
	ctx, cancel := context.WithTimeout(context.Background(), rs.timeout)
	defer cancel()

	stats, err := rs.players.GetPlayerStats(ctx, args.UserID)
	if err != nil {
		return err
	}
	reply.Stats = stats
	return nil
}

type CountRoomsArgs struct{}

type CountRoomsReply struct {
	Count int
}

func (rs *RoomService) CountRooms(_ *CountRoomsArgs, reply *CountRoomsReply) error {
	reply.Count = rs.rooms.RoomCount()
	return nil
}
