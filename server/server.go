package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/wfunc/triviaserver/broadcast"
	"github.com/wfunc/triviaserver/config"
	"github.com/wfunc/triviaserver/game"
	"github.com/wfunc/triviaserver/logger"
	"github.com/wfunc/triviaserver/models"
	"github.com/wfunc/triviaserver/monitor"
	"github.com/wfunc/triviaserver/session"
)

// PlayerQueries backs the leaderboard and profile endpoints.
type PlayerQueries interface {
	GetLeaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error)
	GetPlayerStats(ctx context.Context, userID string) (models.PlayerStats, error)
}

type Deps struct {
	Coordinator *game.Coordinator
	Sessions    *session.Manager
	Hub         *broadcast.Hub
	Supplier    game.QuestionSupplier
	Players     PlayerQueries
	Monitor     *monitor.Monitor
}

type GameServer struct {
	cfg         config.ServerConfig
	game        config.GameConfig
	upgrader    websocket.Upgrader
	coordinator *game.Coordinator
	sessions    *session.Manager
	hub         *broadcast.Hub
	supplier    game.QuestionSupplier
	players     PlayerQueries
	monitor     *monitor.Monitor
	engine      *gin.Engine
	httpServer  *http.Server
}

func NewGameServer(cfg *config.Config, deps Deps) *GameServer {
	s := &GameServer{
		cfg:         cfg.Server,
		game:        cfg.Game,
		coordinator: deps.Coordinator,
		sessions:    deps.Sessions,
		hub:         deps.Hub,
		supplier:    deps.Supplier,
		players:     deps.Players,
		monitor:     deps.Monitor,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // 允许所有跨域请求
			},
		},
	}
	if s.monitor != nil {
		s.hub.OnDrop(s.monitor.IncMessagesDropped)
	}
	s.engine = s.routes()
	s.httpServer = &http.Server{
		Addr:              s.cfg.HTTPAddress,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *GameServer) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	r.GET("/health", s.handleHealth)
	if s.monitor != nil {
		r.GET("/metrics", gin.WrapH(s.monitor.Handler()))
	}
	r.GET("/ws", s.handleWebSocket)

	api := r.Group("/api")
	api.POST("/rooms", s.handleCreateRoom)
	api.GET("/rooms/:roomId", s.handleGetRoom)
	api.POST("/rooms/:roomId/join", s.handleCheckJoin)
	api.POST("/rooms/:roomId/leave", s.handleLeaveRoom)
	api.GET("/questions", s.handleQuestions)
	api.GET("/leaderboard", s.handleLeaderboard)
	api.GET("/users/:userId/stats", s.handlePlayerStats)
	return r
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Log.Debugw("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"latency", time.Since(start).String())
	}
}

func (s *GameServer) Handler() http.Handler { return s.engine }

func (s *GameServer) Start() error {
	logger.Log.Infof("Trivia server listening on %s", s.cfg.HTTPAddress)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and closes every websocket.
func (s *GameServer) Shutdown(ctx context.Context) error {
	for _, sess := range s.sessions.All() {
		sess.Close()
	}
	return s.httpServer.Shutdown(ctx)
}
