package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/wfunc/triviaserver/broadcast"
	"github.com/wfunc/triviaserver/cache"
	"github.com/wfunc/triviaserver/config"
	"github.com/wfunc/triviaserver/game"
	"github.com/wfunc/triviaserver/logger"
	"github.com/wfunc/triviaserver/monitor"
	"github.com/wfunc/triviaserver/persistence"
	"github.com/wfunc/triviaserver/questions"
	"github.com/wfunc/triviaserver/room"
	"github.com/wfunc/triviaserver/rpc"
	"github.com/wfunc/triviaserver/server"
	"github.com/wfunc/triviaserver/services"
	"github.com/wfunc/triviaserver/session"
	"github.com/wfunc/triviaserver/timer"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig(".")
	if err != nil {
		logger.Init("info")
		logger.Log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Init(cfg.Log.Level)
	defer logger.Sync()

	// 结果存储：配置了数据库则使用 PostgreSQL，否则使用内存
	var store persistence.Store = persistence.NewMemoryStore()
	var supplier game.QuestionSupplier = questions.NewStatic()
	if cfg.Database.Enabled {
		db, err := persistence.NewGormPostgreSQL(cfg.Database.Postgres)
		if err != nil {
			logger.Log.Fatalf("Failed to connect to database: %v", err)
		}
		logger.Log.Info("Database connection successful.")
		store = db
		// 题库不足时回退到内置题目
		supplier = questions.Fallback{db, questions.NewStatic()}
	}
	defer store.Close()
	supplier = questions.NewValidated(supplier)

	var board services.LeaderboardCache
	if cfg.Redis.Enabled {
		redisClient, err := cache.NewRedisClient(cfg.Redis)
		if err != nil {
			logger.Log.Fatalf("Failed to connect to redis: %v", err)
		}
		defer redisClient.Close()
		board = cache.NewLeaderboard(redisClient.GetClient())
		logger.Log.Info("Redis connection successful.")
	}
	players := services.NewPlayerService(store, board, cfg.Game.LeaderboardSize)

	mon := monitor.NewMonitor("trivia")
	scheduler := timer.NewTimerManager(timer.DefaultResolution)
	defer scheduler.Stop()

	sessions := session.NewManager()
	hub := broadcast.NewHub()
	coordinator := game.NewCoordinator(
		room.NewRegistry(cfg.Game.RoomCodeLength),
		scheduler,
		hub,
		game.Options{
			TickInterval:      cfg.Game.TickInterval,
			QuestionTicks:     cfg.Game.QuestionTicks,
			ResultsTicks:      cfg.Game.ResultsTicks,
			PointsPerCorrect:  cfg.Game.PointsPerCorrect,
			DefaultCategory:   cfg.Game.DefaultCategory,
			DefaultDifficulty: cfg.Game.DefaultDifficulty,
			DefaultCount:      cfg.Game.DefaultCount,
		},
		game.WithSupplier(supplier),
		game.WithResultSink(players),
		game.WithMetrics(mon),
	)

	// Admin RPC
	rpcServer, err := rpc.NewServer(cfg.Server.RPCAddress)
	if err != nil {
		logger.Log.Fatalf("Failed to create RPC server: %v", err)
	}
	if err := rpcServer.Register(rpc.ServiceName, rpc.NewRoomService(coordinator, players)); err != nil {
		logger.Log.Fatalf("Failed to register RPC service: %v", err)
	}
	go rpcServer.Start()
	defer rpcServer.Stop()

	gameServer := server.NewGameServer(cfg, server.Deps{
		Coordinator: coordinator,
		Sessions:    sessions,
		Hub:         hub,
		Supplier:    supplier,
		Players:     players,
		Monitor:     mon,
	})

	errCh := make(chan error, 1)
	go func() { errCh <- gameServer.Start() }()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			logger.Log.Errorf("Server stopped: %v", err)
		}
	case sig := <-quit:
		logger.Log.Infow("Shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := gameServer.Shutdown(ctx); err != nil {
		logger.Log.Errorf("Graceful shutdown failed: %v", err)
	}
}
