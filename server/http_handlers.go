package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wfunc/triviaserver/game"
	"github.com/wfunc/triviaserver/logger"
	"github.com/wfunc/triviaserver/models"
	"github.com/wfunc/triviaserver/persistence"
	"github.com/wfunc/triviaserver/room"
)

const (
	maxQuestionCount = 50
	queryTimeout     = 5 * time.Second
)

type createRoomRequest struct {
	HostID   string          `json:"hostId"`
	Settings models.Settings `json:"settings"`
}

type leaveRoomRequest struct {
	UserID string `json:"userId"`
}

func (s *GameServer) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"rooms":       s.coordinator.RoomCount(),
		"connections": s.sessions.Count(),
	})
}

func (s *GameServer) handleCreateRoom(c *gin.Context) {
	var req createRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid-request-format"})
		return
	}
	if req.HostID == "" {
		req.HostID = c.GetHeader(userIDHeader)
	}
	if req.HostID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "hostId is required"})
		return
	}
	if req.Settings.QuestionCount > maxQuestionCount {
		c.JSON(http.StatusBadRequest, gin.H{"error": "questionCount cannot exceed " + strconv.Itoa(maxQuestionCount)})
		return
	}

	roomID, err := s.coordinator.CreateRoom(req.HostID, req.Settings)
	if err != nil {
		logger.Log.Errorw("create room failed", "host", req.HostID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create room"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"roomId": roomID})
}

func (s *GameServer) handleGetRoom(c *gin.Context) {
	snap, err := s.coordinator.Snapshot(room.NormalizeID(c.Param("roomId")))
	if err != nil {
		writeGameError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (s *GameServer) handleCheckJoin(c *gin.Context) {
	roomID := room.NormalizeID(c.Param("roomId"))
	if err := s.coordinator.CheckJoinable(roomID); err != nil {
		writeGameError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"roomId": roomID, "joinable": true})
}

func (s *GameServer) handleLeaveRoom(c *gin.Context) {
	var req leaveRoomRequest
	_ = c.ShouldBindJSON(&req)
	if req.UserID == "" {
		req.UserID = c.GetHeader(userIDHeader)
	}
	if req.UserID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "userId is required"})
		return
	}

	roomID := room.NormalizeID(c.Param("roomId"))
	if err := s.coordinator.Leave(roomID, req.UserID); err != nil {
		writeGameError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"roomId": roomID, "left": true})
}

func (s *GameServer) handleQuestions(c *gin.Context) {
	if s.supplier == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no question supplier"})
		return
	}
	category := c.DefaultQuery("category", s.game.DefaultCategory)
	difficulty := c.DefaultQuery("difficulty", s.game.DefaultDifficulty)
	count := s.game.DefaultCount
	if raw := c.Query("count"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxQuestionCount {
			c.JSON(http.StatusBadRequest, gin.H{"error": "count must be between 1 and " + strconv.Itoa(maxQuestionCount)})
			return
		}
		count = n
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), queryTimeout)
	defer cancel()
	questions, err := s.supplier.Questions(ctx, category, difficulty, count)
	if err != nil {
		logger.Log.Warnw("question supplier failed", "category", category, "difficulty", difficulty, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to generate questions"})
		return
	}
	// 与客户端约定直接返回题目数组
	c.JSON(http.StatusOK, questions)
}

func (s *GameServer) handleLeaderboard(c *gin.Context) {
	if s.players == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "stats unavailable"})
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))

	ctx, cancel := context.WithTimeout(c.Request.Context(), queryTimeout)
	defer cancel()
	entries, err := s.players.GetLeaderboard(ctx, limit)
	if err != nil {
		logger.Log.Errorw("leaderboard query failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load leaderboard"})
		return
	}
	if entries == nil {
		entries = []models.LeaderboardEntry{}
	}
	c.JSON(http.StatusOK, gin.H{"leaderboard": entries})
}

func (s *GameServer) handlePlayerStats(c *gin.Context) {
	if s.players == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "stats unavailable"})
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), queryTimeout)
	defer cancel()

	stats, err := s.players.GetPlayerStats(ctx, c.Param("userId"))
	if errors.Is(err, persistence.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "player not found"})
		return
	}
	if err != nil {
		logger.Log.Errorw("stats query failed", "user", c.Param("userId"), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load stats"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// errorCode maps coordinator errors onto stable codes shared by HTTP and websocket replies.
func errorCode(err error) (code string, status int) {
	switch {
	case errors.Is(err, game.ErrRoomNotFound):
		return "room_not_found", http.StatusNotFound
	case errors.Is(err, game.ErrGameInProgress):
		return "game_in_progress", http.StatusBadRequest
	case errors.Is(err, game.ErrNotMember):
		return "not_member", http.StatusForbidden
	case errors.Is(err, game.ErrNotHost):
		return "not_host", http.StatusForbidden
	case errors.Is(err, game.ErrInvalidTransition):
		return "invalid_transition", http.StatusConflict
	case errors.Is(err, game.ErrNoQuestions):
		return "no_questions", http.StatusBadRequest
	case errors.Is(err, models.ErrMalformedQuestion):
		return "malformed_question", http.StatusBadRequest
	case errors.Is(err, game.ErrNoSupplier):
		return "no_supplier", http.StatusServiceUnavailable
	default:
		return "internal", http.StatusInternalServerError
	}
}

func writeGameError(c *gin.Context, err error) {
	code, status := errorCode(err)
	c.JSON(status, gin.H{"error": err.Error(), "code": code})
}
