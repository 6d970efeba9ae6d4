package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"cockroach-poker/pkg/game"
	"cockroach-poker/pkg/session"
)

type createRoomRequest struct {
	TurnTimeLimitSeconds int `json:"turn_time_limit_seconds"`
}

// createRoom allocates a waiting room with the caller as creator.
func (s *Server) createRoom(c *gin.Context) {
	id := identity(c)

	req := createRoomRequest{TurnTimeLimitSeconds: 60}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, errorBody("validation", "malformed request body"))
			return
		}
	}

	room, err := s.registry.CreateRoom(id.UserID, id.DisplayName, req.TurnTimeLimitSeconds)
	if err != nil {
		writeGameError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"room_id": room.ID(),
		"room":    room.Summary(),
	})
}

// listRooms returns a bounded listing of waiting and in-progress rooms.
func (s *Server) listRooms(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 || v > 200 {
			c.JSON(http.StatusBadRequest, errorBody("out_of_range", "limit must be an integer in [1,200]"))
			return
		}
		limit = v
	}
	c.JSON(http.StatusOK, gin.H{"rooms": s.registry.List(limit)})
}

// getRoom returns the caller's personalized snapshot of a room.
func (s *Server) getRoom(c *gin.Context) {
	s.snapshot(c, c.Param("id"))
}

// gameState returns the caller's personalized game snapshot. Rooms and
// games share ids; the route exists for clients that track them separately.
func (s *Server) gameState(c *gin.Context) {
	s.snapshot(c, c.Param("id"))
}

func (s *Server) snapshot(c *gin.Context, roomID string) {
	id := identity(c)
	room, ok := s.registry.Get(roomID)
	if !ok {
		c.JSON(http.StatusNotFound, errorBody(string(game.CodeRoomNotFound), "room not found"))
		return
	}
	res := room.Enqueue(session.NewIntent(c.Request.Context(), session.IntentSnapshot, id.UserID, id.DisplayName, nil))
	if res.Err != nil {
		writeGameError(c, res.Err)
		return
	}
	c.JSON(http.StatusOK, res.View)
}

// joinRoom reserves slot 1 for the caller.
func (s *Server) joinRoom(c *gin.Context) {
	id := identity(c)
	room, ok := s.registry.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, errorBody(string(game.CodeRoomNotFound), "room not found"))
		return
	}
	res := room.Enqueue(session.NewIntent(c.Request.Context(), session.IntentJoin, id.UserID, id.DisplayName, nil))
	if res.Err != nil {
		writeGameError(c, res.Err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"room_id":  room.ID(),
		"position": res.Position,
		"state":    res.View,
	})
}

// startRoom starts the game; creator only, both seats occupied.
func (s *Server) startRoom(c *gin.Context) {
	id := identity(c)
	room, ok := s.registry.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, errorBody(string(game.CodeRoomNotFound), "room not found"))
		return
	}
	res := room.Enqueue(session.NewIntent(c.Request.Context(), session.IntentStart, id.UserID, id.DisplayName, nil))
	if res.Err != nil {
		writeGameError(c, res.Err)
		return
	}
	c.JSON(http.StatusOK, res.View)
}

// leaveRoom removes the caller from a waiting room.
func (s *Server) leaveRoom(c *gin.Context) {
	id := identity(c)
	room, ok := s.registry.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, errorBody(string(game.CodeRoomNotFound), "room not found"))
		return
	}
	res := room.Enqueue(session.NewIntent(c.Request.Context(), session.IntentLeave, id.UserID, id.DisplayName, nil))
	if res.Err != nil {
		writeGameError(c, res.Err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"room_id": room.ID(), "left": true})
}
