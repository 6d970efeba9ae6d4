// Package httpapi is the thin HTTP control plane for room lifecycle and
// snapshot queries. Game play itself happens over the WebSocket hub.
package httpapi

import (
	"net/http"
	"strings"

	"github.com/decred/slog"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"cockroach-poker/pkg/auth"
	"cockroach-poker/pkg/game"
	"cockroach-poker/pkg/session"
	"cockroach-poker/pkg/ws"
)

// Server wires the gin router for the control plane.
type Server struct {
	log      slog.Logger
	verifier *auth.Verifier
	registry *session.Registry
	hub      *ws.Hub
}

// NewServer creates the control plane.
func NewServer(log slog.Logger, verifier *auth.Verifier, registry *session.Registry, hub *ws.Hub) *Server {
	return &Server{log: log, verifier: verifier, registry: registry, hub: hub}
}

// Router builds the gin engine with every route mounted.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authed := router.Group("/", s.bearerAuth())
	authed.GET("/ws", s.hub.Handle)
	authed.POST("/rooms", s.createRoom)
	authed.GET("/rooms", s.listRooms)
	authed.GET("/rooms/:id", s.getRoom)
	authed.POST("/rooms/:id/join", s.joinRoom)
	authed.POST("/rooms/:id/start", s.startRoom)
	authed.POST("/rooms/:id/leave", s.leaveRoom)
	authed.GET("/games/:id/state", s.gameState)

	return router
}

const identityKey = "identity"

// bearerAuth validates the Authorization header and stashes the identity in
// the request context. Token material never reaches the logs.
func (s *Server) bearerAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			// The WebSocket route authenticates in-band instead.
			if c.FullPath() == "/ws" {
				c.Next()
				return
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody("invalid_token", "missing bearer token"))
			return
		}
		identity, err := s.verifier.VerifyAccess(token)
		if err != nil {
			code := "invalid_token"
			if err == auth.ErrTokenExpired {
				code = "token_expired"
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody(code, "token rejected"))
			return
		}
		if identity.Banned {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody("user_banned", "account banned"))
			return
		}
		c.Set(identityKey, identity)
		c.Next()
	}
}

// identity returns the verified identity for the request.
func identity(c *gin.Context) auth.Identity {
	v, _ := c.Get(identityKey)
	id, _ := v.(auth.Identity)
	return id
}

// errorBody is the JSON error envelope.
func errorBody(code, message string) gin.H {
	return gin.H{"error": gin.H{"code": code, "message": message}}
}

// writeGameError maps a typed game error onto an HTTP status.
func writeGameError(c *gin.Context, err error) {
	code := game.CodeOf(err)
	status := http.StatusBadRequest
	switch code {
	case game.CodeRoomNotFound, game.CodeRoundNotFound:
		status = http.StatusNotFound
	case game.CodeNotParticipant, game.CodeNotCreator, game.CodeNotYourTurn:
		status = http.StatusForbidden
	case game.CodeRoomFull, game.CodeAlreadyJoined, game.CodeGameNotActive, game.CodeRoundCompleted:
		status = http.StatusConflict
	case game.CodeBusy:
		status = http.StatusServiceUnavailable
	case game.CodeServerError:
		status = http.StatusInternalServerError
	}
	msg := err.Error()
	if code == game.CodeServerError {
		// Detail stays in the logs.
		msg = "internal server error"
	}
	c.JSON(status, errorBody(string(code), msg))
}
