package ws

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/decred/slog"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"cockroach-poker/pkg/auth"
	"cockroach-poker/pkg/deck"
	"cockroach-poker/pkg/game"
	"cockroach-poker/pkg/metrics"
	"cockroach-poker/pkg/session"
)

// Hub accepts WebSocket connections, authenticates them, and routes frames
// between connections and room loops. It also implements
// session.Broadcaster for outbound fan-out.
type Hub struct {
	log      slog.Logger
	verifier *auth.Verifier
	profiles *auth.ProfileClient
	registry *session.Registry

	upgrader websocket.Upgrader

	// conns maps user id to that user's single authoritative connection.
	mu    sync.RWMutex
	conns map[string]*Client
}

// NewHub creates the transport hub. profiles may be nil.
func NewHub(log slog.Logger, verifier *auth.Verifier, profiles *auth.ProfileClient, registry *session.Registry) *Hub {
	return &Hub{
		log:      log,
		verifier: verifier,
		profiles: profiles,
		registry: registry,
		conns:    make(map[string]*Client),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Origin policy is enforced at the edge.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Handle upgrades a gin request to a WebSocket connection and starts its
// pumps. The connection has authDeadline to authenticate.
func (h *Hub) Handle(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Debugf("WebSocket upgrade failed: %v", err)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	client := &Client{
		hub:    h,
		conn:   conn,
		connID: uuid.NewString(),
		send:   make(chan []byte, outboundQueueSize),
		ctx:    ctx,
		cancel: cancel,
	}

	go client.writePump()
	go client.readPump()
}

// Send implements session.Broadcaster: deliver one frame to the user's
// authoritative connection, if any.
func (h *Hub) Send(userID string, f session.Frame) {
	h.mu.RLock()
	client, ok := h.conns[userID]
	h.mu.RUnlock()
	if !ok {
		return
	}
	client.writeFrame(f.Event, f.Payload)
}

// authenticate verifies the token in an authenticate frame and binds the
// connection. Returns false when the connection must close.
func (h *Hub) authenticate(c *Client, frame *inboundFrame) bool {
	identity, err := h.verifier.VerifyAccess(frame.AccessToken)
	if err != nil {
		code := authCodeInvalidToken
		if errors.Is(err, auth.ErrTokenExpired) {
			code = authCodeTokenExpired
		}
		c.writeFrame("authentication_failed", map[string]interface{}{
			"code":           code,
			"requires_login": true,
		})
		return false
	}
	if identity.Banned {
		c.writeFrame("authentication_failed", map[string]interface{}{
			"code":           authCodeUserBanned,
			"requires_login": false,
		})
		return false
	}

	displayName := identity.DisplayName
	if h.profiles != nil {
		ctx, cancel := context.WithTimeout(c.ctx, 2*time.Second)
		if name, err := h.profiles.Lookup(ctx, identity.UserID); err == nil {
			displayName = name
		} else {
			h.log.Debugf("Profile lookup for %s failed, using token subject: %v", identity.UserID, err)
		}
		cancel()
	}

	c.userID = identity.UserID
	c.displayName = displayName
	h.register(c)

	c.writeFrame("authenticated", map[string]interface{}{
		"user_id":       c.userID,
		"display_name":  c.displayName,
		"server_time":   time.Now().UTC(),
		"connection_id": c.connID,
	})
	h.log.Debugf("Connection %s authenticated as %s", c.connID, c.userID)
	return true
}

// register makes c the user's authoritative connection, displacing any
// older one. The displaced connection gets a notice and is closed.
func (h *Hub) register(c *Client) {
	h.mu.Lock()
	old := h.conns[c.userID]
	h.conns[c.userID] = c
	h.mu.Unlock()

	metrics.ConnectedClients.Inc()
	if old != nil {
		old.writeFrame("participant_status_update", map[string]interface{}{
			"user_id": old.userID,
			"status":  "displaced",
			"reason":  "newer connection authenticated",
		})
		old.cancel()
	}
}

// unregister forgets c if it is still the authoritative connection.
func (h *Hub) unregister(c *Client) {
	if c.userID == "" {
		return
	}
	h.mu.Lock()
	if h.conns[c.userID] == c {
		delete(h.conns, c.userID)
		metrics.ConnectedClients.Dec()
	}
	h.mu.Unlock()
}

// dispatch routes one authenticated inbound frame.
func (h *Hub) dispatch(c *Client, frame *inboundFrame) {
	switch frame.Event {
	case evHeartbeat:
		h.handleHeartbeat(c, frame)
	case evJoinRoom:
		h.handleJoin(c, frame)
	case evLeaveRoom:
		h.roomIntent(c, frame, session.IntentLeave, nil)
	case evClaim:
		h.roomIntent(c, frame, session.IntentClaim, game.Claim{
			ClaimerID:       c.userID,
			CardID:          frame.CardID,
			ClaimedCreature: deck.Creature(frame.ClaimedCreature),
			TargetID:        frame.TargetUserID,
		})
	case evRespond:
		if frame.BelieveClaim == nil {
			c.writeError(frame.Event, game.NewError(game.CodeMissingField, "believe_claim is required"))
			return
		}
		h.roomIntent(c, frame, session.IntentRespond, game.Respond{
			ResponderID: c.userID,
			RoundID:     frame.RoundID,
			Believe:     *frame.BelieveClaim,
		})
	case evPass:
		h.roomIntent(c, frame, session.IntentPass, game.Pass{
			PasserID:        c.userID,
			RoundID:         frame.RoundID,
			TargetID:        frame.TargetUserID,
			ClaimedCreature: deck.Creature(frame.NewClaim),
		})
	case evGetState:
		h.handleGetState(c, frame)
	case evAuthenticate:
		// Re-authentication on a live connection is not a thing; ignore.
		c.writeError(frame.Event, game.NewError(game.CodeValidation, "connection already authenticated"))
	default:
		c.writeError(frame.Event, game.NewError(game.CodeInvalidEnum, "unknown event %q", frame.Event))
	}
}

func (h *Hub) handleHeartbeat(c *Client, frame *inboundFrame) {
	now := time.Now().UTC()
	var latency int64
	if frame.Timestamp > 0 {
		latency = now.UnixMilli() - frame.Timestamp
	}
	c.writeFrame("heartbeat_ack", map[string]interface{}{
		"server_timestamp": now.UnixMilli(),
		"latency_ms":       latency,
	})
}

func (h *Hub) handleJoin(c *Client, frame *inboundFrame) {
	room, ok := h.registry.Get(frame.RoomID)
	if !ok {
		c.writeError(frame.Event, game.NewError(game.CodeRoomNotFound, "room %s not found", frame.RoomID))
		return
	}
	res := room.Enqueue(session.NewIntent(c.ctx, session.IntentJoin, c.userID, c.displayName, nil))
	if res.Err != nil {
		c.writeError(frame.Event, res.Err)
		return
	}
	c.writeFrame("room_joined", map[string]interface{}{
		"room_id":      frame.RoomID,
		"room_state":   res.View,
		"participants": res.View.Players,
		"your_participation": map[string]interface{}{
			"user_id":  c.userID,
			"position": res.Position,
		},
	})
}

func (h *Hub) handleGetState(c *Client, frame *inboundFrame) {
	room, ok := h.registry.Get(frame.RoomID)
	if !ok {
		c.writeError(frame.Event, game.NewError(game.CodeRoomNotFound, "room %s not found", frame.RoomID))
		return
	}
	res := room.Enqueue(session.NewIntent(c.ctx, session.IntentSnapshot, c.userID, c.displayName, nil))
	if res.Err != nil {
		c.writeError(frame.Event, res.Err)
		return
	}
	c.writeFrame("game_state_update", map[string]interface{}{
		"room_id":    frame.RoomID,
		"game_state": res.View,
		"timestamp":  time.Now().UTC(),
	})
}

// roomIntent forwards a generic room-scoped intent and reports rejections
// back to the submitting connection only.
func (h *Hub) roomIntent(c *Client, frame *inboundFrame, kind session.IntentKind, ev game.Event) {
	room, ok := h.registry.Get(frame.RoomID)
	if !ok {
		c.writeError(frame.Event, game.NewError(game.CodeRoomNotFound, "room %s not found", frame.RoomID))
		return
	}
	res := room.Enqueue(session.NewIntent(c.ctx, kind, c.userID, c.displayName, ev))
	if res.Err != nil {
		c.writeError(frame.Event, res.Err)
	}
}
