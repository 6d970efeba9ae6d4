package ws

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"

	"cockroach-poker/pkg/game"
)

// authDeadline closes connections whose first frame is not a valid
// authenticate within this window. Variable so tests can shrink it.
var authDeadline = 10 * time.Second

const (
	// outboundQueueSize bounds the per-connection send buffer. A full
	// buffer means the connection is stuck; it gets dropped.
	outboundQueueSize = 64

	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	maxFrameSize = 8 * 1024
)

// Client is one WebSocket connection. Before authentication it has no user;
// afterwards it is bound to a {user_id, connection_id} pair and registered
// as the user's authoritative connection.
type Client struct {
	hub  *Hub
	conn *websocket.Conn

	userID      string
	displayName string
	connID      string

	send chan []byte

	// ctx is cancelled when the connection dies; it rides along on every
	// intent so the room loop can drop work from dead connections.
	ctx    context.Context
	cancel context.CancelFunc
}

// writeFrame enqueues an encoded frame, dropping the connection when the
// outbound buffer is full.
func (c *Client) writeFrame(event string, payload map[string]interface{}) {
	data, err := encodeFrame(event, payload)
	if err != nil {
		c.hub.log.Errorf("Failed to encode %s frame: %v", event, err)
		return
	}
	select {
	case c.send <- data:
	default:
		c.hub.log.Warnf("Outbound queue full for connection %s, dropping connection", c.connID)
		c.cancel()
	}
}

// writeError sends an action_error for a rejected intent to this connection
// only; other participants see no disruption.
func (c *Client) writeError(attempted string, err error) {
	c.writeFrame("action_error", map[string]interface{}{
		"code":             string(game.CodeOf(err)),
		"message":          err.Error(),
		"action_attempted": attempted,
	})
}

// readPump drains inbound frames until the connection dies. First frame
// must authenticate.
func (c *Client) readPump() {
	// writePump owns the close: cancelling here makes it drain the send
	// buffer and then close the conn.
	defer func() {
		c.cancel()
		c.hub.unregister(c)
	}()

	c.conn.SetReadLimit(maxFrameSize)
	c.conn.SetReadDeadline(time.Now().Add(authDeadline))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.log.Debugf("Connection %s read error: %v", c.connID, err)
			}
			if c.userID == "" {
				// Auth deadline or early disconnect before authenticating.
				c.writeFrame("authentication_failed", map[string]interface{}{
					"code":           authCodeInvalidToken,
					"requires_login": true,
				})
			}
			return
		}

		var frame inboundFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			c.writeError("", game.NewError(game.CodeValidation, "malformed frame: %v", err))
			continue
		}

		if c.userID == "" {
			if frame.Event != evAuthenticate {
				c.writeFrame("authentication_failed", map[string]interface{}{
					"code":           authCodeInvalidToken,
					"requires_login": true,
				})
				return
			}
			if !c.hub.authenticate(c, &frame) {
				return
			}
			c.conn.SetReadDeadline(time.Now().Add(pongWait))
			continue
		}

		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		c.hub.dispatch(c, &frame)
	}
}

// writePump flushes the send buffer and keeps the connection alive with
// pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.ctx.Done():
			// Flush frames queued before the cancel, like the displacement
			// notice, so the peer sees why it is being dropped.
			for {
				select {
				case data := <-c.send:
					c.conn.SetWriteDeadline(time.Now().Add(writeWait))
					if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
						return
					}
				default:
					return
				}
			}
		}
	}
}
