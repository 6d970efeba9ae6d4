package ws

import "encoding/json"

// inboundFrame is the decoded superset of every client frame. Each event
// reads only its own fields; unknown events are rejected with invalid_enum.
type inboundFrame struct {
	Event string `json:"event"`

	// authenticate
	AccessToken string `json:"access_token,omitempty"`
	DeviceInfo  string `json:"device_info,omitempty"`

	// room-scoped events
	RoomID string `json:"room_id,omitempty"`

	// claim
	CardID          string `json:"card_id,omitempty"`
	ClaimedCreature string `json:"claimed_creature,omitempty"`
	TargetUserID    string `json:"target_user_id,omitempty"`

	// respond / pass
	RoundID      string `json:"round_id,omitempty"`
	BelieveClaim *bool  `json:"believe_claim,omitempty"`
	NewClaim     string `json:"new_claim,omitempty"`

	// heartbeat
	Timestamp int64 `json:"timestamp,omitempty"`
}

// Inbound event names.
const (
	evAuthenticate = "authenticate"
	evJoinRoom     = "join_room"
	evLeaveRoom    = "leave_room"
	evClaim        = "claim"
	evRespond      = "respond"
	evPass         = "pass"
	evGetState     = "get_state"
	evHeartbeat    = "heartbeat"
)

// Authentication failure codes.
const (
	authCodeInvalidToken = "INVALID_TOKEN"
	authCodeTokenExpired = "TOKEN_EXPIRED"
	authCodeUserBanned   = "USER_BANNED"
)

// encodeFrame flattens the payload next to the event name, producing the
// contracted `{"event": ..., ...payload}` shape.
func encodeFrame(event string, payload map[string]interface{}) ([]byte, error) {
	out := make(map[string]interface{}, len(payload)+1)
	for k, v := range payload {
		out[k] = v
	}
	out["event"] = event
	return json.Marshal(out)
}
