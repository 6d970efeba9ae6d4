package game

import (
	"time"

	"github.com/google/uuid"
)

// ActionType identifies an audit log action
type ActionType string

const (
	ActionJoinGame       ActionType = "join_game"
	ActionStartGame      ActionType = "start_game"
	ActionMakeClaim      ActionType = "make_claim"
	ActionGuessTruth     ActionType = "guess_truth"
	ActionGuessLie       ActionType = "guess_lie"
	ActionPassCard       ActionType = "pass_card"
	ActionReceivePenalty ActionType = "receive_penalty"
	ActionGameEnd        ActionType = "game_end"
	ActionLeaveGame      ActionType = "leave_game"
)

// AuditEntry is one append-only record of an accepted transition. The record
// sink consumes these; a failed append never rolls the transition back.
type AuditEntry struct {
	ID        string
	GameID    string
	RoundID   string
	PlayerID  string
	Action    ActionType
	Data      map[string]interface{}
	CreatedAt time.Time
}

// newAudit builds an audit entry with a fresh id.
func newAudit(gameID, roundID, playerID string, action ActionType, data map[string]interface{}, now time.Time) AuditEntry {
	return AuditEntry{
		ID:        uuid.NewString(),
		GameID:    gameID,
		RoundID:   roundID,
		PlayerID:  playerID,
		Action:    action,
		Data:      data,
		CreatedAt: now,
	}
}
