package game

import (
	"time"

	"cockroach-poker/pkg/deck"
)

// PlayerView is the wire representation of one seat, redacted for a specific
// recipient: only the recipient's own hand is ever populated.
type PlayerView struct {
	UserID         string                 `json:"user_id"`
	DisplayName    string                 `json:"display_name"`
	Position       int                    `json:"position"`
	CardsRemaining int                    `json:"cards_remaining"`
	Hand           []deck.Card            `json:"hand,omitempty"`
	Penalty        map[string][]deck.Card `json:"penalty"`
	HasLost        bool                   `json:"has_lost"`
}

// RoundView is the wire representation of the live round. It deliberately
// omits the card: the creature is revealed only by the claim_responded
// broadcast.
type RoundView struct {
	RoundID         string `json:"round_id"`
	ClaimerID       string `json:"claimer_id"`
	ClaimedCreature string `json:"claimed_creature"`
	TargetID        string `json:"target_id"`
	PassCount       int    `json:"pass_count"`
	IsCompleted     bool   `json:"is_completed"`
}

// StateView is a personalized snapshot of the full game state.
type StateView struct {
	RoomID        string       `json:"room_id"`
	CreatorID     string       `json:"creator_id"`
	Status        string       `json:"status"`
	TurnTimeLimit int          `json:"turn_time_limit_seconds"`
	CurrentTurnID string       `json:"current_turn_user_id,omitempty"`
	RoundNumber   int          `json:"round_number"`
	Players       []PlayerView `json:"players"`
	Round         *RoundView   `json:"round,omitempty"`
	WinnerID      string       `json:"winner_id,omitempty"`
	Timestamp     time.Time    `json:"timestamp"`
}

// Snapshot builds the state view for one recipient. forUser may be empty for
// a fully redacted view (room listings, non-participants).
func (g *Game) Snapshot(forUser string, now time.Time) StateView {
	view := StateView{
		RoomID:        g.RoomID,
		CreatorID:     g.CreatorID,
		Status:        string(g.Status),
		TurnTimeLimit: g.TurnTimeLimit,
		CurrentTurnID: g.CurrentTurnID,
		RoundNumber:   g.RoundNumber,
		WinnerID:      g.WinnerID,
		Timestamp:     now,
	}
	for _, p := range g.Players {
		pv := PlayerView{
			UserID:         p.UserID,
			DisplayName:    p.DisplayName,
			Position:       p.Seat,
			CardsRemaining: len(p.Hand),
			Penalty:        penaltyView(p.Penalty),
			HasLost:        p.HasLost,
		}
		if p.UserID == forUser {
			pv.Hand = append([]deck.Card(nil), p.Hand...)
		}
		view.Players = append(view.Players, pv)
	}
	if g.Round != nil && !g.Round.Completed {
		view.Round = &RoundView{
			RoundID:         g.Round.ID,
			ClaimerID:       g.Round.ClaimerID,
			ClaimedCreature: string(g.Round.ClaimedCreature),
			TargetID:        g.Round.TargetID,
			PassCount:       g.Round.PassCount,
		}
	}
	return view
}

// penaltyView copies the penalty piles with string keys for JSON. Piles are
// public information for both players.
func penaltyView(piles map[deck.Creature][]deck.Card) map[string][]deck.Card {
	out := make(map[string][]deck.Card, len(piles))
	for creature, cards := range piles {
		out[string(creature)] = append([]deck.Card(nil), cards...)
	}
	return out
}

// Summary is the room listing entry served by the control plane.
type Summary struct {
	RoomID        string    `json:"room_id"`
	CreatorID     string    `json:"creator_id"`
	Status        string    `json:"status"`
	PlayerCount   int       `json:"player_count"`
	TurnTimeLimit int       `json:"turn_time_limit_seconds"`
	CreatedAt     time.Time `json:"created_at"`
}

// Summarize builds the listing entry for the game.
func (g *Game) Summarize() Summary {
	return Summary{
		RoomID:        g.RoomID,
		CreatorID:     g.CreatorID,
		Status:        string(g.Status),
		PlayerCount:   len(g.Players),
		TurnTimeLimit: g.TurnTimeLimit,
		CreatedAt:     g.CreatedAt,
	}
}
