package record

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/lib/pq"

	"cockroach-poker/pkg/game"
)

// PostgresSink persists the audit contract to the shared Postgres store.
// Selected when DATABASE_URL is set.
type PostgresSink struct {
	db *sql.DB
}

// NewPostgresSink connects to the database at url and ensures the schema.
func NewPostgresSink(url string) (*PostgresSink, error) {
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(16)
	db.SetConnMaxIdleTime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	if err := createPostgresTables(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return &PostgresSink{db: db}, nil
}

func createPostgresTables(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS games (
			id TEXT PRIMARY KEY,
			creator_id TEXT NOT NULL,
			status TEXT NOT NULL,
			current_turn_player_id TEXT,
			round_number INTEGER NOT NULL DEFAULT 0,
			time_limit_seconds INTEGER NOT NULL,
			game_deck JSONB,
			created_at TIMESTAMPTZ DEFAULT now(),
			updated_at TIMESTAMPTZ DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS game_participants (
			id BIGSERIAL PRIMARY KEY,
			game_id TEXT NOT NULL,
			player_id TEXT NOT NULL,
			position INTEGER NOT NULL,
			hand_cards JSONB,
			penalty_cockroach JSONB,
			penalty_mouse JSONB,
			penalty_bat JSONB,
			penalty_frog JSONB,
			cards_remaining INTEGER NOT NULL DEFAULT 0,
			has_lost BOOLEAN NOT NULL DEFAULT false,
			losing_creature_type TEXT,
			status TEXT NOT NULL,
			joined_at TIMESTAMPTZ DEFAULT now(),
			UNIQUE (game_id, player_id)
		)`,
		`CREATE TABLE IF NOT EXISTS game_rounds (
			id TEXT PRIMARY KEY,
			game_id TEXT NOT NULL,
			round_number INTEGER NOT NULL,
			current_card JSONB,
			claiming_player_id TEXT NOT NULL,
			claimed_creature_type TEXT NOT NULL,
			target_player_id TEXT NOT NULL,
			pass_count INTEGER NOT NULL DEFAULT 0,
			is_completed BOOLEAN NOT NULL DEFAULT false,
			final_guesser_id TEXT,
			guess_is_truth BOOLEAN,
			actual_is_truth BOOLEAN,
			penalty_receiver_id TEXT,
			created_at TIMESTAMPTZ,
			completed_at TIMESTAMPTZ
		)`,
		`CREATE TABLE IF NOT EXISTS game_actions (
			id TEXT PRIMARY KEY,
			game_id TEXT NOT NULL,
			round_id TEXT,
			player_id TEXT NOT NULL,
			action_type TEXT NOT NULL,
			action_data JSONB,
			created_at TIMESTAMPTZ
		)`,
		`CREATE INDEX IF NOT EXISTS game_actions_game_idx ON game_actions (game_id, created_at)`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// Append records one audit entry.
func (s *PostgresSink) Append(ctx context.Context, entry game.AuditEntry) error {
	data, err := actionDataJSON(entry.Data)
	if err != nil {
		return err
	}
	var roundID interface{}
	if entry.RoundID != "" {
		roundID = entry.RoundID
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO game_actions (id, game_id, round_id, player_id, action_type, action_data, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, entry.ID, entry.GameID, roundID, entry.PlayerID, string(entry.Action), data, entry.CreatedAt)
	return err
}

// SaveGame upserts the game row and its participant rows in one transaction.
func (s *PostgresSink) SaveGame(ctx context.Context, g *game.Game) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	reserve, err := cardsJSON(g.Reserve)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO games (id, creator_id, status, current_turn_player_id, round_number, time_limit_seconds, game_deck, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			current_turn_player_id = EXCLUDED.current_turn_player_id,
			round_number = EXCLUDED.round_number,
			game_deck = EXCLUDED.game_deck,
			updated_at = now()
	`, g.RoomID, g.CreatorID, string(g.Status), g.CurrentTurnID, g.RoundNumber, g.TurnTimeLimit, reserve, g.CreatedAt)
	if err != nil {
		return err
	}

	for _, p := range g.Players {
		hand, err := cardsJSON(p.Hand)
		if err != nil {
			return err
		}
		piles := make([]string, 0, 4)
		for _, creature := range []string{"cockroach", "mouse", "bat", "frog"} {
			pj, err := cardsJSON(p.Penalty[gameCreature(creature)])
			if err != nil {
				return err
			}
			piles = append(piles, pj)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO game_participants
				(game_id, player_id, position, hand_cards, penalty_cockroach, penalty_mouse, penalty_bat, penalty_frog,
				 cards_remaining, has_lost, losing_creature_type, status)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			ON CONFLICT (game_id, player_id) DO UPDATE SET
				hand_cards = EXCLUDED.hand_cards,
				penalty_cockroach = EXCLUDED.penalty_cockroach,
				penalty_mouse = EXCLUDED.penalty_mouse,
				penalty_bat = EXCLUDED.penalty_bat,
				penalty_frog = EXCLUDED.penalty_frog,
				cards_remaining = EXCLUDED.cards_remaining,
				has_lost = EXCLUDED.has_lost,
				losing_creature_type = EXCLUDED.losing_creature_type,
				status = EXCLUDED.status
		`, g.RoomID, p.UserID, p.Seat+1, hand, piles[0], piles[1], piles[2], piles[3],
			len(p.Hand), p.HasLost, nullableString(losingCreature(p)), participantStatus(g, p))
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

// SaveRound upserts a round row.
func (s *PostgresSink) SaveRound(ctx context.Context, gameID string, roundNumber int, r *game.Round) error {
	var completedAt interface{}
	if r.Completed {
		completedAt = r.CompletedAt
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO game_rounds
			(id, game_id, round_number, current_card, claiming_player_id, claimed_creature_type, target_player_id,
			 pass_count, is_completed, final_guesser_id, guess_is_truth, actual_is_truth, penalty_receiver_id,
			 created_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (id) DO UPDATE SET
			claiming_player_id = EXCLUDED.claiming_player_id,
			claimed_creature_type = EXCLUDED.claimed_creature_type,
			target_player_id = EXCLUDED.target_player_id,
			pass_count = EXCLUDED.pass_count,
			is_completed = EXCLUDED.is_completed,
			final_guesser_id = EXCLUDED.final_guesser_id,
			guess_is_truth = EXCLUDED.guess_is_truth,
			actual_is_truth = EXCLUDED.actual_is_truth,
			penalty_receiver_id = EXCLUDED.penalty_receiver_id,
			completed_at = EXCLUDED.completed_at
	`, r.ID, gameID, roundNumber, roundCardJSON(r), r.ClaimerID, string(r.ClaimedCreature), r.TargetID,
		r.PassCount, r.Completed, nullableString(r.FinalGuesserID), r.GuessIsTruth, r.ActualIsTruth,
		nullableString(r.PenaltyReceiverID), r.CreatedAt, completedAt)
	return err
}

// Close closes the database connection.
func (s *PostgresSink) Close() error {
	return s.db.Close()
}

// nullableString maps empty strings to SQL NULL.
func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
