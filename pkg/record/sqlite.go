package record

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"cockroach-poker/pkg/game"
)

// SQLiteSink persists the audit contract to a local SQLite file. It is the
// default sink for single-node deployments without a DATABASE_URL.
type SQLiteSink struct {
	db *sql.DB
}

// NewSQLiteSink opens (creating if missing) the database at path.
func NewSQLiteSink(path string) (*SQLiteSink, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %v", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if err := createSQLiteTables(db); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteSink{db: db}, nil
}

// createSQLiteTables creates the necessary database tables
func createSQLiteTables(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS games (
			id TEXT PRIMARY KEY,
			creator_id TEXT NOT NULL,
			status TEXT NOT NULL,
			current_turn_player_id TEXT,
			round_number INTEGER NOT NULL DEFAULT 0,
			time_limit_seconds INTEGER NOT NULL,
			game_deck TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS game_participants (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			game_id TEXT NOT NULL,
			player_id TEXT NOT NULL,
			position INTEGER NOT NULL,
			hand_cards TEXT,
			penalty_cockroach TEXT,
			penalty_mouse TEXT,
			penalty_bat TEXT,
			penalty_frog TEXT,
			cards_remaining INTEGER NOT NULL DEFAULT 0,
			has_lost INTEGER NOT NULL DEFAULT 0,
			losing_creature_type TEXT,
			status TEXT NOT NULL,
			joined_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (game_id, player_id)
		)`,
		`CREATE TABLE IF NOT EXISTS game_rounds (
			id TEXT PRIMARY KEY,
			game_id TEXT NOT NULL,
			round_number INTEGER NOT NULL,
			current_card TEXT,
			claiming_player_id TEXT NOT NULL,
			claimed_creature_type TEXT NOT NULL,
			target_player_id TEXT NOT NULL,
			pass_count INTEGER NOT NULL DEFAULT 0,
			is_completed INTEGER NOT NULL DEFAULT 0,
			final_guesser_id TEXT,
			guess_is_truth INTEGER,
			actual_is_truth INTEGER,
			penalty_receiver_id TEXT,
			created_at TIMESTAMP,
			completed_at TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS game_actions (
			id TEXT PRIMARY KEY,
			game_id TEXT NOT NULL,
			round_id TEXT,
			player_id TEXT NOT NULL,
			action_type TEXT NOT NULL,
			action_data TEXT,
			created_at TIMESTAMP
		)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Append records one audit entry.
func (s *SQLiteSink) Append(ctx context.Context, entry game.AuditEntry) error {
	data, err := actionDataJSON(entry.Data)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO game_actions (id, game_id, round_id, player_id, action_type, action_data, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, entry.ID, entry.GameID, entry.RoundID, entry.PlayerID, string(entry.Action), data, entry.CreatedAt)
	return err
}

// SaveGame upserts the game row and its participant rows in one transaction.
func (s *SQLiteSink) SaveGame(ctx context.Context, g *game.Game) error {
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
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			current_turn_player_id = excluded.current_turn_player_id,
			round_number = excluded.round_number,
			game_deck = excluded.game_deck,
			updated_at = CURRENT_TIMESTAMP
	`, g.RoomID, g.CreatorID, string(g.Status), g.CurrentTurnID, g.RoundNumber, g.TurnTimeLimit, reserve, g.CreatedAt)
	if err != nil {
		return err
	}

	for _, p := range g.Players {
		if err := saveSQLiteParticipant(ctx, tx, g, p); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func saveSQLiteParticipant(ctx context.Context, tx *sql.Tx, g *game.Game, p *game.PlayerSlot) error {
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
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(game_id, player_id) DO UPDATE SET
			hand_cards = excluded.hand_cards,
			penalty_cockroach = excluded.penalty_cockroach,
			penalty_mouse = excluded.penalty_mouse,
			penalty_bat = excluded.penalty_bat,
			penalty_frog = excluded.penalty_frog,
			cards_remaining = excluded.cards_remaining,
			has_lost = excluded.has_lost,
			losing_creature_type = excluded.losing_creature_type,
			status = excluded.status
	`, g.RoomID, p.UserID, p.Seat+1, hand, piles[0], piles[1], piles[2], piles[3],
		len(p.Hand), p.HasLost, losingCreature(p), participantStatus(g, p))
	return err
}

// SaveRound upserts a round row.
func (s *SQLiteSink) SaveRound(ctx context.Context, gameID string, roundNumber int, r *game.Round) error {
	var completedAt interface{}
	if r.Completed {
		completedAt = r.CompletedAt
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO game_rounds
			(id, game_id, round_number, current_card, claiming_player_id, claimed_creature_type, target_player_id,
			 pass_count, is_completed, final_guesser_id, guess_is_truth, actual_is_truth, penalty_receiver_id,
			 created_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			claiming_player_id = excluded.claiming_player_id,
			claimed_creature_type = excluded.claimed_creature_type,
			target_player_id = excluded.target_player_id,
			pass_count = excluded.pass_count,
			is_completed = excluded.is_completed,
			final_guesser_id = excluded.final_guesser_id,
			guess_is_truth = excluded.guess_is_truth,
			actual_is_truth = excluded.actual_is_truth,
			penalty_receiver_id = excluded.penalty_receiver_id,
			completed_at = excluded.completed_at
	`, r.ID, gameID, roundNumber, roundCardJSON(r), r.ClaimerID, string(r.ClaimedCreature), r.TargetID,
		r.PassCount, r.Completed, r.FinalGuesserID, r.GuessIsTruth, r.ActualIsTruth, r.PenaltyReceiverID,
		r.CreatedAt, completedAt)
	return err
}

// Close closes the database connection.
func (s *SQLiteSink) Close() error {
	return s.db.Close()
}
