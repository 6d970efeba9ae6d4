package record

import (
	"context"

	"cockroach-poker/pkg/game"
)

// Sink receives the append-only action log and room snapshots as the state
// machine advances. Implementations may fail non-fatally: the room loop logs
// and swallows sink errors, so delivery is at-most-once.
type Sink interface {
	// Append records one audit entry.
	Append(ctx context.Context, entry game.AuditEntry) error
	// SaveGame upserts the game row and its participant rows.
	SaveGame(ctx context.Context, g *game.Game) error
	// SaveRound upserts a round row, including resolution facts once the
	// round completes.
	SaveRound(ctx context.Context, gameID string, roundNumber int, r *game.Round) error
	// Close releases the sink's resources.
	Close() error
}
