package record

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cockroach-poker/pkg/deck"
	"cockroach-poker/pkg/game"
)

func testGame(t *testing.T) *game.Game {
	t.Helper()
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	g, err := game.New("room-sq", "user-a", "Alice", 60, now)
	require.NoError(t, err)
	_, _, err = g.Join("user-b", "Bob", now)
	require.NoError(t, err)
	_, err = g.StartWithDeck("user-a", deck.Build(), now)
	require.NoError(t, err)
	return g
}

func TestSQLiteSinkRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "record.sqlite")
	sink, err := NewSQLiteSink(path)
	require.NoError(t, err)
	defer sink.Close()

	ctx := context.Background()
	g := testGame(t)

	require.NoError(t, sink.SaveGame(ctx, g))

	var status string
	require.NoError(t, sink.db.QueryRow(
		`SELECT status FROM games WHERE id = ?`, g.RoomID).Scan(&status))
	assert.Equal(t, "in_progress", status)

	var participants int
	require.NoError(t, sink.db.QueryRow(
		`SELECT COUNT(*) FROM game_participants WHERE game_id = ?`, g.RoomID).Scan(&participants))
	assert.Equal(t, 2, participants)

	// Saving again updates rather than duplicating.
	out, err := g.Apply(game.Claim{
		ClaimerID:       "user-a",
		CardID:          g.Players[0].Hand[0].ID,
		ClaimedCreature: deck.Cockroach,
		TargetID:        "user-b",
	}, time.Now().UTC())
	require.NoError(t, err)
	require.NoError(t, sink.SaveGame(ctx, g))
	require.NoError(t, sink.db.QueryRow(
		`SELECT COUNT(*) FROM game_participants WHERE game_id = ?`, g.RoomID).Scan(&participants))
	assert.Equal(t, 2, participants)

	var remaining int
	require.NoError(t, sink.db.QueryRow(
		`SELECT cards_remaining FROM game_participants WHERE game_id = ? AND player_id = ?`,
		g.RoomID, "user-a").Scan(&remaining))
	assert.Equal(t, 8, remaining)

	require.NoError(t, sink.SaveRound(ctx, g.RoomID, g.RoundNumber, g.Round))
	_, err = g.Apply(game.Respond{ResponderID: "user-b", RoundID: out.RoundID, Believe: false}, time.Now().UTC())
	require.NoError(t, err)
	require.NoError(t, sink.SaveRound(ctx, g.RoomID, g.RoundNumber, g.Round))

	var rounds, completed int
	require.NoError(t, sink.db.QueryRow(
		`SELECT COUNT(*), SUM(is_completed) FROM game_rounds WHERE game_id = ?`, g.RoomID).Scan(&rounds, &completed))
	assert.Equal(t, 1, rounds)
	assert.Equal(t, 1, completed)

	for _, entry := range out.Audit {
		require.NoError(t, sink.Append(ctx, entry))
	}
	var actions int
	require.NoError(t, sink.db.QueryRow(
		`SELECT COUNT(*) FROM game_actions WHERE game_id = ?`, g.RoomID).Scan(&actions))
	assert.Equal(t, len(out.Audit), actions)
}

func TestMemorySink(t *testing.T) {
	sink := NewMemorySink()
	ctx := context.Background()
	g := testGame(t)

	require.NoError(t, sink.SaveGame(ctx, g))
	st, ok := sink.GameStatus(g.RoomID)
	require.True(t, ok)
	assert.Equal(t, game.StatusInProgress, st)

	out, err := g.Apply(game.Claim{
		ClaimerID:       "user-a",
		CardID:          g.Players[0].Hand[0].ID,
		ClaimedCreature: deck.Bat,
		TargetID:        "user-b",
	}, time.Now().UTC())
	require.NoError(t, err)
	for _, entry := range out.Audit {
		require.NoError(t, sink.Append(ctx, entry))
	}
	require.Len(t, sink.Actions(), 1)
	assert.Equal(t, game.ActionMakeClaim, sink.Actions()[0].Action)
}

func TestParticipantStatusColumn(t *testing.T) {
	g := testGame(t)
	assert.Equal(t, "active", participantStatus(g, g.Players[0]))

	g.Players[1].HasLost = true
	g.Status = game.StatusCompleted
	g.WinnerID = "user-a"
	assert.Equal(t, "lost", participantStatus(g, g.Players[1]))
	assert.Equal(t, "won", participantStatus(g, g.Players[0]))
}

func TestLosingCreature(t *testing.T) {
	g := testGame(t)
	p := g.Players[1]
	assert.Equal(t, "", losingCreature(p))

	p.Penalty[deck.Mouse] = []deck.Card{
		{Creature: deck.Mouse, ID: "mouse_0"},
		{Creature: deck.Mouse, ID: "mouse_1"},
		{Creature: deck.Mouse, ID: "mouse_2"},
	}
	assert.Equal(t, "mouse", losingCreature(p))
}
