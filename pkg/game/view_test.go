package game

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cockroach-poker/pkg/deck"
)

func TestSnapshotRedactsOpponentHand(t *testing.T) {
	g := newTestGame(t)

	view := g.Snapshot(alice, t0)
	require.Len(t, view.Players, 2)

	assert.Len(t, view.Players[0].Hand, 9)
	assert.Equal(t, 9, view.Players[0].CardsRemaining)

	assert.Nil(t, view.Players[1].Hand)
	assert.Equal(t, 9, view.Players[1].CardsRemaining)
}

func TestSnapshotForNonParticipantHidesBothHands(t *testing.T) {
	g := newTestGame(t)

	view := g.Snapshot("", t0)
	for _, pv := range view.Players {
		assert.Nil(t, pv.Hand)
	}
}

func TestSnapshotNeverLeaksRoundCard(t *testing.T) {
	g := newTestGame(t)

	// Alice claims a frog; the card is really a cockroach. Bob's serialized
	// view must carry the allegation but not the card.
	claim(t, g, alice, "cockroach_0", deck.Frog, bob)

	view := g.Snapshot(bob, t0)
	require.NotNil(t, view.Round)
	assert.Equal(t, "frog", view.Round.ClaimedCreature)

	raw, err := json.Marshal(view)
	require.NoError(t, err)
	assert.False(t, strings.Contains(string(raw), "cockroach_0"),
		"round card id leaked into target's view")
}

func TestSnapshotOmitsCompletedRound(t *testing.T) {
	g := newTestGame(t)
	out := claim(t, g, alice, "cockroach_0", deck.Cockroach, bob)
	respond(t, g, bob, out.RoundID, false)

	view := g.Snapshot(bob, t0)
	assert.Nil(t, view.Round)
	assert.Equal(t, []deck.Card{{Creature: deck.Cockroach, ID: "cockroach_0"}},
		view.Players[1].Penalty["cockroach"])
}

func TestSummarize(t *testing.T) {
	g, err := New("room-7", alice, "Alice", 90, t0)
	require.NoError(t, err)

	s := g.Summarize()
	assert.Equal(t, "room-7", s.RoomID)
	assert.Equal(t, "waiting", s.Status)
	assert.Equal(t, 1, s.PlayerCount)
	assert.Equal(t, 90, s.TurnTimeLimit)
	assert.Equal(t, t0, s.CreatedAt)
}
