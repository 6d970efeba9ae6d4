package game

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cockroach-poker/pkg/deck"
)

const (
	alice = "user-alice"
	bob   = "user-bob"
)

var t0 = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

// newTestGame returns an in-progress two-player game dealt from an
// unshuffled deck: alice holds cockroach_0..5 and mouse_0..2, bob holds
// mouse_3..5 and bat_0..5, the reserve is frog_0..5. Alice is on turn.
func newTestGame(t *testing.T) *Game {
	t.Helper()

	g, err := New("room-1", alice, "Alice", 60, t0)
	require.NoError(t, err)

	_, _, err = g.Join(bob, "Bob", t0)
	require.NoError(t, err)

	_, err = g.StartWithDeck(alice, deck.Build(), t0)
	require.NoError(t, err)
	require.Equal(t, StatusInProgress, g.Status)
	require.Equal(t, alice, g.CurrentTurnID)
	return g
}

func claim(t *testing.T, g *Game, claimerID, cardID string, creature deck.Creature, targetID string) *Outcome {
	t.Helper()
	out, err := g.Apply(Claim{
		ClaimerID:       claimerID,
		CardID:          cardID,
		ClaimedCreature: creature,
		TargetID:        targetID,
	}, t0)
	require.NoError(t, err)
	require.Equal(t, OutcomeCardClaimed, out.Kind)
	return out
}

func respond(t *testing.T, g *Game, responderID, roundID string, believe bool) *Outcome {
	t.Helper()
	out, err := g.Apply(Respond{ResponderID: responderID, RoundID: roundID, Believe: believe}, t0)
	require.NoError(t, err)
	require.Equal(t, OutcomeClaimResponded, out.Kind)
	return out
}

func TestTruthfulClaimDoubted(t *testing.T) {
	g := newTestGame(t)

	out := claim(t, g, alice, "cockroach_0", deck.Cockroach, bob)
	assert.Equal(t, bob, g.CurrentTurnID)
	assert.Len(t, g.Players[0].Hand, 8)

	// Bob calls the truthful claim a lie and eats the card.
	res := respond(t, g, bob, out.RoundID, false)
	assert.True(t, g.Round.ActualIsTruth)
	assert.False(t, res.WasCorrect)
	assert.Equal(t, bob, res.PenaltyReceiverID)
	assert.Equal(t, 1, res.PenaltyPileSize)
	assert.Equal(t, deck.Cockroach, res.ActualCreature)

	assert.Len(t, g.Players[1].Penalty[deck.Cockroach], 1)
	assert.Equal(t, bob, g.CurrentTurnID)
	assert.Equal(t, StatusInProgress, g.Status)
}

func TestLyingClaimBelieved(t *testing.T) {
	g := newTestGame(t)

	// Alice plays a cockroach but calls it a bat. Bob believes her, which
	// means the claim's author takes the card back as a penalty.
	out := claim(t, g, alice, "cockroach_1", deck.Bat, bob)
	res := respond(t, g, bob, out.RoundID, true)

	assert.False(t, g.Round.ActualIsTruth)
	assert.False(t, res.WasCorrect)
	assert.Equal(t, alice, res.PenaltyReceiverID)
	assert.Len(t, g.Players[0].Penalty[deck.Cockroach], 1)
	assert.Equal(t, alice, g.CurrentTurnID)
}

func TestLyingClaimDoubted(t *testing.T) {
	g := newTestGame(t)

	out := claim(t, g, alice, "cockroach_1", deck.Frog, bob)
	res := respond(t, g, bob, out.RoundID, false)

	assert.True(t, res.WasCorrect)
	assert.Equal(t, alice, res.PenaltyReceiverID)
	assert.Len(t, g.Players[0].Penalty[deck.Cockroach], 1)
}

func TestPassChain(t *testing.T) {
	g := newTestGame(t)

	out := claim(t, g, alice, "cockroach_2", deck.Cockroach, bob)
	roundID := out.RoundID

	// Bob passes the card back with a fresh claim; he becomes the claim's
	// author and alice must now respond or pass again.
	passOut, err := g.Apply(Pass{
		PasserID:        bob,
		RoundID:         roundID,
		TargetID:        alice,
		ClaimedCreature: deck.Bat,
	}, t0)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCardPassed, passOut.Kind)
	assert.Equal(t, 1, passOut.PassCount)
	assert.Equal(t, alice, g.CurrentTurnID)
	assert.Equal(t, bob, g.Round.ClaimerID)
	assert.Equal(t, deck.Bat, g.Round.ClaimedCreature)
	// The physical card is unchanged by passing.
	assert.Equal(t, deck.Cockroach, g.Round.Card.Creature)

	// Alice believes bob's bat claim. The card is a cockroach, so the lie
	// falls back on bob, the current claim author.
	res := respond(t, g, alice, roundID, true)
	assert.Equal(t, bob, res.PenaltyReceiverID)
	assert.Equal(t, deck.Cockroach, res.ActualCreature)
	assert.Equal(t, 1, res.PassCount)
	assert.Len(t, g.Players[1].Penalty[deck.Cockroach], 1)
}

func TestDoublePassKeepsCard(t *testing.T) {
	g := newTestGame(t)

	out := claim(t, g, alice, "cockroach_3", deck.Mouse, bob)

	_, err := g.Apply(Pass{PasserID: bob, RoundID: out.RoundID, TargetID: alice, ClaimedCreature: deck.Frog}, t0)
	require.NoError(t, err)
	_, err = g.Apply(Pass{PasserID: alice, RoundID: out.RoundID, TargetID: bob, ClaimedCreature: deck.Bat}, t0)
	require.NoError(t, err)

	assert.Equal(t, 2, g.Round.PassCount)
	assert.Equal(t, alice, g.Round.ClaimerID)
	assert.Equal(t, deck.Cockroach, g.Round.Card.Creature)
	assert.Equal(t, "cockroach_3", g.Round.Card.ID)
	assert.Equal(t, bob, g.CurrentTurnID)
}

func TestGameEndsOnThirdPenalty(t *testing.T) {
	g := newTestGame(t)

	// Round 1: truthful cockroach claim doubted, bob takes cockroach #1.
	out := claim(t, g, alice, "cockroach_0", deck.Cockroach, bob)
	respond(t, g, bob, out.RoundID, false)
	require.Equal(t, bob, g.CurrentTurnID)

	// Rounds 2 and 3: bob lies about his mice and alice believes him, so
	// each card bounces back onto bob's pile.
	out = claim(t, g, bob, "mouse_3", deck.Frog, alice)
	respond(t, g, alice, out.RoundID, true)
	require.Equal(t, bob, g.CurrentTurnID)

	out = claim(t, g, bob, "mouse_4", deck.Frog, alice)
	res := respond(t, g, alice, out.RoundID, true)
	require.False(t, res.GameEnded)
	require.Len(t, g.Players[1].Penalty[deck.Mouse], 2)

	// Round 4: third mouse ends it.
	out = claim(t, g, bob, "mouse_5", deck.Frog, alice)
	res = respond(t, g, alice, out.RoundID, true)

	assert.True(t, res.GameEnded)
	assert.Equal(t, alice, res.WinnerID)
	assert.Equal(t, bob, res.LoserID)
	assert.Equal(t, 3, res.PenaltyPileSize)
	assert.Equal(t, StatusCompleted, g.Status)
	assert.True(t, g.Players[1].HasLost)
	assert.Equal(t, alice, g.WinnerID)
	assert.True(t, g.Terminal())

	// No further play in a completed game.
	_, err := g.Apply(Claim{ClaimerID: alice, CardID: "cockroach_1", ClaimedCreature: deck.Cockroach, TargetID: bob}, t0)
	assert.Equal(t, CodeGameNotActive, CodeOf(err))
}

func TestCardConservationAcrossGame(t *testing.T) {
	g := newTestGame(t)
	require.Equal(t, deck.DeckSize, g.cardCount())

	out := claim(t, g, alice, "cockroach_0", deck.Cockroach, bob)
	assert.Equal(t, deck.DeckSize, g.cardCount())

	_, err := g.Apply(Pass{PasserID: bob, RoundID: out.RoundID, TargetID: alice, ClaimedCreature: deck.Mouse}, t0)
	require.NoError(t, err)
	assert.Equal(t, deck.DeckSize, g.cardCount())

	respond(t, g, alice, out.RoundID, false)
	assert.Equal(t, deck.DeckSize, g.cardCount())
}

func TestClaimPreconditions(t *testing.T) {
	g := newTestGame(t)

	cases := []struct {
		name string
		ev   Claim
		code ErrorCode
	}{
		{"not your turn", Claim{ClaimerID: bob, CardID: "mouse_3", ClaimedCreature: deck.Mouse, TargetID: alice}, CodeNotYourTurn},
		{"card not in hand", Claim{ClaimerID: alice, CardID: "bat_0", ClaimedCreature: deck.Bat, TargetID: bob}, CodeCardNotInHand},
		{"self target", Claim{ClaimerID: alice, CardID: "cockroach_0", ClaimedCreature: deck.Cockroach, TargetID: alice}, CodeInvalidTarget},
		{"unknown target", Claim{ClaimerID: alice, CardID: "cockroach_0", ClaimedCreature: deck.Cockroach, TargetID: "user-nobody"}, CodeInvalidTarget},
		{"bad creature", Claim{ClaimerID: alice, CardID: "cockroach_0", ClaimedCreature: "scorpion", TargetID: bob}, CodeCreatureUnknown},
		{"outsider", Claim{ClaimerID: "user-eve", CardID: "cockroach_0", ClaimedCreature: deck.Cockroach, TargetID: bob}, CodeNotParticipant},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := g.Apply(tc.ev, t0)
			assert.Equal(t, tc.code, CodeOf(err))
			// Rejected intents leave the hand untouched.
			assert.Len(t, g.Players[0].Hand, 9)
		})
	}
}

func TestClaimWhileRoundActive(t *testing.T) {
	g := newTestGame(t)
	claim(t, g, alice, "cockroach_0", deck.Cockroach, bob)

	_, err := g.Apply(Claim{ClaimerID: bob, CardID: "mouse_3", ClaimedCreature: deck.Mouse, TargetID: alice}, t0)
	assert.Equal(t, CodeValidation, CodeOf(err))
}

func TestRespondPreconditions(t *testing.T) {
	g := newTestGame(t)
	out := claim(t, g, alice, "cockroach_0", deck.Cockroach, bob)

	_, err := g.Apply(Respond{ResponderID: alice, RoundID: out.RoundID, Believe: true}, t0)
	assert.Equal(t, CodeNotYourTurn, CodeOf(err))

	_, err = g.Apply(Respond{ResponderID: bob, RoundID: "round-bogus", Believe: true}, t0)
	assert.Equal(t, CodeRoundNotFound, CodeOf(err))

	respond(t, g, bob, out.RoundID, false)

	// The round is spent; a duplicate guess is rejected, not re-resolved.
	_, err = g.Apply(Respond{ResponderID: bob, RoundID: out.RoundID, Believe: true}, t0)
	assert.Equal(t, CodeRoundCompleted, CodeOf(err))
	assert.Len(t, g.Players[1].Penalty[deck.Cockroach], 1)
}

func TestPassPreconditions(t *testing.T) {
	g := newTestGame(t)
	out := claim(t, g, alice, "cockroach_0", deck.Cockroach, bob)

	_, err := g.Apply(Pass{PasserID: alice, RoundID: out.RoundID, TargetID: bob, ClaimedCreature: deck.Mouse}, t0)
	assert.Equal(t, CodeNotYourTurn, CodeOf(err))

	_, err = g.Apply(Pass{PasserID: bob, RoundID: out.RoundID, TargetID: bob, ClaimedCreature: deck.Mouse}, t0)
	assert.Equal(t, CodeInvalidTarget, CodeOf(err))

	_, err = g.Apply(Pass{PasserID: bob, RoundID: out.RoundID, TargetID: alice, ClaimedCreature: "dragon"}, t0)
	assert.Equal(t, CodeCreatureUnknown, CodeOf(err))
}

func TestJoinLifecycle(t *testing.T) {
	g, err := New("room-2", alice, "Alice", 60, t0)
	require.NoError(t, err)

	_, _, err = g.Join(alice, "Alice", t0)
	assert.Equal(t, CodeAlreadyJoined, CodeOf(err))

	seat, _, err := g.Join(bob, "Bob", t0)
	require.NoError(t, err)
	assert.Equal(t, 1, seat)

	_, _, err = g.Join("user-carol", "Carol", t0)
	assert.Equal(t, CodeRoomFull, CodeOf(err))
}

func TestStartPreconditions(t *testing.T) {
	g, err := New("room-3", alice, "Alice", 60, t0)
	require.NoError(t, err)

	// One occupant is not enough.
	_, err = g.StartWithDeck(alice, deck.Build(), t0)
	assert.Equal(t, CodeValidation, CodeOf(err))

	_, _, err = g.Join(bob, "Bob", t0)
	require.NoError(t, err)

	_, err = g.StartWithDeck(bob, deck.Build(), t0)
	assert.Equal(t, CodeNotCreator, CodeOf(err))

	_, err = g.StartWithDeck(alice, deck.Build(), t0)
	require.NoError(t, err)

	_, err = g.StartWithDeck(alice, deck.Build(), t0)
	assert.Equal(t, CodeGameNotActive, CodeOf(err))
}

func TestCreatorLeaveCancels(t *testing.T) {
	g, err := New("room-4", alice, "Alice", 60, t0)
	require.NoError(t, err)
	_, _, err = g.Join(bob, "Bob", t0)
	require.NoError(t, err)

	_, err = g.Leave(alice, t0)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, g.Status)
	assert.True(t, g.Terminal())
}

func TestNonCreatorLeaveFreesSeat(t *testing.T) {
	g, err := New("room-5", alice, "Alice", 60, t0)
	require.NoError(t, err)
	_, _, err = g.Join(bob, "Bob", t0)
	require.NoError(t, err)

	_, err = g.Leave(bob, t0)
	require.NoError(t, err)
	assert.Equal(t, StatusWaiting, g.Status)
	assert.Len(t, g.Players, 1)

	seat, _, err := g.Join("user-carol", "Carol", t0)
	require.NoError(t, err)
	assert.Equal(t, 1, seat)
}

func TestLeaveAfterStartRejected(t *testing.T) {
	g := newTestGame(t)
	_, err := g.Leave(bob, t0)
	assert.Equal(t, CodeGameNotActive, CodeOf(err))
}

func TestTurnTimeLimitBounds(t *testing.T) {
	_, err := New("room-6", alice, "Alice", 10, t0)
	assert.Equal(t, CodeOutOfRange, CodeOf(err))

	_, err = New("room-6", alice, "Alice", 301, t0)
	assert.Equal(t, CodeOutOfRange, CodeOf(err))

	g, err := New("room-6", alice, "Alice", MinTurnTimeLimit, t0)
	require.NoError(t, err)
	assert.Equal(t, MinTurnTimeLimit, g.TurnTimeLimit)
}
