package game

import "cockroach-poker/pkg/deck"

// Event is a client intent the state machine accepts.
type Event interface {
	isEvent()
}

// Claim starts a round: the claimer plays a face-down card from their hand
// toward the target with an allegation about its creature.
type Claim struct {
	ClaimerID       string
	CardID          string
	ClaimedCreature deck.Creature
	TargetID        string
}

// Respond terminates the live round with a guess about the claim.
type Respond struct {
	ResponderID string
	RoundID     string
	Believe     bool
}

// Pass forwards the live round's card to the other player with a fresh,
// possibly different, allegation. The passer becomes the author of the live
// claim.
type Pass struct {
	PasserID        string
	RoundID         string
	TargetID        string
	ClaimedCreature deck.Creature
}

func (Claim) isEvent()   {}
func (Respond) isEvent() {}
func (Pass) isEvent()    {}

// OutcomeKind names the broadcast produced by an accepted event.
type OutcomeKind string

const (
	OutcomeCardClaimed    OutcomeKind = "card_claimed"
	OutcomeCardPassed     OutcomeKind = "card_passed"
	OutcomeClaimResponded OutcomeKind = "claim_responded"
)

// Outcome describes an accepted transition in terms safe for both players.
// The actual creature appears only on claim_responded outcomes; hands never
// appear at all.
type Outcome struct {
	Kind    OutcomeKind
	RoomID  string
	RoundID string

	ActorID         string
	TargetID        string
	ClaimedCreature deck.Creature
	PassCount       int

	// Resolution fields, set only for claim_responded.
	Believed          bool
	ActualCreature    deck.Creature
	WasCorrect        bool
	PenaltyReceiverID string
	PenaltyPileSize   int

	GameEnded bool
	WinnerID  string
	LoserID   string

	CurrentTurnID string
	RoundNumber   int

	Audit []AuditEntry
}
