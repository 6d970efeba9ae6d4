package game

import (
	"time"

	"cockroach-poker/pkg/deck"
)

// Status represents the lifecycle status of a game
type Status string

const (
	StatusWaiting    Status = "waiting"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// Turn time limit bounds in seconds.
const (
	MinTurnTimeLimit = 30
	MaxTurnTimeLimit = 300

	// LosingPileSize is the penalty pile length that loses the game.
	LosingPileSize = 3

	// MaxPlayers is fixed: Cockroach Poker here is strictly two-player.
	MaxPlayers = 2
)

// PlayerSlot is one seat in a game: the occupant, their private hand, and
// their face-up penalty piles.
type PlayerSlot struct {
	UserID      string
	DisplayName string
	Seat        int
	Hand        []deck.Card
	Penalty     map[deck.Creature][]deck.Card
	HasLost     bool
}

// newPlayerSlot creates an occupied seat with empty hand and piles.
func newPlayerSlot(userID, displayName string, seat int) *PlayerSlot {
	return &PlayerSlot{
		UserID:      userID,
		DisplayName: displayName,
		Seat:        seat,
		Penalty:     make(map[deck.Creature][]deck.Card),
	}
}

// removeCard takes the card with the given id out of the hand. Returns the
// card and true when found.
func (p *PlayerSlot) removeCard(cardID string) (deck.Card, bool) {
	for i, c := range p.Hand {
		if c.ID == cardID {
			p.Hand = append(p.Hand[:i], p.Hand[i+1:]...)
			return c, true
		}
	}
	return deck.Card{}, false
}

// Round represents a live claim in flight: one physical card travelling
// between the players until somebody responds.
type Round struct {
	ID string

	// ClaimerID is the author of the current live claim. It starts as the
	// player who first played the card and rotates to the passer on every
	// pass.
	ClaimerID       string
	ClaimedCreature deck.Creature
	TargetID        string

	// Card is server-private until the round resolves. It must never be
	// serialized toward the target before the claim_responded broadcast.
	Card deck.Card

	PassCount int
	Completed bool

	// Resolution facts, populated when the round completes.
	FinalGuesserID    string
	GuessIsTruth      bool
	ActualIsTruth     bool
	PenaltyReceiverID string

	CreatedAt   time.Time
	CompletedAt time.Time
}

// Game is the authoritative state of one room, from creation through the
// terminal state. It is owned exclusively by the room's writer loop; none of
// its methods lock.
type Game struct {
	RoomID    string
	CreatorID string
	Status    Status

	// TurnTimeLimit is advisory; clients run their own timers off it.
	TurnTimeLimit int
	CreatedAt     time.Time

	Players []*PlayerSlot
	Reserve []deck.Card

	CurrentTurnID string
	RoundNumber   int
	Round         *Round

	WinnerID string
}

// New creates a waiting room with the creator seated at slot 0.
func New(roomID, creatorID, creatorName string, turnTimeLimit int, now time.Time) (*Game, error) {
	if turnTimeLimit < MinTurnTimeLimit || turnTimeLimit > MaxTurnTimeLimit {
		return nil, NewError(CodeOutOfRange, "turn time limit must be between %d and %d seconds", MinTurnTimeLimit, MaxTurnTimeLimit)
	}
	return &Game{
		RoomID:        roomID,
		CreatorID:     creatorID,
		Status:        StatusWaiting,
		TurnTimeLimit: turnTimeLimit,
		CreatedAt:     now,
		Players:       []*PlayerSlot{newPlayerSlot(creatorID, creatorName, 0)},
	}, nil
}

// Player returns the slot occupied by userID, or nil.
func (g *Game) Player(userID string) *PlayerSlot {
	for _, p := range g.Players {
		if p.UserID == userID {
			return p
		}
	}
	return nil
}

// Opponent returns the slot not occupied by userID, or nil.
func (g *Game) Opponent(userID string) *PlayerSlot {
	for _, p := range g.Players {
		if p.UserID != userID {
			return p
		}
	}
	return nil
}

// IsParticipant reports whether userID occupies a slot.
func (g *Game) IsParticipant(userID string) bool {
	return g.Player(userID) != nil
}

// Terminal reports whether the game reached an absorbing state.
func (g *Game) Terminal() bool {
	return g.Status == StatusCompleted || g.Status == StatusCancelled
}

// cardCount returns the number of cards across every location: hands,
// penalty piles, the reserve, and the live round card.
func (g *Game) cardCount() int {
	n := len(g.Reserve)
	for _, p := range g.Players {
		n += len(p.Hand)
		for _, pile := range p.Penalty {
			n += len(pile)
		}
	}
	if g.Round != nil && !g.Round.Completed {
		n++
	}
	return n
}

// checkConservation verifies the 24-card invariant after a transition. A
// violation means a bug in the state machine, not bad client input; callers
// treat it as fatal for the room.
func (g *Game) checkConservation() error {
	if g.Status != StatusInProgress && g.Status != StatusCompleted {
		return nil
	}
	if n := g.cardCount(); n != deck.DeckSize {
		return NewError(CodeServerError, "card conservation violated: %d cards accounted for", n)
	}
	return nil
}
