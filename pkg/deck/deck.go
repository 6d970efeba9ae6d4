package deck

import (
	cryptorand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/rand"
)

// Creature represents one of the four card creatures
type Creature string

const (
	Cockroach Creature = "cockroach"
	Mouse     Creature = "mouse"
	Bat       Creature = "bat"
	Frog      Creature = "frog"
)

// Creatures lists every creature in deck construction order.
var Creatures = []Creature{Cockroach, Mouse, Bat, Frog}

// Valid reports whether c is one of the four known creatures.
func (c Creature) Valid() bool {
	switch c {
	case Cockroach, Mouse, Bat, Frog:
		return true
	}
	return false
}

// Deck composition constants. The reserve is never dealt; it removes
// full-deck determinism for the players.
const (
	CopiesPerCreature = 6
	DeckSize          = 24
	HandSize          = 9
	ReserveSize       = 6
)

// Card is a single physical card. The ID is unique within a deck so the
// card's identity survives passes, reveals, and penalty assignment.
type Card struct {
	Creature Creature `json:"creature"`
	ID       string   `json:"id"`
}

// String returns a string representation of the card
func (c Card) String() string {
	return c.ID
}

// Build enumerates the full 24-card deck in deterministic order:
// six copies of each creature, ids "{creature}_{index}".
func Build() []Card {
	cards := make([]Card, 0, DeckSize)
	for _, creature := range Creatures {
		for i := 0; i < CopiesPerCreature; i++ {
			cards = append(cards, Card{
				Creature: creature,
				ID:       fmt.Sprintf("%s_%d", creature, i),
			})
		}
	}
	return cards
}

// Shuffle permutes cards in place with a Fisher-Yates shuffle driven by rng.
func Shuffle(cards []Card, rng *rand.Rand) {
	rng.Shuffle(len(cards), func(i, j int) {
		cards[i], cards[j] = cards[j], cards[i]
	})
}

// Deal partitions a full deck into two nine-card hands and the six-card
// reserve. The reserve stays face-down and unreachable for the whole game.
func Deal(cards []Card) (handA, handB, reserve []Card, err error) {
	if len(cards) != DeckSize {
		return nil, nil, nil, fmt.Errorf("deal requires %d cards, got %d", DeckSize, len(cards))
	}
	handA = append([]Card(nil), cards[:HandSize]...)
	handB = append([]Card(nil), cards[HandSize:2*HandSize]...)
	reserve = append([]Card(nil), cards[2*HandSize:]...)
	return handA, handB, reserve, nil
}

// NewSeededRNG returns a math/rand generator seeded from crypto/rand.
func NewSeededRNG() *rand.Rand {
	var buf [8]byte
	if _, err := cryptorand.Read(buf[:]); err != nil {
		// crypto/rand failing means the platform entropy source is broken;
		// there is no reasonable fallback for a card game server.
		panic(fmt.Sprintf("deck: failed to read entropy: %v", err))
	}
	seed := int64(binary.LittleEndian.Uint64(buf[:]))
	return rand.New(rand.NewSource(seed))
}
