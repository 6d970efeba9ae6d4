package deck

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildComposition(t *testing.T) {
	cards := Build()
	require.Len(t, cards, DeckSize)

	counts := make(map[Creature]int)
	ids := make(map[string]bool)
	for _, c := range cards {
		counts[c.Creature]++
		assert.False(t, ids[c.ID], "duplicate card id %s", c.ID)
		ids[c.ID] = true
	}
	for _, creature := range Creatures {
		assert.Equal(t, CopiesPerCreature, counts[creature], "creature %s", creature)
	}
}

func TestShufflePreservesMultiset(t *testing.T) {
	cards := Build()
	Shuffle(cards, rand.New(rand.NewSource(42)))

	counts := make(map[Creature]int)
	for _, c := range cards {
		counts[c.Creature]++
	}
	for _, creature := range Creatures {
		assert.Equal(t, CopiesPerCreature, counts[creature])
	}
	assert.Len(t, cards, DeckSize)
}

func TestDealPartition(t *testing.T) {
	cards := Build()
	Shuffle(cards, rand.New(rand.NewSource(7)))

	handA, handB, reserve, err := Deal(cards)
	require.NoError(t, err)
	assert.Len(t, handA, HandSize)
	assert.Len(t, handB, HandSize)
	assert.Len(t, reserve, ReserveSize)

	// Every card lands in exactly one partition.
	seen := make(map[string]int)
	for _, c := range handA {
		seen[c.ID]++
	}
	for _, c := range handB {
		seen[c.ID]++
	}
	for _, c := range reserve {
		seen[c.ID]++
	}
	require.Len(t, seen, DeckSize)
	for id, n := range seen {
		assert.Equal(t, 1, n, "card %s dealt %d times", id, n)
	}
}

func TestDealRejectsShortDeck(t *testing.T) {
	_, _, _, err := Deal(Build()[:10])
	assert.Error(t, err)
}

func TestCreatureValid(t *testing.T) {
	for _, creature := range Creatures {
		assert.True(t, creature.Valid())
	}
	assert.False(t, Creature("scorpion").Valid())
	assert.False(t, Creature("").Valid())
}
