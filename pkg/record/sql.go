package record

import (
	"encoding/json"

	"cockroach-poker/pkg/deck"
	"cockroach-poker/pkg/game"
)

// cardsJSON encodes cards as the contracted JSON array of
// {creature, id} objects.
func cardsJSON(cards []deck.Card) (string, error) {
	if cards == nil {
		cards = []deck.Card{}
	}
	b, err := json.Marshal(cards)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// actionDataJSON encodes an audit entry's payload.
func actionDataJSON(data map[string]interface{}) (string, error) {
	if data == nil {
		data = map[string]interface{}{}
	}
	b, err := json.Marshal(data)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// roundCardJSON encodes the round's card for the current_card column.
func roundCardJSON(r *game.Round) string {
	b, err := json.Marshal(r.Card)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// gameCreature converts a persisted column name back to the deck type.
func gameCreature(name string) deck.Creature {
	return deck.Creature(name)
}

// losingCreature returns the creature whose pile reached the losing size,
// or empty when the player has not lost.
func losingCreature(p *game.PlayerSlot) string {
	for creature, pile := range p.Penalty {
		if len(pile) >= game.LosingPileSize {
			return string(creature)
		}
	}
	return ""
}

// participantStatus maps slot state to the persisted status column.
func participantStatus(g *game.Game, p *game.PlayerSlot) string {
	switch {
	case p.HasLost:
		return "lost"
	case g.Terminal() && g.WinnerID == p.UserID:
		return "won"
	default:
		return "active"
	}
}
