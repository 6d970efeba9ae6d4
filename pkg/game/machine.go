package game

import (
	"math/rand"
	"time"

	"github.com/google/uuid"

	"cockroach-poker/pkg/deck"
)

// Join seats userID at slot 1. The caller (the room loop) serializes joins,
// so the occupancy check and the insert are atomic here.
func (g *Game) Join(userID, displayName string, now time.Time) (int, []AuditEntry, error) {
	if g.Status != StatusWaiting {
		return 0, nil, NewError(CodeGameNotActive, "room %s is not accepting players", g.RoomID)
	}
	if g.IsParticipant(userID) {
		return 0, nil, NewError(CodeAlreadyJoined, "player %s already joined room %s", userID, g.RoomID)
	}
	if len(g.Players) >= MaxPlayers {
		return 0, nil, NewError(CodeRoomFull, "room %s is full", g.RoomID)
	}

	seat := len(g.Players)
	g.Players = append(g.Players, newPlayerSlot(userID, displayName, seat))

	audit := []AuditEntry{newAudit(g.RoomID, "", userID, ActionJoinGame, map[string]interface{}{
		"position": seat,
	}, now)}
	return seat, audit, nil
}

// Leave removes userID from a waiting room. If the creator leaves the room is
// cancelled; the registry destroys it. Leaving an in-progress game is handled
// at the session layer as a disconnect, not a state transition.
func (g *Game) Leave(userID string, now time.Time) ([]AuditEntry, error) {
	if g.Status != StatusWaiting {
		return nil, NewError(CodeGameNotActive, "cannot leave room %s after start", g.RoomID)
	}
	p := g.Player(userID)
	if p == nil {
		return nil, NewError(CodeNotParticipant, "player %s is not in room %s", userID, g.RoomID)
	}

	if userID == g.CreatorID {
		g.Status = StatusCancelled
	} else {
		players := g.Players[:0]
		for _, slot := range g.Players {
			if slot.UserID != userID {
				players = append(players, slot)
			}
		}
		g.Players = players
	}

	audit := []AuditEntry{newAudit(g.RoomID, "", userID, ActionLeaveGame, map[string]interface{}{
		"creator_left": userID == g.CreatorID,
	}, now)}
	return audit, nil
}

// Start shuffles a fresh deck, deals both hands plus the reserve, and moves
// the game to in_progress with slot 0 on turn. Only the creator may start,
// and only with both seats occupied.
func (g *Game) Start(byUserID string, rng *rand.Rand, now time.Time) ([]AuditEntry, error) {
	cards := deck.Build()
	deck.Shuffle(cards, rng)
	return g.StartWithDeck(byUserID, cards, now)
}

// StartWithDeck starts the game from an explicit deck order. Production code
// goes through Start; tests use this to rig hands.
func (g *Game) StartWithDeck(byUserID string, cards []deck.Card, now time.Time) ([]AuditEntry, error) {
	if g.Status != StatusWaiting {
		return nil, NewError(CodeGameNotActive, "room %s already started", g.RoomID)
	}
	if byUserID != g.CreatorID {
		return nil, NewError(CodeNotCreator, "only the creator may start room %s", g.RoomID)
	}
	if len(g.Players) != MaxPlayers {
		return nil, NewError(CodeValidation, "room %s needs %d players to start, has %d", g.RoomID, MaxPlayers, len(g.Players))
	}

	handA, handB, reserve, err := deck.Deal(cards)
	if err != nil {
		return nil, NewError(CodeServerError, "deal failed: %v", err)
	}

	g.Players[0].Hand = handA
	g.Players[1].Hand = handB
	g.Reserve = reserve
	g.Status = StatusInProgress
	g.CurrentTurnID = g.Players[0].UserID
	g.RoundNumber = 0

	if err := g.checkConservation(); err != nil {
		return nil, err
	}

	audit := []AuditEntry{newAudit(g.RoomID, "", byUserID, ActionStartGame, map[string]interface{}{
		"first_turn": g.CurrentTurnID,
	}, now)}
	return audit, nil
}

// Apply runs the state machine for one client intent. It performs no I/O:
// the caller owns persistence and broadcasting. A returned error leaves the
// game unchanged, except for CodeServerError which signals a violated
// invariant and poisons the room.
func (g *Game) Apply(ev Event, now time.Time) (*Outcome, error) {
	switch e := ev.(type) {
	case Claim:
		return g.applyClaim(e, now)
	case Respond:
		return g.applyRespond(e, now)
	case Pass:
		return g.applyPass(e, now)
	default:
		return nil, NewError(CodeInvalidEnum, "unknown event type %T", ev)
	}
}

func (g *Game) applyClaim(e Claim, now time.Time) (*Outcome, error) {
	if g.Status != StatusInProgress {
		return nil, NewError(CodeGameNotActive, "game %s is not in progress", g.RoomID)
	}
	if g.Round != nil && !g.Round.Completed {
		return nil, NewError(CodeValidation, "round %s is still active", g.Round.ID)
	}
	claimer := g.Player(e.ClaimerID)
	if claimer == nil {
		return nil, NewError(CodeNotParticipant, "player %s is not in game %s", e.ClaimerID, g.RoomID)
	}
	if e.ClaimerID != g.CurrentTurnID {
		return nil, NewError(CodeNotYourTurn, "it is not %s's turn", e.ClaimerID)
	}
	if !e.ClaimedCreature.Valid() {
		return nil, NewError(CodeCreatureUnknown, "unknown creature %q", e.ClaimedCreature)
	}
	if e.TargetID == e.ClaimerID {
		return nil, NewError(CodeInvalidTarget, "cannot target yourself")
	}
	target := g.Player(e.TargetID)
	if target == nil || target.HasLost {
		return nil, NewError(CodeInvalidTarget, "invalid target %s", e.TargetID)
	}

	card, ok := claimer.removeCard(e.CardID)
	if !ok {
		return nil, NewError(CodeCardNotInHand, "card %s is not in %s's hand", e.CardID, e.ClaimerID)
	}

	g.Round = &Round{
		ID:              uuid.NewString(),
		ClaimerID:       e.ClaimerID,
		ClaimedCreature: e.ClaimedCreature,
		TargetID:        e.TargetID,
		Card:            card,
		CreatedAt:       now,
	}
	g.CurrentTurnID = e.TargetID
	g.RoundNumber++

	if err := g.checkConservation(); err != nil {
		return nil, err
	}

	return &Outcome{
		Kind:            OutcomeCardClaimed,
		RoomID:          g.RoomID,
		RoundID:         g.Round.ID,
		ActorID:         e.ClaimerID,
		TargetID:        e.TargetID,
		ClaimedCreature: e.ClaimedCreature,
		CurrentTurnID:   g.CurrentTurnID,
		RoundNumber:     g.RoundNumber,
		Audit: []AuditEntry{newAudit(g.RoomID, g.Round.ID, e.ClaimerID, ActionMakeClaim, map[string]interface{}{
			"card_id":          card.ID,
			"claimed_creature": string(e.ClaimedCreature),
			"target":           e.TargetID,
		}, now)},
	}, nil
}

func (g *Game) activeRound(roundID string) (*Round, error) {
	if g.Round == nil {
		return nil, NewError(CodeRoundNotFound, "no round in game %s", g.RoomID)
	}
	if g.Round.ID != roundID {
		return nil, NewError(CodeRoundNotFound, "round %s not found", roundID)
	}
	if g.Round.Completed {
		return nil, NewError(CodeRoundCompleted, "round %s already completed", roundID)
	}
	return g.Round, nil
}

func (g *Game) applyRespond(e Respond, now time.Time) (*Outcome, error) {
	if g.Status != StatusInProgress {
		return nil, NewError(CodeGameNotActive, "game %s is not in progress", g.RoomID)
	}
	round, err := g.activeRound(e.RoundID)
	if err != nil {
		return nil, err
	}
	if e.ResponderID != round.TargetID {
		return nil, NewError(CodeNotYourTurn, "player %s is not the round target", e.ResponderID)
	}
	if e.ResponderID != g.CurrentTurnID {
		return nil, NewError(CodeNotYourTurn, "it is not %s's turn", e.ResponderID)
	}

	truthful := round.Card.Creature == round.ClaimedCreature
	wasCorrect := e.Believe == truthful

	// A truthful claim sticks the responder with the card; a lie falls back
	// on the author of the live claim. The claim author rotates on every
	// pass, which keeps penalty assignment fair across pass chains.
	receiverID := e.ResponderID
	if !truthful {
		receiverID = round.ClaimerID
	}
	receiver := g.Player(receiverID)

	receiver.Penalty[round.Card.Creature] = append(receiver.Penalty[round.Card.Creature], round.Card)
	pileSize := len(receiver.Penalty[round.Card.Creature])
	if pileSize > LosingPileSize {
		return nil, NewError(CodeServerError, "penalty pile for %s exceeded %d", round.Card.Creature, LosingPileSize)
	}

	round.Completed = true
	round.FinalGuesserID = e.ResponderID
	round.GuessIsTruth = e.Believe
	round.ActualIsTruth = truthful
	round.PenaltyReceiverID = receiverID
	round.CompletedAt = now

	guessAction := ActionGuessLie
	if e.Believe {
		guessAction = ActionGuessTruth
	}
	audit := []AuditEntry{
		newAudit(g.RoomID, round.ID, e.ResponderID, guessAction, map[string]interface{}{
			"believe_claim": e.Believe,
			"was_correct":   wasCorrect,
		}, now),
		newAudit(g.RoomID, round.ID, receiverID, ActionReceivePenalty, map[string]interface{}{
			"card_id":   round.Card.ID,
			"creature":  string(round.Card.Creature),
			"pile_size": pileSize,
		}, now),
	}

	outcome := &Outcome{
		Kind:              OutcomeClaimResponded,
		RoomID:            g.RoomID,
		RoundID:           round.ID,
		ActorID:           e.ResponderID,
		ClaimedCreature:   round.ClaimedCreature,
		PassCount:         round.PassCount,
		Believed:          e.Believe,
		ActualCreature:    round.Card.Creature,
		WasCorrect:        wasCorrect,
		PenaltyReceiverID: receiverID,
		PenaltyPileSize:   pileSize,
		RoundNumber:       g.RoundNumber,
	}

	if pileSize == LosingPileSize {
		receiver.HasLost = true
		g.Status = StatusCompleted
		winner := g.Opponent(receiverID)
		g.WinnerID = winner.UserID
		g.CurrentTurnID = winner.UserID

		outcome.GameEnded = true
		outcome.WinnerID = winner.UserID
		outcome.LoserID = receiverID
		audit = append(audit, newAudit(g.RoomID, round.ID, receiverID, ActionGameEnd, map[string]interface{}{
			"winner":          winner.UserID,
			"loser":           receiverID,
			"losing_creature": string(round.Card.Creature),
		}, now))
	} else {
		g.CurrentTurnID = receiverID
	}
	outcome.CurrentTurnID = g.CurrentTurnID
	outcome.Audit = audit

	if err := g.checkConservation(); err != nil {
		return nil, err
	}
	return outcome, nil
}

func (g *Game) applyPass(e Pass, now time.Time) (*Outcome, error) {
	if g.Status != StatusInProgress {
		return nil, NewError(CodeGameNotActive, "game %s is not in progress", g.RoomID)
	}
	round, err := g.activeRound(e.RoundID)
	if err != nil {
		return nil, err
	}
	if e.PasserID != round.TargetID {
		return nil, NewError(CodeNotYourTurn, "player %s is not the round target", e.PasserID)
	}
	if e.PasserID != g.CurrentTurnID {
		return nil, NewError(CodeNotYourTurn, "it is not %s's turn", e.PasserID)
	}
	if !e.ClaimedCreature.Valid() {
		return nil, NewError(CodeCreatureUnknown, "unknown creature %q", e.ClaimedCreature)
	}
	if e.TargetID == e.PasserID {
		return nil, NewError(CodeInvalidTarget, "cannot pass to yourself")
	}
	target := g.Player(e.TargetID)
	if target == nil || target.HasLost {
		return nil, NewError(CodeInvalidTarget, "invalid target %s", e.TargetID)
	}

	// The card stays in the round; only the claim and its author change.
	round.ClaimerID = e.PasserID
	round.ClaimedCreature = e.ClaimedCreature
	round.TargetID = e.TargetID
	round.PassCount++
	g.CurrentTurnID = e.TargetID

	if err := g.checkConservation(); err != nil {
		return nil, err
	}

	return &Outcome{
		Kind:            OutcomeCardPassed,
		RoomID:          g.RoomID,
		RoundID:         round.ID,
		ActorID:         e.PasserID,
		TargetID:        e.TargetID,
		ClaimedCreature: e.ClaimedCreature,
		PassCount:       round.PassCount,
		CurrentTurnID:   g.CurrentTurnID,
		RoundNumber:     g.RoundNumber,
		Audit: []AuditEntry{newAudit(g.RoomID, round.ID, e.PasserID, ActionPassCard, map[string]interface{}{
			"new_target":       e.TargetID,
			"claimed_creature": string(e.ClaimedCreature),
			"pass_count":       round.PassCount,
		}, now)},
	}, nil
}
