package session

import (
	"context"
	"encoding/json"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/decred/slog"

	"cockroach-poker/pkg/broker"
	"cockroach-poker/pkg/game"
	"cockroach-poker/pkg/metrics"
	"cockroach-poker/pkg/record"
)

const (
	// intentQueueSize bounds the inbound intent channel. Overflow yields a
	// synchronous busy error to the submitter.
	intentQueueSize = 64

	// enqueueTimeout bounds how long a submitter may block on a full queue.
	enqueueTimeout = 2 * time.Second

	// graceWindow is how long a terminal room lingers before eviction so
	// participants can fetch the final state.
	graceWindow = 30 * time.Second

	// sinkTimeout bounds each record sink call from the loop.
	sinkTimeout = 5 * time.Second
)

// Room owns one game. All mutation happens on the loop goroutine: intents go
// in through Enqueue, frames come out through the Broadcaster. No locks
// guard the game itself.
type Room struct {
	id  string
	log slog.Logger

	g   *game.Game
	rng *rand.Rand

	intents chan *Intent
	done    chan struct{}
	closed  sync.Once

	sink record.Sink
	pub  broker.Publisher
	bc   Broadcaster

	// onEvict removes the room from the registry. Called at most once.
	onEvict func(roomID string)

	// summary is refreshed by the loop after every transition so listings
	// never touch loop-owned state.
	summary atomic.Value // game.Summary

	turnTimer *time.Timer
	turnFor   func(limitSeconds int) time.Duration
	grace     time.Duration
}

func newRoom(g *game.Game, rng *rand.Rand, log slog.Logger, sink record.Sink, pub broker.Publisher, bc Broadcaster, onEvict func(string), turnFor func(int) time.Duration, grace time.Duration) *Room {
	r := &Room{
		id:      g.RoomID,
		log:     log,
		g:       g,
		rng:     rng,
		intents: make(chan *Intent, intentQueueSize),
		done:    make(chan struct{}),
		sink:    sink,
		pub:     pub,
		bc:      bc,
		onEvict: onEvict,
		turnFor: turnFor,
		grace:   grace,
	}
	r.summary.Store(g.Summarize())

	r.turnTimer = time.NewTimer(time.Hour)
	if !r.turnTimer.Stop() {
		<-r.turnTimer.C
	}
	return r
}

// ID returns the room id.
func (r *Room) ID() string { return r.id }

// Summary returns the cached listing entry, at most one transition stale.
func (r *Room) Summary() game.Summary {
	return r.summary.Load().(game.Summary)
}

// Enqueue posts an intent to the writer loop and waits for its result. A
// full queue yields busy after a bounded wait; a closed room yields
// room_not_found.
func (r *Room) Enqueue(in *Intent) Result {
	timeout := time.NewTimer(enqueueTimeout)
	defer timeout.Stop()

	select {
	case r.intents <- in:
	case <-timeout.C:
		metrics.Intents.WithLabelValues("busy").Inc()
		return Result{Err: game.NewError(game.CodeBusy, "room %s is busy, retry shortly", r.id)}
	case <-in.ctx.Done():
		return Result{Err: game.NewError(game.CodeBusy, "request cancelled")}
	case <-r.done:
		return Result{Err: game.NewError(game.CodeRoomNotFound, "room %s is gone", r.id)}
	}

	select {
	case res := <-in.reply:
		return res
	case <-in.ctx.Done():
		return Result{Err: game.NewError(game.CodeBusy, "request cancelled")}
	case <-r.done:
		return Result{Err: game.NewError(game.CodeRoomNotFound, "room %s is gone", r.id)}
	}
}

// run is the writer loop. It is the sole goroutine that touches r.g.
func (r *Room) run() {
	defer func() {
		if p := recover(); p != nil {
			// An invariant violation inside the state machine must not
			// take the process down; the room is poisoned and evicted.
			r.log.Errorf("Room %s loop panicked: %v", r.id, p)
			r.notifyServerError()
			go r.evict()
		}
	}()

	for {
		select {
		case <-r.done:
			r.finalSave()
			return
		case in := <-r.intents:
			r.handle(in)
		case <-r.turnTimer.C:
			r.handleTurnTimeout()
		}
	}
}

// handle processes one dequeued intent.
func (r *Room) handle(in *Intent) {
	if in.cancelled() {
		metrics.Intents.WithLabelValues("dropped").Inc()
		return
	}

	now := time.Now().UTC()
	var res Result
	switch in.Kind {
	case IntentJoin:
		res = r.handleJoin(in, now)
	case IntentLeave:
		res = r.handleLeave(in, now)
	case IntentStart:
		res = r.handleStart(in, now)
	case IntentClaim, IntentRespond, IntentPass:
		res = r.handleGameEvent(in, now)
	case IntentSnapshot:
		res = r.handleSnapshot(in, now)
	default:
		res = Result{Err: game.NewError(game.CodeInvalidEnum, "unknown intent %q", in.Kind)}
	}

	if res.Err != nil {
		metrics.Intents.WithLabelValues("rejected").Inc()
		if game.CodeOf(res.Err) == game.CodeServerError {
			// The state machine only reports server_error when an
			// invariant broke. Stop serving corrupt state.
			r.log.Errorf("Room %s invariant violation: %v", r.id, res.Err)
			in.respond(res)
			r.notifyServerError()
			go r.evict()
			return
		}
	} else {
		metrics.Intents.WithLabelValues("accepted").Inc()
	}
	r.summary.Store(r.g.Summarize())
	in.respond(res)
}

func (r *Room) handleJoin(in *Intent, now time.Time) Result {
	seat, audits, err := r.g.Join(in.UserID, in.DisplayName, now)
	if err != nil {
		return Result{Err: err}
	}
	r.persistAudits(audits)
	r.saveGame()

	// Everybody already seated learns about the newcomer; the newcomer gets
	// the room state in the reply.
	for _, p := range r.g.Players {
		if p.UserID == in.UserID {
			continue
		}
		r.send(p.UserID, Frame{Event: "participant_joined", Payload: map[string]interface{}{
			"room_id":      r.id,
			"user_id":      in.UserID,
			"display_name": in.DisplayName,
			"position":     seat,
		}})
	}
	r.publish("participant_joined", map[string]interface{}{"user_id": in.UserID, "position": seat})

	view := r.g.Snapshot(in.UserID, now)
	return Result{Position: seat, View: &view}
}

func (r *Room) handleLeave(in *Intent, now time.Time) Result {
	audits, err := r.g.Leave(in.UserID, now)
	if err != nil {
		return Result{Err: err}
	}
	r.persistAudits(audits)
	r.saveGame()

	for _, p := range r.g.Players {
		if p.UserID == in.UserID {
			continue
		}
		r.send(p.UserID, Frame{Event: "participant_left", Payload: map[string]interface{}{
			"room_id": r.id,
			"user_id": in.UserID,
		}})
	}
	r.publish("participant_left", map[string]interface{}{"user_id": in.UserID})

	if r.g.Status == game.StatusCancelled {
		// Creator left a waiting room; the room is destroyed.
		go r.evict()
	}
	return Result{}
}

func (r *Room) handleStart(in *Intent, now time.Time) Result {
	audits, err := r.g.Start(in.UserID, r.rng, now)
	if err != nil {
		return Result{Err: err}
	}
	r.persistAudits(audits)
	r.saveGame()
	r.broadcastState(now)
	r.publish("game_started", map[string]interface{}{"first_turn": r.g.CurrentTurnID})
	r.armTurnTimer()

	view := r.g.Snapshot(in.UserID, now)
	return Result{View: &view}
}

func (r *Room) handleGameEvent(in *Intent, now time.Time) Result {
	if !r.g.IsParticipant(in.UserID) {
		return Result{Err: game.NewError(game.CodeNotParticipant, "player %s is not in room %s", in.UserID, r.id)}
	}

	outcome, err := r.g.Apply(in.Event, now)
	if err != nil {
		return Result{Err: err}
	}

	r.persistAudits(outcome.Audit)
	if r.g.Round != nil {
		r.saveRound()
	}
	r.saveGame()
	r.broadcastOutcome(outcome, now)
	r.armTurnTimer()

	if outcome.GameEnded {
		r.disarmTurnTimer()
		time.AfterFunc(r.grace, r.evict)
	}

	view := r.g.Snapshot(in.UserID, now)
	return Result{View: &view}
}

func (r *Room) handleSnapshot(in *Intent, now time.Time) Result {
	if !r.g.IsParticipant(in.UserID) {
		return Result{Err: game.NewError(game.CodeNotParticipant, "player %s is not in room %s", in.UserID, r.id)}
	}
	view := r.g.Snapshot(in.UserID, now)
	return Result{View: &view}
}

// handleTurnTimeout emits the advisory timeout broadcast. Turn enforcement
// is a client concern; the server only announces the deadline passed.
func (r *Room) handleTurnTimeout() {
	if r.g.Status != game.StatusInProgress {
		return
	}
	r.broadcast(Frame{Event: "turn_timeout", Payload: map[string]interface{}{
		"room_id":      r.id,
		"user_id":      r.g.CurrentTurnID,
		"round_number": r.g.RoundNumber,
	}})
}

// broadcastOutcome fans out the public event frame plus a personalized
// state update for every participant.
func (r *Room) broadcastOutcome(o *game.Outcome, now time.Time) {
	frame := outcomeFrame(o)
	r.broadcast(frame)
	r.publish(frame.Event, frame.Payload)

	if o.Kind == game.OutcomeClaimResponded {
		r.broadcast(Frame{Event: "round_completed", Payload: map[string]interface{}{
			"room_id":             r.id,
			"round_id":            o.RoundID,
			"pass_count":          o.PassCount,
			"penalty_receiver_id": o.PenaltyReceiverID,
		}})
	}
	if o.GameEnded {
		loser := r.g.Player(o.LoserID)
		r.broadcast(Frame{Event: "game_ended", Payload: map[string]interface{}{
			"room_id":   r.id,
			"winner_id": o.WinnerID,
			"losers": []map[string]interface{}{{
				"player_id":     o.LoserID,
				"penalty_cards": loser.Penalty,
			}},
		}})
		r.publish("game_ended", map[string]interface{}{"winner_id": o.WinnerID})
	}
	r.broadcastState(now)
}

// outcomeFrame renders the public broadcast for an accepted event. Payloads
// stay safe for both players: the actual creature appears only on
// claim_responded.
func outcomeFrame(o *game.Outcome) Frame {
	switch o.Kind {
	case game.OutcomeCardClaimed:
		return Frame{Event: "card_claimed", Payload: map[string]interface{}{
			"room_id":              o.RoomID,
			"round_id":             o.RoundID,
			"claimer_id":           o.ActorID,
			"claimed_creature":     string(o.ClaimedCreature),
			"target_user_id":       o.TargetID,
			"round_number":         o.RoundNumber,
			"current_turn_user_id": o.CurrentTurnID,
		}}
	case game.OutcomeCardPassed:
		return Frame{Event: "card_passed", Payload: map[string]interface{}{
			"room_id":              o.RoomID,
			"round_id":             o.RoundID,
			"passer_id":            o.ActorID,
			"claimed_creature":     string(o.ClaimedCreature),
			"target_user_id":       o.TargetID,
			"pass_count":           o.PassCount,
			"current_turn_user_id": o.CurrentTurnID,
		}}
	default:
		return Frame{Event: "claim_responded", Payload: map[string]interface{}{
			"room_id":              o.RoomID,
			"round_id":             o.RoundID,
			"responder_id":         o.ActorID,
			"believe_claim":        o.Believed,
			"actual_creature":      string(o.ActualCreature),
			"was_correct":          o.WasCorrect,
			"penalty_receiver_id":  o.PenaltyReceiverID,
			"penalty_pile_size":    o.PenaltyPileSize,
			"current_turn_user_id": o.CurrentTurnID,
		}}
	}
}

// broadcastState sends each participant their personalized snapshot.
func (r *Room) broadcastState(now time.Time) {
	for _, p := range r.g.Players {
		view := r.g.Snapshot(p.UserID, now)
		r.send(p.UserID, Frame{Event: "game_state_update", Payload: map[string]interface{}{
			"room_id":    r.id,
			"game_state": view,
			"timestamp":  now,
		}})
	}
}

// broadcast sends one identical frame to every participant.
func (r *Room) broadcast(f Frame) {
	for _, p := range r.g.Players {
		r.send(p.UserID, f)
	}
}

func (r *Room) send(userID string, f Frame) {
	metrics.Broadcasts.Inc()
	r.bc.Send(userID, f)
}

// publish mirrors an event onto the cluster broker.
func (r *Room) publish(event string, payload map[string]interface{}) {
	msg, err := json.Marshal(map[string]interface{}{
		"room_id": r.id,
		"event":   event,
		"payload": payload,
	})
	if err != nil {
		r.log.Errorf("Failed to encode broker event for room %s: %v", r.id, err)
		return
	}
	r.pub.Publish(r.id, msg)
}

// notifyServerError tells every participant the room broke.
func (r *Room) notifyServerError() {
	r.broadcast(Frame{Event: "action_error", Payload: map[string]interface{}{
		"code":    string(game.CodeServerError),
		"message": "internal error, room closed",
		"room_id": r.id,
	}})
}

// persistAudits appends entries to the record sink. Failures are logged and
// swallowed; audit delivery is at-most-once.
func (r *Room) persistAudits(entries []game.AuditEntry) {
	for _, entry := range entries {
		ctx, cancel := context.WithTimeout(context.Background(), sinkTimeout)
		err := r.sink.Append(ctx, entry)
		cancel()
		if err != nil {
			metrics.AuditFailures.Inc()
			r.log.Warnf("Failed to append audit %s/%s for room %s: %v", entry.Action, entry.ID, r.id, err)
		}
	}
}

func (r *Room) saveGame() {
	ctx, cancel := context.WithTimeout(context.Background(), sinkTimeout)
	defer cancel()
	if err := r.sink.SaveGame(ctx, r.g); err != nil {
		metrics.AuditFailures.Inc()
		r.log.Warnf("Failed to save game %s: %v", r.id, err)
	}
}

func (r *Room) saveRound() {
	ctx, cancel := context.WithTimeout(context.Background(), sinkTimeout)
	defer cancel()
	if err := r.sink.SaveRound(ctx, r.id, r.g.RoundNumber, r.g.Round); err != nil {
		metrics.AuditFailures.Inc()
		r.log.Warnf("Failed to save round for game %s: %v", r.id, err)
	}
}

// finalSave flushes the last game state when the loop exits.
func (r *Room) finalSave() {
	r.saveGame()
}

// armTurnTimer restarts the advisory turn timer for the current turn.
func (r *Room) armTurnTimer() {
	if r.g.Status != game.StatusInProgress {
		return
	}
	r.disarmTurnTimer()
	r.turnTimer.Reset(r.turnFor(r.g.TurnTimeLimit))
}

func (r *Room) disarmTurnTimer() {
	if !r.turnTimer.Stop() {
		select {
		case <-r.turnTimer.C:
		default:
		}
	}
}

// evict tears the room down: the loop stops, and the registry forgets it.
// Safe to call multiple times.
func (r *Room) evict() {
	r.closed.Do(func() {
		close(r.done)
		if r.onEvict != nil {
			r.onEvict(r.id)
		}
	})
}
