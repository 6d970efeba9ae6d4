package session

import (
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/decred/slog"
	"github.com/google/uuid"

	"cockroach-poker/pkg/broker"
	"cockroach-poker/pkg/deck"
	"cockroach-poker/pkg/game"
	"cockroach-poker/pkg/metrics"
	"cockroach-poker/pkg/record"
)

// Registry holds every active room. Its surface is deliberately narrow:
// create, get, list, evict. All other access goes through room handles.
type Registry struct {
	log  slog.Logger
	sink record.Sink
	pub  broker.Publisher
	bc   Broadcaster

	mu    sync.RWMutex
	rooms map[string]*Room

	// newRNG builds the deck RNG per room; swapped in tests for
	// deterministic shuffles.
	newRNG func() *rand.Rand

	// turnTimerFor and grace size the room loop timers; swapped in tests
	// so timer behavior is observable without real-time waits.
	turnTimerFor func(limitSeconds int) time.Duration
	grace        time.Duration
}

// NewRegistry creates an empty session registry.
func NewRegistry(log slog.Logger, sink record.Sink, pub broker.Publisher, bc Broadcaster) *Registry {
	return &Registry{
		log:    log,
		sink:   sink,
		pub:    pub,
		bc:     bc,
		rooms:  make(map[string]*Room),
		newRNG: deck.NewSeededRNG,
		turnTimerFor: func(limitSeconds int) time.Duration {
			return time.Duration(limitSeconds) * time.Second
		},
		grace: graceWindow,
	}
}

// SetBroadcaster swaps the frame fan-out target. Called once during wiring,
// before any room exists, to break the hub/registry construction cycle.
func (reg *Registry) SetBroadcaster(bc Broadcaster) {
	reg.bc = bc
}

// SetRNGFactory overrides deck shuffling randomness. Test hook.
func (reg *Registry) SetRNGFactory(f func() *rand.Rand) {
	reg.newRNG = f
}

// SetTimers overrides the advisory turn timer duration and the terminal
// grace window. Test hook; nil or zero keeps the default.
func (reg *Registry) SetTimers(turnFor func(limitSeconds int) time.Duration, grace time.Duration) {
	if turnFor != nil {
		reg.turnTimerFor = turnFor
	}
	if grace > 0 {
		reg.grace = grace
	}
}

// CreateRoom allocates a waiting room with the creator at slot 0 and starts
// its writer loop.
func (reg *Registry) CreateRoom(creatorID, creatorName string, turnTimeLimit int) (*Room, error) {
	g, err := game.New(uuid.NewString(), creatorID, creatorName, turnTimeLimit, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	bc := reg.bc
	if bc == nil {
		bc = NopBroadcaster{}
	}
	room := newRoom(g, reg.newRNG(), reg.log, reg.sink, reg.pub, bc, reg.remove, reg.turnTimerFor, reg.grace)

	reg.mu.Lock()
	reg.rooms[room.id] = room
	reg.mu.Unlock()
	metrics.ActiveRooms.Inc()

	go room.run()
	reg.log.Infof("Created room %s for %s (turn limit %ds)", room.id, creatorID, turnTimeLimit)
	return room, nil
}

// Get returns the room handle for id.
func (reg *Registry) Get(roomID string) (*Room, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	room, ok := reg.rooms[roomID]
	return room, ok
}

// List returns summaries of up to limit rooms, newest first. Summaries are
// cached per room and at most one transition stale.
func (reg *Registry) List(limit int) []game.Summary {
	reg.mu.RLock()
	summaries := make([]game.Summary, 0, len(reg.rooms))
	for _, room := range reg.rooms {
		s := room.Summary()
		if s.Status == string(game.StatusWaiting) || s.Status == string(game.StatusInProgress) {
			summaries = append(summaries, s)
		}
	}
	reg.mu.RUnlock()

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].CreatedAt.After(summaries[j].CreatedAt)
	})
	if limit > 0 && len(summaries) > limit {
		summaries = summaries[:limit]
	}
	return summaries
}

// Evict terminates a room's loop and forgets it.
func (reg *Registry) Evict(roomID string) {
	if room, ok := reg.Get(roomID); ok {
		room.evict()
	}
}

// remove is the room's eviction callback.
func (reg *Registry) remove(roomID string) {
	reg.mu.Lock()
	_, ok := reg.rooms[roomID]
	delete(reg.rooms, roomID)
	reg.mu.Unlock()
	if ok {
		metrics.ActiveRooms.Dec()
		reg.log.Infof("Evicted room %s", roomID)
	}
}

// Shutdown evicts every room. Used on process exit.
func (reg *Registry) Shutdown() {
	reg.mu.RLock()
	rooms := make([]*Room, 0, len(reg.rooms))
	for _, room := range reg.rooms {
		rooms = append(rooms, room)
	}
	reg.mu.RUnlock()
	for _, room := range rooms {
		room.evict()
	}
}
