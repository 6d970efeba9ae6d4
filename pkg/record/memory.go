package record

import (
	"context"
	"sync"

	"cockroach-poker/pkg/game"
)

// MemorySink keeps everything in memory. Used in tests and as the fallback
// when no persistence is configured.
type MemorySink struct {
	mu      sync.Mutex
	actions []game.AuditEntry
	games   map[string]game.Status
	rounds  map[string][]string // gameID -> round ids in save order
}

// NewMemorySink creates an empty in-memory sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{
		games:  make(map[string]game.Status),
		rounds: make(map[string][]string),
	}
}

// Append records one audit entry.
func (m *MemorySink) Append(_ context.Context, entry game.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.actions = append(m.actions, entry)
	return nil
}

// SaveGame records the game's latest status.
func (m *MemorySink) SaveGame(_ context.Context, g *game.Game) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.games[g.RoomID] = g.Status
	return nil
}

// SaveRound records the round id.
func (m *MemorySink) SaveRound(_ context.Context, gameID string, _ int, r *game.Round) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rounds[gameID] = append(m.rounds[gameID], r.ID)
	return nil
}

// Close is a no-op.
func (m *MemorySink) Close() error { return nil }

// Actions returns a copy of every appended entry, in order.
func (m *MemorySink) Actions() []game.AuditEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]game.AuditEntry(nil), m.actions...)
}

// GameStatus returns the last saved status for gameID.
func (m *MemorySink) GameStatus(gameID string) (game.Status, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.games[gameID]
	return st, ok
}
