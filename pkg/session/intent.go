package session

import (
	"context"

	"cockroach-poker/pkg/game"
)

// IntentKind names a request posted to a room's writer loop.
type IntentKind string

const (
	IntentJoin     IntentKind = "join"
	IntentLeave    IntentKind = "leave"
	IntentStart    IntentKind = "start"
	IntentClaim    IntentKind = "claim"
	IntentRespond  IntentKind = "respond"
	IntentPass     IntentKind = "pass"
	IntentSnapshot IntentKind = "snapshot"
)

// Intent is one unit of work for a room loop. The context belongs to the
// submitting connection: when it is cancelled before the loop dequeues the
// intent, the intent is dropped without effect.
type Intent struct {
	ctx         context.Context
	Kind        IntentKind
	UserID      string
	DisplayName string

	// Event carries the state machine event for claim/respond/pass.
	Event game.Event

	reply chan Result
}

// Result is the synchronous answer to an intent.
type Result struct {
	Err error

	// Position is the seat index assigned by a join.
	Position int

	// View is the personalized snapshot for snapshot/join intents.
	View *game.StateView
}

// NewIntent builds an intent bound to the submitter's context.
func NewIntent(ctx context.Context, kind IntentKind, userID, displayName string, ev game.Event) *Intent {
	return &Intent{
		ctx:         ctx,
		Kind:        kind,
		UserID:      userID,
		DisplayName: displayName,
		Event:       ev,
		reply:       make(chan Result, 1),
	}
}

// cancelled reports whether the submitting connection went away.
func (in *Intent) cancelled() bool {
	select {
	case <-in.ctx.Done():
		return true
	default:
		return false
	}
}

// respond delivers the result without blocking; the reply channel is
// buffered and read exactly once.
func (in *Intent) respond(res Result) {
	select {
	case in.reply <- res:
	default:
	}
}
