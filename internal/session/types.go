package session

import (
	"time"

	"github.com/shopspring/decimal"
)

// State identifies a conversation step for one sender.
type State string

const (
	// StateMainMenu is the initial state showing the top-level menu.
	StateMainMenu State = "MAIN_MENU"
	// StateAwaitCategory waits for a category key selection.
	StateAwaitCategory State = "AWAIT_CATEGORY"
	// StateAwaitAmount waits for a numeric amount.
	StateAwaitAmount State = "AWAIT_AMOUNT"
	// StateAwaitNotes waits for free-text notes completing the draft.
	StateAwaitNotes State = "AWAIT_NOTES"
	// StateNextAction waits for a post-save menu selection.
	StateNextAction State = "NEXT_ACTION"
)

// Draft is a partially built expense record assembled across replies.
// Category is set on entry; Amount only once HasAmount is true.
type Draft struct {
	Category  string
	Amount    decimal.Decimal
	HasAmount bool
}

// Session stores conversation state and the in-progress draft for a sender.
type Session struct {
	State        State
	Draft        *Draft
	LastActivity time.Time
}

// Manager orchestrates per-sender sessions.
//
// Lock serializes handling for one sender: two near-simultaneous messages
// from the same sender must not both read stale state. Welcome tracking is
// independent of session lifecycle and survives eviction.
type Manager interface {
	GetState(sender string) State
	SetState(sender string, st State)
	Draft(sender string) (*Draft, bool)
	SetDraft(sender string, d *Draft)
	ClearDraft(sender string)

	// Reset returns the sender to the initial state and discards any draft.
	Reset(sender string)

	// MarkWelcomed records the sender as greeted and reports whether this
	// was the first contact.
	MarkWelcomed(sender string) bool

	// Lock acquires the per-sender mutex and returns its unlock func.
	Lock(sender string) func()
}
