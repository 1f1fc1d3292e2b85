// Package engine implements the per-sender conversation state machine:
// it interprets free-text replies as menu selections, walks the
// add-expense flow (category, amount, notes) and answers totals queries.
package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fieldops/spendbot/core/logger"
	"github.com/fieldops/spendbot/internal/ledger"
	"github.com/fieldops/spendbot/internal/session"
	"log/slog"
)

// Engine maps (sender, inbound text) to a reply, mutating the sender's
// session and appending to the ledger as a side effect.
type Engine struct {
	store    ledger.Store
	sessions session.Manager
	now      func() time.Time
}

// New builds an Engine on top of a ledger store and a session manager.
func New(store ledger.Store, sessions session.Manager) *Engine {
	return &Engine{
		store:    store,
		sessions: sessions,
		now:      time.Now,
	}
}

// Handle processes one inbound message and returns the reply text.
// Handling is serialized per sender; messages from different senders do
// not block each other.
func (e *Engine) Handle(ctx context.Context, sender, text string) (string, error) {
	start := time.Now()
	unlock := e.sessions.Lock(sender)
	defer unlock()

	input := strings.TrimSpace(text)
	state := e.sessions.GetState(sender)

	reply, next, err := e.transition(ctx, sender, state, input)
	if err != nil {
		return "", err
	}
	e.sessions.SetState(sender, next)

	if e.sessions.MarkWelcomed(sender) {
		reply = msgWelcomeBanner + "\n" + reply
	}

	messagesHandled.WithLabelValues(string(state)).Inc()
	if logger.ShouldSampleDebug() {
		logger.Debug(ctx, "engine", "message.handled",
			slog.String("status", "ok"),
			slog.String("state", string(state)),
			slog.String("next_state", string(next)),
			slog.String("payload", logger.SanitizeLimit(input, 256)),
			slog.Duration("duration", logger.Took(start)),
		)
	}
	return reply, nil
}

// transition applies the per-state table. The exit shortcut is evaluated
// first, whatever the current state.
func (e *Engine) transition(ctx context.Context, sender string, state session.State, input string) (string, session.State, error) {
	if low := strings.ToLower(input); low == "5" || low == "exit" {
		e.sessions.Reset(sender)
		return msgGoodbye, session.StateMainMenu, nil
	}

	switch state {
	case session.StateMainMenu:
		return e.handleMainMenu(ctx, sender, input)
	case session.StateAwaitCategory:
		return e.handleAwaitCategory(sender, input)
	case session.StateAwaitAmount:
		return e.handleAwaitAmount(sender, input)
	case session.StateAwaitNotes:
		return e.handleAwaitNotes(ctx, sender, input)
	case session.StateNextAction:
		return e.handleNextAction(ctx, sender, input)
	default:
		// Unknown or corrupted state falls back to the main menu.
		logger.Warn(ctx, "engine", "state.unknown",
			slog.String("state", string(state)),
		)
		e.sessions.Reset(sender)
		return msgMainMenu, session.StateMainMenu, nil
	}
}

func (e *Engine) handleMainMenu(ctx context.Context, sender, input string) (string, session.State, error) {
	switch input {
	case "1":
		return categoryMenuText, session.StateAwaitCategory, nil
	case "2":
		reply, err := e.totalReply(ctx, sender, 1, msgTodayTotal)
		return reply, session.StateMainMenu, err
	case "3":
		reply, err := e.totalReply(ctx, sender, 7, msgWeekTotal)
		return reply, session.StateMainMenu, err
	case "4":
		reply, err := e.totalReply(ctx, sender, 0, msgAllTimeTotal)
		return reply, session.StateMainMenu, err
	default:
		return msgMainMenu, session.StateMainMenu, nil
	}
}

func (e *Engine) handleAwaitCategory(sender, input string) (string, session.State, error) {
	label, ok := lookupCategory(input)
	if !ok {
		return msgInvalidCategory + categoryMenuText, session.StateAwaitCategory, nil
	}
	e.sessions.SetDraft(sender, &session.Draft{Category: label})
	return fmt.Sprintf(msgAskAmount, label), session.StateAwaitAmount, nil
}

func (e *Engine) handleAwaitAmount(sender, input string) (string, session.State, error) {
	draft, ok := e.sessions.Draft(sender)
	if !ok {
		// Draft lost (e.g. evicted mid-flow); start over.
		e.sessions.Reset(sender)
		return msgMainMenu, session.StateMainMenu, nil
	}

	amount, err := decimal.NewFromString(input)
	if err != nil {
		return msgInvalidAmount, session.StateAwaitAmount, nil
	}
	draft.Amount = amount
	draft.HasAmount = true
	e.sessions.SetDraft(sender, draft)
	return msgAskNotes, session.StateAwaitNotes, nil
}

func (e *Engine) handleAwaitNotes(ctx context.Context, sender, input string) (string, session.State, error) {
	draft, ok := e.sessions.Draft(sender)
	if !ok || !draft.HasAmount {
		e.sessions.Reset(sender)
		return msgMainMenu, session.StateMainMenu, nil
	}

	notes := input
	if notes == "-" {
		notes = ""
	}

	row := ledger.Row{
		Timestamp: e.now().Format(ledger.TimeLayout),
		Sender:    sender,
		Category:  draft.Category,
		Amount:    draft.Amount.String(),
		Notes:     notes,
	}
	// The single append of the flow; on failure the draft is kept so the
	// sender can retry by resending the notes.
	if err := e.store.Append(ctx, row); err != nil {
		return "", session.StateAwaitNotes, err
	}
	e.sessions.ClearDraft(sender)
	expensesCreated.Inc()

	logger.Info(ctx, "engine", "expense.saved",
		slog.String("status", "ok"),
		slog.String("category", draft.Category),
		slog.String("amount", draft.Amount.String()),
	)

	reply := fmt.Sprintf(msgExpenseSaved, draft.Amount.String(), draft.Category) +
		"\n\n" + msgNextActionMenu
	return reply, session.StateNextAction, nil
}

func (e *Engine) handleNextAction(ctx context.Context, sender, input string) (string, session.State, error) {
	switch input {
	case "1":
		return categoryMenuText, session.StateAwaitCategory, nil
	case "2":
		reply, err := e.totalReply(ctx, sender, 1, msgTodayTotal)
		return reply, session.StateMainMenu, err
	case "3":
		return msgMainMenu, session.StateMainMenu, nil
	default:
		return msgInvalidChoice + "\n\n" + msgNextActionMenu, session.StateNextAction, nil
	}
}

func (e *Engine) totalReply(ctx context.Context, sender string, days int, format string) (string, error) {
	total, err := e.Total(ctx, sender, days)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(format, total.String()) + "\n\n" + msgMainMenu, nil
}
