package engine

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fieldops/spendbot/internal/ledger"
	"github.com/fieldops/spendbot/internal/session"
)

func newTestEngine(store ledger.Store) (*Engine, session.Manager) {
	sessions := session.NewMemoryManager()
	e := New(store, sessions)
	return e, sessions
}

func handle(t *testing.T, e *Engine, sender, text string) string {
	t.Helper()
	reply, err := e.Handle(context.Background(), sender, text)
	if err != nil {
		t.Fatalf("Handle(%q, %q): %v", sender, text, err)
	}
	return reply
}

func TestAddExpenseScenario(t *testing.T) {
	store := ledger.NewMemoryStore()
	e, sessions := newTestEngine(store)
	sender := "whatsapp:+15550001111"

	reply := handle(t, e, sender, "1")
	if !strings.Contains(reply, msgWelcomeBanner) {
		t.Fatalf("first reply should carry the welcome banner: %q", reply)
	}
	if !strings.Contains(reply, "Choose category:") {
		t.Fatalf("expected category menu, got %q", reply)
	}

	reply = handle(t, e, sender, "2")
	if !strings.Contains(reply, "Meals & Catering") {
		t.Fatalf("expected amount prompt for Meals & Catering, got %q", reply)
	}

	reply = handle(t, e, sender, "15.50")
	if !strings.Contains(reply, "note or comment") {
		t.Fatalf("expected notes prompt, got %q", reply)
	}

	reply = handle(t, e, sender, "-")
	if !strings.Contains(reply, "Expense saved.") {
		t.Fatalf("expected confirmation, got %q", reply)
	}
	if !strings.Contains(reply, msgNextActionMenu) {
		t.Fatalf("expected next-action menu, got %q", reply)
	}

	rows, err := store.ReadAll(context.Background())
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected exactly one appended row, got %d", len(rows))
	}
	row := rows[0]
	if row.Sender != sender {
		t.Errorf("row.Sender = %q", row.Sender)
	}
	if row.Category != "Meals & Catering" {
		t.Errorf("row.Category = %q", row.Category)
	}
	if !decimal.RequireFromString(row.Amount).Equal(decimal.RequireFromString("15.50")) {
		t.Errorf("row.Amount = %q", row.Amount)
	}
	if row.Notes != "" {
		t.Errorf("notes should be empty for %q input, got %q", "-", row.Notes)
	}
	if _, err := time.Parse(ledger.TimeLayout, row.Timestamp); err != nil {
		t.Errorf("row.Timestamp %q does not match layout: %v", row.Timestamp, err)
	}

	reply = handle(t, e, sender, "3")
	if strings.Contains(reply, msgWelcomeBanner) {
		t.Fatalf("welcome banner must not repeat: %q", reply)
	}
	if !strings.Contains(reply, "1. Add Expense") {
		t.Fatalf("expected main menu, got %q", reply)
	}
	if st := sessions.GetState(sender); st != session.StateMainMenu {
		t.Fatalf("state = %s, want %s", st, session.StateMainMenu)
	}
}

func TestWelcomeBannerShownExactlyOnce(t *testing.T) {
	e, _ := newTestEngine(ledger.NewMemoryStore())
	sender := "whatsapp:+15550002222"

	first := handle(t, e, sender, "hello")
	if !strings.Contains(first, msgWelcomeBanner) {
		t.Fatalf("first reply missing banner: %q", first)
	}
	for _, text := range []string{"hi", "1", "9", "exit", "what"} {
		if reply := handle(t, e, sender, text); strings.Contains(reply, msgWelcomeBanner) {
			t.Fatalf("banner repeated on %q: %q", text, reply)
		}
	}
}

func TestExitShortcutFromAnyState(t *testing.T) {
	for _, input := range []string{"5", "exit", "EXIT", " Exit "} {
		store := ledger.NewMemoryStore()
		e, sessions := newTestEngine(store)
		sender := "whatsapp:+15550003333"

		// Walk into the middle of the add-expense flow.
		handle(t, e, sender, "1")
		handle(t, e, sender, "8")
		handle(t, e, sender, "42")

		reply := handle(t, e, sender, input)
		if !strings.Contains(reply, msgGoodbye) {
			t.Fatalf("input %q: expected goodbye, got %q", input, reply)
		}
		if st := sessions.GetState(sender); st != session.StateMainMenu {
			t.Fatalf("input %q: state = %s, want %s", input, st, session.StateMainMenu)
		}
		if _, ok := sessions.Draft(sender); ok {
			t.Fatalf("input %q: draft must be discarded on exit", input)
		}
		rows, _ := store.ReadAll(context.Background())
		if len(rows) != 0 {
			t.Fatalf("input %q: exit must not append, got %d rows", input, len(rows))
		}
	}
}

func TestInvalidAmountLeavesStateAndDraftUntouched(t *testing.T) {
	store := ledger.NewMemoryStore()
	e, sessions := newTestEngine(store)
	sender := "whatsapp:+15550004444"

	handle(t, e, sender, "1")
	handle(t, e, sender, "9")

	reply := handle(t, e, sender, "abc")
	if !strings.Contains(reply, msgInvalidAmount) {
		t.Fatalf("expected invalid amount prompt, got %q", reply)
	}
	if st := sessions.GetState(sender); st != session.StateAwaitAmount {
		t.Fatalf("state = %s, want %s", st, session.StateAwaitAmount)
	}
	draft, ok := sessions.Draft(sender)
	if !ok || draft.Category != "Other" || draft.HasAmount {
		t.Fatalf("draft mutated: %+v ok=%v", draft, ok)
	}
	rows, _ := store.ReadAll(context.Background())
	if len(rows) != 0 {
		t.Fatalf("invalid amount must not append, got %d rows", len(rows))
	}
}

func TestInvalidCategoryRepromptsMenu(t *testing.T) {
	e, sessions := newTestEngine(ledger.NewMemoryStore())
	sender := "whatsapp:+15550005555"

	handle(t, e, sender, "1")
	reply := handle(t, e, sender, "0")
	if !strings.Contains(reply, "Invalid choice.") || !strings.Contains(reply, "Choose category:") {
		t.Fatalf("expected category re-prompt, got %q", reply)
	}
	if st := sessions.GetState(sender); st != session.StateAwaitCategory {
		t.Fatalf("state = %s, want %s", st, session.StateAwaitCategory)
	}
}

func TestNotesTextPersistedVerbatim(t *testing.T) {
	store := ledger.NewMemoryStore()
	e, _ := newTestEngine(store)
	sender := "whatsapp:+15550006666"

	handle(t, e, sender, "1")
	handle(t, e, sender, "3")
	handle(t, e, sender, "120")
	handle(t, e, sender, "airport taxi")

	rows, _ := store.ReadAll(context.Background())
	if len(rows) != 1 {
		t.Fatalf("expected one row, got %d", len(rows))
	}
	if rows[0].Notes != "airport taxi" {
		t.Fatalf("notes = %q", rows[0].Notes)
	}
	if rows[0].Category != "Transport (Flights, Car Rental, Local Taxis)" {
		t.Fatalf("category = %q", rows[0].Category)
	}
}

func TestNextActionBranches(t *testing.T) {
	store := ledger.NewMemoryStore()
	e, sessions := newTestEngine(store)
	sender := "whatsapp:+15550007777"

	walkToNextAction := func() {
		handle(t, e, sender, "1")
		handle(t, e, sender, "8")
		handle(t, e, sender, "10")
		handle(t, e, sender, "-")
	}

	walkToNextAction()
	reply := handle(t, e, sender, "bogus")
	if !strings.Contains(reply, msgInvalidChoice) || !strings.Contains(reply, msgNextActionMenu) {
		t.Fatalf("expected invalid choice + next-action menu, got %q", reply)
	}
	if st := sessions.GetState(sender); st != session.StateNextAction {
		t.Fatalf("state = %s, want %s", st, session.StateNextAction)
	}

	reply = handle(t, e, sender, "2")
	if !strings.Contains(reply, "Today's total spending:") || !strings.Contains(reply, "1. Add Expense") {
		t.Fatalf("expected today total + main menu, got %q", reply)
	}

	walkToNextAction()
	reply = handle(t, e, sender, "1")
	if !strings.Contains(reply, "Choose category:") {
		t.Fatalf("expected category menu, got %q", reply)
	}
	if st := sessions.GetState(sender); st != session.StateAwaitCategory {
		t.Fatalf("state = %s, want %s", st, session.StateAwaitCategory)
	}
}

func TestUnknownStateResetsToMainMenu(t *testing.T) {
	e, sessions := newTestEngine(ledger.NewMemoryStore())
	sender := "whatsapp:+15550008888"

	sessions.SetState(sender, session.State("CORRUPTED"))
	reply := handle(t, e, sender, "anything")
	if !strings.Contains(reply, "1. Add Expense") {
		t.Fatalf("expected main menu, got %q", reply)
	}
	if st := sessions.GetState(sender); st != session.StateMainMenu {
		t.Fatalf("state = %s, want %s", st, session.StateMainMenu)
	}
}

type failingStore struct {
	ledger.Store
	fail bool
}

func (f *failingStore) Append(ctx context.Context, row ledger.Row) error {
	if f.fail {
		return errors.New("backend down")
	}
	return f.Store.Append(ctx, row)
}

func TestAppendFailurePropagatesAndKeepsDraft(t *testing.T) {
	store := &failingStore{Store: ledger.NewMemoryStore(), fail: true}
	e, sessions := newTestEngine(store)
	sender := "whatsapp:+15550009999"

	handle(t, e, sender, "1")
	handle(t, e, sender, "4")
	handle(t, e, sender, "300")

	if _, err := e.Handle(context.Background(), sender, "deposit"); err == nil {
		t.Fatal("expected append error to propagate")
	}
	if st := sessions.GetState(sender); st != session.StateAwaitNotes {
		t.Fatalf("state = %s, want %s", st, session.StateAwaitNotes)
	}
	if _, ok := sessions.Draft(sender); !ok {
		t.Fatal("draft must survive a failed append")
	}

	// Backend recovers; resending the notes completes the flow once.
	store.fail = false
	reply := handle(t, e, sender, "deposit")
	if !strings.Contains(reply, "Expense saved.") {
		t.Fatalf("expected confirmation, got %q", reply)
	}
	rows, _ := store.ReadAll(context.Background())
	if len(rows) != 1 {
		t.Fatalf("expected exactly one row after retry, got %d", len(rows))
	}
}
