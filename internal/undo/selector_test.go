package undo

import (
	"context"
	"database/sql"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/untoldecay/Branchless/internal/eventlog"
	"github.com/untoldecay/Branchless/internal/git/gittest"
	"github.com/untoldecay/Branchless/internal/mergebase"
	"github.com/untoldecay/Branchless/internal/smartlog"
)

// setupSelector builds a selector over a real repository with one
// commit made on top of master, recorded as one transaction.
func setupSelector(t *testing.T) (*Selector, string, string) {
	t.Helper()
	r := gittest.NewRepo(t)
	m1 := r.Head()
	r.Checkout(m1)
	f1 := r.Commit("feature work")
	// Leave master pointing at the first commit.
	r.Git("update-ref", "refs/heads/master", m1)

	events := []eventlog.Event{
		eventlog.RefUpdateEvent{Time: 10, TxID: 1, RefName: "HEAD", OldRef: strPtr(m1), NewRef: strPtr(f1)},
		eventlog.CommitEvent{Time: 10, TxID: 1, CommitOID: eventlog.OID(f1)},
	}
	replayer := eventlog.NewReplayer(events, "refs/heads/master")

	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "db.sqlite3"))
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	mbCache, err := mergebase.NewCache(context.Background(), db)
	if err != nil {
		t.Fatalf("creating cache: %v", err)
	}

	return &Selector{
		Ctx:      context.Background(),
		Repo:     r.Repo,
		MBCache:  mbCache,
		Replayer: replayer,
		Glyphs:   smartlog.ASCIIGlyphs(),
		Now:      time.Unix(1_700_000_000, 0),
	}, m1, f1
}

func step(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func TestSelectorInitShowsPresent(t *testing.T) {
	sel, _, _ := setupSelector(t)
	m := NewModel(sel)
	m, _ = step(t, m, MsgInit)

	if m.Cursor() != sel.Replayer.MakeDefaultCursor() {
		t.Errorf("cursor after init = %v, want present", m.Cursor())
	}
	if !strings.Contains(m.Info(), "Repo after transaction 1 (event 2)") {
		t.Errorf("info panel = %q", m.Info())
	}
	if !strings.Contains(m.Info(), "Commit ") {
		t.Errorf("info panel should describe the transaction events: %q", m.Info())
	}
}

func TestSelectorPreviousAndNextMoveByTransaction(t *testing.T) {
	sel, _, _ := setupSelector(t)
	m := NewModel(sel)
	m, _ = step(t, m, MsgInit)

	m, _ = step(t, m, MsgPrevious)
	if m.Cursor().EventID() != 0 {
		t.Errorf("cursor after previous = %d, want 0", m.Cursor().EventID())
	}
	if m.Info() != "There are no previous available events." {
		t.Errorf("info panel at log start = %q", m.Info())
	}

	m, _ = step(t, m, MsgNext)
	if m.Cursor().EventID() != 2 {
		t.Errorf("cursor after next = %d, want 2", m.Cursor().EventID())
	}
}

func TestSelectorKeyTranslation(t *testing.T) {
	sel, _, _ := setupSelector(t)
	m := NewModel(sel)
	m, _ = step(t, m, MsgInit)

	m, _ = step(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'p'}})
	if m.Cursor().EventID() != 0 {
		t.Errorf("'p' should move to the previous transaction, cursor = %d", m.Cursor().EventID())
	}
	m, _ = step(t, m, tea.KeyMsg{Type: tea.KeyRight})
	if m.Cursor().EventID() != 2 {
		t.Errorf("right arrow should advance, cursor = %d", m.Cursor().EventID())
	}
}

func TestSelectorAcceptReturnsCursor(t *testing.T) {
	sel, _, _ := setupSelector(t)
	m := NewModel(sel)
	m, _ = step(t, m, MsgInit)
	m, _ = step(t, m, MsgPrevious)

	m, cmd := step(t, m, MsgAccept)
	if !m.Accepted() {
		t.Fatal("accept should mark the selection")
	}
	if cmd == nil {
		t.Fatal("accept should quit the program")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Errorf("accept returned %T, want tea.QuitMsg", cmd())
	}
	if m.Cursor().EventID() != 0 {
		t.Errorf("accepted cursor = %d, want 0", m.Cursor().EventID())
	}
}

func TestSelectorQuitDoesNotAccept(t *testing.T) {
	sel, _, _ := setupSelector(t)
	m := NewModel(sel)
	m, _ = step(t, m, MsgInit)

	m, cmd := step(t, m, MsgQuit)
	if m.Accepted() {
		t.Error("quit must not accept a selection")
	}
	if cmd == nil {
		t.Fatal("quit should end the program")
	}
}

func TestSelectorGoToEvent(t *testing.T) {
	sel, _, _ := setupSelector(t)
	m := NewModel(sel)
	m, _ = step(t, m, MsgInit)

	m, _ = step(t, m, MsgGoToEvent)
	m, _ = step(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'0'}})
	m, _ = step(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.Cursor().EventID() != 0 {
		t.Errorf("go-to-event cursor = %d, want 0", m.Cursor().EventID())
	}

	// Invalid input reports an error and stays in the dialog.
	m, _ = step(t, m, MsgGoToEvent)
	m, _ = step(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.gotoErr == "" {
		t.Error("empty go-to input should be rejected")
	}
}

func TestSelectorRendersSmartlogEachStep(t *testing.T) {
	sel, m1, f1 := setupSelector(t)
	m := NewModel(sel)
	m, _ = step(t, m, MsgInit)

	view := m.View()
	if !strings.Contains(view, eventlog.OID(f1).Short()) {
		t.Errorf("present view should show the feature commit %s:\n%s", f1[:8], view)
	}

	m, _ = step(t, m, MsgPrevious)
	view = m.View()
	if strings.Contains(view, eventlog.OID(f1).Short()) {
		t.Errorf("past view should not show the not-yet-created commit:\n%s", view)
	}
	if !strings.Contains(view, eventlog.OID(m1).Short()) {
		t.Errorf("past view should still show the main branch tip:\n%s", view)
	}
}
