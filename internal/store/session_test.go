package store

import (
	"errors"
	"testing"
	"time"

	"github.com/dukerupert/basket/internal/model"
)

func TestSessionStart(t *testing.T) {
	m, clk := setupTestDB(t)

	sess, err := m.Sessions.Start(t.Context(), "alice")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if sess.Status != model.SessionActive {
		t.Errorf("status = %q, want ACTIVE", sess.Status)
	}
	if !sess.StartedAt.Equal(clk.now) {
		t.Errorf("started_at = %v, want %v", sess.StartedAt, clk.now)
	}
	if sess.EndedAt != nil {
		t.Error("expected no ended_at")
	}

	active, err := m.Sessions.FindActiveByUser(t.Context(), "alice")
	if err != nil {
		t.Fatalf("find active: %v", err)
	}
	if active == nil || active.ID != sess.ID {
		t.Fatalf("active = %+v, want %q", active, sess.ID)
	}

	none, err := m.Sessions.FindActiveByUser(t.Context(), "bob")
	if err != nil {
		t.Fatalf("find active: %v", err)
	}
	if none != nil {
		t.Errorf("expected no active session for bob, got %+v", none)
	}
}

func TestSessionOneActivePerUser(t *testing.T) {
	m, _ := setupTestDB(t)

	if _, err := m.Sessions.Start(t.Context(), "alice"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := m.Sessions.Start(t.Context(), "alice"); err == nil {
		t.Fatal("expected unique index to reject a second active session")
	}
	if _, err := m.Sessions.Start(t.Context(), "bob"); err != nil {
		t.Fatalf("start for another user: %v", err)
	}
}

func TestSessionEnd(t *testing.T) {
	m, clk := setupTestDB(t)

	sess, _ := m.Sessions.Start(t.Context(), "alice")
	clk.Advance(30 * time.Minute)

	ended, err := m.Sessions.EndSession(t.Context(), sess.ID, model.SessionCompleted)
	if err != nil {
		t.Fatalf("end session: %v", err)
	}
	if ended.Status != model.SessionCompleted {
		t.Errorf("status = %q, want COMPLETED", ended.Status)
	}
	if ended.EndedAt == nil || !ended.EndedAt.Equal(clk.now) {
		t.Errorf("ended_at = %v, want %v", ended.EndedAt, clk.now)
	}

	active, _ := m.Sessions.FindActiveByUser(t.Context(), "alice")
	if active != nil {
		t.Error("expected no active session after end")
	}

	// A new session may start once the old one ended.
	if _, err := m.Sessions.Start(t.Context(), "alice"); err != nil {
		t.Fatalf("restart: %v", err)
	}

	history, err := m.Sessions.FindByUser(t.Context(), "alice")
	if err != nil {
		t.Fatalf("find by user: %v", err)
	}
	if len(history) != 2 || history[1].ID != sess.ID {
		t.Errorf("history = %+v, want newest first ending with %q", history, sess.ID)
	}

	if _, err := m.Sessions.EndSession(t.Context(), "missing", model.SessionCancelled); !errors.Is(err, ErrNotFound) {
		t.Errorf("end missing err = %v, want ErrNotFound", err)
	}
}

func TestSessionLists(t *testing.T) {
	m, clk := setupTestDB(t)
	ctx := t.Context()

	sess, _ := m.Sessions.Start(ctx, "alice")
	a := createTestList(t, m, "A", "alice")
	b := createTestList(t, m, "B", "alice")
	c := createTestList(t, m, "C", "alice")

	for _, l := range []*model.ShoppingList{b, a, c} {
		clk.Advance(time.Second)
		sl, err := m.Sessions.AddListToSession(ctx, sess.ID, l.ID)
		if err != nil {
			t.Fatalf("add list: %v", err)
		}
		if !sl.AddedAt.Equal(clk.now) {
			t.Errorf("added_at = %v, want %v", sl.AddedAt, clk.now)
		}
	}

	ids, err := m.Sessions.GetSessionLists(ctx, sess.ID)
	if err != nil {
		t.Fatalf("get session lists: %v", err)
	}
	want := []string{b.ID, a.ID, c.ID}
	if len(ids) != len(want) {
		t.Fatalf("ids = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("ids[%d] = %q, want %q", i, ids[i], want[i])
		}
	}

	if err := m.Sessions.RemoveListFromSession(ctx, sess.ID, a.ID); err != nil {
		t.Fatalf("remove list: %v", err)
	}
	if err := m.Sessions.RemoveListFromSession(ctx, sess.ID, a.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("remove again err = %v, want ErrNotFound", err)
	}

	withLists, err := m.Sessions.FindWithLists(ctx, sess.ID)
	if err != nil {
		t.Fatalf("find with lists: %v", err)
	}
	if withLists.Session.ID != sess.ID {
		t.Errorf("session id = %q, want %q", withLists.Session.ID, sess.ID)
	}
	if len(withLists.ListIDs) != 2 || withLists.ListIDs[0] != b.ID || withLists.ListIDs[1] != c.ID {
		t.Errorf("list ids = %v, want [%s %s]", withLists.ListIDs, b.ID, c.ID)
	}

	missing, err := m.Sessions.FindWithLists(ctx, "missing")
	if err != nil {
		t.Fatalf("find with lists: %v", err)
	}
	if missing != nil {
		t.Error("expected nil for missing session")
	}
}
