package store

import (
	"testing"
	"time"

	"github.com/dukerupert/basket/internal/database"
	"github.com/dukerupert/basket/internal/model"
)

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }

func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)}
}

func setupTestDB(t *testing.T) (*Manager, *testClock) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	clk := newTestClock()
	return NewManager(db, clk.Now), clk
}

func createTestList(t *testing.T, m *Manager, name, createdBy string) *model.ShoppingList {
	t.Helper()
	l, err := m.Lists.Save(t.Context(), &model.ShoppingList{Name: name, CreatedBy: createdBy})
	if err != nil {
		t.Fatalf("save list %q: %v", name, err)
	}
	return l
}

func createTestItem(t *testing.T, m *Manager, listID, name string, sortOrder int) *model.ListItem {
	t.Helper()
	item, err := m.Items.Save(t.Context(), &model.ListItem{
		ListID:    listID,
		Name:      name,
		Quantity:  1,
		Unit:      "pcs",
		SortOrder: sortOrder,
	})
	if err != nil {
		t.Fatalf("save item %q: %v", name, err)
	}
	return item
}
