package service

import (
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/dukerupert/basket/internal/database"
	"github.com/dukerupert/basket/internal/model"
	"github.com/dukerupert/basket/internal/store"
)

type fixture struct {
	m        *store.Manager
	lists    *ListService
	sessions *SessionService
	users    *UserService
}

// tickingClock advances one millisecond per reading so every write gets a
// distinct timestamp.
func tickingClock() store.Clock {
	var mu sync.Mutex
	now := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Millisecond)
		return now
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	m := store.NewManager(db, tickingClock())
	users := NewUserService(m, testLogger())
	users.cost = bcrypt.MinCost
	return &fixture{
		m:        m,
		lists:    NewListService(m, testLogger(), Options{}),
		sessions: NewSessionService(m, testLogger(), Options{}),
		users:    users,
	}
}

func (f *fixture) createUser(t *testing.T, username string) *model.User {
	t.Helper()
	u, err := f.users.CreateUser(t.Context(), model.CreateUserParams{
		Username: username,
		Email:    username + "@example.com",
		Password: "correct-horse",
	})
	require.NoError(t, err)
	return u
}

func (f *fixture) createList(t *testing.T, name, userID string) *model.ShoppingList {
	t.Helper()
	l, err := f.lists.CreateList(t.Context(), model.CreateListParams{Name: name}, userID)
	require.NoError(t, err)
	return l
}

func (f *fixture) addItem(t *testing.T, listID, name string, quantity int, unit, userID string) *model.ListItem {
	t.Helper()
	item, err := f.lists.AddItemToList(t.Context(), model.AddItemParams{
		ListID:   listID,
		Name:     name,
		Quantity: quantity,
		Unit:     unit,
	}, userID)
	require.NoError(t, err)
	return item
}

func (f *fixture) purchase(t *testing.T, itemID, userID string) {
	t.Helper()
	purchased := true
	_, err := f.lists.UpdateListItem(t.Context(), model.UpdateItemParams{ID: itemID, IsPurchased: &purchased}, userID)
	require.NoError(t, err)
}

func ptr[T any](v T) *T { return &v }
