package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/basket/internal/model"
)

func TestSessionService_CreateSessionLocksLists(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()
	a := f.createList(t, "A", "alice")
	b := f.createList(t, "B", "alice")

	sess, err := f.sessions.CreateSession(ctx, "alice", []string{a.ID, b.ID, a.ID})
	require.NoError(t, err)
	assert.Equal(t, model.SessionActive, sess.Session.Status)
	assert.Equal(t, []string{a.ID, b.ID}, sess.ListIDs)

	for _, id := range []string{a.ID, b.ID} {
		l, err := f.lists.GetList(ctx, id)
		require.NoError(t, err)
		assert.True(t, l.IsLocked, "list %s should be locked", id)
	}

	active, err := f.sessions.GetActiveSession(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, sess.Session.ID, active.Session.ID)
	assert.Equal(t, []string{a.ID, b.ID}, active.ListIDs)
}

func TestSessionService_CreateSessionValidation(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()
	a := f.createList(t, "A", "alice")

	_, err := f.sessions.CreateSession(ctx, "alice", nil)
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.sessions.CreateSession(ctx, "", []string{a.ID})
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.sessions.CreateSession(ctx, "alice", []string{a.ID, "missing"})
	require.ErrorIs(t, err, ErrNotFound)

	// Nothing was written for the failed attempt.
	l, err := f.lists.GetList(ctx, a.ID)
	require.NoError(t, err)
	assert.False(t, l.IsLocked)
	_, err = f.sessions.GetActiveSession(ctx, "alice")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSessionService_CreateSessionRejectsLockedList(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()
	shared := f.createList(t, "Shared", "bob")
	mine := f.createList(t, "Mine", "alice")

	_, err := f.sessions.CreateSession(ctx, "bob", []string{shared.ID})
	require.NoError(t, err)

	_, err = f.sessions.CreateSession(ctx, "alice", []string{mine.ID, shared.ID})
	require.ErrorIs(t, err, ErrAlreadyLocked)

	l, err := f.lists.GetList(ctx, mine.ID)
	require.NoError(t, err)
	assert.False(t, l.IsLocked)
}

func TestSessionService_OneActiveSessionPerUser(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()
	a := f.createList(t, "A", "alice")
	b := f.createList(t, "B", "alice")

	first, err := f.sessions.CreateSession(ctx, "alice", []string{a.ID})
	require.NoError(t, err)

	// The list held by the first session is released before validation.
	second, err := f.sessions.CreateSession(ctx, "alice", []string{a.ID, b.ID})
	require.NoError(t, err)

	history, err := f.sessions.GetSessionHistory(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, history, 2)

	var active int
	for _, s := range history {
		if s.Status == model.SessionActive {
			active++
			assert.Equal(t, second.Session.ID, s.ID)
		}
	}
	assert.Equal(t, 1, active)

	old, err := f.sessions.GetSession(ctx, first.Session.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SessionCancelled, old.Session.Status)
	assert.NotNil(t, old.Session.EndedAt)
}

func TestSessionService_FailedCreateKeepsPreviousSession(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()
	a := f.createList(t, "A", "alice")
	b := f.createList(t, "B", "alice")

	first, err := f.sessions.CreateSession(ctx, "alice", []string{a.ID})
	require.NoError(t, err)

	// The cancel of the running session shares a transaction with the
	// validation that follows it, so a rejected request leaves it running.
	_, err = f.sessions.CreateSession(ctx, "alice", []string{b.ID, "missing"})
	require.ErrorIs(t, err, ErrNotFound)

	active, err := f.sessions.GetActiveSession(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, first.Session.ID, active.Session.ID)
	assert.Equal(t, model.SessionActive, active.Session.Status)
	assert.Equal(t, []string{a.ID}, active.ListIDs)

	held, err := f.lists.GetList(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, held.IsLocked)
	untouched, err := f.lists.GetList(ctx, b.ID)
	require.NoError(t, err)
	assert.False(t, untouched.IsLocked)

	history, err := f.sessions.GetSessionHistory(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestSessionService_ConsolidationMergesCaseInsensitive(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()
	a := f.createList(t, "A", "alice")
	b := f.createList(t, "B", "alice")
	milkA := f.addItem(t, a.ID, "Milk", 1, "liter", "alice")
	milkB := f.addItem(t, b.ID, "milk", 2, "Liter", "alice")

	sess, err := f.sessions.CreateSession(ctx, "alice", []string{a.ID, b.ID})
	require.NoError(t, err)

	items, err := f.sessions.GetConsolidatedItems(ctx, sess.Session.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)

	milk := items[0]
	assert.Equal(t, "milk_liter", milk.Key)
	assert.Equal(t, "Milk", milk.Name)
	assert.Equal(t, "liter", milk.Unit)
	assert.Equal(t, 3, milk.Quantity)
	assert.False(t, milk.IsPurchased)
	assert.Equal(t, []model.ItemSource{
		{ListID: a.ID, ItemID: milkA.ID, Quantity: 1},
		{ListID: b.ID, ItemID: milkB.ID, Quantity: 2},
	}, milk.Sources)
}

func TestSessionService_ConsolidationOrder(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()
	bobs := f.createList(t, "Community", "bob")
	alices := f.createList(t, "Mine", "alice")

	f.addItem(t, bobs.ID, "Apples", 4, "pcs", "bob")
	f.addItem(t, bobs.ID, "Bread", 1, "loaf", "bob")
	f.addItem(t, alices.ID, "Coffee", 1, "bag", "alice")
	bread := f.addItem(t, alices.ID, "bread", 2, "LOAF", "alice")
	f.purchase(t, bread.ID, "alice")

	sess, err := f.sessions.CreateSession(ctx, "alice", []string{bobs.ID, alices.ID})
	require.NoError(t, err)

	items, err := f.sessions.GetConsolidatedItems(ctx, sess.Session.ID)
	require.NoError(t, err)
	require.Len(t, items, 3)

	// Alice's own list is walked first even though it was passed second.
	assert.Equal(t, "Coffee", items[0].Name)
	assert.Equal(t, "bread", items[1].Name)
	assert.Equal(t, "LOAF", items[1].Unit)
	assert.Equal(t, 3, items[1].Quantity)
	assert.True(t, items[1].IsPurchased)
	assert.Equal(t, "Apples", items[2].Name)
	for i, item := range items {
		assert.Equal(t, i, item.AppearanceOrder)
	}

	again, err := f.sessions.GetConsolidatedItems(ctx, sess.Session.ID)
	require.NoError(t, err)
	assert.Equal(t, items, again)
}

func TestSessionService_GetItemsBySourceList(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()
	a := f.createList(t, "A", "alice")
	b := f.createList(t, "B", "alice")
	milk := f.addItem(t, a.ID, "Milk", 1, "liter", "alice")
	f.addItem(t, a.ID, "Bread", 1, "loaf", "alice")
	f.addItem(t, b.ID, "Jam", 1, "jar", "alice")

	sess, err := f.sessions.CreateSession(ctx, "alice", []string{a.ID, b.ID})
	require.NoError(t, err)
	f.purchase(t, milk.ID, "alice")

	groups, err := f.sessions.GetItemsBySourceList(ctx, sess.Session.ID)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, a.ID, groups[0].List.ID)
	require.Len(t, groups[0].Items, 1)
	assert.Equal(t, milk.ID, groups[0].Items[0].ID)

	_, err = f.sessions.GetItemsBySourceList(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSessionService_EndSessionMovesUnpurchased(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()
	l := f.createList(t, "Weekly", "alice")
	milk := f.addItem(t, l.ID, "Milk", 1, "liter", "alice")
	bread := f.addItem(t, l.ID, "Bread", 2, "loaf", "alice")

	sess, err := f.sessions.CreateSession(ctx, "alice", []string{l.ID})
	require.NoError(t, err)
	f.purchase(t, milk.ID, "alice")

	res, err := f.sessions.EndSession(ctx, sess.Session.ID, model.EndSessionParams{
		Status:                      model.SessionCompleted,
		CreateNewListForUnpurchased: true,
		NewListName:                 "Leftover",
	})
	require.NoError(t, err)
	assert.Equal(t, model.SessionCompleted, res.Session.Status)
	assert.NotNil(t, res.Session.EndedAt)

	require.NotNil(t, res.NewList)
	assert.Equal(t, "Leftover", res.NewList.Name)
	assert.Equal(t, "alice", res.NewList.CreatedBy)
	assert.False(t, res.NewList.IsLocked)

	leftover, err := f.lists.GetListItems(ctx, res.NewList.ID)
	require.NoError(t, err)
	require.Len(t, leftover, 1)
	assert.Equal(t, "Bread", leftover[0].Name)
	assert.Equal(t, 2, leftover[0].Quantity)
	assert.Equal(t, "loaf", leftover[0].Unit)
	assert.False(t, leftover[0].IsPurchased)
	assert.NotEqual(t, bread.ID, leftover[0].ID)
	assert.Equal(t, DefaultSortOrderStep, leftover[0].SortOrder)

	_, err = f.lists.GetList(ctx, l.ID)
	require.ErrorIs(t, err, ErrNotFound)

	original, err := f.m.Items.FindByID(ctx, bread.ID)
	require.NoError(t, err)
	assert.NotNil(t, original.DeletedAt)

	owned, err := f.m.Lists.IsOwner(ctx, res.NewList.ID, "alice")
	require.NoError(t, err)
	assert.True(t, owned)
}

func TestSessionService_EndSessionUnlocksLists(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()
	done := f.createList(t, "Done", "alice")
	open := f.createList(t, "Open", "alice")
	milk := f.addItem(t, done.ID, "Milk", 1, "liter", "alice")
	f.addItem(t, open.ID, "Bread", 1, "loaf", "alice")

	sess, err := f.sessions.CreateSession(ctx, "alice", []string{done.ID, open.ID})
	require.NoError(t, err)
	f.purchase(t, milk.ID, "alice")

	res, err := f.sessions.EndSession(ctx, sess.Session.ID, model.EndSessionParams{
		Status:                      model.SessionCompleted,
		CreateNewListForUnpurchased: true,
	})
	require.NoError(t, err)
	assert.Equal(t, DefaultUnpurchasedListName, res.NewList.Name)

	// A list with nothing left to buy survives, unlocked.
	l, err := f.lists.GetList(ctx, done.ID)
	require.NoError(t, err)
	assert.False(t, l.IsLocked)

	_, err = f.lists.GetList(ctx, open.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSessionService_CancelKeepsItems(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()
	l := f.createList(t, "Weekly", "alice")
	f.addItem(t, l.ID, "Bread", 1, "loaf", "alice")

	sess, err := f.sessions.CreateSession(ctx, "alice", []string{l.ID})
	require.NoError(t, err)

	res, err := f.sessions.EndSession(ctx, sess.Session.ID, model.EndSessionParams{Status: model.SessionCancelled})
	require.NoError(t, err)
	assert.Equal(t, model.SessionCancelled, res.Session.Status)
	assert.Nil(t, res.NewList)

	got, err := f.lists.GetList(ctx, l.ID)
	require.NoError(t, err)
	assert.False(t, got.IsLocked)
	items, err := f.lists.GetListItems(ctx, l.ID)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestSessionService_EndSessionErrors(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()
	l := f.createList(t, "Weekly", "alice")

	_, err := f.sessions.EndSession(ctx, "missing", model.EndSessionParams{Status: model.SessionCompleted})
	require.ErrorIs(t, err, ErrNotFound)

	sess, err := f.sessions.CreateSession(ctx, "alice", []string{l.ID})
	require.NoError(t, err)

	_, err = f.sessions.EndSession(ctx, sess.Session.ID, model.EndSessionParams{Status: model.SessionActive})
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.sessions.EndSession(ctx, sess.Session.ID, model.EndSessionParams{Status: model.SessionCompleted})
	require.NoError(t, err)

	_, err = f.sessions.EndSession(ctx, sess.Session.ID, model.EndSessionParams{Status: model.SessionCancelled})
	require.ErrorIs(t, err, ErrNotActive)
}

func TestSessionService_AddAndRemoveList(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()
	a := f.createList(t, "A", "alice")
	b := f.createList(t, "B", "alice")

	sess, err := f.sessions.CreateSession(ctx, "alice", []string{a.ID})
	require.NoError(t, err)

	_, err = f.sessions.AddListToSession(ctx, sess.Session.ID, b.ID, "bob")
	require.ErrorIs(t, err, ErrForbidden)

	withB, err := f.sessions.AddListToSession(ctx, sess.Session.ID, b.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{a.ID, b.ID}, withB.ListIDs)

	_, err = f.sessions.AddListToSession(ctx, sess.Session.ID, b.ID, "alice")
	require.ErrorIs(t, err, ErrAlreadyLocked)

	got, err := f.lists.GetList(ctx, b.ID)
	require.NoError(t, err)
	assert.True(t, got.IsLocked)

	withoutA, err := f.sessions.RemoveListFromSession(ctx, sess.Session.ID, a.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{b.ID}, withoutA.ListIDs)

	got, err = f.lists.GetList(ctx, a.ID)
	require.NoError(t, err)
	assert.False(t, got.IsLocked)

	_, err = f.sessions.RemoveListFromSession(ctx, sess.Session.ID, a.ID, "alice")
	require.ErrorIs(t, err, ErrNotFound)
}
