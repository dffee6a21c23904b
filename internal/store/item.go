package store

import (
	"context"
	"fmt"

	"github.com/dukerupert/basket/internal/model"
)

var itemMapping = mapping[model.ListItem]{
	table:   "list_items",
	columns: []string{"list_id", "name", "quantity", "unit", "is_purchased", "purchased_by", "purchased_at", "sort_order"},
	orderBy: "sort_order ASC, created_at ASC, rowid ASC",
	base:    func(i *model.ListItem) *model.Base { return &i.Base },
	fields: func(i *model.ListItem) []any {
		return []any{&i.ListID, &i.Name, &i.Quantity, &i.Unit, &i.IsPurchased, &i.PurchasedBy, nullTimeText{&i.PurchasedAt}, &i.SortOrder}
	},
	values: func(i *model.ListItem) []any {
		return []any{i.ListID, i.Name, int64(i.Quantity), i.Unit, i.IsPurchased, nullString(i.PurchasedBy), formatNullTime(i.PurchasedAt), int64(i.SortOrder)}
	},
}

type ItemStore struct {
	*Repository[model.ListItem]
}

func NewItemStore(db DBTX, clk Clock) *ItemStore {
	return &ItemStore{Repository: newRepository(db, itemMapping, clk)}
}

// FindByList returns the active items of a list in sort order.
func (s *ItemStore) FindByList(ctx context.Context, listID string) ([]model.ListItem, error) {
	return s.findActiveWhere(ctx, "list_id = ?", "", listID)
}

// FindByLists returns the active items of every given list in one query.
func (s *ItemStore) FindByLists(ctx context.Context, listIDs []string) ([]model.ListItem, error) {
	return s.findActiveIn(ctx, "list_id", listIDs, "")
}

// MaxSortOrder returns the highest sort order among the list's active items,
// or 0 for an empty list.
func (s *ItemStore) MaxSortOrder(ctx context.Context, listID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(sort_order), 0) FROM list_items WHERE list_id = ? AND deleted_at IS NULL`,
		listID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("max sort order: %w", err)
	}
	return n, nil
}

func (s *ItemStore) MarkAsPurchased(ctx context.Context, id, userID string) (*model.ListItem, error) {
	now := s.now()
	return s.Update(ctx, id, func(i *model.ListItem) {
		i.IsPurchased = true
		i.PurchasedBy = &userID
		i.PurchasedAt = &now
	})
}

func (s *ItemStore) MarkAsUnpurchased(ctx context.Context, id string) (*model.ListItem, error) {
	return s.Update(ctx, id, func(i *model.ListItem) {
		i.IsPurchased = false
		i.PurchasedBy = nil
		i.PurchasedAt = nil
	})
}

// MoveToList reassigns the item to another list in place.
func (s *ItemStore) MoveToList(ctx context.Context, id, newListID string) (*model.ListItem, error) {
	return s.Update(ctx, id, func(i *model.ListItem) {
		i.ListID = newListID
	})
}

func (s *ItemStore) SetSortOrder(ctx context.Context, id string, sortOrder int) (*model.ListItem, error) {
	return s.Update(ctx, id, func(i *model.ListItem) {
		i.SortOrder = sortOrder
	})
}
