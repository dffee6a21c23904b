package store

import (
	"context"

	"github.com/dukerupert/basket/internal/model"
)

var listMapping = mapping[model.ShoppingList]{
	table:   "shopping_lists",
	columns: []string{"name", "description", "created_by", "community_id", "is_shared", "is_locked"},
	orderBy: "created_at ASC, rowid ASC",
	base:    func(l *model.ShoppingList) *model.Base { return &l.Base },
	fields: func(l *model.ShoppingList) []any {
		return []any{&l.Name, &l.Description, &l.CreatedBy, &l.CommunityID, &l.IsShared, &l.IsLocked}
	},
	values: func(l *model.ShoppingList) []any {
		return []any{l.Name, l.Description, l.CreatedBy, nullString(l.CommunityID), l.IsShared, l.IsLocked}
	},
}

var ownerMapping = mapping[model.ListOwner]{
	table:   "list_owners",
	columns: []string{"list_id", "user_id"},
	orderBy: "created_at ASC, rowid ASC",
	base:    func(o *model.ListOwner) *model.Base { return &o.Base },
	fields:  func(o *model.ListOwner) []any { return []any{&o.ListID, &o.UserID} },
	values:  func(o *model.ListOwner) []any { return []any{o.ListID, o.UserID} },
}

// ListStore persists shopping lists and the ListOwner rows that say who may
// manage them.
type ListStore struct {
	*Repository[model.ShoppingList]
	owners *Repository[model.ListOwner]
}

func NewListStore(db DBTX, clk Clock) *ListStore {
	return &ListStore{
		Repository: newRepository(db, listMapping, clk),
		owners:     newRepository(db, ownerMapping, clk),
	}
}

// FindByUser returns the active lists the user created.
func (s *ListStore) FindByUser(ctx context.Context, userID string) ([]model.ShoppingList, error) {
	return s.findActiveWhere(ctx, "created_by = ?", "", userID)
}

// FindByCommunity returns the active, shared lists of a community.
func (s *ListStore) FindByCommunity(ctx context.Context, communityID string) ([]model.ShoppingList, error) {
	return s.findActiveWhere(ctx, "community_id = ? AND is_shared = 1", "", communityID)
}

// FindSharedWithUser returns the active lists the user holds an active
// ownership row for.
func (s *ListStore) FindSharedWithUser(ctx context.Context, userID string) ([]model.ShoppingList, error) {
	owned, err := s.owners.findActiveWhere(ctx, "user_id = ?", "", userID)
	if err != nil {
		return nil, err
	}
	if len(owned) == 0 {
		return []model.ShoppingList{}, nil
	}
	ids := make([]string, len(owned))
	for i, o := range owned {
		ids[i] = o.ListID
	}
	return s.findActiveIn(ctx, "id", ids, "")
}

func (s *ListStore) LockList(ctx context.Context, id string) (*model.ShoppingList, error) {
	return s.setLocked(ctx, id, true)
}

func (s *ListStore) UnlockList(ctx context.Context, id string) (*model.ShoppingList, error) {
	return s.setLocked(ctx, id, false)
}

func (s *ListStore) setLocked(ctx context.Context, id string, locked bool) (*model.ShoppingList, error) {
	return s.Update(ctx, id, func(l *model.ShoppingList) {
		l.IsLocked = locked
	})
}

// --- Owner methods ---

func (s *ListStore) AddOwner(ctx context.Context, listID, userID string) (*model.ListOwner, error) {
	return s.owners.Save(ctx, &model.ListOwner{ListID: listID, UserID: userID})
}

// RemoveOwner soft-deletes the user's active ownership row.
func (s *ListStore) RemoveOwner(ctx context.Context, listID, userID string) error {
	o, err := s.owners.findOneActive(ctx, "list_id = ? AND user_id = ?", listID, userID)
	if err != nil {
		return err
	}
	if o == nil {
		return ErrNotFound
	}
	return s.owners.SoftDelete(ctx, o.ID)
}

func (s *ListStore) IsOwner(ctx context.Context, listID, userID string) (bool, error) {
	o, err := s.owners.findOneActive(ctx, "list_id = ? AND user_id = ?", listID, userID)
	if err != nil {
		return false, err
	}
	return o != nil, nil
}

// Owners returns the active ownership rows of a list, oldest first.
func (s *ListStore) Owners(ctx context.Context, listID string) ([]model.ListOwner, error) {
	return s.owners.findActiveWhere(ctx, "list_id = ?", "", listID)
}
