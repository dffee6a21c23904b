package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/dukerupert/basket/internal/model"
	"github.com/dukerupert/basket/internal/store"
)

// ListService applies the ownership, lock and validation rules around lists
// and their items.
type ListService struct {
	m        *store.Manager
	validate *validator.Validate
	opts     Options
	logger   *slog.Logger
}

func NewListService(m *store.Manager, logger *slog.Logger, opts Options) *ListService {
	return &ListService{
		m:        m,
		validate: newValidator(),
		opts:     opts.withDefaults(),
		logger:   logger.With("component", "list_service"),
	}
}

// CreateList stores an unlocked list and makes its creator the first owner.
func (s *ListService) CreateList(ctx context.Context, params model.CreateListParams, userID string) (*model.ShoppingList, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	params.Name = strings.TrimSpace(params.Name)
	if err := s.validate.Struct(params); err != nil {
		return nil, validationErr(err)
	}

	var created *model.ShoppingList
	err := s.m.WithTx(ctx, func(tx *store.Stores) error {
		l, err := tx.Lists.Save(ctx, &model.ShoppingList{
			Name:        params.Name,
			Description: params.Description,
			CreatedBy:   userID,
			CommunityID: params.CommunityID,
			IsShared:    params.IsShared,
		})
		if err != nil {
			return err
		}
		if _, err := tx.Lists.AddOwner(ctx, l.ID, userID); err != nil {
			return err
		}
		created = l
		return nil
	})
	if err != nil {
		return nil, logFailure(s.logger, "create list", err, "user_id", userID)
	}

	s.logger.Debug("list created", "list_id", created.ID, "user_id", userID)
	return created, nil
}

// UpdateList merges the provided fields onto an unlocked list the caller owns.
func (s *ListService) UpdateList(ctx context.Context, params model.UpdateListParams, userID string) (*model.ShoppingList, error) {
	var updated *model.ShoppingList
	err := s.m.WithTx(ctx, func(tx *store.Stores) error {
		l, err := activeList(ctx, tx, params.ID)
		if err != nil {
			return err
		}
		if err := requireEditable(ctx, tx, l, userID); err != nil {
			return err
		}

		var name string
		if params.Name != nil {
			name = strings.TrimSpace(*params.Name)
			if err := checkVar(s.validate, "name", name, listNameTag); err != nil {
				return err
			}
		}

		updated, err = tx.Lists.Update(ctx, l.ID, func(l *model.ShoppingList) {
			if params.Name != nil {
				l.Name = name
			}
			if params.Description != nil {
				l.Description = *params.Description
			}
			if params.IsShared != nil {
				l.IsShared = *params.IsShared
			}
			if params.CommunityID != nil {
				if *params.CommunityID == "" {
					l.CommunityID = nil
				} else {
					id := *params.CommunityID
					l.CommunityID = &id
				}
			}
		})
		return err
	})
	if err != nil {
		return nil, logFailure(s.logger, "update list", err, "list_id", params.ID)
	}
	return updated, nil
}

// DeleteList soft-deletes an unlocked list the caller owns.
func (s *ListService) DeleteList(ctx context.Context, id, userID string) error {
	err := s.m.WithTx(ctx, func(tx *store.Stores) error {
		l, err := activeList(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := requireEditable(ctx, tx, l, userID); err != nil {
			return err
		}
		return tx.Lists.SoftDelete(ctx, id)
	})
	if err != nil {
		return logFailure(s.logger, "delete list", err, "list_id", id)
	}
	return nil
}

// GetList returns an active list.
func (s *ListService) GetList(ctx context.Context, id string) (*model.ShoppingList, error) {
	l, err := activeList(ctx, s.m.Stores, id)
	if err != nil {
		return nil, logFailure(s.logger, "get list", err, "list_id", id)
	}
	return l, nil
}

// GetUserLists returns the lists the user created followed by the lists
// shared with them, without duplicates.
func (s *ListService) GetUserLists(ctx context.Context, userID string) ([]model.ShoppingList, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	own, err := s.m.Lists.FindByUser(ctx, userID)
	if err != nil {
		return nil, logFailure(s.logger, "get user lists", err, "user_id", userID)
	}
	shared, err := s.m.Lists.FindSharedWithUser(ctx, userID)
	if err != nil {
		return nil, logFailure(s.logger, "get user lists", err, "user_id", userID)
	}

	seen := make(map[string]bool, len(own))
	out := make([]model.ShoppingList, 0, len(own)+len(shared))
	for _, l := range append(own, shared...) {
		if seen[l.ID] {
			continue
		}
		seen[l.ID] = true
		out = append(out, l)
	}
	return out, nil
}

func (s *ListService) GetCommunityLists(ctx context.Context, communityID string) ([]model.ShoppingList, error) {
	if strings.TrimSpace(communityID) == "" {
		return nil, invalid("community id is required")
	}
	lists, err := s.m.Lists.FindByCommunity(ctx, communityID)
	if err != nil {
		return nil, logFailure(s.logger, "get community lists", err, "community_id", communityID)
	}
	return lists, nil
}

// GetListItems returns the active items of an active list in sort order.
func (s *ListService) GetListItems(ctx context.Context, listID string) ([]model.ListItem, error) {
	if _, err := activeList(ctx, s.m.Stores, listID); err != nil {
		return nil, logFailure(s.logger, "get list items", err, "list_id", listID)
	}
	items, err := s.m.Items.FindByList(ctx, listID)
	if err != nil {
		return nil, logFailure(s.logger, "get list items", err, "list_id", listID)
	}
	return items, nil
}

// AddItemToList appends an item after the list's current last item.
func (s *ListService) AddItemToList(ctx context.Context, params model.AddItemParams, userID string) (*model.ListItem, error) {
	params.Name = strings.TrimSpace(params.Name)
	params.Unit = strings.TrimSpace(params.Unit)
	if err := s.validate.Struct(params); err != nil {
		return nil, validationErr(err)
	}

	var created *model.ListItem
	err := s.m.WithTx(ctx, func(tx *store.Stores) error {
		l, err := activeList(ctx, tx, params.ListID)
		if err != nil {
			return err
		}
		if err := requireEditable(ctx, tx, l, userID); err != nil {
			return err
		}
		top, err := tx.Items.MaxSortOrder(ctx, l.ID)
		if err != nil {
			return err
		}
		created, err = tx.Items.Save(ctx, &model.ListItem{
			ListID:    l.ID,
			Name:      params.Name,
			Quantity:  params.Quantity,
			Unit:      params.Unit,
			SortOrder: top + s.opts.SortOrderStep,
		})
		return err
	})
	if err != nil {
		return nil, logFailure(s.logger, "add item", err, "list_id", params.ListID)
	}
	return created, nil
}

// UpdateListItem applies a partial item update. A change to nothing but the
// purchase flag is allowed on locked lists, by owners and by the user
// shopping the list in an ACTIVE session.
func (s *ListService) UpdateListItem(ctx context.Context, params model.UpdateItemParams, userID string) (*model.ListItem, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if params.IsPurchased == nil && params.Name == nil && params.Quantity == nil && params.Unit == nil {
		return nil, invalid("no fields to update")
	}

	var updated *model.ListItem
	err := s.m.WithTx(ctx, func(tx *store.Stores) error {
		item, err := activeItem(ctx, tx, params.ID)
		if err != nil {
			return err
		}
		l, err := activeList(ctx, tx, item.ListID)
		if err != nil {
			return err
		}

		if params.OnlyPurchaseChange() {
			if err := requirePurchaser(ctx, tx, l, userID); err != nil {
				return err
			}
		} else {
			if err := requireEditable(ctx, tx, l, userID); err != nil {
				return err
			}
			if err := s.applyItemFields(ctx, tx, item.ID, params); err != nil {
				return err
			}
		}

		if params.IsPurchased != nil && *params.IsPurchased != item.IsPurchased {
			if *params.IsPurchased {
				_, err = tx.Items.MarkAsPurchased(ctx, item.ID, userID)
			} else {
				_, err = tx.Items.MarkAsUnpurchased(ctx, item.ID)
			}
			if err != nil {
				return err
			}
		}

		updated, err = tx.Items.FindByID(ctx, item.ID)
		return err
	})
	if err != nil {
		return nil, logFailure(s.logger, "update item", err, "item_id", params.ID)
	}
	return updated, nil
}

func (s *ListService) applyItemFields(ctx context.Context, tx *store.Stores, id string, params model.UpdateItemParams) error {
	var name, unit string
	if params.Name != nil {
		name = strings.TrimSpace(*params.Name)
		if err := checkVar(s.validate, "name", name, itemNameTag); err != nil {
			return err
		}
	}
	if params.Unit != nil {
		unit = strings.TrimSpace(*params.Unit)
		if err := checkVar(s.validate, "unit", unit, unitTag); err != nil {
			return err
		}
	}
	if params.Quantity != nil {
		if err := checkVar(s.validate, "quantity", *params.Quantity, "min=1"); err != nil {
			return err
		}
	}
	if params.Name == nil && params.Unit == nil && params.Quantity == nil {
		return nil
	}

	_, err := tx.Items.Update(ctx, id, func(i *model.ListItem) {
		if params.Name != nil {
			i.Name = name
		}
		if params.Unit != nil {
			i.Unit = unit
		}
		if params.Quantity != nil {
			i.Quantity = *params.Quantity
		}
	})
	return err
}

// RemoveItemFromList soft-deletes an item of an unlocked list the caller owns.
func (s *ListService) RemoveItemFromList(ctx context.Context, itemID, userID string) error {
	err := s.m.WithTx(ctx, func(tx *store.Stores) error {
		item, err := activeItem(ctx, tx, itemID)
		if err != nil {
			return err
		}
		l, err := activeList(ctx, tx, item.ListID)
		if err != nil {
			return err
		}
		if err := requireEditable(ctx, tx, l, userID); err != nil {
			return err
		}
		return tx.Items.SoftDelete(ctx, item.ID)
	})
	if err != nil {
		return logFailure(s.logger, "remove item", err, "item_id", itemID)
	}
	return nil
}

// MoveItemToList reassigns an item to the end of another list. Both lists
// must be unlocked and owned by the caller.
func (s *ListService) MoveItemToList(ctx context.Context, itemID, targetListID, userID string) (*model.ListItem, error) {
	var moved *model.ListItem
	err := s.m.WithTx(ctx, func(tx *store.Stores) error {
		item, err := activeItem(ctx, tx, itemID)
		if err != nil {
			return err
		}
		if item.ListID == targetListID {
			return invalid("item %s is already on list %s", itemID, targetListID)
		}
		src, err := activeList(ctx, tx, item.ListID)
		if err != nil {
			return err
		}
		dst, err := activeList(ctx, tx, targetListID)
		if err != nil {
			return err
		}
		for _, l := range []*model.ShoppingList{src, dst} {
			if err := requireEditable(ctx, tx, l, userID); err != nil {
				return err
			}
		}

		top, err := tx.Items.MaxSortOrder(ctx, dst.ID)
		if err != nil {
			return err
		}
		if _, err := tx.Items.MoveToList(ctx, item.ID, dst.ID); err != nil {
			return err
		}
		moved, err = tx.Items.SetSortOrder(ctx, item.ID, top+s.opts.SortOrderStep)
		return err
	})
	if err != nil {
		return nil, logFailure(s.logger, "move item", err, "item_id", itemID, "list_id", targetListID)
	}
	return moved, nil
}

// ReorderItem gives an item an explicit sort order.
func (s *ListService) ReorderItem(ctx context.Context, itemID string, sortOrder int, userID string) (*model.ListItem, error) {
	if sortOrder < 0 {
		return nil, invalid("sort order must not be negative")
	}
	var updated *model.ListItem
	err := s.m.WithTx(ctx, func(tx *store.Stores) error {
		item, err := activeItem(ctx, tx, itemID)
		if err != nil {
			return err
		}
		l, err := activeList(ctx, tx, item.ListID)
		if err != nil {
			return err
		}
		if err := requireEditable(ctx, tx, l, userID); err != nil {
			return err
		}
		updated, err = tx.Items.SetSortOrder(ctx, item.ID, sortOrder)
		return err
	})
	if err != nil {
		return nil, logFailure(s.logger, "reorder item", err, "item_id", itemID)
	}
	return updated, nil
}

// ShareList makes targetUserID an additional owner of the list.
func (s *ListService) ShareList(ctx context.Context, listID, targetUserID, userID string) (*model.ListOwner, error) {
	if err := requireUser(targetUserID); err != nil {
		return nil, err
	}
	var owner *model.ListOwner
	err := s.m.WithTx(ctx, func(tx *store.Stores) error {
		l, err := activeList(ctx, tx, listID)
		if err != nil {
			return err
		}
		if err := requireOwner(ctx, tx, l, userID); err != nil {
			return err
		}
		target, err := tx.Users.FindByID(ctx, targetUserID)
		if err != nil {
			return err
		}
		if target == nil || target.IsDeleted() {
			return notFound("user", targetUserID)
		}
		already, err := tx.Lists.IsOwner(ctx, l.ID, targetUserID)
		if err != nil {
			return err
		}
		if already {
			return &Error{Kind: KindAlreadyOwner, Msg: "user " + targetUserID + " already owns list " + l.ID}
		}
		owner, err = tx.Lists.AddOwner(ctx, l.ID, targetUserID)
		return err
	})
	if err != nil {
		return nil, logFailure(s.logger, "share list", err, "list_id", listID, "target_user_id", targetUserID)
	}
	s.logger.Info("list shared", "list_id", listID, "target_user_id", targetUserID)
	return owner, nil
}

// UnshareList removes an owner other than the list's creator.
func (s *ListService) UnshareList(ctx context.Context, listID, targetUserID, userID string) error {
	err := s.m.WithTx(ctx, func(tx *store.Stores) error {
		l, err := activeList(ctx, tx, listID)
		if err != nil {
			return err
		}
		if err := requireOwner(ctx, tx, l, userID); err != nil {
			return err
		}
		if targetUserID == l.CreatedBy {
			return forbidden("the creator of a list cannot be removed as owner")
		}
		err = tx.Lists.RemoveOwner(ctx, l.ID, targetUserID)
		if errors.Is(err, store.ErrNotFound) {
			return notFound("owner", targetUserID)
		}
		return err
	})
	if err != nil {
		return logFailure(s.logger, "unshare list", err, "list_id", listID, "target_user_id", targetUserID)
	}
	s.logger.Info("list unshared", "list_id", listID, "target_user_id", targetUserID)
	return nil
}
