package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/dukerupert/basket/internal/model"
	"github.com/dukerupert/basket/internal/store"
)

const (
	DefaultSortOrderStep       = 1000
	DefaultUnpurchasedListName = "Unpurchased Items"

	listNameTag = "required,max=100"
	itemNameTag = "required,max=100"
	unitTag     = "required,max=20"
)

// Options tunes service behaviour. Zero values fall back to the defaults.
type Options struct {
	SortOrderStep              int
	DefaultUnpurchasedListName string
}

func (o Options) withDefaults() Options {
	if o.SortOrderStep <= 0 {
		o.SortOrderStep = DefaultSortOrderStep
	}
	if strings.TrimSpace(o.DefaultUnpurchasedListName) == "" {
		o.DefaultUnpurchasedListName = DefaultUnpurchasedListName
	}
	return o
}

func newValidator() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
}

// validationErr turns the first validator failure into an invalid-input error.
func validationErr(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		field := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required":
			return invalid("%s is required", field)
		case "max":
			return invalid("%s must be at most %s characters", field, fe.Param())
		case "min":
			if fe.Kind().String() == "int" {
				return invalid("%s must be at least %s", field, fe.Param())
			}
			return invalid("%s must be at least %s characters", field, fe.Param())
		case "email":
			return invalid("%s must be a valid email address", field)
		case "alphanum":
			return invalid("%s must contain only letters and digits", field)
		default:
			return invalid("%s is invalid", field)
		}
	}
	return invalid("%v", err)
}

// checkVar validates a single value against tag, naming it field on failure.
func checkVar(v *validator.Validate, field string, value any, tag string) error {
	if err := v.Var(value, tag); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			switch fe.Tag() {
			case "required":
				return invalid("%s is required", field)
			case "max":
				return invalid("%s must be at most %s characters", field, fe.Param())
			case "min":
				return invalid("%s must be at least %s", field, fe.Param())
			}
		}
		return invalid("%s is invalid", field)
	}
	return nil
}

func requireUser(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return invalid("user id is required")
	}
	return nil
}

// activeList loads a list that exists and has not been soft-deleted.
func activeList(ctx context.Context, st *store.Stores, id string) (*model.ShoppingList, error) {
	l, err := st.Lists.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if l == nil || l.IsDeleted() {
		return nil, notFound("list", id)
	}
	return l, nil
}

func activeItem(ctx context.Context, st *store.Stores, id string) (*model.ListItem, error) {
	item, err := st.Items.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if item == nil || item.IsDeleted() {
		return nil, notFound("item", id)
	}
	return item, nil
}

func activeSession(ctx context.Context, st *store.Stores, id string) (*model.ShoppingSession, error) {
	sess, err := st.Sessions.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess == nil || sess.IsDeleted() {
		return nil, notFound("session", id)
	}
	return sess, nil
}

// requireOwner fails with a forbidden error unless userID owns the list.
func requireOwner(ctx context.Context, st *store.Stores, l *model.ShoppingList, userID string) error {
	if l.CreatedBy == userID {
		return nil
	}
	ok, err := st.Lists.IsOwner(ctx, l.ID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return forbidden(fmt.Sprintf("user %s does not own list %s", userID, l.ID))
	}
	return nil
}

// requirePurchaser allows purchase toggles by list owners and by the user
// whose ACTIVE session includes the list.
func requirePurchaser(ctx context.Context, st *store.Stores, l *model.ShoppingList, userID string) error {
	if l.CreatedBy == userID {
		return nil
	}
	ok, err := st.Lists.IsOwner(ctx, l.ID, userID)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	sess, err := st.Sessions.FindActiveByUser(ctx, userID)
	if err != nil {
		return err
	}
	if sess != nil {
		ids, err := st.Sessions.GetSessionLists(ctx, sess.ID)
		if err != nil {
			return err
		}
		if slices.Contains(ids, l.ID) {
			return nil
		}
	}
	return forbidden(fmt.Sprintf("user %s neither owns nor is shopping list %s", userID, l.ID))
}

// requireEditable is the content-mutation gate: the list must be unlocked and
// owned by userID.
func requireEditable(ctx context.Context, st *store.Stores, l *model.ShoppingList, userID string) error {
	if l.IsLocked {
		return locked(l.ID)
	}
	return requireOwner(ctx, st, l, userID)
}

// logFailure logs storage failures at error level and returns err mapped
// for the caller. Expected business errors are not logged.
func logFailure(logger *slog.Logger, op string, err error, attrs ...any) error {
	err = storageErr(op, err)
	if KindOf(err) == KindStorage {
		logger.Error("failed to "+op, append(attrs, "error", err)...)
	}
	return err
}
