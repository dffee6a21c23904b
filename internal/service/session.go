package service

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/dukerupert/basket/internal/model"
	"github.com/dukerupert/basket/internal/store"
)

// SessionService runs the shopping-session state machine: it locks the lists
// a session uses, releases them when it ends, and builds the consolidated
// item feed.
type SessionService struct {
	m        *store.Manager
	validate *validator.Validate
	opts     Options
	logger   *slog.Logger
}

func NewSessionService(m *store.Manager, logger *slog.Logger, opts Options) *SessionService {
	return &SessionService{
		m:        m,
		validate: newValidator(),
		opts:     opts.withDefaults(),
		logger:   logger.With("component", "session_service"),
	}
}

// CreateSession starts an ACTIVE session over listIDs and locks every list.
// A session the user already has running is cancelled first. Nothing is
// written unless every list exists and is unlocked.
func (s *SessionService) CreateSession(ctx context.Context, userID string, listIDs []string) (*model.SessionWithLists, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	ids := dedupe(listIDs)
	if len(ids) == 0 {
		return nil, invalid("at least one list id is required")
	}

	var (
		result    *model.SessionWithLists
		cancelled *model.ShoppingSession
	)
	err := s.m.WithTx(ctx, func(tx *store.Stores) error {
		existing, err := tx.Sessions.FindActiveByUser(ctx, userID)
		if err != nil {
			return err
		}
		if existing != nil {
			res, err := s.end(ctx, tx, existing.ID, model.EndSessionParams{Status: model.SessionCancelled})
			if err != nil {
				return err
			}
			cancelled = &res.Session
		}

		for _, id := range ids {
			l, err := activeList(ctx, tx, id)
			if err != nil {
				return err
			}
			if l.IsLocked {
				return &Error{Kind: KindAlreadyLocked, Msg: "list " + id + " is already locked"}
			}
		}

		sess, err := tx.Sessions.Start(ctx, userID)
		if err != nil {
			return err
		}
		for _, id := range ids {
			if _, err := tx.Sessions.AddListToSession(ctx, sess.ID, id); err != nil {
				return err
			}
		}
		for _, id := range ids {
			if _, err := tx.Lists.LockList(ctx, id); err != nil {
				return err
			}
		}
		result = &model.SessionWithLists{Session: *sess, ListIDs: ids}
		return nil
	})
	if err != nil {
		return nil, logFailure(s.logger, "create session", err, "user_id", userID)
	}

	if cancelled != nil {
		s.logger.Info("session ended", "session_id", cancelled.ID, "status", cancelled.Status)
	}
	s.logger.Info("session started", "session_id", result.Session.ID, "user_id", userID, "lists", len(ids))
	return result, nil
}

// EndSession moves an ACTIVE session to a terminal status. With
// CreateNewListForUnpurchased set, every unpurchased item is copied into a
// new list and each source list that had one is soft-deleted. Remaining lists
// are unlocked.
func (s *SessionService) EndSession(ctx context.Context, sessionID string, params model.EndSessionParams) (*model.EndSessionResult, error) {
	if !params.Status.Terminal() {
		return nil, invalid("status must be %s or %s", model.SessionCompleted, model.SessionCancelled)
	}

	var result *model.EndSessionResult
	err := s.m.WithTx(ctx, func(tx *store.Stores) error {
		var err error
		result, err = s.end(ctx, tx, sessionID, params)
		return err
	})
	if err != nil {
		return nil, logFailure(s.logger, "end session", err, "session_id", sessionID)
	}

	attrs := []any{"session_id", sessionID, "status", result.Session.Status}
	if result.NewList != nil {
		attrs = append(attrs, "new_list_id", result.NewList.ID)
	}
	s.logger.Info("session ended", attrs...)
	return result, nil
}

func (s *SessionService) end(ctx context.Context, tx *store.Stores, sessionID string, params model.EndSessionParams) (*model.EndSessionResult, error) {
	sess, err := activeSession(ctx, tx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Status != model.SessionActive {
		return nil, &Error{Kind: KindNotActive, Msg: "session " + sessionID + " is " + string(sess.Status)}
	}

	listIDs, err := tx.Sessions.GetSessionLists(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	result := &model.EndSessionResult{}
	spent := make(map[string]bool)
	if params.CreateNewListForUnpurchased {
		name := strings.TrimSpace(params.NewListName)
		if name == "" {
			name = s.opts.DefaultUnpurchasedListName
		}
		if err := checkVar(s.validate, "new list name", name, listNameTag); err != nil {
			return nil, err
		}
		result.NewList, err = s.moveUnpurchased(ctx, tx, sess, listIDs, name, spent)
		if err != nil {
			return nil, err
		}
	}

	for _, id := range listIDs {
		if spent[id] {
			continue
		}
		l, err := tx.Lists.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if l == nil || l.IsDeleted() || !l.IsLocked {
			continue
		}
		if _, err := tx.Lists.UnlockList(ctx, id); err != nil {
			return nil, err
		}
	}

	ended, err := tx.Sessions.EndSession(ctx, sessionID, params.Status)
	if err != nil {
		return nil, err
	}
	result.Session = *ended
	return result, nil
}

// moveUnpurchased creates the leftover list, copies every unpurchased item of
// the session into it and retires the originals. Source lists that gave up at
// least one item are soft-deleted and recorded in spent.
func (s *SessionService) moveUnpurchased(ctx context.Context, tx *store.Stores, sess *model.ShoppingSession, listIDs []string, name string, spent map[string]bool) (*model.ShoppingList, error) {
	newList, err := tx.Lists.Save(ctx, &model.ShoppingList{Name: name, CreatedBy: sess.UserID})
	if err != nil {
		return nil, err
	}
	if _, err := tx.Lists.AddOwner(ctx, newList.ID, sess.UserID); err != nil {
		return nil, err
	}

	lists, err := sessionLists(ctx, tx, sess.UserID, listIDs)
	if err != nil {
		return nil, err
	}
	byList, err := itemsByList(ctx, tx, lists)
	if err != nil {
		return nil, err
	}

	var copies []*model.ListItem
	var originals []string
	for _, l := range lists {
		for _, item := range byList[l.ID] {
			if item.IsPurchased {
				continue
			}
			copies = append(copies, &model.ListItem{
				ListID:    newList.ID,
				Name:      item.Name,
				Quantity:  item.Quantity,
				Unit:      item.Unit,
				SortOrder: (len(copies) + 1) * s.opts.SortOrderStep,
			})
			originals = append(originals, item.ID)
			spent[l.ID] = true
		}
	}

	if err := tx.Items.BulkSave(ctx, copies); err != nil {
		return nil, err
	}
	for _, id := range originals {
		if err := tx.Items.SoftDelete(ctx, id); err != nil {
			return nil, err
		}
	}
	for _, l := range lists {
		if !spent[l.ID] {
			continue
		}
		if err := tx.Lists.SoftDelete(ctx, l.ID); err != nil {
			return nil, err
		}
	}
	return newList, nil
}

// GetConsolidatedItems merges the session's active items that share a
// lowercased name and unit. Lists created by the session's user are walked
// first, each in sort order; records come out in first-seen order.
func (s *SessionService) GetConsolidatedItems(ctx context.Context, sessionID string) ([]model.ConsolidatedItem, error) {
	lists, byList, err := s.sessionItems(ctx, sessionID)
	if err != nil {
		return nil, logFailure(s.logger, "get consolidated items", err, "session_id", sessionID)
	}
	return consolidate(lists, byList), nil
}

// GetItemsBySourceList groups the session's purchased items by the list they
// belong to, skipping lists with nothing purchased.
func (s *SessionService) GetItemsBySourceList(ctx context.Context, sessionID string) ([]model.SourceListItems, error) {
	lists, byList, err := s.sessionItems(ctx, sessionID)
	if err != nil {
		return nil, logFailure(s.logger, "get items by source list", err, "session_id", sessionID)
	}

	out := []model.SourceListItems{}
	for _, l := range lists {
		var purchased []model.ListItem
		for _, item := range byList[l.ID] {
			if item.IsPurchased {
				purchased = append(purchased, item)
			}
		}
		if len(purchased) > 0 {
			out = append(out, model.SourceListItems{List: l, Items: purchased})
		}
	}
	return out, nil
}

func (s *SessionService) sessionItems(ctx context.Context, sessionID string) ([]model.ShoppingList, map[string][]model.ListItem, error) {
	st := s.m.Stores
	sess, err := activeSession(ctx, st, sessionID)
	if err != nil {
		return nil, nil, err
	}
	ids, err := st.Sessions.GetSessionLists(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}
	lists, err := sessionLists(ctx, st, sess.UserID, ids)
	if err != nil {
		return nil, nil, err
	}
	byList, err := itemsByList(ctx, st, lists)
	if err != nil {
		return nil, nil, err
	}
	return lists, byList, nil
}

// GetActiveSession returns the user's running session with its list ids.
func (s *SessionService) GetActiveSession(ctx context.Context, userID string) (*model.SessionWithLists, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	sess, err := s.m.Sessions.FindActiveByUser(ctx, userID)
	if err != nil {
		return nil, logFailure(s.logger, "get active session", err, "user_id", userID)
	}
	if sess == nil {
		return nil, &Error{Kind: KindNotFound, Msg: "user " + userID + " has no active session"}
	}
	return s.GetSession(ctx, sess.ID)
}

func (s *SessionService) GetSession(ctx context.Context, sessionID string) (*model.SessionWithLists, error) {
	sess, err := s.m.Sessions.FindWithLists(ctx, sessionID)
	if err != nil {
		return nil, logFailure(s.logger, "get session", err, "session_id", sessionID)
	}
	if sess == nil || sess.Session.IsDeleted() {
		return nil, notFound("session", sessionID)
	}
	return sess, nil
}

// GetSessionHistory returns the user's sessions, newest first.
func (s *SessionService) GetSessionHistory(ctx context.Context, userID string) ([]model.ShoppingSession, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	sessions, err := s.m.Sessions.FindByUser(ctx, userID)
	if err != nil {
		return nil, logFailure(s.logger, "get session history", err, "user_id", userID)
	}
	return sessions, nil
}

// AddListToSession brings one more unlocked list into the user's ACTIVE
// session and locks it.
func (s *SessionService) AddListToSession(ctx context.Context, sessionID, listID, userID string) (*model.SessionWithLists, error) {
	var result *model.SessionWithLists
	err := s.m.WithTx(ctx, func(tx *store.Stores) error {
		sess, err := s.runningSession(ctx, tx, sessionID, userID)
		if err != nil {
			return err
		}
		l, err := activeList(ctx, tx, listID)
		if err != nil {
			return err
		}
		if l.IsLocked {
			return &Error{Kind: KindAlreadyLocked, Msg: "list " + listID + " is already locked"}
		}
		if _, err := tx.Sessions.AddListToSession(ctx, sess.ID, l.ID); err != nil {
			return err
		}
		if _, err := tx.Lists.LockList(ctx, l.ID); err != nil {
			return err
		}
		result, err = tx.Sessions.FindWithLists(ctx, sess.ID)
		return err
	})
	if err != nil {
		return nil, logFailure(s.logger, "add list to session", err, "session_id", sessionID, "list_id", listID)
	}
	s.logger.Info("list locked", "session_id", sessionID, "list_id", listID)
	return result, nil
}

// RemoveListFromSession takes a list out of the user's ACTIVE session and
// unlocks it.
func (s *SessionService) RemoveListFromSession(ctx context.Context, sessionID, listID, userID string) (*model.SessionWithLists, error) {
	var result *model.SessionWithLists
	err := s.m.WithTx(ctx, func(tx *store.Stores) error {
		sess, err := s.runningSession(ctx, tx, sessionID, userID)
		if err != nil {
			return err
		}
		err = tx.Sessions.RemoveListFromSession(ctx, sess.ID, listID)
		if errors.Is(err, store.ErrNotFound) {
			return notFound("session list", listID)
		}
		if err != nil {
			return err
		}
		l, err := tx.Lists.FindByID(ctx, listID)
		if err != nil {
			return err
		}
		if l != nil && !l.IsDeleted() && l.IsLocked {
			if _, err := tx.Lists.UnlockList(ctx, listID); err != nil {
				return err
			}
		}
		result, err = tx.Sessions.FindWithLists(ctx, sess.ID)
		return err
	})
	if err != nil {
		return nil, logFailure(s.logger, "remove list from session", err, "session_id", sessionID, "list_id", listID)
	}
	s.logger.Info("list unlocked", "session_id", sessionID, "list_id", listID)
	return result, nil
}

// runningSession loads an ACTIVE session that belongs to userID.
func (s *SessionService) runningSession(ctx context.Context, tx *store.Stores, sessionID, userID string) (*model.ShoppingSession, error) {
	sess, err := activeSession(ctx, tx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.UserID != userID {
		return nil, forbidden("session " + sessionID + " belongs to another user")
	}
	if sess.Status != model.SessionActive {
		return nil, &Error{Kind: KindNotActive, Msg: "session " + sessionID + " is " + string(sess.Status)}
	}
	return sess, nil
}

// sessionLists loads the active lists behind ids, moving those created by
// userID ahead of the rest while keeping relative order.
func sessionLists(ctx context.Context, st *store.Stores, userID string, ids []string) ([]model.ShoppingList, error) {
	lists := make([]model.ShoppingList, 0, len(ids))
	for _, id := range ids {
		l, err := st.Lists.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if l == nil || l.IsDeleted() {
			continue
		}
		lists = append(lists, *l)
	}
	sort.SliceStable(lists, func(i, j int) bool {
		return lists[i].CreatedBy == userID && lists[j].CreatedBy != userID
	})
	return lists, nil
}

// itemsByList fetches the active items of every list in one query and groups
// them by list, each group in sort order.
func itemsByList(ctx context.Context, st *store.Stores, lists []model.ShoppingList) (map[string][]model.ListItem, error) {
	ids := make([]string, len(lists))
	for i, l := range lists {
		ids[i] = l.ID
	}
	items, err := st.Items.FindByLists(ctx, ids)
	if err != nil {
		return nil, err
	}
	byList := make(map[string][]model.ListItem, len(lists))
	for _, item := range items {
		byList[item.ListID] = append(byList[item.ListID], item)
	}
	return byList, nil
}

func consolidationKey(name, unit string) string {
	return strings.ToLower(name) + "_" + strings.ToLower(unit)
}

func consolidate(lists []model.ShoppingList, byList map[string][]model.ListItem) []model.ConsolidatedItem {
	out := []model.ConsolidatedItem{}
	index := make(map[string]int)
	for _, l := range lists {
		for _, item := range byList[l.ID] {
			key := consolidationKey(item.Name, item.Unit)
			i, ok := index[key]
			if !ok {
				i = len(out)
				index[key] = i
				out = append(out, model.ConsolidatedItem{
					Key:             key,
					Name:            item.Name,
					Unit:            item.Unit,
					AppearanceOrder: i,
					Sources:         []model.ItemSource{},
				})
			}
			c := &out[i]
			c.Quantity += item.Quantity
			c.IsPurchased = c.IsPurchased || item.IsPurchased
			c.Sources = append(c.Sources, model.ItemSource{
				ListID:      l.ID,
				ItemID:      item.ID,
				Quantity:    item.Quantity,
				IsPurchased: item.IsPurchased,
			})
		}
	}
	return out
}

// dedupe drops blank and repeated ids, keeping first-seen order.
func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
