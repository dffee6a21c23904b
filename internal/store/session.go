package store

import (
	"context"

	"github.com/dukerupert/basket/internal/model"
)

var sessionMapping = mapping[model.ShoppingSession]{
	table:   "shopping_sessions",
	columns: []string{"user_id", "started_at", "ended_at", "status"},
	orderBy: "started_at ASC, rowid ASC",
	base:    func(s *model.ShoppingSession) *model.Base { return &s.Base },
	fields: func(s *model.ShoppingSession) []any {
		return []any{&s.UserID, timeText{&s.StartedAt}, nullTimeText{&s.EndedAt}, &s.Status}
	},
	values: func(s *model.ShoppingSession) []any {
		return []any{s.UserID, formatTime(s.StartedAt), formatNullTime(s.EndedAt), string(s.Status)}
	},
}

var sessionListMapping = mapping[model.SessionList]{
	table:   "session_lists",
	columns: []string{"session_id", "list_id", "added_at"},
	orderBy: "added_at ASC, rowid ASC",
	base:    func(sl *model.SessionList) *model.Base { return &sl.Base },
	fields: func(sl *model.SessionList) []any {
		return []any{&sl.SessionID, &sl.ListID, timeText{&sl.AddedAt}}
	},
	values: func(sl *model.SessionList) []any {
		return []any{sl.SessionID, sl.ListID, formatTime(sl.AddedAt)}
	},
}

// SessionStore persists shopping sessions and the SessionList rows linking
// them to lists.
type SessionStore struct {
	*Repository[model.ShoppingSession]
	lists *Repository[model.SessionList]
}

func NewSessionStore(db DBTX, clk Clock) *SessionStore {
	return &SessionStore{
		Repository: newRepository(db, sessionMapping, clk),
		lists:      newRepository(db, sessionListMapping, clk),
	}
}

// Start creates an ACTIVE session for the user beginning now.
func (s *SessionStore) Start(ctx context.Context, userID string) (*model.ShoppingSession, error) {
	return s.Save(ctx, &model.ShoppingSession{
		UserID:    userID,
		StartedAt: s.now(),
		Status:    model.SessionActive,
	})
}

// FindActiveByUser returns the user's ACTIVE session, or nil if there is none.
func (s *SessionStore) FindActiveByUser(ctx context.Context, userID string) (*model.ShoppingSession, error) {
	return s.findOneActive(ctx, "user_id = ? AND status = ?", userID, string(model.SessionActive))
}

// FindByUser returns the user's sessions, newest first.
func (s *SessionStore) FindByUser(ctx context.Context, userID string) ([]model.ShoppingSession, error) {
	return s.findActiveWhere(ctx, "user_id = ?", "started_at DESC, rowid DESC", userID)
}

// FindWithLists returns the session and its active list ids, or nil if the
// session does not exist.
func (s *SessionStore) FindWithLists(ctx context.Context, sessionID string) (*model.SessionWithLists, error) {
	sess, err := s.FindByID(ctx, sessionID)
	if err != nil || sess == nil {
		return nil, err
	}
	ids, err := s.GetSessionLists(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return &model.SessionWithLists{Session: *sess, ListIDs: ids}, nil
}

func (s *SessionStore) AddListToSession(ctx context.Context, sessionID, listID string) (*model.SessionList, error) {
	return s.lists.Save(ctx, &model.SessionList{
		SessionID: sessionID,
		ListID:    listID,
		AddedAt:   s.now(),
	})
}

// RemoveListFromSession soft-deletes the active SessionList row.
func (s *SessionStore) RemoveListFromSession(ctx context.Context, sessionID, listID string) error {
	sl, err := s.lists.findOneActive(ctx, "session_id = ? AND list_id = ?", sessionID, listID)
	if err != nil {
		return err
	}
	if sl == nil {
		return ErrNotFound
	}
	return s.lists.SoftDelete(ctx, sl.ID)
}

// GetSessionLists returns the list ids of the session's active SessionList
// rows in the order they were added.
func (s *SessionStore) GetSessionLists(ctx context.Context, sessionID string) ([]string, error) {
	rows, err := s.lists.findActiveWhere(ctx, "session_id = ?", "", sessionID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(rows))
	for i, sl := range rows {
		ids[i] = sl.ListID
	}
	return ids, nil
}

// EndSession moves the session to status and stamps its end time.
func (s *SessionStore) EndSession(ctx context.Context, sessionID string, status model.SessionStatus) (*model.ShoppingSession, error) {
	now := s.now()
	return s.Update(ctx, sessionID, func(sess *model.ShoppingSession) {
		sess.Status = status
		sess.EndedAt = &now
	})
}
