package model

import "time"

type SessionStatus string

const (
	SessionActive    SessionStatus = "ACTIVE"
	SessionCompleted SessionStatus = "COMPLETED"
	SessionCancelled SessionStatus = "CANCELLED"
)

// Terminal reports whether no further transition is possible from s.
func (s SessionStatus) Terminal() bool {
	return s == SessionCompleted || s == SessionCancelled
}

type ShoppingSession struct {
	Base
	UserID    string        `json:"user_id"`
	StartedAt time.Time     `json:"started_at"`
	EndedAt   *time.Time    `json:"ended_at,omitempty"`
	Status    SessionStatus `json:"status"`
}

// SessionList records that a list takes part in a session.
type SessionList struct {
	Base
	SessionID string    `json:"session_id"`
	ListID    string    `json:"list_id"`
	AddedAt   time.Time `json:"added_at"`
}

type SessionWithLists struct {
	Session ShoppingSession `json:"session"`
	ListIDs []string        `json:"list_ids"`
}

type EndSessionParams struct {
	Status                      SessionStatus
	CreateNewListForUnpurchased bool
	NewListName                 string
}

type EndSessionResult struct {
	Session ShoppingSession `json:"session"`
	NewList *ShoppingList   `json:"new_list,omitempty"`
}
