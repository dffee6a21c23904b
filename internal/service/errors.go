package service

import (
	"errors"
	"fmt"

	"github.com/dukerupert/basket/internal/store"
)

// Kind classifies a service failure by condition.
type Kind string

const (
	KindInvalidInput  Kind = "invalid_input"
	KindNotFound      Kind = "not_found"
	KindLocked        Kind = "locked"
	KindForbidden     Kind = "forbidden"
	KindAlreadyLocked Kind = "already_locked"
	KindAlreadyOwner  Kind = "already_owner"
	KindNotActive     Kind = "not_active"
	KindConflict      Kind = "conflict"
	KindStorage       Kind = "storage"
)

// Error is the only error type services return. Msg is safe to show to a
// caller; Err keeps the underlying cause for logs.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Kind == KindStorage {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error by Kind, so errors.Is(err, ErrLocked) works for
// any locked failure regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrInvalidInput  = &Error{Kind: KindInvalidInput, Msg: "invalid input"}
	ErrNotFound      = &Error{Kind: KindNotFound, Msg: "not found"}
	ErrLocked        = &Error{Kind: KindLocked, Msg: "list is locked"}
	ErrForbidden     = &Error{Kind: KindForbidden, Msg: "forbidden"}
	ErrAlreadyLocked = &Error{Kind: KindAlreadyLocked, Msg: "list is already locked"}
	ErrAlreadyOwner  = &Error{Kind: KindAlreadyOwner, Msg: "user is already an owner"}
	ErrNotActive     = &Error{Kind: KindNotActive, Msg: "session is not active"}
	ErrConflict      = &Error{Kind: KindConflict, Msg: "conflict"}
	ErrStorage       = &Error{Kind: KindStorage, Msg: "storage failure"}
)

// KindOf returns the Kind of a service error, or KindStorage for anything else.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindStorage
}

func invalid(format string, args ...any) *Error {
	return &Error{Kind: KindInvalidInput, Msg: fmt.Sprintf(format, args...)}
}

func notFound(what, id string) *Error {
	return &Error{Kind: KindNotFound, Msg: fmt.Sprintf("%s %s not found", what, id)}
}

func locked(listID string) *Error {
	return &Error{Kind: KindLocked, Msg: fmt.Sprintf("list %s is locked", listID)}
}

func forbidden(msg string) *Error {
	return &Error{Kind: KindForbidden, Msg: msg}
}

// storageErr maps an opaque storage error to a message naming the attempted
// operation. Errors that are already service errors pass through untouched.
func storageErr(op string, err error) error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	if errors.Is(err, store.ErrNotFound) {
		return &Error{Kind: KindNotFound, Msg: "failed to " + op + ": not found", Err: err}
	}
	return &Error{Kind: KindStorage, Msg: "failed to " + op, Err: err}
}
