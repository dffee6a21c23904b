package store

import "errors"

// ErrNotFound is returned by writes that target an id with no stored row.
// Reads return nil, nil instead.
var ErrNotFound = errors.New("store: entity not found")
