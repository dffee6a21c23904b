package store

import (
	"context"
	"database/sql"
	"fmt"
)

// Stores bundles the entity stores bound to one DBTX.
type Stores struct {
	Users    *UserStore
	Lists    *ListStore
	Items    *ItemStore
	Sessions *SessionStore
}

func NewStores(db DBTX, clk Clock) *Stores {
	return &Stores{
		Users:    NewUserStore(db, clk),
		Lists:    NewListStore(db, clk),
		Items:    NewItemStore(db, clk),
		Sessions: NewSessionStore(db, clk),
	}
}

// Manager owns the database handle. Its embedded Stores run outside any
// transaction; WithTx hands out Stores bound to a single transaction.
type Manager struct {
	*Stores
	db  *sql.DB
	clk Clock
}

// NewManager builds a Manager. A nil clock uses the system time.
func NewManager(db *sql.DB, clk Clock) *Manager {
	if clk == nil {
		clk = systemClock
	}
	return &Manager{
		Stores: NewStores(db, clk),
		db:     db,
		clk:    clk,
	}
}

// WithTx runs fn in a transaction and commits if fn returns nil. fn must only
// use the Stores it is given: the pool holds a single connection, so touching
// the Manager's own Stores from inside fn would block.
func (m *Manager) WithTx(ctx context.Context, fn func(tx *Stores) error) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(NewStores(tx, m.clk)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
