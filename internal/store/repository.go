package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dukerupert/basket/internal/model"
)

// DBTX is the storage engine every repository runs against. Both *sql.DB and
// *sql.Tx satisfy it, so the same store code works inside a transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type scanner interface{ Scan(...any) error }

const baseCols = `id, created_at, updated_at, last_modified_at, deleted_at`

// mapping describes how an entity type is laid out in its table. Base columns
// come first; columns, fields and values list the entity's own columns in the
// same order.
type mapping[T any] struct {
	table   string
	columns []string
	orderBy string
	base    func(*T) *model.Base
	fields  func(*T) []any
	values  func(*T) []any
}

// Repository is the generic entity store: CRUD plus soft delete over one table.
type Repository[T any] struct {
	db  DBTX
	m   mapping[T]
	clk Clock
}

func newRepository[T any](db DBTX, m mapping[T], clk Clock) *Repository[T] {
	if clk == nil {
		clk = systemClock
	}
	return &Repository[T]{db: db, m: m, clk: clk}
}

func (r *Repository[T]) now() time.Time {
	return r.clk().UTC().Truncate(time.Millisecond)
}

func (r *Repository[T]) cols() string {
	return baseCols + ", " + strings.Join(r.m.columns, ", ")
}

func (r *Repository[T]) scan(s scanner) (*T, error) {
	var e T
	b := r.m.base(&e)
	dest := []any{&b.ID, timeText{&b.CreatedAt}, timeText{&b.UpdatedAt}, timeText{&b.LastModifiedAt}, nullTimeText{&b.DeletedAt}}
	dest = append(dest, r.m.fields(&e)...)
	if err := s.Scan(dest...); err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *Repository[T]) args(e *T) []any {
	b := r.m.base(e)
	args := []any{b.ID, formatTime(b.CreatedAt), formatTime(b.UpdatedAt), formatTime(b.LastModifiedAt), formatNullTime(b.DeletedAt)}
	return append(args, r.m.values(e)...)
}

// FindByID returns the entity with the given id, soft-deleted or not, or nil
// if no row exists.
func (r *Repository[T]) FindByID(ctx context.Context, id string) (*T, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+r.cols()+` FROM `+r.m.table+` WHERE id = ?`, id)
	e, err := r.scan(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", r.m.table, err)
	}
	return e, nil
}

// FindAll returns every row, soft-deleted ones included.
func (r *Repository[T]) FindAll(ctx context.Context) ([]T, error) {
	return r.query(ctx, `SELECT `+r.cols()+` FROM `+r.m.table+` ORDER BY `+r.m.orderBy)
}

// FindActive returns every row that has not been soft-deleted.
func (r *Repository[T]) FindActive(ctx context.Context) ([]T, error) {
	return r.findActiveWhere(ctx, "", "")
}

// ModifiedSince returns rows, tombstones included, whose last modification is
// strictly after since, oldest first.
func (r *Repository[T]) ModifiedSince(ctx context.Context, since time.Time) ([]T, error) {
	return r.query(ctx,
		`SELECT `+r.cols()+` FROM `+r.m.table+` WHERE last_modified_at > ? ORDER BY last_modified_at ASC, rowid ASC`,
		formatTime(since),
	)
}

// findActiveWhere runs an active-only select with an optional extra condition
// and ordering. An empty order falls back to the mapping's default.
func (r *Repository[T]) findActiveWhere(ctx context.Context, cond, order string, args ...any) ([]T, error) {
	q := `SELECT ` + r.cols() + ` FROM ` + r.m.table + ` WHERE deleted_at IS NULL`
	if cond != "" {
		q += ` AND (` + cond + `)`
	}
	if order == "" {
		order = r.m.orderBy
	}
	return r.query(ctx, q+` ORDER BY `+order, args...)
}

// findActiveIn is the anyOf lookup: active rows whose column matches one of
// values, narrowed by an optional extra condition.
func (r *Repository[T]) findActiveIn(ctx context.Context, column string, values []string, cond string, args ...any) ([]T, error) {
	if len(values) == 0 {
		return []T{}, nil
	}
	in := column + ` IN (` + placeholders(len(values)) + `)`
	if cond != "" {
		in += ` AND (` + cond + `)`
	}
	all := make([]any, 0, len(values)+len(args))
	for _, v := range values {
		all = append(all, v)
	}
	return r.findActiveWhere(ctx, in, "", append(all, args...)...)
}

func (r *Repository[T]) findOneActive(ctx context.Context, cond string, args ...any) (*T, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+r.cols()+` FROM `+r.m.table+` WHERE deleted_at IS NULL AND (`+cond+`) ORDER BY `+r.m.orderBy+` LIMIT 1`,
		args...,
	)
	e, err := r.scan(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", r.m.table, err)
	}
	return e, nil
}

func (r *Repository[T]) query(ctx context.Context, q string, args ...any) ([]T, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", r.m.table, err)
	}
	defer rows.Close()

	out := []T{}
	for rows.Next() {
		e, err := r.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", r.m.table, err)
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

// Save upserts the full record. A missing id is generated; an existing row
// keeps its original created_at.
func (r *Repository[T]) Save(ctx context.Context, e *T) (*T, error) {
	now := r.now()
	b := r.m.base(e)
	b.CreatedAt = now
	if b.ID == "" {
		b.ID = uuid.NewString()
	} else {
		var created string
		err := r.db.QueryRowContext(ctx, `SELECT created_at FROM `+r.m.table+` WHERE id = ?`, b.ID).Scan(&created)
		switch {
		case err == nil:
			t, err := parseTime(created)
			if err != nil {
				return nil, fmt.Errorf("parse created_at: %w", err)
			}
			b.CreatedAt = t
		case err != sql.ErrNoRows:
			return nil, fmt.Errorf("get %s: %w", r.m.table, err)
		}
	}
	b.UpdatedAt = now
	b.LastModifiedAt = now

	if err := r.put(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// BulkSave inserts freshly built records, generating ids and timestamps.
func (r *Repository[T]) BulkSave(ctx context.Context, es []*T) error {
	now := r.now()
	for _, e := range es {
		b := r.m.base(e)
		if b.ID == "" {
			b.ID = uuid.NewString()
		}
		b.CreatedAt = now
		b.UpdatedAt = now
		b.LastModifiedAt = now
		if err := r.put(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

func (r *Repository[T]) put(ctx context.Context, e *T) error {
	all := append(strings.Split(baseCols, ", "), r.m.columns...)
	sets := make([]string, 0, len(all)-1)
	for _, c := range all[1:] {
		sets = append(sets, c+" = excluded."+c)
	}
	q := `INSERT INTO ` + r.m.table + ` (` + strings.Join(all, ", ") + `) VALUES (` + placeholders(len(all)) + `)
		ON CONFLICT(id) DO UPDATE SET ` + strings.Join(sets, ", ")
	if _, err := r.db.ExecContext(ctx, q, r.args(e)...); err != nil {
		return fmt.Errorf("save %s: %w", r.m.table, err)
	}
	return nil
}

// Update reads the record, applies fn to it and writes the merged result.
// It is a plain read-modify-write: concurrent updates to one id are
// last-write-wins.
func (r *Repository[T]) Update(ctx context.Context, id string, fn func(*T)) (*T, error) {
	e, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, fmt.Errorf("update %s %s: %w", r.m.table, id, ErrNotFound)
	}

	fn(e)
	b := r.m.base(e)
	b.ID = id
	now := r.now()
	b.UpdatedAt = now
	b.LastModifiedAt = now

	sets := make([]string, 0, len(r.m.columns)+3)
	sets = append(sets, "updated_at = ?", "last_modified_at = ?", "deleted_at = ?")
	for _, c := range r.m.columns {
		sets = append(sets, c+" = ?")
	}
	args := []any{formatTime(b.UpdatedAt), formatTime(b.LastModifiedAt), formatNullTime(b.DeletedAt)}
	args = append(args, r.m.values(e)...)
	args = append(args, id)

	if _, err := r.db.ExecContext(ctx, `UPDATE `+r.m.table+` SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...); err != nil {
		return nil, fmt.Errorf("update %s: %w", r.m.table, err)
	}
	return e, nil
}

// SoftDelete marks the row deleted. A row that is already deleted keeps its
// original deleted_at.
func (r *Repository[T]) SoftDelete(ctx context.Context, id string) error {
	now := formatTime(r.now())
	result, err := r.db.ExecContext(ctx,
		`UPDATE `+r.m.table+` SET deleted_at = COALESCE(deleted_at, ?), last_modified_at = ? WHERE id = ?`,
		now, now, id,
	)
	return checkAffected(result, err, "soft delete "+r.m.table, id)
}

// HardDelete physically removes the row.
func (r *Repository[T]) HardDelete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM `+r.m.table+` WHERE id = ?`, id)
	return checkAffected(result, err, "delete "+r.m.table, id)
}

func checkAffected(result sql.Result, err error, op, id string) error {
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", op, id, ErrNotFound)
	}
	return nil
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}
