package store

import (
	"context"

	"github.com/dukerupert/basket/internal/model"
)

var userMapping = mapping[model.User]{
	table:   "users",
	columns: []string{"username", "email", "password_hash"},
	orderBy: "created_at ASC, rowid ASC",
	base:    func(u *model.User) *model.Base { return &u.Base },
	fields:  func(u *model.User) []any { return []any{&u.Username, &u.Email, &u.PasswordHash} },
	values:  func(u *model.User) []any { return []any{u.Username, u.Email, u.PasswordHash} },
}

type UserStore struct {
	*Repository[model.User]
}

func NewUserStore(db DBTX, clk Clock) *UserStore {
	return &UserStore{Repository: newRepository(db, userMapping, clk)}
}

func (s *UserStore) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	return s.findOneActive(ctx, "username = ?", username)
}

func (s *UserStore) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return s.findOneActive(ctx, "email = ? COLLATE NOCASE", email)
}
