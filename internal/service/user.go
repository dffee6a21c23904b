package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/dukerupert/basket/internal/model"
	"github.com/dukerupert/basket/internal/store"
)

// maxPasswordBytes is bcrypt's input limit. The validator counts runes, so
// multibyte passwords need this separate check.
const maxPasswordBytes = 72

type UserService struct {
	m        *store.Manager
	validate *validator.Validate
	cost     int
	logger   *slog.Logger
}

func NewUserService(m *store.Manager, logger *slog.Logger) *UserService {
	return &UserService{
		m:        m,
		validate: newValidator(),
		cost:     bcrypt.DefaultCost,
		logger:   logger.With("component", "user_service"),
	}
}

// CreateUser registers a user with a bcrypt password hash. Usernames and
// emails must be unused by any active user.
func (s *UserService) CreateUser(ctx context.Context, params model.CreateUserParams) (*model.User, error) {
	params.Username = strings.TrimSpace(params.Username)
	params.Email = strings.TrimSpace(params.Email)
	if err := s.validate.Struct(params); err != nil {
		return nil, validationErr(err)
	}
	if len(params.Password) > maxPasswordBytes {
		return nil, invalid("password must be at most %d bytes", maxPasswordBytes)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(params.Password), s.cost)
	if err != nil {
		return nil, logFailure(s.logger, "hash password", err)
	}

	var created *model.User
	err = s.m.WithTx(ctx, func(tx *store.Stores) error {
		existing, err := tx.Users.FindByUsername(ctx, params.Username)
		if err != nil {
			return err
		}
		if existing != nil {
			return &Error{Kind: KindConflict, Msg: "username " + params.Username + " is already taken"}
		}
		existing, err = tx.Users.FindByEmail(ctx, params.Email)
		if err != nil {
			return err
		}
		if existing != nil {
			return &Error{Kind: KindConflict, Msg: "email " + params.Email + " is already taken"}
		}
		created, err = tx.Users.Save(ctx, &model.User{
			Username:     params.Username,
			Email:        params.Email,
			PasswordHash: string(hash),
		})
		return err
	})
	if err != nil {
		return nil, logFailure(s.logger, "create user", err, "username", params.Username)
	}

	s.logger.Info("user created", "user_id", created.ID, "username", created.Username)
	return created, nil
}

func (s *UserService) GetUser(ctx context.Context, id string) (*model.User, error) {
	u, err := s.m.Users.FindByID(ctx, id)
	if err != nil {
		return nil, logFailure(s.logger, "get user", err, "user_id", id)
	}
	if u == nil || u.IsDeleted() {
		return nil, notFound("user", id)
	}
	return u, nil
}
