package service

import (
	"context"
	"errors"

	"golang.org/x/crypto/bcrypt"

	"github.com/agentdesk/admin-platform/internal/apperr"
	"github.com/agentdesk/admin-platform/internal/model"
	"github.com/agentdesk/admin-platform/internal/pagination"
	"github.com/agentdesk/admin-platform/internal/permission"
	"github.com/agentdesk/admin-platform/internal/store"
	"github.com/agentdesk/admin-platform/pkg/logger"
)

// UserService handles registration, login, and user administration.
type UserService struct {
	store  *store.Store
	logger *logger.Logger
}

// NewUserService creates a user service.
func NewUserService(st *store.Store, log *logger.Logger) *UserService {
	return &UserService{store: st, logger: log}
}

// Register creates a new user. The first user in an empty database is
// promoted to admin so a fresh install is administrable; everyone after
// that starts as a regular user.
func (s *UserService) Register(ctx context.Context, name, email, password string) (*model.User, error) {
	if len(password) < 8 {
		return nil, apperr.Validation("password must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperr.Internal("failed to hash password", err)
	}

	role := model.RoleUser
	if _, total, err := s.store.Users.List(ctx, 1, 0); err == nil && total == 0 {
		role = model.RoleAdmin
	}

	user := &model.User{
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		Active:       true,
	}
	if err := s.store.Users.Create(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, apperr.Conflict("email already registered")
		}
		return nil, apperr.Internal("failed to create user", err)
	}

	s.logger.Info("user registered", "user_id", user.ID, "role", user.Role)
	return user, nil
}

// Login verifies credentials and returns the user.
func (s *UserService) Login(ctx context.Context, email, password string) (*model.User, error) {
	user, err := s.store.Users.ByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.Unauthenticated("invalid credentials")
	}
	if err != nil {
		return nil, apperr.Internal("failed to fetch user", err)
	}

	if !user.Active {
		return nil, apperr.Forbidden("account is disabled")
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, apperr.Unauthenticated("invalid credentials")
	}
	return user, nil
}

// ByID fetches one user.
func (s *UserService) ByID(ctx context.Context, id uint) (*model.User, error) {
	user, err := s.store.Users.ByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("user")
	}
	if err != nil {
		return nil, apperr.Internal("failed to fetch user", err)
	}
	return user, nil
}

// List returns users. Admin only.
func (s *UserService) List(ctx context.Context, p permission.Principal, params pagination.Params) ([]model.User, pagination.Response, error) {
	if !permission.IsAdmin(p) {
		return nil, pagination.Response{}, apperr.Forbidden("admin role required")
	}

	users, total, err := s.store.Users.List(ctx, params.Limit, params.Offset)
	if err != nil {
		return nil, pagination.Response{}, apperr.Internal("failed to list users", err)
	}
	return users, pagination.NewResponse(total, params), nil
}

// Update applies admin changes to a user: name, role, and active flag.
// Promoting a second user to admin fails on the store's unique admin
// slot, so the single-admin invariant cannot race.
func (s *UserService) Update(ctx context.Context, p permission.Principal, id uint, name string, role model.Role, active bool) (*model.User, error) {
	if !permission.IsAdmin(p) {
		return nil, apperr.Forbidden("admin role required")
	}
	if role != model.RoleAdmin && role != model.RoleUser {
		return nil, apperr.Validation("role must be admin or user")
	}

	user, err := s.ByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if user.IsAdmin() && role != model.RoleAdmin && p.ID == id {
		return nil, apperr.Conflict("cannot demote the only admin")
	}

	if name != "" {
		user.Name = name
	}
	user.Role = role
	user.Active = active

	if err := s.store.Users.Update(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, apperr.Conflict("an admin already exists")
		}
		return nil, apperr.Internal("failed to update user", err)
	}
	return user, nil
}
