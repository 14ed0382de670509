package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/maktab-api/internal/models"
	appErrors "github.com/noah-isme/maktab-api/pkg/errors"
)

type userRepository interface {
	List(ctx context.Context) ([]models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	UpdatePassword(ctx context.Context, id, hash string) error
}

// CreateUserRequest represents payload for creating users.
type CreateUserRequest struct {
	Username string          `json:"username" validate:"required,min=3,max=50,alphanum"`
	FullName string          `json:"full_name" validate:"required,max=100"`
	Role     models.UserRole `json:"role" validate:"required,oneof=ADMIN TEACHER"`
	Active   *bool           `json:"active"`
	Password string          `json:"password" validate:"required,min=6"`
}

// UpdateUserRequest payload for updating users. A non-empty Password resets it.
type UpdateUserRequest struct {
	FullName string          `json:"full_name" validate:"required,max=100"`
	Role     models.UserRole `json:"role" validate:"required,oneof=ADMIN TEACHER"`
	Active   *bool           `json:"active"`
	Password string          `json:"password" validate:"omitempty,min=6"`
}

// UserService handles user management workflows.
type UserService struct {
	repo      userRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUserService creates an instance of UserService.
func NewUserService(repo userRepository, validate *validator.Validate, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{repo: repo, validator: registerValidators(validate), logger: logger}
}

// List returns every account.
func (s *UserService) List(ctx context.Context) ([]models.User, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list users")
	}
	if users == nil {
		users = []models.User{}
	}
	return users, nil
}

// Get returns a user by id.
func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Internal(err, "failed to fetch user")
	}
	return user, nil
}

// Create registers a new account.
func (s *UserService) Create(ctx context.Context, req CreateUserRequest) (*models.User, error) {
	req.Username = strings.ToLower(strings.TrimSpace(req.Username))
	req.FullName = strings.TrimSpace(req.FullName)
	req.Role = models.UserRole(strings.ToUpper(strings.TrimSpace(string(req.Role))))
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid user payload")
	}

	if _, err := s.repo.FindByUsername(ctx, req.Username); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "username already exists")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Internal(err, "failed to check username")
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to hash password")
	}
	user := &models.User{
		Username:     req.Username,
		FullName:     req.FullName,
		PasswordHash: hash,
		Role:         req.Role,
		Active:       true,
	}
	if req.Active != nil {
		user.Active = *req.Active
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, appErrors.Internal(err, "failed to create user")
	}
	s.logger.Info("user created", zap.String("user_id", user.ID), zap.String("username", user.Username), zap.String("role", string(user.Role)))
	return user, nil
}

// Update modifies profile, role, status and optionally the password.
func (s *UserService) Update(ctx context.Context, id string, req UpdateUserRequest) (*models.User, error) {
	req.FullName = strings.TrimSpace(req.FullName)
	req.Role = models.UserRole(strings.ToUpper(strings.TrimSpace(string(req.Role))))
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid user payload")
	}
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	user.FullName = req.FullName
	user.Role = req.Role
	if req.Active != nil {
		user.Active = *req.Active
	}
	if err := s.repo.Update(ctx, user); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Internal(err, "failed to update user")
	}
	if req.Password != "" {
		if err := s.setPassword(ctx, user.ID, req.Password); err != nil {
			return nil, err
		}
	}
	return user, nil
}

// ResetPassword replaces the password of the account named username.
func (s *UserService) ResetPassword(ctx context.Context, username, password string) error {
	if len(password) < 6 {
		return appErrors.Clone(appErrors.ErrValidation, "password must be at least 6 characters")
	}
	user, err := s.repo.FindByUsername(ctx, strings.ToLower(strings.TrimSpace(username)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return appErrors.Internal(err, "failed to fetch user")
	}
	return s.setPassword(ctx, user.ID, password)
}

func (s *UserService) setPassword(ctx context.Context, id, password string) error {
	hash, err := HashPassword(password)
	if err != nil {
		return appErrors.Internal(err, "failed to hash password")
	}
	if err := s.repo.UpdatePassword(ctx, id, hash); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return appErrors.Internal(err, "failed to update password")
	}
	return nil
}
