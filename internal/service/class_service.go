package service

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/maktab-api/internal/models"
	appErrors "github.com/noah-isme/maktab-api/pkg/errors"
)

type classRepository interface {
	List(ctx context.Context, filter models.ClassFilter) ([]models.ClassWithCount, error)
	FindByID(ctx context.Context, id string) (*models.Class, error)
	ExistsByName(ctx context.Context, name, excludeID string) (bool, error)
	Create(ctx context.Context, class *models.Class) error
	Update(ctx context.Context, class *models.Class) error
	Deactivate(ctx context.Context, id string) error
	CountActiveStudents(ctx context.Context, classID string) (int, error)
}

// ClassRequest is the create and update payload of a class.
type ClassRequest struct {
	Name   string `json:"name" validate:"required,max=100"`
	Level  int    `json:"level" validate:"gte=0,lte=99"`
	Active *bool  `json:"active"`
}

var levelDigits = regexp.MustCompile(`\d+`)

// levelFromName extracts the first integer in name, 0 when there is none.
func levelFromName(name string) int {
	match := levelDigits.FindString(name)
	if match == "" {
		return 0
	}
	level, err := strconv.Atoi(match)
	if err != nil || level > 99 {
		return 0
	}
	return level
}

// ClassService coordinates class operations.
type ClassService struct {
	repo      classRepository
	cache     cacheInvalidator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewClassService constructs a ClassService.
func NewClassService(repo classRepository, cache cacheInvalidator, validate *validator.Validate, logger *zap.Logger) *ClassService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClassService{repo: repo, cache: cache, validator: registerValidators(validate), logger: logger}
}

// List returns classes with their active student counts.
func (s *ClassService) List(ctx context.Context, filter models.ClassFilter) ([]models.ClassWithCount, error) {
	filter.Search = strings.TrimSpace(filter.Search)
	classes, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list classes")
	}
	return classes, nil
}

// Get returns a class by id.
func (s *ClassService) Get(ctx context.Context, id string) (*models.Class, error) {
	class, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Internal(err, "failed to fetch class")
	}
	return class, nil
}

// Create registers a class. A zero level is derived from the digits in the name.
func (s *ClassService) Create(ctx context.Context, req ClassRequest) (*models.Class, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid class payload")
	}
	if err := s.ensureNameFree(ctx, req.Name, ""); err != nil {
		return nil, err
	}

	class := &models.Class{Name: req.Name, Level: req.Level, Active: true}
	if class.Level == 0 {
		class.Level = levelFromName(class.Name)
	}
	if req.Active != nil {
		class.Active = *req.Active
	}
	if err := s.repo.Create(ctx, class); err != nil {
		return nil, appErrors.Internal(err, "failed to create class")
	}
	invalidateDashboard(ctx, s.cache, s.logger)
	return class, nil
}

// Update replaces the name, level and active flag of a class.
func (s *ClassService) Update(ctx context.Context, id string, req ClassRequest) (*models.Class, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid class payload")
	}
	class, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(class.Name, req.Name) {
		if err := s.ensureNameFree(ctx, req.Name, id); err != nil {
			return nil, err
		}
	}

	class.Name = req.Name
	if req.Level > 0 {
		class.Level = req.Level
	} else if class.Level == 0 {
		class.Level = levelFromName(req.Name)
	}
	if req.Active != nil {
		class.Active = *req.Active
	}
	if err := s.repo.Update(ctx, class); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Internal(err, "failed to update class")
	}
	invalidateDashboard(ctx, s.cache, s.logger)
	return class, nil
}

// Delete deactivates a class that has no active students.
func (s *ClassService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	count, err := s.repo.CountActiveStudents(ctx, id)
	if err != nil {
		return appErrors.Internal(err, "failed to count class students")
	}
	if count > 0 {
		return appErrors.Clone(appErrors.ErrConflict, "class still has active students")
	}
	if err := s.repo.Deactivate(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return appErrors.Internal(err, "failed to delete class")
	}
	invalidateDashboard(ctx, s.cache, s.logger)
	return nil
}

func (s *ClassService) ensureNameFree(ctx context.Context, name, excludeID string) error {
	exists, err := s.repo.ExistsByName(ctx, name, excludeID)
	if err != nil {
		return appErrors.Internal(err, "failed to check class name")
	}
	if exists {
		return appErrors.Clone(appErrors.ErrConflict, "class name already exists")
	}
	return nil
}
