package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/maktab-api/internal/models"
	appErrors "github.com/noah-isme/maktab-api/pkg/errors"
)

type educationRepository interface {
	List(ctx context.Context, classID string) ([]models.EducationProgress, error)
	FindByID(ctx context.Context, id string) (*models.EducationProgress, error)
	Upsert(ctx context.Context, row *models.EducationProgress) error
	Update(ctx context.Context, row *models.EducationProgress) error
	Delete(ctx context.Context, id string) error
}

type bookFinder interface {
	FindByID(ctx context.Context, id string) (*models.Book, error)
}

// EducationRequest records progress on a book. With BookID set, subject, book
// name and total pages default from the book.
type EducationRequest struct {
	ClassID        string  `json:"class_id" validate:"required"`
	BookID         *string `json:"book_id"`
	Subject        string  `json:"subject" validate:"max=100"`
	BookName       string  `json:"book_name" validate:"max=200"`
	TotalPages     int     `json:"total_pages" validate:"gte=0"`
	CompletedPages int     `json:"completed_pages" validate:"gte=0"`
	Notes          string  `json:"notes" validate:"max=1000"`
	LastUpdated    string  `json:"last_updated" validate:"omitempty,ymd"`
}

// EducationService tracks pages completed per book per class.
type EducationService struct {
	repo      educationRepository
	classes   classFinder
	books     bookFinder
	cache     cacheInvalidator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewEducationService constructs an EducationService.
func NewEducationService(repo educationRepository, classes classFinder, books bookFinder, cache cacheInvalidator, validate *validator.Validate, logger *zap.Logger) *EducationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EducationService{
		repo:      repo,
		classes:   classes,
		books:     books,
		cache:     cache,
		validator: registerValidators(validate),
		logger:    logger,
	}
}

// List returns progress rows with their completion percentage.
func (s *EducationService) List(ctx context.Context, classID string) ([]models.EducationProgress, error) {
	rows, err := s.repo.List(ctx, strings.TrimSpace(classID))
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list education progress")
	}
	out := make([]models.EducationProgress, len(rows))
	for i, row := range rows {
		out[i] = row.WithPercentage()
	}
	return out, nil
}

// Get returns a progress row.
func (s *EducationService) Get(ctx context.Context, id string) (*models.EducationProgress, error) {
	row, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "education progress not found")
		}
		return nil, appErrors.Internal(err, "failed to fetch education progress")
	}
	withPct := row.WithPercentage()
	return &withPct, nil
}

// Save creates the row for class and book name or updates the existing one.
func (s *EducationService) Save(ctx context.Context, req EducationRequest) (*models.EducationProgress, error) {
	row := &models.EducationProgress{}
	if err := s.apply(ctx, row, req); err != nil {
		return nil, err
	}
	if err := s.repo.Upsert(ctx, row); err != nil {
		return nil, appErrors.Internal(err, "failed to save education progress")
	}
	invalidateDashboard(ctx, s.cache, s.logger)
	saved := row.WithPercentage()
	return &saved, nil
}

// Update edits a progress row by id.
func (s *EducationService) Update(ctx context.Context, id string, req EducationRequest) (*models.EducationProgress, error) {
	row, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "education progress not found")
		}
		return nil, appErrors.Internal(err, "failed to fetch education progress")
	}
	if err := s.apply(ctx, row, req); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, row); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "education progress not found")
		}
		return nil, appErrors.Internal(err, "failed to update education progress")
	}
	invalidateDashboard(ctx, s.cache, s.logger)
	return s.Get(ctx, id)
}

// Delete removes a progress row.
func (s *EducationService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "education progress not found")
		}
		return appErrors.Internal(err, "failed to delete education progress")
	}
	invalidateDashboard(ctx, s.cache, s.logger)
	return nil
}

func (s *EducationService) apply(ctx context.Context, row *models.EducationProgress, req EducationRequest) error {
	req.ClassID = strings.TrimSpace(req.ClassID)
	req.Subject = strings.TrimSpace(req.Subject)
	req.BookName = strings.TrimSpace(req.BookName)
	req.Notes = strings.TrimSpace(req.Notes)
	if err := s.validator.Struct(req); err != nil {
		return validationError(err, "invalid education payload")
	}
	if _, err := s.classes.FindByID(ctx, req.ClassID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return appErrors.Internal(err, "failed to load class")
	}

	row.ClassID = req.ClassID
	row.BookID = nil
	row.Subject = req.Subject
	row.BookName = req.BookName
	row.TotalPages = req.TotalPages
	if req.BookID != nil && strings.TrimSpace(*req.BookID) != "" {
		book, err := s.books.FindByID(ctx, strings.TrimSpace(*req.BookID))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrNotFound, "book not found")
			}
			return appErrors.Internal(err, "failed to load book")
		}
		bookID := book.ID
		row.BookID = &bookID
		if row.Subject == "" {
			row.Subject = book.Subject
		}
		if row.BookName == "" {
			row.BookName = book.Title
		}
		if row.TotalPages == 0 {
			row.TotalPages = book.TotalPages
		}
	}

	if row.BookName == "" {
		return appErrors.Clone(appErrors.ErrValidation, "book_name is required")
	}
	if row.TotalPages <= 0 {
		return appErrors.Clone(appErrors.ErrValidation, "total_pages must be greater than zero")
	}
	if req.CompletedPages > row.TotalPages {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("completed_pages cannot exceed total_pages (%d)", row.TotalPages))
	}
	row.CompletedPages = req.CompletedPages
	row.Notes = req.Notes
	row.LastUpdated = models.Today()
	if req.LastUpdated != "" {
		if d, err := models.ParseDate(req.LastUpdated); err == nil {
			row.LastUpdated = d
		}
	}
	return nil
}
