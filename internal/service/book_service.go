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

type bookRepository interface {
	List(ctx context.Context, filter models.BookFilter) ([]models.Book, error)
	FindByID(ctx context.Context, id string) (*models.Book, error)
	ExistsTitle(ctx context.Context, classID, title, excludeID string) (bool, error)
	Create(ctx context.Context, book *models.Book) error
	Update(ctx context.Context, book *models.Book) error
	Deactivate(ctx context.Context, id string) error
}

// BookRequest is the create and update payload of a book.
type BookRequest struct {
	ClassID     string `json:"class_id" validate:"required"`
	Subject     string `json:"subject" validate:"max=100"`
	Title       string `json:"title" validate:"required,max=200"`
	TotalPages  int    `json:"total_pages" validate:"gt=0"`
	Description string `json:"description" validate:"max=1000"`
	Active      *bool  `json:"active"`
}

// BookService manages the book catalogue.
type BookService struct {
	repo      bookRepository
	classes   classFinder
	cache     cacheInvalidator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewBookService constructs a BookService.
func NewBookService(repo bookRepository, classes classFinder, cache cacheInvalidator, validate *validator.Validate, logger *zap.Logger) *BookService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BookService{repo: repo, classes: classes, cache: cache, validator: registerValidators(validate), logger: logger}
}

// List returns books matching filter.
func (s *BookService) List(ctx context.Context, filter models.BookFilter) ([]models.Book, error) {
	books, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list books")
	}
	if books == nil {
		books = []models.Book{}
	}
	return books, nil
}

// Get returns a book by id.
func (s *BookService) Get(ctx context.Context, id string) (*models.Book, error) {
	book, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "book not found")
		}
		return nil, appErrors.Internal(err, "failed to fetch book")
	}
	return book, nil
}

// Create adds a book to a class.
func (s *BookService) Create(ctx context.Context, req BookRequest) (*models.Book, error) {
	req = trimBookRequest(req)
	if err := s.validate(ctx, req, ""); err != nil {
		return nil, err
	}
	book := &models.Book{
		ClassID:     req.ClassID,
		Subject:     req.Subject,
		Title:       req.Title,
		TotalPages:  req.TotalPages,
		Description: req.Description,
		Active:      true,
	}
	if req.Active != nil {
		book.Active = *req.Active
	}
	if err := s.repo.Create(ctx, book); err != nil {
		return nil, appErrors.Internal(err, "failed to create book")
	}
	invalidateDashboard(ctx, s.cache, s.logger)
	return s.Get(ctx, book.ID)
}

// Update edits a book.
func (s *BookService) Update(ctx context.Context, id string, req BookRequest) (*models.Book, error) {
	req = trimBookRequest(req)
	book, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.validate(ctx, req, id); err != nil {
		return nil, err
	}
	book.ClassID = req.ClassID
	book.Subject = req.Subject
	book.Title = req.Title
	book.TotalPages = req.TotalPages
	book.Description = req.Description
	if req.Active != nil {
		book.Active = *req.Active
	}
	if err := s.repo.Update(ctx, book); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "book not found")
		}
		return nil, appErrors.Internal(err, "failed to update book")
	}
	invalidateDashboard(ctx, s.cache, s.logger)
	return s.Get(ctx, id)
}

// Delete deactivates a book.
func (s *BookService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Deactivate(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "book not found")
		}
		return appErrors.Internal(err, "failed to delete book")
	}
	invalidateDashboard(ctx, s.cache, s.logger)
	return nil
}

func (s *BookService) validate(ctx context.Context, req BookRequest, excludeID string) error {
	if err := s.validator.Struct(req); err != nil {
		return validationError(err, "invalid book payload")
	}
	if _, err := s.classes.FindByID(ctx, req.ClassID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return appErrors.Internal(err, "failed to load class")
	}
	exists, err := s.repo.ExistsTitle(ctx, req.ClassID, req.Title, excludeID)
	if err != nil {
		return appErrors.Internal(err, "failed to check book title")
	}
	if exists {
		return appErrors.Clone(appErrors.ErrConflict, "class already has a book with this title")
	}
	return nil
}

func trimBookRequest(req BookRequest) BookRequest {
	req.ClassID = strings.TrimSpace(req.ClassID)
	req.Subject = strings.TrimSpace(req.Subject)
	req.Title = strings.TrimSpace(req.Title)
	req.Description = strings.TrimSpace(req.Description)
	return req
}
