package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/maktab-api/internal/models"
	appErrors "github.com/noah-isme/maktab-api/pkg/errors"
)

type holidayRepository interface {
	List(ctx context.Context, rng models.DateRange) ([]models.Holiday, error)
	FindByID(ctx context.Context, id string) (*models.Holiday, error)
	FindByDate(ctx context.Context, date models.Date) (*models.Holiday, error)
	Upsert(ctx context.Context, holiday *models.Holiday) error
	Update(ctx context.Context, holiday *models.Holiday) error
	Delete(ctx context.Context, id string) error
}

// HolidayRequest creates or edits a holiday.
type HolidayRequest struct {
	Date        string `json:"date" validate:"required,ymd"`
	Name        string `json:"name" validate:"required,max=150"`
	Description string `json:"description" validate:"max=500"`
}

// HolidayQuery filters the holiday calendar. Year wins over From/To when set.
type HolidayQuery struct {
	From string
	To   string
	Year int
}

// HolidayService manages the holiday calendar.
type HolidayService struct {
	repo      holidayRepository
	cache     cacheInvalidator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewHolidayService constructs a HolidayService.
func NewHolidayService(repo holidayRepository, cache cacheInvalidator, validate *validator.Validate, logger *zap.Logger) *HolidayService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HolidayService{repo: repo, cache: cache, validator: registerValidators(validate), logger: logger}
}

// List returns holidays in the requested window ordered by date.
func (s *HolidayService) List(ctx context.Context, q HolidayQuery) ([]models.Holiday, error) {
	var rng models.DateRange
	if q.Year > 0 {
		from := models.NewDate(time.Date(q.Year, time.January, 1, 0, 0, 0, 0, time.UTC))
		to := models.NewDate(time.Date(q.Year, time.December, 31, 0, 0, 0, 0, time.UTC))
		rng = models.DateRange{From: &from, To: &to}
	} else {
		var err error
		if rng.From, err = parseOptionalDate(q.From, "from"); err != nil {
			return nil, err
		}
		if rng.To, err = parseOptionalDate(q.To, "to"); err != nil {
			return nil, err
		}
		if rng.From != nil && rng.To != nil && rng.To.Before(rng.From.Time) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "to must not be before from")
		}
	}
	holidays, err := s.repo.List(ctx, rng)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list holidays")
	}
	if holidays == nil {
		holidays = []models.Holiday{}
	}
	return holidays, nil
}

// Create stores a holiday, replacing name and description of an existing one on the same date.
func (s *HolidayService) Create(ctx context.Context, req HolidayRequest) (*models.Holiday, error) {
	holiday, err := s.fromRequest(req)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Upsert(ctx, holiday); err != nil {
		return nil, appErrors.Internal(err, "failed to save holiday")
	}
	invalidateDashboard(ctx, s.cache, s.logger)
	return holiday, nil
}

// Update edits a holiday. Moving it onto a date that already has a holiday is a conflict.
func (s *HolidayService) Update(ctx context.Context, id string, req HolidayRequest) (*models.Holiday, error) {
	changes, err := s.fromRequest(req)
	if err != nil {
		return nil, err
	}
	holiday, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "holiday not found")
		}
		return nil, appErrors.Internal(err, "failed to fetch holiday")
	}
	if !holiday.Date.Equal(changes.Date.Time) {
		other, err := s.repo.FindByDate(ctx, changes.Date)
		switch {
		case err == nil && other.ID != id:
			return nil, appErrors.Clone(appErrors.ErrConflict, "another holiday exists on "+changes.Date.String())
		case err != nil && !errors.Is(err, sql.ErrNoRows):
			return nil, appErrors.Internal(err, "failed to check holiday date")
		}
	}

	holiday.Date = changes.Date
	holiday.Name = changes.Name
	holiday.Description = changes.Description
	if err := s.repo.Update(ctx, holiday); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "holiday not found")
		}
		return nil, appErrors.Internal(err, "failed to update holiday")
	}
	invalidateDashboard(ctx, s.cache, s.logger)
	return holiday, nil
}

// Delete removes a holiday.
func (s *HolidayService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "holiday not found")
		}
		return appErrors.Internal(err, "failed to delete holiday")
	}
	invalidateDashboard(ctx, s.cache, s.logger)
	return nil
}

// Check reports whether raw (YYYY-MM-DD, default today) is a holiday.
func (s *HolidayService) Check(ctx context.Context, raw string) (*models.HolidayCheck, error) {
	date := models.Today()
	if parsed, err := parseOptionalDate(raw, "date"); err != nil {
		return nil, err
	} else if parsed != nil {
		date = *parsed
	}
	holiday, err := s.Find(ctx, date)
	if err != nil {
		return nil, err
	}
	check := &models.HolidayCheck{Date: date}
	if holiday != nil {
		check.Holiday = true
		check.Name = holiday.Name
	}
	return check, nil
}

// Find returns the holiday on date or nil.
func (s *HolidayService) Find(ctx context.Context, date models.Date) (*models.Holiday, error) {
	holiday, err := s.repo.FindByDate(ctx, date)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, appErrors.Internal(err, "failed to check holiday")
	}
	return holiday, nil
}

func (s *HolidayService) fromRequest(req HolidayRequest) (*models.Holiday, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Description = strings.TrimSpace(req.Description)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid holiday payload")
	}
	date, err := models.ParseDate(req.Date)
	if err != nil {
		return nil, appErrors.Validation(err, "invalid date")
	}
	return &models.Holiday{Date: date, Name: req.Name, Description: req.Description}, nil
}
