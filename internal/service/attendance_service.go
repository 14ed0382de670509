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
	"github.com/noah-isme/maktab-api/internal/repository"
	appErrors "github.com/noah-isme/maktab-api/pkg/errors"
)

type attendanceRepository interface {
	Roster(ctx context.Context, classID string) ([]models.AttendanceRow, error)
	List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, error)
	Summary(ctx context.Context, filter models.AttendanceFilter) (models.AttendanceSummary, error)
	SaveDays(ctx context.Context, days []repository.AttendanceDay) (int, error)
	Upsert(ctx context.Context, rec *models.AttendanceRecord) error
}

type holidayLookup interface {
	Find(ctx context.Context, date models.Date) (*models.Holiday, error)
}

type studentFinder interface {
	FindByID(ctx context.Context, id string) (*models.StudentDetail, error)
}

// AttendanceEntry is one submitted status.
type AttendanceEntry struct {
	StudentID string `json:"student_id" validate:"required"`
	Status    string `json:"status" validate:"required,attendance_status"`
	Reason    string `json:"reason" validate:"max=255"`
}

// AttendanceDayRequest is the attendance of one date inside a snapshot.
type AttendanceDayRequest struct {
	Date    string            `json:"date" validate:"required,ymd"`
	Records []AttendanceEntry `json:"records" validate:"dive"`
}

// SaveAttendanceRequest replaces the stored attendance of the scoped students.
// Either Date with Records or Snapshot carries the data.
type SaveAttendanceRequest struct {
	Date     string                 `json:"date" validate:"omitempty,ymd"`
	ClassID  string                 `json:"class_id"`
	Records  []AttendanceEntry      `json:"records" validate:"dive"`
	Snapshot []AttendanceDayRequest `json:"snapshot" validate:"dive"`
}

// SaveAttendanceResult reports what a bulk save stored.
type SaveAttendanceResult struct {
	Saved int      `json:"saved"`
	Dates []string `json:"dates"`
}

// UpsertAttendanceRequest sets one student's status for one date.
type UpsertAttendanceRequest struct {
	Status string `json:"status" validate:"required,attendance_status"`
	Reason string `json:"reason" validate:"max=255"`
}

// AttendanceService implements daily attendance.
type AttendanceService struct {
	repo      attendanceRepository
	holidays  holidayLookup
	students  studentFinder
	cache     cacheInvalidator
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAttendanceService constructs an AttendanceService.
func NewAttendanceService(repo attendanceRepository, holidays holidayLookup, students studentFinder, cache cacheInvalidator, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *AttendanceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttendanceService{
		repo:      repo,
		holidays:  holidays,
		students:  students,
		cache:     cache,
		metrics:   metrics,
		validator: registerValidators(validate),
		logger:    logger,
	}
}

// Sheet returns one row per active student for date. Students without a
// stored record are shown present unless the date is a holiday.
func (s *AttendanceService) Sheet(ctx context.Context, rawDate, classID string) (*models.AttendanceSheet, error) {
	date := models.Today()
	if parsed, err := parseOptionalDate(rawDate, "date"); err != nil {
		return nil, err
	} else if parsed != nil {
		date = *parsed
	}

	holiday, err := s.holidays.Find(ctx, date)
	if err != nil {
		return nil, err
	}
	roster, err := s.repo.Roster(ctx, classID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load students")
	}
	stored, err := s.repo.List(ctx, models.AttendanceFilter{ClassID: classID, DateRange: models.DateRange{From: &date, To: &date}})
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load attendance")
	}

	byStudent := make(map[string]models.AttendanceRecord, len(stored))
	for _, rec := range stored {
		byStudent[rec.StudentID] = rec
	}
	rows := make([]models.AttendanceRow, 0, len(roster))
	for _, row := range roster {
		if rec, ok := byStudent[row.StudentID]; ok {
			row.Status = rec.Status
			row.Reason = rec.Reason
			row.Stored = true
		} else {
			row.Stored = false
			row.Reason = ""
			row.Status = ""
			if holiday == nil {
				row.Status = models.AttendancePresent
			}
		}
		rows = append(rows, row)
	}

	return &models.AttendanceSheet{Date: date, ClassID: classID, Holiday: holiday, Records: rows}, nil
}

// Save replaces the attendance of every submitted date for the active
// students in scope (one class, or everyone) inside a single transaction.
func (s *AttendanceService) Save(ctx context.Context, req SaveAttendanceRequest) (*SaveAttendanceResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid attendance payload")
	}
	submitted := req.Snapshot
	if len(submitted) == 0 {
		if strings.TrimSpace(req.Date) == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "date is required")
		}
		submitted = []AttendanceDayRequest{{Date: req.Date, Records: req.Records}}
	}

	roster, err := s.repo.Roster(ctx, req.ClassID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load students")
	}
	scope := make([]string, 0, len(roster))
	inScope := make(map[string]struct{}, len(roster))
	for _, row := range roster {
		scope = append(scope, row.StudentID)
		inScope[row.StudentID] = struct{}{}
	}

	days := make([]repository.AttendanceDay, 0, len(submitted))
	dates := make([]string, 0, len(submitted))
	seenDates := make(map[string]struct{}, len(submitted))
	for _, day := range submitted {
		date, err := models.ParseDate(day.Date)
		if err != nil {
			return nil, appErrors.Validation(err, "invalid date")
		}
		if _, dup := seenDates[date.String()]; dup {
			return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("date %s submitted twice", date))
		}
		seenDates[date.String()] = struct{}{}

		holiday, err := s.holidays.Find(ctx, date)
		if err != nil {
			return nil, err
		}
		if holiday != nil {
			return nil, appErrors.Clone(appErrors.ErrHoliday, fmt.Sprintf("%s is a holiday (%s)", date, holiday.Name))
		}

		records, err := buildDayRecords(day.Records, inScope)
		if err != nil {
			return nil, err
		}
		days = append(days, repository.AttendanceDay{Date: date, StudentIDs: scope, Records: records})
		dates = append(dates, date.String())
	}

	saved, err := s.repo.SaveDays(ctx, days)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to save attendance")
	}
	s.metrics.AddAttendanceSaved(saved)
	s.logger.Info("attendance saved", zap.Strings("dates", dates), zap.String("class_id", req.ClassID), zap.Int("records", saved))
	invalidateDashboard(ctx, s.cache, s.logger)
	return &SaveAttendanceResult{Saved: saved, Dates: dates}, nil
}

func buildDayRecords(entries []AttendanceEntry, inScope map[string]struct{}) ([]models.AttendanceRecord, error) {
	records := make([]models.AttendanceRecord, 0, len(entries))
	seen := make(map[string]struct{}, len(entries))
	for _, entry := range entries {
		studentID := strings.TrimSpace(entry.StudentID)
		if _, dup := seen[studentID]; dup {
			return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("student %s appears more than once", studentID))
		}
		seen[studentID] = struct{}{}
		if _, ok := inScope[studentID]; !ok {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("student %s is not an active student in scope", studentID))
		}
		records = append(records, models.AttendanceRecord{
			StudentID: studentID,
			Status:    models.AttendanceStatus(strings.ToLower(strings.TrimSpace(entry.Status))),
			Reason:    strings.TrimSpace(entry.Reason),
		})
	}
	return records, nil
}

// Upsert stores a single student's status for a date.
func (s *AttendanceService) Upsert(ctx context.Context, studentID, rawDate string, req UpsertAttendanceRequest) (*models.AttendanceRecord, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid attendance payload")
	}
	date, err := models.ParseDate(rawDate)
	if err != nil {
		return nil, appErrors.Validation(err, "invalid date, expected YYYY-MM-DD")
	}
	if err := s.ensureStudent(ctx, studentID); err != nil {
		return nil, err
	}
	holiday, err := s.holidays.Find(ctx, date)
	if err != nil {
		return nil, err
	}
	if holiday != nil {
		return nil, appErrors.Clone(appErrors.ErrHoliday, fmt.Sprintf("%s is a holiday (%s)", date, holiday.Name))
	}

	rec := &models.AttendanceRecord{
		StudentID: studentID,
		Date:      date,
		Status:    models.AttendanceStatus(strings.ToLower(strings.TrimSpace(req.Status))),
		Reason:    strings.TrimSpace(req.Reason),
	}
	if err := s.repo.Upsert(ctx, rec); err != nil {
		return nil, appErrors.Internal(err, "failed to save attendance")
	}
	s.metrics.AddAttendanceSaved(1)
	invalidateDashboard(ctx, s.cache, s.logger)
	return rec, nil
}

// StudentHistory returns a student's stored records and status counts.
func (s *AttendanceService) StudentHistory(ctx context.Context, studentID, rawFrom, rawTo string) (*models.StudentAttendance, error) {
	from, err := parseOptionalDate(rawFrom, "from")
	if err != nil {
		return nil, err
	}
	to, err := parseOptionalDate(rawTo, "to")
	if err != nil {
		return nil, err
	}
	if from != nil && to != nil && to.Before(from.Time) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "to must not be before from")
	}
	if err := s.ensureStudent(ctx, studentID); err != nil {
		return nil, err
	}

	filter := models.AttendanceFilter{StudentID: studentID, DateRange: models.DateRange{From: from, To: to}}
	records, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load attendance")
	}
	summary, err := s.repo.Summary(ctx, filter)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to summarise attendance")
	}
	summary.Percentage = models.CompletionPercent(summary.Present, summary.Total)
	if records == nil {
		records = []models.AttendanceRecord{}
	}
	return &models.StudentAttendance{StudentID: studentID, From: from, To: to, Records: records, Summary: summary}, nil
}

func (s *AttendanceService) ensureStudent(ctx context.Context, studentID string) error {
	if _, err := s.students.FindByID(ctx, studentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return appErrors.Internal(err, "failed to load student")
	}
	return nil
}
