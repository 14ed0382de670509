package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/maktab-api/internal/dto"
	"github.com/noah-isme/maktab-api/internal/models"
	appErrors "github.com/noah-isme/maktab-api/pkg/errors"
)

type dashboardStats interface {
	Totals(ctx context.Context) (dto.DashboardTotals, error)
	ClassCounts(ctx context.Context) ([]dto.ClassStudentCount, error)
	EducationOverview(ctx context.Context) (dto.DashboardEducation, error)
}

type attendanceSummarizer interface {
	Summary(ctx context.Context, filter models.AttendanceFilter) (models.AttendanceSummary, error)
}

type holidayCalendar interface {
	Upcoming(ctx context.Context, from, to models.Date, limit int) ([]models.Holiday, error)
	FindByDate(ctx context.Context, date models.Date) (*models.Holiday, error)
}

type dashboardCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// DashboardServiceConfig tunes dashboard behaviour.
type DashboardServiceConfig struct {
	CacheTTL           time.Duration
	UpcomingWindowDays int
	UpcomingLimit      int
}

// DashboardServiceParams groups constructor dependencies.
type DashboardServiceParams struct {
	Stats      dashboardStats
	Attendance attendanceSummarizer
	Holidays   holidayCalendar
	Cache      dashboardCache
	Metrics    *MetricsService
	Logger     *zap.Logger
	Config     DashboardServiceConfig
}

// DashboardService composes the admin overview.
type DashboardService struct {
	stats      dashboardStats
	attendance attendanceSummarizer
	holidays   holidayCalendar
	cache      dashboardCache
	metrics    *MetricsService
	logger     *zap.Logger
	cfg        DashboardServiceConfig
}

// NewDashboardService constructs a DashboardService with sane defaults.
func NewDashboardService(params DashboardServiceParams) *DashboardService {
	cfg := params.Config
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	if cfg.UpcomingWindowDays <= 0 {
		cfg.UpcomingWindowDays = 30
	}
	if cfg.UpcomingLimit <= 0 {
		cfg.UpcomingLimit = 5
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		stats:      params.Stats,
		attendance: params.Attendance,
		holidays:   params.Holidays,
		cache:      params.Cache,
		metrics:    params.Metrics,
		logger:     logger,
		cfg:        cfg,
	}
}

// dashboardCacheKey is the cache key of the dashboard for date.
func dashboardCacheKey(date models.Date) string {
	return fmt.Sprintf("dash:%s", date)
}

// Get returns the dashboard for rawDate (default today) and whether it came from cache.
func (s *DashboardService) Get(ctx context.Context, rawDate string) (*dto.DashboardResponse, bool, error) {
	date := models.Today()
	if parsed, err := parseOptionalDate(rawDate, "date"); err != nil {
		return nil, false, err
	} else if parsed != nil {
		date = *parsed
	}

	key := dashboardCacheKey(date)
	if cached, hit := s.tryCache(ctx, key); hit {
		return cached, true, nil
	}

	summary, err := s.compose(ctx, date)
	if err != nil {
		return nil, false, err
	}
	s.persistCache(ctx, key, summary)
	return summary, false, nil
}

func (s *DashboardService) tryCache(ctx context.Context, key string) (*dto.DashboardResponse, bool) {
	if s.cache == nil {
		return nil, false
	}
	var cached dto.DashboardResponse
	hit, err := s.cache.Get(ctx, key, &cached)
	if err != nil {
		s.logger.Warn("dashboard cache read failed", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	if !hit {
		return nil, false
	}
	return &cached, true
}

func (s *DashboardService) persistCache(ctx context.Context, key string, value interface{}) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, value, s.cfg.CacheTTL); err != nil {
		s.logger.Warn("dashboard cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func (s *DashboardService) compose(ctx context.Context, date models.Date) (*dto.DashboardResponse, error) {
	start := time.Now()
	defer func() { s.metrics.ObserveDBQuery("dashboard", time.Since(start)) }()

	totals, err := s.stats.Totals(ctx)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to count totals")
	}
	classes, err := s.stats.ClassCounts(ctx)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to count class students")
	}
	education, err := s.stats.EducationOverview(ctx)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to summarise education progress")
	}
	summary, err := s.attendance.Summary(ctx, models.AttendanceFilter{ActiveOnly: true, DateRange: models.DateRange{From: &date, To: &date}})
	if err != nil {
		return nil, appErrors.Internal(err, "failed to summarise attendance")
	}

	holiday, err := s.holidays.FindByDate(ctx, date)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Internal(err, "failed to check holiday")
		}
		holiday = nil
	}
	upcoming, err := s.holidays.Upcoming(ctx, date, date.AddDays(s.cfg.UpcomingWindowDays), s.cfg.UpcomingLimit)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list upcoming holidays")
	}
	if upcoming == nil {
		upcoming = []models.Holiday{}
	}
	if classes == nil {
		classes = []dto.ClassStudentCount{}
	}

	return &dto.DashboardResponse{
		Date:             date,
		Totals:           totals,
		Classes:          classes,
		Attendance:       dailyAttendance(summary, totals.ActiveStudents, holiday != nil),
		UpcomingHolidays: upcoming,
		Education:        education,
		Holiday:          holiday,
	}, nil
}

// dailyAttendance derives the day's figures. Unmarked students count as present
// for the rate, matching the default-filled sheet, except on holidays.
func dailyAttendance(summary models.AttendanceSummary, activeStudents int, holiday bool) dto.DashboardAttendance {
	marked := summary.Present + summary.Absent + summary.Leave
	unmarked := activeStudents - marked
	if unmarked < 0 {
		unmarked = 0
	}
	out := dto.DashboardAttendance{
		Present:  summary.Present,
		Absent:   summary.Absent,
		Leave:    summary.Leave,
		Unmarked: unmarked,
	}
	if holiday {
		return out
	}
	out.Rate = models.CompletionPercent(summary.Present+unmarked, marked+unmarked)
	return out
}
