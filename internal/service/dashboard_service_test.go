package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/maktab-api/internal/dto"
	"github.com/noah-isme/maktab-api/internal/models"
)

type fakeDashboardStats struct {
	totals    dto.DashboardTotals
	classes   []dto.ClassStudentCount
	education dto.DashboardEducation
	calls     int
	err       error
}

func (f *fakeDashboardStats) Totals(context.Context) (dto.DashboardTotals, error) {
	f.calls++
	return f.totals, f.err
}

func (f *fakeDashboardStats) ClassCounts(context.Context) ([]dto.ClassStudentCount, error) {
	return f.classes, nil
}

func (f *fakeDashboardStats) EducationOverview(context.Context) (dto.DashboardEducation, error) {
	return f.education, nil
}

type fakeSummarizer struct {
	summary models.AttendanceSummary
	// inactive holds records of deactivated students, dropped by ActiveOnly.
	inactive models.AttendanceSummary
	filter   models.AttendanceFilter
}

func (f *fakeSummarizer) Summary(_ context.Context, filter models.AttendanceFilter) (models.AttendanceSummary, error) {
	f.filter = filter
	out := f.summary
	if !filter.ActiveOnly {
		out.Present += f.inactive.Present
		out.Absent += f.inactive.Absent
		out.Leave += f.inactive.Leave
		out.Total += f.inactive.Total
	}
	return out, nil
}

type fakeCalendar struct {
	holidays map[string]models.Holiday
	window   [2]models.Date
}

func (f *fakeCalendar) Upcoming(_ context.Context, from, to models.Date, limit int) ([]models.Holiday, error) {
	f.window = [2]models.Date{from, to}
	var out []models.Holiday
	for _, h := range f.holidays {
		if !h.Date.Before(from.Time) && !h.Date.After(to.Time) && len(out) < limit {
			out = append(out, h)
		}
	}
	return out, nil
}

func (f *fakeCalendar) FindByDate(_ context.Context, date models.Date) (*models.Holiday, error) {
	h, ok := f.holidays[date.String()]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &h, nil
}

type memoryCache struct {
	items   map[string][]byte
	ttl     time.Duration
	readErr error
}

func (m *memoryCache) Get(_ context.Context, key string, dest interface{}) (bool, error) {
	if m.readErr != nil {
		return false, m.readErr
	}
	raw, ok := m.items[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dest)
}

func (m *memoryCache) Set(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.items[key] = raw
	m.ttl = ttl
	return nil
}

func newDashboardFixture(t *testing.T) (*DashboardService, *fakeDashboardStats, *fakeSummarizer, *fakeCalendar, *memoryCache) {
	stats := &fakeDashboardStats{
		totals:    dto.DashboardTotals{ActiveStudents: 10, InactiveStudents: 2, Classes: 2, Books: 3},
		classes:   []dto.ClassStudentCount{{ClassID: "c1", ClassName: "Class 1", Level: 1, Students: 10}},
		education: dto.DashboardEducation{Books: 3, AverageCompletion: 42.5},
	}
	summarizer := &fakeSummarizer{summary: models.AttendanceSummary{Present: 5, Absent: 2, Leave: 1, Total: 8}}
	calendar := &fakeCalendar{holidays: map[string]models.Holiday{
		"2024-03-26": {ID: "h1", Date: mustDate(t, "2024-03-26"), Name: "Independence Day"},
		"2024-06-01": {ID: "h2", Date: mustDate(t, "2024-06-01"), Name: "Far Away"},
	}}
	cache := &memoryCache{items: map[string][]byte{}}
	svc := NewDashboardService(DashboardServiceParams{
		Stats:      stats,
		Attendance: summarizer,
		Holidays:   calendar,
		Cache:      cache,
		Config:     DashboardServiceConfig{CacheTTL: time.Minute},
	})
	return svc, stats, summarizer, calendar, cache
}

func TestDashboardComposesAndCaches(t *testing.T) {
	svc, stats, summarizer, calendar, cache := newDashboardFixture(t)

	first, hit, err := svc.Get(context.Background(), "2024-03-10")
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 10, first.Totals.ActiveStudents)
	assert.Equal(t, 5, first.Attendance.Present)
	assert.Equal(t, 2, first.Attendance.Unmarked)
	assert.Equal(t, 70.0, first.Attendance.Rate)
	assert.Nil(t, first.Holiday)
	require.Len(t, first.UpcomingHolidays, 1)
	assert.Equal(t, "h1", first.UpcomingHolidays[0].ID)
	assert.Equal(t, "2024-04-09", calendar.window[1].String())
	assert.Equal(t, "2024-03-10", summarizer.filter.From.String())
	assert.Equal(t, time.Minute, cache.ttl)
	assert.Contains(t, cache.items, "dash:2024-03-10")

	second, hit, err := svc.Get(context.Background(), "2024-03-10")
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, first.Attendance, second.Attendance)
	assert.Equal(t, 1, stats.calls)
}

func TestDashboardOnHolidayHasNoRate(t *testing.T) {
	svc, _, summarizer, _, _ := newDashboardFixture(t)
	summarizer.summary = models.AttendanceSummary{}

	resp, _, err := svc.Get(context.Background(), "2024-03-26")
	require.NoError(t, err)
	require.NotNil(t, resp.Holiday)
	assert.Equal(t, "Independence Day", resp.Holiday.Name)
	assert.Equal(t, 0.0, resp.Attendance.Rate)
	assert.Equal(t, 10, resp.Attendance.Unmarked)
}

func TestDashboardCacheReadErrorFallsBack(t *testing.T) {
	svc, stats, _, _, cache := newDashboardFixture(t)
	cache.readErr = errors.New("redis down")

	resp, hit, err := svc.Get(context.Background(), "2024-03-10")
	require.NoError(t, err)
	assert.False(t, hit)
	assert.NotNil(t, resp)
	assert.Equal(t, 1, stats.calls)
}

func TestDashboardErrors(t *testing.T) {
	svc, stats, _, _, _ := newDashboardFixture(t)

	_, _, err := svc.Get(context.Background(), "March 10")
	requireAppError(t, err, http.StatusBadRequest)

	stats.err = errors.New("boom")
	_, _, err = svc.Get(context.Background(), "2024-03-11")
	requireAppError(t, err, http.StatusInternalServerError)
}

func TestDailyAttendanceClampsUnmarked(t *testing.T) {
	out := dailyAttendance(models.AttendanceSummary{Present: 4, Absent: 1}, 3, false)
	assert.Equal(t, 0, out.Unmarked)
	assert.Equal(t, 80.0, out.Rate)
}

func TestDashboardIgnoresDeactivatedStudentsAttendance(t *testing.T) {
	svc, stats, summarizer, _, _ := newDashboardFixture(t)
	stats.totals = dto.DashboardTotals{ActiveStudents: 1, InactiveStudents: 1, Classes: 1}
	summarizer.summary = models.AttendanceSummary{}
	summarizer.inactive = models.AttendanceSummary{Absent: 1, Total: 1}

	dash, _, err := svc.Get(context.Background(), "2026-03-02")
	require.NoError(t, err)
	assert.True(t, summarizer.filter.ActiveOnly)
	assert.Equal(t, 0, dash.Attendance.Absent)
	assert.Equal(t, 1, dash.Attendance.Unmarked)
	assert.Equal(t, 100.0, dash.Attendance.Rate)
}
