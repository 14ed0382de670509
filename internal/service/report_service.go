package service

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/maktab-api/internal/dto"
	"github.com/noah-isme/maktab-api/internal/models"
	appErrors "github.com/noah-isme/maktab-api/pkg/errors"
	"github.com/noah-isme/maktab-api/pkg/export"
)

type reportStore interface {
	StudentAttendance(ctx context.Context, from, to models.Date, classID string) ([]dto.StudentAttendanceTotals, error)
	DailyAttendance(ctx context.Context, from, to models.Date, classID string) ([]dto.DailyAttendanceTotals, error)
	ClassStudents(ctx context.Context, classID string) ([]dto.ClassStudentsRow, error)
	Totals(ctx context.Context) (dto.DashboardTotals, error)
}

type educationLister interface {
	List(ctx context.Context, classID string) ([]models.EducationProgress, error)
}

// maxReportSpan bounds the attendance report window.
const maxReportSpan = 366

// ReportService builds the JSON reports and their tabular export form.
type ReportService struct {
	store     reportStore
	education educationLister
	logger    *zap.Logger
}

// NewReportService constructs a ReportService.
func NewReportService(store reportStore, education educationLister, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{store: store, education: education, logger: logger}
}

// Attendance returns per student and per day totals between from and to.
// to defaults to today and from to the first day of to's month.
func (s *ReportService) Attendance(ctx context.Context, rawFrom, rawTo, classID string) (*dto.AttendanceReport, error) {
	from, to, err := reportWindow(rawFrom, rawTo)
	if err != nil {
		return nil, err
	}
	classID = strings.TrimSpace(classID)

	students, err := s.store.StudentAttendance(ctx, from, to, classID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to build attendance report")
	}
	days, err := s.store.DailyAttendance(ctx, from, to, classID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to build attendance report")
	}

	report := &dto.AttendanceReport{
		From:     from,
		To:       to,
		ClassID:  classID,
		Students: make([]dto.StudentAttendanceTotals, len(students)),
		Days:     days,
	}
	for i, row := range students {
		row.Percentage = models.CompletionPercent(row.Present, row.Total)
		report.Students[i] = row
	}
	for _, day := range days {
		report.Summary.Present += day.Present
		report.Summary.Absent += day.Absent
		report.Summary.Leave += day.Leave
		report.Summary.Total += day.Total
	}
	report.Summary.Percentage = models.CompletionPercent(report.Summary.Present, report.Summary.Total)
	if report.Days == nil {
		report.Days = []dto.DailyAttendanceTotals{}
	}
	return report, nil
}

// Students returns class strength and roll ranges.
func (s *ReportService) Students(ctx context.Context, classID string) (*dto.StudentsReport, error) {
	classes, err := s.store.ClassStudents(ctx, strings.TrimSpace(classID))
	if err != nil {
		return nil, appErrors.Internal(err, "failed to build students report")
	}
	totals, err := s.store.Totals(ctx)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to build students report")
	}
	if classes == nil {
		classes = []dto.ClassStudentsRow{}
	}
	return &dto.StudentsReport{Classes: classes, Totals: totals}, nil
}

// Education returns progress rows with percentages and their average.
func (s *ReportService) Education(ctx context.Context, classID string) (*dto.EducationReport, error) {
	rows, err := s.education.List(ctx, strings.TrimSpace(classID))
	if err != nil {
		return nil, appErrors.Internal(err, "failed to build education report")
	}
	report := &dto.EducationReport{Rows: make([]models.EducationProgress, len(rows))}
	var sum float64
	for i, row := range rows {
		report.Rows[i] = row.WithPercentage()
		sum += report.Rows[i].Percentage
	}
	if len(rows) > 0 {
		report.AverageCompletion = roundTwo(sum / float64(len(rows)))
	}
	return report, nil
}

// Table renders the report named by reportType as an export table.
func (s *ReportService) Table(ctx context.Context, reportType models.ReportType, params models.ReportJobParams) (export.Table, error) {
	switch reportType {
	case models.ReportTypeAttendance:
		report, err := s.Attendance(ctx, params.From, params.To, params.ClassID)
		if err != nil {
			return export.Table{}, err
		}
		return attendanceTable(report), nil
	case models.ReportTypeStudents:
		report, err := s.Students(ctx, params.ClassID)
		if err != nil {
			return export.Table{}, err
		}
		return studentsTable(report), nil
	case models.ReportTypeEducation:
		report, err := s.Education(ctx, params.ClassID)
		if err != nil {
			return export.Table{}, err
		}
		return educationTable(report), nil
	default:
		return export.Table{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported report type %q", reportType))
	}
}

func attendanceTable(report *dto.AttendanceReport) export.Table {
	table := export.Table{
		Title:   fmt.Sprintf("Attendance %s to %s", report.From, report.To),
		Columns: []string{"Roll", "Student", "Class", "Present", "Absent", "Leave", "Total", "Percentage"},
	}
	for _, row := range report.Students {
		table.AddRow(
			strconv.Itoa(row.RollNumber),
			row.StudentName,
			row.ClassName,
			strconv.Itoa(row.Present),
			strconv.Itoa(row.Absent),
			strconv.Itoa(row.Leave),
			strconv.Itoa(row.Total),
			formatPercent(row.Percentage),
		)
	}
	return table
}

func studentsTable(report *dto.StudentsReport) export.Table {
	table := export.Table{
		Title:   "Students by class",
		Columns: []string{"Class", "Level", "Active", "Inactive", "First roll", "Last roll"},
	}
	for _, row := range report.Classes {
		table.AddRow(
			row.ClassName,
			strconv.Itoa(row.Level),
			strconv.Itoa(row.Active),
			strconv.Itoa(row.Inactive),
			optionalInt(row.MinRoll),
			optionalInt(row.MaxRoll),
		)
	}
	return table
}

func educationTable(report *dto.EducationReport) export.Table {
	table := export.Table{
		Title:   "Education progress",
		Columns: []string{"Class", "Subject", "Book", "Completed", "Total", "Percentage", "Last updated"},
	}
	for _, row := range report.Rows {
		table.AddRow(
			row.ClassName,
			row.Subject,
			row.BookName,
			strconv.Itoa(row.CompletedPages),
			strconv.Itoa(row.TotalPages),
			formatPercent(row.Percentage),
			row.LastUpdated.String(),
		)
	}
	return table
}

func reportWindow(rawFrom, rawTo string) (models.Date, models.Date, error) {
	to := models.Today()
	if parsed, err := parseOptionalDate(rawTo, "to"); err != nil {
		return models.Date{}, models.Date{}, err
	} else if parsed != nil {
		to = *parsed
	}
	from := models.NewDate(time.Date(to.Year(), to.Month(), 1, 0, 0, 0, 0, time.UTC))
	if parsed, err := parseOptionalDate(rawFrom, "from"); err != nil {
		return models.Date{}, models.Date{}, err
	} else if parsed != nil {
		from = *parsed
	}
	if to.Before(from.Time) {
		return models.Date{}, models.Date{}, appErrors.Clone(appErrors.ErrValidation, "to must not be before from")
	}
	if to.Sub(from.Time) > maxReportSpan*24*time.Hour {
		return models.Date{}, models.Date{}, appErrors.Clone(appErrors.ErrValidation, "report window cannot exceed one year")
	}
	return from, to, nil
}

func formatPercent(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func optionalInt(v *int) string {
	if v == nil {
		return "-"
	}
	return strconv.Itoa(*v)
}

func roundTwo(v float64) float64 {
	return math.Round(v*100) / 100
}
