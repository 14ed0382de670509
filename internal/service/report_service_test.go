package service

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/maktab-api/internal/dto"
	"github.com/noah-isme/maktab-api/internal/models"
)

type fakeReportStore struct {
	students []dto.StudentAttendanceTotals
	days     []dto.DailyAttendanceTotals
	classes  []dto.ClassStudentsRow
	totals   dto.DashboardTotals
	window   [2]models.Date
	classID  string
	err      error
}

func (f *fakeReportStore) StudentAttendance(_ context.Context, from, to models.Date, classID string) ([]dto.StudentAttendanceTotals, error) {
	f.window = [2]models.Date{from, to}
	f.classID = classID
	return f.students, f.err
}

func (f *fakeReportStore) DailyAttendance(context.Context, models.Date, models.Date, string) ([]dto.DailyAttendanceTotals, error) {
	return f.days, nil
}

func (f *fakeReportStore) ClassStudents(context.Context, string) ([]dto.ClassStudentsRow, error) {
	return f.classes, nil
}

func (f *fakeReportStore) Totals(context.Context) (dto.DashboardTotals, error) {
	return f.totals, nil
}

func newReportFixture(t *testing.T) (*ReportService, *fakeReportStore, *fakeEducationRepo) {
	first, last := 101, 102
	store := &fakeReportStore{
		students: []dto.StudentAttendanceTotals{
			{StudentID: "s1", StudentName: "Ali", RollNumber: 101, ClassName: "Class 1", Present: 2, Absent: 1, Total: 3},
			{StudentID: "s2", StudentName: "Umar", RollNumber: 102, ClassName: "Class 1"},
		},
		days: []dto.DailyAttendanceTotals{
			{Date: mustDate(t, "2024-03-10"), Present: 1, Absent: 1, Total: 2},
			{Date: mustDate(t, "2024-03-11"), Present: 1, Total: 1},
		},
		classes: []dto.ClassStudentsRow{{ClassID: "c1", ClassName: "Class 1", Level: 1, Active: 2, MinRoll: &first, MaxRoll: &last}},
		totals:  dto.DashboardTotals{ActiveStudents: 2, Classes: 1},
	}
	education := &fakeEducationRepo{rows: map[string]*models.EducationProgress{
		"e1": {ID: "e1", ClassID: "c1", ClassName: "Class 1", BookName: "Qaida", TotalPages: 40, CompletedPages: 10},
	}}
	return NewReportService(store, education, nil), store, education
}

func TestAttendanceReportTotals(t *testing.T) {
	svc, store, _ := newReportFixture(t)

	report, err := svc.Attendance(context.Background(), "2024-03-01", "2024-03-31", " c1 ")
	require.NoError(t, err)
	assert.Equal(t, "c1", store.classID)
	assert.Equal(t, 66.67, report.Students[0].Percentage)
	assert.Equal(t, 0.0, report.Students[1].Percentage)
	assert.Equal(t, 2, report.Summary.Present)
	assert.Equal(t, 3, report.Summary.Total)
	assert.Equal(t, 66.67, report.Summary.Percentage)
}

func TestAttendanceReportWindow(t *testing.T) {
	svc, store, _ := newReportFixture(t)
	ctx := context.Background()

	_, err := svc.Attendance(ctx, "", "2024-03-20", "")
	require.NoError(t, err)
	assert.Equal(t, "2024-03-01", store.window[0].String())
	assert.Equal(t, "2024-03-20", store.window[1].String())

	_, err = svc.Attendance(ctx, "2024-03-21", "2024-03-20", "")
	requireAppError(t, err, http.StatusBadRequest)

	_, err = svc.Attendance(ctx, "2022-01-01", "2024-03-20", "")
	requireAppError(t, err, http.StatusBadRequest)

	_, err = svc.Attendance(ctx, "yesterday", "", "")
	requireAppError(t, err, http.StatusBadRequest)

	store.err = errors.New("db down")
	_, err = svc.Attendance(ctx, "2024-03-01", "2024-03-02", "")
	requireAppError(t, err, http.StatusInternalServerError)
}

func TestStudentsAndEducationReports(t *testing.T) {
	svc, _, education := newReportFixture(t)
	education.rows["e2"] = &models.EducationProgress{ID: "e2", ClassID: "c1", BookName: "Fiqh", TotalPages: 30, CompletedPages: 30}

	students, err := svc.Students(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, students.Classes, 1)
	assert.Equal(t, 2, students.Totals.ActiveStudents)

	report, err := svc.Education(context.Background(), "c1")
	require.NoError(t, err)
	assert.Len(t, report.Rows, 2)
	assert.Equal(t, 62.5, report.AverageCompletion)
}

func TestReportTables(t *testing.T) {
	svc, _, _ := newReportFixture(t)
	ctx := context.Background()

	table, err := svc.Table(ctx, models.ReportTypeAttendance, models.ReportJobParams{From: "2024-03-01", To: "2024-03-31"})
	require.NoError(t, err)
	assert.Equal(t, "Attendance 2024-03-01 to 2024-03-31", table.Title)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, []string{"101", "Ali", "Class 1", "2", "1", "0", "3", "66.67"}, table.Rows[0])

	table, err = svc.Table(ctx, models.ReportTypeStudents, models.ReportJobParams{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Class 1", "1", "2", "0", "101", "102"}, table.Rows[0])

	table, err = svc.Table(ctx, models.ReportTypeEducation, models.ReportJobParams{ClassID: "c1"})
	require.NoError(t, err)
	assert.Equal(t, "25.00", table.Rows[0][5])

	_, err = svc.Table(ctx, models.ReportType("grades"), models.ReportJobParams{})
	requireAppError(t, err, http.StatusBadRequest)
}
