package repository

import (
	"context"
	"errors"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/maktab-api/internal/models"
)

func TestAttendanceRepositorySaveDaysReplacesScope(t *testing.T) {
	db, mock := newMock(t)
	repo := NewAttendanceRepository(db)
	date, err := models.ParseDate("2024-03-10")
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM attendance WHERE date = \? AND student_id IN \(\?, \?\)`).
		WithArgs(date.Time, "s1", "s2").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("INSERT INTO attendance").
		WithArgs(sqlmock.AnyArg(), "s1", date.Time, "absent", "sick", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	saved, err := repo.SaveDays(context.Background(), []AttendanceDay{{
		Date:       date,
		StudentIDs: []string{"s1", "s2"},
		Records:    []models.AttendanceRecord{{StudentID: "s1", Status: models.AttendanceAbsent, Reason: "sick"}},
	}})
	require.NoError(t, err)
	assert.Equal(t, 1, saved)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositorySaveDaysRollsBackOnError(t *testing.T) {
	db, mock := newMock(t)
	repo := NewAttendanceRepository(db)
	date := models.Today()

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM attendance").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO attendance").WillReturnError(errors.New("duplicate key"))
	mock.ExpectRollback()

	_, err := repo.SaveDays(context.Background(), []AttendanceDay{{
		Date:       date,
		StudentIDs: []string{"s1"},
		Records:    []models.AttendanceRecord{{StudentID: "s1", Status: models.AttendancePresent}},
	}})
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositorySummary(t *testing.T) {
	db, mock := newMock(t)
	repo := NewAttendanceRepository(db)

	mock.ExpectQuery(`AS on_leave,\s+COUNT\(a\.id\) AS total\s+FROM attendance a JOIN students s ON s\.id = a\.student_id WHERE a\.student_id = \?`).
		WithArgs("s1").
		WillReturnRows(sqlmock.NewRows([]string{"present", "absent", "on_leave", "total"}).AddRow(8, 1, 1, 10))

	summary, err := repo.Summary(context.Background(), models.AttendanceFilter{StudentID: "s1"})
	require.NoError(t, err)
	assert.Equal(t, models.AttendanceSummary{Present: 8, Absent: 1, Leave: 1, Total: 10}, summary)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositorySummaryActiveOnly(t *testing.T) {
	db, mock := newMock(t)
	repo := NewAttendanceRepository(db)
	day, _ := models.ParseDate("2026-03-02")

	mock.ExpectQuery(`FROM attendance a JOIN students s ON s\.id = a\.student_id WHERE s\.active = \? AND a\.date >= \? AND a\.date <= \?`).
		WithArgs(true, day.Time, day.Time).
		WillReturnRows(sqlmock.NewRows([]string{"present", "absent", "on_leave", "total"}).AddRow(0, 0, 0, 0))

	summary, err := repo.Summary(context.Background(), models.AttendanceFilter{ActiveOnly: true, DateRange: models.DateRange{From: &day, To: &day}})
	require.NoError(t, err)
	assert.Zero(t, summary.Total)
	assert.NoError(t, mock.ExpectationsWereMet())
}
