package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/maktab-api/internal/models"
)

func TestHolidayRepositoryUpsertReloadsStoredRow(t *testing.T) {
	db, mock := newMock(t)
	repo := NewHolidayRepository(db)
	date, _ := models.ParseDate("2024-04-10")
	now := time.Now()

	mock.ExpectExec(`INSERT INTO holidays .* ON CONFLICT \(date\) DO UPDATE SET name = excluded\.name, description = excluded\.description`).
		WithArgs(sqlmock.AnyArg(), date.Time, "Eid", "", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery(`SELECT id, date, name, description, created_at, updated_at FROM holidays WHERE date = \?`).
		WithArgs(date.Time).
		WillReturnRows(sqlmock.NewRows([]string{"id", "date", "name", "description", "created_at", "updated_at"}).
			AddRow("existing", date.Time, "Eid", "", now, now))

	holiday := &models.Holiday{Date: date, Name: "Eid"}
	require.NoError(t, repo.Upsert(context.Background(), holiday))
	assert.Equal(t, "existing", holiday.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHolidayRepositoryUpcomingLimits(t *testing.T) {
	db, mock := newMock(t)
	repo := NewHolidayRepository(db)
	from, _ := models.ParseDate("2024-04-01")
	to := from.AddDays(30)

	mock.ExpectQuery(`FROM holidays WHERE date >= \? AND date <= \? ORDER BY date ASC LIMIT 5`).
		WithArgs(from.Time, to.Time).
		WillReturnRows(sqlmock.NewRows([]string{"id", "date", "name", "description", "created_at", "updated_at"}))

	holidays, err := repo.Upcoming(context.Background(), from, to, 5)
	require.NoError(t, err)
	assert.Empty(t, holidays)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHolidayRepositoryDeleteMissing(t *testing.T) {
	db, mock := newMock(t)
	repo := NewHolidayRepository(db)

	mock.ExpectExec("DELETE FROM holidays").WithArgs("nope").WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), "nope")
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
