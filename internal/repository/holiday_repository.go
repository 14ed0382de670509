package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/maktab-api/internal/models"
	"github.com/noah-isme/maktab-api/pkg/database"
)

const holidayColumns = `id, date, name, description, created_at, updated_at`

// HolidayRepository persists the holiday calendar.
type HolidayRepository struct {
	db      *sqlx.DB
	dialect database.Dialect
}

// NewHolidayRepository constructs a HolidayRepository.
func NewHolidayRepository(db *sqlx.DB) *HolidayRepository {
	return &HolidayRepository{db: db, dialect: database.DialectOf(db)}
}

// List returns holidays inside the optional range ordered by date.
func (r *HolidayRepository) List(ctx context.Context, rng models.DateRange) ([]models.Holiday, error) {
	return r.list(ctx, rng, 0)
}

// Upcoming returns at most limit holidays between from and to inclusive.
func (r *HolidayRepository) Upcoming(ctx context.Context, from, to models.Date, limit int) ([]models.Holiday, error) {
	return r.list(ctx, models.DateRange{From: &from, To: &to}, limit)
}

func (r *HolidayRepository) list(ctx context.Context, rng models.DateRange, limit int) ([]models.Holiday, error) {
	where := &whereClause{}
	if rng.From != nil {
		where.add("date >= ?", *rng.From)
	}
	if rng.To != nil {
		where.add("date <= ?", *rng.To)
	}
	query := "SELECT " + holidayColumns + " FROM holidays" + where.String() + " ORDER BY date ASC"
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}
	var holidays []models.Holiday
	if err := r.db.SelectContext(ctx, &holidays, r.db.Rebind(query), where.args...); err != nil {
		return nil, fmt.Errorf("list holidays: %w", err)
	}
	return holidays, nil
}

// FindByID returns a holiday by id.
func (r *HolidayRepository) FindByID(ctx context.Context, id string) (*models.Holiday, error) {
	var holiday models.Holiday
	if err := r.db.GetContext(ctx, &holiday, r.db.Rebind("SELECT "+holidayColumns+" FROM holidays WHERE id = ?"), id); err != nil {
		return nil, err
	}
	return &holiday, nil
}

// FindByDate returns the holiday on date or sql.ErrNoRows.
func (r *HolidayRepository) FindByDate(ctx context.Context, date models.Date) (*models.Holiday, error) {
	var holiday models.Holiday
	if err := r.db.GetContext(ctx, &holiday, r.db.Rebind("SELECT "+holidayColumns+" FROM holidays WHERE date = ?"), date); err != nil {
		return nil, err
	}
	return &holiday, nil
}

// Upsert creates the holiday or updates the one already on the same date.
func (r *HolidayRepository) Upsert(ctx context.Context, holiday *models.Holiday) error {
	if holiday.ID == "" {
		holiday.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	holiday.CreatedAt, holiday.UpdatedAt = now, now
	query := `INSERT INTO holidays (id, date, name, description, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)` +
		r.dialect.Upsert([]string{"date"}, []string{"name", "description", "updated_at"})
	if _, err := r.db.ExecContext(ctx, r.db.Rebind(query), holiday.ID, holiday.Date, holiday.Name, holiday.Description, now, now); err != nil {
		return fmt.Errorf("upsert holiday: %w", err)
	}
	stored, err := r.FindByDate(ctx, holiday.Date)
	if err != nil {
		return fmt.Errorf("reload holiday: %w", err)
	}
	*holiday = *stored
	return nil
}

// Update persists changes to a holiday.
func (r *HolidayRepository) Update(ctx context.Context, holiday *models.Holiday) error {
	holiday.UpdatedAt = time.Now().UTC()
	const query = `UPDATE holidays SET date = :date, name = :name, description = :description, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, holiday)
	if err != nil {
		return fmt.Errorf("update holiday: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a holiday.
func (r *HolidayRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM holidays WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete holiday: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
