package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/maktab-api/internal/models"
	"github.com/noah-isme/maktab-api/pkg/database"
)

// AttendanceDay is the full attendance of one date for a set of students.
// Saving it replaces whatever was stored for those students on that date.
type AttendanceDay struct {
	Date       models.Date
	StudentIDs []string
	Records    []models.AttendanceRecord
}

// AttendanceRepository persists daily attendance.
type AttendanceRepository struct {
	db      *sqlx.DB
	dialect database.Dialect
}

// NewAttendanceRepository constructs an AttendanceRepository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db, dialect: database.DialectOf(db)}
}

// Roster lists active students as attendance rows, optionally limited to one class.
func (r *AttendanceRepository) Roster(ctx context.Context, classID string) ([]models.AttendanceRow, error) {
	where := &whereClause{}
	where.add("s.active = ?", true)
	if classID != "" {
		where.add("s.class_id = ?", classID)
	}
	query := `SELECT s.id AS student_id, s.name AS student_name, s.roll_number, s.class_id, COALESCE(c.name, '') AS class_name,
        '' AS status, '' AS reason
        FROM students s LEFT JOIN classes c ON c.id = s.class_id` + where.String() + ` ORDER BY c.level ASC, s.roll_number ASC`
	var rows []models.AttendanceRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), where.args...); err != nil {
		return nil, fmt.Errorf("list attendance roster: %w", err)
	}
	return rows, nil
}

// List returns stored records matching filter ordered by date.
func (r *AttendanceRepository) List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, error) {
	where := &whereClause{}
	if filter.StudentID != "" {
		where.add("a.student_id = ?", filter.StudentID)
	}
	if filter.ClassID != "" {
		where.add("s.class_id = ?", filter.ClassID)
	}
	if filter.From != nil {
		where.add("a.date >= ?", *filter.From)
	}
	if filter.To != nil {
		where.add("a.date <= ?", *filter.To)
	}
	query := `SELECT a.id, a.student_id, a.date, a.status, a.reason, a.created_at, a.updated_at
        FROM attendance a JOIN students s ON s.id = a.student_id` + where.String() + ` ORDER BY a.date ASC, s.roll_number ASC`
	var records []models.AttendanceRecord
	if err := r.db.SelectContext(ctx, &records, r.db.Rebind(query), where.args...); err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}
	return records, nil
}

// Summary counts statuses matching filter.
func (r *AttendanceRepository) Summary(ctx context.Context, filter models.AttendanceFilter) (models.AttendanceSummary, error) {
	where := &whereClause{}
	if filter.StudentID != "" {
		where.add("a.student_id = ?", filter.StudentID)
	}
	if filter.ClassID != "" {
		where.add("s.class_id = ?", filter.ClassID)
	}
	if filter.ActiveOnly {
		where.add("s.active = ?", true)
	}
	if filter.From != nil {
		where.add("a.date >= ?", *filter.From)
	}
	if filter.To != nil {
		where.add("a.date <= ?", *filter.To)
	}
	query := `SELECT
        COALESCE(SUM(CASE WHEN a.status = 'present' THEN 1 ELSE 0 END), 0) AS present,
        COALESCE(SUM(CASE WHEN a.status = 'absent' THEN 1 ELSE 0 END), 0) AS absent,
        COALESCE(SUM(CASE WHEN a.status = 'leave' THEN 1 ELSE 0 END), 0) AS on_leave,
        COUNT(a.id) AS total
        FROM attendance a JOIN students s ON s.id = a.student_id` + where.String()
	var summary models.AttendanceSummary
	if err := r.db.GetContext(ctx, &summary, r.db.Rebind(query), where.args...); err != nil {
		return models.AttendanceSummary{}, fmt.Errorf("summarise attendance: %w", err)
	}
	return summary, nil
}

// SaveDays replaces the stored attendance of every day in one transaction.
func (r *AttendanceRepository) SaveDays(ctx context.Context, days []AttendanceDay) (int, error) {
	saved := 0
	err := withTx(ctx, r.db, "save attendance", func(tx *sqlx.Tx) error {
		insert := tx.Rebind(`INSERT INTO attendance (id, student_id, date, status, reason, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)`)
		now := time.Now().UTC()
		for _, day := range days {
			if len(day.StudentIDs) > 0 {
				query, args, err := sqlx.In(`DELETE FROM attendance WHERE date = ? AND student_id IN (?)`, day.Date, day.StudentIDs)
				if err != nil {
					return fmt.Errorf("build attendance delete: %w", err)
				}
				if _, err := tx.ExecContext(ctx, tx.Rebind(query), args...); err != nil {
					return fmt.Errorf("clear attendance %s: %w", day.Date, err)
				}
			}
			for i := range day.Records {
				rec := &day.Records[i]
				if rec.ID == "" {
					rec.ID = uuid.NewString()
				}
				rec.Date = day.Date
				rec.CreatedAt, rec.UpdatedAt = now, now
				if _, err := tx.ExecContext(ctx, insert, rec.ID, rec.StudentID, rec.Date, rec.Status, rec.Reason, rec.CreatedAt, rec.UpdatedAt); err != nil {
					return fmt.Errorf("insert attendance %s/%s: %w", rec.StudentID, day.Date, err)
				}
				saved++
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return saved, nil
}

// Upsert stores one record keyed by student and date.
func (r *AttendanceRepository) Upsert(ctx context.Context, rec *models.AttendanceRecord) error {
	now := time.Now().UTC()
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	rec.CreatedAt, rec.UpdatedAt = now, now
	query := `INSERT INTO attendance (id, student_id, date, status, reason, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)` +
		r.dialect.Upsert([]string{"student_id", "date"}, []string{"status", "reason", "updated_at"})
	if _, err := r.db.ExecContext(ctx, r.db.Rebind(query), rec.ID, rec.StudentID, rec.Date, rec.Status, rec.Reason, rec.CreatedAt, rec.UpdatedAt); err != nil {
		return fmt.Errorf("upsert attendance: %w", err)
	}

	stored, err := r.find(ctx, rec.StudentID, rec.Date)
	if err != nil {
		return err
	}
	*rec = *stored
	return nil
}

func (r *AttendanceRepository) find(ctx context.Context, studentID string, date models.Date) (*models.AttendanceRecord, error) {
	const query = `SELECT id, student_id, date, status, reason, created_at, updated_at FROM attendance WHERE student_id = ? AND date = ?`
	var rec models.AttendanceRecord
	if err := r.db.GetContext(ctx, &rec, r.db.Rebind(query), studentID, date); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("load attendance: %w", err)
	}
	return &rec, nil
}
