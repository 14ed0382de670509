package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/maktab-api/internal/dto"
	"github.com/noah-isme/maktab-api/internal/models"
)

const statusCounts = `COALESCE(SUM(CASE WHEN a.status = 'present' THEN 1 ELSE 0 END), 0) AS present,
        COALESCE(SUM(CASE WHEN a.status = 'absent' THEN 1 ELSE 0 END), 0) AS absent,
        COALESCE(SUM(CASE WHEN a.status = 'leave' THEN 1 ELSE 0 END), 0) AS on_leave,
        COUNT(a.id) AS total`

// ReportRepository runs the aggregate queries behind reports and the dashboard.
type ReportRepository struct {
	db *sqlx.DB
}

// NewReportRepository constructs a ReportRepository.
func NewReportRepository(db *sqlx.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// StudentAttendance counts each active student's statuses between from and to.
// Students with no records in the window are included with zero counts.
func (r *ReportRepository) StudentAttendance(ctx context.Context, from, to models.Date, classID string) ([]dto.StudentAttendanceTotals, error) {
	where := &whereClause{}
	where.add("s.active = ?", true)
	if classID != "" {
		where.add("s.class_id = ?", classID)
	}
	query := `SELECT s.id AS student_id, s.name AS student_name, s.roll_number, COALESCE(c.name, '') AS class_name, ` + statusCounts + `
        FROM students s
        LEFT JOIN classes c ON c.id = s.class_id
        LEFT JOIN attendance a ON a.student_id = s.id AND a.date >= ? AND a.date <= ?` + where.String() + `
        GROUP BY s.id, s.name, s.roll_number, c.name, c.level
        ORDER BY c.level ASC, s.roll_number ASC`
	args := append([]interface{}{from, to}, where.args...)

	var rows []dto.StudentAttendanceTotals
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("student attendance report: %w", err)
	}
	return rows, nil
}

// DailyAttendance counts active students' statuses per date between from and to.
func (r *ReportRepository) DailyAttendance(ctx context.Context, from, to models.Date, classID string) ([]dto.DailyAttendanceTotals, error) {
	where := &whereClause{}
	where.add("s.active = ?", true)
	where.add("a.date >= ?", from)
	where.add("a.date <= ?", to)
	if classID != "" {
		where.add("s.class_id = ?", classID)
	}
	query := `SELECT a.date, ` + statusCounts + `
        FROM attendance a JOIN students s ON s.id = a.student_id` + where.String() + `
        GROUP BY a.date ORDER BY a.date ASC`
	var rows []dto.DailyAttendanceTotals
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), where.args...); err != nil {
		return nil, fmt.Errorf("daily attendance report: %w", err)
	}
	return rows, nil
}

// ClassStudents returns active and inactive counts and roll ranges per class.
func (r *ReportRepository) ClassStudents(ctx context.Context, classID string) ([]dto.ClassStudentsRow, error) {
	where := &whereClause{}
	if classID != "" {
		where.add("c.id = ?", classID)
	}
	query := `SELECT c.id AS class_id, c.name AS class_name, c.level,
        COALESCE(SUM(CASE WHEN s.active = ? THEN 1 ELSE 0 END), 0) AS active,
        COALESCE(SUM(CASE WHEN s.active = ? THEN 1 ELSE 0 END), 0) AS inactive,
        MIN(s.roll_number) AS min_roll, MAX(s.roll_number) AS max_roll
        FROM classes c LEFT JOIN students s ON s.class_id = c.id` + where.String() + `
        GROUP BY c.id, c.name, c.level ORDER BY c.level ASC, c.name ASC`
	args := append([]interface{}{true, false}, where.args...)
	var rows []dto.ClassStudentsRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("class students report: %w", err)
	}
	return rows, nil
}

// Totals counts students, active classes and active books.
func (r *ReportRepository) Totals(ctx context.Context) (dto.DashboardTotals, error) {
	query := `SELECT
        (SELECT COUNT(*) FROM students WHERE active = ?) AS active_students,
        (SELECT COUNT(*) FROM students WHERE active = ?) AS inactive_students,
        (SELECT COUNT(*) FROM classes WHERE active = ?) AS classes,
        (SELECT COUNT(*) FROM books WHERE active = ?) AS books`
	var totals dto.DashboardTotals
	if err := r.db.GetContext(ctx, &totals, r.db.Rebind(query), true, false, true, true); err != nil {
		return dto.DashboardTotals{}, fmt.Errorf("dashboard totals: %w", err)
	}
	return totals, nil
}

// ClassCounts returns the active student count of every active class.
func (r *ReportRepository) ClassCounts(ctx context.Context) ([]dto.ClassStudentCount, error) {
	query := `SELECT c.id AS class_id, c.name AS class_name, c.level,
        COALESCE(SUM(CASE WHEN s.active = ? THEN 1 ELSE 0 END), 0) AS students
        FROM classes c LEFT JOIN students s ON s.class_id = c.id
        WHERE c.active = ?
        GROUP BY c.id, c.name, c.level ORDER BY c.level ASC, c.name ASC`
	var rows []dto.ClassStudentCount
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), true, true); err != nil {
		return nil, fmt.Errorf("dashboard class counts: %w", err)
	}
	return rows, nil
}

// EducationOverview returns the number of progress rows and their mean completion percentage.
func (r *ReportRepository) EducationOverview(ctx context.Context) (dto.DashboardEducation, error) {
	query := `SELECT COUNT(*) AS books,
        COALESCE(AVG(CASE WHEN total_pages > 0 THEN completed_pages * 100.0 / total_pages ELSE 0 END), 0) AS average_completion
        FROM education_progress`
	var overview dto.DashboardEducation
	if err := r.db.GetContext(ctx, &overview, query); err != nil {
		return dto.DashboardEducation{}, fmt.Errorf("education overview: %w", err)
	}
	return overview, nil
}
