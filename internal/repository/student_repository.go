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

const studentColumns = `s.id, s.name, s.father_name, s.mother_name, s.mobile, s.id_number, s.district, s.upazila, s.address,
        s.class_id, s.roll_number, s.registration_date, s.active, s.created_at, s.updated_at, COALESCE(c.name, '') AS class_name`

// StudentRepository manages persistence for student records and their custom field values.
type StudentRepository struct {
	db      *sqlx.DB
	dialect database.Dialect
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db, dialect: database.DialectOf(db)}
}

// List returns students matching the provided filters.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error) {
	where := &whereClause{}
	if filter.ClassID != "" {
		where.add("s.class_id = ?", filter.ClassID)
	}
	if filter.Active != nil {
		where.add("s.active = ?", *filter.Active)
	}
	if filter.Search != "" {
		pattern := database.LikePattern(filter.Search)
		where.add("(LOWER(s.name) LIKE ? OR LOWER(s.father_name) LIKE ? OR s.mobile LIKE ? OR CAST(s.roll_number AS CHAR(10)) LIKE ?)",
			pattern, pattern, pattern, pattern)
	}
	base := "FROM students s LEFT JOIN classes c ON c.id = s.class_id" + where.String()

	column := sortColumn(map[string]string{
		"name":              "s.name",
		"roll_number":       "s.roll_number",
		"registration_date": "s.registration_date",
		"created_at":        "s.created_at",
	}, filter.SortBy, "roll_number")
	order := sortOrder(filter.SortOrder, "ASC")
	limit, offset := pageBounds(filter.Page, filter.PageSize)

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s, s.id ASC LIMIT %d OFFSET %d", studentColumns, base, column, order, limit, offset)
	var students []models.StudentDetail
	if err := r.db.SelectContext(ctx, &students, r.db.Rebind(query), where.args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, r.db.Rebind("SELECT COUNT(*) "+base), where.args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}

// FindByID fetches a student with its class name.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.StudentDetail, error) {
	query := "SELECT " + studentColumns + " FROM students s LEFT JOIN classes c ON c.id = s.class_id WHERE s.id = ?"
	var detail models.StudentDetail
	if err := r.db.GetContext(ctx, &detail, r.db.Rebind(query), id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// ExistsByMobile reports whether another student uses the mobile number.
func (r *StudentRepository) ExistsByMobile(ctx context.Context, mobile, excludeID string) (bool, error) {
	return r.exists(ctx, "mobile", mobile, excludeID)
}

// ExistsByIDNumber reports whether another student uses the id number.
func (r *StudentRepository) ExistsByIDNumber(ctx context.Context, idNumber, excludeID string) (bool, error) {
	return r.exists(ctx, "id_number", idNumber, excludeID)
}

func (r *StudentRepository) exists(ctx context.Context, column, value, excludeID string) (bool, error) {
	query := fmt.Sprintf("SELECT 1 FROM students WHERE %s = ?", column)
	args := []interface{}{value}
	if excludeID != "" {
		query += " AND id <> ?"
		args = append(args, excludeID)
	}
	var one int
	if err := r.db.GetContext(ctx, &one, r.db.Rebind(query+" LIMIT 1"), args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check student %s: %w", column, err)
	}
	return true, nil
}

// RollNumbers returns the roll numbers used inside band for a class, ascending.
// excludeID leaves one student out so an update can keep its own roll.
func (r *StudentRepository) RollNumbers(ctx context.Context, classID string, band models.RollBand, excludeID string) ([]int, error) {
	query := `SELECT roll_number FROM students WHERE class_id = ? AND roll_number BETWEEN ? AND ?`
	args := []interface{}{classID, band.Min, band.Max}
	if excludeID != "" {
		query += ` AND id <> ?`
		args = append(args, excludeID)
	}
	var rolls []int
	if err := r.db.SelectContext(ctx, &rolls, r.db.Rebind(query+" ORDER BY roll_number ASC"), args...); err != nil {
		return nil, fmt.Errorf("list roll numbers: %w", err)
	}
	return rolls, nil
}

// Create inserts a student and its custom field values in one transaction.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student, values map[string]string) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	student.CreatedAt = now
	student.UpdatedAt = now

	return withTx(ctx, r.db, "create student", func(tx *sqlx.Tx) error {
		const query = `INSERT INTO students (id, name, father_name, mother_name, mobile, id_number, district, upazila, address,
            class_id, roll_number, registration_date, active, created_at, updated_at)
            VALUES (:id, :name, :father_name, :mother_name, :mobile, :id_number, :district, :upazila, :address,
            :class_id, :roll_number, :registration_date, :active, :created_at, :updated_at)`
		if _, err := tx.NamedExecContext(ctx, query, student); err != nil {
			return fmt.Errorf("create student: %w", err)
		}
		return r.saveValues(ctx, tx, student.ID, values, now)
	})
}

// Update replaces the mutable columns of a student and merges custom field values.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student, values map[string]string) error {
	now := time.Now().UTC()
	student.UpdatedAt = now

	return withTx(ctx, r.db, "update student", func(tx *sqlx.Tx) error {
		const query = `UPDATE students SET name = :name, father_name = :father_name, mother_name = :mother_name, mobile = :mobile,
            id_number = :id_number, district = :district, upazila = :upazila, address = :address, class_id = :class_id,
            roll_number = :roll_number, registration_date = :registration_date, active = :active, updated_at = :updated_at
            WHERE id = :id`
		res, err := tx.NamedExecContext(ctx, query, student)
		if err != nil {
			return fmt.Errorf("update student: %w", err)
		}
		if affected, err := res.RowsAffected(); err == nil && affected == 0 {
			return sql.ErrNoRows
		}
		return r.saveValues(ctx, tx, student.ID, values, now)
	})
}

func (r *StudentRepository) saveValues(ctx context.Context, tx *sqlx.Tx, studentID string, values map[string]string, now time.Time) error {
	if len(values) == 0 {
		return nil
	}
	query := tx.Rebind(`INSERT INTO field_values (student_id, field_id, value, updated_at) VALUES (?, ?, ?, ?)` +
		r.dialect.Upsert([]string{"student_id", "field_id"}, []string{"value", "updated_at"}))
	for fieldID, value := range values {
		if _, err := tx.ExecContext(ctx, query, studentID, fieldID, value, now); err != nil {
			return fmt.Errorf("save field value %s: %w", fieldID, err)
		}
	}
	return nil
}

// Deactivate soft deletes a student.
func (r *StudentRepository) Deactivate(ctx context.Context, id string) error {
	const query = `UPDATE students SET active = ?, updated_at = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, r.db.Rebind(query), false, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("deactivate student: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete permanently removes a student with its attendance and field values.
func (r *StudentRepository) Delete(ctx context.Context, id string) error {
	return withTx(ctx, r.db, "delete student", func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM field_values WHERE student_id = ?`), id); err != nil {
			return fmt.Errorf("delete student field values: %w", err)
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM attendance WHERE student_id = ?`), id); err != nil {
			return fmt.Errorf("delete student attendance: %w", err)
		}
		res, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM students WHERE id = ?`), id)
		if err != nil {
			return fmt.Errorf("delete student: %w", err)
		}
		if affected, err := res.RowsAffected(); err == nil && affected == 0 {
			return sql.ErrNoRows
		}
		return nil
	})
}

// FieldValues returns custom field values keyed by student id then field name.
func (r *StudentRepository) FieldValues(ctx context.Context, studentIDs []string) (map[string]map[string]string, error) {
	result := make(map[string]map[string]string, len(studentIDs))
	if len(studentIDs) == 0 {
		return result, nil
	}
	query, args, err := sqlx.In(`SELECT fv.student_id, fv.field_id, f.name AS field_name, fv.value, fv.updated_at
        FROM field_values fv JOIN fields f ON f.id = fv.field_id
        WHERE fv.student_id IN (?)`, studentIDs)
	if err != nil {
		return nil, fmt.Errorf("build field value query: %w", err)
	}
	var values []models.FieldValue
	if err := r.db.SelectContext(ctx, &values, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list field values: %w", err)
	}
	for _, v := range values {
		if result[v.StudentID] == nil {
			result[v.StudentID] = map[string]string{}
		}
		result[v.StudentID][v.FieldName] = v.Value
	}
	return result, nil
}
