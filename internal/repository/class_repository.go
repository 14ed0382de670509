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

// ClassRepository manages persistence for classes.
type ClassRepository struct {
	db *sqlx.DB
}

// NewClassRepository constructs a ClassRepository.
func NewClassRepository(db *sqlx.DB) *ClassRepository {
	return &ClassRepository{db: db}
}

// List returns classes with their active student count ordered by level then name.
func (r *ClassRepository) List(ctx context.Context, filter models.ClassFilter) ([]models.ClassWithCount, error) {
	where := &whereClause{}
	if filter.Active != nil {
		where.add("c.active = ?", *filter.Active)
	}
	if filter.Search != "" {
		where.add("LOWER(c.name) LIKE ?", database.LikePattern(filter.Search))
	}

	query := `SELECT c.id, c.name, c.level, c.active, c.created_at, c.updated_at,
        (SELECT COUNT(*) FROM students s WHERE s.class_id = c.id AND s.active = ?) AS student_count
        FROM classes c` + where.String() + ` ORDER BY c.level ASC, c.name ASC`
	args := append([]interface{}{true}, where.args...)

	var classes []models.ClassWithCount
	if err := r.db.SelectContext(ctx, &classes, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list classes: %w", err)
	}
	return classes, nil
}

// FindByID returns a class by id.
func (r *ClassRepository) FindByID(ctx context.Context, id string) (*models.Class, error) {
	const query = `SELECT id, name, level, active, created_at, updated_at FROM classes WHERE id = ?`
	var class models.Class
	if err := r.db.GetContext(ctx, &class, r.db.Rebind(query), id); err != nil {
		return nil, err
	}
	return &class, nil
}

// ExistsByName checks for a class with the same name ignoring case, optionally excluding an id.
func (r *ClassRepository) ExistsByName(ctx context.Context, name, excludeID string) (bool, error) {
	query := `SELECT 1 FROM classes WHERE LOWER(name) = LOWER(?)`
	args := []interface{}{name}
	if excludeID != "" {
		query += ` AND id <> ?`
		args = append(args, excludeID)
	}
	var one int
	if err := r.db.GetContext(ctx, &one, r.db.Rebind(query+" LIMIT 1"), args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check class name: %w", err)
	}
	return true, nil
}

// Create inserts a class.
func (r *ClassRepository) Create(ctx context.Context, class *models.Class) error {
	if class.ID == "" {
		class.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	class.CreatedAt = now
	class.UpdatedAt = now
	const query = `INSERT INTO classes (id, name, level, active, created_at, updated_at)
        VALUES (:id, :name, :level, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, class); err != nil {
		return fmt.Errorf("create class: %w", err)
	}
	return nil
}

// Update persists name, level and active flag.
func (r *ClassRepository) Update(ctx context.Context, class *models.Class) error {
	class.UpdatedAt = time.Now().UTC()
	const query = `UPDATE classes SET name = :name, level = :level, active = :active, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, class); err != nil {
		return fmt.Errorf("update class: %w", err)
	}
	return nil
}

// Deactivate marks a class inactive.
func (r *ClassRepository) Deactivate(ctx context.Context, id string) error {
	const query = `UPDATE classes SET active = ?, updated_at = ? WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, r.db.Rebind(query), false, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("deactivate class: %w", err)
	}
	return nil
}

// CountActiveStudents returns how many active students belong to a class.
func (r *ClassRepository) CountActiveStudents(ctx context.Context, classID string) (int, error) {
	const query = `SELECT COUNT(*) FROM students WHERE class_id = ? AND active = ?`
	var count int
	if err := r.db.GetContext(ctx, &count, r.db.Rebind(query), classID, true); err != nil {
		return 0, fmt.Errorf("count class students: %w", err)
	}
	return count, nil
}
