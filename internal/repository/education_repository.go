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

const educationColumns = `e.id, e.class_id, COALESCE(c.name, '') AS class_name, e.book_id, e.subject, e.book_name, e.total_pages,
        e.completed_pages, e.notes, e.last_updated, e.created_at, e.updated_at`

// EducationRepository persists per class book progress.
type EducationRepository struct {
	db      *sqlx.DB
	dialect database.Dialect
}

// NewEducationRepository constructs an EducationRepository.
func NewEducationRepository(db *sqlx.DB) *EducationRepository {
	return &EducationRepository{db: db, dialect: database.DialectOf(db)}
}

// List returns progress rows, optionally for one class.
func (r *EducationRepository) List(ctx context.Context, classID string) ([]models.EducationProgress, error) {
	where := &whereClause{}
	if classID != "" {
		where.add("e.class_id = ?", classID)
	}
	query := "SELECT " + educationColumns + " FROM education_progress e LEFT JOIN classes c ON c.id = e.class_id" + where.String() +
		" ORDER BY c.level ASC, e.subject ASC, e.book_name ASC"
	var rows []models.EducationProgress
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), where.args...); err != nil {
		return nil, fmt.Errorf("list education progress: %w", err)
	}
	return rows, nil
}

// FindByID returns a progress row.
func (r *EducationRepository) FindByID(ctx context.Context, id string) (*models.EducationProgress, error) {
	query := "SELECT " + educationColumns + " FROM education_progress e LEFT JOIN classes c ON c.id = e.class_id WHERE e.id = ?"
	var row models.EducationProgress
	if err := r.db.GetContext(ctx, &row, r.db.Rebind(query), id); err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *EducationRepository) findByKey(ctx context.Context, classID, bookName string) (*models.EducationProgress, error) {
	query := "SELECT " + educationColumns + " FROM education_progress e LEFT JOIN classes c ON c.id = e.class_id WHERE e.class_id = ? AND e.book_name = ?"
	var row models.EducationProgress
	if err := r.db.GetContext(ctx, &row, r.db.Rebind(query), classID, bookName); err != nil {
		return nil, err
	}
	return &row, nil
}

// Upsert inserts the row or updates the existing row for the same class and book name.
func (r *EducationRepository) Upsert(ctx context.Context, row *models.EducationProgress) error {
	if row.ID == "" {
		row.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	row.CreatedAt, row.UpdatedAt = now, now
	query := `INSERT INTO education_progress (id, class_id, book_id, subject, book_name, total_pages, completed_pages, notes, last_updated, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)` +
		r.dialect.Upsert([]string{"class_id", "book_name"}, []string{"book_id", "subject", "total_pages", "completed_pages", "notes", "last_updated", "updated_at"})
	if _, err := r.db.ExecContext(ctx, r.db.Rebind(query), row.ID, row.ClassID, row.BookID, row.Subject, row.BookName, row.TotalPages,
		row.CompletedPages, row.Notes, row.LastUpdated, now, now); err != nil {
		return fmt.Errorf("upsert education progress: %w", err)
	}
	stored, err := r.findByKey(ctx, row.ClassID, row.BookName)
	if err != nil {
		return fmt.Errorf("reload education progress: %w", err)
	}
	*row = *stored
	return nil
}

// Update persists a progress row.
func (r *EducationRepository) Update(ctx context.Context, row *models.EducationProgress) error {
	row.UpdatedAt = time.Now().UTC()
	const query = `UPDATE education_progress SET class_id = :class_id, book_id = :book_id, subject = :subject, book_name = :book_name,
        total_pages = :total_pages, completed_pages = :completed_pages, notes = :notes, last_updated = :last_updated, updated_at = :updated_at
        WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, row)
	if err != nil {
		return fmt.Errorf("update education progress: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a progress row.
func (r *EducationRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM education_progress WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete education progress: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
