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
)

const bookColumns = `b.id, b.class_id, COALESCE(c.name, '') AS class_name, b.subject, b.title, b.total_pages, b.description,
        b.active, b.created_at, b.updated_at`

// BookRepository persists the book catalogue.
type BookRepository struct {
	db *sqlx.DB
}

// NewBookRepository constructs a BookRepository.
func NewBookRepository(db *sqlx.DB) *BookRepository {
	return &BookRepository{db: db}
}

// List returns books ordered by class level and title.
func (r *BookRepository) List(ctx context.Context, filter models.BookFilter) ([]models.Book, error) {
	where := &whereClause{}
	if filter.ClassID != "" {
		where.add("b.class_id = ?", filter.ClassID)
	}
	if filter.Active != nil {
		where.add("b.active = ?", *filter.Active)
	}
	query := "SELECT " + bookColumns + " FROM books b LEFT JOIN classes c ON c.id = b.class_id" + where.String() +
		" ORDER BY c.level ASC, b.subject ASC, b.title ASC"
	var books []models.Book
	if err := r.db.SelectContext(ctx, &books, r.db.Rebind(query), where.args...); err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	return books, nil
}

// FindByID returns a book.
func (r *BookRepository) FindByID(ctx context.Context, id string) (*models.Book, error) {
	query := "SELECT " + bookColumns + " FROM books b LEFT JOIN classes c ON c.id = b.class_id WHERE b.id = ?"
	var book models.Book
	if err := r.db.GetContext(ctx, &book, r.db.Rebind(query), id); err != nil {
		return nil, err
	}
	return &book, nil
}

// ExistsTitle reports whether the class already has a book with the title.
func (r *BookRepository) ExistsTitle(ctx context.Context, classID, title, excludeID string) (bool, error) {
	query := `SELECT 1 FROM books WHERE class_id = ? AND title = ?`
	args := []interface{}{classID, title}
	if excludeID != "" {
		query += ` AND id <> ?`
		args = append(args, excludeID)
	}
	var one int
	if err := r.db.GetContext(ctx, &one, r.db.Rebind(query+" LIMIT 1"), args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check book title: %w", err)
	}
	return true, nil
}

// Create inserts a book.
func (r *BookRepository) Create(ctx context.Context, book *models.Book) error {
	if book.ID == "" {
		book.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	book.CreatedAt, book.UpdatedAt = now, now
	const query = `INSERT INTO books (id, class_id, subject, title, total_pages, description, active, created_at, updated_at)
        VALUES (:id, :class_id, :subject, :title, :total_pages, :description, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, book); err != nil {
		return fmt.Errorf("create book: %w", err)
	}
	return nil
}

// Update persists a book.
func (r *BookRepository) Update(ctx context.Context, book *models.Book) error {
	book.UpdatedAt = time.Now().UTC()
	const query = `UPDATE books SET class_id = :class_id, subject = :subject, title = :title, total_pages = :total_pages,
        description = :description, active = :active, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, book)
	if err != nil {
		return fmt.Errorf("update book: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Deactivate retires a book from the catalogue.
func (r *BookRepository) Deactivate(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`UPDATE books SET active = ?, updated_at = ? WHERE id = ?`), false, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("deactivate book: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
