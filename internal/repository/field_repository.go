package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/maktab-api/internal/models"
)

const fieldColumns = `id, name, label, type, required, visible, options, sort_order, active, created_at, updated_at`

// FieldRepository persists the dynamic student field definitions.
type FieldRepository struct {
	db *sqlx.DB
}

// NewFieldRepository constructs a FieldRepository.
func NewFieldRepository(db *sqlx.DB) *FieldRepository {
	return &FieldRepository{db: db}
}

// List returns field definitions in display order. A nil active lists all.
func (r *FieldRepository) List(ctx context.Context, active *bool) ([]models.Field, error) {
	where := &whereClause{}
	if active != nil {
		where.add("active = ?", *active)
	}
	query := "SELECT " + fieldColumns + " FROM fields" + where.String() + " ORDER BY sort_order ASC, name ASC"
	var fields []models.Field
	if err := r.db.SelectContext(ctx, &fields, r.db.Rebind(query), where.args...); err != nil {
		return nil, fmt.Errorf("list fields: %w", err)
	}
	return fields, nil
}

// FindByID returns a field definition.
func (r *FieldRepository) FindByID(ctx context.Context, id string) (*models.Field, error) {
	var field models.Field
	if err := r.db.GetContext(ctx, &field, r.db.Rebind("SELECT "+fieldColumns+" FROM fields WHERE id = ?"), id); err != nil {
		return nil, err
	}
	return &field, nil
}

// FindByName returns a field definition by its slug.
func (r *FieldRepository) FindByName(ctx context.Context, name string) (*models.Field, error) {
	var field models.Field
	if err := r.db.GetContext(ctx, &field, r.db.Rebind("SELECT "+fieldColumns+" FROM fields WHERE name = ?"), name); err != nil {
		return nil, err
	}
	return &field, nil
}

// Create inserts a field definition.
func (r *FieldRepository) Create(ctx context.Context, field *models.Field) error {
	if field.ID == "" {
		field.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	field.CreatedAt = now
	field.UpdatedAt = now
	const query = `INSERT INTO fields (id, name, label, type, required, visible, options, sort_order, active, created_at, updated_at)
        VALUES (:id, :name, :label, :type, :required, :visible, :options, :sort_order, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, field); err != nil {
		return fmt.Errorf("create field: %w", err)
	}
	return nil
}

// Update persists a field definition. The name is immutable.
func (r *FieldRepository) Update(ctx context.Context, field *models.Field) error {
	field.UpdatedAt = time.Now().UTC()
	const query = `UPDATE fields SET label = :label, type = :type, required = :required, visible = :visible, options = :options,
        sort_order = :sort_order, active = :active, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, field)
	if err != nil {
		return fmt.Errorf("update field: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Deactivate hides a field from forms while keeping stored values.
func (r *FieldRepository) Deactivate(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`UPDATE fields SET active = ?, updated_at = ? WHERE id = ?`), false, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("deactivate field: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
