package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/maktab-api/internal/models"
)

const reportJobColumns = `id, type, format, params, status, result_path, result_url, error_message, created_by, created_at, finished_at`

// ReportJobRepository persists export job metadata.
type ReportJobRepository struct {
	db *sqlx.DB
}

// NewReportJobRepository constructs a ReportJobRepository.
func NewReportJobRepository(db *sqlx.DB) *ReportJobRepository {
	return &ReportJobRepository{db: db}
}

// Create inserts a job.
func (r *ReportJobRepository) Create(ctx context.Context, job *models.ReportJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO report_jobs (id, type, format, params, status, result_path, result_url, error_message, created_by, created_at, finished_at)
        VALUES (:id, :type, :format, :params, :status, :result_path, :result_url, :error_message, :created_by, :created_at, :finished_at)`
	if _, err := r.db.NamedExecContext(ctx, query, job); err != nil {
		return fmt.Errorf("create report job: %w", err)
	}
	return nil
}

// GetByID fetches a job.
func (r *ReportJobRepository) GetByID(ctx context.Context, id string) (*models.ReportJob, error) {
	var job models.ReportJob
	if err := r.db.GetContext(ctx, &job, r.db.Rebind("SELECT "+reportJobColumns+" FROM report_jobs WHERE id = ?"), id); err != nil {
		return nil, err
	}
	return &job, nil
}

// UpdateReportJobParams defines mutable fields of a job. Nil fields are left untouched.
type UpdateReportJobParams struct {
	Status       *models.ReportStatus
	ResultPath   *string
	ResultURL    *string
	ErrorMessage *string
	FinishedAt   *time.Time
}

// Update persists the provided changes for a job row.
func (r *ReportJobRepository) Update(ctx context.Context, id string, params UpdateReportJobParams) error {
	set := &whereClause{}
	if params.Status != nil {
		set.add("status = ?", *params.Status)
	}
	if params.ResultPath != nil {
		set.add("result_path = ?", *params.ResultPath)
	}
	if params.ResultURL != nil {
		set.add("result_url = ?", *params.ResultURL)
	}
	if params.ErrorMessage != nil {
		set.add("error_message = ?", *params.ErrorMessage)
	}
	if params.FinishedAt != nil {
		set.add("finished_at = ?", *params.FinishedAt)
	}
	if len(set.conditions) == 0 {
		return nil
	}

	query := "UPDATE report_jobs SET " + strings.Join(set.conditions, ", ") + " WHERE id = ?"
	args := append(set.args, id)
	res, err := r.db.ExecContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		return fmt.Errorf("update report job: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListByStatus returns the oldest jobs in status.
func (r *ReportJobRepository) ListByStatus(ctx context.Context, status models.ReportStatus, limit int) ([]models.ReportJob, error) {
	if limit <= 0 {
		limit = 50
	}
	query := "SELECT " + reportJobColumns + " FROM report_jobs WHERE status = ? ORDER BY created_at ASC LIMIT ?"
	var jobs []models.ReportJob
	if err := r.db.SelectContext(ctx, &jobs, r.db.Rebind(query), status, limit); err != nil {
		return nil, fmt.Errorf("list %s report jobs: %w", status, err)
	}
	return jobs, nil
}

// ListFinishedBefore returns completed jobs with a stored file finished before cutoff.
func (r *ReportJobRepository) ListFinishedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.ReportJob, error) {
	if limit <= 0 {
		limit = 100
	}
	query := "SELECT " + reportJobColumns + ` FROM report_jobs
        WHERE status = ? AND result_path IS NOT NULL AND finished_at < ? ORDER BY finished_at ASC LIMIT ?`
	var jobs []models.ReportJob
	if err := r.db.SelectContext(ctx, &jobs, r.db.Rebind(query), models.ReportStatusCompleted, cutoff, limit); err != nil {
		return nil, fmt.Errorf("list finished report jobs: %w", err)
	}
	return jobs, nil
}

// ClearResult drops the stored file reference after the file was removed.
func (r *ReportJobRepository) ClearResult(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, r.db.Rebind(`UPDATE report_jobs SET result_path = NULL, result_url = NULL WHERE id = ?`), id); err != nil {
		return fmt.Errorf("clear report job result: %w", err)
	}
	return nil
}
