package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/maktab-api/internal/dto"
	"github.com/noah-isme/maktab-api/internal/models"
	"github.com/noah-isme/maktab-api/internal/repository"
	appErrors "github.com/noah-isme/maktab-api/pkg/errors"
	"github.com/noah-isme/maktab-api/pkg/export"
	"github.com/noah-isme/maktab-api/pkg/jobs"
	"github.com/noah-isme/maktab-api/pkg/storage"
)

// ReportTaskKind tags export tasks on the worker queue.
const ReportTaskKind = "report_export"

type reportJobStore interface {
	Create(ctx context.Context, job *models.ReportJob) error
	GetByID(ctx context.Context, id string) (*models.ReportJob, error)
	Update(ctx context.Context, id string, params repository.UpdateReportJobParams) error
	ListByStatus(ctx context.Context, status models.ReportStatus, limit int) ([]models.ReportJob, error)
	ListFinishedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.ReportJob, error)
	ClearResult(ctx context.Context, id string) error
}

type tableSource interface {
	Table(ctx context.Context, reportType models.ReportType, params models.ReportJobParams) (export.Table, error)
}

type fileStore interface {
	Save(name string, data []byte) (string, error)
	Open(name string) (*os.File, error)
	Delete(name string) error
	Prune(ttl time.Duration, now time.Time) ([]string, error)
}

type taskSubmitter interface {
	Submit(task jobs.Task) error
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	// DownloadPath prefixes the token in result URLs, e.g. /api/reports/download.
	DownloadPath string
	ResultTTL    time.Duration
}

// ExportServiceParams groups constructor dependencies.
type ExportServiceParams struct {
	Jobs      reportJobStore
	Tables    tableSource
	Files     fileStore
	Signer    *storage.Signer
	Metrics   *MetricsService
	Validator *validator.Validate
	Logger    *zap.Logger
	Config    ExportConfig
}

// ReportDownload is an opened export ready to stream.
type ReportDownload struct {
	File        *os.File
	Filename    string
	ContentType string
	ExpiresAt   time.Time
}

// ExportService runs the export job lifecycle: queueing, rendering,
// signed downloads and expiry.
type ExportService struct {
	jobs      reportJobStore
	tables    tableSource
	files     fileStore
	signer    *storage.Signer
	queue     taskSubmitter
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       ExportConfig
	now       func() time.Time
}

// NewExportService constructs an ExportService. AttachQueue must be called
// before jobs can be created.
func NewExportService(params ExportServiceParams) *ExportService {
	cfg := params.Config
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if cfg.DownloadPath == "" {
		cfg.DownloadPath = "/api/reports/download"
	}
	cfg.DownloadPath = strings.TrimRight(cfg.DownloadPath, "/")
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		jobs:      params.Jobs,
		tables:    params.Tables,
		files:     params.Files,
		signer:    params.Signer,
		metrics:   params.Metrics,
		validator: registerValidators(params.Validator),
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
	}
}

// AttachQueue sets the queue export tasks are submitted to.
func (s *ExportService) AttachQueue(queue taskSubmitter) {
	s.queue = queue
}

// CreateJob validates req, persists a queued job and submits it to the worker queue.
func (s *ExportService) CreateJob(ctx context.Context, req dto.ReportRequest, actorID string) (*dto.ReportJobResponse, error) {
	req.Type = models.ReportType(strings.ToLower(strings.TrimSpace(string(req.Type))))
	req.Format = models.ReportFormat(strings.ToLower(strings.TrimSpace(string(req.Format))))
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid report request")
	}
	if req.Type == models.ReportTypeAttendance {
		if _, _, err := reportWindow(req.From, req.To); err != nil {
			return nil, err
		}
	}
	if s.queue == nil {
		return nil, appErrors.Clone(appErrors.ErrServiceUnavailable, "report worker is not running")
	}

	job := &models.ReportJob{
		Type:      req.Type,
		Format:    req.Format,
		Params:    models.ReportJobParams{From: req.From, To: req.To, ClassID: strings.TrimSpace(req.ClassID)},
		Status:    models.ReportStatusQueued,
		CreatedBy: actorID,
	}
	if err := s.jobs.Create(ctx, job); err != nil {
		return nil, appErrors.Internal(err, "failed to create report job")
	}
	if err := s.queue.Submit(jobs.Task{ID: job.ID, Kind: ReportTaskKind}); err != nil {
		s.finish(ctx, job, models.ReportStatusFailed, "failed to enqueue job")
		return nil, appErrors.Wrap(err, appErrors.ErrServiceUnavailable.Code, appErrors.ErrServiceUnavailable.Status, "failed to enqueue report job")
	}
	s.metrics.RecordReportJob(string(job.Type), string(models.ReportStatusQueued))
	s.logger.Info("report job queued", zap.String("job_id", job.ID), zap.String("type", string(job.Type)), zap.String("format", string(job.Format)))
	return &dto.ReportJobResponse{ID: job.ID, Status: job.Status}, nil
}

// GetStatus describes a job for polling clients.
func (s *ExportService) GetStatus(ctx context.Context, id string) (*dto.ReportStatusResponse, error) {
	job, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := &dto.ReportStatusResponse{
		ID:        job.ID,
		Type:      job.Type,
		Format:    job.Format,
		Status:    job.Status,
		ResultURL: job.ResultURL,
		CreatedAt: job.CreatedAt.UTC().Format(time.RFC3339),
	}
	if job.ErrorMessage != nil && *job.ErrorMessage != "" {
		resp.Error = job.ErrorMessage
	}
	if job.FinishedAt != nil {
		finished := job.FinishedAt.UTC().Format(time.RFC3339)
		resp.FinishedAt = &finished
	}
	return resp, nil
}

// Process is the queue handler: it renders the job's report and stores the file.
// Returned errors are retried by the queue; request errors fail the job at once.
func (s *ExportService) Process(ctx context.Context, task jobs.Task) error {
	job, err := s.jobs.GetByID(ctx, task.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.logger.Warn("report job vanished before processing", zap.String("job_id", task.ID))
			return nil
		}
		return err
	}
	if job.Status == models.ReportStatusCompleted || job.Status == models.ReportStatusFailed {
		return nil
	}

	processing := models.ReportStatusProcessing
	if err := s.jobs.Update(ctx, job.ID, repository.UpdateReportJobParams{Status: &processing}); err != nil {
		return err
	}

	rel, err := s.render(ctx, job)
	if err != nil {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) && appErr.Status < http.StatusInternalServerError {
			s.finish(ctx, job, models.ReportStatusFailed, appErr.Message)
			return nil
		}
		return err
	}

	token, _, err := s.signer.Sign(job.ID, rel)
	if err != nil {
		return err
	}
	url := s.cfg.DownloadPath + "/" + token
	now := s.now().UTC()
	completed := models.ReportStatusCompleted
	noError := ""
	if err := s.jobs.Update(ctx, job.ID, repository.UpdateReportJobParams{
		Status:       &completed,
		ResultPath:   &rel,
		ResultURL:    &url,
		ErrorMessage: &noError,
		FinishedAt:   &now,
	}); err != nil {
		return err
	}
	s.metrics.RecordReportJob(string(job.Type), string(completed))
	s.logger.Info("report job completed", zap.String("job_id", job.ID), zap.String("path", rel))
	return nil
}

// MarkFailed records a job that exhausted its retries.
func (s *ExportService) MarkFailed(task jobs.Task, cause error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	job, err := s.jobs.GetByID(ctx, task.ID)
	if err != nil {
		s.logger.Warn("failed to load report job", zap.String("job_id", task.ID), zap.Error(err))
		return
	}
	message := "report generation failed"
	if cause != nil {
		message = cause.Error()
	}
	s.finish(ctx, job, models.ReportStatusFailed, message)
}

// ResolveDownload validates token and opens the stored export file.
func (s *ExportService) ResolveDownload(ctx context.Context, token string) (*ReportDownload, error) {
	grant, err := s.signer.Verify(token, false)
	if err != nil {
		if errors.Is(err, storage.ErrTokenExpired) {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "download link expired")
		}
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid download token")
	}
	job, err := s.load(ctx, grant.JobID)
	if err != nil {
		return nil, err
	}
	if job.Status != models.ReportStatusCompleted || job.ResultPath == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "report file not available")
	}
	if *job.ResultPath != grant.Path {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "token does not match report")
	}
	renderer, err := export.For(export.Format(job.Format))
	if err != nil {
		return nil, appErrors.Internal(err, "unsupported report format")
	}
	file, err := s.files.Open(grant.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "report file not available")
		}
		return nil, appErrors.Internal(err, "failed to open export file")
	}
	return &ReportDownload{
		File:        file,
		Filename:    path.Base(grant.Path),
		ContentType: renderer.ContentType(),
		ExpiresAt:   grant.ExpiresAt,
	}, nil
}

// RecoverPendingJobs resubmits jobs left queued or processing by a previous run.
func (s *ExportService) RecoverPendingJobs(ctx context.Context) int {
	if s.queue == nil {
		return 0
	}
	recovered := 0
	for _, status := range []models.ReportStatus{models.ReportStatusProcessing, models.ReportStatusQueued} {
		pending, err := s.jobs.ListByStatus(ctx, status, 100)
		if err != nil {
			s.logger.Warn("failed to list pending report jobs", zap.String("status", string(status)), zap.Error(err))
			continue
		}
		for _, job := range pending {
			if err := s.queue.Submit(jobs.Task{ID: job.ID, Kind: ReportTaskKind}); err != nil {
				s.logger.Warn("failed to requeue report job", zap.String("job_id", job.ID), zap.Error(err))
				continue
			}
			recovered++
		}
	}
	if recovered > 0 {
		s.logger.Info("recovered pending report jobs", zap.Int("count", recovered))
	}
	return recovered
}

// Cleanup deletes exports older than the result TTL and forgets their URLs.
// It returns the number of jobs whose file was removed.
func (s *ExportService) Cleanup(ctx context.Context) (int, error) {
	now := s.now()
	cutoff := now.Add(-s.cfg.ResultTTL)
	removed := 0
	for {
		expired, err := s.jobs.ListFinishedBefore(ctx, cutoff, 100)
		if err != nil {
			return removed, fmt.Errorf("list expired exports: %w", err)
		}
		for _, job := range expired {
			if job.ResultPath != nil {
				if err := s.files.Delete(*job.ResultPath); err != nil {
					s.logger.Warn("failed to delete export file", zap.String("job_id", job.ID), zap.Error(err))
				}
			}
			if err := s.jobs.ClearResult(ctx, job.ID); err != nil {
				return removed, fmt.Errorf("clear export %s: %w", job.ID, err)
			}
			removed++
		}
		if len(expired) < 100 {
			break
		}
	}
	orphans, err := s.files.Prune(s.cfg.ResultTTL, now)
	if err != nil {
		return removed, err
	}
	if removed > 0 || len(orphans) > 0 {
		s.logger.Info("expired exports removed", zap.Int("jobs", removed), zap.Int("files", len(orphans)))
	}
	return removed, nil
}

func (s *ExportService) render(ctx context.Context, job *models.ReportJob) (string, error) {
	renderer, err := export.For(export.Format(job.Format))
	if err != nil {
		return "", appErrors.Validation(err, "unsupported report format")
	}
	table, err := s.tables.Table(ctx, job.Type, job.Params)
	if err != nil {
		return "", err
	}
	data, err := renderer.Render(table)
	if err != nil {
		return "", fmt.Errorf("render %s: %w", job.Format, err)
	}
	return s.files.Save(s.filename(job), data)
}

func (s *ExportService) filename(job *models.ReportJob) string {
	stamp := s.now().UTC().Format("20060102_150405")
	return fmt.Sprintf("%s/%s_%s_%s.%s", stamp[:8], job.Type, stamp, shortID(job.ID), job.Format)
}

func (s *ExportService) finish(ctx context.Context, job *models.ReportJob, status models.ReportStatus, message string) {
	now := s.now().UTC()
	params := repository.UpdateReportJobParams{Status: &status, FinishedAt: &now}
	if message != "" {
		params.ErrorMessage = &message
	}
	if err := s.jobs.Update(ctx, job.ID, params); err != nil {
		s.logger.Warn("failed to update report job", zap.String("job_id", job.ID), zap.String("status", string(status)), zap.Error(err))
		return
	}
	s.metrics.RecordReportJob(string(job.Type), string(status))
	if status == models.ReportStatusFailed {
		s.logger.Warn("report job failed", zap.String("job_id", job.ID), zap.String("error", message))
	}
}

func (s *ExportService) load(ctx context.Context, id string) (*models.ReportJob, error) {
	job, err := s.jobs.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "report job not found")
		}
		return nil, appErrors.Internal(err, "failed to load report job")
	}
	return job, nil
}

func shortID(id string) string {
	id = strings.ReplaceAll(id, "-", "")
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
