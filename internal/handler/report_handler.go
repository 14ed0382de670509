package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/maktab-api/internal/dto"
	"github.com/noah-isme/maktab-api/internal/service"
	appErrors "github.com/noah-isme/maktab-api/pkg/errors"
	"github.com/noah-isme/maktab-api/pkg/response"
)

type reportService interface {
	Attendance(ctx context.Context, rawFrom, rawTo, classID string) (*dto.AttendanceReport, error)
	Students(ctx context.Context, classID string) (*dto.StudentsReport, error)
	Education(ctx context.Context, classID string) (*dto.EducationReport, error)
}

type exportService interface {
	CreateJob(ctx context.Context, req dto.ReportRequest, actorID string) (*dto.ReportJobResponse, error)
	GetStatus(ctx context.Context, id string) (*dto.ReportStatusResponse, error)
	ResolveDownload(ctx context.Context, token string) (*service.ReportDownload, error)
}

// ReportHandler exposes reports and their file exports.
type ReportHandler struct {
	reports reportService
	exports exportService
}

// NewReportHandler constructs handler.
func NewReportHandler(reports reportService, exports exportService) *ReportHandler {
	return &ReportHandler{reports: reports, exports: exports}
}

// Attendance godoc
// @Summary Attendance report
// @Tags Reports
// @Produce json
// @Param from query string false "From (YYYY-MM-DD), defaults to the start of the month"
// @Param to query string false "To (YYYY-MM-DD), defaults to today"
// @Param class_id query string false "Class ID"
// @Success 200 {object} response.Envelope
// @Router /reports/attendance [get]
func (h *ReportHandler) Attendance(c *gin.Context) {
	report, err := h.reports.Attendance(c.Request.Context(), c.Query("from"), c.Query("to"), c.Query("class_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// Students godoc
// @Summary Class wise student report
// @Tags Reports
// @Produce json
// @Param class_id query string false "Class ID"
// @Success 200 {object} response.Envelope
// @Router /reports/students [get]
func (h *ReportHandler) Students(c *gin.Context) {
	report, err := h.reports.Students(c.Request.Context(), c.Query("class_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// Education godoc
// @Summary Education progress report
// @Tags Reports
// @Produce json
// @Param class_id query string false "Class ID"
// @Success 200 {object} response.Envelope
// @Router /reports/education [get]
func (h *ReportHandler) Education(c *gin.Context) {
	report, err := h.reports.Education(c.Request.Context(), c.Query("class_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// CreateExport godoc
// @Summary Queue a report export
// @Tags Reports
// @Accept json
// @Produce json
// @Param payload body dto.ReportRequest true "Export request"
// @Success 202 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /reports/exports [post]
func (h *ReportHandler) CreateExport(c *gin.Context) {
	var req dto.ReportRequest
	if !bindJSON(c, &req) {
		return
	}
	job, err := h.exports.CreateJob(c.Request.Context(), req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, job)
}

// ExportStatus godoc
// @Summary Export job status
// @Tags Reports
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Router /reports/exports/{id} [get]
func (h *ReportHandler) ExportStatus(c *gin.Context) {
	status, err := h.exports.GetStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, status, nil)
}

// Download godoc
// @Summary Download an export via signed token
// @Tags Reports
// @Produce octet-stream
// @Param token path string true "Signed token"
// @Success 200 {file} binary
// @Failure 403 {object} response.Envelope
// @Router /reports/download/{token} [get]
func (h *ReportHandler) Download(c *gin.Context) {
	token := strings.TrimSpace(c.Param("token"))
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token is required"))
		return
	}
	result, err := h.exports.ResolveDownload(c.Request.Context(), token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer result.File.Close() //nolint:errcheck

	var size int64 = -1
	if info, err := result.File.Stat(); err == nil {
		size = info.Size()
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", result.Filename))
	c.Header("Cache-Control", "no-store")
	c.Header("Expires", result.ExpiresAt.UTC().Format(http.TimeFormat))
	c.DataFromReader(http.StatusOK, size, result.ContentType, result.File, nil)
}
