package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/maktab-api/internal/models"
	"github.com/noah-isme/maktab-api/internal/service"
	"github.com/noah-isme/maktab-api/pkg/response"
)

type attendanceService interface {
	Sheet(ctx context.Context, rawDate, classID string) (*models.AttendanceSheet, error)
	Save(ctx context.Context, req service.SaveAttendanceRequest) (*service.SaveAttendanceResult, error)
	Upsert(ctx context.Context, studentID, rawDate string, req service.UpsertAttendanceRequest) (*models.AttendanceRecord, error)
	StudentHistory(ctx context.Context, studentID, rawFrom, rawTo string) (*models.StudentAttendance, error)
}

// AttendanceHandler exposes daily attendance endpoints.
type AttendanceHandler struct {
	attendance attendanceService
}

// NewAttendanceHandler constructs AttendanceHandler.
func NewAttendanceHandler(attendance attendanceService) *AttendanceHandler {
	return &AttendanceHandler{attendance: attendance}
}

// Sheet godoc
// @Summary Attendance sheet of a date
// @Description Every active student appears once. Students without a stored row are shown present unless the date is a holiday.
// @Tags Attendance
// @Produce json
// @Param date query string false "Date (YYYY-MM-DD), defaults to today"
// @Param class_id query string false "Limit to one class"
// @Success 200 {object} response.Envelope
// @Router /attendance [get]
func (h *AttendanceHandler) Sheet(c *gin.Context) {
	sheet, err := h.attendance.Sheet(c.Request.Context(), c.Query("date"), c.Query("class_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sheet, nil)
}

// Save godoc
// @Summary Replace the attendance of a date
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body service.SaveAttendanceRequest true "Attendance snapshot"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /attendance [post]
func (h *AttendanceHandler) Save(c *gin.Context) {
	var req service.SaveAttendanceRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.attendance.Save(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Upsert godoc
// @Summary Set one student's attendance for a date
// @Tags Attendance
// @Accept json
// @Produce json
// @Param student_id path string true "Student ID"
// @Param date path string true "Date (YYYY-MM-DD)"
// @Param payload body service.UpsertAttendanceRequest true "Status"
// @Success 200 {object} response.Envelope
// @Router /attendance/{student_id}/{date} [put]
func (h *AttendanceHandler) Upsert(c *gin.Context) {
	var req service.UpsertAttendanceRequest
	if !bindJSON(c, &req) {
		return
	}
	record, err := h.attendance.Upsert(c.Request.Context(), c.Param("student_id"), c.Param("date"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// StudentHistory godoc
// @Summary Attendance history of a student
// @Tags Attendance
// @Produce json
// @Param id path string true "Student ID"
// @Param from query string false "From (YYYY-MM-DD)"
// @Param to query string false "To (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /attendance/students/{id} [get]
func (h *AttendanceHandler) StudentHistory(c *gin.Context) {
	history, err := h.attendance.StudentHistory(c.Request.Context(), c.Param("id"), c.Query("from"), c.Query("to"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, history, nil)
}
