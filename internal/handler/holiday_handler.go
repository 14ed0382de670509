package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/maktab-api/internal/models"
	"github.com/noah-isme/maktab-api/internal/service"
	appErrors "github.com/noah-isme/maktab-api/pkg/errors"
	"github.com/noah-isme/maktab-api/pkg/response"
)

type holidayService interface {
	List(ctx context.Context, q service.HolidayQuery) ([]models.Holiday, error)
	Create(ctx context.Context, req service.HolidayRequest) (*models.Holiday, error)
	Update(ctx context.Context, id string, req service.HolidayRequest) (*models.Holiday, error)
	Delete(ctx context.Context, id string) error
	Check(ctx context.Context, raw string) (*models.HolidayCheck, error)
}

// HolidayHandler exposes the holiday calendar.
type HolidayHandler struct {
	holidays holidayService
}

// NewHolidayHandler constructs HolidayHandler.
func NewHolidayHandler(holidays holidayService) *HolidayHandler {
	return &HolidayHandler{holidays: holidays}
}

// List godoc
// @Summary List holidays
// @Tags Holidays
// @Produce json
// @Param from query string false "From (YYYY-MM-DD)"
// @Param to query string false "To (YYYY-MM-DD)"
// @Param year query int false "Calendar year, overrides from and to"
// @Success 200 {object} response.Envelope
// @Router /holidays [get]
func (h *HolidayHandler) List(c *gin.Context) {
	q := service.HolidayQuery{From: c.Query("from"), To: c.Query("to")}
	if raw := c.Query("year"); raw != "" {
		year, err := strconv.Atoi(raw)
		if err != nil || year < 1 {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid year"))
			return
		}
		q.Year = year
	}
	holidays, err := h.holidays.List(c.Request.Context(), q)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, holidays, nil)
}

// Check godoc
// @Summary Whether a date is a holiday
// @Tags Holidays
// @Produce json
// @Param date query string false "Date (YYYY-MM-DD), defaults to today"
// @Success 200 {object} response.Envelope
// @Router /holidays/check [get]
func (h *HolidayHandler) Check(c *gin.Context) {
	check, err := h.holidays.Check(c.Request.Context(), c.Query("date"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, check, nil)
}

// Create godoc
// @Summary Create or replace the holiday of a date
// @Tags Holidays
// @Accept json
// @Produce json
// @Param payload body service.HolidayRequest true "Holiday payload"
// @Success 201 {object} response.Envelope
// @Router /holidays [post]
func (h *HolidayHandler) Create(c *gin.Context) {
	var req service.HolidayRequest
	if !bindJSON(c, &req) {
		return
	}
	holiday, err := h.holidays.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, holiday)
}

// Update godoc
// @Summary Update holiday
// @Tags Holidays
// @Accept json
// @Produce json
// @Param id path string true "Holiday ID"
// @Param payload body service.HolidayRequest true "Holiday payload"
// @Success 200 {object} response.Envelope
// @Router /holidays/{id} [put]
func (h *HolidayHandler) Update(c *gin.Context) {
	var req service.HolidayRequest
	if !bindJSON(c, &req) {
		return
	}
	holiday, err := h.holidays.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, holiday, nil)
}

// Delete godoc
// @Summary Delete holiday
// @Tags Holidays
// @Param id path string true "Holiday ID"
// @Success 204
// @Router /holidays/{id} [delete]
func (h *HolidayHandler) Delete(c *gin.Context) {
	if err := h.holidays.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
