package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/maktab-api/internal/service"
	"github.com/noah-isme/maktab-api/pkg/response"
)

// EducationHandler exposes per class book progress.
type EducationHandler struct {
	progress *service.EducationService
}

// NewEducationHandler constructs EducationHandler.
func NewEducationHandler(progress *service.EducationService) *EducationHandler {
	return &EducationHandler{progress: progress}
}

// List godoc
// @Summary List education progress
// @Tags Education
// @Produce json
// @Param class_id query string false "Filter by class"
// @Success 200 {object} response.Envelope
// @Router /education [get]
func (h *EducationHandler) List(c *gin.Context) {
	rows, err := h.progress.List(c.Request.Context(), c.Query("class_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, nil)
}

// Get godoc
// @Summary Get education progress row
// @Tags Education
// @Produce json
// @Param id path string true "Progress ID"
// @Success 200 {object} response.Envelope
// @Router /education/{id} [get]
func (h *EducationHandler) Get(c *gin.Context) {
	row, err := h.progress.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, row, nil)
}

// Save godoc
// @Summary Record progress, upserting by class and book name
// @Tags Education
// @Accept json
// @Produce json
// @Param payload body service.EducationRequest true "Progress payload"
// @Success 200 {object} response.Envelope
// @Router /education [post]
func (h *EducationHandler) Save(c *gin.Context) {
	var req service.EducationRequest
	if !bindJSON(c, &req) {
		return
	}
	row, err := h.progress.Save(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, row, nil)
}

// Update godoc
// @Summary Update education progress row
// @Tags Education
// @Accept json
// @Produce json
// @Param id path string true "Progress ID"
// @Param payload body service.EducationRequest true "Progress payload"
// @Success 200 {object} response.Envelope
// @Router /education/{id} [put]
func (h *EducationHandler) Update(c *gin.Context) {
	var req service.EducationRequest
	if !bindJSON(c, &req) {
		return
	}
	row, err := h.progress.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, row, nil)
}

// Delete godoc
// @Summary Delete education progress row
// @Tags Education
// @Param id path string true "Progress ID"
// @Success 204
// @Router /education/{id} [delete]
func (h *EducationHandler) Delete(c *gin.Context) {
	if err := h.progress.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
