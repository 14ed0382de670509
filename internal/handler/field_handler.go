package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/maktab-api/internal/service"
	"github.com/noah-isme/maktab-api/pkg/response"
)

// FieldHandler exposes the custom student field schema.
type FieldHandler struct {
	fields *service.FieldService
}

// NewFieldHandler constructs FieldHandler.
func NewFieldHandler(fields *service.FieldService) *FieldHandler {
	return &FieldHandler{fields: fields}
}

// List godoc
// @Summary List custom student fields
// @Tags Fields
// @Produce json
// @Param active query bool false "Filter by active state"
// @Success 200 {object} response.Envelope
// @Router /fields [get]
func (h *FieldHandler) List(c *gin.Context) {
	active, err := boolQuery(c, "active")
	if err != nil {
		response.Error(c, err)
		return
	}
	fields, err := h.fields.List(c.Request.Context(), active)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, fields, nil)
}

// Create godoc
// @Summary Define a custom student field
// @Tags Fields
// @Accept json
// @Produce json
// @Param payload body service.FieldRequest true "Field payload"
// @Success 201 {object} response.Envelope
// @Router /fields [post]
func (h *FieldHandler) Create(c *gin.Context) {
	var req service.FieldRequest
	if !bindJSON(c, &req) {
		return
	}
	field, err := h.fields.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, field)
}

// Update godoc
// @Summary Update a custom student field
// @Tags Fields
// @Accept json
// @Produce json
// @Param id path string true "Field ID"
// @Param payload body service.FieldRequest true "Field payload"
// @Success 200 {object} response.Envelope
// @Router /fields/{id} [put]
func (h *FieldHandler) Update(c *gin.Context) {
	var req service.FieldRequest
	if !bindJSON(c, &req) {
		return
	}
	field, err := h.fields.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, field, nil)
}

// Delete godoc
// @Summary Deactivate a custom student field
// @Tags Fields
// @Param id path string true "Field ID"
// @Success 204
// @Router /fields/{id} [delete]
func (h *FieldHandler) Delete(c *gin.Context) {
	if err := h.fields.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
