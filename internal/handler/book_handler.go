package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/maktab-api/internal/models"
	"github.com/noah-isme/maktab-api/internal/service"
	"github.com/noah-isme/maktab-api/pkg/response"
)

// BookHandler exposes the book catalogue.
type BookHandler struct {
	books *service.BookService
}

// NewBookHandler constructs BookHandler.
func NewBookHandler(books *service.BookService) *BookHandler {
	return &BookHandler{books: books}
}

// List godoc
// @Summary List books
// @Tags Books
// @Produce json
// @Param class_id query string false "Filter by class"
// @Param active query bool false "Filter by active state"
// @Success 200 {object} response.Envelope
// @Router /books [get]
func (h *BookHandler) List(c *gin.Context) {
	active, err := boolQuery(c, "active")
	if err != nil {
		response.Error(c, err)
		return
	}
	books, err := h.books.List(c.Request.Context(), models.BookFilter{ClassID: c.Query("class_id"), Active: active})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, books, nil)
}

// Get godoc
// @Summary Get book
// @Tags Books
// @Produce json
// @Param id path string true "Book ID"
// @Success 200 {object} response.Envelope
// @Router /books/{id} [get]
func (h *BookHandler) Get(c *gin.Context) {
	book, err := h.books.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, book, nil)
}

// Create godoc
// @Summary Create book
// @Tags Books
// @Accept json
// @Produce json
// @Param payload body service.BookRequest true "Book payload"
// @Success 201 {object} response.Envelope
// @Router /books [post]
func (h *BookHandler) Create(c *gin.Context) {
	var req service.BookRequest
	if !bindJSON(c, &req) {
		return
	}
	book, err := h.books.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, book)
}

// Update godoc
// @Summary Update book
// @Tags Books
// @Accept json
// @Produce json
// @Param id path string true "Book ID"
// @Param payload body service.BookRequest true "Book payload"
// @Success 200 {object} response.Envelope
// @Router /books/{id} [put]
func (h *BookHandler) Update(c *gin.Context) {
	var req service.BookRequest
	if !bindJSON(c, &req) {
		return
	}
	book, err := h.books.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, book, nil)
}

// Delete godoc
// @Summary Deactivate book
// @Tags Books
// @Param id path string true "Book ID"
// @Success 204
// @Router /books/{id} [delete]
func (h *BookHandler) Delete(c *gin.Context) {
	if err := h.books.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
