package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/maktab-api/internal/models"
	"github.com/noah-isme/maktab-api/internal/service"
	appErrors "github.com/noah-isme/maktab-api/pkg/errors"
)

type fakeStudentSrv struct {
	filter   models.StudentFilter
	created  service.StudentRequest
	deleted  string
	hard     bool
	nextRoll *service.NextRoll
}

func (f *fakeStudentSrv) List(_ context.Context, filter models.StudentFilter) ([]models.StudentDetail, *models.Pagination, error) {
	f.filter = filter
	return []models.StudentDetail{}, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize}, nil
}

func (f *fakeStudentSrv) Get(_ context.Context, id string) (*models.StudentDetail, error) {
	if id == "missing" {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	return &models.StudentDetail{Student: models.Student{ID: id}}, nil
}

func (f *fakeStudentSrv) NextRoll(_ context.Context, classID string) (*service.NextRoll, error) {
	return f.nextRoll, nil
}

func (f *fakeStudentSrv) Create(_ context.Context, req service.StudentRequest) (*models.StudentDetail, error) {
	f.created = req
	return &models.StudentDetail{Student: models.Student{ID: "s1", Name: req.Name}}, nil
}

func (f *fakeStudentSrv) Update(_ context.Context, id string, req service.StudentRequest) (*models.StudentDetail, error) {
	return &models.StudentDetail{Student: models.Student{ID: id, Name: req.Name}}, nil
}

func (f *fakeStudentSrv) Delete(_ context.Context, id string, hard bool) error {
	f.deleted, f.hard = id, hard
	return nil
}

func TestStudentHandlerListParsesFilters(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeStudentSrv{}
	handler := NewStudentHandler(srv)

	c, w := newGinContext(http.MethodGet, "/students?search=%20amina%20&class_id=c1&active=false&page=2&limit=10&sort=roll_number&order=desc", nil)
	handler.List(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "amina", srv.filter.Search)
	assert.Equal(t, "c1", srv.filter.ClassID)
	require.NotNil(t, srv.filter.Active)
	assert.False(t, *srv.filter.Active)
	assert.Equal(t, 2, srv.filter.Page)
	assert.Equal(t, 10, srv.filter.PageSize)
	assert.Equal(t, "roll_number", srv.filter.SortBy)

	c, w = newGinContext(http.MethodGet, "/students?active=maybe", nil)
	handler.List(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStudentHandlerCreateAndDelete(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeStudentSrv{}
	handler := NewStudentHandler(srv)

	c, w := newGinContext(http.MethodPost, "/students", []byte(`{"name":"Amina","class_id":"c1","roll_number":105}`))
	handler.Create(c)
	require.Equal(t, http.StatusCreated, w.Code)
	require.NotNil(t, srv.created.RollNumber)
	assert.Equal(t, 105, *srv.created.RollNumber)

	c, w = newGinContext(http.MethodDelete, "/students/s1?hard=true", nil)
	c.Params = gin.Params{{Key: "id", Value: "s1"}}
	handler.Delete(c)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "s1", srv.deleted)
	assert.True(t, srv.hard)
}

func TestStudentHandlerNotFoundAndNextRoll(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeStudentSrv{nextRoll: &service.NextRoll{ClassID: "c1", RollNumber: 201}}
	handler := NewStudentHandler(srv)

	c, w := newGinContext(http.MethodGet, "/students/missing", nil)
	c.Params = gin.Params{{Key: "id", Value: "missing"}}
	handler.Get(c)
	assert.Equal(t, http.StatusNotFound, w.Code)

	c, w = newGinContext(http.MethodGet, "/students/next-roll", nil)
	handler.NextRoll(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	c, w = newGinContext(http.MethodGet, "/students/next-roll?class_id=c1", nil)
	handler.NextRoll(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(201), decodeEnvelope(t, w).Data["roll_number"])
}
