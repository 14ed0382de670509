package service

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/maktab-api/internal/models"
)

func TestLevelFromName(t *testing.T) {
	assert.Equal(t, 3, levelFromName("Class 3"))
	assert.Equal(t, 10, levelFromName("Hifz 10 (evening)"))
	assert.Equal(t, 0, levelFromName("Nurani"))
	assert.Equal(t, 0, levelFromName("Batch 2024"))
}

func TestClassCreateDerivesLevel(t *testing.T) {
	repo := newFakeClassRepo()
	cache := &fakeInvalidator{}
	svc := NewClassService(repo, cache, nil, nil)

	class, err := svc.Create(context.Background(), ClassRequest{Name: " Class 4 "})
	require.NoError(t, err)
	assert.Equal(t, "Class 4", class.Name)
	assert.Equal(t, 4, class.Level)
	assert.True(t, class.Active)
	assert.Equal(t, []string{dashboardCachePattern}, cache.patterns)

	explicit, err := svc.Create(context.Background(), ClassRequest{Name: "Nazera", Level: 6})
	require.NoError(t, err)
	assert.Equal(t, 6, explicit.Level)
}

func TestClassCreateRejectsDuplicateName(t *testing.T) {
	repo := newFakeClassRepo(models.Class{ID: "c1", Name: "Class 1", Level: 1, Active: true})
	svc := NewClassService(repo, nil, nil, nil)

	_, err := svc.Create(context.Background(), ClassRequest{Name: "class 1"})
	requireAppError(t, err, http.StatusConflict)

	_, err = svc.Create(context.Background(), ClassRequest{Name: ""})
	appErr := requireAppError(t, err, http.StatusBadRequest)
	assert.Equal(t, "name is required", appErr.Message)
}

func TestClassUpdate(t *testing.T) {
	repo := newFakeClassRepo(
		models.Class{ID: "c1", Name: "Class 1", Level: 1, Active: true},
		models.Class{ID: "c2", Name: "Class 2", Level: 2, Active: true},
	)
	svc := NewClassService(repo, nil, nil, nil)

	updated, err := svc.Update(context.Background(), "c1", ClassRequest{Name: "Class One", Active: boolPtr(false)})
	require.NoError(t, err)
	assert.Equal(t, "Class One", updated.Name)
	assert.Equal(t, 1, updated.Level)
	assert.False(t, updated.Active)

	_, err = svc.Update(context.Background(), "c1", ClassRequest{Name: "CLASS 2"})
	requireAppError(t, err, http.StatusConflict)

	_, err = svc.Update(context.Background(), "nope", ClassRequest{Name: "X"})
	requireAppError(t, err, http.StatusNotFound)
}

func TestClassDeleteBlockedByActiveStudents(t *testing.T) {
	repo := newFakeClassRepo(models.Class{ID: "c1", Name: "Class 1", Level: 1, Active: true})
	repo.activeCount["c1"] = 2
	svc := NewClassService(repo, nil, nil, nil)

	err := svc.Delete(context.Background(), "c1")
	requireAppError(t, err, http.StatusConflict)
	assert.Empty(t, repo.deactivated)

	repo.activeCount["c1"] = 0
	require.NoError(t, svc.Delete(context.Background(), "c1"))
	assert.Equal(t, []string{"c1"}, repo.deactivated)
}
