package service

import (
	"context"
	"database/sql"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/maktab-api/internal/models"
)

type fakeBookRepo struct {
	books       map[string]*models.Book
	deactivated []string
}

func (f *fakeBookRepo) List(ctx context.Context, filter models.BookFilter) ([]models.Book, error) {
	var out []models.Book
	for _, b := range f.books {
		if filter.ClassID == "" || b.ClassID == filter.ClassID {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (f *fakeBookRepo) FindByID(ctx context.Context, id string) (*models.Book, error) {
	b, ok := f.books[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *b
	return &clone, nil
}

func (f *fakeBookRepo) ExistsTitle(ctx context.Context, classID, title, excludeID string) (bool, error) {
	for id, b := range f.books {
		if id != excludeID && b.ClassID == classID && b.Title == title {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeBookRepo) Create(ctx context.Context, book *models.Book) error {
	book.ID = "book-" + book.Title
	clone := *book
	f.books[book.ID] = &clone
	return nil
}

func (f *fakeBookRepo) Update(ctx context.Context, book *models.Book) error {
	clone := *book
	f.books[book.ID] = &clone
	return nil
}

func (f *fakeBookRepo) Deactivate(ctx context.Context, id string) error {
	b, ok := f.books[id]
	if !ok {
		return sql.ErrNoRows
	}
	b.Active = false
	f.deactivated = append(f.deactivated, id)
	return nil
}

type fakeEducationRepo struct {
	rows map[string]*models.EducationProgress
}

func (f *fakeEducationRepo) List(ctx context.Context, classID string) ([]models.EducationProgress, error) {
	var out []models.EducationProgress
	for _, r := range f.rows {
		if classID == "" || r.ClassID == classID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakeEducationRepo) FindByID(ctx context.Context, id string) (*models.EducationProgress, error) {
	r, ok := f.rows[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *r
	return &clone, nil
}

func (f *fakeEducationRepo) Upsert(ctx context.Context, row *models.EducationProgress) error {
	for id, existing := range f.rows {
		if existing.ClassID == row.ClassID && existing.BookName == row.BookName {
			row.ID = id
		}
	}
	if row.ID == "" {
		row.ID = "edu-" + row.BookName
	}
	clone := *row
	f.rows[row.ID] = &clone
	return nil
}

func (f *fakeEducationRepo) Update(ctx context.Context, row *models.EducationProgress) error {
	if _, ok := f.rows[row.ID]; !ok {
		return sql.ErrNoRows
	}
	clone := *row
	f.rows[row.ID] = &clone
	return nil
}

func (f *fakeEducationRepo) Delete(ctx context.Context, id string) error {
	if _, ok := f.rows[id]; !ok {
		return sql.ErrNoRows
	}
	delete(f.rows, id)
	return nil
}

func catalogueFixture() (*BookService, *EducationService, *fakeBookRepo, *fakeEducationRepo, *fakeInvalidator) {
	classes := newFakeClassRepo(models.Class{ID: "c1", Name: "Class 1", Level: 1, Active: true})
	books := &fakeBookRepo{books: map[string]*models.Book{
		"b1": {ID: "b1", ClassID: "c1", Subject: "Quran", Title: "Qaida", TotalPages: 40, Active: true},
	}}
	education := &fakeEducationRepo{rows: map[string]*models.EducationProgress{}}
	cache := &fakeInvalidator{}
	return NewBookService(books, classes, cache, nil, nil),
		NewEducationService(education, classes, books, cache, nil, nil),
		books, education, cache
}

func TestBookCreateAndConflicts(t *testing.T) {
	books, _, repo, _, cache := catalogueFixture()
	ctx := context.Background()

	book, err := books.Create(ctx, BookRequest{ClassID: "c1", Subject: "Fiqh", Title: " Taleemul Islam ", TotalPages: 80})
	require.NoError(t, err)
	assert.Equal(t, "Taleemul Islam", book.Title)
	assert.True(t, book.Active)
	assert.Equal(t, 1, cache.calls())

	_, err = books.Create(ctx, BookRequest{ClassID: "c1", Title: "Qaida", TotalPages: 10})
	requireAppError(t, err, http.StatusConflict)

	_, err = books.Create(ctx, BookRequest{ClassID: "c1", Title: "Empty", TotalPages: 0})
	requireAppError(t, err, http.StatusBadRequest)

	_, err = books.Create(ctx, BookRequest{ClassID: "c9", Title: "Lost", TotalPages: 5})
	requireAppError(t, err, http.StatusNotFound)

	require.NoError(t, books.Delete(ctx, "b1"))
	assert.Equal(t, []string{"b1"}, repo.deactivated)
}

func TestEducationSaveDefaultsFromBook(t *testing.T) {
	_, education, _, _, cache := catalogueFixture()
	bookID := "b1"

	row, err := education.Save(context.Background(), EducationRequest{ClassID: "c1", BookID: &bookID, CompletedPages: 10})
	require.NoError(t, err)
	assert.Equal(t, "Qaida", row.BookName)
	assert.Equal(t, "Quran", row.Subject)
	assert.Equal(t, 40, row.TotalPages)
	assert.Equal(t, 25.0, row.Percentage)
	assert.Equal(t, models.Today(), row.LastUpdated)
	assert.Equal(t, 1, cache.calls())

	again, err := education.Save(context.Background(), EducationRequest{ClassID: "c1", BookName: "Qaida", TotalPages: 40, CompletedPages: 30})
	require.NoError(t, err)
	assert.Equal(t, row.ID, again.ID, "same class and book name updates the row")
	assert.Equal(t, 75.0, again.Percentage)
}

func TestEducationPageBounds(t *testing.T) {
	_, education, _, _, _ := catalogueFixture()
	ctx := context.Background()

	_, err := education.Save(ctx, EducationRequest{ClassID: "c1", BookName: "Hadith", TotalPages: 30, CompletedPages: 31})
	requireAppError(t, err, http.StatusBadRequest)

	_, err = education.Save(ctx, EducationRequest{ClassID: "c1", BookName: "Hadith", CompletedPages: 1})
	requireAppError(t, err, http.StatusBadRequest)

	_, err = education.Save(ctx, EducationRequest{ClassID: "c1", BookName: "Hadith", TotalPages: 30, CompletedPages: -1})
	requireAppError(t, err, http.StatusBadRequest)

	_, err = education.Save(ctx, EducationRequest{ClassID: "c1", TotalPages: 30})
	requireAppError(t, err, http.StatusBadRequest)
}

func TestEducationUpdateAndDelete(t *testing.T) {
	_, education, _, repo, _ := catalogueFixture()
	ctx := context.Background()
	repo.rows["e1"] = &models.EducationProgress{ID: "e1", ClassID: "c1", BookName: "Akhlaq", TotalPages: 50, CompletedPages: 5}

	updated, err := education.Update(ctx, "e1", EducationRequest{ClassID: "c1", BookName: "Akhlaq", TotalPages: 50, CompletedPages: 50, LastUpdated: "2024-05-01"})
	require.NoError(t, err)
	assert.Equal(t, 100.0, updated.Percentage)
	assert.Equal(t, "2024-05-01", updated.LastUpdated.String())

	rows, err := education.List(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 100.0, rows[0].Percentage)

	require.NoError(t, education.Delete(ctx, "e1"))
	requireAppError(t, education.Delete(ctx, "e1"), http.StatusNotFound)
	_, err = education.Update(ctx, "e1", EducationRequest{ClassID: "c1", BookName: "Akhlaq", TotalPages: 50})
	requireAppError(t, err, http.StatusNotFound)
}
