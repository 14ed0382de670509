package models

import (
	"math"
	"time"
)

// EducationProgress tracks pages completed of a book in a class.
type EducationProgress struct {
	ID             string    `db:"id" json:"id"`
	ClassID        string    `db:"class_id" json:"class_id"`
	ClassName      string    `db:"class_name" json:"class_name,omitempty"`
	BookID         *string   `db:"book_id" json:"book_id"`
	Subject        string    `db:"subject" json:"subject"`
	BookName       string    `db:"book_name" json:"book_name"`
	TotalPages     int       `db:"total_pages" json:"total_pages"`
	CompletedPages int       `db:"completed_pages" json:"completed_pages"`
	Notes          string    `db:"notes" json:"notes"`
	LastUpdated    Date      `db:"last_updated" json:"last_updated"`
	Percentage     float64   `db:"-" json:"percentage"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// CompletionPercent returns completed/total*100 rounded to two decimals.
func CompletionPercent(completed, total int) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(float64(completed)/float64(total)*10000) / 100
}

// WithPercentage fills Percentage from the page counts.
func (e EducationProgress) WithPercentage() EducationProgress {
	e.Percentage = CompletionPercent(e.CompletedPages, e.TotalPages)
	return e
}
