package models

import "time"

// Book is a text taught in a class.
type Book struct {
	ID          string    `db:"id" json:"id"`
	ClassID     string    `db:"class_id" json:"class_id"`
	ClassName   string    `db:"class_name" json:"class_name,omitempty"`
	Subject     string    `db:"subject" json:"subject"`
	Title       string    `db:"title" json:"title"`
	TotalPages  int       `db:"total_pages" json:"total_pages"`
	Description string    `db:"description" json:"description"`
	Active      bool      `db:"active" json:"active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// BookFilter narrows book listings.
type BookFilter struct {
	ClassID string
	Active  *bool
}
