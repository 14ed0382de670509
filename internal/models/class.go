package models

import "time"

// Class is a maktab class. Level drives the roll number band of its students.
type Class struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Level     int       `db:"level" json:"level"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// ClassWithCount adds the number of active students.
type ClassWithCount struct {
	Class
	StudentCount int `db:"student_count" json:"student_count"`
}

// ClassFilter narrows class listings.
type ClassFilter struct {
	Active *bool
	Search string
}
