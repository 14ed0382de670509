package models

import "time"

// Holiday is a day on which no attendance is taken.
type Holiday struct {
	ID          string    `db:"id" json:"id"`
	Date        Date      `db:"date" json:"date"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// HolidayCheck answers whether a date is a holiday.
type HolidayCheck struct {
	Date    Date   `json:"date"`
	Holiday bool   `json:"holiday"`
	Name    string `json:"name,omitempty"`
}
