package dto

import "github.com/noah-isme/maktab-api/internal/models"

// DashboardResponse is the payload of GET /dashboard.
type DashboardResponse struct {
	Date             models.Date         `json:"date"`
	Totals           DashboardTotals     `json:"totals"`
	Classes          []ClassStudentCount `json:"classes"`
	Attendance       DashboardAttendance `json:"attendance"`
	UpcomingHolidays []models.Holiday    `json:"upcoming_holidays"`
	Education        DashboardEducation  `json:"education"`
	Holiday          *models.Holiday     `json:"holiday,omitempty"`
}

// DashboardTotals counts the main entities.
type DashboardTotals struct {
	ActiveStudents   int `db:"active_students" json:"active_students"`
	InactiveStudents int `db:"inactive_students" json:"inactive_students"`
	Classes          int `db:"classes" json:"classes"`
	Books            int `db:"books" json:"books"`
}

// ClassStudentCount is the number of active students in a class.
type ClassStudentCount struct {
	ClassID   string `db:"class_id" json:"class_id"`
	ClassName string `db:"class_name" json:"class_name"`
	Level     int    `db:"level" json:"level"`
	Students  int    `db:"students" json:"students"`
}

// DashboardAttendance summarises one day of attendance. Unmarked counts active
// students without a stored record.
type DashboardAttendance struct {
	Present  int     `json:"present"`
	Absent   int     `json:"absent"`
	Leave    int     `json:"leave"`
	Unmarked int     `json:"unmarked"`
	Rate     float64 `json:"rate"`
}

// DashboardEducation aggregates book progress.
type DashboardEducation struct {
	Books             int     `db:"books" json:"books"`
	AverageCompletion float64 `db:"average_completion" json:"average_completion"`
}
