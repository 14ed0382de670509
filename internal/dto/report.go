package dto

import "github.com/noah-isme/maktab-api/internal/models"

// ReportRequest queues an export.
type ReportRequest struct {
	Type    models.ReportType   `json:"type" validate:"required,oneof=attendance students education"`
	Format  models.ReportFormat `json:"format" validate:"required,oneof=csv pdf"`
	From    string              `json:"from" validate:"omitempty,ymd"`
	To      string              `json:"to" validate:"omitempty,ymd"`
	ClassID string              `json:"class_id" validate:"omitempty"`
}

// ReportJobResponse is returned when a job is queued.
type ReportJobResponse struct {
	ID     string              `json:"id"`
	Status models.ReportStatus `json:"status"`
}

// ReportStatusResponse describes a job for polling clients.
type ReportStatusResponse struct {
	ID         string              `json:"id"`
	Type       models.ReportType   `json:"type"`
	Format     models.ReportFormat `json:"format"`
	Status     models.ReportStatus `json:"status"`
	ResultURL  *string             `json:"result_url,omitempty"`
	Error      *string             `json:"error,omitempty"`
	CreatedAt  string              `json:"created_at"`
	FinishedAt *string             `json:"finished_at,omitempty"`
}

// AttendanceReport is the per student and per day attendance of a period.
type AttendanceReport struct {
	From     models.Date               `json:"from"`
	To       models.Date               `json:"to"`
	ClassID  string                    `json:"class_id,omitempty"`
	Students []StudentAttendanceTotals `json:"students"`
	Days     []DailyAttendanceTotals   `json:"days"`
	Summary  models.AttendanceSummary  `json:"summary"`
}

// StudentAttendanceTotals counts one student's statuses over a period.
type StudentAttendanceTotals struct {
	StudentID   string  `db:"student_id" json:"student_id"`
	StudentName string  `db:"student_name" json:"student_name"`
	RollNumber  int     `db:"roll_number" json:"roll_number"`
	ClassName   string  `db:"class_name" json:"class_name"`
	Present     int     `db:"present" json:"present"`
	Absent      int     `db:"absent" json:"absent"`
	Leave       int     `db:"on_leave" json:"leave"`
	Total       int     `db:"total" json:"total"`
	Percentage  float64 `db:"-" json:"percentage"`
}

// DailyAttendanceTotals counts statuses for one date.
type DailyAttendanceTotals struct {
	Date    models.Date `db:"date" json:"date"`
	Present int         `db:"present" json:"present"`
	Absent  int         `db:"absent" json:"absent"`
	Leave   int         `db:"on_leave" json:"leave"`
	Total   int         `db:"total" json:"total"`
}

// StudentsReport lists class strength and roll usage.
type StudentsReport struct {
	Classes []ClassStudentsRow `json:"classes"`
	Totals  DashboardTotals    `json:"totals"`
}

// ClassStudentsRow is one class line of the students report.
type ClassStudentsRow struct {
	ClassID   string `db:"class_id" json:"class_id"`
	ClassName string `db:"class_name" json:"class_name"`
	Level     int    `db:"level" json:"level"`
	Active    int    `db:"active" json:"active"`
	Inactive  int    `db:"inactive" json:"inactive"`
	MinRoll   *int   `db:"min_roll" json:"min_roll"`
	MaxRoll   *int   `db:"max_roll" json:"max_roll"`
}

// EducationReport lists progress rows with their completion.
type EducationReport struct {
	Rows              []models.EducationProgress `json:"rows"`
	AverageCompletion float64                    `json:"average_completion"`
}
