package models

import "time"

// AttendanceStatus is the daily presence state of a student.
type AttendanceStatus string

const (
	AttendancePresent AttendanceStatus = "present"
	AttendanceAbsent  AttendanceStatus = "absent"
	AttendanceLeave   AttendanceStatus = "leave"
)

// Valid reports whether s is a known status.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendancePresent, AttendanceAbsent, AttendanceLeave:
		return true
	}
	return false
}

// AttendanceRecord is a stored attendance row.
type AttendanceRecord struct {
	ID        string           `db:"id" json:"id"`
	StudentID string           `db:"student_id" json:"student_id"`
	Date      Date             `db:"date" json:"date"`
	Status    AttendanceStatus `db:"status" json:"status"`
	Reason    string           `db:"reason" json:"reason"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt time.Time        `db:"updated_at" json:"updated_at"`
}

// AttendanceRow is one line of the daily sheet. Stored is false for default-filled rows.
type AttendanceRow struct {
	StudentID   string           `db:"student_id" json:"student_id"`
	StudentName string           `db:"student_name" json:"student_name"`
	RollNumber  int              `db:"roll_number" json:"roll_number"`
	ClassID     string           `db:"class_id" json:"class_id"`
	ClassName   string           `db:"class_name" json:"class_name"`
	Status      AttendanceStatus `db:"status" json:"status"`
	Reason      string           `db:"reason" json:"reason"`
	Stored      bool             `db:"-" json:"stored"`
}

// AttendanceSheet is the attendance of one date.
type AttendanceSheet struct {
	Date    Date            `json:"date"`
	ClassID string          `json:"class_id,omitempty"`
	Holiday *Holiday        `json:"holiday"`
	Records []AttendanceRow `json:"records"`
}

// AttendanceSummary counts statuses over a period.
type AttendanceSummary struct {
	Present    int     `db:"present" json:"present"`
	Absent     int     `db:"absent" json:"absent"`
	Leave      int     `db:"on_leave" json:"leave"`
	Total      int     `db:"total" json:"total"`
	Percentage float64 `db:"-" json:"percentage"`
}

// StudentAttendance is a student's attendance history.
type StudentAttendance struct {
	StudentID string             `json:"student_id"`
	From      *Date              `json:"from,omitempty"`
	To        *Date              `json:"to,omitempty"`
	Records   []AttendanceRecord `json:"records"`
	Summary   AttendanceSummary  `json:"summary"`
}

// AttendanceFilter scopes stored attendance queries.
type AttendanceFilter struct {
	StudentID string
	ClassID   string
	// ActiveOnly skips records of deactivated students.
	ActiveOnly bool
	DateRange
}
