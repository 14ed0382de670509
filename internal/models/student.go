package models

import "time"

// Student represents a learner registered in the maktab.
type Student struct {
	ID               string    `db:"id" json:"id"`
	Name             string    `db:"name" json:"name"`
	FatherName       string    `db:"father_name" json:"father_name"`
	MotherName       string    `db:"mother_name" json:"mother_name"`
	Mobile           string    `db:"mobile" json:"mobile"`
	IDNumber         string    `db:"id_number" json:"id_number"`
	District         string    `db:"district" json:"district"`
	Upazila          string    `db:"upazila" json:"upazila"`
	Address          string    `db:"address" json:"address"`
	ClassID          string    `db:"class_id" json:"class_id"`
	RollNumber       int       `db:"roll_number" json:"roll_number"`
	RegistrationDate Date      `db:"registration_date" json:"registration_date"`
	Active           bool      `db:"active" json:"active"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}

// StudentDetail is a student joined with its class and custom field values.
type StudentDetail struct {
	Student
	ClassName    string            `db:"class_name" json:"class_name"`
	CustomFields map[string]string `db:"-" json:"custom_fields"`
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Search    string
	ClassID   string
	Active    *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// RollBand is the inclusive roll number range reserved for a class level.
type RollBand struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// BandForLevel returns level*100+1 .. level*100+99.
func BandForLevel(level int) RollBand {
	return RollBand{Min: level*100 + 1, Max: level*100 + 99}
}

// Contains reports whether roll lies inside the band.
func (b RollBand) Contains(roll int) bool {
	return roll >= b.Min && roll <= b.Max
}
