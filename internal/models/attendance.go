package models

import "time"

// AttendanceStatus is the daily attendance status of a student.
type AttendanceStatus string

const (
	AttendanceStatusPresent AttendanceStatus = "Present"
	AttendanceStatusAbsent  AttendanceStatus = "Absent"
)

// Valid returns true when the status is a supported value.
func (s AttendanceStatus) Valid() bool {
	return s == AttendanceStatusPresent || s == AttendanceStatusAbsent
}

// AttendanceRecord is a single daily attendance row, unique per student/date.
type AttendanceRecord struct {
	ID        string           `db:"id" json:"id"`
	StudentID string           `db:"student_id" json:"student_id"`
	Date      time.Time        `db:"date" json:"date"`
	Status    AttendanceStatus `db:"status" json:"status"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt time.Time        `db:"updated_at" json:"updated_at"`
}

// AttendanceSummary aggregates a student's records into overall percentages.
type AttendanceSummary struct {
	Present        int     `json:"present"`
	Absent         int     `json:"absent"`
	Total          int     `json:"total"`
	PresentPercent float64 `json:"present_percent"`
	AbsentPercent  float64 `json:"absent_percent"`
	Display        string  `json:"display"`
}
