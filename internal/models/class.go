package models

import "time"

// Class represents a cohort of students taught a set of subjects. At most one
// teacher holds the distinguished class-teacher role at a time.
type Class struct {
	ID             string    `db:"id" json:"id"`
	SchoolID       string    `db:"school_id" json:"school_id"`
	Name           string    `db:"name" json:"name"`
	ClassTeacherID *string   `db:"class_teacher_id" json:"class_teacher_id,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// ClassDetail extends Class with the class teacher's resolved name.
type ClassDetail struct {
	Class
	ClassTeacherName *string `db:"class_teacher_name" json:"class_teacher_name,omitempty"`
	StudentCount     int     `db:"student_count" json:"student_count"`
	SubjectCount     int     `db:"subject_count" json:"subject_count"`
}

// ClassFilter defines filter criteria for listing classes.
type ClassFilter struct {
	SchoolID  string
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
