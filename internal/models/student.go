package models

import "time"

// Student represents a learner. ClassID is nil while the student sits in the
// unassigned pool; a student belongs to at most one class at any time.
type Student struct {
	ID        string    `db:"id" json:"id"`
	SchoolID  string    `db:"school_id" json:"school_id"`
	FullName  string    `db:"full_name" json:"full_name"`
	RollNum   string    `db:"roll_num" json:"roll_num"`
	Gender    string    `db:"gender" json:"gender"`
	ClassID   *string   `db:"class_id" json:"class_id,omitempty"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// StudentDetail resolves the class name alongside the reference so clients
// never have to dereference a bare ID.
type StudentDetail struct {
	Student
	ClassName *string `db:"class_name" json:"class_name,omitempty"`
}

// Unassigned reports whether the student currently has no class.
func (s Student) Unassigned() bool {
	return s.ClassID == nil || *s.ClassID == ""
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	SchoolID   string
	ClassID    string
	Unassigned bool
	Search     string
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}
