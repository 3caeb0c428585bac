package models

import "time"

// Subject is a course offered within exactly one class and taught by at most
// one teacher at a time. The class reference is immutable once created;
// subjects move between classes by deletion and recreation only.
type Subject struct {
	ID        string    `db:"id" json:"id"`
	ClassID   string    `db:"class_id" json:"class_id"`
	Code      string    `db:"code" json:"code"`
	Name      string    `db:"name" json:"name"`
	Session   string    `db:"session" json:"session"`
	TeacherID *string   `db:"teacher_id" json:"teacher_id,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// SubjectDetail resolves the class and teacher names for display.
type SubjectDetail struct {
	Subject
	ClassName   string  `db:"class_name" json:"class_name"`
	TeacherName *string `db:"teacher_name" json:"teacher_name,omitempty"`
}

// SubjectFilter captures supported filters for listing subjects.
type SubjectFilter struct {
	ClassID   string
	TeacherID string
	Session   string
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// MasterSubject is a reusable per-school subject template used by the bulk
// subject creation flow.
type MasterSubject struct {
	ID        string    `db:"id" json:"id"`
	SchoolID  string    `db:"school_id" json:"school_id"`
	Code      string    `db:"code" json:"code"`
	Name      string    `db:"name" json:"name"`
	Session   string    `db:"session" json:"session"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
