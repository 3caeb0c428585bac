package models

import "time"

// Teacher represents an instructor record.
type Teacher struct {
	ID        string    `db:"id" json:"id"`
	SchoolID  string    `db:"school_id" json:"school_id"`
	FullName  string    `db:"full_name" json:"full_name"`
	Email     string    `db:"email" json:"email"`
	Phone     *string   `db:"phone" json:"phone,omitempty"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// TeacherClass is one entry of a teacher's teach-class set. The set is the
// union of classes the teacher was assigned to directly and classes implied by
// subject assignment.
type TeacherClass struct {
	TeacherID string    `db:"teacher_id" json:"teacher_id"`
	ClassID   string    `db:"class_id" json:"class_id"`
	ClassName string    `db:"class_name" json:"class_name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// TeacherDetail extends Teacher with its relation sets resolved for display.
type TeacherDetail struct {
	Teacher
	Classes        []TeacherClass  `json:"classes"`
	Subjects       []SubjectDetail `json:"subjects"`
	ClassTeacherOf []Class         `json:"class_teacher_of"`
}

// TeacherFilter captures filtering options for listing teachers.
type TeacherFilter struct {
	SchoolID  string
	Search    string
	Active    *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
