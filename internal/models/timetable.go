package models

import "time"

// Weekday names recognised by the timetable. Weekend slots do not exist; this
// is a fixed business rule, not configuration.
var Days = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday"}

// PeriodsPerDay is the fixed number of teaching periods per day.
const PeriodsPerDay = 8

// ValidDay reports whether name is a recognised timetable day.
func ValidDay(name string) bool {
	for _, d := range Days {
		if d == name {
			return true
		}
	}
	return false
}

// ValidPeriod reports whether n is a recognised period number.
func ValidPeriod(n int) bool {
	return n >= 1 && n <= PeriodsPerDay
}

// TimetableSlot is one occupied (day, period) cell of a class's timetable.
// At most one subject occupies a given class/day/period.
type TimetableSlot struct {
	ID           string    `db:"id" json:"id"`
	ClassID      string    `db:"class_id" json:"class_id"`
	Day          string    `db:"day" json:"day"`
	PeriodNumber int       `db:"period_number" json:"period_number"`
	SubjectID    string    `db:"subject_id" json:"subject_id"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// TimetableSlotDetail carries resolved subject and class names for rendering,
// plus the class-level break setting repeated per row so a client can recover
// it from any single entry.
type TimetableSlotDetail struct {
	TimetableSlot
	SubjectName      string `db:"subject_name" json:"subject_name"`
	ClassName        string `db:"class_name" json:"class_name"`
	BreakAfterPeriod int    `db:"break_after_period" json:"break_after_period"`
}

// TimetableSetting is the class-level timetable configuration.
// BreakAfterPeriod is an integer in [0, PeriodsPerDay]; 0 means no break.
type TimetableSetting struct {
	ClassID          string    `db:"class_id" json:"class_id"`
	BreakAfterPeriod int       `db:"break_after_period" json:"break_after_period"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}

// GridCell is one (day, period) cell of the grid representation. Free cells
// are present with Free set rather than absent.
type GridCell struct {
	Free        bool   `json:"free"`
	SubjectID   string `json:"subject_id,omitempty"`
	SubjectName string `json:"subject_name,omitempty"`
	ClassID     string `json:"class_id,omitempty"`
	ClassName   string `json:"class_name,omitempty"`
}

// TimetableGrid maps day name to period number to cell. Every recognised
// (day, period) pair is always present. The break setting lives alongside the
// grid; it is never injected as a synthetic slot.
type TimetableGrid struct {
	Cells            map[string]map[int]GridCell `json:"cells"`
	BreakAfterPeriod int                         `json:"break_after_period"`
}

// Cell returns the grid cell for the given day and period, and whether the
// pair is a recognised coordinate.
func (g *TimetableGrid) Cell(day string, period int) (GridCell, bool) {
	row, ok := g.Cells[day]
	if !ok {
		return GridCell{}, false
	}
	cell, ok := row[period]
	return cell, ok
}

// PeriodColumn is one column of the rendered header sequence. Break columns
// carry Break=true and a zero period number.
type PeriodColumn struct {
	Label  string `json:"label"`
	Period int    `json:"period,omitempty"`
	Break  bool   `json:"break,omitempty"`
}
