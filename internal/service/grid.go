package service

import (
	"time"

	"github.com/arkanhadi/school-admin-api/internal/models"
)

// breakColumnLabel is the marker rendered for the inserted break column.
const breakColumnLabel = "BREAK"

// BuildGrid expands a flat slot list into the day-by-period grid. Every
// recognised (day, period) cell is present, either occupied or free. Slots
// with an unrecognised day or period are dropped; stale rows must not poison
// the grid. Duplicate (day, period) keys resolve last-write-wins because the
// grid is a mapping, not a multiset.
//
// The break setting is carried alongside the grid and clamped to
// [0, PeriodsPerDay]; it is never injected as a synthetic slot.
func BuildGrid(slots []models.TimetableSlotDetail, breakAfterPeriod int) *models.TimetableGrid {
	cells := make(map[string]map[int]models.GridCell, len(models.Days))
	for _, day := range models.Days {
		row := make(map[int]models.GridCell, models.PeriodsPerDay)
		for period := 1; period <= models.PeriodsPerDay; period++ {
			row[period] = models.GridCell{Free: true}
		}
		cells[day] = row
	}

	for _, slot := range slots {
		if !models.ValidDay(slot.Day) || !models.ValidPeriod(slot.PeriodNumber) {
			continue
		}
		cells[slot.Day][slot.PeriodNumber] = models.GridCell{
			SubjectID:   slot.SubjectID,
			SubjectName: slot.SubjectName,
			ClassID:     slot.ClassID,
			ClassName:   slot.ClassName,
		}
	}

	if breakAfterPeriod < 0 {
		breakAfterPeriod = 0
	}
	if breakAfterPeriod > models.PeriodsPerDay {
		breakAfterPeriod = models.PeriodsPerDay
	}

	return &models.TimetableGrid{Cells: cells, BreakAfterPeriod: breakAfterPeriod}
}

// FlattenGrid collapses a grid back into the slot-list storage representation
// for the given class. Only occupied cells are emitted; an empty period is
// persisted by omission, not by an explicit null entry.
func FlattenGrid(grid *models.TimetableGrid, classID string) []models.TimetableSlot {
	if grid == nil {
		return nil
	}
	var slots []models.TimetableSlot
	for _, day := range models.Days {
		for period := 1; period <= models.PeriodsPerDay; period++ {
			cell, ok := grid.Cell(day, period)
			if !ok || cell.Free || cell.SubjectID == "" {
				continue
			}
			slots = append(slots, models.TimetableSlot{
				ClassID:      classID,
				Day:          day,
				PeriodNumber: period,
				SubjectID:    cell.SubjectID,
			})
		}
	}
	return slots
}

// PeriodColumns returns the rendered column sequence for display and export:
// the eight period columns with exactly one break marker inserted immediately
// after breakAfterPeriod, or none when it is zero.
func PeriodColumns(breakAfterPeriod int) []models.PeriodColumn {
	columns := make([]models.PeriodColumn, 0, models.PeriodsPerDay+1)
	for period := 1; period <= models.PeriodsPerDay; period++ {
		columns = append(columns, models.PeriodColumn{
			Label:  periodLabel(period),
			Period: period,
		})
		if period == breakAfterPeriod {
			columns = append(columns, models.PeriodColumn{Label: breakColumnLabel, Break: true})
		}
	}
	return columns
}

func periodLabel(period int) string {
	labels := [...]string{"Period 1", "Period 2", "Period 3", "Period 4", "Period 5", "Period 6", "Period 7", "Period 8"}
	if period >= 1 && period <= len(labels) {
		return labels[period-1]
	}
	return ""
}

// ReconcileBreak recovers the class-level break setting from legacy slot rows
// that each carry a denormalized copy. The first encountered value wins;
// conflicting duplicates are ignored.
func ReconcileBreak(slots []models.TimetableSlotDetail) int {
	for _, slot := range slots {
		if slot.BreakAfterPeriod > 0 {
			return slot.BreakAfterPeriod
		}
	}
	return 0
}

// Bell schedule: wall-clock hour ranges mapped to period numbers, with the
// lunch gap between periods 4 and 5. This is the school's fixed bell
// schedule, not derived from stored data.
var bellSchedule = [...]struct {
	startHour int
	period    int
}{
	{8, 1},
	{9, 2},
	{10, 3},
	{11, 4},
	{13, 5},
	{14, 6},
	{15, 7},
	{16, 8},
}

// CurrentPeriod maps a wall-clock instant to the timetable cell it falls in.
// Returns ok=false outside teaching days or teaching hours (including the
// 12:00-13:00 lunch gap).
func CurrentPeriod(now time.Time) (day string, period int, ok bool) {
	day = now.Weekday().String()
	if !models.ValidDay(day) {
		return "", 0, false
	}
	hour := now.Hour()
	for _, entry := range bellSchedule {
		if hour == entry.startHour {
			return day, entry.period, true
		}
	}
	return "", 0, false
}
