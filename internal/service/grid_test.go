package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arkanhadi/school-admin-api/internal/models"
)

func slot(day string, period int, subjectID string) models.TimetableSlotDetail {
	return models.TimetableSlotDetail{
		TimetableSlot: models.TimetableSlot{
			ClassID:      "class-1",
			Day:          day,
			PeriodNumber: period,
			SubjectID:    subjectID,
		},
		SubjectName: "Subject " + subjectID,
	}
}

func TestBuildGridEveryCellPresent(t *testing.T) {
	grid := BuildGrid([]models.TimetableSlotDetail{slot("Monday", 1, "sub-1")}, 4)

	require.Len(t, grid.Cells, len(models.Days))
	for _, day := range models.Days {
		require.Len(t, grid.Cells[day], models.PeriodsPerDay)
	}

	occupied, ok := grid.Cell("Monday", 1)
	require.True(t, ok)
	assert.False(t, occupied.Free)
	assert.Equal(t, "sub-1", occupied.SubjectID)

	free, ok := grid.Cell("Tuesday", 3)
	require.True(t, ok)
	assert.True(t, free.Free)
	assert.Empty(t, free.SubjectID)
}

func TestBuildGridDropsUnrecognisedSlots(t *testing.T) {
	grid := BuildGrid([]models.TimetableSlotDetail{
		slot("Sunday", 1, "sub-1"),
		slot("Monday", 0, "sub-2"),
		slot("Monday", 9, "sub-3"),
		slot("Friday", 8, "sub-4"),
	}, 0)

	for _, day := range models.Days {
		for period := 1; period <= models.PeriodsPerDay; period++ {
			cell, _ := grid.Cell(day, period)
			if day == "Friday" && period == 8 {
				assert.Equal(t, "sub-4", cell.SubjectID)
				continue
			}
			assert.True(t, cell.Free, "%s period %d should be free", day, period)
		}
	}
}

func TestBuildGridLastWriteWins(t *testing.T) {
	grid := BuildGrid([]models.TimetableSlotDetail{
		slot("Wednesday", 2, "sub-old"),
		slot("Wednesday", 2, "sub-new"),
	}, 0)

	cell, _ := grid.Cell("Wednesday", 2)
	assert.Equal(t, "sub-new", cell.SubjectID)
}

func TestBuildGridClampsBreak(t *testing.T) {
	assert.Equal(t, 0, BuildGrid(nil, -3).BreakAfterPeriod)
	assert.Equal(t, models.PeriodsPerDay, BuildGrid(nil, 99).BreakAfterPeriod)
	assert.Equal(t, 4, BuildGrid(nil, 4).BreakAfterPeriod)
}

func TestFlattenGridRoundTrip(t *testing.T) {
	source := []models.TimetableSlotDetail{
		slot("Monday", 1, "sub-1"),
		slot("Monday", 5, "sub-2"),
		slot("Thursday", 8, "sub-3"),
	}
	grid := BuildGrid(source, 2)
	flat := FlattenGrid(grid, "class-1")

	require.Len(t, flat, 3)
	rebuilt := BuildGrid(detailsFromSlots(flat), grid.BreakAfterPeriod)
	for _, day := range models.Days {
		for period := 1; period <= models.PeriodsPerDay; period++ {
			want, _ := grid.Cell(day, period)
			got, _ := rebuilt.Cell(day, period)
			assert.Equal(t, want.Free, got.Free, "%s period %d", day, period)
			assert.Equal(t, want.SubjectID, got.SubjectID, "%s period %d", day, period)
		}
	}
}

func detailsFromSlots(slots []models.TimetableSlot) []models.TimetableSlotDetail {
	details := make([]models.TimetableSlotDetail, len(slots))
	for i, s := range slots {
		details[i] = models.TimetableSlotDetail{TimetableSlot: s}
	}
	return details
}

func TestFlattenGridOmitsFreeCells(t *testing.T) {
	flat := FlattenGrid(BuildGrid(nil, 0), "class-1")
	assert.Empty(t, flat)
}

func TestPeriodColumnsBreakPlacement(t *testing.T) {
	columns := PeriodColumns(4)
	require.Len(t, columns, models.PeriodsPerDay+1)

	assert.Equal(t, "Period 4", columns[3].Label)
	assert.True(t, columns[4].Break)
	assert.Equal(t, "BREAK", columns[4].Label)
	assert.Equal(t, "Period 5", columns[5].Label)

	breaks := 0
	for _, column := range columns {
		if column.Break {
			breaks++
		}
	}
	assert.Equal(t, 1, breaks)
}

func TestPeriodColumnsNoBreak(t *testing.T) {
	columns := PeriodColumns(0)
	require.Len(t, columns, models.PeriodsPerDay)
	for _, column := range columns {
		assert.False(t, column.Break)
	}
}

func TestReconcileBreakFirstEncounteredWins(t *testing.T) {
	first := slot("Monday", 1, "sub-1")
	first.BreakAfterPeriod = 3
	second := slot("Monday", 2, "sub-2")
	second.BreakAfterPeriod = 5

	assert.Equal(t, 3, ReconcileBreak([]models.TimetableSlotDetail{first, second}))
	assert.Equal(t, 0, ReconcileBreak(nil))
}

func TestCurrentPeriod(t *testing.T) {
	monday := time.Date(2024, 9, 2, 0, 0, 0, 0, time.UTC)
	require.Equal(t, time.Monday, monday.Weekday())

	cases := []struct {
		name   string
		at     time.Time
		day    string
		period int
		ok     bool
	}{
		{"first period", monday.Add(8*time.Hour + 15*time.Minute), "Monday", 1, true},
		{"fourth period", monday.Add(11*time.Hour + 59*time.Minute), "Monday", 4, true},
		{"lunch gap", monday.Add(12*time.Hour + 30*time.Minute), "", 0, false},
		{"fifth period", monday.Add(13 * time.Hour), "Monday", 5, true},
		{"last period", monday.Add(16*time.Hour + 45*time.Minute), "Monday", 8, true},
		{"after hours", monday.Add(17 * time.Hour), "", 0, false},
		{"before hours", monday.Add(7 * time.Hour), "", 0, false},
		{"weekend", monday.AddDate(0, 0, 5).Add(10 * time.Hour), "", 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			day, period, ok := CurrentPeriod(tc.at)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.day, day)
			assert.Equal(t, tc.period, period)
		})
	}
}
