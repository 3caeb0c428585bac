package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arkanhadi/school-admin-api/internal/models"
	appErrors "github.com/arkanhadi/school-admin-api/pkg/errors"
)

type stubAttendanceRepo struct {
	records  []models.AttendanceRecord
	upserted []models.AttendanceRecord
}

func (s *stubAttendanceRepo) ListByStudent(ctx context.Context, studentID string) ([]models.AttendanceRecord, error) {
	return s.records, nil
}

func (s *stubAttendanceRepo) Upsert(ctx context.Context, record *models.AttendanceRecord) error {
	s.upserted = append(s.upserted, *record)
	return nil
}

type stubStudentReader struct {
	students map[string]*models.Student
}

func (s *stubStudentReader) FindByID(ctx context.Context, id string) (*models.Student, error) {
	student, ok := s.students[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return student, nil
}

func attendanceRecords(statuses ...models.AttendanceStatus) []models.AttendanceRecord {
	records := make([]models.AttendanceRecord, len(statuses))
	for i, status := range statuses {
		records[i] = models.AttendanceRecord{Status: status}
	}
	return records
}

func TestOverallPercentage(t *testing.T) {
	present := models.AttendanceStatusPresent
	absent := models.AttendanceStatusAbsent

	assert.Equal(t, 0.0, OverallPercentage(nil))
	assert.Equal(t, 100.0, OverallPercentage(attendanceRecords(present, present)))
	assert.Equal(t, 0.0, OverallPercentage(attendanceRecords(absent)))
	assert.Equal(t, 50.0, OverallPercentage(attendanceRecords(present, absent)))
	assert.Equal(t, 33.33, OverallPercentage(attendanceRecords(present, absent, absent)))
	assert.Equal(t, 66.67, OverallPercentage(attendanceRecords(present, present, absent)))
}

func TestFormatPercent(t *testing.T) {
	assert.Equal(t, "100%", FormatPercent(100.00))
	assert.Equal(t, "0%", FormatPercent(0))
	assert.Equal(t, "87.5%", FormatPercent(87.50))
	assert.Equal(t, "33.33%", FormatPercent(33.33))
}

func TestAttendanceSummary(t *testing.T) {
	repo := &stubAttendanceRepo{records: attendanceRecords(
		models.AttendanceStatusPresent,
		models.AttendanceStatusPresent,
		models.AttendanceStatusAbsent,
	)}
	students := &stubStudentReader{students: map[string]*models.Student{"stu-1": {ID: "stu-1"}}}
	svc := NewAttendanceService(repo, students, nil, nil)

	summary, err := svc.Summary(context.Background(), "stu-1")
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Present)
	assert.Equal(t, 1, summary.Absent)
	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 66.67, summary.PresentPercent)
	assert.Equal(t, 33.33, summary.AbsentPercent)
	assert.Equal(t, "66.67%", summary.Display)
}

func TestAttendanceSummaryNoRecords(t *testing.T) {
	repo := &stubAttendanceRepo{}
	students := &stubStudentReader{students: map[string]*models.Student{"stu-1": {ID: "stu-1"}}}
	svc := NewAttendanceService(repo, students, nil, nil)

	summary, err := svc.Summary(context.Background(), "stu-1")
	require.NoError(t, err)
	assert.Equal(t, 0.0, summary.PresentPercent)
	assert.Equal(t, 100.0, summary.AbsentPercent)
	assert.Equal(t, "0%", summary.Display)
}

func TestAttendanceSummaryStudentNotFound(t *testing.T) {
	svc := NewAttendanceService(&stubAttendanceRepo{}, &stubStudentReader{}, nil, nil)

	_, err := svc.Summary(context.Background(), "missing")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestRecordAttendance(t *testing.T) {
	repo := &stubAttendanceRepo{}
	students := &stubStudentReader{students: map[string]*models.Student{"stu-1": {ID: "stu-1"}}}
	svc := NewAttendanceService(repo, students, nil, nil)

	record, err := svc.Record(context.Background(), "stu-1", RecordAttendanceRequest{
		Date:   "2026-03-02",
		Status: models.AttendanceStatusPresent,
	})
	require.NoError(t, err)
	assert.Equal(t, "stu-1", record.StudentID)
	assert.Equal(t, models.AttendanceStatusPresent, record.Status)
	require.Len(t, repo.upserted, 1)
}

func TestRecordAttendanceRejectsUnknownStatus(t *testing.T) {
	students := &stubStudentReader{students: map[string]*models.Student{"stu-1": {ID: "stu-1"}}}
	svc := NewAttendanceService(&stubAttendanceRepo{}, students, nil, nil)

	_, err := svc.Record(context.Background(), "stu-1", RecordAttendanceRequest{
		Date:   "2026-03-02",
		Status: "Late",
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}
