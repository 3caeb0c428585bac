package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/arkanhadi/school-admin-api/internal/models"
	appErrors "github.com/arkanhadi/school-admin-api/pkg/errors"
)

type attendanceRepository interface {
	ListByStudent(ctx context.Context, studentID string) ([]models.AttendanceRecord, error)
	Upsert(ctx context.Context, record *models.AttendanceRecord) error
}

type attendanceStudentReader interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

// RecordAttendanceRequest marks one student's attendance for a day. Marking
// the same day twice overwrites the earlier status.
type RecordAttendanceRequest struct {
	Date   string                  `json:"date" validate:"required,datetime=2006-01-02"`
	Status models.AttendanceStatus `json:"status" validate:"required"`
}

// AttendanceService records daily attendance and aggregates it into overall
// percentages.
type AttendanceService struct {
	repo      attendanceRepository
	students  attendanceStudentReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAttendanceService constructs AttendanceService.
func NewAttendanceService(repo attendanceRepository, students attendanceStudentReader, validate *validator.Validate, logger *zap.Logger) *AttendanceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttendanceService{repo: repo, students: students, validator: validate, logger: logger}
}

// OverallPercentage computes the present percentage across all records,
// rounded to two decimals. No records means 0% present.
func OverallPercentage(records []models.AttendanceRecord) float64 {
	if len(records) == 0 {
		return 0
	}
	present := 0
	for _, record := range records {
		if record.Status == models.AttendanceStatusPresent {
			present++
		}
	}
	return round2(100 * float64(present) / float64(len(records)))
}

// FormatPercent renders a percentage for display: whole numbers drop the
// decimals, so 100.00 becomes "100%" and 87.50 stays "87.5%".
func FormatPercent(value float64) string {
	text := fmt.Sprintf("%.2f", value)
	text = strings.TrimRight(text, "0")
	text = strings.TrimSuffix(text, ".")
	return text + "%"
}

func round2(value float64) float64 {
	return math.Round(value*100) / 100
}

// Summary aggregates a student's attendance history.
func (s *AttendanceService) Summary(ctx context.Context, studentID string) (*models.AttendanceSummary, error) {
	if _, err := s.students.FindByID(ctx, studentID); err != nil {
		return nil, notFoundOr(err, "student not found")
	}
	records, err := s.repo.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance")
	}

	summary := &models.AttendanceSummary{Total: len(records)}
	for _, record := range records {
		if record.Status == models.AttendanceStatusPresent {
			summary.Present++
		} else {
			summary.Absent++
		}
	}
	summary.PresentPercent = OverallPercentage(records)
	summary.AbsentPercent = round2(100 - summary.PresentPercent)
	summary.Display = FormatPercent(summary.PresentPercent)
	return summary, nil
}

// Records returns a student's raw attendance rows, newest first.
func (s *AttendanceService) Records(ctx context.Context, studentID string) ([]models.AttendanceRecord, error) {
	if _, err := s.students.FindByID(ctx, studentID); err != nil {
		return nil, notFoundOr(err, "student not found")
	}
	records, err := s.repo.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance")
	}
	return records, nil
}

// Record upserts one day's attendance for a student.
func (s *AttendanceService) Record(ctx context.Context, studentID string, req RecordAttendanceRequest) (*models.AttendanceRecord, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attendance payload")
	}
	if !req.Status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "status must be Present or Absent")
	}
	if _, err := s.students.FindByID(ctx, studentID); err != nil {
		return nil, notFoundOr(err, "student not found")
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date must be formatted YYYY-MM-DD")
	}

	record := &models.AttendanceRecord{
		StudentID: studentID,
		Date:      date,
		Status:    req.Status,
	}
	if err := s.repo.Upsert(ctx, record); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record attendance")
	}
	return record, nil
}
