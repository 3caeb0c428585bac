package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/arkanhadi/school-admin-api/internal/models"
	appErrors "github.com/arkanhadi/school-admin-api/pkg/errors"
	"github.com/arkanhadi/school-admin-api/pkg/export"
)

type timetableRepository interface {
	ListByClass(ctx context.Context, classID string) ([]models.TimetableSlotDetail, error)
	ListByTeacher(ctx context.Context, teacherID string) ([]models.TimetableSlotDetail, error)
	GetSetting(ctx context.Context, classID string) (*models.TimetableSetting, error)
	ReplaceForClass(ctx context.Context, classID string, slots []models.TimetableSlot, breakAfterPeriod int) error
}

type timetableClassReader interface {
	FindByID(ctx context.Context, id string) (*models.Class, error)
}

type timetableTeacherReader interface {
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
}

type timetableSubjectReader interface {
	FindByID(ctx context.Context, id string) (*models.Subject, error)
}

type timetableCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// TimetableEntryInput is one cell submitted by the timetable editor. Day and
// period are not validated here; entries outside the grid are silently
// dropped so stale client state cannot fail an otherwise valid save.
type TimetableEntryInput struct {
	Day          string `json:"day"`
	PeriodNumber int    `json:"period_number"`
	SubjectID    string `json:"subject_id" validate:"required"`
}

// SaveTimetableRequest is the full-replace save payload for a class.
type SaveTimetableRequest struct {
	Entries          []TimetableEntryInput `json:"entries" validate:"dive"`
	BreakAfterPeriod int                   `json:"break_after_period" validate:"min=0,max=8"`
}

// TimetableView is the assembled weekly view for a class or a teacher.
type TimetableView struct {
	OwnerID          string                       `json:"owner_id"`
	OwnerType        string                       `json:"owner_type"`
	Grid             *models.TimetableGrid        `json:"grid"`
	Columns          []models.PeriodColumn        `json:"columns"`
	Slots            []models.TimetableSlotDetail `json:"slots"`
	BreakAfterPeriod int                          `json:"break_after_period"`
	CurrentDay       string                       `json:"current_day,omitempty"`
	CurrentPeriod    int                          `json:"current_period,omitempty"`
}

// TimetableService converts between the stored slot lists and the grid
// representation. One grid engine serves both the class and the teacher
// projection; only the slot source differs.
type TimetableService struct {
	repo      timetableRepository
	classes   timetableClassReader
	teachers  timetableTeacherReader
	subjects  timetableSubjectReader
	cache     timetableCache
	cacheTTL  time.Duration
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewTimetableService constructs TimetableService. cache may be nil to
// disable caching.
func NewTimetableService(
	repo timetableRepository,
	classes timetableClassReader,
	teachers timetableTeacherReader,
	subjects timetableSubjectReader,
	cache timetableCache,
	cacheTTL time.Duration,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
) *TimetableService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TimetableService{
		repo:      repo,
		classes:   classes,
		teachers:  teachers,
		subjects:  subjects,
		cache:     cache,
		cacheTTL:  cacheTTL,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		now:       time.Now,
	}
}

func classTimetableKey(classID string) string {
	return "timetable:class:" + classID
}

func teacherTimetableKey(teacherID string) string {
	return "timetable:teacher:" + teacherID
}

// ClassTimetable loads and expands a class's weekly grid.
func (s *TimetableService) ClassTimetable(ctx context.Context, classID string) (*TimetableView, error) {
	if _, err := s.classes.FindByID(ctx, classID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}

	if view, ok := s.cachedView(ctx, classTimetableKey(classID)); ok {
		s.stampCurrent(view)
		return view, nil
	}

	slots, err := s.repo.ListByClass(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable")
	}
	breakAfter, err := s.resolveBreak(ctx, classID, slots)
	if err != nil {
		return nil, err
	}

	view := s.assembleView(classID, "class", slots, breakAfter)
	s.storeView(ctx, classTimetableKey(classID), view)
	s.stampCurrent(view)
	return view, nil
}

// TeacherTimetable loads a teacher's weekly grid across all classes taught.
func (s *TimetableService) TeacherTimetable(ctx context.Context, teacherID string) (*TimetableView, error) {
	if _, err := s.teachers.FindByID(ctx, teacherID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}

	if view, ok := s.cachedView(ctx, teacherTimetableKey(teacherID)); ok {
		s.stampCurrent(view)
		return view, nil
	}

	slots, err := s.repo.ListByTeacher(ctx, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable")
	}

	// Teacher views span classes, so no single class-level break applies;
	// recover one from the rows for display purposes.
	view := s.assembleView(teacherID, "teacher", slots, ReconcileBreak(slots))
	s.storeView(ctx, teacherTimetableKey(teacherID), view)
	s.stampCurrent(view)
	return view, nil
}

// Save replaces a class's entire timetable with the submitted entries.
// Entries with an unrecognised day or period are dropped; duplicate cells
// resolve last-write-wins. Each referenced subject must belong to the class.
func (s *TimetableService) Save(ctx context.Context, classID string, req SaveTimetableRequest) (*TimetableView, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid timetable payload")
	}
	if _, err := s.classes.FindByID(ctx, classID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}

	staging := make([]models.TimetableSlotDetail, 0, len(req.Entries))
	seen := make(map[string]*models.Subject)
	for _, entry := range req.Entries {
		if !models.ValidDay(entry.Day) || !models.ValidPeriod(entry.PeriodNumber) {
			continue
		}
		subject, ok := seen[entry.SubjectID]
		if !ok {
			loaded, err := s.subjects.FindByID(ctx, entry.SubjectID)
			if err != nil {
				if err == sql.ErrNoRows {
					return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("subject %s not found", entry.SubjectID))
				}
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
			}
			seen[entry.SubjectID] = loaded
			subject = loaded
		}
		if subject.ClassID != classID {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("subject %s does not belong to class", entry.SubjectID))
		}
		staging = append(staging, models.TimetableSlotDetail{
			TimetableSlot: models.TimetableSlot{
				ClassID:      classID,
				Day:          entry.Day,
				PeriodNumber: entry.PeriodNumber,
				SubjectID:    entry.SubjectID,
			},
			SubjectName: subject.Name,
		})
	}

	// The grid mapping enforces one subject per class/day/period
	// structurally; flattening it yields the deduplicated slot list.
	grid := BuildGrid(staging, req.BreakAfterPeriod)
	slots := FlattenGrid(grid, classID)

	if err := s.repo.ReplaceForClass(ctx, classID, slots, grid.BreakAfterPeriod); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save timetable")
	}

	s.invalidate(ctx)

	return s.ClassTimetable(ctx, classID)
}

// Export renders a class timetable as CSV or PDF with the break column
// inserted per the class setting.
func (s *TimetableService) Export(ctx context.Context, classID, format string) ([]byte, string, string, error) {
	view, err := s.ClassTimetable(ctx, classID)
	if err != nil {
		return nil, "", "", err
	}

	headers := make([]string, 0, len(view.Columns)+1)
	headers = append(headers, "Day")
	for _, column := range view.Columns {
		headers = append(headers, column.Label)
	}

	rows := make([]map[string]string, 0, len(models.Days))
	for _, day := range models.Days {
		row := map[string]string{"Day": day}
		for _, column := range view.Columns {
			if column.Break {
				row[column.Label] = ""
				continue
			}
			cell, _ := view.Grid.Cell(day, column.Period)
			if cell.Free {
				row[column.Label] = ""
				continue
			}
			row[column.Label] = cell.SubjectName
		}
		rows = append(rows, row)
	}
	dataset := export.Dataset{Headers: headers, Rows: rows}

	switch strings.ToLower(format) {
	case "csv", "":
		payload, err := export.NewCSVExporter().Render(dataset)
		if err != nil {
			return nil, "", "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return payload, "text/csv", fmt.Sprintf("timetable-%s.csv", classID), nil
	case "pdf":
		payload, err := export.NewPDFExporter("L").Render(dataset, "Weekly Timetable")
		if err != nil {
			return nil, "", "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return payload, "application/pdf", fmt.Sprintf("timetable-%s.pdf", classID), nil
	default:
		return nil, "", "", appErrors.Clone(appErrors.ErrValidation, "unsupported export format")
	}
}

func (s *TimetableService) resolveBreak(ctx context.Context, classID string, slots []models.TimetableSlotDetail) (int, error) {
	setting, err := s.repo.GetSetting(ctx, classID)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable setting")
	}
	if setting != nil {
		return setting.BreakAfterPeriod, nil
	}
	// Legacy rows carry the break denormalized per slot; reconcile from them
	// when the class-level setting has not been written yet.
	return ReconcileBreak(slots), nil
}

func (s *TimetableService) assembleView(ownerID, ownerType string, slots []models.TimetableSlotDetail, breakAfter int) *TimetableView {
	grid := BuildGrid(slots, breakAfter)
	for i := range slots {
		slots[i].BreakAfterPeriod = grid.BreakAfterPeriod
	}
	return &TimetableView{
		OwnerID:          ownerID,
		OwnerType:        ownerType,
		Grid:             grid,
		Columns:          PeriodColumns(grid.BreakAfterPeriod),
		Slots:            slots,
		BreakAfterPeriod: grid.BreakAfterPeriod,
	}
}

func (s *TimetableService) stampCurrent(view *TimetableView) {
	day, period, ok := CurrentPeriod(s.now())
	if !ok {
		return
	}
	view.CurrentDay = day
	view.CurrentPeriod = period
}

func (s *TimetableService) cachedView(ctx context.Context, key string) (*TimetableView, bool) {
	if s.cache == nil {
		return nil, false
	}
	start := time.Now()
	var view TimetableView
	err := s.cache.Get(ctx, key, &view)
	s.metrics.RecordCacheOperation(err == nil, time.Since(start))
	if err != nil {
		if err != appErrors.ErrCacheMiss {
			s.logger.Warn("timetable cache read failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	return &view, true
}

func (s *TimetableService) storeView(ctx context.Context, key string, view *TimetableView) {
	if s.cache == nil {
		return
	}
	start := time.Now()
	if err := s.cache.Set(ctx, key, view, s.cacheTTL); err != nil {
		s.logger.Warn("timetable cache write failed", zap.String("key", key), zap.Error(err))
		return
	}
	s.metrics.ObserveCacheWrite(time.Since(start))
}

func (s *TimetableService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, "timetable:*"); err != nil {
		s.logger.Warn("timetable cache invalidation failed", zap.Error(err))
	}
}
