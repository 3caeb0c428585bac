package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arkanhadi/school-admin-api/internal/models"
	appErrors "github.com/arkanhadi/school-admin-api/pkg/errors"
)

type stubTimetableRepo struct {
	byClass   []models.TimetableSlotDetail
	byTeacher []models.TimetableSlotDetail
	setting   *models.TimetableSetting
	replaced  []models.TimetableSlot
	breakSet  int
}

func (s *stubTimetableRepo) ListByClass(ctx context.Context, classID string) ([]models.TimetableSlotDetail, error) {
	return s.byClass, nil
}

func (s *stubTimetableRepo) ListByTeacher(ctx context.Context, teacherID string) ([]models.TimetableSlotDetail, error) {
	return s.byTeacher, nil
}

func (s *stubTimetableRepo) GetSetting(ctx context.Context, classID string) (*models.TimetableSetting, error) {
	return s.setting, nil
}

func (s *stubTimetableRepo) ReplaceForClass(ctx context.Context, classID string, slots []models.TimetableSlot, breakAfterPeriod int) error {
	s.replaced = slots
	s.breakSet = breakAfterPeriod
	s.byClass = detailsFromSlots(slots)
	s.setting = &models.TimetableSetting{ClassID: classID, BreakAfterPeriod: breakAfterPeriod}
	return nil
}

type stubTimetableClassReader struct {
	classes map[string]*models.Class
}

func (s *stubTimetableClassReader) FindByID(ctx context.Context, id string) (*models.Class, error) {
	class, ok := s.classes[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return class, nil
}

type stubTimetableTeacherReader struct {
	teachers map[string]*models.Teacher
}

func (s *stubTimetableTeacherReader) FindByID(ctx context.Context, id string) (*models.Teacher, error) {
	teacher, ok := s.teachers[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return teacher, nil
}

type stubTimetableSubjectReader struct {
	subjects map[string]*models.Subject
}

func (s *stubTimetableSubjectReader) FindByID(ctx context.Context, id string) (*models.Subject, error) {
	subject, ok := s.subjects[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return subject, nil
}

type memoryCache struct {
	values   map[string][]byte
	hits     int
	deletes  int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{values: make(map[string][]byte)}
}

func (m *memoryCache) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := m.values[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	m.hits++
	return json.Unmarshal(raw, dest)
}

func (m *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.values[key] = raw
	return nil
}

func (m *memoryCache) DeleteByPattern(ctx context.Context, pattern string) error {
	m.deletes++
	m.values = make(map[string][]byte)
	return nil
}

func newTimetableFixture(cache timetableCache) (*TimetableService, *stubTimetableRepo) {
	repo := &stubTimetableRepo{}
	classes := &stubTimetableClassReader{classes: map[string]*models.Class{
		"class-1": {ID: "class-1", Name: "10A"},
	}}
	teachers := &stubTimetableTeacherReader{teachers: map[string]*models.Teacher{
		"tch-1": {ID: "tch-1"},
	}}
	subjects := &stubTimetableSubjectReader{subjects: map[string]*models.Subject{
		"sub-1": {ID: "sub-1", ClassID: "class-1", Name: "Mathematics"},
		"sub-2": {ID: "sub-2", ClassID: "class-1", Name: "Physics"},
		"sub-other": {ID: "sub-other", ClassID: "class-9", Name: "History"},
	}}
	svc := NewTimetableService(repo, classes, teachers, subjects, cache, time.Minute, nil, nil, nil)
	return svc, repo
}

func TestClassTimetableFullGrid(t *testing.T) {
	svc, repo := newTimetableFixture(nil)
	repo.byClass = []models.TimetableSlotDetail{slot("Monday", 1, "sub-1")}
	repo.setting = &models.TimetableSetting{ClassID: "class-1", BreakAfterPeriod: 4}

	view, err := svc.ClassTimetable(context.Background(), "class-1")
	require.NoError(t, err)
	assert.Equal(t, "class", view.OwnerType)
	assert.Equal(t, 4, view.BreakAfterPeriod)
	assert.Len(t, view.Grid.Cells, len(models.Days))
	assert.Len(t, view.Columns, models.PeriodsPerDay+1)

	cell, _ := view.Grid.Cell("Monday", 1)
	assert.Equal(t, "sub-1", cell.SubjectID)
}

func TestClassTimetableFallsBackToLegacyBreak(t *testing.T) {
	svc, repo := newTimetableFixture(nil)
	legacy := slot("Monday", 1, "sub-1")
	legacy.BreakAfterPeriod = 3
	repo.byClass = []models.TimetableSlotDetail{legacy}
	repo.setting = nil

	view, err := svc.ClassTimetable(context.Background(), "class-1")
	require.NoError(t, err)
	assert.Equal(t, 3, view.BreakAfterPeriod)
}

func TestClassTimetableUnknownClass(t *testing.T) {
	svc, _ := newTimetableFixture(nil)

	_, err := svc.ClassTimetable(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestClassTimetableCaches(t *testing.T) {
	cache := newMemoryCache()
	svc, repo := newTimetableFixture(cache)
	repo.byClass = []models.TimetableSlotDetail{slot("Monday", 1, "sub-1")}

	_, err := svc.ClassTimetable(context.Background(), "class-1")
	require.NoError(t, err)
	require.Contains(t, cache.values, "timetable:class:class-1")

	_, err = svc.ClassTimetable(context.Background(), "class-1")
	require.NoError(t, err)
	assert.Equal(t, 1, cache.hits)
}

func TestSaveDropsInvalidAndDeduplicates(t *testing.T) {
	cache := newMemoryCache()
	svc, repo := newTimetableFixture(cache)

	view, err := svc.Save(context.Background(), "class-1", SaveTimetableRequest{
		Entries: []TimetableEntryInput{
			{Day: "Monday", PeriodNumber: 1, SubjectID: "sub-1"},
			{Day: "Monday", PeriodNumber: 1, SubjectID: "sub-2"},
			{Day: "Sunday", PeriodNumber: 2, SubjectID: "sub-1"},
			{Day: "Tuesday", PeriodNumber: 99, SubjectID: "sub-1"},
			{Day: "Friday", PeriodNumber: 8, SubjectID: "sub-2"},
		},
		BreakAfterPeriod: 2,
	})
	require.NoError(t, err)

	require.Len(t, repo.replaced, 2)
	assert.Equal(t, 2, repo.breakSet)

	cell, _ := view.Grid.Cell("Monday", 1)
	assert.Equal(t, "sub-2", cell.SubjectID, "duplicate cell resolves last-write-wins")
	cell, _ = view.Grid.Cell("Friday", 8)
	assert.Equal(t, "sub-2", cell.SubjectID)

	assert.Equal(t, 1, cache.deletes)
}

func TestSaveRejectsSubjectOfOtherClass(t *testing.T) {
	svc, _ := newTimetableFixture(nil)

	_, err := svc.Save(context.Background(), "class-1", SaveTimetableRequest{
		Entries: []TimetableEntryInput{
			{Day: "Monday", PeriodNumber: 1, SubjectID: "sub-other"},
		},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestSaveEmptyClearsTimetable(t *testing.T) {
	svc, repo := newTimetableFixture(nil)
	repo.byClass = []models.TimetableSlotDetail{slot("Monday", 1, "sub-1")}

	view, err := svc.Save(context.Background(), "class-1", SaveTimetableRequest{Entries: nil})
	require.NoError(t, err)
	assert.Empty(t, repo.replaced)
	cell, _ := view.Grid.Cell("Monday", 1)
	assert.True(t, cell.Free)
}

func TestTeacherTimetableSpansClasses(t *testing.T) {
	svc, repo := newTimetableFixture(nil)
	first := slot("Monday", 1, "sub-1")
	second := models.TimetableSlotDetail{
		TimetableSlot: models.TimetableSlot{ClassID: "class-2", Day: "Tuesday", PeriodNumber: 3, SubjectID: "sub-9"},
		ClassName:     "11B",
	}
	repo.byTeacher = []models.TimetableSlotDetail{first, second}

	view, err := svc.TeacherTimetable(context.Background(), "tch-1")
	require.NoError(t, err)
	assert.Equal(t, "teacher", view.OwnerType)

	cell, _ := view.Grid.Cell("Tuesday", 3)
	assert.Equal(t, "class-2", cell.ClassID)
	assert.Equal(t, "11B", cell.ClassName)
}

func TestExportCSVContainsBreakColumn(t *testing.T) {
	svc, repo := newTimetableFixture(nil)
	repo.byClass = []models.TimetableSlotDetail{slot("Monday", 1, "sub-1")}
	repo.setting = &models.TimetableSetting{ClassID: "class-1", BreakAfterPeriod: 4}

	payload, contentType, filename, err := svc.Export(context.Background(), "class-1", "csv")
	require.NoError(t, err)
	assert.Equal(t, "text/csv", contentType)
	assert.Equal(t, "timetable-class-1.csv", filename)

	body := string(payload)
	assert.Contains(t, body, "BREAK")
	assert.Contains(t, body, "Subject sub-1")
	assert.Contains(t, body, "Monday")
}

func TestExportRejectsUnknownFormat(t *testing.T) {
	svc, _ := newTimetableFixture(nil)

	_, _, _, err := svc.Export(context.Background(), "class-1", "xlsx")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
