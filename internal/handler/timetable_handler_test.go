package handler

import (
	"bytes"
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arkanhadi/school-admin-api/internal/models"
	"github.com/arkanhadi/school-admin-api/internal/service"
)

type fakeTimetableRepo struct {
	byClass  []models.TimetableSlotDetail
	setting  *models.TimetableSetting
	replaced []models.TimetableSlot
}

func (f *fakeTimetableRepo) ListByClass(ctx context.Context, classID string) ([]models.TimetableSlotDetail, error) {
	return f.byClass, nil
}

func (f *fakeTimetableRepo) ListByTeacher(ctx context.Context, teacherID string) ([]models.TimetableSlotDetail, error) {
	return f.byClass, nil
}

func (f *fakeTimetableRepo) GetSetting(ctx context.Context, classID string) (*models.TimetableSetting, error) {
	return f.setting, nil
}

func (f *fakeTimetableRepo) ReplaceForClass(ctx context.Context, classID string, slots []models.TimetableSlot, breakAfterPeriod int) error {
	f.replaced = slots
	details := make([]models.TimetableSlotDetail, len(slots))
	for i, s := range slots {
		details[i] = models.TimetableSlotDetail{TimetableSlot: s}
	}
	f.byClass = details
	f.setting = &models.TimetableSetting{ClassID: classID, BreakAfterPeriod: breakAfterPeriod}
	return nil
}

type fakeClassReader struct{ known map[string]bool }

func (f *fakeClassReader) FindByID(ctx context.Context, id string) (*models.Class, error) {
	if !f.known[id] {
		return nil, sql.ErrNoRows
	}
	return &models.Class{ID: id, Name: "10A"}, nil
}

type fakeTeacherReader struct{ known map[string]bool }

func (f *fakeTeacherReader) FindByID(ctx context.Context, id string) (*models.Teacher, error) {
	if !f.known[id] {
		return nil, sql.ErrNoRows
	}
	return &models.Teacher{ID: id}, nil
}

type fakeSubjectReader struct{ subjects map[string]*models.Subject }

func (f *fakeSubjectReader) FindByID(ctx context.Context, id string) (*models.Subject, error) {
	subject, ok := f.subjects[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return subject, nil
}

func newTimetableRouter(repo *fakeTimetableRepo) *gin.Engine {
	gin.SetMode(gin.TestMode)

	svc := service.NewTimetableService(
		repo,
		&fakeClassReader{known: map[string]bool{"class-1": true}},
		&fakeTeacherReader{known: map[string]bool{"tch-1": true}},
		&fakeSubjectReader{subjects: map[string]*models.Subject{
			"sub-1": {ID: "sub-1", ClassID: "class-1", Name: "Mathematics"},
		}},
		nil,
		time.Minute,
		nil,
		nil,
		nil,
	)
	h := NewTimetableHandler(svc)

	router := gin.New()
	router.GET("/classes/:id/timetable", h.ClassTimetable)
	router.PUT("/classes/:id/timetable", h.Save)
	router.GET("/classes/:id/timetable/export", h.Export)
	router.GET("/teachers/:id/timetable", h.TeacherTimetable)
	return router
}

func performRequest(router *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestClassTimetableEndpoint(t *testing.T) {
	repo := &fakeTimetableRepo{
		byClass: []models.TimetableSlotDetail{{
			TimetableSlot: models.TimetableSlot{ClassID: "class-1", Day: "Monday", PeriodNumber: 1, SubjectID: "sub-1"},
			SubjectName:   "Mathematics",
		}},
		setting: &models.TimetableSetting{ClassID: "class-1", BreakAfterPeriod: 4},
	}
	router := newTimetableRouter(repo)

	req, _ := http.NewRequest(http.MethodGet, "/classes/class-1/timetable", nil)
	resp := performRequest(router, req)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"break_after_period":4`)
	assert.Contains(t, resp.Body.String(), `"Mathematics"`)
	assert.Contains(t, resp.Body.String(), `"BREAK"`)
}

func TestClassTimetableEndpointNotFound(t *testing.T) {
	router := newTimetableRouter(&fakeTimetableRepo{})

	req, _ := http.NewRequest(http.MethodGet, "/classes/missing/timetable", nil)
	resp := performRequest(router, req)

	require.Equal(t, http.StatusNotFound, resp.Code)
}

func TestSaveTimetableEndpoint(t *testing.T) {
	repo := &fakeTimetableRepo{}
	router := newTimetableRouter(repo)

	payload := `{"entries":[{"day":"Monday","period_number":1,"subject_id":"sub-1"}],"break_after_period":2}`
	req, _ := http.NewRequest(http.MethodPut, "/classes/class-1/timetable", bytes.NewBufferString(payload))
	req.Header.Set("Content-Type", "application/json")
	resp := performRequest(router, req)

	require.Equal(t, http.StatusOK, resp.Code)
	require.Len(t, repo.replaced, 1)
	assert.Equal(t, "Monday", repo.replaced[0].Day)
	assert.Equal(t, 2, repo.setting.BreakAfterPeriod)
}

func TestSaveTimetableEndpointRejectsForeignSubject(t *testing.T) {
	router := newTimetableRouter(&fakeTimetableRepo{})

	payload := `{"entries":[{"day":"Monday","period_number":1,"subject_id":"sub-x"}]}`
	req, _ := http.NewRequest(http.MethodPut, "/classes/class-1/timetable", bytes.NewBufferString(payload))
	req.Header.Set("Content-Type", "application/json")
	resp := performRequest(router, req)

	require.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestExportTimetableCSVEndpoint(t *testing.T) {
	repo := &fakeTimetableRepo{
		byClass: []models.TimetableSlotDetail{{
			TimetableSlot: models.TimetableSlot{ClassID: "class-1", Day: "Monday", PeriodNumber: 1, SubjectID: "sub-1"},
			SubjectName:   "Mathematics",
		}},
		setting: &models.TimetableSetting{ClassID: "class-1", BreakAfterPeriod: 4},
	}
	router := newTimetableRouter(repo)

	req, _ := http.NewRequest(http.MethodGet, "/classes/class-1/timetable/export?format=csv", nil)
	resp := performRequest(router, req)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "text/csv", resp.Header().Get("Content-Type"))
	assert.Contains(t, resp.Header().Get("Content-Disposition"), "timetable-class-1.csv")
	assert.Contains(t, resp.Body.String(), "BREAK")
}

func TestTeacherTimetableEndpoint(t *testing.T) {
	repo := &fakeTimetableRepo{
		byClass: []models.TimetableSlotDetail{{
			TimetableSlot: models.TimetableSlot{ClassID: "class-1", Day: "Tuesday", PeriodNumber: 2, SubjectID: "sub-1"},
			SubjectName:   "Mathematics",
			ClassName:     "10A",
		}},
	}
	router := newTimetableRouter(repo)

	req, _ := http.NewRequest(http.MethodGet, "/teachers/tch-1/timetable", nil)
	resp := performRequest(router, req)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"owner_type":"teacher"`)
	assert.Contains(t, resp.Body.String(), `"10A"`)
}
