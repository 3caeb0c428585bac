package handler

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arkanhadi/school-admin-api/internal/models"
	"github.com/arkanhadi/school-admin-api/internal/service"
)

type fakeAssignClassRepo struct {
	classes map[string]*models.Class
	setTo   map[string]string
}

func (f *fakeAssignClassRepo) FindByID(ctx context.Context, id string) (*models.Class, error) {
	class, ok := f.classes[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return class, nil
}

func (f *fakeAssignClassRepo) SetClassTeacher(ctx context.Context, classID, teacherID string) error {
	if f.setTo == nil {
		f.setTo = make(map[string]string)
	}
	f.setTo[classID] = teacherID
	return nil
}

func (f *fakeAssignClassRepo) ClearClassTeacher(ctx context.Context, classID, teacherID string) error {
	return nil
}

type fakeAssignStudentRepo struct {
	ids     []string
	failFor map[string]error
}

func (f *fakeAssignStudentRepo) FindByID(ctx context.Context, id string) (*models.Student, error) {
	return &models.Student{ID: id}, nil
}

func (f *fakeAssignStudentRepo) ListIDsByClass(ctx context.Context, classID string) ([]string, error) {
	return f.ids, nil
}

func (f *fakeAssignStudentRepo) UpdateClass(ctx context.Context, studentID string, classID *string) error {
	if err, ok := f.failFor[studentID]; ok {
		return err
	}
	return nil
}

type fakeAssignTeacherRepo struct {
	teaches bool
}

func (f *fakeAssignTeacherRepo) FindByID(ctx context.Context, id string) (*models.Teacher, error) {
	return &models.Teacher{ID: id}, nil
}

func (f *fakeAssignTeacherRepo) AddClass(ctx context.Context, teacherID, classID string) error {
	return nil
}

func (f *fakeAssignTeacherRepo) RemoveClass(ctx context.Context, teacherID, classID string) error {
	return nil
}

func (f *fakeAssignTeacherRepo) TeachesClass(ctx context.Context, teacherID, classID string) (bool, error) {
	return f.teaches, nil
}

type fakeAssignSubjectRepo struct{}

func (f *fakeAssignSubjectRepo) FindByID(ctx context.Context, id string) (*models.Subject, error) {
	return &models.Subject{ID: id, ClassID: "class-1"}, nil
}

func (f *fakeAssignSubjectRepo) UpdateTeacher(ctx context.Context, subjectID string, teacherID *string) error {
	return nil
}

func (f *fakeAssignSubjectRepo) AssignTeacherWithClass(ctx context.Context, subjectID, teacherID, classID string) error {
	return nil
}

func (f *fakeAssignSubjectRepo) ClearTeacherByClass(ctx context.Context, teacherID, classID string) (int, error) {
	return 0, nil
}

func (f *fakeAssignSubjectRepo) Delete(ctx context.Context, id string) error {
	return nil
}

func (f *fakeAssignSubjectRepo) DeleteByClass(ctx context.Context, classID string) (int, error) {
	return 0, nil
}

func newAssignmentRouter(classes *fakeAssignClassRepo, students *fakeAssignStudentRepo, teachers *fakeAssignTeacherRepo) *gin.Engine {
	gin.SetMode(gin.TestMode)

	svc := service.NewAssignmentService(classes, students, teachers, &fakeAssignSubjectRepo{}, nil, nil)
	h := NewAssignmentHandler(svc)

	router := gin.New()
	router.DELETE("/classes/:id/students", h.RemoveAllStudents)
	router.PUT("/classes/:id/class-teacher", h.AssignClassTeacher)
	return router
}

func TestRemoveAllStudentsPartialFailureReturns207(t *testing.T) {
	classes := &fakeAssignClassRepo{classes: map[string]*models.Class{"class-1": {ID: "class-1"}}}
	students := &fakeAssignStudentRepo{
		ids:     []string{"stu-1", "stu-2"},
		failFor: map[string]error{"stu-2": errors.New("boom")},
	}
	router := newAssignmentRouter(classes, students, &fakeAssignTeacherRepo{})

	req, _ := http.NewRequest(http.MethodDelete, "/classes/class-1/students", nil)
	resp := performRequest(router, req)

	require.Equal(t, http.StatusMultiStatus, resp.Code)
	assert.Contains(t, resp.Body.String(), `"succeeded":["stu-1"]`)
	assert.Contains(t, resp.Body.String(), `"stu-2"`)
}

func TestRemoveAllStudentsAllSucceedReturns200(t *testing.T) {
	classes := &fakeAssignClassRepo{classes: map[string]*models.Class{"class-1": {ID: "class-1"}}}
	students := &fakeAssignStudentRepo{ids: []string{"stu-1"}}
	router := newAssignmentRouter(classes, students, &fakeAssignTeacherRepo{})

	req, _ := http.NewRequest(http.MethodDelete, "/classes/class-1/students", nil)
	resp := performRequest(router, req)

	require.Equal(t, http.StatusOK, resp.Code)
}

func TestAssignClassTeacherPreconditionFailure(t *testing.T) {
	classes := &fakeAssignClassRepo{classes: map[string]*models.Class{"class-1": {ID: "class-1"}}}
	router := newAssignmentRouter(classes, &fakeAssignStudentRepo{}, &fakeAssignTeacherRepo{teaches: false})

	req, _ := http.NewRequest(http.MethodPut, "/classes/class-1/class-teacher", bytes.NewBufferString(`{"teacher_id":"tch-1"}`))
	req.Header.Set("Content-Type", "application/json")
	resp := performRequest(router, req)

	require.Equal(t, http.StatusPreconditionFailed, resp.Code)
}

func TestAssignClassTeacherSuccess(t *testing.T) {
	classes := &fakeAssignClassRepo{classes: map[string]*models.Class{"class-1": {ID: "class-1"}}}
	router := newAssignmentRouter(classes, &fakeAssignStudentRepo{}, &fakeAssignTeacherRepo{teaches: true})

	req, _ := http.NewRequest(http.MethodPut, "/classes/class-1/class-teacher", bytes.NewBufferString(`{"teacher_id":"tch-1"}`))
	req.Header.Set("Content-Type", "application/json")
	resp := performRequest(router, req)

	require.Equal(t, http.StatusNoContent, resp.Code)
	assert.Equal(t, "tch-1", classes.setTo["class-1"])
}
