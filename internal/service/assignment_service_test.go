package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arkanhadi/school-admin-api/internal/models"
	appErrors "github.com/arkanhadi/school-admin-api/pkg/errors"
)

type stubClassRepo struct {
	classes        map[string]*models.Class
	classTeacher   map[string]string
	clearedTeacher []string
}

func (s *stubClassRepo) FindByID(ctx context.Context, id string) (*models.Class, error) {
	class, ok := s.classes[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return class, nil
}

func (s *stubClassRepo) SetClassTeacher(ctx context.Context, classID, teacherID string) error {
	if s.classTeacher == nil {
		s.classTeacher = make(map[string]string)
	}
	s.classTeacher[classID] = teacherID
	return nil
}

func (s *stubClassRepo) ClearClassTeacher(ctx context.Context, classID, teacherID string) error {
	s.clearedTeacher = append(s.clearedTeacher, classID)
	return nil
}

type stubAssignStudentRepo struct {
	students   map[string]*models.Student
	classIDs   []string
	updated    map[string]*string
	failFor    map[string]error
}

func (s *stubAssignStudentRepo) FindByID(ctx context.Context, id string) (*models.Student, error) {
	student, ok := s.students[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return student, nil
}

func (s *stubAssignStudentRepo) ListIDsByClass(ctx context.Context, classID string) ([]string, error) {
	return s.classIDs, nil
}

func (s *stubAssignStudentRepo) UpdateClass(ctx context.Context, studentID string, classID *string) error {
	if err, ok := s.failFor[studentID]; ok {
		return err
	}
	if s.updated == nil {
		s.updated = make(map[string]*string)
	}
	s.updated[studentID] = classID
	return nil
}

type stubTeacherRepo struct {
	teachers     map[string]*models.Teacher
	teaches      map[string]bool
	addedClass   []string
	removedClass []string
}

func (s *stubTeacherRepo) FindByID(ctx context.Context, id string) (*models.Teacher, error) {
	teacher, ok := s.teachers[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return teacher, nil
}

func (s *stubTeacherRepo) AddClass(ctx context.Context, teacherID, classID string) error {
	s.addedClass = append(s.addedClass, classID)
	return nil
}

func (s *stubTeacherRepo) RemoveClass(ctx context.Context, teacherID, classID string) error {
	s.removedClass = append(s.removedClass, classID)
	return nil
}

func (s *stubTeacherRepo) TeachesClass(ctx context.Context, teacherID, classID string) (bool, error) {
	return s.teaches[teacherID+"/"+classID], nil
}

type stubAssignSubjectRepo struct {
	subjects       map[string]*models.Subject
	clearedByClass int
	assignedClass  string
	updatedTeacher map[string]*string
	deleted        []string
	deletedByClass int
}

func (s *stubAssignSubjectRepo) FindByID(ctx context.Context, id string) (*models.Subject, error) {
	subject, ok := s.subjects[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return subject, nil
}

func (s *stubAssignSubjectRepo) UpdateTeacher(ctx context.Context, subjectID string, teacherID *string) error {
	if s.updatedTeacher == nil {
		s.updatedTeacher = make(map[string]*string)
	}
	s.updatedTeacher[subjectID] = teacherID
	return nil
}

func (s *stubAssignSubjectRepo) AssignTeacherWithClass(ctx context.Context, subjectID, teacherID, classID string) error {
	s.assignedClass = classID
	subject := s.subjects[subjectID]
	subject.TeacherID = &teacherID
	return nil
}

func (s *stubAssignSubjectRepo) ClearTeacherByClass(ctx context.Context, teacherID, classID string) (int, error) {
	return s.clearedByClass, nil
}

func (s *stubAssignSubjectRepo) Delete(ctx context.Context, id string) error {
	s.deleted = append(s.deleted, id)
	return nil
}

func (s *stubAssignSubjectRepo) DeleteByClass(ctx context.Context, classID string) (int, error) {
	s.deletedByClass++
	return 3, nil
}

func newAssignmentFixture() (*AssignmentService, *stubClassRepo, *stubAssignStudentRepo, *stubTeacherRepo, *stubAssignSubjectRepo) {
	classes := &stubClassRepo{classes: map[string]*models.Class{
		"class-1": {ID: "class-1", Name: "10A"},
	}}
	students := &stubAssignStudentRepo{students: map[string]*models.Student{
		"stu-1": {ID: "stu-1"},
	}}
	teachers := &stubTeacherRepo{teachers: map[string]*models.Teacher{
		"tch-1": {ID: "tch-1"},
	}, teaches: map[string]bool{}}
	subjects := &stubAssignSubjectRepo{subjects: map[string]*models.Subject{
		"sub-1": {ID: "sub-1", ClassID: "class-1"},
	}}
	svc := NewAssignmentService(classes, students, teachers, subjects, nil, nil)
	return svc, classes, students, teachers, subjects
}

func TestAssignStudentToClass(t *testing.T) {
	svc, _, students, _, _ := newAssignmentFixture()

	require.NoError(t, svc.AssignStudentToClass(context.Background(), "class-1", "stu-1"))
	require.NotNil(t, students.updated["stu-1"])
	assert.Equal(t, "class-1", *students.updated["stu-1"])
}

func TestRemoveStudentFromClassReturnsToPool(t *testing.T) {
	svc, _, students, _, _ := newAssignmentFixture()

	require.NoError(t, svc.RemoveStudentFromClass(context.Background(), "class-1", "stu-1"))
	updated, ok := students.updated["stu-1"]
	require.True(t, ok)
	assert.Nil(t, updated)
}

func TestAssignStudentUnknownClass(t *testing.T) {
	svc, _, _, _, _ := newAssignmentFixture()

	err := svc.AssignStudentToClass(context.Background(), "missing", "stu-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestRemoveAllStudentsReportsPartialFailure(t *testing.T) {
	svc, _, students, _, _ := newAssignmentFixture()
	students.classIDs = []string{"stu-1", "stu-2", "stu-3"}
	students.failFor = map[string]error{"stu-2": errors.New("boom")}

	result, err := svc.RemoveAllStudentsFromClass(context.Background(), "class-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"stu-1", "stu-3"}, result.Succeeded)
	require.Len(t, result.Failed, 1)
	assert.Equal(t, "stu-2", result.Failed[0].ID)
	assert.False(t, result.AllSucceeded())
}

func TestUpdateTeachSubjectAddsClassToTeachSet(t *testing.T) {
	svc, _, _, _, subjects := newAssignmentFixture()

	require.NoError(t, svc.UpdateTeachSubject(context.Background(), "tch-1", "sub-1"))
	assert.Equal(t, "class-1", subjects.assignedClass)
	require.NotNil(t, subjects.subjects["sub-1"].TeacherID)
	assert.Equal(t, "tch-1", *subjects.subjects["sub-1"].TeacherID)
}

func TestRemoveTeacherFromClassCascades(t *testing.T) {
	svc, classes, _, teachers, subjects := newAssignmentFixture()
	teacherID := "tch-1"
	classes.classes["class-1"].ClassTeacherID = &teacherID
	subjects.clearedByClass = 2

	require.NoError(t, svc.RemoveTeacherFromClass(context.Background(), "tch-1", "class-1"))
	assert.Equal(t, []string{"class-1"}, teachers.removedClass)
	assert.Equal(t, []string{"class-1"}, classes.clearedTeacher)
}

func TestAssignClassTeacherRequiresTeachingClass(t *testing.T) {
	svc, classes, _, teachers, _ := newAssignmentFixture()

	err := svc.AssignClassTeacher(context.Background(), "class-1", "tch-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)

	teachers.teaches["tch-1/class-1"] = true
	require.NoError(t, svc.AssignClassTeacher(context.Background(), "class-1", "tch-1"))
	assert.Equal(t, "tch-1", classes.classTeacher["class-1"])
}

func TestRemoveClassTeacherHeldByAnother(t *testing.T) {
	svc, classes, _, _, _ := newAssignmentFixture()
	other := "tch-9"
	classes.classes["class-1"].ClassTeacherID = &other

	err := svc.RemoveClassTeacher(context.Background(), "class-1", "tch-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestRemoveClassTeacherIdempotentWhenUnset(t *testing.T) {
	svc, classes, _, _, _ := newAssignmentFixture()

	require.NoError(t, svc.RemoveClassTeacher(context.Background(), "class-1", "tch-1"))
	assert.Empty(t, classes.clearedTeacher)
}

func TestRemoveTeacherSubjectsSkipsForeignSubjects(t *testing.T) {
	svc, _, _, _, subjects := newAssignmentFixture()
	mine := "tch-1"
	other := "tch-9"
	subjects.subjects["sub-1"].TeacherID = &mine
	subjects.subjects["sub-2"] = &models.Subject{ID: "sub-2", ClassID: "class-1", TeacherID: &other}

	result, err := svc.RemoveTeacherSubjects(context.Background(), "tch-1", []string{"sub-1", "sub-2", "sub-missing"})
	require.NoError(t, err)
	assert.Equal(t, []string{"sub-1"}, result.Succeeded)
	require.Len(t, result.Failed, 2)

	cleared, ok := subjects.updatedTeacher["sub-1"]
	require.True(t, ok)
	assert.Nil(t, cleared)
	_, touchedOther := subjects.updatedTeacher["sub-2"]
	assert.False(t, touchedOther)
}

func TestDeleteAllSubjects(t *testing.T) {
	svc, _, _, _, subjects := newAssignmentFixture()

	deleted, err := svc.DeleteAllSubjects(context.Background(), "class-1")
	require.NoError(t, err)
	assert.Equal(t, 3, deleted)
	assert.Equal(t, 1, subjects.deletedByClass)
}
