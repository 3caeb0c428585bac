package service

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/arkanhadi/school-admin-api/internal/models"
	appErrors "github.com/arkanhadi/school-admin-api/pkg/errors"
)

type assignmentClassRepo interface {
	FindByID(ctx context.Context, id string) (*models.Class, error)
	SetClassTeacher(ctx context.Context, classID, teacherID string) error
	ClearClassTeacher(ctx context.Context, classID, teacherID string) error
}

type assignmentStudentRepo interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
	ListIDsByClass(ctx context.Context, classID string) ([]string, error)
	UpdateClass(ctx context.Context, studentID string, classID *string) error
}

type assignmentTeacherRepo interface {
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
	AddClass(ctx context.Context, teacherID, classID string) error
	RemoveClass(ctx context.Context, teacherID, classID string) error
	TeachesClass(ctx context.Context, teacherID, classID string) (bool, error)
}

type assignmentSubjectRepo interface {
	FindByID(ctx context.Context, id string) (*models.Subject, error)
	UpdateTeacher(ctx context.Context, subjectID string, teacherID *string) error
	AssignTeacherWithClass(ctx context.Context, subjectID, teacherID, classID string) error
	ClearTeacherByClass(ctx context.Context, teacherID, classID string) (int, error)
	Delete(ctx context.Context, id string) error
	DeleteByClass(ctx context.Context, classID string) (int, error)
}

type assignmentCache interface {
	DeleteByPattern(ctx context.Context, pattern string) error
}

// AssignmentService keeps the Class, Subject, Teacher and Student relations
// mutually consistent. Every operation is a single-purpose mutation and is
// safe to retry; callers re-fetch state afterwards rather than patching
// their own copy.
type AssignmentService struct {
	classes  assignmentClassRepo
	students assignmentStudentRepo
	teachers assignmentTeacherRepo
	subjects assignmentSubjectRepo
	cache    assignmentCache
	logger   *zap.Logger
}

// NewAssignmentService constructs AssignmentService. cache may be nil.
func NewAssignmentService(
	classes assignmentClassRepo,
	students assignmentStudentRepo,
	teachers assignmentTeacherRepo,
	subjects assignmentSubjectRepo,
	cache assignmentCache,
	logger *zap.Logger,
) *AssignmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssignmentService{
		classes:  classes,
		students: students,
		teachers: teachers,
		subjects: subjects,
		cache:    cache,
		logger:   logger,
	}
}

// AssignStudentToClass places a student into a class. A student belongs to at
// most one class, so any previous membership is overwritten.
func (s *AssignmentService) AssignStudentToClass(ctx context.Context, classID, studentID string) error {
	if _, err := s.classes.FindByID(ctx, classID); err != nil {
		return notFoundOr(err, "class not found")
	}
	if _, err := s.students.FindByID(ctx, studentID); err != nil {
		return notFoundOr(err, "student not found")
	}
	if err := s.students.UpdateClass(ctx, studentID, &classID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign student")
	}
	return nil
}

// RemoveStudentFromClass returns a student to the unassigned pool. The class
// is checked for existence but the student is unassigned regardless of which
// class currently holds them, so the operation is retriable.
func (s *AssignmentService) RemoveStudentFromClass(ctx context.Context, classID, studentID string) error {
	if _, err := s.classes.FindByID(ctx, classID); err != nil {
		return notFoundOr(err, "class not found")
	}
	if _, err := s.students.FindByID(ctx, studentID); err != nil {
		return notFoundOr(err, "student not found")
	}
	if err := s.students.UpdateClass(ctx, studentID, nil); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to unassign student")
	}
	return nil
}

// RemoveAllStudentsFromClass unassigns every student of a class one by one
// and reports per-student outcomes.
func (s *AssignmentService) RemoveAllStudentsFromClass(ctx context.Context, classID string) (*models.BulkResult, error) {
	if _, err := s.classes.FindByID(ctx, classID); err != nil {
		return nil, notFoundOr(err, "class not found")
	}
	ids, err := s.students.ListIDsByClass(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list class students")
	}

	result := &models.BulkResult{Succeeded: []string{}, Failed: []models.BulkFailure{}}
	for _, id := range ids {
		if err := s.students.UpdateClass(ctx, id, nil); err != nil {
			s.logger.Warn("bulk unassign student failed",
				zap.String("student_id", id),
				zap.String("class_id", classID),
				zap.Error(err))
			result.Failed = append(result.Failed, models.BulkFailure{ID: id, Message: "failed to unassign student"})
			continue
		}
		result.Succeeded = append(result.Succeeded, id)
	}
	return result, nil
}

// AssignTeacherToClass adds the class to the teacher's teach-class set.
// Idempotent: assigning an already taught class is a no-op.
func (s *AssignmentService) AssignTeacherToClass(ctx context.Context, teacherID, classID string) error {
	if _, err := s.teachers.FindByID(ctx, teacherID); err != nil {
		return notFoundOr(err, "teacher not found")
	}
	if _, err := s.classes.FindByID(ctx, classID); err != nil {
		return notFoundOr(err, "class not found")
	}
	if err := s.teachers.AddClass(ctx, teacherID, classID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign teacher to class")
	}
	return nil
}

// RemoveTeacherFromClass detaches a teacher from a class. Subjects the
// teacher taught in that class are cleared first and the class-teacher role
// is released if held, so no dangling references survive the removal.
func (s *AssignmentService) RemoveTeacherFromClass(ctx context.Context, teacherID, classID string) error {
	if _, err := s.teachers.FindByID(ctx, teacherID); err != nil {
		return notFoundOr(err, "teacher not found")
	}
	class, err := s.classes.FindByID(ctx, classID)
	if err != nil {
		return notFoundOr(err, "class not found")
	}

	cleared, err := s.subjects.ClearTeacherByClass(ctx, teacherID, classID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to clear subject assignments")
	}
	if cleared > 0 {
		s.logger.Info("cleared subject assignments on class removal",
			zap.String("teacher_id", teacherID),
			zap.String("class_id", classID),
			zap.Int("subjects", cleared))
	}

	if class.ClassTeacherID != nil && *class.ClassTeacherID == teacherID {
		if err := s.classes.ClearClassTeacher(ctx, classID, teacherID); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to release class teacher role")
		}
	}

	if err := s.teachers.RemoveClass(ctx, teacherID, classID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove teacher from class")
	}

	s.invalidateTimetables(ctx)
	return nil
}

// UpdateTeachSubject makes the teacher the subject's teacher and ensures the
// subject's class is in the teacher's teach-class set, in one transaction.
// Idempotent.
func (s *AssignmentService) UpdateTeachSubject(ctx context.Context, teacherID, subjectID string) error {
	if _, err := s.teachers.FindByID(ctx, teacherID); err != nil {
		return notFoundOr(err, "teacher not found")
	}
	subject, err := s.subjects.FindByID(ctx, subjectID)
	if err != nil {
		return notFoundOr(err, "subject not found")
	}
	if err := s.subjects.AssignTeacherWithClass(ctx, subjectID, teacherID, subject.ClassID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign subject")
	}
	s.invalidateTimetables(ctx)
	return nil
}

// RemoveTeacherSubjects clears the teacher from each listed subject. The
// teach-class set is left untouched; the teacher may still teach other
// subjects in those classes. Subjects assigned to a different teacher are
// reported as failures rather than silently stolen.
func (s *AssignmentService) RemoveTeacherSubjects(ctx context.Context, teacherID string, subjectIDs []string) (*models.BulkResult, error) {
	if _, err := s.teachers.FindByID(ctx, teacherID); err != nil {
		return nil, notFoundOr(err, "teacher not found")
	}

	result := &models.BulkResult{Succeeded: []string{}, Failed: []models.BulkFailure{}}
	for _, subjectID := range subjectIDs {
		subject, err := s.subjects.FindByID(ctx, subjectID)
		if err != nil {
			if err == sql.ErrNoRows {
				result.Failed = append(result.Failed, models.BulkFailure{ID: subjectID, Message: "subject not found"})
				continue
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
		}
		if subject.TeacherID == nil || *subject.TeacherID != teacherID {
			result.Failed = append(result.Failed, models.BulkFailure{ID: subjectID, Message: "subject is not assigned to this teacher"})
			continue
		}
		if err := s.subjects.UpdateTeacher(ctx, subjectID, nil); err != nil {
			s.logger.Warn("bulk clear subject failed",
				zap.String("subject_id", subjectID),
				zap.String("teacher_id", teacherID),
				zap.Error(err))
			result.Failed = append(result.Failed, models.BulkFailure{ID: subjectID, Message: "failed to clear subject"})
			continue
		}
		result.Succeeded = append(result.Succeeded, subjectID)
	}

	if len(result.Succeeded) > 0 {
		s.invalidateTimetables(ctx)
	}
	return result, nil
}

// AssignClassTeacher grants the distinguished class-teacher role. The
// teacher must already teach the class.
func (s *AssignmentService) AssignClassTeacher(ctx context.Context, classID, teacherID string) error {
	if _, err := s.classes.FindByID(ctx, classID); err != nil {
		return notFoundOr(err, "class not found")
	}
	if _, err := s.teachers.FindByID(ctx, teacherID); err != nil {
		return notFoundOr(err, "teacher not found")
	}
	teaches, err := s.teachers.TeachesClass(ctx, teacherID, classID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check teach-class set")
	}
	if !teaches {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "teacher must teach the class before becoming its class teacher")
	}
	if err := s.classes.SetClassTeacher(ctx, classID, teacherID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to set class teacher")
	}
	return nil
}

// RemoveClassTeacher releases the class-teacher role when the given teacher
// holds it. Releasing a role held by someone else is rejected.
func (s *AssignmentService) RemoveClassTeacher(ctx context.Context, classID, teacherID string) error {
	class, err := s.classes.FindByID(ctx, classID)
	if err != nil {
		return notFoundOr(err, "class not found")
	}
	if class.ClassTeacherID == nil {
		return nil
	}
	if *class.ClassTeacherID != teacherID {
		return appErrors.Clone(appErrors.ErrConflict, "class teacher role is held by another teacher")
	}
	if err := s.classes.ClearClassTeacher(ctx, classID, teacherID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to clear class teacher")
	}
	return nil
}

// DeleteSubject removes one subject together with its timetable slots.
func (s *AssignmentService) DeleteSubject(ctx context.Context, subjectID string) error {
	if _, err := s.subjects.FindByID(ctx, subjectID); err != nil {
		return notFoundOr(err, "subject not found")
	}
	if err := s.subjects.Delete(ctx, subjectID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete subject")
	}
	s.invalidateTimetables(ctx)
	return nil
}

// DeleteAllSubjects removes every subject of a class and returns how many
// were deleted.
func (s *AssignmentService) DeleteAllSubjects(ctx context.Context, classID string) (int, error) {
	if _, err := s.classes.FindByID(ctx, classID); err != nil {
		return 0, notFoundOr(err, "class not found")
	}
	deleted, err := s.subjects.DeleteByClass(ctx, classID)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete class subjects")
	}
	if deleted > 0 {
		s.invalidateTimetables(ctx)
	}
	return deleted, nil
}

func (s *AssignmentService) invalidateTimetables(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, "timetable:*"); err != nil {
		s.logger.Warn("timetable cache invalidation failed", zap.Error(err))
	}
}

// notFoundOr maps a missing row to NOT_FOUND with the given message and
// wraps anything else as internal.
func notFoundOr(err error, message string) *appErrors.Error {
	if err == sql.ErrNoRows {
		return appErrors.Clone(appErrors.ErrNotFound, message)
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, fmt.Sprintf("failed to load resource: %s", message))
}
