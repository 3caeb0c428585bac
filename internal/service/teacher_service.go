package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/arkanhadi/school-admin-api/internal/models"
	appErrors "github.com/arkanhadi/school-admin-api/pkg/errors"
)

type teacherRepository interface {
	List(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, int, error)
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
	Create(ctx context.Context, teacher *models.Teacher) error
	Update(ctx context.Context, teacher *models.Teacher) error
	Delete(ctx context.Context, id string) error
	ListClasses(ctx context.Context, teacherID string) ([]models.TeacherClass, error)
}

type teacherSubjectLister interface {
	ListByTeacher(ctx context.Context, teacherID string) ([]models.SubjectDetail, error)
}

type teacherClassLister interface {
	ListByClassTeacher(ctx context.Context, teacherID string) ([]models.Class, error)
}

// CreateTeacherRequest captures the teacher creation payload.
type CreateTeacherRequest struct {
	SchoolID string  `json:"school_id" validate:"required"`
	FullName string  `json:"full_name" validate:"required"`
	Email    string  `json:"email" validate:"required,email"`
	Phone    *string `json:"phone"`
}

// UpdateTeacherRequest modifies teacher attributes.
type UpdateTeacherRequest struct {
	FullName string  `json:"full_name" validate:"required"`
	Email    string  `json:"email" validate:"required,email"`
	Phone    *string `json:"phone"`
	Active   *bool   `json:"active"`
}

// TeacherService coordinates teacher lifecycle operations.
type TeacherService struct {
	repo      teacherRepository
	subjects  teacherSubjectLister
	classes   teacherClassLister
	cache     classCacheInvalidator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTeacherService constructs TeacherService. cache may be nil.
func NewTeacherService(repo teacherRepository, subjects teacherSubjectLister, classes teacherClassLister, cache classCacheInvalidator, validate *validator.Validate, logger *zap.Logger) *TeacherService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TeacherService{repo: repo, subjects: subjects, classes: classes, cache: cache, validator: validate, logger: logger}
}

// List returns teachers with pagination metadata.
func (s *TeacherService) List(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, *models.Pagination, error) {
	teachers, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list teachers")
	}
	return teachers, paginationFor(filter.Page, filter.PageSize, total), nil
}

// Get assembles a teacher detail view: the teach-class set, taught subjects
// and any classes where the teacher holds the class-teacher role.
func (s *TeacherService) Get(ctx context.Context, id string) (*models.TeacherDetail, error) {
	teacher, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "teacher not found")
	}

	classes, err := s.repo.ListClasses(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teach-class set")
	}
	subjects, err := s.subjects.ListByTeacher(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load taught subjects")
	}
	classTeacherOf, err := s.classes.ListByClassTeacher(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class teacher roles")
	}

	return &models.TeacherDetail{
		Teacher:        *teacher,
		Classes:        classes,
		Subjects:       subjects,
		ClassTeacherOf: classTeacherOf,
	}, nil
}

// Create adds a new teacher with empty relation sets.
func (s *TeacherService) Create(ctx context.Context, req CreateTeacherRequest) (*models.Teacher, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid teacher payload")
	}
	teacher := &models.Teacher{
		SchoolID: req.SchoolID,
		FullName: req.FullName,
		Email:    req.Email,
		Phone:    req.Phone,
		Active:   true,
	}
	if err := s.repo.Create(ctx, teacher); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create teacher")
	}
	return teacher, nil
}

// Update modifies teacher attributes.
func (s *TeacherService) Update(ctx context.Context, id string, req UpdateTeacherRequest) (*models.Teacher, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid teacher payload")
	}
	teacher, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "teacher not found")
	}
	teacher.FullName = req.FullName
	teacher.Email = req.Email
	teacher.Phone = req.Phone
	if req.Active != nil {
		teacher.Active = *req.Active
	}
	if err := s.repo.Update(ctx, teacher); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update teacher")
	}
	return teacher, nil
}

// Delete removes a teacher. Subject assignments are cleared, the teach-class
// set is emptied and any class-teacher role is released, all in one
// transaction.
func (s *TeacherService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return notFoundOr(err, "teacher not found")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete teacher")
	}
	if s.cache != nil {
		if err := s.cache.DeleteByPattern(ctx, "timetable:*"); err != nil {
			s.logger.Warn("timetable cache invalidation failed", zap.Error(err))
		}
	}
	return nil
}
