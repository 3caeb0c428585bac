package service

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/arkanhadi/school-admin-api/internal/models"
	appErrors "github.com/arkanhadi/school-admin-api/pkg/errors"
)

type subjectRepository interface {
	List(ctx context.Context, filter models.SubjectFilter) ([]models.SubjectDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.Subject, error)
	ListByClass(ctx context.Context, classID string) ([]models.SubjectDetail, error)
	Create(ctx context.Context, subject *models.Subject) error
	BulkCreate(ctx context.Context, subjects []models.Subject) error
	ListMasterBySchool(ctx context.Context, schoolID string) ([]models.MasterSubject, error)
	CreateMaster(ctx context.Context, master *models.MasterSubject) error
}

type subjectClassReader interface {
	FindByID(ctx context.Context, id string) (*models.Class, error)
}

// CreateSubjectRequest captures the subject creation payload. The class
// binding is fixed at creation and never changes afterwards.
type CreateSubjectRequest struct {
	ClassID string `json:"class_id" validate:"required"`
	Code    string `json:"code" validate:"required"`
	Name    string `json:"name" validate:"required"`
	Session string `json:"session"`
}

// BulkCreateSubjectsRequest instantiates a school's master subjects inside
// one class.
type BulkCreateSubjectsRequest struct {
	ClassID          string   `json:"class_id" validate:"required"`
	MasterSubjectIDs []string `json:"master_subject_ids" validate:"required,min=1"`
}

// CreateMasterSubjectRequest adds a reusable subject template to a school.
type CreateMasterSubjectRequest struct {
	SchoolID string `json:"school_id" validate:"required"`
	Code     string `json:"code" validate:"required"`
	Name     string `json:"name" validate:"required"`
	Session  string `json:"session"`
}

// SubjectService coordinates subject lifecycle operations. Deletion lives on
// AssignmentService because it interacts with timetable consistency.
type SubjectService struct {
	repo      subjectRepository
	classes   subjectClassReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSubjectService constructs SubjectService.
func NewSubjectService(repo subjectRepository, classes subjectClassReader, validate *validator.Validate, logger *zap.Logger) *SubjectService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubjectService{repo: repo, classes: classes, validator: validate, logger: logger}
}

// List returns subjects with pagination metadata.
func (s *SubjectService) List(ctx context.Context, filter models.SubjectFilter) ([]models.SubjectDetail, *models.Pagination, error) {
	subjects, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list subjects")
	}
	return subjects, paginationFor(filter.Page, filter.PageSize, total), nil
}

// Get loads one subject.
func (s *SubjectService) Get(ctx context.Context, id string) (*models.Subject, error) {
	subject, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "subject not found")
	}
	return subject, nil
}

// ListByClass returns the subjects of one class.
func (s *SubjectService) ListByClass(ctx context.Context, classID string) ([]models.SubjectDetail, error) {
	if _, err := s.classes.FindByID(ctx, classID); err != nil {
		return nil, notFoundOr(err, "class not found")
	}
	subjects, err := s.repo.ListByClass(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list class subjects")
	}
	return subjects, nil
}

// Create adds one subject to a class with no teacher assigned.
func (s *SubjectService) Create(ctx context.Context, req CreateSubjectRequest) (*models.Subject, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid subject payload")
	}
	if _, err := s.classes.FindByID(ctx, req.ClassID); err != nil {
		return nil, notFoundOr(err, "class not found")
	}
	subject := &models.Subject{
		ClassID: req.ClassID,
		Code:    req.Code,
		Name:    req.Name,
		Session: req.Session,
	}
	if err := s.repo.Create(ctx, subject); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create subject")
	}
	return subject, nil
}

// BulkCreate instantiates the selected master subjects in a class, all in
// one transaction. Unknown master IDs fail the whole request.
func (s *SubjectService) BulkCreate(ctx context.Context, req BulkCreateSubjectsRequest) ([]models.Subject, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid bulk subject payload")
	}
	class, err := s.classes.FindByID(ctx, req.ClassID)
	if err != nil {
		return nil, notFoundOr(err, "class not found")
	}

	masters, err := s.repo.ListMasterBySchool(ctx, class.SchoolID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load master subjects")
	}
	byID := make(map[string]models.MasterSubject, len(masters))
	for _, master := range masters {
		byID[master.ID] = master
	}

	subjects := make([]models.Subject, 0, len(req.MasterSubjectIDs))
	for _, masterID := range req.MasterSubjectIDs {
		master, ok := byID[masterID]
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("master subject %s not found for school", masterID))
		}
		subjects = append(subjects, models.Subject{
			ClassID: req.ClassID,
			Code:    master.Code,
			Name:    master.Name,
			Session: master.Session,
		})
	}

	if err := s.repo.BulkCreate(ctx, subjects); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create subjects")
	}
	return subjects, nil
}

// ListMaster returns a school's master subject templates.
func (s *SubjectService) ListMaster(ctx context.Context, schoolID string) ([]models.MasterSubject, error) {
	masters, err := s.repo.ListMasterBySchool(ctx, schoolID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list master subjects")
	}
	return masters, nil
}

// CreateMaster adds a master subject template.
func (s *SubjectService) CreateMaster(ctx context.Context, req CreateMasterSubjectRequest) (*models.MasterSubject, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid master subject payload")
	}
	master := &models.MasterSubject{
		SchoolID: req.SchoolID,
		Code:     req.Code,
		Name:     req.Name,
		Session:  req.Session,
	}
	if err := s.repo.CreateMaster(ctx, master); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create master subject")
	}
	return master, nil
}
