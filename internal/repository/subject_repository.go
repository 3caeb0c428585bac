package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/arkanhadi/school-admin-api/internal/models"
)

// SubjectRepository provides persistence for subjects and the per-school
// master subject list.
type SubjectRepository struct {
	db *sqlx.DB
}

// NewSubjectRepository creates a new subject repository.
func NewSubjectRepository(db *sqlx.DB) *SubjectRepository {
	return &SubjectRepository{db: db}
}

const subjectDetailColumns = `s.id, s.class_id, s.code, s.name, s.session, s.teacher_id, s.created_at, s.updated_at,
        c.name AS class_name, t.full_name AS teacher_name`

const subjectDetailJoins = `FROM subjects s
LEFT JOIN classes c ON c.id = s.class_id
LEFT JOIN teachers t ON t.id = s.teacher_id`

// List returns subjects filtered by the provided criteria.
func (r *SubjectRepository) List(ctx context.Context, filter models.SubjectFilter) ([]models.SubjectDetail, int, error) {
	var conditions []string
	var args []interface{}

	if filter.ClassID != "" {
		conditions = append(conditions, fmt.Sprintf("s.class_id = $%d", len(args)+1))
		args = append(args, filter.ClassID)
	}
	if filter.TeacherID != "" {
		conditions = append(conditions, fmt.Sprintf("s.teacher_id = $%d", len(args)+1))
		args = append(args, filter.TeacherID)
	}
	if filter.Session != "" {
		conditions = append(conditions, fmt.Sprintf("s.session = $%d", len(args)+1))
		args = append(args, filter.Session)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(s.name ILIKE $%d OR s.code ILIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"name":       "s.name",
		"code":       "s.code",
		"created_at": "s.created_at",
	}
	orderBy := allowedSorts[filter.SortBy]
	if orderBy == "" {
		orderBy = "s.name"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d",
		subjectDetailColumns, subjectDetailJoins+clause, orderBy, order, size, offset)

	var subjects []models.SubjectDetail
	if err := r.db.SelectContext(ctx, &subjects, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list subjects: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", subjectDetailJoins+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count subjects: %w", err)
	}
	return subjects, total, nil
}

// FindByID loads a subject by id.
func (r *SubjectRepository) FindByID(ctx context.Context, id string) (*models.Subject, error) {
	const query = `SELECT id, class_id, code, name, session, teacher_id, created_at, updated_at FROM subjects WHERE id = $1`
	var subject models.Subject
	if err := r.db.GetContext(ctx, &subject, query, id); err != nil {
		return nil, err
	}
	return &subject, nil
}

// ListByClass returns the subjects owned by a class.
func (r *SubjectRepository) ListByClass(ctx context.Context, classID string) ([]models.SubjectDetail, error) {
	query := fmt.Sprintf("SELECT %s %s WHERE s.class_id = $1 ORDER BY s.name ASC", subjectDetailColumns, subjectDetailJoins)
	var subjects []models.SubjectDetail
	if err := r.db.SelectContext(ctx, &subjects, query, classID); err != nil {
		return nil, fmt.Errorf("list subjects by class: %w", err)
	}
	return subjects, nil
}

// ListByTeacher returns the subjects currently taught by a teacher.
func (r *SubjectRepository) ListByTeacher(ctx context.Context, teacherID string) ([]models.SubjectDetail, error) {
	query := fmt.Sprintf("SELECT %s %s WHERE s.teacher_id = $1 ORDER BY s.name ASC", subjectDetailColumns, subjectDetailJoins)
	var subjects []models.SubjectDetail
	if err := r.db.SelectContext(ctx, &subjects, query, teacherID); err != nil {
		return nil, fmt.Errorf("list subjects by teacher: %w", err)
	}
	return subjects, nil
}

// Create stores a new subject record.
func (r *SubjectRepository) Create(ctx context.Context, subject *models.Subject) error {
	if subject.ID == "" {
		subject.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	subject.CreatedAt = now
	subject.UpdatedAt = now
	const query = `INSERT INTO subjects (id, class_id, code, name, session, teacher_id, created_at, updated_at)
        VALUES (:id, :class_id, :code, :name, :session, :teacher_id, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, subject); err != nil {
		return fmt.Errorf("create subject: %w", err)
	}
	return nil
}

// BulkCreate inserts many subjects within a transaction.
func (r *SubjectRepository) BulkCreate(ctx context.Context, subjects []models.Subject) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin bulk create subjects: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	for i := range subjects {
		payload := subjects[i]
		if payload.ID == "" {
			payload.ID = uuid.NewString()
		}
		payload.CreatedAt = now
		payload.UpdatedAt = now
		if _, err = tx.NamedExecContext(ctx, `INSERT INTO subjects (id, class_id, code, name, session, teacher_id, created_at, updated_at)
            VALUES (:id, :class_id, :code, :name, :session, :teacher_id, :created_at, :updated_at)`, &payload); err != nil {
			return fmt.Errorf("bulk insert subject: %w", err)
		}
		subjects[i] = payload
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit bulk create subjects: %w", err)
	}
	return nil
}

// UpdateTeacher sets or clears the teacher reference on a subject.
func (r *SubjectRepository) UpdateTeacher(ctx context.Context, subjectID string, teacherID *string) error {
	const query = `UPDATE subjects SET teacher_id = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, subjectID, teacherID, time.Now().UTC()); err != nil {
		return fmt.Errorf("update subject teacher: %w", err)
	}
	return nil
}

// AssignTeacherWithClass sets the subject's teacher and inserts the subject's
// class into the teacher's teach-class set in one transaction, so the
// subject-level and class-level relations never diverge.
func (r *SubjectRepository) AssignTeacherWithClass(ctx context.Context, subjectID, teacherID, classID string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin assign subject teacher: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	if _, err = tx.ExecContext(ctx, `UPDATE subjects SET teacher_id = $2, updated_at = $3 WHERE id = $1`, subjectID, teacherID, now); err != nil {
		return fmt.Errorf("assign subject teacher: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `INSERT INTO teacher_classes (teacher_id, class_id, created_at) VALUES ($1, $2, $3) ON CONFLICT (teacher_id, class_id) DO NOTHING`, teacherID, classID, now); err != nil {
		return fmt.Errorf("add teach class: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit assign subject teacher: %w", err)
	}
	return nil
}

// ClearTeacherByClass clears the teacher reference on every subject the
// teacher teaches within a class, returning the number of subjects affected.
func (r *SubjectRepository) ClearTeacherByClass(ctx context.Context, teacherID, classID string) (int, error) {
	const query = `UPDATE subjects SET teacher_id = NULL, updated_at = $3 WHERE teacher_id = $1 AND class_id = $2`
	res, err := r.db.ExecContext(ctx, query, teacherID, classID, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("clear subject teachers by class: %w", err)
	}
	affected, _ := res.RowsAffected()
	return int(affected), nil
}

// Delete removes a subject and its timetable slots.
func (r *SubjectRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete subject: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM timetable_slots WHERE subject_id = $1`, id); err != nil {
		return fmt.Errorf("delete subject slots: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM subjects WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete subject: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit delete subject: %w", err)
	}
	return nil
}

// DeleteByClass removes every subject of a class, returning the count removed.
func (r *SubjectRepository) DeleteByClass(ctx context.Context, classID string) (int, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin delete subjects: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM timetable_slots WHERE class_id = $1`, classID); err != nil {
		return 0, fmt.Errorf("delete class slots: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM subjects WHERE class_id = $1`, classID)
	if err != nil {
		return 0, fmt.Errorf("delete subjects by class: %w", err)
	}
	affected, _ := res.RowsAffected()

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit delete subjects: %w", err)
	}
	return int(affected), nil
}

// ListMasterBySchool returns the school's reusable subject templates.
func (r *SubjectRepository) ListMasterBySchool(ctx context.Context, schoolID string) ([]models.MasterSubject, error) {
	const query = `SELECT id, school_id, code, name, session, created_at FROM master_subjects WHERE school_id = $1 ORDER BY name ASC`
	var masters []models.MasterSubject
	if err := r.db.SelectContext(ctx, &masters, query, schoolID); err != nil {
		return nil, fmt.Errorf("list master subjects: %w", err)
	}
	return masters, nil
}

// CreateMaster stores a new subject template.
func (r *SubjectRepository) CreateMaster(ctx context.Context, master *models.MasterSubject) error {
	if master.ID == "" {
		master.ID = uuid.NewString()
	}
	master.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO master_subjects (id, school_id, code, name, session, created_at)
        VALUES (:id, :school_id, :code, :name, :session, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, master); err != nil {
		return fmt.Errorf("create master subject: %w", err)
	}
	return nil
}
