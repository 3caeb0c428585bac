package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/arkanhadi/school-admin-api/internal/models"
)

// TeacherRepository provides persistence for teachers and their teach-class
// sets.
type TeacherRepository struct {
	db *sqlx.DB
}

// NewTeacherRepository creates a new teacher repository.
func NewTeacherRepository(db *sqlx.DB) *TeacherRepository {
	return &TeacherRepository{db: db}
}

// List returns teachers filtered by the provided criteria.
func (r *TeacherRepository) List(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, int, error) {
	base := "FROM teachers WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.SchoolID != "" {
		conditions = append(conditions, fmt.Sprintf("school_id = $%d", len(args)+1))
		args = append(args, filter.SchoolID)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(full_name ILIKE $%d OR email ILIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}
	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]bool{
		"full_name":  true,
		"email":      true,
		"created_at": true,
	}
	sortBy := filter.SortBy
	if !allowedSorts[sortBy] {
		sortBy = "full_name"
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

	query := fmt.Sprintf("SELECT id, school_id, full_name, email, phone, active, created_at, updated_at %s ORDER BY %s %s LIMIT %d OFFSET %d", base, sortBy, order, size, offset)
	var teachers []models.Teacher
	if err := r.db.SelectContext(ctx, &teachers, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list teachers: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count teachers: %w", err)
	}
	return teachers, total, nil
}

// FindByID loads a teacher by id.
func (r *TeacherRepository) FindByID(ctx context.Context, id string) (*models.Teacher, error) {
	const query = `SELECT id, school_id, full_name, email, phone, active, created_at, updated_at FROM teachers WHERE id = $1`
	var teacher models.Teacher
	if err := r.db.GetContext(ctx, &teacher, query, id); err != nil {
		return nil, err
	}
	return &teacher, nil
}

// Create stores a new teacher record.
func (r *TeacherRepository) Create(ctx context.Context, teacher *models.Teacher) error {
	if teacher.ID == "" {
		teacher.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	teacher.CreatedAt = now
	teacher.UpdatedAt = now
	const query = `INSERT INTO teachers (id, school_id, full_name, email, phone, active, created_at, updated_at)
        VALUES (:id, :school_id, :full_name, :email, :phone, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, teacher); err != nil {
		return fmt.Errorf("create teacher: %w", err)
	}
	return nil
}

// Update modifies a teacher record.
func (r *TeacherRepository) Update(ctx context.Context, teacher *models.Teacher) error {
	teacher.UpdatedAt = time.Now().UTC()
	const query = `UPDATE teachers SET full_name = :full_name, email = :email, phone = :phone, active = :active, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, teacher); err != nil {
		return fmt.Errorf("update teacher: %w", err)
	}
	return nil
}

// Delete removes a teacher and strips it from every association: subjects it
// teaches, teach-class rows, and any class-teacher role it holds.
func (r *TeacherRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete teacher: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	if _, err = tx.ExecContext(ctx, `UPDATE subjects SET teacher_id = NULL, updated_at = $2 WHERE teacher_id = $1`, id, now); err != nil {
		return fmt.Errorf("clear subject teachers: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM teacher_classes WHERE teacher_id = $1`, id); err != nil {
		return fmt.Errorf("delete teach classes: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `UPDATE classes SET class_teacher_id = NULL, updated_at = $2 WHERE class_teacher_id = $1`, id, now); err != nil {
		return fmt.Errorf("clear class teacher roles: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM teachers WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete teacher: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit delete teacher: %w", err)
	}
	return nil
}

// AddClass inserts a class into the teacher's teach-class set. Adding a class
// already present is a no-op.
func (r *TeacherRepository) AddClass(ctx context.Context, teacherID, classID string) error {
	const query = `INSERT INTO teacher_classes (teacher_id, class_id, created_at) VALUES ($1, $2, $3) ON CONFLICT (teacher_id, class_id) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, query, teacherID, classID, time.Now().UTC()); err != nil {
		return fmt.Errorf("add teach class: %w", err)
	}
	return nil
}

// RemoveClass removes a class from the teacher's teach-class set.
func (r *TeacherRepository) RemoveClass(ctx context.Context, teacherID, classID string) error {
	const query = `DELETE FROM teacher_classes WHERE teacher_id = $1 AND class_id = $2`
	if _, err := r.db.ExecContext(ctx, query, teacherID, classID); err != nil {
		return fmt.Errorf("remove teach class: %w", err)
	}
	return nil
}

// ListClasses returns the teacher's teach-class set with class names resolved.
func (r *TeacherRepository) ListClasses(ctx context.Context, teacherID string) ([]models.TeacherClass, error) {
	const query = `SELECT tc.teacher_id, tc.class_id, c.name AS class_name, tc.created_at
        FROM teacher_classes tc
        JOIN classes c ON c.id = tc.class_id
        WHERE tc.teacher_id = $1
        ORDER BY c.name ASC`
	var classes []models.TeacherClass
	if err := r.db.SelectContext(ctx, &classes, query, teacherID); err != nil {
		return nil, fmt.Errorf("list teach classes: %w", err)
	}
	return classes, nil
}

// TeachesClass reports whether the class is in the teacher's teach-class set.
func (r *TeacherRepository) TeachesClass(ctx context.Context, teacherID, classID string) (bool, error) {
	const query = `SELECT 1 FROM teacher_classes WHERE teacher_id = $1 AND class_id = $2 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, teacherID, classID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check teach class: %w", err)
	}
	return true, nil
}
