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

// ClassRepository provides persistence for classes and the class-teacher role.
type ClassRepository struct {
	db *sqlx.DB
}

// NewClassRepository creates a new class repository.
func NewClassRepository(db *sqlx.DB) *ClassRepository {
	return &ClassRepository{db: db}
}

// List returns classes with resolved class-teacher names and relation counts.
func (r *ClassRepository) List(ctx context.Context, filter models.ClassFilter) ([]models.ClassDetail, int, error) {
	base := `FROM classes c
LEFT JOIN teachers t ON t.id = c.class_teacher_id`
	var conditions []string
	var args []interface{}

	if filter.SchoolID != "" {
		conditions = append(conditions, fmt.Sprintf("c.school_id = $%d", len(args)+1))
		args = append(args, filter.SchoolID)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("c.name ILIKE $%d", len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"name":       "c.name",
		"created_at": "c.created_at",
	}
	orderBy := allowedSorts[filter.SortBy]
	if orderBy == "" {
		orderBy = "c.name"
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

	query := fmt.Sprintf(`SELECT c.id, c.school_id, c.name, c.class_teacher_id, c.created_at, c.updated_at,
        t.full_name AS class_teacher_name,
        (SELECT COUNT(*) FROM students s WHERE s.class_id = c.id) AS student_count,
        (SELECT COUNT(*) FROM subjects sub WHERE sub.class_id = c.id) AS subject_count
        %s ORDER BY %s %s LIMIT %d OFFSET %d`, base+clause, orderBy, order, size, offset)

	var classes []models.ClassDetail
	if err := r.db.SelectContext(ctx, &classes, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list classes: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count classes: %w", err)
	}
	return classes, total, nil
}

// FindByID loads a class by id.
func (r *ClassRepository) FindByID(ctx context.Context, id string) (*models.Class, error) {
	const query = `SELECT id, school_id, name, class_teacher_id, created_at, updated_at FROM classes WHERE id = $1`
	var class models.Class
	if err := r.db.GetContext(ctx, &class, query, id); err != nil {
		return nil, err
	}
	return &class, nil
}

// ListByClassTeacher returns classes for which the teacher holds the
// class-teacher role.
func (r *ClassRepository) ListByClassTeacher(ctx context.Context, teacherID string) ([]models.Class, error) {
	const query = `SELECT id, school_id, name, class_teacher_id, created_at, updated_at FROM classes WHERE class_teacher_id = $1 ORDER BY name ASC`
	var classes []models.Class
	if err := r.db.SelectContext(ctx, &classes, query, teacherID); err != nil {
		return nil, fmt.Errorf("list classes by class teacher: %w", err)
	}
	return classes, nil
}

// Create stores a new class record.
func (r *ClassRepository) Create(ctx context.Context, class *models.Class) error {
	if class.ID == "" {
		class.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	class.CreatedAt = now
	class.UpdatedAt = now
	const query = `INSERT INTO classes (id, school_id, name, class_teacher_id, created_at, updated_at) VALUES (:id, :school_id, :name, :class_teacher_id, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, class); err != nil {
		return fmt.Errorf("create class: %w", err)
	}
	return nil
}

// Update modifies the class name.
func (r *ClassRepository) Update(ctx context.Context, class *models.Class) error {
	class.UpdatedAt = time.Now().UTC()
	const query = `UPDATE classes SET name = :name, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, class); err != nil {
		return fmt.Errorf("update class: %w", err)
	}
	return nil
}

// SetClassTeacher sets the distinguished class-teacher role for a class.
func (r *ClassRepository) SetClassTeacher(ctx context.Context, classID, teacherID string) error {
	const query = `UPDATE classes SET class_teacher_id = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, classID, teacherID, time.Now().UTC()); err != nil {
		return fmt.Errorf("set class teacher: %w", err)
	}
	return nil
}

// ClearClassTeacher removes the class-teacher role when held by the given
// teacher. Clearing a role the teacher does not hold is a no-op.
func (r *ClassRepository) ClearClassTeacher(ctx context.Context, classID, teacherID string) error {
	const query = `UPDATE classes SET class_teacher_id = NULL, updated_at = $3 WHERE id = $1 AND class_teacher_id = $2`
	if _, err := r.db.ExecContext(ctx, query, classID, teacherID, time.Now().UTC()); err != nil {
		return fmt.Errorf("clear class teacher: %w", err)
	}
	return nil
}

// Delete removes a class and cascades within one transaction: its subjects and
// timetable are deleted, its students return to the unassigned pool, and
// teachers lose the class from their teach-class sets.
func (r *ClassRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete class: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	steps := []struct {
		label string
		query string
	}{
		{"delete timetable slots", `DELETE FROM timetable_slots WHERE class_id = $1`},
		{"delete timetable settings", `DELETE FROM timetable_settings WHERE class_id = $1`},
		{"delete subjects", `DELETE FROM subjects WHERE class_id = $1`},
		{"unassign students", `UPDATE students SET class_id = NULL WHERE class_id = $1`},
		{"delete teacher classes", `DELETE FROM teacher_classes WHERE class_id = $1`},
		{"delete class", `DELETE FROM classes WHERE id = $1`},
	}
	for _, step := range steps {
		if _, err = tx.ExecContext(ctx, step.query, id); err != nil {
			return fmt.Errorf("%s: %w", step.label, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit delete class: %w", err)
	}
	return nil
}
