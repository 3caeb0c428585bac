package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/arkanhadi/school-admin-api/internal/models"
)

// TimetableRepository provides persistence for timetable slots and the
// class-level timetable settings.
type TimetableRepository struct {
	db *sqlx.DB
}

// NewTimetableRepository creates a new timetable repository.
func NewTimetableRepository(db *sqlx.DB) *TimetableRepository {
	return &TimetableRepository{db: db}
}

const slotDetailColumns = `ts.id, ts.class_id, ts.day, ts.period_number, ts.subject_id, ts.created_at, ts.updated_at,
        s.name AS subject_name, c.name AS class_name,
        COALESCE(st.break_after_period, 0) AS break_after_period`

const slotDetailJoins = `FROM timetable_slots ts
JOIN subjects s ON s.id = ts.subject_id
JOIN classes c ON c.id = ts.class_id
LEFT JOIN timetable_settings st ON st.class_id = ts.class_id`

// ListByClass returns the slot rows for a class. Every row repeats the
// class-level break setting so the caller can recover it from any entry.
func (r *TimetableRepository) ListByClass(ctx context.Context, classID string) ([]models.TimetableSlotDetail, error) {
	query := fmt.Sprintf("SELECT %s %s WHERE ts.class_id = $1 ORDER BY ts.day ASC, ts.period_number ASC", slotDetailColumns, slotDetailJoins)
	var slots []models.TimetableSlotDetail
	if err := r.db.SelectContext(ctx, &slots, query, classID); err != nil {
		return nil, fmt.Errorf("list timetable by class: %w", err)
	}
	return slots, nil
}

// ListByTeacher returns the slot rows for every subject the teacher teaches,
// across classes. The slot source differs from ListByClass but the rows feed
// the same grid construction.
func (r *TimetableRepository) ListByTeacher(ctx context.Context, teacherID string) ([]models.TimetableSlotDetail, error) {
	query := fmt.Sprintf("SELECT %s %s WHERE s.teacher_id = $1 ORDER BY ts.day ASC, ts.period_number ASC", slotDetailColumns, slotDetailJoins)
	var slots []models.TimetableSlotDetail
	if err := r.db.SelectContext(ctx, &slots, query, teacherID); err != nil {
		return nil, fmt.Errorf("list timetable by teacher: %w", err)
	}
	return slots, nil
}

// GetSetting returns the class-level timetable settings, or nil when the
// class has none yet.
func (r *TimetableRepository) GetSetting(ctx context.Context, classID string) (*models.TimetableSetting, error) {
	const query = `SELECT class_id, break_after_period, updated_at FROM timetable_settings WHERE class_id = $1`
	var setting models.TimetableSetting
	if err := r.db.GetContext(ctx, &setting, query, classID); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get timetable setting: %w", err)
	}
	return &setting, nil
}

// ReplaceForClass atomically replaces the class's entire timetable: all
// existing slots are removed, the new slots inserted, and the break setting
// upserted. Save is full-replace; the client never submits incremental diffs.
func (r *TimetableRepository) ReplaceForClass(ctx context.Context, classID string, slots []models.TimetableSlot, breakAfterPeriod int) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace timetable: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM timetable_slots WHERE class_id = $1`, classID); err != nil {
		return fmt.Errorf("clear timetable slots: %w", err)
	}

	now := time.Now().UTC()
	for i := range slots {
		payload := slots[i]
		if payload.ID == "" {
			payload.ID = uuid.NewString()
		}
		payload.ClassID = classID
		payload.CreatedAt = now
		payload.UpdatedAt = now
		if _, err = tx.NamedExecContext(ctx, `INSERT INTO timetable_slots (id, class_id, day, period_number, subject_id, created_at, updated_at)
            VALUES (:id, :class_id, :day, :period_number, :subject_id, :created_at, :updated_at)`, &payload); err != nil {
			return fmt.Errorf("insert timetable slot: %w", err)
		}
		slots[i] = payload
	}

	if _, err = tx.ExecContext(ctx, `INSERT INTO timetable_settings (class_id, break_after_period, updated_at) VALUES ($1, $2, $3)
        ON CONFLICT (class_id) DO UPDATE SET break_after_period = EXCLUDED.break_after_period, updated_at = EXCLUDED.updated_at`,
		classID, breakAfterPeriod, now); err != nil {
		return fmt.Errorf("upsert timetable setting: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit replace timetable: %w", err)
	}
	return nil
}
