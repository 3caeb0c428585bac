package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arkanhadi/school-admin-api/internal/models"
)

func slotDetailRows() *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{"id", "class_id", "day", "period_number", "subject_id", "created_at", "updated_at", "subject_name", "class_name", "break_after_period"}).
		AddRow("slot-1", "class-1", "Monday", 1, "sub-1", now, now, "Mathematics", "10A", 4)
}

func TestTimetableRepositoryListByClass(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTimetableRepository(db)

	mock.ExpectQuery(`SELECT .+ FROM timetable_slots ts\s+JOIN subjects s ON s\.id = ts\.subject_id\s+JOIN classes c ON c\.id = ts\.class_id\s+LEFT JOIN timetable_settings st ON st\.class_id = ts\.class_id WHERE ts\.class_id = \$1`).
		WithArgs("class-1").
		WillReturnRows(slotDetailRows())

	slots, err := repo.ListByClass(context.Background(), "class-1")
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.Equal(t, "Mathematics", slots[0].SubjectName)
	assert.Equal(t, 4, slots[0].BreakAfterPeriod)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableRepositoryListByTeacherJoinsOnSubject(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTimetableRepository(db)

	mock.ExpectQuery(`WHERE s\.teacher_id = \$1`).
		WithArgs("tch-1").
		WillReturnRows(slotDetailRows())

	slots, err := repo.ListByTeacher(context.Background(), "tch-1")
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableRepositoryGetSettingMissingReturnsNil(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTimetableRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT class_id, break_after_period, updated_at FROM timetable_settings WHERE class_id = $1`)).
		WithArgs("class-1").
		WillReturnRows(sqlmock.NewRows([]string{"class_id", "break_after_period", "updated_at"}))

	setting, err := repo.GetSetting(context.Background(), "class-1")
	require.NoError(t, err)
	assert.Nil(t, setting)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableRepositoryReplaceForClass(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTimetableRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM timetable_slots WHERE class_id = $1`)).
		WithArgs("class-1").
		WillReturnResult(sqlmock.NewResult(0, 5))
	mock.ExpectExec(`INSERT INTO timetable_slots`).
		WithArgs(sqlmock.AnyArg(), "class-1", "Monday", 1, "sub-1", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`INSERT INTO timetable_settings`).
		WithArgs("class-1", 4, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	slots := []models.TimetableSlot{{Day: "Monday", PeriodNumber: 1, SubjectID: "sub-1"}}
	require.NoError(t, repo.ReplaceForClass(context.Background(), "class-1", slots, 4))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableRepositoryReplaceForClassEmptyClears(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTimetableRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM timetable_slots WHERE class_id = $1`)).
		WithArgs("class-1").
		WillReturnResult(sqlmock.NewResult(0, 5))
	mock.ExpectExec(`INSERT INTO timetable_settings`).
		WithArgs("class-1", 0, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.ReplaceForClass(context.Background(), "class-1", nil, 0))
	assert.NoError(t, mock.ExpectationsWereMet())
}
