package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/room-allocation-api/internal/models"
)

var sessionColumns = []string{"professor_id", "discipline_name", "discipline_shift", "term_year", "term_half", "day_of_week", "start_time", "load", "course", "course_semester"}

func testScheduleKey() models.ScheduleKey {
	return models.ScheduleKey{
		ProfessorID: 7,
		Offering:    models.Offering{Name: "Calculus", Shift: "morning"},
		Term:        models.Term{Year: 2024, Half: 1},
	}
}

func TestTeachingScheduleRepositoryFindSession(t *testing.T) {
	db, mock, cleanup := newSQLMock(t)
	defer cleanup()
	repo := NewTeachingScheduleRepository(db)

	rows := sqlmock.NewRows(sessionColumns).AddRow(7, "Calculus", "morning", 2024, 1, 2, "08:00", 2, "engineering", 1)
	mock.ExpectQuery(regexp.QuoteMeta("JOIN disciplines d ON d.name = ts.discipline_name AND d.shift = ts.discipline_shift WHERE ts.professor_id = $1")).
		WithArgs(int64(7), "Calculus", "morning", 2024, 1).
		WillReturnRows(rows)

	session, err := repo.FindSession(context.Background(), nil, testScheduleKey(), false)
	require.NoError(t, err)
	assert.Equal(t, 2, session.DayOfWeek)
	assert.Equal(t, "08:00", session.StartTime)
	assert.Equal(t, 2, session.Load)
	assert.Equal(t, testScheduleKey(), session.ScheduleKey)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTeachingScheduleRepositoryFindSessionForKeyShare(t *testing.T) {
	db, mock, cleanup := newSQLMock(t)
	defer cleanup()
	repo := NewTeachingScheduleRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("AND ts.term_half = $5 FOR KEY SHARE OF ts")).
		WithArgs(int64(7), "Calculus", "morning", 2024, 1).
		WillReturnRows(sqlmock.NewRows(sessionColumns).AddRow(7, "Calculus", "morning", 2024, 1, 2, "08:00", 2, "engineering", 1))

	_, err := repo.FindSession(context.Background(), nil, testScheduleKey(), true)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTeachingScheduleRepositoryLockProfessor(t *testing.T) {
	db, mock, cleanup := newSQLMock(t)
	defer cleanup()
	repo := NewTeachingScheduleRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM professors WHERE id = $1 FOR NO KEY UPDATE")).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM professors WHERE id = $1 FOR NO KEY UPDATE")).
		WithArgs(int64(8)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	require.NoError(t, repo.LockProfessor(context.Background(), nil, 7))
	assert.ErrorIs(t, repo.LockProfessor(context.Background(), nil, 8), sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTeachingScheduleRepositoryLockCohort(t *testing.T) {
	db, mock, cleanup := newSQLMock(t)
	defer cleanup()
	repo := NewTeachingScheduleRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock(hashtext($1), $2)")).
		WithArgs("engineering", 1).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.LockCohort(context.Background(), nil, "engineering", 1))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTeachingScheduleRepositoryListByCohortDay(t *testing.T) {
	db, mock, cleanup := newSQLMock(t)
	defer cleanup()
	repo := NewTeachingScheduleRepository(db)

	rows := sqlmock.NewRows(sessionColumns).
		AddRow(7, "Calculus", "morning", 2024, 1, 2, "08:00", 2, "engineering", 1).
		AddRow(9, "Physics", "morning", 2024, 1, 2, "10:30", 1, "engineering", 1)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE d.course = $1 AND d.course_semester = $2 AND ts.term_year = $3 AND ts.term_half = $4 AND ts.day_of_week = $5")).
		WithArgs("engineering", 1, 2024, 1, 2).
		WillReturnRows(rows)

	sessions, err := repo.ListByCohortDay(context.Background(), nil, "engineering", 1, models.Term{Year: 2024, Half: 1}, 2)
	require.NoError(t, err)
	assert.Len(t, sessions, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTeachingScheduleRepositoryInsertIgnoreDuplicate(t *testing.T) {
	db, mock, cleanup := newSQLMock(t)
	defer cleanup()
	repo := NewTeachingScheduleRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO teaching_schedules")).
		WithArgs(int64(7), "Calculus", "morning", 2025, 1, 2, "08:00", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (professor_id, discipline_name, discipline_shift, term_year, term_half) DO NOTHING")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	schedule := models.TeachingSchedule{ScheduleKey: testScheduleKey(), DayOfWeek: 2, StartTime: "08:00"}
	schedule.Term = models.Term{Year: 2025, Half: 1}

	inserted, err := repo.InsertIgnoreDuplicate(context.Background(), nil, &schedule)
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = repo.InsertIgnoreDuplicate(context.Background(), nil, &schedule)
	require.NoError(t, err)
	assert.False(t, inserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTeachingScheduleRepositoryListFilters(t *testing.T) {
	db, mock, cleanup := newSQLMock(t)
	defer cleanup()
	repo := NewTeachingScheduleRepository(db)

	professor := int64(7)
	year, half := 2024, 1
	course := "engineering"
	rows := sqlmock.NewRows([]string{"professor_id", "discipline_name", "discipline_shift", "term_year", "term_half", "day_of_week", "start_time", "created_at", "updated_at"}).
		AddRow(7, "Calculus", "morning", 2024, 1, 2, "08:00", time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("WHERE ts.professor_id = $1 AND ts.term_year = $2 AND ts.term_half = $3 AND d.course = $4 ORDER BY")).
		WithArgs(professor, year, half, course).
		WillReturnRows(rows)

	schedules, err := repo.List(context.Background(), models.TeachingScheduleFilter{
		ProfessorID: &professor,
		TermYear:    &year,
		TermHalf:    &half,
		Course:      &course,
	})
	require.NoError(t, err)
	require.Len(t, schedules, 1)
	assert.Equal(t, "Calculus", schedules[0].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTeachingScheduleRepositoryUpdateSlotMissing(t *testing.T) {
	db, mock, cleanup := newSQLMock(t)
	defer cleanup()
	repo := NewTeachingScheduleRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE teaching_schedules SET day_of_week = $6, start_time = $7, updated_at = $8 WHERE professor_id = $1")).
		WithArgs(int64(7), "Calculus", "morning", 2024, 1, 3, "10:30", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateSlot(context.Background(), nil, testScheduleKey(), 3, "10:30")
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
