package service

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/room-allocation-api/internal/models"
	"github.com/noah-isme/room-allocation-api/internal/repository"
	appErrors "github.com/noah-isme/room-allocation-api/pkg/errors"
)

var (
	allocationRowColumns = []string{"room_number", "room_type", "professor_id", "discipline_name", "discipline_shift", "term_year", "term_half", "kind", "status", "day_of_week", "start_time", "created_at", "updated_at"}
	sessionRowColumns    = []string{"professor_id", "discipline_name", "discipline_shift", "term_year", "term_half", "day_of_week", "start_time", "load", "course", "course_semester"}
	bookingRowColumns    = []string{"room_number", "room_type", "professor_id", "discipline_name", "discipline_shift", "term_year", "term_half", "status", "day_of_week", "start_time", "load"}
)

func newSQLBackedAllocationService(t *testing.T) (*AllocationService, sqlmock.Sqlmock) {
	t.Helper()
	tx, mock := newTxProviderMock(t)
	rooms := repository.NewRoomRepository(tx.db)
	schedules := repository.NewTeachingScheduleRepository(tx.db)
	allocations := repository.NewAllocationRepository(tx.db)
	conflicts := NewConflictService(newTestTable(t), allocations, schedules)
	svc := NewAllocationService(tx, rooms, schedules, allocations, conflicts, nil, nil, AllocationPolicy{}, nil, nil)
	return svc, mock
}

func calculusAllocationKey(room int) models.AllocationKey {
	return models.AllocationKey{
		RoomKey: models.RoomKey{Number: room, Type: "sala"},
		ScheduleKey: models.ScheduleKey{
			ProfessorID: 7,
			Offering:    models.Offering{Name: "Calculus", Shift: models.ShiftMorning},
			Term:        testTerm,
		},
	}
}

func TestChangeRoomFailureAfterDeleteRollsBackEverything(t *testing.T) {
	svc, mock := newSQLBackedAllocationService(t)
	key := calculusAllocationKey(101)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM teaching_schedules ts")).
		WithArgs(int64(7), "Calculus", "morning", 2024, 1).
		WillReturnRows(sqlmock.NewRows(sessionRowColumns).AddRow(7, "Calculus", "morning", 2024, 1, 2, "08:00", 2, "engineering", 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT room_number, room_type, status FROM rooms WHERE room_number = $1 AND room_type = $2 FOR UPDATE")).
		WithArgs(101, "sala").
		WillReturnRows(sqlmock.NewRows([]string{"room_number", "room_type", "status"}).AddRow(101, "sala", "occupied"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT room_number, room_type, status FROM rooms WHERE room_number = $1 AND room_type = $2 FOR UPDATE")).
		WithArgs(303, "sala").
		WillReturnRows(sqlmock.NewRows([]string{"room_number", "room_type", "status"}).AddRow(303, "sala", "free"))
	mock.ExpectQuery(regexp.QuoteMeta("FROM allocations WHERE room_number = $1 AND room_type = $2 AND professor_id = $3")).
		WithArgs(101, "sala", int64(7), "Calculus", "morning", 2024, 1).
		WillReturnRows(sqlmock.NewRows(allocationRowColumns).
			AddRow(101, "sala", 7, "Calculus", "morning", 2024, 1, "recurring", "confirmed", 2, "08:00", time.Now(), time.Now()))
	mock.ExpectQuery(regexp.QuoteMeta("AND a.status IN ('pending', 'confirmed')")).
		WithArgs(303, "sala", 2024, 1, 2).
		WillReturnRows(sqlmock.NewRows(bookingRowColumns))
	mock.ExpectQuery(regexp.QuoteMeta("FROM allocations WHERE room_number = $1")).
		WithArgs(303, "sala", int64(7), "Calculus", "morning", 2024, 1).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM allocations")).
		WithArgs(101, "sala", int64(7), "Calculus", "morning", 2024, 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE rooms SET status = $1")).
		WithArgs(models.RoomStatusFree, 101, "sala").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO allocations")).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	_, err := svc.ChangeRoom(context.Background(), key, models.RoomKey{Number: 303, Type: "sala"})
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrInternal)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateByAdminRollsBackWhenRoomUpdateFails(t *testing.T) {
	svc, mock := newSQLBackedAllocationService(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("AND ts.term_half = $5 FOR KEY SHARE OF ts")).
		WillReturnRows(sqlmock.NewRows(sessionRowColumns).AddRow(7, "Calculus", "morning", 2024, 1, 2, "08:00", 2, "engineering", 1))
	mock.ExpectQuery(regexp.QuoteMeta("FROM rooms WHERE room_number = $1 AND room_type = $2 FOR UPDATE")).
		WithArgs(101, "sala").
		WillReturnRows(sqlmock.NewRows([]string{"room_number", "room_type", "status"}).AddRow(101, "sala", "free"))
	mock.ExpectQuery(regexp.QuoteMeta("FROM allocations WHERE room_number = $1")).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(regexp.QuoteMeta("AND a.status IN ('pending', 'confirmed')")).
		WillReturnRows(sqlmock.NewRows(bookingRowColumns))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO allocations")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE rooms SET status = $1")).
		WithArgs(models.RoomStatusOccupied, 101, "sala").
		WillReturnError(errors.New("deadlock detected"))
	mock.ExpectRollback()

	req := createRequest(models.RoomKey{Number: 101, Type: "sala"}, calculusAllocationKey(101).ScheduleKey)
	_, err := svc.Create(context.Background(), req, models.RoleAdmin)
	assert.ErrorIs(t, err, appErrors.ErrInternal)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateSecondOverlappingBookingAgainstStore(t *testing.T) {
	svc, mock := newSQLBackedAllocationService(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM teaching_schedules ts")).
		WillReturnRows(sqlmock.NewRows(sessionRowColumns).AddRow(9, "Physics", "morning", 2024, 1, 2, "08:50", 1, "engineering", 3))
	mock.ExpectQuery(regexp.QuoteMeta("FROM rooms WHERE")).
		WillReturnRows(sqlmock.NewRows([]string{"room_number", "room_type", "status"}).AddRow(101, "sala", "free"))
	mock.ExpectQuery(regexp.QuoteMeta("FROM allocations WHERE room_number = $1")).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(regexp.QuoteMeta("AND a.status IN ('pending', 'confirmed')")).
		WithArgs(101, "sala", 2024, 1, 2).
		WillReturnRows(sqlmock.NewRows(bookingRowColumns).AddRow(101, "sala", 7, "Calculus", "morning", 2024, 1, "pending", 2, "08:00", 2))
	mock.ExpectRollback()

	req := CreateAllocationRequest{
		RoomNumber: 101, RoomType: "sala", ProfessorID: 9,
		DisciplineName: "Physics", DisciplineShift: "morning", TermYear: 2024, TermHalf: 1,
	}
	_, err := svc.Create(context.Background(), req, models.RoleProfessor)
	assert.ErrorIs(t, err, appErrors.ErrRoomConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetStatusLocksRoomRowBeforeAllocationRow(t *testing.T) {
	svc, mock := newSQLBackedAllocationService(t)
	key := calculusAllocationKey(101)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM rooms WHERE room_number = $1 AND room_type = $2 FOR UPDATE")).
		WithArgs(101, "sala").
		WillReturnRows(sqlmock.NewRows([]string{"room_number", "room_type", "status"}).AddRow(101, "sala", "occupied"))
	mock.ExpectQuery(regexp.QuoteMeta("FROM allocations WHERE room_number = $1 AND room_type = $2 AND professor_id = $3")).
		WithArgs(101, "sala", int64(7), "Calculus", "morning", 2024, 1).
		WillReturnRows(sqlmock.NewRows(allocationRowColumns).
			AddRow(101, "sala", 7, "Calculus", "morning", 2024, 1, "recurring", "confirmed", 2, "08:00", time.Now(), time.Now()))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE allocations SET status = $8")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE rooms SET status = $1")).
		WithArgs(models.RoomStatusFree, 101, "sala").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, svc.SetStatus(context.Background(), key, models.AllocationCancelled))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeadlockAbortSurfacesAsRetryableConflict(t *testing.T) {
	svc, mock := newSQLBackedAllocationService(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM teaching_schedules ts")).
		WillReturnRows(sqlmock.NewRows(sessionRowColumns).AddRow(7, "Calculus", "morning", 2024, 1, 2, "08:00", 2, "engineering", 1))
	mock.ExpectQuery(regexp.QuoteMeta("FROM rooms WHERE room_number = $1 AND room_type = $2 FOR UPDATE")).
		WithArgs(101, "sala").
		WillReturnError(&pq.Error{Code: "40P01", Message: "deadlock detected"})
	mock.ExpectRollback()

	req := createRequest(models.RoomKey{Number: 101, Type: "sala"}, calculusAllocationKey(101).ScheduleKey)
	_, err := svc.Create(context.Background(), req, models.RoleAdmin)
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrConcurrentUpdate)
	assert.Equal(t, 409, appErrors.FromError(err).Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}
