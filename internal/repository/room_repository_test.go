package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/room-allocation-api/internal/models"
)

func newSQLMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestRoomRepositoryFindByKeyForUpdate(t *testing.T) {
	db, mock, cleanup := newSQLMock(t)
	defer cleanup()
	repo := NewRoomRepository(db)

	rows := sqlmock.NewRows([]string{"room_number", "room_type", "status"}).AddRow(101, "sala", "free")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT room_number, room_type, status FROM rooms WHERE room_number = $1 AND room_type = $2 FOR UPDATE")).
		WithArgs(101, "sala").
		WillReturnRows(rows)

	room, err := repo.FindByKey(context.Background(), nil, models.RoomKey{Number: 101, Type: "sala"}, true)
	require.NoError(t, err)
	assert.Equal(t, models.RoomStatusFree, room.Status)
	assert.False(t, room.Occupied())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRoomRepositoryFindByKeyMissing(t *testing.T) {
	db, mock, cleanup := newSQLMock(t)
	defer cleanup()
	repo := NewRoomRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM rooms WHERE room_number = $1 AND room_type = $2")).
		WithArgs(303, "lab").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByKey(context.Background(), nil, models.RoomKey{Number: 303, Type: "lab"}, false)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRoomRepositoryUpdateStatus(t *testing.T) {
	db, mock, cleanup := newSQLMock(t)
	defer cleanup()
	repo := NewRoomRepository(db)
	key := models.RoomKey{Number: 101, Type: "sala"}

	mock.ExpectExec(regexp.QuoteMeta("UPDATE rooms SET status = $1 WHERE room_number = $2 AND room_type = $3")).
		WithArgs(models.RoomStatusOccupied, 101, "sala").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE rooms SET status = $1")).
		WithArgs(models.RoomStatusFree, 101, "sala").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.UpdateStatus(context.Background(), nil, key, models.RoomStatusOccupied))
	assert.ErrorIs(t, repo.UpdateStatus(context.Background(), nil, key, models.RoomStatusFree), sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDisciplineRepositoryFindByKey(t *testing.T) {
	db, mock, cleanup := newSQLMock(t)
	defer cleanup()
	repo := NewDisciplineRepository(db)

	rows := sqlmock.NewRows([]string{"name", "shift", "load", "course", "course_semester"}).
		AddRow("Calculus", "morning", 2, "engineering", 1)
	mock.ExpectQuery(regexp.QuoteMeta("FROM disciplines WHERE name = $1 AND shift = $2")).
		WithArgs("Calculus", "morning").
		WillReturnRows(rows)

	discipline, err := repo.FindByKey(context.Background(), nil, models.Offering{Name: "Calculus", Shift: "morning"})
	require.NoError(t, err)
	assert.Equal(t, 2, discipline.Load)
	assert.Equal(t, models.Offering{Name: "Calculus", Shift: "morning"}, discipline.Offering())
	assert.NoError(t, mock.ExpectationsWereMet())
}
