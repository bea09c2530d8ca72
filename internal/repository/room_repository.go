package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/room-allocation-api/internal/models"
)

// RoomRepository reads rooms and maintains their cached occupancy flag.
type RoomRepository struct {
	db *sqlx.DB
}

// NewRoomRepository creates a room repository.
func NewRoomRepository(db *sqlx.DB) *RoomRepository {
	return &RoomRepository{db: db}
}

func (r *RoomRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// FindByKey loads a room. With forUpdate the row stays locked until the transaction ends.
func (r *RoomRepository) FindByKey(ctx context.Context, exec sqlx.ExtContext, key models.RoomKey, forUpdate bool) (*models.Room, error) {
	query := `SELECT room_number, room_type, status FROM rooms WHERE room_number = $1 AND room_type = $2`
	if forUpdate {
		query += " FOR UPDATE"
	}
	var room models.Room
	if err := sqlx.GetContext(ctx, r.exec(exec), &room, query, key.Number, key.Type); err != nil {
		return nil, err
	}
	return &room, nil
}

// UpdateStatus sets the occupancy flag of a room.
func (r *RoomRepository) UpdateStatus(ctx context.Context, exec sqlx.ExtContext, key models.RoomKey, status models.RoomStatus) error {
	const query = `UPDATE rooms SET status = $1 WHERE room_number = $2 AND room_type = $3`
	result, err := r.exec(exec).ExecContext(ctx, query, status, key.Number, key.Type)
	if err != nil {
		return fmt.Errorf("update room status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("room status rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
