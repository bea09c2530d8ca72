package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/room-allocation-api/internal/models"
)

const allocationColumns = `room_number, room_type, professor_id, discipline_name, discipline_shift, term_year, term_half, kind, status, day_of_week, start_time, created_at, updated_at`

const allocationKeyClause = `room_number = $1 AND room_type = $2 AND professor_id = $3 AND discipline_name = $4 AND discipline_shift = $5 AND term_year = $6 AND term_half = $7`

// AllocationRepository persists room allocations.
type AllocationRepository struct {
	db *sqlx.DB
}

// NewAllocationRepository creates an allocation repository.
func NewAllocationRepository(db *sqlx.DB) *AllocationRepository {
	return &AllocationRepository{db: db}
}

func (r *AllocationRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

func allocationKeyArgs(key models.AllocationKey) []interface{} {
	return []interface{}{key.Number, key.Type, key.ProfessorID, key.Name, key.Shift, key.Year, key.Half}
}

// FindByKey loads an allocation. With forUpdate the row stays locked until the transaction ends.
func (r *AllocationRepository) FindByKey(ctx context.Context, exec sqlx.ExtContext, key models.AllocationKey, forUpdate bool) (*models.Allocation, error) {
	query := fmt.Sprintf("SELECT %s FROM allocations WHERE %s", allocationColumns, allocationKeyClause)
	if forUpdate {
		query += " FOR UPDATE"
	}
	var allocation models.Allocation
	if err := sqlx.GetContext(ctx, r.exec(exec), &allocation, query, allocationKeyArgs(key)...); err != nil {
		return nil, err
	}
	return &allocation, nil
}

// Create inserts an allocation.
func (r *AllocationRepository) Create(ctx context.Context, exec sqlx.ExtContext, allocation *models.Allocation) error {
	now := time.Now().UTC()
	if allocation.CreatedAt.IsZero() {
		allocation.CreatedAt = now
	}
	allocation.UpdatedAt = now

	const query = `INSERT INTO allocations (room_number, room_type, professor_id, discipline_name, discipline_shift, term_year, term_half, kind, status, day_of_week, start_time, created_at, updated_at)
VALUES (:room_number, :room_type, :professor_id, :discipline_name, :discipline_shift, :term_year, :term_half, :kind, :status, :day_of_week, :start_time, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, allocation); err != nil {
		return fmt.Errorf("insert allocation: %w", err)
	}
	return nil
}

// UpdateStatus changes the workflow status of an allocation.
func (r *AllocationRepository) UpdateStatus(ctx context.Context, exec sqlx.ExtContext, key models.AllocationKey, status models.AllocationStatus) error {
	query := `UPDATE allocations SET status = $8, updated_at = $9 WHERE ` + allocationKeyClause
	args := append(allocationKeyArgs(key), status, time.Now().UTC())
	result, err := r.exec(exec).ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update allocation status: %w", err)
	}
	return requireAffected(result, "allocation status")
}

// Delete removes an allocation.
func (r *AllocationRepository) Delete(ctx context.Context, exec sqlx.ExtContext, key models.AllocationKey) error {
	query := `DELETE FROM allocations WHERE ` + allocationKeyClause
	result, err := r.exec(exec).ExecContext(ctx, query, allocationKeyArgs(key)...)
	if err != nil {
		return fmt.Errorf("delete allocation: %w", err)
	}
	return requireAffected(result, "allocation")
}

// ListActiveByRoomDay returns pending and confirmed bookings of a room on one weekday of a term.
func (r *AllocationRepository) ListActiveByRoomDay(ctx context.Context, exec sqlx.ExtContext, room models.RoomKey, term models.Term, day int) ([]models.RoomBooking, error) {
	const query = `SELECT a.room_number, a.room_type, a.professor_id, a.discipline_name, a.discipline_shift, a.term_year, a.term_half,
a.status, a.day_of_week, a.start_time, d.load
FROM allocations a
JOIN disciplines d ON d.name = a.discipline_name AND d.shift = a.discipline_shift
WHERE a.room_number = $1 AND a.room_type = $2 AND a.term_year = $3 AND a.term_half = $4 AND a.day_of_week = $5
AND a.status IN ('pending', 'confirmed')`
	var bookings []models.RoomBooking
	if err := sqlx.SelectContext(ctx, r.exec(exec), &bookings, query, room.Number, room.Type, term.Year, term.Half, day); err != nil {
		return nil, fmt.Errorf("list room bookings: %w", err)
	}
	return bookings, nil
}

// CountConfirmedByRoom counts confirmed allocations holding a room, ignoring exclude when set.
func (r *AllocationRepository) CountConfirmedByRoom(ctx context.Context, exec sqlx.ExtContext, room models.RoomKey, exclude *models.AllocationKey) (int, error) {
	query := `SELECT COUNT(*) FROM allocations WHERE room_number = $1 AND room_type = $2 AND status = 'confirmed'`
	args := []interface{}{room.Number, room.Type}
	if exclude != nil {
		query += ` AND NOT (professor_id = $3 AND discipline_name = $4 AND discipline_shift = $5 AND term_year = $6 AND term_half = $7)`
		args = append(args, exclude.ProfessorID, exclude.Name, exclude.Shift, exclude.Year, exclude.Half)
	}
	var count int
	if err := sqlx.GetContext(ctx, r.exec(exec), &count, query, args...); err != nil {
		return 0, fmt.Errorf("count confirmed room allocations: %w", err)
	}
	return count, nil
}

// ListBySchedule returns every allocation backed by one teaching schedule.
func (r *AllocationRepository) ListBySchedule(ctx context.Context, exec sqlx.ExtContext, key models.ScheduleKey) ([]models.Allocation, error) {
	query := fmt.Sprintf("SELECT %s FROM allocations WHERE %s ORDER BY room_number, room_type", allocationColumns, scheduleKeyClause)
	var allocations []models.Allocation
	if err := sqlx.SelectContext(ctx, r.exec(exec), &allocations, query, scheduleKeyArgs(key)...); err != nil {
		return nil, fmt.Errorf("list schedule allocations: %w", err)
	}
	return allocations, nil
}

// UpdateScheduleSlot copies a new weekday and start time onto every allocation of a schedule.
func (r *AllocationRepository) UpdateScheduleSlot(ctx context.Context, exec sqlx.ExtContext, key models.ScheduleKey, day int, startTime string) error {
	query := `UPDATE allocations SET day_of_week = $6, start_time = $7, updated_at = $8 WHERE ` + scheduleKeyClause
	args := append(scheduleKeyArgs(key), day, startTime, time.Now().UTC())
	if _, err := r.exec(exec).ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update allocation slots: %w", err)
	}
	return nil
}

// List returns allocation details matching every set filter field.
func (r *AllocationRepository) List(ctx context.Context, filter models.AllocationFilter) ([]models.AllocationDetail, error) {
	var conditions []string
	var args []interface{}
	add := func(column string, value interface{}) {
		conditions = append(conditions, fmt.Sprintf("%s = $%d", column, len(args)+1))
		args = append(args, value)
	}

	if filter.RoomNumber != nil {
		add("a.room_number", *filter.RoomNumber)
	}
	if filter.RoomType != nil {
		add("a.room_type", *filter.RoomType)
	}
	if filter.ProfessorID != nil {
		add("a.professor_id", *filter.ProfessorID)
	}
	if filter.DisciplineName != nil {
		add("a.discipline_name", *filter.DisciplineName)
	}
	if filter.Shift != nil {
		add("a.discipline_shift", *filter.Shift)
	}
	if filter.TermYear != nil {
		add("a.term_year", *filter.TermYear)
	}
	if filter.TermHalf != nil {
		add("a.term_half", *filter.TermHalf)
	}
	if filter.Kind != nil {
		add("a.kind", *filter.Kind)
	}
	if filter.Status != nil {
		add("a.status", *filter.Status)
	}
	if filter.Course != nil {
		add("d.course", *filter.Course)
	}
	if filter.CourseSemester != nil {
		add("d.course_semester", *filter.CourseSemester)
	}

	query := `SELECT a.room_number, a.room_type, a.professor_id, a.discipline_name, a.discipline_shift, a.term_year, a.term_half,
a.kind, a.status, a.day_of_week, a.start_time, a.created_at, a.updated_at,
p.name AS professor_name, d.course, d.course_semester, d.load
FROM allocations a
JOIN professors p ON p.id = a.professor_id
JOIN disciplines d ON d.name = a.discipline_name AND d.shift = a.discipline_shift`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY a.term_year DESC, a.term_half DESC, a.day_of_week, a.start_time, a.room_number"

	var details []models.AllocationDetail
	if err := r.db.SelectContext(ctx, &details, query, args...); err != nil {
		return nil, fmt.Errorf("list allocations: %w", err)
	}
	return details, nil
}
