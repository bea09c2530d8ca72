package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/room-allocation-api/internal/models"
)

const teachingScheduleColumns = `professor_id, discipline_name, discipline_shift, term_year, term_half, day_of_week, start_time, created_at, updated_at`

const scheduleKeyClause = `professor_id = $1 AND discipline_name = $2 AND discipline_shift = $3 AND term_year = $4 AND term_half = $5`

const sessionSelect = `SELECT ts.professor_id, ts.discipline_name, ts.discipline_shift, ts.term_year, ts.term_half,
ts.day_of_week, ts.start_time, d.load, d.course, d.course_semester
FROM teaching_schedules ts
JOIN disciplines d ON d.name = ts.discipline_name AND d.shift = ts.discipline_shift`

// TeachingScheduleRepository persists professor teaching commitments.
type TeachingScheduleRepository struct {
	db *sqlx.DB
}

// NewTeachingScheduleRepository creates a teaching schedule repository.
func NewTeachingScheduleRepository(db *sqlx.DB) *TeachingScheduleRepository {
	return &TeachingScheduleRepository{db: db}
}

func (r *TeachingScheduleRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

func scheduleKeyArgs(key models.ScheduleKey) []interface{} {
	return []interface{}{key.ProfessorID, key.Name, key.Shift, key.Year, key.Half}
}

// FindByKey loads a schedule. With forUpdate the row stays locked until the transaction ends.
func (r *TeachingScheduleRepository) FindByKey(ctx context.Context, exec sqlx.ExtContext, key models.ScheduleKey, forUpdate bool) (*models.TeachingSchedule, error) {
	query := fmt.Sprintf("SELECT %s FROM teaching_schedules WHERE %s", teachingScheduleColumns, scheduleKeyClause)
	if forUpdate {
		query += " FOR UPDATE"
	}
	var schedule models.TeachingSchedule
	if err := sqlx.GetContext(ctx, r.exec(exec), &schedule, query, scheduleKeyArgs(key)...); err != nil {
		return nil, err
	}
	return &schedule, nil
}

// FindSession loads a schedule joined with the load and cohort of its offering. With lock the
// schedule row is held FOR KEY SHARE, which blocks reschedules and deletes until the transaction ends.
func (r *TeachingScheduleRepository) FindSession(ctx context.Context, exec sqlx.ExtContext, key models.ScheduleKey, lock bool) (*models.ScheduledSession, error) {
	query := sessionSelect + ` WHERE ts.professor_id = $1 AND ts.discipline_name = $2 AND ts.discipline_shift = $3 AND ts.term_year = $4 AND ts.term_half = $5`
	if lock {
		query += " FOR KEY SHARE OF ts"
	}
	var session models.ScheduledSession
	if err := sqlx.GetContext(ctx, r.exec(exec), &session, query, scheduleKeyArgs(key)...); err != nil {
		return nil, err
	}
	return &session, nil
}

// LockProfessor holds the professor row until the transaction ends, serializing schedule
// writes of one professor. A missing professor yields sql.ErrNoRows.
func (r *TeachingScheduleRepository) LockProfessor(ctx context.Context, exec sqlx.ExtContext, professorID int64) error {
	var id int64
	return sqlx.GetContext(ctx, r.exec(exec), &id, `SELECT id FROM professors WHERE id = $1 FOR NO KEY UPDATE`, professorID)
}

// LockCohort takes a transaction scoped advisory lock on a course semester, serializing
// schedule writes of one cohort. There is no cohort row to lock.
func (r *TeachingScheduleRepository) LockCohort(ctx context.Context, exec sqlx.ExtContext, course string, semester int) error {
	if _, err := r.exec(exec).ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1), $2)`, course, semester); err != nil {
		return fmt.Errorf("lock cohort: %w", err)
	}
	return nil
}

// ListByProfessorDay returns the sessions of a professor on one weekday of a term.
func (r *TeachingScheduleRepository) ListByProfessorDay(ctx context.Context, exec sqlx.ExtContext, professorID int64, term models.Term, day int) ([]models.ScheduledSession, error) {
	query := sessionSelect + ` WHERE ts.professor_id = $1 AND ts.term_year = $2 AND ts.term_half = $3 AND ts.day_of_week = $4`
	var sessions []models.ScheduledSession
	if err := sqlx.SelectContext(ctx, r.exec(exec), &sessions, query, professorID, term.Year, term.Half, day); err != nil {
		return nil, fmt.Errorf("list professor sessions: %w", err)
	}
	return sessions, nil
}

// ListByCohortDay returns the sessions of every offering of a course semester on one weekday of a term.
func (r *TeachingScheduleRepository) ListByCohortDay(ctx context.Context, exec sqlx.ExtContext, course string, semester int, term models.Term, day int) ([]models.ScheduledSession, error) {
	query := sessionSelect + ` WHERE d.course = $1 AND d.course_semester = $2 AND ts.term_year = $3 AND ts.term_half = $4 AND ts.day_of_week = $5`
	var sessions []models.ScheduledSession
	if err := sqlx.SelectContext(ctx, r.exec(exec), &sessions, query, course, semester, term.Year, term.Half, day); err != nil {
		return nil, fmt.Errorf("list cohort sessions: %w", err)
	}
	return sessions, nil
}

// Create inserts a schedule. Driver errors stay reachable through errors.As.
func (r *TeachingScheduleRepository) Create(ctx context.Context, exec sqlx.ExtContext, schedule *models.TeachingSchedule) error {
	stampSchedule(schedule)
	const query = `INSERT INTO teaching_schedules (professor_id, discipline_name, discipline_shift, term_year, term_half, day_of_week, start_time, created_at, updated_at)
VALUES (:professor_id, :discipline_name, :discipline_shift, :term_year, :term_half, :day_of_week, :start_time, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, schedule); err != nil {
		return fmt.Errorf("insert teaching schedule: %w", err)
	}
	return nil
}

// InsertIgnoreDuplicate inserts a schedule unless its key already exists, reporting whether a row was written.
func (r *TeachingScheduleRepository) InsertIgnoreDuplicate(ctx context.Context, exec sqlx.ExtContext, schedule *models.TeachingSchedule) (bool, error) {
	stampSchedule(schedule)
	const query = `INSERT INTO teaching_schedules (professor_id, discipline_name, discipline_shift, term_year, term_half, day_of_week, start_time, created_at, updated_at)
VALUES (:professor_id, :discipline_name, :discipline_shift, :term_year, :term_half, :day_of_week, :start_time, :created_at, :updated_at)
ON CONFLICT (professor_id, discipline_name, discipline_shift, term_year, term_half) DO NOTHING`
	result, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, schedule)
	if err != nil {
		return false, fmt.Errorf("copy teaching schedule: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("teaching schedule copy rows affected: %w", err)
	}
	return affected > 0, nil
}

// UpdateSlot moves a schedule to another weekday and start time.
func (r *TeachingScheduleRepository) UpdateSlot(ctx context.Context, exec sqlx.ExtContext, key models.ScheduleKey, day int, startTime string) error {
	query := `UPDATE teaching_schedules SET day_of_week = $6, start_time = $7, updated_at = $8 WHERE ` + scheduleKeyClause
	args := append(scheduleKeyArgs(key), day, startTime, time.Now().UTC())
	result, err := r.exec(exec).ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update teaching schedule slot: %w", err)
	}
	return requireAffected(result, "teaching schedule slot")
}

// Delete removes a schedule. Dependent allocations are removed by the foreign key cascade.
func (r *TeachingScheduleRepository) Delete(ctx context.Context, exec sqlx.ExtContext, key models.ScheduleKey) error {
	query := `DELETE FROM teaching_schedules WHERE ` + scheduleKeyClause
	result, err := r.exec(exec).ExecContext(ctx, query, scheduleKeyArgs(key)...)
	if err != nil {
		return fmt.Errorf("delete teaching schedule: %w", err)
	}
	return requireAffected(result, "teaching schedule")
}

// ListByTerm returns every schedule of a term.
func (r *TeachingScheduleRepository) ListByTerm(ctx context.Context, term models.Term) ([]models.TeachingSchedule, error) {
	query := fmt.Sprintf("SELECT %s FROM teaching_schedules WHERE term_year = $1 AND term_half = $2 ORDER BY professor_id, discipline_name, discipline_shift", teachingScheduleColumns)
	var schedules []models.TeachingSchedule
	if err := r.db.SelectContext(ctx, &schedules, query, term.Year, term.Half); err != nil {
		return nil, fmt.Errorf("list term schedules: %w", err)
	}
	return schedules, nil
}

// List returns schedules matching the filter.
func (r *TeachingScheduleRepository) List(ctx context.Context, filter models.TeachingScheduleFilter) ([]models.TeachingSchedule, error) {
	var conditions []string
	var args []interface{}

	if filter.ProfessorID != nil {
		conditions = append(conditions, fmt.Sprintf("ts.professor_id = $%d", len(args)+1))
		args = append(args, *filter.ProfessorID)
	}
	if filter.TermYear != nil {
		conditions = append(conditions, fmt.Sprintf("ts.term_year = $%d", len(args)+1))
		args = append(args, *filter.TermYear)
	}
	if filter.TermHalf != nil {
		conditions = append(conditions, fmt.Sprintf("ts.term_half = $%d", len(args)+1))
		args = append(args, *filter.TermHalf)
	}
	if filter.Shift != nil {
		conditions = append(conditions, fmt.Sprintf("ts.discipline_shift = $%d", len(args)+1))
		args = append(args, *filter.Shift)
	}
	if filter.Course != nil {
		conditions = append(conditions, fmt.Sprintf("d.course = $%d", len(args)+1))
		args = append(args, *filter.Course)
	}
	if filter.CourseSemester != nil {
		conditions = append(conditions, fmt.Sprintf("d.course_semester = $%d", len(args)+1))
		args = append(args, *filter.CourseSemester)
	}

	query := `SELECT ts.professor_id, ts.discipline_name, ts.discipline_shift, ts.term_year, ts.term_half, ts.day_of_week, ts.start_time, ts.created_at, ts.updated_at
FROM teaching_schedules ts
JOIN disciplines d ON d.name = ts.discipline_name AND d.shift = ts.discipline_shift`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY ts.term_year DESC, ts.term_half DESC, ts.day_of_week, ts.start_time"

	var schedules []models.TeachingSchedule
	if err := r.db.SelectContext(ctx, &schedules, query, args...); err != nil {
		return nil, fmt.Errorf("list teaching schedules: %w", err)
	}
	return schedules, nil
}

func stampSchedule(schedule *models.TeachingSchedule) {
	now := time.Now().UTC()
	if schedule.CreatedAt.IsZero() {
		schedule.CreatedAt = now
	}
	schedule.UpdatedAt = now
}

func requireAffected(result sql.Result, entity string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", entity, err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
