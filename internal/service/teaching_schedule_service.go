package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/room-allocation-api/internal/models"
	"github.com/noah-isme/room-allocation-api/internal/repository"
	"github.com/noah-isme/room-allocation-api/internal/timeslot"
	"github.com/noah-isme/room-allocation-api/pkg/config"
	appErrors "github.com/noah-isme/room-allocation-api/pkg/errors"
	"github.com/noah-isme/room-allocation-api/pkg/tracing"
)

type teachingScheduleRepository interface {
	FindByKey(ctx context.Context, exec sqlx.ExtContext, key models.ScheduleKey, forUpdate bool) (*models.TeachingSchedule, error)
	LockProfessor(ctx context.Context, exec sqlx.ExtContext, professorID int64) error
	LockCohort(ctx context.Context, exec sqlx.ExtContext, course string, semester int) error
	Create(ctx context.Context, exec sqlx.ExtContext, schedule *models.TeachingSchedule) error
	UpdateSlot(ctx context.Context, exec sqlx.ExtContext, key models.ScheduleKey, day int, startTime string) error
	Delete(ctx context.Context, exec sqlx.ExtContext, key models.ScheduleKey) error
	List(ctx context.Context, filter models.TeachingScheduleFilter) ([]models.TeachingSchedule, error)
}

type disciplineFinder interface {
	FindByKey(ctx context.Context, exec sqlx.ExtContext, offering models.Offering) (*models.DisciplineOffering, error)
}

type scheduleAllocationRepository interface {
	ListBySchedule(ctx context.Context, exec sqlx.ExtContext, key models.ScheduleKey) ([]models.Allocation, error)
	UpdateScheduleSlot(ctx context.Context, exec sqlx.ExtContext, key models.ScheduleKey, day int, startTime string) error
	CountConfirmedByRoom(ctx context.Context, exec sqlx.ExtContext, room models.RoomKey, exclude *models.AllocationKey) (int, error)
}

type scheduleConflictChecker interface {
	roomConflictChecker
	ProfessorConflict(ctx context.Context, exec sqlx.ExtContext, c ProfessorCandidate) (*models.BookingConflict, error)
	CohortConflict(ctx context.Context, exec sqlx.ExtContext, c CohortCandidate) (*models.BookingConflict, error)
}

// CreateTeachingScheduleRequest commits a professor to an offering on a weekday and start time.
type CreateTeachingScheduleRequest struct {
	ProfessorID     int64  `json:"professor_id" validate:"required,gt=0"`
	DisciplineName  string `json:"discipline_name" validate:"required"`
	DisciplineShift string `json:"discipline_shift" validate:"required"`
	TermYear        int    `json:"term_year" validate:"required,gte=2000,lte=2100"`
	TermHalf        int    `json:"term_half" validate:"required,oneof=1 2"`
	DayOfWeek       int    `json:"day_of_week" validate:"required,min=1,max=7"`
	StartTime       string `json:"start_time" validate:"required"`
}

// Key returns the schedule key addressed by the request.
func (r CreateTeachingScheduleRequest) Key() models.ScheduleKey {
	return models.ScheduleKey{
		ProfessorID: r.ProfessorID,
		Offering:    models.Offering{Name: r.DisciplineName, Shift: r.DisciplineShift},
		Term:        models.Term{Year: r.TermYear, Half: r.TermHalf},
	}
}

// RescheduleRequest moves a teaching schedule to another weekday and start time.
type RescheduleRequest struct {
	DayOfWeek int    `json:"day_of_week" validate:"required,min=1,max=7"`
	StartTime string `json:"start_time" validate:"required"`
}

// TeachingScheduleService maintains teaching schedules under the professor and cohort invariants.
type TeachingScheduleService struct {
	tx          txProvider
	schedules   teachingScheduleRepository
	disciplines disciplineFinder
	allocations scheduleAllocationRepository
	conflicts   scheduleConflictChecker
	rooms       roomLocker
	occupancy   roomOccupancy
	cache       *CacheService
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewTeachingScheduleService constructs the service. rooms locks the rooms of moved allocations
// and releases the rooms of removed ones.
func NewTeachingScheduleService(
	tx txProvider,
	schedules teachingScheduleRepository,
	disciplines disciplineFinder,
	allocations scheduleAllocationRepository,
	rooms roomRepository,
	conflicts scheduleConflictChecker,
	cache *CacheService,
	metrics *MetricsService,
	releasePolicy string,
	validate *validator.Validate,
	logger *zap.Logger,
) *TeachingScheduleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if releasePolicy == "" {
		releasePolicy = config.ReleaseUnconditional
	}
	return &TeachingScheduleService{
		tx:          tx,
		schedules:   schedules,
		disciplines: disciplines,
		allocations: allocations,
		conflicts:   conflicts,
		rooms:       rooms,
		occupancy:   roomOccupancy{rooms: rooms, allocations: allocations, policy: releasePolicy},
		cache:       cache,
		metrics:     metrics,
		validator:   validate,
		logger:      logger,
	}
}

// Create inserts a teaching schedule after checking professor and cohort conflicts. The professor
// and cohort stay locked until commit so concurrent creates of either cannot both pass the check.
func (s *TeachingScheduleService) Create(ctx context.Context, req CreateTeachingScheduleRequest) (result *models.TeachingSchedule, err error) {
	key := req.Key()
	ctx, span := tracing.Start(ctx, "teaching_schedule.create", scheduleAttributes(key)...)
	defer func() {
		tracing.End(span, err)
		s.metrics.ObserveAllocationOperation("schedule_create", outcome(err))
	}()

	if err = s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid teaching schedule payload")
	}
	startTime := timeslot.Normalize(req.StartTime)

	err = withTx(ctx, s.tx, func(tx *sqlx.Tx) error {
		discipline, err := s.findDiscipline(ctx, tx, key.Offering)
		if err != nil {
			return err
		}
		if err := s.lockCommitments(ctx, tx, key.ProfessorID, discipline); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrNotFound, "professor not found")
			}
			return err
		}
		if _, err := s.schedules.FindByKey(ctx, tx, key, false); err == nil {
			return appErrors.Clone(appErrors.ErrScheduleExists, "")
		} else if !errors.Is(err, sql.ErrNoRows) {
			return appErrors.Internal(err, "failed to load teaching schedule")
		}

		slot := Slot{Term: key.Term, DayOfWeek: req.DayOfWeek, Shift: key.Shift, StartTime: startTime, Load: discipline.Load}
		if err := s.ensureNoSessionConflict(ctx, tx, key, discipline, slot, nil); err != nil {
			return err
		}

		schedule := &models.TeachingSchedule{ScheduleKey: key, DayOfWeek: req.DayOfWeek, StartTime: startTime}
		if err := s.schedules.Create(ctx, tx, schedule); err != nil {
			switch {
			case repository.IsUniqueViolation(err):
				return appErrors.Wrap(err, appErrors.ErrScheduleExists.Code, appErrors.ErrScheduleExists.Status, appErrors.ErrScheduleExists.Message)
			case repository.IsForeignKeyViolation(err):
				return appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "professor or discipline not found")
			}
			return appErrors.Internal(err, "failed to create teaching schedule")
		}
		result = schedule
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("teaching schedule created", scheduleFields(key)...)
	return result, nil
}

// Reschedule moves a schedule and its allocations to a new slot. Every active allocation is
// re-checked against its room while that room is locked.
func (s *TeachingScheduleService) Reschedule(ctx context.Context, key models.ScheduleKey, req RescheduleRequest) (result *models.TeachingSchedule, err error) {
	ctx, span := tracing.Start(ctx, "teaching_schedule.reschedule", scheduleAttributes(key)...)
	defer func() {
		tracing.End(span, err)
		s.metrics.ObserveAllocationOperation("schedule_reschedule", outcome(err))
	}()

	if err = s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid reschedule payload")
	}
	startTime := timeslot.Normalize(req.StartTime)

	err = withTx(ctx, s.tx, func(tx *sqlx.Tx) error {
		discipline, err := s.findDiscipline(ctx, tx, key.Offering)
		if err != nil {
			if errors.Is(err, appErrors.ErrDisciplineNotFound) {
				return appErrors.Clone(appErrors.ErrScheduleNotFound, "")
			}
			return err
		}
		if err := s.lockCommitments(ctx, tx, key.ProfessorID, discipline); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrScheduleNotFound, "")
			}
			return err
		}
		schedule, err := s.findSchedule(ctx, tx, key)
		if err != nil {
			return err
		}

		slot := Slot{Term: key.Term, DayOfWeek: req.DayOfWeek, Shift: key.Shift, StartTime: startTime, Load: discipline.Load}
		exclude := key.Offering
		if err := s.ensureNoSessionConflict(ctx, tx, key, discipline, slot, &exclude); err != nil {
			return err
		}

		allocations, err := s.allocations.ListBySchedule(ctx, tx, key)
		if err != nil {
			return appErrors.Internal(err, "failed to load schedule allocations")
		}
		if err := s.lockRooms(ctx, tx, allocations, models.AllocationStatus.Active); err != nil {
			return err
		}
		for i := range allocations {
			allocation := allocations[i]
			if !allocation.Status.Active() {
				continue
			}
			conflict, err := s.conflicts.RoomConflict(ctx, tx, RoomCandidate{Room: allocation.RoomKey, Slot: slot, Exclude: &allocation.AllocationKey})
			if err != nil {
				return err
			}
			if conflict != nil {
				return conflictError(appErrors.ErrRoomConflict, conflict)
			}
		}

		if err := s.schedules.UpdateSlot(ctx, tx, key, req.DayOfWeek, startTime); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrScheduleNotFound, "")
			}
			return appErrors.Internal(err, "failed to reschedule teaching schedule")
		}
		if err := s.allocations.UpdateScheduleSlot(ctx, tx, key, req.DayOfWeek, startTime); err != nil {
			return appErrors.Internal(err, "failed to move schedule allocations")
		}

		schedule.DayOfWeek = req.DayOfWeek
		schedule.StartTime = startTime
		result = schedule
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.cache.Invalidate(ctx, allocationCachePattern)
	s.logger.Info("teaching schedule rescheduled", append(scheduleFields(key), zap.Int("day_of_week", req.DayOfWeek), zap.String("start_time", startTime))...)
	return result, nil
}

// Delete removes a schedule together with its allocations and releases the rooms the confirmed ones held.
func (s *TeachingScheduleService) Delete(ctx context.Context, key models.ScheduleKey) (err error) {
	ctx, span := tracing.Start(ctx, "teaching_schedule.delete", scheduleAttributes(key)...)
	defer func() {
		tracing.End(span, err)
		s.metrics.ObserveAllocationOperation("schedule_delete", outcome(err))
	}()

	released := 0
	err = withTx(ctx, s.tx, func(tx *sqlx.Tx) error {
		if _, err := s.findSchedule(ctx, tx, key); err != nil {
			return err
		}
		allocations, err := s.allocations.ListBySchedule(ctx, tx, key)
		if err != nil {
			return appErrors.Internal(err, "failed to load schedule allocations")
		}
		if err := s.lockRooms(ctx, tx, allocations, confirmed); err != nil {
			return err
		}
		if err := s.schedules.Delete(ctx, tx, key); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrScheduleNotFound, "")
			}
			return appErrors.Internal(err, "failed to delete teaching schedule")
		}
		for _, allocation := range allocations {
			if allocation.Status != models.AllocationConfirmed {
				continue
			}
			if err := s.occupancy.release(ctx, tx, allocation.RoomKey, nil); err != nil {
				return err
			}
			released++
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.cache.Invalidate(ctx, allocationCachePattern)
	s.logger.Info("teaching schedule deleted", append(scheduleFields(key), zap.Int("released_rooms", released))...)
	return nil
}

// List returns schedules matching filter.
func (s *TeachingScheduleService) List(ctx context.Context, filter models.TeachingScheduleFilter) ([]models.TeachingSchedule, error) {
	schedules, err := s.schedules.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list teaching schedules")
	}
	if schedules == nil {
		schedules = []models.TeachingSchedule{}
	}
	return schedules, nil
}

func (s *TeachingScheduleService) ensureNoSessionConflict(ctx context.Context, exec sqlx.ExtContext, key models.ScheduleKey, discipline *models.DisciplineOffering, slot Slot, exclude *models.Offering) error {
	conflict, err := s.conflicts.ProfessorConflict(ctx, exec, ProfessorCandidate{ProfessorID: key.ProfessorID, Slot: slot, ExcludeOffering: exclude})
	if err != nil {
		return err
	}
	if conflict != nil {
		return conflictError(appErrors.ErrProfessorConflict, conflict)
	}

	conflict, err = s.conflicts.CohortConflict(ctx, exec, CohortCandidate{
		Course:          discipline.Course,
		CourseSemester:  discipline.CourseSemester,
		Slot:            slot,
		ExcludeOffering: exclude,
	})
	if err != nil {
		return err
	}
	if conflict != nil {
		return conflictError(appErrors.ErrCohortConflict, conflict)
	}
	return nil
}

// lockCommitments serializes schedule writes per professor and per cohort. Both locks are taken
// before the schedule row, which comes before any room or allocation row.
func (s *TeachingScheduleService) lockCommitments(ctx context.Context, exec sqlx.ExtContext, professorID int64, discipline *models.DisciplineOffering) error {
	if err := s.schedules.LockProfessor(ctx, exec, professorID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return err
		}
		return appErrors.Internal(err, "failed to lock professor")
	}
	if err := s.schedules.LockCohort(ctx, exec, discipline.Course, discipline.CourseSemester); err != nil {
		return appErrors.Internal(err, "failed to lock cohort")
	}
	return nil
}

// lockRooms locks, in ascending key order, the rooms of the allocations matching include.
func (s *TeachingScheduleService) lockRooms(ctx context.Context, exec sqlx.ExtContext, allocations []models.Allocation, include func(models.AllocationStatus) bool) error {
	keys := make([]models.RoomKey, 0, len(allocations))
	for _, allocation := range allocations {
		if include(allocation.Status) {
			keys = append(keys, allocation.RoomKey)
		}
	}
	for _, key := range lockOrder(keys) {
		if _, err := lockRoom(ctx, exec, s.rooms, key); err != nil {
			return err
		}
	}
	return nil
}

func confirmed(status models.AllocationStatus) bool {
	return status == models.AllocationConfirmed
}

func (s *TeachingScheduleService) findSchedule(ctx context.Context, exec sqlx.ExtContext, key models.ScheduleKey) (*models.TeachingSchedule, error) {
	schedule, err := s.schedules.FindByKey(ctx, exec, key, true)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrScheduleNotFound, "")
		}
		return nil, appErrors.Internal(err, "failed to load teaching schedule")
	}
	return schedule, nil
}

func (s *TeachingScheduleService) findDiscipline(ctx context.Context, exec sqlx.ExtContext, offering models.Offering) (*models.DisciplineOffering, error) {
	discipline, err := s.disciplines.FindByKey(ctx, exec, offering)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrDisciplineNotFound, "")
		}
		return nil, appErrors.Internal(err, "failed to load discipline offering")
	}
	return discipline, nil
}
