package service

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/noah-isme/room-allocation-api/internal/models"
	"github.com/noah-isme/room-allocation-api/internal/repository"
	"github.com/noah-isme/room-allocation-api/internal/timeslot"
	"github.com/noah-isme/room-allocation-api/pkg/config"
	appErrors "github.com/noah-isme/room-allocation-api/pkg/errors"
	"github.com/noah-isme/room-allocation-api/pkg/tracing"
)

const (
	allocationCachePrefix  = "allocations:"
	allocationCachePattern = allocationCachePrefix + "*"
)

type roomRepository interface {
	FindByKey(ctx context.Context, exec sqlx.ExtContext, key models.RoomKey, forUpdate bool) (*models.Room, error)
	UpdateStatus(ctx context.Context, exec sqlx.ExtContext, key models.RoomKey, status models.RoomStatus) error
}

type sessionFinder interface {
	FindSession(ctx context.Context, exec sqlx.ExtContext, key models.ScheduleKey, lock bool) (*models.ScheduledSession, error)
}

type allocationRepository interface {
	FindByKey(ctx context.Context, exec sqlx.ExtContext, key models.AllocationKey, forUpdate bool) (*models.Allocation, error)
	Create(ctx context.Context, exec sqlx.ExtContext, allocation *models.Allocation) error
	UpdateStatus(ctx context.Context, exec sqlx.ExtContext, key models.AllocationKey, status models.AllocationStatus) error
	Delete(ctx context.Context, exec sqlx.ExtContext, key models.AllocationKey) error
	CountConfirmedByRoom(ctx context.Context, exec sqlx.ExtContext, room models.RoomKey, exclude *models.AllocationKey) (int, error)
	List(ctx context.Context, filter models.AllocationFilter) ([]models.AllocationDetail, error)
}

type roomConflictChecker interface {
	RoomConflict(ctx context.Context, exec sqlx.ExtContext, c RoomCandidate) (*models.BookingConflict, error)
}

// AllocationPolicy holds the configurable lifecycle rules.
type AllocationPolicy struct {
	ElevatedRoles    []string
	RecheckOnApprove bool
	ReleasePolicy    string
	CacheTTL         time.Duration
}

// PolicyFromConfig maps application config onto an AllocationPolicy.
func PolicyFromConfig(cfg config.AllocationConfig) AllocationPolicy {
	return AllocationPolicy{
		ElevatedRoles:    cfg.ElevatedRoles,
		RecheckOnApprove: cfg.RecheckOnApprove,
		ReleasePolicy:    cfg.ReleasePolicy,
		CacheTTL:         cfg.CacheTTL,
	}
}

func (p AllocationPolicy) elevated(role models.UserRole) bool {
	roles := p.ElevatedRoles
	if len(roles) == 0 {
		roles = []string{string(models.RoleAdmin)}
	}
	for _, r := range roles {
		if strings.EqualFold(r, string(role)) {
			return true
		}
	}
	return false
}

// CreateAllocationRequest describes a new room booking. Day and start time, when given, must match the teaching schedule.
type CreateAllocationRequest struct {
	RoomNumber      int                   `json:"room_number" validate:"required,gt=0"`
	RoomType        string                `json:"room_type" validate:"required"`
	ProfessorID     int64                 `json:"professor_id" validate:"required,gt=0"`
	DisciplineName  string                `json:"discipline_name" validate:"required"`
	DisciplineShift string                `json:"discipline_shift" validate:"required"`
	TermYear        int                   `json:"term_year" validate:"required,gte=2000,lte=2100"`
	TermHalf        int                   `json:"term_half" validate:"required,oneof=1 2"`
	DayOfWeek       *int                  `json:"day_of_week,omitempty" validate:"omitempty,min=1,max=7"`
	StartTime       *string               `json:"start_time,omitempty"`
	Kind            models.AllocationKind `json:"kind" validate:"omitempty,oneof=recurring one_off"`
}

// Key returns the allocation key addressed by the request.
func (r CreateAllocationRequest) Key() models.AllocationKey {
	return models.AllocationKey{
		RoomKey: models.RoomKey{Number: r.RoomNumber, Type: r.RoomType},
		ScheduleKey: models.ScheduleKey{
			ProfessorID: r.ProfessorID,
			Offering:    models.Offering{Name: r.DisciplineName, Shift: r.DisciplineShift},
			Term:        models.Term{Year: r.TermYear, Half: r.TermHalf},
		},
	}
}

// AllocationService manages the allocation lifecycle. Every mutation runs in one transaction
// that also writes the room occupancy flag.
type AllocationService struct {
	tx          txProvider
	rooms       roomRepository
	schedules   sessionFinder
	allocations allocationRepository
	conflicts   roomConflictChecker
	occupancy   roomOccupancy
	cache       *CacheService
	metrics     *MetricsService
	policy      AllocationPolicy
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewAllocationService wires the lifecycle manager.
func NewAllocationService(
	tx txProvider,
	rooms roomRepository,
	schedules sessionFinder,
	allocations allocationRepository,
	conflicts roomConflictChecker,
	cache *CacheService,
	metrics *MetricsService,
	policy AllocationPolicy,
	validate *validator.Validate,
	logger *zap.Logger,
) *AllocationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if policy.ReleasePolicy == "" {
		policy.ReleasePolicy = config.ReleaseUnconditional
	}
	return &AllocationService{
		tx:          tx,
		rooms:       rooms,
		schedules:   schedules,
		allocations: allocations,
		conflicts:   conflicts,
		occupancy:   roomOccupancy{rooms: rooms, allocations: allocations, policy: policy.ReleasePolicy},
		cache:       cache,
		metrics:     metrics,
		policy:      policy,
		validator:   validate,
		logger:      logger,
	}
}

// Create books a room for an existing teaching schedule. Elevated requesters get a confirmed
// allocation and the room becomes occupied; everyone else gets a pending one.
func (s *AllocationService) Create(ctx context.Context, req CreateAllocationRequest, requester models.UserRole) (result *models.Allocation, err error) {
	key := req.Key()
	ctx, span := tracing.Start(ctx, "allocation.create", keyAttributes(key)...)
	defer func() {
		tracing.End(span, err)
		s.observe("create", err)
	}()

	if err = s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid allocation payload")
	}
	kind := req.Kind
	if kind == "" {
		kind = models.AllocationRecurring
	}
	status := models.AllocationPending
	if s.policy.elevated(requester) {
		status = models.AllocationConfirmed
	}

	err = withTx(ctx, s.tx, func(tx *sqlx.Tx) error {
		session, err := s.findSession(ctx, tx, key.ScheduleKey, true)
		if err != nil {
			return err
		}
		if req.DayOfWeek != nil && *req.DayOfWeek != session.DayOfWeek {
			return appErrors.Clone(appErrors.ErrValidation, "day_of_week does not match the teaching schedule")
		}
		if req.StartTime != nil && timeslot.Normalize(*req.StartTime) != timeslot.Normalize(session.StartTime) {
			return appErrors.Clone(appErrors.ErrValidation, "start_time does not match the teaching schedule")
		}

		if _, err := s.lockRoom(ctx, tx, key.RoomKey); err != nil {
			return err
		}
		if err := s.clearCancelled(ctx, tx, key); err != nil {
			return err
		}

		conflict, err := s.conflicts.RoomConflict(ctx, tx, RoomCandidate{Room: key.RoomKey, Slot: sessionSlot(session), Stored: true})
		if err != nil {
			return err
		}
		if conflict != nil {
			return conflictError(appErrors.ErrRoomConflict, conflict)
		}

		allocation := &models.Allocation{
			AllocationKey: key,
			Kind:          kind,
			Status:        status,
			DayOfWeek:     session.DayOfWeek,
			StartTime:     session.StartTime,
		}
		if err := s.allocations.Create(ctx, tx, allocation); err != nil {
			if repository.IsUniqueViolation(err) {
				return appErrors.Wrap(err, appErrors.ErrAllocationExists.Code, appErrors.ErrAllocationExists.Status, appErrors.ErrAllocationExists.Message)
			}
			return appErrors.Internal(err, "failed to create allocation")
		}
		if status == models.AllocationConfirmed {
			if err := s.occupancy.occupy(ctx, tx, key.RoomKey); err != nil {
				return err
			}
		}
		result = allocation
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx)
	s.logger.Info("allocation created", append(keyFields(key), zap.String("status", string(result.Status)))...)
	return result, nil
}

// SetStatus moves an allocation to pending, confirmed or cancelled and updates the room flag:
// occupied when confirmed, released otherwise.
func (s *AllocationService) SetStatus(ctx context.Context, key models.AllocationKey, status models.AllocationStatus) (err error) {
	ctx, span := tracing.Start(ctx, "allocation.set_status", append(keyAttributes(key), attribute.String("allocation.status", string(status)))...)
	defer func() {
		tracing.End(span, err)
		s.observe("set_status", err)
	}()

	if !status.Valid() {
		return appErrors.Clone(appErrors.ErrInvalidStatus, fmt.Sprintf("invalid allocation status %q", status))
	}

	changed := false
	err = withTx(ctx, s.tx, func(tx *sqlx.Tx) error {
		if err := s.lockAllocationRoom(ctx, tx, key); err != nil {
			return err
		}
		current, err := s.findAllocation(ctx, tx, key)
		if err != nil {
			return err
		}
		if current.Status == models.AllocationCancelled {
			if status == models.AllocationCancelled {
				return nil
			}
			return appErrors.Clone(appErrors.ErrInvalidTransition, "cancelled allocations cannot be reopened")
		}

		if status == models.AllocationConfirmed && current.Status != models.AllocationConfirmed && s.policy.RecheckOnApprove {
			session, err := s.findSession(ctx, tx, key.ScheduleKey, false)
			if err != nil {
				return err
			}
			conflict, err := s.conflicts.RoomConflict(ctx, tx, RoomCandidate{Room: key.RoomKey, Slot: sessionSlot(session), Exclude: &key, Stored: true})
			if err != nil {
				return err
			}
			if conflict != nil {
				return conflictError(appErrors.ErrRoomConflict, conflict)
			}
		}

		if err := s.allocations.UpdateStatus(ctx, tx, key, status); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrAllocationNotFound, "")
			}
			return appErrors.Internal(err, "failed to update allocation status")
		}
		if status == models.AllocationConfirmed {
			if err := s.occupancy.occupy(ctx, tx, key.RoomKey); err != nil {
				return err
			}
		} else if err := s.occupancy.release(ctx, tx, key.RoomKey, &key); err != nil {
			return err
		}
		changed = true
		return nil
	})
	if err != nil {
		return err
	}

	if changed {
		s.invalidate(ctx)
		s.logger.Info("allocation status changed", append(keyFields(key), zap.String("status", string(status)))...)
	}
	return nil
}

// ChangeRoom moves an allocation to another room. The old allocation is deleted and its room released,
// a confirmed recurring allocation is inserted for the new room and that room becomes occupied.
// Either every step commits or none does.
func (s *AllocationService) ChangeRoom(ctx context.Context, key models.AllocationKey, newRoom models.RoomKey) (result *models.Allocation, err error) {
	ctx, span := tracing.Start(ctx, "allocation.change_room", append(keyAttributes(key),
		attribute.Int("room.new_number", newRoom.Number),
		attribute.String("room.new_type", newRoom.Type),
	)...)
	defer func() {
		tracing.End(span, err)
		s.observe("change_room", err)
	}()

	if err = s.validator.Struct(newRoom); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid room")
	}
	if newRoom == key.RoomKey {
		return nil, appErrors.Clone(appErrors.ErrValidation, "new room must differ from the current room")
	}

	err = withTx(ctx, s.tx, func(tx *sqlx.Tx) error {
		session, err := s.findSession(ctx, tx, key.ScheduleKey, true)
		if err != nil {
			return err
		}
		var target *models.Room
		for _, room := range lockOrder([]models.RoomKey{key.RoomKey, newRoom}) {
			if room == key.RoomKey {
				if err := s.lockAllocationRoom(ctx, tx, key); err != nil {
					return err
				}
				continue
			}
			if target, err = s.lockRoom(ctx, tx, room); err != nil {
				return err
			}
		}
		current, err := s.findAllocation(ctx, tx, key)
		if err != nil {
			return err
		}
		if current.Status == models.AllocationCancelled {
			return appErrors.Clone(appErrors.ErrInvalidTransition, "cancelled allocations cannot change room")
		}
		if target.Occupied() {
			return appErrors.Clone(appErrors.ErrRoomUnavailable, fmt.Sprintf("room %d/%s is occupied", newRoom.Number, newRoom.Type))
		}

		slot := sessionSlot(session)
		slot.DayOfWeek = current.DayOfWeek
		slot.StartTime = current.StartTime
		conflict, err := s.conflicts.RoomConflict(ctx, tx, RoomCandidate{Room: newRoom, Slot: slot, Exclude: &key, Stored: true})
		if err != nil {
			return err
		}
		if conflict != nil {
			return conflictError(appErrors.ErrRoomConflict, conflict)
		}

		newKey := models.AllocationKey{RoomKey: newRoom, ScheduleKey: key.ScheduleKey}
		if err := s.clearCancelled(ctx, tx, newKey); err != nil {
			return err
		}

		if err := s.allocations.Delete(ctx, tx, key); err != nil {
			return appErrors.Internal(err, "failed to delete previous allocation")
		}
		if err := s.occupancy.release(ctx, tx, key.RoomKey, nil); err != nil {
			return err
		}

		moved := &models.Allocation{
			AllocationKey: newKey,
			Kind:          models.AllocationRecurring,
			Status:        models.AllocationConfirmed,
			DayOfWeek:     current.DayOfWeek,
			StartTime:     current.StartTime,
		}
		if err := s.allocations.Create(ctx, tx, moved); err != nil {
			return appErrors.Internal(err, "failed to create moved allocation")
		}
		if err := s.occupancy.occupy(ctx, tx, newRoom); err != nil {
			return err
		}
		result = moved
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx)
	s.logger.Info("allocation room changed", append(keyFields(key),
		zap.Int("new_room_number", newRoom.Number),
		zap.String("new_room_type", newRoom.Type),
	)...)
	return result, nil
}

// Delete removes an allocation and releases its room.
func (s *AllocationService) Delete(ctx context.Context, key models.AllocationKey) (err error) {
	ctx, span := tracing.Start(ctx, "allocation.delete", keyAttributes(key)...)
	defer func() {
		tracing.End(span, err)
		s.observe("delete", err)
	}()

	err = withTx(ctx, s.tx, func(tx *sqlx.Tx) error {
		if err := s.lockAllocationRoom(ctx, tx, key); err != nil {
			return err
		}
		if _, err := s.findAllocation(ctx, tx, key); err != nil {
			return err
		}
		if err := s.allocations.Delete(ctx, tx, key); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrAllocationNotFound, "")
			}
			return appErrors.Internal(err, "failed to delete allocation")
		}
		return s.occupancy.release(ctx, tx, key.RoomKey, nil)
	})
	if err != nil {
		return err
	}

	s.invalidate(ctx)
	s.logger.Info("allocation deleted", keyFields(key)...)
	return nil
}

// List returns allocations matching filter, served from cache when enabled.
func (s *AllocationService) List(ctx context.Context, filter models.AllocationFilter) (result []models.AllocationDetail, err error) {
	ctx, span := tracing.Start(ctx, "allocation.list")
	defer func() { tracing.End(span, err) }()

	cacheKey := listCacheKey(filter)
	if cacheKey != "" && s.cache.Get(ctx, cacheKey, &result) {
		return result, nil
	}

	result, err = s.allocations.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list allocations")
	}
	if result == nil {
		result = []models.AllocationDetail{}
	}
	if cacheKey != "" {
		s.cache.Set(ctx, cacheKey, result, s.policy.CacheTTL)
	}
	return result, nil
}

// findSession loads the schedule behind an allocation. With lock the schedule row is held
// FOR KEY SHARE so it cannot be rescheduled or deleted before the transaction ends.
func (s *AllocationService) findSession(ctx context.Context, exec sqlx.ExtContext, key models.ScheduleKey, lock bool) (*models.ScheduledSession, error) {
	session, err := s.schedules.FindSession(ctx, exec, key, lock)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrScheduleNotFound, "")
		}
		return nil, appErrors.Internal(err, "failed to load teaching schedule")
	}
	return session, nil
}

func (s *AllocationService) findAllocation(ctx context.Context, exec sqlx.ExtContext, key models.AllocationKey) (*models.Allocation, error) {
	allocation, err := s.allocations.FindByKey(ctx, exec, key, true)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrAllocationNotFound, "")
		}
		return nil, appErrors.Internal(err, "failed to load allocation")
	}
	return allocation, nil
}

func (s *AllocationService) lockRoom(ctx context.Context, exec sqlx.ExtContext, key models.RoomKey) (*models.Room, error) {
	return lockRoom(ctx, exec, s.rooms, key)
}

// lockAllocationRoom locks the room of an existing allocation; a missing room means a missing allocation.
func (s *AllocationService) lockAllocationRoom(ctx context.Context, exec sqlx.ExtContext, key models.AllocationKey) error {
	if _, err := s.lockRoom(ctx, exec, key.RoomKey); err != nil {
		if errors.Is(err, appErrors.ErrRoomNotFound) {
			return appErrors.Clone(appErrors.ErrAllocationNotFound, "")
		}
		return err
	}
	return nil
}

// clearCancelled drops a cancelled row holding key so it can be booked again.
func (s *AllocationService) clearCancelled(ctx context.Context, exec sqlx.ExtContext, key models.AllocationKey) error {
	existing, err := s.allocations.FindByKey(ctx, exec, key, true)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil
	case err != nil:
		return appErrors.Internal(err, "failed to load allocation")
	case existing.Status != models.AllocationCancelled:
		return appErrors.Clone(appErrors.ErrAllocationExists, "")
	}
	if err := s.allocations.Delete(ctx, exec, key); err != nil {
		return appErrors.Internal(err, "failed to replace cancelled allocation")
	}
	return nil
}

func (s *AllocationService) invalidate(ctx context.Context) {
	s.cache.Invalidate(ctx, allocationCachePattern)
}

func (s *AllocationService) observe(operation string, err error) {
	s.metrics.ObserveAllocationOperation(operation, outcome(err))
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return appErrors.FromError(err).Code
}

func sessionSlot(session *models.ScheduledSession) Slot {
	return Slot{
		Term:      session.Term,
		DayOfWeek: session.DayOfWeek,
		Shift:     session.Shift,
		StartTime: session.StartTime,
		Load:      session.Load,
	}
}

func listCacheKey(filter models.AllocationFilter) string {
	payload, err := json.Marshal(filter)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(payload)
	return allocationCachePrefix + "list:" + hex.EncodeToString(sum[:12])
}

func keyFields(key models.AllocationKey) []zap.Field {
	return append([]zap.Field{
		zap.Int("room_number", key.Number),
		zap.String("room_type", key.Type),
	}, scheduleFields(key.ScheduleKey)...)
}

func scheduleFields(key models.ScheduleKey) []zap.Field {
	return []zap.Field{
		zap.Int64("professor_id", key.ProfessorID),
		zap.String("discipline", key.Name),
		zap.String("shift", key.Shift),
		zap.String("term", key.Term.Label()),
	}
}

func keyAttributes(key models.AllocationKey) []attribute.KeyValue {
	return append([]attribute.KeyValue{
		attribute.Int("room.number", key.Number),
		attribute.String("room.type", key.Type),
	}, scheduleAttributes(key.ScheduleKey)...)
}

func scheduleAttributes(key models.ScheduleKey) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int64("professor.id", key.ProfessorID),
		attribute.String("discipline.name", key.Name),
		attribute.String("discipline.shift", key.Shift),
		attribute.String("term", key.Term.Label()),
	}
}
