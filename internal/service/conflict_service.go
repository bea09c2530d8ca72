package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/room-allocation-api/internal/models"
	"github.com/noah-isme/room-allocation-api/internal/timeslot"
	appErrors "github.com/noah-isme/room-allocation-api/pkg/errors"
)

type roomBookingReader interface {
	ListActiveByRoomDay(ctx context.Context, exec sqlx.ExtContext, room models.RoomKey, term models.Term, day int) ([]models.RoomBooking, error)
}

type sessionReader interface {
	ListByProfessorDay(ctx context.Context, exec sqlx.ExtContext, professorID int64, term models.Term, day int) ([]models.ScheduledSession, error)
	ListByCohortDay(ctx context.Context, exec sqlx.ExtContext, course string, semester int, term models.Term, day int) ([]models.ScheduledSession, error)
}

// Slot places a candidate session in time.
type Slot struct {
	Term      models.Term
	DayOfWeek int
	Shift     string
	StartTime string
	Load      int
}

// RoomCandidate is a prospective room booking. Exclude skips one allocation, typically the one being updated.
// Stored marks a slot read from a persisted teaching schedule rather than from request input.
type RoomCandidate struct {
	Room    models.RoomKey
	Slot    Slot
	Exclude *models.AllocationKey
	Stored  bool
}

// ProfessorCandidate is a prospective professor commitment.
type ProfessorCandidate struct {
	ProfessorID     int64
	Slot            Slot
	ExcludeOffering *models.Offering
}

// CohortCandidate is a prospective commitment of a course semester.
type CohortCandidate struct {
	Course          string
	CourseSemester  int
	Slot            Slot
	ExcludeOffering *models.Offering
}

// ConflictService answers whether a candidate overlaps an existing active commitment.
// Every check is read-only; pass a transaction as exec to read under its locks.
type ConflictService struct {
	table    *timeslot.Table
	bookings roomBookingReader
	sessions sessionReader
}

// NewConflictService constructs the conflict checker.
func NewConflictService(table *timeslot.Table, bookings roomBookingReader, sessions sessionReader) *ConflictService {
	return &ConflictService{table: table, bookings: bookings, sessions: sessions}
}

// Occupied resolves the window of a candidate, mapping slot table failures to input errors.
func (s *ConflictService) Occupied(slot Slot) (timeslot.Window, error) {
	window, err := s.table.Window(slot.Shift, slot.StartTime, slot.Load)
	if err != nil {
		return timeslot.Window{}, slotInputError(err)
	}
	return window, nil
}

// RoomConflict returns the first pending or confirmed booking of the room that overlaps the candidate, or nil.
func (s *ConflictService) RoomConflict(ctx context.Context, exec sqlx.ExtContext, c RoomCandidate) (*models.BookingConflict, error) {
	want, err := s.table.Window(c.Slot.Shift, c.Slot.StartTime, c.Slot.Load)
	if err != nil {
		if c.Stored {
			return nil, storedSlotError(err, fmt.Sprintf("teaching schedule booked into room %d/%s", c.Room.Number, c.Room.Type))
		}
		return nil, slotInputError(err)
	}
	bookings, err := s.bookings.ListActiveByRoomDay(ctx, exec, c.Room, c.Slot.Term, c.Slot.DayOfWeek)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load room bookings")
	}
	for _, b := range bookings {
		if c.Exclude != nil && b.AllocationKey == *c.Exclude {
			continue
		}
		if !b.Status.Active() {
			continue
		}
		have, err := s.table.Window(b.Shift, b.StartTime, b.Load)
		if err != nil {
			return nil, storedSlotError(err, fmt.Sprintf("allocation of room %d/%s", b.Number, b.Type))
		}
		if want.Overlaps(have) {
			room := b.RoomKey
			return &models.BookingConflict{
				Dimension:   models.DimensionRoom,
				ProfessorID: b.ProfessorID,
				Offering:    b.Offering,
				Term:        b.Term,
				Room:        &room,
				DayOfWeek:   b.DayOfWeek,
				StartTime:   b.StartTime,
				Slots:       have.Slots,
			}, nil
		}
	}
	return nil, nil
}

// ProfessorConflict returns the first session of the professor that overlaps the candidate, or nil.
func (s *ConflictService) ProfessorConflict(ctx context.Context, exec sqlx.ExtContext, c ProfessorCandidate) (*models.BookingConflict, error) {
	want, err := s.Occupied(c.Slot)
	if err != nil {
		return nil, err
	}
	sessions, err := s.sessions.ListByProfessorDay(ctx, exec, c.ProfessorID, c.Slot.Term, c.Slot.DayOfWeek)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load professor sessions")
	}
	return s.firstOverlap(models.DimensionProfessor, want, sessions, c.ExcludeOffering)
}

// CohortConflict returns the first session of the course semester that overlaps the candidate, or nil.
func (s *ConflictService) CohortConflict(ctx context.Context, exec sqlx.ExtContext, c CohortCandidate) (*models.BookingConflict, error) {
	want, err := s.Occupied(c.Slot)
	if err != nil {
		return nil, err
	}
	sessions, err := s.sessions.ListByCohortDay(ctx, exec, c.Course, c.CourseSemester, c.Slot.Term, c.Slot.DayOfWeek)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load cohort sessions")
	}
	return s.firstOverlap(models.DimensionCohort, want, sessions, c.ExcludeOffering)
}

func (s *ConflictService) firstOverlap(dimension string, want timeslot.Window, sessions []models.ScheduledSession, exclude *models.Offering) (*models.BookingConflict, error) {
	for _, session := range sessions {
		if exclude != nil && session.Offering == *exclude {
			continue
		}
		have, err := s.table.Window(session.Shift, session.StartTime, session.Load)
		if err != nil {
			return nil, storedSlotError(err, fmt.Sprintf("schedule of professor %d for %s/%s", session.ProfessorID, session.Name, session.Shift))
		}
		if want.Overlaps(have) {
			return &models.BookingConflict{
				Dimension:   dimension,
				ProfessorID: session.ProfessorID,
				Offering:    session.Offering,
				Term:        session.Term,
				DayOfWeek:   session.DayOfWeek,
				StartTime:   session.StartTime,
				Slots:       have.Slots,
			}, nil
		}
	}
	return nil, nil
}

func slotInputError(err error) error {
	switch {
	case errors.Is(err, timeslot.ErrUnknownShift):
		return appErrors.Wrap(err, appErrors.ErrInvalidShift.Code, appErrors.ErrInvalidShift.Status, appErrors.ErrInvalidShift.Message)
	case errors.Is(err, timeslot.ErrUnknownStart):
		return appErrors.Wrap(err, appErrors.ErrInvalidStartTime.Code, appErrors.ErrInvalidStartTime.Status, appErrors.ErrInvalidStartTime.Message)
	default:
		return appErrors.Wrap(err, appErrors.ErrInvalidLoad.Code, appErrors.ErrInvalidLoad.Status, appErrors.ErrInvalidLoad.Message)
	}
}

// storedSlotError reports persisted rows whose slot data no longer fits the table.
func storedSlotError(err error, what string) error {
	return appErrors.Internal(err, "malformed slot data on stored "+what)
}

func conflictError(base *appErrors.Error, conflict *models.BookingConflict) error {
	detail := &models.BookingConflictError{Message: base.Message, Conflict: *conflict}
	return appErrors.Wrap(detail, base.Code, base.Status, base.Message)
}
