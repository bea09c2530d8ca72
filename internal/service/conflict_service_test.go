package service

import (
	"context"
	"errors"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/room-allocation-api/internal/models"
	appErrors "github.com/noah-isme/room-allocation-api/pkg/errors"
)

type failingBookings struct{}

func (failingBookings) ListActiveByRoomDay(context.Context, sqlx.ExtContext, models.RoomKey, models.Term, int) ([]models.RoomBooking, error) {
	return nil, errors.New("connection refused")
}

func newConflictFixture(t *testing.T) (*ConflictService, *memStore) {
	store := newMemStore()
	return NewConflictService(newTestTable(t), memAllocations{store}, memSchedules{store}), store
}

func morningSlot(start string, load int) Slot {
	return Slot{Term: testTerm, DayOfWeek: 2, Shift: models.ShiftMorning, StartTime: start, Load: load}
}

func TestRoomConflictDetectsOverlapOnSameDay(t *testing.T) {
	svc, store := newConflictFixture(t)
	room := store.addRoom(101, "sala", models.RoomStatusFree)
	calculus := store.addSchedule(7, store.addDiscipline("Calculus", models.ShiftMorning, 2, "engineering", 1), testTerm, 2, "08:00")
	existing := store.addAllocation(room, calculus, models.AllocationPending)
	ctx := context.Background()

	conflict, err := svc.RoomConflict(ctx, nil, RoomCandidate{Room: room, Slot: morningSlot("08:50", 1)})
	require.NoError(t, err)
	require.NotNil(t, conflict)
	assert.Equal(t, models.DimensionRoom, conflict.Dimension)
	assert.Equal(t, &room, conflict.Room)

	conflict, err = svc.RoomConflict(ctx, nil, RoomCandidate{Room: room, Slot: morningSlot("09:40", 2)})
	require.NoError(t, err)
	assert.Nil(t, conflict)

	other := morningSlot("08:00", 1)
	other.DayOfWeek = 3
	conflict, err = svc.RoomConflict(ctx, nil, RoomCandidate{Room: room, Slot: other})
	require.NoError(t, err)
	assert.Nil(t, conflict)

	conflict, err = svc.RoomConflict(ctx, nil, RoomCandidate{Room: room, Slot: morningSlot("08:00", 2), Exclude: &existing})
	require.NoError(t, err)
	assert.Nil(t, conflict)
}

func TestRoomConflictIgnoresCancelledAndOtherTerms(t *testing.T) {
	svc, store := newConflictFixture(t)
	room := store.addRoom(101, "sala", models.RoomStatusFree)
	offering := store.addDiscipline("Calculus", models.ShiftMorning, 2, "engineering", 1)
	cancelled := store.addSchedule(7, offering, testTerm, 2, "08:00")
	store.addAllocation(room, cancelled, models.AllocationCancelled)
	later := store.addSchedule(8, offering, models.Term{Year: 2024, Half: 2}, 2, "08:00")
	store.addAllocation(room, later, models.AllocationConfirmed)

	conflict, err := svc.RoomConflict(context.Background(), nil, RoomCandidate{Room: room, Slot: morningSlot("08:00", 1)})
	require.NoError(t, err)
	assert.Nil(t, conflict)
}

func TestProfessorConflictExcludesEditedOffering(t *testing.T) {
	svc, store := newConflictFixture(t)
	calculus := store.addDiscipline("Calculus", models.ShiftMorning, 2, "engineering", 1)
	store.addSchedule(7, calculus, testTerm, 2, "08:00")
	ctx := context.Background()

	conflict, err := svc.ProfessorConflict(ctx, nil, ProfessorCandidate{ProfessorID: 7, Slot: morningSlot("08:50", 1)})
	require.NoError(t, err)
	require.NotNil(t, conflict)
	assert.Equal(t, models.DimensionProfessor, conflict.Dimension)
	assert.Equal(t, calculus, conflict.Offering)

	conflict, err = svc.ProfessorConflict(ctx, nil, ProfessorCandidate{ProfessorID: 7, Slot: morningSlot("08:50", 1), ExcludeOffering: &calculus})
	require.NoError(t, err)
	assert.Nil(t, conflict)

	conflict, err = svc.ProfessorConflict(ctx, nil, ProfessorCandidate{ProfessorID: 8, Slot: morningSlot("08:00", 2)})
	require.NoError(t, err)
	assert.Nil(t, conflict)
}

func TestCohortConflictScansCourseSemester(t *testing.T) {
	svc, store := newConflictFixture(t)
	calculus := store.addDiscipline("Calculus", models.ShiftMorning, 2, "engineering", 1)
	store.addSchedule(7, calculus, testTerm, 2, "08:00")
	ctx := context.Background()

	conflict, err := svc.CohortConflict(ctx, nil, CohortCandidate{Course: "engineering", CourseSemester: 1, Slot: morningSlot("07:10", 2)})
	require.NoError(t, err)
	require.NotNil(t, conflict)
	assert.Equal(t, models.DimensionCohort, conflict.Dimension)
	assert.Equal(t, int64(7), conflict.ProfessorID)

	conflict, err = svc.CohortConflict(ctx, nil, CohortCandidate{Course: "engineering", CourseSemester: 2, Slot: morningSlot("07:10", 2)})
	require.NoError(t, err)
	assert.Nil(t, conflict)
}

func TestConflictCandidateSlotErrorsAreInputErrors(t *testing.T) {
	svc, _ := newConflictFixture(t)
	ctx := context.Background()
	room := models.RoomKey{Number: 101, Type: "sala"}

	slot := morningSlot("08:00", 1)
	slot.Shift = "night"
	_, err := svc.RoomConflict(ctx, nil, RoomCandidate{Room: room, Slot: slot})
	assert.ErrorIs(t, err, appErrors.ErrInvalidShift)

	_, err = svc.ProfessorConflict(ctx, nil, ProfessorCandidate{ProfessorID: 7, Slot: morningSlot("08:15", 1)})
	assert.ErrorIs(t, err, appErrors.ErrInvalidStartTime)

	_, err = svc.CohortConflict(ctx, nil, CohortCandidate{Course: "engineering", CourseSemester: 1, Slot: morningSlot("11:20", 2)})
	assert.ErrorIs(t, err, appErrors.ErrInvalidLoad)
}

func TestConflictStoredSlotErrorsAreInternal(t *testing.T) {
	svc, store := newConflictFixture(t)
	broken := store.addDiscipline("Legacy", models.ShiftMorning, 1, "engineering", 1)
	store.addSchedule(7, broken, testTerm, 2, "08:05")

	_, err := svc.ProfessorConflict(context.Background(), nil, ProfessorCandidate{ProfessorID: 7, Slot: morningSlot("08:00", 1)})
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrInternal)
}

func TestRoomConflictStoredCandidateSlotErrorIsInternal(t *testing.T) {
	svc, _ := newConflictFixture(t)
	room := models.RoomKey{Number: 101, Type: "sala"}

	_, err := svc.RoomConflict(context.Background(), nil, RoomCandidate{Room: room, Slot: morningSlot("08:15", 1), Stored: true})
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrInternal)
	assert.False(t, errors.Is(err, appErrors.ErrInvalidStartTime))
}

func TestRoomConflictStoreFailure(t *testing.T) {
	svc := NewConflictService(newTestTable(t), failingBookings{}, nil)
	_, err := svc.RoomConflict(context.Background(), nil, RoomCandidate{Room: models.RoomKey{Number: 1, Type: "lab"}, Slot: morningSlot("08:00", 1)})
	assert.ErrorIs(t, err, appErrors.ErrInternal)
}
