package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/room-allocation-api/internal/models"
	"github.com/noah-isme/room-allocation-api/internal/timeslot"
	appErrors "github.com/noah-isme/room-allocation-api/pkg/errors"
)

var testTerm = models.Term{Year: 2024, Half: 1}

func newTestTable(t *testing.T) *timeslot.Table {
	t.Helper()
	table, err := timeslot.NewTable(map[string][]string{
		models.ShiftMorning:   {"07:10", "08:00", "08:50", "09:40", "10:30", "11:20"},
		models.ShiftAfternoon: {"13:00", "13:50", "14:40", "15:30"},
	})
	require.NoError(t, err)
	return table
}

type txProviderMock struct {
	db   *sqlx.DB
	mock sqlmock.Sqlmock
}

func newTxProviderMock(t *testing.T) (*txProviderMock, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	t.Cleanup(func() { db.Close() })
	return &txProviderMock{db: sqlxdb, mock: mock}, mock
}

func (t *txProviderMock) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return t.db.BeginTxx(ctx, opts)
}

// memStore backs the repository fakes. Writes are not undone on rollback, so tests that
// need rollback semantics use the sqlmock-backed repositories instead.
type memStore struct {
	rooms       map[models.RoomKey]models.Room
	disciplines map[models.Offering]models.DisciplineOffering
	schedules   map[models.ScheduleKey]models.TeachingSchedule
	allocations map[models.AllocationKey]models.Allocation

	createAllocationErr error
	insertScheduleErr   map[int64]error
	listCalls           int
	locks               []string
	missingProfessors   map[int64]bool
}

func newMemStore() *memStore {
	return &memStore{
		rooms:             map[models.RoomKey]models.Room{},
		disciplines:       map[models.Offering]models.DisciplineOffering{},
		schedules:         map[models.ScheduleKey]models.TeachingSchedule{},
		allocations:       map[models.AllocationKey]models.Allocation{},
		insertScheduleErr: map[int64]error{},
		missingProfessors: map[int64]bool{},
	}
}

func (m *memStore) lock(format string, args ...interface{}) {
	m.locks = append(m.locks, fmt.Sprintf(format, args...))
}

func (m *memStore) addRoom(number int, roomType string, status models.RoomStatus) models.RoomKey {
	key := models.RoomKey{Number: number, Type: roomType}
	m.rooms[key] = models.Room{RoomKey: key, Status: status}
	return key
}

func (m *memStore) addDiscipline(name, shift string, load int, course string, semester int) models.Offering {
	d := models.DisciplineOffering{Name: name, Shift: shift, Load: load, Course: course, CourseSemester: semester}
	m.disciplines[d.Offering()] = d
	return d.Offering()
}

func (m *memStore) addSchedule(professorID int64, offering models.Offering, term models.Term, day int, start string) models.ScheduleKey {
	key := models.ScheduleKey{ProfessorID: professorID, Offering: offering, Term: term}
	m.schedules[key] = models.TeachingSchedule{ScheduleKey: key, DayOfWeek: day, StartTime: start}
	return key
}

func (m *memStore) addAllocation(room models.RoomKey, schedule models.ScheduleKey, status models.AllocationStatus) models.AllocationKey {
	key := models.AllocationKey{RoomKey: room, ScheduleKey: schedule}
	s := m.schedules[schedule]
	m.allocations[key] = models.Allocation{
		AllocationKey: key,
		Kind:          models.AllocationRecurring,
		Status:        status,
		DayOfWeek:     s.DayOfWeek,
		StartTime:     s.StartTime,
	}
	return key
}

func (m *memStore) roomStatus(key models.RoomKey) models.RoomStatus {
	return m.rooms[key].Status
}

func (m *memStore) session(key models.ScheduleKey) (models.ScheduledSession, bool) {
	s, ok := m.schedules[key]
	if !ok {
		return models.ScheduledSession{}, false
	}
	d := m.disciplines[key.Offering]
	return models.ScheduledSession{
		ScheduleKey:    key,
		DayOfWeek:      s.DayOfWeek,
		StartTime:      s.StartTime,
		Load:           d.Load,
		Course:         d.Course,
		CourseSemester: d.CourseSemester,
	}, true
}

func (m *memStore) sessionsWhere(match func(models.ScheduledSession) bool) []models.ScheduledSession {
	var out []models.ScheduledSession
	for key := range m.schedules {
		s, _ := m.session(key)
		if match(s) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime < out[j].StartTime })
	return out
}

type memRooms struct{ *memStore }

func (r memRooms) FindByKey(_ context.Context, _ sqlx.ExtContext, key models.RoomKey, forUpdate bool) (*models.Room, error) {
	if forUpdate {
		r.lock("room %d/%s", key.Number, key.Type)
	}
	room, ok := r.rooms[key]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &room, nil
}

func (r memRooms) UpdateStatus(_ context.Context, _ sqlx.ExtContext, key models.RoomKey, status models.RoomStatus) error {
	room, ok := r.rooms[key]
	if !ok {
		return sql.ErrNoRows
	}
	room.Status = status
	r.rooms[key] = room
	return nil
}

type memDisciplines struct{ *memStore }

func (d memDisciplines) FindByKey(_ context.Context, _ sqlx.ExtContext, offering models.Offering) (*models.DisciplineOffering, error) {
	discipline, ok := d.disciplines[offering]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &discipline, nil
}

type memSchedules struct{ *memStore }

func (s memSchedules) FindByKey(_ context.Context, _ sqlx.ExtContext, key models.ScheduleKey, forUpdate bool) (*models.TeachingSchedule, error) {
	if forUpdate {
		s.lock("schedule %d/%s", key.ProfessorID, key.Name)
	}
	schedule, ok := s.schedules[key]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &schedule, nil
}

func (s memSchedules) FindSession(_ context.Context, _ sqlx.ExtContext, key models.ScheduleKey, lock bool) (*models.ScheduledSession, error) {
	if lock {
		s.lock("schedule %d/%s", key.ProfessorID, key.Name)
	}
	session, ok := s.session(key)
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &session, nil
}

func (s memSchedules) LockProfessor(_ context.Context, _ sqlx.ExtContext, professorID int64) error {
	if s.missingProfessors[professorID] {
		return sql.ErrNoRows
	}
	s.lock("professor %d", professorID)
	return nil
}

func (s memSchedules) LockCohort(_ context.Context, _ sqlx.ExtContext, course string, semester int) error {
	s.lock("cohort %s/%d", course, semester)
	return nil
}

func (s memSchedules) ListByProfessorDay(_ context.Context, _ sqlx.ExtContext, professorID int64, term models.Term, day int) ([]models.ScheduledSession, error) {
	return s.sessionsWhere(func(x models.ScheduledSession) bool {
		return x.ProfessorID == professorID && x.Term == term && x.DayOfWeek == day
	}), nil
}

func (s memSchedules) ListByCohortDay(_ context.Context, _ sqlx.ExtContext, course string, semester int, term models.Term, day int) ([]models.ScheduledSession, error) {
	return s.sessionsWhere(func(x models.ScheduledSession) bool {
		return x.Course == course && x.CourseSemester == semester && x.Term == term && x.DayOfWeek == day
	}), nil
}

func (s memSchedules) Create(_ context.Context, _ sqlx.ExtContext, schedule *models.TeachingSchedule) error {
	if _, ok := s.schedules[schedule.ScheduleKey]; ok {
		return errors.New("duplicate key")
	}
	schedule.CreatedAt = time.Now()
	s.schedules[schedule.ScheduleKey] = *schedule
	return nil
}

func (s memSchedules) InsertIgnoreDuplicate(_ context.Context, _ sqlx.ExtContext, schedule *models.TeachingSchedule) (bool, error) {
	if err := s.insertScheduleErr[schedule.ProfessorID]; err != nil {
		return false, err
	}
	if _, ok := s.schedules[schedule.ScheduleKey]; ok {
		return false, nil
	}
	s.schedules[schedule.ScheduleKey] = *schedule
	return true, nil
}

func (s memSchedules) UpdateSlot(_ context.Context, _ sqlx.ExtContext, key models.ScheduleKey, day int, start string) error {
	schedule, ok := s.schedules[key]
	if !ok {
		return sql.ErrNoRows
	}
	schedule.DayOfWeek = day
	schedule.StartTime = start
	s.schedules[key] = schedule
	return nil
}

func (s memSchedules) Delete(_ context.Context, _ sqlx.ExtContext, key models.ScheduleKey) error {
	if _, ok := s.schedules[key]; !ok {
		return sql.ErrNoRows
	}
	delete(s.schedules, key)
	for k := range s.allocations {
		if k.ScheduleKey == key {
			delete(s.allocations, k)
		}
	}
	return nil
}

func (s memSchedules) ListByTerm(_ context.Context, term models.Term) ([]models.TeachingSchedule, error) {
	var out []models.TeachingSchedule
	for _, schedule := range s.schedules {
		if schedule.Term == term {
			out = append(out, schedule)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProfessorID < out[j].ProfessorID })
	return out, nil
}

func (s memSchedules) List(_ context.Context, filter models.TeachingScheduleFilter) ([]models.TeachingSchedule, error) {
	var out []models.TeachingSchedule
	for _, schedule := range s.schedules {
		if filter.ProfessorID != nil && schedule.ProfessorID != *filter.ProfessorID {
			continue
		}
		out = append(out, schedule)
	}
	return out, nil
}

type memAllocations struct{ *memStore }

func (a memAllocations) FindByKey(_ context.Context, _ sqlx.ExtContext, key models.AllocationKey, forUpdate bool) (*models.Allocation, error) {
	if forUpdate {
		a.lock("allocation %d/%s %d/%s", key.Number, key.Type, key.ProfessorID, key.Name)
	}
	allocation, ok := a.allocations[key]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &allocation, nil
}

func (a memAllocations) Create(_ context.Context, _ sqlx.ExtContext, allocation *models.Allocation) error {
	if a.createAllocationErr != nil {
		return a.createAllocationErr
	}
	if _, ok := a.allocations[allocation.AllocationKey]; ok {
		return errors.New("duplicate key")
	}
	allocation.CreatedAt = time.Now()
	a.allocations[allocation.AllocationKey] = *allocation
	return nil
}

func (a memAllocations) UpdateStatus(_ context.Context, _ sqlx.ExtContext, key models.AllocationKey, status models.AllocationStatus) error {
	allocation, ok := a.allocations[key]
	if !ok {
		return sql.ErrNoRows
	}
	allocation.Status = status
	a.allocations[key] = allocation
	return nil
}

func (a memAllocations) Delete(_ context.Context, _ sqlx.ExtContext, key models.AllocationKey) error {
	if _, ok := a.allocations[key]; !ok {
		return sql.ErrNoRows
	}
	delete(a.allocations, key)
	return nil
}

func (a memAllocations) CountConfirmedByRoom(_ context.Context, _ sqlx.ExtContext, room models.RoomKey, exclude *models.AllocationKey) (int, error) {
	count := 0
	for key, allocation := range a.allocations {
		if key.RoomKey != room || allocation.Status != models.AllocationConfirmed {
			continue
		}
		if exclude != nil && key == *exclude {
			continue
		}
		count++
	}
	return count, nil
}

func (a memAllocations) ListActiveByRoomDay(_ context.Context, _ sqlx.ExtContext, room models.RoomKey, term models.Term, day int) ([]models.RoomBooking, error) {
	var out []models.RoomBooking
	for key, allocation := range a.allocations {
		if key.RoomKey != room || key.Term != term || allocation.DayOfWeek != day || !allocation.Status.Active() {
			continue
		}
		out = append(out, models.RoomBooking{
			AllocationKey: key,
			Status:        allocation.Status,
			DayOfWeek:     allocation.DayOfWeek,
			StartTime:     allocation.StartTime,
			Load:          a.disciplines[key.Offering].Load,
		})
	}
	return out, nil
}

func (a memAllocations) ListBySchedule(_ context.Context, _ sqlx.ExtContext, key models.ScheduleKey) ([]models.Allocation, error) {
	var out []models.Allocation
	for k, allocation := range a.allocations {
		if k.ScheduleKey == key {
			out = append(out, allocation)
		}
	}
	return out, nil
}

func (a memAllocations) UpdateScheduleSlot(_ context.Context, _ sqlx.ExtContext, key models.ScheduleKey, day int, start string) error {
	for k, allocation := range a.allocations {
		if k.ScheduleKey == key {
			allocation.DayOfWeek = day
			allocation.StartTime = start
			a.allocations[k] = allocation
		}
	}
	return nil
}

func (a memAllocations) List(_ context.Context, filter models.AllocationFilter) ([]models.AllocationDetail, error) {
	a.listCalls++
	var out []models.AllocationDetail
	for key, allocation := range a.allocations {
		if filter.ProfessorID != nil && key.ProfessorID != *filter.ProfessorID {
			continue
		}
		if filter.Status != nil && allocation.Status != *filter.Status {
			continue
		}
		out = append(out, models.AllocationDetail{Allocation: allocation})
	}
	return out, nil
}

// memCache is an in-process CacheRepository.
type memCache struct {
	values map[string][]models.AllocationDetail
}

func newMemCache() *memCache {
	return &memCache{values: map[string][]models.AllocationDetail{}}
}

func (c *memCache) Get(_ context.Context, key string, dest interface{}) error {
	value, ok := c.values[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	*(dest.(*[]models.AllocationDetail)) = value
	return nil
}

func (c *memCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	c.values[key] = value.([]models.AllocationDetail)
	return nil
}

func (c *memCache) DeleteByPattern(_ context.Context, _ string) error {
	c.values = map[string][]models.AllocationDetail{}
	return nil
}
