package models

import "time"

// AllocationStatus tracks the approval workflow of a booking.
type AllocationStatus string

const (
	AllocationPending   AllocationStatus = "pending"
	AllocationConfirmed AllocationStatus = "confirmed"
	AllocationCancelled AllocationStatus = "cancelled"
)

// Valid reports whether s is a known status.
func (s AllocationStatus) Valid() bool {
	switch s {
	case AllocationPending, AllocationConfirmed, AllocationCancelled:
		return true
	}
	return false
}

// Active reports whether the status holds a slot for conflict purposes.
func (s AllocationStatus) Active() bool {
	return s == AllocationPending || s == AllocationConfirmed
}

// AllocationKind distinguishes weekly bookings from single occurrences.
type AllocationKind string

const (
	AllocationRecurring AllocationKind = "recurring"
	AllocationOneOff    AllocationKind = "one_off"
)

// Valid reports whether k is a known kind.
func (k AllocationKind) Valid() bool {
	return k == AllocationRecurring || k == AllocationOneOff
}

// AllocationKey identifies an allocation: one room for one teaching schedule.
type AllocationKey struct {
	RoomKey
	ScheduleKey
}

// Allocation books one room for one teaching schedule. Day and start time are copied from the schedule.
type Allocation struct {
	AllocationKey
	Kind      AllocationKind   `db:"kind" json:"kind"`
	Status    AllocationStatus `db:"status" json:"status"`
	DayOfWeek int              `db:"day_of_week" json:"day_of_week"`
	StartTime string           `db:"start_time" json:"start_time"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt time.Time        `db:"updated_at" json:"updated_at"`
}

// AllocationDetail is the listing projection of an allocation.
type AllocationDetail struct {
	Allocation
	ProfessorName  string `db:"professor_name" json:"professor_name"`
	Course         string `db:"course" json:"course"`
	CourseSemester int    `db:"course_semester" json:"course_semester"`
	Load           int    `db:"load" json:"load"`
}

// RoomBooking is an active allocation of a room joined with the load of its offering.
type RoomBooking struct {
	AllocationKey
	Status    AllocationStatus `db:"status" json:"status"`
	DayOfWeek int              `db:"day_of_week" json:"day_of_week"`
	StartTime string           `db:"start_time" json:"start_time"`
	Load      int              `db:"load" json:"load"`
}

// AllocationFilter narrows allocation listings. Nil fields impose no constraint; set fields are ANDed.
type AllocationFilter struct {
	RoomNumber     *int              `json:"room_number,omitempty"`
	RoomType       *string           `json:"room_type,omitempty"`
	ProfessorID    *int64            `json:"professor_id,omitempty"`
	DisciplineName *string           `json:"discipline_name,omitempty"`
	Shift          *string           `json:"shift,omitempty"`
	TermYear       *int              `json:"term_year,omitempty"`
	TermHalf       *int              `json:"term_half,omitempty"`
	Kind           *AllocationKind   `json:"kind,omitempty"`
	Status         *AllocationStatus `json:"status,omitempty"`
	Course         *string           `json:"course,omitempty"`
	CourseSemester *int              `json:"course_semester,omitempty"`
}
