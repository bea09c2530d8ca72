package models

// Conflict dimensions.
const (
	DimensionRoom      = "ROOM"
	DimensionProfessor = "PROFESSOR"
	DimensionCohort    = "COHORT"
)

// BookingConflict describes the existing commitment that collides with a candidate.
type BookingConflict struct {
	Dimension   string   `json:"dimension"`
	ProfessorID int64    `json:"professor_id"`
	Offering    Offering `json:"offering"`
	Term        Term     `json:"term"`
	Room        *RoomKey `json:"room,omitempty"`
	DayOfWeek   int      `json:"day_of_week"`
	StartTime   string   `json:"start_time"`
	Slots       []string `json:"slots"`
}

// BookingConflictError is wrapped by conflict failures so callers can inspect the collision.
type BookingConflictError struct {
	Message  string          `json:"message"`
	Conflict BookingConflict `json:"conflict"`
}

// Error implements the error interface for conflict errors.
func (e *BookingConflictError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Message
}
