package models

import "time"

// ScheduleKey identifies a teaching schedule. A professor teaches an offering at most once per term.
type ScheduleKey struct {
	ProfessorID int64 `db:"professor_id" json:"professor_id" validate:"required,gt=0"`
	Offering
	Term
}

// TeachingSchedule is a professor's weekly commitment to an offering within a term.
type TeachingSchedule struct {
	ScheduleKey
	DayOfWeek int       `db:"day_of_week" json:"day_of_week"`
	StartTime string    `db:"start_time" json:"start_time"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// ScheduledSession is a teaching schedule joined with its offering's load and cohort.
type ScheduledSession struct {
	ScheduleKey
	DayOfWeek      int    `db:"day_of_week" json:"day_of_week"`
	StartTime      string `db:"start_time" json:"start_time"`
	Load           int    `db:"load" json:"load"`
	Course         string `db:"course" json:"course"`
	CourseSemester int    `db:"course_semester" json:"course_semester"`
}

// TeachingScheduleFilter narrows teaching schedule listings. Nil fields impose no constraint.
type TeachingScheduleFilter struct {
	ProfessorID    *int64
	TermYear       *int
	TermHalf       *int
	Course         *string
	Shift          *string
	CourseSemester *int
}
