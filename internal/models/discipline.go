package models

// Shift names recognised by the slot table.
const (
	ShiftMorning   = "morning"
	ShiftAfternoon = "afternoon"
	ShiftEvening   = "evening"
)

// Offering identifies a discipline section by name and shift.
type Offering struct {
	Name  string `db:"discipline_name" json:"discipline_name" validate:"required"`
	Shift string `db:"discipline_shift" json:"discipline_shift" validate:"required"`
}

// DisciplineOffering carries the load and cohort of an offering.
type DisciplineOffering struct {
	Name           string `db:"name" json:"name"`
	Shift          string `db:"shift" json:"shift"`
	Load           int    `db:"load" json:"load"`
	Course         string `db:"course" json:"course"`
	CourseSemester int    `db:"course_semester" json:"course_semester"`
}

// Offering returns the (name, shift) identity.
func (d DisciplineOffering) Offering() Offering {
	return Offering{Name: d.Name, Shift: d.Shift}
}
