package models

import "fmt"

// Term identifies an academic period by year and half-year.
type Term struct {
	Year int `db:"term_year" json:"term_year" validate:"required,gte=2000,lte=2100"`
	Half int `db:"term_half" json:"term_half" validate:"required,oneof=1 2"`
}

// Label renders the term as YYYY/H.
func (t Term) Label() string {
	return fmt.Sprintf("%d/%d", t.Year, t.Half)
}
