package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/room-allocation-api/internal/models"
)

// DisciplineRepository looks up discipline offerings.
type DisciplineRepository struct {
	db *sqlx.DB
}

// NewDisciplineRepository creates a discipline repository.
func NewDisciplineRepository(db *sqlx.DB) *DisciplineRepository {
	return &DisciplineRepository{db: db}
}

// FindByKey loads an offering by name and shift.
func (r *DisciplineRepository) FindByKey(ctx context.Context, exec sqlx.ExtContext, offering models.Offering) (*models.DisciplineOffering, error) {
	if exec == nil {
		exec = r.db
	}
	const query = `SELECT name, shift, load, course, course_semester FROM disciplines WHERE name = $1 AND shift = $2`
	var discipline models.DisciplineOffering
	if err := sqlx.GetContext(ctx, exec, &discipline, query, offering.Name, offering.Shift); err != nil {
		return nil, err
	}
	return &discipline, nil
}
