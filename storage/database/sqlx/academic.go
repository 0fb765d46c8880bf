package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/mavlabs/read/core"
	"github.com/mavlabs/read/core/academic"
)

type academicYearRow struct {
	ID        string    `db:"id"`
	Name      string    `db:"name"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (r academicYearRow) year() academic.Year {
	return academic.Year{
		ID:        r.ID,
		Name:      r.Name,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

type academicYearRepository struct {
	db *sqlx.DB
}

var _ academic.Repository = (*academicYearRepository)(nil) // interface compliance check

func NewAcademicYearRepository(db *sqlx.DB) academic.Repository {
	return &academicYearRepository{db: db}
}

func (repo *academicYearRepository) CreateYear(ctx context.Context, year academic.Year, exec ...core.DBExecutor) (academic.Year, error) {
	const q = `
INSERT INTO academic_year (id, name, created_at, updated_at)
VALUES ($1, $2, $3, $4)`
	e := ext(repo.db, exec)
	if _, err := e.ExecContext(ctx, q, year.ID, year.Name, year.CreatedAt, year.UpdatedAt); err != nil {
		return academic.Year{}, errors.Wrap(err, "inserting academic year")
	}
	return year, nil
}

func (repo *academicYearRepository) GetYear(ctx context.Context, filter academic.GetFilter, exec ...core.DBExecutor) (academic.Year, error) {
	q := `SELECT id, name, created_at, updated_at FROM academic_year WHERE id = $1`
	arg := filter.ID
	if filter.ID == "" {
		q = `SELECT id, name, created_at, updated_at FROM academic_year WHERE name = $1`
		arg = filter.Name
	}

	var row academicYearRow
	if err := sqlx.GetContext(ctx, ext(repo.db, exec), &row, q, arg); err != nil {
		return academic.Year{}, trapNoRowsErr(err, academic.ErrNotFound, "getting academic year")
	}
	return row.year(), nil
}

func (repo *academicYearRepository) QueryYears(ctx context.Context, exec ...core.DBExecutor) ([]academic.Year, error) {
	const q = `SELECT id, name, created_at, updated_at FROM academic_year ORDER BY name`

	var rows []academicYearRow
	if err := sqlx.SelectContext(ctx, ext(repo.db, exec), &rows, q); err != nil {
		return nil, errors.Wrap(err, "querying academic years")
	}
	years := make([]academic.Year, 0, len(rows))
	for _, row := range rows {
		years = append(years, row.year())
	}
	return years, nil
}

func (repo *academicYearRepository) RenameYear(ctx context.Context, id, name string, exec ...core.DBExecutor) (academic.Year, error) {
	const q = `
UPDATE academic_year SET name = $2, updated_at = $3
WHERE id = $1
RETURNING id, name, created_at, updated_at`

	var row academicYearRow
	if err := sqlx.GetContext(ctx, ext(repo.db, exec), &row, q, id, name, time.Now().UTC()); err != nil {
		return academic.Year{}, trapNoRowsErr(err, academic.ErrNotFound, "renaming academic year")
	}
	return row.year(), nil
}
