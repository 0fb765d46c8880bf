package dummydb

import (
	"context"
	"sort"

	"github.com/mavlabs/read/core"
	"github.com/mavlabs/read/core/academic"
)

type academicYearRepository struct {
	db *academicYearTable
}

var _ academic.Repository = (*academicYearRepository)(nil) // interface compliance check

func NewAcademicYearRepository(db *DB) academic.Repository {
	return &academicYearRepository{db: db.academicYear}
}

func (repo *academicYearRepository) CreateYear(ctx context.Context, year academic.Year, exec ...core.DBExecutor) (academic.Year, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	repo.db.table[year.ID] = &year
	return year, nil
}

func (repo *academicYearRepository) GetYear(ctx context.Context, filter academic.GetFilter, exec ...core.DBExecutor) (academic.Year, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if filter.ID != "" {
		if year, ok := repo.db.table[filter.ID]; ok {
			return *year, nil
		}
		return academic.Year{}, academic.ErrNotFound
	}
	for _, year := range repo.db.table {
		if year.Name == filter.Name {
			return *year, nil
		}
	}
	return academic.Year{}, academic.ErrNotFound
}

func (repo *academicYearRepository) QueryYears(ctx context.Context, exec ...core.DBExecutor) ([]academic.Year, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	years := make([]academic.Year, 0, len(repo.db.table))
	for _, year := range repo.db.table {
		years = append(years, *year)
	}
	sort.Slice(years, func(i, j int) bool { return years[i].Name < years[j].Name })
	return years, nil
}

func (repo *academicYearRepository) RenameYear(ctx context.Context, id, name string, exec ...core.DBExecutor) (academic.Year, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	year, ok := repo.db.table[id]
	if !ok {
		return academic.Year{}, academic.ErrNotFound
	}
	year.Name = name
	return *year, nil
}
