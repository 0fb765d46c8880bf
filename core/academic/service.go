package academic

import (
	"context"
	"errors"
	"time"

	"github.com/mavlabs/read/core"
)

var ErrNotFound = errors.New("academic year not found")

type (
	// GetFilter fields are mutually exclusive; the first non-empty one wins.
	GetFilter struct {
		ID   string
		Name string
	}

	Repository interface {
		CreateYear(ctx context.Context, year Year, exec ...core.DBExecutor) (Year, error)
		GetYear(ctx context.Context, filter GetFilter, exec ...core.DBExecutor) (Year, error)
		QueryYears(ctx context.Context, exec ...core.DBExecutor) ([]Year, error)
		RenameYear(ctx context.Context, id, name string, exec ...core.DBExecutor) (Year, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Create(ctx context.Context, ny NewYear) (Year, error) {
	now := time.Now().UTC()
	year := Year{
		ID:        core.NewKey(),
		Name:      ny.Name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return svc.repo.CreateYear(ctx, year)
}

func (svc *Service) QueryAll(ctx context.Context) ([]Year, error) {
	return svc.repo.QueryYears(ctx)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Year, error) {
	return svc.repo.GetYear(ctx, GetFilter{ID: id})
}

// Current resolves the academic year running at t. t is computed once at the
// request boundary so that core logic stays deterministic under test clocks.
func (svc *Service) Current(ctx context.Context, t time.Time) (Year, error) {
	return svc.repo.GetYear(ctx, GetFilter{Name: YearName(t)})
}

func (svc *Service) Rename(ctx context.Context, id, name string) (Year, error) {
	return svc.repo.RenameYear(ctx, id, core.CleanString(name))
}
