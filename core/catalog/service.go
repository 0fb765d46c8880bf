package catalog

import (
	"context"
	"errors"

	"github.com/mavlabs/read/core"
)

var (
	ErrLevelNotFound     = errors.New("level not found")
	ErrBookNotFound      = errors.New("book not found")
	ErrInventoryNotFound = errors.New("inventory copy not found")
	ErrDuplicateSerial   = errors.New("an inventory copy with this serial number already exists for this book")
)

type (
	Repository interface {
		CreateLevel(ctx context.Context, lvl Level, exec ...core.DBExecutor) (Level, error)
		CreateBook(ctx context.Context, b Book, exec ...core.DBExecutor) (Book, error)
		CreateInventory(ctx context.Context, inv Inventory, exec ...core.DBExecutor) (Inventory, error)
		// GetLevel scopes the lookup to the NGO's catalog.
		GetLevel(ctx context.Context, id, ngoID string, exec ...core.DBExecutor) (Level, error)
		GetBook(ctx context.Context, id string, exec ...core.DBExecutor) (Book, error)
		GetInventory(ctx context.Context, id string, exec ...core.DBExecutor) (Inventory, error)
		QueryLevels(ctx context.Context, ngoID string, exec ...core.DBExecutor) ([]Level, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) GetLevel(ctx context.Context, id, ngoID string) (Level, error) {
	return svc.repo.GetLevel(ctx, id, ngoID)
}

func (svc *Service) GetBook(ctx context.Context, id string) (Book, error) {
	return svc.repo.GetBook(ctx, id)
}

func (svc *Service) GetInventory(ctx context.Context, id string) (Inventory, error) {
	return svc.repo.GetInventory(ctx, id)
}

func (svc *Service) QueryLevels(ctx context.Context, ngoID string) ([]Level, error) {
	return svc.repo.QueryLevels(ctx, ngoID)
}
