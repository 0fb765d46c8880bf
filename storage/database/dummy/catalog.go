package dummydb

import (
	"context"
	"sort"

	"github.com/mavlabs/read/core"
	"github.com/mavlabs/read/core/catalog"
)

type catalogRepository struct {
	levels      *levelTable
	books       *bookTable
	inventories *inventoryTable
}

var _ catalog.Repository = (*catalogRepository)(nil) // interface compliance check

func NewCatalogRepository(db *DB) catalog.Repository {
	return &catalogRepository{
		levels:      db.level,
		books:       db.book,
		inventories: db.inventory,
	}
}

func (repo *catalogRepository) CreateLevel(ctx context.Context, lvl catalog.Level, exec ...core.DBExecutor) (catalog.Level, error) {
	repo.levels.Lock()
	defer repo.levels.Unlock()
	repo.levels.table[lvl.ID] = &lvl
	return lvl, nil
}

func (repo *catalogRepository) CreateBook(ctx context.Context, b catalog.Book, exec ...core.DBExecutor) (catalog.Book, error) {
	repo.books.Lock()
	defer repo.books.Unlock()
	repo.books.table[b.ID] = &b
	return b, nil
}

func (repo *catalogRepository) CreateInventory(ctx context.Context, inv catalog.Inventory, exec ...core.DBExecutor) (catalog.Inventory, error) {
	repo.inventories.Lock()
	defer repo.inventories.Unlock()

	for _, i := range repo.inventories.table {
		if i.BookID == inv.BookID && i.SerialNumber == inv.SerialNumber {
			return catalog.Inventory{}, catalog.ErrDuplicateSerial
		}
	}
	repo.inventories.table[inv.ID] = &inv
	return inv, nil
}

func (repo *catalogRepository) GetLevel(ctx context.Context, id, ngoID string, exec ...core.DBExecutor) (catalog.Level, error) {
	repo.levels.RLock()
	defer repo.levels.RUnlock()

	if lvl, ok := repo.levels.table[id]; ok && lvl.NGOID == ngoID {
		return *lvl, nil
	}
	return catalog.Level{}, catalog.ErrLevelNotFound
}

func (repo *catalogRepository) GetBook(ctx context.Context, id string, exec ...core.DBExecutor) (catalog.Book, error) {
	repo.books.RLock()
	defer repo.books.RUnlock()

	if b, ok := repo.books.table[id]; ok {
		return *b, nil
	}
	return catalog.Book{}, catalog.ErrBookNotFound
}

func (repo *catalogRepository) GetInventory(ctx context.Context, id string, exec ...core.DBExecutor) (catalog.Inventory, error) {
	repo.inventories.RLock()
	defer repo.inventories.RUnlock()

	if inv, ok := repo.inventories.table[id]; ok {
		return *inv, nil
	}
	return catalog.Inventory{}, catalog.ErrInventoryNotFound
}

func (repo *catalogRepository) QueryLevels(ctx context.Context, ngoID string, exec ...core.DBExecutor) ([]catalog.Level, error) {
	repo.levels.RLock()
	defer repo.levels.RUnlock()

	var levels []catalog.Level
	for _, lvl := range repo.levels.table {
		if lvl.NGOID == ngoID {
			levels = append(levels, *lvl)
		}
	}
	sort.Slice(levels, func(i, j int) bool { return levels[i].Rank < levels[j].Rank })
	return levels, nil
}
