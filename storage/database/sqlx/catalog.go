package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/mavlabs/read/core"
	"github.com/mavlabs/read/core/catalog"
)

type (
	levelRow struct {
		ID            string    `db:"id"`
		NGOID         string    `db:"ngo_id"`
		Name          string    `db:"name"`
		Rank          int       `db:"rank"`
		ForRegular    bool      `db:"is_regular"`
		ForEvaluation bool      `db:"is_evaluation"`
		CreatedAt     time.Time `db:"created_at"`
		UpdatedAt     time.Time `db:"updated_at"`
	}

	bookRow struct {
		ID        string      `db:"id"`
		NGOID     string      `db:"ngo_id"`
		Title     string      `db:"title"`
		Author    null.String `db:"author"`
		Publisher null.String `db:"publisher"`
		CreatedAt time.Time   `db:"created_at"`
		UpdatedAt time.Time   `db:"updated_at"`
	}

	inventoryRow struct {
		ID           string    `db:"id"`
		BookID       string    `db:"book_id"`
		SerialNumber string    `db:"serial_number"`
		Status       string    `db:"status"`
		CreatedAt    time.Time `db:"created_at"`
		UpdatedAt    time.Time `db:"updated_at"`
	}
)

func (r levelRow) level() catalog.Level {
	return catalog.Level{
		ID:            r.ID,
		NGOID:         r.NGOID,
		Name:          r.Name,
		Rank:          r.Rank,
		ForRegular:    r.ForRegular,
		ForEvaluation: r.ForEvaluation,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

func (r bookRow) book() catalog.Book {
	return catalog.Book{
		ID:        r.ID,
		NGOID:     r.NGOID,
		Title:     r.Title,
		Author:    r.Author.String,
		Publisher: r.Publisher.String,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func (r inventoryRow) inventory() catalog.Inventory {
	return catalog.Inventory{
		ID:           r.ID,
		BookID:       r.BookID,
		SerialNumber: r.SerialNumber,
		Status:       r.Status,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

type catalogRepository struct {
	db *sqlx.DB
}

var _ catalog.Repository = (*catalogRepository)(nil) // interface compliance check

func NewCatalogRepository(db *sqlx.DB) catalog.Repository {
	return &catalogRepository{db: db}
}

func (repo *catalogRepository) CreateLevel(ctx context.Context, lvl catalog.Level, exec ...core.DBExecutor) (catalog.Level, error) {
	const q = `
INSERT INTO level (id, ngo_id, name, rank, is_regular, is_evaluation, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	e := ext(repo.db, exec)
	_, err := e.ExecContext(ctx, q, lvl.ID, lvl.NGOID, lvl.Name, lvl.Rank, lvl.ForRegular, lvl.ForEvaluation, lvl.CreatedAt, lvl.UpdatedAt)
	if err != nil {
		return catalog.Level{}, errors.Wrap(err, "inserting level")
	}
	return lvl, nil
}

func (repo *catalogRepository) CreateBook(ctx context.Context, b catalog.Book, exec ...core.DBExecutor) (catalog.Book, error) {
	const q = `
INSERT INTO book (id, ngo_id, title, author, publisher, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
	e := ext(repo.db, exec)
	_, err := e.ExecContext(ctx, q, b.ID, b.NGOID, b.Title,
		null.NewString(b.Author, b.Author != ""),
		null.NewString(b.Publisher, b.Publisher != ""),
		b.CreatedAt, b.UpdatedAt)
	if err != nil {
		return catalog.Book{}, errors.Wrap(err, "inserting book")
	}
	return b, nil
}

func (repo *catalogRepository) CreateInventory(ctx context.Context, inv catalog.Inventory, exec ...core.DBExecutor) (catalog.Inventory, error) {
	const q = `
INSERT INTO inventory (id, book_id, serial_number, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)`
	e := ext(repo.db, exec)
	_, err := e.ExecContext(ctx, q, inv.ID, inv.BookID, inv.SerialNumber, inv.Status, inv.CreatedAt, inv.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return catalog.Inventory{}, catalog.ErrDuplicateSerial
		}
		return catalog.Inventory{}, errors.Wrap(err, "inserting inventory")
	}
	return inv, nil
}

func (repo *catalogRepository) GetLevel(ctx context.Context, id, ngoID string, exec ...core.DBExecutor) (catalog.Level, error) {
	const q = `
SELECT id, ngo_id, name, rank, is_regular, is_evaluation, created_at, updated_at
FROM level WHERE id = $1 AND ngo_id = $2`

	var row levelRow
	if err := sqlx.GetContext(ctx, ext(repo.db, exec), &row, q, id, ngoID); err != nil {
		return catalog.Level{}, trapNoRowsErr(err, catalog.ErrLevelNotFound, "getting level")
	}
	return row.level(), nil
}

func (repo *catalogRepository) GetBook(ctx context.Context, id string, exec ...core.DBExecutor) (catalog.Book, error) {
	const q = `
SELECT id, ngo_id, title, author, publisher, created_at, updated_at
FROM book WHERE id = $1`

	var row bookRow
	if err := sqlx.GetContext(ctx, ext(repo.db, exec), &row, q, id); err != nil {
		return catalog.Book{}, trapNoRowsErr(err, catalog.ErrBookNotFound, "getting book")
	}
	return row.book(), nil
}

func (repo *catalogRepository) GetInventory(ctx context.Context, id string, exec ...core.DBExecutor) (catalog.Inventory, error) {
	const q = `
SELECT id, book_id, serial_number, status, created_at, updated_at
FROM inventory WHERE id = $1`

	var row inventoryRow
	if err := sqlx.GetContext(ctx, ext(repo.db, exec), &row, q, id); err != nil {
		return catalog.Inventory{}, trapNoRowsErr(err, catalog.ErrInventoryNotFound, "getting inventory")
	}
	return row.inventory(), nil
}

func (repo *catalogRepository) QueryLevels(ctx context.Context, ngoID string, exec ...core.DBExecutor) ([]catalog.Level, error) {
	const q = `
SELECT id, ngo_id, name, rank, is_regular, is_evaluation, created_at, updated_at
FROM level WHERE ngo_id = $1 ORDER BY rank`

	var rows []levelRow
	if err := sqlx.SelectContext(ctx, ext(repo.db, exec), &rows, q, ngoID); err != nil {
		return nil, errors.Wrap(err, "querying levels")
	}
	levels := make([]catalog.Level, 0, len(rows))
	for _, row := range rows {
		levels = append(levels, row.level())
	}
	return levels, nil
}
