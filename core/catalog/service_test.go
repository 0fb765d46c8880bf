package catalog_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mavlabs/read/core"
	"github.com/mavlabs/read/core/catalog"
	dummydb "github.com/mavlabs/read/storage/database/dummy"
)

func newFixture(t *testing.T) (*catalog.Service, catalog.Repository) {
	t.Helper()
	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("dummydb.Open(): %v", err)
	}
	repo := dummydb.NewCatalogRepository(db)
	return catalog.NewService(repo), repo
}

func TestService_GetLevel(t *testing.T) {
	svc, repo := newFixture(t)
	ctx := context.Background()
	ngoID := core.NewKey()
	now := time.Now().UTC()

	lvl, err := repo.CreateLevel(ctx, catalog.Level{
		ID: core.NewKey(), NGOID: ngoID, Name: "Letters", Rank: 1,
		ForRegular: true, ForEvaluation: true, CreatedAt: now, UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("seeding level: %v", err)
	}

	got, err := svc.GetLevel(ctx, lvl.ID, ngoID)
	if err != nil || got.Name != "Letters" {
		t.Errorf("GetLevel() = %+v, %v, want the seeded level", got, err)
	}

	t.Run("scoped to the NGO", func(t *testing.T) {
		_, err := svc.GetLevel(ctx, lvl.ID, core.NewKey())
		if !errors.Is(err, catalog.ErrLevelNotFound) {
			t.Errorf("error = %v, want %v", err, catalog.ErrLevelNotFound)
		}
	})
}

func TestService_QueryLevels(t *testing.T) {
	svc, repo := newFixture(t)
	ctx := context.Background()
	ngoID := core.NewKey()

	// seeded out of rank order on purpose
	for i, name := range []string{"Story", "Letters", "Words"} {
		rank := map[string]int{"Letters": 1, "Words": 2, "Story": 3}[name]
		_, err := repo.CreateLevel(ctx, catalog.Level{ID: core.NewKey(), NGOID: ngoID, Name: name, Rank: rank})
		if err != nil {
			t.Fatalf("seeding level %d: %v", i, err)
		}
	}
	if _, err := repo.CreateLevel(ctx, catalog.Level{ID: core.NewKey(), NGOID: core.NewKey(), Name: "Other NGO", Rank: 1}); err != nil {
		t.Fatalf("seeding level: %v", err)
	}

	levels, err := svc.QueryLevels(ctx, ngoID)
	if err != nil {
		t.Fatalf("QueryLevels(): %v", err)
	}
	if len(levels) != 3 {
		t.Fatalf("levels = %d, want 3", len(levels))
	}
	for i, name := range []string{"Letters", "Words", "Story"} {
		if levels[i].Name != name {
			t.Errorf("levels[%d] = %q, want %q (rank order)", i, levels[i].Name, name)
		}
	}
}

func TestRepository_CreateInventory(t *testing.T) {
	_, repo := newFixture(t)
	ctx := context.Background()

	book, err := repo.CreateBook(ctx, catalog.Book{ID: core.NewKey(), NGOID: core.NewKey(), Title: "Sukuma Wiki"})
	if err != nil {
		t.Fatalf("seeding book: %v", err)
	}

	inv := catalog.Inventory{ID: core.NewKey(), BookID: book.ID, SerialNumber: "BK-001", Status: catalog.StatusGood}
	if _, err = repo.CreateInventory(ctx, inv); err != nil {
		t.Fatalf("CreateInventory(): %v", err)
	}

	t.Run("duplicate serial rejected", func(t *testing.T) {
		dup := catalog.Inventory{ID: core.NewKey(), BookID: book.ID, SerialNumber: "BK-001"}
		if _, err := repo.CreateInventory(ctx, dup); !errors.Is(err, catalog.ErrDuplicateSerial) {
			t.Errorf("error = %v, want %v", err, catalog.ErrDuplicateSerial)
		}
	})

	t.Run("same serial on another book", func(t *testing.T) {
		other := catalog.Inventory{ID: core.NewKey(), BookID: core.NewKey(), SerialNumber: "BK-001"}
		if _, err := repo.CreateInventory(ctx, other); err != nil {
			t.Errorf("CreateInventory(): %v", err)
		}
	})
}
