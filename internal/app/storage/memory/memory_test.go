package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/R3E-Network/layout_service/internal/app/domain/category"
	"github.com/R3E-Network/layout_service/internal/app/domain/layout"
	"github.com/R3E-Network/layout_service/internal/app/domain/store"
	svcerrors "github.com/R3E-Network/layout_service/internal/errors"
)

func TestStoreRegistration(t *testing.T) {
	ctx := context.Background()
	mem := New()

	initial := layout.Layout{StoreID: 1, Columns: [][]layout.Module{{{ModuleID: 0, Name: "Module 0"}}}}
	created, err := mem.CreateStore(ctx, store.Store{ID: 1, Name: "Downtown", NumColumns: 1, ModulesPerColumn: 1}, initial)
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	if created.CreatedAt.IsZero() {
		t.Fatalf("expected created_at to be set")
	}

	if _, err := mem.CreateStore(ctx, store.Store{ID: 1, Name: "Again"}, layout.Layout{}); !errors.Is(err, svcerrors.ErrDuplicateID) {
		t.Fatalf("expected duplicate id, got %v", err)
	}

	got, err := mem.GetLayout(ctx, 1)
	if err != nil {
		t.Fatalf("get layout: %v", err)
	}
	if got.ModuleCount() != 1 {
		t.Fatalf("expected initial layout to be stored, got %+v", got)
	}

	if _, err := mem.GetStore(ctx, 2); !errors.Is(err, svcerrors.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCategoryRegistration(t *testing.T) {
	ctx := context.Background()
	mem := New()

	for _, id := range []int{3, 1, 2} {
		if _, err := mem.CreateCategory(ctx, category.Category{ID: id, Name: "c"}); err != nil {
			t.Fatalf("create category %d: %v", id, err)
		}
	}
	if _, err := mem.CreateCategory(ctx, category.Category{ID: 2}); !errors.Is(err, svcerrors.ErrDuplicateID) {
		t.Fatalf("expected duplicate id, got %v", err)
	}

	list, err := mem.ListCategories(ctx)
	if err != nil {
		t.Fatalf("list categories: %v", err)
	}
	if len(list) != 3 || list[0].ID != 1 || list[2].ID != 3 {
		t.Fatalf("expected categories sorted by id, got %+v", list)
	}
}

func TestPutLayoutRequiresStore(t *testing.T) {
	ctx := context.Background()
	mem := New()

	if _, err := mem.PutLayout(ctx, 9, layout.Layout{StoreID: 9}); !errors.Is(err, svcerrors.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := mem.GetLayout(ctx, 9); !errors.Is(err, svcerrors.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestLayoutsAreIsolatedCopies(t *testing.T) {
	ctx := context.Background()
	mem := New()
	initial := layout.Layout{StoreID: 1, Columns: [][]layout.Module{{{ModuleID: 0, Name: "a"}}}}
	if _, err := mem.CreateStore(ctx, store.Store{ID: 1, NumColumns: 1, ModulesPerColumn: 1}, initial); err != nil {
		t.Fatalf("create store: %v", err)
	}

	initial.Columns[0][0].Name = "mutated by caller"
	got, _ := mem.GetLayout(ctx, 1)
	got.Columns[0][0].Name = "mutated by reader"

	again, _ := mem.GetLayout(ctx, 1)
	if again.Columns[0][0].Name != "a" {
		t.Fatalf("stored layout leaked a reference: %q", again.Columns[0][0].Name)
	}
}

func TestConcurrentPutLayoutIsAtomic(t *testing.T) {
	ctx := context.Background()
	mem := New()
	build := func(n int) layout.Layout {
		col := make([]layout.Module, n)
		for i := range col {
			col[i] = layout.Module{ModuleID: i, Name: layout.DefaultModuleName(i)}
		}
		return layout.Layout{StoreID: 1, Columns: [][]layout.Module{col}}
	}
	if _, err := mem.CreateStore(ctx, store.Store{ID: 1, NumColumns: 1, ModulesPerColumn: 1}, build(1)); err != nil {
		t.Fatalf("create store: %v", err)
	}

	var wg sync.WaitGroup
	for i := 1; i <= 20; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			_, _ = mem.PutLayout(ctx, 1, build(n))
		}(i)
		go func() {
			defer wg.Done()
			got, err := mem.GetLayout(ctx, 1)
			if err != nil {
				t.Errorf("get layout: %v", err)
				return
			}
			for idx, mod := range got.Columns[0] {
				if mod.ModuleID != idx {
					t.Errorf("observed partially written layout: %+v", got)
					return
				}
			}
		}()
	}
	wg.Wait()
}
