package categories

import (
	"context"
	"errors"
	"testing"

	"github.com/R3E-Network/layout_service/internal/app/storage/memory"
	svcerrors "github.com/R3E-Network/layout_service/internal/errors"
)

func TestService(t *testing.T) {
	svc := New(memory.New(), nil)
	ctx := context.Background()

	cat, err := svc.Create(ctx, 1, "Produce")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if cat.ID != 1 || cat.Name != "Produce" {
		t.Fatalf("unexpected category %+v", cat)
	}

	if _, err := svc.Create(ctx, 1, "Dairy"); !errors.Is(err, svcerrors.ErrDuplicateID) {
		t.Fatalf("expected duplicate id, got %v", err)
	}

	if _, err := svc.Get(ctx, 2); !errors.Is(err, svcerrors.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	list, err := svc.List(ctx)
	if err != nil || len(list) != 1 {
		t.Fatalf("expected one category, got %v (%v)", list, err)
	}
}
