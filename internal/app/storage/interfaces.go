package storage

import (
	"context"

	"github.com/R3E-Network/layout_service/internal/app/domain/category"
	"github.com/R3E-Network/layout_service/internal/app/domain/layout"
	"github.com/R3E-Network/layout_service/internal/app/domain/store"
)

// StoreRepository persists store records. A store and its first layout are
// created together so readers never see a store without a layout.
type StoreRepository interface {
	CreateStore(ctx context.Context, st store.Store, initial layout.Layout) (store.Store, error)
	GetStore(ctx context.Context, id int) (store.Store, error)
	ListStores(ctx context.Context) ([]store.Store, error)
}

// CategoryRepository persists category records.
type CategoryRepository interface {
	CreateCategory(ctx context.Context, cat category.Category) (category.Category, error)
	GetCategory(ctx context.Context, id int) (category.Category, error)
	ListCategories(ctx context.Context) ([]category.Category, error)
}

// LayoutRepository persists one layout per store. PutLayout replaces the
// whole layout atomically and does not check it against the store's
// declared grid shape.
type LayoutRepository interface {
	GetLayout(ctx context.Context, storeID int) (layout.Layout, error)
	PutLayout(ctx context.Context, storeID int, l layout.Layout) (layout.Layout, error)
}
