package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/R3E-Network/layout_service/internal/app/domain/category"
	"github.com/R3E-Network/layout_service/internal/app/domain/layout"
	"github.com/R3E-Network/layout_service/internal/app/domain/store"
	"github.com/R3E-Network/layout_service/internal/app/storage"
	svcerrors "github.com/R3E-Network/layout_service/internal/errors"
)

// Store is an in-memory implementation of the storage interfaces. It is safe
// for concurrent use. Records live for the lifetime of the process.
type Store struct {
	mu         sync.RWMutex
	stores     map[int]store.Store
	categories map[int]category.Category
	layouts    map[int]layout.Layout
}

var _ storage.StoreRepository = (*Store)(nil)
var _ storage.CategoryRepository = (*Store)(nil)
var _ storage.LayoutRepository = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		stores:     make(map[int]store.Store),
		categories: make(map[int]category.Category),
		layouts:    make(map[int]layout.Layout),
	}
}

// StoreRepository implementation ---------------------------------------------

func (s *Store) CreateStore(_ context.Context, st store.Store, initial layout.Layout) (store.Store, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.stores[st.ID]; exists {
		return store.Store{}, svcerrors.DuplicateID("store", st.ID)
	}

	st.CreatedAt = time.Now().UTC()
	s.stores[st.ID] = st
	s.layouts[st.ID] = initial.Clone()
	return st, nil
}

func (s *Store) GetStore(_ context.Context, id int) (store.Store, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.stores[id]
	if !ok {
		return store.Store{}, svcerrors.NotFound("store", id)
	}
	return st, nil
}

func (s *Store) ListStores(_ context.Context) ([]store.Store, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]store.Store, 0, len(s.stores))
	for _, st := range s.stores {
		result = append(result, st)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// CategoryRepository implementation ------------------------------------------

func (s *Store) CreateCategory(_ context.Context, cat category.Category) (category.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.categories[cat.ID]; exists {
		return category.Category{}, svcerrors.DuplicateID("category", cat.ID)
	}

	cat.CreatedAt = time.Now().UTC()
	s.categories[cat.ID] = cat
	return cat, nil
}

func (s *Store) GetCategory(_ context.Context, id int) (category.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cat, ok := s.categories[id]
	if !ok {
		return category.Category{}, svcerrors.NotFound("category", id)
	}
	return cat, nil
}

func (s *Store) ListCategories(_ context.Context) ([]category.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]category.Category, 0, len(s.categories))
	for _, cat := range s.categories {
		result = append(result, cat)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// LayoutRepository implementation --------------------------------------------

func (s *Store) GetLayout(_ context.Context, storeID int) (layout.Layout, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, ok := s.layouts[storeID]
	if !ok {
		return layout.Layout{}, svcerrors.NotFound("layout for store", storeID)
	}
	return l.Clone(), nil
}

func (s *Store) PutLayout(_ context.Context, storeID int, l layout.Layout) (layout.Layout, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.stores[storeID]; !ok {
		return layout.Layout{}, svcerrors.NotFound("store", storeID)
	}
	s.layouts[storeID] = l.Clone()
	return l.Clone(), nil
}
