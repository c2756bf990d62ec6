package layouts

import (
	"context"
	"fmt"
	"time"

	"github.com/R3E-Network/layout_service/internal/app/domain/layout"
	"github.com/R3E-Network/layout_service/internal/app/domain/store"
	"github.com/R3E-Network/layout_service/internal/app/interchange"
	"github.com/R3E-Network/layout_service/internal/app/metrics"
	"github.com/R3E-Network/layout_service/internal/app/services/share"
	"github.com/R3E-Network/layout_service/internal/app/storage"
	svcerrors "github.com/R3E-Network/layout_service/internal/errors"
	"github.com/R3E-Network/layout_service/pkg/logger"
)

// Service exposes layout reads, replacement, module mutation and share
// computation on top of the repositories.
type Service struct {
	stores     storage.StoreRepository
	categories storage.CategoryRepository
	layouts    storage.LayoutRepository
	locks      *keyedMutex
	log        *logger.Logger
}

// ImportResult describes the outcome of importing a snapshot.
type ImportResult struct {
	Store   store.Store
	Layout  layout.Layout
	Created bool
}

// New constructs a layout service.
func New(stores storage.StoreRepository, categories storage.CategoryRepository, layouts storage.LayoutRepository, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("layouts")
	}
	return &Service{
		stores:     stores,
		categories: categories,
		layouts:    layouts,
		locks:      newKeyedMutex(),
		log:        log,
	}
}

// Get returns the stored layout for storeID.
func (s *Service) Get(ctx context.Context, storeID int) (layout.Layout, error) {
	l, err := s.layouts.GetLayout(ctx, storeID)
	if err != nil {
		return layout.Layout{}, err
	}
	s.log.WithField("store_id", storeID).Debug("layout read")
	return l, nil
}

// Replace stores l verbatim as the layout of storeID. The grid shape is not
// checked against the store record, and a store_id inside l that differs
// from storeID is kept as sent.
func (s *Service) Replace(ctx context.Context, storeID int, l layout.Layout) (layout.Layout, error) {
	unlock := s.locks.lock(storeID)
	defer unlock()

	stored, err := s.layouts.PutLayout(ctx, storeID, l)
	metrics.RecordLayoutMutation("replace", err)
	if err != nil {
		return layout.Layout{}, err
	}
	s.log.WithField("store_id", storeID).
		WithField("modules", stored.ModuleCount()).
		Info("layout replaced")
	return stored, nil
}

// Share computes per-category floor-space participation for storeID.
func (s *Service) Share(ctx context.Context, storeID int) (map[int]float64, error) {
	l, err := s.layouts.GetLayout(ctx, storeID)
	if err != nil {
		return nil, err
	}
	st, err := s.stores.GetStore(ctx, storeID)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	result, err := share.Compute(l, st)
	metrics.RecordShareComputation(time.Since(start), err)
	if err != nil {
		s.log.WithField("store_id", storeID).WithError(err).Warn("share computation failed")
		return nil, err
	}
	s.log.WithField("store_id", storeID).Debug("share computed")
	return result, nil
}

// AddModule appends a module to column 0 of the store's layout.
func (s *Service) AddModule(ctx context.Context, storeID int) (layout.Module, error) {
	unlock := s.locks.lock(storeID)
	defer unlock()

	mod, err := s.addModule(ctx, storeID)
	metrics.RecordLayoutMutation("add_module", err)
	if err != nil {
		return layout.Module{}, err
	}
	s.log.WithField("store_id", storeID).WithField("module_id", mod.ModuleID).Info("module added")
	return mod, nil
}

func (s *Service) addModule(ctx context.Context, storeID int) (layout.Module, error) {
	st, err := s.stores.GetStore(ctx, storeID)
	if err != nil {
		return layout.Module{}, err
	}
	l, err := s.layouts.GetLayout(ctx, storeID)
	if err != nil {
		return layout.Module{}, err
	}
	mod, err := AddModule(&l, st.NumColumns)
	if err != nil {
		return layout.Module{}, err
	}
	if _, err := s.layouts.PutLayout(ctx, storeID, l); err != nil {
		return layout.Module{}, fmt.Errorf("persist layout: %w", err)
	}
	return mod, nil
}

// RemoveModule deletes moduleID from the store's layout. An unknown module
// id is not an error; the layout is returned unchanged.
func (s *Service) RemoveModule(ctx context.Context, storeID, moduleID int) (layout.Layout, error) {
	unlock := s.locks.lock(storeID)
	defer unlock()

	l, err := s.layouts.GetLayout(ctx, storeID)
	if err != nil {
		metrics.RecordLayoutMutation("remove_module", err)
		return layout.Layout{}, err
	}
	if !RemoveModule(&l, moduleID) {
		s.log.WithField("store_id", storeID).WithField("module_id", moduleID).Debug("module not present, nothing removed")
		return l, nil
	}

	stored, err := s.layouts.PutLayout(ctx, storeID, l)
	metrics.RecordLayoutMutation("remove_module", err)
	if err != nil {
		return layout.Layout{}, err
	}
	s.log.WithField("store_id", storeID).WithField("module_id", moduleID).Info("module removed")
	return stored, nil
}

// UpdateModule applies u to the first module carrying moduleID.
func (s *Service) UpdateModule(ctx context.Context, storeID, moduleID int, u ModuleUpdate) (layout.Module, error) {
	unlock := s.locks.lock(storeID)
	defer unlock()

	mod, err := s.updateModule(ctx, storeID, moduleID, u)
	metrics.RecordLayoutMutation("update_module", err)
	if err != nil {
		return layout.Module{}, err
	}
	s.log.WithField("store_id", storeID).WithField("module_id", moduleID).Info("module updated")
	return mod, nil
}

func (s *Service) updateModule(ctx context.Context, storeID, moduleID int, u ModuleUpdate) (layout.Module, error) {
	if err := u.Validate(); err != nil {
		return layout.Module{}, err
	}
	l, err := s.layouts.GetLayout(ctx, storeID)
	if err != nil {
		return layout.Module{}, err
	}
	c, i, ok := l.Find(moduleID)
	if !ok {
		return layout.Module{}, svcerrors.NotFound("module", moduleID)
	}
	if u.CategoryID != nil {
		if _, err := s.categories.GetCategory(ctx, *u.CategoryID); err != nil {
			return layout.Module{}, err
		}
	}

	mod := &l.Columns[c][i]
	if err := ApplyUpdate(mod, u); err != nil {
		return layout.Module{}, err
	}
	updated := *mod
	if _, err := s.layouts.PutLayout(ctx, storeID, l); err != nil {
		return layout.Module{}, fmt.Errorf("persist layout: %w", err)
	}
	return updated.Clone(), nil
}

// Import stores a snapshot, registering its store first when unknown.
func (s *Service) Import(ctx context.Context, l layout.Layout) (ImportResult, error) {
	if len(l.Columns) == 0 {
		err := svcerrors.MalformedInput("snapshot for store %d has no columns", l.StoreID)
		metrics.RecordLayoutMutation("import", err)
		return ImportResult{}, err
	}

	unlock := s.locks.lock(l.StoreID)
	defer unlock()

	res, err := s.importLocked(ctx, l)
	metrics.RecordLayoutMutation("import", err)
	if err != nil {
		return ImportResult{}, err
	}
	s.log.WithField("store_id", res.Store.ID).
		WithField("created", res.Created).
		Info("layout imported")
	return res, nil
}

func (s *Service) importLocked(ctx context.Context, l layout.Layout) (ImportResult, error) {
	st, err := s.stores.GetStore(ctx, l.StoreID)
	switch {
	case err == nil:
		stored, err := s.layouts.PutLayout(ctx, l.StoreID, l)
		if err != nil {
			return ImportResult{}, err
		}
		return ImportResult{Store: st, Layout: stored}, nil
	case svcerrors.KindOf(err) != svcerrors.KindNotFound:
		return ImportResult{}, err
	}

	created, err := s.stores.CreateStore(ctx, interchange.InferStore(l), l)
	metrics.RecordRegistration("store", err)
	if err != nil {
		return ImportResult{}, err
	}
	stored, err := s.layouts.GetLayout(ctx, created.ID)
	if err != nil {
		return ImportResult{}, err
	}
	return ImportResult{Store: created, Layout: stored, Created: true}, nil
}
