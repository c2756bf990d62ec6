package stores

import (
	"context"
	"strings"

	"github.com/R3E-Network/layout_service/internal/app/domain/layout"
	"github.com/R3E-Network/layout_service/internal/app/domain/store"
	"github.com/R3E-Network/layout_service/internal/app/metrics"
	"github.com/R3E-Network/layout_service/internal/app/services/layouts"
	"github.com/R3E-Network/layout_service/internal/app/storage"
	svcerrors "github.com/R3E-Network/layout_service/internal/errors"
	"github.com/R3E-Network/layout_service/pkg/logger"
)

// Service registers stores and gives each one its initial layout.
type Service struct {
	store storage.StoreRepository
	log   *logger.Logger
}

// New constructs a store service.
func New(store storage.StoreRepository, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("stores")
	}
	return &Service{store: store, log: log}
}

// Create registers st and persists a freshly built initial layout for it.
func (s *Service) Create(ctx context.Context, st store.Store) (store.Store, layout.Layout, error) {
	st.Name = strings.TrimSpace(st.Name)
	if st.NumColumns <= 0 {
		return store.Store{}, layout.Layout{}, svcerrors.MalformedInput("num_columns must be positive")
	}
	if st.ModulesPerColumn <= 0 {
		return store.Store{}, layout.Layout{}, svcerrors.MalformedInput("modules_per_column must be positive")
	}

	initial := layouts.BuildInitialLayout(st)
	created, err := s.store.CreateStore(ctx, st, initial)
	metrics.RecordRegistration("store", err)
	if err != nil {
		return store.Store{}, layout.Layout{}, err
	}

	s.log.WithField("store_id", created.ID).
		WithField("num_columns", created.NumColumns).
		WithField("modules_per_column", created.ModulesPerColumn).
		Info("store registered")
	return created, initial, nil
}

// Get fetches a store by id.
func (s *Service) Get(ctx context.Context, id int) (store.Store, error) {
	return s.store.GetStore(ctx, id)
}

// List returns every registered store ordered by id.
func (s *Service) List(ctx context.Context) ([]store.Store, error) {
	return s.store.ListStores(ctx)
}
