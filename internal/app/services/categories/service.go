package categories

import (
	"context"
	"strings"

	"github.com/R3E-Network/layout_service/internal/app/domain/category"
	"github.com/R3E-Network/layout_service/internal/app/metrics"
	"github.com/R3E-Network/layout_service/internal/app/storage"
	"github.com/R3E-Network/layout_service/pkg/logger"
)

// Service registers product categories.
type Service struct {
	store storage.CategoryRepository
	log   *logger.Logger
}

// New constructs a category service.
func New(store storage.CategoryRepository, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("categories")
	}
	return &Service{store: store, log: log}
}

// Create registers a category. Ids are assigned by the caller.
func (s *Service) Create(ctx context.Context, id int, name string) (category.Category, error) {
	cat, err := s.store.CreateCategory(ctx, category.Category{ID: id, Name: strings.TrimSpace(name)})
	metrics.RecordRegistration("category", err)
	if err != nil {
		return category.Category{}, err
	}
	s.log.WithField("category_id", cat.ID).Info("category registered")
	return cat, nil
}

// Get fetches a category by id.
func (s *Service) Get(ctx context.Context, id int) (category.Category, error) {
	return s.store.GetCategory(ctx, id)
}

// List returns all categories ordered by id.
func (s *Service) List(ctx context.Context) ([]category.Category, error) {
	return s.store.ListCategories(ctx)
}
