package app

import (
	"context"
	"fmt"

	"github.com/R3E-Network/layout_service/internal/app/services/categories"
	"github.com/R3E-Network/layout_service/internal/app/services/layouts"
	"github.com/R3E-Network/layout_service/internal/app/services/stores"
	"github.com/R3E-Network/layout_service/internal/app/storage"
	"github.com/R3E-Network/layout_service/internal/app/storage/memory"
	"github.com/R3E-Network/layout_service/internal/app/system"
	"github.com/R3E-Network/layout_service/pkg/logger"
)

// Stores encapsulates persistence dependencies. Nil stores default to the
// in-memory implementation.
type Stores struct {
	Stores     storage.StoreRepository
	Categories storage.CategoryRepository
	Layouts    storage.LayoutRepository
}

// Application ties domain services together and manages their lifecycle.
type Application struct {
	manager *system.Manager
	log     *logger.Logger

	Stores     *stores.Service
	Categories *categories.Service
	Layouts    *layouts.Service
}

// New builds a fully initialised application with the provided stores.
func New(repos Stores, log *logger.Logger) (*Application, error) {
	if log == nil {
		log = logger.NewDefault("app")
	}

	if repos.Stores == nil || repos.Categories == nil || repos.Layouts == nil {
		mem := memory.New()
		if repos.Stores == nil {
			repos.Stores = mem
		}
		if repos.Categories == nil {
			repos.Categories = mem
		}
		if repos.Layouts == nil {
			repos.Layouts = mem
		}
	}

	manager := system.NewManager()
	for _, name := range []string{"stores", "categories", "layouts"} {
		if err := manager.Register(system.NoopService{ServiceName: name}); err != nil {
			return nil, fmt.Errorf("register %s service: %w", name, err)
		}
	}

	return &Application{
		manager:    manager,
		log:        log,
		Stores:     stores.New(repos.Stores, log),
		Categories: categories.New(repos.Categories, log),
		Layouts:    layouts.New(repos.Stores, repos.Categories, repos.Layouts, log),
	}, nil
}

// Attach registers an additional lifecycle-managed service. Call before Start.
func (a *Application) Attach(service system.Service) error {
	return a.manager.Register(service)
}

// Services lists the names of lifecycle-managed services.
func (a *Application) Services() []string {
	return a.manager.Services()
}

// Start begins all registered services.
func (a *Application) Start(ctx context.Context) error {
	a.log.WithField("services", a.manager.Services()).Info("starting application")
	return a.manager.Start(ctx)
}

// Stop stops all services.
func (a *Application) Stop(ctx context.Context) error {
	return a.manager.Stop(ctx)
}
