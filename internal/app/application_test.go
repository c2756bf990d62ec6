package app

import (
	"context"
	"testing"

	"github.com/R3E-Network/layout_service/internal/app/domain/store"
	"github.com/R3E-Network/layout_service/internal/app/storage/memory"
	"github.com/R3E-Network/layout_service/internal/app/system"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplicationWiresServices(t *testing.T) {
	application, err := New(Stores{}, nil)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, application.Attach(system.NoopService{ServiceName: "extra"}))
	require.NoError(t, application.Start(ctx))
	defer application.Stop(ctx)
	assert.Equal(t, []string{"stores", "categories", "layouts", "extra"}, application.Services())

	_, _, err = application.Stores.Create(ctx, store.Store{ID: 1, Name: "Main", NumColumns: 2, ModulesPerColumn: 2})
	require.NoError(t, err)

	l, err := application.Layouts.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 4, l.ModuleCount())
}

func TestApplicationUsesProvidedStores(t *testing.T) {
	mem := memory.New()
	application, err := New(Stores{Stores: mem, Categories: mem, Layouts: mem}, nil)
	require.NoError(t, err)

	_, err = application.Categories.Create(context.Background(), 5, "Dairy")
	require.NoError(t, err)

	cat, err := mem.GetCategory(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, "Dairy", cat.Name)
}
