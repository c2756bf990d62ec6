package share

import (
	"errors"
	"testing"

	"github.com/R3E-Network/layout_service/internal/app/domain/layout"
	"github.com/R3E-Network/layout_service/internal/app/domain/store"
	svcerrors "github.com/R3E-Network/layout_service/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(v int) *int { return &v }

// 2 columns x 5 rows = 10 declared slots.
func tenSlotLayout(assign map[int]*int) layout.Layout {
	l := layout.Layout{StoreID: 1, Columns: make([][]layout.Module, 2)}
	id := 0
	for c := 0; c < 2; c++ {
		for r := 0; r < 5; r++ {
			l.Columns[c] = append(l.Columns[c], layout.Module{ModuleID: id, Column: c, Row: r, CategoryID: assign[id]})
			id++
		}
	}
	return l
}

func TestComputeShare(t *testing.T) {
	st := store.Store{ID: 1, NumColumns: 2, ModulesPerColumn: 5}
	l := tenSlotLayout(map[int]*int{
		0: ptr(1), 3: ptr(1), 7: ptr(1),
		2: ptr(2), 9: ptr(2),
	})

	got, err := Compute(l, st)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.InDelta(t, 30.0, got[1], 1e-9)
	assert.InDelta(t, 20.0, got[2], 1e-9)
	_, hasUnused := got[3]
	assert.False(t, hasUnused)
}

func TestComputeShareCategoryZeroIsAssigned(t *testing.T) {
	st := store.Store{ID: 1, NumColumns: 2, ModulesPerColumn: 5}
	got, err := Compute(tenSlotLayout(map[int]*int{4: ptr(0)}), st)
	require.NoError(t, err)
	assert.InDelta(t, 10.0, got[0], 1e-9)
}

func TestComputeShareUsesDeclaredShape(t *testing.T) {
	// The layout holds two modules but the store declares four slots.
	st := store.Store{ID: 1, NumColumns: 2, ModulesPerColumn: 2}
	l := layout.Layout{Columns: [][]layout.Module{{{ModuleID: 0, CategoryID: ptr(5)}, {ModuleID: 1, CategoryID: ptr(5)}}}}

	got, err := Compute(l, st)
	require.NoError(t, err)
	assert.InDelta(t, 50.0, got[5], 1e-9)
}

func TestComputeShareEmpty(t *testing.T) {
	got, err := Compute(tenSlotLayout(nil), store.Store{ID: 1, NumColumns: 2, ModulesPerColumn: 5})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestComputeShareZeroShapedStore(t *testing.T) {
	for _, st := range []store.Store{
		{ID: 1, NumColumns: 0, ModulesPerColumn: 5},
		{ID: 2, NumColumns: 3, ModulesPerColumn: 0},
	} {
		_, err := Compute(layout.Layout{}, st)
		require.Error(t, err)
		assert.True(t, errors.Is(err, svcerrors.ErrDivisionByZero))
	}
}

func TestSorted(t *testing.T) {
	entries := Sorted(map[int]float64{3: 10, 1: 30, 2: 10})
	require.Len(t, entries, 3)
	assert.Equal(t, 1, entries[0].CategoryID)
	assert.Equal(t, 2, entries[1].CategoryID)
	assert.Equal(t, 3, entries[2].CategoryID)
}
