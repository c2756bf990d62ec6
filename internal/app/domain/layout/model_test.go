package layout

import (
	"encoding/json"
	"errors"
	"testing"

	svcerrors "github.com/R3E-Network/layout_service/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModuleDecodeDefaults(t *testing.T) {
	var mod Module
	err := json.Unmarshal([]byte(`{"module_id":4,"column":1,"row":0,"x":70,"y":0,"name":"Module 4"}`), &mod)
	require.NoError(t, err)

	assert.Equal(t, InitialModuleWidth, mod.Width)
	assert.Equal(t, InitialModuleHeight, mod.Height)
	assert.Equal(t, 0, mod.Rotation)
	assert.Nil(t, mod.CategoryID)
	assert.False(t, mod.HasCategory())
}

func TestModuleDecodeMissingFields(t *testing.T) {
	var mod Module
	err := json.Unmarshal([]byte(`{"module_id":4,"x":70,"y":0}`), &mod)
	require.Error(t, err)
	assert.True(t, errors.Is(err, svcerrors.ErrMalformedInput))
	assert.Contains(t, err.Error(), "column, row, name")
}

func TestModuleDecodeRejectsNonInteger(t *testing.T) {
	var mod Module
	err := json.Unmarshal([]byte(`{"module_id":"a","column":0,"row":0,"x":0,"y":0,"name":"m"}`), &mod)
	assert.Error(t, err)
}

func TestLayoutDecodeRequiresFields(t *testing.T) {
	var l Layout
	err := json.Unmarshal([]byte(`{"store_id":1}`), &l)
	require.Error(t, err)
	assert.True(t, errors.Is(err, svcerrors.ErrMalformedInput))

	err = json.Unmarshal([]byte(`{"columns":[]}`), &l)
	require.Error(t, err)

	require.NoError(t, json.Unmarshal([]byte(`{"store_id":1,"columns":[[]]}`), &l))
	assert.Equal(t, 1, l.StoreID)
	assert.Len(t, l.Columns, 1)
}

func TestLayoutCloneIsDeep(t *testing.T) {
	cat := 3
	orig := Layout{StoreID: 1, Columns: [][]Module{{{ModuleID: 0, Name: "a", CategoryID: &cat}}}}
	cp := orig.Clone()

	cp.Columns[0][0].Name = "b"
	*cp.Columns[0][0].CategoryID = 9

	assert.Equal(t, "a", orig.Columns[0][0].Name)
	assert.Equal(t, 3, *orig.Columns[0][0].CategoryID)
}

func TestLayoutHelpers(t *testing.T) {
	l := Layout{Columns: [][]Module{
		{{ModuleID: 0}, {ModuleID: 1}},
		{{ModuleID: 2}},
		{},
	}}
	assert.Equal(t, 3, l.ModuleCount())
	assert.Equal(t, 2, l.MaxColumnLength())

	c, i, ok := l.Find(2)
	require.True(t, ok)
	assert.Equal(t, 1, c)
	assert.Equal(t, 0, i)

	_, _, ok = l.Find(42)
	assert.False(t, ok)
	assert.Equal(t, "Module 7", DefaultModuleName(7))
}
