// Package layout holds the module arrangement of a store: a sequence of
// columns, each an ordered sequence of modules.
package layout

import (
	"encoding/json"
	"fmt"
	"strings"

	svcerrors "github.com/R3E-Network/layout_service/internal/errors"
)

// Spacing used when a store's initial grid is generated.
const (
	InitialColumnSpacing = 70
	InitialRowSpacing    = 40
	InitialModuleWidth   = 60
	InitialModuleHeight  = 30
)

// Interactive placement works on a finer grid than the initial build, and
// modules added one at a time are taller. The two sets of constants are kept
// apart on purpose; the presentation layer renders both.
const (
	GridUnit          = 20
	AddedModuleWidth  = 60
	AddedModuleHeight = 40
)

// Bounds accepted by module edits.
const (
	MinModuleSize = 10
	MaxModuleSize = 200
	MinRotation   = 0
	MaxRotation   = 360
)

// Module is a shelving unit occupying a grid cell.
type Module struct {
	ModuleID   int    `json:"module_id"`
	Column     int    `json:"column"`
	Row        int    `json:"row"`
	X          int    `json:"x"`
	Y          int    `json:"y"`
	Name       string `json:"name"`
	CategoryID *int   `json:"category_id"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	Rotation   int    `json:"rotation"`
}

// Layout is the concrete arrangement of modules for one store.
type Layout struct {
	StoreID int        `json:"store_id"`
	Columns [][]Module `json:"columns"`
}

// Position is a point on the layout canvas.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// DefaultModuleName is the name given to modules that were never renamed.
func DefaultModuleName(moduleID int) string {
	return fmt.Sprintf("Module %d", moduleID)
}

// HasCategory reports whether the module is assigned to a category.
func (m Module) HasCategory() bool { return m.CategoryID != nil }

// Clone returns a copy that shares no memory with m.
func (m Module) Clone() Module {
	if m.CategoryID != nil {
		id := *m.CategoryID
		m.CategoryID = &id
	}
	return m
}

// Clone deep-copies the layout.
func (l Layout) Clone() Layout {
	out := Layout{StoreID: l.StoreID}
	if l.Columns == nil {
		return out
	}
	out.Columns = make([][]Module, len(l.Columns))
	for i, col := range l.Columns {
		cloned := make([]Module, len(col))
		for j, mod := range col {
			cloned[j] = mod.Clone()
		}
		out.Columns[i] = cloned
	}
	return out
}

// ModuleCount is the number of modules across all columns.
func (l Layout) ModuleCount() int {
	n := 0
	for _, col := range l.Columns {
		n += len(col)
	}
	return n
}

// MaxColumnLength is the length of the longest column.
func (l Layout) MaxColumnLength() int {
	longest := 0
	for _, col := range l.Columns {
		if len(col) > longest {
			longest = len(col)
		}
	}
	return longest
}

// Find locates the first module with the given id.
func (l Layout) Find(moduleID int) (column, index int, ok bool) {
	for c, col := range l.Columns {
		for i, mod := range col {
			if mod.ModuleID == moduleID {
				return c, i, true
			}
		}
	}
	return 0, 0, false
}

// UnmarshalJSON applies the wire defaults (60x30, rotation 0, no category)
// and rejects modules missing a required field.
func (m *Module) UnmarshalJSON(data []byte) error {
	var raw struct {
		ModuleID   *int    `json:"module_id"`
		Column     *int    `json:"column"`
		Row        *int    `json:"row"`
		X          *int    `json:"x"`
		Y          *int    `json:"y"`
		Name       *string `json:"name"`
		CategoryID *int    `json:"category_id"`
		Width      *int    `json:"width"`
		Height     *int    `json:"height"`
		Rotation   *int    `json:"rotation"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	var missing []string
	required := []struct {
		name    string
		present bool
	}{
		{"module_id", raw.ModuleID != nil},
		{"column", raw.Column != nil},
		{"row", raw.Row != nil},
		{"x", raw.X != nil},
		{"y", raw.Y != nil},
		{"name", raw.Name != nil},
	}
	for _, f := range required {
		if !f.present {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return svcerrors.MalformedInput("module is missing required field(s): %s", strings.Join(missing, ", "))
	}

	*m = Module{
		ModuleID:   *raw.ModuleID,
		Column:     *raw.Column,
		Row:        *raw.Row,
		X:          *raw.X,
		Y:          *raw.Y,
		Name:       *raw.Name,
		CategoryID: raw.CategoryID,
		Width:      InitialModuleWidth,
		Height:     InitialModuleHeight,
	}
	if raw.Width != nil {
		m.Width = *raw.Width
	}
	if raw.Height != nil {
		m.Height = *raw.Height
	}
	if raw.Rotation != nil {
		m.Rotation = *raw.Rotation
	}
	return nil
}

// UnmarshalJSON requires both store_id and columns.
func (l *Layout) UnmarshalJSON(data []byte) error {
	var raw struct {
		StoreID *int        `json:"store_id"`
		Columns *[][]Module `json:"columns"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch {
	case raw.StoreID == nil && raw.Columns == nil:
		return svcerrors.MalformedInput("layout is missing required fields: store_id, columns")
	case raw.StoreID == nil:
		return svcerrors.MalformedInput("layout is missing required field: store_id")
	case raw.Columns == nil:
		return svcerrors.MalformedInput("layout is missing required field: columns")
	}
	l.StoreID = *raw.StoreID
	l.Columns = *raw.Columns
	return nil
}
