package layouts

import (
	"math"
	"strings"

	"github.com/R3E-Network/layout_service/internal/app/domain/layout"
	"github.com/R3E-Network/layout_service/internal/app/domain/store"
	svcerrors "github.com/R3E-Network/layout_service/internal/errors"
)

// BuildInitialLayout generates the grid for a freshly registered store.
// Module ids come from a single counter walking column 0 top to bottom,
// then column 1, and so on, so the same shape always yields the same ids.
func BuildInitialLayout(st store.Store) layout.Layout {
	columns := make([][]layout.Module, 0, max(st.NumColumns, 0))
	nextID := 0
	for c := 0; c < st.NumColumns; c++ {
		column := make([]layout.Module, 0, max(st.ModulesPerColumn, 0))
		for r := 0; r < st.ModulesPerColumn; r++ {
			column = append(column, layout.Module{
				ModuleID: nextID,
				Column:   c,
				Row:      r,
				X:        c * layout.InitialColumnSpacing,
				Y:        r * layout.InitialRowSpacing,
				Name:     layout.DefaultModuleName(nextID),
				Width:    layout.InitialModuleWidth,
				Height:   layout.InitialModuleHeight,
			})
			nextID++
		}
		columns = append(columns, column)
	}
	return layout.Layout{StoreID: st.ID, Columns: columns}
}

// AddModule appends a module to column 0. Both its id and its row derive
// from the module count of the whole layout rather than of column 0, which
// can produce an id already in use after a removal; callers rely on this
// numbering so it is kept as is.
func AddModule(l *layout.Layout, numColumns int) (layout.Module, error) {
	if numColumns <= 0 {
		return layout.Module{}, svcerrors.MalformedInput("num_columns must be positive to add a module, got %d", numColumns)
	}

	count := l.ModuleCount()
	row := count / numColumns
	mod := layout.Module{
		ModuleID: count,
		Column:   0,
		Row:      row,
		X:        0,
		Y:        row * (layout.AddedModuleHeight + layout.GridUnit),
		Name:     layout.DefaultModuleName(count),
		Width:    layout.AddedModuleWidth,
		Height:   layout.AddedModuleHeight,
	}

	if len(l.Columns) == 0 {
		l.Columns = append(l.Columns, nil)
	}
	l.Columns[0] = append(l.Columns[0], mod)
	return mod, nil
}

// RemoveModule deletes every module carrying moduleID and reports whether
// anything was removed. An unknown id leaves the layout untouched.
func RemoveModule(l *layout.Layout, moduleID int) bool {
	removed := false
	for c, col := range l.Columns {
		kept := make([]layout.Module, 0, len(col))
		for _, mod := range col {
			if mod.ModuleID == moduleID {
				removed = true
				continue
			}
			kept = append(kept, mod)
		}
		if len(kept) != len(col) {
			l.Columns[c] = kept
		}
	}
	return removed
}

// SnapToGrid rounds a position to the nearest multiple of the interactive
// grid unit.
func SnapToGrid(p layout.Position) layout.Position {
	return SnapToGridUnit(p, layout.GridUnit)
}

// SnapToGridUnit rounds each coordinate to the nearest multiple of unit.
// Halfway values round to the even multiple. Coordinates whose nearest
// multiple does not fit in an int clamp to the outermost representable one.
// A non-positive unit falls back to the default grid.
func SnapToGridUnit(p layout.Position, unit int) layout.Position {
	if unit <= 0 {
		unit = layout.GridUnit
	}
	return layout.Position{X: snapInt(p.X, unit), Y: snapInt(p.Y, unit)}
}

func snapInt(v, unit int) int {
	q, r := v/unit, v%unit
	step := 1
	if r < 0 {
		r, step = -r, -1
	}
	if rest := unit - r; r > rest || (r == rest && q%2 != 0) {
		q += step
	}
	switch {
	case q > math.MaxInt/unit:
		q = math.MaxInt / unit
	case q < math.MinInt/unit:
		q = math.MinInt / unit
	}
	return q * unit
}

// ModuleUpdate carries the editable attributes of a module. Nil fields are
// left unchanged.
type ModuleUpdate struct {
	Name          *string `json:"name"`
	CategoryID    *int    `json:"category_id"`
	ClearCategory bool    `json:"clear_category"`
	Width         *int    `json:"width"`
	Height        *int    `json:"height"`
	Rotation      *int    `json:"rotation"`
	X             *int    `json:"x"`
	Y             *int    `json:"y"`
	Snap          bool    `json:"snap"`
}

// Validate checks the update without applying it.
func (u ModuleUpdate) Validate() error {
	if u.Name != nil && strings.TrimSpace(*u.Name) == "" {
		return svcerrors.MalformedInput("name cannot be empty")
	}
	if u.CategoryID != nil && u.ClearCategory {
		return svcerrors.MalformedInput("category_id and clear_category are mutually exclusive")
	}
	if u.Width != nil && (*u.Width < layout.MinModuleSize || *u.Width > layout.MaxModuleSize) {
		return svcerrors.MalformedInput("width must be between %d and %d", layout.MinModuleSize, layout.MaxModuleSize)
	}
	if u.Height != nil && (*u.Height < layout.MinModuleSize || *u.Height > layout.MaxModuleSize) {
		return svcerrors.MalformedInput("height must be between %d and %d", layout.MinModuleSize, layout.MaxModuleSize)
	}
	if u.Rotation != nil && (*u.Rotation < layout.MinRotation || *u.Rotation > layout.MaxRotation) {
		return svcerrors.MalformedInput("rotation must be between %d and %d", layout.MinRotation, layout.MaxRotation)
	}
	return nil
}

// Empty reports whether the update changes nothing.
func (u ModuleUpdate) Empty() bool {
	return u.Name == nil && u.CategoryID == nil && !u.ClearCategory &&
		u.Width == nil && u.Height == nil && u.Rotation == nil &&
		u.X == nil && u.Y == nil && !u.Snap
}

// ApplyUpdate validates u and applies it to mod.
func ApplyUpdate(mod *layout.Module, u ModuleUpdate) error {
	if err := u.Validate(); err != nil {
		return err
	}
	if u.Name != nil {
		mod.Name = strings.TrimSpace(*u.Name)
	}
	if u.CategoryID != nil {
		id := *u.CategoryID
		mod.CategoryID = &id
	}
	if u.ClearCategory {
		mod.CategoryID = nil
	}
	if u.Width != nil {
		mod.Width = *u.Width
	}
	if u.Height != nil {
		mod.Height = *u.Height
	}
	if u.Rotation != nil {
		mod.Rotation = *u.Rotation
	}
	if u.X != nil {
		mod.X = *u.X
	}
	if u.Y != nil {
		mod.Y = *u.Y
	}
	if u.Snap {
		snapped := SnapToGrid(layout.Position{X: mod.X, Y: mod.Y})
		mod.X, mod.Y = snapped.X, snapped.Y
	}
	return nil
}
