// Package share computes how much of a store's declared floor space each
// category occupies.
package share

import (
	"sort"

	"github.com/R3E-Network/layout_service/internal/app/domain/layout"
	"github.com/R3E-Network/layout_service/internal/app/domain/store"
	svcerrors "github.com/R3E-Network/layout_service/internal/errors"
)

// Compute returns category id -> percentage of the store's declared slots.
//
// The denominator is num_columns * modules_per_column from the store record,
// not the number of modules actually present in l, so a layout that drifted
// from its store's shape can total more or less than 100. Categories with no
// assigned module are absent. Values are not rounded.
func Compute(l layout.Layout, st store.Store) (map[int]float64, error) {
	total := st.TotalSlots()
	if total == 0 {
		return nil, svcerrors.DivisionByZero(st.ID)
	}

	counts := make(map[int]int)
	for _, col := range l.Columns {
		for _, mod := range col {
			if mod.CategoryID != nil {
				counts[*mod.CategoryID]++
			}
		}
	}

	result := make(map[int]float64, len(counts))
	for id, count := range counts {
		result[id] = (float64(count) / float64(total)) * 100
	}
	return result, nil
}

// Entry is one row of a share report.
type Entry struct {
	CategoryID int     `json:"category_id"`
	Percentage float64 `json:"percentage"`
}

// Sorted orders a share mapping by descending percentage, then category id.
func Sorted(shares map[int]float64) []Entry {
	out := make([]Entry, 0, len(shares))
	for id, pct := range shares {
		out = append(out, Entry{CategoryID: id, Percentage: pct})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Percentage != out[j].Percentage {
			return out[i].Percentage > out[j].Percentage
		}
		return out[i].CategoryID < out[j].CategoryID
	})
	return out
}
