package store

import "time"

// Store is a retail location with a fixed grid of module slots.
type Store struct {
	ID               int       `json:"id"`
	Name             string    `json:"name"`
	NumColumns       int       `json:"num_columns"`
	ModulesPerColumn int       `json:"modules_per_column"`
	CreatedAt        time.Time `json:"created_at"`
}

// TotalSlots is the number of module slots implied by the declared shape.
func (s Store) TotalSlots() int {
	return s.NumColumns * s.ModulesPerColumn
}
