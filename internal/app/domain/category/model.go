package category

import "time"

// Category is a product classification referenced by modules of any store.
type Category struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}
