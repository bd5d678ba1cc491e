package response

import "time"

type PantryItemResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Quantity  *string   `json:"quantity,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type PantryResponse struct {
	Items []PantryItemResponse `json:"items"`
	Total int                  `json:"total"`
}
