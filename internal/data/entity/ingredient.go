package entity

import "github.com/google/uuid"

type Ingredient struct {
	BaseSimple
	Name string `db:"name"`
}

// PantryItem links a user to an ingredient they have on hand. Quantity is
// free-form text ("750ml", "half a bottle") and optional.
type PantryItem struct {
	BaseSimple
	UserID       uuid.UUID `db:"user_id"`
	IngredientID uuid.UUID `db:"ingredient_id"`
	Quantity     *string   `db:"quantity"`

	IngredientName string `db:"-"`
}
