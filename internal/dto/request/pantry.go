package request

type AddPantryItemRequest struct {
	Name     string  `json:"name" validate:"required,min=1,max=100"`
	Quantity *string `json:"quantity,omitempty" validate:"omitempty,max=50"`
}

type UpdatePantryItemRequest struct {
	Quantity *string `json:"quantity" validate:"omitempty,max=50"`
}
