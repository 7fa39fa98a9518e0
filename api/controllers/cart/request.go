package cart

type addItemRequest struct {
	ProductID uint  `json:"product_id" validate:"required"`
	VariantID *uint `json:"variant_id,omitempty" validate:"omitempty,gt=0"`
	Quantity  int   `json:"quantity" validate:"required,min=1,max=999"`
}

type updateItemRequest struct {
	Quantity int `json:"quantity" validate:"required,min=1,max=999"`
}

type applyCouponRequest struct {
	Code string `json:"code" validate:"required,max=64"`
}
