package dto

type AddItemRequest struct {
	Quantity int `json:"quantity" validate:"required,gt=0"`
}

type CheckoutRequest struct {
	CouponCode string `json:"coupon_code"`
}
