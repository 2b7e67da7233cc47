package entity

import "errors"

var (
	ErrCartNotFound       = errors.New("cart not found")
	ErrProductNotFound    = errors.New("product not found")
	ErrServiceUnavailable = errors.New("product service is currently unavailable, please try again later")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidQuantity    = errors.New("quantity must be at least 1")
	ErrInvalidProductID   = errors.New("product id is required")
	ErrCartConflict       = errors.New("cart was modified concurrently")
)
