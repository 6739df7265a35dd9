package domain

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrForbidden          = errors.New("forbidden")
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrValidation         = errors.New("validation failed")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrExpired            = errors.New("reservation expired")
	ErrMixedInventoryType = errors.New("items span more than one inventory type")
	ErrMixedCurrency      = errors.New("items span more than one currency")
	ErrListingNotTradable = errors.New("listing is not available for trading")
	ErrBelowMinimum       = errors.New("quantity below listing minimum")
)
