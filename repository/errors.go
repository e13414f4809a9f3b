package repository

import "errors"

var (
	// ErrNotFound is returned for an unknown pickup id.
	ErrNotFound = errors.New("pickup record not found")
	// ErrStockNotFound is returned when no stock row exists for a SKU.
	ErrStockNotFound = errors.New("device stock not found")
	// ErrInsufficientStock is returned when a reservation would oversell.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrInvalidTransition is returned when a record is no longer pending.
	ErrInvalidTransition = errors.New("invalid status transition")
)
