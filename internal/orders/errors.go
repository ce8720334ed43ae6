package orders

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyCart    = errors.New("cart is empty")
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized access")
	ErrInvalidQty   = errors.New("quantity must be greater than 0")
)

// InsufficientStockError is a business-rule outcome, not a defect: a checkout
// asked for more units than the product row holds.
type InsufficientStockError struct {
	ProductID   string
	ProductName string
	Requested   int
	Available   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: requested %d, available %d",
		e.ProductName, e.Requested, e.Available)
}

// InvalidTransitionError names both states so the caller can report exactly
// which transition was refused.
type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid order status transition %s -> %s", e.From, e.To)
}
