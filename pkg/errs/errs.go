// Package errs defines the error taxonomy shared by the ledger, the order
// workflow, the carts and the gateway.
package errs

import (
	"errors"
	"fmt"
)

var (
	ErrProductNotFound     = errors.New("product not found")
	ErrProductUnavailable  = errors.New("product unavailable")
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrInvalidQuantity     = errors.New("invalid quantity")
	ErrInvalidInput        = errors.New("invalid input")
	ErrUnauthenticated     = errors.New("unauthenticated")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrTransactionConflict = errors.New("transaction conflict")

	ErrOrderNotFound     = errors.New("order not found")
	ErrInvalidStatus     = errors.New("invalid order status")
	ErrInvalidTransition = errors.New("invalid status transition")

	ErrLineNotFound = errors.New("cart line not found")
	ErrUserNotFound = errors.New("user not found")
)

// InsufficientStockError names the product and what is actually left so the
// caller can offer to shrink the line.
type InsufficientStockError struct {
	ProductID int64
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %d: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

func InsufficientStock(productID int64, requested, available int) error {
	return &InsufficientStockError{ProductID: productID, Requested: requested, Available: available}
}

// Retryable reports whether the same call may be repeated with the same inputs.
func Retryable(err error) bool {
	return errors.Is(err, ErrTransactionConflict)
}
