package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound covers missing lots, designs, orders and users.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned after a validate-then-write unit lost a race and
// its single automatic retry failed too. Callers may retry later.
var ErrConflict = errors.New("concurrent update conflict, retry")

// ValidationError rejects an operation with a human-readable reason and is
// never partially applied.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// Validationf builds a ValidationError.
func Validationf(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// CapacityError rejects a waste submission that would exceed the factory's
// declared capacity; Check carries the usage numbers for the caller.
type CapacityError struct {
	Check CapacityCheck
}

func (e *CapacityError) Error() string { return e.Check.Message }

// InsufficientStockError means consume was asked for more than a lot holds.
// The caller should have checked the fulfillable quantity first, so this is
// surfaced rather than clamped.
type InsufficientStockError struct {
	LotID     string
	Requested float64
	Available float64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for lot %s (need %.2f, have %.2f)", e.LotID, e.Requested, e.Available)
}

// InvalidTransitionError rejects an order-status edge not in the table.
type InvalidTransitionError struct {
	From, To string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid order transition %s -> %s", e.From, e.To)
}
