package models

import "errors"

var (
	ErrEmptyCart     = errors.New("cart is empty")
	ErrStaleCartItem = errors.New("cart references a food item that no longer exists")
)

// InvalidTransitionError reports a status change rejected by the
// order state machine, carrying the current status for the client.
type InvalidTransitionError struct {
	From OrderStatus
	To   OrderStatus
}

func (e *InvalidTransitionError) Error() string {
	return "cannot change order status from '" + string(e.From) + "' to '" + string(e.To) + "'"
}
