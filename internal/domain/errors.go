package domain

import "errors"

// Sentinel errors for domain-level error handling.
// The handler layer maps these to HTTP status codes.
//
// Expected, frequent conditions (cancel miss, no eligible venue, venue
// down) are represented in return values, never as errors. Only
// caller-contract violations surface here.
var (
	ErrInvalidPrice    = errors.New("invalid_price")
	ErrInvalidQuantity = errors.New("invalid_quantity")
	ErrInvalidSide     = errors.New("invalid_side")
	ErrDuplicateOrder  = errors.New("duplicate_order_id")
	ErrVenueNotFound   = errors.New("venue_not_found")
	ErrVenueExists     = errors.New("venue_already_registered")
	ErrOrderNotFound   = errors.New("order_not_found")
	ErrNoMarket        = errors.New("no_market")
)

// ValidationError represents a request validation failure.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}
