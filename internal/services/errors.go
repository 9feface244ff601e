package services

import "errors"

// Business-rule errors returned to callers as typed results. Handlers map
// these to HTTP statuses; anything else is treated as a storage failure.
var (
	ErrNotFound          = errors.New("resource not found")
	ErrInsufficientStock = errors.New("insufficient quantity available")
	ErrNotListed         = errors.New("crop batch is not listed for sale")
	ErrAlreadyResolved   = errors.New("reservation already resolved")
	ErrInvalidTransition = errors.New("invalid state transition")
	ErrUnauthorizedRole  = errors.New("not authorized to perform this action")
	ErrShipmentClosed    = errors.New("shipment is closed")
	ErrAlreadyCompleted  = errors.New("payment already completed")
	ErrAmountMismatch    = errors.New("payment amount does not match order total")
)

// ErrorKind returns the stable wire label for a business error, or an empty
// string when err is not one of the known kinds.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "NOT_FOUND"
	case errors.Is(err, ErrInsufficientStock):
		return "INSUFFICIENT_STOCK"
	case errors.Is(err, ErrNotListed):
		return "NOT_LISTED"
	case errors.Is(err, ErrAlreadyResolved):
		return "ALREADY_RESOLVED"
	case errors.Is(err, ErrInvalidTransition):
		return "INVALID_TRANSITION"
	case errors.Is(err, ErrUnauthorizedRole):
		return "UNAUTHORIZED_ROLE"
	case errors.Is(err, ErrShipmentClosed):
		return "SHIPMENT_CLOSED"
	case errors.Is(err, ErrAlreadyCompleted):
		return "ALREADY_COMPLETED"
	case errors.Is(err, ErrAmountMismatch):
		return "AMOUNT_MISMATCH"
	}
	return ""
}
