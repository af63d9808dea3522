package inventory

import "github.com/erp/fulfillment/internal/domain/shared"

var (
	// ErrZeroDelta is returned when an adjustment line would change nothing
	ErrZeroDelta = shared.NewDomainError("ZERO_DELTA", "Adjustment quantity cannot be zero")
	// ErrEmptyAdjustment is returned when posting an adjustment without lines
	ErrEmptyAdjustment = shared.NewDomainError("EMPTY_ADJUSTMENT", "Adjustment has no lines")
)
