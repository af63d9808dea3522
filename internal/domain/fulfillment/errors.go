package fulfillment

import "github.com/erp/fulfillment/internal/domain/shared"

var (
	// ErrNothingReceived is returned when a fulfillment would be completed without any received line
	ErrNothingReceived = shared.NewDomainError("NOTHING_RECEIVED", "No destination line was received")
	// ErrAlreadyReversed is returned when the inventory effect was already undone
	ErrAlreadyReversed = shared.NewDomainError("ALREADY_REVERSED", "Fulfillment inventory was already reversed")
	// ErrNoDestinationLines is returned when the transformed record has no lines to match against
	ErrNoDestinationLines = shared.NewDomainError("NO_DESTINATION_LINES", "Fulfillment draft has no lines")
)
