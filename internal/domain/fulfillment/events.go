package fulfillment

import "github.com/erp/fulfillment/internal/domain/shared"

// EventTypeFulfillmentCompleted is raised when a fulfillment is completed
const EventTypeFulfillmentCompleted = "FulfillmentCompleted"

// FulfillmentCompletedEvent carries the group result to downstream consumers
type FulfillmentCompletedEvent struct {
	shared.BaseDomainEvent
	Result GroupResult `json:"result"`
}

// NewFulfillmentCompletedEvent creates the event for a completed fulfillment
func NewFulfillmentCompletedEvent(f *Fulfillment) *FulfillmentCompletedEvent {
	return &FulfillmentCompletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(
			EventTypeFulfillmentCompleted,
			AggregateTypeFulfillment,
			f.ID,
			f.TenantID,
		),
		Result: NewGroupResult(f),
	}
}
