package fulfillment

import (
	"context"
	"fmt"

	"github.com/erp/fulfillment/internal/domain/fulfillment"
	"github.com/erp/fulfillment/internal/domain/shared"
	"go.uber.org/zap"
)

// FulfillmentCompletedHandler hands completed fulfillments delivered by the
// outbox to the inventory reversal
type FulfillmentCompletedHandler struct {
	reverser Reverser
	logger   *zap.Logger
}

// NewFulfillmentCompletedHandler creates the handler
func NewFulfillmentCompletedHandler(reverser Reverser, logger *zap.Logger) *FulfillmentCompletedHandler {
	return &FulfillmentCompletedHandler{reverser: reverser, logger: logger}
}

// EventTypes returns the event types this handler is interested in
func (h *FulfillmentCompletedHandler) EventTypes() []string {
	return []string{fulfillment.EventTypeFulfillmentCompleted}
}

// Handle reverses the inventory of the completed fulfillment. Redelivery is
// safe because the reversal is idempotent per fulfillment.
func (h *FulfillmentCompletedHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	completed, ok := event.(*fulfillment.FulfillmentCompletedEvent)
	if !ok {
		h.logger.Error("unexpected event type",
			zap.String("expected", fulfillment.EventTypeFulfillmentCompleted),
			zap.String("actual", event.EventType()),
		)
		return fmt.Errorf("unexpected event type: expected %s, got %s",
			fulfillment.EventTypeFulfillmentCompleted, event.EventType())
	}

	h.logger.Info("processing fulfillment completed event",
		zap.String("fulfillment_id", completed.Result.FulfillmentID.String()),
		zap.String("order_number", completed.Result.OrderNumber),
		zap.String("location_id", completed.Result.LocationID),
		zap.Int("lines", len(completed.Result.ReversalLines)),
	)

	if _, err := h.reverser.Reverse(ctx, completed.Result); err != nil {
		return fmt.Errorf("reverse fulfillment %s: %w", completed.Result.FulfillmentID, err)
	}
	return nil
}
