package fulfillment

import (
	"context"
	"errors"
	"testing"

	"github.com/erp/fulfillment/internal/domain/fulfillment"
	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func completedEvent() *fulfillment.FulfillmentCompletedEvent {
	id := uuid.New()
	return &fulfillment.FulfillmentCompletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(
			fulfillment.EventTypeFulfillmentCompleted,
			fulfillment.AggregateTypeFulfillment,
			id,
			uuid.New(),
		),
		Result: fulfillment.GroupResult{
			FulfillmentID: id,
			LocationID:    "L1",
			TotalAmount:   decimal.NewFromInt(25),
			ReversalLines: []fulfillment.ReversalLine{
				{ItemID: "A", LocationID: "L1", Quantity: decimal.NewFromInt(2)},
			},
		},
	}
}

func TestFulfillmentCompletedHandler_Reverses(t *testing.T) {
	rev := &fakeReverser{}
	h := NewFulfillmentCompletedHandler(rev, zaptest.NewLogger(t))
	event := completedEvent()

	assert.Equal(t, []string{fulfillment.EventTypeFulfillmentCompleted}, h.EventTypes())
	require.NoError(t, h.Handle(context.Background(), event))

	require.Len(t, rev.calls, 1)
	assert.Equal(t, event.Result.FulfillmentID, rev.calls[0].FulfillmentID)
}

func TestFulfillmentCompletedHandler_PropagatesFailure(t *testing.T) {
	rev := &fakeReverser{err: errors.New("stock table locked")}
	h := NewFulfillmentCompletedHandler(rev, zaptest.NewLogger(t))

	err := h.Handle(context.Background(), completedEvent())

	assert.ErrorContains(t, err, "stock table locked")
}

func TestFulfillmentCompletedHandler_RejectsOtherEvents(t *testing.T) {
	h := NewFulfillmentCompletedHandler(&fakeReverser{}, zaptest.NewLogger(t))
	other := shared.NewBaseDomainEvent("InventoryAdjusted", "InventoryAdjustment", uuid.New(), uuid.New())

	err := h.Handle(context.Background(), &other)

	assert.ErrorContains(t, err, "unexpected event type")
}
