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

// failingOrders returns a pending id the service cannot load
type failingOrders struct {
	memOrders
	ghost fulfillment.PendingOrderRef
}

func (r failingOrders) FindPendingIDs(ctx context.Context, limit int) ([]fulfillment.PendingOrderRef, error) {
	refs, err := r.memOrders.FindPendingIDs(ctx, limit)
	return append(refs, r.ghost), err
}

func TestBatchRunner_Run(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	settings := DefaultSettings()
	settings.MapConcurrency = 3
	h := newHarness(t, settings)

	for i := 0; i < 5; i++ {
		h.db.addOrder(scenarioOrder(t, tenantID))
	}
	ghost := fulfillment.PendingOrderRef{TenantID: tenantID, OrderID: uuid.New()}
	orders := failingOrders{memOrders: memOrders{h.db}, ghost: ghost}
	rev := &fakeReverser{}

	runner := NewBatchRunner(orders, h.service, zaptest.NewLogger(t)).WithReverser(rev)
	summary, err := runner.Run(ctx)
	require.NoError(t, err)

	assert.NotEmpty(t, summary.RunID)
	assert.Equal(t, 6, summary.Orders)
	assert.Equal(t, 5, summary.Processed)
	assert.Equal(t, 10, summary.GroupsSaved)
	assert.Equal(t, 10, summary.Reversed)
	assert.Len(t, rev.calls, 10)
	require.Len(t, summary.OrderErrors, 1)
	assert.Equal(t, ghost.OrderID, summary.OrderErrors[0].OrderID)
	assert.Equal(t, 10, h.db.fulfillmentCount())

	// Everything is fulfilled, so a second pass has no input
	second, err := runner.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, second.Orders)
	assert.Zero(t, second.GroupsSaved)
}

func TestBatchRunner_ReversalErrorsCounted(t *testing.T) {
	tenantID := uuid.New()
	h := newHarness(t, DefaultSettings())
	h.db.addOrder(scenarioOrder(t, tenantID))
	rev := &fakeReverser{err: errors.New("inventory locked")}

	summary, err := NewBatchRunner(memOrders{h.db}, h.service, zaptest.NewLogger(t)).
		WithReverser(rev).
		Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.GroupsSaved)
	assert.Equal(t, 2, summary.ReversalErrors)
	assert.Zero(t, summary.Reversed)
}

func TestBatchRunner_WithoutReverser(t *testing.T) {
	tenantID := uuid.New()
	h := newHarness(t, DefaultSettings())
	h.db.addOrder(scenarioOrder(t, tenantID))

	summary, err := NewBatchRunner(memOrders{h.db}, h.service, zaptest.NewLogger(t)).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.GroupsSaved)
	assert.Zero(t, summary.Reversed)
}

func TestFulfillmentCompletedHandler(t *testing.T) {
	ctx := context.Background()
	rev := &fakeReverser{}
	handler := NewFulfillmentCompletedHandler(rev, zaptest.NewLogger(t))

	assert.Equal(t, []string{fulfillment.EventTypeFulfillmentCompleted}, handler.EventTypes())

	t.Run("reverses the carried result", func(t *testing.T) {
		f, err := fulfillment.NewFulfillment(uuid.New(), uuid.New(), "SO-1", "L1")
		require.NoError(t, err)
		event := fulfillment.NewFulfillmentCompletedEvent(f)
		event.Result.ReversalLines = []fulfillment.ReversalLine{{ItemID: "A", LocationID: "L1", Quantity: decimal.NewFromInt(1)}}

		require.NoError(t, handler.Handle(ctx, event))
		require.Len(t, rev.calls, 1)
		assert.Equal(t, f.ID, rev.calls[0].FulfillmentID)
	})

	t.Run("returns reversal errors so delivery is retried", func(t *testing.T) {
		failing := NewFulfillmentCompletedHandler(&fakeReverser{err: errors.New("boom")}, zaptest.NewLogger(t))
		f, err := fulfillment.NewFulfillment(uuid.New(), uuid.New(), "SO-1", "L1")
		require.NoError(t, err)
		assert.Error(t, failing.Handle(ctx, fulfillment.NewFulfillmentCompletedEvent(f)))
	})

	t.Run("rejects other events", func(t *testing.T) {
		base := shared.NewBaseDomainEvent("Other", "Thing", uuid.New(), uuid.New())
		err := handler.Handle(ctx, &base)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "unexpected event type")
	})
}
