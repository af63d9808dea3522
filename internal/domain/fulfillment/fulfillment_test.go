package fulfillment

import (
	"testing"
	"time"

	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func shipping(tracking string) string {
	return `{"trackingNumber":"` + tracking + `"}`
}

func line(seq int, item string, qty, amt float64, loc string) OrderLine {
	return OrderLine{
		SequenceNumber: seq,
		ItemID:         item,
		Quantity:       decimal.NewFromFloat(qty),
		Amount:         decimal.NewFromFloat(amt),
		LocationID:     loc,
		ShippingData:   shipping("T" + item),
	}
}

func newOrder(t *testing.T, lines ...OrderLine) *SalesOrder {
	t.Helper()
	order, err := NewSalesOrder(uuid.New(), "SO-1001")
	require.NoError(t, err)
	for _, l := range lines {
		order.AddLine(l)
	}
	return order
}

func TestNewSalesOrder(t *testing.T) {
	_, err := NewSalesOrder(uuid.New(), "  ")
	require.Error(t, err)

	order, err := NewSalesOrder(uuid.New(), "SO-1")
	require.NoError(t, err)
	l := order.AddLine(line(1, "A", 1, 1, "L1"))
	assert.Equal(t, 0, l.LineIndex)
	l = order.AddLine(line(2, "B", 1, 1, "L1"))
	assert.Equal(t, 1, l.LineIndex)
}

func TestSalesOrder_MarkLinesFulfilled(t *testing.T) {
	order := newOrder(t, line(1, "A", 1, 1, "L1"), line(2, "B", 1, 1, "L1"))

	assert.Equal(t, 1, order.MarkLinesFulfilled([]int{0, 7, -1}))
	assert.Equal(t, 0, order.MarkLinesFulfilled([]int{0}))
	assert.Len(t, order.PendingLines(), 1)
	assert.False(t, order.IsFullyFulfilled())

	order.MarkLinesFulfilled([]int{1})
	assert.True(t, order.IsFullyFulfilled())
}

func TestNewFulfillment_Validation(t *testing.T) {
	_, err := NewFulfillment(uuid.New(), uuid.Nil, "SO-1", "L1")
	assert.Error(t, err)
	_, err = NewFulfillment(uuid.New(), uuid.New(), "SO-1", "")
	assert.Error(t, err)
}

func TestFulfillment_Complete(t *testing.T) {
	order := newOrder(t, line(1, "A", 2, 20, "L1"), line(2, "B", 1, 5, "L1"))

	t.Run("nothing received", func(t *testing.T) {
		f, err := DraftFromOrder(order, "L1")
		require.NoError(t, err)
		err = f.Complete(Completion{TotalAmount: decimal.Zero})
		assert.ErrorIs(t, err, ErrNothingReceived)
		assert.Equal(t, StatusPending, f.Status)
		assert.Empty(t, f.GetDomainEvents())
	})

	t.Run("prunes unreceived lines and raises event", func(t *testing.T) {
		f, err := DraftFromOrder(order, "L1")
		require.NoError(t, err)
		require.Len(t, f.Lines, 2)

		p := Partition(order.Lines[:1])
		Match(p.Groups[0], f)

		shipDate := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
		err = f.Complete(Completion{ShipmentID: "SH-9", Memo: "Shipment SH-9", ShipDate: &shipDate, TotalAmount: decimal.NewFromInt(20)})
		require.NoError(t, err)

		assert.Equal(t, StatusComplete, f.Status)
		assert.Len(t, f.Lines, 1)
		assert.Equal(t, "Shipment SH-9", f.Memo)
		assert.Equal(t, 2, f.GetVersion())

		events := f.GetDomainEvents()
		require.Len(t, events, 1)
		evt, ok := events[0].(*FulfillmentCompletedEvent)
		require.True(t, ok)
		assert.Equal(t, EventTypeFulfillmentCompleted, evt.EventType())
		assert.Equal(t, f.ID, evt.AggregateID())
		assert.Equal(t, "SH-9", evt.Result.ShipmentID)
		require.Len(t, evt.Result.ReversalLines, 1)
		assert.Equal(t, "A", evt.Result.ReversalLines[0].ItemID)

		err = f.Complete(Completion{})
		assert.Error(t, err)
	})
}

func TestFulfillment_MarkInventoryReversed(t *testing.T) {
	order := newOrder(t, line(1, "A", 2, 20, "L1"))
	f, err := DraftFromOrder(order, "L1")
	require.NoError(t, err)

	now := time.Now()
	err = f.MarkInventoryReversed(now)
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "INVALID_STATE", domainErr.Code)

	outcome := FulfillGroup(Partition(order.Lines).Groups[0], f, "")
	require.True(t, outcome.Completed)

	require.NoError(t, f.MarkInventoryReversed(now))
	assert.True(t, f.InventoryReversed)
	assert.ErrorIs(t, f.MarkInventoryReversed(now), ErrAlreadyReversed)
}

func TestDraftFromOrder_SkipsFulfilledAndOtherLocations(t *testing.T) {
	order := newOrder(t,
		line(1, "A", 1, 1, "L1"),
		line(2, "B", 1, 1, "L2"),
		line(3, "C", 1, 1, "L1"),
	)
	order.MarkLinesFulfilled([]int{2})

	f, err := DraftFromOrder(order, "L1")
	require.NoError(t, err)
	require.Len(t, f.Lines, 1)
	assert.Equal(t, 1, f.Lines[0].SequenceNumber)
	assert.Equal(t, order.ID, f.SourceOrderID)
	assert.Equal(t, order.TenantID, f.TenantID)
}
