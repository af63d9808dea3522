package inventory

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStockLevel_Apply(t *testing.T) {
	level := NewStockLevel(uuid.New(), "L1", "A")

	require.NoError(t, level.Apply(decimal.NewFromInt(5)))
	assert.True(t, level.OnHand.Equal(decimal.NewFromInt(5)))
	assert.Equal(t, 2, level.Version)

	require.NoError(t, level.Apply(decimal.NewFromInt(-5)))
	assert.True(t, level.OnHand.IsZero())

	err := level.Apply(decimal.NewFromInt(-1))
	require.Error(t, err)
	assert.True(t, level.OnHand.IsZero())
	assert.Equal(t, 3, level.Version)
}

func TestNewInventoryAdjustment(t *testing.T) {
	_, err := NewInventoryAdjustment(uuid.New(), "", ReasonFulfillmentReversal, "ref")
	assert.Error(t, err)

	_, err = NewInventoryAdjustment(uuid.New(), "1200", Reason("BOGUS"), "ref")
	assert.Error(t, err)

	adj, err := NewInventoryAdjustment(uuid.New(), "1200", ReasonFulfillmentReversal, "ref")
	require.NoError(t, err)
	assert.Empty(t, adj.Lines)
}

func TestInventoryAdjustment_LinesAndPost(t *testing.T) {
	adj, err := NewInventoryAdjustment(uuid.New(), "1200", ReasonFulfillmentReversal, "F-1")
	require.NoError(t, err)

	assert.ErrorIs(t, adj.Post(), ErrEmptyAdjustment)
	assert.ErrorIs(t, adj.AddLine("A", "L1", decimal.Zero, 0), ErrZeroDelta)
	assert.Error(t, adj.AddLine("", "L1", decimal.NewFromInt(1), 0))

	require.NoError(t, adj.AddLine("A", "L1", decimal.NewFromInt(2), 0))
	require.NoError(t, adj.AddLine("A", "L1", decimal.NewFromInt(3), 1))
	require.NoError(t, adj.AddLine("B", "L1", decimal.NewFromInt(1), 2))

	deltas := adj.Deltas()
	assert.True(t, deltas[StockKey{LocationID: "L1", ItemID: "A"}].Equal(decimal.NewFromInt(5)))
	assert.True(t, deltas[StockKey{LocationID: "L1", ItemID: "B"}].Equal(decimal.NewFromInt(1)))

	require.NoError(t, adj.Post())
	events := adj.GetDomainEvents()
	require.Len(t, events, 1)
	evt := events[0].(*InventoryAdjustedEvent)
	assert.Equal(t, EventTypeInventoryAdjusted, evt.EventType())
	assert.Equal(t, "F-1", evt.Reference)
	assert.Len(t, evt.Lines, 3)
}

func TestNewReversalIntent(t *testing.T) {
	fid := uuid.New()
	adjID := uuid.New()
	intent := NewReversalIntent(uuid.New(), fid, &adjID)

	assert.Equal(t, "reversal:"+fid.String(), intent.IdempotencyKey)
	assert.Equal(t, IntentApplied, intent.Status)
	assert.Equal(t, adjID, *intent.AdjustmentID)
}

func TestNewStagingRecord(t *testing.T) {
	tenant := uuid.New()
	_, err := NewStagingRecord(tenant, "", "L1", "A", decimal.NewFromInt(1))
	assert.Error(t, err)
	_, err = NewStagingRecord(tenant, "B1", "L1", "A", decimal.NewFromInt(-1))
	assert.Error(t, err)

	rec, err := NewStagingRecord(tenant, "B1", "L1", "A", decimal.NewFromInt(4))
	require.NoError(t, err)
	rec.MarkProcessed(time.Now())
	assert.True(t, rec.Processed)
	assert.NotNil(t, rec.ProcessedAt)
}

func TestReconcile(t *testing.T) {
	tenant := uuid.New()
	mk := func(loc, item string, qty int64) StagingRecord {
		r, err := NewStagingRecord(tenant, "B1", loc, item, decimal.NewFromInt(qty))
		require.NoError(t, err)
		return *r
	}
	done := mk("L1", "D", 100)
	done.Processed = true

	records := []StagingRecord{
		mk("L1", "A", 10), // matches on-hand
		mk("L1", "B", 3),  // below on-hand
		mk("L2", "C", 7),  // no stock row yet
		mk("L1", "B", 4),  // recount wins
		done,
	}
	onHand := map[StockKey]decimal.Decimal{
		{LocationID: "L1", ItemID: "A"}: decimal.NewFromInt(10),
		{LocationID: "L1", ItemID: "B"}: decimal.NewFromInt(6),
		{LocationID: "L1", ItemID: "D"}: decimal.NewFromInt(1),
	}

	diffs := Reconcile(records, onHand)

	require.Len(t, diffs, 2)
	assert.Equal(t, StockKey{LocationID: "L1", ItemID: "B"}, diffs[0].Key)
	assert.True(t, diffs[0].Delta.Equal(decimal.NewFromInt(-2)))
	assert.Equal(t, StockKey{LocationID: "L2", ItemID: "C"}, diffs[1].Key)
	assert.True(t, diffs[1].Delta.Equal(decimal.NewFromInt(7)))
}
