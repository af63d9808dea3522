package inventory

import (
	"context"
	"testing"

	"github.com/erp/fulfillment/internal/domain/inventory"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestReconciliationService(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()

	setup := func(t *testing.T) (*memStore, *ReconciliationService) {
		store := newMemStore()
		seedLevel(store, tenantID, "L1", "A", 10)
		seedLevel(store, tenantID, "L1", "B", 5)
		svc, err := NewReconciliationService(store, "ACC-1200", zaptest.NewLogger(t))
		require.NoError(t, err)
		return store, svc
	}

	t.Run("adjusts only differing items", func(t *testing.T) {
		store, svc := setup(t)
		n, err := svc.StageCounts(ctx, tenantID, "CNT-1", []StagedCount{
			{LocationID: "L1", ItemID: "A", Quantity: decimal.NewFromInt(10)},
			{LocationID: "L1", ItemID: "B", Quantity: decimal.NewFromInt(3)},
			{LocationID: "L2", ItemID: "C", Quantity: decimal.NewFromInt(7)},
		})
		require.NoError(t, err)
		assert.Equal(t, 3, n)

		res, err := svc.Reconcile(ctx, tenantID, "CNT-1")
		require.NoError(t, err)
		assert.Equal(t, 3, res.Records)
		require.Len(t, res.Differences, 2)
		require.NotNil(t, res.AdjustmentID)

		deltas := map[inventory.StockKey]string{}
		for _, d := range res.Differences {
			deltas[d.Key] = d.Delta.String()
		}
		assert.Equal(t, "-2", deltas[inventory.StockKey{LocationID: "L1", ItemID: "B"}])
		assert.Equal(t, "7", deltas[inventory.StockKey{LocationID: "L2", ItemID: "C"}])

		assert.Equal(t, "10", store.onHand("L1", "A"))
		assert.Equal(t, "3", store.onHand("L1", "B"))
		assert.Equal(t, "7", store.onHand("L2", "C"))

		adj := store.adjustments[*res.AdjustmentID]
		assert.Equal(t, inventory.ReasonStagingReconciliation, adj.Reason)
		assert.Len(t, adj.Lines, 2)

		again, err := svc.Reconcile(ctx, tenantID, "CNT-1")
		require.NoError(t, err)
		assert.Zero(t, again.Records)
		assert.Nil(t, again.AdjustmentID)
		assert.Len(t, store.adjustments, 1)
	})

	t.Run("matching counts post nothing", func(t *testing.T) {
		store, svc := setup(t)
		_, err := svc.StageCounts(ctx, tenantID, "CNT-2", []StagedCount{
			{LocationID: "L1", ItemID: "A", Quantity: decimal.NewFromInt(10)},
		})
		require.NoError(t, err)

		res, err := svc.Reconcile(ctx, tenantID, "CNT-2")
		require.NoError(t, err)
		assert.Empty(t, res.Differences)
		assert.Nil(t, res.AdjustmentID)
		assert.Empty(t, store.adjustments)
		for _, rec := range store.staging {
			assert.True(t, rec.Processed)
		}
	})

	t.Run("invalid count stages nothing", func(t *testing.T) {
		store, svc := setup(t)
		_, err := svc.StageCounts(ctx, tenantID, "CNT-3", []StagedCount{
			{LocationID: "L1", ItemID: "A", Quantity: decimal.NewFromInt(1)},
			{LocationID: "L1", ItemID: "", Quantity: decimal.NewFromInt(1)},
		})
		assert.Error(t, err)
		assert.Empty(t, store.staging)
	})

	t.Run("requires account", func(t *testing.T) {
		_, err := NewReconciliationService(newMemStore(), "", zaptest.NewLogger(t))
		assert.Error(t, err)
	})
}
