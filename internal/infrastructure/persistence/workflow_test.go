package persistence

import (
	"context"
	"testing"

	appfulfillment "github.com/erp/fulfillment/internal/application/fulfillment"
	appinventory "github.com/erp/fulfillment/internal/application/inventory"
	"github.com/erp/fulfillment/internal/domain/inventory"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// TestFulfillAndReverse drives the services against sqlite: an order is
// fulfilled per location, then each fulfillment's stock effect is reversed
// exactly once.
func TestFulfillAndReverse(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	log := zaptest.NewLogger(t)
	tenantID := uuid.New()

	orders := NewGormSalesOrderRepository(db)
	scope := NewGormTransactionScope(db, newOutbox())
	svc := appfulfillment.NewService(orders, NewGormDocumentTransformer(db), scope.Fulfillment(),
		appfulfillment.DefaultSettings(), log)
	reverser, err := appinventory.NewReversalService(scope.Inventory(), "1200", log)
	require.NoError(t, err)

	order := testOrder(t, tenantID, "SO-42")
	require.NoError(t, orders.Save(ctx, order))

	report, err := svc.ProcessOrder(ctx, tenantID, order.ID, appfulfillment.NewUnitBudget(1000))
	require.NoError(t, err)
	assert.Equal(t, 2, report.Saved)
	results := report.Results()
	require.Len(t, results, 2)

	pending, err := orders.FindPendingIDs(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, pending)

	for _, r := range results {
		out, err := reverser.Reverse(ctx, r)
		require.NoError(t, err)
		assert.Equal(t, appinventory.ReversalApplied, out.Status)

		again, err := reverser.Reverse(ctx, r)
		require.NoError(t, err)
		assert.Equal(t, appinventory.ReversalAlreadyApplied, again.Status)
		assert.Equal(t, out.AdjustmentID, again.AdjustmentID)
	}

	levels, err := NewGormStockLevelRepository(db).FindByKeys(ctx, tenantID, []inventory.StockKey{
		{LocationID: "L1", ItemID: "A"},
		{LocationID: "L1", ItemID: "B"},
		{LocationID: "L2", ItemID: "C"},
	})
	require.NoError(t, err)
	require.Len(t, levels, 3)
	assert.True(t, levels[inventory.StockKey{LocationID: "L1", ItemID: "A"}].OnHand.Equal(decimal.NewFromInt(1)))
	assert.True(t, levels[inventory.StockKey{LocationID: "L2", ItemID: "C"}].OnHand.Equal(decimal.NewFromInt(3)))

	list, err := NewGormFulfillmentRepository(db, nil).FindBySourceOrder(ctx, tenantID, order.ID)
	require.NoError(t, err)
	for _, f := range list {
		assert.True(t, f.InventoryReversed)
	}
}

func TestStageAndReconcile(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	tenantID := uuid.New()
	scope := NewGormTransactionScope(db, newOutbox())

	existing := inventory.NewStockLevel(tenantID, "L1", "A")
	require.NoError(t, existing.Apply(decimal.NewFromInt(10)))
	require.NoError(t, NewGormStockLevelRepository(db).Save(ctx, existing))

	svc, err := appinventory.NewReconciliationService(scope.Inventory(), "1300", zaptest.NewLogger(t))
	require.NoError(t, err)

	n, err := svc.StageCounts(ctx, tenantID, "cycle-1", []appinventory.StagedCount{
		{LocationID: "L1", ItemID: "A", Quantity: decimal.NewFromInt(7)},
		{LocationID: "L1", ItemID: "B", Quantity: decimal.NewFromInt(2)},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	result, err := svc.Reconcile(ctx, tenantID, "cycle-1")
	require.NoError(t, err)
	assert.Equal(t, 2, result.Records)
	assert.Len(t, result.Differences, 2)
	require.NotNil(t, result.AdjustmentID)

	levels, err := NewGormStockLevelRepository(db).FindByKeys(ctx, tenantID, []inventory.StockKey{
		{LocationID: "L1", ItemID: "A"}, {LocationID: "L1", ItemID: "B"},
	})
	require.NoError(t, err)
	assert.True(t, levels[inventory.StockKey{LocationID: "L1", ItemID: "A"}].OnHand.Equal(decimal.NewFromInt(7)))
	assert.True(t, levels[inventory.StockKey{LocationID: "L1", ItemID: "B"}].OnHand.Equal(decimal.NewFromInt(2)))

	again, err := svc.Reconcile(ctx, tenantID, "cycle-1")
	require.NoError(t, err)
	assert.Equal(t, 0, again.Records)
	assert.Nil(t, again.AdjustmentID)
}
