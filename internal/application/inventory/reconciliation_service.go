package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erp/fulfillment/internal/domain/inventory"
	"github.com/erp/fulfillment/internal/infrastructure/logger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// StagedCount is one counted quantity submitted for a staging batch
type StagedCount struct {
	LocationID string          `json:"location_id" binding:"required"`
	ItemID     string          `json:"item_id" binding:"required"`
	Quantity   decimal.Decimal `json:"quantity"`
}

// ReconcileResult summarizes one reconciliation pass
type ReconcileResult struct {
	BatchID      string                 `json:"batch_id"`
	Records      int                    `json:"records"`
	Differences  []inventory.Difference `json:"differences"`
	AdjustmentID *uuid.UUID             `json:"adjustment_id,omitempty"`
}

// ReconciliationService brings stock levels in line with staged counts
type ReconciliationService struct {
	scope     TransactionScope
	accountID string
	logger    *zap.Logger
}

// NewReconciliationService creates a reconciliation service posting to accountID
func NewReconciliationService(scope TransactionScope, accountID string, log *zap.Logger) (*ReconciliationService, error) {
	if accountID == "" {
		return nil, errors.New("inventory account id is required for staging reconciliation")
	}
	return &ReconciliationService{scope: scope, accountID: accountID, logger: log}, nil
}

// StageCounts stores counted quantities for a batch. Nothing is saved if
// any count is invalid.
func (s *ReconciliationService) StageCounts(ctx context.Context, tenantID uuid.UUID, batchID string, counts []StagedCount) (int, error) {
	records := make([]inventory.StagingRecord, 0, len(counts))
	for i, c := range counts {
		r, err := inventory.NewStagingRecord(tenantID, batchID, c.LocationID, c.ItemID, c.Quantity)
		if err != nil {
			return 0, fmt.Errorf("count %d: %w", i, err)
		}
		records = append(records, *r)
	}
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		return repos.Staging().SaveAll(ctx, records)
	})
	if err != nil {
		return 0, err
	}
	logger.L(ctx, s.logger).Info("staged inventory counts",
		zap.String("batch_id", batchID),
		zap.Int("records", len(records)),
	)
	return len(records), nil
}

// Reconcile posts one adjustment covering every difference between the
// batch's unprocessed counts and current stock, then marks the records
// processed. Everything happens in one transaction.
func (s *ReconciliationService) Reconcile(ctx context.Context, tenantID uuid.UUID, batchID string) (*ReconcileResult, error) {
	result := &ReconcileResult{BatchID: batchID, Differences: make([]inventory.Difference, 0)}

	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		records, err := repos.Staging().FindUnprocessed(ctx, tenantID, batchID)
		if err != nil {
			return fmt.Errorf("load staging records: %w", err)
		}
		result.Records = len(records)
		if len(records) == 0 {
			return nil
		}

		keys := make([]inventory.StockKey, 0, len(records))
		for _, r := range records {
			keys = append(keys, r.Key())
		}
		levels, err := repos.StockLevels().FindByKeys(ctx, tenantID, keys)
		if err != nil {
			return fmt.Errorf("load stock levels: %w", err)
		}
		onHand := make(map[inventory.StockKey]decimal.Decimal, len(levels))
		for k, l := range levels {
			onHand[k] = l.OnHand
		}

		diffs := inventory.Reconcile(records, onHand)
		result.Differences = diffs
		if len(diffs) > 0 {
			adj, err := inventory.NewInventoryAdjustment(tenantID, s.accountID, inventory.ReasonStagingReconciliation, "staging:"+batchID)
			if err != nil {
				return err
			}
			adj.Memo = "Staging reconciliation for batch " + batchID
			for i, d := range diffs {
				if err := adj.AddLine(d.Key.ItemID, d.Key.LocationID, d.Delta, i); err != nil {
					return err
				}
			}
			if err := adj.Post(); err != nil {
				return err
			}
			if err := applyDeltas(ctx, repos.StockLevels(), tenantID, adj.Deltas()); err != nil {
				return err
			}
			if err := repos.Adjustments().Save(ctx, adj); err != nil {
				return fmt.Errorf("save adjustment: %w", err)
			}
			id := adj.ID
			result.AdjustmentID = &id
		}

		now := time.Now()
		for i := range records {
			records[i].MarkProcessed(now)
		}
		return repos.Staging().SaveAll(ctx, records)
	})
	if err != nil {
		return nil, err
	}

	logger.L(ctx, s.logger).Info("staging batch reconciled",
		zap.String("batch_id", batchID),
		zap.Int("records", result.Records),
		zap.Int("differences", len(result.Differences)),
	)
	return result, nil
}
