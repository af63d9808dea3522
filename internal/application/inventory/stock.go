package inventory

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/erp/fulfillment/internal/domain/inventory"
	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// applyDeltas posts each delta to its stock level, creating levels that do
// not exist yet. Keys are visited in sorted order so concurrent transactions
// lock rows in the same sequence.
func applyDeltas(ctx context.Context, repo inventory.StockLevelRepository, tenantID uuid.UUID, deltas map[inventory.StockKey]decimal.Decimal) error {
	keys := make([]inventory.StockKey, 0, len(deltas))
	for k := range deltas {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].LocationID != keys[j].LocationID {
			return keys[i].LocationID < keys[j].LocationID
		}
		return keys[i].ItemID < keys[j].ItemID
	})

	for _, k := range keys {
		level, err := repo.FindForUpdate(ctx, tenantID, k)
		if errors.Is(err, shared.ErrNotFound) {
			level = inventory.NewStockLevel(tenantID, k.LocationID, k.ItemID)
		} else if err != nil {
			return fmt.Errorf("load stock level %s/%s: %w", k.LocationID, k.ItemID, err)
		}
		if err := level.Apply(deltas[k]); err != nil {
			return err
		}
		if err := repo.Save(ctx, level); err != nil {
			return fmt.Errorf("save stock level %s/%s: %w", k.LocationID, k.ItemID, err)
		}
	}
	return nil
}
