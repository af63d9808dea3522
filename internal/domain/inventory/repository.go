package inventory

import (
	"context"

	"github.com/google/uuid"
)

// StockLevelRepository loads and stores stock levels
type StockLevelRepository interface {
	// FindForUpdate returns the level for the key, locking the row where the
	// store supports it. It returns shared.ErrNotFound when the row is absent.
	FindForUpdate(ctx context.Context, tenantID uuid.UUID, key StockKey) (*StockLevel, error)
	FindByKeys(ctx context.Context, tenantID uuid.UUID, keys []StockKey) (map[StockKey]*StockLevel, error)
	Save(ctx context.Context, level *StockLevel) error
}

// AdjustmentRepository stores adjustments and their pending events
type AdjustmentRepository interface {
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*InventoryAdjustment, error)
	FindByReference(ctx context.Context, tenantID uuid.UUID, reference string) ([]InventoryAdjustment, error)
	Save(ctx context.Context, adj *InventoryAdjustment) error
}

// ReversalIntentRepository stores reversal intents. Save fails with
// shared.ErrAlreadyExists when the idempotency key is taken.
type ReversalIntentRepository interface {
	FindByKey(ctx context.Context, tenantID uuid.UUID, key string) (*ReversalIntent, error)
	Save(ctx context.Context, intent *ReversalIntent) error
}

// StagingRepository loads and updates staging records
type StagingRepository interface {
	FindUnprocessed(ctx context.Context, tenantID uuid.UUID, batchID string) ([]StagingRecord, error)
	SaveAll(ctx context.Context, records []StagingRecord) error
}
