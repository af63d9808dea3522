package inventory

import (
	"time"

	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StagingRecord is a counted quantity loaded for reconciliation
type StagingRecord struct {
	ID              uuid.UUID
	TenantID        uuid.UUID
	BatchID         string
	LocationID      string
	ItemID          string
	CountedQuantity decimal.Decimal
	Processed       bool
	ProcessedAt     *time.Time
}

// NewStagingRecord validates and creates a staging record
func NewStagingRecord(tenantID uuid.UUID, batchID, locationID, itemID string, counted decimal.Decimal) (*StagingRecord, error) {
	if batchID == "" || locationID == "" || itemID == "" {
		return nil, shared.NewDomainError("INVALID_STAGING", "Staging record needs batch, location and item")
	}
	if counted.IsNegative() {
		return nil, shared.NewDomainError("INVALID_STAGING", "Counted quantity cannot be negative")
	}
	return &StagingRecord{
		ID:              uuid.New(),
		TenantID:        tenantID,
		BatchID:         batchID,
		LocationID:      locationID,
		ItemID:          itemID,
		CountedQuantity: counted,
	}, nil
}

// Key returns the location/item key
func (r *StagingRecord) Key() StockKey {
	return StockKey{LocationID: r.LocationID, ItemID: r.ItemID}
}

// MarkProcessed flags the record as reconciled
func (r *StagingRecord) MarkProcessed(at time.Time) {
	r.Processed = true
	r.ProcessedAt = &at
}

// Difference is the delta needed to bring on-hand to the counted quantity
type Difference struct {
	Key   StockKey        `json:"key"`
	Delta decimal.Decimal `json:"delta"`
}

// Reconcile compares counted quantities with on-hand levels and returns one
// difference per key whose quantities disagree, in record order. When a key
// is counted more than once the last count wins. Processed records are ignored.
func Reconcile(records []StagingRecord, onHand map[StockKey]decimal.Decimal) []Difference {
	counted := make(map[StockKey]decimal.Decimal)
	order := make([]StockKey, 0, len(records))
	for _, r := range records {
		if r.Processed {
			continue
		}
		k := r.Key()
		if _, seen := counted[k]; !seen {
			order = append(order, k)
		}
		counted[k] = r.CountedQuantity
	}

	diffs := make([]Difference, 0)
	for _, k := range order {
		delta := counted[k].Sub(onHand[k])
		if delta.IsZero() {
			continue
		}
		diffs = append(diffs, Difference{Key: k, Delta: delta})
	}
	return diffs
}
