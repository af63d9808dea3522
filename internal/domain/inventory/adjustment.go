package inventory

import (
	"time"

	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AggregateTypeAdjustment identifies adjustments in events and outbox rows
const AggregateTypeAdjustment = "InventoryAdjustment"

// Reason explains why an adjustment was made
type Reason string

const (
	ReasonFulfillmentReversal   Reason = "FULFILLMENT_REVERSAL"
	ReasonStagingReconciliation Reason = "STAGING_RECONCILIATION"
)

// IsValid reports whether the reason is known
func (r Reason) IsValid() bool {
	return r == ReasonFulfillmentReversal || r == ReasonStagingReconciliation
}

// AdjustmentLine is a signed quantity change for one item at one location
type AdjustmentLine struct {
	ID              uuid.UUID
	ItemID          string
	LocationID      string
	QuantityDelta   decimal.Decimal
	SourceLineIndex int
}

// InventoryAdjustment records a set of stock changes posted against an account
type InventoryAdjustment struct {
	shared.BaseAggregateRoot
	AccountID  string
	Reason     Reason
	Reference  string
	Memo       string
	Lines      []AdjustmentLine
	AdjustedAt time.Time
}

// NewInventoryAdjustment creates an empty adjustment
func NewInventoryAdjustment(tenantID uuid.UUID, accountID string, reason Reason, reference string) (*InventoryAdjustment, error) {
	if accountID == "" {
		return nil, shared.NewDomainError("INVALID_ACCOUNT", "Adjustment account cannot be empty")
	}
	if !reason.IsValid() {
		return nil, shared.NewDomainError("INVALID_REASON", "Unknown adjustment reason: "+string(reason))
	}
	return &InventoryAdjustment{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(tenantID),
		AccountID:         accountID,
		Reason:            reason,
		Reference:         reference,
		Lines:             make([]AdjustmentLine, 0),
		AdjustedAt:        time.Now(),
	}, nil
}

// AddLine appends a non-zero delta
func (a *InventoryAdjustment) AddLine(itemID, locationID string, delta decimal.Decimal, sourceLineIndex int) error {
	if itemID == "" || locationID == "" {
		return shared.NewDomainError("INVALID_LINE", "Adjustment line needs an item and a location")
	}
	if delta.IsZero() {
		return ErrZeroDelta
	}
	a.Lines = append(a.Lines, AdjustmentLine{
		ID:              uuid.New(),
		ItemID:          itemID,
		LocationID:      locationID,
		QuantityDelta:   delta,
		SourceLineIndex: sourceLineIndex,
	})
	return nil
}

// Post validates the adjustment and records an InventoryAdjustedEvent
func (a *InventoryAdjustment) Post() error {
	if len(a.Lines) == 0 {
		return ErrEmptyAdjustment
	}
	a.AddDomainEvent(NewInventoryAdjustedEvent(a))
	return nil
}

// Deltas sums line deltas per stock key
func (a *InventoryAdjustment) Deltas() map[StockKey]decimal.Decimal {
	out := make(map[StockKey]decimal.Decimal, len(a.Lines))
	for _, l := range a.Lines {
		k := StockKey{LocationID: l.LocationID, ItemID: l.ItemID}
		out[k] = out[k].Add(l.QuantityDelta)
	}
	return out
}
