package inventory

import (
	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// EventTypeInventoryAdjusted is raised when an adjustment is posted
const EventTypeInventoryAdjusted = "InventoryAdjusted"

// AdjustedLine is the event payload form of an adjustment line
type AdjustedLine struct {
	ItemID        string          `json:"item_id"`
	LocationID    string          `json:"location_id"`
	QuantityDelta decimal.Decimal `json:"quantity_delta"`
}

// InventoryAdjustedEvent announces a posted adjustment
type InventoryAdjustedEvent struct {
	shared.BaseDomainEvent
	AccountID string         `json:"account_id"`
	Reason    Reason         `json:"reason"`
	Reference string         `json:"reference"`
	Lines     []AdjustedLine `json:"lines"`
}

// NewInventoryAdjustedEvent creates the event for an adjustment
func NewInventoryAdjustedEvent(a *InventoryAdjustment) *InventoryAdjustedEvent {
	lines := make([]AdjustedLine, len(a.Lines))
	for i, l := range a.Lines {
		lines[i] = AdjustedLine{ItemID: l.ItemID, LocationID: l.LocationID, QuantityDelta: l.QuantityDelta}
	}
	return &InventoryAdjustedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInventoryAdjusted, AggregateTypeAdjustment, a.ID, a.TenantID),
		AccountID:       a.AccountID,
		Reason:          a.Reason,
		Reference:       a.Reference,
		Lines:           lines,
	}
}
