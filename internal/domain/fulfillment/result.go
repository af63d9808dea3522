package fulfillment

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ReversalLine is the inventory effect of one received line, to be undone downstream
type ReversalLine struct {
	ItemID          string          `json:"item_id"`
	LocationID      string          `json:"location_id"`
	Quantity        decimal.Decimal `json:"quantity"`
	SourceLineIndex int             `json:"source_line_index"`
}

// GroupResult is emitted once per successfully saved fulfillment
type GroupResult struct {
	TenantID      uuid.UUID       `json:"tenant_id"`
	FulfillmentID uuid.UUID       `json:"fulfillment_id"`
	SourceOrderID uuid.UUID       `json:"source_order_id"`
	OrderNumber   string          `json:"order_number"`
	LocationID    string          `json:"location_id"`
	ShipmentID    string          `json:"shipment_id,omitempty"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	ReceivedLines int             `json:"received_lines"`
	ReversalLines []ReversalLine  `json:"reversal_lines"`
}

// NewGroupResult builds the downstream record from a completed fulfillment
func NewGroupResult(f *Fulfillment) GroupResult {
	lines := make([]ReversalLine, 0, len(f.Lines))
	for _, l := range f.Lines {
		if !l.Received {
			continue
		}
		lines = append(lines, ReversalLine{
			ItemID:          l.ItemID,
			LocationID:      f.LocationID,
			Quantity:        l.Quantity,
			SourceLineIndex: l.SourceLineIndex,
		})
	}
	return GroupResult{
		TenantID:      f.TenantID,
		FulfillmentID: f.ID,
		SourceOrderID: f.SourceOrderID,
		OrderNumber:   f.OrderNumber,
		LocationID:    f.LocationID,
		ShipmentID:    f.ShipmentID,
		TotalAmount:   f.TotalAmount,
		ReceivedLines: len(lines),
		ReversalLines: lines,
	}
}
