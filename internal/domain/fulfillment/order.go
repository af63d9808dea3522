package fulfillment

import (
	"strings"

	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AggregateTypeSalesOrder identifies sales orders in events and outbox rows
const AggregateTypeSalesOrder = "SalesOrder"

// OrderLine is one line of a source document as read from the host record.
// ShippingData is the raw JSON blob the host stores in a per-line custom field.
type OrderLine struct {
	LineIndex      int
	SequenceNumber int
	ItemID         string
	Quantity       decimal.Decimal
	Amount         decimal.Decimal
	LocationID     string
	ShippingData   string
	Fulfilled      bool
}

// SalesOrder is the source document whose lines drive fulfillment
type SalesOrder struct {
	shared.BaseAggregateRoot
	OrderNumber string
	Lines       []OrderLine
}

// NewSalesOrder creates an empty sales order
func NewSalesOrder(tenantID uuid.UUID, orderNumber string) (*SalesOrder, error) {
	orderNumber = strings.TrimSpace(orderNumber)
	if orderNumber == "" {
		return nil, shared.NewDomainError("INVALID_ORDER_NUMBER", "Order number cannot be empty")
	}
	if len(orderNumber) > 50 {
		return nil, shared.NewDomainError("INVALID_ORDER_NUMBER", "Order number cannot exceed 50 characters")
	}
	return &SalesOrder{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(tenantID),
		OrderNumber:       orderNumber,
		Lines:             make([]OrderLine, 0),
	}, nil
}

// AddLine appends a line and assigns its line index.
// Lines are stored as the host returns them; filtering happens at partition time.
func (o *SalesOrder) AddLine(line OrderLine) *OrderLine {
	line.LineIndex = len(o.Lines)
	o.Lines = append(o.Lines, line)
	o.Touch()
	return &o.Lines[len(o.Lines)-1]
}

// MarkLinesFulfilled flags the given line indices as fulfilled and
// returns how many lines changed state
func (o *SalesOrder) MarkLinesFulfilled(indices []int) int {
	changed := 0
	for _, idx := range indices {
		if idx < 0 || idx >= len(o.Lines) {
			continue
		}
		if !o.Lines[idx].Fulfilled {
			o.Lines[idx].Fulfilled = true
			changed++
		}
	}
	if changed > 0 {
		o.Touch()
	}
	return changed
}

// PendingLines returns lines not yet fulfilled
func (o *SalesOrder) PendingLines() []OrderLine {
	pending := make([]OrderLine, 0, len(o.Lines))
	for _, line := range o.Lines {
		if !line.Fulfilled {
			pending = append(pending, line)
		}
	}
	return pending
}

// IsFullyFulfilled reports whether every line has been fulfilled
func (o *SalesOrder) IsFullyFulfilled() bool {
	for _, line := range o.Lines {
		if !line.Fulfilled {
			return false
		}
	}
	return true
}
