package fulfillment

import (
	"time"

	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AggregateTypeFulfillment identifies fulfillments in events and outbox rows
const AggregateTypeFulfillment = "Fulfillment"

// Status is the lifecycle state of a fulfillment record
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusComplete Status = "COMPLETE"
)

// FulfillmentLine is a candidate line on a draft fulfillment. Only received
// lines survive Complete.
type FulfillmentLine struct {
	ID              uuid.UUID
	SequenceNumber  int
	ItemID          string
	Quantity        decimal.Decimal
	Amount          decimal.Decimal
	TrackingNumber  string
	TrackingURL     string
	ShipDate        *time.Time
	SourceLineIndex int
	Received        bool
}

// Fulfillment is the destination record produced from one location group
type Fulfillment struct {
	shared.BaseAggregateRoot
	SourceOrderID     uuid.UUID
	OrderNumber       string
	LocationID        string
	Status            Status
	ShipmentID        string
	Memo              string
	ShipDate          *time.Time
	TotalAmount       decimal.Decimal
	Lines             []FulfillmentLine
	InventoryReversed bool
	ReversedAt        *time.Time
}

// NewFulfillment creates a pending fulfillment draft for one location
func NewFulfillment(tenantID, sourceOrderID uuid.UUID, orderNumber, locationID string) (*Fulfillment, error) {
	if sourceOrderID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_SOURCE_ORDER", "Source order ID cannot be empty")
	}
	if locationID == "" {
		return nil, shared.NewDomainError("INVALID_LOCATION", "Location cannot be empty")
	}
	return &Fulfillment{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(tenantID),
		SourceOrderID:     sourceOrderID,
		OrderNumber:       orderNumber,
		LocationID:        locationID,
		Status:            StatusPending,
		TotalAmount:       decimal.Zero,
		Lines:             make([]FulfillmentLine, 0),
	}, nil
}

// AddCandidateLine appends an unreceived line to the draft
func (f *Fulfillment) AddCandidateLine(sequence int, itemID string, quantity decimal.Decimal, sourceLineIndex int) {
	f.Lines = append(f.Lines, FulfillmentLine{
		ID:              uuid.New(),
		SequenceNumber:  sequence,
		ItemID:          itemID,
		Quantity:        quantity,
		Amount:          decimal.Zero,
		SourceLineIndex: sourceLineIndex,
	})
}

// receive marks the destination line at idx as received and copies the
// source line's shipping fields onto it
func (f *Fulfillment) receive(idx int, src GroupLine) {
	line := &f.Lines[idx]
	line.Received = true
	line.ItemID = src.ItemID
	line.Quantity = src.Quantity
	line.Amount = src.Amount
	line.TrackingNumber = src.Shipping.TrackingNumber
	line.TrackingURL = src.Shipping.TrackingURL
	line.SourceLineIndex = src.LineIndex
	if src.Shipping.ShipDate != nil {
		d := *src.Shipping.ShipDate
		line.ShipDate = &d
	}
}

// ReceivedCount returns the number of received lines
func (f *Fulfillment) ReceivedCount() int {
	n := 0
	for _, l := range f.Lines {
		if l.Received {
			n++
		}
	}
	return n
}

// Completion carries the header values stamped onto a fulfillment on completion
type Completion struct {
	ShipmentID  string
	Memo        string
	ShipDate    *time.Time
	TotalAmount decimal.Decimal
}

// Complete prunes unreceived lines, stamps the header and records a
// FulfillmentCompletedEvent
func (f *Fulfillment) Complete(c Completion) error {
	if f.Status != StatusPending {
		return shared.NewDomainError("INVALID_STATE", "Only pending fulfillments can be completed")
	}
	if f.ReceivedCount() == 0 {
		return ErrNothingReceived
	}

	kept := make([]FulfillmentLine, 0, len(f.Lines))
	for _, l := range f.Lines {
		if l.Received {
			kept = append(kept, l)
		}
	}
	f.Lines = kept
	f.ShipmentID = c.ShipmentID
	f.Memo = c.Memo
	if c.ShipDate != nil {
		d := *c.ShipDate
		f.ShipDate = &d
	}
	f.TotalAmount = c.TotalAmount
	f.Status = StatusComplete
	f.IncrementVersion()

	f.AddDomainEvent(NewFulfillmentCompletedEvent(f))
	return nil
}

// MarkInventoryReversed records that the inventory effect of this
// fulfillment has been undone. It fails if that already happened.
func (f *Fulfillment) MarkInventoryReversed(at time.Time) error {
	if f.Status != StatusComplete {
		return shared.NewDomainError("INVALID_STATE", "Only completed fulfillments can be reversed")
	}
	if f.InventoryReversed {
		return ErrAlreadyReversed
	}
	f.InventoryReversed = true
	f.ReversedAt = &at
	f.IncrementVersion()
	return nil
}

// SourceLineIndices returns the order line indices this fulfillment covers
func (f *Fulfillment) SourceLineIndices() []int {
	out := make([]int, 0, len(f.Lines))
	for _, l := range f.Lines {
		if l.Received {
			out = append(out, l.SourceLineIndex)
		}
	}
	return out
}

// DraftFromOrder builds a pending fulfillment whose candidate lines are the
// order's unfulfilled lines at the given location, in line order
func DraftFromOrder(order *SalesOrder, locationID string) (*Fulfillment, error) {
	f, err := NewFulfillment(order.TenantID, order.ID, order.OrderNumber, locationID)
	if err != nil {
		return nil, err
	}
	for _, line := range order.Lines {
		if line.Fulfilled || line.LocationID != locationID {
			continue
		}
		f.AddCandidateLine(line.SequenceNumber, line.ItemID, line.Quantity, line.LineIndex)
	}
	return f, nil
}
