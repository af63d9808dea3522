package models

import (
	"strconv"
	"time"

	"github.com/erp/fulfillment/internal/domain/fulfillment"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SalesOrderModel is the host's source document
type SalesOrderModel struct {
	AggregateModel
	OrderNumber string           `gorm:"type:varchar(50);not null;index"`
	Lines       []OrderLineModel `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM
func (SalesOrderModel) TableName() string {
	return "sales_orders"
}

// OrderLineModel is one source line. ShippingData holds the raw JSON blob.
type OrderLineModel struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey"`
	OrderID        uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_order_line,priority:1"`
	LineIndex      int             `gorm:"not null;uniqueIndex:idx_order_line,priority:2"`
	SequenceNumber int             `gorm:"not null"`
	ItemID         string          `gorm:"type:varchar(64);not null"`
	Quantity       decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Amount         decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	LocationID     string          `gorm:"type:varchar(64);index"`
	ShippingData   string          `gorm:"type:text"`
	Fulfilled      bool            `gorm:"not null;default:false;index"`
}

// TableName returns the table name for GORM
func (OrderLineModel) TableName() string {
	return "sales_order_lines"
}

// OrderLineID derives a stable row id from the order and line index
func OrderLineID(orderID uuid.UUID, lineIndex int) uuid.UUID {
	return uuid.NewSHA1(orderID, []byte(strconv.Itoa(lineIndex)))
}

// SalesOrderModelFromDomain converts a sales order for persistence
func SalesOrderModelFromDomain(o *fulfillment.SalesOrder) *SalesOrderModel {
	m := &SalesOrderModel{OrderNumber: o.OrderNumber, Lines: make([]OrderLineModel, len(o.Lines))}
	m.FromAggregateRoot(o.BaseAggregateRoot)
	for i, l := range o.Lines {
		m.Lines[i] = OrderLineModel{
			ID:             OrderLineID(o.ID, l.LineIndex),
			OrderID:        o.ID,
			LineIndex:      l.LineIndex,
			SequenceNumber: l.SequenceNumber,
			ItemID:         l.ItemID,
			Quantity:       l.Quantity,
			Amount:         l.Amount,
			LocationID:     l.LocationID,
			ShippingData:   l.ShippingData,
			Fulfilled:      l.Fulfilled,
		}
	}
	return m
}

// ToDomain converts back to a sales order. Lines must be sorted by LineIndex.
func (m *SalesOrderModel) ToDomain() *fulfillment.SalesOrder {
	o := &fulfillment.SalesOrder{
		BaseAggregateRoot: m.AggregateRoot(),
		OrderNumber:       m.OrderNumber,
		Lines:             make([]fulfillment.OrderLine, len(m.Lines)),
	}
	for i, l := range m.Lines {
		o.Lines[i] = fulfillment.OrderLine{
			LineIndex:      l.LineIndex,
			SequenceNumber: l.SequenceNumber,
			ItemID:         l.ItemID,
			Quantity:       l.Quantity,
			Amount:         l.Amount,
			LocationID:     l.LocationID,
			ShippingData:   l.ShippingData,
			Fulfilled:      l.Fulfilled,
		}
	}
	return o
}

// FulfillmentModel is a destination record for one location group
type FulfillmentModel struct {
	AggregateModel
	SourceOrderID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	OrderNumber       string          `gorm:"type:varchar(50);not null"`
	LocationID        string          `gorm:"type:varchar(64);not null"`
	Status            string          `gorm:"type:varchar(20);not null"`
	ShipmentID        string          `gorm:"type:varchar(100)"`
	Memo              string          `gorm:"type:varchar(200)"`
	ShipDate          *time.Time      `gorm:"type:date"`
	TotalAmount       decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	InventoryReversed bool            `gorm:"not null;default:false"`
	ReversedAt        *time.Time
	Lines             []FulfillmentLineModel `gorm:"foreignKey:FulfillmentID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM
func (FulfillmentModel) TableName() string {
	return "fulfillments"
}

// FulfillmentLineModel is a received line of a fulfillment
type FulfillmentLineModel struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey"`
	FulfillmentID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	SequenceNumber  int             `gorm:"not null"`
	ItemID          string          `gorm:"type:varchar(64);not null"`
	Quantity        decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Amount          decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	TrackingNumber  string          `gorm:"type:varchar(100)"`
	TrackingURL     string          `gorm:"type:varchar(500)"`
	ShipDate        *time.Time      `gorm:"type:date"`
	SourceLineIndex int             `gorm:"not null"`
	Received        bool            `gorm:"not null;default:false"`
}

// TableName returns the table name for GORM
func (FulfillmentLineModel) TableName() string {
	return "fulfillment_lines"
}

// FulfillmentModelFromDomain converts a fulfillment for persistence
func FulfillmentModelFromDomain(f *fulfillment.Fulfillment) *FulfillmentModel {
	m := &FulfillmentModel{
		SourceOrderID:     f.SourceOrderID,
		OrderNumber:       f.OrderNumber,
		LocationID:        f.LocationID,
		Status:            string(f.Status),
		ShipmentID:        f.ShipmentID,
		Memo:              f.Memo,
		ShipDate:          f.ShipDate,
		TotalAmount:       f.TotalAmount,
		InventoryReversed: f.InventoryReversed,
		ReversedAt:        f.ReversedAt,
		Lines:             make([]FulfillmentLineModel, len(f.Lines)),
	}
	m.FromAggregateRoot(f.BaseAggregateRoot)
	for i, l := range f.Lines {
		m.Lines[i] = FulfillmentLineModel{
			ID:              l.ID,
			FulfillmentID:   f.ID,
			SequenceNumber:  l.SequenceNumber,
			ItemID:          l.ItemID,
			Quantity:        l.Quantity,
			Amount:          l.Amount,
			TrackingNumber:  l.TrackingNumber,
			TrackingURL:     l.TrackingURL,
			ShipDate:        l.ShipDate,
			SourceLineIndex: l.SourceLineIndex,
			Received:        l.Received,
		}
	}
	return m
}

// ToDomain converts back to a fulfillment
func (m *FulfillmentModel) ToDomain() *fulfillment.Fulfillment {
	f := &fulfillment.Fulfillment{
		BaseAggregateRoot: m.AggregateRoot(),
		SourceOrderID:     m.SourceOrderID,
		OrderNumber:       m.OrderNumber,
		LocationID:        m.LocationID,
		Status:            fulfillment.Status(m.Status),
		ShipmentID:        m.ShipmentID,
		Memo:              m.Memo,
		ShipDate:          m.ShipDate,
		TotalAmount:       m.TotalAmount,
		InventoryReversed: m.InventoryReversed,
		ReversedAt:        m.ReversedAt,
		Lines:             make([]fulfillment.FulfillmentLine, len(m.Lines)),
	}
	for i, l := range m.Lines {
		f.Lines[i] = fulfillment.FulfillmentLine{
			ID:              l.ID,
			SequenceNumber:  l.SequenceNumber,
			ItemID:          l.ItemID,
			Quantity:        l.Quantity,
			Amount:          l.Amount,
			TrackingNumber:  l.TrackingNumber,
			TrackingURL:     l.TrackingURL,
			ShipDate:        l.ShipDate,
			SourceLineIndex: l.SourceLineIndex,
			Received:        l.Received,
		}
	}
	return f
}
