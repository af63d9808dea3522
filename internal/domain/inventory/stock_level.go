package inventory

import (
	"time"

	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StockKey identifies a stock level within a tenant
type StockKey struct {
	LocationID string `json:"location_id"`
	ItemID     string `json:"item_id"`
}

// StockLevel is the on-hand quantity of one item at one location
type StockLevel struct {
	ID         uuid.UUID
	TenantID   uuid.UUID
	LocationID string
	ItemID     string
	OnHand     decimal.Decimal
	Version    int
	UpdatedAt  time.Time
}

// NewStockLevel creates an empty stock level
func NewStockLevel(tenantID uuid.UUID, locationID, itemID string) *StockLevel {
	return &StockLevel{
		ID:         uuid.New(),
		TenantID:   tenantID,
		LocationID: locationID,
		ItemID:     itemID,
		OnHand:     decimal.Zero,
		Version:    1,
		UpdatedAt:  time.Now(),
	}
}

// Key returns the location/item key
func (s *StockLevel) Key() StockKey {
	return StockKey{LocationID: s.LocationID, ItemID: s.ItemID}
}

// Apply adds delta to the on-hand quantity. The result may not go negative.
func (s *StockLevel) Apply(delta decimal.Decimal) error {
	next := s.OnHand.Add(delta)
	if next.IsNegative() {
		return shared.NewDomainError("INSUFFICIENT_STOCK",
			"Adjustment of "+delta.String()+" would leave "+s.ItemID+" at "+s.LocationID+" below zero")
	}
	s.OnHand = next
	s.Version++
	s.UpdatedAt = time.Now()
	return nil
}
