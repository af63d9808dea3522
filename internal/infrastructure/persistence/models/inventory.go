package models

import (
	"time"

	"github.com/erp/fulfillment/internal/domain/inventory"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StockLevelModel is the on-hand quantity of one item at one location
type StockLevelModel struct {
	ID         uuid.UUID       `gorm:"type:uuid;primaryKey"`
	TenantID   uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_stock_key,priority:1"`
	LocationID string          `gorm:"type:varchar(64);not null;uniqueIndex:idx_stock_key,priority:2"`
	ItemID     string          `gorm:"type:varchar(64);not null;uniqueIndex:idx_stock_key,priority:3"`
	OnHand     decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Version    int             `gorm:"not null;default:1"`
	UpdatedAt  time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (StockLevelModel) TableName() string {
	return "stock_levels"
}

// StockLevelModelFromDomain converts a stock level for persistence
func StockLevelModelFromDomain(s *inventory.StockLevel) *StockLevelModel {
	return &StockLevelModel{
		ID:         s.ID,
		TenantID:   s.TenantID,
		LocationID: s.LocationID,
		ItemID:     s.ItemID,
		OnHand:     s.OnHand,
		Version:    s.Version,
		UpdatedAt:  s.UpdatedAt,
	}
}

// ToDomain converts back to a stock level
func (m *StockLevelModel) ToDomain() *inventory.StockLevel {
	return &inventory.StockLevel{
		ID:         m.ID,
		TenantID:   m.TenantID,
		LocationID: m.LocationID,
		ItemID:     m.ItemID,
		OnHand:     m.OnHand,
		Version:    m.Version,
		UpdatedAt:  m.UpdatedAt,
	}
}

// AdjustmentModel is a posted inventory adjustment
type AdjustmentModel struct {
	AggregateModel
	AccountID  string                `gorm:"type:varchar(64);not null"`
	Reason     string                `gorm:"type:varchar(40);not null"`
	Reference  string                `gorm:"type:varchar(100);not null;index"`
	Memo       string                `gorm:"type:varchar(200)"`
	AdjustedAt time.Time             `gorm:"not null"`
	Lines      []AdjustmentLineModel `gorm:"foreignKey:AdjustmentID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM
func (AdjustmentModel) TableName() string {
	return "inventory_adjustments"
}

// AdjustmentLineModel is one signed quantity change
type AdjustmentLineModel struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey"`
	AdjustmentID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	ItemID          string          `gorm:"type:varchar(64);not null"`
	LocationID      string          `gorm:"type:varchar(64);not null"`
	QuantityDelta   decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	SourceLineIndex int             `gorm:"not null"`
}

// TableName returns the table name for GORM
func (AdjustmentLineModel) TableName() string {
	return "inventory_adjustment_lines"
}

// AdjustmentModelFromDomain converts an adjustment for persistence
func AdjustmentModelFromDomain(a *inventory.InventoryAdjustment) *AdjustmentModel {
	m := &AdjustmentModel{
		AccountID:  a.AccountID,
		Reason:     string(a.Reason),
		Reference:  a.Reference,
		Memo:       a.Memo,
		AdjustedAt: a.AdjustedAt,
		Lines:      make([]AdjustmentLineModel, len(a.Lines)),
	}
	m.FromAggregateRoot(a.BaseAggregateRoot)
	for i, l := range a.Lines {
		m.Lines[i] = AdjustmentLineModel{
			ID:              l.ID,
			AdjustmentID:    a.ID,
			ItemID:          l.ItemID,
			LocationID:      l.LocationID,
			QuantityDelta:   l.QuantityDelta,
			SourceLineIndex: l.SourceLineIndex,
		}
	}
	return m
}

// ToDomain converts back to an adjustment
func (m *AdjustmentModel) ToDomain() *inventory.InventoryAdjustment {
	a := &inventory.InventoryAdjustment{
		BaseAggregateRoot: m.AggregateRoot(),
		AccountID:         m.AccountID,
		Reason:            inventory.Reason(m.Reason),
		Reference:         m.Reference,
		Memo:              m.Memo,
		AdjustedAt:        m.AdjustedAt,
		Lines:             make([]inventory.AdjustmentLine, len(m.Lines)),
	}
	for i, l := range m.Lines {
		a.Lines[i] = inventory.AdjustmentLine{
			ID:              l.ID,
			ItemID:          l.ItemID,
			LocationID:      l.LocationID,
			QuantityDelta:   l.QuantityDelta,
			SourceLineIndex: l.SourceLineIndex,
		}
	}
	return a
}

// ReversalIntentModel is the durable idempotency record of a reversal
type ReversalIntentModel struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey"`
	TenantID       uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_reversal_key,priority:1"`
	IdempotencyKey string     `gorm:"type:varchar(100);not null;uniqueIndex:idx_reversal_key,priority:2"`
	FulfillmentID  uuid.UUID  `gorm:"type:uuid;not null"`
	AdjustmentID   *uuid.UUID `gorm:"type:uuid"`
	Status         string     `gorm:"type:varchar(20);not null"`
	AppliedAt      time.Time  `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ReversalIntentModel) TableName() string {
	return "reversal_intents"
}

// ReversalIntentModelFromDomain converts an intent for persistence
func ReversalIntentModelFromDomain(i *inventory.ReversalIntent) *ReversalIntentModel {
	return &ReversalIntentModel{
		ID:             i.ID,
		TenantID:       i.TenantID,
		IdempotencyKey: i.IdempotencyKey,
		FulfillmentID:  i.FulfillmentID,
		AdjustmentID:   i.AdjustmentID,
		Status:         string(i.Status),
		AppliedAt:      i.AppliedAt,
	}
}

// ToDomain converts back to an intent
func (m *ReversalIntentModel) ToDomain() *inventory.ReversalIntent {
	return &inventory.ReversalIntent{
		ID:             m.ID,
		TenantID:       m.TenantID,
		IdempotencyKey: m.IdempotencyKey,
		FulfillmentID:  m.FulfillmentID,
		AdjustmentID:   m.AdjustmentID,
		Status:         inventory.IntentStatus(m.Status),
		AppliedAt:      m.AppliedAt,
	}
}

// StagingRecordModel is one counted quantity awaiting reconciliation
type StagingRecordModel struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey"`
	TenantID        uuid.UUID       `gorm:"type:uuid;not null;index:idx_staging_batch,priority:1"`
	BatchID         string          `gorm:"type:varchar(64);not null;index:idx_staging_batch,priority:2"`
	LocationID      string          `gorm:"type:varchar(64);not null"`
	ItemID          string          `gorm:"type:varchar(64);not null"`
	CountedQuantity decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Processed       bool            `gorm:"not null;default:false;index:idx_staging_batch,priority:3"`
	ProcessedAt     *time.Time
	CreatedAt       time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (StagingRecordModel) TableName() string {
	return "staging_records"
}

// StagingRecordModelFromDomain converts a staging record for persistence
func StagingRecordModelFromDomain(r *inventory.StagingRecord) *StagingRecordModel {
	return &StagingRecordModel{
		ID:              r.ID,
		TenantID:        r.TenantID,
		BatchID:         r.BatchID,
		LocationID:      r.LocationID,
		ItemID:          r.ItemID,
		CountedQuantity: r.CountedQuantity,
		Processed:       r.Processed,
		ProcessedAt:     r.ProcessedAt,
	}
}

// ToDomain converts back to a staging record
func (m *StagingRecordModel) ToDomain() inventory.StagingRecord {
	return inventory.StagingRecord{
		ID:              m.ID,
		TenantID:        m.TenantID,
		BatchID:         m.BatchID,
		LocationID:      m.LocationID,
		ItemID:          m.ItemID,
		CountedQuantity: m.CountedQuantity,
		Processed:       m.Processed,
		ProcessedAt:     m.ProcessedAt,
	}
}
