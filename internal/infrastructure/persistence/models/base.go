package models

import (
	"time"

	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/google/uuid"
)

// AggregateModel carries the columns every tenant-scoped aggregate shares
type AggregateModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	TenantID  uuid.UUID `gorm:"type:uuid;not null;index"`
	Version   int       `gorm:"not null;default:1"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// FromAggregateRoot copies the shared columns from a domain aggregate
func (m *AggregateModel) FromAggregateRoot(a shared.BaseAggregateRoot) {
	m.ID = a.ID
	m.TenantID = a.TenantID
	m.Version = a.Version
	m.CreatedAt = a.CreatedAt
	m.UpdatedAt = a.UpdatedAt
}

// AggregateRoot rebuilds the shared domain fields. Pending events are not
// persisted and come back empty.
func (m *AggregateModel) AggregateRoot() shared.BaseAggregateRoot {
	return shared.BaseAggregateRoot{
		BaseEntity: shared.BaseEntity{ID: m.ID, CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		TenantID:   m.TenantID,
		Version:    m.Version,
	}
}
