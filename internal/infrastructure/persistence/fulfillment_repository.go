package persistence

import (
	"context"

	"github.com/erp/fulfillment/internal/domain/fulfillment"
	"github.com/erp/fulfillment/internal/infrastructure/event"
	"github.com/erp/fulfillment/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormFulfillmentRepository implements fulfillment.FulfillmentRepository.
// Pending events are written to the outbox in the same transaction.
type GormFulfillmentRepository struct {
	db     *gorm.DB
	outbox *event.OutboxPublisher
}

// NewGormFulfillmentRepository creates a repository. outbox may be nil,
// in which case pending events are dropped.
func NewGormFulfillmentRepository(db *gorm.DB, outbox *event.OutboxPublisher) *GormFulfillmentRepository {
	return &GormFulfillmentRepository{db: db, outbox: outbox}
}

func orderedFulfillmentLines(db *gorm.DB) *gorm.DB {
	return db.Order("source_line_index")
}

// FindByID loads a fulfillment with its lines
func (r *GormFulfillmentRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*fulfillment.Fulfillment, error) {
	var m models.FulfillmentModel
	if err := r.db.WithContext(ctx).
		Preload("Lines", orderedFulfillmentLines).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&m).Error; err != nil {
		return nil, translate(err)
	}
	return m.ToDomain(), nil
}

// FindBySourceOrder lists the fulfillments created from an order
func (r *GormFulfillmentRepository) FindBySourceOrder(ctx context.Context, tenantID, orderID uuid.UUID) ([]fulfillment.Fulfillment, error) {
	var rows []models.FulfillmentModel
	if err := r.db.WithContext(ctx).
		Preload("Lines", orderedFulfillmentLines).
		Where("tenant_id = ? AND source_order_id = ?", tenantID, orderID).
		Order("created_at, location_id").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]fulfillment.Fulfillment, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out, nil
}

// Save inserts a new fulfillment or updates a stored one under its version
func (r *GormFulfillmentRepository) Save(ctx context.Context, f *fulfillment.Fulfillment) error {
	m := models.FulfillmentModelFromDomain(f)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := saveVersioned(tx, &models.FulfillmentModel{}, m, m.ID, m.Version, map[string]any{
			"status":             m.Status,
			"shipment_id":        m.ShipmentID,
			"memo":               m.Memo,
			"ship_date":          m.ShipDate,
			"total_amount":       m.TotalAmount,
			"inventory_reversed": m.InventoryReversed,
			"reversed_at":        m.ReversedAt,
			"updated_at":         m.UpdatedAt,
		}); err != nil {
			return err
		}
		if len(m.Lines) > 0 {
			if err := upsertByID(tx, &m.Lines); err != nil {
				return err
			}
		}
		return publishPending(ctx, tx, r.outbox, f)
	})
	if err != nil {
		return err
	}
	f.ClearDomainEvents()
	return nil
}

var _ fulfillment.FulfillmentRepository = (*GormFulfillmentRepository)(nil)

// GormDocumentTransformer drafts fulfillments from the stored order rather
// than the caller's copy, so lines fulfilled since the order was loaded are
// not offered again
type GormDocumentTransformer struct {
	orders *GormSalesOrderRepository
}

// NewGormDocumentTransformer creates a transformer reading through db
func NewGormDocumentTransformer(db *gorm.DB) *GormDocumentTransformer {
	return &GormDocumentTransformer{orders: NewGormSalesOrderRepository(db)}
}

// Transform reloads the order and drafts a fulfillment for locationID
func (t *GormDocumentTransformer) Transform(ctx context.Context, order *fulfillment.SalesOrder, locationID string) (*fulfillment.Fulfillment, error) {
	current, err := t.orders.FindByID(ctx, order.TenantID, order.ID)
	if err != nil {
		return nil, err
	}
	return fulfillment.DraftFromOrder(current, locationID)
}

var _ fulfillment.DocumentTransformer = (*GormDocumentTransformer)(nil)
