package persistence

import (
	"context"

	"github.com/erp/fulfillment/internal/domain/fulfillment"
	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/erp/fulfillment/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormSalesOrderRepository implements fulfillment.SalesOrderRepository
type GormSalesOrderRepository struct {
	db *gorm.DB
}

// NewGormSalesOrderRepository creates a new GormSalesOrderRepository
func NewGormSalesOrderRepository(db *gorm.DB) *GormSalesOrderRepository {
	return &GormSalesOrderRepository{db: db}
}

func orderedLines(db *gorm.DB) *gorm.DB {
	return db.Order("line_index")
}

// FindByID loads an order with its lines in line order
func (r *GormSalesOrderRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*fulfillment.SalesOrder, error) {
	var m models.SalesOrderModel
	if err := r.db.WithContext(ctx).
		Preload("Lines", orderedLines).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&m).Error; err != nil {
		return nil, translate(err)
	}
	return m.ToDomain(), nil
}

// FindPendingIDs returns orders that still have an unfulfilled line, oldest
// first. limit <= 0 returns all of them.
func (r *GormSalesOrderRepository) FindPendingIDs(ctx context.Context, limit int) ([]fulfillment.PendingOrderRef, error) {
	open := r.db.Model(&models.OrderLineModel{}).
		Select("1").
		Where("sales_order_lines.order_id = sales_orders.id AND sales_order_lines.fulfilled = ?", false)

	q := r.db.WithContext(ctx).
		Model(&models.SalesOrderModel{}).
		Select("id", "tenant_id").
		Where("EXISTS (?)", open).
		Order("created_at, id")
	if limit > 0 {
		q = q.Limit(limit)
	}

	var rows []struct {
		ID       uuid.UUID
		TenantID uuid.UUID
	}
	if err := q.Scan(&rows).Error; err != nil {
		return nil, err
	}
	refs := make([]fulfillment.PendingOrderRef, len(rows))
	for i, row := range rows {
		refs[i] = fulfillment.PendingOrderRef{TenantID: row.TenantID, OrderID: row.ID}
	}
	return refs, nil
}

// Save creates or replaces an order and its lines. Lines missing from the
// order are removed.
func (r *GormSalesOrderRepository) Save(ctx context.Context, order *fulfillment.SalesOrder) error {
	m := models.SalesOrderModelFromDomain(order)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Save(m).Error; err != nil {
			return translate(err)
		}

		keep := make([]uuid.UUID, len(m.Lines))
		for i, l := range m.Lines {
			keep[i] = l.ID
		}
		stale := tx.Where("order_id = ?", m.ID)
		if len(keep) > 0 {
			stale = stale.Where("id NOT IN ?", keep)
		}
		if err := stale.Delete(&models.OrderLineModel{}).Error; err != nil {
			return err
		}

		if len(m.Lines) == 0 {
			return nil
		}
		return upsertByID(tx, &m.Lines)
	})
}

// MarkLinesFulfilled flags open lines of the order. Every index must still
// be open; a line fulfilled by a concurrent run is a conflict.
func (r *GormSalesOrderRepository) MarkLinesFulfilled(ctx context.Context, tenantID, orderID uuid.UUID, indices []int) error {
	if len(indices) == 0 {
		return nil
	}
	owned := r.db.Model(&models.SalesOrderModel{}).Select("id").Where("tenant_id = ? AND id = ?", tenantID, orderID)

	res := r.db.WithContext(ctx).
		Model(&models.OrderLineModel{}).
		Where("order_id IN (?)", owned).
		Where("line_index IN ? AND fulfilled = ?", indices, false).
		Update("fulfilled", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected != int64(len(indices)) {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

var _ fulfillment.SalesOrderRepository = (*GormSalesOrderRepository)(nil)
