package persistence

import (
	"context"

	appfulfillment "github.com/erp/fulfillment/internal/application/fulfillment"
	appinventory "github.com/erp/fulfillment/internal/application/inventory"
	"github.com/erp/fulfillment/internal/domain/fulfillment"
	"github.com/erp/fulfillment/internal/domain/inventory"
	"github.com/erp/fulfillment/internal/infrastructure/event"
	"gorm.io/gorm"
)

// GormTransactionScope runs a unit of work in one database transaction.
// It serves both the fulfillment and the inventory services.
type GormTransactionScope struct {
	db     *gorm.DB
	outbox *event.OutboxPublisher
}

// NewGormTransactionScope creates a scope whose aggregate repositories
// write pending events through outbox
func NewGormTransactionScope(db *gorm.DB, outbox *event.OutboxPublisher) *GormTransactionScope {
	return &GormTransactionScope{db: db, outbox: outbox}
}

func (s *GormTransactionScope) run(ctx context.Context, fn func(*gormTransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx, outbox: s.outbox})
	})
}

// Fulfillment returns the scope as seen by the fulfillment service
func (s *GormTransactionScope) Fulfillment() appfulfillment.TransactionScope {
	return fulfillmentScope{s}
}

// Inventory returns the scope as seen by the inventory services
func (s *GormTransactionScope) Inventory() appinventory.TransactionScope {
	return inventoryScope{s}
}

type fulfillmentScope struct{ s *GormTransactionScope }

func (f fulfillmentScope) Execute(ctx context.Context, fn func(appfulfillment.TransactionalRepositories) error) error {
	return f.s.run(ctx, func(r *gormTransactionalRepositories) error { return fn(r) })
}

type inventoryScope struct{ s *GormTransactionScope }

func (i inventoryScope) Execute(ctx context.Context, fn func(appinventory.TransactionalRepositories) error) error {
	return i.s.run(ctx, func(r *gormTransactionalRepositories) error { return fn(r) })
}

// gormTransactionalRepositories hands out repositories bound to one transaction
type gormTransactionalRepositories struct {
	tx     *gorm.DB
	outbox *event.OutboxPublisher
}

func (r *gormTransactionalRepositories) Orders() fulfillment.SalesOrderRepository {
	return NewGormSalesOrderRepository(r.tx)
}

func (r *gormTransactionalRepositories) Fulfillments() fulfillment.FulfillmentRepository {
	return NewGormFulfillmentRepository(r.tx, r.outbox)
}

func (r *gormTransactionalRepositories) StockLevels() inventory.StockLevelRepository {
	return NewGormStockLevelRepository(r.tx)
}

func (r *gormTransactionalRepositories) Adjustments() inventory.AdjustmentRepository {
	return NewGormAdjustmentRepository(r.tx, r.outbox)
}

func (r *gormTransactionalRepositories) Intents() inventory.ReversalIntentRepository {
	return NewGormReversalIntentRepository(r.tx)
}

func (r *gormTransactionalRepositories) Staging() inventory.StagingRepository {
	return NewGormStagingRepository(r.tx)
}

var (
	_ appfulfillment.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
	_ appinventory.TransactionalRepositories   = (*gormTransactionalRepositories)(nil)
)
