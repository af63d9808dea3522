package inventory

import (
	"context"

	"github.com/erp/fulfillment/internal/domain/fulfillment"
	"github.com/erp/fulfillment/internal/domain/inventory"
)

// TransactionScope runs a function inside one database transaction.
// If the function returns an error, every write made through the
// repositories it was handed is rolled back.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories gives access to the repositories a reversal or
// reconciliation touches. All of them share the same transaction.
type TransactionalRepositories interface {
	Fulfillments() fulfillment.FulfillmentRepository
	StockLevels() inventory.StockLevelRepository
	Adjustments() inventory.AdjustmentRepository
	Intents() inventory.ReversalIntentRepository
	Staging() inventory.StagingRepository
}
