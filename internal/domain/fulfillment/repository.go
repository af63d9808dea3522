package fulfillment

import (
	"context"

	"github.com/google/uuid"
)

// SalesOrderRepository loads and stores source documents
type SalesOrderRepository interface {
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*SalesOrder, error)
	// FindPendingIDs returns ids of orders with at least one unfulfilled line, oldest first
	FindPendingIDs(ctx context.Context, limit int) ([]PendingOrderRef, error)
	Save(ctx context.Context, order *SalesOrder) error
	// MarkLinesFulfilled flags the given line indices without rewriting the rest of the order
	MarkLinesFulfilled(ctx context.Context, tenantID, orderID uuid.UUID, indices []int) error
}

// PendingOrderRef identifies an order awaiting fulfillment
type PendingOrderRef struct {
	TenantID uuid.UUID
	OrderID  uuid.UUID
}

// FulfillmentRepository stores destination records. Save also persists the
// aggregate's pending events to the outbox in the same transaction.
type FulfillmentRepository interface {
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*Fulfillment, error)
	FindBySourceOrder(ctx context.Context, tenantID, orderID uuid.UUID) ([]Fulfillment, error)
	Save(ctx context.Context, f *Fulfillment) error
}

// DocumentTransformer creates a pending fulfillment draft from a source order,
// scoped to one location. The draft lists the candidate lines the host would
// let that location fulfill.
type DocumentTransformer interface {
	Transform(ctx context.Context, order *SalesOrder, locationID string) (*Fulfillment, error)
}
