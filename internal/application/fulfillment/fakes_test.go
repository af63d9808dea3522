package fulfillment

import (
	"context"
	"sync"

	inventoryapp "github.com/erp/fulfillment/internal/application/inventory"
	"github.com/erp/fulfillment/internal/domain/fulfillment"
	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/google/uuid"
)

// memDB is an in-memory stand-in for the host record API. Writes made
// inside Execute are discarded when fn fails.
type memDB struct {
	mu           sync.Mutex
	orders       map[uuid.UUID]*fulfillment.SalesOrder
	fulfillments map[uuid.UUID]fulfillment.Fulfillment
	failSave     map[string]error // by location
}

func newMemDB() *memDB {
	return &memDB{
		orders:       make(map[uuid.UUID]*fulfillment.SalesOrder),
		fulfillments: make(map[uuid.UUID]fulfillment.Fulfillment),
		failSave:     make(map[string]error),
	}
}

func cloneOrder(o *fulfillment.SalesOrder) *fulfillment.SalesOrder {
	c := *o
	c.Lines = append([]fulfillment.OrderLine(nil), o.Lines...)
	return &c
}

func (db *memDB) addOrder(o *fulfillment.SalesOrder) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.orders[o.ID] = cloneOrder(o)
}

func (db *memDB) order(id uuid.UUID) *fulfillment.SalesOrder {
	db.mu.Lock()
	defer db.mu.Unlock()
	return cloneOrder(db.orders[id])
}

func (db *memDB) fulfillmentCount() int {
	db.mu.Lock()
	defer db.mu.Unlock()
	return len(db.fulfillments)
}

func (db *memDB) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	orders := make(map[uuid.UUID]*fulfillment.SalesOrder, len(db.orders))
	for id, o := range db.orders {
		orders[id] = cloneOrder(o)
	}
	fulfillments := make(map[uuid.UUID]fulfillment.Fulfillment, len(db.fulfillments))
	for id, f := range db.fulfillments {
		fulfillments[id] = f
	}
	if err := fn(txRepos{db}); err != nil {
		db.orders, db.fulfillments = orders, fulfillments
		return err
	}
	return nil
}

// memOrders is the non-transactional order repository the service reads through
type memOrders struct{ db *memDB }

func (r memOrders) FindByID(_ context.Context, tenantID, id uuid.UUID) (*fulfillment.SalesOrder, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return txOrders(r).FindByID(context.Background(), tenantID, id)
}

func (r memOrders) FindPendingIDs(ctx context.Context, limit int) ([]fulfillment.PendingOrderRef, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return txOrders(r).FindPendingIDs(ctx, limit)
}

func (r memOrders) Save(ctx context.Context, order *fulfillment.SalesOrder) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return txOrders(r).Save(ctx, order)
}

func (r memOrders) MarkLinesFulfilled(ctx context.Context, tenantID, orderID uuid.UUID, indices []int) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return txOrders(r).MarkLinesFulfilled(ctx, tenantID, orderID, indices)
}

type txRepos struct{ db *memDB }

func (r txRepos) Orders() fulfillment.SalesOrderRepository        { return txOrders(r) }
func (r txRepos) Fulfillments() fulfillment.FulfillmentRepository { return txFulfillments(r) }

type txOrders struct{ db *memDB }

func (r txOrders) FindByID(_ context.Context, tenantID, id uuid.UUID) (*fulfillment.SalesOrder, error) {
	o, ok := r.db.orders[id]
	if !ok || o.TenantID != tenantID {
		return nil, shared.ErrNotFound
	}
	return cloneOrder(o), nil
}

func (r txOrders) FindPendingIDs(_ context.Context, limit int) ([]fulfillment.PendingOrderRef, error) {
	out := make([]fulfillment.PendingOrderRef, 0)
	for _, o := range r.db.orders {
		if !o.IsFullyFulfilled() && len(out) < limit {
			out = append(out, fulfillment.PendingOrderRef{TenantID: o.TenantID, OrderID: o.ID})
		}
	}
	return out, nil
}

func (r txOrders) Save(_ context.Context, order *fulfillment.SalesOrder) error {
	r.db.orders[order.ID] = cloneOrder(order)
	return nil
}

func (r txOrders) MarkLinesFulfilled(_ context.Context, tenantID, orderID uuid.UUID, indices []int) error {
	o, ok := r.db.orders[orderID]
	if !ok || o.TenantID != tenantID {
		return shared.ErrNotFound
	}
	o.MarkLinesFulfilled(indices)
	return nil
}

type txFulfillments struct{ db *memDB }

func (r txFulfillments) FindByID(_ context.Context, tenantID, id uuid.UUID) (*fulfillment.Fulfillment, error) {
	f, ok := r.db.fulfillments[id]
	if !ok || f.TenantID != tenantID {
		return nil, shared.ErrNotFound
	}
	return &f, nil
}

func (r txFulfillments) FindBySourceOrder(_ context.Context, tenantID, orderID uuid.UUID) ([]fulfillment.Fulfillment, error) {
	out := make([]fulfillment.Fulfillment, 0)
	for _, f := range r.db.fulfillments {
		if f.TenantID == tenantID && f.SourceOrderID == orderID {
			out = append(out, f)
		}
	}
	return out, nil
}

func (r txFulfillments) Save(_ context.Context, f *fulfillment.Fulfillment) error {
	if err := r.db.failSave[f.LocationID]; err != nil {
		return err
	}
	r.db.fulfillments[f.ID] = *f
	return nil
}

// fakeTransformer drafts from the order like the host would, unless a
// location has its candidate sequences overridden or is set to fail
type fakeTransformer struct {
	candidates map[string][]int
	fail       map[string]error
}

func newFakeTransformer() *fakeTransformer {
	return &fakeTransformer{candidates: map[string][]int{}, fail: map[string]error{}}
}

func (t *fakeTransformer) Transform(_ context.Context, order *fulfillment.SalesOrder, locationID string) (*fulfillment.Fulfillment, error) {
	if err := t.fail[locationID]; err != nil {
		return nil, err
	}
	draft, err := fulfillment.DraftFromOrder(order, locationID)
	if err != nil {
		return nil, err
	}
	if seqs, ok := t.candidates[locationID]; ok {
		draft.Lines = draft.Lines[:0]
		for _, seq := range seqs {
			draft.AddCandidateLine(seq, "", order.Lines[0].Quantity, -1)
		}
	}
	return draft, nil
}

type fakeReverser struct {
	mu    sync.Mutex
	calls []fulfillment.GroupResult
	err   error
}

func (r *fakeReverser) Reverse(_ context.Context, result fulfillment.GroupResult) (*inventoryapp.ReversalOutcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	r.calls = append(r.calls, result)
	adjID := uuid.New()
	return &inventoryapp.ReversalOutcome{
		Status:        inventoryapp.ReversalApplied,
		FulfillmentID: result.FulfillmentID,
		AdjustmentID:  &adjID,
		Lines:         len(result.ReversalLines),
	}, nil
}
