package inventory

import (
	"context"
	"errors"
	"sync"

	"github.com/erp/fulfillment/internal/domain/fulfillment"
	"github.com/erp/fulfillment/internal/domain/inventory"
	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/google/uuid"
)

// memStore is an in-memory stand-in for the database. Execute snapshots
// every table and restores the snapshot when fn fails, which gives the
// tests the same all-or-nothing behavior as a real transaction.
type memStore struct {
	mu           sync.Mutex
	fulfillments map[uuid.UUID]fulfillment.Fulfillment
	levels       map[inventory.StockKey]inventory.StockLevel
	adjustments  map[uuid.UUID]inventory.InventoryAdjustment
	intents      map[string]inventory.ReversalIntent
	staging      map[uuid.UUID]inventory.StagingRecord

	failAdjustmentSave error
	failIntentSave     error
	commits            int
}

func newMemStore() *memStore {
	return &memStore{
		fulfillments: make(map[uuid.UUID]fulfillment.Fulfillment),
		levels:       make(map[inventory.StockKey]inventory.StockLevel),
		adjustments:  make(map[uuid.UUID]inventory.InventoryAdjustment),
		intents:      make(map[string]inventory.ReversalIntent),
		staging:      make(map[uuid.UUID]inventory.StagingRecord),
	}
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (s *memStore) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, l, a, i, st := cloneMap(s.fulfillments), cloneMap(s.levels), cloneMap(s.adjustments), cloneMap(s.intents), cloneMap(s.staging)
	if err := fn(memRepos{s}); err != nil {
		s.fulfillments, s.levels, s.adjustments, s.intents, s.staging = f, l, a, i, st
		return err
	}
	s.commits++
	return nil
}

func (s *memStore) onHand(loc, item string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	lvl, ok := s.levels[inventory.StockKey{LocationID: loc, ItemID: item}]
	if !ok {
		return "missing"
	}
	return lvl.OnHand.String()
}

type memRepos struct{ s *memStore }

func (r memRepos) Fulfillments() fulfillment.FulfillmentRepository { return memFulfillments(r) }
func (r memRepos) StockLevels() inventory.StockLevelRepository     { return memLevels(r) }
func (r memRepos) Adjustments() inventory.AdjustmentRepository     { return memAdjustments(r) }
func (r memRepos) Intents() inventory.ReversalIntentRepository     { return memIntents(r) }
func (r memRepos) Staging() inventory.StagingRepository            { return memStaging(r) }

type memFulfillments struct{ s *memStore }

func (r memFulfillments) FindByID(_ context.Context, tenantID, id uuid.UUID) (*fulfillment.Fulfillment, error) {
	f, ok := r.s.fulfillments[id]
	if !ok || f.TenantID != tenantID {
		return nil, shared.ErrNotFound
	}
	return &f, nil
}

func (r memFulfillments) FindBySourceOrder(_ context.Context, tenantID, orderID uuid.UUID) ([]fulfillment.Fulfillment, error) {
	out := make([]fulfillment.Fulfillment, 0)
	for _, f := range r.s.fulfillments {
		if f.TenantID == tenantID && f.SourceOrderID == orderID {
			out = append(out, f)
		}
	}
	return out, nil
}

func (r memFulfillments) Save(_ context.Context, f *fulfillment.Fulfillment) error {
	r.s.fulfillments[f.ID] = *f
	return nil
}

type memLevels struct{ s *memStore }

func (r memLevels) FindForUpdate(_ context.Context, _ uuid.UUID, key inventory.StockKey) (*inventory.StockLevel, error) {
	l, ok := r.s.levels[key]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &l, nil
}

func (r memLevels) FindByKeys(_ context.Context, _ uuid.UUID, keys []inventory.StockKey) (map[inventory.StockKey]*inventory.StockLevel, error) {
	out := make(map[inventory.StockKey]*inventory.StockLevel)
	for _, k := range keys {
		if l, ok := r.s.levels[k]; ok {
			out[k] = &l
		}
	}
	return out, nil
}

func (r memLevels) Save(_ context.Context, level *inventory.StockLevel) error {
	r.s.levels[level.Key()] = *level
	return nil
}

type memAdjustments struct{ s *memStore }

func (r memAdjustments) FindByID(_ context.Context, _ uuid.UUID, id uuid.UUID) (*inventory.InventoryAdjustment, error) {
	a, ok := r.s.adjustments[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &a, nil
}

func (r memAdjustments) FindByReference(_ context.Context, _ uuid.UUID, reference string) ([]inventory.InventoryAdjustment, error) {
	out := make([]inventory.InventoryAdjustment, 0)
	for _, a := range r.s.adjustments {
		if a.Reference == reference {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r memAdjustments) Save(_ context.Context, adj *inventory.InventoryAdjustment) error {
	if r.s.failAdjustmentSave != nil {
		return r.s.failAdjustmentSave
	}
	r.s.adjustments[adj.ID] = *adj
	return nil
}

type memIntents struct{ s *memStore }

func (r memIntents) FindByKey(_ context.Context, _ uuid.UUID, key string) (*inventory.ReversalIntent, error) {
	i, ok := r.s.intents[key]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &i, nil
}

func (r memIntents) Save(_ context.Context, intent *inventory.ReversalIntent) error {
	if r.s.failIntentSave != nil {
		return r.s.failIntentSave
	}
	if _, ok := r.s.intents[intent.IdempotencyKey]; ok {
		return shared.ErrAlreadyExists
	}
	r.s.intents[intent.IdempotencyKey] = *intent
	return nil
}

type memStaging struct{ s *memStore }

func (r memStaging) FindUnprocessed(_ context.Context, tenantID uuid.UUID, batchID string) ([]inventory.StagingRecord, error) {
	out := make([]inventory.StagingRecord, 0)
	for _, rec := range r.s.staging {
		if rec.TenantID == tenantID && rec.BatchID == batchID && !rec.Processed {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r memStaging) SaveAll(_ context.Context, records []inventory.StagingRecord) error {
	for _, rec := range records {
		if rec.BatchID == "" {
			return errors.New("batch id required")
		}
		r.s.staging[rec.ID] = rec
	}
	return nil
}
