package event

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeOutbox struct {
	entries   map[uuid.UUID]*shared.OutboxEntry
	failWrite map[uuid.UUID]bool
}

func newFakeOutbox() *fakeOutbox {
	return &fakeOutbox{entries: map[uuid.UUID]*shared.OutboxEntry{}, failWrite: map[uuid.UUID]bool{}}
}

func (f *fakeOutbox) add(status shared.OutboxStatus) *shared.OutboxEntry {
	e := &shared.OutboxEntry{
		ID:         uuid.New(),
		EventID:    uuid.New(),
		EventType:  "FulfillmentCompleted",
		Status:     status,
		MaxRetries: shared.DefaultMaxRetries,
	}
	if status == shared.OutboxStatusDead {
		e.RetryCount = e.MaxRetries
		e.LastError = "reversal failed"
	}
	f.entries[e.ID] = e
	return e
}

func (f *fakeOutbox) FindByID(_ context.Context, id uuid.UUID) (*shared.OutboxEntry, error) {
	e, ok := f.entries[id]
	if !ok {
		return nil, nil
	}
	cp := *e
	return &cp, nil
}

func (f *fakeOutbox) FindDead(_ context.Context, page, pageSize int) ([]*shared.OutboxEntry, int64, error) {
	var dead []*shared.OutboxEntry
	for _, e := range f.entries {
		if e.Status == shared.OutboxStatusDead {
			cp := *e
			dead = append(dead, &cp)
		}
	}
	sort.Slice(dead, func(i, j int) bool { return dead[i].ID.String() < dead[j].ID.String() })
	total := int64(len(dead))
	start := (page - 1) * pageSize
	if start >= len(dead) {
		return nil, total, nil
	}
	return dead[start:min(start+pageSize, len(dead))], total, nil
}

func (f *fakeOutbox) Update(_ context.Context, entry *shared.OutboxEntry) error {
	if f.failWrite[entry.ID] {
		return errors.New("write failed")
	}
	cp := *entry
	f.entries[entry.ID] = &cp
	return nil
}

func (f *fakeOutbox) CountByStatus(context.Context) (map[shared.OutboxStatus]int64, error) {
	counts := map[shared.OutboxStatus]int64{}
	for _, e := range f.entries {
		counts[e.Status]++
	}
	return counts, nil
}

func TestOutboxService_Stats(t *testing.T) {
	store := newFakeOutbox()
	store.add(shared.OutboxStatusPending)
	store.add(shared.OutboxStatusSent)
	store.add(shared.OutboxStatusSent)
	store.add(shared.OutboxStatusDead)
	svc := NewOutboxService(store, zaptest.NewLogger(t))

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(1), stats.Pending)
	assert.Equal(t, int64(2), stats.Sent)
	assert.Equal(t, int64(1), stats.Dead)
	assert.Equal(t, int64(4), stats.Total)
}

func TestOutboxService_DeadLettersPaging(t *testing.T) {
	store := newFakeOutbox()
	for range 5 {
		store.add(shared.OutboxStatusDead)
	}
	store.add(shared.OutboxStatusPending)
	svc := NewOutboxService(store, zaptest.NewLogger(t))

	page, err := svc.DeadLetters(context.Background(), 2, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(5), page.Total)
	assert.Equal(t, 3, page.TotalPages)
	assert.Len(t, page.Entries, 2)
	assert.Equal(t, "reversal failed", page.Entries[0].LastError)

	page, err = svc.DeadLetters(context.Background(), 0, 500)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, maxPageSize, page.PageSize)
	assert.Len(t, page.Entries, 5)
}

func TestOutboxService_Retry(t *testing.T) {
	store := newFakeOutbox()
	dead := store.add(shared.OutboxStatusDead)
	sent := store.add(shared.OutboxStatusSent)
	svc := NewOutboxService(store, zaptest.NewLogger(t))
	ctx := context.Background()

	view, err := svc.Retry(ctx, dead.ID)
	require.NoError(t, err)
	assert.Equal(t, string(shared.OutboxStatusPending), view.Status)
	assert.Equal(t, shared.OutboxStatusPending, store.entries[dead.ID].Status)
	assert.Zero(t, store.entries[dead.ID].RetryCount)

	_, err = svc.Retry(ctx, sent.ID)
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "INVALID_STATE", domainErr.Code)

	_, err = svc.Retry(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrEntryNotFound)
}

func TestOutboxService_RetryAll(t *testing.T) {
	store := newFakeOutbox()
	for range 3 {
		store.add(shared.OutboxStatusDead)
	}
	stuck := store.add(shared.OutboxStatusDead)
	store.failWrite[stuck.ID] = true
	svc := NewOutboxService(store, zaptest.NewLogger(t))

	n, err := svc.RetryAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.Pending)
	assert.Equal(t, int64(1), stats.Dead)
}
