// Package event holds operator actions on the transactional outbox:
// delivery statistics and the dead-letter queue.
package event

import (
	"context"
	"time"

	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// ErrEntryNotFound is returned for an unknown outbox entry id
var ErrEntryNotFound = shared.NewDomainError("NOT_FOUND", "Outbox entry not found")

// DeadLetterStore is the part of the outbox repository the service needs
type DeadLetterStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*shared.OutboxEntry, error)
	FindDead(ctx context.Context, page, pageSize int) ([]*shared.OutboxEntry, int64, error)
	Update(ctx context.Context, entry *shared.OutboxEntry) error
	CountByStatus(ctx context.Context) (map[shared.OutboxStatus]int64, error)
}

// OutboxService inspects and requeues outbox entries
type OutboxService struct {
	repo   DeadLetterStore
	logger *zap.Logger
}

// NewOutboxService creates an OutboxService
func NewOutboxService(repo DeadLetterStore, logger *zap.Logger) *OutboxService {
	return &OutboxService{repo: repo, logger: logger}
}

// EntryView is an outbox entry without its payload
type EntryView struct {
	ID          uuid.UUID  `json:"id"`
	TenantID    uuid.UUID  `json:"tenant_id"`
	EventID     uuid.UUID  `json:"event_id"`
	EventType   string     `json:"event_type"`
	AggregateID uuid.UUID  `json:"aggregate_id"`
	Status      string     `json:"status"`
	RetryCount  int        `json:"retry_count"`
	MaxRetries  int        `json:"max_retries"`
	LastError   string     `json:"last_error,omitempty"`
	NextRetryAt *time.Time `json:"next_retry_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// DeadLetterPage is one page of dead-lettered entries
type DeadLetterPage struct {
	Entries    []EntryView `json:"entries"`
	Total      int64       `json:"total"`
	Page       int         `json:"page"`
	PageSize   int         `json:"page_size"`
	TotalPages int         `json:"total_pages"`
}

// Stats counts outbox entries per delivery status
type Stats struct {
	Pending    int64 `json:"pending"`
	Processing int64 `json:"processing"`
	Sent       int64 `json:"sent"`
	Failed     int64 `json:"failed"`
	Dead       int64 `json:"dead"`
	Total      int64 `json:"total"`
}

// Stats returns the entry count per status
func (s *OutboxService) Stats(ctx context.Context) (*Stats, error) {
	counts, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	stats := &Stats{
		Pending:    counts[shared.OutboxStatusPending],
		Processing: counts[shared.OutboxStatusProcessing],
		Sent:       counts[shared.OutboxStatusSent],
		Failed:     counts[shared.OutboxStatusFailed],
		Dead:       counts[shared.OutboxStatusDead],
	}
	for _, n := range counts {
		stats.Total += n
	}
	return stats, nil
}

// DeadLetters lists dead-lettered entries. Page numbers start at 1; the
// page size is clamped to 1..100.
func (s *OutboxService) DeadLetters(ctx context.Context, page, pageSize int) (*DeadLetterPage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	pageSize = min(pageSize, maxPageSize)

	entries, total, err := s.repo.FindDead(ctx, page, pageSize)
	if err != nil {
		return nil, err
	}

	views := make([]EntryView, len(entries))
	for i, e := range entries {
		views[i] = toEntryView(e)
	}
	return &DeadLetterPage{
		Entries:    views,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: int((total + int64(pageSize) - 1) / int64(pageSize)),
	}, nil
}

// Retry puts one dead-lettered entry back in the delivery queue
func (s *OutboxService) Retry(ctx context.Context, id uuid.UUID) (*EntryView, error) {
	entry, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, ErrEntryNotFound
	}
	if err := entry.ResetForRetry(); err != nil {
		return nil, shared.NewDomainError("INVALID_STATE", err.Error())
	}
	if err := s.repo.Update(ctx, entry); err != nil {
		return nil, err
	}

	s.logger.Info("dead letter requeued",
		zap.String("id", id.String()),
		zap.String("event_type", entry.EventType),
	)
	view := toEntryView(entry)
	return &view, nil
}

// RetryAll requeues every dead-lettered entry and returns how many it moved.
// Requeued entries leave the dead set, so the first page is read until it
// comes back empty or nothing on it could be moved.
func (s *OutboxService) RetryAll(ctx context.Context) (int64, error) {
	var count int64
	for {
		entries, _, err := s.repo.FindDead(ctx, 1, maxPageSize)
		if err != nil {
			return count, err
		}
		if len(entries) == 0 {
			break
		}

		moved := 0
		for _, entry := range entries {
			if err := entry.ResetForRetry(); err != nil {
				continue
			}
			if err := s.repo.Update(ctx, entry); err != nil {
				s.logger.Error("failed to requeue dead letter", zap.String("id", entry.ID.String()), zap.Error(err))
				continue
			}
			moved++
		}
		count += int64(moved)
		if moved == 0 || len(entries) < maxPageSize {
			break
		}
	}

	s.logger.Info("dead letters requeued", zap.Int64("count", count))
	return count, nil
}

func toEntryView(e *shared.OutboxEntry) EntryView {
	return EntryView{
		ID:          e.ID,
		TenantID:    e.TenantID,
		EventID:     e.EventID,
		EventType:   e.EventType,
		AggregateID: e.AggregateID,
		Status:      string(e.Status),
		RetryCount:  e.RetryCount,
		MaxRetries:  e.MaxRetries,
		LastError:   e.LastError,
		NextRetryAt: e.NextRetryAt,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}
