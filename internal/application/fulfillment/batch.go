package fulfillment

import (
	"context"
	"fmt"
	"time"

	inventoryapp "github.com/erp/fulfillment/internal/application/inventory"
	"github.com/erp/fulfillment/internal/domain/fulfillment"
	"github.com/erp/fulfillment/internal/infrastructure/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Reverser undoes the inventory effect of an emitted group
type Reverser interface {
	Reverse(ctx context.Context, result fulfillment.GroupResult) (*inventoryapp.ReversalOutcome, error)
}

// OrderError records an order the map stage could not process
type OrderError struct {
	OrderID uuid.UUID `json:"order_id"`
	Error   string    `json:"error"`
}

// BatchSummary is the summarize stage output of one batch run
type BatchSummary struct {
	RunID           string           `json:"run_id"`
	StartedAt       time.Time        `json:"started_at"`
	FinishedAt      time.Time        `json:"finished_at"`
	Orders          int              `json:"orders"`
	Processed       int              `json:"processed"`
	Yielded         int              `json:"yielded"`
	GroupsSaved     int              `json:"groups_saved"`
	GroupsFailed    int              `json:"groups_failed"`
	GroupsSkipped   int              `json:"groups_skipped"`
	Diagnostics     int              `json:"diagnostics"`
	Reversed        int              `json:"reversed"`
	AlreadyReversed int              `json:"already_reversed"`
	ReversalErrors  int              `json:"reversal_errors"`
	OrderErrors     []OrderError     `json:"order_errors,omitempty"`
	Reports         []*ProcessReport `json:"-"`
}

// BatchRunner runs one scheduled pass over pending orders in four stages:
// load pending order ids, process orders concurrently, reverse emitted
// groups, and summarize.
type BatchRunner struct {
	orders   fulfillment.SalesOrderRepository
	service  *Service
	reverser Reverser
	logger   *zap.Logger
}

// NewBatchRunner creates a batch runner around service
func NewBatchRunner(orders fulfillment.SalesOrderRepository, service *Service, log *zap.Logger) *BatchRunner {
	return &BatchRunner{
		orders:  orders,
		service: service,
		logger:  log,
	}
}

// WithReverser makes the reduce stage reverse each emitted group inline.
// Without it, reversal happens when the outbox delivers FulfillmentCompleted.
func (r *BatchRunner) WithReverser(rev Reverser) *BatchRunner {
	r.reverser = rev
	return r
}

// Run executes one batch pass. A failing order is recorded in the summary
// and does not stop the others.
func (r *BatchRunner) Run(ctx context.Context) (*BatchSummary, error) {
	settings := r.service.Settings()
	summary := &BatchSummary{RunID: uuid.NewString(), StartedAt: time.Now()}
	ctx = logger.WithRunID(ctx, summary.RunID)
	log := logger.L(ctx, r.logger)

	refs, err := r.orders.FindPendingIDs(ctx, settings.PendingOrderLimit)
	if err != nil {
		return nil, fmt.Errorf("load pending orders: %w", err)
	}
	summary.Orders = len(refs)
	log.Info("batch run started", zap.Int("orders", len(refs)))

	reports := make([]*ProcessReport, len(refs))
	errs := make([]error, len(refs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(settings.MapConcurrency)
	for i, ref := range refs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				errs[i] = err
				return nil
			}
			budget := NewUnitBudget(settings.UsageLimit)
			reports[i], errs[i] = r.service.ProcessOrder(gctx, ref.TenantID, ref.OrderID, budget)
			return nil
		})
	}
	_ = g.Wait()

	for i, ref := range refs {
		if errs[i] != nil {
			log.Error("order processing failed", zap.String("order_id", ref.OrderID.String()), zap.Error(errs[i]))
			summary.OrderErrors = append(summary.OrderErrors, OrderError{OrderID: ref.OrderID, Error: errs[i].Error()})
			continue
		}
		rep := reports[i]
		summary.Processed++
		summary.Reports = append(summary.Reports, rep)
		summary.GroupsSaved += rep.Saved
		summary.GroupsFailed += rep.Failed
		summary.GroupsSkipped += rep.Skipped
		summary.Diagnostics += len(rep.Diagnostics)
		if rep.Yielded {
			summary.Yielded++
		}
	}

	if r.reverser != nil {
		r.reduce(ctx, log, summary)
	}

	summary.FinishedAt = time.Now()
	r.service.metrics.RecordBatch(ctx, summary.Orders, summary.FinishedAt.Sub(summary.StartedAt))
	log.Info("batch run finished",
		zap.Int("orders", summary.Orders),
		zap.Int("processed", summary.Processed),
		zap.Int("yielded", summary.Yielded),
		zap.Int("groups_saved", summary.GroupsSaved),
		zap.Int("groups_failed", summary.GroupsFailed),
		zap.Int("reversed", summary.Reversed),
		zap.Int("reversal_errors", summary.ReversalErrors),
		zap.Int("order_errors", len(summary.OrderErrors)),
		zap.Duration("duration", summary.FinishedAt.Sub(summary.StartedAt)),
	)
	return summary, nil
}

func (r *BatchRunner) reduce(ctx context.Context, log *zap.Logger, summary *BatchSummary) {
	for _, rep := range summary.Reports {
		for _, result := range rep.Results() {
			out, err := r.reverser.Reverse(ctx, result)
			if err != nil {
				summary.ReversalErrors++
				log.Error("inline reversal failed",
					zap.String("fulfillment_id", result.FulfillmentID.String()),
					zap.Error(err),
				)
				continue
			}
			if out.Status == inventoryapp.ReversalAlreadyApplied {
				summary.AlreadyReversed++
			} else {
				summary.Reversed++
			}
		}
	}
}
