package fulfillment

import (
	"context"
	"fmt"

	"github.com/erp/fulfillment/internal/domain/fulfillment"
	"github.com/erp/fulfillment/internal/infrastructure/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TransactionScope runs fn in one transaction. A group's fulfillment and
// the fulfilled flags on its order lines are committed together.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories share the transaction of the enclosing scope
type TransactionalRepositories interface {
	Orders() fulfillment.SalesOrderRepository
	Fulfillments() fulfillment.FulfillmentRepository
}

// GroupStatus is what happened to one location group
type GroupStatus string

const (
	GroupSaved   GroupStatus = "SAVED"
	GroupSkipped GroupStatus = "SKIPPED"
	GroupFailed  GroupStatus = "FAILED"
)

// GroupReport describes one processed location group
type GroupReport struct {
	LocationID    string                   `json:"location_id"`
	Status        GroupStatus              `json:"status"`
	FulfillmentID *uuid.UUID               `json:"fulfillment_id,omitempty"`
	Members       int                      `json:"members"`
	Received      int                      `json:"received"`
	Result        *fulfillment.GroupResult `json:"result,omitempty"`
}

// ProcessReport is the outcome of one ProcessOrder call
type ProcessReport struct {
	TenantID    uuid.UUID                `json:"tenant_id"`
	OrderID     uuid.UUID                `json:"order_id"`
	OrderNumber string                   `json:"order_number"`
	Groups      []GroupReport            `json:"groups"`
	Diagnostics []fulfillment.Diagnostic `json:"diagnostics"`
	Yielded     bool                     `json:"yielded"`
	Saved       int                      `json:"saved"`
	Failed      int                      `json:"failed"`
	Skipped     int                      `json:"skipped"`
}

// Results returns the emitted group results of saved groups
func (r *ProcessReport) Results() []fulfillment.GroupResult {
	out := make([]fulfillment.GroupResult, 0, r.Saved)
	for _, g := range r.Groups {
		if g.Result != nil {
			out = append(out, *g.Result)
		}
	}
	return out
}

func (r *ProcessReport) add(g GroupReport, diags []fulfillment.Diagnostic) {
	r.Groups = append(r.Groups, g)
	r.Diagnostics = append(r.Diagnostics, diags...)
	switch g.Status {
	case GroupSaved:
		r.Saved++
	case GroupFailed:
		r.Failed++
	default:
		r.Skipped++
	}
}

// Service splits a sales order into one fulfillment per location
type Service struct {
	orders      fulfillment.SalesOrderRepository
	transformer fulfillment.DocumentTransformer
	scope       TransactionScope
	settings    Settings
	metrics     Metrics
	logger      *zap.Logger
}

// NewService creates a fulfillment service
func NewService(
	orders fulfillment.SalesOrderRepository,
	transformer fulfillment.DocumentTransformer,
	scope TransactionScope,
	settings Settings,
	log *zap.Logger,
) *Service {
	return &Service{
		orders:      orders,
		transformer: transformer,
		scope:       scope,
		settings:    settings,
		metrics:     nopMetrics{},
		logger:      log,
	}
}

// WithMetrics sets the metrics sink
func (s *Service) WithMetrics(m Metrics) *Service {
	if m != nil {
		s.metrics = m
	}
	return s
}

// Settings returns the parameters the service was built with
func (s *Service) Settings() Settings {
	return s.settings
}

// ProcessOrder partitions the order's pending lines by location and turns
// every group into a completed fulfillment.
//
// Line and group problems become diagnostics; they never fail the call.
// A group whose save fails is rolled back on its own and its siblings still
// run. When the budget drops below MinRemainingUsage the call returns early
// with Yielded set, leaving the remaining lines unfulfilled for the next run.
func (s *Service) ProcessOrder(ctx context.Context, tenantID, orderID uuid.UUID, budget UsageBudget) (*ProcessReport, error) {
	order, err := s.orders.FindByID(ctx, tenantID, orderID)
	if err != nil {
		return nil, fmt.Errorf("load sales order %s: %w", orderID, err)
	}

	log := logger.L(ctx, s.logger).With(
		zap.String("order_id", order.ID.String()),
		zap.String("order_number", order.OrderNumber),
	)

	report := &ProcessReport{
		TenantID:    tenantID,
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		Groups:      make([]GroupReport, 0),
		Diagnostics: make([]fulfillment.Diagnostic, 0),
	}

	part := fulfillment.Partition(order.Lines)
	report.Diagnostics = append(report.Diagnostics, part.Diagnostics...)
	for _, d := range part.Diagnostics {
		s.logDiagnostic(ctx, log, d)
	}

	for i, group := range part.Groups {
		if budget.Remaining() < s.settings.MinRemainingUsage {
			report.Yielded = true
			d := fulfillment.GroupDiagnostic(fulfillment.LevelWarn, fulfillment.ReasonBudgetExhausted, group.LocationID,
				fmt.Sprintf("usage budget low, %d group(s) left for the next run", len(part.Groups)-i))
			report.Diagnostics = append(report.Diagnostics, d)
			log.Warn("usage budget below threshold, yielding",
				zap.Int("remaining", budget.Remaining()),
				zap.Int("groups_left", len(part.Groups)-i),
			)
			break
		}
		budget.Consume(s.settings.UsagePerGroup)

		g, diags := s.processGroup(ctx, log, order, group)
		for _, d := range diags {
			s.logDiagnostic(ctx, log, d)
		}
		s.metrics.RecordGroup(ctx, g.Status)
		report.add(g, diags)
	}

	log.Info("sales order processed",
		zap.Int("groups", len(part.Groups)),
		zap.Int("saved", report.Saved),
		zap.Int("failed", report.Failed),
		zap.Int("skipped", report.Skipped),
		zap.Bool("yielded", report.Yielded),
	)
	return report, nil
}

func (s *Service) processGroup(ctx context.Context, log *zap.Logger, order *fulfillment.SalesOrder, group *fulfillment.LocationGroup) (GroupReport, []fulfillment.Diagnostic) {
	report := GroupReport{LocationID: group.LocationID, Status: GroupSkipped, Members: len(group.Lines)}
	log = log.With(zap.String("location_id", group.LocationID))

	draft, err := s.transformer.Transform(ctx, order, group.LocationID)
	if err != nil {
		report.Status = GroupFailed
		return report, []fulfillment.Diagnostic{fulfillment.GroupDiagnostic(fulfillment.LevelError,
			fulfillment.ReasonTransformFailed, group.LocationID, err.Error())}
	}

	outcome := fulfillment.FulfillGroup(group, draft, s.settings.ShipmentMemoPrefix)
	diags := outcome.Match.Diagnostics
	report.Received = outcome.Match.Received()
	if !outcome.Completed {
		return report, diags
	}

	indices := draft.SourceLineIndices()
	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		if err := repos.Fulfillments().Save(ctx, draft); err != nil {
			return fmt.Errorf("save fulfillment: %w", err)
		}
		if err := repos.Orders().MarkLinesFulfilled(ctx, order.TenantID, order.ID, indices); err != nil {
			return fmt.Errorf("mark order lines fulfilled: %w", err)
		}
		return nil
	})
	if err != nil {
		log.Error("failed to save fulfillment", zap.Error(err))
		report.Status = GroupFailed
		return report, append(diags, fulfillment.GroupDiagnostic(fulfillment.LevelError,
			fulfillment.ReasonSaveFailed, group.LocationID, err.Error()))
	}

	order.MarkLinesFulfilled(indices)
	id := draft.ID
	result := outcome.Result
	report.Status = GroupSaved
	report.FulfillmentID = &id
	report.Result = &result

	log.Info("fulfillment saved",
		zap.String("fulfillment_id", id.String()),
		zap.Int("received", report.Received),
		zap.String("total_amount", result.TotalAmount.String()),
	)
	return report, diags
}

func (s *Service) logDiagnostic(ctx context.Context, log *zap.Logger, d fulfillment.Diagnostic) {
	s.metrics.RecordDiagnostic(ctx, string(d.Level), string(d.Code))
	fields := []zap.Field{
		zap.String("reason", string(d.Code)),
		zap.String("location_id", d.LocationID),
	}
	if d.LineIndex != fulfillment.NoLine {
		fields = append(fields, zap.Int("line_index", d.LineIndex), zap.Int("sequence", d.SequenceNumber))
	}
	if d.Level == fulfillment.LevelError {
		log.Error(d.Message, fields...)
		return
	}
	log.Warn(d.Message, fields...)
}
