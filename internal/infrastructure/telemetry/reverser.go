package telemetry

import (
	"context"

	appfulfillment "github.com/erp/fulfillment/internal/application/fulfillment"
	appinventory "github.com/erp/fulfillment/internal/application/inventory"
	"github.com/erp/fulfillment/internal/domain/fulfillment"
)

// TracedReverser wraps a Reverser with a span and a reversal counter
type TracedReverser struct {
	next    appfulfillment.Reverser
	metrics *FulfillmentMetrics
}

var _ appfulfillment.Reverser = (*TracedReverser)(nil)

// NewTracedReverser wraps next. metrics may be nil.
func NewTracedReverser(next appfulfillment.Reverser, metrics *FulfillmentMetrics) *TracedReverser {
	return &TracedReverser{next: next, metrics: metrics}
}

// Reverse delegates to the wrapped reverser
func (r *TracedReverser) Reverse(ctx context.Context, result fulfillment.GroupResult) (*appinventory.ReversalOutcome, error) {
	ctx, span := StartServiceSpan(ctx, "inventory", "reverse",
		WithAttribute(SpanAttrTenantID, result.TenantID),
		WithAttribute(SpanAttrFulfillmentID, result.FulfillmentID),
		WithAttribute(SpanAttrLocationID, result.LocationID),
	)
	defer span.End()

	var outcome *appinventory.ReversalOutcome
	var err error
	WithProfilingLabels(ctx, map[string]string{
		ProfilingLabelOperation: "inventory.reverse",
		ProfilingLabelTenantID:  result.TenantID.String(),
	}, func(ctx context.Context) {
		outcome, err = r.next.Reverse(ctx, result)
	})
	RecordError(span, err)
	if outcome != nil {
		SetAttributes(span, "reversal.status", string(outcome.Status))
	}
	if r.metrics != nil {
		r.metrics.RecordReversal(ctx, outcome, err)
	}
	return outcome, err
}
