package telemetry

import (
	"context"
	"time"

	appfulfillment "github.com/erp/fulfillment/internal/application/fulfillment"
	appinventory "github.com/erp/fulfillment/internal/application/inventory"
	"go.opentelemetry.io/otel/metric"
)

// MeterName is the instrumentation scope of the service's own instruments
const MeterName = "github.com/erp/fulfillment"

// FulfillmentMetrics records fulfillment and reversal activity
type FulfillmentMetrics struct {
	groups        *Counter
	diagnostics   *Counter
	batchOrders   *Counter
	batchDuration *Histogram
	reversals     *Counter
}

var _ appfulfillment.Metrics = (*FulfillmentMetrics)(nil)

// NewFulfillmentMetrics creates the instruments on meter
func NewFulfillmentMetrics(meter metric.Meter) (*FulfillmentMetrics, error) {
	groups, err := NewCounter(meter, "fulfillment.groups", "Location groups processed, by outcome", "{group}")
	if err != nil {
		return nil, err
	}
	diagnostics, err := NewCounter(meter, "fulfillment.diagnostics", "Diagnostics emitted while matching lines", "{diagnostic}")
	if err != nil {
		return nil, err
	}
	batchOrders, err := NewCounter(meter, "fulfillment.batch.orders", "Orders examined by batch runs", "{order}")
	if err != nil {
		return nil, err
	}
	batchDuration, err := NewHistogram(meter, "fulfillment.batch.duration", "Wall time of one batch run", "s", BatchDurationBuckets...)
	if err != nil {
		return nil, err
	}
	reversals, err := NewCounter(meter, "inventory.reversals", "Inventory reversal attempts, by outcome", "{reversal}")
	if err != nil {
		return nil, err
	}
	return &FulfillmentMetrics{
		groups:        groups,
		diagnostics:   diagnostics,
		batchOrders:   batchOrders,
		batchDuration: batchDuration,
		reversals:     reversals,
	}, nil
}

// RecordGroup counts one processed group
func (m *FulfillmentMetrics) RecordGroup(ctx context.Context, status appfulfillment.GroupStatus) {
	m.groups.Inc(ctx, AttrGroupStatus.String(string(status)))
}

// RecordDiagnostic counts one diagnostic
func (m *FulfillmentMetrics) RecordDiagnostic(ctx context.Context, level, code string) {
	m.diagnostics.Inc(ctx, AttrDiagLevel.String(level), AttrDiagCode.String(code))
}

// RecordBatch records a finished batch run
func (m *FulfillmentMetrics) RecordBatch(ctx context.Context, orders int, duration time.Duration) {
	m.batchOrders.Add(ctx, int64(orders))
	m.batchDuration.RecordDuration(ctx, duration)
}

// RecordReversal counts one reversal outcome. A nil outcome counts as an error.
func (m *FulfillmentMetrics) RecordReversal(ctx context.Context, outcome *appinventory.ReversalOutcome, err error) {
	status := "error"
	if err == nil && outcome != nil {
		status = string(outcome.Status)
	}
	m.reversals.Inc(ctx, AttrOutcome.String(status))
}
