package fulfillment

import (
	"context"
	"time"
)

// Metrics receives fulfillment counters. The telemetry package provides the
// OpenTelemetry implementation.
type Metrics interface {
	RecordGroup(ctx context.Context, status GroupStatus)
	RecordDiagnostic(ctx context.Context, level, code string)
	RecordBatch(ctx context.Context, orders int, duration time.Duration)
}

type nopMetrics struct{}

func (nopMetrics) RecordGroup(context.Context, GroupStatus)         {}
func (nopMetrics) RecordDiagnostic(context.Context, string, string) {}
func (nopMetrics) RecordBatch(context.Context, int, time.Duration)  {}
