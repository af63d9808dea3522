package inventory

import (
	"time"

	"github.com/google/uuid"
)

// IntentStatus is the state of a reversal intent
type IntentStatus string

// IntentApplied is the only persisted state. An intent row exists only when
// its reversal committed.
const IntentApplied IntentStatus = "APPLIED"

// ReversalIntent guards a fulfillment reversal. It is written in the same
// transaction as the adjustment, keyed by the fulfillment id.
type ReversalIntent struct {
	ID             uuid.UUID
	TenantID       uuid.UUID
	IdempotencyKey string
	FulfillmentID  uuid.UUID
	AdjustmentID   *uuid.UUID
	Status         IntentStatus
	AppliedAt      time.Time
}

// ReversalKey returns the idempotency key for a fulfillment
func ReversalKey(fulfillmentID uuid.UUID) string {
	return "reversal:" + fulfillmentID.String()
}

// NewReversalIntent creates an applied intent for a fulfillment.
// adjustmentID is nil when the reversal was found already done.
func NewReversalIntent(tenantID, fulfillmentID uuid.UUID, adjustmentID *uuid.UUID) *ReversalIntent {
	return &ReversalIntent{
		ID:             uuid.New(),
		TenantID:       tenantID,
		IdempotencyKey: ReversalKey(fulfillmentID),
		FulfillmentID:  fulfillmentID,
		AdjustmentID:   adjustmentID,
		Status:         IntentApplied,
		AppliedAt:      time.Now(),
	}
}
