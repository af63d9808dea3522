package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erp/fulfillment/internal/domain/fulfillment"
	"github.com/erp/fulfillment/internal/domain/inventory"
	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/erp/fulfillment/internal/infrastructure/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ReversalStatus tells whether a Reverse call changed anything
type ReversalStatus string

const (
	ReversalApplied        ReversalStatus = "APPLIED"
	ReversalAlreadyApplied ReversalStatus = "ALREADY_APPLIED"
)

// ErrEmptyReversal is returned for a group result without reversal lines
var ErrEmptyReversal = shared.NewDomainError("EMPTY_REVERSAL", "Group result has no lines to reverse")

// ReversalOutcome describes the effect of one Reverse call
type ReversalOutcome struct {
	Status        ReversalStatus `json:"status"`
	FulfillmentID uuid.UUID      `json:"fulfillment_id"`
	AdjustmentID  *uuid.UUID     `json:"adjustment_id,omitempty"`
	Lines         int            `json:"lines"`
}

// ReversalService undoes the inventory effect of a completed fulfillment.
//
// Each call runs in a single transaction: the reversal intent is looked up
// by fulfillment id before anything is written, and the adjustment, stock
// deltas, fulfillment flag and intent row are committed together. A failed
// call leaves nothing behind, so retrying it cannot count a line twice.
type ReversalService struct {
	scope     TransactionScope
	accountID string
	now       func() time.Time
	logger    *zap.Logger
}

// NewReversalService creates a reversal service posting to accountID.
// An empty account is a configuration error.
func NewReversalService(scope TransactionScope, accountID string, log *zap.Logger) (*ReversalService, error) {
	if accountID == "" {
		return nil, errors.New("inventory account id is required for fulfillment reversal")
	}
	return &ReversalService{
		scope:     scope,
		accountID: accountID,
		now:       time.Now,
		logger:    log,
	}, nil
}

// Reverse posts the mirrored quantities of result against the inventory
// account, at most once per fulfillment
func (s *ReversalService) Reverse(ctx context.Context, result fulfillment.GroupResult) (*ReversalOutcome, error) {
	if result.FulfillmentID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_INPUT", "Fulfillment ID is required")
	}
	if len(result.ReversalLines) == 0 {
		return nil, ErrEmptyReversal
	}

	log := logger.L(ctx, s.logger).With(
		zap.String("fulfillment_id", result.FulfillmentID.String()),
		zap.String("order_number", result.OrderNumber),
		zap.String("location_id", result.LocationID),
	)

	var outcome *ReversalOutcome
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		o, err := s.reverseInTx(ctx, repos, result)
		outcome = o
		return err
	})
	if err != nil {
		// Another caller committed the same reversal between our read and write.
		if errors.Is(err, shared.ErrAlreadyExists) {
			log.Info("reversal committed concurrently, nothing to do")
			return &ReversalOutcome{Status: ReversalAlreadyApplied, FulfillmentID: result.FulfillmentID}, nil
		}
		log.Error("inventory reversal failed", zap.Error(err))
		return nil, err
	}

	if outcome.Status == ReversalAlreadyApplied {
		log.Info("inventory reversal already applied")
	} else {
		log.Info("inventory reversal applied",
			zap.String("adjustment_id", outcome.AdjustmentID.String()),
			zap.Int("lines", outcome.Lines),
		)
	}
	return outcome, nil
}

func (s *ReversalService) reverseInTx(ctx context.Context, repos TransactionalRepositories, result fulfillment.GroupResult) (*ReversalOutcome, error) {
	tenantID := result.TenantID
	already := &ReversalOutcome{Status: ReversalAlreadyApplied, FulfillmentID: result.FulfillmentID}

	intent, err := repos.Intents().FindByKey(ctx, tenantID, inventory.ReversalKey(result.FulfillmentID))
	if err == nil {
		already.AdjustmentID = intent.AdjustmentID
		return already, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, fmt.Errorf("load reversal intent: %w", err)
	}

	f, err := repos.Fulfillments().FindByID(ctx, tenantID, result.FulfillmentID)
	if err != nil {
		return nil, fmt.Errorf("load fulfillment: %w", err)
	}
	if f.InventoryReversed {
		// Flag set by an earlier run that predates intents; record it so
		// the next call stops at the intent lookup.
		if err := repos.Intents().Save(ctx, inventory.NewReversalIntent(tenantID, f.ID, nil)); err != nil {
			return nil, fmt.Errorf("backfill reversal intent: %w", err)
		}
		return already, nil
	}

	adj, err := inventory.NewInventoryAdjustment(tenantID, s.accountID, inventory.ReasonFulfillmentReversal, f.ID.String())
	if err != nil {
		return nil, err
	}
	adj.Memo = fmt.Sprintf("Reversal of fulfillment %s for order %s", f.ID, result.OrderNumber)
	for _, line := range result.ReversalLines {
		if err := adj.AddLine(line.ItemID, line.LocationID, line.Quantity, line.SourceLineIndex); err != nil {
			return nil, fmt.Errorf("reversal line %d: %w", line.SourceLineIndex, err)
		}
	}
	if err := adj.Post(); err != nil {
		return nil, err
	}

	if err := applyDeltas(ctx, repos.StockLevels(), tenantID, adj.Deltas()); err != nil {
		return nil, err
	}
	if err := repos.Adjustments().Save(ctx, adj); err != nil {
		return nil, fmt.Errorf("save adjustment: %w", err)
	}
	if err := f.MarkInventoryReversed(s.now()); err != nil {
		return nil, err
	}
	if err := repos.Fulfillments().Save(ctx, f); err != nil {
		return nil, fmt.Errorf("save fulfillment: %w", err)
	}
	adjID := adj.ID
	if err := repos.Intents().Save(ctx, inventory.NewReversalIntent(tenantID, f.ID, &adjID)); err != nil {
		return nil, fmt.Errorf("save reversal intent: %w", err)
	}

	return &ReversalOutcome{
		Status:        ReversalApplied,
		FulfillmentID: f.ID,
		AdjustmentID:  &adjID,
		Lines:         len(adj.Lines),
	}, nil
}

// ReverseByID loads a completed fulfillment and reverses it. Used by the
// manual HTTP and CLI triggers, which only know the fulfillment id.
func (s *ReversalService) ReverseByID(ctx context.Context, tenantID, fulfillmentID uuid.UUID) (*ReversalOutcome, error) {
	var result fulfillment.GroupResult
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		f, err := repos.Fulfillments().FindByID(ctx, tenantID, fulfillmentID)
		if err != nil {
			return err
		}
		if f.Status != fulfillment.StatusComplete {
			return shared.NewDomainError("INVALID_STATE", "Only completed fulfillments can be reversed")
		}
		result = fulfillment.NewGroupResult(f)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Reverse(ctx, result)
}
