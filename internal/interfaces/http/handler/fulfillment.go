package handler

import (
	"context"
	"errors"

	appfulfillment "github.com/erp/fulfillment/internal/application/fulfillment"
	appinventory "github.com/erp/fulfillment/internal/application/inventory"
	"github.com/erp/fulfillment/internal/infrastructure/logger"
	"github.com/erp/fulfillment/internal/infrastructure/scheduler"
	"github.com/erp/fulfillment/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OrderProcessor runs the fulfillment pass for one order
type OrderProcessor interface {
	ProcessOrder(ctx context.Context, tenantID, orderID uuid.UUID, budget appfulfillment.UsageBudget) (*appfulfillment.ProcessReport, error)
	Settings() appfulfillment.Settings
}

// FulfillmentReverser undoes a completed fulfillment by id
type FulfillmentReverser interface {
	ReverseByID(ctx context.Context, tenantID, fulfillmentID uuid.UUID) (*appinventory.ReversalOutcome, error)
}

// BatchTrigger starts a batch pass on demand
type BatchTrigger interface {
	RunNow(ctx context.Context) (*scheduler.Job, error)
}

// FulfillmentHandler serves the order fulfillment, reversal and batch endpoints
type FulfillmentHandler struct {
	BaseHandler
	processor OrderProcessor
	reverser  FulfillmentReverser
	batch     BatchTrigger
}

// NewFulfillmentHandler creates a FulfillmentHandler
func NewFulfillmentHandler(processor OrderProcessor, reverser FulfillmentReverser, batch BatchTrigger, log *zap.Logger) *FulfillmentHandler {
	return &FulfillmentHandler{
		BaseHandler: newBaseHandler(log),
		processor:   processor,
		reverser:    reverser,
		batch:       batch,
	}
}

// FulfillOrder processes one sales order right away.
// POST /orders/:id/fulfill
func (h *FulfillmentHandler) FulfillOrder(c *gin.Context) {
	tenantID, ok := h.tenantOrAbort(c)
	if !ok {
		return
	}
	orderID, ok := h.parseID(c)
	if !ok {
		return
	}

	var req dto.FulfillOrderRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.BindError(c, err)
			return
		}
	}

	limit := h.processor.Settings().UsageLimit
	if req.UsageLimit != nil {
		limit = *req.UsageLimit
	}

	report, err := h.processor.ProcessOrder(c.Request.Context(), tenantID, orderID, appfulfillment.NewUnitBudget(limit))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, report)
}

// Reverse undoes the inventory effect of a completed fulfillment. A second
// call answers 200 with status ALREADY_APPLIED.
// POST /fulfillments/:id/reverse
func (h *FulfillmentHandler) Reverse(c *gin.Context) {
	tenantID, ok := h.tenantOrAbort(c)
	if !ok {
		return
	}
	fulfillmentID, ok := h.parseID(c)
	if !ok {
		return
	}

	outcome, err := h.reverser.ReverseByID(c.Request.Context(), tenantID, fulfillmentID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, outcome)
}

// RunBatch runs one batch pass synchronously.
// POST /batch/run
func (h *FulfillmentHandler) RunBatch(c *gin.Context) {
	job, err := h.batch.RunNow(c.Request.Context())
	if errors.Is(err, scheduler.ErrRunInProgress) {
		h.Conflict(c, dto.ErrCodeRunInProgress, "A batch run is already in progress")
		return
	}
	if err != nil {
		logger.L(c.Request.Context(), h.logger).Error("manual batch run failed", zap.Error(err))
		h.InternalError(c, "Batch run failed")
		return
	}
	h.Success(c, job)
}
