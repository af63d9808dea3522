package handler

import (
	"context"

	appinventory "github.com/erp/fulfillment/internal/application/inventory"
	"github.com/erp/fulfillment/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// StagingReconciler stages counted quantities and reconciles them
type StagingReconciler interface {
	StageCounts(ctx context.Context, tenantID uuid.UUID, batchID string, counts []appinventory.StagedCount) (int, error)
	Reconcile(ctx context.Context, tenantID uuid.UUID, batchID string) (*appinventory.ReconcileResult, error)
}

// InventoryHandler serves the staging reconciliation endpoints
type InventoryHandler struct {
	BaseHandler
	staging StagingReconciler
}

// NewInventoryHandler creates an InventoryHandler
func NewInventoryHandler(staging StagingReconciler, log *zap.Logger) *InventoryHandler {
	return &InventoryHandler{BaseHandler: newBaseHandler(log), staging: staging}
}

// StageCounts uploads counted quantities into a staging batch.
// POST /inventory/staging/:batch
func (h *InventoryHandler) StageCounts(c *gin.Context) {
	tenantID, ok := h.tenantOrAbort(c)
	if !ok {
		return
	}
	var uri dto.StagingBatchRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		h.BindError(c, err)
		return
	}
	var req dto.StageCountsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	staged, err := h.staging.StageCounts(c.Request.Context(), tenantID, uri.BatchID, req.ToStagedCounts())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, dto.StageCountsResponse{BatchID: uri.BatchID, Staged: staged})
}

// Reconcile applies a staging batch against current stock levels.
// POST /inventory/staging/:batch/reconcile
func (h *InventoryHandler) Reconcile(c *gin.Context) {
	tenantID, ok := h.tenantOrAbort(c)
	if !ok {
		return
	}
	var uri dto.StagingBatchRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		h.BindError(c, err)
		return
	}

	result, err := h.staging.Reconcile(c.Request.Context(), tenantID, uri.BatchID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}
