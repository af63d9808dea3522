package dto

import (
	appinventory "github.com/erp/fulfillment/internal/application/inventory"
	"github.com/shopspring/decimal"
)

// IDRequest binds a UUID path parameter
type IDRequest struct {
	ID string `uri:"id" binding:"required,uuid"`
}

// FulfillOrderRequest is the optional body of an on-request fulfillment.
// UsageLimit overrides the configured per-order budget.
type FulfillOrderRequest struct {
	UsageLimit *int `json:"usage_limit" binding:"omitempty,gte=0"`
}

// StagingBatchRequest binds the batch path parameter
type StagingBatchRequest struct {
	BatchID string `uri:"batch" binding:"required,max=64"`
}

// StagedCountItem is one counted quantity in a staging upload
type StagedCountItem struct {
	LocationID string          `json:"location_id" binding:"required,max=64"`
	ItemID     string          `json:"item_id" binding:"required,max=64"`
	Quantity   decimal.Decimal `json:"quantity" binding:"nonneg_decimal"`
}

// StageCountsRequest uploads counted quantities for a batch
type StageCountsRequest struct {
	Counts []StagedCountItem `json:"counts" binding:"required,min=1,max=5000,dive"`
}

// ToStagedCounts converts the request to application input
func (r StageCountsRequest) ToStagedCounts() []appinventory.StagedCount {
	out := make([]appinventory.StagedCount, len(r.Counts))
	for i, c := range r.Counts {
		out[i] = appinventory.StagedCount{LocationID: c.LocationID, ItemID: c.ItemID, Quantity: c.Quantity}
	}
	return out
}

// StageCountsResponse reports how many counts were staged
type StageCountsResponse struct {
	BatchID string `json:"batch_id"`
	Staged  int    `json:"staged"`
}

// HealthResponse is the body of GET /health
type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Version  string `json:"version,omitempty"`
}
