package handler

import (
	"context"
	"io"

	apptimetracking "github.com/erp/fulfillment/internal/application/timetracking"
	"github.com/erp/fulfillment/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// uploadField is the multipart field carrying the CSV file
const uploadField = "file"

// TimeEntryImporter imports a time-tracking CSV
type TimeEntryImporter interface {
	Import(ctx context.Context, tenantID uuid.UUID, fileName string, r io.Reader) (*apptimetracking.ImportResult, error)
}

// TimeTrackingHandler serves the time entry import endpoint
type TimeTrackingHandler struct {
	BaseHandler
	importer TimeEntryImporter
}

// NewTimeTrackingHandler creates a TimeTrackingHandler
func NewTimeTrackingHandler(importer TimeEntryImporter, log *zap.Logger) *TimeTrackingHandler {
	return &TimeTrackingHandler{BaseHandler: newBaseHandler(log), importer: importer}
}

// Import reads a multipart CSV upload. Row-level problems are reported in
// the result; a file that cannot be read as CSV at all is a 400.
// POST /time-entries/import
func (h *TimeTrackingHandler) Import(c *gin.Context) {
	tenantID, ok := h.tenantOrAbort(c)
	if !ok {
		return
	}

	header, err := c.FormFile(uploadField)
	if err != nil {
		h.BindError(c, err)
		return
	}
	file, err := header.Open()
	if err != nil {
		h.Error(c, dto.GetHTTPStatus(dto.ErrCodeInvalidFile), dto.ErrCodeInvalidFile, "Uploaded file cannot be opened")
		return
	}
	defer file.Close()

	result, err := h.importer.Import(c.Request.Context(), tenantID, header.Filename, file)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}
