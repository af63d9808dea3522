package dto

import (
	"net/http"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeErrorCode(t *testing.T) {
	tests := []struct {
		code   string
		want   string
		status int
	}{
		{"NOT_FOUND", ErrCodeNotFound, http.StatusNotFound},
		{"ALREADY_REVERSED", ErrCodeAlreadyReversed, http.StatusConflict},
		{"CONCURRENCY_CONFLICT", ErrCodeConcurrencyConflict, http.StatusConflict},
		{"INSUFFICIENT_STOCK", ErrCodeInsufficientStock, http.StatusUnprocessableEntity},
		{"INVALID_FILE", ErrCodeInvalidFile, http.StatusBadRequest},
		{"INVALID_QUANTITY", ErrCodeInvalidInput, http.StatusBadRequest},
		{"ERR_RUN_IN_PROGRESS", ErrCodeRunInProgress, http.StatusConflict},
		{"SOMETHING_ELSE", ErrCodeBusinessRule, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			got := NormalizeErrorCode(tt.code)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.status, GetHTTPStatus(got))
		})
	}
}

func TestGetHTTPStatusUnknown(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, GetHTTPStatus("ERR_NOPE"))
}

func TestResponses(t *testing.T) {
	ok := NewSuccessResponse(map[string]int{"n": 1})
	assert.True(t, ok.Success)
	assert.Nil(t, ok.Error)

	failed := NewErrorResponseWithRequestID(ErrCodeNotFound, "missing", "req-9")
	assert.False(t, failed.Success)
	require.NotNil(t, failed.Error)
	assert.Equal(t, "req-9", failed.Error.RequestID)

	invalid := NewValidationErrorResponse("bad", "req-1", []ValidationDetail{{Field: "counts", Message: "This field is required"}})
	assert.Equal(t, ErrCodeValidation, invalid.Error.Code)
	assert.Len(t, invalid.Error.Details, 1)
}

func TestStageCountsRequestToStagedCounts(t *testing.T) {
	req := StageCountsRequest{Counts: []StagedCountItem{
		{LocationID: "WH1", ItemID: "SKU-1", Quantity: decimal.NewFromInt(3)},
		{LocationID: "WH2", ItemID: "SKU-2", Quantity: decimal.RequireFromString("0.25")},
	}}

	out := req.ToStagedCounts()

	require.Len(t, out, 2)
	assert.Equal(t, "WH2", out[1].LocationID)
	assert.True(t, out[1].Quantity.Equal(decimal.RequireFromString("0.25")))
}
