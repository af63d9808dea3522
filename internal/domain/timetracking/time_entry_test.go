package timetracking

import (
	"testing"
	"time"

	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTimeEntry(t *testing.T) {
	day := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		employee string
		project  string
		date     time.Time
		hours    string
		code     string
	}{
		{"empty employee", " ", "P1", day, "8", "INVALID_EMPLOYEE"},
		{"empty project", "E1", "", day, "8", "INVALID_PROJECT"},
		{"zero date", "E1", "P1", time.Time{}, "8", "INVALID_DATE"},
		{"zero hours", "E1", "P1", day, "0", "INVALID_HOURS"},
		{"too many hours", "E1", "P1", day, "24.5", "INVALID_HOURS"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTimeEntry(uuid.New(), tt.employee, tt.project, tt.date, decimal.RequireFromString(tt.hours), "")
			var de *shared.DomainError
			require.ErrorAs(t, err, &de)
			assert.Equal(t, tt.code, de.Code)
		})
	}

	e, err := NewTimeEntry(uuid.New(), " E1 ", "P1", day, decimal.NewFromInt(24), " standup ")
	require.NoError(t, err)
	assert.Equal(t, "E1", e.EmployeeRef)
	assert.Equal(t, "standup", e.Memo)

	e.WithSource("week23.csv", 4)
	assert.Equal(t, "week23.csv", e.SourceFile)
	assert.Equal(t, 4, e.SourceRow)
}
