package timetracking

import (
	"context"
	"strings"
	"time"

	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MaxHoursPerEntry bounds a single entry to one calendar day
var MaxHoursPerEntry = decimal.NewFromInt(24)

// TimeEntry is one imported row of worked hours
type TimeEntry struct {
	ID          uuid.UUID
	TenantID    uuid.UUID
	EmployeeRef string
	ProjectRef  string
	WorkDate    time.Time
	Hours       decimal.Decimal
	Memo        string
	SourceFile  string
	SourceRow   int
	CreatedAt   time.Time
}

// NewTimeEntry validates and creates a time entry
func NewTimeEntry(tenantID uuid.UUID, employee, project string, workDate time.Time, hours decimal.Decimal, memo string) (*TimeEntry, error) {
	employee = strings.TrimSpace(employee)
	project = strings.TrimSpace(project)
	if employee == "" {
		return nil, shared.NewDomainError("INVALID_EMPLOYEE", "Employee cannot be empty")
	}
	if project == "" {
		return nil, shared.NewDomainError("INVALID_PROJECT", "Project cannot be empty")
	}
	if workDate.IsZero() {
		return nil, shared.NewDomainError("INVALID_DATE", "Work date is required")
	}
	if !hours.IsPositive() || hours.GreaterThan(MaxHoursPerEntry) {
		return nil, shared.NewDomainError("INVALID_HOURS", "Hours must be greater than 0 and at most 24")
	}
	return &TimeEntry{
		ID:          uuid.New(),
		TenantID:    tenantID,
		EmployeeRef: employee,
		ProjectRef:  project,
		WorkDate:    workDate,
		Hours:       hours,
		Memo:        strings.TrimSpace(memo),
		CreatedAt:   time.Now(),
	}, nil
}

// WithSource records the file and row an entry was imported from
func (e *TimeEntry) WithSource(file string, row int) *TimeEntry {
	e.SourceFile = file
	e.SourceRow = row
	return e
}

// TimeEntryRepository stores imported time entries
type TimeEntryRepository interface {
	SaveBatch(ctx context.Context, entries []*TimeEntry) error
	FindBySourceFile(ctx context.Context, tenantID uuid.UUID, file string) ([]TimeEntry, error)
}
