package models

import (
	"time"

	"github.com/erp/fulfillment/internal/domain/timetracking"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TimeEntryModel is one imported row of worked hours
type TimeEntryModel struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey"`
	TenantID    uuid.UUID       `gorm:"type:uuid;not null;index:idx_time_source,priority:1"`
	EmployeeRef string          `gorm:"type:varchar(64);not null;index"`
	ProjectRef  string          `gorm:"type:varchar(64);not null"`
	WorkDate    time.Time       `gorm:"type:date;not null"`
	Hours       decimal.Decimal `gorm:"type:decimal(6,2);not null"`
	Memo        string          `gorm:"type:varchar(500)"`
	SourceFile  string          `gorm:"type:varchar(255);index:idx_time_source,priority:2"`
	SourceRow   int
	CreatedAt   time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (TimeEntryModel) TableName() string {
	return "time_entries"
}

// TimeEntryModelFromDomain converts a time entry for persistence
func TimeEntryModelFromDomain(e *timetracking.TimeEntry) *TimeEntryModel {
	return &TimeEntryModel{
		ID:          e.ID,
		TenantID:    e.TenantID,
		EmployeeRef: e.EmployeeRef,
		ProjectRef:  e.ProjectRef,
		WorkDate:    e.WorkDate,
		Hours:       e.Hours,
		Memo:        e.Memo,
		SourceFile:  e.SourceFile,
		SourceRow:   e.SourceRow,
		CreatedAt:   e.CreatedAt,
	}
}

// ToDomain converts back to a time entry
func (m *TimeEntryModel) ToDomain() timetracking.TimeEntry {
	return timetracking.TimeEntry{
		ID:          m.ID,
		TenantID:    m.TenantID,
		EmployeeRef: m.EmployeeRef,
		ProjectRef:  m.ProjectRef,
		WorkDate:    m.WorkDate,
		Hours:       m.Hours,
		Memo:        m.Memo,
		SourceFile:  m.SourceFile,
		SourceRow:   m.SourceRow,
		CreatedAt:   m.CreatedAt,
	}
}
