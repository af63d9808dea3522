package persistence

import (
	"context"

	"github.com/erp/fulfillment/internal/domain/timetracking"
	"github.com/erp/fulfillment/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const timeEntryBatchSize = 200

// GormTimeEntryRepository implements timetracking.TimeEntryRepository
type GormTimeEntryRepository struct {
	db *gorm.DB
}

// NewGormTimeEntryRepository creates a new GormTimeEntryRepository
func NewGormTimeEntryRepository(db *gorm.DB) *GormTimeEntryRepository {
	return &GormTimeEntryRepository{db: db}
}

// SaveBatch inserts entries in chunks inside one transaction
func (r *GormTimeEntryRepository) SaveBatch(ctx context.Context, entries []*timetracking.TimeEntry) error {
	if len(entries) == 0 {
		return nil
	}
	rows := make([]*models.TimeEntryModel, len(entries))
	for i, e := range entries {
		rows[i] = models.TimeEntryModelFromDomain(e)
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return translate(tx.CreateInBatches(rows, timeEntryBatchSize).Error)
	})
}

// FindBySourceFile lists the entries imported from a file in row order
func (r *GormTimeEntryRepository) FindBySourceFile(ctx context.Context, tenantID uuid.UUID, file string) ([]timetracking.TimeEntry, error) {
	var rows []models.TimeEntryModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND source_file = ?", tenantID, file).
		Order("source_row").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]timetracking.TimeEntry, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, nil
}

var _ timetracking.TimeEntryRepository = (*GormTimeEntryRepository)(nil)
