package persistence

import (
	"context"
	"errors"

	"github.com/erp/fulfillment/internal/domain/inventory"
	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/erp/fulfillment/internal/infrastructure/event"
	"github.com/erp/fulfillment/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStockLevelRepository implements inventory.StockLevelRepository
type GormStockLevelRepository struct {
	db *gorm.DB
}

// NewGormStockLevelRepository creates a new GormStockLevelRepository
func NewGormStockLevelRepository(db *gorm.DB) *GormStockLevelRepository {
	return &GormStockLevelRepository{db: db}
}

// FindForUpdate loads a level with SELECT ... FOR UPDATE
func (r *GormStockLevelRepository) FindForUpdate(ctx context.Context, tenantID uuid.UUID, key inventory.StockKey) (*inventory.StockLevel, error) {
	var m models.StockLevelModel
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("tenant_id = ? AND location_id = ? AND item_id = ?", tenantID, key.LocationID, key.ItemID).
		First(&m).Error; err != nil {
		return nil, translate(err)
	}
	return m.ToDomain(), nil
}

// FindByKeys loads the levels that exist for keys. Missing keys are absent
// from the result.
func (r *GormStockLevelRepository) FindByKeys(ctx context.Context, tenantID uuid.UUID, keys []inventory.StockKey) (map[inventory.StockKey]*inventory.StockLevel, error) {
	out := make(map[inventory.StockKey]*inventory.StockLevel, len(keys))
	if len(keys) == 0 {
		return out, nil
	}
	wanted := make(map[inventory.StockKey]struct{}, len(keys))
	locations := make([]string, 0, len(keys))
	items := make([]string, 0, len(keys))
	for _, k := range keys {
		wanted[k] = struct{}{}
		locations = append(locations, k.LocationID)
		items = append(items, k.ItemID)
	}

	var rows []models.StockLevelModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND location_id IN ? AND item_id IN ?", tenantID, locations, items).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	// the IN pair over-selects; keep exact keys only
	for i := range rows {
		level := rows[i].ToDomain()
		if _, ok := wanted[level.Key()]; ok {
			out[level.Key()] = level
		}
	}
	return out, nil
}

// Save inserts a new level or updates a stored one under its version. A
// concurrent insert of the same key surfaces as a concurrency conflict.
func (r *GormStockLevelRepository) Save(ctx context.Context, level *inventory.StockLevel) error {
	m := models.StockLevelModelFromDomain(level)
	err := saveVersioned(r.db.WithContext(ctx), &models.StockLevelModel{}, m, m.ID, m.Version, map[string]any{
		"on_hand":    m.OnHand,
		"updated_at": m.UpdatedAt,
	})
	if errors.Is(err, shared.ErrAlreadyExists) {
		return shared.ErrConcurrencyConflict
	}
	return err
}

var _ inventory.StockLevelRepository = (*GormStockLevelRepository)(nil)

// GormAdjustmentRepository implements inventory.AdjustmentRepository.
// Adjustments are immutable once saved.
type GormAdjustmentRepository struct {
	db     *gorm.DB
	outbox *event.OutboxPublisher
}

// NewGormAdjustmentRepository creates a repository. outbox may be nil.
func NewGormAdjustmentRepository(db *gorm.DB, outbox *event.OutboxPublisher) *GormAdjustmentRepository {
	return &GormAdjustmentRepository{db: db, outbox: outbox}
}

// FindByID loads an adjustment with its lines
func (r *GormAdjustmentRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*inventory.InventoryAdjustment, error) {
	var m models.AdjustmentModel
	if err := r.db.WithContext(ctx).
		Preload("Lines").
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&m).Error; err != nil {
		return nil, translate(err)
	}
	return m.ToDomain(), nil
}

// FindByReference lists adjustments for a reference, oldest first
func (r *GormAdjustmentRepository) FindByReference(ctx context.Context, tenantID uuid.UUID, reference string) ([]inventory.InventoryAdjustment, error) {
	var rows []models.AdjustmentModel
	if err := r.db.WithContext(ctx).
		Preload("Lines").
		Where("tenant_id = ? AND reference = ?", tenantID, reference).
		Order("adjusted_at, id").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]inventory.InventoryAdjustment, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out, nil
}

// Save inserts the adjustment, its lines and its pending events
func (r *GormAdjustmentRepository) Save(ctx context.Context, adj *inventory.InventoryAdjustment) error {
	m := models.AdjustmentModelFromDomain(adj)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(m).Error; err != nil {
			return translate(err)
		}
		if len(m.Lines) > 0 {
			if err := tx.Create(&m.Lines).Error; err != nil {
				return err
			}
		}
		return publishPending(ctx, tx, r.outbox, adj)
	})
	if err != nil {
		return err
	}
	adj.ClearDomainEvents()
	return nil
}

var _ inventory.AdjustmentRepository = (*GormAdjustmentRepository)(nil)

// GormReversalIntentRepository implements inventory.ReversalIntentRepository
type GormReversalIntentRepository struct {
	db *gorm.DB
}

// NewGormReversalIntentRepository creates a new GormReversalIntentRepository
func NewGormReversalIntentRepository(db *gorm.DB) *GormReversalIntentRepository {
	return &GormReversalIntentRepository{db: db}
}

// FindByKey loads the intent for an idempotency key
func (r *GormReversalIntentRepository) FindByKey(ctx context.Context, tenantID uuid.UUID, key string) (*inventory.ReversalIntent, error) {
	var m models.ReversalIntentModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND idempotency_key = ?", tenantID, key).
		First(&m).Error; err != nil {
		return nil, translate(err)
	}
	return m.ToDomain(), nil
}

// Save inserts the intent. A taken key yields shared.ErrAlreadyExists
// without aborting the surrounding transaction.
func (r *GormReversalIntentRepository) Save(ctx context.Context, intent *inventory.ReversalIntent) error {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(models.ReversalIntentModelFromDomain(intent))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return shared.ErrAlreadyExists
	}
	return nil
}

var _ inventory.ReversalIntentRepository = (*GormReversalIntentRepository)(nil)

// GormStagingRepository implements inventory.StagingRepository
type GormStagingRepository struct {
	db *gorm.DB
}

// NewGormStagingRepository creates a new GormStagingRepository
func NewGormStagingRepository(db *gorm.DB) *GormStagingRepository {
	return &GormStagingRepository{db: db}
}

// FindUnprocessed lists a batch's open records by location and item
func (r *GormStagingRepository) FindUnprocessed(ctx context.Context, tenantID uuid.UUID, batchID string) ([]inventory.StagingRecord, error) {
	var rows []models.StagingRecordModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND batch_id = ? AND processed = ?", tenantID, batchID, false).
		Order("location_id, item_id, created_at").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]inventory.StagingRecord, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, nil
}

const stagingBatchSize = 200

// SaveAll inserts new records and updates the processing state of stored ones
func (r *GormStagingRepository) SaveAll(ctx context.Context, records []inventory.StagingRecord) error {
	if len(records) == 0 {
		return nil
	}
	rows := make([]models.StagingRecordModel, len(records))
	for i := range records {
		rows[i] = *models.StagingRecordModelFromDomain(&records[i])
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"counted_quantity", "processed", "processed_at"}),
		}).
		CreateInBatches(&rows, stagingBatchSize).Error
}

var _ inventory.StagingRepository = (*GormStagingRepository)(nil)
