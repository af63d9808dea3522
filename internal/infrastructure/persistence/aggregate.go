package persistence

import (
	"context"

	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/erp/fulfillment/internal/infrastructure/event"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// saveVersioned inserts row when no row with id exists in table, otherwise
// updates it under an optimistic lock on version. version is the new
// version; the stored one must be version-1.
func saveVersioned(tx *gorm.DB, table any, row any, id uuid.UUID, version int, updates map[string]any) error {
	var n int64
	if err := tx.Model(table).Where("id = ?", id).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		if err := tx.Omit(clause.Associations).Create(row).Error; err != nil {
			return translate(err)
		}
		return nil
	}

	updates["version"] = version
	res := tx.Model(table).Where("id = ? AND version = ?", id, version-1).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// upsertByID writes child rows, replacing rows that share an id
func upsertByID(tx *gorm.DB, rows any) error {
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(rows).Error
}

// publishPending writes an aggregate's pending events to the outbox through tx
func publishPending(ctx context.Context, tx *gorm.DB, outbox *event.OutboxPublisher, agg shared.AggregateRoot) error {
	if outbox == nil {
		return nil
	}
	return outbox.PublishWithTx(ctx, tx, agg.GetDomainEvents()...)
}
