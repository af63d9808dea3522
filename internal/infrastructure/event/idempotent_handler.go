package event

import (
	"context"

	"github.com/erp/fulfillment/internal/domain/shared"
	"go.uber.org/zap"
)

// IdempotentHandler skips events whose ID was already handled. A failed
// delivery releases the key so the outbox retry is not swallowed.
type IdempotentHandler struct {
	handler shared.EventHandler
	store   shared.IdempotencyStore
	config  shared.IdempotencyConfig
	logger  *zap.Logger
}

// NewIdempotentHandler wraps handler
func NewIdempotentHandler(handler shared.EventHandler, store shared.IdempotencyStore, config shared.IdempotencyConfig, logger *zap.Logger) *IdempotentHandler {
	return &IdempotentHandler{handler: handler, store: store, config: config, logger: logger}
}

// EventTypes delegates to the wrapped handler
func (h *IdempotentHandler) EventTypes() []string {
	return h.handler.EventTypes()
}

// Handle processes event unless its ID is already marked
func (h *IdempotentHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	if !h.config.Enabled {
		return h.handler.Handle(ctx, event)
	}

	key := event.EventType() + ":" + event.EventID().String()
	log := h.logger.With(zap.String("event_id", event.EventID().String()), zap.String("event_type", event.EventType()))

	isNew, err := h.store.MarkProcessed(ctx, key, h.config.TTL)
	switch {
	case err != nil:
		// a duplicate is preferable to a dropped event
		log.Warn("idempotency check failed, processing anyway", zap.Error(err))
	case !isNew:
		log.Debug("duplicate event skipped")
		return nil
	}

	if err := h.handler.Handle(ctx, event); err != nil {
		if forgetErr := h.store.Forget(ctx, key); forgetErr != nil {
			log.Warn("failed to release idempotency key", zap.Error(forgetErr))
		}
		return err
	}
	return nil
}

var _ shared.EventHandler = (*IdempotentHandler)(nil)
