package fulfillment

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var settingsValidator = validator.New()

// Settings are the named parameters of one fulfillment invocation. They are
// resolved once at startup and passed to every handler explicitly.
type Settings struct {
	// InventoryAccountID is the account reversal adjustments post to.
	// Required when the batch reverses inventory inline.
	InventoryAccountID string `validate:"required_if=ReverseInline true,max=64"`
	PendingOrderLimit  int    `validate:"gte=1"`
	MapConcurrency     int    `validate:"gte=1,lte=64"`
	UsageLimit         int    `validate:"gte=0"`
	UsagePerGroup      int    `validate:"gte=0"`
	MinRemainingUsage  int    `validate:"gte=0"`
	ShipmentMemoPrefix string `validate:"max=32"`
	ReverseInline      bool
}

// DefaultSettings returns settings that process every group without yielding
func DefaultSettings() Settings {
	return Settings{
		PendingOrderLimit: 200,
		MapConcurrency:    4,
		UsageLimit:        1000,
		UsagePerGroup:     40,
		MinRemainingUsage: 100,
	}
}

// Validate reports a missing or out-of-range parameter. A failure here
// aborts the whole invocation.
func (s Settings) Validate() error {
	if err := settingsValidator.Struct(s); err != nil {
		return fmt.Errorf("invalid fulfillment settings: %w", err)
	}
	return nil
}
