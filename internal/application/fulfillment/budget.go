package fulfillment

import "sync"

// UsageBudget is the per-invocation resource ceiling. The service polls it
// before each group and yields when too little is left.
type UsageBudget interface {
	Remaining() int
	Consume(units int)
}

// UnitBudget is a UsageBudget counting abstract usage units
type UnitBudget struct {
	mu        sync.Mutex
	remaining int
}

// NewUnitBudget creates a budget with limit units
func NewUnitBudget(limit int) *UnitBudget {
	return &UnitBudget{remaining: limit}
}

// Remaining returns the units left, never below zero
func (b *UnitBudget) Remaining() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.remaining
}

// Consume spends units
func (b *UnitBudget) Consume(units int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.remaining -= units
	if b.remaining < 0 {
		b.remaining = 0
	}
}
