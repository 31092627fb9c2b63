// Package engine implements the budget consistency engine: the coupled
// incremental updates that keep account balances, category balances,
// credit-card debt coverage and Ready-to-Assign consistent.
package engine

import (
	"sync"

	"github.com/google/uuid"
)

// budgetLocks serializes mutating operations per budget. Two concurrent
// mutations on the same budget would interleave at the database boundary
// otherwise; operations on different budgets never contend.
var budgetLocks sync.Map

// lockBudget acquires the advisory lock for a budget and returns the
// function releasing it.
func lockBudget(budgetID uuid.UUID) func() {
	mu, _ := budgetLocks.LoadOrStore(budgetID, &sync.Mutex{})
	mutex := mu.(*sync.Mutex)
	mutex.Lock()
	return mutex.Unlock
}
