package engine

import (
	"github.com/centsible/backend/internal/balance"
	"github.com/centsible/backend/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// accountBalances returns the account's balance triple for the pure
// arithmetic in the balance package.
func accountBalances(a models.Account) balance.Balance {
	return balance.New(a.ClearedBalance, a.UnclearedBalance)
}

// writeBalances persists a balance triple on an account.
func writeBalances(db *gorm.DB, a *models.Account, b balance.Balance) error {
	a.ClearedBalance = b.Cleared
	a.UnclearedBalance = b.Uncleared
	a.WorkingBalance = b.Working

	return db.Model(a).
		Select("ClearedBalance", "UnclearedBalance", "WorkingBalance").
		Updates(*a).Error
}

// AddTransactionToBalance applies a transaction amount to an account's
// balances. This is the default path for every transaction create.
func AddTransactionToBalance(db *gorm.DB, accountID uuid.UUID, amount decimal.Decimal, cleared bool) error {
	var account models.Account
	err := db.First(&account, "id = ?", accountID).Error
	if err != nil {
		return err
	}

	return writeBalances(db, &account, balance.ApplyTransaction(accountBalances(account), amount, cleared))
}

// RemoveTransactionFromBalance reverts a transaction amount from an
// account's balances. This is the default path for every transaction delete
// and the first half of every update.
func RemoveTransactionFromBalance(db *gorm.DB, accountID uuid.UUID, amount decimal.Decimal, cleared bool) error {
	var account models.Account
	err := db.First(&account, "id = ?", accountID).Error
	if err != nil {
		return err
	}

	return writeBalances(db, &account, balance.RevertTransaction(accountBalances(account), amount, cleared))
}

// AdjustForClearedToggle moves a transaction amount between the cleared and
// uncleared balance of an account. The working balance does not change.
func AdjustForClearedToggle(db *gorm.DB, accountID uuid.UUID, amount decimal.Decimal, wasCleared, isCleared bool) error {
	var account models.Account
	err := db.First(&account, "id = ?", accountID).Error
	if err != nil {
		return err
	}

	return writeBalances(db, &account, balance.ToggleCleared(accountBalances(account), amount, wasCleared, isCleared))
}

// RecomputeBalances rewrites all balance fields of an account from its
// transactions. The incremental paths above are the default; this is only
// used by reconciliation-adjacent paths and the invariant audit.
//
// The cleared balance is anchored on AccountBalance, which absorbs all
// reconciled transactions, so the sum only runs over unreconciled ones.
func RecomputeBalances(db *gorm.DB, accountID uuid.UUID) error {
	var account models.Account
	err := db.First(&account, "id = ?", accountID).Error
	if err != nil {
		return err
	}

	transactions, err := account.Transactions(db)
	if err != nil {
		return err
	}

	cleared := account.AccountBalance
	uncleared := decimal.Zero
	for _, t := range transactions {
		switch {
		case t.Cleared && !t.Reconciled:
			cleared = cleared.Add(t.Amount)
		case !t.Cleared:
			uncleared = uncleared.Add(t.Amount)
		}
	}

	return writeBalances(db, &account, balance.New(cleared, uncleared))
}
