package engine

import (
	"github.com/centsible/backend/internal/models"
	"github.com/centsible/backend/internal/types"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// reconcileTolerance is the largest difference between the reported and the
// recorded cleared balance that does not warrant an adjustment transaction.
var reconcileTolerance = decimal.RequireFromString("0.005")

// AccountResult is the outcome of an account lifecycle operation.
type AccountResult struct {
	Account    models.Account      `json:"account"`
	Adjustment *models.Transaction `json:"adjustmentTransaction,omitempty"`

	ReadyToAssign decimal.Decimal `json:"readyToAssign"`
}

// ReconcileAccount aligns an account with the balance the user read off
// their statement. A difference beyond the tolerance becomes an adjustment
// transaction; everything cleared so far is marked reconciled and the
// account balance anchor moves to the actual balance.
func ReconcileAccount(db *gorm.DB, user UserContext, accountID uuid.UUID, actualBalance decimal.Decimal) (AccountResult, error) {
	actualBalance = actualBalance.RoundBank(2)

	var probe models.Account
	err := db.Select("budget_id").First(&probe, "id = ?", accountID).Error
	if err != nil {
		return AccountResult{}, err
	}

	var result AccountResult
	err = mutateBudget(db, probe.BudgetID, func(tx *gorm.DB) error {
		var account models.Account
		err := tx.First(&account, "id = ?", accountID).Error
		if err != nil {
			return err
		}

		var adjustment *models.Transaction
		diff := actualBalance.Sub(account.ClearedBalance)
		if diff.Abs().GreaterThan(reconcileTolerance) {
			t := models.Transaction{
				BudgetID:   account.BudgetID,
				AccountID:  account.ID,
				Date:       user.Date,
				Amount:     diff,
				Payee:      models.PayeeReconciliationAdjustment,
				Cleared:    true,
				Reconciled: true,
			}
			err = tx.Create(&t).Error
			if err != nil {
				return err
			}
			adjustment = &t
		}

		err = tx.Model(&models.Transaction{}).
			Where("account_id = ? AND cleared = true AND reconciled = false", account.ID).
			Update("reconciled", true).Error
		if err != nil {
			return err
		}

		account.AccountBalance = actualBalance
		account.ClearedBalance = actualBalance
		account.WorkingBalance = actualBalance.Add(account.UnclearedBalance).RoundBank(2)
		err = tx.Model(&account).
			Select("AccountBalance", "ClearedBalance", "WorkingBalance").
			Updates(account).Error
		if err != nil {
			return err
		}

		rta, err := ReadyToAssign(tx, account.BudgetID, user.Month)
		if err != nil {
			return err
		}

		result = AccountResult{Account: account, Adjustment: adjustment, ReadyToAssign: rta}
		return nil
	})

	return result, err
}

// CloseAccount archives an account. A non-zero working balance is zeroed
// with an adjustment transaction first; for a CREDIT account the payment
// category moves into the hidden system group.
//
// The account balance anchor survives the close so that reopening can
// rebuild consistent balances from the transaction history.
func CloseAccount(db *gorm.DB, user UserContext, accountID uuid.UUID) (AccountResult, error) {
	var probe models.Account
	err := db.Select("budget_id").First(&probe, "id = ?", accountID).Error
	if err != nil {
		return AccountResult{}, err
	}

	var result AccountResult
	err = mutateBudget(db, probe.BudgetID, func(tx *gorm.DB) error {
		var account models.Account
		err := tx.First(&account, "id = ?", accountID).Error
		if err != nil {
			return err
		}
		if account.Archived {
			return models.ErrAccountAlreadyArchived
		}

		var adjustment *models.Transaction
		if !account.WorkingBalance.IsZero() {
			t := models.Transaction{
				BudgetID:  account.BudgetID,
				AccountID: account.ID,
				Date:      user.Date,
				Amount:    account.WorkingBalance.Neg(),
				Payee:     models.PayeeBalanceAdjustment,
				Cleared:   true,
			}
			err = tx.Create(&t).Error
			if err != nil {
				return err
			}
			adjustment = &t
		}

		account.Archived = true
		account.ClearedBalance = decimal.Zero
		account.UnclearedBalance = decimal.Zero
		account.WorkingBalance = decimal.Zero
		err = tx.Model(&account).
			Select("Archived", "ClearedBalance", "UnclearedBalance", "WorkingBalance").
			Updates(account).Error
		if err != nil {
			return err
		}

		if account.Type == models.AccountTypeCredit && account.PaymentCategoryID != nil {
			err = movePaymentCategory(tx, account, models.GroupNameHidden)
			if err != nil {
				log.Warn().Err(err).Str("account", account.ID.String()).Msg("hiding the payment category failed")
			}
		}

		rta, err := ReadyToAssign(tx, account.BudgetID, user.Month)
		if err != nil {
			return err
		}

		result = AccountResult{Account: account, Adjustment: adjustment, ReadyToAssign: rta}
		return nil
	})

	return result, err
}

// ReopenAccount clears the archived flag, restores the payment category of
// a CREDIT account and rebuilds the balance fields from the transaction
// history.
func ReopenAccount(db *gorm.DB, user UserContext, accountID uuid.UUID) (AccountResult, error) {
	var probe models.Account
	err := db.Select("budget_id").First(&probe, "id = ?", accountID).Error
	if err != nil {
		return AccountResult{}, err
	}

	var result AccountResult
	err = mutateBudget(db, probe.BudgetID, func(tx *gorm.DB) error {
		var account models.Account
		err := tx.First(&account, "id = ?", accountID).Error
		if err != nil {
			return err
		}
		if !account.Archived {
			return models.ErrAccountNotArchived
		}

		account.Archived = false
		err = tx.Model(&account).Select("Archived").Updates(account).Error
		if err != nil {
			return err
		}

		if account.Type == models.AccountTypeCredit && account.PaymentCategoryID != nil {
			err = movePaymentCategory(tx, account, models.GroupNameCreditCardPayments)
			if err != nil {
				log.Warn().Err(err).Str("account", account.ID.String()).Msg("restoring the payment category failed")
			}
		}

		err = RecomputeBalances(tx, account.ID)
		if err != nil {
			return err
		}
		err = tx.First(&account, "id = ?", accountID).Error
		if err != nil {
			return err
		}

		rta, err := ReadyToAssign(tx, account.BudgetID, user.Month)
		if err != nil {
			return err
		}

		result = AccountResult{Account: account, ReadyToAssign: rta}
		return nil
	})

	return result, err
}

// movePaymentCategory moves the payment category of a CREDIT account into
// the named system group.
func movePaymentCategory(tx *gorm.DB, account models.Account, groupName string) error {
	group, err := models.SystemGroup(tx, account.BudgetID, groupName)
	if err != nil {
		return err
	}

	return tx.Model(&models.Category{}).
		Where("id = ?", *account.PaymentCategoryID).
		Update("category_group_id", group.ID).Error
}

// UpdateTrackingBalance sets the balance of a TRACKING account to a target
// value via an adjustment transaction. Tracking accounts have no individual
// transaction entry surface, their balance is maintained through this path.
func UpdateTrackingBalance(db *gorm.DB, user UserContext, accountID uuid.UUID, targetBalance decimal.Decimal) (AccountResult, error) {
	targetBalance = targetBalance.RoundBank(2)

	var probe models.Account
	err := db.Select("budget_id").First(&probe, "id = ?", accountID).Error
	if err != nil {
		return AccountResult{}, err
	}

	var result AccountResult
	err = mutateBudget(db, probe.BudgetID, func(tx *gorm.DB) error {
		var account models.Account
		err := tx.First(&account, "id = ?", accountID).Error
		if err != nil {
			return err
		}
		if account.Type != models.AccountTypeTracking {
			return models.ErrAccountNotTracking
		}

		var adjustment *models.Transaction
		diff := targetBalance.Sub(account.WorkingBalance)
		if !diff.IsZero() {
			t := models.Transaction{
				BudgetID:  account.BudgetID,
				AccountID: account.ID,
				Date:      user.Date,
				Amount:    diff,
				Payee:     models.PayeeBalanceAdjustment,
				Cleared:   true,
			}
			err = tx.Create(&t).Error
			if err != nil {
				return err
			}
			adjustment = &t

			err = AddTransactionToBalance(tx, account.ID, diff, true)
			if err != nil {
				return err
			}
			err = tx.First(&account, "id = ?", accountID).Error
			if err != nil {
				return err
			}
		}

		rta, err := ReadyToAssign(tx, account.BudgetID, user.Month)
		if err != nil {
			return err
		}

		result = AccountResult{Account: account, Adjustment: adjustment, ReadyToAssign: rta}
		return nil
	})

	return result, err
}

// BalancePoint is one entry of an account's balance history.
type BalancePoint struct {
	Month   types.Month     `json:"month"`
	Balance decimal.Decimal `json:"balance"`
}

// BalanceHistory derives the month-end working balance of an account for
// the given number of months, newest last. The non-transaction remainder
// (the starting balance) is derived from the current working balance so
// the newest point always matches the account.
func BalanceHistory(db *gorm.DB, accountID uuid.UUID, months int, current types.Month) ([]BalancePoint, error) {
	if months <= 0 {
		months = 12
	}

	var account models.Account
	err := db.First(&account, "id = ?", accountID).Error
	if err != nil {
		return nil, err
	}

	transactions, err := account.Transactions(db)
	if err != nil {
		return nil, err
	}

	base := account.WorkingBalance
	for _, t := range transactions {
		base = base.Sub(t.Amount)
	}

	points := make([]BalancePoint, 0, months)
	for i := months - 1; i >= 0; i-- {
		month := current.AddMonths(-i)
		sum := base
		for _, t := range transactions {
			if !types.MonthOf(t.Date).After(month) {
				sum = sum.Add(t.Amount)
			}
		}
		points = append(points, BalancePoint{Month: month, Balance: sum.RoundBank(2)})
	}

	return points, nil
}

// TransferOptions lists the accounts a given account can transfer to.
// Transfers originate from CASH accounts only, so everything else gets an
// empty list.
func TransferOptions(db *gorm.DB, accountID uuid.UUID) ([]models.Account, error) {
	var account models.Account
	err := db.First(&account, "id = ?", accountID).Error
	if err != nil {
		return nil, err
	}

	if account.Type != models.AccountTypeCash {
		return []models.Account{}, nil
	}

	var options []models.Account
	err = db.
		Where("budget_id = ? AND id != ? AND archived = false", account.BudgetID, account.ID).
		Order("display_order ASC, name ASC").
		Find(&options).Error

	return options, err
}
