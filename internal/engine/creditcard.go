package engine

import (
	"errors"
	"fmt"

	"github.com/centsible/backend/internal/models"
	"github.com/centsible/backend/internal/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var ErrNoPaymentCategory = fmt.Errorf("%w: the credit card account has no payment category", models.ErrInvariant)

// isCreditSpend reports whether a transaction triggers the debt coverage
// protocol: a categorized outflow on a CREDIT account that is not a transfer.
func isCreditSpend(account models.Account, t models.Transaction) bool {
	return account.Type == models.AccountTypeCredit &&
		t.Amount.IsNegative() &&
		t.CategoryID != nil &&
		t.TransferID == nil
}

// paymentCategoryID resolves the payment category of a CREDIT account.
func paymentCategoryID(account models.Account) (uuid.UUID, error) {
	if account.PaymentCategoryID == nil {
		return uuid.Nil, ErrNoPaymentCategory
	}
	return *account.PaymentCategoryID, nil
}

// CoverSpend runs the coverage protocol for a new credit-card spend: as much
// of the debt as the spending category has available is mirrored into the
// card's payment category, so the user sees cash set aside for the bill.
//
// The spending category's available is read before the activity of the spend
// is applied; extraPool is added on top (it is zero for creates and carries
// the reversed prior coverage on same-category updates).
func CoverSpend(db *gorm.DB, account models.Account, t models.Transaction, current types.Month, extraPool decimal.Decimal) error {
	if !isCreditSpend(account, t) {
		return nil
	}

	paymentID, err := paymentCategoryID(account)
	if err != nil {
		return err
	}

	spending, _, err := categoryBalance(db, *t.CategoryID, current)
	if err != nil {
		return err
	}

	debt := t.Amount.Abs().RoundBank(2)
	pool := decimal.Max(spending.Available, decimal.Zero).Add(extraPool)
	covered := decimal.Min(debt, pool).RoundBank(2)

	row := models.CreditCardDebt{
		BudgetID:           t.BudgetID,
		TransactionID:      t.ID,
		AccountID:          account.ID,
		OriginalCategoryID: *t.CategoryID,
		DebtAmount:         debt,
		CoveredAmount:      covered,
	}
	err = db.Create(&row).Error
	if err != nil {
		return err
	}

	if covered.IsPositive() {
		return addToAvailable(db, t.BudgetID, paymentID, current, covered)
	}

	return nil
}

// ReverseSpend undoes the coverage of a credit-card spend and deletes its
// debt row. It returns the amount of coverage that was reversed; zero when
// no debt row exists for the transaction.
func ReverseSpend(db *gorm.DB, account models.Account, t models.Transaction, current types.Month) (decimal.Decimal, error) {
	var debt models.CreditCardDebt
	err := db.First(&debt, &models.CreditCardDebt{TransactionID: t.ID}).Error
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return decimal.Zero, nil
		}
		return decimal.Zero, err
	}

	paymentID, err := paymentCategoryID(account)
	if err != nil {
		return decimal.Zero, err
	}

	if debt.CoveredAmount.IsPositive() {
		err = addToAvailable(db, debt.BudgetID, paymentID, current, debt.CoveredAmount.Neg())
		if err != nil {
			return decimal.Zero, err
		}
	}

	// Hard delete: a soft-deleted row would still occupy the unique
	// transaction index when an update re-creates the coverage.
	return debt.CoveredAmount, db.Unscoped().Delete(&debt).Error
}

// UpdateSpend adjusts debt tracking when a credit-card transaction changes.
// The old coverage is reversed first; if the new shape is still a spend, the
// create protocol runs again. On a same-category edit the reversed coverage
// joins the pool so the edit neither double-counts nor loses coverage.
func UpdateSpend(db *gorm.DB, oldAccount, newAccount models.Account, old, updated models.Transaction, current types.Month) error {
	reversed, err := ReverseSpend(db, oldAccount, old, current)
	if err != nil {
		return err
	}

	extraPool := decimal.Zero
	sameCategory := old.CategoryID != nil && updated.CategoryID != nil && *old.CategoryID == *updated.CategoryID
	if sameCategory && oldAccount.ID == newAccount.ID {
		extraPool = reversed
	}

	return CoverSpend(db, newAccount, updated, current, extraPool)
}

// CoverOnAssignment distributes newly assigned money of a spending category
// to its uncovered credit-card debts, oldest spend first. It returns the
// payment categories that received money, for change-set reporting.
func CoverOnAssignment(db *gorm.DB, categoryID uuid.UUID, delta decimal.Decimal, current types.Month) ([]uuid.UUID, error) {
	delta = delta.RoundBank(2)
	if !delta.IsPositive() {
		return nil, nil
	}

	debts, err := models.UncoveredDebts(db, categoryID)
	if err != nil {
		return nil, err
	}

	accounts := make(map[uuid.UUID]models.Account)
	var touched []uuid.UUID

	for _, debt := range debts {
		if !delta.IsPositive() {
			break
		}

		account, ok := accounts[debt.AccountID]
		if !ok {
			err = db.First(&account, "id = ?", debt.AccountID).Error
			if err != nil {
				return touched, err
			}
			accounts[debt.AccountID] = account
		}

		paymentID, err := paymentCategoryID(account)
		if err != nil {
			return touched, err
		}

		take := decimal.Min(delta, debt.DebtAmount.Sub(debt.CoveredAmount)).RoundBank(2)
		debt.CoveredAmount = debt.CoveredAmount.Add(take).RoundBank(2)
		err = db.Model(&debt).Select("CoveredAmount").Updates(debt).Error
		if err != nil {
			return touched, err
		}

		err = addToAvailable(db, debt.BudgetID, paymentID, current, take)
		if err != nil {
			return touched, err
		}

		touched = append(touched, paymentID)
		delta = delta.Sub(take)
	}

	return touched, nil
}
