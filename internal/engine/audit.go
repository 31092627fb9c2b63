package engine

import (
	"fmt"

	"github.com/centsible/backend/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Violation is one detected inconsistency between stored balances and the
// transaction history they are derived from.
type Violation struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Audit recomputes every balance consistency rule for a budget from scratch
// and reports violations. The incremental engine is supposed to never
// produce any; the audit exists because secondary side effects are allowed
// to fail without rolling back the primary mutation.
func Audit(db *gorm.DB, budgetID uuid.UUID) ([]Violation, error) {
	violations := []Violation{}

	accountViolations, err := auditAccounts(db, budgetID)
	if err != nil {
		return nil, err
	}
	violations = append(violations, accountViolations...)

	debtViolations, err := auditDebts(db, budgetID)
	if err != nil {
		return nil, err
	}
	violations = append(violations, debtViolations...)

	transferViolations, err := auditTransfers(db, budgetID)
	if err != nil {
		return nil, err
	}
	violations = append(violations, transferViolations...)

	return violations, nil
}

func auditAccounts(db *gorm.DB, budgetID uuid.UUID) ([]Violation, error) {
	var accounts []models.Account
	err := db.Where("budget_id = ? AND archived = false", budgetID).Find(&accounts).Error
	if err != nil {
		return nil, err
	}

	var violations []Violation
	for _, account := range accounts {
		working := account.ClearedBalance.Add(account.UnclearedBalance).RoundBank(2)
		if !account.WorkingBalance.Equal(working) {
			violations = append(violations, Violation{
				Code: "account-working-balance",
				Message: fmt.Sprintf("account %s: working balance %s does not equal cleared %s plus uncleared %s",
					account.Name, account.WorkingBalance, account.ClearedBalance, account.UnclearedBalance),
			})
		}

		transactions, err := account.Transactions(db)
		if err != nil {
			return nil, err
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

		if !account.ClearedBalance.Equal(cleared.RoundBank(2)) {
			violations = append(violations, Violation{
				Code: "account-cleared-balance",
				Message: fmt.Sprintf("account %s: cleared balance %s does not match the recomputed %s",
					account.Name, account.ClearedBalance, cleared.RoundBank(2)),
			})
		}
		if !account.UnclearedBalance.Equal(uncleared.RoundBank(2)) {
			violations = append(violations, Violation{
				Code: "account-uncleared-balance",
				Message: fmt.Sprintf("account %s: uncleared balance %s does not match the recomputed %s",
					account.Name, account.UnclearedBalance, uncleared.RoundBank(2)),
			})
		}
	}

	return violations, nil
}

func auditDebts(db *gorm.DB, budgetID uuid.UUID) ([]Violation, error) {
	var debts []models.CreditCardDebt
	err := db.Where("budget_id = ?", budgetID).Find(&debts).Error
	if err != nil {
		return nil, err
	}

	var violations []Violation
	for _, debt := range debts {
		if debt.CoveredAmount.IsNegative() || debt.CoveredAmount.GreaterThan(debt.DebtAmount) {
			violations = append(violations, Violation{
				Code: "debt-coverage-bounds",
				Message: fmt.Sprintf("debt row for transaction %s: covered %s is outside [0, %s]",
					debt.TransactionID, debt.CoveredAmount, debt.DebtAmount),
			})
		}

		var t models.Transaction
		err = db.First(&t, "id = ?", debt.TransactionID).Error
		if err != nil {
			violations = append(violations, Violation{
				Code:    "debt-orphaned",
				Message: fmt.Sprintf("debt row for transaction %s: the transaction does not exist", debt.TransactionID),
			})
			continue
		}

		if !debt.DebtAmount.Equal(t.Amount.Abs()) {
			violations = append(violations, Violation{
				Code: "debt-amount-mismatch",
				Message: fmt.Sprintf("debt row for transaction %s: debt %s does not equal the transaction amount %s",
					debt.TransactionID, debt.DebtAmount, t.Amount.Abs()),
			})
		}
	}

	return violations, nil
}

func auditTransfers(db *gorm.DB, budgetID uuid.UUID) ([]Violation, error) {
	var transfers []models.Transaction
	err := db.Where("budget_id = ? AND transfer_id IS NOT NULL", budgetID).Find(&transfers).Error
	if err != nil {
		return nil, err
	}

	byTransfer := make(map[uuid.UUID][]models.Transaction)
	for _, t := range transfers {
		byTransfer[*t.TransferID] = append(byTransfer[*t.TransferID], t)
	}

	var violations []Violation
	for transferID, pair := range byTransfer {
		if len(pair) != 2 {
			violations = append(violations, Violation{
				Code:    "transfer-pairing",
				Message: fmt.Sprintf("transfer %s has %d transactions instead of 2", transferID, len(pair)),
			})
			continue
		}

		a, b := pair[0], pair[1]
		if !a.Amount.Add(b.Amount).IsZero() {
			violations = append(violations, Violation{
				Code:    "transfer-amounts",
				Message: fmt.Sprintf("transfer %s: amounts %s and %s do not sum to zero", transferID, a.Amount, b.Amount),
			})
		}
		if !a.Date.Equal(b.Date) {
			violations = append(violations, Violation{
				Code:    "transfer-dates",
				Message: fmt.Sprintf("transfer %s: dates differ", transferID),
			})
		}
		if a.Cleared != b.Cleared {
			violations = append(violations, Violation{
				Code:    "transfer-cleared-flags",
				Message: fmt.Sprintf("transfer %s: cleared flags differ", transferID),
			})
		}
	}

	return violations, nil
}
