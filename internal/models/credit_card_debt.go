package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CreditCardDebt tracks how much of a single credit-card spend is covered
// by money moved to the card's payment category.
//
// A row exists exactly for transactions whose account is CREDIT and whose
// amount is negative. CoveredAmount is always in [0, DebtAmount] and
// DebtAmount equals the absolute transaction amount.
type CreditCardDebt struct {
	DefaultModel
	Budget             Budget          `json:"-"`
	BudgetID           uuid.UUID       `json:"budgetId"`
	Transaction        Transaction     `json:"-"`
	TransactionID      uuid.UUID       `json:"transactionId" gorm:"uniqueIndex"`
	AccountID          uuid.UUID       `json:"accountId"` // the CREDIT account
	OriginalCategoryID uuid.UUID       `json:"originalCategoryId"`
	DebtAmount         decimal.Decimal `json:"debtAmount" gorm:"type:DECIMAL(20,2)"`
	CoveredAmount      decimal.Decimal `json:"coveredAmount" gorm:"type:DECIMAL(20,2)"`
}

// BeforeCreate verifies references to other resources.
func (d *CreditCardDebt) BeforeCreate(tx *gorm.DB) error {
	err := d.DefaultModel.BeforeCreate(tx)
	if err != nil {
		return err
	}

	return tx.First(&Transaction{}, "id = ?", d.TransactionID).Error
}

// UncoveredDebts returns the debt rows for a spending category that are not
// fully covered yet, oldest spend first.
func UncoveredDebts(db *gorm.DB, categoryID uuid.UUID) ([]CreditCardDebt, error) {
	var debts []CreditCardDebt
	err := db.
		Joins("JOIN transactions ON transactions.id = credit_card_debts.transaction_id").
		Where("credit_card_debts.original_category_id = ?", categoryID).
		Where("credit_card_debts.covered_amount < credit_card_debts.debt_amount").
		Order("datetime(transactions.date) ASC, datetime(credit_card_debts.created_at) ASC").
		Find(&debts).Error

	return debts, err
}
