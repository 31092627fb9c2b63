package models

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// AccountType describes how an account participates in the budget.
type AccountType string

const (
	AccountTypeCash     AccountType = "CASH"     // on-budget cash, feeds Ready-to-Assign
	AccountTypeCredit   AccountType = "CREDIT"   // credit card with a linked payment category
	AccountTypeTracking AccountType = "TRACKING" // off-budget, balances only
)

// Account represents a real-world account, e.g. a bank account or a credit card.
//
// The three derived balances satisfy WorkingBalance = ClearedBalance + UnclearedBalance.
// AccountBalance is the anchor set at creation and overwritten by reconciliation.
type Account struct {
	DefaultModel
	Budget            Budget          `json:"-"`
	BudgetID          uuid.UUID       `json:"budgetId" gorm:"uniqueIndex:account_name_budget_id"`
	Name              string          `json:"name"`
	NormalizedName    string          `json:"-" gorm:"uniqueIndex:account_name_budget_id"`
	Note              string          `json:"note"`
	Type              AccountType     `json:"type" example:"CASH"`
	AccountBalance    decimal.Decimal `json:"accountBalance" gorm:"type:DECIMAL(20,2)"`
	ClearedBalance    decimal.Decimal `json:"clearedBalance" gorm:"type:DECIMAL(20,2)"`
	UnclearedBalance  decimal.Decimal `json:"unclearedBalance" gorm:"type:DECIMAL(20,2)"`
	WorkingBalance    decimal.Decimal `json:"workingBalance" gorm:"type:DECIMAL(20,2)"`
	DisplayOrder      uint            `json:"displayOrder"`
	Archived          bool            `json:"archived"`
	PaymentCategoryID *uuid.UUID      `json:"paymentCategoryId"` // Only set for CREDIT accounts
}

var (
	ErrAccountTypeInvalid     = fmt.Errorf("%w: the account type must be CASH, CREDIT or TRACKING", ErrValidation)
	ErrAccountAlreadyArchived = fmt.Errorf("%w: the account is already closed", ErrValidation)
	ErrAccountNotArchived     = fmt.Errorf("%w: the account is already open", ErrValidation)
	ErrAccountNotTracking     = fmt.Errorf("%w: the balance can only be set directly for TRACKING accounts", ErrValidation)
)

// IsValid reports whether t is one of the known account types.
func (t AccountType) IsValid() bool {
	return t == AccountTypeCash || t == AccountTypeCredit || t == AccountTypeTracking
}

// BeforeSave trims whitespace and keeps the normalized name in sync.
func (a *Account) BeforeSave(_ *gorm.DB) error {
	a.Name = strings.TrimSpace(a.Name)
	a.NormalizedName = NormalizeName(a.Name)
	a.Note = strings.TrimSpace(a.Note)

	return nil
}

// BeforeCreate verifies references to other resources.
func (a *Account) BeforeCreate(tx *gorm.DB) error {
	err := a.DefaultModel.BeforeCreate(tx)
	if err != nil {
		return err
	}

	return tx.First(&Budget{}, "id = ?", a.BudgetID).Error
}

// Transactions returns all transactions on this account.
func (a Account) Transactions(db *gorm.DB) ([]Transaction, error) {
	var transactions []Transaction
	err := db.
		Where(&Transaction{AccountID: a.ID}).
		Order("datetime(transactions.date) ASC, datetime(transactions.created_at) ASC").
		Find(&transactions).Error

	return transactions, err
}

// SumTransactions returns the sum of all cleared and all uncleared
// transaction amounts on the account.
func (a Account) SumTransactions(db *gorm.DB) (cleared, uncleared decimal.Decimal, err error) {
	transactions, err := a.Transactions(db)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}

	for _, t := range transactions {
		if t.Cleared {
			cleared = cleared.Add(t.Amount)
		} else {
			uncleared = uncleared.Add(t.Amount)
		}
	}

	return cleared.RoundBank(2), uncleared.RoundBank(2), nil
}
