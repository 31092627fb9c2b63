package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// TransferPayeePrefix marks a transaction as one side of a transfer.
// The account name of the counterpart follows the prefix.
const TransferPayeePrefix = "Transfer : "

// Payees for transactions the engine creates itself.
const (
	PayeeReconciliationAdjustment = "Reconciliation Adjustment"
	PayeeBalanceAdjustment        = "Balance Adjustment"
)

// Transaction is a single inflow or outflow on one account.
//
// Amount is signed: positive amounts are inflows to the account, negative
// amounts are outflows. Two transactions sharing a TransferID represent a
// transfer between accounts, their amounts sum to zero.
type Transaction struct {
	DefaultModel
	Budget     Budget          `json:"-"`
	BudgetID   uuid.UUID       `json:"budgetId"`
	Account    Account         `json:"-"`
	AccountID  uuid.UUID       `json:"accountId"`
	Date       time.Time       `json:"date"`
	Amount     decimal.Decimal `json:"amount" gorm:"type:DECIMAL(20,2)"`
	Payee      string          `json:"payee"`
	Memo       string          `json:"memo"`
	CategoryID *uuid.UUID      `json:"categoryId"` // nil means unassigned
	Cleared    bool            `json:"cleared"`
	Reconciled bool            `json:"reconciled"`
	TransferID *uuid.UUID      `json:"transferId" gorm:"index"`
}

var (
	ErrTransactionFutureDated          = fmt.Errorf("%w: the transaction date must not be in the future", ErrValidation)
	ErrTransferTargetInvalid           = fmt.Errorf("%w: this account combination cannot be used for a transfer", ErrValidation)
	ErrTransferTargetUnknown           = fmt.Errorf("%w account with the name used in the transfer payee", ErrNotFound)
	ErrTransferToTrackingNeedsCategory = fmt.Errorf("%w: a transfer to a TRACKING account needs a category since the money leaves the budget", ErrValidation)
)

// IsTransfer reports whether the transaction is one side of a transfer.
func (t Transaction) IsTransfer() bool {
	return t.TransferID != nil
}

// AfterFind updates the timestamps to use UTC as timezone, not +0000.
func (t *Transaction) AfterFind(tx *gorm.DB) (err error) {
	t.Date = t.Date.In(time.UTC)
	return t.DefaultModel.AfterFind(tx)
}

// BeforeSave rounds the amount to cents, normalizes the date to UTC and
// trims whitespace.
func (t *Transaction) BeforeSave(_ *gorm.DB) (err error) {
	t.Amount = t.Amount.RoundBank(2)
	t.Payee = strings.TrimSpace(t.Payee)
	t.Memo = strings.TrimSpace(t.Memo)

	if t.Date.IsZero() {
		t.Date = time.Now().In(time.UTC)
	} else {
		t.Date = t.Date.In(time.UTC)
	}

	return nil
}

// BeforeCreate verifies references to other resources.
func (t *Transaction) BeforeCreate(tx *gorm.DB) error {
	err := t.DefaultModel.BeforeCreate(tx)
	if err != nil {
		return err
	}

	err = tx.First(&Account{}, "id = ?", t.AccountID).Error
	if err != nil {
		return err
	}

	if t.CategoryID != nil {
		return tx.First(&Category{}, "id = ?", *t.CategoryID).Error
	}

	return nil
}

// TransferPeer returns the transaction on the other side of a transfer.
func (t Transaction) TransferPeer(db *gorm.DB) (Transaction, error) {
	var peer Transaction
	err := db.
		Where("transfer_id = ? AND id != ?", t.TransferID, t.ID).
		First(&peer).Error

	return peer, err
}
