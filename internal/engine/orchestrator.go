package engine

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/centsible/backend/internal/models"
	"github.com/centsible/backend/internal/types"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var ErrReconciledImmutable = fmt.Errorf("%w: the amount of a reconciled transaction cannot be changed", models.ErrValidation)

// TransactionResult is the outcome of a mutating transaction operation. The
// recomputed Ready-to-Assign rides along with every response so clients can
// update their header figure without a second request.
type TransactionResult struct {
	Transaction models.Transaction  `json:"transaction"`
	Peer        *models.Transaction `json:"peerTransaction,omitempty"`

	ReadyToAssign decimal.Decimal `json:"readyToAssign"`
}

// mutateBudget runs fn inside a database transaction while holding the
// budget's advisory lock. All mutating orchestrator operations go through
// here so two concurrent calls on the same budget never interleave.
func mutateBudget(db *gorm.DB, budgetID uuid.UUID, fn func(tx *gorm.DB) error) error {
	unlock := lockBudget(budgetID)
	defer unlock()

	return db.Transaction(fn)
}

// budgetOfTransaction resolves the budget a transaction belongs to, for
// acquiring the right advisory lock before the mutating read.
func budgetOfTransaction(db *gorm.DB, transactionID uuid.UUID) (uuid.UUID, error) {
	var t models.Transaction
	err := db.Select("budget_id").First(&t, "id = ?", transactionID).Error
	return t.BudgetID, err
}

// dateOnly truncates a timestamp to its calendar day in UTC.
func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// checkNotFutureDated rejects transactions dated after the user's current
// date. When the client sends no date, the server clock already filled in
// UserContext.Date, which acts as the backstop.
func checkNotFutureDated(user UserContext, date time.Time) error {
	if dateOnly(date).After(dateOnly(user.Date)) {
		return models.ErrTransactionFutureDated
	}
	return nil
}

// activityExempt reports whether a transaction stays out of category
// activity: uncategorized transactions, transactions on TRACKING accounts
// (outside the budget) and anything touching a payment category, whose
// sums are maintained by the debt coverage protocol alone.
func activityExempt(db *gorm.DB, account models.Account, categoryID *uuid.UUID) (bool, error) {
	if categoryID == nil || account.Type == models.AccountTypeTracking {
		return true, nil
	}

	var count int64
	err := db.Model(&models.Account{}).Where("payment_category_id = ?", *categoryID).Count(&count).Error
	return count > 0, err
}

// applyTransactionActivity books a transaction into its category's activity
// for the month of its date, unless the transaction is exempt.
func applyTransactionActivity(db *gorm.DB, account models.Account, t models.Transaction, amount decimal.Decimal, current types.Month) error {
	exempt, err := activityExempt(db, account, t.CategoryID)
	if err != nil {
		return err
	}
	if exempt {
		return nil
	}

	return ApplyActivity(db, t.BudgetID, *t.CategoryID, types.MonthOf(t.Date), amount, current)
}

// CreateTransaction persists a new transaction and runs all coupled side
// effects: the credit-card debt protocol, category activity and the account
// balance delta. A payee starting with the transfer prefix turns the call
// into a transfer creation with a peer transaction on the counterpart
// account.
func CreateTransaction(db *gorm.DB, user UserContext, t models.Transaction) (TransactionResult, error) {
	var result TransactionResult
	err := mutateBudget(db, t.BudgetID, func(tx *gorm.DB) error {
		var err error
		result, err = createTransaction(tx, user, t)
		return err
	})

	return result, err
}

func createTransaction(tx *gorm.DB, user UserContext, t models.Transaction) (TransactionResult, error) {
	err := checkNotFutureDated(user, t.Date)
	if err != nil {
		return TransactionResult{}, err
	}

	var account models.Account
	err = tx.First(&account, "id = ?", t.AccountID).Error
	if err != nil {
		return TransactionResult{}, err
	}
	t.BudgetID = account.BudgetID

	err = EnsureMonth(tx, t.BudgetID, user.Month)
	if err != nil {
		return TransactionResult{}, err
	}

	var peer *models.Transaction
	if strings.HasPrefix(strings.TrimSpace(t.Payee), models.TransferPayeePrefix) {
		t, peer, err = createTransfer(tx, user, t, account)
	} else {
		t, err = createStandalone(tx, user, t, account)
	}
	if err != nil {
		return TransactionResult{}, err
	}

	rta, err := ReadyToAssign(tx, t.BudgetID, user.Month)
	if err != nil {
		return TransactionResult{}, err
	}

	return TransactionResult{Transaction: t, Peer: peer, ReadyToAssign: rta}, nil
}

func createStandalone(tx *gorm.DB, user UserContext, t models.Transaction, account models.Account) (models.Transaction, error) {
	err := tx.Create(&t).Error
	if err != nil {
		return models.Transaction{}, err
	}

	err = CoverSpend(tx, account, t, user.Month, decimal.Zero)
	if err != nil {
		log.Warn().Err(err).Str("transaction", t.ID.String()).Msg("credit card debt tracking failed")
	}

	err = applyTransactionActivity(tx, account, t, t.Amount, user.Month)
	if err != nil {
		log.Warn().Err(err).Str("transaction", t.ID.String()).Msg("category activity update failed")
	}

	return t, AddTransactionToBalance(tx, t.AccountID, t.Amount, t.Cleared)
}

// createTransfer creates both sides of a transfer. The primary transaction
// is the outflow on the source account; the peer carries the opposite amount
// on the account named after the payee prefix.
func createTransfer(tx *gorm.DB, user UserContext, t models.Transaction, source models.Account) (models.Transaction, *models.Transaction, error) {
	if source.Type != models.AccountTypeCash {
		return models.Transaction{}, nil, models.ErrTransferTargetInvalid
	}

	targetName := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(t.Payee), models.TransferPayeePrefix))

	var target models.Account
	err := tx.First(&target,
		"budget_id = ? AND normalized_name = ? AND id != ?",
		t.BudgetID, models.NormalizeName(targetName), source.ID,
	).Error
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.Transaction{}, nil, models.ErrTransferTargetUnknown
		}
		return models.Transaction{}, nil, err
	}

	if target.Type == models.AccountTypeTracking && t.CategoryID == nil {
		return models.Transaction{}, nil, models.ErrTransferToTrackingNeedsCategory
	}

	transferID := uuid.New()
	t.TransferID = &transferID
	t.Amount = t.Amount.Abs().Neg()
	t.Payee = models.TransferPayeePrefix + target.Name

	err = tx.Create(&t).Error
	if err != nil {
		return models.Transaction{}, nil, err
	}

	peer := models.Transaction{
		BudgetID:   t.BudgetID,
		AccountID:  target.ID,
		Date:       t.Date,
		Amount:     t.Amount.Neg(),
		Payee:      models.TransferPayeePrefix + source.Name,
		Memo:       t.Memo,
		Cleared:    t.Cleared,
		TransferID: &transferID,
	}
	err = tx.Create(&peer).Error
	if err != nil {
		return models.Transaction{}, nil, err
	}

	if isCreditCardPayment(t, target) {
		// The payment frees up the money set aside for the bill.
		err = addToAvailable(tx, t.BudgetID, *target.PaymentCategoryID, user.Month, t.Amount)
		if err != nil {
			log.Warn().Err(err).Str("transaction", t.ID.String()).Msg("payment category update failed")
		}
	} else if t.CategoryID != nil {
		// Money leaving the budget towards a TRACKING account is spend.
		// The categorized transaction lives on the source account.
		err = applyTransactionActivity(tx, source, t, t.Amount, user.Month)
		if err != nil {
			log.Warn().Err(err).Str("transaction", t.ID.String()).Msg("category activity update failed")
		}
	}

	err = AddTransactionToBalance(tx, source.ID, t.Amount, t.Cleared)
	if err != nil {
		return models.Transaction{}, nil, err
	}

	return t, &peer, AddTransactionToBalance(tx, target.ID, peer.Amount, peer.Cleared)
}

// isCreditCardPayment reports whether the outflow side of a transfer pays a
// credit-card bill: the target is a CREDIT account and the transaction is
// categorized to that account's payment category.
func isCreditCardPayment(t models.Transaction, target models.Account) bool {
	return target.Type == models.AccountTypeCredit &&
		t.CategoryID != nil &&
		target.PaymentCategoryID != nil &&
		*t.CategoryID == *target.PaymentCategoryID
}

// paymentTransferSide reports whether t is the cash side of a credit-card
// payment: part of a transfer, on a CASH account, categorized to a payment
// category.
func paymentTransferSide(tx *gorm.DB, account models.Account, t models.Transaction) (bool, error) {
	if !t.IsTransfer() || t.CategoryID == nil || account.Type != models.AccountTypeCash {
		return false, nil
	}

	var count int64
	err := tx.Model(&models.Account{}).Where("payment_category_id = ?", *t.CategoryID).Count(&count).Error
	return count > 0, err
}

// adjustPaymentCategory keeps the money set aside for a credit-card bill in
// step when the cash side of a payment transfer is edited: the old payment
// amount is given back to the payment category, the new one taken out again.
func adjustPaymentCategory(tx *gorm.DB, user UserContext, oldAccount, newAccount models.Account, old, updated models.Transaction) error {
	oldPayment, err := paymentTransferSide(tx, oldAccount, old)
	if err != nil {
		return err
	}
	if oldPayment {
		err = addToAvailable(tx, old.BudgetID, *old.CategoryID, user.Month, old.Amount.Neg())
		if err != nil {
			return err
		}
	}

	newPayment, err := paymentTransferSide(tx, newAccount, updated)
	if err != nil {
		return err
	}
	if newPayment {
		return addToAvailable(tx, updated.BudgetID, *updated.CategoryID, user.Month, updated.Amount)
	}

	return nil
}

// CreateCreditCardPayment is the explicit form of paying a credit-card bill:
// a transfer from a CASH account to the CREDIT account, categorized to the
// card's payment category.
func CreateCreditCardPayment(db *gorm.DB, user UserContext, fromAccountID, creditAccountID uuid.UUID, amount decimal.Decimal, date time.Time) (TransactionResult, error) {
	var probe models.Account
	err := db.Select("budget_id").First(&probe, "id = ?", creditAccountID).Error
	if err != nil {
		return TransactionResult{}, err
	}

	var result TransactionResult
	err = mutateBudget(db, probe.BudgetID, func(tx *gorm.DB) error {
		var credit models.Account
		err := tx.First(&credit, "id = ?", creditAccountID).Error
		if err != nil {
			return err
		}
		if credit.Type != models.AccountTypeCredit {
			return fmt.Errorf("%w: credit card payments can only target a CREDIT account", models.ErrValidation)
		}
		if credit.PaymentCategoryID == nil {
			return ErrNoPaymentCategory
		}

		t := models.Transaction{
			BudgetID:   credit.BudgetID,
			AccountID:  fromAccountID,
			Date:       date,
			Amount:     amount.Abs().Neg(),
			Payee:      models.TransferPayeePrefix + credit.Name,
			CategoryID: credit.PaymentCategoryID,
		}

		result, err = createTransaction(tx, user, t)
		return err
	})

	return result, err
}

// UpdateTransaction applies an edited transaction. The caller passes the
// full post-image; the pre-image is read fresh under the budget lock.
func UpdateTransaction(db *gorm.DB, user UserContext, updated models.Transaction) (TransactionResult, error) {
	var result TransactionResult
	err := mutateBudget(db, updated.BudgetID, func(tx *gorm.DB) error {
		var old models.Transaction
		err := tx.First(&old, "id = ?", updated.ID).Error
		if err != nil {
			return err
		}

		if old.Reconciled && !old.Amount.Equal(updated.Amount) {
			return ErrReconciledImmutable
		}
		err = checkNotFutureDated(user, updated.Date)
		if err != nil {
			return err
		}

		// Fields the edit path never changes.
		updated.BudgetID = old.BudgetID
		updated.TransferID = old.TransferID
		updated.Reconciled = old.Reconciled
		updated.Payee = strings.TrimSpace(updated.Payee)
		if old.IsTransfer() {
			updated.AccountID = old.AccountID
			updated.Payee = old.Payee
		}

		err = EnsureMonth(tx, old.BudgetID, user.Month)
		if err != nil {
			return err
		}

		var oldAccount, newAccount models.Account
		err = tx.First(&oldAccount, "id = ?", old.AccountID).Error
		if err != nil {
			return err
		}
		if updated.AccountID == old.AccountID {
			newAccount = oldAccount
		} else {
			err = tx.First(&newAccount, "id = ?", updated.AccountID).Error
			if err != nil {
				return err
			}
			updated.BudgetID = newAccount.BudgetID
		}

		err = UpdateSpend(tx, oldAccount, newAccount, old, updated, user.Month)
		if err != nil {
			log.Warn().Err(err).Str("transaction", old.ID.String()).Msg("credit card debt tracking failed")
		}

		err = adjustPaymentCategory(tx, user, oldAccount, newAccount, old, updated)
		if err != nil {
			log.Warn().Err(err).Str("transaction", old.ID.String()).Msg("payment category update failed")
		}

		err = applyTransactionActivity(tx, oldAccount, old, old.Amount.Neg(), user.Month)
		if err != nil {
			log.Warn().Err(err).Str("transaction", old.ID.String()).Msg("category activity reversal failed")
		}
		err = applyTransactionActivity(tx, newAccount, updated, updated.Amount, user.Month)
		if err != nil {
			log.Warn().Err(err).Str("transaction", updated.ID.String()).Msg("category activity update failed")
		}

		err = RemoveTransactionFromBalance(tx, old.AccountID, old.Amount, old.Cleared)
		if err != nil {
			return err
		}
		err = AddTransactionToBalance(tx, updated.AccountID, updated.Amount, updated.Cleared)
		if err != nil {
			return err
		}

		err = tx.Save(&updated).Error
		if err != nil {
			return err
		}

		var peer *models.Transaction
		if updated.IsTransfer() {
			peer, err = updateTransferPeer(tx, old, updated)
			if err != nil {
				return err
			}
		}

		rta, err := ReadyToAssign(tx, updated.BudgetID, user.Month)
		if err != nil {
			return err
		}

		result = TransactionResult{Transaction: updated, Peer: peer, ReadyToAssign: rta}
		return nil
	})

	return result, err
}

// updateTransferPeer mirrors an edit onto the other side of a transfer so
// the pair keeps summing to zero with equal dates and cleared flags.
func updateTransferPeer(tx *gorm.DB, old, updated models.Transaction) (*models.Transaction, error) {
	peer, err := old.TransferPeer(tx)
	if err != nil {
		return nil, err
	}

	err = RemoveTransactionFromBalance(tx, peer.AccountID, peer.Amount, peer.Cleared)
	if err != nil {
		return nil, err
	}

	peer.Date = updated.Date
	peer.Amount = updated.Amount.Neg()
	peer.Cleared = updated.Cleared
	peer.Memo = updated.Memo

	err = tx.Save(&peer).Error
	if err != nil {
		return nil, err
	}

	return &peer, AddTransactionToBalance(tx, peer.AccountID, peer.Amount, peer.Cleared)
}

// DeleteTransaction removes a transaction, its side effects and, for a
// transfer, the peer transaction.
func DeleteTransaction(db *gorm.DB, user UserContext, transactionID uuid.UUID) (decimal.Decimal, error) {
	budgetID, err := budgetOfTransaction(db, transactionID)
	if err != nil {
		return decimal.Zero, err
	}

	rta := decimal.Zero
	err = mutateBudget(db, budgetID, func(tx *gorm.DB) error {
		var t models.Transaction
		err := tx.First(&t, "id = ?", transactionID).Error
		if err != nil {
			return err
		}

		err = EnsureMonth(tx, t.BudgetID, user.Month)
		if err != nil {
			return err
		}

		err = deleteSingle(tx, user, t)
		if err != nil {
			return err
		}

		if t.IsTransfer() {
			peer, err := t.TransferPeer(tx)
			if err == nil {
				err = deleteSingle(tx, user, peer)
			}
			if err != nil {
				return err
			}
		}

		rta, err = ReadyToAssign(tx, t.BudgetID, user.Month)
		return err
	})

	return rta, err
}

// deleteSingle reverses all side effects of one transaction and deletes it.
func deleteSingle(tx *gorm.DB, user UserContext, t models.Transaction) error {
	var account models.Account
	err := tx.First(&account, "id = ?", t.AccountID).Error
	if err != nil {
		return err
	}

	err = reverseSideEffects(tx, user, t, account)
	if err != nil {
		return err
	}

	err = RemoveTransactionFromBalance(tx, t.AccountID, t.Amount, t.Cleared)
	if err != nil {
		return err
	}

	if t.Reconciled {
		// The reconciliation anchor absorbed this transaction, move the
		// anchor so the cleared balance stays consistent.
		account.AccountBalance = account.AccountBalance.Sub(t.Amount).RoundBank(2)
		err = tx.Model(&account).Select("AccountBalance").Updates(account).Error
		if err != nil {
			return err
		}
	}

	return tx.Delete(&t).Error
}

// reverseSideEffects undoes debt tracking and category activity for a
// transaction that is going away. Balance fields are handled by the caller.
func reverseSideEffects(tx *gorm.DB, user UserContext, t models.Transaction, account models.Account) error {
	payment, err := paymentTransferSide(tx, account, t)
	if err != nil {
		return err
	}
	if payment {
		// Deleting the cash side of a credit-card payment puts the
		// money back into the payment category.
		err = addToAvailable(tx, t.BudgetID, *t.CategoryID, user.Month, t.Amount.Neg())
		if err != nil {
			log.Warn().Err(err).Str("transaction", t.ID.String()).Msg("payment category restore failed")
		}
		return nil
	}

	_, err = ReverseSpend(tx, account, t, user.Month)
	if err != nil {
		log.Warn().Err(err).Str("transaction", t.ID.String()).Msg("credit card debt reversal failed")
	}

	err = applyTransactionActivity(tx, account, t, t.Amount.Neg(), user.Month)
	if err != nil {
		log.Warn().Err(err).Str("transaction", t.ID.String()).Msg("category activity reversal failed")
	}

	return nil
}

// DeleteTransactions deletes a batch of transactions. Transfer peers of the
// batch members are deleted as well. Balance updates are grouped so every
// account is written exactly once with the summed delta.
func DeleteTransactions(db *gorm.DB, user UserContext, ids []uuid.UUID) (decimal.Decimal, error) {
	rta := decimal.Zero
	if len(ids) == 0 {
		return rta, nil
	}

	budgetID, err := budgetOfTransaction(db, ids[0])
	if err != nil {
		return decimal.Zero, err
	}

	err = mutateBudget(db, budgetID, func(tx *gorm.DB) error {
		var transactions []models.Transaction
		err := tx.Where("id IN (?)", ids).Find(&transactions).Error
		if err != nil {
			return err
		}
		if len(transactions) == 0 {
			return fmt.Errorf("%w transaction matching your query", models.ErrNotFound)
		}

		err = EnsureMonth(tx, budgetID, user.Month)
		if err != nil {
			return err
		}

		// Pull in transfer peers that are not part of the batch.
		seen := make(map[uuid.UUID]bool, len(transactions))
		for _, t := range transactions {
			seen[t.ID] = true
		}
		for _, t := range transactions {
			if !t.IsTransfer() {
				continue
			}
			peer, err := t.TransferPeer(tx)
			if err != nil || seen[peer.ID] {
				continue
			}
			seen[peer.ID] = true
			transactions = append(transactions, peer)
		}

		type accountDelta struct {
			cleared    decimal.Decimal
			uncleared  decimal.Decimal
			reconciled decimal.Decimal
		}
		deltas := make(map[uuid.UUID]*accountDelta)
		accounts := make(map[uuid.UUID]models.Account)

		for _, t := range transactions {
			account, ok := accounts[t.AccountID]
			if !ok {
				err = tx.First(&account, "id = ?", t.AccountID).Error
				if err != nil {
					return err
				}
				accounts[t.AccountID] = account
			}

			err = reverseSideEffects(tx, user, t, account)
			if err != nil {
				return err
			}

			delta, ok := deltas[t.AccountID]
			if !ok {
				delta = &accountDelta{}
				deltas[t.AccountID] = delta
			}
			if t.Cleared {
				delta.cleared = delta.cleared.Add(t.Amount)
			} else {
				delta.uncleared = delta.uncleared.Add(t.Amount)
			}
			if t.Reconciled {
				delta.reconciled = delta.reconciled.Add(t.Amount)
			}

			err = tx.Delete(&t).Error
			if err != nil {
				return err
			}
		}

		for accountID, delta := range deltas {
			var account models.Account
			err = tx.First(&account, "id = ?", accountID).Error
			if err != nil {
				return err
			}

			account.AccountBalance = account.AccountBalance.Sub(delta.reconciled).RoundBank(2)
			account.ClearedBalance = account.ClearedBalance.Sub(delta.cleared).RoundBank(2)
			account.UnclearedBalance = account.UnclearedBalance.Sub(delta.uncleared).RoundBank(2)
			account.WorkingBalance = account.ClearedBalance.Add(account.UnclearedBalance).RoundBank(2)

			err = tx.Model(&account).
				Select("AccountBalance", "ClearedBalance", "UnclearedBalance", "WorkingBalance").
				Updates(account).Error
			if err != nil {
				return err
			}
		}

		rta, err = ReadyToAssign(tx, budgetID, user.Month)
		return err
	})

	return rta, err
}

// ToggleCleared flips the cleared flag of a transaction, moving its amount
// between the cleared and uncleared balance of its account. Transfer peers
// follow so the pair keeps equal flags. Category balances and
// Ready-to-Assign do not change.
func ToggleCleared(db *gorm.DB, user UserContext, transactionID uuid.UUID) (TransactionResult, error) {
	budgetID, err := budgetOfTransaction(db, transactionID)
	if err != nil {
		return TransactionResult{}, err
	}

	var result TransactionResult
	err = mutateBudget(db, budgetID, func(tx *gorm.DB) error {
		var t models.Transaction
		err := tx.First(&t, "id = ?", transactionID).Error
		if err != nil {
			return err
		}
		if t.Reconciled {
			return ErrReconciledImmutable
		}

		t.Cleared, err = toggleSingle(tx, t)
		if err != nil {
			return err
		}

		var peer *models.Transaction
		if t.IsTransfer() {
			p, err := t.TransferPeer(tx)
			if err != nil {
				return err
			}
			if p.Reconciled {
				return ErrReconciledImmutable
			}
			if p.Cleared != t.Cleared {
				p.Cleared, err = toggleSingle(tx, p)
				if err != nil {
					return err
				}
			}
			peer = &p
		}

		rta, err := ReadyToAssign(tx, t.BudgetID, user.Month)
		if err != nil {
			return err
		}

		result = TransactionResult{Transaction: t, Peer: peer, ReadyToAssign: rta}
		return nil
	})

	return result, err
}

func toggleSingle(tx *gorm.DB, t models.Transaction) (bool, error) {
	cleared := !t.Cleared

	err := AdjustForClearedToggle(tx, t.AccountID, t.Amount, t.Cleared, cleared)
	if err != nil {
		return t.Cleared, err
	}

	t.Cleared = cleared
	return cleared, tx.Model(&t).Select("Cleared").Updates(t).Error
}
