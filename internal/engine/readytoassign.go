package engine

import (
	"github.com/centsible/backend/internal/models"
	"github.com/centsible/backend/internal/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ReadyToAssign derives the unassigned money of a budget. It is never
// stored: every mutation that would change it changes its inputs instead.
//
// The calculation takes the working balance of all active CASH accounts and
// subtracts what is already parked in categories. Negative available sums do
// not give money back (the shortfall stays in the category until covered),
// while negative assigned sums do (un-assigning returns money).
func ReadyToAssign(db *gorm.DB, budgetID uuid.UUID, current types.Month) (decimal.Decimal, error) {
	type cashResult struct {
		Total decimal.Decimal
	}
	var cash cashResult
	err := db.Model(&models.Account{}).
		Select("COALESCE(SUM(working_balance), 0) AS total").
		Where("budget_id = ? AND type = ? AND archived = false", budgetID, models.AccountTypeCash).
		Scan(&cash).Error
	if err != nil {
		return decimal.Zero, err
	}

	rows, err := balanceRowsForMonth(db, budgetID, current)
	if err != nil {
		return decimal.Zero, err
	}

	total := cash.Total
	for _, row := range rows {
		if row.Available.IsPositive() {
			total = total.Sub(row.Available)
		}
		if row.Assigned.IsNegative() {
			total = total.Add(row.Assigned.Abs())
		}
	}

	return total.RoundBank(2), nil
}

// balanceRowsForMonth loads the budget's category balance rows for the given
// month. When the month has no rows yet, the latest month that has any is
// used instead, so that Ready-to-Assign stays meaningful before the first
// mutation of a new month triggers the rollover.
func balanceRowsForMonth(db *gorm.DB, budgetID uuid.UUID, month types.Month) ([]models.CategoryBalance, error) {
	var rows []models.CategoryBalance
	err := db.Where(&models.CategoryBalance{BudgetID: budgetID, Month: month}).Find(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) > 0 {
		return rows, nil
	}

	latest, found, err := models.LatestBalanceMonth(db, budgetID)
	if err != nil || !found {
		return nil, err
	}

	err = db.Where(&models.CategoryBalance{BudgetID: budgetID, Month: latest}).Find(&rows).Error
	return rows, err
}
