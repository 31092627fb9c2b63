package models

import (
	"errors"

	"github.com/centsible/backend/internal/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CategoryBalance holds the envelope state of one category for one month.
//
// A row may be missing for a month; absence is semantically all-zero except
// for Available, which carries over from the previous month on rollover.
// Rows are only ever mutated through the engine package.
type CategoryBalance struct {
	DefaultModel
	Budget     Budget          `json:"-"`
	BudgetID   uuid.UUID       `json:"budgetId"`
	Category   Category        `json:"-"`
	CategoryID uuid.UUID       `json:"categoryId" gorm:"uniqueIndex:category_balance_month"`
	Month      types.Month     `json:"month" gorm:"uniqueIndex:category_balance_month"`
	Assigned   decimal.Decimal `json:"assigned" gorm:"type:DECIMAL(20,2)"`
	Activity   decimal.Decimal `json:"activity" gorm:"type:DECIMAL(20,2)"`
	Available  decimal.Decimal `json:"available" gorm:"type:DECIMAL(20,2)"`
}

// BeforeCreate verifies references to other resources.
func (b *CategoryBalance) BeforeCreate(tx *gorm.DB) error {
	err := b.DefaultModel.BeforeCreate(tx)
	if err != nil {
		return err
	}

	return tx.First(&Category{}, "id = ?", b.CategoryID).Error
}

// LatestBalanceMonth returns the most recent month that has any CategoryBalance
// rows for the budget. The second return value is false when there are none.
func LatestBalanceMonth(db *gorm.DB, budgetID uuid.UUID) (types.Month, bool, error) {
	var balance CategoryBalance
	err := db.
		Where(&CategoryBalance{BudgetID: budgetID}).
		Order("date(month) DESC").
		First(&balance).Error
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return types.Month{}, false, nil
		}
		return types.Month{}, false, err
	}

	return balance.Month, true, nil
}
