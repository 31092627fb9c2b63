package engine

import (
	"github.com/centsible/backend/internal/models"
	"github.com/centsible/backend/internal/types"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// AssignResult is the outcome of an assignment or money-move operation.
// TouchedPaymentCategories lists payment categories that gained coverage
// so clients can refresh them without a full reload.
type AssignResult struct {
	Balance                  *models.CategoryBalance `json:"categoryBalance,omitempty"`
	TouchedPaymentCategories []uuid.UUID             `json:"touchedPaymentCategories,omitempty"`

	ReadyToAssign decimal.Decimal `json:"readyToAssign"`
}

func budgetOfCategory(db *gorm.DB, categoryID uuid.UUID) (uuid.UUID, error) {
	var category models.Category
	err := db.Select("budget_id").First(&category, "id = ?", categoryID).Error
	return category.BudgetID, err
}

// AssignCategory sets the assigned amount of a category for the user's
// current month to an absolute value. An increase covers outstanding
// credit-card debt of the category.
func AssignCategory(db *gorm.DB, user UserContext, categoryID uuid.UUID, assigned decimal.Decimal) (AssignResult, error) {
	budgetID, err := budgetOfCategory(db, categoryID)
	if err != nil {
		return AssignResult{}, err
	}

	var result AssignResult
	err = mutateBudget(db, budgetID, func(tx *gorm.DB) error {
		err := EnsureMonth(tx, budgetID, user.Month)
		if err != nil {
			return err
		}

		before, _, err := categoryBalance(tx, categoryID, user.Month)
		if err != nil {
			return err
		}

		err = SetAssigned(tx, budgetID, categoryID, user.Month, assigned)
		if err != nil {
			return err
		}

		var touched []uuid.UUID
		delta := assigned.Sub(before.Assigned)
		if delta.IsPositive() {
			touched, err = CoverOnAssignment(tx, categoryID, delta, user.Month)
			if err != nil {
				log.Warn().Err(err).Str("category", categoryID.String()).Msg("credit card debt coverage failed")
			}
		}

		return finishAssign(tx, budgetID, categoryID, user.Month, touched, &result)
	})

	return result, err
}

// BatchAssign adds the given amounts to the assigned sums of multiple
// categories for the user's current month. Positive amounts cover
// outstanding credit-card debt of their category.
func BatchAssign(db *gorm.DB, user UserContext, budgetID uuid.UUID, assignments []Assignment) (AssignResult, error) {
	var result AssignResult
	err := mutateBudget(db, budgetID, func(tx *gorm.DB) error {
		err := EnsureMonth(tx, budgetID, user.Month)
		if err != nil {
			return err
		}

		err = AddAssigned(tx, budgetID, assignments, user.Month)
		if err != nil {
			return err
		}

		var touched []uuid.UUID
		for _, assignment := range assignments {
			if !assignment.Amount.IsPositive() {
				continue
			}
			covered, err := CoverOnAssignment(tx, assignment.CategoryID, assignment.Amount, user.Month)
			if err != nil {
				log.Warn().Err(err).Str("category", assignment.CategoryID.String()).Msg("credit card debt coverage failed")
				continue
			}
			touched = append(touched, covered...)
		}

		return finishAssign(tx, budgetID, uuid.Nil, user.Month, touched, &result)
	})

	return result, err
}

// MoveMoney moves available money from one category to another for the
// user's current month.
func MoveMoney(db *gorm.DB, user UserContext, sourceID, destinationID uuid.UUID, amount decimal.Decimal) (AssignResult, error) {
	budgetID, err := budgetOfCategory(db, sourceID)
	if err != nil {
		return AssignResult{}, err
	}

	var result AssignResult
	err = mutateBudget(db, budgetID, func(tx *gorm.DB) error {
		err := EnsureMonth(tx, budgetID, user.Month)
		if err != nil {
			return err
		}

		err = MoveBetweenCategories(tx, budgetID, sourceID, destinationID, amount, user.Month)
		if err != nil {
			return err
		}

		return finishAssign(tx, budgetID, destinationID, user.Month, nil, &result)
	})

	return result, err
}

// MoveMoneyToReadyToAssign takes assigned money out of a category, making
// it assignable again.
func MoveMoneyToReadyToAssign(db *gorm.DB, user UserContext, sourceID uuid.UUID, amount decimal.Decimal) (AssignResult, error) {
	budgetID, err := budgetOfCategory(db, sourceID)
	if err != nil {
		return AssignResult{}, err
	}

	var result AssignResult
	err = mutateBudget(db, budgetID, func(tx *gorm.DB) error {
		err := EnsureMonth(tx, budgetID, user.Month)
		if err != nil {
			return err
		}

		err = MoveToReadyToAssign(tx, budgetID, sourceID, amount, user.Month)
		if err != nil {
			return err
		}

		return finishAssign(tx, budgetID, sourceID, user.Month, nil, &result)
	})

	return result, err
}

// PullMoneyFromReadyToAssign assigns money from Ready-to-Assign to a
// category. This is an assignment, so it covers outstanding credit-card
// debt of the category.
func PullMoneyFromReadyToAssign(db *gorm.DB, user UserContext, destinationID uuid.UUID, amount decimal.Decimal) (AssignResult, error) {
	budgetID, err := budgetOfCategory(db, destinationID)
	if err != nil {
		return AssignResult{}, err
	}

	var result AssignResult
	err = mutateBudget(db, budgetID, func(tx *gorm.DB) error {
		err := EnsureMonth(tx, budgetID, user.Month)
		if err != nil {
			return err
		}

		err = PullFromReadyToAssign(tx, budgetID, destinationID, amount, user.Month)
		if err != nil {
			return err
		}

		touched, err := CoverOnAssignment(tx, destinationID, amount, user.Month)
		if err != nil {
			log.Warn().Err(err).Str("category", destinationID.String()).Msg("credit card debt coverage failed")
		}

		return finishAssign(tx, budgetID, destinationID, user.Month, touched, &result)
	})

	return result, err
}

// finishAssign loads the post-image of the primary category balance and the
// recomputed Ready-to-Assign into the result.
func finishAssign(tx *gorm.DB, budgetID, categoryID uuid.UUID, month types.Month, touched []uuid.UUID, result *AssignResult) error {
	if categoryID != uuid.Nil {
		row, found, err := categoryBalance(tx, categoryID, month)
		if err != nil {
			return err
		}
		if found {
			result.Balance = &row
		}
	}

	rta, err := ReadyToAssign(tx, budgetID, month)
	if err != nil {
		return err
	}

	result.TouchedPaymentCategories = touched
	result.ReadyToAssign = rta
	return nil
}

// EnsureCurrentMonth materializes the user's current month for a budget
// under the budget lock. Reads that aggregate current-month state call this
// first, making the rollover a side effect of the first read in a month.
func EnsureCurrentMonth(db *gorm.DB, user UserContext, budgetID uuid.UUID) error {
	return mutateBudget(db, budgetID, func(tx *gorm.DB) error {
		return EnsureMonth(tx, budgetID, user.Month)
	})
}
