package engine

import (
	"errors"
	"fmt"

	"github.com/centsible/backend/internal/models"
	"github.com/centsible/backend/internal/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrInsufficientAvailable = fmt.Errorf("%w: the category does not have enough available money", models.ErrValidation)
	ErrMoveAmountNotPositive = fmt.Errorf("%w: the amount to move must be positive", models.ErrValidation)
)

// Assignment is one additive assignment for a category, used by batch assign.
type Assignment struct {
	CategoryID uuid.UUID       `json:"categoryId"`
	Amount     decimal.Decimal `json:"amount"`
}

// categoryBalance reads the pre-image row for a category and month.
// The bool reports whether the row exists.
func categoryBalance(db *gorm.DB, categoryID uuid.UUID, month types.Month) (models.CategoryBalance, bool, error) {
	var row models.CategoryBalance
	err := db.First(&row, &models.CategoryBalance{CategoryID: categoryID, Month: month}).Error
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.CategoryBalance{}, false, nil
		}
		return models.CategoryBalance{}, false, err
	}

	return row, true, nil
}

// ApplyActivity adds a transaction amount to the activity of a category for
// the month the transaction falls in. The available sum only follows when
// that month is the user's current month: past months keep their history,
// their carried-over surplus already lives in the present.
func ApplyActivity(db *gorm.DB, budgetID, categoryID uuid.UUID, month types.Month, delta decimal.Decimal, currentMonth types.Month) error {
	delta = delta.RoundBank(2)

	row, found, err := categoryBalance(db, categoryID, month)
	if err != nil {
		return err
	}

	if !found {
		row = models.CategoryBalance{
			BudgetID:   budgetID,
			CategoryID: categoryID,
			Month:      month,
		}
	}

	row.Activity = row.Activity.Add(delta).RoundBank(2)
	if month.Equal(currentMonth) {
		row.Available = row.Available.Add(delta).RoundBank(2)
	}

	if !found {
		return db.Create(&row).Error
	}
	return db.Save(&row).Error
}

// SetAssigned sets the assigned amount for a category and month to an
// absolute value. Available moves by the difference to the previous value.
func SetAssigned(db *gorm.DB, budgetID, categoryID uuid.UUID, month types.Month, assigned decimal.Decimal) error {
	assigned = assigned.RoundBank(2)

	row, found, err := categoryBalance(db, categoryID, month)
	if err != nil {
		return err
	}

	if !found {
		row = models.CategoryBalance{
			BudgetID:   budgetID,
			CategoryID: categoryID,
			Month:      month,
		}
	}

	diff := assigned.Sub(row.Assigned)
	row.Assigned = assigned
	row.Available = row.Available.Add(diff).RoundBank(2)

	if !found {
		return db.Create(&row).Error
	}
	return db.Save(&row).Error
}

// AddAssigned adds the given amounts to the assigned and available sums of
// multiple categories at once. This is the additive form used by auto-assign.
//
// The batch is written with a single upsert. If that fails, every row is
// upserted sequentially with the same semantics so that a single bad row
// does not void the whole batch.
func AddAssigned(db *gorm.DB, budgetID uuid.UUID, assignments []Assignment, month types.Month) error {
	if len(assignments) == 0 {
		return nil
	}

	rows := make([]models.CategoryBalance, 0, len(assignments))
	for _, assignment := range assignments {
		amount := assignment.Amount.RoundBank(2)
		rows = append(rows, models.CategoryBalance{
			BudgetID:   budgetID,
			CategoryID: assignment.CategoryID,
			Month:      month,
			Assigned:   amount,
			Available:  amount,
		})
	}

	err := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "category_id"}, {Name: "month"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"assigned":  gorm.Expr("category_balances.assigned + excluded.assigned"),
			"available": gorm.Expr("category_balances.available + excluded.available"),
		}),
	}).Create(&rows).Error
	if err == nil {
		return nil
	}

	for _, assignment := range assignments {
		row, found, err := categoryBalance(db, assignment.CategoryID, month)
		if err != nil {
			return err
		}

		amount := assignment.Amount.RoundBank(2)
		if !found {
			row = models.CategoryBalance{
				BudgetID:   budgetID,
				CategoryID: assignment.CategoryID,
				Month:      month,
			}
		}

		row.Assigned = row.Assigned.Add(amount).RoundBank(2)
		row.Available = row.Available.Add(amount).RoundBank(2)

		if !found {
			err = db.Create(&row).Error
		} else {
			err = db.Save(&row).Error
		}
		if err != nil {
			return err
		}
	}

	return nil
}

// addToAvailable adds a delta to the available sum of a category for a month,
// creating the row when it is missing. Assigned and activity are untouched,
// which is exactly what the credit-card coverage protocol needs.
func addToAvailable(db *gorm.DB, budgetID, categoryID uuid.UUID, month types.Month, delta decimal.Decimal) error {
	row, found, err := categoryBalance(db, categoryID, month)
	if err != nil {
		return err
	}

	if !found {
		row = models.CategoryBalance{
			BudgetID:   budgetID,
			CategoryID: categoryID,
			Month:      month,
		}
	}

	row.Available = row.Available.Add(delta).RoundBank(2)

	if !found {
		return db.Create(&row).Error
	}
	return db.Save(&row).Error
}

// MoveBetweenCategories moves available money from one category to another.
// The source must have at least the moved amount available. If the write to
// the destination fails, the source mutation is rolled back before the error
// is surfaced.
func MoveBetweenCategories(db *gorm.DB, budgetID, sourceID, destinationID uuid.UUID, amount decimal.Decimal, month types.Month) error {
	amount = amount.RoundBank(2)
	if !amount.IsPositive() {
		return ErrMoveAmountNotPositive
	}

	source, found, err := categoryBalance(db, sourceID, month)
	if err != nil {
		return err
	}
	if !found || source.Available.LessThan(amount) {
		return ErrInsufficientAvailable
	}

	source.Available = source.Available.Sub(amount).RoundBank(2)
	err = db.Save(&source).Error
	if err != nil {
		return err
	}

	err = addToAvailable(db, budgetID, destinationID, month, amount)
	if err != nil {
		// Compensate the source so a failed destination write does not
		// make money disappear.
		source.Available = source.Available.Add(amount).RoundBank(2)
		if compErr := db.Save(&source).Error; compErr != nil {
			return fmt.Errorf("%w: restoring the source category after a failed move failed: %v", models.ErrInvariant, compErr)
		}
		return err
	}

	return nil
}

// MoveToReadyToAssign takes assigned money out of a category, returning it
// to Ready-to-Assign. Since Ready-to-Assign is always derived, only the
// category row changes.
func MoveToReadyToAssign(db *gorm.DB, budgetID, sourceID uuid.UUID, amount decimal.Decimal, month types.Month) error {
	amount = amount.RoundBank(2)
	if !amount.IsPositive() {
		return ErrMoveAmountNotPositive
	}

	source, found, err := categoryBalance(db, sourceID, month)
	if err != nil {
		return err
	}
	if !found || source.Available.LessThan(amount) {
		return ErrInsufficientAvailable
	}

	source.Assigned = source.Assigned.Sub(amount).RoundBank(2)
	source.Available = source.Available.Sub(amount).RoundBank(2)

	return db.Save(&source).Error
}

// PullFromReadyToAssign assigns money from Ready-to-Assign to a category.
// Ready-to-Assign is allowed to go negative, so there is no guard.
func PullFromReadyToAssign(db *gorm.DB, budgetID, destinationID uuid.UUID, amount decimal.Decimal, month types.Month) error {
	amount = amount.RoundBank(2)
	if !amount.IsPositive() {
		return ErrMoveAmountNotPositive
	}

	row, found, err := categoryBalance(db, destinationID, month)
	if err != nil {
		return err
	}

	if !found {
		row = models.CategoryBalance{
			BudgetID:   budgetID,
			CategoryID: destinationID,
			Month:      month,
		}
	}

	row.Assigned = row.Assigned.Add(amount).RoundBank(2)
	row.Available = row.Available.Add(amount).RoundBank(2)

	if !found {
		return db.Create(&row).Error
	}
	return db.Save(&row).Error
}

// Rollover materializes the category balance rows for a new month. Every
// category of the budget gets a row with assigned and activity reset to zero
// and available carried over from the source month.
//
// The rollover is idempotent: it does nothing when the target month already
// has rows.
func Rollover(db *gorm.DB, budgetID uuid.UUID, from, to types.Month) error {
	var count int64
	err := db.Model(&models.CategoryBalance{}).
		Where(&models.CategoryBalance{BudgetID: budgetID, Month: to}).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	var categories []models.Category
	err = db.Where(&models.Category{BudgetID: budgetID}).Find(&categories).Error
	if err != nil {
		return err
	}
	if len(categories) == 0 {
		return nil
	}

	var previous []models.CategoryBalance
	err = db.Where(&models.CategoryBalance{BudgetID: budgetID, Month: from}).Find(&previous).Error
	if err != nil {
		return err
	}

	carried := make(map[uuid.UUID]decimal.Decimal, len(previous))
	for _, row := range previous {
		carried[row.CategoryID] = row.Available
	}

	rows := make([]models.CategoryBalance, 0, len(categories))
	for _, category := range categories {
		rows = append(rows, models.CategoryBalance{
			BudgetID:   budgetID,
			CategoryID: category.ID,
			Month:      to,
			Available:  carried[category.ID].RoundBank(2),
		})
	}

	return db.Create(&rows).Error
}

// EnsureMonth materializes the current month's rows from the most recent
// month that has any, if the current month has none yet. It is called on
// the first read in a new month.
func EnsureMonth(db *gorm.DB, budgetID uuid.UUID, current types.Month) error {
	var count int64
	err := db.Model(&models.CategoryBalance{}).
		Where(&models.CategoryBalance{BudgetID: budgetID, Month: current}).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	latest, found, err := models.LatestBalanceMonth(db, budgetID)
	if err != nil {
		return err
	}
	if !found || !latest.Before(current) {
		return nil
	}

	return Rollover(db, budgetID, latest, current)
}
