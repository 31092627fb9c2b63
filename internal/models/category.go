package models

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// The two system groups every budget has. They are identified by the
// IsSystemGroup flag, the names are only their display representation.
const (
	GroupNameHidden             = "Hidden Categories"
	GroupNameCreditCardPayments = "Credit Card Payments"
)

// CategoryGroup organizes categories for display.
//
// System groups cannot be moved or deleted and reject manual category creation.
type CategoryGroup struct {
	DefaultModel
	Budget        Budget    `json:"-"`
	BudgetID      uuid.UUID `json:"budgetId" gorm:"uniqueIndex:category_group_name_budget_id"`
	Name          string    `json:"name" gorm:"uniqueIndex:category_group_name_budget_id"`
	IsSystemGroup bool      `json:"isSystemGroup"`
	DisplayOrder  uint      `json:"displayOrder"`
}

// Category is an envelope money is assigned to.
//
// PreviousGroupID remembers where a category lived before it was hidden so
// unhiding can put it back.
type Category struct {
	DefaultModel
	Budget          Budget        `json:"-"`
	BudgetID        uuid.UUID     `json:"budgetId"`
	CategoryGroup   CategoryGroup `json:"-"`
	CategoryGroupID uuid.UUID     `json:"categoryGroupId" gorm:"uniqueIndex:category_name_group_id"`
	Name            string        `json:"name" gorm:"uniqueIndex:category_name_group_id"`
	DisplayOrder    uint          `json:"displayOrder"`
	PreviousGroupID *uuid.UUID    `json:"-"`
}

var (
	ErrSystemGroupImmutable      = fmt.Errorf("%w: system category groups cannot be changed or deleted", ErrValidation)
	ErrSystemGroupManualCategory = fmt.Errorf("%w: categories cannot be created manually in a system group", ErrValidation)
	ErrGroupNotEmpty             = fmt.Errorf("%w: the category group still contains categories", ErrConflict)
	ErrCategoryNotHidden         = fmt.Errorf("%w: the category is not hidden", ErrValidation)
	ErrPreviousGroupGone         = fmt.Errorf("%w: the group the category came from no longer exists", ErrValidation)
)

// BeforeSave trims whitespace from all strings.
func (g *CategoryGroup) BeforeSave(_ *gorm.DB) error {
	g.Name = strings.TrimSpace(g.Name)
	return nil
}

// BeforeCreate verifies references to other resources.
func (g *CategoryGroup) BeforeCreate(tx *gorm.DB) error {
	err := g.DefaultModel.BeforeCreate(tx)
	if err != nil {
		return err
	}

	return tx.First(&Budget{}, "id = ?", g.BudgetID).Error
}

// BeforeSave trims whitespace from all strings.
func (c *Category) BeforeSave(_ *gorm.DB) error {
	c.Name = strings.TrimSpace(c.Name)
	return nil
}

// BeforeCreate verifies references to other resources.
func (c *Category) BeforeCreate(tx *gorm.DB) error {
	err := c.DefaultModel.BeforeCreate(tx)
	if err != nil {
		return err
	}

	return tx.First(&CategoryGroup{}, "id = ?", c.CategoryGroupID).Error
}

// SystemGroup returns the system group with the given name for a budget.
func SystemGroup(db *gorm.DB, budgetID uuid.UUID, name string) (CategoryGroup, error) {
	var group CategoryGroup
	err := db.First(&group, &CategoryGroup{BudgetID: budgetID, Name: name, IsSystemGroup: true}).Error
	return group, err
}

// IsPaymentCategory reports whether the category is the payment category
// of a CREDIT account. Recognition is by the foreign key on the account,
// not by the category name.
func (c Category) IsPaymentCategory(db *gorm.DB) (bool, error) {
	var count int64
	err := db.Model(&Account{}).Where("payment_category_id = ?", c.ID).Count(&count).Error
	return count > 0, err
}
