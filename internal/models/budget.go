package models

import (
	"strings"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"gorm.io/gorm"
)

// Budget is the highest level of organization. All other resources
// reference it directly or transitively and are owned by it.
type Budget struct {
	DefaultModel
	OwnerID        uuid.UUID `json:"ownerId" gorm:"uniqueIndex:budget_owner_name"`
	Name           string    `json:"name"`
	NormalizedName string    `json:"-" gorm:"uniqueIndex:budget_owner_name"`
	Currency       string    `json:"currency" example:"€"`
	Note           string    `json:"note"`
}

// NormalizeName returns the case-folded form of a resource name.
// It is what uniqueness is checked against so that "Cash" and "cash"
// cannot coexist within the same scope.
func NormalizeName(name string) string {
	return cases.Fold().String(strings.TrimSpace(name))
}

// BeforeSave trims whitespace and keeps the normalized name in sync.
func (b *Budget) BeforeSave(_ *gorm.DB) error {
	b.Name = strings.TrimSpace(b.Name)
	b.NormalizedName = NormalizeName(b.Name)
	b.Note = strings.TrimSpace(b.Note)

	return nil
}
