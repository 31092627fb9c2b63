package v1

import (
	"fmt"
	"time"

	"github.com/centsible/backend/internal/engine"
	"github.com/centsible/backend/internal/models"
	"github.com/centsible/backend/internal/types"
	ez_uuid "github.com/centsible/backend/internal/uuid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// URIID binds the :id URI parameter.
type URIID struct {
	ID ez_uuid.UUID `uri:"id" binding:"required"`
}

// ContextUserID is the gin context key the identity middleware sets.
const ContextUserID = "userID"

// CategoryReadyToAssign is the sentinel clients send as a category ID to
// mean "no category, feed Ready-to-Assign".
const CategoryReadyToAssign = "ready-to-assign"

// userDateQuery carries the client's notion of "today". All three fields
// are optional; the server clock fills the gaps.
type userDateQuery struct {
	UserDate  string `form:"userDate"`
	UserYear  int    `form:"userYear"`
	UserMonth int    `form:"userMonth"`
}

func userID(c *gin.Context) (uuid.UUID, error) {
	raw, ok := c.Get(ContextUserID)
	if !ok {
		return uuid.Nil, errMissingUserID
	}

	id, ok := raw.(uuid.UUID)
	if !ok || id == uuid.Nil {
		return uuid.Nil, errMissingUserID
	}

	return id, nil
}

// userContext builds the engine's user context from the identity middleware
// and the optional user date query parameters.
func userContext(c *gin.Context) (engine.UserContext, error) {
	id, err := userID(c)
	if err != nil {
		return engine.UserContext{}, err
	}

	var query userDateQuery
	_ = c.ShouldBindQuery(&query)

	var date *time.Time
	if query.UserDate != "" {
		parsed, err := time.Parse("2006-01-02", query.UserDate)
		if err != nil {
			return engine.UserContext{}, fmt.Errorf("%w: userDate must be formatted as YYYY-MM-DD", models.ErrValidation)
		}
		date = &parsed
	}

	var month *types.Month
	if query.UserYear != 0 || query.UserMonth != 0 {
		if query.UserMonth < 1 || query.UserMonth > 12 || query.UserYear < 1 {
			return engine.UserContext{}, fmt.Errorf("%w: userYear and userMonth must form a valid calendar month", models.ErrValidation)
		}
		m := types.FromParts(query.UserYear, query.UserMonth)
		month = &m
	}

	return engine.NewUserContext(id, date, month), nil
}

// getBudget loads a budget and verifies the requester owns it.
func getBudget(c *gin.Context, id uuid.UUID) (models.Budget, error) {
	owner, err := userID(c)
	if err != nil {
		return models.Budget{}, err
	}

	var budget models.Budget
	err = models.DB.First(&budget, "id = ?", id).Error
	if err != nil {
		return models.Budget{}, err
	}

	if budget.OwnerID != owner {
		return models.Budget{}, errNotBudgetOwner
	}

	return budget, nil
}

// checkBudgetAccess verifies the requester owns the budget with the given ID.
func checkBudgetAccess(c *gin.Context, budgetID uuid.UUID) error {
	_, err := getBudget(c, budgetID)
	return err
}

// parseCategoryID turns the client representation of a category reference
// into the stored one: absent, empty and the Ready-to-Assign sentinel all
// mean "no category".
func parseCategoryID(raw *string) (*uuid.UUID, error) {
	if raw == nil || *raw == "" || *raw == CategoryReadyToAssign {
		return nil, nil
	}

	id, err := uuid.Parse(*raw)
	if err != nil {
		return nil, fmt.Errorf("%w: categoryId must be a valid UUID or %q", models.ErrValidation, CategoryReadyToAssign)
	}

	return &id, nil
}
