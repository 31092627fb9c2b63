package v1

import (
	"net/http"

	"github.com/centsible/backend/internal/engine"
	"github.com/centsible/backend/internal/httputil"
	"github.com/centsible/backend/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// RegisterBudgetRoutes registers the routes for Budgets with
// the RouterGroup that is passed.
func RegisterBudgetRoutes(r *gin.RouterGroup) {
	// Root group
	{
		r.OPTIONS("", OptionsBudgetList)
		r.GET("", GetBudgets)
		r.POST("", CreateBudget)
	}

	// Budget with ID
	{
		r.OPTIONS("/:id", OptionsBudgetDetail)
		r.GET("/:id", GetBudget)
		r.PATCH("/:id", UpdateBudget)
		r.DELETE("/:id", DeleteBudget)

		r.GET("/:id/ready-to-assign", GetReadyToAssign)
		r.GET("/:id/audit", GetAudit)
		r.GET("/:id/main-data", GetMainData)
		r.POST("/:id/batch-assign", BatchAssign)
	}
}

// BudgetEditable represents all user configurable parameters of a budget
type BudgetEditable struct {
	Name     string `json:"name" example:"Household"`
	Currency string `json:"currency" example:"€"`
	Note     string `json:"note" example:"The shared household budget"`
}

type BudgetResponse struct {
	Data models.Budget `json:"data"`
}

type BudgetListResponse struct {
	Data []models.Budget `json:"data"`
}

type ReadyToAssignResponse struct {
	Data decimal.Decimal `json:"data" example:"740.12"`
}

type AuditResponse struct {
	Data []engine.Violation `json:"data"`
}

// @Summary		Allowed HTTP verbs
// @Tags			Budgets
// @Success		204
// @Router			/v1/budgets [options]
func OptionsBudgetList(c *gin.Context) {
	httputil.OptionsGetPost(c)
}

// @Summary		Allowed HTTP verbs
// @Tags			Budgets
// @Success		204
// @Param			id	path	string	true	"ID of the budget"
// @Router			/v1/budgets/{id} [options]
func OptionsBudgetDetail(c *gin.Context) {
	httputil.OptionsGetPatchDelete(c)
}

// @Summary		Create budget
// @Description	Creates a new budget with its system category groups
// @Tags			Budgets
// @Accept			json
// @Produce		json
// @Success		201	{object}	BudgetResponse
// @Failure		400	{object}	httpError
// @Param			budget	body	BudgetEditable	true	"Budget"
// @Router			/v1/budgets [post]
func CreateBudget(c *gin.Context) {
	owner, err := userID(c)
	if err != nil {
		abortError(c, err)
		return
	}

	var editable BudgetEditable
	err = httputil.BindData(c, &editable)
	if err != nil {
		abortError(c, err)
		return
	}

	budget := models.Budget{
		OwnerID:  owner,
		Name:     editable.Name,
		Currency: editable.Currency,
		Note:     editable.Note,
	}

	err = models.DB.Transaction(func(tx *gorm.DB) error {
		err := tx.Create(&budget).Error
		if err != nil {
			return err
		}

		// Every budget carries the two system groups.
		for i, name := range []string{models.GroupNameCreditCardPayments, models.GroupNameHidden} {
			group := models.CategoryGroup{
				BudgetID:      budget.ID,
				Name:          name,
				IsSystemGroup: true,
				DisplayOrder:  uint(9000 + i),
			}
			err = tx.Create(&group).Error
			if err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		abortError(c, err)
		return
	}

	c.JSON(http.StatusCreated, BudgetResponse{Data: budget})
}

// @Summary		List budgets
// @Description	Returns the budgets of the requesting user
// @Tags			Budgets
// @Produce		json
// @Success		200	{object}	BudgetListResponse
// @Router			/v1/budgets [get]
func GetBudgets(c *gin.Context) {
	owner, err := userID(c)
	if err != nil {
		abortError(c, err)
		return
	}

	var budgets []models.Budget
	err = models.DB.
		Where(&models.Budget{OwnerID: owner}).
		Order("name ASC").
		Find(&budgets).Error
	if err != nil {
		abortError(c, err)
		return
	}

	c.JSON(http.StatusOK, BudgetListResponse{Data: budgets})
}

// @Summary		Get budget
// @Tags			Budgets
// @Produce		json
// @Success		200	{object}	BudgetResponse
// @Failure		404	{object}	httpError
// @Param			id	path	string	true	"ID of the budget"
// @Router			/v1/budgets/{id} [get]
func GetBudget(c *gin.Context) {
	var uri URIID
	err := c.ShouldBindUri(&uri)
	if err != nil {
		abortError(c, httputil.ErrInvalidBody)
		return
	}

	budget, err := getBudget(c, uri.ID.UUID)
	if err != nil {
		abortError(c, err)
		return
	}

	c.JSON(http.StatusOK, BudgetResponse{Data: budget})
}

// @Summary		Update budget
// @Tags			Budgets
// @Accept			json
// @Produce		json
// @Success		200	{object}	BudgetResponse
// @Failure		404	{object}	httpError
// @Param			id		path	string			true	"ID of the budget"
// @Param			budget	body	BudgetEditable	true	"Budget"
// @Router			/v1/budgets/{id} [patch]
func UpdateBudget(c *gin.Context) {
	var uri URIID
	err := c.ShouldBindUri(&uri)
	if err != nil {
		abortError(c, httputil.ErrInvalidBody)
		return
	}

	budget, err := getBudget(c, uri.ID.UUID)
	if err != nil {
		abortError(c, err)
		return
	}

	editable := BudgetEditable{
		Name:     budget.Name,
		Currency: budget.Currency,
		Note:     budget.Note,
	}
	err = httputil.BindData(c, &editable)
	if err != nil {
		abortError(c, err)
		return
	}

	budget.Name = editable.Name
	budget.Currency = editable.Currency
	budget.Note = editable.Note

	err = models.DB.Save(&budget).Error
	if err != nil {
		abortError(c, err)
		return
	}

	c.JSON(http.StatusOK, BudgetResponse{Data: budget})
}

// @Summary		Delete budget
// @Description	Deletes the budget and everything it owns
// @Tags			Budgets
// @Success		204
// @Failure		404	{object}	httpError
// @Param			id	path	string	true	"ID of the budget"
// @Router			/v1/budgets/{id} [delete]
func DeleteBudget(c *gin.Context) {
	var uri URIID
	err := c.ShouldBindUri(&uri)
	if err != nil {
		abortError(c, httputil.ErrInvalidBody)
		return
	}

	budget, err := getBudget(c, uri.ID.UUID)
	if err != nil {
		abortError(c, err)
		return
	}

	err = models.DB.Transaction(func(tx *gorm.DB) error {
		for _, model := range []any{
			&models.CreditCardDebt{},
			&models.Transaction{},
			&models.CategoryBalance{},
			&models.Category{},
			&models.CategoryGroup{},
			&models.Account{},
		} {
			err := tx.Where("budget_id = ?", budget.ID).Delete(model).Error
			if err != nil {
				return err
			}
		}

		return tx.Delete(&budget).Error
	})
	if err != nil {
		abortError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// @Summary		Ready-to-Assign
// @Description	Returns the unassigned money of the budget for the user's current month
// @Tags			Budgets
// @Produce		json
// @Success		200	{object}	ReadyToAssignResponse
// @Failure		404	{object}	httpError
// @Param			id	path	string	true	"ID of the budget"
// @Router			/v1/budgets/{id}/ready-to-assign [get]
func GetReadyToAssign(c *gin.Context) {
	var uri URIID
	err := c.ShouldBindUri(&uri)
	if err != nil {
		abortError(c, httputil.ErrInvalidBody)
		return
	}

	budget, err := getBudget(c, uri.ID.UUID)
	if err != nil {
		abortError(c, err)
		return
	}

	user, err := userContext(c)
	if err != nil {
		abortError(c, err)
		return
	}

	rta, err := engine.ReadyToAssign(models.DB, budget.ID, user.Month)
	if err != nil {
		abortError(c, err)
		return
	}

	c.JSON(http.StatusOK, ReadyToAssignResponse{Data: rta})
}

// @Summary		Audit budget consistency
// @Description	Recomputes all balances from scratch and reports differences
// @Tags			Budgets
// @Produce		json
// @Success		200	{object}	AuditResponse
// @Failure		404	{object}	httpError
// @Param			id	path	string	true	"ID of the budget"
// @Router			/v1/budgets/{id}/audit [get]
func GetAudit(c *gin.Context) {
	var uri URIID
	err := c.ShouldBindUri(&uri)
	if err != nil {
		abortError(c, httputil.ErrInvalidBody)
		return
	}

	budget, err := getBudget(c, uri.ID.UUID)
	if err != nil {
		abortError(c, err)
		return
	}

	violations, err := engine.Audit(models.DB, budget.ID)
	if err != nil {
		abortError(c, err)
		return
	}

	c.JSON(http.StatusOK, AuditResponse{Data: violations})
}
