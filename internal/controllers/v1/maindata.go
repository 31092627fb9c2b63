package v1

import (
	"net/http"

	"github.com/centsible/backend/internal/engine"
	"github.com/centsible/backend/internal/httputil"
	"github.com/centsible/backend/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// recentTransactionLimit bounds the transactions embedded in the main data
// response. Clients page through the rest via the transaction list.
const recentTransactionLimit = 50

// MainData is everything a client needs to render the budget screen for the
// user's current month.
type MainData struct {
	Budget           models.Budget            `json:"budget"`
	Accounts         []models.Account         `json:"accounts"`
	CategoryGroups   []models.CategoryGroup   `json:"categoryGroups"`
	Categories       []models.Category        `json:"categories"`
	CategoryBalances []models.CategoryBalance `json:"categoryBalances"`
	Transactions     []models.Transaction     `json:"transactions"`
	ReadyToAssign    decimal.Decimal          `json:"readyToAssign"`
}

type MainDataResponse struct {
	Data MainData `json:"data"`
}

// @Summary		Main data
// @Description	Returns the full state of the budget for the user's current month in one request. The first call in a new month rolls the category balances over.
// @Tags			Budgets
// @Produce		json
// @Success		200	{object}	MainDataResponse
// @Failure		404	{object}	httpError
// @Param			id	path	string	true	"ID of the budget"
// @Router			/v1/budgets/{id}/main-data [get]
func GetMainData(c *gin.Context) {
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

	// Reading main data in a new month materializes that month first.
	err = engine.EnsureCurrentMonth(models.DB, user, budget.ID)
	if err != nil {
		abortError(c, err)
		return
	}

	data := MainData{Budget: budget}

	err = models.DB.
		Where(&models.Account{BudgetID: budget.ID}).
		Order("display_order ASC, name ASC").
		Find(&data.Accounts).Error
	if err != nil {
		abortError(c, err)
		return
	}

	err = models.DB.
		Where(&models.CategoryGroup{BudgetID: budget.ID}).
		Order("display_order ASC, name ASC").
		Find(&data.CategoryGroups).Error
	if err != nil {
		abortError(c, err)
		return
	}

	err = models.DB.
		Where(&models.Category{BudgetID: budget.ID}).
		Order("display_order ASC, name ASC").
		Find(&data.Categories).Error
	if err != nil {
		abortError(c, err)
		return
	}

	err = models.DB.
		Where(&models.CategoryBalance{BudgetID: budget.ID, Month: user.Month}).
		Find(&data.CategoryBalances).Error
	if err != nil {
		abortError(c, err)
		return
	}

	err = models.DB.
		Where("budget_id = ?", budget.ID).
		Order("date DESC, created_at DESC").
		Limit(recentTransactionLimit).
		Find(&data.Transactions).Error
	if err != nil {
		abortError(c, err)
		return
	}

	data.ReadyToAssign, err = engine.ReadyToAssign(models.DB, budget.ID, user.Month)
	if err != nil {
		abortError(c, err)
		return
	}

	c.JSON(http.StatusOK, MainDataResponse{Data: data})
}
