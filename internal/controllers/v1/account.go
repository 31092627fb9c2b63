package v1

import (
	"net/http"
	"time"

	"github.com/centsible/backend/internal/engine"
	"github.com/centsible/backend/internal/httputil"
	"github.com/centsible/backend/internal/models"
	ez_uuid "github.com/centsible/backend/internal/uuid"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// RegisterAccountRoutes registers the routes for Accounts with
// the RouterGroup that is passed.
func RegisterAccountRoutes(r *gin.RouterGroup) {
	// Root group
	{
		r.OPTIONS("", OptionsAccountList)
		r.GET("", GetAccounts)
		r.POST("", CreateAccount)
		r.POST("/reorder", ReorderAccounts)
	}

	// Account with ID
	{
		r.OPTIONS("/:id", OptionsAccountDetail)
		r.GET("/:id", GetAccount)
		r.PATCH("/:id", UpdateAccount)

		r.POST("/:id/close", CloseAccount)
		r.POST("/:id/reopen", ReopenAccount)
		r.POST("/:id/reconcile", ReconcileAccount)
		r.POST("/:id/balance", UpdateTrackingBalance)
		r.POST("/:id/payment", CreateCreditCardPayment)
		r.GET("/:id/balance-history", GetBalanceHistory)
		r.GET("/:id/transfer-options", GetTransferOptions)
	}
}

// AccountEditable represents all user configurable parameters of an account
type AccountEditable struct {
	BudgetID       ez_uuid.UUID       `json:"budgetId" example:"52d967d3-33f4-4b04-9ba7-772e5ab9d0ce"`
	Name           string             `json:"name" example:"Checking"`
	Note           string             `json:"note" example:"Main bank account"`
	Type           models.AccountType `json:"type" example:"CASH"`
	InitialBalance decimal.Decimal    `json:"initialBalance" example:"250.00"`
	DisplayOrder   uint               `json:"displayOrder" example:"1"`
}

type AccountResponse struct {
	Data models.Account `json:"data"`
}

type AccountListResponse struct {
	Data []models.Account `json:"data"`
}

type BalanceHistoryResponse struct {
	Data []engine.BalancePoint `json:"data"`
}

// ReconcileRequest is the body for the reconcile operation.
type ReconcileRequest struct {
	ActualBalance decimal.Decimal `json:"actualBalance" example:"97.00"`
}

// BalanceRequest is the body for the tracking balance update.
type BalanceRequest struct {
	Balance decimal.Decimal `json:"balance" example:"5000.00"`
}

// PaymentRequest is the body for a credit card payment.
type PaymentRequest struct {
	FromAccountID ez_uuid.UUID    `json:"fromAccountId" example:"d23fc07c-0ec5-4d03-a672-2fe905dd0929"`
	Amount        decimal.Decimal `json:"amount" example:"40.00"`
	Date          string          `json:"date" example:"2024-03-12"`
}

// ReorderRequest is the body for reordering accounts.
type ReorderRequest struct {
	AccountIDs []ez_uuid.UUID `json:"accountIds"`
}

// @Summary		Allowed HTTP verbs
// @Tags			Accounts
// @Success		204
// @Router			/v1/accounts [options]
func OptionsAccountList(c *gin.Context) {
	httputil.OptionsGetPost(c)
}

// @Summary		Allowed HTTP verbs
// @Tags			Accounts
// @Success		204
// @Param			id	path	string	true	"ID of the account"
// @Router			/v1/accounts/{id} [options]
func OptionsAccountDetail(c *gin.Context) {
	httputil.OptionsGetPatch(c)
}

// getAccount loads an account and verifies the requester has access to the
// budget it belongs to.
func getAccount(c *gin.Context) (models.Account, bool) {
	var uri URIID
	err := c.ShouldBindUri(&uri)
	if err != nil {
		abortError(c, httputil.ErrInvalidBody)
		return models.Account{}, false
	}

	var account models.Account
	err = models.DB.First(&account, "id = ?", uri.ID.UUID).Error
	if err != nil {
		abortError(c, err)
		return models.Account{}, false
	}

	err = checkBudgetAccess(c, account.BudgetID)
	if err != nil {
		abortError(c, err)
		return models.Account{}, false
	}

	return account, true
}

// @Summary		Create account
// @Description	Creates a new account. A CREDIT account gets a payment category in the Credit Card Payments group.
// @Tags			Accounts
// @Accept			json
// @Produce		json
// @Success		201	{object}	AccountResponse
// @Failure		400	{object}	httpError
// @Failure		409	{object}	httpError
// @Param			account	body	AccountEditable	true	"Account"
// @Router			/v1/accounts [post]
func CreateAccount(c *gin.Context) {
	var editable AccountEditable
	err := httputil.BindData(c, &editable)
	if err != nil {
		abortError(c, err)
		return
	}

	if !editable.Type.IsValid() {
		abortError(c, models.ErrAccountTypeInvalid)
		return
	}

	err = checkBudgetAccess(c, editable.BudgetID.UUID)
	if err != nil {
		abortError(c, err)
		return
	}

	initial := editable.InitialBalance.RoundBank(2)
	account := models.Account{
		BudgetID:         editable.BudgetID.UUID,
		Name:             editable.Name,
		Note:             editable.Note,
		Type:             editable.Type,
		DisplayOrder:     editable.DisplayOrder,
		AccountBalance:   initial,
		ClearedBalance:   initial,
		WorkingBalance:   initial,
		UnclearedBalance: decimal.Zero,
	}

	err = models.DB.Transaction(func(tx *gorm.DB) error {
		if account.Type == models.AccountTypeCredit {
			group, err := models.SystemGroup(tx, account.BudgetID, models.GroupNameCreditCardPayments)
			if err != nil {
				return err
			}

			paymentCategory := models.Category{
				BudgetID:        account.BudgetID,
				CategoryGroupID: group.ID,
				Name:            editable.Name + " Payment",
			}
			err = tx.Create(&paymentCategory).Error
			if err != nil {
				return err
			}

			account.PaymentCategoryID = &paymentCategory.ID
		}

		return tx.Create(&account).Error
	})
	if err != nil {
		abortError(c, err)
		return
	}

	c.JSON(http.StatusCreated, AccountResponse{Data: account})
}

// @Summary		List accounts
// @Description	Returns the accounts of a budget
// @Tags			Accounts
// @Produce		json
// @Success		200	{object}	AccountListResponse
// @Failure		400	{object}	httpError
// @Param			budget	query	string	true	"ID of the budget"
// @Router			/v1/accounts [get]
func GetAccounts(c *gin.Context) {
	var query struct {
		Budget ez_uuid.UUID `form:"budget"`
	}
	err := c.ShouldBindQuery(&query)
	if err != nil || query.Budget == ez_uuid.Nil {
		abortError(c, errBudgetParameter)
		return
	}

	err = checkBudgetAccess(c, query.Budget.UUID)
	if err != nil {
		abortError(c, err)
		return
	}

	var accounts []models.Account
	err = models.DB.
		Where(&models.Account{BudgetID: query.Budget.UUID}).
		Order("display_order ASC, name ASC").
		Find(&accounts).Error
	if err != nil {
		abortError(c, err)
		return
	}

	c.JSON(http.StatusOK, AccountListResponse{Data: accounts})
}

// @Summary		Get account
// @Tags			Accounts
// @Produce		json
// @Success		200	{object}	AccountResponse
// @Failure		404	{object}	httpError
// @Param			id	path	string	true	"ID of the account"
// @Router			/v1/accounts/{id} [get]
func GetAccount(c *gin.Context) {
	account, ok := getAccount(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, AccountResponse{Data: account})
}

// @Summary		Update account
// @Description	Updates the name, note and display order of an account
// @Tags			Accounts
// @Accept			json
// @Produce		json
// @Success		200	{object}	AccountResponse
// @Failure		404	{object}	httpError
// @Failure		409	{object}	httpError
// @Param			id		path	string			true	"ID of the account"
// @Param			account	body	AccountEditable	true	"Account"
// @Router			/v1/accounts/{id} [patch]
func UpdateAccount(c *gin.Context) {
	account, ok := getAccount(c)
	if !ok {
		return
	}

	editable := AccountEditable{
		Name:         account.Name,
		Note:         account.Note,
		DisplayOrder: account.DisplayOrder,
	}
	err := httputil.BindData(c, &editable)
	if err != nil {
		abortError(c, err)
		return
	}

	account.Name = editable.Name
	account.Note = editable.Note
	account.DisplayOrder = editable.DisplayOrder

	err = models.DB.Save(&account).Error
	if err != nil {
		abortError(c, err)
		return
	}

	c.JSON(http.StatusOK, AccountResponse{Data: account})
}

// @Summary		Close account
// @Description	Archives the account, zeroing its working balance with an adjustment transaction if needed
// @Tags			Accounts
// @Produce		json
// @Success		200	{object}	engine.AccountResult
// @Failure		400	{object}	httpError
// @Failure		404	{object}	httpError
// @Param			id	path	string	true	"ID of the account"
// @Router			/v1/accounts/{id}/close [post]
func CloseAccount(c *gin.Context) {
	account, ok := getAccount(c)
	if !ok {
		return
	}

	user, err := userContext(c)
	if err != nil {
		abortError(c, err)
		return
	}

	result, err := engine.CloseAccount(models.DB, user, account.ID)
	if err != nil {
		abortError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// @Summary		Reopen account
// @Tags			Accounts
// @Produce		json
// @Success		200	{object}	engine.AccountResult
// @Failure		400	{object}	httpError
// @Failure		404	{object}	httpError
// @Param			id	path	string	true	"ID of the account"
// @Router			/v1/accounts/{id}/reopen [post]
func ReopenAccount(c *gin.Context) {
	account, ok := getAccount(c)
	if !ok {
		return
	}

	user, err := userContext(c)
	if err != nil {
		abortError(c, err)
		return
	}

	result, err := engine.ReopenAccount(models.DB, user, account.ID)
	if err != nil {
		abortError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// @Summary		Reconcile account
// @Description	Aligns the account with the actual balance from the statement
// @Tags			Accounts
// @Accept			json
// @Produce		json
// @Success		200	{object}	engine.AccountResult
// @Failure		400	{object}	httpError
// @Failure		404	{object}	httpError
// @Param			id		path	string				true	"ID of the account"
// @Param			request	body	ReconcileRequest	true	"Actual balance"
// @Router			/v1/accounts/{id}/reconcile [post]
func ReconcileAccount(c *gin.Context) {
	account, ok := getAccount(c)
	if !ok {
		return
	}

	var request ReconcileRequest
	err := httputil.BindData(c, &request)
	if err != nil {
		abortError(c, err)
		return
	}

	user, err := userContext(c)
	if err != nil {
		abortError(c, err)
		return
	}

	result, err := engine.ReconcileAccount(models.DB, user, account.ID, request.ActualBalance)
	if err != nil {
		abortError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// @Summary		Update tracking balance
// @Description	Sets the balance of a TRACKING account via an adjustment transaction
// @Tags			Accounts
// @Accept			json
// @Produce		json
// @Success		200	{object}	engine.AccountResult
// @Failure		400	{object}	httpError
// @Failure		404	{object}	httpError
// @Param			id		path	string			true	"ID of the account"
// @Param			request	body	BalanceRequest	true	"Target balance"
// @Router			/v1/accounts/{id}/balance [post]
func UpdateTrackingBalance(c *gin.Context) {
	account, ok := getAccount(c)
	if !ok {
		return
	}

	var request BalanceRequest
	err := httputil.BindData(c, &request)
	if err != nil {
		abortError(c, err)
		return
	}

	user, err := userContext(c)
	if err != nil {
		abortError(c, err)
		return
	}

	result, err := engine.UpdateTrackingBalance(models.DB, user, account.ID, request.Balance)
	if err != nil {
		abortError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// @Summary		Pay credit card
// @Description	Creates the transfer paying the credit card bill from a cash account
// @Tags			Accounts
// @Accept			json
// @Produce		json
// @Success		201	{object}	TransactionResponse
// @Failure		400	{object}	httpError
// @Failure		404	{object}	httpError
// @Param			id		path	string			true	"ID of the CREDIT account"
// @Param			request	body	PaymentRequest	true	"Payment"
// @Router			/v1/accounts/{id}/payment [post]
func CreateCreditCardPayment(c *gin.Context) {
	account, ok := getAccount(c)
	if !ok {
		return
	}

	var request PaymentRequest
	err := httputil.BindData(c, &request)
	if err != nil {
		abortError(c, err)
		return
	}

	user, err := userContext(c)
	if err != nil {
		abortError(c, err)
		return
	}

	date := user.Date
	if request.Date != "" {
		date, err = time.Parse("2006-01-02", request.Date)
		if err != nil {
			abortError(c, httputil.ErrInvalidBody)
			return
		}
	}

	result, err := engine.CreateCreditCardPayment(models.DB, user, request.FromAccountID.UUID, account.ID, request.Amount, date)
	if err != nil {
		abortError(c, err)
		return
	}

	c.JSON(http.StatusCreated, TransactionResponse{Data: result})
}

// @Summary		Balance history
// @Description	Returns the month-end working balance of the account for the past months
// @Tags			Accounts
// @Produce		json
// @Success		200	{object}	BalanceHistoryResponse
// @Failure		404	{object}	httpError
// @Param			id		path	string	true	"ID of the account"
// @Param			months	query	int		false	"Number of months, default 12"
// @Router			/v1/accounts/{id}/balance-history [get]
func GetBalanceHistory(c *gin.Context) {
	account, ok := getAccount(c)
	if !ok {
		return
	}

	var query struct {
		Months int `form:"months"`
	}
	_ = c.ShouldBindQuery(&query)

	user, err := userContext(c)
	if err != nil {
		abortError(c, err)
		return
	}

	points, err := engine.BalanceHistory(models.DB, account.ID, query.Months, user.Month)
	if err != nil {
		abortError(c, err)
		return
	}

	c.JSON(http.StatusOK, BalanceHistoryResponse{Data: points})
}

// @Summary		Transfer options
// @Description	Returns the accounts this account can transfer money to
// @Tags			Accounts
// @Produce		json
// @Success		200	{object}	AccountListResponse
// @Failure		404	{object}	httpError
// @Param			id	path	string	true	"ID of the account"
// @Router			/v1/accounts/{id}/transfer-options [get]
func GetTransferOptions(c *gin.Context) {
	account, ok := getAccount(c)
	if !ok {
		return
	}

	options, err := engine.TransferOptions(models.DB, account.ID)
	if err != nil {
		abortError(c, err)
		return
	}

	c.JSON(http.StatusOK, AccountListResponse{Data: options})
}

// @Summary		Reorder accounts
// @Description	Sets the display order of the given accounts to their position in the list
// @Tags			Accounts
// @Accept			json
// @Success		204
// @Failure		400	{object}	httpError
// @Param			request	body	ReorderRequest	true	"Account IDs in display order"
// @Router			/v1/accounts/reorder [post]
func ReorderAccounts(c *gin.Context) {
	var request ReorderRequest
	err := httputil.BindData(c, &request)
	if err != nil {
		abortError(c, err)
		return
	}

	// Loading and access checks happen before the transaction opens. The
	// database runs on a single connection, a query outside tx would wait
	// for the connection the transaction holds.
	accounts := make([]models.Account, 0, len(request.AccountIDs))
	for _, id := range request.AccountIDs {
		var account models.Account
		err := models.DB.First(&account, "id = ?", id.UUID).Error
		if err != nil {
			abortError(c, err)
			return
		}

		err = checkBudgetAccess(c, account.BudgetID)
		if err != nil {
			abortError(c, err)
			return
		}

		accounts = append(accounts, account)
	}

	err = models.DB.Transaction(func(tx *gorm.DB) error {
		for position, account := range accounts {
			err := tx.Model(&account).Update("display_order", position).Error
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

	c.Status(http.StatusNoContent)
}
