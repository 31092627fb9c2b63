package v1

import (
	"net/http"
	"time"

	"github.com/centsible/backend/internal/engine"
	"github.com/centsible/backend/internal/httputil"
	"github.com/centsible/backend/internal/models"
	ez_uuid "github.com/centsible/backend/internal/uuid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/ryanuber/go-glob"
	"github.com/shopspring/decimal"
)

// RegisterTransactionRoutes registers the routes for Transactions with
// the RouterGroup that is passed.
func RegisterTransactionRoutes(r *gin.RouterGroup) {
	// Root group
	{
		r.OPTIONS("", OptionsTransactionList)
		r.GET("", GetTransactions)
		r.POST("", CreateTransaction)
		r.POST("/bulk-delete", BulkDeleteTransactions)
	}

	// Transaction with ID
	{
		r.OPTIONS("/:id", OptionsTransactionDetail)
		r.GET("/:id", GetTransaction)
		r.PATCH("/:id", UpdateTransaction)
		r.DELETE("/:id", DeleteTransaction)

		r.POST("/:id/toggle-cleared", ToggleCleared)
	}
}

// TransactionEditable represents all user configurable parameters of a
// transaction.
//
// CategoryID is a string so clients can send the Ready-to-Assign sentinel.
type TransactionEditable struct {
	AccountID  ez_uuid.UUID    `json:"accountId" example:"d23fc07c-0ec5-4d03-a672-2fe905dd0929"`
	Date       string          `json:"date" example:"2024-03-12"`
	Amount     decimal.Decimal `json:"amount" example:"-70.00"`
	Payee      string          `json:"payee" example:"Restaurant"`
	Memo       string          `json:"memo" example:"Dinner with friends"`
	CategoryID *string         `json:"categoryId" example:"a4fbcb4c-34ee-4078-97b5-cbd72bcc6f85"`
	Cleared    bool            `json:"cleared" example:"false"`
}

type TransactionResponse struct {
	Data engine.TransactionResult `json:"data"`
}

type TransactionListResponse struct {
	Data []models.Transaction `json:"data"`
}

// DeleteResponse reports the Ready-to-Assign value after a deletion.
type DeleteResponse struct {
	Data struct {
		ReadyToAssign decimal.Decimal `json:"readyToAssign"`
	} `json:"data"`
}

// BulkDeleteRequest is the body for deleting multiple transactions at once.
type BulkDeleteRequest struct {
	IDs []ez_uuid.UUID `json:"ids"`
}

// transactionQuery are the supported filters for the transaction list.
type transactionQuery struct {
	Account ez_uuid.UUID `form:"account"`
	Budget  ez_uuid.UUID `form:"budget"`
	Payee   string       `form:"payee"`
	Offset  int          `form:"offset"`
	Limit   int          `form:"limit"`
}

// @Summary		Allowed HTTP verbs
// @Tags			Transactions
// @Success		204
// @Router			/v1/transactions [options]
func OptionsTransactionList(c *gin.Context) {
	httputil.OptionsGetPost(c)
}

// @Summary		Allowed HTTP verbs
// @Tags			Transactions
// @Success		204
// @Param			id	path	string	true	"ID of the transaction"
// @Router			/v1/transactions/{id} [options]
func OptionsTransactionDetail(c *gin.Context) {
	httputil.OptionsGetPatchDelete(c)
}

func getTransaction(c *gin.Context) (models.Transaction, bool) {
	var uri URIID
	err := c.ShouldBindUri(&uri)
	if err != nil {
		abortError(c, httputil.ErrInvalidBody)
		return models.Transaction{}, false
	}

	var transaction models.Transaction
	err = models.DB.First(&transaction, "id = ?", uri.ID.UUID).Error
	if err != nil {
		abortError(c, err)
		return models.Transaction{}, false
	}

	err = checkBudgetAccess(c, transaction.BudgetID)
	if err != nil {
		abortError(c, err)
		return models.Transaction{}, false
	}

	return transaction, true
}

// parseDate parses a transaction date. An empty string falls back to the
// user's current date.
func parseDate(raw string, user engine.UserContext) (time.Time, error) {
	if raw == "" {
		return user.Date, nil
	}

	date, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, httputil.ErrInvalidBody
	}
	return date, nil
}

// @Summary		Create transaction
// @Description	Creates a transaction. A payee of the form "Transfer : Name" creates a transfer to the named account.
// @Tags			Transactions
// @Accept			json
// @Produce		json
// @Success		201	{object}	TransactionResponse
// @Failure		400	{object}	httpError
// @Failure		404	{object}	httpError
// @Param			transaction	body	TransactionEditable	true	"Transaction"
// @Router			/v1/transactions [post]
func CreateTransaction(c *gin.Context) {
	var editable TransactionEditable
	err := httputil.BindData(c, &editable)
	if err != nil {
		abortError(c, err)
		return
	}

	var account models.Account
	err = models.DB.First(&account, "id = ?", editable.AccountID.UUID).Error
	if err != nil {
		abortError(c, err)
		return
	}
	err = checkBudgetAccess(c, account.BudgetID)
	if err != nil {
		abortError(c, err)
		return
	}

	user, err := userContext(c)
	if err != nil {
		abortError(c, err)
		return
	}

	date, err := parseDate(editable.Date, user)
	if err != nil {
		abortError(c, err)
		return
	}

	categoryID, err := parseCategoryID(editable.CategoryID)
	if err != nil {
		abortError(c, err)
		return
	}

	transaction := models.Transaction{
		AccountID:  editable.AccountID.UUID,
		Date:       date,
		Amount:     editable.Amount,
		Payee:      editable.Payee,
		Memo:       editable.Memo,
		CategoryID: categoryID,
		Cleared:    editable.Cleared,
	}

	result, err := engine.CreateTransaction(models.DB, user, transaction)
	if err != nil {
		abortError(c, err)
		return
	}

	c.JSON(http.StatusCreated, TransactionResponse{Data: result})
}

// @Summary		List transactions
// @Description	Returns transactions filtered by account or budget, newest first
// @Tags			Transactions
// @Produce		json
// @Success		200	{object}	TransactionListResponse
// @Failure		400	{object}	httpError
// @Param			account	query	string	false	"ID of the account"
// @Param			budget	query	string	false	"ID of the budget"
// @Param			payee	query	string	false	"Glob pattern the payee must match"
// @Param			offset	query	int		false	"Number of transactions to skip"
// @Param			limit	query	int		false	"Maximum number of transactions to return"
// @Router			/v1/transactions [get]
func GetTransactions(c *gin.Context) {
	var query transactionQuery
	err := c.ShouldBindQuery(&query)
	if err != nil {
		abortError(c, httputil.ErrInvalidBody)
		return
	}

	db := models.DB.Order("date DESC, created_at DESC")

	switch {
	case query.Account != ez_uuid.Nil:
		var account models.Account
		err = models.DB.First(&account, "id = ?", query.Account.UUID).Error
		if err != nil {
			abortError(c, err)
			return
		}
		err = checkBudgetAccess(c, account.BudgetID)
		if err != nil {
			abortError(c, err)
			return
		}
		db = db.Where("account_id = ?", account.ID)

	case query.Budget != ez_uuid.Nil:
		err = checkBudgetAccess(c, query.Budget.UUID)
		if err != nil {
			abortError(c, err)
			return
		}
		db = db.Where("budget_id = ?", query.Budget.UUID)

	default:
		abortError(c, errBudgetParameter)
		return
	}

	var transactions []models.Transaction
	err = db.Find(&transactions).Error
	if err != nil {
		abortError(c, err)
		return
	}

	// The payee filter is a glob, so it runs after the database query.
	if query.Payee != "" {
		filtered := make([]models.Transaction, 0, len(transactions))
		for _, t := range transactions {
			if glob.Glob(query.Payee, t.Payee) {
				filtered = append(filtered, t)
			}
		}
		transactions = filtered
	}

	if query.Offset > 0 {
		if query.Offset > len(transactions) {
			query.Offset = len(transactions)
		}
		transactions = transactions[query.Offset:]
	}
	if query.Limit > 0 && query.Limit < len(transactions) {
		transactions = transactions[:query.Limit]
	}

	c.JSON(http.StatusOK, TransactionListResponse{Data: transactions})
}

// @Summary		Get transaction
// @Tags			Transactions
// @Produce		json
// @Success		200	{object}	TransactionListResponse
// @Failure		404	{object}	httpError
// @Param			id	path	string	true	"ID of the transaction"
// @Router			/v1/transactions/{id} [get]
func GetTransaction(c *gin.Context) {
	transaction, ok := getTransaction(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, struct {
		Data models.Transaction `json:"data"`
	}{Data: transaction})
}

// @Summary		Update transaction
// @Description	Updates a transaction and rebalances everything it touched
// @Tags			Transactions
// @Accept			json
// @Produce		json
// @Success		200	{object}	TransactionResponse
// @Failure		400	{object}	httpError
// @Failure		404	{object}	httpError
// @Param			id			path	string				true	"ID of the transaction"
// @Param			transaction	body	TransactionEditable	true	"Transaction"
// @Router			/v1/transactions/{id} [patch]
func UpdateTransaction(c *gin.Context) {
	transaction, ok := getTransaction(c)
	if !ok {
		return
	}

	rawCategory := transaction.CategoryID
	editable := TransactionEditable{
		AccountID: ez_uuid.UUID{UUID: transaction.AccountID},
		Date:      transaction.Date.Format("2006-01-02"),
		Amount:    transaction.Amount,
		Payee:     transaction.Payee,
		Memo:      transaction.Memo,
		Cleared:   transaction.Cleared,
	}
	if rawCategory != nil {
		s := rawCategory.String()
		editable.CategoryID = &s
	}

	err := httputil.BindData(c, &editable)
	if err != nil {
		abortError(c, err)
		return
	}

	user, err := userContext(c)
	if err != nil {
		abortError(c, err)
		return
	}

	date, err := parseDate(editable.Date, user)
	if err != nil {
		abortError(c, err)
		return
	}

	categoryID, err := parseCategoryID(editable.CategoryID)
	if err != nil {
		abortError(c, err)
		return
	}

	updated := transaction
	updated.AccountID = editable.AccountID.UUID
	updated.Date = date
	updated.Amount = editable.Amount
	updated.Payee = editable.Payee
	updated.Memo = editable.Memo
	updated.CategoryID = categoryID
	updated.Cleared = editable.Cleared

	result, err := engine.UpdateTransaction(models.DB, user, updated)
	if err != nil {
		abortError(c, err)
		return
	}

	c.JSON(http.StatusOK, TransactionResponse{Data: result})
}

// @Summary		Toggle cleared
// @Description	Flips the cleared flag. Reconciled transactions cannot be toggled.
// @Tags			Transactions
// @Produce		json
// @Success		200	{object}	TransactionResponse
// @Failure		400	{object}	httpError
// @Failure		404	{object}	httpError
// @Param			id	path	string	true	"ID of the transaction"
// @Router			/v1/transactions/{id}/toggle-cleared [post]
func ToggleCleared(c *gin.Context) {
	transaction, ok := getTransaction(c)
	if !ok {
		return
	}

	user, err := userContext(c)
	if err != nil {
		abortError(c, err)
		return
	}

	result, err := engine.ToggleCleared(models.DB, user, transaction.ID)
	if err != nil {
		abortError(c, err)
		return
	}

	c.JSON(http.StatusOK, TransactionResponse{Data: result})
}

// @Summary		Delete transaction
// @Description	Deletes a transaction, its transfer peer and all its balance effects
// @Tags			Transactions
// @Produce		json
// @Success		200	{object}	DeleteResponse
// @Failure		404	{object}	httpError
// @Param			id	path	string	true	"ID of the transaction"
// @Router			/v1/transactions/{id} [delete]
func DeleteTransaction(c *gin.Context) {
	transaction, ok := getTransaction(c)
	if !ok {
		return
	}

	user, err := userContext(c)
	if err != nil {
		abortError(c, err)
		return
	}

	rta, err := engine.DeleteTransaction(models.DB, user, transaction.ID)
	if err != nil {
		abortError(c, err)
		return
	}

	var response DeleteResponse
	response.Data.ReadyToAssign = rta
	c.JSON(http.StatusOK, response)
}

// @Summary		Bulk delete transactions
// @Description	Deletes multiple transactions in one operation. Transfer peers are deleted along with their counterpart.
// @Tags			Transactions
// @Accept			json
// @Produce		json
// @Success		200	{object}	DeleteResponse
// @Failure		400	{object}	httpError
// @Failure		404	{object}	httpError
// @Param			request	body	BulkDeleteRequest	true	"Transaction IDs"
// @Router			/v1/transactions/bulk-delete [post]
func BulkDeleteTransactions(c *gin.Context) {
	var request BulkDeleteRequest
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

	ids := make([]uuid.UUID, 0, len(request.IDs))
	for _, id := range request.IDs {
		var transaction models.Transaction
		err = models.DB.First(&transaction, "id = ?", id.UUID).Error
		if err != nil {
			abortError(c, err)
			return
		}
		err = checkBudgetAccess(c, transaction.BudgetID)
		if err != nil {
			abortError(c, err)
			return
		}
		ids = append(ids, id.UUID)
	}

	rta, err := engine.DeleteTransactions(models.DB, user, ids)
	if err != nil {
		abortError(c, err)
		return
	}

	var response DeleteResponse
	response.Data.ReadyToAssign = rta
	c.JSON(http.StatusOK, response)
}
