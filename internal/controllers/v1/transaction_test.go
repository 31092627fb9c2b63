package v1_test

import (
	"fmt"
	"net/http"
	"time"

	v1 "github.com/centsible/backend/internal/controllers/v1"
	"github.com/centsible/backend/internal/models"
	"github.com/centsible/backend/internal/test"
	ez_uuid "github.com/centsible/backend/internal/uuid"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func (suite *TestSuiteStandard) TestTransactionCreate() {
	user := uuid.New()
	budget := suite.createTestBudget(user, "Budget")
	account := suite.createTestAccount(user, v1.AccountEditable{
		BudgetID: wrapID(budget.ID),
		Name:     "Checking",
		Type:     models.AccountTypeCash,
	})

	transaction := suite.createTestTransaction(user, v1.TransactionEditable{
		AccountID: wrapID(account.ID),
		Amount:    decimal.RequireFromString("1000"),
		Payee:     "Employer",
	})

	suite.Assert().Equal(budget.ID, transaction.BudgetID)
	suite.Assert().True(transaction.Amount.Equal(decimal.RequireFromString("1000")))

	var updated models.Account
	suite.Require().NoError(models.DB.First(&updated, "id = ?", account.ID).Error)
	suite.Assert().True(updated.WorkingBalance.Equal(decimal.RequireFromString("1000")))
	suite.Assert().True(updated.UnclearedBalance.Equal(decimal.RequireFromString("1000")))
}

func (suite *TestSuiteStandard) TestTransactionCreateFutureDatedRejected() {
	user := uuid.New()
	budget := suite.createTestBudget(user, "Budget")
	account := suite.createTestAccount(user, v1.AccountEditable{
		BudgetID: wrapID(budget.ID),
		Name:     "Checking",
		Type:     models.AccountTypeCash,
	})

	tomorrow := time.Now().In(time.UTC).AddDate(0, 0, 1).Format("2006-01-02")
	recorder := test.Request(suite.T(), http.MethodPost, "/v1/transactions",
		v1.TransactionEditable{
			AccountID: wrapID(account.ID),
			Date:      tomorrow,
			Amount:    decimal.RequireFromString("-10"),
			Payee:     "Time Traveler",
		}, userHeader(user))
	test.AssertHTTPStatus(suite.T(), &recorder, http.StatusBadRequest)
}

func (suite *TestSuiteStandard) TestTransactionCreateReadyToAssignSentinel() {
	user := uuid.New()
	budget := suite.createTestBudget(user, "Budget")
	account := suite.createTestAccount(user, v1.AccountEditable{
		BudgetID: wrapID(budget.ID),
		Name:     "Checking",
		Type:     models.AccountTypeCash,
	})

	sentinel := v1.CategoryReadyToAssign
	transaction := suite.createTestTransaction(user, v1.TransactionEditable{
		AccountID:  wrapID(account.ID),
		Amount:     decimal.RequireFromString("100"),
		Payee:      "Employer",
		CategoryID: &sentinel,
	})

	suite.Assert().Nil(transaction.CategoryID)
}

func (suite *TestSuiteStandard) TestTransactionTransfer() {
	user := uuid.New()
	budget := suite.createTestBudget(user, "Budget")
	checking := suite.createTestAccount(user, v1.AccountEditable{
		BudgetID:       wrapID(budget.ID),
		Name:           "Checking",
		Type:           models.AccountTypeCash,
		InitialBalance: decimal.RequireFromString("100"),
	})
	suite.createTestAccount(user, v1.AccountEditable{
		BudgetID: wrapID(budget.ID),
		Name:     "Savings",
		Type:     models.AccountTypeCash,
	})

	recorder := test.Request(suite.T(), http.MethodPost, "/v1/transactions",
		v1.TransactionEditable{
			AccountID: wrapID(checking.ID),
			Amount:    decimal.RequireFromString("-50"),
			Payee:     "Transfer : Savings",
		}, userHeader(user))
	test.AssertHTTPStatus(suite.T(), &recorder, http.StatusCreated)

	var response v1.TransactionResponse
	test.DecodeResponse(suite.T(), &recorder, &response)

	suite.Require().NotNil(response.Data.Peer)
	suite.Assert().True(response.Data.Peer.Amount.Equal(decimal.RequireFromString("50")))
	suite.Assert().Equal(response.Data.Transaction.TransferID, response.Data.Peer.TransferID)
	suite.Assert().Equal("Transfer : Checking", response.Data.Peer.Payee)
}

func (suite *TestSuiteStandard) TestTransactionTransferUnknownTarget() {
	user := uuid.New()
	budget := suite.createTestBudget(user, "Budget")
	checking := suite.createTestAccount(user, v1.AccountEditable{
		BudgetID: wrapID(budget.ID),
		Name:     "Checking",
		Type:     models.AccountTypeCash,
	})

	recorder := test.Request(suite.T(), http.MethodPost, "/v1/transactions",
		v1.TransactionEditable{
			AccountID: wrapID(checking.ID),
			Amount:    decimal.RequireFromString("-50"),
			Payee:     "Transfer : Nonexistent",
		}, userHeader(user))
	test.AssertHTTPStatus(suite.T(), &recorder, http.StatusNotFound)
}

func (suite *TestSuiteStandard) TestTransactionListFilters() {
	user := uuid.New()
	budget := suite.createTestBudget(user, "Budget")
	account := suite.createTestAccount(user, v1.AccountEditable{
		BudgetID: wrapID(budget.ID),
		Name:     "Checking",
		Type:     models.AccountTypeCash,
	})

	suite.createTestTransaction(user, v1.TransactionEditable{
		AccountID: wrapID(account.ID),
		Amount:    decimal.RequireFromString("-10"),
		Payee:     "Corner Store",
	})
	suite.createTestTransaction(user, v1.TransactionEditable{
		AccountID: wrapID(account.ID),
		Amount:    decimal.RequireFromString("-20"),
		Payee:     "Department Store",
	})
	suite.createTestTransaction(user, v1.TransactionEditable{
		AccountID: wrapID(account.ID),
		Amount:    decimal.RequireFromString("-30"),
		Payee:     "Bakery",
	})

	recorder := test.Request(suite.T(), http.MethodGet, fmt.Sprintf("/v1/transactions?account=%s", account.ID), nil, userHeader(user))
	test.AssertHTTPStatus(suite.T(), &recorder, http.StatusOK)

	var response v1.TransactionListResponse
	test.DecodeResponse(suite.T(), &recorder, &response)
	suite.Assert().Len(response.Data, 3)

	recorder = test.Request(suite.T(), http.MethodGet, fmt.Sprintf("/v1/transactions?budget=%s&payee=*Store", budget.ID), nil, userHeader(user))
	test.AssertHTTPStatus(suite.T(), &recorder, http.StatusOK)
	test.DecodeResponse(suite.T(), &recorder, &response)
	suite.Assert().Len(response.Data, 2)

	recorder = test.Request(suite.T(), http.MethodGet, fmt.Sprintf("/v1/transactions?budget=%s&limit=1", budget.ID), nil, userHeader(user))
	test.AssertHTTPStatus(suite.T(), &recorder, http.StatusOK)
	test.DecodeResponse(suite.T(), &recorder, &response)
	suite.Assert().Len(response.Data, 1)

	// A request without an account or budget filter is rejected
	recorder = test.Request(suite.T(), http.MethodGet, "/v1/transactions", nil, userHeader(user))
	test.AssertHTTPStatus(suite.T(), &recorder, http.StatusBadRequest)
}

func (suite *TestSuiteStandard) TestTransactionUpdateAmount() {
	user := uuid.New()
	budget := suite.createTestBudget(user, "Budget")
	account := suite.createTestAccount(user, v1.AccountEditable{
		BudgetID: wrapID(budget.ID),
		Name:     "Checking",
		Type:     models.AccountTypeCash,
	})
	transaction := suite.createTestTransaction(user, v1.TransactionEditable{
		AccountID: wrapID(account.ID),
		Amount:    decimal.RequireFromString("-100"),
		Payee:     "Shop",
	})

	recorder := test.Request(suite.T(), http.MethodPatch, fmt.Sprintf("/v1/transactions/%s", transaction.ID),
		map[string]any{"amount": "-250"}, userHeader(user))
	test.AssertHTTPStatus(suite.T(), &recorder, http.StatusOK)

	var response v1.TransactionResponse
	test.DecodeResponse(suite.T(), &recorder, &response)
	suite.Assert().True(response.Data.Transaction.Amount.Equal(decimal.RequireFromString("-250")))

	var updated models.Account
	suite.Require().NoError(models.DB.First(&updated, "id = ?", account.ID).Error)
	suite.Assert().True(updated.WorkingBalance.Equal(decimal.RequireFromString("-250")))
}

func (suite *TestSuiteStandard) TestTransactionToggleCleared() {
	user := uuid.New()
	budget := suite.createTestBudget(user, "Budget")
	account := suite.createTestAccount(user, v1.AccountEditable{
		BudgetID: wrapID(budget.ID),
		Name:     "Checking",
		Type:     models.AccountTypeCash,
	})
	transaction := suite.createTestTransaction(user, v1.TransactionEditable{
		AccountID: wrapID(account.ID),
		Amount:    decimal.RequireFromString("-40"),
		Payee:     "Shop",
	})

	recorder := test.Request(suite.T(), http.MethodPost, fmt.Sprintf("/v1/transactions/%s/toggle-cleared", transaction.ID), nil, userHeader(user))
	test.AssertHTTPStatus(suite.T(), &recorder, http.StatusOK)

	var response v1.TransactionResponse
	test.DecodeResponse(suite.T(), &recorder, &response)
	suite.Assert().True(response.Data.Transaction.Cleared)

	var updated models.Account
	suite.Require().NoError(models.DB.First(&updated, "id = ?", account.ID).Error)
	suite.Assert().True(updated.ClearedBalance.Equal(decimal.RequireFromString("-40")))
	suite.Assert().True(updated.UnclearedBalance.IsZero())
}

func (suite *TestSuiteStandard) TestTransactionDelete() {
	user := uuid.New()
	budget := suite.createTestBudget(user, "Budget")
	account := suite.createTestAccount(user, v1.AccountEditable{
		BudgetID: wrapID(budget.ID),
		Name:     "Checking",
		Type:     models.AccountTypeCash,
	})
	transaction := suite.createTestTransaction(user, v1.TransactionEditable{
		AccountID: wrapID(account.ID),
		Amount:    decimal.RequireFromString("-40"),
		Payee:     "Shop",
	})

	recorder := test.Request(suite.T(), http.MethodDelete, fmt.Sprintf("/v1/transactions/%s", transaction.ID), nil, userHeader(user))
	test.AssertHTTPStatus(suite.T(), &recorder, http.StatusOK)

	var updated models.Account
	suite.Require().NoError(models.DB.First(&updated, "id = ?", account.ID).Error)
	suite.Assert().True(updated.WorkingBalance.IsZero())

	recorder = test.Request(suite.T(), http.MethodGet, fmt.Sprintf("/v1/transactions/%s", transaction.ID), nil, userHeader(user))
	test.AssertHTTPStatus(suite.T(), &recorder, http.StatusNotFound)
}

func (suite *TestSuiteStandard) TestTransactionBulkDelete() {
	user := uuid.New()
	budget := suite.createTestBudget(user, "Budget")
	account := suite.createTestAccount(user, v1.AccountEditable{
		BudgetID: wrapID(budget.ID),
		Name:     "Checking",
		Type:     models.AccountTypeCash,
	})
	first := suite.createTestTransaction(user, v1.TransactionEditable{
		AccountID: wrapID(account.ID),
		Amount:    decimal.RequireFromString("-10"),
		Payee:     "Shop",
	})
	second := suite.createTestTransaction(user, v1.TransactionEditable{
		AccountID: wrapID(account.ID),
		Amount:    decimal.RequireFromString("-20"),
		Payee:     "Shop",
	})

	recorder := test.Request(suite.T(), http.MethodPost, "/v1/transactions/bulk-delete",
		v1.BulkDeleteRequest{IDs: []ez_uuid.UUID{wrapID(first.ID), wrapID(second.ID)}}, userHeader(user))
	test.AssertHTTPStatus(suite.T(), &recorder, http.StatusOK)

	var count int64
	suite.Require().NoError(models.DB.Model(&models.Transaction{}).Where("account_id = ?", account.ID).Count(&count).Error)
	suite.Assert().Zero(count)

	var updated models.Account
	suite.Require().NoError(models.DB.First(&updated, "id = ?", account.ID).Error)
	suite.Assert().True(updated.WorkingBalance.IsZero())
}

func (suite *TestSuiteStandard) TestTransactionAccessDeniedForOtherUser() {
	user := uuid.New()
	budget := suite.createTestBudget(user, "Budget")
	account := suite.createTestAccount(user, v1.AccountEditable{
		BudgetID: wrapID(budget.ID),
		Name:     "Checking",
		Type:     models.AccountTypeCash,
	})
	transaction := suite.createTestTransaction(user, v1.TransactionEditable{
		AccountID: wrapID(account.ID),
		Amount:    decimal.RequireFromString("-40"),
		Payee:     "Shop",
	})

	recorder := test.Request(suite.T(), http.MethodGet, fmt.Sprintf("/v1/transactions/%s", transaction.ID), nil, userHeader(uuid.New()))
	test.AssertHTTPStatus(suite.T(), &recorder, http.StatusForbidden)
}
