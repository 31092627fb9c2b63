package v1_test

import (
	"fmt"
	"net/http"

	v1 "github.com/centsible/backend/internal/controllers/v1"
	"github.com/centsible/backend/internal/models"
	"github.com/centsible/backend/internal/test"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func (suite *TestSuiteStandard) TestBudgetCreateSetsUpSystemGroups() {
	user := uuid.New()
	budget := suite.createTestBudget(user, "Household")

	suite.Assert().Equal("Household", budget.Name)
	suite.Assert().Equal(user, budget.OwnerID)

	var groups []models.CategoryGroup
	err := models.DB.Where("budget_id = ? AND is_system_group = true", budget.ID).Find(&groups).Error
	suite.Require().NoError(err)
	suite.Assert().Len(groups, 2)

	names := []string{groups[0].Name, groups[1].Name}
	suite.Assert().Contains(names, models.GroupNameCreditCardPayments)
	suite.Assert().Contains(names, models.GroupNameHidden)
}

func (suite *TestSuiteStandard) TestBudgetListOnlyOwn() {
	alice := uuid.New()
	bob := uuid.New()

	suite.createTestBudget(alice, "Alice's Budget")
	suite.createTestBudget(bob, "Bob's Budget")

	recorder := test.Request(suite.T(), http.MethodGet, "/v1/budgets", nil, userHeader(alice))
	test.AssertHTTPStatus(suite.T(), &recorder, http.StatusOK)

	var response v1.BudgetListResponse
	test.DecodeResponse(suite.T(), &recorder, &response)
	suite.Require().Len(response.Data, 1)
	suite.Assert().Equal("Alice's Budget", response.Data[0].Name)
}

func (suite *TestSuiteStandard) TestBudgetAccessDeniedForOtherUser() {
	alice := uuid.New()
	budget := suite.createTestBudget(alice, "Private")

	recorder := test.Request(suite.T(), http.MethodGet, fmt.Sprintf("/v1/budgets/%s", budget.ID), nil, userHeader(uuid.New()))
	test.AssertHTTPStatus(suite.T(), &recorder, http.StatusForbidden)
}

func (suite *TestSuiteStandard) TestBudgetMissingUserID() {
	recorder := test.Request(suite.T(), http.MethodGet, "/v1/budgets", nil)
	test.AssertHTTPStatus(suite.T(), &recorder, http.StatusBadRequest)
}

func (suite *TestSuiteStandard) TestBudgetUpdate() {
	user := uuid.New()
	budget := suite.createTestBudget(user, "Old Name")

	recorder := test.Request(suite.T(), http.MethodPatch, fmt.Sprintf("/v1/budgets/%s", budget.ID),
		v1.BudgetEditable{Name: "New Name", Currency: "$"}, userHeader(user))
	test.AssertHTTPStatus(suite.T(), &recorder, http.StatusOK)

	var response v1.BudgetResponse
	test.DecodeResponse(suite.T(), &recorder, &response)
	suite.Assert().Equal("New Name", response.Data.Name)
	suite.Assert().Equal("$", response.Data.Currency)
}

func (suite *TestSuiteStandard) TestBudgetDeleteCascades() {
	user := uuid.New()
	budget := suite.createTestBudget(user, "Doomed")
	account := suite.createTestAccount(user, v1.AccountEditable{
		BudgetID: wrapID(budget.ID),
		Name:     "Checking",
		Type:     models.AccountTypeCash,
	})
	suite.createTestTransaction(user, v1.TransactionEditable{
		AccountID: wrapID(account.ID),
		Amount:    decimal.RequireFromString("100"),
		Payee:     "Employer",
	})

	recorder := test.Request(suite.T(), http.MethodDelete, fmt.Sprintf("/v1/budgets/%s", budget.ID), nil, userHeader(user))
	test.AssertHTTPStatus(suite.T(), &recorder, http.StatusNoContent)

	var accounts, transactions int64
	suite.Require().NoError(models.DB.Model(&models.Account{}).Where("budget_id = ?", budget.ID).Count(&accounts).Error)
	suite.Require().NoError(models.DB.Model(&models.Transaction{}).Where("budget_id = ?", budget.ID).Count(&transactions).Error)
	suite.Assert().Zero(accounts)
	suite.Assert().Zero(transactions)
}

func (suite *TestSuiteStandard) TestBudgetReadyToAssign() {
	user := uuid.New()
	budget := suite.createTestBudget(user, "Budget")
	account := suite.createTestAccount(user, v1.AccountEditable{
		BudgetID: wrapID(budget.ID),
		Name:     "Checking",
		Type:     models.AccountTypeCash,
	})
	suite.createTestTransaction(user, v1.TransactionEditable{
		AccountID: wrapID(account.ID),
		Amount:    decimal.RequireFromString("1000"),
		Payee:     "Employer",
	})

	recorder := test.Request(suite.T(), http.MethodGet, fmt.Sprintf("/v1/budgets/%s/ready-to-assign", budget.ID), nil, userHeader(user))
	test.AssertHTTPStatus(suite.T(), &recorder, http.StatusOK)

	var response v1.ReadyToAssignResponse
	test.DecodeResponse(suite.T(), &recorder, &response)
	suite.Assert().True(response.Data.Equal(decimal.RequireFromString("1000")), "Ready-to-Assign is %s", response.Data)
}

func (suite *TestSuiteStandard) TestBudgetBatchAssign() {
	user := uuid.New()
	budget := suite.createTestBudget(user, "Budget")
	account := suite.createTestAccount(user, v1.AccountEditable{
		BudgetID: wrapID(budget.ID),
		Name:     "Checking",
		Type:     models.AccountTypeCash,
	})
	suite.createTestTransaction(user, v1.TransactionEditable{
		AccountID: wrapID(account.ID),
		Amount:    decimal.RequireFromString("500"),
		Payee:     "Employer",
	})

	group := suite.createTestCategoryGroup(user, budget.ID, "Essentials")
	rent := suite.createTestCategory(user, budget.ID, group.ID, "Rent")
	food := suite.createTestCategory(user, budget.ID, group.ID, "Food")

	recorder := test.Request(suite.T(), http.MethodPost, fmt.Sprintf("/v1/budgets/%s/batch-assign", budget.ID),
		map[string]any{
			"assignments": []map[string]any{
				{"categoryId": rent.ID, "amount": "300"},
				{"categoryId": food.ID, "amount": "100"},
			},
		}, userHeader(user))
	test.AssertHTTPStatus(suite.T(), &recorder, http.StatusOK)

	var response v1.AssignResponse
	test.DecodeResponse(suite.T(), &recorder, &response)
	suite.Assert().True(response.Data.ReadyToAssign.Equal(decimal.RequireFromString("100")), "Ready-to-Assign is %s", response.Data.ReadyToAssign)
}

func (suite *TestSuiteStandard) TestBudgetAuditCleanAfterActivity() {
	user := uuid.New()
	budget := suite.createTestBudget(user, "Budget")
	account := suite.createTestAccount(user, v1.AccountEditable{
		BudgetID: wrapID(budget.ID),
		Name:     "Checking",
		Type:     models.AccountTypeCash,
	})
	suite.createTestTransaction(user, v1.TransactionEditable{
		AccountID: wrapID(account.ID),
		Amount:    decimal.RequireFromString("250"),
		Payee:     "Employer",
		Cleared:   true,
	})

	recorder := test.Request(suite.T(), http.MethodGet, fmt.Sprintf("/v1/budgets/%s/audit", budget.ID), nil, userHeader(user))
	test.AssertHTTPStatus(suite.T(), &recorder, http.StatusOK)

	var response v1.AuditResponse
	test.DecodeResponse(suite.T(), &recorder, &response)
	suite.Assert().Empty(response.Data)
}

func (suite *TestSuiteStandard) TestBudgetMainData() {
	user := uuid.New()
	budget := suite.createTestBudget(user, "Budget")
	account := suite.createTestAccount(user, v1.AccountEditable{
		BudgetID:       wrapID(budget.ID),
		Name:           "Checking",
		Type:           models.AccountTypeCash,
		InitialBalance: decimal.RequireFromString("100"),
	})
	group := suite.createTestCategoryGroup(user, budget.ID, "Essentials")
	suite.createTestCategory(user, budget.ID, group.ID, "Rent")
	suite.createTestTransaction(user, v1.TransactionEditable{
		AccountID: wrapID(account.ID),
		Amount:    decimal.RequireFromString("-10"),
		Payee:     "Bakery",
	})

	recorder := test.Request(suite.T(), http.MethodGet, fmt.Sprintf("/v1/budgets/%s/main-data", budget.ID), nil, userHeader(user))
	test.AssertHTTPStatus(suite.T(), &recorder, http.StatusOK)

	var response v1.MainDataResponse
	test.DecodeResponse(suite.T(), &recorder, &response)

	suite.Assert().Equal(budget.ID, response.Data.Budget.ID)
	suite.Assert().Len(response.Data.Accounts, 1)
	suite.Assert().Len(response.Data.CategoryGroups, 3) // two system groups plus Essentials
	suite.Assert().Len(response.Data.Categories, 1)
	suite.Assert().Len(response.Data.Transactions, 1)
	suite.Assert().True(response.Data.ReadyToAssign.Equal(decimal.RequireFromString("90")), "Ready-to-Assign is %s", response.Data.ReadyToAssign)
}
