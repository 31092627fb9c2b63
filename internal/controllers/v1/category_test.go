package v1_test

import (
	"fmt"
	"net/http"

	v1 "github.com/centsible/backend/internal/controllers/v1"
	"github.com/centsible/backend/internal/models"
	"github.com/centsible/backend/internal/test"
	ez_uuid "github.com/centsible/backend/internal/uuid"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func (suite *TestSuiteStandard) TestCategoryCreateInSystemGroupRejected() {
	user := uuid.New()
	budget := suite.createTestBudget(user, "Budget")

	group, err := models.SystemGroup(models.DB, budget.ID, models.GroupNameCreditCardPayments)
	suite.Require().NoError(err)

	recorder := test.Request(suite.T(), http.MethodPost, "/v1/categories",
		v1.CategoryEditable{
			BudgetID:        wrapID(budget.ID),
			CategoryGroupID: wrapID(group.ID),
			Name:            "Sneaky",
		}, userHeader(user))
	test.AssertHTTPStatus(suite.T(), &recorder, http.StatusBadRequest)
}

func (suite *TestSuiteStandard) TestCategoryGroupSystemImmutable() {
	user := uuid.New()
	budget := suite.createTestBudget(user, "Budget")

	group, err := models.SystemGroup(models.DB, budget.ID, models.GroupNameHidden)
	suite.Require().NoError(err)

	recorder := test.Request(suite.T(), http.MethodPatch, fmt.Sprintf("/v1/category-groups/%s", group.ID),
		v1.CategoryGroupEditable{Name: "Renamed"}, userHeader(user))
	test.AssertHTTPStatus(suite.T(), &recorder, http.StatusBadRequest)

	recorder = test.Request(suite.T(), http.MethodDelete, fmt.Sprintf("/v1/category-groups/%s", group.ID), nil, userHeader(user))
	test.AssertHTTPStatus(suite.T(), &recorder, http.StatusBadRequest)
}

func (suite *TestSuiteStandard) TestCategoryGroupDeleteNonEmptyRejected() {
	user := uuid.New()
	budget := suite.createTestBudget(user, "Budget")
	group := suite.createTestCategoryGroup(user, budget.ID, "Essentials")
	suite.createTestCategory(user, budget.ID, group.ID, "Rent")

	recorder := test.Request(suite.T(), http.MethodDelete, fmt.Sprintf("/v1/category-groups/%s", group.ID), nil, userHeader(user))
	test.AssertHTTPStatus(suite.T(), &recorder, http.StatusConflict)
}

func (suite *TestSuiteStandard) TestCategoryHideAndUnhide() {
	user := uuid.New()
	budget := suite.createTestBudget(user, "Budget")
	group := suite.createTestCategoryGroup(user, budget.ID, "Essentials")
	category := suite.createTestCategory(user, budget.ID, group.ID, "Rent")

	recorder := test.Request(suite.T(), http.MethodPost, fmt.Sprintf("/v1/categories/%s/hide", category.ID), nil, userHeader(user))
	test.AssertHTTPStatus(suite.T(), &recorder, http.StatusOK)

	var response v1.CategoryResponse
	test.DecodeResponse(suite.T(), &recorder, &response)

	hidden, err := models.SystemGroup(models.DB, budget.ID, models.GroupNameHidden)
	suite.Require().NoError(err)
	suite.Assert().Equal(hidden.ID, response.Data.CategoryGroupID)

	recorder = test.Request(suite.T(), http.MethodPost, fmt.Sprintf("/v1/categories/%s/unhide", category.ID), nil, userHeader(user))
	test.AssertHTTPStatus(suite.T(), &recorder, http.StatusOK)
	test.DecodeResponse(suite.T(), &recorder, &response)
	suite.Assert().Equal(group.ID, response.Data.CategoryGroupID)
}

func (suite *TestSuiteStandard) TestCategoryUnhideNotHiddenRejected() {
	user := uuid.New()
	budget := suite.createTestBudget(user, "Budget")
	group := suite.createTestCategoryGroup(user, budget.ID, "Essentials")
	category := suite.createTestCategory(user, budget.ID, group.ID, "Rent")

	recorder := test.Request(suite.T(), http.MethodPost, fmt.Sprintf("/v1/categories/%s/unhide", category.ID), nil, userHeader(user))
	test.AssertHTTPStatus(suite.T(), &recorder, http.StatusBadRequest)
}

func (suite *TestSuiteStandard) TestCategoryAssignViaPatch() {
	user := uuid.New()
	budget := suite.createTestBudget(user, "Budget")
	suite.createTestAccount(user, v1.AccountEditable{
		BudgetID:       wrapID(budget.ID),
		Name:           "Checking",
		Type:           models.AccountTypeCash,
		InitialBalance: decimal.RequireFromString("500"),
	})
	group := suite.createTestCategoryGroup(user, budget.ID, "Essentials")
	category := suite.createTestCategory(user, budget.ID, group.ID, "Rent")

	assigned := decimal.RequireFromString("300")
	recorder := test.Request(suite.T(), http.MethodPatch, fmt.Sprintf("/v1/categories/%s", category.ID),
		v1.CategoryEditable{Name: "Rent", Assigned: &assigned}, userHeader(user))
	test.AssertHTTPStatus(suite.T(), &recorder, http.StatusOK)

	var response v1.CategoryUpdateResponse
	test.DecodeResponse(suite.T(), &recorder, &response)

	suite.Require().NotNil(response.Assignment)
	suite.Require().NotNil(response.Assignment.Balance)
	suite.Assert().True(response.Assignment.Balance.Assigned.Equal(assigned))
	suite.Assert().True(response.Assignment.Balance.Available.Equal(assigned))
	suite.Assert().True(response.Assignment.ReadyToAssign.Equal(decimal.RequireFromString("200")), "Ready-to-Assign is %s", response.Assignment.ReadyToAssign)
}

func (suite *TestSuiteStandard) TestCategoryMoveMoney() {
	user := uuid.New()
	budget := suite.createTestBudget(user, "Budget")
	suite.createTestAccount(user, v1.AccountEditable{
		BudgetID:       wrapID(budget.ID),
		Name:           "Checking",
		Type:           models.AccountTypeCash,
		InitialBalance: decimal.RequireFromString("500"),
	})
	group := suite.createTestCategoryGroup(user, budget.ID, "Essentials")
	rent := suite.createTestCategory(user, budget.ID, group.ID, "Rent")
	food := suite.createTestCategory(user, budget.ID, group.ID, "Food")

	assigned := decimal.RequireFromString("300")
	recorder := test.Request(suite.T(), http.MethodPatch, fmt.Sprintf("/v1/categories/%s", rent.ID),
		v1.CategoryEditable{Name: "Rent", Assigned: &assigned}, userHeader(user))
	test.AssertHTTPStatus(suite.T(), &recorder, http.StatusOK)

	recorder = test.Request(suite.T(), http.MethodPost, "/v1/categories/move-money",
		v1.MoveMoneyRequest{
			FromCategoryID: wrapID(rent.ID),
			ToCategoryID:   wrapID(food.ID),
			Amount:         decimal.RequireFromString("100"),
		}, userHeader(user))
	test.AssertHTTPStatus(suite.T(), &recorder, http.StatusOK)

	var response v1.AssignResponse
	test.DecodeResponse(suite.T(), &recorder, &response)
	suite.Require().NotNil(response.Data.Balance)
	suite.Assert().True(response.Data.Balance.Available.Equal(decimal.RequireFromString("100")))

	// Moving money does not change Ready-to-Assign
	suite.Assert().True(response.Data.ReadyToAssign.Equal(decimal.RequireFromString("200")), "Ready-to-Assign is %s", response.Data.ReadyToAssign)
}

func (suite *TestSuiteStandard) TestCategoryMoveMoneyInsufficient() {
	user := uuid.New()
	budget := suite.createTestBudget(user, "Budget")
	group := suite.createTestCategoryGroup(user, budget.ID, "Essentials")
	rent := suite.createTestCategory(user, budget.ID, group.ID, "Rent")
	food := suite.createTestCategory(user, budget.ID, group.ID, "Food")

	recorder := test.Request(suite.T(), http.MethodPost, "/v1/categories/move-money",
		v1.MoveMoneyRequest{
			FromCategoryID: wrapID(rent.ID),
			ToCategoryID:   wrapID(food.ID),
			Amount:         decimal.RequireFromString("100"),
		}, userHeader(user))
	test.AssertHTTPStatus(suite.T(), &recorder, http.StatusBadRequest)
}

func (suite *TestSuiteStandard) TestCategoryReadyToAssignRoundTrip() {
	user := uuid.New()
	budget := suite.createTestBudget(user, "Budget")
	suite.createTestAccount(user, v1.AccountEditable{
		BudgetID:       wrapID(budget.ID),
		Name:           "Checking",
		Type:           models.AccountTypeCash,
		InitialBalance: decimal.RequireFromString("500"),
	})
	group := suite.createTestCategoryGroup(user, budget.ID, "Essentials")
	rent := suite.createTestCategory(user, budget.ID, group.ID, "Rent")

	recorder := test.Request(suite.T(), http.MethodPost, fmt.Sprintf("/v1/categories/%s/pull-from-ready-to-assign", rent.ID),
		v1.AmountRequest{Amount: decimal.RequireFromString("200")}, userHeader(user))
	test.AssertHTTPStatus(suite.T(), &recorder, http.StatusOK)

	var response v1.AssignResponse
	test.DecodeResponse(suite.T(), &recorder, &response)
	suite.Assert().True(response.Data.ReadyToAssign.Equal(decimal.RequireFromString("300")), "Ready-to-Assign is %s", response.Data.ReadyToAssign)

	recorder = test.Request(suite.T(), http.MethodPost, fmt.Sprintf("/v1/categories/%s/move-to-ready-to-assign", rent.ID),
		v1.AmountRequest{Amount: decimal.RequireFromString("200")}, userHeader(user))
	test.AssertHTTPStatus(suite.T(), &recorder, http.StatusOK)

	test.DecodeResponse(suite.T(), &recorder, &response)
	suite.Assert().True(response.Data.ReadyToAssign.Equal(decimal.RequireFromString("500")), "Ready-to-Assign is %s", response.Data.ReadyToAssign)
}

func (suite *TestSuiteStandard) TestCategoryGroupReorder() {
	user := uuid.New()
	budget := suite.createTestBudget(user, "Budget")
	first := suite.createTestCategoryGroup(user, budget.ID, "Essentials")
	second := suite.createTestCategoryGroup(user, budget.ID, "Fun")

	recorder := test.Request(suite.T(), http.MethodPost, "/v1/category-groups/reorder",
		v1.GroupReorderRequest{GroupIDs: []ez_uuid.UUID{wrapID(second.ID), wrapID(first.ID)}}, userHeader(user))
	test.AssertHTTPStatus(suite.T(), &recorder, http.StatusNoContent)

	var reordered models.CategoryGroup
	suite.Require().NoError(models.DB.First(&reordered, "id = ?", second.ID).Error)
	suite.Assert().Equal(uint(0), reordered.DisplayOrder)
}

func (suite *TestSuiteStandard) TestCategoryReorder() {
	user := uuid.New()
	budget := suite.createTestBudget(user, "Budget")
	group := suite.createTestCategoryGroup(user, budget.ID, "Essentials")
	first := suite.createTestCategory(user, budget.ID, group.ID, "Groceries")
	second := suite.createTestCategory(user, budget.ID, group.ID, "Rent")

	recorder := test.Request(suite.T(), http.MethodPost, "/v1/categories/reorder",
		v1.CategoryReorderRequest{CategoryIDs: []ez_uuid.UUID{wrapID(second.ID), wrapID(first.ID)}}, userHeader(user))
	test.AssertHTTPStatus(suite.T(), &recorder, http.StatusNoContent)

	var reordered models.Category
	suite.Require().NoError(models.DB.First(&reordered, "id = ?", second.ID).Error)
	suite.Assert().Equal(uint(0), reordered.DisplayOrder)
}
