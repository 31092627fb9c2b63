package engine_test

import (
	"github.com/centsible/backend/internal/engine"
	"github.com/centsible/backend/internal/models"
	"github.com/centsible/backend/internal/types"
)

func (suite *TestSuiteStandard) TestApplyActivityCurrentMonth() {
	budget := suite.createTestBudget(models.Budget{})
	group := suite.createTestCategoryGroup(models.CategoryGroup{BudgetID: budget.ID})
	category := suite.createTestCategory(models.Category{BudgetID: budget.ID, CategoryGroupID: group.ID})

	march := types.FromParts(2024, 3)
	err := engine.ApplyActivity(models.DB, budget.ID, category.ID, march, d("-300"), march)
	suite.Require().NoError(err)

	row := suite.categoryBalance(category.ID, "2024-03")
	suite.assertDecimal("-300", row.Activity)
	suite.assertDecimal("-300", row.Available)
	suite.assertDecimal("0", row.Assigned)
}

func (suite *TestSuiteStandard) TestApplyActivityPastMonth() {
	budget := suite.createTestBudget(models.Budget{})
	group := suite.createTestCategoryGroup(models.CategoryGroup{BudgetID: budget.ID})
	category := suite.createTestCategory(models.Category{BudgetID: budget.ID, CategoryGroupID: group.ID})

	february := types.FromParts(2024, 2)
	march := types.FromParts(2024, 3)

	// Activity booked into a past month must not move that month's available.
	err := engine.ApplyActivity(models.DB, budget.ID, category.ID, february, d("-50"), march)
	suite.Require().NoError(err)

	row := suite.categoryBalance(category.ID, "2024-02")
	suite.assertDecimal("-50", row.Activity)
	suite.assertDecimal("0", row.Available)
}

func (suite *TestSuiteStandard) TestSetAssigned() {
	budget := suite.createTestBudget(models.Budget{})
	group := suite.createTestCategoryGroup(models.CategoryGroup{BudgetID: budget.ID})
	category := suite.createTestCategory(models.Category{BudgetID: budget.ID, CategoryGroupID: group.ID})

	march := types.FromParts(2024, 3)

	err := engine.SetAssigned(models.DB, budget.ID, category.ID, march, d("500"))
	suite.Require().NoError(err)

	row := suite.categoryBalance(category.ID, "2024-03")
	suite.assertDecimal("500", row.Assigned)
	suite.assertDecimal("500", row.Available)

	// Setting an absolute value adjusts available by the difference.
	err = engine.SetAssigned(models.DB, budget.ID, category.ID, march, d("300"))
	suite.Require().NoError(err)

	row = suite.categoryBalance(category.ID, "2024-03")
	suite.assertDecimal("300", row.Assigned)
	suite.assertDecimal("300", row.Available)
}

func (suite *TestSuiteStandard) TestAddAssignedBatch() {
	budget := suite.createTestBudget(models.Budget{})
	group := suite.createTestCategoryGroup(models.CategoryGroup{BudgetID: budget.ID})
	groceries := suite.createTestCategory(models.Category{BudgetID: budget.ID, CategoryGroupID: group.ID})
	rent := suite.createTestCategory(models.Category{BudgetID: budget.ID, CategoryGroupID: group.ID})

	march := types.FromParts(2024, 3)

	err := engine.AddAssigned(models.DB, budget.ID, []engine.Assignment{
		{CategoryID: groceries.ID, Amount: d("100")},
		{CategoryID: rent.ID, Amount: d("1000")},
	}, march)
	suite.Require().NoError(err)

	// The batch form is additive, a second run stacks on top.
	err = engine.AddAssigned(models.DB, budget.ID, []engine.Assignment{
		{CategoryID: groceries.ID, Amount: d("50")},
	}, march)
	suite.Require().NoError(err)

	row := suite.categoryBalance(groceries.ID, "2024-03")
	suite.assertDecimal("150", row.Assigned)
	suite.assertDecimal("150", row.Available)

	row = suite.categoryBalance(rent.ID, "2024-03")
	suite.assertDecimal("1000", row.Assigned)
}

func (suite *TestSuiteStandard) TestMoveBetweenCategories() {
	budget := suite.createTestBudget(models.Budget{})
	group := suite.createTestCategoryGroup(models.CategoryGroup{BudgetID: budget.ID})
	source := suite.createTestCategory(models.Category{BudgetID: budget.ID, CategoryGroupID: group.ID})
	destination := suite.createTestCategory(models.Category{BudgetID: budget.ID, CategoryGroupID: group.ID})

	march := types.FromParts(2024, 3)
	suite.Require().NoError(engine.SetAssigned(models.DB, budget.ID, source.ID, march, d("100")))

	err := engine.MoveBetweenCategories(models.DB, budget.ID, source.ID, destination.ID, d("60"), march)
	suite.Require().NoError(err)

	suite.assertDecimal("40", suite.categoryBalance(source.ID, "2024-03").Available)
	suite.assertDecimal("60", suite.categoryBalance(destination.ID, "2024-03").Available)

	// Moving back restores the original state.
	err = engine.MoveBetweenCategories(models.DB, budget.ID, destination.ID, source.ID, d("60"), march)
	suite.Require().NoError(err)

	suite.assertDecimal("100", suite.categoryBalance(source.ID, "2024-03").Available)
	suite.assertDecimal("0", suite.categoryBalance(destination.ID, "2024-03").Available)
}

func (suite *TestSuiteStandard) TestMoveBetweenCategoriesInsufficient() {
	budget := suite.createTestBudget(models.Budget{})
	group := suite.createTestCategoryGroup(models.CategoryGroup{BudgetID: budget.ID})
	source := suite.createTestCategory(models.Category{BudgetID: budget.ID, CategoryGroupID: group.ID})
	destination := suite.createTestCategory(models.Category{BudgetID: budget.ID, CategoryGroupID: group.ID})

	march := types.FromParts(2024, 3)
	suite.Require().NoError(engine.SetAssigned(models.DB, budget.ID, source.ID, march, d("10")))

	err := engine.MoveBetweenCategories(models.DB, budget.ID, source.ID, destination.ID, d("60"), march)
	suite.Assert().ErrorIs(err, engine.ErrInsufficientAvailable)

	err = engine.MoveBetweenCategories(models.DB, budget.ID, source.ID, destination.ID, d("-5"), march)
	suite.Assert().ErrorIs(err, engine.ErrMoveAmountNotPositive)
}

func (suite *TestSuiteStandard) TestMoveToReadyToAssign() {
	budget := suite.createTestBudget(models.Budget{})
	group := suite.createTestCategoryGroup(models.CategoryGroup{BudgetID: budget.ID})
	category := suite.createTestCategory(models.Category{BudgetID: budget.ID, CategoryGroupID: group.ID})

	march := types.FromParts(2024, 3)
	suite.Require().NoError(engine.SetAssigned(models.DB, budget.ID, category.ID, march, d("80")))

	err := engine.MoveToReadyToAssign(models.DB, budget.ID, category.ID, d("30"), march)
	suite.Require().NoError(err)

	row := suite.categoryBalance(category.ID, "2024-03")
	suite.assertDecimal("50", row.Assigned)
	suite.assertDecimal("50", row.Available)
}

func (suite *TestSuiteStandard) TestPullFromReadyToAssignNoGuard() {
	budget := suite.createTestBudget(models.Budget{})
	group := suite.createTestCategoryGroup(models.CategoryGroup{BudgetID: budget.ID})
	category := suite.createTestCategory(models.Category{BudgetID: budget.ID, CategoryGroupID: group.ID})

	march := types.FromParts(2024, 3)

	// Over-assignment is allowed, Ready-to-Assign goes negative instead.
	err := engine.PullFromReadyToAssign(models.DB, budget.ID, category.ID, d("80"), march)
	suite.Require().NoError(err)

	row := suite.categoryBalance(category.ID, "2024-03")
	suite.assertDecimal("80", row.Assigned)
	suite.assertDecimal("80", row.Available)
}

func (suite *TestSuiteStandard) TestRollover() {
	budget := suite.createTestBudget(models.Budget{})
	group := suite.createTestCategoryGroup(models.CategoryGroup{BudgetID: budget.ID})
	rent := suite.createTestCategory(models.Category{BudgetID: budget.ID, CategoryGroupID: group.ID, Name: "Rent"})
	savings := suite.createTestCategory(models.Category{BudgetID: budget.ID, CategoryGroupID: group.ID, Name: "Savings"})

	march := types.FromParts(2024, 3)
	april := types.FromParts(2024, 4)

	suite.Require().NoError(engine.SetAssigned(models.DB, budget.ID, rent.ID, march, d("1000")))
	suite.Require().NoError(engine.ApplyActivity(models.DB, budget.ID, rent.ID, march, d("-1000"), march))
	suite.Require().NoError(engine.SetAssigned(models.DB, budget.ID, savings.ID, march, d("200")))

	// Savings carries a surplus from earlier months on top of its assignment.
	savingsRow := suite.categoryBalance(savings.ID, "2024-03")
	savingsRow.Available = d("500")
	suite.Require().NoError(models.DB.Save(&savingsRow).Error)

	err := engine.Rollover(models.DB, budget.ID, march, april)
	suite.Require().NoError(err)

	row := suite.categoryBalance(rent.ID, "2024-04")
	suite.assertDecimal("0", row.Assigned)
	suite.assertDecimal("0", row.Activity)
	suite.assertDecimal("0", row.Available)

	row = suite.categoryBalance(savings.ID, "2024-04")
	suite.assertDecimal("0", row.Assigned)
	suite.assertDecimal("0", row.Activity)
	suite.assertDecimal("500", row.Available)

	// Running the rollover again must not change anything.
	suite.Require().NoError(engine.SetAssigned(models.DB, budget.ID, savings.ID, april, d("100")))
	err = engine.Rollover(models.DB, budget.ID, march, april)
	suite.Require().NoError(err)

	row = suite.categoryBalance(savings.ID, "2024-04")
	suite.assertDecimal("100", row.Assigned)
	suite.assertDecimal("600", row.Available)
}

func (suite *TestSuiteStandard) TestEnsureMonth() {
	budget := suite.createTestBudget(models.Budget{})
	group := suite.createTestCategoryGroup(models.CategoryGroup{BudgetID: budget.ID})
	category := suite.createTestCategory(models.Category{BudgetID: budget.ID, CategoryGroupID: group.ID})

	march := types.FromParts(2024, 3)
	june := types.FromParts(2024, 6)

	suite.Require().NoError(engine.SetAssigned(models.DB, budget.ID, category.ID, march, d("120")))

	// The gap between March and June is bridged from the latest month.
	err := engine.EnsureMonth(models.DB, budget.ID, june)
	suite.Require().NoError(err)

	row := suite.categoryBalance(category.ID, "2024-06")
	suite.assertDecimal("0", row.Assigned)
	suite.assertDecimal("120", row.Available)

	var count int64
	err = models.DB.Model(&models.CategoryBalance{}).
		Where(&models.CategoryBalance{BudgetID: budget.ID}).
		Count(&count).Error
	suite.Require().NoError(err)
	suite.Assert().Equal(int64(2), count, "only the source and target month should have rows")
}
