package engine_test

import (
	"time"

	"github.com/centsible/backend/internal/engine"
	"github.com/centsible/backend/internal/models"
)

func (suite *TestSuiteStandard) TestAddAndRemoveTransactionFromBalance() {
	budget := suite.createTestBudget(models.Budget{})
	account := suite.createTestAccount(models.Account{BudgetID: budget.ID})

	err := engine.AddTransactionToBalance(models.DB, account.ID, d("100"), true)
	suite.Require().NoError(err)
	err = engine.AddTransactionToBalance(models.DB, account.ID, d("-30"), false)
	suite.Require().NoError(err)

	reloaded := suite.reloadAccount(account)
	suite.assertDecimal("100", reloaded.ClearedBalance)
	suite.assertDecimal("-30", reloaded.UnclearedBalance)
	suite.assertDecimal("70", reloaded.WorkingBalance)

	// Removing both restores the initial state.
	err = engine.RemoveTransactionFromBalance(models.DB, account.ID, d("100"), true)
	suite.Require().NoError(err)
	err = engine.RemoveTransactionFromBalance(models.DB, account.ID, d("-30"), false)
	suite.Require().NoError(err)

	reloaded = suite.reloadAccount(account)
	suite.assertDecimal("0", reloaded.ClearedBalance)
	suite.assertDecimal("0", reloaded.UnclearedBalance)
	suite.assertDecimal("0", reloaded.WorkingBalance)
}

func (suite *TestSuiteStandard) TestAdjustForClearedToggle() {
	budget := suite.createTestBudget(models.Budget{})
	account := suite.createTestAccount(models.Account{BudgetID: budget.ID})

	suite.Require().NoError(engine.AddTransactionToBalance(models.DB, account.ID, d("50"), false))

	err := engine.AdjustForClearedToggle(models.DB, account.ID, d("50"), false, true)
	suite.Require().NoError(err)

	reloaded := suite.reloadAccount(account)
	suite.assertDecimal("50", reloaded.ClearedBalance)
	suite.assertDecimal("0", reloaded.UnclearedBalance)
	suite.assertDecimal("50", reloaded.WorkingBalance)

	// Toggling back is the identity.
	err = engine.AdjustForClearedToggle(models.DB, account.ID, d("50"), true, false)
	suite.Require().NoError(err)

	reloaded = suite.reloadAccount(account)
	suite.assertDecimal("0", reloaded.ClearedBalance)
	suite.assertDecimal("50", reloaded.UnclearedBalance)
	suite.assertDecimal("50", reloaded.WorkingBalance)
}

func (suite *TestSuiteStandard) TestRecomputeBalances() {
	budget := suite.createTestBudget(models.Budget{})
	account := suite.createTestAccount(models.Account{BudgetID: budget.ID})

	date := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	suite.createTestTransaction(models.Transaction{
		BudgetID: budget.ID, AccountID: account.ID, Date: date, Amount: d("100"), Cleared: true,
	})
	suite.createTestTransaction(models.Transaction{
		BudgetID: budget.ID, AccountID: account.ID, Date: date, Amount: d("-25"), Cleared: false,
	})
	suite.createTestTransaction(models.Transaction{
		BudgetID: budget.ID, AccountID: account.ID, Date: date, Amount: d("40"), Cleared: true, Reconciled: true,
	})

	// The reconciled transaction is absorbed by the account balance anchor.
	account.AccountBalance = d("40")
	suite.Require().NoError(models.DB.Model(&account).Select("AccountBalance").Updates(account).Error)

	err := engine.RecomputeBalances(models.DB, account.ID)
	suite.Require().NoError(err)

	reloaded := suite.reloadAccount(account)
	suite.assertDecimal("140", reloaded.ClearedBalance)
	suite.assertDecimal("-25", reloaded.UnclearedBalance)
	suite.assertDecimal("115", reloaded.WorkingBalance)
}
