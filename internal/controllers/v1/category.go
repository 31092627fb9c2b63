package v1

import (
	"net/http"

	"github.com/centsible/backend/internal/engine"
	"github.com/centsible/backend/internal/httputil"
	"github.com/centsible/backend/internal/models"
	ez_uuid "github.com/centsible/backend/internal/uuid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// RegisterCategoryRoutes registers the routes for Categories with
// the RouterGroup that is passed.
func RegisterCategoryRoutes(r *gin.RouterGroup) {
	// Root group
	{
		r.OPTIONS("", OptionsCategoryList)
		r.GET("", GetCategories)
		r.POST("", CreateCategory)
		r.POST("/reorder", ReorderCategories)
		r.POST("/move-money", MoveMoney)
	}

	// Category with ID
	{
		r.OPTIONS("/:id", OptionsCategoryDetail)
		r.GET("/:id", GetCategory)
		r.PATCH("/:id", UpdateCategory)

		r.POST("/:id/hide", HideCategory)
		r.POST("/:id/unhide", UnhideCategory)
		r.POST("/:id/move-to-ready-to-assign", MoveToReadyToAssign)
		r.POST("/:id/pull-from-ready-to-assign", PullFromReadyToAssign)
	}
}

// CategoryEditable represents all user configurable parameters of a category
type CategoryEditable struct {
	BudgetID        ez_uuid.UUID `json:"budgetId" example:"52d967d3-33f4-4b04-9ba7-772e5ab9d0ce"`
	CategoryGroupID ez_uuid.UUID `json:"categoryGroupId" example:"e6fa8eb5-5f2c-4292-8ef9-02f0c2af1ce4"`
	Name            string       `json:"name" example:"Groceries"`
	DisplayOrder    uint         `json:"displayOrder" example:"1"`

	// Assigned sets the assigned amount for the user's current month to an
	// absolute value when present.
	Assigned *decimal.Decimal `json:"assigned,omitempty" example:"150.00"`
}

type CategoryResponse struct {
	Data models.Category `json:"data"`
}

type CategoryListResponse struct {
	Data []models.Category `json:"data"`
}

// CategoryUpdateResponse carries the updated category and, when the update
// changed the assigned amount, the resulting balance state.
type CategoryUpdateResponse struct {
	Data       models.Category      `json:"data"`
	Assignment *engine.AssignResult `json:"assignment,omitempty"`
}

// MoveMoneyRequest is the body for moving available money between categories.
type MoveMoneyRequest struct {
	FromCategoryID ez_uuid.UUID    `json:"fromCategoryId"`
	ToCategoryID   ez_uuid.UUID    `json:"toCategoryId"`
	Amount         decimal.Decimal `json:"amount" example:"25.00"`
}

// AmountRequest is the body for operations that only take an amount.
type AmountRequest struct {
	Amount decimal.Decimal `json:"amount" example:"25.00"`
}

// BatchAssignRequest is the body for assigning to multiple categories at once.
type BatchAssignRequest struct {
	Assignments []engine.Assignment `json:"assignments"`
}

type AssignResponse struct {
	Data engine.AssignResult `json:"data"`
}

// CategoryReorderRequest is the body for reordering categories.
type CategoryReorderRequest struct {
	CategoryIDs []ez_uuid.UUID `json:"categoryIds"`
}

// @Summary		Allowed HTTP verbs
// @Tags			Categories
// @Success		204
// @Router			/v1/categories [options]
func OptionsCategoryList(c *gin.Context) {
	httputil.OptionsGetPost(c)
}

// @Summary		Allowed HTTP verbs
// @Tags			Categories
// @Success		204
// @Param			id	path	string	true	"ID of the category"
// @Router			/v1/categories/{id} [options]
func OptionsCategoryDetail(c *gin.Context) {
	httputil.OptionsGetPatch(c)
}

func getCategory(c *gin.Context) (models.Category, bool) {
	var uri URIID
	err := c.ShouldBindUri(&uri)
	if err != nil {
		abortError(c, httputil.ErrInvalidBody)
		return models.Category{}, false
	}

	var category models.Category
	err = models.DB.First(&category, "id = ?", uri.ID.UUID).Error
	if err != nil {
		abortError(c, err)
		return models.Category{}, false
	}

	err = checkBudgetAccess(c, category.BudgetID)
	if err != nil {
		abortError(c, err)
		return models.Category{}, false
	}

	return category, true
}

// @Summary		Create category
// @Description	Creates a new category. Categories cannot be created in system groups.
// @Tags			Categories
// @Accept			json
// @Produce		json
// @Success		201	{object}	CategoryResponse
// @Failure		400	{object}	httpError
// @Failure		409	{object}	httpError
// @Param			category	body	CategoryEditable	true	"Category"
// @Router			/v1/categories [post]
func CreateCategory(c *gin.Context) {
	var editable CategoryEditable
	err := httputil.BindData(c, &editable)
	if err != nil {
		abortError(c, err)
		return
	}

	err = checkBudgetAccess(c, editable.BudgetID.UUID)
	if err != nil {
		abortError(c, err)
		return
	}

	var group models.CategoryGroup
	err = models.DB.First(&group, "id = ? AND budget_id = ?", editable.CategoryGroupID.UUID, editable.BudgetID.UUID).Error
	if err != nil {
		abortError(c, err)
		return
	}
	if group.IsSystemGroup {
		abortError(c, models.ErrSystemGroupManualCategory)
		return
	}

	category := models.Category{
		BudgetID:        editable.BudgetID.UUID,
		CategoryGroupID: editable.CategoryGroupID.UUID,
		Name:            editable.Name,
		DisplayOrder:    editable.DisplayOrder,
	}

	err = models.DB.Create(&category).Error
	if err != nil {
		abortError(c, err)
		return
	}

	c.JSON(http.StatusCreated, CategoryResponse{Data: category})
}

// @Summary		List categories
// @Tags			Categories
// @Produce		json
// @Success		200	{object}	CategoryListResponse
// @Failure		400	{object}	httpError
// @Param			budget	query	string	true	"ID of the budget"
// @Router			/v1/categories [get]
func GetCategories(c *gin.Context) {
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

	var categories []models.Category
	err = models.DB.
		Where(&models.Category{BudgetID: query.Budget.UUID}).
		Order("display_order ASC, name ASC").
		Find(&categories).Error
	if err != nil {
		abortError(c, err)
		return
	}

	c.JSON(http.StatusOK, CategoryListResponse{Data: categories})
}

// @Summary		Get category
// @Tags			Categories
// @Produce		json
// @Success		200	{object}	CategoryResponse
// @Failure		404	{object}	httpError
// @Param			id	path	string	true	"ID of the category"
// @Router			/v1/categories/{id} [get]
func GetCategory(c *gin.Context) {
	category, ok := getCategory(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, CategoryResponse{Data: category})
}

// @Summary		Update category
// @Description	Updates name and display order. When the assigned amount is set, it becomes the absolute assigned value for the user's current month.
// @Tags			Categories
// @Accept			json
// @Produce		json
// @Success		200	{object}	CategoryUpdateResponse
// @Failure		400	{object}	httpError
// @Failure		404	{object}	httpError
// @Param			id			path	string				true	"ID of the category"
// @Param			category	body	CategoryEditable	true	"Category"
// @Router			/v1/categories/{id} [patch]
func UpdateCategory(c *gin.Context) {
	category, ok := getCategory(c)
	if !ok {
		return
	}

	editable := CategoryEditable{
		Name:         category.Name,
		DisplayOrder: category.DisplayOrder,
	}
	err := httputil.BindData(c, &editable)
	if err != nil {
		abortError(c, err)
		return
	}

	category.Name = editable.Name
	category.DisplayOrder = editable.DisplayOrder

	err = models.DB.Save(&category).Error
	if err != nil {
		abortError(c, err)
		return
	}

	response := CategoryUpdateResponse{Data: category}

	if editable.Assigned != nil {
		user, err := userContext(c)
		if err != nil {
			abortError(c, err)
			return
		}

		result, err := engine.AssignCategory(models.DB, user, category.ID, *editable.Assigned)
		if err != nil {
			abortError(c, err)
			return
		}
		response.Assignment = &result
	}

	c.JSON(http.StatusOK, response)
}

// @Summary		Hide category
// @Description	Moves the category into the hidden system group, remembering where it came from
// @Tags			Categories
// @Produce		json
// @Success		200	{object}	CategoryResponse
// @Failure		404	{object}	httpError
// @Param			id	path	string	true	"ID of the category"
// @Router			/v1/categories/{id}/hide [post]
func HideCategory(c *gin.Context) {
	category, ok := getCategory(c)
	if !ok {
		return
	}

	hidden, err := models.SystemGroup(models.DB, category.BudgetID, models.GroupNameHidden)
	if err != nil {
		abortError(c, err)
		return
	}

	if category.CategoryGroupID == hidden.ID {
		c.JSON(http.StatusOK, CategoryResponse{Data: category})
		return
	}

	previous := category.CategoryGroupID
	category.PreviousGroupID = &previous
	category.CategoryGroupID = hidden.ID

	err = models.DB.Model(&category).
		Select("PreviousGroupID", "CategoryGroupID").
		Updates(category).Error
	if err != nil {
		abortError(c, err)
		return
	}

	c.JSON(http.StatusOK, CategoryResponse{Data: category})
}

// @Summary		Unhide category
// @Description	Moves the category back to the group it was hidden from. Payment categories always return to the Credit Card Payments group.
// @Tags			Categories
// @Produce		json
// @Success		200	{object}	CategoryResponse
// @Failure		400	{object}	httpError
// @Failure		404	{object}	httpError
// @Param			id	path	string	true	"ID of the category"
// @Router			/v1/categories/{id}/unhide [post]
func UnhideCategory(c *gin.Context) {
	category, ok := getCategory(c)
	if !ok {
		return
	}

	hidden, err := models.SystemGroup(models.DB, category.BudgetID, models.GroupNameHidden)
	if err != nil {
		abortError(c, err)
		return
	}
	if category.CategoryGroupID != hidden.ID {
		abortError(c, models.ErrCategoryNotHidden)
		return
	}

	isPayment, err := category.IsPaymentCategory(models.DB)
	if err != nil {
		abortError(c, err)
		return
	}

	var targetID ez_uuid.UUID
	if isPayment {
		group, err := models.SystemGroup(models.DB, category.BudgetID, models.GroupNameCreditCardPayments)
		if err != nil {
			abortError(c, err)
			return
		}
		targetID.UUID = group.ID
	} else {
		if category.PreviousGroupID == nil {
			abortError(c, models.ErrPreviousGroupGone)
			return
		}

		var previous models.CategoryGroup
		err = models.DB.First(&previous, "id = ?", *category.PreviousGroupID).Error
		if err != nil {
			abortError(c, models.ErrPreviousGroupGone)
			return
		}
		targetID.UUID = previous.ID
	}

	category.CategoryGroupID = targetID.UUID
	category.PreviousGroupID = nil

	err = models.DB.Model(&category).
		Updates(map[string]any{
			"previous_group_id": nil,
			"category_group_id": targetID.UUID,
		}).Error
	if err != nil {
		abortError(c, err)
		return
	}

	c.JSON(http.StatusOK, CategoryResponse{Data: category})
}

// @Summary		Move money between categories
// @Description	Moves available money from one category to another for the user's current month
// @Tags			Categories
// @Accept			json
// @Produce		json
// @Success		200	{object}	AssignResponse
// @Failure		400	{object}	httpError
// @Failure		404	{object}	httpError
// @Param			request	body	MoveMoneyRequest	true	"Move"
// @Router			/v1/categories/move-money [post]
func MoveMoney(c *gin.Context) {
	var request MoveMoneyRequest
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

	if !checkCategoryAccess(c, request.FromCategoryID.UUID) || !checkCategoryAccess(c, request.ToCategoryID.UUID) {
		return
	}

	result, err := engine.MoveMoney(models.DB, user, request.FromCategoryID.UUID, request.ToCategoryID.UUID, request.Amount)
	if err != nil {
		abortError(c, err)
		return
	}

	c.JSON(http.StatusOK, AssignResponse{Data: result})
}

// @Summary		Move money to Ready-to-Assign
// @Description	Takes assigned money out of the category, making it assignable again
// @Tags			Categories
// @Accept			json
// @Produce		json
// @Success		200	{object}	AssignResponse
// @Failure		400	{object}	httpError
// @Failure		404	{object}	httpError
// @Param			id		path	string			true	"ID of the category"
// @Param			request	body	AmountRequest	true	"Amount"
// @Router			/v1/categories/{id}/move-to-ready-to-assign [post]
func MoveToReadyToAssign(c *gin.Context) {
	category, ok := getCategory(c)
	if !ok {
		return
	}

	var request AmountRequest
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

	result, err := engine.MoveMoneyToReadyToAssign(models.DB, user, category.ID, request.Amount)
	if err != nil {
		abortError(c, err)
		return
	}

	c.JSON(http.StatusOK, AssignResponse{Data: result})
}

// @Summary		Pull money from Ready-to-Assign
// @Description	Assigns money from Ready-to-Assign to the category
// @Tags			Categories
// @Accept			json
// @Produce		json
// @Success		200	{object}	AssignResponse
// @Failure		400	{object}	httpError
// @Failure		404	{object}	httpError
// @Param			id		path	string			true	"ID of the category"
// @Param			request	body	AmountRequest	true	"Amount"
// @Router			/v1/categories/{id}/pull-from-ready-to-assign [post]
func PullFromReadyToAssign(c *gin.Context) {
	category, ok := getCategory(c)
	if !ok {
		return
	}

	var request AmountRequest
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

	result, err := engine.PullMoneyFromReadyToAssign(models.DB, user, category.ID, request.Amount)
	if err != nil {
		abortError(c, err)
		return
	}

	c.JSON(http.StatusOK, AssignResponse{Data: result})
}

// @Summary		Batch assign
// @Description	Adds the given amounts to the assigned sums of multiple categories in one operation
// @Tags			Budgets
// @Accept			json
// @Produce		json
// @Success		200	{object}	AssignResponse
// @Failure		400	{object}	httpError
// @Failure		404	{object}	httpError
// @Param			id		path	string				true	"ID of the budget"
// @Param			request	body	BatchAssignRequest	true	"Assignments"
// @Router			/v1/budgets/{id}/batch-assign [post]
func BatchAssign(c *gin.Context) {
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

	var request BatchAssignRequest
	err = httputil.BindData(c, &request)
	if err != nil {
		abortError(c, err)
		return
	}

	user, err := userContext(c)
	if err != nil {
		abortError(c, err)
		return
	}

	result, err := engine.BatchAssign(models.DB, user, budget.ID, request.Assignments)
	if err != nil {
		abortError(c, err)
		return
	}

	c.JSON(http.StatusOK, AssignResponse{Data: result})
}

// checkCategoryAccess verifies the requester owns the budget of the category,
// aborting the request otherwise.
func checkCategoryAccess(c *gin.Context, categoryID uuid.UUID) bool {
	var category models.Category
	err := models.DB.First(&category, "id = ?", categoryID).Error
	if err != nil {
		abortError(c, err)
		return false
	}

	err = checkBudgetAccess(c, category.BudgetID)
	if err != nil {
		abortError(c, err)
		return false
	}

	return true
}

// @Summary		Reorder categories
// @Description	Sets the display order of the given categories to their position in the list
// @Tags			Categories
// @Accept			json
// @Success		204
// @Failure		400	{object}	httpError
// @Param			request	body	CategoryReorderRequest	true	"Category IDs in display order"
// @Router			/v1/categories/reorder [post]
func ReorderCategories(c *gin.Context) {
	var request CategoryReorderRequest
	err := httputil.BindData(c, &request)
	if err != nil {
		abortError(c, err)
		return
	}

	// Loading and access checks happen before the transaction opens. The
	// database runs on a single connection, a query outside tx would wait
	// for the connection the transaction holds.
	categories := make([]models.Category, 0, len(request.CategoryIDs))
	for _, id := range request.CategoryIDs {
		var category models.Category
		err := models.DB.First(&category, "id = ?", id.UUID).Error
		if err != nil {
			abortError(c, err)
			return
		}

		err = checkBudgetAccess(c, category.BudgetID)
		if err != nil {
			abortError(c, err)
			return
		}

		categories = append(categories, category)
	}

	err = models.DB.Transaction(func(tx *gorm.DB) error {
		for position, category := range categories {
			err := tx.Model(&category).Update("display_order", position).Error
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
