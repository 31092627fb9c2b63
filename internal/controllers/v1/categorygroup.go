package v1

import (
	"net/http"

	"github.com/centsible/backend/internal/httputil"
	"github.com/centsible/backend/internal/models"
	ez_uuid "github.com/centsible/backend/internal/uuid"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// RegisterCategoryGroupRoutes registers the routes for CategoryGroups with
// the RouterGroup that is passed.
func RegisterCategoryGroupRoutes(r *gin.RouterGroup) {
	// Root group
	{
		r.OPTIONS("", OptionsCategoryGroupList)
		r.GET("", GetCategoryGroups)
		r.POST("", CreateCategoryGroup)
		r.POST("/reorder", ReorderCategoryGroups)
	}

	// Category group with ID
	{
		r.OPTIONS("/:id", OptionsCategoryGroupDetail)
		r.GET("/:id", GetCategoryGroup)
		r.PATCH("/:id", UpdateCategoryGroup)
		r.DELETE("/:id", DeleteCategoryGroup)
	}
}

// CategoryGroupEditable represents all user configurable parameters of a
// category group
type CategoryGroupEditable struct {
	BudgetID     ez_uuid.UUID `json:"budgetId" example:"52d967d3-33f4-4b04-9ba7-772e5ab9d0ce"`
	Name         string       `json:"name" example:"Fixed Costs"`
	DisplayOrder uint         `json:"displayOrder" example:"2"`
}

type CategoryGroupResponse struct {
	Data models.CategoryGroup `json:"data"`
}

type CategoryGroupListResponse struct {
	Data []models.CategoryGroup `json:"data"`
}

// GroupReorderRequest is the body for reordering category groups.
type GroupReorderRequest struct {
	GroupIDs []ez_uuid.UUID `json:"groupIds"`
}

// @Summary		Allowed HTTP verbs
// @Tags			CategoryGroups
// @Success		204
// @Router			/v1/category-groups [options]
func OptionsCategoryGroupList(c *gin.Context) {
	httputil.OptionsGetPost(c)
}

// @Summary		Allowed HTTP verbs
// @Tags			CategoryGroups
// @Success		204
// @Param			id	path	string	true	"ID of the category group"
// @Router			/v1/category-groups/{id} [options]
func OptionsCategoryGroupDetail(c *gin.Context) {
	httputil.OptionsGetPatchDelete(c)
}

func getCategoryGroup(c *gin.Context) (models.CategoryGroup, bool) {
	var uri URIID
	err := c.ShouldBindUri(&uri)
	if err != nil {
		abortError(c, httputil.ErrInvalidBody)
		return models.CategoryGroup{}, false
	}

	var group models.CategoryGroup
	err = models.DB.First(&group, "id = ?", uri.ID.UUID).Error
	if err != nil {
		abortError(c, err)
		return models.CategoryGroup{}, false
	}

	err = checkBudgetAccess(c, group.BudgetID)
	if err != nil {
		abortError(c, err)
		return models.CategoryGroup{}, false
	}

	return group, true
}

// @Summary		Create category group
// @Tags			CategoryGroups
// @Accept			json
// @Produce		json
// @Success		201	{object}	CategoryGroupResponse
// @Failure		400	{object}	httpError
// @Failure		409	{object}	httpError
// @Param			group	body	CategoryGroupEditable	true	"Category group"
// @Router			/v1/category-groups [post]
func CreateCategoryGroup(c *gin.Context) {
	var editable CategoryGroupEditable
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

	group := models.CategoryGroup{
		BudgetID:     editable.BudgetID.UUID,
		Name:         editable.Name,
		DisplayOrder: editable.DisplayOrder,
	}

	err = models.DB.Create(&group).Error
	if err != nil {
		abortError(c, err)
		return
	}

	c.JSON(http.StatusCreated, CategoryGroupResponse{Data: group})
}

// @Summary		List category groups
// @Tags			CategoryGroups
// @Produce		json
// @Success		200	{object}	CategoryGroupListResponse
// @Failure		400	{object}	httpError
// @Param			budget	query	string	true	"ID of the budget"
// @Router			/v1/category-groups [get]
func GetCategoryGroups(c *gin.Context) {
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

	var groups []models.CategoryGroup
	err = models.DB.
		Where(&models.CategoryGroup{BudgetID: query.Budget.UUID}).
		Order("display_order ASC, name ASC").
		Find(&groups).Error
	if err != nil {
		abortError(c, err)
		return
	}

	c.JSON(http.StatusOK, CategoryGroupListResponse{Data: groups})
}

// @Summary		Get category group
// @Tags			CategoryGroups
// @Produce		json
// @Success		200	{object}	CategoryGroupResponse
// @Failure		404	{object}	httpError
// @Param			id	path	string	true	"ID of the category group"
// @Router			/v1/category-groups/{id} [get]
func GetCategoryGroup(c *gin.Context) {
	group, ok := getCategoryGroup(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, CategoryGroupResponse{Data: group})
}

// @Summary		Update category group
// @Description	Updates the name and display order. System groups cannot be changed.
// @Tags			CategoryGroups
// @Accept			json
// @Produce		json
// @Success		200	{object}	CategoryGroupResponse
// @Failure		400	{object}	httpError
// @Failure		404	{object}	httpError
// @Param			id		path	string					true	"ID of the category group"
// @Param			group	body	CategoryGroupEditable	true	"Category group"
// @Router			/v1/category-groups/{id} [patch]
func UpdateCategoryGroup(c *gin.Context) {
	group, ok := getCategoryGroup(c)
	if !ok {
		return
	}

	if group.IsSystemGroup {
		abortError(c, models.ErrSystemGroupImmutable)
		return
	}

	editable := CategoryGroupEditable{
		Name:         group.Name,
		DisplayOrder: group.DisplayOrder,
	}
	err := httputil.BindData(c, &editable)
	if err != nil {
		abortError(c, err)
		return
	}

	group.Name = editable.Name
	group.DisplayOrder = editable.DisplayOrder

	err = models.DB.Save(&group).Error
	if err != nil {
		abortError(c, err)
		return
	}

	c.JSON(http.StatusOK, CategoryGroupResponse{Data: group})
}

// @Summary		Delete category group
// @Description	Deletes an empty category group. System groups and groups that still contain categories cannot be deleted.
// @Tags			CategoryGroups
// @Success		204
// @Failure		400	{object}	httpError
// @Failure		404	{object}	httpError
// @Failure		409	{object}	httpError
// @Param			id	path	string	true	"ID of the category group"
// @Router			/v1/category-groups/{id} [delete]
func DeleteCategoryGroup(c *gin.Context) {
	group, ok := getCategoryGroup(c)
	if !ok {
		return
	}

	if group.IsSystemGroup {
		abortError(c, models.ErrSystemGroupImmutable)
		return
	}

	var count int64
	err := models.DB.Model(&models.Category{}).
		Where("category_group_id = ?", group.ID).
		Count(&count).Error
	if err != nil {
		abortError(c, err)
		return
	}
	if count > 0 {
		abortError(c, models.ErrGroupNotEmpty)
		return
	}

	err = models.DB.Delete(&group).Error
	if err != nil {
		abortError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// @Summary		Reorder category groups
// @Description	Sets the display order of the given groups to their position in the list
// @Tags			CategoryGroups
// @Accept			json
// @Success		204
// @Failure		400	{object}	httpError
// @Param			request	body	GroupReorderRequest	true	"Group IDs in display order"
// @Router			/v1/category-groups/reorder [post]
func ReorderCategoryGroups(c *gin.Context) {
	var request GroupReorderRequest
	err := httputil.BindData(c, &request)
	if err != nil {
		abortError(c, err)
		return
	}

	// Loading and access checks happen before the transaction opens. The
	// database runs on a single connection, a query outside tx would wait
	// for the connection the transaction holds.
	groups := make([]models.CategoryGroup, 0, len(request.GroupIDs))
	for _, id := range request.GroupIDs {
		var group models.CategoryGroup
		err := models.DB.First(&group, "id = ?", id.UUID).Error
		if err != nil {
			abortError(c, err)
			return
		}

		err = checkBudgetAccess(c, group.BudgetID)
		if err != nil {
			abortError(c, err)
			return
		}

		groups = append(groups, group)
	}

	err = models.DB.Transaction(func(tx *gorm.DB) error {
		for position, group := range groups {
			err := tx.Model(&group).Update("display_order", position).Error
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
