package httptransport

import (
	"strings"

	"github.com/gin-gonic/gin"

	"mailplatform/backend/internal/middleware"
	"mailplatform/backend/internal/pagination"
	"mailplatform/backend/internal/service"
)

// ========== Address Handlers ==========

type listAddressesRequest struct {
	Query        string `form:"query"`
	Tags         string `form:"tags"`         // 逗号分隔，任一匹配
	RequiredTags string `form:"requiredTags"` // 逗号分隔，全部匹配
	Forward      string `form:"forward"`
}

type createUserAddressRequest struct {
	Address       string   `json:"address" binding:"required"`
	Name          string   `json:"name"`
	Main          bool     `json:"main"`
	Tags          []string `json:"tags"`
	AllowWildcard bool     `json:"allowWildcard"`
}

type updateUserAddressRequest struct {
	Address *string  `json:"address"`
	Name    *string  `json:"name"`
	Main    *bool    `json:"main"`
	Tags    []string `json:"tags"`
}

// splitList 解析逗号分隔的查询参数
func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func bindPage(c *gin.Context) (pagination.Request, bool) {
	var page pagination.Request
	if err := c.ShouldBindQuery(&page); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return page, false
	}
	return page, true
}

// listAddresses godoc
// @Summary 列出地址
// @Tags Addresses
// @Produce json
// @Param query query string false "addrview 子串"
// @Param tags query string false "任一标签"
// @Param requiredTags query string false "全部标签"
// @Param forward query string false "转发目标子串"
// @Success 200 {object} Response{data=pagination.Page[domain.Address]}
// @Security BearerAuth
// @Router /v1/addresses [get]
func (h *Handler) listAddresses(c *gin.Context) {
	var req listAddressesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}
	page, ok := bindPage(c)
	if !ok {
		return
	}

	result, err := h.addresses.ListAddresses(c.Request.Context(), middleware.AdminCaller(c), service.ListAddressesQuery{
		Query:        req.Query,
		Tags:         splitList(req.Tags),
		RequiredTags: splitList(req.RequiredTags),
		Forward:      req.Forward,
		Page:         page,
	})
	if err != nil {
		RespondError(c, err)
		return
	}

	Success(c, result)
}

// listUserAddresses godoc
// @Summary 列出用户的全部地址
// @Tags Addresses
// @Produce json
// @Param user path string true "用户ID"
// @Success 200 {object} Response{data=[]service.UserAddress}
// @Security BearerAuth
// @Router /v1/users/{user}/addresses [get]
func (h *Handler) listUserAddresses(c *gin.Context) {
	userID := c.Param("user")

	addresses, err := h.addresses.ListUserAddresses(c.Request.Context(), middleware.OwnerCaller(c, userID), userID)
	if err != nil {
		RespondError(c, err)
		return
	}

	Success(c, gin.H{"results": addresses})
}

// createUserAddress godoc
// @Summary 为用户创建地址
// @Tags Addresses
// @Accept json
// @Produce json
// @Param user path string true "用户ID"
// @Param address body createUserAddressRequest true "地址信息"
// @Success 201 {object} Response{data=service.UserAddress}
// @Failure 400 {object} Response
// @Failure 409 {object} Response
// @Security BearerAuth
// @Router /v1/users/{user}/addresses [post]
func (h *Handler) createUserAddress(c *gin.Context) {
	userID := c.Param("user")

	var req createUserAddressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	address, err := h.addresses.CreateUserAddress(c.Request.Context(), middleware.OwnerCaller(c, userID), userID, service.CreateUserAddressInput{
		Address:       req.Address,
		Name:          req.Name,
		Main:          req.Main,
		Tags:          req.Tags,
		AllowWildcard: req.AllowWildcard,
	})
	if err != nil {
		RespondError(c, err)
		return
	}

	Created(c, address)
}

func (h *Handler) getUserAddress(c *gin.Context) {
	userID := c.Param("user")

	address, err := h.addresses.GetUserAddress(c.Request.Context(), middleware.OwnerCaller(c, userID), userID, c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}

	Success(c, address)
}

// updateUserAddress godoc
// @Summary 修改用户地址
// @Description 改名、设为主地址、修改标签；tags 缺省表示不变
// @Tags Addresses
// @Accept json
// @Produce json
// @Param user path string true "用户ID"
// @Param id path string true "地址ID"
// @Param address body updateUserAddressRequest true "修改内容"
// @Success 200 {object} Response{data=service.UserAddress}
// @Security BearerAuth
// @Router /v1/users/{user}/addresses/{id} [put]
func (h *Handler) updateUserAddress(c *gin.Context) {
	userID := c.Param("user")

	var req updateUserAddressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidJSON)
		return
	}

	address, err := h.addresses.UpdateUserAddress(c.Request.Context(), middleware.OwnerCaller(c, userID), userID, c.Param("id"), service.UpdateUserAddressInput{
		Address: req.Address,
		Name:    req.Name,
		Main:    req.Main,
		Tags:    req.Tags,
	})
	if err != nil {
		RespondError(c, err)
		return
	}

	Success(c, address)
}

func (h *Handler) deleteUserAddress(c *gin.Context) {
	userID := c.Param("user")

	if err := h.addresses.DeleteUserAddress(c.Request.Context(), middleware.OwnerCaller(c, userID), userID, c.Param("id")); err != nil {
		RespondError(c, err)
		return
	}

	SuccessWithMsg(c, "删除成功", nil)
}
