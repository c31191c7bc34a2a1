package httptransport

import (
	"github.com/gin-gonic/gin"

	"mailplatform/backend/internal/middleware"
)

// ========== Domain Alias Handlers ==========

type createDomainAliasRequest struct {
	Alias  string `json:"alias" binding:"required"`
	Domain string `json:"domain" binding:"required"`
}

type renameDomainRequest struct {
	OldDomain string `json:"oldDomain" binding:"required"`
	NewDomain string `json:"newDomain" binding:"required"`
}

// listDomainAliases godoc
// @Summary 列出域名别名
// @Tags DomainAliases
// @Produce json
// @Param query query string false "别名子串"
// @Success 200 {object} Response{data=pagination.Page[domain.DomainAlias]}
// @Security BearerAuth
// @Router /v1/domainaliases [get]
func (h *Handler) listDomainAliases(c *gin.Context) {
	page, ok := bindPage(c)
	if !ok {
		return
	}

	result, err := h.aliases.ListDomainAliases(c.Request.Context(), middleware.AdminCaller(c), c.Query("query"), page)
	if err != nil {
		RespondError(c, err)
		return
	}

	Success(c, result)
}

// createDomainAlias godoc
// @Summary 创建域名别名
// @Tags DomainAliases
// @Accept json
// @Produce json
// @Param alias body createDomainAliasRequest true "别名与目标域名"
// @Success 201 {object} Response{data=domain.DomainAlias}
// @Failure 400 {object} Response
// @Failure 409 {object} Response
// @Security BearerAuth
// @Router /v1/domainaliases [post]
func (h *Handler) createDomainAlias(c *gin.Context) {
	var req createDomainAliasRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	alias, err := h.aliases.CreateDomainAlias(c.Request.Context(), middleware.AdminCaller(c), req.Alias, req.Domain)
	if err != nil {
		RespondError(c, err)
		return
	}

	Created(c, alias)
}

func (h *Handler) getDomainAlias(c *gin.Context) {
	alias, err := h.aliases.GetDomainAlias(c.Request.Context(), middleware.AdminCaller(c), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}

	Success(c, alias)
}

func (h *Handler) resolveDomainAlias(c *gin.Context) {
	alias, err := h.aliases.ResolveDomainAlias(c.Request.Context(), middleware.AdminCaller(c), c.Param("alias"))
	if err != nil {
		RespondError(c, err)
		return
	}

	Success(c, alias)
}

func (h *Handler) deleteDomainAlias(c *gin.Context) {
	if err := h.aliases.DeleteDomainAlias(c.Request.Context(), middleware.AdminCaller(c), c.Param("id")); err != nil {
		RespondError(c, err)
		return
	}

	SuccessWithMsg(c, "删除成功", nil)
}

// renameDomain godoc
// @Summary 迁移域名
// @Description 把旧域名下的地址、用户主地址、DKIM 记录与别名目标迁移到新域名。
// @Description 迁移不是原子的，部分失败在 failures 中逐阶段返回。
// @Tags Domains
// @Accept json
// @Produce json
// @Param request body renameDomainRequest true "新旧域名"
// @Success 200 {object} Response{data=service.RenameResult}
// @Failure 400 {object} Response
// @Failure 500 {object} Response
// @Security BearerAuth
// @Router /v1/domains/rename [post]
func (h *Handler) renameDomain(c *gin.Context) {
	var req renameDomainRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	result, err := h.renamer.RenameDomain(c.Request.Context(), middleware.AdminCaller(c), req.OldDomain, req.NewDomain)
	if err != nil {
		RespondError(c, err)
		return
	}

	if len(result.Failures) > 0 {
		SuccessWithMsg(c, "迁移部分完成", result)
		return
	}
	Success(c, result)
}
