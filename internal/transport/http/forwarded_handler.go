package httptransport

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"mailplatform/backend/internal/domain"
	"mailplatform/backend/internal/middleware"
	"mailplatform/backend/internal/service"
)

// ========== Forwarded Address Handlers ==========

type createForwardedRequest struct {
	Address       string            `json:"address" binding:"required"`
	Name          string            `json:"name"`
	Targets       []string          `json:"targets"`
	Forwards      int               `json:"forwards"`
	AllowWildcard bool              `json:"allowWildcard"`
	Autoreply     *domain.Autoreply `json:"autoreply"`
	Tags          []string          `json:"tags"`
}

type updateForwardedRequest struct {
	Address   *string           `json:"address"`
	Name      *string           `json:"name"`
	Targets   []string          `json:"targets"`
	Forwards  *int              `json:"forwards"`
	Autoreply *domain.Autoreply `json:"autoreply"`
	Tags      []string          `json:"tags"`
}

// createForwarded godoc
// @Summary 创建转发地址
// @Description targets 支持邮件地址、smtp(s):// 中继与 http(s):// 上传
// @Tags Forwarded
// @Accept json
// @Produce json
// @Param address body createForwardedRequest true "转发地址"
// @Success 201 {object} Response{data=domain.Address}
// @Failure 400 {object} Response
// @Failure 409 {object} Response
// @Security BearerAuth
// @Router /v1/addresses/forwarded [post]
func (h *Handler) createForwarded(c *gin.Context) {
	var req createForwardedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	address, err := h.forwarded.CreateForwarded(c.Request.Context(), middleware.AdminCaller(c), service.CreateForwardedInput{
		Address:       req.Address,
		Name:          req.Name,
		Targets:       req.Targets,
		Forwards:      req.Forwards,
		AllowWildcard: req.AllowWildcard,
		Autoreply:     req.Autoreply,
		Tags:          req.Tags,
	})
	if err != nil {
		RespondError(c, err)
		return
	}

	Created(c, address)
}

// getForwarded godoc
// @Summary 获取转发地址
// @Description 附带当前窗口的转发计数
// @Tags Forwarded
// @Produce json
// @Param id path string true "地址ID"
// @Success 200 {object} Response{data=service.ForwardedAddress}
// @Failure 404 {object} Response
// @Security BearerAuth
// @Router /v1/addresses/forwarded/{id} [get]
func (h *Handler) getForwarded(c *gin.Context) {
	address, err := h.forwarded.GetForwarded(c.Request.Context(), middleware.AdminCaller(c), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}

	Success(c, address)
}

func (h *Handler) updateForwarded(c *gin.Context) {
	var req updateForwardedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidJSON)
		return
	}

	address, err := h.forwarded.UpdateForwarded(c.Request.Context(), middleware.AdminCaller(c), c.Param("id"), service.UpdateForwardedInput{
		Address:   req.Address,
		Name:      req.Name,
		Targets:   req.Targets,
		Forwards:  req.Forwards,
		Autoreply: req.Autoreply,
		Tags:      req.Tags,
	})
	if err != nil {
		RespondError(c, err)
		return
	}

	Success(c, address)
}

func (h *Handler) deleteForwarded(c *gin.Context) {
	if err := h.forwarded.DeleteForwarded(c.Request.Context(), middleware.AdminCaller(c), c.Param("id")); err != nil {
		RespondError(c, err)
		return
	}

	SuccessWithMsg(c, "删除成功", nil)
}

// resolveAddress godoc
// @Summary 解析投递地址
// @Description 依次尝试 ID、精确地址、域名别名，allowWildcard 为 true 时再尝试通配地址
// @Tags Addresses
// @Produce json
// @Param address path string true "地址或地址ID"
// @Param allowWildcard query bool false "是否匹配通配地址"
// @Success 200 {object} Response{data=service.ResolvedAddress}
// @Failure 404 {object} Response
// @Security BearerAuth
// @Router /v1/addresses/resolve/{address} [get]
func (h *Handler) resolveAddress(c *gin.Context) {
	var opts service.ResolveOptions
	if raw := c.Query("allowWildcard"); raw != "" {
		allow, err := strconv.ParseBool(raw)
		if err != nil {
			BadRequest(c, MsgInvalidBool)
			return
		}
		opts.AllowWildcard = allow
	}

	resolved, err := h.resolver.ResolveAddress(c.Request.Context(), middleware.AdminCaller(c), c.Param("address"), opts)
	if err != nil {
		RespondError(c, err)
		return
	}

	Success(c, resolved)
}
