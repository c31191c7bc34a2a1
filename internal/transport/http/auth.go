package httptransport

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	jwtpkg "mailplatform/backend/internal/auth/jwt"
)

// AuthHandler 令牌相关接口。令牌由外部身份系统签发，这里只负责续期。
type AuthHandler struct {
	jwtManager *jwtpkg.Manager
	log        *zap.Logger
}

// NewAuthHandler 创建认证处理器
func NewAuthHandler(jwtManager *jwtpkg.Manager, log *zap.Logger) *AuthHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthHandler{
		jwtManager: jwtManager,
		log:        log,
	}
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

type refreshResponse struct {
	AccessToken string `json:"accessToken"`
	ExpiresIn   int64  `json:"expiresIn"`
}

// Refresh 刷新访问令牌
// @Summary 刷新访问令牌
// @Tags 认证
// @Accept json
// @Produce json
// @Param request body refreshRequest true "包含刷新令牌的请求"
// @Success 200 {object} Response{data=refreshResponse}
// @Failure 400 {object} Response "请求参数错误"
// @Failure 401 {object} Response "刷新令牌无效或已过期"
// @Router /v1/auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	accessToken, err := h.jwtManager.RefreshAccessToken(req.RefreshToken)
	if err != nil {
		switch {
		case errors.Is(err, jwtpkg.ErrExpiredToken):
			Unauthorized(c, MsgTokenExpired)
		case errors.Is(err, jwtpkg.ErrInvalidToken), errors.Is(err, jwtpkg.ErrUnknownRole),
			errors.Is(err, jwtpkg.ErrWrongTokenType):
			Unauthorized(c, MsgTokenInvalid)
		default:
			h.log.Error("failed to refresh token", zap.Error(err))
			RespondError(c, err)
		}
		return
	}

	Success(c, refreshResponse{
		AccessToken: accessToken,
		ExpiresIn:   int64(h.jwtManager.AccessExpiry().Seconds()),
	})
}
