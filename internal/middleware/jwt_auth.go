package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"mailplatform/backend/internal/auth/jwt"
	"mailplatform/backend/internal/domain"
)

// 上下文键
const (
	ContextCallerID = "callerID"
	ContextRole     = "role"
)

// JWTAuth JWT认证中间件
type JWTAuth struct {
	jwtManager *jwt.Manager
	log        *zap.Logger
}

// NewJWTAuth 创建JWT认证中间件
func NewJWTAuth(jwtManager *jwt.Manager, log *zap.Logger) *JWTAuth {
	if log == nil {
		log = zap.NewNop()
	}
	return &JWTAuth{
		jwtManager: jwtManager,
		log:        log,
	}
}

// RequireAuth 要求JWT认证
func (ja *JWTAuth) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := ja.extractToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code": http.StatusUnauthorized,
				"msg":  "需要登录认证",
			})
			return
		}

		claims, err := ja.jwtManager.ValidateAccessToken(token)
		if err != nil {
			ja.log.Warn("invalid token",
				zap.Error(err),
				zap.String("ip", c.ClientIP()),
			)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code": http.StatusUnauthorized,
				"msg":  "无效的访问令牌",
			})
			return
		}

		// 将调用方信息存储到上下文
		c.Set(ContextCallerID, claims.UserID)
		c.Set(ContextRole, claims.Role)

		c.Next()
	}
}

// extractToken 从请求中提取JWT token
func (ja *JWTAuth) extractToken(c *gin.Context) string {
	// 1. 从 Authorization header 提取
	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && parts[0] == "Bearer" {
			return parts[1]
		}
	}

	// 2. 从 cookie 提取
	token, err := c.Cookie("access_token")
	if err == nil && token != "" {
		return token
	}

	return ""
}

// AdminCaller 只有管理员获得授权
func AdminCaller(c *gin.Context) domain.Caller {
	id, role := callerFrom(c)
	return domain.Caller{ID: id, Allowed: role == jwt.RoleAdmin}
}

// OwnerCaller 管理员或用户本人获得授权
func OwnerCaller(c *gin.Context, userID string) domain.Caller {
	id, role := callerFrom(c)
	allowed := role == jwt.RoleAdmin || (role == jwt.RoleUser && id != "" && id == userID)
	return domain.Caller{ID: id, Allowed: allowed}
}

func callerFrom(c *gin.Context) (string, jwt.Role) {
	id := c.GetString(ContextCallerID)
	role, _ := c.Get(ContextRole)
	r, _ := role.(jwt.Role)
	return id, r
}
