package httptransport

import (
	"time"

	gincors "github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	jwtpkg "mailplatform/backend/internal/auth/jwt"
	"mailplatform/backend/internal/config"
	"mailplatform/backend/internal/health"
	"mailplatform/backend/internal/middleware"
	"mailplatform/backend/internal/monitoring"
	"mailplatform/backend/internal/service"
)

// Handler 聚合目录接口的处理逻辑。
type Handler struct {
	addresses *service.AddressService
	forwarded *service.ForwardedService
	resolver  *service.Resolver
	aliases   *service.DomainAliasService
	renamer   *service.DomainRenameMigrator
}

// RouterDependencies 路由器依赖项
type RouterDependencies struct {
	Config             *config.Config
	AddressService     *service.AddressService
	ForwardedService   *service.ForwardedService
	Resolver           *service.Resolver
	DomainAliasService *service.DomainAliasService
	RenameMigrator     *service.DomainRenameMigrator
	JWTManager         *jwtpkg.Manager
	HealthChecker      *health.HealthChecker
	Metrics            *monitoring.Metrics // 为 nil 时不暴露 /metrics
	Logger             *zap.Logger
}

// NewRouter 创建并返回 Gin 路由实例。
func NewRouter(deps RouterDependencies) *gin.Engine {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}

	router := gin.New()

	router.Use(middleware.HTTPMetrics(deps.Metrics))
	router.Use(middleware.RecoveryHandler(log, deps.Metrics))
	router.Use(middleware.RequestLogger(log))
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.BodySizeLimit(middleware.DefaultBodyLimit))

	// CORS 配置
	corsConfig := gincors.Config{
		AllowOrigins:     deps.Config.CORS.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}

	// 如果允许所有来源，则需清空凭证支持。
	for _, origin := range corsConfig.AllowOrigins {
		if origin == "*" {
			corsConfig.AllowCredentials = false
			break
		}
	}
	if len(corsConfig.AllowOrigins) > 0 {
		router.Use(gincors.New(corsConfig))
	}

	handler := &Handler{
		addresses: deps.AddressService,
		forwarded: deps.ForwardedService,
		resolver:  deps.Resolver,
		aliases:   deps.DomainAliasService,
		renamer:   deps.RenameMigrator,
	}
	authHandler := NewAuthHandler(deps.JWTManager, log)
	jwtAuth := middleware.NewJWTAuth(deps.JWTManager, log)

	// 健康检查与指标
	if deps.HealthChecker != nil {
		router.GET("/health/live", gin.WrapF(deps.HealthChecker.LiveHandler()))
		router.GET("/health/ready", gin.WrapF(deps.HealthChecker.ReadyHandler()))
	}
	if deps.Metrics != nil {
		router.GET("/metrics", gin.WrapH(deps.Metrics.HTTPHandler()))
	}

	v1 := router.Group("/v1")
	{
		v1.POST("/auth/refresh", authHandler.Refresh)

		// 以下接口都需要访问令牌，是否授权由各处理器按调用方角色判断
		authed := v1.Group("", jwtAuth.RequireAuth())

		// ========== Address Routes ==========
		addressRoutes := authed.Group("/addresses")
		{
			addressRoutes.GET("", handler.listAddresses)
			addressRoutes.GET("/resolve/:address", handler.resolveAddress)

			addressRoutes.POST("/forwarded", handler.createForwarded)
			addressRoutes.GET("/forwarded/:id", handler.getForwarded)
			addressRoutes.PUT("/forwarded/:id", handler.updateForwarded)
			addressRoutes.DELETE("/forwarded/:id", handler.deleteForwarded)
		}

		// ========== User Address Routes ==========
		userRoutes := authed.Group("/users/:user/addresses")
		{
			userRoutes.GET("", handler.listUserAddresses)
			userRoutes.POST("", handler.createUserAddress)
			userRoutes.GET("/:id", handler.getUserAddress)
			userRoutes.PUT("/:id", handler.updateUserAddress)
			userRoutes.DELETE("/:id", handler.deleteUserAddress)
		}

		// ========== Domain Alias Routes ==========
		aliasRoutes := authed.Group("/domainaliases")
		{
			aliasRoutes.GET("", handler.listDomainAliases)
			aliasRoutes.POST("", handler.createDomainAlias)
			aliasRoutes.GET("/resolve/:alias", handler.resolveDomainAlias)
			aliasRoutes.GET("/:id", handler.getDomainAlias)
			aliasRoutes.DELETE("/:id", handler.deleteDomainAlias)
		}

		authed.POST("/domains/rename", handler.renameDomain)
	}

	return router
}
