package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	jwtpkg "mailplatform/backend/internal/auth/jwt"
	"mailplatform/backend/internal/config"
	"mailplatform/backend/internal/health"
	"mailplatform/backend/internal/logger"
	"mailplatform/backend/internal/monitoring"
	"mailplatform/backend/internal/service"
	"mailplatform/backend/internal/storage"
	"mailplatform/backend/internal/storage/memory"
	"mailplatform/backend/internal/storage/postgres"
	"mailplatform/backend/internal/storage/redis"
	httptransport "mailplatform/backend/internal/transport/http"
)

// main 启动地址目录 HTTP 服务。
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	// 设置 Gin 模式（基于开发环境标志）
	if !cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	log, err := logger.NewLogger(cfg.Log)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer func() { _ = log.Sync() }()

	log.Info("starting mail directory server",
		zap.String("log_level", cfg.Log.Level),
		zap.Bool("development", cfg.Log.Development),
	)

	store, err := initializeStore(cfg, log)
	if err != nil {
		log.Fatal("failed to initialize storage", zap.Error(err))
	}
	defer func() { _ = store.Close() }()

	// 转发计数存储是可选的，缺失时配额读数标记为不可用
	var counters storage.CounterStore
	var countersHealth health.Pinger
	if cfg.Redis.Address != "" {
		client, err := redis.New(&cfg.Redis, log)
		if err != nil {
			log.Warn("forward counters unavailable, continuing without them", zap.Error(err))
		} else {
			defer func() { _ = client.Close() }()
			counters = redis.NewCounterStore(client)
			countersHealth = client
		}
	} else {
		log.Info("redis not configured, forward usage will be reported as unavailable")
	}

	metrics := monitoring.NewMetrics()
	healthChecker := health.NewHealthChecker(health.PingFunc(store.Health), countersHealth, log)

	// 初始化服务层
	quota := service.NewForwardQuotaTracker(counters, cfg.Redis.ForwardCounterPrefix, cfg.Directory.DefaultForwards, log)
	quota.SetMetrics(metrics)
	targets := service.NewTargetResolver(store)

	addressService := service.NewAddressService(store, cfg.Directory, log)
	addressService.SetMetrics(metrics)
	forwardedService := service.NewForwardedService(store, targets, quota, cfg.Directory, log)
	forwardedService.SetMetrics(metrics)
	resolver := service.NewResolver(store, quota, cfg.Directory, log)
	resolver.SetMetrics(metrics)
	renameMigrator := service.NewDomainRenameMigrator(store, cfg.Directory, log)
	renameMigrator.SetMetrics(metrics)
	domainAliasService := service.NewDomainAliasService(store, cfg.Directory, log)

	jwtManager := jwtpkg.NewManager(
		cfg.JWT.Secret,
		cfg.JWT.Issuer,
		cfg.JWT.AccessExpiry,
		cfg.JWT.RefreshExpiry,
	)
	log.Info("JWT configuration",
		zap.String("issuer", cfg.JWT.Issuer),
		zap.Duration("access_expiry", cfg.JWT.AccessExpiry),
		zap.Duration("refresh_expiry", cfg.JWT.RefreshExpiry),
	)

	httpAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	router := httptransport.NewRouter(httptransport.RouterDependencies{
		Config:             cfg,
		AddressService:     addressService,
		ForwardedService:   forwardedService,
		Resolver:           resolver,
		DomainAliasService: domainAliasService,
		RenameMigrator:     renameMigrator,
		JWTManager:         jwtManager,
		HealthChecker:      healthChecker,
		Metrics:            metrics,
		Logger:             log,
	})

	httpServer := &http.Server{
		Addr:              httpAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		// 域名迁移在单个请求内完成，写超时放宽
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	// 信号处理
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		log.Info("starting HTTP server", zap.String("address", httpAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server error", zap.Error(err))
			return err
		}
		return nil
	})

	// 优雅关闭 goroutine
	group.Go(func() error {
		<-groupCtx.Done()
		log.Info("shutdown signal received, gracefully shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error("HTTP server shutdown error", zap.Error(err))
		}

		log.Info("server stopped")
		return nil
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal("server error", zap.Error(err))
	}

	log.Info("server exited cleanly")
}

// initializeStore 按配置选择存储：未配置数据库时使用内存存储
func initializeStore(cfg *config.Config, log *zap.Logger) (storage.Store, error) {
	if cfg.Database.Type == "" || cfg.Database.DSN == "" {
		log.Warn("using memory storage, data will not survive restarts")
		return memory.NewStore(), nil
	}

	store, err := postgres.Open(cfg.Database)
	if err != nil {
		return nil, err
	}

	log.Info("database storage initialized", zap.String("database_type", cfg.Database.Type))
	return store, nil
}
