package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"mailplatform/backend/internal/config"
	"mailplatform/backend/internal/domain"
	"mailplatform/backend/internal/logger"
	"mailplatform/backend/internal/service"
	"mailplatform/backend/internal/storage/postgres"
)

// 离线执行域名迁移，绕过 HTTP 超时
func main() {
	if len(os.Args) != 3 {
		fmt.Println("Usage: rename-domain <old-domain> <new-domain>")
		os.Exit(1)
	}
	oldDomain, newDomain := os.Args[1], os.Args[2]

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if cfg.Database.Type == "" || cfg.Database.DSN == "" {
		fmt.Println("MAILDIR_DATABASE_TYPE and MAILDIR_DATABASE_DSN are required")
		os.Exit(1)
	}

	log, err := logger.NewLogger(cfg.Log)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	store, err := postgres.Open(cfg.Database)
	if err != nil {
		log.Fatal("failed to open database", zap.Error(err))
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	migrator := service.NewDomainRenameMigrator(store, cfg.Directory, log)
	result, err := migrator.RenameDomain(ctx, domain.Caller{ID: "cli", Allowed: true}, oldDomain, newDomain)
	if err != nil {
		fmt.Printf("Rename failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("✓ Renamed %s -> %s\n", result.OldDomain, result.NewDomain)
	fmt.Printf("  Addresses: %d\n", result.ModifiedAddresses)
	fmt.Printf("  Users:     %d\n", result.ModifiedUsers)
	fmt.Printf("  DKIM:      %d\n", result.ModifiedDKIM)
	fmt.Printf("  Aliases:   %d\n", result.ModifiedAliases)

	if len(result.Failures) > 0 {
		fmt.Println("\nPartial failures:")
		for _, f := range result.Failures {
			fmt.Printf("  [%s] %d item(s): %s\n", f.Phase, f.Count, f.Error)
		}
		os.Exit(2)
	}
}
