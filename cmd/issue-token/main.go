package main

import (
	"fmt"
	"os"

	jwtpkg "mailplatform/backend/internal/auth/jwt"
	"mailplatform/backend/internal/config"
)

// 用服务端密钥签发令牌，供运维脚本或外部身份系统对接前使用
func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: issue-token <user-id> [admin|user]")
		os.Exit(1)
	}

	userID := os.Args[1]
	role := jwtpkg.RoleAdmin
	if len(os.Args) >= 3 {
		role = jwtpkg.Role(os.Args[2])
	}
	if !role.Valid() {
		fmt.Printf("Unknown role %q, expected admin or user\n", role)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	manager := jwtpkg.NewManager(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.AccessExpiry, cfg.JWT.RefreshExpiry)
	pair, err := manager.GenerateTokenPair(userID, role)
	if err != nil {
		fmt.Printf("Failed to sign token: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("✓ Token issued\n")
	fmt.Printf("  User:          %s\n", userID)
	fmt.Printf("  Role:          %s\n", role)
	fmt.Printf("  Expires in:    %ds\n", pair.ExpiresIn)
	fmt.Printf("  Access token:  %s\n", pair.AccessToken)
	fmt.Printf("  Refresh token: %s\n", pair.RefreshToken)
}
