// seed inserts a development account for local testing.
// Idempotent: skips the insert if the dev phone (13800138000) is already registered.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"account-service/backend/internal/config"
	"account-service/backend/internal/db"
	"account-service/backend/internal/logger"
	"account-service/backend/internal/security"
	userdomain "account-service/backend/internal/user/domain"
	userrepo "account-service/backend/internal/user/repository"
)

const (
	devPhone          = "13800138000"
	devPassword       = "password123"
	devAccount        = "1000000"
	devInvitationCode = "devinv01"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Env.LogLevel, cfg.Env.IsProduction())
	if cfg.Env.IsProduction() {
		log.Fatal("refusing to seed a production database")
	}
	if cfg.Env.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}

	conn, err := db.Open(cfg.Env.DatabaseURL)
	if err != nil {
		log.Fatal("db", "error", err)
	}
	defer conn.Close()

	users := userrepo.NewPostgresRepository(conn)
	ctx := context.Background()

	existing, err := users.GetByPhone(ctx, devPhone)
	if err != nil {
		log.Fatal("seed check", "error", err)
	}
	if existing != nil {
		log.Info("seed already applied, skipping", "phone", devPhone)
		return
	}

	hash, err := security.NewHasher(cfg.Env.BcryptCost).Hash(devPassword)
	if err != nil {
		log.Fatal("hash password", "error", err)
	}
	now := time.Now().UTC()
	u := &userdomain.User{
		ID:             uuid.New().String(),
		Account:        devAccount,
		Phone:          devPhone,
		Username:       userdomain.DefaultUsername(devPhone),
		PasswordHash:   hash,
		Points:         int64(cfg.File.UserConfig.UserPoints.InitPoints),
		InvitationCode: devInvitationCode,
		IsActive:       true,
		IsVerified:     true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := users.Create(ctx, u); err != nil {
		log.Fatal("create dev user", "error", err)
	}
	log.Info("seed applied", "phone", devPhone, "password", devPassword, "user_id", u.ID)
}
