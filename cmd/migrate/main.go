// migrate runs DB migrations from embedded SQL; use with go run ./cmd/migrate -direction up|down.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"account-service/backend/internal/config"
	"account-service/backend/internal/db/migrate"
	"account-service/backend/internal/logger"
)

func main() {
	direction := flag.String("direction", "up", "Migration direction: up or down")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Env.LogLevel, cfg.Env.IsProduction())
	if cfg.Env.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}
	dir, err := migrate.ParseDirection(*direction)
	if err != nil {
		log.Fatal("migrate", "error", err)
	}

	if err := migrate.Run(cfg.Env.DatabaseURL, dir); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			log.Info("migrations already at target version", "direction", dir)
			return
		}
		log.Fatal("migrate", "error", err)
	}
	version, dirty, err := migrate.Version(cfg.Env.DatabaseURL)
	if err != nil {
		log.Warn("migrate: read version", "error", err)
		return
	}
	log.Info("migrations applied", "direction", dir, "version", version, "dirty", dirty)
}
