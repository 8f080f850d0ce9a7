package main

import (
	"context"

	"github.com/kelseyhightower/envconfig"

	"rp-portal/internal"
	"rp-portal/internal/logging"
)

func main() {
	ctx := context.Background()
	logger := logging.FromContext(ctx)

	var cfg internal.Config
	if err := envconfig.Process("", &cfg); err != nil {
		logger.Fatalf("processing the config: %v", err)
	}
	if cfg.JWTSecret == "" {
		logger.Fatal("JWT_SECRET is required")
	}

	var store internal.Store
	if cfg.DatabaseURL != "" {
		pool, err := internal.ConnectDB(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatalf("database: %v", err)
		}
		defer pool.Close()
		store = internal.NewPGStore(pool)
	} else {
		logger.Warn("DATABASE_URL not set, using the in-memory store")
		store = internal.NewMemStore()
	}

	r := internal.NewRouter(cfg, store)

	logger.Infof("listening on :%s", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		logger.Fatalf("server: %v", err)
	}
}
