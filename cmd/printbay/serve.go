package main

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/printbay/printbay/internal/config"
	"github.com/printbay/printbay/internal/db"
	"github.com/printbay/printbay/internal/logging"
	"github.com/printbay/printbay/internal/migrations"
	"github.com/printbay/printbay/internal/seed"
	"github.com/printbay/printbay/internal/server"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
}

func runServe() error {
	cfg := config.Load()

	log, err := logging.New(cfg.LogLevel, cfg.IsDev())
	if err != nil {
		return err
	}
	defer log.Sync()

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer database.Close()

	if cfg.IsDev() {
		if err := migrations.Up(database); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
		stats, err := seed.Run(database)
		if err != nil {
			return fmt.Errorf("seed database: %w", err)
		}
		log.Info("dev seed complete", zap.Int("inserts", stats.Inserts))
	}

	srv := server.New(cfg, log, database)
	addr := ":" + cfg.Port
	log.Info("listening", zap.String("addr", addr), zap.String("db", cfg.DBPath))

	if err := http.ListenAndServe(addr, srv.Router()); err != nil {
		return fmt.Errorf("server stopped: %w", err)
	}
	return nil
}
