package main

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/erazemk/inventar/internal/api"
	"github.com/erazemk/inventar/internal/config"
	"github.com/erazemk/inventar/internal/db"
	"github.com/erazemk/inventar/internal/repo"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("loading configuration", "error", err)
		os.Exit(1)
	}

	database, err := db.Open(cfg.DatabasePath)
	if err != nil {
		slog.Error("opening database", "error", err)
		os.Exit(1)
	}
	defer database.Close()

	if err := db.Migrate(database); err != nil {
		slog.Error("migrating database", "error", err)
		os.Exit(1)
	}

	users := repo.NewUserRepo(database)
	products := repo.NewProductRepo(database)

	router := api.NewRouter(users, products, cfg.SecretKey, cfg.TokenExpiry)
	handler := api.LoggingMiddleware(api.WithMetrics(router))

	slog.Info("server listening", "addr", cfg.Addr, "db", cfg.DatabasePath)
	if err := http.ListenAndServe(cfg.Addr, handler); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}
