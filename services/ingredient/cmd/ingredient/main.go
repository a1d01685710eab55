package main

import (
	"log"
	"log/slog"
	"net/http"
	"time"

	"cooktube/internal/util"
	"cooktube/pkg/grocery"
	"cooktube/services/ingredient/internal/config"
	"cooktube/services/ingredient/internal/server"
)

func main() {
	cfg, err := config.Load(config.ConfigPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.InitLogger(cfg.LogLevel)

	httpServer := server.New(server.Config{
		Grocery: grocery.NewClient(cfg.GroceryAPIURL),
	})

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      httpServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	slog.Info("ingredient server listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", "err", err)
	}
}
