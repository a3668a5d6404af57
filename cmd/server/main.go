package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"phishing-admin/internal/config"
	"phishing-admin/internal/logging"
	"phishing-admin/internal/notify"
	"phishing-admin/internal/repository"
	"phishing-admin/internal/server"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// A missing .env is fine; the process environment still applies.
	_ = godotenv.Load()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yml"
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("Starting phishing review admin...")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store := repository.Open(cfg.Database, logger)
	connectCtx, cancel := context.WithTimeout(ctx, cfg.Database.Timeout)
	err = store.Connect(connectCtx)
	cancel()
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer store.Close()

	if cfg.Database.Migrate {
		if err := store.MigrateDB(); err != nil {
			logger.Fatal("Failed to migrate database", zap.Error(err))
		}
	}

	var notifier notify.Notifier = notify.Nop{}
	if cfg.Telegram.Enabled {
		bot, err := notify.NewTelegram(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Telegram.Timeout, logger)
		if err != nil {
			logger.Warn("Telegram notifications disabled", zap.Error(err))
		} else {
			notifier = bot
		}
	}

	srv, err := server.NewServer(cfg, store, notifier, logger)
	if err != nil {
		logger.Fatal("Failed to initialize server", zap.Error(err))
	}

	if err := srv.Run(ctx); err != nil {
		logger.Fatal("Server stopped with error", zap.Error(err))
	}
}
