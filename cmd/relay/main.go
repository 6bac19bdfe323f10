// The relay worker consumes offline notification events from NATS and
// delivers them through the Telegram Bot API. It runs as a separate
// process so Telegram outages or rate limits never back-pressure the
// API server.
package main

import (
	"context"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/nellx/marketplace-api/internal/config"
	"github.com/nellx/marketplace-api/internal/notify"
	"github.com/nellx/marketplace-api/internal/store"
	"github.com/nellx/marketplace-api/pkg/logger"
)

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	logger.SetGlobal(log)

	if cfg.NATSURL == "" {
		log.Fatal("NATS_URL is required for the relay worker")
	}
	if cfg.TelegramBotToken == "" {
		log.Fatal("TELEGRAM_BOT_TOKEN is required for the relay worker")
	}

	db, err := store.Open(cfg.DatabaseURL, cfg.DatabaseMaxConns)
	if err != nil {
		log.Fatal("failed to open database", zap.Error(err))
	}
	users := store.NewUserStore(db)

	nc, err := notify.Connect(cfg.NATSURL, cfg.NATSToken, log)
	if err != nil {
		log.Fatal("failed to connect to NATS", zap.Error(err))
	}
	defer nc.Drain()

	telegram := notify.NewTelegram(cfg.TelegramAPIBase, cfg.TelegramBotToken, users, log)
	relay := notify.NewRelay(nc, telegram, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("relay worker started")
	if err := relay.Run(ctx); err != nil {
		log.Fatal("relay stopped", zap.Error(err))
	}
	log.Info("relay worker stopped")
}
