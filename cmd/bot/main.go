package main

import (
	"log"

	"go.uber.org/zap"

	"github.com/kirillm/signal-bot/internal/config"
	"github.com/kirillm/signal-bot/internal/exchange"
	"github.com/kirillm/signal-bot/internal/executor"
	"github.com/kirillm/signal-bot/internal/mode"
	"github.com/kirillm/signal-bot/internal/signal"
	"github.com/kirillm/signal-bot/internal/storage"
	"github.com/kirillm/signal-bot/internal/telegram"
	"github.com/kirillm/signal-bot/pkg/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := utils.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer logger.Sync()

	db, err := storage.NewPostgresStorage(
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.DBName,
		cfg.Database.SSLMode,
		cfg.Database.MaxOpenConns,
		cfg.Database.MaxIdleConns,
		cfg.Database.ConnMaxLifetime,
	)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	bybit := exchange.NewBybitClient(cfg.Bybit.APIKey, cfg.Bybit.APISecret, cfg.Bybit.BaseURL)
	resolver := signal.NewResolver(bybit, cfg.Trading.QuoteAsset)
	ex := executor.NewExecutor(bybit, db.Trades(), logger, cfg.Trading.QuoteAsset)
	ctl := mode.NewController()

	bot, err := telegram.NewBot(cfg.Telegram.BotToken, cfg.Telegram.OperatorID, ctl, resolver, ex, db.Trades(), logger)
	if err != nil {
		logger.Fatal("failed to create telegram bot", zap.Error(err))
	}

	logger.Info("signal bot started",
		zap.String("quote_asset", cfg.Trading.QuoteAsset),
		zap.Int64("operator_id", cfg.Telegram.OperatorID))

	bot.Start()
}
