package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"example.com/tg-planner/backend/internal/config"
	"example.com/tg-planner/backend/internal/server"
	"example.com/tg-planner/backend/internal/telegram"
)

func main() {
	cfg, err := config.LoadWebhook()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	// без токена сервер все равно стартует и отвечает 500 на каждое обновление
	var sender telegram.Sender
	bot, err := telegram.NewBot(telegram.BotConfig{
		Token:       cfg.Telegram.BotToken,
		APIEndpoint: cfg.Telegram.APIEndpoint,
		WebAppURL:   cfg.Telegram.WebAppURL,
		WelcomeText: cfg.Telegram.WelcomeText,
		ButtonText:  cfg.Telegram.ButtonText,
		Timeout:     cfg.Telegram.Timeout,
	})
	switch {
	case err == nil:
		sender = bot
		if cfg.Telegram.WebhookURL != "" {
			if err := bot.RegisterWebhook(cfg.Telegram.WebhookURL, cfg.Telegram.WebhookSecret); err != nil {
				logger.Error("failed to register webhook", slog.String("error", err.Error()))
			} else {
				logger.Info("webhook registered", slog.String("url", cfg.Telegram.WebhookURL))
			}
		}
	case errors.Is(err, telegram.ErrNoToken):
		logger.Warn("telegram bot token is not set")
	default:
		logger.Error("failed to create telegram bot", slog.String("error", err.Error()))
		os.Exit(1)
	}

	e := server.NewWebhook(cfg, logger, sender)
	httpServer := server.NewHTTPServer(cfg.Server, e)

	go func() {
		logger.Info("webhook server started", slog.String("addr", httpServer.Addr))
		if err := e.StartServer(httpServer); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", slog.String("error", err.Error()))
		}
	}()

	shutdownSignal := make(chan os.Signal, 1)
	signal.Notify(shutdownSignal, syscall.SIGINT, syscall.SIGTERM)
	<-shutdownSignal

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.String("error", err.Error()))
	}
}
