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
	_ "time/tzdata"

	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/tg-planner/backend/internal/config"
	"example.com/tg-planner/backend/internal/database"
	"example.com/tg-planner/backend/internal/repository"
	"example.com/tg-planner/backend/internal/server"
	"example.com/tg-planner/backend/internal/telegram"
)

func main() {
	ensureEnvFile()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	deps, cleanup, err := openStorage(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("failed to open storage", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer cleanup()

	bot, err := telegram.NewBot(botConfig(cfg.Telegram))
	switch {
	case err == nil:
		deps.Sender = bot
	case errors.Is(err, telegram.ErrNoToken):
		logger.Warn("telegram bot token is not set, login and webhook are disabled")
	default:
		logger.Error("failed to create telegram bot", slog.String("error", err.Error()))
		os.Exit(1)
	}

	e := server.New(cfg, logger, deps)
	httpServer := server.NewHTTPServer(cfg.Server, e)

	go func() {
		logger.Info("http server started", slog.String("addr", httpServer.Addr), slog.String("storage", cfg.Storage.Backend))
		if err := e.StartServer(httpServer); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", slog.String("error", err.Error()))
		}
	}()

	shutdownSignal := make(chan os.Signal, 1)
	signal.Notify(shutdownSignal, syscall.SIGINT, syscall.SIGTERM)
	<-shutdownSignal

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.String("error", err.Error()))
	}
}

// openStorage выбирает хранилище по STORAGE_BACKEND.
func openStorage(ctx context.Context, cfg config.Config, logger *slog.Logger) (server.Dependencies, func(), error) {
	if cfg.Storage.Backend == config.StorageBackendMemory {
		logger.Warn("using in-memory storage, data is lost on restart")
		store := repository.NewMemoryStore()
		return server.Dependencies{
			Users:   store,
			Tokens:  store.Tokens(),
			Storage: store.Storage(),
			Admin:   store.Admin(),
		}, func() {}, nil
	}

	if cfg.Database.MigrateOnStart {
		if err := database.Migrate(cfg.Database.DSN()); err != nil {
			return server.Dependencies{}, nil, err
		}
		logger.Info("database migrations applied")
	}

	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return server.Dependencies{}, nil, err
	}

	return postgresDependencies(db), db.Close, nil
}

func postgresDependencies(db *pgxpool.Pool) server.Dependencies {
	return server.Dependencies{
		Users:   repository.NewUserRepository(db),
		Tokens:  repository.NewRefreshTokenRepository(db),
		Storage: repository.NewStorageRepository(db),
		Admin:   repository.NewAdminRepository(db),
		DB:      db,
	}
}

func botConfig(cfg config.TelegramConfig) telegram.BotConfig {
	return telegram.BotConfig{
		Token:       cfg.BotToken,
		APIEndpoint: cfg.APIEndpoint,
		WebAppURL:   cfg.WebAppURL,
		WelcomeText: cfg.WelcomeText,
		ButtonText:  cfg.ButtonText,
		Timeout:     cfg.Timeout,
	}
}

func ensureEnvFile() {
	if os.Getenv("ENV_FILE") != "" {
		return
	}

	if _, err := os.Stat(".env"); err == nil {
		_ = os.Setenv("ENV_FILE", ".env")
		return
	}

	if _, err := os.Stat("../.env"); err == nil {
		_ = os.Setenv("ENV_FILE", "../.env")
	}
}
