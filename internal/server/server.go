package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"example.com/tg-planner/backend/internal/auth"
	"example.com/tg-planner/backend/internal/cache"
	"example.com/tg-planner/backend/internal/config"
	"example.com/tg-planner/backend/internal/handlers"
	"example.com/tg-planner/backend/internal/notifications"
	"example.com/tg-planner/backend/internal/repository"
	"example.com/tg-planner/backend/internal/telegram"
)

// Dependencies хранилища и внешние клиенты, которые собирает main.
type Dependencies struct {
	Users   repository.UserStore
	Tokens  repository.TokenStore
	Storage repository.KVStore
	Admin   repository.AdminStore
	// DB nil для хранилища в памяти.
	DB handlers.Pinger
	// Sender nil, если токен бота не задан.
	Sender telegram.Sender
}

// New собирает HTTP-сервер Echo с роутами и зависимостями.
func New(cfg config.Config, logger *slog.Logger, deps Dependencies) *echo.Echo {
	if logger == nil {
		logger = slog.Default()
	}

	e := newEcho(cfg, logger)

	loc, err := time.LoadLocation(cfg.Analytics.DefaultTimezone)
	if err != nil {
		logger.Warn("unknown default timezone, using UTC", slog.String("timezone", cfg.Analytics.DefaultTimezone))
		loc = time.UTC
	}

	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, cfg.Auth.AccessTokenTTL, cfg.Auth.RefreshTokenTTL)
	notificationHub := notifications.NewHub()
	responses := cache.NewResponses(cfg.Analytics.CacheSize, cfg.Analytics.CacheTTL)

	registerRoutes(e,
		routeHandlers{
			auth:          handlers.NewAuthHandler(deps.Users, deps.Tokens, tokenManager, cfg.Telegram.BotToken, cfg.Auth.InitDataMaxAge),
			storage:       handlers.NewStorageHandler(deps.Storage, notificationHub, responses, cfg.Storage.MaxValueBytes),
			stats:         handlers.NewStatsHandler(deps.Storage, responses, loc),
			wizard:        handlers.NewWizardHandler(deps.Storage, notificationHub, responses, cfg.Storage.MaxValueBytes),
			notifications: handlers.NewNotificationHandler(notificationHub),
			admin:         handlers.NewAdminHandler(deps.Admin),
			webhook:       handlers.NewWebhookHandler(deps.Sender, cfg.Telegram.WebhookSecret, logger),
			ready:         handlers.Ready(deps.DB),
		},
		routeMiddleware{
			auth:        auth.JWTMiddleware(tokenManager),
			admin:       handlers.AdminMiddleware(cfg.Admin.TelegramIDs),
			authLimiter: rateLimiter(cfg.Auth.RateLimitPerMinute, cfg.Auth.RateLimitBurst),
			hookLimiter: rateLimiter(cfg.Telegram.RateLimitPerMinute, cfg.Telegram.RateLimitBurst),
		},
	)

	return e
}

// NewWebhook собирает отдельный сервер, который отвечает только на обновления бота.
func NewWebhook(cfg config.Config, logger *slog.Logger, sender telegram.Sender) *echo.Echo {
	if logger == nil {
		logger = slog.Default()
	}

	e := newEcho(cfg, logger)
	registerWebhookRoutes(e,
		handlers.NewWebhookHandler(sender, cfg.Telegram.WebhookSecret, logger),
		rateLimiter(cfg.Telegram.RateLimitPerMinute, cfg.Telegram.RateLimitBurst),
	)
	return e
}

// NewHTTPServer создает net/http сервер с заданными таймаутами.
func NewHTTPServer(cfg config.ServerConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
}

func newEcho(cfg config.Config, logger *slog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = NewValidator()

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(requestLogger(logger))
	if len(cfg.Server.CORSOrigins) > 0 {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: cfg.Server.CORSOrigins,
			AllowHeaders: []string{echo.HeaderAuthorization, echo.HeaderContentType},
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		}))
	}

	return e
}

func requestLogger(logger *slog.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURIPath:   true,
		LogStatus:    true,
		LogMethod:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []slog.Attr{
				slog.String("method", v.Method),
				slog.String("path", v.URIPath),
				slog.Int("status", v.Status),
				slog.String("remote_ip", v.RemoteIP),
				slog.String("request_id", v.RequestID),
				slog.Duration("latency", v.Latency),
			}

			if v.Error != nil {
				attrs = append(attrs, slog.String("error", v.Error.Error()))
			}

			msg := "request completed"
			if v.Status >= http.StatusInternalServerError {
				logger.LogAttrs(c.Request().Context(), slog.LevelError, msg, attrs...)
				return nil
			}

			logger.LogAttrs(c.Request().Context(), slog.LevelInfo, msg, attrs...)
			return nil
		},
	})
}

func rateLimiter(perMinute, burst int) echo.MiddlewareFunc {
	limit := rate.Limit(float64(perMinute) / 60.0)
	store := middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      limit,
		Burst:     burst,
		ExpiresIn: time.Minute,
	})

	return middleware.RateLimiter(store)
}
