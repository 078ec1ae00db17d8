package server

import (
	"github.com/labstack/echo/v4"

	"example.com/tg-planner/backend/internal/handlers"
)

type routeHandlers struct {
	auth          *handlers.AuthHandler
	storage       *handlers.StorageHandler
	stats         *handlers.StatsHandler
	wizard        *handlers.WizardHandler
	notifications *handlers.NotificationHandler
	admin         *handlers.AdminHandler
	webhook       *handlers.WebhookHandler
	ready         echo.HandlerFunc
}

type routeMiddleware struct {
	auth        echo.MiddlewareFunc
	admin       echo.MiddlewareFunc
	authLimiter echo.MiddlewareFunc
	hookLimiter echo.MiddlewareFunc
}

func registerRoutes(e *echo.Echo, h routeHandlers, mw routeMiddleware) {
	e.GET("/health", handlers.Health)
	e.GET("/ready", h.ready)

	// Метод проверяет сам обработчик: на не-POST нужен JSON с ошибкой, а не ответ роутера.
	e.Any("/api/webhook", h.webhook.Handle, mw.hookLimiter)

	api := e.Group("/api/v1")
	authGroup := api.Group("/auth", mw.authLimiter)

	authGroup.POST("/telegram", h.auth.TelegramLogin)
	authGroup.POST("/refresh", h.auth.Refresh)
	authGroup.POST("/logout", h.auth.Logout)
	authGroup.POST("/logout-all", h.auth.LogoutAll, mw.auth)
	authGroup.GET("/me", h.auth.Me, mw.auth)

	storage := api.Group("/storage", mw.auth)
	storage.GET("", h.storage.List)
	storage.GET("/:key", h.storage.Get)
	storage.PUT("/:key", h.storage.Put)
	storage.DELETE("/:key", h.storage.Delete)

	finance := api.Group("/finance", mw.auth)
	finance.GET("/summary", h.stats.Summary)
	finance.GET("/categories", h.stats.Categories)
	finance.GET("/pie", h.stats.Pie)
	finance.GET("/trends", h.stats.Trends)
	finance.GET("/export/csv", h.stats.ExportCSV)
	finance.GET("/export/json", h.stats.ExportJSON)

	api.GET("/matrix/insights", h.stats.MatrixInsights, mw.auth)
	api.GET("/tasks/stats", h.stats.TaskStats, mw.auth)

	wizards := api.Group("/wizards", mw.auth)
	wizards.GET("/yearly", h.wizard.YearlySteps)
	wizards.POST("/yearly", h.wizard.SubmitYearly)
	wizards.GET("/yearly/reports", h.wizard.YearlyReports)

	notifications := api.Group("/notifications", mw.auth)
	notifications.GET("/stream", h.notifications.Stream)

	admin := api.Group("/admin", mw.auth, mw.admin)
	admin.GET("/users", h.admin.ListUsers)
	admin.GET("/usage", h.admin.Usage)
}

func registerWebhookRoutes(e *echo.Echo, webhook *handlers.WebhookHandler, limiter echo.MiddlewareFunc) {
	e.GET("/health", handlers.Health)
	e.Any("/", webhook.Handle, limiter)
	e.Any("/api/webhook", webhook.Handle, limiter)
}
