package handlers

import (
	"crypto/subtle"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"example.com/tg-planner/backend/internal/telegram"
)

const (
	webhookSecretHeader = "X-Telegram-Bot-Api-Secret-Token"
	maxUpdateBytes      = 1 << 20
)

type WebhookResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// WebhookHandler отвечает на /start приветствием со ссылкой на мини-приложение.
// Telegram получает 200 на любой POST, чтобы не повторять доставку.
type WebhookHandler struct {
	Sender telegram.Sender
	Secret string
	Logger *slog.Logger
}

// NewWebhookHandler создает обработчик вебхука. sender == nil означает, что токен бота не задан.
func NewWebhookHandler(sender telegram.Sender, secret string, logger *slog.Logger) *WebhookHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebhookHandler{Sender: sender, Secret: secret, Logger: logger}
}

// Handle обрабатывает одно обновление Telegram.
func (h *WebhookHandler) Handle(c echo.Context) (err error) {
	if c.Request().Method != http.MethodPost {
		return c.JSON(http.StatusMethodNotAllowed, map[string]string{"error": "Method Not Allowed"})
	}
	if h.Sender == nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Bot token not configured"})
	}

	defer func() {
		if r := recover(); r != nil {
			h.Logger.Error("webhook panic", slog.Any("panic", r))
			err = c.JSON(http.StatusOK, WebhookResponse{OK: true, Error: fmt.Sprint(r)})
		}
	}()

	if h.Secret != "" {
		got := c.Request().Header.Get(webhookSecretHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(h.Secret)) != 1 {
			h.Logger.Warn("webhook secret mismatch", slog.String("remote_ip", c.RealIP()))
			return c.JSON(http.StatusOK, WebhookResponse{OK: true})
		}
	}

	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxUpdateBytes))
	if err != nil {
		return c.JSON(http.StatusOK, WebhookResponse{OK: true, Error: err.Error()})
	}

	update, err := telegram.ParseUpdate(body)
	if err != nil {
		h.Logger.Warn("webhook decode failed", slog.String("error", err.Error()))
		return c.JSON(http.StatusOK, WebhookResponse{OK: true, Error: err.Error()})
	}

	chatID, ok := telegram.StartChatID(update)
	if !ok {
		return c.JSON(http.StatusOK, WebhookResponse{OK: true})
	}

	if err := h.Sender.SendWelcome(c.Request().Context(), chatID); err != nil {
		h.Logger.Error("send welcome failed",
			slog.Int64("chat_id", chatID),
			slog.String("error", err.Error()),
		)
		return c.JSON(http.StatusOK, WebhookResponse{OK: true})
	}

	h.Logger.Info("welcome sent", slog.Int64("chat_id", chatID), slog.Int("update_id", update.UpdateID))
	return c.JSON(http.StatusOK, WebhookResponse{OK: true})
}
