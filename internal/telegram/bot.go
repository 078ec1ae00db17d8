package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

var ErrNoToken = errors.New("bot token not configured")

// Sender отправляет приветственное сообщение в чат.
type Sender interface {
	SendWelcome(ctx context.Context, chatID int64) error
}

type BotConfig struct {
	Token       string
	APIEndpoint string
	WebAppURL   string
	WelcomeText string
	ButtonText  string
	Timeout     time.Duration
}

type Bot struct {
	api       *tgbotapi.BotAPI
	webAppURL string
	welcome   string
	button    string
}

// NewBot создает клиента Bot API без обращения к getMe.
func NewBot(cfg BotConfig) (*Bot, error) {
	if cfg.Token == "" {
		return nil, ErrNoToken
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	api := &tgbotapi.BotAPI{
		Token:  cfg.Token,
		Client: &http.Client{Timeout: timeout},
		Buffer: 100,
	}

	endpoint := cfg.APIEndpoint
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	api.SetAPIEndpoint(endpoint)

	return &Bot{
		api:       api,
		webAppURL: cfg.WebAppURL,
		welcome:   cfg.WelcomeText,
		button:    cfg.ButtonText,
	}, nil
}

// SendWelcome отправляет приветствие с кнопкой, открывающей мини-приложение.
// Повторных попыток нет.
func (b *Bot) SendWelcome(ctx context.Context, chatID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(chatID, b.welcome)
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL(b.button, b.webAppURL),
		),
	)

	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("send welcome to chat %d: %w", chatID, err)
	}
	return nil
}

// RegisterWebhook сообщает Telegram адрес вебхука.
func (b *Bot) RegisterWebhook(webhookURL, secretToken string) error {
	wh, err := tgbotapi.NewWebhook(webhookURL)
	if err != nil {
		return fmt.Errorf("parse webhook url: %w", err)
	}

	params := tgbotapi.Params{}
	params.AddNonEmpty("url", wh.URL.String())
	params.AddNonEmpty("secret_token", secretToken)
	params.AddBool("drop_pending_updates", wh.DropPendingUpdates)
	params.AddNonZero("max_connections", wh.MaxConnections)

	if _, err := b.api.MakeRequest("setWebhook", params); err != nil {
		return fmt.Errorf("set webhook: %w", err)
	}
	return nil
}

// ParseUpdate разбирает тело входящего обновления.
func ParseUpdate(body []byte) (tgbotapi.Update, error) {
	var update tgbotapi.Update
	if err := json.Unmarshal(body, &update); err != nil {
		return update, fmt.Errorf("decode update: %w", err)
	}
	return update, nil
}

// IsStartCommand сравнивает текст с командой /start, допуская аргументы после пробела.
func IsStartCommand(text string) bool {
	return text == "/start" || strings.HasPrefix(text, "/start ")
}

// StartChatID возвращает чат, в котором пришла команда /start.
func StartChatID(update tgbotapi.Update) (int64, bool) {
	if update.Message == nil || update.Message.Chat == nil {
		return 0, false
	}
	if !IsStartCommand(update.Message.Text) {
		return 0, false
	}
	return update.Message.Chat.ID, true
}
