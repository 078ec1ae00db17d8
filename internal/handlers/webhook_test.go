package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/tg-planner/backend/internal/telegram"
)

type fakeSender struct {
	mu    sync.Mutex
	chats []int64
	err   error
	panic bool
}

func (f *fakeSender) SendWelcome(_ context.Context, chatID int64) error {
	if f.panic {
		panic("boom")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chats = append(f.chats, chatID)
	return f.err
}

func (f *fakeSender) sent() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int64(nil), f.chats...)
}

func newWebhookEcho(sender telegram.Sender, secret string) *echo.Echo {
	e := newTestEcho()
	h := NewWebhookHandler(sender, secret, nil)
	e.Any("/api/webhook", h.Handle)
	return e
}

func messageUpdate(text string) string {
	return `{"update_id":10,"message":{"message_id":1,"date":1700000000,"chat":{"id":123,"type":"private"},"text":"` + text + `"}}`
}

// TestWebhookStart проверяет одно приветствие на /start и ответ {"ok":true}.
func TestWebhookStart(t *testing.T) {
	for _, text := range []string{"/start", "/start ref_42"} {
		sender := &fakeSender{}
		e := newWebhookEcho(sender, "")

		rec := doRequest(e, http.MethodPost, "/api/webhook", messageUpdate(text))

		requireStatus(t, rec, http.StatusOK)
		assert.JSONEq(t, `{"ok":true}`, rec.Body.String())
		assert.Equal(t, []int64{123}, sender.sent(), text)
	}
}

// TestWebhookIgnoresOtherText проверяет, что прочие сообщения ничего не отправляют.
func TestWebhookIgnoresOtherText(t *testing.T) {
	for _, body := range []string{
		messageUpdate("hello"),
		messageUpdate("/starting"),
		messageUpdate("/help"),
		`{"update_id":11}`,
		`{"update_id":12,"edited_message":{"message_id":1,"date":0,"chat":{"id":5,"type":"private"},"text":"/start"}}`,
	} {
		sender := &fakeSender{}
		e := newWebhookEcho(sender, "")

		rec := doRequest(e, http.MethodPost, "/api/webhook", body)

		requireStatus(t, rec, http.StatusOK)
		assert.JSONEq(t, `{"ok":true}`, rec.Body.String())
		assert.Empty(t, sender.sent(), body)
	}
}

// TestWebhookMethodNotAllowed проверяет отказ для не-POST запросов.
func TestWebhookMethodNotAllowed(t *testing.T) {
	sender := &fakeSender{}
	e := newWebhookEcho(sender, "")

	rec := doRequest(e, http.MethodGet, "/api/webhook", "")

	requireStatus(t, rec, http.StatusMethodNotAllowed)
	assert.JSONEq(t, `{"error":"Method Not Allowed"}`, rec.Body.String())
	assert.Empty(t, sender.sent())
}

// TestWebhookWithoutToken проверяет ответ при отсутствии токена бота.
func TestWebhookWithoutToken(t *testing.T) {
	e := newWebhookEcho(nil, "")

	rec := doRequest(e, http.MethodPost, "/api/webhook", messageUpdate("/start"))

	requireStatus(t, rec, http.StatusInternalServerError)
	assert.JSONEq(t, `{"error":"Bot token not configured"}`, rec.Body.String())
}

// TestWebhookMalformedBody проверяет ответ 200 с описанием ошибки разбора.
func TestWebhookMalformedBody(t *testing.T) {
	sender := &fakeSender{}
	e := newWebhookEcho(sender, "")

	rec := doRequest(e, http.MethodPost, "/api/webhook", `{"message":`)

	requireStatus(t, rec, http.StatusOK)
	resp := decodeBody[WebhookResponse](t, rec)
	assert.True(t, resp.OK)
	assert.NotEmpty(t, resp.Error)
	assert.Empty(t, sender.sent())
}

// TestWebhookSendFailure проверяет, что ошибка Bot API не меняет ответ Telegram.
func TestWebhookSendFailure(t *testing.T) {
	sender := &fakeSender{err: errors.New("telegram is down")}
	e := newWebhookEcho(sender, "")

	rec := doRequest(e, http.MethodPost, "/api/webhook", messageUpdate("/start"))

	requireStatus(t, rec, http.StatusOK)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())
	assert.Len(t, sender.sent(), 1)
}

// TestWebhookPanic проверяет, что паника превращается в ответ 200 с ошибкой.
func TestWebhookPanic(t *testing.T) {
	e := newWebhookEcho(&fakeSender{panic: true}, "")

	rec := doRequest(e, http.MethodPost, "/api/webhook", messageUpdate("/start"))

	requireStatus(t, rec, http.StatusOK)
	resp := decodeBody[WebhookResponse](t, rec)
	assert.True(t, resp.OK)
	assert.Equal(t, "boom", resp.Error)
}

// TestWebhookSecret проверяет заголовок секрета вебхука.
func TestWebhookSecret(t *testing.T) {
	sender := &fakeSender{}
	e := newWebhookEcho(sender, "s3cret")

	send := func(secret string) {
		req := httptest.NewRequest(http.MethodPost, "/api/webhook", strings.NewReader(messageUpdate("/start")))
		if secret != "" {
			req.Header.Set(webhookSecretHeader, secret)
		}
		rec := serve(e, req)
		requireStatus(t, rec, http.StatusOK)
	}

	send("")
	send("wrong")
	require.Empty(t, sender.sent())

	send("s3cret")
	assert.Equal(t, []int64{123}, sender.sent())
}
