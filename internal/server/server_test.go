package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/tg-planner/backend/internal/config"
	"example.com/tg-planner/backend/internal/repository"
	"example.com/tg-planner/backend/internal/telegram"
)

const testBotToken = "123456:TEST-TOKEN"

type recordingSender struct {
	mu    sync.Mutex
	chats []int64
}

func (r *recordingSender) SendWelcome(_ context.Context, chatID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chats = append(r.chats, chatID)
	return nil
}

func (r *recordingSender) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.chats)
}

func testConfig() config.Config {
	return config.Config{
		Storage: config.StorageConfig{Backend: config.StorageBackendMemory, MaxValueBytes: 1 << 16},
		Auth: config.AuthConfig{
			JWTSecret:          "secret",
			JWTIssuer:          "tg-planner",
			AccessTokenTTL:     time.Minute,
			RefreshTokenTTL:    time.Hour,
			InitDataMaxAge:     time.Hour,
			RateLimitPerMinute: 600,
			RateLimitBurst:     100,
		},
		Telegram: config.TelegramConfig{
			BotToken:           testBotToken,
			WebAppURL:          "https://app.example.com",
			RateLimitPerMinute: 600,
			RateLimitBurst:     100,
		},
		Analytics: config.AnalyticsConfig{DefaultTimezone: "UTC", CacheSize: 16, CacheTTL: time.Minute},
		Admin:     config.AdminConfig{TelegramIDs: []int64{279058397}},
	}
}

func newTestServer(sender telegram.Sender) *echo.Echo {
	store := repository.NewMemoryStore()
	return New(testConfig(), nil, Dependencies{
		Users:   store,
		Tokens:  store.Tokens(),
		Storage: store.Storage(),
		Admin:   store.Admin(),
		Sender:  sender,
	})
}

func call(e *echo.Echo, method, target, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func login(t *testing.T, e *echo.Echo) string {
	t.Helper()

	values := url.Values{}
	values.Set("user", `{"id":279058397,"first_name":"Vlad"}`)
	values.Set("auth_date", strconv.FormatInt(time.Now().Unix(), 10))
	initData := telegram.SignInitData(values, testBotToken)

	payload, err := json.Marshal(map[string]string{"init_data": initData})
	require.NoError(t, err)

	rec := call(e, http.MethodPost, "/api/v1/auth/telegram", "", string(payload))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.AccessToken
}

// TestHealth проверяет служебные эндпоинты.
func TestHealth(t *testing.T) {
	e := newTestServer(nil)

	assert.Equal(t, http.StatusOK, call(e, http.MethodGet, "/health", "", "").Code)

	rec := call(e, http.MethodGet, "/ready", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","storage":"memory"}`, rec.Body.String())
}

// TestStorageToAnalyticsFlow проверяет путь от входа до аналитики по сохраненным данным.
func TestStorageToAnalyticsFlow(t *testing.T) {
	e := newTestServer(nil)
	token := login(t, e)

	assert.Equal(t, http.StatusUnauthorized, call(e, http.MethodGet, "/api/v1/finance/summary", "", "").Code)

	today := time.Now().UTC().Format(time.RFC3339)
	doc := `[{"id":1,"type":"expense","amount":40,"category":"Food","date":"` + today + `"},
		{"id":2,"type":"income","amount":100,"category":"Salary","date":"` + today + `"}]`

	first := call(e, http.MethodGet, "/api/v1/finance/summary?period=day", token, "")
	require.Equal(t, http.StatusOK, first.Code, first.Body.String())
	assert.Contains(t, first.Body.String(), `"count":0`)

	rec := call(e, http.MethodPut, "/api/v1/storage/transactions", token, doc)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = call(e, http.MethodGet, "/api/v1/finance/summary?period=day", token, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	assert.Contains(t, rec.Body.String(), `"count":2`)
	assert.Contains(t, rec.Body.String(), `"top_category":"Food"`)

	rec = call(e, http.MethodGet, "/api/v1/matrix/insights", token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"no_data"`)

	rec = call(e, http.MethodGet, "/api/v1/admin/usage", token, "")
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

// TestWebhookRoutes проверяет вебхук на API-сервере и на отдельном сервере.
func TestWebhookRoutes(t *testing.T) {
	update := `{"update_id":1,"message":{"message_id":1,"date":0,"chat":{"id":123,"type":"private"},"text":"/start"}}`

	sender := &recordingSender{}
	api := newTestServer(sender)
	rec := call(api, http.MethodPost, "/api/webhook", "", update)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, sender.count())

	rec = call(api, http.MethodGet, "/api/webhook", "", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	standalone := NewWebhook(testConfig(), nil, sender)
	rec = call(standalone, http.MethodPost, "/", "", update)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())
	assert.Equal(t, 2, sender.count())

	noToken := NewWebhook(testConfig(), nil, nil)
	rec = call(noToken, http.MethodPost, "/", "", update)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
