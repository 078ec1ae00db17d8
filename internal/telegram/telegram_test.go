package telegram

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testToken = "123456:TEST"

type recordedCall struct {
	Path string
	Form url.Values
}

type fakeAPI struct {
	mu    sync.Mutex
	calls []recordedCall
	fail  bool
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()

	f.mu.Lock()
	f.calls = append(f.calls, recordedCall{Path: r.URL.Path, Form: r.PostForm})
	fail := f.fail
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if fail {
		_, _ = w.Write([]byte(`{"ok":false,"error_code":403,"description":"Forbidden: bot was blocked by the user"}`))
		return
	}
	_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":1,"date":0,"chat":{"id":123,"type":"private"}}}`))
}

func (f *fakeAPI) Calls() []recordedCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recordedCall(nil), f.calls...)
}

func newTestBot(t *testing.T, api *fakeAPI) *Bot {
	t.Helper()

	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	bot, err := NewBot(BotConfig{
		Token:       testToken,
		APIEndpoint: srv.URL + "/bot%s/%s",
		WebAppURL:   "https://app.example.com",
		WelcomeText: "Welcome!",
		ButtonText:  "Open app",
		Timeout:     time.Second,
	})
	require.NoError(t, err)
	return bot
}

// TestSendWelcome проверяет отправку приветствия с кнопкой.
func TestSendWelcome(t *testing.T) {
	api := &fakeAPI{}
	bot := newTestBot(t, api)

	require.NoError(t, bot.SendWelcome(context.Background(), 123))

	calls := api.Calls()
	require.Len(t, calls, 1)
	call := calls[0]
	assert.Equal(t, "/bot"+testToken+"/sendMessage", call.Path)
	assert.Equal(t, "123", call.Form.Get("chat_id"))
	assert.Equal(t, "Welcome!", call.Form.Get("text"))
	assert.Contains(t, call.Form.Get("reply_markup"), "https://app.example.com")
	assert.Contains(t, call.Form.Get("reply_markup"), "Open app")
}

// TestSendWelcomeAPIError проверяет возврат ошибки от Bot API.
func TestSendWelcomeAPIError(t *testing.T) {
	api := &fakeAPI{fail: true}
	bot := newTestBot(t, api)

	err := bot.SendWelcome(context.Background(), 123)

	require.Error(t, err)
	assert.Len(t, api.Calls(), 1)
}

// TestRegisterWebhook проверяет вызов setWebhook с секретом.
func TestRegisterWebhook(t *testing.T) {
	api := &fakeAPI{}
	bot := newTestBot(t, api)

	require.NoError(t, bot.RegisterWebhook("https://hooks.example.com/telegram", "s3cret"))

	calls := api.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "/bot"+testToken+"/setWebhook", calls[0].Path)
	assert.Equal(t, "https://hooks.example.com/telegram", calls[0].Form.Get("url"))
	assert.Equal(t, "s3cret", calls[0].Form.Get("secret_token"))
}

// TestNewBotWithoutToken проверяет ошибку конфигурации без токена.
func TestNewBotWithoutToken(t *testing.T) {
	_, err := NewBot(BotConfig{})
	assert.ErrorIs(t, err, ErrNoToken)
}

// TestStartChatID проверяет распознавание команды /start.
func TestStartChatID(t *testing.T) {
	cases := []struct {
		body   string
		chatID int64
		ok     bool
	}{
		{`{"message":{"text":"/start","chat":{"id":123}}}`, 123, true},
		{`{"message":{"text":"/start promo","chat":{"id":7}}}`, 7, true},
		{`{"message":{"text":"/started","chat":{"id":7}}}`, 0, false},
		{`{"message":{"text":"hello"}}`, 0, false},
		{`{"message":{"text":"/start"}}`, 0, false},
		{`{"update_id":1}`, 0, false},
	}

	for _, tc := range cases {
		update, err := ParseUpdate([]byte(tc.body))
		require.NoError(t, err)

		chatID, ok := StartChatID(update)
		assert.Equal(t, tc.ok, ok, tc.body)
		assert.Equal(t, tc.chatID, chatID, tc.body)
	}

	_, err := ParseUpdate([]byte(`{"message":`))
	assert.Error(t, err)
}

func initDataValues(authDate time.Time) url.Values {
	values := url.Values{}
	values.Set("query_id", "AAHdF6IQAAAAAN0XohDhrOrc")
	values.Set("user", `{"id":279058397,"first_name":"Vlad","username":"vdkfrost","language_code":"ru","is_premium":true}`)
	values.Set("auth_date", strconv.FormatInt(authDate.Unix(), 10))
	return values
}

// TestValidateInitData проверяет разбор корректно подписанных данных.
func TestValidateInitData(t *testing.T) {
	now := time.Date(2024, time.May, 1, 12, 0, 0, 0, time.UTC)
	raw := SignInitData(initDataValues(now.Add(-time.Minute)), testToken)

	data, err := ValidateInitData(raw, testToken, time.Hour, now)

	require.NoError(t, err)
	assert.Equal(t, int64(279058397), data.User.ID)
	assert.Equal(t, "vdkfrost", data.User.Username)
	assert.True(t, data.User.IsPremium)
	assert.Equal(t, "AAHdF6IQAAAAAN0XohDhrOrc", data.QueryID)
}

// TestValidateInitDataRejects проверяет отказ для подделанных и устаревших данных.
func TestValidateInitDataRejects(t *testing.T) {
	now := time.Date(2024, time.May, 1, 12, 0, 0, 0, time.UTC)
	valid := SignInitData(initDataValues(now.Add(-time.Minute)), testToken)

	tampered, err := url.ParseQuery(valid)
	require.NoError(t, err)
	tampered.Set("user", `{"id":1,"first_name":"Mallory"}`)

	noUser := initDataValues(now)
	noUser.Del("user")

	noDate := initDataValues(now)
	noDate.Del("auth_date")

	cases := []struct {
		name  string
		raw   string
		token string
		want  error
	}{
		{"empty", "", testToken, ErrInitDataEmpty},
		{"wrong token", valid, "654321:OTHER", ErrInitDataSignature},
		{"tampered", tampered.Encode(), testToken, ErrInitDataSignature},
		{"no hash", initDataValues(now).Encode(), testToken, ErrInitDataSignature},
		{"expired", SignInitData(initDataValues(now.Add(-2*time.Hour)), testToken), testToken, ErrInitDataExpired},
		{"no user", SignInitData(noUser, testToken), testToken, ErrInitDataMalformed},
		{"no auth_date", SignInitData(noDate, testToken), testToken, ErrInitDataMalformed},
		{"not a query", "%zz", testToken, ErrInitDataMalformed},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ValidateInitData(tc.raw, tc.token, time.Hour, now)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

// TestInitDataTelegramSignature проверяет совместимость подписи с алгоритмом Telegram.
func TestInitDataTelegramSignature(t *testing.T) {
	now := time.Date(2024, time.May, 1, 12, 0, 0, 0, time.UTC)
	values := initDataValues(now)

	lines := []string{
		"auth_date=" + values.Get("auth_date"),
		"query_id=" + values.Get("query_id"),
		"user=" + values.Get("user"),
	}
	secret := hmac.New(sha256.New, []byte("WebAppData"))
	secret.Write([]byte(testToken))
	mac := hmac.New(sha256.New, secret.Sum(nil))
	mac.Write([]byte(strings.Join(lines, "\n")))
	values.Set("hash", hex.EncodeToString(mac.Sum(nil)))

	data, err := ValidateInitData(values.Encode(), testToken, 0, now.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, "Vlad", data.User.FirstName)
	assert.True(t, data.AuthDate.Equal(now))

	signed, err := url.ParseQuery(SignInitData(initDataValues(now), testToken))
	require.NoError(t, err)
	assert.Equal(t, values.Get("hash"), signed.Get("hash"))
}
