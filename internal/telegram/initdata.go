package telegram

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	initdata "github.com/telegram-mini-apps/init-data-golang"
)

var (
	ErrInitDataEmpty     = errors.New("init data is empty")
	ErrInitDataSignature = errors.New("init data signature mismatch")
	ErrInitDataExpired   = errors.New("init data expired")
	ErrInitDataMalformed = errors.New("init data malformed")
)

// WebAppUser пользователь из initData мини-приложения.
type WebAppUser struct {
	ID           int64  `json:"id"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name,omitempty"`
	Username     string `json:"username,omitempty"`
	LanguageCode string `json:"language_code,omitempty"`
	IsPremium    bool   `json:"is_premium,omitempty"`
}

type InitData struct {
	User       WebAppUser
	AuthDate   time.Time
	QueryID    string
	StartParam string
}

// ValidateInitData проверяет подпись initData и возвращает разобранные поля.
// maxAge <= 0 отключает проверку возраста.
func ValidateInitData(raw, botToken string, maxAge time.Duration, now time.Time) (InitData, error) {
	if strings.TrimSpace(raw) == "" {
		return InitData{}, ErrInitDataEmpty
	}

	// возраст проверяется ниже относительно now
	if err := initdata.Validate(raw, botToken, 0); err != nil {
		if errors.Is(err, initdata.ErrSignMissing) || errors.Is(err, initdata.ErrSignInvalid) {
			return InitData{}, ErrInitDataSignature
		}
		return InitData{}, fmt.Errorf("%w: %v", ErrInitDataMalformed, err)
	}

	parsed, err := initdata.Parse(raw)
	if err != nil {
		return InitData{}, fmt.Errorf("%w: %v", ErrInitDataMalformed, err)
	}

	authDate := parsed.AuthDate()
	if authDate.Unix() <= 0 {
		return InitData{}, fmt.Errorf("%w: auth_date", ErrInitDataMalformed)
	}
	if maxAge > 0 && now.Sub(authDate) > maxAge {
		return InitData{}, ErrInitDataExpired
	}
	if parsed.User.ID == 0 {
		return InitData{}, fmt.Errorf("%w: user", ErrInitDataMalformed)
	}

	return InitData{
		User: WebAppUser{
			ID:           parsed.User.ID,
			FirstName:    parsed.User.FirstName,
			LastName:     parsed.User.LastName,
			Username:     parsed.User.Username,
			LanguageCode: parsed.User.LanguageCode,
			IsPremium:    parsed.User.IsPremium,
		},
		AuthDate:   authDate,
		QueryID:    parsed.QueryID,
		StartParam: parsed.StartParam,
	}, nil
}

// SignInitData добавляет hash к набору полей так же, как это делает Telegram.
func SignInitData(values url.Values, botToken string) string {
	authUnix, _ := strconv.ParseInt(values.Get("auth_date"), 10, 64)
	authDate := time.Unix(authUnix, 0)

	payload := make(map[string]string, len(values))
	signed := url.Values{}
	for key := range values {
		if key == "hash" {
			continue
		}
		payload[key] = values.Get(key)
		signed.Set(key, values.Get(key))
	}
	signed.Set("auth_date", strconv.FormatInt(authDate.Unix(), 10))
	signed.Set("hash", initdata.Sign(payload, botToken, authDate))
	return signed.Encode()
}
