package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Ключи документов в хранилище пользователя.
const (
	KeyTransactions  = "transactions"
	KeyCategories    = "categories"
	KeyTasks         = "tasks"
	KeyMatrixTasks   = "matrix_tasks"
	KeyYearlyReports = "yearly_reports"
)

// User пользователь Telegram; ID совпадает с идентификатором в Telegram.
type User struct {
	ID           int64     `json:"id"`
	Username     *string   `json:"username,omitempty"`
	FirstName    string    `json:"first_name"`
	LastName     *string   `json:"last_name,omitempty"`
	LanguageCode *string   `json:"language_code,omitempty"`
	IsPremium    bool      `json:"is_premium"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type RefreshToken struct {
	ID         uuid.UUID  `json:"id"`
	UserID     int64      `json:"user_id"`
	TokenHash  string     `json:"-"`
	ExpiresAt  time.Time  `json:"expires_at"`
	CreatedAt  time.Time  `json:"created_at"`
	RevokedAt  *time.Time `json:"revoked_at,omitempty"`
	ReplacedBy *uuid.UUID `json:"replaced_by,omitempty"`
}

// StorageItem значение по ключу в облачном хранилище пользователя.
type StorageItem struct {
	UserID    int64           `json:"-"`
	Key       string          `json:"key"`
	Value     json.RawMessage `json:"value"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type YearlyReport struct {
	ID        string            `json:"id"`
	Year      int               `json:"year"`
	Answers   map[string]string `json:"answers"`
	CreatedAt time.Time         `json:"created_at"`
}
