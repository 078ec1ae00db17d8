package repository

import (
	"context"
	"encoding/json"
	"regexp"

	"github.com/google/uuid"

	"example.com/tg-planner/backend/internal/models"
)

// UserStore хранилище пользователей Telegram.
type UserStore interface {
	Upsert(ctx context.Context, user models.User) (models.User, error)
	GetByID(ctx context.Context, id int64) (models.User, error)
}

// TokenStore хранилище refresh-токенов.
type TokenStore interface {
	Create(ctx context.Context, token models.RefreshToken) error
	GetByID(ctx context.Context, id uuid.UUID) (models.RefreshToken, error)
	Revoke(ctx context.Context, id uuid.UUID, replacedBy *uuid.UUID) error
	RevokeAll(ctx context.Context, userID int64) (int64, error)
	Rotate(ctx context.Context, oldID uuid.UUID, newToken models.RefreshToken) error
}

// KVStore облачное key-value хранилище пользователя.
type KVStore interface {
	Get(ctx context.Context, userID int64, key string) (models.StorageItem, error)
	GetMany(ctx context.Context, userID int64, keys []string) (map[string]models.StorageItem, error)
	Put(ctx context.Context, userID int64, key string, value json.RawMessage) (models.StorageItem, error)
	Delete(ctx context.Context, userID int64, key string) error
	Keys(ctx context.Context, userID int64) ([]string, error)
}

// AdminStore запросы для админки.
type AdminStore interface {
	ListUsers(ctx context.Context, limit, offset int) ([]models.User, error)
	CountUsers(ctx context.Context) (int, error)
	UsageStats(ctx context.Context, days int) (UsageStats, error)
}

var keyPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}$`)

// ValidKey проверяет ключ по правилам CloudStorage Telegram.
func ValidKey(key string) bool {
	return keyPattern.MatchString(key)
}
