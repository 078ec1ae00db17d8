package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/tg-planner/backend/internal/models"
)

type UserRepository struct {
	db *pgxpool.Pool
}

// NewUserRepository создает репозиторий пользователей.
func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

// Upsert создает пользователя или обновляет профиль из Telegram.
func (r *UserRepository) Upsert(ctx context.Context, user models.User) (models.User, error) {
	var saved models.User

	err := r.db.QueryRow(ctx,
		`INSERT INTO users (telegram_id, username, first_name, last_name, language_code, is_premium)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (telegram_id) DO UPDATE
		 SET username = EXCLUDED.username,
		     first_name = EXCLUDED.first_name,
		     last_name = EXCLUDED.last_name,
		     language_code = EXCLUDED.language_code,
		     is_premium = EXCLUDED.is_premium,
		     updated_at = NOW()
		 RETURNING telegram_id, username, first_name, last_name, language_code, is_premium, created_at, updated_at`,
		user.ID, user.Username, user.FirstName, user.LastName, user.LanguageCode, user.IsPremium,
	).Scan(&saved.ID, &saved.Username, &saved.FirstName, &saved.LastName, &saved.LanguageCode, &saved.IsPremium, &saved.CreatedAt, &saved.UpdatedAt)
	if err != nil {
		return saved, err
	}

	return saved, nil
}

// GetByID возвращает пользователя по Telegram ID.
func (r *UserRepository) GetByID(ctx context.Context, id int64) (models.User, error) {
	var user models.User

	err := r.db.QueryRow(ctx,
		`SELECT telegram_id, username, first_name, last_name, language_code, is_premium, created_at, updated_at
		 FROM users
		 WHERE telegram_id = $1`,
		id,
	).Scan(&user.ID, &user.Username, &user.FirstName, &user.LastName, &user.LanguageCode, &user.IsPremium, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user, ErrNotFound
		}
		return user, err
	}

	return user, nil
}
