package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/tg-planner/backend/internal/models"
)

type AdminRepository struct {
	db *pgxpool.Pool
}

type DailyCount struct {
	Day   time.Time
	Count int
}

type UsageStats struct {
	Users         int
	ActiveUsers   int
	StorageItems  int
	StorageBytes  int64
	NewUsersByDay []DailyCount
}

// NewAdminRepository создает репозиторий для админских запросов.
func NewAdminRepository(db *pgxpool.Pool) *AdminRepository {
	return &AdminRepository{db: db}
}

// ListUsers возвращает пользователей, последние обновленные первыми.
func (r *AdminRepository) ListUsers(ctx context.Context, limit, offset int) ([]models.User, error) {
	rows, err := r.db.Query(ctx,
		`SELECT telegram_id, username, first_name, last_name, language_code, is_premium, created_at, updated_at
		 FROM users
		 ORDER BY updated_at DESC, telegram_id
		 LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]models.User, 0)
	for rows.Next() {
		var user models.User
		if err := rows.Scan(&user.ID, &user.Username, &user.FirstName, &user.LastName, &user.LanguageCode, &user.IsPremium, &user.CreatedAt, &user.UpdatedAt); err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return users, nil
}

// CountUsers возвращает общее количество пользователей.
func (r *AdminRepository) CountUsers(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// UsageStats возвращает число пользователей, объем хранилища и регистрации за N дней.
func (r *AdminRepository) UsageStats(ctx context.Context, days int) (UsageStats, error) {
	stats := UsageStats{}
	if days <= 0 {
		return stats, ErrInvalid
	}
	start := time.Now().UTC().AddDate(0, 0, -days+1)

	if err := r.db.QueryRow(ctx,
		`SELECT COUNT(*),
		        COUNT(*) FILTER (WHERE updated_at >= $1)
		 FROM users`,
		start,
	).Scan(&stats.Users, &stats.ActiveUsers); err != nil {
		return stats, err
	}

	if err := r.db.QueryRow(ctx,
		`SELECT COUNT(*), COALESCE(SUM(octet_length(value::text)), 0)
		 FROM storage_items`,
	).Scan(&stats.StorageItems, &stats.StorageBytes); err != nil {
		return stats, err
	}

	rows, err := r.db.Query(ctx,
		`SELECT date_trunc('day', created_at)::date AS day,
		        COUNT(*)
		 FROM users
		 WHERE created_at >= $1
		 GROUP BY day
		 ORDER BY day DESC`,
		start,
	)
	if err != nil {
		return stats, err
	}
	defer rows.Close()

	stats.NewUsersByDay = make([]DailyCount, 0)
	for rows.Next() {
		var row DailyCount
		if err := rows.Scan(&row.Day, &row.Count); err != nil {
			return stats, err
		}
		stats.NewUsersByDay = append(stats.NewUsersByDay, row)
	}
	if err := rows.Err(); err != nil {
		return stats, err
	}

	return stats, nil
}
