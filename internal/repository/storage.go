package repository

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/tg-planner/backend/internal/models"
)

type StorageRepository struct {
	db *pgxpool.Pool
}

// NewStorageRepository создает key-value репозиторий поверх PostgreSQL.
func NewStorageRepository(db *pgxpool.Pool) *StorageRepository {
	return &StorageRepository{db: db}
}

// Get возвращает значение по ключу.
func (r *StorageRepository) Get(ctx context.Context, userID int64, key string) (models.StorageItem, error) {
	item := models.StorageItem{UserID: userID, Key: key}

	err := r.db.QueryRow(ctx,
		`SELECT value, updated_at
		 FROM storage_items
		 WHERE user_id = $1 AND key = $2`,
		userID, key,
	).Scan(&item.Value, &item.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return item, ErrNotFound
		}
		return item, err
	}

	return item, nil
}

// GetMany возвращает найденные значения по списку ключей.
func (r *StorageRepository) GetMany(ctx context.Context, userID int64, keys []string) (map[string]models.StorageItem, error) {
	rows, err := r.db.Query(ctx,
		`SELECT key, value, updated_at
		 FROM storage_items
		 WHERE user_id = $1 AND key = ANY($2)`,
		userID, keys,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make(map[string]models.StorageItem, len(keys))
	for rows.Next() {
		item := models.StorageItem{UserID: userID}
		if err := rows.Scan(&item.Key, &item.Value, &item.UpdatedAt); err != nil {
			return nil, err
		}
		items[item.Key] = item
	}

	return items, rows.Err()
}

// Put сохраняет значение, перезаписывая предыдущее.
func (r *StorageRepository) Put(ctx context.Context, userID int64, key string, value json.RawMessage) (models.StorageItem, error) {
	if !ValidKey(key) || !json.Valid(value) {
		return models.StorageItem{}, ErrInvalid
	}

	item := models.StorageItem{UserID: userID, Key: key}
	err := r.db.QueryRow(ctx,
		`INSERT INTO storage_items (user_id, key, value)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (user_id, key) DO UPDATE
		 SET value = EXCLUDED.value, updated_at = NOW()
		 RETURNING value, updated_at`,
		userID, key, value,
	).Scan(&item.Value, &item.UpdatedAt)
	if err != nil {
		return item, err
	}

	return item, nil
}

// Delete удаляет ключ.
func (r *StorageRepository) Delete(ctx context.Context, userID int64, key string) error {
	cmd, err := r.db.Exec(ctx,
		`DELETE FROM storage_items WHERE user_id = $1 AND key = $2`,
		userID, key,
	)
	if err != nil {
		return err
	}

	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// Keys возвращает ключи пользователя в алфавитном порядке.
func (r *StorageRepository) Keys(ctx context.Context, userID int64) ([]string, error) {
	rows, err := r.db.Query(ctx,
		`SELECT key FROM storage_items WHERE user_id = $1 ORDER BY key`,
		userID,
	)
	if err != nil {
		return nil, err
	}

	return pgx.CollectRows(rows, pgx.RowTo[string])
}
