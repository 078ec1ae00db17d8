package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"example.com/tg-planner/backend/internal/models"
	"example.com/tg-planner/backend/internal/repository"
)

// loadDocument читает документ-массив пользователя.
// Отсутствующий или поврежденный документ считается пустым.
func loadDocument[T any](ctx context.Context, store repository.KVStore, userID int64, key string) ([]T, error) {
	item, err := store.Get(ctx, userID, key)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return []T{}, nil
		}
		return nil, err
	}

	list, err := models.DecodeList[T](item.Value)
	if err != nil {
		slog.Warn("document is not a list",
			slog.Int64("user_id", userID),
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		return []T{}, nil
	}
	return list, nil
}

var (
	errDocumentNotList  = errors.New("document is not a list")
	errDocumentTooLarge = errors.New("document is too large")
)

// appendToDocument дописывает элемент в конец документа-массива.
// Существующие элементы сохраняются как есть, даже если их не удается разобрать.
func appendToDocument(ctx context.Context, store repository.KVStore, userID int64, key string, element any, maxBytes int) error {
	var elements []json.RawMessage

	item, err := store.Get(ctx, userID, key)
	switch {
	case errors.Is(err, repository.ErrNotFound):
	case err != nil:
		return err
	default:
		if err := json.Unmarshal(item.Value, &elements); err != nil {
			return errDocumentNotList
		}
	}

	raw, err := json.Marshal(element)
	if err != nil {
		return err
	}
	elements = append(elements, raw)

	var payload bytes.Buffer
	payload.WriteByte('[')
	for i, element := range elements {
		if i > 0 {
			payload.WriteByte(',')
		}
		payload.Write(element)
	}
	payload.WriteByte(']')

	if maxBytes > 0 && payload.Len() > maxBytes {
		return errDocumentTooLarge
	}

	_, err = store.Put(ctx, userID, key, payload.Bytes())
	return err
}
