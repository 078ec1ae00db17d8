package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"example.com/tg-planner/backend/internal/auth"
	"example.com/tg-planner/backend/internal/models"
	"example.com/tg-planner/backend/internal/notifications"
	"example.com/tg-planner/backend/internal/repository"
)

// Invalidator сбрасывает закэшированные ответы пользователя.
type Invalidator interface {
	Invalidate(userID int64) int
}

type StorageHandler struct {
	Storage       repository.KVStore
	Notifier      *notifications.Hub
	Cache         Invalidator
	MaxValueBytes int
}

// NewStorageHandler создает обработчик облачного хранилища.
func NewStorageHandler(storage repository.KVStore, notifier *notifications.Hub, cache Invalidator, maxValueBytes int) *StorageHandler {
	return &StorageHandler{
		Storage:       storage,
		Notifier:      notifier,
		Cache:         cache,
		MaxValueBytes: maxValueBytes,
	}
}

type KeysResponse struct {
	Keys []string `json:"keys"`
}

type ItemsResponse struct {
	Items map[string]models.StorageItem `json:"items"`
}

// List возвращает ключи пользователя или значения по списку keys.
func (h *StorageHandler) List(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	ctx := c.Request().Context()
	if raw := c.QueryParam("keys"); raw != "" {
		keys := splitKeys(raw)
		for _, key := range keys {
			if !repository.ValidKey(key) {
				return badRequest(c, "invalid key")
			}
		}

		items, err := h.Storage.GetMany(ctx, userID, keys)
		if err != nil {
			return serverError(c)
		}
		return c.JSON(http.StatusOK, ItemsResponse{Items: items})
	}

	keys, err := h.Storage.Keys(ctx, userID)
	if err != nil {
		return serverError(c)
	}
	if keys == nil {
		keys = []string{}
	}

	return c.JSON(http.StatusOK, KeysResponse{Keys: keys})
}

// Get возвращает значение по ключу.
func (h *StorageHandler) Get(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	key := c.Param("key")
	if !repository.ValidKey(key) {
		return badRequest(c, "invalid key")
	}

	item, err := h.Storage.Get(c.Request().Context(), userID, key)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFound(c, "key not found")
		}
		return serverError(c)
	}

	return c.JSON(http.StatusOK, item)
}

// Put сохраняет JSON-значение по ключу.
func (h *StorageHandler) Put(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	key := c.Param("key")
	if !repository.ValidKey(key) {
		return badRequest(c, "invalid key")
	}

	body, err := io.ReadAll(io.LimitReader(c.Request().Body, int64(h.MaxValueBytes)+1))
	if err != nil {
		return badRequest(c, "invalid payload")
	}
	if h.MaxValueBytes > 0 && len(body) > h.MaxValueBytes {
		return tooLarge(c, "value is too large")
	}
	if !json.Valid(body) {
		return badRequest(c, "value must be valid JSON")
	}

	item, err := h.Storage.Put(c.Request().Context(), userID, key, json.RawMessage(body))
	if err != nil {
		if errors.Is(err, repository.ErrInvalid) {
			return badRequest(c, "invalid value")
		}
		return serverError(c)
	}

	h.changed(userID, notifications.EventStorageUpdated, key)
	return c.JSON(http.StatusOK, item)
}

// Delete удаляет значение по ключу.
func (h *StorageHandler) Delete(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	key := c.Param("key")
	if !repository.ValidKey(key) {
		return badRequest(c, "invalid key")
	}

	if err := h.Storage.Delete(c.Request().Context(), userID, key); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFound(c, "key not found")
		}
		return serverError(c)
	}

	h.changed(userID, notifications.EventStorageDeleted, key)
	return c.NoContent(http.StatusNoContent)
}

func (h *StorageHandler) changed(userID int64, eventType, key string) {
	if h.Cache != nil {
		h.Cache.Invalidate(userID)
	}
	publishStorageEvent(h.Notifier, userID, eventType, key)
}

func splitKeys(raw string) []string {
	parts := strings.Split(raw, ",")
	keys := make([]string, 0, len(parts))
	for _, part := range parts {
		if key := strings.TrimSpace(part); key != "" {
			keys = append(keys, key)
		}
	}
	return keys
}
