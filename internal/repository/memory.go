package repository

import (
	"bytes"
	"cmp"
	"context"
	"encoding/json"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"example.com/tg-planner/backend/internal/models"
)

type storageKey struct {
	userID int64
	key    string
}

// MemoryStore хранит пользователей, токены и key-value данные в памяти процесса.
// Используется при STORAGE_BACKEND=memory и в тестах.
type MemoryStore struct {
	mu      sync.RWMutex
	now     func() time.Time
	users   map[int64]models.User
	tokens  map[uuid.UUID]models.RefreshToken
	storage map[storageKey]models.StorageItem
}

// NewMemoryStore создает пустое хранилище в памяти.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		now:     func() time.Time { return time.Now().UTC() },
		users:   make(map[int64]models.User),
		tokens:  make(map[uuid.UUID]models.RefreshToken),
		storage: make(map[storageKey]models.StorageItem),
	}
}

func (m *MemoryStore) Upsert(_ context.Context, user models.User) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if existing, ok := m.users[user.ID]; ok {
		user.CreatedAt = existing.CreatedAt
	} else {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	m.users[user.ID] = user
	return user, nil
}

func (m *MemoryStore) GetByID(_ context.Context, id int64) (models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	user, ok := m.users[id]
	if !ok {
		return user, ErrNotFound
	}
	return user, nil
}

// Tokens возвращает представление хранилища как TokenStore.
func (m *MemoryStore) Tokens() TokenStore {
	return memoryTokens{m}
}

type memoryTokens struct {
	m *MemoryStore
}

func (t memoryTokens) Create(_ context.Context, token models.RefreshToken) error {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()

	if _, exists := t.m.tokens[token.ID]; exists {
		return ErrConflict
	}
	token.CreatedAt = t.m.now()
	t.m.tokens[token.ID] = token
	return nil
}

func (t memoryTokens) GetByID(_ context.Context, id uuid.UUID) (models.RefreshToken, error) {
	t.m.mu.RLock()
	defer t.m.mu.RUnlock()

	token, ok := t.m.tokens[id]
	if !ok {
		return token, ErrNotFound
	}
	return token, nil
}

func (t memoryTokens) Revoke(_ context.Context, id uuid.UUID, replacedBy *uuid.UUID) error {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()

	return t.revokeLocked(id, replacedBy)
}

func (t memoryTokens) RevokeAll(_ context.Context, userID int64) (int64, error) {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()

	var revoked int64
	for id, token := range t.m.tokens {
		if token.UserID == userID && token.RevokedAt == nil {
			_ = t.revokeLocked(id, nil)
			revoked++
		}
	}
	return revoked, nil
}

func (t memoryTokens) Rotate(_ context.Context, oldID uuid.UUID, newToken models.RefreshToken) error {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()

	if _, exists := t.m.tokens[newToken.ID]; exists {
		return ErrConflict
	}
	if err := t.revokeLocked(oldID, &newToken.ID); err != nil {
		return err
	}
	newToken.CreatedAt = t.m.now()
	t.m.tokens[newToken.ID] = newToken
	return nil
}

func (t memoryTokens) revokeLocked(id uuid.UUID, replacedBy *uuid.UUID) error {
	token, ok := t.m.tokens[id]
	if !ok || token.RevokedAt != nil {
		return ErrNotFound
	}
	now := t.m.now()
	token.RevokedAt = &now
	token.ReplacedBy = replacedBy
	t.m.tokens[id] = token
	return nil
}

// Storage возвращает представление хранилища как KVStore.
func (m *MemoryStore) Storage() KVStore {
	return memoryStorage{m}
}

type memoryStorage struct {
	m *MemoryStore
}

func (s memoryStorage) Get(_ context.Context, userID int64, key string) (models.StorageItem, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()

	item, ok := s.m.storage[storageKey{userID, key}]
	if !ok {
		return models.StorageItem{UserID: userID, Key: key}, ErrNotFound
	}
	return cloneItem(item), nil
}

func (s memoryStorage) GetMany(_ context.Context, userID int64, keys []string) (map[string]models.StorageItem, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()

	items := make(map[string]models.StorageItem, len(keys))
	for _, key := range keys {
		if item, ok := s.m.storage[storageKey{userID, key}]; ok {
			items[key] = cloneItem(item)
		}
	}
	return items, nil
}

func (s memoryStorage) Put(_ context.Context, userID int64, key string, value json.RawMessage) (models.StorageItem, error) {
	if !ValidKey(key) || !json.Valid(value) {
		return models.StorageItem{}, ErrInvalid
	}

	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	item := models.StorageItem{
		UserID:    userID,
		Key:       key,
		Value:     bytes.Clone(value),
		UpdatedAt: s.m.now(),
	}
	s.m.storage[storageKey{userID, key}] = item
	return cloneItem(item), nil
}

func (s memoryStorage) Delete(_ context.Context, userID int64, key string) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	k := storageKey{userID, key}
	if _, ok := s.m.storage[k]; !ok {
		return ErrNotFound
	}
	delete(s.m.storage, k)
	return nil
}

func (s memoryStorage) Keys(_ context.Context, userID int64) ([]string, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()

	keys := make([]string, 0)
	for k := range s.m.storage {
		if k.userID == userID {
			keys = append(keys, k.key)
		}
	}
	slices.Sort(keys)
	return keys, nil
}

func cloneItem(item models.StorageItem) models.StorageItem {
	item.Value = bytes.Clone(item.Value)
	return item
}

// Admin возвращает представление хранилища как AdminStore.
func (m *MemoryStore) Admin() AdminStore {
	return memoryAdmin{m}
}

type memoryAdmin struct {
	m *MemoryStore
}

func (a memoryAdmin) ListUsers(_ context.Context, limit, offset int) ([]models.User, error) {
	a.m.mu.RLock()
	users := make([]models.User, 0, len(a.m.users))
	for _, user := range a.m.users {
		users = append(users, user)
	}
	a.m.mu.RUnlock()

	slices.SortFunc(users, func(x, y models.User) int {
		if c := y.UpdatedAt.Compare(x.UpdatedAt); c != 0 {
			return c
		}
		return cmp.Compare(x.ID, y.ID)
	})

	if offset >= len(users) {
		return []models.User{}, nil
	}
	users = users[offset:]
	if limit > 0 && limit < len(users) {
		users = users[:limit]
	}
	return users, nil
}

func (a memoryAdmin) CountUsers(_ context.Context) (int, error) {
	a.m.mu.RLock()
	defer a.m.mu.RUnlock()
	return len(a.m.users), nil
}

func (a memoryAdmin) UsageStats(_ context.Context, days int) (UsageStats, error) {
	stats := UsageStats{}
	if days <= 0 {
		return stats, ErrInvalid
	}

	a.m.mu.RLock()
	defer a.m.mu.RUnlock()

	now := a.m.now()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, -days+1)

	byDay := make(map[time.Time]int)
	for _, user := range a.m.users {
		stats.Users++
		if !user.UpdatedAt.Before(start) {
			stats.ActiveUsers++
		}
		if !user.CreatedAt.Before(start) {
			created := user.CreatedAt.UTC()
			byDay[time.Date(created.Year(), created.Month(), created.Day(), 0, 0, 0, 0, time.UTC)]++
		}
	}
	for _, item := range a.m.storage {
		stats.StorageItems++
		stats.StorageBytes += int64(len(item.Value))
	}

	stats.NewUsersByDay = make([]DailyCount, 0, len(byDay))
	for day, count := range byDay {
		stats.NewUsersByDay = append(stats.NewUsersByDay, DailyCount{Day: day, Count: count})
	}
	slices.SortFunc(stats.NewUsersByDay, func(x, y DailyCount) int { return y.Day.Compare(x.Day) })

	return stats, nil
}
