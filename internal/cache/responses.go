package cache

import (
	"strconv"
	"sync"
	"time"
)

// Responses кэш готовых ответов с поколением на пользователя.
// Поколение входит в ключ, поэтому ответ, собранный до Invalidate,
// не записывается и не читается после него.
type Responses struct {
	lru *LRU[any]

	mu          sync.Mutex
	generations map[int64]uint64
}

func NewResponses(maxSize int, ttl time.Duration) *Responses {
	return &Responses{
		lru:         NewLRU[any](maxSize, ttl),
		generations: make(map[int64]uint64),
	}
}

// Key строит ключ ответа пользователя в текущем поколении.
func (r *Responses) Key(userID int64, suffix string) (string, uint64) {
	r.mu.Lock()
	generation := r.generations[userID]
	r.mu.Unlock()

	return userPrefix(userID) + strconv.FormatUint(generation, 10) + ":" + suffix, generation
}

func (r *Responses) Get(key string) (any, bool) {
	return r.lru.Get(key)
}

// Set сохраняет ответ, только если поколение пользователя не сменилось.
func (r *Responses) Set(userID int64, generation uint64, key string, value any) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.generations[userID] != generation {
		return false
	}
	r.lru.Set(key, value)
	return true
}

// Invalidate сбрасывает ответы пользователя и начинает новое поколение.
func (r *Responses) Invalidate(userID int64) int {
	r.mu.Lock()
	r.generations[userID]++
	r.mu.Unlock()

	return r.lru.DeletePrefix(userPrefix(userID))
}

func (r *Responses) Len() int {
	return r.lru.Len()
}

func userPrefix(userID int64) string {
	return strconv.FormatInt(userID, 10) + ":"
}
