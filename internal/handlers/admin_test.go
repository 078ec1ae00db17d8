package handlers

import (
	"context"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/tg-planner/backend/internal/models"
	"example.com/tg-planner/backend/internal/repository"
)

func newAdminEcho(t *testing.T, userID int64) *echo.Echo {
	t.Helper()

	store := repository.NewMemoryStore()
	for _, id := range []int64{10, 20, 30} {
		_, err := store.Upsert(context.Background(), models.User{ID: id, FirstName: "user"})
		require.NoError(t, err)
	}

	h := NewAdminHandler(store.Admin())
	e := newTestEcho()
	g := e.Group("/admin", asUser(userID), AdminMiddleware([]int64{10}))
	g.GET("/users", h.ListUsers)
	g.GET("/usage", h.Usage)
	return e
}

// TestAdminAccess проверяет доступ только для перечисленных Telegram ID.
func TestAdminAccess(t *testing.T) {
	requireStatus(t, doRequest(newAdminEcho(t, 20), http.MethodGet, "/admin/users", ""), http.StatusForbidden)

	rec := doRequest(newAdminEcho(t, 10), http.MethodGet, "/admin/users?limit=2", "")
	requireStatus(t, rec, http.StatusOK)

	resp := decodeBody[AdminUsersResponse](t, rec)
	assert.Equal(t, 3, resp.Total)
	assert.Len(t, resp.Users, 2)
}

// TestAdminUsage проверяет статистику и разбор параметров.
func TestAdminUsage(t *testing.T) {
	e := newAdminEcho(t, 10)

	rec := doRequest(e, http.MethodGet, "/admin/usage?days=90", "")
	requireStatus(t, rec, http.StatusOK)
	resp := decodeBody[AdminUsageResponse](t, rec)
	assert.Equal(t, 3, resp.Users)
	assert.Equal(t, 3, resp.ActiveUsers)
	require.Len(t, resp.NewUsersByDay, 1)
	assert.Equal(t, 3, resp.NewUsersByDay[0].Count)

	requireStatus(t, doRequest(e, http.MethodGet, "/admin/usage?days=0", ""), http.StatusBadRequest)
	requireStatus(t, doRequest(e, http.MethodGet, "/admin/users?offset=-1", ""), http.StatusBadRequest)
}
