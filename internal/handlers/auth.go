package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"example.com/tg-planner/backend/internal/auth"
	"example.com/tg-planner/backend/internal/models"
	"example.com/tg-planner/backend/internal/repository"
	"example.com/tg-planner/backend/internal/telegram"
)

type AuthHandler struct {
	Users          repository.UserStore
	Tokens         repository.TokenStore
	TokenManager   *auth.TokenManager
	BotToken       string
	InitDataMaxAge time.Duration
	Now            func() time.Time
}

// NewAuthHandler создает обработчик авторизации через Telegram.
func NewAuthHandler(users repository.UserStore, tokens repository.TokenStore, manager *auth.TokenManager, botToken string, maxAge time.Duration) *AuthHandler {
	return &AuthHandler{
		Users:          users,
		Tokens:         tokens,
		TokenManager:   manager,
		BotToken:       botToken,
		InitDataMaxAge: maxAge,
		Now:            time.Now,
	}
}

type TelegramLoginRequest struct {
	InitData string `json:"init_data" validate:"required,max=4096"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type LogoutRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type AuthUser struct {
	ID           int64   `json:"id"`
	FirstName    string  `json:"first_name"`
	LastName     *string `json:"last_name,omitempty"`
	Username     *string `json:"username,omitempty"`
	LanguageCode *string `json:"language_code,omitempty"`
	IsPremium    bool    `json:"is_premium"`
}

type AuthResponse struct {
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
	User         AuthUser `json:"user"`
}

type UserResponse struct {
	User AuthUser `json:"user"`
}

type LogoutAllResponse struct {
	Revoked int64 `json:"revoked"`
}

// TelegramLogin проверяет initData мини-приложения и выдает токены.
func (h *AuthHandler) TelegramLogin(c echo.Context) error {
	var req TelegramLoginRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(c, "validation failed")
	}

	if h.BotToken == "" {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "telegram login is not configured"})
	}

	data, err := telegram.ValidateInitData(req.InitData, h.BotToken, h.InitDataMaxAge, h.now())
	if err != nil {
		slog.Debug("init data rejected", slog.String("error", err.Error()))
		if errors.Is(err, telegram.ErrInitDataMalformed) || errors.Is(err, telegram.ErrInitDataEmpty) {
			return badRequest(c, "invalid init data")
		}
		return unauthorized(c)
	}

	user, err := h.Users.Upsert(c.Request().Context(), userFromWebApp(data.User))
	if err != nil {
		return serverError(c)
	}

	response, err := h.issueTokens(c.Request().Context(), user)
	if err != nil {
		return serverError(c)
	}

	return c.JSON(http.StatusOK, response)
}

// Refresh обновляет токены по refresh-токену.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req RefreshRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(c, "validation failed")
	}

	claims, err := h.TokenManager.ParseRefreshToken(req.RefreshToken)
	if err != nil {
		return unauthorized(c)
	}
	refreshID, err := claims.TokenID()
	if err != nil {
		return unauthorized(c)
	}
	userID, err := claims.UserID()
	if err != nil {
		return unauthorized(c)
	}

	ctx := c.Request().Context()
	stored, err := h.Tokens.GetByID(ctx, refreshID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return unauthorized(c)
		}
		return serverError(c)
	}

	if stored.RevokedAt != nil || h.now().After(stored.ExpiresAt) || stored.UserID != userID {
		return unauthorized(c)
	}
	if !h.TokenManager.CompareTokenHash(stored.TokenHash, req.RefreshToken) {
		return unauthorized(c)
	}

	user, err := h.Users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return unauthorized(c)
		}
		return serverError(c)
	}

	newRefreshID := uuid.New()
	pair, err := h.TokenManager.NewTokenPair(userID, newRefreshID)
	if err != nil {
		return serverError(c)
	}

	next := models.RefreshToken{
		ID:        newRefreshID,
		UserID:    userID,
		TokenHash: h.TokenManager.HashToken(pair.RefreshToken),
		ExpiresAt: pair.RefreshExpiresAt,
	}
	if err := h.Tokens.Rotate(ctx, stored.ID, next); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return unauthorized(c)
		}
		return serverError(c)
	}

	return c.JSON(http.StatusOK, AuthResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		User:         toAuthUser(user),
	})
}

// Logout отзывает refresh-токен.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req LogoutRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(c, "validation failed")
	}

	claims, err := h.TokenManager.ParseRefreshToken(req.RefreshToken)
	if err != nil {
		return unauthorized(c)
	}
	refreshID, err := claims.TokenID()
	if err != nil {
		return unauthorized(c)
	}

	if err := h.Tokens.Revoke(c.Request().Context(), refreshID, nil); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return serverError(c)
	}

	return c.NoContent(http.StatusNoContent)
}

// LogoutAll отзывает все refresh-токены текущего пользователя.
func (h *AuthHandler) LogoutAll(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	revoked, err := h.Tokens.RevokeAll(c.Request().Context(), userID)
	if err != nil {
		return serverError(c)
	}

	return c.JSON(http.StatusOK, LogoutAllResponse{Revoked: revoked})
}

// Me возвращает данные текущего пользователя.
func (h *AuthHandler) Me(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	user, err := h.Users.GetByID(c.Request().Context(), userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFound(c, "user not found")
		}
		return serverError(c)
	}

	return c.JSON(http.StatusOK, UserResponse{User: toAuthUser(user)})
}

func (h *AuthHandler) issueTokens(ctx context.Context, user models.User) (AuthResponse, error) {
	refreshID := uuid.New()
	pair, err := h.TokenManager.NewTokenPair(user.ID, refreshID)
	if err != nil {
		return AuthResponse{}, err
	}

	refreshToken := models.RefreshToken{
		ID:        refreshID,
		UserID:    user.ID,
		TokenHash: h.TokenManager.HashToken(pair.RefreshToken),
		ExpiresAt: pair.RefreshExpiresAt,
	}
	if err := h.Tokens.Create(ctx, refreshToken); err != nil {
		return AuthResponse{}, err
	}

	return AuthResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		User:         toAuthUser(user),
	}, nil
}

func (h *AuthHandler) now() time.Time {
	if h.Now == nil {
		return time.Now()
	}
	return h.Now()
}

func userFromWebApp(u telegram.WebAppUser) models.User {
	return models.User{
		ID:           u.ID,
		FirstName:    strings.TrimSpace(u.FirstName),
		LastName:     optionalString(u.LastName),
		Username:     optionalString(u.Username),
		LanguageCode: optionalString(u.LanguageCode),
		IsPremium:    u.IsPremium,
	}
}

func toAuthUser(user models.User) AuthUser {
	return AuthUser{
		ID:           user.ID,
		FirstName:    user.FirstName,
		LastName:     user.LastName,
		Username:     user.Username,
		LanguageCode: user.LanguageCode,
		IsPremium:    user.IsPremium,
	}
}

func optionalString(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func badRequest(c echo.Context, message string) error {
	return c.JSON(http.StatusBadRequest, map[string]string{"error": message})
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
}

func notFound(c echo.Context, message string) error {
	return c.JSON(http.StatusNotFound, map[string]string{"error": message})
}

func tooLarge(c echo.Context, message string) error {
	return c.JSON(http.StatusRequestEntityTooLarge, map[string]string{"error": message})
}

func conflict(c echo.Context, message string) error {
	return c.JSON(http.StatusConflict, map[string]string{"error": message})
}

func serverError(c echo.Context) error {
	return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal server error"})
}

func forbidden(c echo.Context) error {
	return c.JSON(http.StatusForbidden, map[string]string{"error": "access denied"})
}
