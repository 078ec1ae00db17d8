package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StorageBackendPostgres = "postgres"
	StorageBackendMemory   = "memory"
)

const (
	defaultWelcomeText = "Welcome! Plan your day, track your finances and look back on your year, all inside Telegram. Tap the button below to open the app."
	defaultButtonText  = "Open app"
)

type Config struct {
	Env       string
	LogLevel  slog.Level
	Server    ServerConfig
	Database  DatabaseConfig
	Storage   StorageConfig
	Auth      AuthConfig
	Telegram  TelegramConfig
	Analytics AnalyticsConfig
	Admin     AdminConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	CORSOrigins  []string
}

type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxIdleTime time.Duration
	ConnMaxLifetime time.Duration
	ConnectRetries  int
	MigrateOnStart  bool
}

type StorageConfig struct {
	Backend       string
	MaxValueBytes int
}

type AuthConfig struct {
	JWTSecret          string
	JWTIssuer          string
	AccessTokenTTL     time.Duration
	RefreshTokenTTL    time.Duration
	InitDataMaxAge     time.Duration
	RateLimitPerMinute int
	RateLimitBurst     int
}

type TelegramConfig struct {
	BotToken           string
	APIEndpoint        string
	WebAppURL          string
	WelcomeText        string
	ButtonText         string
	Timeout            time.Duration
	WebhookURL         string
	WebhookSecret      string
	RateLimitPerMinute int
	RateLimitBurst     int
}

type AnalyticsConfig struct {
	DefaultTimezone string
	CacheSize       int
	CacheTTL        time.Duration
}

type AdminConfig struct {
	TelegramIDs []int64
}

// Load загружает конфигурацию API-сервера из окружения и .env.
func Load() (Config, error) {
	cfg, err := load()
	if err != nil {
		return cfg, err
	}

	if err := cfg.validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// LoadWebhook загружает конфигурацию отдельного вебхук-сервера.
// Токен бота здесь не обязателен: его отсутствие обрабатывается на запросе.
func LoadWebhook() (Config, error) {
	cfg, err := load()
	if err != nil {
		return cfg, err
	}

	if err := cfg.validateWebhook(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

func load() (Config, error) {
	cfg := Config{}

	if err := loadEnv(); err != nil {
		return cfg, err
	}

	cfg.Env = getEnv("APP_ENV", "local")

	logLevel, err := parseLogLevelEnv("LOG_LEVEL", slog.LevelInfo)
	if err != nil {
		return cfg, err
	}
	cfg.LogLevel = logLevel

	if cfg.Server, err = loadServer(); err != nil {
		return cfg, err
	}
	if cfg.Database, err = loadDatabase(); err != nil {
		return cfg, err
	}
	if cfg.Storage, err = loadStorage(); err != nil {
		return cfg, err
	}
	if cfg.Auth, err = loadAuth(); err != nil {
		return cfg, err
	}
	if cfg.Telegram, err = loadTelegram(); err != nil {
		return cfg, err
	}
	if cfg.Analytics, err = loadAnalytics(); err != nil {
		return cfg, err
	}
	if cfg.Admin.TelegramIDs, err = parseIDListEnv("ADMIN_TELEGRAM_IDS"); err != nil {
		return cfg, err
	}

	return cfg, nil
}

func loadServer() (ServerConfig, error) {
	port, err := parseIntEnv("SERVER_PORT", 8080)
	if err != nil {
		return ServerConfig{}, err
	}

	readTimeout, err := parseDurationEnv("SERVER_READ_TIMEOUT", 5*time.Second)
	if err != nil {
		return ServerConfig{}, err
	}

	writeTimeout, err := parseDurationEnv("SERVER_WRITE_TIMEOUT", 10*time.Second)
	if err != nil {
		return ServerConfig{}, err
	}

	idleTimeout, err := parseDurationEnv("SERVER_IDLE_TIMEOUT", 60*time.Second)
	if err != nil {
		return ServerConfig{}, err
	}

	return ServerConfig{
		Host:         getEnv("SERVER_HOST", "0.0.0.0"),
		Port:         port,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
		CORSOrigins:  parseCSVEnv("CORS_ALLOWED_ORIGINS"),
	}, nil
}

func loadDatabase() (DatabaseConfig, error) {
	port, err := parseIntEnv("DB_PORT", 5432)
	if err != nil {
		return DatabaseConfig{}, err
	}

	maxOpenConns, err := parseIntEnv("DB_MAX_OPEN_CONNS", 10)
	if err != nil {
		return DatabaseConfig{}, err
	}

	maxIdleConns, err := parseIntEnv("DB_MAX_IDLE_CONNS", 2)
	if err != nil {
		return DatabaseConfig{}, err
	}

	connMaxIdleTime, err := parseDurationEnv("DB_CONN_MAX_IDLE_TIME", 5*time.Minute)
	if err != nil {
		return DatabaseConfig{}, err
	}

	connMaxLifetime, err := parseDurationEnv("DB_CONN_MAX_LIFETIME", 30*time.Minute)
	if err != nil {
		return DatabaseConfig{}, err
	}

	retries, err := parseIntEnv("DB_CONNECT_RETRIES", 5)
	if err != nil {
		return DatabaseConfig{}, err
	}

	migrateOnStart, err := parseBoolEnv("DB_MIGRATE_ON_START", true)
	if err != nil {
		return DatabaseConfig{}, err
	}

	return DatabaseConfig{
		Host:            getEnv("DB_HOST", "localhost"),
		Port:            port,
		User:            getEnv("DB_USER", "planner"),
		Password:        getEnv("DB_PASSWORD", "planner"),
		Name:            getEnv("DB_NAME", "tg_planner"),
		SSLMode:         getEnv("DB_SSLMODE", "disable"),
		MaxOpenConns:    maxOpenConns,
		MaxIdleConns:    maxIdleConns,
		ConnMaxIdleTime: connMaxIdleTime,
		ConnMaxLifetime: connMaxLifetime,
		ConnectRetries:  retries,
		MigrateOnStart:  migrateOnStart,
	}, nil
}

func loadStorage() (StorageConfig, error) {
	maxValueBytes, err := parseIntEnv("STORAGE_MAX_VALUE_BYTES", 1<<20)
	if err != nil {
		return StorageConfig{}, err
	}

	return StorageConfig{
		Backend:       strings.ToLower(getEnv("STORAGE_BACKEND", StorageBackendPostgres)),
		MaxValueBytes: maxValueBytes,
	}, nil
}

func loadAuth() (AuthConfig, error) {
	accessTTL, err := parseDurationEnv("JWT_ACCESS_TTL", 15*time.Minute)
	if err != nil {
		return AuthConfig{}, err
	}

	refreshTTL, err := parseDurationEnv("JWT_REFRESH_TTL", 30*24*time.Hour)
	if err != nil {
		return AuthConfig{}, err
	}

	initDataMaxAge, err := parseDurationEnv("AUTH_INIT_DATA_MAX_AGE", 24*time.Hour)
	if err != nil {
		return AuthConfig{}, err
	}

	rateLimitPerMinute, err := parseIntEnv("AUTH_RATE_LIMIT_PER_MINUTE", 60)
	if err != nil {
		return AuthConfig{}, err
	}

	rateLimitBurst, err := parseIntEnv("AUTH_RATE_LIMIT_BURST", 10)
	if err != nil {
		return AuthConfig{}, err
	}

	return AuthConfig{
		JWTSecret:          getEnv("JWT_SECRET", ""),
		JWTIssuer:          getEnv("JWT_ISSUER", "tg-planner"),
		AccessTokenTTL:     accessTTL,
		RefreshTokenTTL:    refreshTTL,
		InitDataMaxAge:     initDataMaxAge,
		RateLimitPerMinute: rateLimitPerMinute,
		RateLimitBurst:     rateLimitBurst,
	}, nil
}

func loadTelegram() (TelegramConfig, error) {
	timeout, err := parseDurationEnv("TELEGRAM_TIMEOUT", 10*time.Second)
	if err != nil {
		return TelegramConfig{}, err
	}

	rateLimitPerMinute, err := parseIntEnv("WEBHOOK_RATE_LIMIT_PER_MINUTE", 600)
	if err != nil {
		return TelegramConfig{}, err
	}

	rateLimitBurst, err := parseIntEnv("WEBHOOK_RATE_LIMIT_BURST", 100)
	if err != nil {
		return TelegramConfig{}, err
	}

	return TelegramConfig{
		BotToken:           getEnv("TELEGRAM_BOT_TOKEN", ""),
		APIEndpoint:        getEnv("TELEGRAM_API_ENDPOINT", ""),
		WebAppURL:          getEnv("TELEGRAM_WEB_APP_URL", "https://example.com"),
		WelcomeText:        getEnv("TELEGRAM_WELCOME_TEXT", defaultWelcomeText),
		ButtonText:         getEnv("TELEGRAM_BUTTON_TEXT", defaultButtonText),
		Timeout:            timeout,
		WebhookURL:         getEnv("TELEGRAM_WEBHOOK_URL", ""),
		WebhookSecret:      getEnv("TELEGRAM_WEBHOOK_SECRET", ""),
		RateLimitPerMinute: rateLimitPerMinute,
		RateLimitBurst:     rateLimitBurst,
	}, nil
}

func loadAnalytics() (AnalyticsConfig, error) {
	cacheSize, err := parseIntEnv("ANALYTICS_CACHE_SIZE", 1000)
	if err != nil {
		return AnalyticsConfig{}, err
	}

	cacheTTL, err := parseDurationEnv("ANALYTICS_CACHE_TTL", 5*time.Minute)
	if err != nil {
		return AnalyticsConfig{}, err
	}

	return AnalyticsConfig{
		DefaultTimezone: getEnv("DEFAULT_TIMEZONE", "UTC"),
		CacheSize:       cacheSize,
		CacheTTL:        cacheTTL,
	}, nil
}

// DSN возвращает строку подключения к базе данных.
func (c DatabaseConfig) DSN() string {
	user := url.UserPassword(c.User, c.Password)
	dsn := url.URL{
		Scheme: "postgres",
		User:   user,
		Host:   fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:   c.Name,
	}

	query := url.Values{}
	query.Set("sslmode", c.SSLMode)
	return dsn.String() + "?" + query.Encode()
}

func (c Config) validate() error {
	if err := c.validateWebhook(); err != nil {
		return err
	}

	switch c.Storage.Backend {
	case StorageBackendPostgres:
		if err := c.Database.validate(); err != nil {
			return err
		}
	case StorageBackendMemory:
	default:
		return fmt.Errorf("STORAGE_BACKEND must be %q or %q", StorageBackendPostgres, StorageBackendMemory)
	}

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	if _, err := time.LoadLocation(c.Analytics.DefaultTimezone); err != nil {
		return fmt.Errorf("DEFAULT_TIMEZONE must be an IANA time zone: %w", err)
	}

	return nil
}

func (c Config) validateWebhook() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("SERVER_PORT must be greater than 0")
	}

	if _, err := url.ParseRequestURI(c.Telegram.WebAppURL); err != nil {
		return fmt.Errorf("TELEGRAM_WEB_APP_URL must be an absolute URL: %w", err)
	}

	if c.Telegram.APIEndpoint != "" && strings.Count(c.Telegram.APIEndpoint, "%s") != 2 {
		return fmt.Errorf("TELEGRAM_API_ENDPOINT must contain two %%s placeholders")
	}

	return nil
}

func (c DatabaseConfig) validate() error {
	if c.Host == "" {
		return fmt.Errorf("DB_HOST is required")
	}

	if c.User == "" {
		return fmt.Errorf("DB_USER is required")
	}

	if c.Name == "" {
		return fmt.Errorf("DB_NAME is required")
	}

	if c.MaxIdleConns > c.MaxOpenConns {
		return fmt.Errorf("DB_MAX_IDLE_CONNS cannot exceed DB_MAX_OPEN_CONNS")
	}

	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}

	return fallback
}

func parseIntEnv(key string, fallback int) (int, error) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback, nil
	}

	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}

	if parsed <= 0 {
		return 0, fmt.Errorf("%s must be greater than 0", key)
	}

	return parsed, nil
}

func parseDurationEnv(key string, fallback time.Duration) (time.Duration, error) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback, nil
	}

	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration: %w", key, err)
	}

	if parsed <= 0 {
		return 0, fmt.Errorf("%s must be greater than 0", key)
	}

	return parsed, nil
}

func parseBoolEnv(key string, fallback bool) (bool, error) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback, nil
	}

	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean: %w", key, err)
	}

	return parsed, nil
}

func parseLogLevelEnv(key string, fallback slog.Level) (slog.Level, error) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback, nil
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(value)); err != nil {
		return fallback, fmt.Errorf("%s must be one of debug, info, warn, error: %w", key, err)
	}

	return level, nil
}

// parseCSVEnv разбирает список через запятую; origin-ы сравниваются без учета регистра.
func parseCSVEnv(key string) []string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return nil
	}

	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.ToLower(strings.TrimSpace(part))
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
	}
	return out
}

func parseIDListEnv(key string) ([]int64, error) {
	parts := parseCSVEnv(key)
	ids := make([]int64, 0, len(parts))
	for _, part := range parts {
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("%s must be a list of Telegram user ids", key)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func loadEnv() error {
	if envFile := os.Getenv("ENV_FILE"); envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return fmt.Errorf("load env file %s: %w", envFile, err)
		}
		return nil
	}

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("load .env: %w", err)
	}

	return nil
}
