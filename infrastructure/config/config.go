package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store backends selectable per concern.
const (
	StoreMemory   = "memory"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
)

const MinJWTSecretLength = 32

type Config struct {
	ServerHost  string
	ServerPort  string
	GRPCPort    string
	Environment string

	JWTSecret       string
	JWTIssuer       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	RateLimitEnabled      bool
	RateLimitRequests     int
	RateLimitWindow       time.Duration
	RateLimitCacheMaxSize int
	RateLimitStore        string

	BlacklistStore         string
	BlacklistSweepSchedule string

	UserStore   string
	DatabaseURL string
	RedisURL    string

	AuthWhitelistPaths []string
	AuthBlacklistPaths []string
	AuthDeniedIPs      []string

	LogLevel  string
	LogFormat string

	CORSEnabled          bool
	CORSAllowedOrigins   []string
	CORSAllowCredentials bool

	SeedAdminUsername string
	SeedAdminPassword string
	BcryptCost        int
}

var (
	ErrMissingDatabaseURL = errors.New("DATABASE_URL is required for postgres stores")
	ErrMissingJWTSecret   = errors.New("JWT_SECRET is required")
	ErrWeakJWTSecret      = fmt.Errorf("JWT_SECRET must be at least %d bytes", MinJWTSecretLength)
	ErrInvalidTokenTTL    = errors.New("invalid token TTL format")
	ErrInvalidStore       = errors.New("invalid store backend")
	ErrInvalidRateLimit   = errors.New("rate limit requests and window must be positive")
)

// Load membaca konfigurasi dari environment (dan .env jika ada)
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		ServerHost:  getEnvOrDefault("SERVER_HOST", "0.0.0.0"),
		ServerPort:  getEnvOrDefault("SERVER_PORT", "8080"),
		GRPCPort:    os.Getenv("GRPC_PORT"),
		Environment: getEnvOrDefault("ENV", "development"),

		JWTSecret: os.Getenv("JWT_SECRET"),
		JWTIssuer: getEnvOrDefault("JWT_ISSUER", "flowable-auth-server"),

		RateLimitEnabled:      getEnvOrDefaultBool("RATE_LIMIT_ENABLED", true),
		RateLimitRequests:     getEnvOrDefaultInt("RATE_LIMIT_REQUESTS_PER_MINUTE", 200),
		RateLimitCacheMaxSize: getEnvOrDefaultInt("RATE_LIMIT_CACHE_MAX_SIZE", 10000),
		RateLimitStore:        strings.ToLower(getEnvOrDefault("RATE_LIMIT_STORE", StoreMemory)),

		BlacklistStore:         strings.ToLower(getEnvOrDefault("BLACKLIST_STORE", StoreMemory)),
		BlacklistSweepSchedule: getEnvOrDefault("BLACKLIST_SWEEP_SCHEDULE", "@every 1h"),

		UserStore:   strings.ToLower(getEnvOrDefault("USER_STORE", StoreMemory)),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisURL:    getEnvOrDefault("REDIS_URL", "redis://localhost:6379/0"),

		AuthWhitelistPaths: parseList(getEnvOrDefault("AUTH_WHITELIST_PATHS", "/api/auth/login,/api/auth/refresh,/health")),
		AuthBlacklistPaths: parseList(getEnvOrDefault("AUTH_BLACKLIST_PATHS", "/api/init/")),
		AuthDeniedIPs:      parseList(os.Getenv("AUTH_DENIED_IPS")),

		LogLevel:  getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat: getEnvOrDefault("LOG_FORMAT", "json"),

		CORSEnabled:          getEnvOrDefaultBool("CORS_ENABLED", true),
		CORSAllowCredentials: getEnvOrDefaultBool("CORS_ALLOW_CREDENTIALS", true),
		CORSAllowedOrigins:   parseList(os.Getenv("CORS_ALLOWED_ORIGINS")),

		SeedAdminUsername: getEnvOrDefault("SEED_ADMIN_USERNAME", "admin"),
		SeedAdminPassword: os.Getenv("SEED_ADMIN_PASSWORD"),
		BcryptCost:        getEnvOrDefaultInt("BCRYPT_COST", 10),
	}

	if cfg.JWTSecret == "" {
		return nil, ErrMissingJWTSecret
	}
	if len(cfg.JWTSecret) < MinJWTSecretLength {
		return nil, ErrWeakJWTSecret
	}

	accessTokenTTL, err := parseTokenTTL(getEnvOrDefault("JWT_ACCESS_TOKEN_TTL", "3600"))
	if err != nil {
		return nil, ErrInvalidTokenTTL
	}
	cfg.AccessTokenTTL = accessTokenTTL

	refreshTokenTTL, err := parseTokenTTL(getEnvOrDefault("JWT_REFRESH_TOKEN_TTL", "604800"))
	if err != nil {
		return nil, ErrInvalidTokenTTL
	}
	cfg.RefreshTokenTTL = refreshTokenTTL

	window, err := parseTokenTTL(getEnvOrDefault("RATE_LIMIT_WINDOW", "60"))
	if err != nil {
		return nil, ErrInvalidTokenTTL
	}
	cfg.RateLimitWindow = window
	if cfg.RateLimitRequests <= 0 || cfg.RateLimitWindow <= 0 {
		return nil, ErrInvalidRateLimit
	}

	if err := validateStore("RATE_LIMIT_STORE", cfg.RateLimitStore, StoreMemory, StoreRedis); err != nil {
		return nil, err
	}
	if err := validateStore("BLACKLIST_STORE", cfg.BlacklistStore, StoreMemory, StoreRedis, StorePostgres); err != nil {
		return nil, err
	}
	if err := validateStore("USER_STORE", cfg.UserStore, StoreMemory, StorePostgres); err != nil {
		return nil, err
	}

	if cfg.NeedsDatabase() && cfg.DatabaseURL == "" {
		return nil, ErrMissingDatabaseURL
	}

	return cfg, nil
}

// NeedsDatabase reports whether any store is backed by postgres.
func (c *Config) NeedsDatabase() bool {
	return c.UserStore == StorePostgres || c.BlacklistStore == StorePostgres
}

// NeedsRedis reports whether any store is backed by redis.
func (c *Config) NeedsRedis() bool {
	return c.RateLimitStore == StoreRedis || c.BlacklistStore == StoreRedis
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%s", c.ServerHost, c.ServerPort)
}

func validateStore(key, value string, allowed ...string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return fmt.Errorf("%w: %s=%q (allowed: %s)", ErrInvalidStore, key, value, strings.Join(allowed, ", "))
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvOrDefaultBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			return defaultValue
		}
		return parsed
	}
	return defaultValue
}

func getEnvOrDefaultInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return defaultValue
		}
		return parsed
	}
	return defaultValue
}

// parseTokenTTL accepts plain seconds or a Go duration string.
func parseTokenTTL(value string) (time.Duration, error) {
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds <= 0 {
			return 0, fmt.Errorf("ttl must be positive: %d", seconds)
		}
		return time.Duration(seconds) * time.Second, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("ttl must be positive: %s", d)
	}
	return d, nil
}

func parseList(value string) []string {
	if value == "" {
		return []string{}
	}
	parts := strings.Split(value, ",")
	res := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			res = append(res, trimmed)
		}
	}
	return res
}
