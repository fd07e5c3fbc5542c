package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv      string
	Port        string
	DatabaseURL string
	JWTSecret   string

	DBMaxConns int32
	DBMinConns int32

	AllowedOrigins []string
	GeoIPDBPath    string

	IdentityIssuer   string
	IdentityAudience string

	CompletionAPIKey  string
	CompletionModel   string
	CompletionBaseURL string
	CompletionTimeout time.Duration

	GatewayKeyID         string
	GatewayKeySecret     string
	GatewayWebhookSecret string
	GatewayBaseURL       string

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	RateLimitPerMin  int
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:               getEnv("APP_ENV", "development"),
		Port:                 getEnv("PORT", "8080"),
		DatabaseURL:          os.Getenv("DATABASE_URL"),
		JWTSecret:            os.Getenv("JWT_SECRET"),
		DBMaxConns:           int32(getEnvInt("DB_MAX_CONNS", 10)),
		DBMinConns:           int32(getEnvInt("DB_MIN_CONNS", 1)),
		AllowedOrigins:       splitEnvList(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),
		GeoIPDBPath:          os.Getenv("GEOIP_DB_PATH"),
		IdentityIssuer:       os.Getenv("IDENTITY_ISSUER"),
		IdentityAudience:     os.Getenv("IDENTITY_AUDIENCE"),
		CompletionAPIKey:     os.Getenv("COMPLETION_API_KEY"),
		CompletionModel:      getEnv("COMPLETION_MODEL", "gpt-4o-mini"),
		CompletionBaseURL:    getEnv("COMPLETION_BASE_URL", "https://api.openai.com/v1"),
		CompletionTimeout:    time.Second * time.Duration(getEnvInt("COMPLETION_TIMEOUT_SECONDS", 30)),
		GatewayKeyID:         os.Getenv("GATEWAY_KEY_ID"),
		GatewayKeySecret:     os.Getenv("GATEWAY_KEY_SECRET"),
		GatewayWebhookSecret: os.Getenv("GATEWAY_WEBHOOK_SECRET"),
		GatewayBaseURL:       getEnv("GATEWAY_BASE_URL", "https://api.razorpay.com/v1"),
		HTTPReadTimeout:      time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout:     time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 60)),
		HTTPIdleTimeout:      time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:      getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	return cfg, nil
}

// PaymentsEnabled reports whether the payment gateway credentials are present.
func (c *Config) PaymentsEnabled() bool {
	return c.GatewayKeyID != "" && c.GatewayKeySecret != ""
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func splitEnvList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
