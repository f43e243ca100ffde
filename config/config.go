// Package config reads runtime configuration from the environment.
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

type Config struct {
	Env  string
	Port string

	DatabaseURL string

	JWTSecret       string
	JWTIssuer       string
	JWTAudience     string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	RedisAddr string
	RedisPass string
	RedisDB   int

	R2AccountID     string
	R2AccessKeyID   string
	R2SecretKey     string
	R2Bucket        string
	R2PublicBaseURL string

	TelegramToken  string
	TelegramChatID int64

	AMQPURL   string
	AMQPQueue string

	Timezone       *time.Location
	RequestTimeout time.Duration
	MaxBodyBytes   int64
	CORSOrigins    []string
	TrustedProxies []string
}

// LoadDotEnv copies .env values into the process environment without
// overriding variables that are already set.
func LoadDotEnv(files ...string) {
	envMap, err := godotenv.Read(files...)
	if err != nil {
		return
	}
	for k, v := range envMap {
		if os.Getenv(k) == "" {
			os.Setenv(k, v)
		}
	}
}

func Load() (*Config, error) {
	tzName := getenv("TZ_NAME", "UTC")
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		return nil, fmt.Errorf("invalid TZ_NAME %q: %w", tzName, err)
	}

	cfg := &Config{
		Env:             strings.ToLower(getenv("ENV", "development")),
		Port:            getenv("PORT", "8080"),
		DatabaseURL:     getenv("DATABASE_URL", mysqlDSNFromParts()),
		JWTSecret:       os.Getenv("JWT_SECRET"),
		JWTIssuer:       os.Getenv("JWT_ISS"),
		JWTAudience:     os.Getenv("JWT_AUD"),
		AccessTokenTTL:  time.Duration(getenvInt("ACCESS_TOKEN_TTL_MIN", 15)) * time.Minute,
		RefreshTokenTTL: time.Duration(getenvInt("REFRESH_TOKEN_TTL_DAYS", 7)) * 24 * time.Hour,
		RedisAddr:       strings.ReplaceAll(os.Getenv("REDIS_ADDR"), " ", ""),
		RedisPass:       os.Getenv("REDIS_PASS"),
		RedisDB:         getenvInt("REDIS_DB", 0),
		R2AccountID:     os.Getenv("R2_ACCOUNT_ID"),
		R2AccessKeyID:   os.Getenv("R2_ACCESS_KEY_ID"),
		R2SecretKey:     os.Getenv("R2_SECRET_ACCESS_KEY"),
		R2Bucket:        os.Getenv("R2_BUCKET_NAME"),
		R2PublicBaseURL: strings.TrimRight(os.Getenv("R2_PUBLIC_BASE_URL"), "/"),
		TelegramToken:   os.Getenv("TELEGRAM_BOT_TOKEN"),
		AMQPURL:         firstenv("RABBITMQ_URL", "AMQP_URL"),
		AMQPQueue:       getenv("AMQP_QUEUE", "family.events"),
		Timezone:        loc,
		RequestTimeout:  time.Duration(getenvInt("REQ_TIMEOUT_SEC", 10)) * time.Second,
		MaxBodyBytes:    int64(getenvInt("MAX_BODY_BYTES", 1<<20)),
		CORSOrigins:     splitList(os.Getenv("CORS_ALLOWED_ORIGINS")),
		TrustedProxies:  splitList(os.Getenv("TRUSTED_PROXIES")),
	}
	if s := os.Getenv("TELEGRAM_CHAT_ID"); s != "" {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid TELEGRAM_CHAT_ID: %w", err)
		}
		cfg.TelegramChatID = id
	}
	return cfg, nil
}

// Validate reports missing values the server cannot start without.
func (c *Config) Validate() error {
	var errs []error
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is not set"))
	} else if len(c.JWTSecret) < 16 {
		errs = append(errs, errors.New("JWT_SECRET must be at least 16 characters"))
	}
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL or DB_HOST/DB_USER/DB_NAME must be set"))
	}
	return errors.Join(errs...)
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func (c *Config) StorageEnabled() bool {
	return c.R2AccountID != "" && c.R2AccessKeyID != "" && c.R2SecretKey != "" && c.R2Bucket != ""
}

// mysqlDSNFromParts builds the DSN from the DB_* variables. TLS and timeout
// params are added by the database package.
func mysqlDSNFromParts() string {
	host := os.Getenv("DB_HOST")
	name := os.Getenv("DB_NAME")
	if host == "" || name == "" {
		return ""
	}
	user := getenv("DB_USER", "root")
	pass := os.Getenv("DB_PASS")
	port := getenv("DB_PORT", "3306")
	params := getenv("DB_PARAMS", "charset=utf8mb4&parseTime=True&loc=Local")
	return fmt.Sprintf("mysql://%s:%s@tcp(%s:%s)/%s?%s", user, pass, host, port, name, params)
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return strings.TrimSpace(v)
	}
	return def
}

func getenvInt(key string, def int) int {
	if s := os.Getenv(key); s != "" {
		if v, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return v
		}
	}
	return def
}

func firstenv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
