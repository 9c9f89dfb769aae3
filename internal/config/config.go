package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

type Config struct {
	Port     string
	LogLevel string

	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Argon2   Argon2Config
	Refresh  RefreshConfig
	OTP      OTPConfig
	Labels   LabelConfig
	Tracking TrackingConfig
	Limits   RateLimitConfig
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	MigrationsPath  string
}

// DSN returns the lib/pq connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

func (c RedisConfig) Addr() string {
	return c.Host + ":" + c.Port
}

type JWTConfig struct {
	SecretKey string
	AccessTTL time.Duration
	Issuer    string
}

// Argon2Config parameterises argon2id for passwords, refresh secrets and OTP codes.
type Argon2Config struct {
	Time       uint32
	Memory     uint32
	Threads    uint8
	KeyLength  uint32
	SaltLength int
}

type RefreshConfig struct {
	TTL         time.Duration
	SecretBytes int
}

type OTPConfig struct {
	TTL         time.Duration
	MaxAttempts int
}

type LabelConfig struct {
	Price decimal.Decimal
}

type TrackingConfig struct {
	MaxAttempts int
	RetryDelay  time.Duration
	PollTimeout time.Duration
}

type RateLimitConfig struct {
	AuthRPS   float64
	AuthBurst int
}

var envBindings = map[string]string{
	"port":      "PORT",
	"log.level": "LOG_LEVEL",

	"database.host":            "DATABASE_HOST",
	"database.port":            "DATABASE_PORT",
	"database.user":            "DATABASE_USER",
	"database.password":        "DATABASE_PASSWORD",
	"database.name":            "DATABASE_NAME",
	"database.ssl_mode":        "DATABASE_SSL_MODE",
	"database.migrations_path": "DATABASE_MIGRATIONS_PATH",

	"redis.host":     "REDIS_HOST",
	"redis.port":     "REDIS_PORT",
	"redis.password": "REDIS_PASSWORD",
	"redis.db":       "REDIS_DB",

	"jwt.secret_key": "JWT_SECRET_KEY",
	"jwt.access_ttl": "JWT_ACCESS_TTL",
	"jwt.issuer":     "JWT_ISSUER",

	"argon2.time":        "ARGON2_TIME",
	"argon2.memory":      "ARGON2_MEMORY",
	"argon2.threads":     "ARGON2_THREADS",
	"argon2.key_length":  "ARGON2_KEY_LENGTH",
	"argon2.salt_length": "ARGON2_SALT_LENGTH",

	"refresh.ttl":          "REFRESH_TTL",
	"refresh.secret_bytes": "REFRESH_SECRET_BYTES",

	"otp.ttl":          "OTP_TTL",
	"otp.max_attempts": "OTP_MAX_ATTEMPTS",

	"labels.price": "LABEL_PRICE",

	"tracking.max_attempts": "TRACKING_MAX_ATTEMPTS",
	"tracking.retry_delay":  "TRACKING_RETRY_DELAY",
	"tracking.poll_timeout": "TRACKING_POLL_TIMEOUT",

	"limits.auth_rps":   "AUTH_RATE_LIMIT_RPS",
	"limits.auth_burst": "AUTH_RATE_LIMIT_BURST",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("log.level", "info")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "password")
	v.SetDefault("database.name", "labeldesk")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	v.SetDefault("database.migrations_path", "./migrations")

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", "6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("jwt.access_ttl", 15*time.Minute)
	v.SetDefault("jwt.issuer", "labeldesk")

	v.SetDefault("argon2.time", 1)
	v.SetDefault("argon2.memory", 64*1024)
	v.SetDefault("argon2.threads", 4)
	v.SetDefault("argon2.key_length", 32)
	v.SetDefault("argon2.salt_length", 16)

	v.SetDefault("refresh.ttl", 30*24*time.Hour)
	v.SetDefault("refresh.secret_bytes", 32)

	v.SetDefault("otp.ttl", 10*time.Minute)
	v.SetDefault("otp.max_attempts", 5)

	v.SetDefault("labels.price", "1.00")

	v.SetDefault("tracking.max_attempts", 3)
	v.SetDefault("tracking.retry_delay", 5*time.Second)
	v.SetDefault("tracking.poll_timeout", 2*time.Second)

	v.SetDefault("limits.auth_rps", 5.0)
	v.SetDefault("limits.auth_burst", 10)
}

// Load reads configuration from an optional .env file and the environment.
// Environment variables take precedence over the file.
func Load(envFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", env, err)
		}
	}
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if envFile != "" {
		v.SetConfigFile(envFile)
		v.SetConfigType("env")
		if err := v.ReadInConfig(); err != nil {
			slog.Info("config file not found, using environment and defaults", "file", envFile, "error", err)
		} else {
			// .env keys are flat (JWT_SECRET_KEY); surface them under the nested
			// keys so bound environment variables still take precedence.
			for key, env := range envBindings {
				if fv := v.Get(strings.ToLower(env)); fv != nil {
					v.SetDefault(key, fv)
				}
			}
		}
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	price, err := decimal.NewFromString(v.GetString("labels.price"))
	if err != nil {
		return nil, fmt.Errorf("invalid LABEL_PRICE %q: %w", v.GetString("labels.price"), err)
	}
	if !price.IsPositive() {
		return nil, fmt.Errorf("LABEL_PRICE must be positive, got %s", price)
	}

	cfg := &Config{
		Port:     v.GetString("port"),
		LogLevel: v.GetString("log.level"),
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetString("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			Name:            v.GetString("database.name"),
			SSLMode:         v.GetString("database.ssl_mode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetDuration("database.conn_max_lifetime"),
			MigrationsPath:  v.GetString("database.migrations_path"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetString("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		JWT: JWTConfig{
			SecretKey: v.GetString("jwt.secret_key"),
			AccessTTL: v.GetDuration("jwt.access_ttl"),
			Issuer:    v.GetString("jwt.issuer"),
		},
		Argon2: Argon2Config{
			Time:       v.GetUint32("argon2.time"),
			Memory:     v.GetUint32("argon2.memory"),
			Threads:    uint8(v.GetUint("argon2.threads")),
			KeyLength:  v.GetUint32("argon2.key_length"),
			SaltLength: v.GetInt("argon2.salt_length"),
		},
		Refresh: RefreshConfig{
			TTL:         v.GetDuration("refresh.ttl"),
			SecretBytes: v.GetInt("refresh.secret_bytes"),
		},
		OTP: OTPConfig{
			TTL:         v.GetDuration("otp.ttl"),
			MaxAttempts: v.GetInt("otp.max_attempts"),
		},
		Labels: LabelConfig{Price: price.Round(2)},
		Tracking: TrackingConfig{
			MaxAttempts: v.GetInt("tracking.max_attempts"),
			RetryDelay:  v.GetDuration("tracking.retry_delay"),
			PollTimeout: v.GetDuration("tracking.poll_timeout"),
		},
		Limits: RateLimitConfig{
			AuthRPS:   v.GetFloat64("limits.auth_rps"),
			AuthBurst: v.GetInt("limits.auth_burst"),
		},
	}

	if cfg.JWT.SecretKey == "" {
		return nil, fmt.Errorf("JWT_SECRET_KEY is required")
	}
	if cfg.Refresh.SecretBytes < 32 || cfg.Refresh.SecretBytes > 64 {
		return nil, fmt.Errorf("REFRESH_SECRET_BYTES must be between 32 and 64, got %d", cfg.Refresh.SecretBytes)
	}
	if cfg.Tracking.MaxAttempts < 1 {
		return nil, fmt.Errorf("TRACKING_MAX_ATTEMPTS must be at least 1")
	}

	return cfg, nil
}
