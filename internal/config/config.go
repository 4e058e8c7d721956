package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App      AppConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	Auth     AuthConfig
	Sequence SequenceConfig
	Fanout   FanoutConfig
	Notify   NotifyConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr                  string
	Password              string
	DB                    int
	MemberCacheTTLSeconds int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines identity-token parameters. Tokens are issued by the
// external auth collaborator; this service only verifies the signature.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
}

// CategorySpec defines one ticket-number sequence.
type CategorySpec struct {
	Key    string
	Prefix string
	Start  int64
}

// SequenceConfig maps categories to their counters. Prefixes and start
// values are configuration, not logic.
type SequenceConfig struct {
	Incident     CategorySpec
	Service      CategorySpec
	Change       CategorySpec
	MaxRetries   int
	RetryDelayMS int
}

// Specs returns the category table keyed by category name.
func (s SequenceConfig) Specs() map[string]CategorySpec {
	return map[string]CategorySpec{
		"Incident": s.Incident,
		"Service":  s.Service,
		"Change":   s.Change,
	}
}

// FanoutConfig controls subscription delivery buffers.
type FanoutConfig struct {
	SubscriberBuffer int
}

// NotifyConfig holds SMTP settings for the email notifier.
type NotifyConfig struct {
	Enabled        bool
	SMTPHost       string
	SMTPPort       int
	SMTPUsername   string
	SMTPPassword   string
	From           string
	TimeoutSeconds int
	BaseURL        string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "articket-core"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:                  getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password:              os.Getenv("REDIS_PASSWORD"),
			DB:                    redisDB,
			MemberCacheTTLSeconds: getEnvAsInt("REDIS_MEMBER_CACHE_TTL_SECONDS", 60),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
		},
		Sequence: SequenceConfig{
			Incident: CategorySpec{
				Key:    "incident_counter",
				Prefix: getEnv("SEQ_INCIDENT_PREFIX", "IN"),
				Start:  int64(getEnvAsInt("SEQ_INCIDENT_START", 100000)),
			},
			Service: CategorySpec{
				Key:    "service_counter",
				Prefix: getEnv("SEQ_SERVICE_PREFIX", "SR"),
				Start:  int64(getEnvAsInt("SEQ_SERVICE_START", 200000)),
			},
			Change: CategorySpec{
				Key:    "change_counter",
				Prefix: getEnv("SEQ_CHANGE_PREFIX", "CR"),
				Start:  int64(getEnvAsInt("SEQ_CHANGE_START", 300000)),
			},
			MaxRetries:   getEnvAsInt("SEQ_MAX_RETRIES", 3),
			RetryDelayMS: getEnvAsInt("SEQ_RETRY_DELAY_MS", 50),
		},
		Fanout: FanoutConfig{
			SubscriberBuffer: getEnvAsInt("FANOUT_SUBSCRIBER_BUFFER", 64),
		},
		Notify: NotifyConfig{
			Enabled:        getEnvAsBool("NOTIFY_ENABLED", false),
			SMTPHost:       getEnv("NOTIFY_SMTP_HOST", "localhost"),
			SMTPPort:       getEnvAsInt("NOTIFY_SMTP_PORT", 587),
			SMTPUsername:   os.Getenv("NOTIFY_SMTP_USERNAME"),
			SMTPPassword:   os.Getenv("NOTIFY_SMTP_PASSWORD"),
			From:           getEnv("NOTIFY_EMAIL_FROM", "support@articket.local"),
			TimeoutSeconds: getEnvAsInt("NOTIFY_TIMEOUT_SECONDS", 10),
			BaseURL:        getEnv("NOTIFY_TICKET_BASE_URL", ""),
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// MemberCacheTTL returns the membership cache TTL.
func (r RedisConfig) MemberCacheTTL() time.Duration {
	if r.MemberCacheTTLSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(r.MemberCacheTTLSeconds) * time.Second
}

// RetryDelay returns the delay between sequence commit attempts.
func (s SequenceConfig) RetryDelay() time.Duration {
	if s.RetryDelayMS <= 0 {
		return 50 * time.Millisecond
	}
	return time.Duration(s.RetryDelayMS) * time.Millisecond
}

// Timeout returns the SMTP send timeout.
func (n NotifyConfig) Timeout() time.Duration {
	if n.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(n.TimeoutSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
