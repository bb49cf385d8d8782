package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Calendar backends.
const (
	CalendarBackendSQL  = "sql"
	CalendarBackendHTTP = "http"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database DatabaseConfig
	Redis    RedisConfig
	CORS     CORSConfig
	Log      LogConfig
	State    StateConfig
	Calendar CalendarConfig
	Notify   NotifyConfig
	SMTP     SMTPConfig
	Cache    CacheConfig
	Receipts ReceiptConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// StateConfig signs the workflow state handed back to callers between steps.
type StateConfig struct {
	Secret string
	TTL    time.Duration
}

// CalendarConfig selects where committed route changes are written.
type CalendarConfig struct {
	Backend    string
	APIURL     string
	APITimeout time.Duration
}

// NotifyConfig controls change notifications sent after a commit.
type NotifyConfig struct {
	Enabled    bool
	OpsMailbox string
	Workers    int
	Retries    int
}

// SMTPConfig is the outbound mail relay.
type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

// CacheConfig governs read-through caching of region and club lookups.
type CacheConfig struct {
	Enabled bool
	TTL     time.Duration
}

// ReceiptConfig controls archived PDF recaps of committed batches.
type ReceiptConfig struct {
	Enabled   bool
	Dir       string
	Secret    string
	LinkTTL   time.Duration
	Retention time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.State = StateConfig{
		Secret: v.GetString("STATE_SECRET"),
		TTL:    parseDuration(v.GetString("STATE_TTL"), 2*time.Hour),
	}

	cfg.Calendar = CalendarConfig{
		Backend:    strings.ToLower(strings.TrimSpace(v.GetString("CALENDAR_BACKEND"))),
		APIURL:     v.GetString("CALENDAR_API_URL"),
		APITimeout: parseDuration(v.GetString("CALENDAR_API_TIMEOUT"), 15*time.Second),
	}
	if cfg.Calendar.Backend != CalendarBackendHTTP {
		cfg.Calendar.Backend = CalendarBackendSQL
	}

	cfg.Notify = NotifyConfig{
		Enabled:    v.GetBool("NOTIFY_ENABLED"),
		OpsMailbox: v.GetString("NOTIFY_OPS_MAILBOX"),
		Workers:    v.GetInt("NOTIFY_WORKERS"),
		Retries:    v.GetInt("NOTIFY_RETRIES"),
	}

	cfg.SMTP = SMTPConfig{
		Host:     v.GetString("SMTP_HOST"),
		Port:     v.GetInt("SMTP_PORT"),
		User:     v.GetString("SMTP_USER"),
		Password: v.GetString("SMTP_PASSWORD"),
		From:     v.GetString("SMTP_FROM"),
	}

	cfg.Cache = CacheConfig{
		Enabled: v.GetBool("CACHE_ENABLED"),
		TTL:     parseDuration(v.GetString("CACHE_TTL"), 10*time.Minute),
	}

	cfg.Receipts = ReceiptConfig{
		Enabled:   v.GetBool("RECEIPTS_ENABLED"),
		Dir:       v.GetString("RECEIPTS_DIR"),
		Secret:    v.GetString("RECEIPTS_SECRET"),
		LinkTTL:   parseDuration(v.GetString("RECEIPTS_LINK_TTL"), 24*time.Hour),
		Retention: parseDuration(v.GetString("RECEIPTS_RETENTION"), 7*24*time.Hour),
	}
	if cfg.Receipts.Secret == "" {
		cfg.Receipts.Secret = cfg.State.Secret
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "rusa_calendar")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("STATE_SECRET", "dev_state_secret")
	v.SetDefault("STATE_TTL", "2h")

	v.SetDefault("CALENDAR_BACKEND", CalendarBackendSQL)
	v.SetDefault("CALENDAR_API_URL", "")
	v.SetDefault("CALENDAR_API_TIMEOUT", "15s")

	v.SetDefault("NOTIFY_ENABLED", true)
	v.SetDefault("NOTIFY_OPS_MAILBOX", "calendar@rusa.org")
	v.SetDefault("NOTIFY_WORKERS", 1)
	v.SetDefault("NOTIFY_RETRIES", 3)

	v.SetDefault("SMTP_HOST", "localhost")
	v.SetDefault("SMTP_PORT", 25)
	v.SetDefault("SMTP_USER", "")
	v.SetDefault("SMTP_PASSWORD", "")
	v.SetDefault("SMTP_FROM", "noreply@rusa.org")

	v.SetDefault("CACHE_ENABLED", false)
	v.SetDefault("CACHE_TTL", "10m")

	v.SetDefault("RECEIPTS_ENABLED", true)
	v.SetDefault("RECEIPTS_DIR", "./receipts")
	v.SetDefault("RECEIPTS_SECRET", "")
	v.SetDefault("RECEIPTS_LINK_TTL", "24h")
	v.SetDefault("RECEIPTS_RETENTION", "168h")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
