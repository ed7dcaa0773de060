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

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database      DatabaseConfig
	Redis         RedisConfig
	JWT           JWTConfig
	CORS          CORSConfig
	Log           LogConfig
	Locks         LockConfig
	RedeemLimits  RedeemLimitConfig
	Messenger     MessengerConfig
	Screenshots   ScreenshotConfig
	Events        EventsConfig
	Exports       ExportsConfig
	Promotions    PromotionsConfig
	LoginThrottle LoginThrottleConfig
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
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	Host        string
	Port        int
	Password    string
	DB          int
	PoolSize    int
	DialTimeout time.Duration
}

type JWTConfig struct {
	Secret            string
	Issuer            string
	Expiration        time.Duration
	RefreshExpiration time.Duration

	// SingleSession revokes older refresh tokens on every login.
	SingleSession bool
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// LockConfig controls processing lock expiry.
type LockConfig struct {
	TTL           time.Duration
	SweepInterval time.Duration
}

// RedeemLimitConfig holds the rolling window caps applied on redeem submission.
type RedeemLimitConfig struct {
	DailyCap float64
	GameCap  float64
	Window   time.Duration
}

// MessengerConfig configures the player messaging integration.
type MessengerConfig struct {
	Enabled    bool
	BaseURL    string
	TeamTokens map[string]string
	Timeout    time.Duration
	RPS        float64
	Burst      int
	Workers    int
	MaxRetries int
}

// ScreenshotConfig controls proof uploads.
type ScreenshotConfig struct {
	StorageDir      string
	PublicBaseURL   string
	SignedURLSecret string
	SignedURLTTL    time.Duration
	MaxFileSize     int64
	AllowedMIMEs    []string
}

// EventsConfig tunes the change stream.
type EventsConfig struct {
	RedisChannel      string
	Backlog           int
	KeepAliveInterval time.Duration
}

// ExportsConfig toggles request exports.
type ExportsConfig struct {
	Enabled bool
	MaxRows int
}

// PromotionsConfig tunes promotion caching.
type PromotionsConfig struct {
	CacheEnabled bool
	CacheTTL     time.Duration
}

// LoginThrottleConfig bounds login attempts per client.
type LoginThrottleConfig struct {
	RPS   float64
	Burst int
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
		Host:            v.GetString("DB_HOST"),
		Port:            v.GetInt("DB_PORT"),
		User:            v.GetString("DB_USER"),
		Password:        v.GetString("DB_PASSWORD"),
		Name:            v.GetString("DB_NAME"),
		SSLMode:         v.GetString("DB_SSL_MODE"),
		MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
		ConnMaxLifetime: parseDuration(v.GetString("DB_CONN_MAX_LIFETIME"), time.Hour),
	}

	cfg.Redis = RedisConfig{
		Host:        v.GetString("REDIS_HOST"),
		Port:        v.GetInt("REDIS_PORT"),
		Password:    v.GetString("REDIS_PASSWORD"),
		DB:          v.GetInt("REDIS_DB"),
		PoolSize:    v.GetInt("REDIS_POOL_SIZE"),
		DialTimeout: parseDuration(v.GetString("REDIS_DIAL_TIMEOUT"), 5*time.Second),
	}

	cfg.JWT = JWTConfig{
		Secret:            v.GetString("JWT_SECRET"),
		Issuer:            v.GetString("JWT_ISSUER"),
		Expiration:        parseDuration(v.GetString("JWT_EXPIRATION"), 12*time.Hour),
		RefreshExpiration: parseDuration(v.GetString("REFRESH_TOKEN_EXPIRATION"), 7*24*time.Hour),
		SingleSession:     v.GetBool("AUTH_SINGLE_SESSION"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Locks = LockConfig{
		TTL:           parseDuration(v.GetString("LOCK_TTL"), 10*time.Minute),
		SweepInterval: parseDuration(v.GetString("LOCK_SWEEP_INTERVAL"), time.Minute),
	}

	cfg.RedeemLimits = RedeemLimitConfig{
		DailyCap: v.GetFloat64("REDEEM_DAILY_CAP"),
		GameCap:  v.GetFloat64("REDEEM_GAME_CAP"),
		Window:   parseDuration(v.GetString("REDEEM_LIMIT_WINDOW"), 24*time.Hour),
	}

	cfg.Messenger = MessengerConfig{
		Enabled:    v.GetBool("ENABLE_MESSENGER"),
		BaseURL:    v.GetString("MESSENGER_BASE_URL"),
		TeamTokens: parsePairs(v.GetString("MESSENGER_TEAM_TOKENS")),
		Timeout:    parseDuration(v.GetString("MESSENGER_TIMEOUT"), 5*time.Second),
		RPS:        v.GetFloat64("MESSENGER_RPS"),
		Burst:      v.GetInt("MESSENGER_BURST"),
		Workers:    v.GetInt("MESSENGER_WORKERS"),
		MaxRetries: v.GetInt("MESSENGER_MAX_RETRIES"),
	}

	maxShot := v.GetInt64("SCREENSHOTS_MAX_FILE_SIZE")
	if maxShot <= 0 {
		maxShot = 5 * 1024 * 1024
	}
	cfg.Screenshots = ScreenshotConfig{
		StorageDir:      v.GetString("SCREENSHOTS_STORAGE_DIR"),
		PublicBaseURL:   v.GetString("SCREENSHOTS_PUBLIC_BASE_URL"),
		SignedURLSecret: v.GetString("SCREENSHOTS_SIGNED_URL_SECRET"),
		SignedURLTTL:    parseDuration(v.GetString("SCREENSHOTS_SIGNED_URL_TTL"), 30*24*time.Hour),
		MaxFileSize:     maxShot,
		AllowedMIMEs:    splitAndTrim(v.GetString("SCREENSHOTS_ALLOWED_MIME_TYPES")),
	}

	cfg.Events = EventsConfig{
		RedisChannel:      v.GetString("EVENTS_REDIS_CHANNEL"),
		Backlog:           v.GetInt("EVENTS_BACKLOG"),
		KeepAliveInterval: parseDuration(v.GetString("EVENTS_KEEPALIVE_INTERVAL"), 15*time.Second),
	}

	cfg.Exports = ExportsConfig{
		Enabled: v.GetBool("ENABLE_EXPORTS"),
		MaxRows: v.GetInt("EXPORTS_MAX_ROWS"),
	}

	cfg.Promotions = PromotionsConfig{
		CacheEnabled: v.GetBool("PROMOTIONS_CACHE_ENABLED"),
		CacheTTL:     parseDuration(v.GetString("PROMOTIONS_CACHE_TTL"), 5*time.Minute),
	}

	cfg.LoginThrottle = LoginThrottleConfig{
		RPS:   v.GetFloat64("LOGIN_RPS"),
		Burst: v.GetInt("LOGIN_BURST"),
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
	v.SetDefault("DB_NAME", "ent_backoffice")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 20)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_ISSUER", "ent-backoffice")
	v.SetDefault("JWT_EXPIRATION", "12h")
	v.SetDefault("REFRESH_TOKEN_EXPIRATION", "168h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("LOCK_TTL", "10m")
	v.SetDefault("LOCK_SWEEP_INTERVAL", "1m")

	v.SetDefault("REDEEM_DAILY_CAP", 2000)
	v.SetDefault("REDEEM_GAME_CAP", 500)
	v.SetDefault("REDEEM_LIMIT_WINDOW", "24h")

	v.SetDefault("ENABLE_MESSENGER", false)
	v.SetDefault("MESSENGER_BASE_URL", "https://api.manychat.com")
	v.SetDefault("MESSENGER_TEAM_TOKENS", "")
	v.SetDefault("MESSENGER_TIMEOUT", "5s")
	v.SetDefault("MESSENGER_RPS", 5)
	v.SetDefault("MESSENGER_BURST", 5)
	v.SetDefault("MESSENGER_WORKERS", 2)
	v.SetDefault("MESSENGER_MAX_RETRIES", 3)

	v.SetDefault("SCREENSHOTS_STORAGE_DIR", "./screenshots")
	v.SetDefault("SCREENSHOTS_PUBLIC_BASE_URL", "http://localhost:8080/api/v1/files")
	v.SetDefault("SCREENSHOTS_SIGNED_URL_SECRET", "dev_screenshots_secret")
	v.SetDefault("SCREENSHOTS_SIGNED_URL_TTL", "720h")
	v.SetDefault("SCREENSHOTS_MAX_FILE_SIZE", 5*1024*1024)
	v.SetDefault("SCREENSHOTS_ALLOWED_MIME_TYPES", "image/png,image/jpeg,image/webp")

	v.SetDefault("EVENTS_REDIS_CHANNEL", "request_changes")
	v.SetDefault("EVENTS_BACKLOG", 256)
	v.SetDefault("EVENTS_KEEPALIVE_INTERVAL", "15s")

	v.SetDefault("ENABLE_EXPORTS", true)
	v.SetDefault("EXPORTS_MAX_ROWS", 5000)

	v.SetDefault("PROMOTIONS_CACHE_ENABLED", true)
	v.SetDefault("PROMOTIONS_CACHE_TTL", "5m")

	v.SetDefault("LOGIN_RPS", 1)
	v.SetDefault("LOGIN_BURST", 5)
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

// parsePairs reads "KEY:value,KEY2:value2" lists.
func parsePairs(raw string) map[string]string {
	result := make(map[string]string)
	for _, item := range splitAndTrim(raw) {
		key, value, ok := strings.Cut(item, ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if key == "" || value == "" {
			continue
		}
		result[key] = value
	}
	return result
}
