package config

import (
	"errors"
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

	Database     DatabaseConfig
	Redis        RedisConfig
	JWT          JWTConfig
	CORS         CORSConfig
	Log          LogConfig
	Identity     IdentityConfig
	Compensation CompensationConfig
	Catalog      CatalogConfig
	Storage      StorageConfig
	Bootstrap    BootstrapConfig
	Dev          DevConfig
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
	// StatementTimeout is sent as the statement_timeout session option.
	StatementTimeout time.Duration
	AppName          string
}

type RedisConfig struct {
	// URL, when set, takes precedence over the discrete fields.
	URL      string
	Host     string
	Port     int
	Password string
	DB       int
	PoolSize int
}

type JWTConfig struct {
	Secret     string
	Issuer     string
	Expiration time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// IdentityConfig bounds calls made to the identity provider.
type IdentityConfig struct {
	Timeout time.Duration
}

// CompensationConfig tunes the queue that removes orphaned identities.
type CompensationConfig struct {
	Workers    int
	MaxRetries int
	RetryDelay time.Duration
}

// CatalogConfig controls caching of geography and bank catalogs.
type CatalogConfig struct {
	CacheEnabled bool
	CacheTTL     time.Duration
}

// StorageConfig points at the directory holding uploaded profile images.
type StorageConfig struct {
	Dir             string
	MaxImageBytes   int64
	AllowedImageExt []string
	SigningSecret   string
	URLTTL          time.Duration
}

// BootstrapConfig seeds the first ADMIN account on an empty database.
type BootstrapConfig struct {
	AdminEmail    string
	AdminPassword string
}

// DevConfig gates destructive maintenance endpoints.
type DevConfig struct {
	EndpointsEnabled bool
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
		if !errors.As(err, &notFound) && !isMissingFile(err) {
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

		StatementTimeout: parseDuration(v.GetString("DB_STATEMENT_TIMEOUT"), 10*time.Second),
		AppName:          v.GetString("DB_APP_NAME"),
	}

	cfg.Redis = RedisConfig{
		URL:      v.GetString("REDIS_URL"),
		PoolSize: v.GetInt("REDIS_POOL_SIZE"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Issuer:     v.GetString("JWT_ISSUER"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Identity = IdentityConfig{
		Timeout: parseDuration(v.GetString("IDENTITY_TIMEOUT"), 5*time.Second),
	}

	cfg.Compensation = CompensationConfig{
		Workers:    v.GetInt("COMPENSATION_WORKERS"),
		MaxRetries: v.GetInt("COMPENSATION_RETRIES"),
		RetryDelay: parseDuration(v.GetString("COMPENSATION_RETRY_DELAY"), 2*time.Second),
	}

	cfg.Catalog = CatalogConfig{
		CacheEnabled: v.GetBool("ENABLE_CATALOG_CACHE"),
		CacheTTL:     parseDuration(v.GetString("CATALOG_CACHE_TTL"), time.Hour),
	}

	maxImage := v.GetInt64("MAX_IMAGE_SIZE")
	if maxImage <= 0 {
		maxImage = 2 * 1024 * 1024
	}
	cfg.Storage = StorageConfig{
		Dir:             v.GetString("STORAGE_DIR"),
		MaxImageBytes:   maxImage,
		AllowedImageExt: splitAndTrim(v.GetString("ALLOWED_IMAGE_EXT")),
		SigningSecret:   v.GetString("STORAGE_SIGNING_SECRET"),
		URLTTL:          parseDuration(v.GetString("STORAGE_URL_TTL"), time.Hour),
	}
	if cfg.Storage.SigningSecret == "" {
		cfg.Storage.SigningSecret = cfg.JWT.Secret
	}

	cfg.Bootstrap = BootstrapConfig{
		AdminEmail:    strings.TrimSpace(v.GetString("BOOTSTRAP_ADMIN_EMAIL")),
		AdminPassword: v.GetString("BOOTSTRAP_ADMIN_PASSWORD"),
	}

	cfg.Dev = DevConfig{
		EndpointsEnabled: v.GetBool("ENABLE_DEV_ENDPOINTS") && cfg.Env != EnvProduction,
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
	v.SetDefault("DB_NAME", "scholarships")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_STATEMENT_TIMEOUT", "10s")
	v.SetDefault("DB_APP_NAME", "scholarship-api")

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("REDIS_POOL_SIZE", 10)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_ISSUER", "scholarship-api")
	v.SetDefault("JWT_EXPIRATION", "24h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("IDENTITY_TIMEOUT", "5s")

	v.SetDefault("COMPENSATION_WORKERS", 1)
	v.SetDefault("COMPENSATION_RETRIES", 5)
	v.SetDefault("COMPENSATION_RETRY_DELAY", "2s")

	v.SetDefault("ENABLE_CATALOG_CACHE", true)
	v.SetDefault("CATALOG_CACHE_TTL", "1h")

	v.SetDefault("STORAGE_DIR", "./uploads")
	v.SetDefault("MAX_IMAGE_SIZE", 2*1024*1024)
	v.SetDefault("ALLOWED_IMAGE_EXT", ".jpg,.jpeg,.png,.webp")
	v.SetDefault("STORAGE_SIGNING_SECRET", "")
	v.SetDefault("STORAGE_URL_TTL", "1h")

	v.SetDefault("BOOTSTRAP_ADMIN_EMAIL", "")
	v.SetDefault("BOOTSTRAP_ADMIN_PASSWORD", "")

	v.SetDefault("ENABLE_DEV_ENDPOINTS", false)
}

func isMissingFile(err error) bool {
	return strings.Contains(err.Error(), "no such file or directory")
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
