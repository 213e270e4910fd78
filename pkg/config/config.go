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

	Database   DatabaseConfig
	Redis      RedisConfig
	JWT        JWTConfig
	Admin      AdminConfig
	CORS       CORSConfig
	Log        LogConfig
	Records    RecordsConfig
	Backups    BackupConfig
	Transcript TranscriptConfig
	Mirror     MirrorConfig
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

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
	Issuer     string
}

// AdminConfig holds the single administrator account allowed to mutate records over HTTP.
type AdminConfig struct {
	Email        string
	PasswordHash string
}

type CORSConfig struct {
	AllowedOrigins []string
}

// LogConfig sets server logging. CLILevel applies to the ccrm command, which logs to stderr.
type LogConfig struct {
	Level    string
	Format   string
	CLILevel string
}

// RecordsConfig controls the in-memory registry and its interchange directory.
type RecordsConfig struct {
	DataDir               string
	MaxCreditsPerSemester int
	LoadOnStart           bool
	SaveOnShutdown        bool
	DownloadSecret        string
	DownloadTTL           time.Duration
}

// BackupConfig controls timestamped data directory copies.
type BackupConfig struct {
	Dir               string
	RetentionDays     int
	WorkerConcurrency int
	WorkerRetries     int
}

// TranscriptConfig governs transcript cache behaviour.
type TranscriptConfig struct {
	CacheEnabled bool
	CacheTTL     time.Duration
}

// MirrorConfig toggles the PostgreSQL snapshot mirror.
type MirrorConfig struct {
	Enabled bool
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

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		Issuer:     v.GetString("JWT_ISSUER"),
	}

	cfg.Admin = AdminConfig{
		Email:        v.GetString("ADMIN_EMAIL"),
		PasswordHash: v.GetString("ADMIN_PASSWORD_HASH"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:    v.GetString("LOG_LEVEL"),
		Format:   v.GetString("LOG_FORMAT"),
		CLILevel: v.GetString("CLI_LOG_LEVEL"),
	}

	maxCredits := v.GetInt("MAX_CREDITS_PER_SEMESTER")
	if maxCredits <= 0 {
		maxCredits = 18
	}
	cfg.Records = RecordsConfig{
		DataDir:               v.GetString("DATA_DIR"),
		MaxCreditsPerSemester: maxCredits,
		LoadOnStart:           v.GetBool("LOAD_ON_START"),
		SaveOnShutdown:        v.GetBool("SAVE_ON_SHUTDOWN"),
		DownloadSecret:        v.GetString("DOWNLOAD_URL_SECRET"),
		DownloadTTL:           parseDuration(v.GetString("DOWNLOAD_URL_TTL"), 15*time.Minute),
	}

	cfg.Backups = BackupConfig{
		Dir:               v.GetString("BACKUP_DIR"),
		RetentionDays:     v.GetInt("BACKUP_RETENTION_DAYS"),
		WorkerConcurrency: v.GetInt("BACKUP_WORKER_CONCURRENCY"),
		WorkerRetries:     v.GetInt("BACKUP_WORKER_RETRIES"),
	}

	cfg.Transcript = TranscriptConfig{
		CacheEnabled: v.GetBool("ENABLE_TRANSCRIPT_CACHE"),
		CacheTTL:     parseDuration(v.GetString("TRANSCRIPT_CACHE_TTL"), 10*time.Minute),
	}

	cfg.Mirror = MirrorConfig{
		Enabled: v.GetBool("ENABLE_DB_MIRROR"),
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
	v.SetDefault("DB_NAME", "ccrm")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("JWT_ISSUER", "ccrm-api")

	v.SetDefault("ADMIN_EMAIL", "admin@campus.local")
	v.SetDefault("ADMIN_PASSWORD_HASH", "")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("CLI_LOG_LEVEL", "warn")

	v.SetDefault("DATA_DIR", "./data")
	v.SetDefault("MAX_CREDITS_PER_SEMESTER", 18)
	v.SetDefault("LOAD_ON_START", true)
	v.SetDefault("SAVE_ON_SHUTDOWN", true)
	v.SetDefault("DOWNLOAD_URL_SECRET", "dev_download_secret")
	v.SetDefault("DOWNLOAD_URL_TTL", "15m")

	v.SetDefault("BACKUP_DIR", "./backups")
	v.SetDefault("BACKUP_RETENTION_DAYS", 30)
	v.SetDefault("BACKUP_WORKER_CONCURRENCY", 1)
	v.SetDefault("BACKUP_WORKER_RETRIES", 3)

	v.SetDefault("ENABLE_TRANSCRIPT_CACHE", false)
	v.SetDefault("TRANSCRIPT_CACHE_TTL", "10m")

	v.SetDefault("ENABLE_DB_MIRROR", false)
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

