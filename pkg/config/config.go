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

	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	CORS     CORSConfig
	Log      LogConfig
	Review   ReviewConfig
	Deadline DeadlineConfig
	LLM      LLMConfig
	Export   ExportConfig
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
	Secret string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// ReviewConfig tunes overview composition and caching.
type ReviewConfig struct {
	CacheEnabled   bool
	CacheTTL       time.Duration
	LookbackWeeks  int
	RiskWindowDays int
}

// DeadlineConfig defines the weekly submission cutoff rule.
// Weekday is 0 (Sunday) through 6 (Saturday) within the reporting week.
type DeadlineConfig struct {
	Weekday int
	Hour    int
	Minute  int
}

// LLMConfig governs the external analysis generator.
type LLMConfig struct {
	Enabled     bool
	BaseURL     string
	APIKey      string
	Model       string
	Timeout     time.Duration
	MaxTokens   int
	Temperature float64
}

// ExportConfig toggles the weekly summary export endpoint.
type ExportConfig struct {
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
		if !errors.As(err, &notFound) {
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

	cfg.JWT = JWTConfig{Secret: v.GetString("JWT_SECRET")}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Review = ReviewConfig{
		CacheEnabled:   v.GetBool("REVIEW_CACHE_ENABLED"),
		CacheTTL:       parseDuration(v.GetString("REVIEW_CACHE_TTL"), 5*time.Minute),
		LookbackWeeks:  v.GetInt("REVIEW_LOOKBACK_WEEKS"),
		RiskWindowDays: v.GetInt("REVIEW_RISK_WINDOW_DAYS"),
	}

	cfg.Deadline = DeadlineConfig{
		Weekday: v.GetInt("REVIEW_DEADLINE_WEEKDAY"),
		Hour:    v.GetInt("REVIEW_DEADLINE_HOUR"),
		Minute:  v.GetInt("REVIEW_DEADLINE_MINUTE"),
	}

	cfg.LLM = LLMConfig{
		Enabled:     v.GetBool("LLM_ENABLED"),
		BaseURL:     v.GetString("LLM_BASE_URL"),
		APIKey:      v.GetString("LLM_API_KEY"),
		Model:       v.GetString("LLM_MODEL"),
		Timeout:     parseDuration(v.GetString("LLM_TIMEOUT"), 20*time.Second),
		MaxTokens:   v.GetInt("LLM_MAX_TOKENS"),
		Temperature: v.GetFloat64("LLM_TEMPERATURE"),
	}

	cfg.Export = ExportConfig{Enabled: v.GetBool("ENABLE_EXPORT")}

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
	v.SetDefault("DB_NAME", "class_review")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("REVIEW_CACHE_ENABLED", true)
	v.SetDefault("REVIEW_CACHE_TTL", "5m")
	v.SetDefault("REVIEW_LOOKBACK_WEEKS", 4)
	v.SetDefault("REVIEW_RISK_WINDOW_DAYS", 30)

	// Friday 18:00 of the reporting week.
	v.SetDefault("REVIEW_DEADLINE_WEEKDAY", 5)
	v.SetDefault("REVIEW_DEADLINE_HOUR", 18)
	v.SetDefault("REVIEW_DEADLINE_MINUTE", 0)

	v.SetDefault("LLM_ENABLED", false)
	v.SetDefault("LLM_BASE_URL", "https://api.deepseek.com/v1")
	v.SetDefault("LLM_API_KEY", "")
	v.SetDefault("LLM_MODEL", "deepseek-chat")
	v.SetDefault("LLM_TIMEOUT", "20s")
	v.SetDefault("LLM_MAX_TOKENS", 2048)
	v.SetDefault("LLM_TEMPERATURE", 0.3)

	v.SetDefault("ENABLE_EXPORT", true)
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
