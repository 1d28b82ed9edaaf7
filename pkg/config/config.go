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

	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	CORS      CORSConfig
	Log       LogConfig
	Scheduler SchedulerConfig
	Analysis  AnalysisConfig
	Jobs      JobsConfig
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
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// SchedulerConfig tunes the week generator and the day planner.
type SchedulerConfig struct {
	// PairSizeHours is how many academic hours one lesson-pair consumes.
	PairSizeHours int
	// WeekParityBase anchors the even/odd week alternation.
	WeekParityBase time.Time
	EnableShifts   bool
	MinPairsPerDay int
	MaxPairsPerDay int
	// SwapAlternativeLimit bounds the alternatives listed per swap conflict.
	SwapAlternativeLimit int
	// ReplacementLimit bounds teacher candidates scanned per vacant entry.
	ReplacementLimit int
}

// AnalysisConfig governs caching of day analysis reports.
type AnalysisConfig struct {
	CacheEnabled bool
	CacheTTL     time.Duration
}

// JobsConfig sizes the semester-generation worker queue.
type JobsConfig struct {
	Workers    int
	MaxRetries int
	RetryDelay time.Duration
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

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Scheduler = SchedulerConfig{
		PairSizeHours:        v.GetInt("SCHEDULER_PAIR_SIZE_HOURS"),
		WeekParityBase:       parseDate(v.GetString("SCHEDULER_WEEK_PARITY_BASE"), time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)),
		EnableShifts:         v.GetBool("SCHEDULER_ENABLE_SHIFTS"),
		MinPairsPerDay:       v.GetInt("SCHEDULER_MIN_PAIRS_PER_DAY"),
		MaxPairsPerDay:       v.GetInt("SCHEDULER_MAX_PAIRS_PER_DAY"),
		SwapAlternativeLimit: v.GetInt("SCHEDULER_SWAP_ALTERNATIVE_LIMIT"),
		ReplacementLimit:     v.GetInt("SCHEDULER_REPLACEMENT_LIMIT"),
	}

	cfg.Analysis = AnalysisConfig{
		CacheEnabled: v.GetBool("ANALYSIS_CACHE_ENABLED"),
		CacheTTL:     parseDuration(v.GetString("ANALYSIS_CACHE_TTL"), 5*time.Minute),
	}

	cfg.Jobs = JobsConfig{
		Workers:    v.GetInt("JOBS_WORKERS"),
		MaxRetries: v.GetInt("JOBS_MAX_RETRIES"),
		RetryDelay: parseDuration(v.GetString("JOBS_RETRY_DELAY"), time.Second),
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
	v.SetDefault("DB_NAME", "college_timetable")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("SCHEDULER_PAIR_SIZE_HOURS", 2)
	v.SetDefault("SCHEDULER_WEEK_PARITY_BASE", "2025-09-01")
	v.SetDefault("SCHEDULER_ENABLE_SHIFTS", true)
	v.SetDefault("SCHEDULER_MIN_PAIRS_PER_DAY", 0)
	v.SetDefault("SCHEDULER_MAX_PAIRS_PER_DAY", 4)
	v.SetDefault("SCHEDULER_SWAP_ALTERNATIVE_LIMIT", 5)
	v.SetDefault("SCHEDULER_REPLACEMENT_LIMIT", 20)

	v.SetDefault("ANALYSIS_CACHE_ENABLED", false)
	v.SetDefault("ANALYSIS_CACHE_TTL", "5m")

	v.SetDefault("JOBS_WORKERS", 1)
	v.SetDefault("JOBS_MAX_RETRIES", 3)
	v.SetDefault("JOBS_RETRY_DELAY", "1s")
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

func parseDate(raw string, fallback time.Time) time.Time {
	if raw == "" {
		return fallback
	}

	d, err := time.Parse("2006-01-02", raw)
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
