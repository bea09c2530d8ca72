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

// Room release policies applied when an allocation stops holding a room.
const (
	ReleaseUnconditional = "unconditional"
	ReleaseRecompute     = "recompute"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database   DatabaseConfig
	Redis      RedisConfig
	JWT        JWTConfig
	CORS       CORSConfig
	Log        LogConfig
	Tracing    TracingConfig
	Allocation AllocationConfig
	Slots      SlotsConfig
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
	AutoMigrate  bool
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

// TracingConfig toggles the OpenTelemetry stdout exporter.
type TracingConfig struct {
	Enabled        bool
	Output         string
	ServiceName    string
	ServiceVersion string
}

// AllocationConfig governs lifecycle policies of room allocations.
type AllocationConfig struct {
	CacheEnabled     bool
	CacheTTL         time.Duration
	RecheckOnApprove bool
	ReleasePolicy    string
	ElevatedRoles    []string
}

// SlotsConfig lists the slot start times of each shift, in HH:MM.
type SlotsConfig struct {
	Morning   []string
	Afternoon []string
	Evening   []string
}

// Shifts returns the slot table keyed by shift name.
func (s SlotsConfig) Shifts() map[string][]string {
	return map[string][]string{
		"morning":   s.Morning,
		"afternoon": s.Afternoon,
		"evening":   s.Evening,
	}
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

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
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
		AutoMigrate:  v.GetBool("DB_AUTO_MIGRATE"),
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

	cfg.Tracing = TracingConfig{
		Enabled:        v.GetBool("TRACING_ENABLED"),
		Output:         v.GetString("TRACING_OUTPUT"),
		ServiceName:    v.GetString("SERVICE_NAME"),
		ServiceVersion: v.GetString("SERVICE_VERSION"),
	}

	policy := strings.ToLower(strings.TrimSpace(v.GetString("ROOM_RELEASE_POLICY")))
	if policy != ReleaseRecompute {
		policy = ReleaseUnconditional
	}
	cfg.Allocation = AllocationConfig{
		CacheEnabled:     v.GetBool("ENABLE_ALLOCATION_CACHE"),
		CacheTTL:         parseDuration(v.GetString("ALLOCATION_CACHE_TTL"), 2*time.Minute),
		RecheckOnApprove: v.GetBool("ALLOCATION_RECHECK_ON_APPROVE"),
		ReleasePolicy:    policy,
		ElevatedRoles:    splitAndTrim(v.GetString("ELEVATED_ROLES")),
	}

	cfg.Slots = SlotsConfig{
		Morning:   splitAndTrim(v.GetString("SLOTS_MORNING")),
		Afternoon: splitAndTrim(v.GetString("SLOTS_AFTERNOON")),
		Evening:   splitAndTrim(v.GetString("SLOTS_EVENING")),
	}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "room_allocation")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_AUTO_MIGRATE", true)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("TRACING_ENABLED", false)
	v.SetDefault("TRACING_OUTPUT", "")
	v.SetDefault("SERVICE_NAME", "room-allocation-api")
	v.SetDefault("SERVICE_VERSION", "0.1.0")

	v.SetDefault("ENABLE_ALLOCATION_CACHE", false)
	v.SetDefault("ALLOCATION_CACHE_TTL", "2m")
	v.SetDefault("ALLOCATION_RECHECK_ON_APPROVE", false)
	v.SetDefault("ROOM_RELEASE_POLICY", ReleaseUnconditional)
	v.SetDefault("ELEVATED_ROLES", "admin")

	v.SetDefault("SLOTS_MORNING", "07:10,08:00,08:50,09:40,10:30,11:20")
	v.SetDefault("SLOTS_AFTERNOON", "13:00,13:50,14:40,15:30,16:20,17:10")
	v.SetDefault("SLOTS_EVENING", "19:00,19:50,20:40,21:30,22:20")
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
