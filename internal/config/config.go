package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Storage and sequence backends.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// Config holds all application configuration.
// Values are loaded from environment variables with sensible defaults.
type Config struct {
	// Server
	Port               int
	LogLevel           string
	CORSAllowedOrigins []string

	// Storage
	StorageBackend    string
	DatabaseURL       string
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration
	SeedDemoData      bool

	// Sequences
	SequenceBackend string
	RedisAddr       string
	RedisPassword   string
	RedisDB         int

	// Client directory (empty keeps clients in the local store)
	ClientDirectoryURL string
	HTTPTimeout        time.Duration

	// Resilience
	MaxRetries     int
	InitialBackoff time.Duration
	MaxConcurrency int

	// Cache
	CacheTTL time.Duration

	// Observability
	OTLPEndpoint string

	// JWT / Auth
	JWTSecret    string
	JWTAccessTTL time.Duration

	// Domain
	PhoneDefaultRegion                string
	RemittanceSettlementCreatesLedger bool
}

func defaults(v *viper.Viper) {
	v.SetDefault("PORT", 8080)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "")

	v.SetDefault("STORAGE_BACKEND", BackendMemory)
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("DB_MAX_OPEN_CONNS", 20)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_CONN_MAX_LIFETIME", 30*time.Minute)
	v.SetDefault("SEED_DEMO_DATA", false)

	v.SetDefault("SEQUENCE_BACKEND", "")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("CLIENT_DIRECTORY_URL", "")
	v.SetDefault("HTTP_TIMEOUT", 10*time.Second)

	v.SetDefault("MAX_RETRIES", 3)
	v.SetDefault("INITIAL_BACKOFF", 100*time.Millisecond)
	v.SetDefault("MAX_CONCURRENCY", 50)

	v.SetDefault("CACHE_TTL", 5*time.Minute)

	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")

	v.SetDefault("JWT_SECRET", "backoffice-default-dev-secret-change-me")
	v.SetDefault("JWT_ACCESS_TTL", 8*time.Hour)

	v.SetDefault("PHONE_DEFAULT_REGION", "CU")
	v.SetDefault("REMITTANCE_SETTLEMENT_CREATES_LEDGER", false)
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	return FromViper(newViper())
}

func newViper() *viper.Viper {
	v := viper.New()
	defaults(v)
	v.AutomaticEnv()
	return v
}

// FromViper builds a Config from an already populated viper instance.
func FromViper(v *viper.Viper) *Config {
	cfg := &Config{
		Port:               v.GetInt("PORT"),
		LogLevel:           v.GetString("LOG_LEVEL"),
		CORSAllowedOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),

		StorageBackend:    strings.ToLower(v.GetString("STORAGE_BACKEND")),
		DatabaseURL:       v.GetString("DATABASE_URL"),
		DBMaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
		DBMaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
		DBConnMaxLifetime: v.GetDuration("DB_CONN_MAX_LIFETIME"),
		SeedDemoData:      v.GetBool("SEED_DEMO_DATA"),

		SequenceBackend: strings.ToLower(v.GetString("SEQUENCE_BACKEND")),
		RedisAddr:       v.GetString("REDIS_ADDR"),
		RedisPassword:   v.GetString("REDIS_PASSWORD"),
		RedisDB:         v.GetInt("REDIS_DB"),

		ClientDirectoryURL: strings.TrimRight(v.GetString("CLIENT_DIRECTORY_URL"), "/"),
		HTTPTimeout:        v.GetDuration("HTTP_TIMEOUT"),

		MaxRetries:     v.GetInt("MAX_RETRIES"),
		InitialBackoff: v.GetDuration("INITIAL_BACKOFF"),
		MaxConcurrency: v.GetInt("MAX_CONCURRENCY"),

		CacheTTL: v.GetDuration("CACHE_TTL"),

		OTLPEndpoint: v.GetString("OTEL_EXPORTER_OTLP_ENDPOINT"),

		JWTSecret:    v.GetString("JWT_SECRET"),
		JWTAccessTTL: v.GetDuration("JWT_ACCESS_TTL"),

		PhoneDefaultRegion:                strings.ToUpper(v.GetString("PHONE_DEFAULT_REGION")),
		RemittanceSettlementCreatesLedger: v.GetBool("REMITTANCE_SETTLEMENT_CREATES_LEDGER"),
	}

	// The sequence counter follows the storage backend unless set explicitly.
	if cfg.SequenceBackend == "" {
		cfg.SequenceBackend = cfg.StorageBackend
	}
	return cfg
}

// Validate reports settings that cannot work together.
func (c *Config) Validate() error {
	switch c.StorageBackend {
	case BackendMemory, BackendPostgres:
	default:
		return fmt.Errorf("STORAGE_BACKEND must be %q or %q, got %q", BackendMemory, BackendPostgres, c.StorageBackend)
	}
	switch c.SequenceBackend {
	case BackendRedis:
	case BackendMemory:
		if c.StorageBackend == BackendPostgres {
			return fmt.Errorf("SEQUENCE_BACKEND=memory cannot back STORAGE_BACKEND=postgres: counters would restart below stored tracking numbers")
		}
	case BackendPostgres:
		if c.StorageBackend != BackendPostgres {
			return fmt.Errorf("SEQUENCE_BACKEND=postgres requires STORAGE_BACKEND=postgres")
		}
	default:
		return fmt.Errorf("SEQUENCE_BACKEND must be memory, postgres or redis, got %q", c.SequenceBackend)
	}
	if c.StorageBackend == BackendPostgres && c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required when STORAGE_BACKEND=postgres")
	}
	if c.CacheTTL <= 0 {
		return fmt.Errorf("CACHE_TTL must be positive, got %s", c.CacheTTL)
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET must not be empty")
	}
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
