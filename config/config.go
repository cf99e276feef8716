package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"

	IdentityLocal    = "local"
	IdentitySupabase = "supabase"
)

type Config struct {
	// HTTP
	Port        string
	BasePath    string
	FrontendURL string
	CORSOrigins []string
	Environment string
	LogLevel    string

	// Storage
	StoreBackend      string
	DatabaseURL       string
	SQLiteDBPath      string
	DataEncryptionKey string

	// Identity
	IdentityBackend    string
	JWTSecret          string
	TokenTTL           time.Duration
	SupabaseURL        string
	SupabaseAnonKey    string
	SupabaseServiceKey string

	// Admin
	AdminSecret string

	// Email
	ResendAPIKey string
	EmailFrom    string

	// Messaging
	AMQPURL      string
	AMQPExchange string

	// Rate limiting
	RateLimit  int
	RateWindow time.Duration

	// Summary clock
	Timezone string

	// Demo account
	SeedDemoUser bool
	DemoEmail    string
	DemoPassword string
	DemoName     string
}

// Load reads the .env file when present, then the environment.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		// Not fatal: production reads the real environment.
		fmt.Fprintln(os.Stderr, "No .env file found, using environment variables")
	}

	frontendURL := getEnv("FRONTEND_URL", "http://localhost:3000")

	return &Config{
		Port:        getEnv("PORT", "8080"),
		BasePath:    getEnv("BASE_PATH", "/api/v1"),
		FrontendURL: frontendURL,
		CORSOrigins: getEnvList("CORS_ORIGINS", []string{frontendURL}),
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "INFO"),

		StoreBackend:      getEnv("STORE_BACKEND", StoreMemory),
		DatabaseURL:       getEnv("DATABASE_URL", ""),
		SQLiteDBPath:      getEnv("SQLITE_DB_PATH", "./data/gastos.db"),
		DataEncryptionKey: getEnv("DATA_ENCRYPTION_KEY", ""),

		IdentityBackend:    getEnv("IDENTITY_BACKEND", IdentityLocal),
		JWTSecret:          getEnv("JWT_SECRET", ""),
		TokenTTL:           getEnvDuration("TOKEN_TTL", 24*time.Hour),
		SupabaseURL:        strings.TrimRight(getEnv("SUPABASE_URL", ""), "/"),
		SupabaseAnonKey:    getEnv("SUPABASE_ANON_KEY", ""),
		SupabaseServiceKey: getEnv("SUPABASE_SERVICE_ROLE_KEY", ""),

		AdminSecret: getEnv("ADMIN_SECRET", ""),

		ResendAPIKey: getEnv("RESEND_API_KEY", ""),
		EmailFrom:    getEnv("EMAIL_FROM", "Gastos <noreply@gastosapp.com>"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "gastos.events"),

		RateLimit:  getEnvInt("RATE_LIMIT", 100),
		RateWindow: getEnvDuration("RATE_WINDOW", time.Minute),

		Timezone: getEnv("TIMEZONE", "UTC"),

		SeedDemoUser: getEnvBool("SEED_DEMO_USER", false),
		DemoEmail:    getEnv("DEMO_EMAIL", "demo@gastosapp.com"),
		DemoPassword: getEnv("DEMO_PASSWORD", "demo123456"),
		DemoName:     getEnv("DEMO_NAME", "Usuario Demo"),
	}
}

// IsProduction reports whether sensitive data must be masked.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// Location returns the time zone used for month boundaries.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

// Validate returns every configuration problem at once.
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if !strings.HasPrefix(c.BasePath, "/") {
		errors = append(errors, fmt.Sprintf("invalid base path '%s': must start with '/'", c.BasePath))
	}

	switch c.StoreBackend {
	case StoreMemory:
	case StorePostgres:
		if c.DatabaseURL == "" {
			errors = append(errors, "DATABASE_URL is required when using the postgres store")
		}
	case StoreSQLite:
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLITE_DB_PATH is required when using the sqlite store")
		}
	default:
		errors = append(errors, fmt.Sprintf("invalid store backend '%s': must be one of [memory postgres sqlite]", c.StoreBackend))
	}

	if c.DataEncryptionKey != "" && len(c.DataEncryptionKey) != 32 {
		errors = append(errors, "DATA_ENCRYPTION_KEY must be exactly 32 characters")
	}

	switch c.IdentityBackend {
	case IdentityLocal:
		if len(c.JWTSecret) < 32 {
			errors = append(errors, "JWT_SECRET must be at least 32 characters when using the local identity backend")
		}
		if c.TokenTTL <= 0 {
			errors = append(errors, "TOKEN_TTL must be positive")
		}
	case IdentitySupabase:
		if c.SupabaseURL == "" {
			errors = append(errors, "SUPABASE_URL is required when using the supabase identity backend")
		} else if u, err := url.Parse(c.SupabaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			errors = append(errors, fmt.Sprintf("invalid SUPABASE_URL '%s'", c.SupabaseURL))
		}
		if c.SupabaseAnonKey == "" {
			errors = append(errors, "SUPABASE_ANON_KEY is required when using the supabase identity backend")
		}
		if c.SupabaseServiceKey == "" {
			errors = append(errors, "SUPABASE_SERVICE_ROLE_KEY is required when using the supabase identity backend")
		}
	default:
		errors = append(errors, fmt.Sprintf("invalid identity backend '%s': must be one of [local supabase]", c.IdentityBackend))
	}

	if c.AMQPURL != "" {
		if u, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if u.Scheme != "amqp" && u.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", u.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP_EXCHANGE cannot be empty when AMQP_URL is provided")
		}
	}

	if c.RateLimit <= 0 {
		errors = append(errors, "RATE_LIMIT must be positive")
	}
	if c.RateWindow <= 0 {
		errors = append(errors, "RATE_WINDOW must be positive")
	}

	if _, err := c.Location(); err != nil {
		errors = append(errors, fmt.Sprintf("invalid TIMEZONE '%s': %v", c.Timezone, err))
	}

	if c.SeedDemoUser && (c.DemoEmail == "" || c.DemoPassword == "") {
		errors = append(errors, "DEMO_EMAIL and DEMO_PASSWORD are required when SEED_DEMO_USER is enabled")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errors, "\n  - "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return defaultValue
	}
	return items
}
