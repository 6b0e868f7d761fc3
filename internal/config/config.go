package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	Env string

	// Server
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	CORSOrigin   string
	RateLimit    int

	// Database
	DBDriver    string
	DatabaseURL string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	DBSSLMode   string
	SQLitePath  string

	// JWT
	JWTSecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
}

const devJWTSecret = "fallback-secret-key-for-dev-only"

var (
	appConfig *Config
	mu        sync.RWMutex
)

// defaults are applied before the environment and the optional config file.
var defaults = map[string]interface{}{
	"ENV":                   "development",
	"PORT":                  "8080",
	"READ_TIMEOUT":          "15s",
	"WRITE_TIMEOUT":         "15s",
	"CORS_ORIGIN":           "http://localhost:3000",
	"RATE_LIMIT_PER_MINUTE": 100,
	"DB_DRIVER":             "postgres",
	"DATABASE_URL":          "",
	"DB_HOST":               "localhost",
	"DB_PORT":               "5432",
	"DB_USER":               "spendly",
	"DB_PASSWORD":           "spendly",
	"DB_NAME":               "spendly",
	"DB_SSLMODE":            "disable",
	"SQLITE_PATH":           "spendly.db",
	"JWT_SECRET":            devJWTSecret,
	"JWT_ACCESS_TTL":        "15m",
	"JWT_REFRESH_TTL":       "168h",
}

// Load loads configuration from a .env file, an optional spendly.yaml and
// environment variables, in increasing order of precedence.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetConfigName("spendly")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	config := &Config{
		Env:          v.GetString("ENV"),
		Port:         v.GetString("PORT"),
		ReadTimeout:  durationOr(v, "READ_TIMEOUT", 15*time.Second),
		WriteTimeout: durationOr(v, "WRITE_TIMEOUT", 15*time.Second),
		CORSOrigin:   v.GetString("CORS_ORIGIN"),
		RateLimit:    v.GetInt("RATE_LIMIT_PER_MINUTE"),

		DBDriver:    strings.ToLower(v.GetString("DB_DRIVER")),
		DatabaseURL: v.GetString("DATABASE_URL"),
		DBHost:      v.GetString("DB_HOST"),
		DBPort:      v.GetString("DB_PORT"),
		DBUser:      v.GetString("DB_USER"),
		DBPassword:  v.GetString("DB_PASSWORD"),
		DBName:      v.GetString("DB_NAME"),
		DBSSLMode:   v.GetString("DB_SSLMODE"),
		SQLitePath:  v.GetString("SQLITE_PATH"),

		JWTSecret:       v.GetString("JWT_SECRET"),
		AccessTokenTTL:  durationOr(v, "JWT_ACCESS_TTL", 15*time.Minute),
		RefreshTokenTTL: durationOr(v, "JWT_REFRESH_TTL", 7*24*time.Hour),
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	Set(config)
	return config, nil
}

// Validate rejects configurations the server cannot start with.
func (c *Config) Validate() error {
	switch c.DBDriver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q (use postgres or sqlite)", c.DBDriver)
	}
	if c.Env == "production" && c.JWTSecret == devJWTSecret {
		return fmt.Errorf("JWT_SECRET must be set in production")
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must not be negative")
	}
	return nil
}

// Get returns the application configuration
func Get() *Config {
	mu.RLock()
	cfg := appConfig
	mu.RUnlock()
	if cfg != nil {
		return cfg
	}

	cfg, err := Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	return cfg
}

// Set replaces the global configuration. Tests use it to inject secrets.
func Set(cfg *Config) {
	mu.Lock()
	defer mu.Unlock()
	appConfig = cfg
}

func durationOr(v *viper.Viper, key string, fallback time.Duration) time.Duration {
	raw := v.GetString(key)
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		log.Printf("Warning: invalid %s value '%s', falling back to %s\n", key, raw, fallback)
		return fallback
	}
	return d
}
