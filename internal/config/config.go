package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all configuration values
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Reconcile ReconcileConfig
	Notify    NotifyConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port string
	Env  string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// URL returns the database connection URL
func (c DatabaseConfig) URL() string {
	return "postgres://" + c.User + ":" + c.Password + "@" + c.Host + ":" + strconv.Itoa(c.Port) + "/" + c.DBName + "?sslmode=" + c.SSLMode + "&prepare_threshold=0"
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	URL      string
	PASSWORD string
}

// JWTConfig holds JWT configuration for the admin API
type JWTConfig struct {
	Secret        string
	AccessExpiry  time.Duration
	RefreshExpiry time.Duration
}

// ReconcileConfig tunes the reconciliation engine
type ReconcileConfig struct {
	// TickInterval is how often the background reconcile job fires.
	TickInterval time.Duration
	// TickBudget bounds one pass over all currencies.
	TickBudget time.Duration
	// WithdrawalBatchSize caps the members of one withdrawal batch.
	WithdrawalBatchSize int
	// WithdrawalConfirm gates new withdrawals behind a confirmation nonce.
	WithdrawalConfirm bool
	// ScrapeBehind is how far below the chain tip a fresh scan cursor seeds.
	ScrapeBehind int64
}

// NotifyConfig guards the daemon notification endpoints
type NotifyConfig struct {
	// TokenHash is the bcrypt hash of the notify token. Empty disables
	// the notify endpoints.
	TokenHash string
}

// Load loads configuration from environment variables
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
			Env:  getEnv("SERVER_ENV", "development"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "coinledger"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			URL:      getEnv("REDIS_URL", "redis://localhost:6379"),
			PASSWORD: getEnv("REDIS_PASSWORD", ""),
		},
		JWT: JWTConfig{
			Secret:        getEnv("JWT_SECRET", "change-this-in-production"),
			AccessExpiry:  getEnvAsDuration("JWT_ACCESS_EXPIRY", 15*time.Minute),
			RefreshExpiry: getEnvAsDuration("JWT_REFRESH_EXPIRY", 7*24*time.Hour),
		},
		Reconcile: ReconcileConfig{
			TickInterval:        getEnvAsDuration("RECONCILE_TICK_INTERVAL", 30*time.Second),
			TickBudget:          getEnvAsDuration("RECONCILE_TICK_BUDGET", time.Minute),
			WithdrawalBatchSize: getEnvAsInt("WITHDRAWAL_BATCH_SIZE", 25),
			WithdrawalConfirm:   getEnvAsBool("WITHDRAWAL_CONFIRM", false),
			ScrapeBehind:        int64(getEnvAsInt("SCRAPE_BEHIND", 16)),
		},
		Notify: NotifyConfig{
			TokenHash: getEnv("NOTIFY_TOKEN_HASH", ""),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
