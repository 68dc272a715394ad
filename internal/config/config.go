// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Environment string
	Server      ServerConfig
	Database    DatabaseConfig
	JWT         JWTConfig
	Redis       RedisConfig
	AWS         AWSConfig
	Blockchain  BlockchainConfig
	Payment     PaymentConfig
	Ledger      LedgerConfig
	Licensing   LicensingConfig
	I18n        I18nConfig
	Log         LogConfig
}

type ServerConfig struct {
	Port           string
	Host           string
	ReadTimeout    int
	WriteTimeout   int
	IdleTimeout    int
	AllowedOrigins string
	RateLimitRPS   int
	RateLimitBurst int
}

// DatabaseConfig selects Postgres when Enabled, otherwise an embedded sqlite
// database at SQLitePath.
type DatabaseConfig struct {
	Enabled      bool
	SQLitePath   string
	Host         string
	Port         string
	User         string
	Password     string
	Database     string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  int
	LogLevel     string
}

type JWTConfig struct {
	SecretKey      string
	AccessTokenTTL int // in hours
}

type RedisConfig struct {
	Host      string
	Port      string
	Password  string
	DB        int
	KeyPrefix string
}

func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%s", r.Host, r.Port)
}

type AWSConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	S3Bucket        string
	Endpoint        string
}

type BlockchainConfig struct {
	Network             string
	ChainID             int64
	RPCURL              string
	RegistryAddress     string
	LicenseTokenAddress string
	CallTimeoutMs       int
}

func (b BlockchainConfig) CallTimeout() time.Duration {
	return time.Duration(b.CallTimeoutMs) * time.Millisecond
}

type PaymentConfig struct {
	StripeSecretKey string
	Currency        string
	CentsPerUnit    int64
}

// LedgerConfig selects the UnlockLedger backend: memory, postgres or redis.
type LedgerConfig struct {
	Backend string
}

type LicensingConfig struct {
	// StrictTiers rejects unknown tiers instead of falling back to free.
	StrictTiers bool
}

type I18nConfig struct {
	DefaultLocale string
}

type LogConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	// Load .env file if it exists
	godotenv.Load()

	config := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Port:           getEnv("SERVER_PORT", "8080"),
			Host:           getEnv("SERVER_HOST", "localhost"),
			ReadTimeout:    getEnvAsInt("SERVER_READ_TIMEOUT", 15),
			WriteTimeout:   getEnvAsInt("SERVER_WRITE_TIMEOUT", 15),
			IdleTimeout:    getEnvAsInt("SERVER_IDLE_TIMEOUT", 60),
			AllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
			RateLimitRPS:   getEnvAsInt("RATE_LIMIT_RPS", 10),
			RateLimitBurst: getEnvAsInt("RATE_LIMIT_BURST", 20),
		},
		Database: DatabaseConfig{
			Enabled:      getEnvAsBool("DB_ENABLED", false),
			SQLitePath:   getEnv("DB_SQLITE_PATH", "file:storyline?mode=memory&cache=shared"),
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnv("DB_PORT", "5432"),
			User:         getEnv("DB_USER", "postgres"),
			Password:     getEnv("DB_PASSWORD", ""),
			Database:     getEnv("DB_NAME", "storyline"),
			SSLMode:      getEnv("DB_SSL_MODE", "disable"),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 25),
			MaxLifetime:  getEnvAsInt("DB_MAX_LIFETIME", 300),
			LogLevel:     getEnv("DB_LOG_LEVEL", "silent"),
		},
		JWT: JWTConfig{
			SecretKey:      getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
			AccessTokenTTL: getEnvAsInt("JWT_ACCESS_TTL", 24),
		},
		Redis: RedisConfig{
			Host:      getEnv("REDIS_HOST", "localhost"),
			Port:      getEnv("REDIS_PORT", "6379"),
			Password:  getEnv("REDIS_PASSWORD", ""),
			DB:        getEnvAsInt("REDIS_DB", 0),
			KeyPrefix: getEnv("REDIS_KEY_PREFIX", "storyline"),
		},
		AWS: AWSConfig{
			Region:          getEnv("AWS_REGION", "us-east-1"),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			S3Bucket:        getEnv("AWS_S3_BUCKET", "storyline-chapters"),
			Endpoint:        getEnv("AWS_S3_ENDPOINT", ""),
		},
		Blockchain: BlockchainConfig{
			Network:             getEnv("BLOCKCHAIN_NETWORK", "story-aeneid"),
			ChainID:             int64(getEnvAsInt("BLOCKCHAIN_CHAIN_ID", 1315)),
			RPCURL:              getEnv("BLOCKCHAIN_RPC_URL", ""),
			RegistryAddress:     getEnv("BLOCKCHAIN_REGISTRY_ADDRESS", ""),
			LicenseTokenAddress: getEnv("BLOCKCHAIN_LICENSE_TOKEN_ADDRESS", ""),
			CallTimeoutMs:       getEnvAsInt("BLOCKCHAIN_CALL_TIMEOUT_MS", 5000),
		},
		Payment: PaymentConfig{
			StripeSecretKey: getEnv("STRIPE_SECRET_KEY", ""),
			Currency:        getEnv("PAYMENT_CURRENCY", "usd"),
			CentsPerUnit:    int64(getEnvAsInt("PAYMENT_CENTS_PER_UNIT", 1)),
		},
		Ledger: LedgerConfig{
			Backend: strings.ToLower(getEnv("LEDGER_BACKEND", "memory")),
		},
		Licensing: LicensingConfig{
			StrictTiers: getEnvAsBool("LICENSING_STRICT_TIERS", false),
		},
		I18n: I18nConfig{
			DefaultLocale: getEnv("DEFAULT_LOCALE", "en"),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
		},
	}

	return config, config.Validate()
}

func (c *Config) Validate() error {
	if c.JWT.SecretKey == "your-secret-key-change-in-production" && c.Environment == "production" {
		return fmt.Errorf("JWT secret key must be changed in production")
	}

	if c.Database.Enabled && c.Database.Password == "" && c.Environment == "production" {
		return fmt.Errorf("database password is required in production")
	}

	switch c.Ledger.Backend {
	case "memory", "redis":
	case "postgres":
		if !c.Database.Enabled {
			return fmt.Errorf("ledger backend postgres requires DB_ENABLED=true")
		}
	default:
		return fmt.Errorf("unknown ledger backend %q", c.Ledger.Backend)
	}

	if c.Blockchain.CallTimeoutMs <= 0 {
		return fmt.Errorf("blockchain call timeout must be positive")
	}

	if c.Payment.CentsPerUnit <= 0 {
		return fmt.Errorf("payment cents per unit must be positive")
	}

	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(strings.ToLower(value)); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
