package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	// Broker API
	APIKey    string
	SecretKey string
	IsTestnet bool

	// Trading Parameters
	QuoteAsset         string  // Asset the account balance is denominated in
	DefaultRiskPercent float64 // Risk per trade when the caller does not override it
	DefaultBalance     float64 // Fallback balance when the gateway is unreachable

	// Monitoring
	MonitorInterval       time.Duration // Price polling interval
	PriceFailureThreshold int           // Consecutive feed failures before degraded health

	// Database
	DBPath string

	// Logging
	LogLevel string
	LogFile  string // Empty disables file logging
}

// LoadConfig loads configuration from environment variables (.env file).
func LoadConfig() (*Config, error) {
	// Load .env file, but don't fail if it doesn't exist (allow pure env vars)
	_ = godotenv.Load()

	cfg := &Config{}
	var err error
	var errs []string // Collect validation errors

	// Broker API. Keys may stay empty for paper trading; order execution
	// will fail at the gateway if they are needed but missing.
	cfg.APIKey = getEnv("BINANCE_API_KEY", "")
	cfg.SecretKey = getEnv("BINANCE_API_SECRET", "")
	cfg.IsTestnet = getEnvAsBool("IS_TESTNET", true) // Default to testnet for safety

	cfg.QuoteAsset = getEnv("QUOTE_ASSET", "USDT")
	if cfg.QuoteAsset == "" {
		errs = append(errs, "QUOTE_ASSET must be set")
	}

	cfg.DefaultRiskPercent, err = getEnvAsFloatRequired("DEFAULT_RISK_PERCENT", 1.0)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid DEFAULT_RISK_PERCENT: %v", err))
	} else if cfg.DefaultRiskPercent <= 0 || cfg.DefaultRiskPercent > 100 {
		errs = append(errs, "DEFAULT_RISK_PERCENT must be between 0 and 100")
	}

	cfg.DefaultBalance, err = getEnvAsFloatRequired("DEFAULT_BALANCE", 10000.0)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid DEFAULT_BALANCE: %v", err))
	} else if cfg.DefaultBalance <= 0 {
		errs = append(errs, "DEFAULT_BALANCE must be positive")
	}

	// Monitoring
	intervalSeconds := getEnvAsInt("MONITOR_INTERVAL_SECONDS", 5)
	if intervalSeconds <= 0 {
		errs = append(errs, "MONITOR_INTERVAL_SECONDS must be positive")
	}
	cfg.MonitorInterval = time.Duration(intervalSeconds) * time.Second

	cfg.PriceFailureThreshold = getEnvAsInt("PRICE_FAILURE_THRESHOLD", 5)
	if cfg.PriceFailureThreshold <= 0 {
		errs = append(errs, "PRICE_FAILURE_THRESHOLD must be positive")
	}

	// Database
	cfg.DBPath = getEnv("DB_PATH", "./data/riskbot.db")
	if cfg.DBPath == "" {
		errs = append(errs, "DB_PATH must be set")
	}

	// Logging
	cfg.LogLevel = getEnv("LOG_LEVEL", "info")
	cfg.LogFile = getEnv("LOG_FILE", "")

	// Combine validation errors
	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}

	return cfg, nil
}

// --- Env Var Helpers ---

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloatRequired(key string, defaultValue float64) (float64, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid float value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
