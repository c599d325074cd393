package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config holds all application configuration
type Config struct {
	TwelveAPIKey   string  `env:"TWELVE_API_KEY"`
	TwelveBaseURL  string  `env:"TWELVE_BASE_URL"` // empty means the public API
	UniverseFile   string  `env:"UNIVERSE_FILE" envDefault:"symbols.csv"`
	HistoryDays    int     `env:"HISTORY_DAYS" envDefault:"30"`
	Lookback       int     `env:"LOOKBACK" envDefault:"30"`
	EntryThreshold float64 `env:"ENTRY_THRESHOLD" envDefault:"2.0"`
	ExitThreshold  float64 `env:"EXIT_THRESHOLD" envDefault:"0.5"`
	LogLevel       string  `env:"LOG_LEVEL" envDefault:"info"`
	RequestTimeout int     `env:"REQUEST_TIMEOUT" envDefault:"30"` // seconds
	RequestsPerSec int     `env:"REQUESTS_PER_SEC" envDefault:"5"`
	MaxRetries     int     `env:"MAX_RETRIES" envDefault:"3"`
	ExportDir      string  `env:"EXPORT_DIR" envDefault:"exports"`

	DBDriver string `env:"DB_DRIVER" envDefault:"sqlite3"`
	DBPath   string `env:"DB_PATH" envDefault:"stockpairs.db"`

	DBHost     string `env:"DB_HOST"`
	DBPort     string `env:"DB_PORT" envDefault:"5432"`
	DBUser     string `env:"DB_USER"`
	DBPassword string `env:"DB_PASSWORD"`
	DBName     string `env:"DB_NAME"`
	DBSSLMode  string `env:"DB_SSLMODE" envDefault:"disable"`

	TelegramBotToken string `env:"TELEGRAM_BOT_TOKEN"`
	TelegramChatID   int64  `env:"TELEGRAM_CHAT_ID"`
}

// Load initializes configuration from environment variables
func Load() (*Config, error) {
	// Load environment variables from .env file if present
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg(".env file not found, relying on actual environment variables")
	}

	var cfg Config

	// Load values from environment variables
	cfg.TwelveAPIKey = os.Getenv("TWELVE_API_KEY")
	cfg.TwelveBaseURL = os.Getenv("TWELVE_BASE_URL")
	cfg.UniverseFile = getEnvWithDefault("UNIVERSE_FILE", "symbols.csv")
	cfg.HistoryDays = getEnvIntWithDefault("HISTORY_DAYS", 30)
	cfg.Lookback = getEnvIntWithDefault("LOOKBACK", 30)
	cfg.EntryThreshold = getEnvFloatWithDefault("ENTRY_THRESHOLD", 2.0)
	cfg.ExitThreshold = getEnvFloatWithDefault("EXIT_THRESHOLD", 0.5)
	cfg.LogLevel = getEnvWithDefault("LOG_LEVEL", "info")
	cfg.RequestTimeout = getEnvIntWithDefault("REQUEST_TIMEOUT", 30)
	cfg.RequestsPerSec = getEnvIntWithDefault("REQUESTS_PER_SEC", 5)
	cfg.MaxRetries = getEnvIntWithDefault("MAX_RETRIES", 3)
	cfg.ExportDir = getEnvWithDefault("EXPORT_DIR", "exports")

	cfg.DBDriver = getEnvWithDefault("DB_DRIVER", "sqlite3")
	cfg.DBPath = getEnvWithDefault("DB_PATH", "stockpairs.db")

	cfg.DBHost = os.Getenv("DB_HOST")
	cfg.DBPort = getEnvWithDefault("DB_PORT", "5432")
	cfg.DBUser = os.Getenv("DB_USER")
	cfg.DBPassword = os.Getenv("DB_PASSWORD")
	cfg.DBName = os.Getenv("DB_NAME")
	cfg.DBSSLMode = getEnvWithDefault("DB_SSLMODE", "disable")

	cfg.TelegramBotToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	cfg.TelegramChatID = getEnvInt64WithDefault("TELEGRAM_CHAT_ID", 0)

	return &cfg, nil
}

// Helper functions for environment variable handling
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntWithDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64WithDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatWithDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
