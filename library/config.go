package library

import (
	"log/slog"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Lending policy defaults. The source schema hard-coded both; they are
// configuration here because nothing else in the system varies them.
const (
	DefaultLoanPeriodDays = 14
	DefaultFineRateCents  = 500 // 5 currency units per overdue day
)

// Config carries the lending policy and the store location.
type Config struct {
	DBPath         string
	LoanPeriodDays int
	FineRateCents  int64
}

// LoadConfig reads an optional .env file and falls back to system
// environment variables, then to the built-in defaults.
func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, relying on system env variables")
	}

	return &Config{
		DBPath:         getEnv("LIBRARY_DB", "library.db"),
		LoanPeriodDays: getEnvInt("LOAN_PERIOD_DAYS", DefaultLoanPeriodDays),
		FineRateCents:  int64(getEnvInt("FINE_RATE_CENTS", DefaultFineRateCents)),
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		slog.Warn("ignoring invalid env value", "key", key, "value", value)
		return fallback
	}
	return n
}
