package library

import "testing"

func TestConfigEnvOverrides(t *testing.T) {
	t.Setenv("LIBRARY_DB", "/tmp/override.db")
	t.Setenv("LOAN_PERIOD_DAYS", "7")
	t.Setenv("FINE_RATE_CENTS", "250")

	cfg := LoadConfig()

	if cfg.DBPath != "/tmp/override.db" {
		t.Fatalf("db path: %s", cfg.DBPath)
	}
	if cfg.LoanPeriodDays != 7 {
		t.Fatalf("loan period: %d", cfg.LoanPeriodDays)
	}
	if cfg.FineRateCents != 250 {
		t.Fatalf("fine rate: %d", cfg.FineRateCents)
	}
}

func TestConfigInvalidValuesFallBack(t *testing.T) {
	t.Setenv("LOAN_PERIOD_DAYS", "soon")
	t.Setenv("FINE_RATE_CENTS", "-5")

	cfg := LoadConfig()

	if cfg.LoanPeriodDays != DefaultLoanPeriodDays {
		t.Fatalf("loan period should fall back, got %d", cfg.LoanPeriodDays)
	}
	if cfg.FineRateCents != DefaultFineRateCents {
		t.Fatalf("fine rate should fall back, got %d", cfg.FineRateCents)
	}
}
