package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("MAXIMUM_ACCOUNT_BALANCE", "")
	t.Setenv("ACCOUNT_NUMBER_PREFIXES", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if !cfg.Rules.MaxBalance.Equal(decimal.NewFromInt(50000000)) {
		t.Fatalf("max balance = %s", cfg.Rules.MaxBalance)
	}
	if cfg.Rules.AccountNumberMaxRetries != 5 {
		t.Fatalf("max retries = %d", cfg.Rules.AccountNumberMaxRetries)
	}
	if len(cfg.Rules.AccountNumberPrefixes) != 5 {
		t.Fatalf("prefixes = %v", cfg.Rules.AccountNumberPrefixes)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("MAXIMUM_ACCOUNT_BALANCE", "1000000")
	t.Setenv("DEPOSIT_DAILY_LIMIT", "20000.50")
	t.Setenv("ACCOUNT_NUMBER_PREFIXES", "44, 55")
	t.Setenv("ACCOUNT_GENERATION_TIMEOUT", "3s")
	t.Setenv("ALERTS_TO", "ops@bank.test,risk@bank.test")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if !cfg.Rules.MaxBalance.Equal(decimal.NewFromInt(1000000)) {
		t.Fatalf("max balance = %s", cfg.Rules.MaxBalance)
	}
	if !cfg.Rules.Deposit.DailyLimit.Equal(decimal.RequireFromString("20000.50")) {
		t.Fatalf("deposit daily limit = %s", cfg.Rules.Deposit.DailyLimit)
	}
	if got := cfg.Rules.AccountNumberPrefixes; len(got) != 2 || got[0] != "44" || got[1] != "55" {
		t.Fatalf("prefixes = %v", got)
	}
	if cfg.Rules.AccountGenerationTimeout != 3*time.Second {
		t.Fatalf("timeout = %s", cfg.Rules.AccountGenerationTimeout)
	}
	if len(cfg.Alerts.To) != 2 {
		t.Fatalf("alerts to = %v", cfg.Alerts.To)
	}
}

func TestLoadConfigRejectsBadRules(t *testing.T) {
	cases := []struct {
		name, key, value string
	}{
		{"not a number", "TRANSFER_MAX", "lots"},
		{"inverted balance range", "MAXIMUM_ACCOUNT_BALANCE", "-1"},
		{"daily below max", "WITHDRAWAL_DAILY_LIMIT", "100"},
		{"bad retries", "ACCOUNT_NUMBER_MAX_RETRIES", "0"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(tc.key, tc.value)
			if _, err := LoadConfig(); err == nil {
				t.Fatalf("expected error for %s=%s", tc.key, tc.value)
			}
		})
	}
}

func TestAmountRuleInRange(t *testing.T) {
	r := DefaultRules().Deposit
	if !r.InRange(decimal.NewFromInt(20)) || !r.InRange(decimal.NewFromInt(10000)) {
		t.Fatal("bounds must be inclusive")
	}
	if r.InRange(decimal.RequireFromString("19.99")) || r.InRange(decimal.RequireFromString("10000.01")) {
		t.Fatal("values outside bounds accepted")
	}
}
