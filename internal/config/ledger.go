package config

import (
	"os"
	"strings"
	"time"
)

// LedgerConfig carries the ledger rule and cache knobs. The exemption set
// names the accounts permitted to hold a negative balance (system funding
// sources); everything else is floored at zero.
type LedgerConfig struct {
	ExemptAccounts  []string
	TreasuryAccount string
	BalanceCacheTTL time.Duration
}

func LoadLedgerConfig() *LedgerConfig {
	return &LedgerConfig{
		ExemptAccounts:  getEnvAsList("LEDGER_EXEMPT_ACCOUNTS", []string{"Equity", "Treasury"}),
		TreasuryAccount: getEnv("LEDGER_TREASURY_ACCOUNT", "Treasury"),
		BalanceCacheTTL: getEnvAsDuration("LEDGER_BALANCE_CACHE_TTL", 30*time.Second),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvAsList(key string, defaultVal []string) []string {
	if val := os.Getenv(key); val != "" {
		parts := strings.Split(val, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if duration, err := time.ParseDuration(val); err == nil {
			return duration
		}
	}
	return defaultVal
}
