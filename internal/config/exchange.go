package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type ExchangeConfig struct {
	MinAmount            int64
	MaxAmount            int64
	RemoteTimeout        time.Duration
	ChallengeTTL         time.Duration
	TokenCacheTTL        time.Duration
	PinMaxAttempts       int
	PinLockoutDuration   time.Duration
	RedepositNonceSuffix string
	CasinoAgents         []string
}

func LoadExchangeConfig() *ExchangeConfig {
	return &ExchangeConfig{
		MinAmount:            getEnvAsInt64("EXCHANGE_MIN_AMOUNT", 100),
		MaxAmount:            getEnvAsInt64("EXCHANGE_MAX_AMOUNT", 500000),
		RemoteTimeout:        getEnvAsDuration("EXCHANGE_REMOTE_TIMEOUT", 30*time.Second),
		ChallengeTTL:         getEnvAsDuration("CASINO_CHALLENGE_TTL", 10*time.Minute),
		TokenCacheTTL:        getEnvAsDuration("CASINO_TOKEN_CACHE_TTL", 30*time.Second),
		PinMaxAttempts:       getEnvAsInt("PIN_MAX_ATTEMPTS", 5),
		PinLockoutDuration:   getEnvAsDuration("PIN_LOCKOUT_DURATION", 30*time.Minute),
		RedepositNonceSuffix: getEnv("EXCHANGE_REDEPOSIT_SUFFIX", "-RD"),
		CasinoAgents:         getEnvAsList("CASINO_AGENTS", []string{"marcthepogi", "teammarc", "bossmarc747"}),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsInt64(key string, defaultVal int64) int64 {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.ParseInt(val, 10, 64); err == nil {
			return intVal
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
