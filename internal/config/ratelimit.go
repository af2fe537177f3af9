package config

import (
	"strings"
	"time"
)

// RateLimitConfig configures a Redis token bucket for one group of routes.
// Public write endpoints (booking creation, login code requests) each get
// their own scope so a burst on one does not starve the other.
type RateLimitConfig struct {
	Enabled        bool
	Capacity       int
	RefillTokens   int
	RefillInterval time.Duration
	TTL            time.Duration
	KeyStrategy    string
	Prefix         string
	Debug          bool
}

// LoadRateLimitConfig reads RATE_LIMIT_<SCOPE>_* variables, falling back to
// the unscoped RATE_LIMIT_* value and then to the given defaults.
func LoadRateLimitConfig(scope string, capacity int, every time.Duration) RateLimitConfig {
	s := strings.ToUpper(scope)
	get := func(name string) string { return "RATE_LIMIT_" + s + "_" + name }
	def := RateLimitConfig{
		Enabled:        envBool(get("ENABLED"), envBool("RATE_LIMIT_ENABLED", true)),
		Capacity:       envInt(get("CAPACITY"), envInt("RATE_LIMIT_CAPACITY", capacity)),
		RefillTokens:   envInt(get("REFILL_TOKENS"), 1),
		RefillInterval: envDur(get("REFILL_INTERVAL"), envDur("RATE_LIMIT_REFILL_INTERVAL", every)),
		TTL:            envDur("RATE_LIMIT_TTL", 10*time.Minute),
		KeyStrategy:    envStr(get("KEY_STRATEGY"), "ip_route"),
		Prefix:         "rl:" + strings.ToLower(scope),
		Debug:          envBool("RATE_LIMIT_DEBUG", false),
	}
	if def.Capacity < 1 {
		def.Capacity = 1
	}
	if def.RefillTokens < 1 {
		def.RefillTokens = 1
	}
	if def.RefillInterval <= 0 {
		def.RefillInterval = time.Second
	}
	if minTTL := 5 * def.RefillInterval; def.TTL < minTTL {
		def.TTL = minTTL
	}
	return def
}
