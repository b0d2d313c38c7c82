package config

import (
	"strings"
	"time"
)

// CacheConfig configures the Redis response cache. Only the listed HTTP
// methods are cached, entries expire after TTL, and bodies larger than
// MaxBodyBytes are never stored. KeyStrategy selects which request parts feed
// the cache key.
type CacheConfig struct {
	Enabled      bool
	Methods      map[string]bool
	TTL          time.Duration
	KeyStrategy  string
	Prefix       string
	MaxBodyBytes int
}

// LoadCacheConfig reads the CACHE_* environment variables, falling back to
// defaults suitable for the public space catalogue endpoints.
func LoadCacheConfig() CacheConfig {
	return CacheConfig{
		Enabled:      envBool("CACHE_ENABLED", true),
		Methods:      methodSet(envStr("CACHE_METHODS", "GET")),
		TTL:          envDur("CACHE_TTL", 30*time.Second),
		KeyStrategy:  envStr("CACHE_KEY_STRATEGY", "route_query"),
		Prefix:       envStr("CACHE_PREFIX", "cache"),
		MaxBodyBytes: envInt("CACHE_MAX_BODY_BYTES", 1<<20),
	}
}

func methodSet(csv string) map[string]bool {
	out := make(map[string]bool)
	for _, m := range strings.Split(csv, ",") {
		if m = strings.TrimSpace(strings.ToUpper(m)); m != "" {
			out[m] = true
		}
	}
	return out
}
