package cache

import (
	"fmt"
	"sort"
	"strings"
)

// Key segments separating cache values from rate-limit counters.
const (
	cacheSegment     = "cache"
	rateLimitSegment = "rl"
)

// Keyspace maps caller keys onto backend keys under an optional prefix.
//
// Format: prefix:cache:key and prefix:rl:key
//
// An empty prefix means the store owns the whole Redis database.
type Keyspace struct {
	Prefix string
}

// CacheKey returns the backend key for a cached value.
func (k Keyspace) CacheKey(key string) string {
	return k.join(cacheSegment, key)
}

// RateLimitKey returns the backend key for a rate-limit counter.
func (k Keyspace) RateLimitKey(key string) string {
	return k.join(rateLimitSegment, key)
}

// Pattern returns a SCAN MATCH pattern covering every key of the namespace,
// or "" when the keyspace has no prefix. Glob metacharacters in the prefix
// are escaped so they match literally.
func (k Keyspace) Pattern() string {
	prefix := strings.Trim(k.Prefix, ":")
	if prefix == "" {
		return ""
	}
	return globEscaper.Replace(prefix) + ":*"
}

// Owns reports whether backend key belongs to the namespace.
func (k Keyspace) Owns(backendKey string) bool {
	prefix := strings.Trim(k.Prefix, ":")
	if prefix == "" {
		return true
	}
	return strings.HasPrefix(backendKey, prefix+":")
}

var globEscaper = strings.NewReplacer(
	`\`, `\\`,
	`*`, `\*`,
	`?`, `\?`,
	`[`, `\[`,
	`]`, `\]`,
)

func (k Keyspace) join(segment, key string) string {
	prefix := strings.Trim(k.Prefix, ":")
	if prefix == "" {
		return segment + ":" + key
	}
	return prefix + ":" + segment + ":" + key
}

// BuildKey generates a deterministic key from a scope and named parts.
// Parts are sorted by name and empty values are skipped.
//
// Example:
//
//	BuildKey("poam", map[string]string{"system": "42", "control": "AC-2"})
//	// poam:control=AC-2:system=42
func BuildKey(scope string, parts map[string]string) string {
	out := []string{strings.Trim(scope, ":")}

	if len(parts) > 0 {
		names := make([]string, 0, len(parts))
		for name := range parts {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			if parts[name] == "" {
				continue
			}
			out = append(out, fmt.Sprintf("%s=%s", name, parts[name]))
		}
	}

	return strings.Join(out, ":")
}
