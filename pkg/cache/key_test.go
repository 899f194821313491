package cache

import (
	"testing"
)

func TestKeyspace_Keys(t *testing.T) {
	tests := []struct {
		name      string
		prefix    string
		key       string
		wantCache string
		wantRL    string
	}{
		{
			name:      "no prefix",
			key:       "user:1",
			wantCache: "cache:user:1",
			wantRL:    "rl:user:1",
		},
		{
			name:      "with prefix",
			prefix:    "grc",
			key:       "user:1",
			wantCache: "grc:cache:user:1",
			wantRL:    "grc:rl:user:1",
		},
		{
			name:      "prefix with trailing colon",
			prefix:    "grc:",
			key:       "k",
			wantCache: "grc:cache:k",
			wantRL:    "grc:rl:k",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ks := Keyspace{Prefix: tt.prefix}
			if got := ks.CacheKey(tt.key); got != tt.wantCache {
				t.Errorf("CacheKey() = %v, want %v", got, tt.wantCache)
			}
			if got := ks.RateLimitKey(tt.key); got != tt.wantRL {
				t.Errorf("RateLimitKey() = %v, want %v", got, tt.wantRL)
			}
		})
	}
}

func TestKeyspace_Pattern(t *testing.T) {
	if got := (Keyspace{}).Pattern(); got != "" {
		t.Errorf("Pattern() without prefix = %q, want empty", got)
	}
	tests := []struct {
		prefix string
		want   string
	}{
		{"grc", "grc:*"},
		{"grc:", "grc:*"},
		{"t?", `t\?:*`},
		{"a*b", `a\*b:*`},
		{"[x]", `\[x\]:*`},
		{`back\slash`, `back\\slash:*`},
	}
	for _, tt := range tests {
		if got := (Keyspace{Prefix: tt.prefix}).Pattern(); got != tt.want {
			t.Errorf("Pattern(%q) = %q, want %q", tt.prefix, got, tt.want)
		}
	}
}

func TestKeyspace_Owns(t *testing.T) {
	ks := Keyspace{Prefix: "t?"}
	if !ks.Owns("t?:cache:a") {
		t.Error("Owns(t?:cache:a) = false, want true")
	}
	if ks.Owns("tx:cache:b") {
		t.Error("Owns(tx:cache:b) = true, want false")
	}
	if !(Keyspace{}).Owns("anything") {
		t.Error("empty keyspace should own every key")
	}
}

func TestBuildKey(t *testing.T) {
	tests := []struct {
		name  string
		scope string
		parts map[string]string
		want  string
	}{
		{
			name:  "scope only",
			scope: "controls",
			want:  "controls",
		},
		{
			name:  "sorted parts",
			scope: "poam",
			parts: map[string]string{"system": "42", "control": "AC-2"},
			want:  "poam:control=AC-2:system=42",
		},
		{
			name:  "empty values skipped",
			scope: "login",
			parts: map[string]string{"ip": "10.0.0.1", "user": ""},
			want:  "login:ip=10.0.0.1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BuildKey(tt.scope, tt.parts); got != tt.want {
				t.Errorf("BuildKey() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestBuildKey_Determinism ensures map ordering never leaks into keys.
func TestBuildKey_Determinism(t *testing.T) {
	parts := map[string]string{
		"param_z": "value_z",
		"param_a": "value_a",
		"param_m": "value_m",
	}

	first := BuildKey("scope", parts)
	for i := 0; i < 10; i++ {
		if got := BuildKey("scope", parts); got != first {
			t.Errorf("run %d = %v, want %v (not deterministic)", i, got, first)
		}
	}
}
