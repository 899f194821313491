// Package ratelimit gates work on fixed-window counters kept in a cache.Store.
// Because the counters live in the store, limits are enforced fleet-wide when
// the store is shared.
package ratelimit

import (
	"fmt"
	"time"
)

// WarningRatio is the share of the limit left at which a decision is logged
// as close to the limit.
const WarningRatio = 0.2

// Policy is a fixed-window limit: at most Limit attempts per Window.
type Policy struct {
	// Limit is the number of attempts allowed per window.
	Limit int64

	// Window is the length of one counting window.
	Window time.Duration
}

// Validate rejects policies that cannot admit any request.
func (p Policy) Validate() error {
	if p.Limit < 1 {
		return fmt.Errorf("limit must be >= 1 (got %d)", p.Limit)
	}
	if p.Window <= 0 {
		return fmt.Errorf("window must be positive (got %v)", p.Window)
	}
	return nil
}

// Decision is the outcome of a rate-limit check.
type Decision struct {
	// Allowed reports whether the caller may proceed.
	Allowed bool

	// Attempts is the count in the current window after the decision.
	Attempts int64

	// Remaining is how many more attempts the window admits.
	Remaining int64

	// RetryAfter is an upper bound on the wait before the window resets.
	// Zero when Allowed.
	RetryAfter time.Duration
}

func newDecision(p Policy, allowed bool, attempts int64) Decision {
	d := Decision{
		Allowed:   allowed,
		Attempts:  attempts,
		Remaining: p.Limit - attempts,
	}
	if d.Remaining < 0 {
		d.Remaining = 0
	}
	if !allowed {
		d.Remaining = 0
		d.RetryAfter = p.Window
	}
	return d
}

// NearLimit reports whether an allowed decision left less than WarningRatio
// of the limit.
func (d Decision) NearLimit(p Policy) bool {
	return d.Allowed && float64(d.Remaining) < float64(p.Limit)*WarningRatio
}
