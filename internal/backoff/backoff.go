// Package backoff computes reconnect delays for the push channel.
//
// Delays grow exponentially from a base and are capped at a maximum:
//
//	delay(n) = min(Base * 2^n, Max)
//
// No jitter is applied.
package backoff

import "time"

// Default values used by DefaultPolicy.
const (
	DefaultBase = 1 * time.Second
	DefaultMax  = 30 * time.Second
)

// Policy holds the parameters of an exponential backoff.
type Policy struct {
	Base time.Duration // Delay unit doubled per attempt
	Max  time.Duration // Upper bound on any delay
}

// DefaultPolicy returns the 1s base / 30s cap policy.
func DefaultPolicy() Policy {
	return Policy{
		Base: DefaultBase,
		Max:  DefaultMax,
	}
}

// NextDelay returns the delay to wait before retry number attempt.
// The first retry is attempt 1. Negative attempts are treated as 0.
func (p Policy) NextDelay(attempt int) time.Duration {
	if p.Base <= 0 || p.Max <= 0 {
		return 0
	}
	if attempt < 0 {
		attempt = 0
	}

	delay := p.Base
	for i := 0; i < attempt; i++ {
		// delay*2 > Max, written so it cannot overflow.
		if delay > p.Max-delay {
			return p.Max
		}
		delay *= 2
	}

	if delay > p.Max {
		return p.Max
	}
	return delay
}

// NextDelay returns DefaultPolicy().NextDelay(attempt).
func NextDelay(attempt int) time.Duration {
	return DefaultPolicy().NextDelay(attempt)
}
