package poller

import (
	"errors"
	"time"
)

// ErrRetriesExhausted is reported once the retry policy gives up on initialization.
var ErrRetriesExhausted = errors.New("initialization retries exhausted")

// RetryPolicy controls how a failed initialization is retried.
// Delay doubles (Multiplier) per attempt and is capped at MaxDelay.
// MaxAttempts <= 0 means retry forever.
type RetryPolicy struct {
	Delay       time.Duration
	MaxDelay    time.Duration
	Multiplier  float64
	MaxAttempts int
}

var DefaultRetryPolicy = RetryPolicy{
	Delay:       5 * time.Second,
	MaxDelay:    60 * time.Second,
	Multiplier:  2,
	MaxAttempts: 10,
}

// Next returns the wait before retry number attempt (0-based) and whether a
// retry is allowed at all.
func (rp RetryPolicy) Next(attempt int) (time.Duration, bool) {
	if rp.MaxAttempts > 0 && attempt >= rp.MaxAttempts {
		return 0, false
	}
	if attempt < 0 {
		attempt = 0
	}
	d := rp.Delay
	if d <= 0 {
		d = DefaultRetryPolicy.Delay
	}
	mult := rp.Multiplier
	if mult < 1 {
		mult = 1
	}
	for i := 0; i < attempt; i++ {
		d = time.Duration(float64(d) * mult)
		if rp.MaxDelay > 0 && d >= rp.MaxDelay {
			return rp.MaxDelay, true
		}
	}
	if rp.MaxDelay > 0 && d > rp.MaxDelay {
		d = rp.MaxDelay
	}
	return d, true
}
