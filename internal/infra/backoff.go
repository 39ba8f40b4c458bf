package infra

import "time"

// Backoff returns the delay before retry number attempt (1-based):
// base·2^(attempt-1), capped at max.
func Backoff(base, max time.Duration, attempt int) time.Duration {
	if attempt < 1 || base <= 0 {
		return 0
	}
	d := base
	for i := 1; i < attempt; i++ {
		d *= 2
		if max > 0 && d >= max {
			return max
		}
	}
	if max > 0 && d > max {
		return max
	}
	return d
}

// RetryDelay picks the larger of the computed backoff and a server hint.
func RetryDelay(base, max time.Duration, attempt int, retryAfter time.Duration) time.Duration {
	d := Backoff(base, max, attempt)
	if retryAfter > d {
		return retryAfter
	}
	return d
}
