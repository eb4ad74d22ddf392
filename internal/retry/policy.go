// Package retry implements the engine's exponential-backoff retry
// policy as pure functions, independent of the store or the workers
// that call them.
package retry

import "time"

// ShouldRetry reports whether a job with the given attempt count is
// still eligible for another attempt.
func ShouldRetry(retries, maxRetries int) bool {
	return retries < maxRetries
}

// Backoff computes the next scheduled time for a job that just
// failed, anchored on the job's current scheduled time rather than
// wall-clock now, so a delayed-execution job keeps its anchoring.
// retries is the already-incremented attempt count.
func Backoff(current time.Time, retries int, baseDelay time.Duration) time.Time {
	multiplier := int64(1) << uint(retries) // 2^retries
	return current.Add(time.Duration(multiplier) * baseDelay)
}
