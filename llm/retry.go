package llm

import "time"

// RetryConfig bounds the client's retry loop for one completion call.
type RetryConfig struct {
	// MaxAttempts is the total number of tries, including the first.
	MaxAttempts int

	// BackoffBase is the pause before the first retry.
	BackoffBase time.Duration

	// BackoffMultiplier grows the pause between consecutive retries.
	BackoffMultiplier float64

	// MaxBackoff caps the pause regardless of attempt count.
	MaxBackoff time.Duration
}

// DefaultRetryConfig returns retry bounds sized for planning-agent calls:
// three tries with short pauses, so a flaky endpoint is retried well inside
// a per-agent budget measured in minutes.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       3,
		BackoffBase:       time.Second,
		BackoffMultiplier: 2.0,
		MaxBackoff:        15 * time.Second,
	}
}
