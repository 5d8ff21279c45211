package wikidata

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	mwclient "cgt.name/pkg/go-mwclient"
)

var (
	// ErrLookupNotFound means the resolver had no answer: zero candidates,
	// a missing entity, or an absent label.
	ErrLookupNotFound = errors.New("lookup: not found")
	// ErrLookupAmbiguous means more than one candidate matched.
	ErrLookupAmbiguous = errors.New("lookup: ambiguous")
)

// RetryableError indicates a transient failure that can be retried.
type RetryableError struct {
	StatusCode int
	Message    string
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("retryable error (status %d): %s", e.StatusCode, truncate(e.Message, 200))
}

// IsRetryable checks if an error is worth retrying. Besides RetryableError
// this covers the action API telling us to slow down.
func IsRetryable(err error) bool {
	var retryErr *RetryableError
	if errors.As(err, &retryErr) {
		return true
	}
	var apiErr mwclient.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case "maxlag", "ratelimited", "readonly":
			return true
		}
	}
	return false
}

// Backoff returns a duration for attempt n (0-indexed) with jitter.
func Backoff(attempt int) time.Duration {
	base := time.Duration(1<<uint(attempt)) * time.Second
	if base > 30*time.Second {
		base = 30 * time.Second
	}
	jitter := time.Duration(rand.Int64N(int64(base) / 2))
	return base + jitter
}

const MaxRetries = 3

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
