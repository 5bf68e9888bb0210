package llm

import (
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// defaultRetryAfter is used when a 429 response carries no retry hint.
const defaultRetryAfter = 60 * time.Second

// RateLimitError reports that a provider rejected a request with HTTP 429.
// RetryAfter is surfaced to callers as data; nothing in this package waits.
type RateLimitError struct {
	Provider   string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s rate limited, retry after %s", e.Provider, e.RetryAfter)
}

// retryAfterFromHeaders extracts the retry delay from 429 response headers.
// The millisecond header is preferred when both are present.
func retryAfterFromHeaders(headers http.Header) time.Duration {
	if headers != nil {
		if ms := headers.Get("retry-after-ms"); ms != "" {
			if v, err := strconv.ParseFloat(ms, 64); err == nil && v > 0 {
				return time.Duration(v * float64(time.Millisecond))
			}
		}
		if s := headers.Get("retry-after"); s != "" {
			if v, err := strconv.ParseFloat(s, 64); err == nil && v > 0 {
				return time.Duration(v * float64(time.Second))
			}
		}
	}
	return defaultRetryAfter
}
