package llm

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"google.golang.org/api/googleapi"
)

// retryBackoff is the wait before the first retry; it doubles per attempt.
var retryBackoff = 2 * time.Second

// Retryable reports whether err is a transient provider failure: rate
// limiting, overload or a 5xx answer.
func Retryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return transientStatus(apiErr.StatusCode)
	}
	var gErr *googleapi.Error
	if errors.As(err, &gErr) {
		return transientStatus(gErr.Code)
	}
	return false
}

func transientStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}

// withRetry calls fn up to 1+retries times while it fails with a Retryable
// error.
func withRetry(ctx context.Context, retries int, fn func() (string, error)) (string, error) {
	wait := retryBackoff
	for attempt := 0; ; attempt++ {
		text, err := fn()
		if err == nil || attempt >= retries || !Retryable(err) {
			return text, err
		}
		log.Printf("[llm] transient error, retrying in %s: %v", wait, err)
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(wait):
		}
		wait *= 2
	}
}
