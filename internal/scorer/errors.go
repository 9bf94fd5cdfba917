package scorer

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrRateLimited matches an *UpstreamError carrying HTTP 429.
	ErrRateLimited   = errors.New("scorer: upstream rate limited")
	ErrNotConfigured = errors.New("scorer: no API key configured")
)

// UpstreamError is an HTTP-level failure reported by the model endpoint.
type UpstreamError struct {
	StatusCode int
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("scorer: upstream status %d", e.StatusCode)
	}
	return fmt.Sprintf("scorer: upstream status %d: %v", e.StatusCode, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

func (e *UpstreamError) Is(target error) bool {
	return target == ErrRateLimited && e.StatusCode == http.StatusTooManyRequests
}
