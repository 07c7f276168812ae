package gateway

import (
	"fmt"
	"net/http"

	"nlportal/pkg/platform/sentinel"
)

// DownstreamError describes a failed registry call. StatusCode is 0 when no
// response was received.
type DownstreamError struct {
	Registry   string
	Method     string
	Path       string
	StatusCode int
	Body       []byte
	Err        error
}

func (e *DownstreamError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("registry %s: %s %s: %v", e.Registry, e.Method, e.Path, e.Err)
	}
	return fmt.Sprintf("registry %s: %s %s: status %d", e.Registry, e.Method, e.Path, e.StatusCode)
}

func (e *DownstreamError) Unwrap() error {
	return e.Err
}

// DownstreamStatus lets the HTTP layer propagate the registry's status.
func (e *DownstreamError) DownstreamStatus() int {
	return e.StatusCode
}

func newStatusError(registry string, req *http.Request, status int, body []byte) *DownstreamError {
	var cause error
	if status == http.StatusNotFound {
		cause = sentinel.ErrNotFound
	}
	return &DownstreamError{
		Registry:   registry,
		Method:     req.Method,
		Path:       req.URL.Path,
		StatusCode: status,
		Body:       body,
		Err:        cause,
	}
}

func newTransportError(registry string, req *http.Request, err error) *DownstreamError {
	return &DownstreamError{
		Registry: registry,
		Method:   req.Method,
		Path:     req.URL.Path,
		Err:      fmt.Errorf("%w: %w", sentinel.ErrUnavailable, err),
	}
}
