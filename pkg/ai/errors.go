package ai

import (
	"errors"
	"fmt"
)

// ErrMissingAPIKey is returned before any network I/O when the provider
// credential is not configured.
var ErrMissingAPIKey = errors.New("chat completion api key not configured")

// ProviderError reports a non-2xx response from the completion endpoint.
type ProviderError struct {
	StatusCode int
	Message    string
}

func (e *ProviderError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("chat completion provider error: %s", e.Message)
	}
	return fmt.Sprintf("chat completion provider error: status %d", e.StatusCode)
}

// ResponseError reports a 2xx response whose payload could not be used
// (unparsable body or no choices).
type ResponseError struct {
	Reason string
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("chat completion response error: %s", e.Reason)
}
