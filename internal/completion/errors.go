package completion

import (
	"errors"
	"fmt"
)

// ErrUnauthorized reports that the completion endpoint rejected the access token.
var ErrUnauthorized = errors.New("completion: access token rejected")

var (
	errNoCredentials = errors.New("no credentials configured to obtain an access token")
	errEmptyAnswer   = errors.New("completion returned no content")
)

// AuthError is a failed credential exchange.
type AuthError struct {
	StatusCode int
	Body       string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth exchange failed: status %d: %s", e.StatusCode, e.Body)
}

// StatusError is a non-success completion response other than 401.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("completion failed: status %d: %s", e.StatusCode, e.Message)
}
