package steam

import (
	"errors"
	"fmt"
)

// ErrMalformedPayload is returned when a community payload lacks the expected tags.
var ErrMalformedPayload = errors.New("malformed payload")

// AuthenticationError means the partner site answered with a markup page (usually
// the login form) instead of report text. The session cookie for RunAs is stale.
type AuthenticationError struct {
	Query string
	RunAs string
}

func (e *AuthenticationError) Error() string {
	if e.RunAs == "" {
		return fmt.Sprintf("%s: partner session expired, update cookie", e.Query)
	}
	return fmt.Sprintf("%s: partner session for %q expired, update cookie", e.Query, e.RunAs)
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: http status %d", e.URL, e.StatusCode)
}

// IsAuthentication reports whether err is, or wraps, an AuthenticationError.
func IsAuthentication(err error) bool {
	var authErr *AuthenticationError
	return errors.As(err, &authErr)
}
