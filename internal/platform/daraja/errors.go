package daraja

import (
	"errors"
	"fmt"
)

// ErrAuth indicates the OAuth credential exchange with the provider failed.
// No retry is attempted here; callers decide.
var ErrAuth = errors.New("daraja: token exchange failed")

// RejectionError indicates the provider accepted the HTTP request but rejected
// the STK push in the response body (non-zero response code).
type RejectionError struct {
	Code        string
	Description string
}

func (e RejectionError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("daraja: request rejected (code %s): %s", e.Code, e.Description)
	}
	return fmt.Sprintf("daraja: request rejected (code %s)", e.Code)
}

// Is implements the errors.Is interface for RejectionError
func (e RejectionError) Is(target error) bool {
	t, ok := target.(RejectionError)
	if !ok {
		return false
	}
	if t.Code == "" {
		return true
	}
	return e.Code == t.Code
}

// RequestError indicates a transport-level or HTTP-status failure reaching the
// provider.
type RequestError struct {
	Endpoint   string
	StatusCode int
	Body       string
}

func (e RequestError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("daraja: %s returned status %d: %s", e.Endpoint, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("daraja: request to %s failed", e.Endpoint)
}
