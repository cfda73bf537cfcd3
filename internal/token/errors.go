package token

import (
	"errors"
	"fmt"
)

var (
	ErrNotConfigured          = errors.New("credentials not configured")
	ErrExchangeFailed         = errors.New("token exchange failed")
	ErrMalformedTokenResponse = errors.New("malformed token response")
)

// AuthError classifies a failure to obtain a usable token. Kind is one of the
// sentinel errors above so callers can match with errors.Is.
type AuthError struct {
	Kind   error
	Status int
	Detail string
	Err    error
}

func (e *AuthError) Error() string {
	msg := e.Kind.Error()
	if e.Status != 0 {
		msg = fmt.Sprintf("%s: status %d", msg, e.Status)
	}
	if e.Detail != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Detail)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

func (e *AuthError) Is(target error) bool {
	return target == e.Kind
}

func notConfigured(detail string) *AuthError {
	return &AuthError{Kind: ErrNotConfigured, Detail: detail}
}
