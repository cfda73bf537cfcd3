package plume

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthenticated   = errors.New("unauthenticated")
	ErrAuthRejected      = errors.New("upstream rejected credentials")
	ErrTimeout           = errors.New("upstream request timed out")
	ErrHTTPStatus        = errors.New("upstream returned an error status")
	ErrMalformedResponse = errors.New("malformed upstream response")
	ErrTransport         = errors.New("upstream request failed")

	ErrMissingPrincipal = errors.New("principal id is required")
	ErrInvalidArgument  = errors.New("invalid argument")
)

// APIError is returned by Execute for any failure after argument checks.
// Kind is one of the sentinels above; Err holds the underlying cause, such as
// a *token.AuthError for ErrUnauthenticated.
type APIError struct {
	Kind     error
	Method   string
	Endpoint string
	Status   int
	Body     string
	Err      error
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("%s %s: %s", e.Method, e.Endpoint, e.Kind)
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.Status)
	}
	if e.Body != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Body)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *APIError) Unwrap() error {
	return e.Err
}

func (e *APIError) Is(target error) bool {
	return target == e.Kind
}
