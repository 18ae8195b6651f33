package ai

import (
	"errors"
	"net/http"
)

var (
	ErrConfiguration = errors.New("chat endpoint is not configured")
	ErrTransport     = errors.New("chat endpoint unreachable")
	ErrTimeout       = errors.New("chat request timed out")
	ErrProtocol      = errors.New("chat endpoint returned an invalid response")
)

// DispatchError is returned by every failing Send. Kind is one of the
// sentinels above and is matched by errors.Is.
type DispatchError struct {
	Kind     error
	Status   int
	Attempts int
	Message  string
	Err      error
}

func (e *DispatchError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Kind.Error()
}

func (e *DispatchError) Unwrap() error {
	return e.Err
}

func (e *DispatchError) Is(target error) bool {
	return target == e.Kind
}

// Transient reports whether an immediate retry is likely to succeed.
func (e *DispatchError) Transient() bool {
	switch e.Kind {
	case ErrTransport, ErrTimeout:
		return true
	case ErrProtocol:
		return e.Status == http.StatusTooManyRequests || e.Status >= 500
	default:
		return false
	}
}

func configurationError(msg string) *DispatchError {
	return &DispatchError{Kind: ErrConfiguration, Message: msg}
}
