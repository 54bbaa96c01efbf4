package netatmo

import (
	"fmt"

	"github.com/pkg/errors"
)

// Outcome classes of a call. Match them with errors.Is.
var (
	ErrUnauthorized = errors.New("netatmo: unauthorized")
	ErrRejected     = errors.New("netatmo: token request rejected")
	ErrNetwork      = errors.New("netatmo: network unavailable")
	ErrServer       = errors.New("netatmo: server error")
)

// Error carries the outcome class together with the HTTP status and cause.
type Error struct {
	Op      string
	Status  int
	Message string
	Kind    error
	Err     error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %v", e.Op, e.Kind)
	if e.Status != 0 {
		msg += fmt.Sprintf(" (status %d)", e.Status)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Is matches the outcome class.
func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func (e *Error) Unwrap() error {
	return e.Err
}

// classifyDataStatus maps a data endpoint status code to its outcome class.
// The API answers 403 for expired or invalid access tokens.
func classifyDataStatus(code int) error {
	switch {
	case code == 401 || code == 403:
		return ErrUnauthorized
	default:
		return ErrServer
	}
}
