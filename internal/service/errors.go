package service

import (
	"errors"
	"fmt"

	"co2_monitor/internal/netatmo"
)

// Failure taxonomy of the agent.
var (
	ErrNotAuthorized      = errors.New("not authorized")
	ErrNetworkUnavailable = errors.New("network unavailable")
	ErrTransientServer    = errors.New("transient server error")
	ErrDeviceNotFound     = errors.New("device not found")
	ErrAuthRejected       = errors.New("authorization rejected")

	ErrInvalidPreferences = errors.New("invalid preferences")
	ErrInvalidLoginState  = errors.New("invalid login state")
	ErrInvalidAPIKey      = errors.New("invalid api key")
)

// classify maps transport outcomes onto the agent taxonomy, keeping the
// original error in the chain.
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotAuthorized), errors.Is(err, ErrNetworkUnavailable),
		errors.Is(err, ErrTransientServer), errors.Is(err, ErrDeviceNotFound),
		errors.Is(err, ErrAuthRejected):
		return err
	case errors.Is(err, netatmo.ErrUnauthorized):
		return fmt.Errorf("%w: %w", ErrNotAuthorized, err)
	case errors.Is(err, netatmo.ErrRejected):
		return fmt.Errorf("%w: %w", ErrAuthRejected, err)
	case errors.Is(err, netatmo.ErrNetwork):
		return fmt.Errorf("%w: %w", ErrNetworkUnavailable, err)
	case errors.Is(err, netatmo.ErrServer):
		return fmt.Errorf("%w: %w", ErrTransientServer, err)
	default:
		return err
	}
}

// outcome is the metrics label of err.
func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotAuthorized):
		return "not_authorized"
	case errors.Is(err, ErrAuthRejected):
		return "rejected"
	case errors.Is(err, ErrNetworkUnavailable):
		return "network"
	case errors.Is(err, ErrTransientServer):
		return "server"
	case errors.Is(err, ErrDeviceNotFound):
		return "device_not_found"
	default:
		return "error"
	}
}
