// Package delivery carries threshold notifications to the user through the
// configured channels.
package delivery

import (
	"context"
	"errors"
	"fmt"

	"co2_monitor/internal/models"
)

// Channel delivers one notification.
type Channel interface {
	Send(ctx context.Context, n models.Notification) error
}

// Multi dispatches to every channel and joins their failures.
type Multi struct {
	channels []Channel
}

func NewMulti(channels ...Channel) *Multi {
	m := &Multi{}
	for _, ch := range channels {
		if ch != nil {
			m.channels = append(m.channels, ch)
		}
	}
	return m
}

// Len is the number of configured channels.
func (m *Multi) Len() int {
	if m == nil {
		return 0
	}
	return len(m.channels)
}

func (m *Multi) Send(ctx context.Context, n models.Notification) error {
	if m == nil {
		return nil
	}
	var errs []error
	for _, ch := range m.channels {
		if err := ch.Send(ctx, n); err != nil {
			errs = append(errs, fmt.Errorf("%T: %w", ch, err))
		}
	}
	return errors.Join(errs...)
}
