package delivery

import (
	"context"

	"co2_monitor/internal/logger"
	"co2_monitor/internal/models"
)

// LogChannel writes notifications to the process log. It is always on.
type LogChannel struct {
	log *logger.Logger
}

func NewLogChannel(log *logger.Logger) *LogChannel {
	if log == nil {
		log = logger.Nop()
	}
	return &LogChannel{log: log}
}

func (l *LogChannel) Send(_ context.Context, n models.Notification) error {
	l.log.Infow("co2_notification",
		"id", n.ID,
		"kind", n.Kind,
		"tier", n.Tier,
		"title", n.Title,
		"message", n.Message,
		"device_id", n.DeviceID,
		"module_id", n.ModuleID,
		"co2", n.CO2,
		"window_hint", n.WindowHint,
	)
	return nil
}
