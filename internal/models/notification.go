package models

import "time"

// NotificationKind separates upward crossings from the return to normal.
type NotificationKind string

const (
	NotificationCrossing NotificationKind = "crossing"
	NotificationNormal   NotificationKind = "normal"
)

// Notification is a single threshold-crossing message.
type Notification struct {
	ID         string           `json:"id"`
	Kind       NotificationKind `json:"kind"`
	Tier       Tier             `json:"tier"`
	Title      string           `json:"title"`
	Message    string           `json:"message"`
	WindowHint bool             `json:"window_hint"`
	DeviceID   string           `json:"device_id"`
	ModuleID   string           `json:"module_id,omitempty"`
	CO2        float64          `json:"co2"`
	OccurredAt time.Time        `json:"occurred_at"`
}

// SelectableDevices is what the options screen fills its lists from.
type SelectableDevices struct {
	Stations       []Device `json:"stations"`
	OutdoorModules []Device `json:"outdoorModules"`
}
