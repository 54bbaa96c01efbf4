package service

import (
	"context"
	"encoding/json"

	"co2_monitor/internal/models"
)

// Monitor exposes the rendered state of the agent.
type Monitor interface {
	Snapshot() models.Snapshot
	StatusTier() models.Status
	BadgeSpec() models.BadgeSpec
	Theme() models.ThemeSpec
	SelectedDevice() (models.Device, bool)
	SelectableDevices(ctx context.Context) (models.SelectableDevices, error)
	Subscribe() (<-chan models.Snapshot, func())
}

// Session covers login and logout.
type Session interface {
	BeginLogin() (string, error)
	CompleteLogin(ctx context.Context, code, state string) error
	Logout(ctx context.Context) error
}

// Options is read/write access to the named preference keys.
type Options interface {
	Preferences() models.Preferences
	UpdatePreferences(ctx context.Context, values map[string]json.RawMessage) error
	ResetPreferences(ctx context.Context) error
}

// History lists delivered notifications.
type History interface {
	List(ctx context.Context, f HistoryFilter) ([]models.Notification, error)
}

// Authorization guards the local API.
type Authorization interface {
	Enabled() bool
	CheckAPIKey(key string) error
}

// Notifier delivers a notification to the user.
type Notifier interface {
	Send(ctx context.Context, n models.Notification) error
}

// Recorder receives operational metrics.
type Recorder interface {
	ObserveReading(d models.Device, tier models.Tier)
	IncPoll(outcome string)
	IncRefresh(outcome string)
	IncNotification(tier models.Tier)
}

// NopRecorder discards metrics.
type NopRecorder struct{}

func (NopRecorder) ObserveReading(models.Device, models.Tier) {}
func (NopRecorder) IncPoll(string)                            {}
func (NopRecorder) IncRefresh(string)                         {}
func (NopRecorder) IncNotification(models.Tier)               {}

type nopNotifier struct{}

func (nopNotifier) Send(context.Context, models.Notification) error { return nil }

// Service aggregates everything the HTTP layer talks to.
type Service struct {
	Monitor
	Session
	Options
	History
	Authorization
}

func NewService(agent *Agent, history *HistoryService, keys *APIKeyService) *Service {
	return &Service{
		Monitor:       agent,
		Session:       agent,
		Options:       agent,
		History:       history,
		Authorization: keys,
	}
}
