package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"co2_monitor/internal/models"
	"co2_monitor/internal/service"

	"github.com/gin-gonic/gin"
)

// ---- Service Mocks ----

type mockMonitor struct {
	mu       sync.Mutex
	snap     models.Snapshot
	selected *models.Device
	devices  models.SelectableDevices
	listErr  error
	updates  chan models.Snapshot
	canceled bool
}

func (m *mockMonitor) Snapshot() models.Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap
}
func (m *mockMonitor) StatusTier() models.Status   { return m.Snapshot().Status }
func (m *mockMonitor) BadgeSpec() models.BadgeSpec { return m.Snapshot().Badge }
func (m *mockMonitor) Theme() models.ThemeSpec     { return m.Snapshot().Theme }
func (m *mockMonitor) SelectedDevice() (models.Device, bool) {
	if m.selected == nil {
		return models.Device{}, false
	}
	return *m.selected, true
}
func (m *mockMonitor) SelectableDevices(ctx context.Context) (models.SelectableDevices, error) {
	return m.devices, m.listErr
}
func (m *mockMonitor) Subscribe() (<-chan models.Snapshot, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updates == nil {
		m.updates = make(chan models.Snapshot, 1)
	}
	return m.updates, func() {
		m.mu.Lock()
		m.canceled = true
		m.mu.Unlock()
	}
}

type mockSession struct {
	url         string
	beginErr    error
	completeErr error
	logoutErr   error

	lastCode    string
	lastState   string
	logoutCalls int
}

func (m *mockSession) BeginLogin() (string, error) { return m.url, m.beginErr }
func (m *mockSession) CompleteLogin(ctx context.Context, code, state string) error {
	m.lastCode = code
	m.lastState = state
	return m.completeErr
}
func (m *mockSession) Logout(ctx context.Context) error {
	m.logoutCalls++
	return m.logoutErr
}

type mockOptions struct {
	prefs      models.Preferences
	updateErr  error
	resetErr   error
	lastUpdate map[string]json.RawMessage
	resetCalls int
}

func (m *mockOptions) Preferences() models.Preferences { return m.prefs }
func (m *mockOptions) UpdatePreferences(ctx context.Context, values map[string]json.RawMessage) error {
	m.lastUpdate = values
	return m.updateErr
}
func (m *mockOptions) ResetPreferences(ctx context.Context) error {
	m.resetCalls++
	return m.resetErr
}

type mockHistory struct {
	resp []models.Notification
	err  error
	last service.HistoryFilter
}

func (m *mockHistory) List(ctx context.Context, f service.HistoryFilter) ([]models.Notification, error) {
	m.last = f
	return m.resp, m.err
}

type mockAuthz struct {
	enabled bool
	key     string
	lastKey string
}

func (m *mockAuthz) Enabled() bool { return m.enabled }
func (m *mockAuthz) CheckAPIKey(key string) error {
	m.lastKey = key
	if key != m.key {
		return service.ErrInvalidAPIKey
	}
	return nil
}

// ---- Shared Test Helpers ----

func newTestRouter(s *service.Service) *gin.Engine {
	h := NewHandler(s, nil, nil)
	gin.SetMode(gin.TestMode)
	return h.InitRoutes()
}

func authHeader(token string) http.Header {
	h := http.Header{}
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	return h
}
