package service

import (
	"sync"

	"co2_monitor/internal/models"
)

// AgentState is the process-wide mutable state. The mutex only keeps memory
// access safe across timer goroutines; operations of the same class are kept
// apart by their own in-flight guards.
type AgentState struct {
	mu sync.Mutex

	creds   *models.Credentials
	device  models.Device
	outdoor models.Device
	prefs   models.Preferences

	pollingActive            bool
	consecutiveNetworkErrors int
	waitingForNetwork        bool
}

func NewAgentState() *AgentState {
	return &AgentState{prefs: models.DefaultPreferences()}
}

// Credentials returns the current token pair, if any.
func (s *AgentState) Credentials() (models.Credentials, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.creds == nil {
		return models.Credentials{}, false
	}
	return *s.creds, true
}

func (s *AgentState) SetCredentials(c models.Credentials) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds = &c
}

func (s *AgentState) HasCredentials() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.creds != nil
}

// Device returns the selected device. The zero Device means none.
func (s *AgentState) Device() models.Device {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.device
}

func (s *AgentState) SetDevice(d models.Device) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.device = d
}

// ApplyReading replaces the selected device's snapshot with d and returns
// the previous CO2 reading. It refuses when the selection changed since the
// request for d was issued.
func (s *AgentState) ApplyReading(d models.Device) (prev *float64, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.device.IsZero() || !s.device.SameAs(d) {
		return nil, false
	}
	prev = s.device.CO2
	s.device = d
	return prev, true
}

func (s *AgentState) Outdoor() models.Device {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outdoor
}

func (s *AgentState) SetOutdoor(d models.Device) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outdoor = d
}

// ApplyOutdoorReading is ApplyReading for the outdoor reference.
func (s *AgentState) ApplyOutdoorReading(d models.Device) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.outdoor.IsZero() || !s.outdoor.SameAs(d) {
		return false
	}
	d.CO2 = nil
	s.outdoor = d
	return true
}

func (s *AgentState) Preferences() models.Preferences {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prefs
}

func (s *AgentState) SetPreferences(p models.Preferences) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prefs = p
}

// UpdatePreferences applies fn to the stored preferences under the lock.
func (s *AgentState) UpdatePreferences(fn func(p *models.Preferences) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.prefs
	if err := fn(&next); err != nil {
		return err
	}
	s.prefs = next
	return nil
}

func (s *AgentState) PollingActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pollingActive
}

func (s *AgentState) SetPollingActive(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pollingActive = v
}

// NetworkError counts one more consecutive network failure.
func (s *AgentState) NetworkError() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.consecutiveNetworkErrors++
	return s.consecutiveNetworkErrors
}

func (s *AgentState) ConsecutiveNetworkErrors() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.consecutiveNetworkErrors
}

func (s *AgentState) ResetNetworkErrors() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.consecutiveNetworkErrors = 0
}

func (s *AgentState) WaitingForNetwork() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.waitingForNetwork
}

func (s *AgentState) SetWaitingForNetwork(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.waitingForNetwork = v
}

// Reset drops the credentials and every reading. Device and outdoor
// identities survive with cleared readings; the cleared shapes are returned
// so the caller can persist them.
func (s *AgentState) Reset() (device, outdoor models.Device) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds = nil
	s.pollingActive = false
	s.consecutiveNetworkErrors = 0
	s.waitingForNetwork = false
	if !s.device.IsZero() {
		s.device = s.device.Cleared()
	}
	if !s.outdoor.IsZero() {
		s.outdoor = s.outdoor.Cleared()
	}
	return s.device, s.outdoor
}
