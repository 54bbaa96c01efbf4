package service

import (
	"bytes"
	"context"
	"encoding/json"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"co2_monitor/internal/models"
	"co2_monitor/internal/netatmo"
	"co2_monitor/internal/repository"
)

// ---- clock ----

type fakeTimer struct {
	at      time.Time
	f       func()
	stopped bool
	fired   bool
}

type fakeClock struct {
	mu        sync.Mutex
	now       time.Time
	timers    []*fakeTimer
	scheduled []time.Duration
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{at: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	c.scheduled = append(c.scheduled, d)
	return &fakeTimerHandle{c: c, t: t}
}

type fakeTimerHandle struct {
	c *fakeClock
	t *fakeTimer
}

func (h *fakeTimerHandle) Stop() bool {
	h.c.mu.Lock()
	defer h.c.mu.Unlock()
	active := !h.t.stopped && !h.t.fired
	h.t.stopped = true
	return active
}

// Advance moves time forward, firing due timers in order on the caller's
// goroutine.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	c.mu.Unlock()

	for {
		c.mu.Lock()
		var next *fakeTimer
		for _, t := range c.timers {
			if t.stopped || t.fired || t.at.After(target) {
				continue
			}
			if next == nil || t.at.Before(next.at) {
				next = t
			}
		}
		if next == nil {
			c.now = target
			c.mu.Unlock()
			return
		}
		if next.at.After(c.now) {
			c.now = next.at
		}
		next.fired = true
		c.mu.Unlock()
		next.f()
	}
}

// Scheduled returns every delay passed to AfterFunc so far.
func (c *fakeClock) Scheduled() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.scheduled...)
}

func (c *fakeClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

// ---- netatmo API ----

type fakeAPI struct {
	mu sync.Mutex

	refreshCalls  int
	exchangeCalls int
	stationCalls  []string
	coachCalls    int

	refreshFn  func(call int, refreshToken string) (netatmo.TokenGrant, error)
	exchangeFn func(code string) (netatmo.TokenGrant, error)
	stationsFn func(call int, token, deviceID string) (netatmo.StationsData, error)
	coachesFn  func(token, deviceID string) (netatmo.HomeCoachData, error)
}

func grant(access, refresh string, expiresIn int64) netatmo.TokenGrant {
	return netatmo.TokenGrant{AccessToken: access, RefreshToken: refresh, ExpiresIn: expiresIn}
}

func (f *fakeAPI) RefreshToken(_ context.Context, rt string) (netatmo.TokenGrant, error) {
	f.mu.Lock()
	f.refreshCalls++
	n, fn := f.refreshCalls, f.refreshFn
	f.mu.Unlock()
	if fn == nil {
		return grant("fresh", "r2", 10800), nil
	}
	return fn(n, rt)
}

func (f *fakeAPI) ExchangeCode(_ context.Context, code string) (netatmo.TokenGrant, error) {
	f.mu.Lock()
	f.exchangeCalls++
	fn := f.exchangeFn
	f.mu.Unlock()
	if fn == nil {
		return grant("a1", "r1", 10800), nil
	}
	return fn(code)
}

func (f *fakeAPI) GetStationsData(_ context.Context, token, deviceID string) (netatmo.StationsData, error) {
	f.mu.Lock()
	f.stationCalls = append(f.stationCalls, deviceID)
	n, fn := len(f.stationCalls), f.stationsFn
	f.mu.Unlock()
	if fn == nil {
		return netatmo.StationsData{}, nil
	}
	return fn(n, token, deviceID)
}

func (f *fakeAPI) GetHomeCoachsData(_ context.Context, token, deviceID string) (netatmo.HomeCoachData, error) {
	f.mu.Lock()
	f.coachCalls++
	fn := f.coachesFn
	f.mu.Unlock()
	if fn == nil {
		return netatmo.HomeCoachData{}, nil
	}
	return fn(token, deviceID)
}

func (f *fakeAPI) AuthorizeURL(state string) string {
	return "https://api.example/oauth2/authorize?state=" + state
}

func (f *fakeAPI) RefreshCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.refreshCalls
}

func (f *fakeAPI) StationCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.stationCalls)
}

// ---- store ----

type memStore struct {
	mu        sync.Mutex
	vals      map[string]json.RawMessage
	listeners []repository.ChangeListener
}

func newMemStore() *memStore {
	return &memStore{vals: map[string]json.RawMessage{}}
}

func (s *memStore) Get(_ context.Context, keys ...string) (map[string]json.RawMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := map[string]json.RawMessage{}
	if len(keys) == 0 {
		for k, v := range s.vals {
			out[k] = v
		}
		return out, nil
	}
	for _, k := range keys {
		if v, ok := s.vals[k]; ok {
			out[k] = v
		}
	}
	return out, nil
}

func (s *memStore) Set(ctx context.Context, values map[string]any) error {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	s.mu.Lock()
	cs := models.ChangeSet{}
	for _, k := range keys {
		var next json.RawMessage
		if values[k] != nil {
			b, err := json.Marshal(values[k])
			if err != nil {
				s.mu.Unlock()
				return err
			}
			var buf bytes.Buffer
			_ = json.Compact(&buf, b)
			if !models.IsNull(buf.Bytes()) {
				next = buf.Bytes()
			}
		}
		old := s.vals[k]
		if bytes.Equal(old, next) {
			continue
		}
		if next == nil {
			delete(s.vals, k)
		} else {
			s.vals[k] = next
		}
		cs[k] = models.Change{OldValue: old, NewValue: next}
	}
	listeners := append([]repository.ChangeListener(nil), s.listeners...)
	s.mu.Unlock()

	if len(cs) > 0 {
		for _, fn := range listeners {
			fn(ctx, cs)
		}
	}
	return nil
}

func (s *memStore) OnChange(fn repository.ChangeListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *memStore) raw(key string) json.RawMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.vals[key]
}

// ---- notifications, history, metrics ----

type recNotifier struct {
	mu   sync.Mutex
	sent []models.Notification
}

func (r *recNotifier) Send(_ context.Context, n models.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
	return nil
}

func (r *recNotifier) Sent() []models.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.Notification(nil), r.sent...)
}

type memHistory struct {
	mu    sync.Mutex
	items []models.Notification
	gotF  repository.NotificationFilter
	err   error
}

func (m *memHistory) Append(_ context.Context, n models.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = append(m.items, n)
	return nil
}

func (m *memHistory) List(_ context.Context, f repository.NotificationFilter) ([]models.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gotF = f
	return append([]models.Notification(nil), m.items...), m.err
}

type recRecorder struct {
	mu        sync.Mutex
	polls     []string
	refreshes []string
	readings  int
	notified  []models.Tier
}

func (r *recRecorder) ObserveReading(models.Device, models.Tier) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.readings++
}

func (r *recRecorder) IncPoll(o string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.polls = append(r.polls, o)
}

func (r *recRecorder) IncRefresh(o string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refreshes = append(r.refreshes, o)
}

func (r *recRecorder) IncNotification(t models.Tier) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notified = append(r.notified, t)
}

func (r *recRecorder) Polls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.polls...)
}

// ---- fixtures ----

const (
	stationID = "70:ee:50:00:00:01"
	outdoorID = "02:00:00:00:00:01"
)

var t0 = time.Date(2025, 1, 1, 12, 0, 0, 400*int(time.Millisecond), time.UTC)

func stationData(co2, indoor, outdoor float64) netatmo.StationsData {
	return netatmo.StationsData{Devices: []netatmo.Station{{
		ID:            stationID,
		Type:          netatmo.TypeMainStation,
		StationName:   "Home",
		ModuleName:    "Living",
		DataType:      []string{"Temperature", "CO2"},
		DashboardData: &netatmo.DashboardData{CO2: &co2, Temperature: &indoor},
		Modules: []netatmo.Module{{
			ID:            outdoorID,
			Type:          netatmo.TypeOutdoor,
			ModuleName:    "Garden",
			DataType:      []string{"Temperature"},
			DashboardData: &netatmo.DashboardData{Temperature: &outdoor},
		}},
	}}}
}

func stationDevice() models.Device {
	d := models.NewDevice(stationID, "", models.KindStation)
	d.GroupName, d.DisplayName = "Home", "Living"
	return d
}

func outdoorDevice() models.Device {
	d := models.NewDevice(stationID, outdoorID, models.KindOutdoor)
	d.GroupName, d.DisplayName = "Home", "Garden"
	return d
}

func validCredValues(now time.Time) map[string]any {
	return map[string]any{
		models.KeyToken:        "a1",
		models.KeyRefreshToken: "r1",
		models.KeyExpires:      now.Add(3 * time.Hour).UnixMilli(),
	}
}

func seed(t *testing.T, s *memStore, vals map[string]any) {
	t.Helper()
	require.NoError(t, s.Set(context.Background(), vals))
}
