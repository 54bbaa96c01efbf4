package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"co2_monitor/internal/devices"
	"co2_monitor/internal/logger"
	"co2_monitor/internal/models"
	"co2_monitor/internal/netatmo"
	"co2_monitor/internal/notification"
	"co2_monitor/internal/repository"
)

// reauthRetries bounds the refresh-and-retry after an unauthorized answer.
const reauthRetries = 1

// DataAPI is the data half of the Netatmo client.
type DataAPI interface {
	GetStationsData(ctx context.Context, accessToken, deviceID string) (netatmo.StationsData, error)
	GetHomeCoachsData(ctx context.Context, accessToken, deviceID string) (netatmo.HomeCoachData, error)
}

// NetatmoAPI is everything the agent needs from the Netatmo client.
type NetatmoAPI interface {
	TokenAPI
	DataAPI
	AuthorizeURL(state string) string
}

// AgentDeps groups the collaborators of an Agent.
type AgentDeps struct {
	API           NetatmoAPI
	Store         repository.TokenStore
	Notifications repository.NotificationRepo
	Notifier      Notifier
	Metrics       Recorder
	Clock         Clock
	Connectivity  *Connectivity
	LoginStates   *LoginStates
	Log           *logger.Logger

	MaxRefreshAttempts int
}

// Agent wires the token lifecycle, the scheduler and the notification
// engine around one AgentState and serves the UI/options message API.
type Agent struct {
	api      NetatmoAPI
	store    repository.TokenStore
	history  repository.NotificationRepo
	notifier Notifier
	metrics  Recorder
	clock    Clock
	logins   *LoginStates
	conn     *Connectivity
	log      *logger.Logger

	state     *AgentState
	tokens    *TokenManager
	scheduler *Scheduler
	hub       *hub

	pollInFlight atomic.Bool
	// One pending network wait per operation class.
	pollWaiting     atomic.Bool
	activateWaiting atomic.Bool

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	waiters sync.WaitGroup
}

func NewAgent(d AgentDeps) *Agent {
	if d.Log == nil {
		d.Log = logger.Nop()
	}
	if d.Clock == nil {
		d.Clock = RealClock()
	}
	if d.Connectivity == nil {
		d.Connectivity = NewConnectivity(true)
	}
	if d.Metrics == nil {
		d.Metrics = NopRecorder{}
	}
	if d.Notifier == nil {
		d.Notifier = nopNotifier{}
	}

	state := NewAgentState()
	a := &Agent{
		api:      d.API,
		store:    d.Store,
		history:  d.Notifications,
		notifier: d.Notifier,
		metrics:  d.Metrics,
		clock:    d.Clock,
		logins:   d.LoginStates,
		conn:     d.Connectivity,
		log:      d.Log.Named("agent"),
		state:    state,
		hub:      newHub(),
		ctx:      context.Background(),
	}
	a.tokens = NewTokenManager(d.API, d.Store, state, d.Clock, d.Connectivity, d.Metrics,
		d.Log.Named("tokens"), WithMaxRefreshAttempts(d.MaxRefreshAttempts))
	a.scheduler = NewScheduler(d.Clock, d.Log.Named("scheduler"))
	return a
}

// State exposes the agent state for inspection.
func (a *Agent) State() *AgentState { return a.state }

func (a *Agent) Tokens() *TokenManager { return a.tokens }

func (a *Agent) Scheduler() *Scheduler { return a.scheduler }

// Start restores preferences, selection and credentials from the store and
// begins the token lifecycle. Token work runs in the background; ctx bounds
// every timer-driven operation.
func (a *Agent) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	a.mu.Lock()
	a.ctx, a.cancel = ctx, cancel
	a.mu.Unlock()

	a.tokens.bind(ctx, a.onTokenValid, a.Reset)
	a.scheduler.bind(ctx, a.probe, a.Poll, func() { a.state.SetPollingActive(true) })

	vals, err := a.store.Get(ctx)
	if err != nil {
		return fmt.Errorf("load stored state: %w", err)
	}

	prefs := models.DefaultPreferences()
	for _, k := range models.PreferenceKeys {
		if err := prefs.Apply(k, vals[k]); err != nil {
			a.log.Errorw("preference_restore_failed", "key", k, "err", err)
		}
	}
	a.state.SetPreferences(prefs)
	a.scheduler.SetInterval(prefs.Interval())

	if dev, err := decodeDevice(vals[models.KeyDevice]); err != nil {
		a.log.Errorw("device_restore_failed", "err", err)
	} else {
		a.state.SetDevice(dev)
	}
	if out, err := decodeDevice(vals[models.KeyOutdoor]); err != nil {
		a.log.Errorw("outdoor_restore_failed", "err", err)
	} else {
		a.state.SetOutdoor(out)
	}

	a.store.OnChange(a.onStoreChange)

	creds, ok := credentialsFrom(vals, a.log)
	if !ok {
		a.log.Infow("agent_waiting_for_login")
		return nil
	}
	a.spawn(func() {
		if err := a.tokens.Restore(ctx, creds); err != nil {
			a.log.Errorw("token_restore_failed", "err", err)
		}
	})
	return nil
}

// Stop cancels both timers and pending network waits, then waits for
// background work.
func (a *Agent) Stop() {
	a.scheduler.Stop()
	a.tokens.Disarm()
	a.mu.Lock()
	cancel := a.cancel
	a.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	a.wg.Wait()
	a.waiters.Wait()
}

// Wait blocks until background work started so far has finished. Pending
// network waits are not included.
func (a *Agent) Wait() { a.wg.Wait() }

func (a *Agent) spawn(fn func()) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		fn()
	}()
}

func (a *Agent) runCtx() context.Context {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.ctx
}

func (a *Agent) onTokenValid(ctx context.Context) {
	err := a.scheduler.EnsureActive(ctx)
	switch {
	case errors.Is(err, ErrNetworkUnavailable):
		a.state.NetworkError()
		a.log.Infow("scheduler_activation_waiting_for_network", "err", err)
		a.retryWhenOnline(&a.activateWaiting, "activate", func(ctx context.Context) {
			if a.state.HasCredentials() {
				a.onTokenValid(ctx)
			}
		})
	case err != nil:
		a.log.Errorw("scheduler_activation_failed", "err", err)
	}
	a.broadcast()
}

// retryWhenOnline marks the network down and runs retry once connectivity
// is back. A guard already set means a retry of that operation is pending.
func (a *Agent) retryWhenOnline(guard *atomic.Bool, op string, retry func(ctx context.Context)) {
	a.conn.SetOnline(false)
	a.state.SetWaitingForNetwork(true)
	if !guard.CompareAndSwap(false, true) {
		return
	}
	ctx := a.runCtx()
	a.waiters.Add(1)
	go func() {
		defer a.waiters.Done()
		err := a.conn.Await(ctx)
		guard.Store(false)
		if !a.pollWaiting.Load() && !a.activateWaiting.Load() {
			a.state.SetWaitingForNetwork(false)
		}
		if err != nil {
			return
		}
		a.log.Infow("network_restored", "retry", op)
		retry(ctx)
	}()
}

// probe decides whether polling can start and selects the first device
// when nothing was selected before.
func (a *Agent) probe(ctx context.Context) (bool, error) {
	if !a.state.Device().IsZero() {
		return true, nil
	}
	list, err := a.fetchSelectable(ctx)
	if err != nil {
		return false, err
	}
	if len(list.Stations) == 0 {
		return false, nil
	}
	first := list.Stations[0]
	a.state.SetDevice(first)
	if err := a.store.Set(ctx, map[string]any{models.KeyDevice: first}); err != nil {
		a.log.Errorw("default_device_persist_failed", "err", err)
	}
	a.log.Infow("default_device_selected", "device_id", first.ID, "module_id", first.ModuleID)
	return true, nil
}

// Poll fetches the selected device and applies the reading. Overlapping
// calls return immediately.
func (a *Agent) Poll(ctx context.Context) {
	if !a.pollInFlight.CompareAndSwap(false, true) {
		return
	}
	defer a.pollInFlight.Store(false)

	sel := a.state.Device()
	if sel.IsZero() {
		return
	}
	outdoor := a.state.Outdoor()

	reading, outReading, err := a.fetchReadings(ctx, sel, outdoor)
	a.metrics.IncPoll(outcome(err))
	switch {
	case errors.Is(err, ErrDeviceNotFound):
		a.log.Infow("selected_device_not_found", "device_id", sel.ID, "module_id", sel.ModuleID)
		a.broadcast()
		return
	case errors.Is(err, ErrNetworkUnavailable):
		n := a.state.NetworkError()
		a.log.Infow("poll_network_unavailable", "consecutive", n, "err", err)
		a.retryWhenOnline(&a.pollWaiting, "poll", func(ctx context.Context) {
			if a.scheduler.State() == SchedulerActive {
				a.Poll(ctx)
			}
		})
		a.broadcast()
		return
	case err != nil:
		a.log.Errorw("poll_failed", "err", err)
		return
	}
	a.state.ResetNetworkErrors()

	prev, ok := a.state.ApplyReading(reading)
	if !ok {
		a.log.Infow("poll_result_stale", "device_id", reading.ID, "module_id", reading.ModuleID)
		return
	}
	persist := map[string]any{models.KeyDevice: reading}
	if !outReading.IsZero() && a.state.ApplyOutdoorReading(outReading) {
		persist[models.KeyOutdoor] = a.state.Outdoor()
	}
	if err := a.store.Set(ctx, persist); err != nil {
		a.log.Errorw("reading_persist_failed", "err", err)
	}

	prefs := a.state.Preferences()
	tier := notification.Classify(reading.CO2, prefs.Boundaries)
	a.metrics.ObserveReading(reading, tier)

	if crossing, fire := notification.ShouldNotify(prev, reading.CO2, prefs.Boundaries, prefs.Notifications); fire {
		hint := notification.DeviceWindowHint(reading, a.state.Outdoor(), prefs)
		a.deliver(ctx, notification.Compose(crossing, reading, hint))
	}
	a.broadcast()
}

func (a *Agent) fetchReadings(ctx context.Context, sel, outdoor models.Device) (reading, outReading models.Device, err error) {
	var found bool
	err = a.tokens.WithReauth(ctx, reauthRetries, func(ctx context.Context, token string) error {
		outdoorResolved := false
		if sel.Kind == models.KindHealthCoach {
			raw, err := a.api.GetHomeCoachsData(ctx, token, sel.ID)
			if err != nil {
				return err
			}
			reading, found = devices.ResolveHealthCoach(raw, sel.Selector())
		} else {
			raw, err := a.api.GetStationsData(ctx, token, sel.ID)
			if err != nil {
				return err
			}
			reading, found = devices.Resolve(raw, sel.Selector())
			if !outdoor.IsZero() && outdoor.ID == sel.ID {
				outReading, _ = devices.Resolve(raw, outdoor.Selector())
				outdoorResolved = true
			}
		}
		if !outdoor.IsZero() && !outdoorResolved {
			raw, err := a.api.GetStationsData(ctx, token, outdoor.ID)
			if err != nil {
				return err
			}
			outReading, _ = devices.Resolve(raw, outdoor.Selector())
		}
		return nil
	})
	if err != nil {
		return models.Device{}, models.Device{}, err
	}
	if !found {
		return models.Device{}, models.Device{}, ErrDeviceNotFound
	}
	return reading, outReading, nil
}

func (a *Agent) deliver(ctx context.Context, n models.Notification) {
	n.ID = uuid.NewString()
	n.OccurredAt = a.clock.Now().UTC()
	a.metrics.IncNotification(n.Tier)

	if err := a.notifier.Send(ctx, n); err != nil {
		a.log.Errorw("notification_delivery_failed", "id", n.ID, "err", err)
	}
	if a.history != nil {
		if err := a.history.Append(ctx, n); err != nil {
			a.log.Errorw("notification_history_failed", "id", n.ID, "err", err)
		}
	}
	a.log.Infow("notification_sent", "id", n.ID, "kind", n.Kind, "tier", n.Tier, "window_hint", n.WindowHint)
}

// Reset drops the credentials, disarms both timers and keeps the device and
// outdoor identities with cleared readings.
func (a *Agent) Reset(ctx context.Context) {
	a.tokens.Disarm()
	a.scheduler.Stop()
	dev, out := a.state.Reset()

	values := map[string]any{
		models.KeyToken:        nil,
		models.KeyRefreshToken: nil,
		models.KeyExpires:      nil,
	}
	if !dev.IsZero() {
		values[models.KeyDevice] = dev
	}
	if !out.IsZero() {
		values[models.KeyOutdoor] = out
	}
	if err := a.store.Set(ctx, values); err != nil {
		a.log.Errorw("reset_persist_failed", "err", err)
	}
	a.log.Infow("agent_reset")
	a.broadcast()
}

// onStoreChange applies configuration effects before the store write
// returns, so the next scheduled poll already sees them.
func (a *Agent) onStoreChange(ctx context.Context, cs models.ChangeSet) {
	effects, err := Reduce(cs)
	if err != nil {
		a.log.Errorw("store_change_decode_failed", "err", err)
	}
	for _, e := range effects {
		a.apply(ctx, e)
	}
}

func (a *Agent) apply(ctx context.Context, e Effect) {
	switch e := e.(type) {
	case TokenCleared:
		if a.state.HasCredentials() {
			a.log.Infow("token_cleared_externally")
			a.Reset(ctx)
		}

	case DeviceChanged:
		if e.Device.IsZero() {
			a.state.SetDevice(models.Device{})
			a.scheduler.Disarm()
			a.broadcast()
			return
		}
		if a.state.Device().SameAs(e.Device) {
			return
		}
		a.state.SetDevice(e.Device)
		a.log.Infow("device_selected", "device_id", e.Device.ID, "module_id", e.Device.ModuleID)
		a.broadcast()
		switch {
		case a.scheduler.State() == SchedulerActive:
			a.scheduler.Rearm()
			a.spawn(func() { a.Poll(a.runCtx()) })
		case a.scheduler.State() == SchedulerIdle && a.state.HasCredentials():
			a.spawn(func() { a.onTokenValid(a.runCtx()) })
		}

	case OutdoorChanged:
		if e.Outdoor.IsZero() {
			a.state.SetOutdoor(models.Device{})
		} else if !a.state.Outdoor().SameAs(e.Outdoor) {
			e.Outdoor.CO2 = nil
			a.state.SetOutdoor(e.Outdoor)
		}
		a.broadcast()

	case IntervalChanged:
		_ = a.state.UpdatePreferences(func(p *models.Preferences) error {
			p.IntervalMinutes = e.Minutes
			return nil
		})
		a.scheduler.SetInterval(a.state.Preferences().Interval())

	case PreferenceChanged:
		err := a.state.UpdatePreferences(func(p *models.Preferences) error {
			if models.IsNull(e.NewValue) {
				return models.DefaultPreferences().CopyKey(e.Key, p)
			}
			return p.Apply(e.Key, e.NewValue)
		})
		if err != nil {
			a.log.Errorw("preference_apply_failed", "key", e.Key, "err", err)
			return
		}
		if e.Key == models.KeyUpdateTheme && isTrue(e.OldValue) && !isTrue(e.NewValue) {
			a.publish(func(s *models.Snapshot) { s.Theme = models.ThemeSpec{Reset: true} })
			return
		}
		a.broadcast()
	}
}

func isTrue(raw json.RawMessage) bool {
	var v bool
	return json.Unmarshal(raw, &v) == nil && v
}

// Snapshot computes what the UI renders right now.
func (a *Agent) Snapshot() models.Snapshot {
	dev := a.state.Device()
	out := a.state.Outdoor()
	prefs := a.state.Preferences()

	s := models.Snapshot{
		Authorized:        a.state.HasCredentials(),
		Status:            notification.StatusFor(dev, prefs.Boundaries),
		Badge:             notification.Badge(dev, out, prefs),
		Theme:             notification.Theme(dev, prefs),
		WindowHint:        notification.DeviceWindowHint(dev, out, prefs),
		WaitingForNetwork: a.state.WaitingForNetwork(),
		UpdatedAt:         a.clock.Now().UTC(),
	}
	if !dev.IsZero() {
		s.Device = &dev
	}
	if !out.IsZero() {
		s.Outdoor = &out
	}
	return s
}

func (a *Agent) broadcast() {
	a.hub.publish(a.Snapshot())
}

func (a *Agent) publish(edit func(s *models.Snapshot)) {
	s := a.Snapshot()
	edit(&s)
	a.hub.publish(s)
}

// Subscribe streams snapshots after every change. Call the returned func to
// unsubscribe.
func (a *Agent) Subscribe() (<-chan models.Snapshot, func()) {
	return a.hub.subscribe()
}

func (a *Agent) StatusTier() models.Status {
	return a.Snapshot().Status
}

func (a *Agent) BadgeSpec() models.BadgeSpec {
	return a.Snapshot().Badge
}

func (a *Agent) Theme() models.ThemeSpec {
	return a.Snapshot().Theme
}

// SelectedDevice returns the recorded selection, including after a reset.
func (a *Agent) SelectedDevice() (models.Device, bool) {
	d := a.state.Device()
	return d, !d.IsZero()
}

// SelectableDevices lists what the options screen may select. Without
// credentials the lists are empty.
func (a *Agent) SelectableDevices(ctx context.Context) (models.SelectableDevices, error) {
	if !a.state.HasCredentials() {
		return models.SelectableDevices{Stations: []models.Device{}, OutdoorModules: []models.Device{}}, nil
	}
	return a.fetchSelectable(ctx)
}

func (a *Agent) fetchSelectable(ctx context.Context) (models.SelectableDevices, error) {
	var (
		stations netatmo.StationsData
		coaches  netatmo.HomeCoachData
	)
	err := a.tokens.WithReauth(ctx, reauthRetries, func(ctx context.Context, token string) error {
		var err error
		if stations, err = a.api.GetStationsData(ctx, token, ""); err != nil {
			return err
		}
		coaches, err = a.api.GetHomeCoachsData(ctx, token, "")
		if err != nil && !errors.Is(err, netatmo.ErrUnauthorized) {
			// Accounts without a health coach still list their stations.
			a.log.Infow("home_coach_list_failed", "err", err)
			coaches, err = netatmo.HomeCoachData{}, nil
		}
		return err
	})
	if err != nil {
		return models.SelectableDevices{}, err
	}
	return devices.Selectable(stations, coaches), nil
}

// BeginLogin returns the authorization page URL.
func (a *Agent) BeginLogin() (string, error) {
	if a.logins == nil {
		return "", errors.New("login is not configured")
	}
	state, err := a.logins.Issue()
	if err != nil {
		return "", err
	}
	return a.api.AuthorizeURL(state), nil
}

// CompleteLogin verifies the state and exchanges the code.
func (a *Agent) CompleteLogin(ctx context.Context, code, state string) error {
	if a.logins == nil {
		return errors.New("login is not configured")
	}
	if err := a.logins.Verify(state); err != nil {
		return err
	}
	if code == "" {
		return fmt.Errorf("%w: missing code", ErrInvalidLoginState)
	}
	return a.tokens.Login(ctx, code)
}

// Logout clears the stored token; the change listener performs the reset.
func (a *Agent) Logout(ctx context.Context) error {
	if err := a.store.Set(ctx, map[string]any{models.KeyToken: nil}); err != nil {
		return fmt.Errorf("clear token: %w", err)
	}
	if a.state.HasCredentials() {
		a.Reset(ctx)
	}
	return nil
}

func (a *Agent) Preferences() models.Preferences {
	return a.state.Preferences()
}

// UpdatePreferences validates values and writes them to the store. Device
// selection keys are accepted too.
func (a *Agent) UpdatePreferences(ctx context.Context, values map[string]json.RawMessage) error {
	next := a.state.Preferences()
	out := make(map[string]any, len(values))
	for k, v := range values {
		switch {
		case k == models.KeyDevice || k == models.KeyOutdoor:
			if _, err := decodeDevice(v); err != nil {
				return fmt.Errorf("%w: %s: %w", ErrInvalidPreferences, k, err)
			}
		case preferenceKeys[k]:
			if err := next.Apply(k, v); err != nil {
				return fmt.Errorf("%w: %w", ErrInvalidPreferences, err)
			}
		default:
			return fmt.Errorf("%w: unknown key %q", ErrInvalidPreferences, k)
		}
		out[k] = v
	}
	if err := next.Boundaries.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPreferences, err)
	}
	if next.IntervalMinutes <= 0 {
		return fmt.Errorf("%w: interval must be positive", ErrInvalidPreferences)
	}
	return a.store.Set(ctx, out)
}

// ResetPreferences writes every option back to its default.
func (a *Agent) ResetPreferences(ctx context.Context) error {
	return a.store.Set(ctx, models.DefaultPreferences().Values())
}
