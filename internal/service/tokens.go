package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff"
	"golang.org/x/sync/singleflight"

	"co2_monitor/internal/logger"
	"co2_monitor/internal/models"
	"co2_monitor/internal/netatmo"
	"co2_monitor/internal/repository"
)

const (
	DefaultMaxRefreshAttempts = 10

	retryBaseInterval = time.Minute
	refreshKey        = "refresh"
)

// TokenAPI is the token half of the Netatmo client.
type TokenAPI interface {
	ExchangeCode(ctx context.Context, code string) (netatmo.TokenGrant, error)
	RefreshToken(ctx context.Context, refreshToken string) (netatmo.TokenGrant, error)
}

// TokenManager owns the validity window of the access token.
type TokenManager struct {
	api     TokenAPI
	store   repository.TokenStore
	state   *AgentState
	clock   Clock
	conn    *Connectivity
	metrics Recorder
	log     *logger.Logger

	maxAttempts int
	flight      singleflight.Group

	mu           sync.Mutex
	baseCtx      context.Context
	attempts     int
	backoff      *backoff.ExponentialBackOff
	refreshTimer Timer
	retryTimer   Timer

	// onValid runs after every successful exchange; onRejected performs the
	// full reset.
	onValid    func(ctx context.Context)
	onRejected func(ctx context.Context)
}

type TokenOption func(*TokenManager)

// WithMaxRefreshAttempts caps the transient-failure retries before a reset.
func WithMaxRefreshAttempts(n int) TokenOption {
	return func(m *TokenManager) {
		if n > 0 {
			m.maxAttempts = n
		}
	}
}

func NewTokenManager(api TokenAPI, store repository.TokenStore, state *AgentState, clock Clock,
	conn *Connectivity, metrics Recorder, log *logger.Logger, opts ...TokenOption) *TokenManager {
	if log == nil {
		log = logger.Nop()
	}
	if metrics == nil {
		metrics = NopRecorder{}
	}
	m := &TokenManager{
		api:         api,
		store:       store,
		state:       state,
		clock:       clock,
		conn:        conn,
		metrics:     metrics,
		log:         log,
		maxAttempts: DefaultMaxRefreshAttempts,
		baseCtx:     context.Background(),
		onValid:     func(context.Context) {},
		onRejected:  func(context.Context) {},
	}
	for _, opt := range opts {
		opt(m)
	}
	m.backoff = newRetryBackOff(clock)
	return m
}

// newRetryBackOff yields 1, 2, 4, ... minutes with no jitter and no deadline.
func newRetryBackOff(clock Clock) *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = retryBaseInterval
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxInterval = retryBaseInterval << DefaultMaxRefreshAttempts
	b.MaxElapsedTime = 0
	b.Clock = clock
	b.Reset()
	return b
}

// bind sets the lifetime of timer callbacks and the hooks run on outcomes.
func (m *TokenManager) bind(ctx context.Context, onValid, onRejected func(ctx context.Context)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.baseCtx = ctx
	if onValid != nil {
		m.onValid = onValid
	}
	if onRejected != nil {
		m.onRejected = onRejected
	}
}

func (m *TokenManager) timerCtx() context.Context {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.baseCtx
}

// EnsureValidToken returns the cached credentials while they are valid and
// refreshes them otherwise.
func (m *TokenManager) EnsureValidToken(ctx context.Context) (models.Credentials, error) {
	creds, ok := m.state.Credentials()
	if !ok {
		return models.Credentials{}, ErrNotAuthorized
	}
	if creds.Valid(m.clock.Now()) {
		return creds, nil
	}
	if !creds.CanRefresh() {
		return models.Credentials{}, ErrNotAuthorized
	}
	if err := m.exchange(ctx, true); err != nil {
		return models.Credentials{}, err
	}
	creds, ok = m.state.Credentials()
	if !ok {
		return models.Credentials{}, ErrNotAuthorized
	}
	return creds, nil
}

// Refresh exchanges the refresh token. Concurrent callers share one
// exchange.
func (m *TokenManager) Refresh(ctx context.Context) error {
	return m.exchange(ctx, false)
}

// exchange runs one shared refresh. With onlyExpired set, a token that
// became valid while the caller waited is kept. onValid runs once, on the
// caller whose closure performed the exchange.
func (m *TokenManager) exchange(ctx context.Context, onlyExpired bool) error {
	exchanged := false
	_, err, _ := m.flight.Do(refreshKey, func() (any, error) {
		if onlyExpired {
			if c, ok := m.state.Credentials(); ok && c.Valid(m.clock.Now()) {
				return nil, nil
			}
		}
		exchanged = true
		return nil, m.refresh(ctx)
	})
	if err == nil && exchanged {
		m.onValid(ctx)
	}
	return err
}

func (m *TokenManager) refresh(ctx context.Context) error {
	creds, ok := m.state.Credentials()
	if !ok || !creds.CanRefresh() {
		return ErrNotAuthorized
	}

	for {
		grant, err := m.api.RefreshToken(ctx, creds.RefreshToken)
		if err == nil {
			m.metrics.IncRefresh(outcome(nil))
			return m.accept(ctx, grant, creds.RefreshToken)
		}

		err = classify(err)
		m.metrics.IncRefresh(outcome(err))
		switch {
		case errors.Is(err, ErrAuthRejected):
			m.log.Errorw("token_refresh_rejected", "err", err)
			m.onRejected(ctx)
			return err

		case errors.Is(err, ErrNetworkUnavailable):
			m.state.NetworkError()
			m.conn.SetOnline(false)
			m.state.SetWaitingForNetwork(true)
			m.log.Infow("token_refresh_waiting_for_network", "err", err)
			if werr := m.conn.Await(ctx); werr != nil {
				m.state.SetWaitingForNetwork(false)
				return fmt.Errorf("%w: %w", ErrNetworkUnavailable, werr)
			}
			m.state.SetWaitingForNetwork(false)

		default:
			m.scheduleRetry(ctx, err)
			return err
		}
	}
}

// accept stores a fresh grant and arms the proactive refresh at its expiry.
func (m *TokenManager) accept(ctx context.Context, grant netatmo.TokenGrant, previousRefresh string) error {
	now := m.clock.Now().Round(time.Second)
	creds := models.Credentials{
		AccessToken:  grant.AccessToken,
		RefreshToken: grant.RefreshToken,
		ExpiresAt:    now.Add(time.Duration(grant.ExpiresIn) * time.Second),
	}
	if creds.RefreshToken == "" {
		creds.RefreshToken = previousRefresh
	}

	m.state.SetCredentials(creds)
	m.state.ResetNetworkErrors()

	m.mu.Lock()
	m.attempts = 0
	m.backoff.Reset()
	stopTimer(m.retryTimer)
	m.retryTimer = nil
	m.mu.Unlock()

	m.armRefresh(creds.ExpiresAt)

	if err := m.store.Set(ctx, credentialValues(creds)); err != nil {
		m.log.Errorw("token_persist_failed", "err", err)
		return fmt.Errorf("persist credentials: %w", err)
	}
	m.log.Infow("token_refreshed", "expires_at", creds.ExpiresAt)
	return nil
}

func (m *TokenManager) scheduleRetry(ctx context.Context, cause error) {
	m.mu.Lock()
	if m.attempts >= m.maxAttempts {
		attempts := m.attempts
		m.mu.Unlock()
		m.log.Errorw("token_refresh_gave_up", "attempts", attempts, "err", cause)
		m.onRejected(ctx)
		return
	}
	delay := m.backoff.NextBackOff()
	m.attempts++
	attempt := m.attempts
	stopTimer(m.retryTimer)
	m.retryTimer = m.clock.AfterFunc(delay, m.fireRefresh)
	m.mu.Unlock()

	m.log.Infow("token_refresh_retry_scheduled", "attempt", attempt, "delay", delay, "err", cause)
}

func (m *TokenManager) armRefresh(at time.Time) {
	delay := at.Sub(m.clock.Now())
	if delay < 0 {
		delay = 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stopTimer(m.refreshTimer)
	m.refreshTimer = m.clock.AfterFunc(delay, m.fireRefresh)
}

func (m *TokenManager) fireRefresh() {
	if err := m.Refresh(m.timerCtx()); err != nil {
		m.log.Errorw("token_refresh_failed", "err", err)
	}
}

// Restore adopts credentials loaded from the store: a still-valid token arms
// the refresh timer, an expired one is refreshed now.
func (m *TokenManager) Restore(ctx context.Context, creds models.Credentials) error {
	m.state.SetCredentials(creds)
	if creds.Valid(m.clock.Now()) {
		m.armRefresh(creds.ExpiresAt)
		m.onValid(ctx)
		return nil
	}
	return m.Refresh(ctx)
}

// Login exchanges an authorization code and stores the resulting pair.
func (m *TokenManager) Login(ctx context.Context, code string) error {
	grant, err := m.api.ExchangeCode(ctx, code)
	if err != nil {
		err = classify(err)
		m.log.Errorw("login_exchange_failed", "err", err)
		return err
	}
	if err := m.accept(ctx, grant, ""); err != nil {
		return err
	}
	m.onValid(ctx)
	return nil
}

// Disarm cancels both timers and forgets the retry progress.
func (m *TokenManager) Disarm() {
	m.mu.Lock()
	defer m.mu.Unlock()
	stopTimer(m.refreshTimer)
	stopTimer(m.retryTimer)
	m.refreshTimer = nil
	m.retryTimer = nil
	m.attempts = 0
	m.backoff.Reset()
}

// Attempts is the number of scheduled retries since the last success.
func (m *TokenManager) Attempts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attempts
}

// WithReauth runs fn with a valid access token. An unauthorized answer
// triggers one refresh and a retry, up to maxRetries times.
func (m *TokenManager) WithReauth(ctx context.Context, maxRetries int, fn func(ctx context.Context, token string) error) error {
	creds, err := m.EnsureValidToken(ctx)
	if err != nil {
		return err
	}
	for attempt := 0; ; attempt++ {
		err = classify(fn(ctx, creds.AccessToken))
		if err == nil || !errors.Is(err, ErrNotAuthorized) || attempt >= maxRetries {
			return err
		}
		m.log.Infow("request_unauthorized_refreshing", "attempt", attempt+1)
		if rerr := m.Refresh(ctx); rerr != nil {
			return rerr
		}
		if creds, err = m.EnsureValidToken(ctx); err != nil {
			return err
		}
	}
}

func credentialValues(c models.Credentials) map[string]any {
	return map[string]any{
		models.KeyToken:        c.AccessToken,
		models.KeyRefreshToken: c.RefreshToken,
		models.KeyExpires:      c.ExpiresAt.UnixMilli(),
	}
}

// credentialsFrom decodes the stored token keys. Expiry is unix milliseconds.
// Undecodable values are logged and treated as absent.
func credentialsFrom(vals map[string]json.RawMessage, log *logger.Logger) (models.Credentials, bool) {
	var (
		c        models.Credentials
		expireMs float64
	)
	decode := func(key string, dst any) bool {
		raw := vals[key]
		if models.IsNull(raw) {
			return false
		}
		if err := json.Unmarshal(raw, dst); err != nil {
			log.Errorw("credential_restore_failed", "key", key, "err", err)
			return false
		}
		return true
	}
	decode(models.KeyToken, &c.AccessToken)
	decode(models.KeyRefreshToken, &c.RefreshToken)
	if decode(models.KeyExpires, &expireMs) {
		c.ExpiresAt = time.UnixMilli(int64(expireMs))
	}
	return c, c.AccessToken != "" || c.RefreshToken != ""
}
