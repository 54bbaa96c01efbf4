package service

import (
	"context"
	"sync"
	"time"

	"co2_monitor/internal/logger"
)

// SchedulerState is the polling lifecycle.
type SchedulerState int

const (
	SchedulerIdle SchedulerState = iota
	SchedulerStarting
	SchedulerActive
)

func (s SchedulerState) String() string {
	switch s {
	case SchedulerStarting:
		return "starting"
	case SchedulerActive:
		return "active"
	default:
		return "idle"
	}
}

const DefaultPollInterval = 10 * time.Minute

// Scheduler drives the periodic poll of the selected device.
type Scheduler struct {
	clock Clock
	log   *logger.Logger

	// probe reports whether anything can be polled and picks a default
	// selection when needed.
	probe func(ctx context.Context) (bool, error)
	poll  func(ctx context.Context)
	// activated runs once on every Starting -> Active transition.
	activated func()

	mu       sync.Mutex
	ctx      context.Context
	state    SchedulerState
	interval time.Duration
	timer    Timer
	gen      uint64
}

func NewScheduler(clock Clock, log *logger.Logger) *Scheduler {
	if log == nil {
		log = logger.Nop()
	}
	return &Scheduler{
		clock:     clock,
		log:       log,
		probe:     func(context.Context) (bool, error) { return false, nil },
		poll:      func(context.Context) {},
		activated: func() {},
		ctx:       context.Background(),
		interval:  DefaultPollInterval,
	}
}

// bind installs the callbacks and the context timer-fired polls run with.
func (s *Scheduler) bind(ctx context.Context, probe func(ctx context.Context) (bool, error), poll func(ctx context.Context), activated func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ctx = ctx
	s.probe = probe
	s.poll = poll
	if activated != nil {
		s.activated = activated
	}
}

func (s *Scheduler) State() SchedulerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Scheduler) Interval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interval
}

// EnsureActive moves Idle -> Starting -> Active when something can be
// polled, then polls once right away. Any other state is left alone.
func (s *Scheduler) EnsureActive(ctx context.Context) error {
	s.mu.Lock()
	if s.state != SchedulerIdle {
		s.mu.Unlock()
		return nil
	}
	s.state = SchedulerStarting
	probe := s.probe
	s.mu.Unlock()

	ok, err := probe(ctx)

	s.mu.Lock()
	if s.state != SchedulerStarting {
		// Stopped while probing.
		s.mu.Unlock()
		return nil
	}
	if err != nil || !ok {
		s.state = SchedulerIdle
		s.mu.Unlock()
		if err != nil {
			s.log.Errorw("scheduler_probe_failed", "err", err)
		} else {
			s.log.Infow("scheduler_nothing_to_poll")
		}
		return err
	}
	s.state = SchedulerActive
	s.armLocked()
	poll, activated, interval := s.poll, s.activated, s.interval
	s.mu.Unlock()

	s.log.Infow("scheduler_active", "interval", interval)
	activated()
	poll(ctx)
	return nil
}

// SetInterval changes the period. An armed timer is replaced without
// firing twice.
func (s *Scheduler) SetInterval(d time.Duration) {
	if d <= 0 {
		d = DefaultPollInterval
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if d == s.interval {
		return
	}
	s.interval = d
	if s.state == SchedulerActive {
		s.armLocked()
	}
}

// Rearm restarts the period from now while Active.
func (s *Scheduler) Rearm() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == SchedulerActive {
		s.armLocked()
	}
}

// Disarm cancels the pending timer only. In-flight polls complete.
func (s *Scheduler) Disarm() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disarmLocked()
}

// Stop disarms and returns to Idle.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disarmLocked()
	s.state = SchedulerIdle
}

func (s *Scheduler) disarmLocked() {
	s.gen++
	stopTimer(s.timer)
	s.timer = nil
}

func (s *Scheduler) armLocked() {
	s.disarmLocked()
	gen := s.gen
	s.timer = s.clock.AfterFunc(s.interval, func() { s.fire(gen) })
}

func (s *Scheduler) fire(gen uint64) {
	s.mu.Lock()
	if gen != s.gen || s.state != SchedulerActive {
		s.mu.Unlock()
		return
	}
	s.armLocked()
	poll, ctx := s.poll, s.ctx
	s.mu.Unlock()

	poll(ctx)
}
