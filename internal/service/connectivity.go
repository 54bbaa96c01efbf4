package service

import (
	"context"
	"net"
	"sync"
	"time"

	"co2_monitor/internal/logger"
)

const defaultProbeTimeout = 5 * time.Second

// Connectivity is a cancellable "wait until online" condition.
type Connectivity struct {
	mu      sync.Mutex
	online  bool
	changed chan struct{}
}

func NewConnectivity(online bool) *Connectivity {
	return &Connectivity{online: online, changed: make(chan struct{})}
}

// SetOnline records a transition and wakes every waiter.
func (c *Connectivity) SetOnline(online bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.online == online {
		return
	}
	c.online = online
	close(c.changed)
	c.changed = make(chan struct{})
}

func (c *Connectivity) Online() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.online
}

// Await blocks until the network is reported online or ctx is done.
func (c *Connectivity) Await(ctx context.Context) error {
	for {
		c.mu.Lock()
		if c.online {
			c.mu.Unlock()
			return nil
		}
		ch := c.changed
		c.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ch:
		}
	}
}

// Watch dials addr every interval and records the outcome until ctx is done.
func (c *Connectivity) Watch(ctx context.Context, addr string, every time.Duration, log *logger.Logger) {
	if every <= 0 {
		every = 30 * time.Second
	}
	if log == nil {
		log = logger.Nop()
	}
	dialer := net.Dialer{Timeout: defaultProbeTimeout}
	probe := func() {
		conn, err := dialer.DialContext(ctx, "tcp", addr)
		if err == nil {
			_ = conn.Close()
		}
		online := err == nil
		if online != c.Online() {
			log.Infow("connectivity_changed", "online", online, "addr", addr)
		}
		c.SetOnline(online)
	}

	probe()
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			probe()
		}
	}
}
