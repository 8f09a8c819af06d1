// Package connectivity tracks online/offline reachability and fires a
// debounced notification on reconnect.
package connectivity

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/leafsync/internal/logging"
)

// probeTimeout bounds a single reachability check.
const probeTimeout = 3 * time.Second

// ProbeFunc checks whether the remote side is reachable right now.
type ProbeFunc func(ctx context.Context) error

// Monitor is a two-state (online/offline) machine. Transitions are
// edge-triggered: on offline→online the registered reconnect callback is
// scheduled through the debouncer so a connection that is still stabilizing
// does not fire a sync immediately; on online→offline a pending callback is
// cancelled and nothing else happens (in-flight sync attempts fail naturally
// and stay queued).
type Monitor struct {
	mu          sync.Mutex
	online      bool
	initialized bool

	probe    ProbeFunc
	debounce *Debouncer
	notify   func()
	logger   logging.Logger
}

func NewMonitor(probe ProbeFunc, debounceWindow time.Duration, logger logging.Logger) *Monitor {
	return &Monitor{
		probe:    probe,
		debounce: NewDebouncer(debounceWindow),
		logger:   logger.With("component", "connectivity"),
	}
}

// OnReconnect registers the callback fired (debounced) after an
// offline→online transition. Must be called before Watch.
func (m *Monitor) OnReconnect(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notify = fn
}

// Online reports the current reachability state.
func (m *Monitor) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// SetOnline feeds a reachability signal into the state machine. The very
// first signal only establishes the initial state and fires no edge.
func (m *Monitor) SetOnline(online bool) {
	m.mu.Lock()

	if !m.initialized {
		m.initialized = true
		m.online = online
		m.mu.Unlock()
		return
	}

	if online == m.online {
		m.mu.Unlock()
		return
	}

	m.online = online
	notify := m.notify
	m.mu.Unlock()

	if online {
		m.logger.Info(context.Background(), "connection restored")
		if notify != nil {
			m.debounce.Trigger(notify)
		}
	} else {
		m.logger.Info(context.Background(), "connection lost")
		m.debounce.Cancel()
	}
}

// Watch drives the state machine from the probe: once immediately for the
// initial state, then on every tick until ctx is cancelled.
func (m *Monitor) Watch(ctx context.Context, interval time.Duration) {
	m.runProbe(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.runProbe(ctx)
		case <-ctx.Done():
			m.debounce.Cancel()
			return
		}
	}
}

func (m *Monitor) runProbe(ctx context.Context) {
	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	err := m.probe(probeCtx)
	cancel()

	m.SetOnline(err == nil)
}
