package connectivity

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/leafsync/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func newTestMonitor(window time.Duration) (*Monitor, *atomic.Int32) {
	var fired atomic.Int32
	m := NewMonitor(func(ctx context.Context) error { return nil }, window, discardLogger())
	m.OnReconnect(func() { fired.Add(1) })
	return m, &fired
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func TestMonitor_FirstSignalSetsInitialStateWithoutEdge(t *testing.T) {
	m, fired := newTestMonitor(time.Millisecond)

	m.SetOnline(true)
	assert.True(t, m.Online())

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(0), fired.Load(), "initial state must not fire reconnect")
}

func TestMonitor_ReconnectEdgeFiresAfterDebounce(t *testing.T) {
	m, fired := newTestMonitor(10 * time.Millisecond)

	m.SetOnline(false)
	m.SetOnline(true)

	waitFor(t, func() bool { return fired.Load() == 1 })
}

func TestMonitor_RepeatedOnlineSignalsAreNotEdges(t *testing.T) {
	m, fired := newTestMonitor(5 * time.Millisecond)

	m.SetOnline(false)
	m.SetOnline(true)
	waitFor(t, func() bool { return fired.Load() == 1 })

	m.SetOnline(true)
	m.SetOnline(true)
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, int32(1), fired.Load())
}

func TestMonitor_GoingOfflineCancelsPendingReconnect(t *testing.T) {
	m, fired := newTestMonitor(100 * time.Millisecond)

	m.SetOnline(false)
	m.SetOnline(true)
	// drop back offline inside the debounce window
	m.SetOnline(false)

	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, int32(0), fired.Load(), "callback scheduled before the drop must not fire")
	assert.False(t, m.Online())
}

func TestMonitor_FlappingCoalescesToOneCallback(t *testing.T) {
	m, fired := newTestMonitor(50 * time.Millisecond)

	m.SetOnline(false)
	for i := 0; i < 5; i++ {
		m.SetOnline(true)
		m.SetOnline(false)
	}
	m.SetOnline(true)

	waitFor(t, func() bool { return fired.Load() == 1 })
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(1), fired.Load())
}

func TestMonitor_WatchDrivesEdgesFromProbe(t *testing.T) {
	var reachable atomic.Bool

	probe := func(ctx context.Context) error {
		if reachable.Load() {
			return nil
		}
		return errors.New("unreachable")
	}

	m := NewMonitor(probe, time.Millisecond, discardLogger())
	var fired atomic.Int32
	m.OnReconnect(func() { fired.Add(1) })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		m.Watch(ctx, 5*time.Millisecond)
		close(done)
	}()

	// initial probe establishes the offline state
	time.Sleep(20 * time.Millisecond)
	require.False(t, m.Online())

	reachable.Store(true)
	waitFor(t, func() bool { return m.Online() })
	waitFor(t, func() bool { return fired.Load() >= 1 })

	cancel()
	<-done
}

func TestDebouncer_TriggerSupersedes(t *testing.T) {
	d := NewDebouncer(30 * time.Millisecond)
	var first, second atomic.Int32

	d.Trigger(func() { first.Add(1) })
	d.Trigger(func() { second.Add(1) })

	waitFor(t, func() bool { return second.Load() == 1 })
	assert.Equal(t, int32(0), first.Load(), "superseded task must not fire")
}

func TestDebouncer_Cancel(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	var fired atomic.Int32

	d.Trigger(func() { fired.Add(1) })
	d.Cancel()

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int32(0), fired.Load())
}
