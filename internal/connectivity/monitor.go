// Package connectivity normalizes host-platform reachability signals into a
// single online/offline boolean with change notifications. An "online"
// reading means the host network interface reports reachability, not that
// the remote endpoint will answer — that is only proven by an actual flush.
package connectivity

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/phrazzld/lingosync/internal/events"
)

// Monitor tracks the current connectivity state and publishes transitions.
type Monitor struct {
	emitter events.Emitter
	logger  *slog.Logger
	client  *http.Client

	mu     sync.RWMutex
	online bool
}

// NewMonitor creates a Monitor that publishes transitions through the given
// emitter. The initial state is online: the host shell or the probe loop
// corrects it as soon as a real signal arrives.
func NewMonitor(emitter events.Emitter, logger *slog.Logger) *Monitor {
	return &Monitor{
		emitter: emitter,
		logger:  logger.With("component", "connectivity_monitor"),
		client:  &http.Client{Timeout: 5 * time.Second},
		online:  true,
	}
}

// IsOnline returns the current state synchronously.
func (m *Monitor) IsOnline() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.online
}

// SetOnline records a host-provided reachability signal. A transition
// publishes a connectivity event; setting the same state twice is silent.
func (m *Monitor) SetOnline(ctx context.Context, online bool) {
	m.mu.Lock()
	changed := m.online != online
	m.online = online
	m.mu.Unlock()

	if !changed {
		return
	}

	m.logger.Info("connectivity changed", "online", online)

	event, err := events.New(events.TypeConnectivity, events.ConnectivityPayload{Online: online})
	if err != nil {
		m.logger.Error("failed to build connectivity event", "error", err)
		return
	}
	if err := m.emitter.Emit(ctx, event); err != nil {
		m.logger.Error("failed to emit connectivity event", "error", err)
	}
}

// RunProbe polls the given URL on an interval and feeds the result into
// SetOnline. It blocks until the context is cancelled; callers run it in
// its own goroutine. Probing is best-effort and optional — a host shell
// forwarding OS signals through SetOnline works without it.
func (m *Monitor) RunProbe(ctx context.Context, url string, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.SetOnline(ctx, m.probe(ctx, url))
		}
	}
}

// probe performs one reachability check.
func (m *Monitor) probe(ctx context.Context, url string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		m.logger.Error("failed to build probe request", "error", err)
		return false
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return false
	}
	defer func() { _ = resp.Body.Close() }()

	// Any response proves the interface is up, even an error status.
	return true
}
