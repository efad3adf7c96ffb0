// Package health watches the backing store in the background and tracks
// whether it is reachable.
package health

import (
	"context"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Config holds store monitor configuration.
type Config struct {
	CheckInterval time.Duration
	ProbeTimeout  time.Duration
	FailThreshold int
}

// Pinger is the dependency being watched.
type Pinger interface {
	Ping(ctx context.Context) error
}

// MetricsRecordFunc is an optional callback for recording probe results.
type MetricsRecordFunc func(up bool)

// Monitor runs periodic store probes. The store is reported degraded after
// FailThreshold consecutive failures and healthy again after one success.
type Monitor struct {
	target    Pinger
	cfg       Config
	mu        sync.Mutex
	failCount int
	degraded  bool
	lastOK    time.Time
	onMetrics MetricsRecordFunc
	logger    *zap.Logger
}

// New creates a Monitor for target.
func New(target Pinger, cfg Config, logger *zap.Logger) *Monitor {
	if cfg.CheckInterval == 0 {
		cfg.CheckInterval = 30 * time.Second
	}
	if cfg.ProbeTimeout == 0 {
		cfg.ProbeTimeout = 2 * time.Second
	}
	if cfg.FailThreshold == 0 {
		cfg.FailThreshold = 3
	}
	return &Monitor{target: target, cfg: cfg, logger: logger}
}

// SetMetricsRecord configures the metrics recording callback.
func (m *Monitor) SetMetricsRecord(fn MetricsRecordFunc) {
	m.onMetrics = fn
}

// Start runs the probe loop until quit is signalled.
func (m *Monitor) Start(quit <-chan os.Signal) {
	ticker := time.NewTicker(m.cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.Probe(context.Background())
		case <-quit:
			return
		}
	}
}

// Probe pings the store once and updates the monitor state.
func (m *Monitor) Probe(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, m.cfg.ProbeTimeout)
	defer cancel()

	err := m.target.Ping(ctx)
	success := err == nil

	if m.onMetrics != nil {
		m.onMetrics(success)
	}

	m.mu.Lock()
	wasDegraded := m.degraded
	if success {
		m.failCount = 0
		m.degraded = false
		m.lastOK = time.Now().UTC()
	} else {
		m.failCount++
		if m.failCount >= m.cfg.FailThreshold {
			m.degraded = true
		}
	}
	count := m.failCount
	nowDegraded := m.degraded
	m.mu.Unlock()

	switch {
	case wasDegraded && !nowDegraded:
		m.logger.Info("health: store recovered")
	case !wasDegraded && nowDegraded:
		m.logger.Warn("health: store degraded", zap.Int("fail_count", count), zap.Error(err))
	case !success:
		m.logger.Debug("health: store probe failed", zap.Int("fail_count", count), zap.Error(err))
	}
	return success
}

// Degraded reports whether the failure threshold has been reached.
func (m *Monitor) Degraded() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.degraded
}

// LastOK returns the time of the most recent successful probe, or the zero
// time if none has succeeded yet.
func (m *Monitor) LastOK() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastOK
}

// Ping probes the store on demand, so a Monitor can stand in for the store
// in readiness checks.
func (m *Monitor) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, m.cfg.ProbeTimeout)
	defer cancel()
	err := m.target.Ping(ctx)
	if err == nil {
		m.mu.Lock()
		m.failCount = 0
		if m.degraded {
			m.logger.Info("health: store recovered")
		}
		m.degraded = false
		m.lastOK = time.Now().UTC()
		m.mu.Unlock()
	}
	return err
}
