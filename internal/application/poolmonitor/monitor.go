package poolmonitor

import (
	"sync"
	"time"

	"github.com/aescanero/usersapi/pkg/adapters/database/postgres"
	"go.uber.org/zap"
)

// StatsSource reports connection pool occupancy
type StatsSource interface {
	Stats() postgres.Stats
}

// StatsRecorder receives pool occupancy samples
type StatsRecorder interface {
	RecordPoolStats(total, idle, inUse int)
}

// Monitor periodically samples the connection pool
type Monitor struct {
	source   StatsSource
	recorder StatsRecorder
	interval time.Duration
	logger   *zap.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// Status is one pool occupancy sample
type Status struct {
	Total     int
	Idle      int
	InUse     int
	Max       int
	Saturated bool
	Timestamp time.Time
}

// New creates a new pool monitor
func New(source StatsSource, recorder StatsRecorder, interval time.Duration, logger *zap.Logger) *Monitor {
	return &Monitor{
		source:   source,
		recorder: recorder,
		interval: interval,
		logger:   logger,
	}
}

// Start starts the monitor loop. Calling Start on a running monitor is a no-op.
func (m *Monitor) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return
	}
	m.running = true
	m.stopCh = make(chan struct{})
	m.doneCh = make(chan struct{})

	go m.run(m.stopCh, m.doneCh)
}

// Stop stops the monitor loop and waits for it to exit
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	stopCh, doneCh := m.stopCh, m.doneCh
	m.mu.Unlock()

	close(stopCh)
	<-doneCh
}

func (m *Monitor) run(stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			m.Check()
		}
	}
}

// Check samples the pool once, records the sample and logs it
func (m *Monitor) Check() *Status {
	stats := m.source.Stats()

	status := &Status{
		Total:     stats.Total,
		Idle:      stats.Idle,
		InUse:     stats.InUse,
		Max:       stats.Max,
		Saturated: stats.Max > 0 && stats.InUse >= stats.Max,
		Timestamp: time.Now(),
	}

	m.recorder.RecordPoolStats(status.Total, status.Idle, status.InUse)

	m.logger.Debug("database pool check",
		zap.Int("total", status.Total),
		zap.Int("idle", status.Idle),
		zap.Int("in_use", status.InUse),
		zap.Int("max", status.Max))

	// Warn if every connection is checked out
	if status.Saturated {
		m.logger.Warn("all database connections are in use - acquisitions may time out",
			zap.Int("max", status.Max))
	}

	return status
}
