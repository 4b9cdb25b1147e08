package poolmonitor

import (
	"sync"
	"testing"
	"time"

	"github.com/aescanero/usersapi/pkg/adapters/database/postgres"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type staticSource struct{ stats postgres.Stats }

func (s staticSource) Stats() postgres.Stats { return s.stats }

type recorder struct {
	mu      sync.Mutex
	samples [][3]int
}

func (r *recorder) RecordPoolStats(total, idle, inUse int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.samples = append(r.samples, [3]int{total, idle, inUse})
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.samples)
}

func TestCheck(t *testing.T) {
	tests := []struct {
		name      string
		stats     postgres.Stats
		saturated bool
	}{
		{name: "empty pool", stats: postgres.Stats{Max: 20}},
		{name: "partly used", stats: postgres.Stats{Total: 4, Idle: 1, InUse: 3, Max: 20}},
		{name: "saturated", stats: postgres.Stats{Total: 20, InUse: 20, Max: 20}, saturated: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recorder{}
			m := New(staticSource{stats: tt.stats}, rec, time.Minute, zap.NewNop())

			status := m.Check()

			assert.Equal(t, tt.saturated, status.Saturated)
			assert.Equal(t, [][3]int{{tt.stats.Total, tt.stats.Idle, tt.stats.InUse}}, rec.samples)
		})
	}
}

func TestStartStop(t *testing.T) {
	rec := &recorder{}
	m := New(staticSource{stats: postgres.Stats{Max: 1}}, rec, 5*time.Millisecond, zap.NewNop())

	m.Start()
	m.Start()

	assert.Eventually(t, func() bool { return rec.count() >= 2 }, time.Second, 5*time.Millisecond)

	m.Stop()
	stopped := rec.count()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, stopped, rec.count())

	m.Stop()
}
