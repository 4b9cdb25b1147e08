//go:build integration

package postgres

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/aescanero/usersapi/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
)

// setupPostgresContainer starts a disposable PostgreSQL container and returns
// a pool config pointing at it. The container is terminated on test cleanup.
func setupPostgresContainer(t *testing.T) Config {
	t.Helper()

	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("pooldb"),
		tcpostgres.WithUsername("pool"),
		tcpostgres.WithPassword("p@ss:word"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, container.Terminate(ctx))
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	return Config{
		Host:     host,
		Port:     port.Int(),
		Name:     "pooldb",
		User:     "pool",
		Password: "p@ss:word",
		SSLMode:  "disable",
	}
}

type acquireLog struct {
	mu      sync.Mutex
	results []string
}

func (l *acquireLog) record(result string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.results = append(l.results, result)
}

func (l *acquireLog) list() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.results...)
}

func TestIntegration_Pool_PingAndStats(t *testing.T) {
	cfg := setupPostgresContainer(t)
	cfg.MaxConns = 3
	cfg.AcquireTimeout = 2 * time.Second

	pool, err := NewPool(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	assert.Equal(t, 0, pool.Stats().Total)

	require.NoError(t, pool.Ping(context.Background()))

	stats := pool.Stats()
	assert.Equal(t, 1, stats.Total)
	assert.Equal(t, 1, stats.Idle)
	assert.Equal(t, 0, stats.InUse)
	assert.Equal(t, 3, stats.Max)
}

func TestIntegration_Pool_AcquireExhausted(t *testing.T) {
	const acquireTimeout = 300 * time.Millisecond

	log := &acquireLog{}
	cfg := setupPostgresContainer(t)
	cfg.MaxConns = 1
	cfg.AcquireTimeout = acquireTimeout
	cfg.AcquireObserver = log.record

	pool, err := NewPool(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	ctx := context.Background()

	held, err := pool.Acquire(ctx)
	require.NoError(t, err)

	start := time.Now()
	_, err = pool.Acquire(ctx)
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.ErrorIs(t, err, ports.ErrPoolExhausted)
	assert.GreaterOrEqual(t, elapsed, acquireTimeout)
	assert.Less(t, elapsed, 5*acquireTimeout)

	// A health check while saturated fails within the acquire timeout.
	assert.ErrorIs(t, pool.Ping(ctx), ports.ErrPoolExhausted)

	pool.Release(held)
	require.NoError(t, pool.Ping(ctx))

	assert.Equal(t, []string{AcquireOK, AcquireExhausted, AcquireExhausted, AcquireOK}, log.list())
}
