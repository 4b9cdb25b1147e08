package postgres

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/aescanero/usersapi/pkg/ports"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Acquire results reported to the AcquireObserver
const (
	AcquireOK        = "ok"
	AcquireExhausted = "exhausted"
	AcquireClosed    = "closed"
	AcquireError     = "error"
)

// Config holds connection and pool settings
type Config struct {
	Host     string
	Port     int
	Name     string
	User     string
	Password string
	SSLMode  string

	MaxConns       int
	IdleTimeout    time.Duration
	AcquireTimeout time.Duration

	// AcquireObserver, when set, is called once per Acquire with its result.
	AcquireObserver func(result string)
}

// Stats is a snapshot of pool occupancy
type Stats struct {
	Total int
	Idle  int
	InUse int
	Max   int
}

// Pool is a bounded set of PostgreSQL connections. Connections are opened on
// demand up to MaxConns; a connection left idle longer than IdleTimeout is closed.
type Pool struct {
	pool           *pgxpool.Pool
	acquireTimeout time.Duration
	observer       func(result string)
	logger         *zap.Logger
	closed         atomic.Bool
}

// BuildConnString builds a PostgreSQL connection string from config.
func BuildConnString(cfg Config) string {
	// URL-encode password to handle special characters
	escapedPassword := url.QueryEscape(cfg.Password)

	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "prefer"
	}

	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(cfg.User),
		escapedPassword,
		cfg.Host,
		cfg.Port,
		cfg.Name,
		sslMode,
	)
}

// NewPool creates the pool without opening any connection.
func NewPool(ctx context.Context, cfg Config, logger *zap.Logger) (*Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(BuildConnString(cfg))
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}

	poolCfg.MinConns = 0
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = int32(cfg.MaxConns)
	}
	if cfg.IdleTimeout > 0 {
		poolCfg.MaxConnIdleTime = cfg.IdleTimeout
		poolCfg.HealthCheckPeriod = cfg.IdleTimeout / 2
	}
	if cfg.AcquireTimeout > 0 {
		poolCfg.ConnConfig.ConnectTimeout = cfg.AcquireTimeout
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	logger.Info("database pool created",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.String("database", cfg.Name),
		zap.Int32("max_conns", poolCfg.MaxConns),
		zap.Duration("idle_timeout", poolCfg.MaxConnIdleTime),
		zap.Duration("acquire_timeout", cfg.AcquireTimeout))

	return &Pool{
		pool:           pool,
		acquireTimeout: cfg.AcquireTimeout,
		observer:       cfg.AcquireObserver,
		logger:         logger,
	}, nil
}

// Acquire checks out a connection. It fails with ports.ErrPoolExhausted when the
// acquire timeout elapses while every slot is busy, and with ports.ErrPoolClosed
// once Close has been called. The caller must Release the connection.
func (p *Pool) Acquire(ctx context.Context) (*pgxpool.Conn, error) {
	if p.closed.Load() {
		p.observe(AcquireClosed)
		return nil, ports.ErrPoolClosed
	}

	acquireCtx := ctx
	if p.acquireTimeout > 0 {
		var cancel context.CancelFunc
		acquireCtx, cancel = context.WithTimeout(ctx, p.acquireTimeout)
		defer cancel()
	}

	conn, err := p.pool.Acquire(acquireCtx)
	if err == nil {
		p.observe(AcquireOK)
		return conn, nil
	}

	switch {
	case p.closed.Load():
		p.observe(AcquireClosed)
		return nil, ports.ErrPoolClosed
	case errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil && p.saturated():
		p.observe(AcquireExhausted)
		return nil, fmt.Errorf("%w: no connection within %s", ports.ErrPoolExhausted, p.acquireTimeout)
	default:
		p.observe(AcquireError)
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
}

// Release returns a connection to the idle set.
func (p *Pool) Release(conn *pgxpool.Conn) {
	if conn != nil {
		conn.Release()
	}
}

// WithConn runs fn with a checked-out connection and releases it on every exit
// path, including a panic inside fn.
func (p *Pool) WithConn(ctx context.Context, fn func(conn *pgxpool.Conn) error) error {
	conn, err := p.Acquire(ctx)
	if err != nil {
		return err
	}
	defer p.Release(conn)

	return fn(conn)
}

// Exec acquires a connection, runs a statement and releases the connection.
func (p *Pool) Exec(ctx context.Context, sql string, args ...any) error {
	return p.WithConn(ctx, func(conn *pgxpool.Conn) error {
		if _, err := conn.Exec(ctx, sql, args...); err != nil {
			return Classify(err)
		}
		return nil
	})
}

// Ping runs a trivial liveness query.
func (p *Pool) Ping(ctx context.Context) error {
	return p.Exec(ctx, "SELECT 1")
}

// Stats returns the current pool occupancy.
func (p *Pool) Stats() Stats {
	stat := p.pool.Stat()
	return Stats{
		Total: int(stat.TotalConns()),
		Idle:  int(stat.IdleConns()),
		InUse: int(stat.AcquiredConns()),
		Max:   int(stat.MaxConns()),
	}
}

// Close closes every connection and rejects later Acquire calls. It waits for
// checked-out connections to be released.
func (p *Pool) Close() {
	if !p.closed.CompareAndSwap(false, true) {
		return
	}

	p.logger.Info("closing database pool")
	p.pool.Close()
	p.logger.Info("database pool closed")
}

// Closed reports whether Close has been called.
func (p *Pool) Closed() bool {
	return p.closed.Load()
}

func (p *Pool) saturated() bool {
	stat := p.pool.Stat()
	return stat.AcquiredConns() >= stat.MaxConns()
}

func (p *Pool) observe(result string) {
	if p.observer != nil {
		p.observer(result)
	}
}
