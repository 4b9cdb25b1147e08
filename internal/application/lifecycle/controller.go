package lifecycle

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// State is a step of the process lifecycle
type State int32

const (
	StateStarting State = iota
	StateListening
	StateDraining
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateListening:
		return "listening"
	case StateDraining:
		return "draining"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Server is an HTTP server that can be drained
type Server interface {
	Serve(ln net.Listener) error
	Shutdown(ctx context.Context) error
}

// Resource is released once the server has drained, in registration order
type Resource struct {
	Name  string
	Close func()
}

// Controller binds the listener, serves until its context is cancelled, then
// drains in-flight requests and releases resources.
type Controller struct {
	addr            string
	server          Server
	resources       []Resource
	shutdownTimeout time.Duration
	logger          *zap.Logger

	state     atomic.Int32
	listening chan struct{}
	mu        sync.Mutex
	boundAddr net.Addr
}

// Config holds controller configuration
type Config struct {
	Addr            string
	Server          Server
	Resources       []Resource
	ShutdownTimeout time.Duration
	Logger          *zap.Logger
}

// NewController creates a controller in the starting state
func NewController(cfg *Config) *Controller {
	return &Controller{
		addr:            cfg.Addr,
		server:          cfg.Server,
		resources:       cfg.Resources,
		shutdownTimeout: cfg.ShutdownTimeout,
		logger:          cfg.Logger,
		listening:       make(chan struct{}),
	}
}

// State returns the current lifecycle state
func (c *Controller) State() State {
	return State(c.state.Load())
}

// Listening is closed once the listener is bound
func (c *Controller) Listening() <-chan struct{} {
	return c.listening
}

// BoundAddr returns the listener address, or nil before Listening
func (c *Controller) BoundAddr() net.Addr {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.boundAddr
}

// Run binds the listener and serves until ctx is cancelled, then drains.
// It returns an error only when the listener cannot be bound or the server
// stops on its own with an error; a completed drain returns nil.
func (c *Controller) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", c.addr)
	if err != nil {
		c.releaseResources()
		c.setState(StateStopped)
		return fmt.Errorf("failed to bind %s: %w", c.addr, err)
	}

	c.mu.Lock()
	c.boundAddr = ln.Addr()
	c.mu.Unlock()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- c.server.Serve(ln)
	}()

	c.setState(StateListening)
	close(c.listening)

	var runErr error
	select {
	case <-ctx.Done():
		c.logger.Info("received shutdown signal")
	case err := <-serveErr:
		serveErr = nil
		if err != nil {
			c.logger.Error("server stopped unexpectedly", zap.Error(err))
			runErr = err
		}
	}

	c.drain(serveErr)
	c.setState(StateStopped)

	return runErr
}

func (c *Controller) drain(serveErr <-chan error) {
	c.setState(StateDraining)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), c.shutdownTimeout)
	defer cancel()

	if err := c.server.Shutdown(shutdownCtx); err != nil {
		c.logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	if serveErr != nil {
		if err := <-serveErr; err != nil {
			c.logger.Error("server returned error while draining", zap.Error(err))
		}
	}

	c.releaseResources()
}

func (c *Controller) releaseResources() {
	for _, r := range c.resources {
		c.logger.Info("releasing resource", zap.String("resource", r.Name))
		r.Close()
	}
}

func (c *Controller) setState(s State) {
	prev := State(c.state.Swap(int32(s)))
	c.logger.Info("lifecycle transition",
		zap.String("from", prev.String()),
		zap.String("to", s.String()))
}
