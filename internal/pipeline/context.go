// Package pipeline composes the convolution and pooling stages into a single
// fused inference operator.
//
// A Context owns the compute engine for the lifetime of a pipeline. Build
// validates every shape end to end before any compute; Execute runs the
// convolution into an intermediate buffer and hands that same buffer to
// pooling without copying it.
package pipeline

import (
	"errors"
	"io"
	"log/slog"
	"sync/atomic"

	"github.com/born-ml/fusion/internal/primitive"
)

// ErrContextClosed is returned by Build and Execute after Close.
var ErrContextClosed = errors.New("pipeline: context closed")

// Context is the explicit compute context: the engine that executes
// primitives plus the logger. Create one at pipeline setup and Close it at
// teardown. A Context may be shared by concurrent Build/Execute calls;
// each FusedPlan and buffer set is independent.
type Context struct {
	engine primitive.Engine
	logger *slog.Logger
	closed atomic.Bool
}

// Option configures a Context.
type Option func(*Context)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(c *Context) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewContext creates a compute context around engine.
func NewContext(engine primitive.Engine, opts ...Option) *Context {
	c := &Context{
		engine: engine,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("engine", engine.Name())
	c.logger.Debug("compute context created")
	return c
}

// Engine returns the context's compute engine.
func (c *Context) Engine() primitive.Engine { return c.engine }

// Close ends the context's lifecycle. Closing twice is a no-op.
func (c *Context) Close() error {
	if c.closed.CompareAndSwap(false, true) {
		c.logger.Debug("compute context closed")
	}
	return nil
}

// Closed reports whether Close has been called.
func (c *Context) Closed() bool { return c.closed.Load() }
