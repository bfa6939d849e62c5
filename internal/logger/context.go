package logger

import (
	"context"
	"time"
)

// contextKey is a private type for context keys to avoid collisions
type contextKey struct{}

// logContextKey is the key for LogContext in context.Context
var logContextKey = contextKey{}

// LogContext holds boot-scoped logging context. Unlike a request-response
// protocol, the core has no per-request lifecycle: a single LogContext is
// created at Reset and carried for the lifetime of the scheduler, so every
// line emitted during that boot can be correlated by BootID.
type LogContext struct {
	BootID    string    // correlates every line emitted during one process boot
	Layer     string    // network, datalink, persistence, core
	Interface int       // link interface index, -1 when not interface-scoped
	StartTime time.Time // for duration calculation
}

// WithContext returns a new context with the given LogContext
func WithContext(ctx context.Context, lc *LogContext) context.Context {
	return context.WithValue(ctx, logContextKey, lc)
}

// FromContext retrieves the LogContext from context, or nil if not present
func FromContext(ctx context.Context) *LogContext {
	if ctx == nil {
		return nil
	}
	lc, _ := ctx.Value(logContextKey).(*LogContext)
	return lc
}

// NewLogContext creates a new LogContext for a boot cycle.
func NewLogContext(bootID string) *LogContext {
	return &LogContext{
		BootID:    bootID,
		Interface: -1,
		StartTime: time.Now(),
	}
}

// Clone creates a copy of the LogContext
func (lc *LogContext) Clone() *LogContext {
	if lc == nil {
		return nil
	}
	return &LogContext{
		BootID:    lc.BootID,
		Layer:     lc.Layer,
		Interface: lc.Interface,
		StartTime: lc.StartTime,
	}
}

// WithLayer returns a copy with the layer set
func (lc *LogContext) WithLayer(layer string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.Layer = layer
	}
	return clone
}

// WithInterface returns a copy with the link interface index set
func (lc *LogContext) WithInterface(idx int) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.Interface = idx
	}
	return clone
}

// DurationMs returns the duration since StartTime in milliseconds
func (lc *LogContext) DurationMs() float64 {
	if lc == nil || lc.StartTime.IsZero() {
		return 0
	}
	return float64(time.Since(lc.StartTime).Microseconds()) / 1000.0
}
