// Package flush drains buffered telemetry before a Lambda execution environment is frozen.
//
// Lambda may freeze the process as soon as the handler returns, so spans waiting in a batch
// processor would be exported only on a later invocation, if ever. The handler therefore calls
// [Coordinator.Flush] once per invocation, after its span has ended and before it returns.
package flush

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// DefaultTimeout bounds how long a flush may delay the response.
const DefaultTimeout = 10 * time.Second

// Flusher exports buffered telemetry. *sdktrace.TracerProvider satisfies it.
type Flusher interface {
	ForceFlush(ctx context.Context) error
}

// Nop is a Flusher that has nothing to flush.
var Nop Flusher = nopFlusher{}

type nopFlusher struct{}

func (nopFlusher) ForceFlush(context.Context) error { return nil }

// Outcome describes how a flush went. It is informational; a failed flush never fails a request.
type Outcome int

const (
	Flushed Outcome = iota
	Skipped
	Failed
	TimedOut
)

func (o Outcome) String() string {
	switch o {
	case Flushed:
		return "flushed"
	case Skipped:
		return "skipped"
	case Failed:
		return "failed"
	case TimedOut:
		return "timed_out"
	default:
		return "unknown"
	}
}

// Coordinator flushes a Flusher within a bounded time.
type Coordinator struct {
	flusher Flusher
	timeout time.Duration
	logger  *zap.Logger
}

// New returns a Coordinator. A nil flusher means nothing to flush and a non-positive timeout means [DefaultTimeout].
func New(flusher Flusher, timeout time.Duration, logger *zap.Logger) *Coordinator {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{flusher: flusher, timeout: timeout, logger: logger}
}

// Flush asks the flusher to export everything it buffers, waiting at most the configured timeout.
//
// Errors are logged, not returned. Only the timeout bounds the wait; cancellation of ctx is ignored
// so that a request whose context is already done still gets its spans out.
func (c *Coordinator) Flush(ctx context.Context) Outcome {
	if c == nil || c.flusher == nil || c.flusher == Nop {
		return Skipped
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- c.flusher.ForceFlush(ctx) }()
	var err error
	select {
	case err = <-done:
	case <-ctx.Done():
		err = ctx.Err()
	}
	switch {
	case err == nil:
		c.logger.Info("Successfully flushed OpenTelemetry spans")
		return Flushed
	case errors.Is(err, context.DeadlineExceeded):
		c.logger.Warn("Timed out flushing OpenTelemetry spans", zap.Duration("timeout", c.timeout), zap.Error(err))
		return TimedOut
	default:
		c.logger.Error("Failed to force flush OpenTelemetry spans", zap.Error(err))
		return Failed
	}
}
