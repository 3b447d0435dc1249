// Package retry runs backend calls with bounded exponential backoff and
// reports failures as *logging.OperationError.
package retry

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/example/pictech-gateway/internal/logging"
)

// Policy bounds the attempts made against one backend.
type Policy struct {
	Attempts       int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Logger         *zap.Logger
	// Backend names the dependency in log messages, e.g. "redis".
	Backend string
	// Expected marks errors that are answers rather than failures (a cache
	// miss, a missing row). They return at once and are not logged.
	Expected func(error) bool
}

// Default is three attempts starting at 50ms and capped at one second.
func Default(logger *zap.Logger, backend string) Policy {
	return Policy{
		Attempts:       3,
		InitialBackoff: 50 * time.Millisecond,
		MaxBackoff:     time.Second,
		Logger:         logger,
		Backend:        backend,
	}
}

// Do runs fn until it succeeds, fails permanently or the attempts run out.
func (p Policy) Do(ctx context.Context, operation, requestID string, fn func() error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	opLogger := logging.WithOperation(logger, operation, requestID).With(zap.String("backend", p.Backend))

	backoff := p.InitialBackoff
	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			if waitErr := wait(ctx, backoff); waitErr != nil {
				return logging.NewOperationError(operation, requestID, waitErr)
			}
			if next := backoff * 2; next <= p.MaxBackoff {
				backoff = next
			}
		}

		err = fn()
		if err == nil {
			if attempt > 0 {
				opLogger.Info("operation succeeded after retry", zap.Int("attempt", attempt+1))
			}
			return nil
		}
		if p.Expected != nil && p.Expected(err) {
			return logging.NewOperationError(operation, requestID, err)
		}
		if !IsTransient(err) || attempt == attempts-1 {
			opLogger.Error("operation failed", zap.Error(err), zap.Int("attempt", attempt+1))
			return logging.NewOperationError(operation, requestID, err)
		}

		opLogger.Warn("transient error", zap.Error(err), zap.Int("attempt", attempt+1))
	}
	return logging.NewOperationError(operation, requestID, err)
}

// IsTransient reports timeouts and temporary network errors.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var temporary interface{ Temporary() bool }
	return errors.As(err, &temporary) && temporary.Temporary()
}

func wait(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
