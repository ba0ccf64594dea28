package engine

import (
	"context"
	"time"
)

// UnitOfWork abstracts processing a single item: a possibly-slow,
// possibly-failing operation that returns the payload size on success.
// Implementations must honor context cancellation.
type UnitOfWork interface {
	Process(ctx context.Context, item WorkItem) (int64, error)
}

// UnitFunc adapts a plain function to the UnitOfWork interface.
type UnitFunc func(ctx context.Context, item WorkItem) (int64, error)

func (f UnitFunc) Process(ctx context.Context, item WorkItem) (int64, error) {
	return f(ctx, item)
}

// FailureLogger logs failed items.
type FailureLogger interface {
	LogFailure(item WorkItem, err error)
}

// RetryPolicy configures per-item retry behavior. Retries happen inside the
// item's timeout window; the engine still records exactly one terminal
// outcome per item.
type RetryPolicy struct {
	MaxAttempts int                                        // total attempts including initial try
	Delay       time.Duration                              // fixed delay between retries (used if DelayFunc nil)
	ShouldRetry func(error) bool                           // predicate; if nil, all errors retried
	DelayFunc   func(attempt int, err error) time.Duration // dynamic backoff; attempt is 1-based
}

// retryUnit wraps a UnitOfWork with retry logic.
type retryUnit struct {
	inner  UnitOfWork
	policy RetryPolicy
}

// WithRetry wraps a UnitOfWork with retry capability.
func WithRetry(unit UnitOfWork, policy RetryPolicy) UnitOfWork {
	if policy.MaxAttempts <= 1 {
		return unit // no retries needed
	}
	return &retryUnit{
		inner:  unit,
		policy: policy,
	}
}

func (r *retryUnit) Process(ctx context.Context, item WorkItem) (int64, error) {
	var lastErr error
	for attempt := 1; attempt <= r.policy.MaxAttempts; attempt++ {
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}

		bytes, err := r.inner.Process(ctx, item)
		if err == nil {
			return bytes, nil
		}
		lastErr = err

		// Don't delay after the last attempt.
		if attempt < r.policy.MaxAttempts {
			if r.policy.ShouldRetry != nil && !r.policy.ShouldRetry(lastErr) {
				return 0, lastErr
			}
			var delay time.Duration
			if r.policy.DelayFunc != nil {
				delay = r.policy.DelayFunc(attempt, lastErr)
			} else {
				delay = r.policy.Delay
			}
			if delay > 0 {
				select {
				case <-time.After(delay):
				case <-ctx.Done():
					return 0, ctx.Err()
				}
			}
		}
	}
	return 0, lastErr
}

// loggingUnit wraps a UnitOfWork with failure logging.
type loggingUnit struct {
	inner  UnitOfWork
	logger FailureLogger
}

// WithLogging wraps a UnitOfWork to log failures.
func WithLogging(unit UnitOfWork, logger FailureLogger) UnitOfWork {
	if logger == nil {
		return unit
	}
	return &loggingUnit{
		inner:  unit,
		logger: logger,
	}
}

func (l *loggingUnit) Process(ctx context.Context, item WorkItem) (int64, error) {
	bytes, err := l.inner.Process(ctx, item)
	if err != nil && l.logger != nil {
		l.logger.LogFailure(item, err)
	}
	return bytes, err
}
