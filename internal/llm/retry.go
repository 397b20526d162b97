package llm

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// RetryCaller decorates a Caller with a bounded attempt budget and a linearly
// increasing delay between attempts (attempt number × base delay). Every
// attempt is logged; when the budget is exhausted the last error is returned
// to the caller, which owns any fallback behavior. No circuit breaker — each
// call site carries its own budget.
type RetryCaller struct {
	inner      Caller
	maxRetries int
	baseDelay  time.Duration
	logger     *zap.SugaredLogger
}

// WithRetry wraps a Caller with retry logic. maxRetries counts total
// attempts, so maxRetries=2 means at most one retry.
func WithRetry(inner Caller, maxRetries int, baseDelay time.Duration, logger *zap.SugaredLogger) *RetryCaller {
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &RetryCaller{
		inner:      inner,
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
		logger:     logger,
	}
}

func (r *RetryCaller) Complete(ctx context.Context, operation string, req Request) (string, error) {
	var lastErr error

	for attempt := 1; attempt <= r.maxRetries; attempt++ {
		text, err := r.inner.Complete(ctx, operation, req)
		if err == nil {
			r.logger.Infow("llm call succeeded",
				"operation", operation,
				"attempt", attempt,
			)
			return text, nil
		}

		lastErr = err
		r.logger.Warnw("llm call failed",
			"operation", operation,
			"attempt", attempt,
			"maxRetries", r.maxRetries,
			"error", err,
		)

		if attempt == r.maxRetries {
			break
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(time.Duration(attempt) * r.baseDelay):
		}
	}

	return "", lastErr
}
