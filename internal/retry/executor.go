package retry

import (
	"context"
	"time"

	"github.com/vvka-141/pgdumprun/pkg/pgdumprun"
)

// Executor runs an operation, retrying transient failures under a backoff
// strategy. Safe for concurrent use; WithOnRetry returns a configured copy
// rather than mutating the receiver.
type Executor struct {
	classifier pgdumprun.ErrorClassifier
	strategy   pgdumprun.BackoffStrategy
	onRetry    func(attempt int, err error, delay time.Duration)
}

// NewExecutor creates an executor. Panics if classifier or strategy is nil
// (programmer error).
func NewExecutor(classifier pgdumprun.ErrorClassifier, strategy pgdumprun.BackoffStrategy) *Executor {
	if classifier == nil {
		panic("classifier cannot be nil")
	}
	if strategy == nil {
		panic("strategy cannot be nil")
	}
	return &Executor{classifier: classifier, strategy: strategy}
}

// WithOnRetry returns a copy of the executor that invokes callback before
// each retry wait. attempt is zero-indexed.
func (e *Executor) WithOnRetry(callback func(attempt int, err error, delay time.Duration)) *Executor {
	clone := *e
	clone.onRetry = callback
	return &clone
}

// Execute runs operation until it succeeds, fails fatally, exhausts the
// strategy's retry budget, or ctx is canceled. The initial attempt does not
// count against the budget.
func (e *Executor) Execute(ctx context.Context, operation func(ctx context.Context) error) error {
	maxAttempts := e.strategy.MaxAttempts()

	for attempt := 0; ; attempt++ {
		err := operation(ctx)
		if err == nil {
			return nil
		}
		if !e.classifier.IsTransient(err) {
			return err
		}
		if maxAttempts >= 0 && attempt >= maxAttempts {
			return err
		}

		delay := e.strategy.NextDelay(attempt)
		if e.onRetry != nil {
			e.onRetry(attempt, err, delay)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
