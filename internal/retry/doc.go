// Package retry reattempts transient connection failures with exponential
// backoff.
//
// A dump replay reconnects at every \connect boundary, so a server that is
// momentarily unreachable (still starting up, connection slots exhausted,
// network blip) would otherwise abort a long run near its end. The
// ConnectionErrorClassifier limits retries to those connection-time
// conditions; errors from executed statements are never retried, since the
// runner's own skip policy owns those.
//
//	executor := retry.NewExecutor(
//	    retry.NewConnectionErrorClassifier(),
//	    retry.NewExponentialBackoff(3),
//	)
//	err := executor.Execute(ctx, func(ctx context.Context) error {
//	    return dial(ctx)
//	})
package retry
