// Package asyncx provides the two concurrency helpers this service leans on:
// settled fan-out and bounded retries with backoff, both with first-class
// context support.
//
// # Fan-out
//
// [AllSettled] runs a set of functions concurrently and never
// short-circuits: it always returns one [Result] per function, in input
// order, so callers can inspect individual outcomes. The right shape for
// health probes and other diagnostics where every answer matters.
//
//	results := asyncx.AllSettled(ctx,
//	    func(ctx context.Context) (string, error) { return "db", db.PingContext(ctx) },
//	    func(ctx context.Context) (string, error) { return "redis", rdb.Ping(ctx).Err() },
//	)
//
// # Retry
//
// [RetryWithBackoff] calls a function up to n times with exponential backoff
// between attempts, doubling the wait duration after every failure. It
// respects context cancellation between retries so the caller can abort
// early.
//
//	keys, err := asyncx.RetryWithBackoff(ctx, 5, time.Second, func(ctx context.Context) (*KeySet, error) {
//	    return source.Fetch(ctx)
//	})
//
// # Design Notes
//
// Both helpers propagate cancellation and deadlines to the work they
// coordinate, and neither abandons a goroutine: AllSettled waits for every
// launched probe before returning.
//
// The package has no external dependencies and relies solely on the Go
// standard library.
package asyncx
