// Package retry runs an operation again after transient failures, with
// exponential backoff and jitter.
//
//	p := retry.Policy{Attempts: 3, InitialBackoff: 50 * time.Millisecond}
//	err := retry.Do(ctx, "report", p, func(ctx context.Context) error {
//	    return send(ctx)
//	})
package retry
