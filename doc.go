// Package mezport provides a resilient client for the Mezmo log-export API
// (v2 export endpoint) with layered reliability primitives:
//
//   - Bounded retries with exponential backoff + jitter
//   - Rate-limit aware delays honoring Retry-After hints
//   - Circuit breaker (open / half-open / closed states) shared across fetches
//   - Client-side token bucket throttling
//   - Pooled, reusable connections to the export endpoint
//   - Prometheus metrics and lightweight structured debug logging
//
// Design goals:
//   - Small surface area: functional options configure everything
//   - Safe concurrent use of a single *Client instance
//   - Explicit outcome classification, no panic/recover control flow
//   - Typed errors carrying status, attempts and rate-limit hints
//
// Typical usage:
//
//	client := mezport.New(
//	    mezport.WithAPIKey(key),
//	    mezport.WithMaxRetries(3),
//	    mezport.WithCircuitBreaker(mezport.CircuitBreakerConfig{}),
//	    mezport.WithMetrics(),
//	)
//	result, err := client.FetchLogs(ctx, mezport.Params{Count: 100, Levels: "error"})
//
// Pagination across fetches is the caller's responsibility: pass
// FetchResult.PaginationID back in as Params.PaginationID to resume.
// The library avoids opinionated logging: provide a Logger (e.g. via
// WithSimpleLogger) and enable debug flags selectively for insight without
// noise.
package mezport
