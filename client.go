package mezport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mezport/mezport/internal/backoff"
)

// Defaults mirroring the export API deployment this client was built
// against.
const (
	DefaultBaseURL    = "https://api.mezmo.com"
	DefaultTimeout    = 30 * time.Second
	DefaultMaxRetries = 3
	DefaultBaseDelay  = 1 * time.Second
	DefaultMaxDelay   = 30 * time.Second
)

// exportPath is the only endpoint this client speaks to.
const exportPath = "/v2/export"

// jitterWindows holds the additive jitter range for each delay rule. The
// rate-limit windows are wider than the generic one so that herds of
// clients released by the same Retry-After spread out.
type jitterWindows struct {
	genericLo, genericHi time.Duration
	hintLo, hintHi       time.Duration
	rateLo, rateHi       time.Duration
}

func defaultJitterWindows() jitterWindows {
	return jitterWindows{
		genericLo: 100 * time.Millisecond,
		genericHi: 500 * time.Millisecond,
		hintLo:    500 * time.Millisecond,
		hintHi:    2 * time.Second,
		rateLo:    1 * time.Second,
		rateHi:    3 * time.Second,
	}
}

// Client is a resilient fetch client for the log-export API. It layers
// parameter validation, a circuit breaker, bounded retries with
// rate-limit-aware backoff and response normalization around a pooled
// net/http transport. It is safe for concurrent use; concurrent fetches
// share the connection pool and the circuit breaker.
type Client struct {
	httpClient      *http.Client
	baseURL         string
	apiKey          string
	maxRetries      int
	backoff         backoff.Policy
	jitter          jitterWindows
	circuitBreaker  *CircuitBreaker
	rateLimiter     *RateLimiter
	metrics         *MetricsCollector
	debug           *DebugConfig
	logger          Logger
	validationError error
}

// New constructs a Client using the provided functional options. A best
// effort validation is performed; call IsValid / ValidationError for errors.
func New(options ...Option) *Client {
	client := &Client{
		httpClient: &http.Client{
			Timeout:   DefaultTimeout,
			Transport: newPooledTransport(),
		},
		baseURL:        DefaultBaseURL,
		maxRetries:     DefaultMaxRetries,
		backoff:        backoff.Policy{Base: DefaultBaseDelay, Max: DefaultMaxDelay},
		jitter:         defaultJitterWindows(),
		circuitBreaker: NewCircuitBreaker(CircuitBreakerConfig{}),
		debug:          DefaultDebugConfig(),
	}

	for _, option := range options {
		option(client)
	}

	if err := client.ValidateConfiguration(); err != nil {
		client.validationError = err
	}

	return client
}

// newPooledTransport builds the shared connection pool. The limits mirror
// what the export API is provisioned for: at most 20 connections per host,
// 10 kept alive, retired after 30s idle.
func newPooledTransport() *http.Transport {
	return &http.Transport{
		MaxConnsPerHost:     20,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     30 * time.Second,
	}
}

// FetchLogs validates params and fetches one page of logs from the export
// API, retrying transient failures up to the configured attempt budget.
// The returned error is always a *FetchError.
func (c *Client) FetchLogs(ctx context.Context, params Params) (*FetchResult, error) {
	if c.validationError != nil {
		return nil, &FetchError{
			Type:      ErrorTypeValidation,
			Message:   "client configuration is invalid",
			Cause:     c.validationError,
			Timestamp: time.Now(),
		}
	}

	req, err := ValidateParams(params)
	if err != nil {
		if c.metrics != nil {
			c.metrics.RecordError(ErrorTypeValidation)
		}
		return nil, err
	}

	return c.Fetch(ctx, req)
}

// Fetch executes a validated request. It either returns a full result or
// fails as a unit; partial pages are never returned. Pagination across
// fetches is the caller's responsibility via FetchResult.PaginationID.
func (c *Client) Fetch(ctx context.Context, req FetchRequest) (*FetchResult, error) {
	start := time.Now()

	if c.metrics != nil {
		c.metrics.RecordFetchStart()
		defer c.metrics.RecordFetchEnd()
	}

	if c.debug != nil && c.debug.Enabled && c.debug.LogRequests && c.logger != nil {
		c.logger.Info("Starting fetch",
			"correlationID", req.CorrelationID, "count", req.Count, "prefer", req.Prefer,
			"from", req.From, "to", req.To)
	}

	if c.rateLimiter != nil {
		if !c.rateLimiter.Allow() {
			if c.debug != nil && c.debug.Enabled && c.debug.LogRateLimit && c.logger != nil {
				c.logger.Warn("Client-side rate limit exceeded", "correlationID", req.CorrelationID)
			}
			return nil, c.finishError(start, &FetchError{
				Type:          ErrorTypeRateLimited,
				Message:       "client-side rate limit exceeded",
				CorrelationID: req.CorrelationID,
				Timestamp:     time.Now(),
			})
		}
		if c.metrics != nil {
			c.metrics.RecordRateLimiterTokens("default", c.rateLimiter.Tokens())
		}
	}

	var lastErr *FetchError

	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if !c.circuitBreaker.Allow() {
			snap := c.circuitBreaker.Snapshot()
			if c.debug != nil && c.debug.Enabled && c.debug.LogCircuit && c.logger != nil {
				c.logger.Warn("Circuit breaker open",
					"correlationID", req.CorrelationID, "failures", snap.Failures,
					"recoveryTimeout", snap.RecoveryTimeout)
			}
			return nil, c.finishError(start, &FetchError{
				Type: ErrorTypeCircuitOpen,
				Message: fmt.Sprintf("circuit breaker is open after %d consecutive failures, recovery in %s",
					snap.Failures, snap.RecoveryTimeout),
				CorrelationID: req.CorrelationID,
				Timestamp:     time.Now(),
			})
		}

		if attempt > 0 {
			if c.debug != nil && c.debug.Enabled && c.debug.LogRetries && c.logger != nil {
				c.logger.Info("Retry attempt",
					"correlationID", req.CorrelationID, "attempt", attempt+1, "maxRetries", c.maxRetries)
			}
			if c.metrics != nil {
				c.metrics.RecordRetry(attempt)
			}
		}

		outcome := c.attempt(ctx, req, attempt)

		switch outcome.kind {
		case outcomeSuccess:
			c.circuitBreaker.RecordSuccess()
			if c.metrics != nil {
				c.metrics.RecordCircuitBreakerState("default", c.circuitBreaker.Snapshot().State)
				c.metrics.RecordLogsFetched(len(outcome.result.Logs))
				c.metrics.RecordFetch("success", time.Since(start))
			}
			if c.debug != nil && c.debug.Enabled && c.debug.LogRequests && c.logger != nil {
				c.logger.Info("Fetch completed",
					"correlationID", req.CorrelationID, "logs", len(outcome.result.Logs),
					"hasMore", outcome.result.HasMore, "attempts", attempt+1)
			}
			return outcome.result, nil

		case outcomeTerminal:
			// Client errors are caller misuse and stay out of the breaker's
			// accounting; an unparseable 200 body is a dependency
			// malfunction and is counted immediately.
			if outcome.breakerFailure {
				c.circuitBreaker.RecordFailure()
				if c.metrics != nil {
					c.metrics.RecordCircuitBreakerState("default", c.circuitBreaker.Snapshot().State)
				}
			}
			return nil, c.finishError(start, outcome.err)

		case outcomeRetryable:
			lastErr = outcome.err
			if c.debug != nil && c.debug.Enabled && c.debug.LogRetries && c.logger != nil {
				c.logger.Warn("Attempt failed",
					"correlationID", req.CorrelationID, "attempt", attempt+1,
					"error", outcome.err.Error())
			}
			if attempt < c.maxRetries-1 {
				delay := outcome.delay
				if delay == 0 {
					delay = c.backoff.Exponential(attempt, c.jitter.genericLo, c.jitter.genericHi)
				}
				if c.debug != nil && c.debug.Enabled && c.debug.LogRetries && c.logger != nil {
					c.logger.Info("Scheduling retry",
						"correlationID", req.CorrelationID, "attempt", attempt+2, "backoff", delay)
				}
				if err := sleep(ctx, delay); err != nil {
					return nil, c.finishError(start, &FetchError{
						Type:          ErrorTypeTimeout,
						Message:       "fetch cancelled during backoff",
						Cause:         err,
						Attempts:      attempt + 1,
						MaxRetries:    c.maxRetries,
						CorrelationID: req.CorrelationID,
						Timestamp:     time.Now(),
					})
				}
			}
		}
	}

	// All attempts exhausted: one breaker failure for the whole fetch.
	c.circuitBreaker.RecordFailure()
	if c.metrics != nil {
		c.metrics.RecordCircuitBreakerState("default", c.circuitBreaker.Snapshot().State)
	}

	if lastErr == nil {
		lastErr = &FetchError{
			Type:      ErrorTypeServer,
			Message:   "all retry attempts failed",
			Timestamp: time.Now(),
		}
	}
	lastErr.Attempts = c.maxRetries
	lastErr.MaxRetries = c.maxRetries
	lastErr.CorrelationID = req.CorrelationID
	return nil, c.finishError(start, lastErr)
}

// BreakerSnapshot exposes circuit breaker state for health display.
func (c *Client) BreakerSnapshot() BreakerSnapshot {
	return c.circuitBreaker.Snapshot()
}

// IsValid reports whether configuration validation passed at construction.
func (c *Client) IsValid() bool {
	return c.validationError == nil
}

// ValidationError returns the configuration validation error, if any.
func (c *Client) ValidationError() error {
	return c.validationError
}

// Attempt outcomes. Each attempt classifies into exactly one of these;
// the loop in Fetch consumes them without any throw/catch style flow.
const (
	outcomeSuccess = iota
	outcomeRetryable
	outcomeTerminal
)

type attemptOutcome struct {
	kind   int
	result *FetchResult
	err    *FetchError
	// delay is set only by the 429 branch, which owns its delay rule.
	delay time.Duration
	// breakerFailure marks terminal outcomes that still count as a
	// dependency malfunction.
	breakerFailure bool
}

// attempt performs one HTTP exchange against the export endpoint and
// classifies the outcome.
func (c *Client) attempt(ctx context.Context, req FetchRequest, attempt int) attemptOutcome {
	httpReq, err := c.newExportRequest(ctx, req)
	if err != nil {
		return attemptOutcome{kind: outcomeTerminal, err: &FetchError{
			Type:          ErrorTypeConnect,
			Message:       "failed to build export request",
			Cause:         err,
			CorrelationID: req.CorrelationID,
			Timestamp:     time.Now(),
		}}
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		errType, msg := classifyTransportError(err)
		return attemptOutcome{kind: outcomeRetryable, err: &FetchError{
			Type:          errType,
			Message:       msg,
			Cause:         err,
			Attempts:      attempt + 1,
			MaxRetries:    c.maxRetries,
			CorrelationID: req.CorrelationID,
			Timestamp:     time.Now(),
		}}
	}
	defer resp.Body.Close()

	body, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		return attemptOutcome{kind: outcomeRetryable, err: &FetchError{
			Type:          ErrorTypeConnect,
			Message:       "failed to read response body",
			Cause:         readErr,
			Status:        resp.StatusCode,
			Attempts:      attempt + 1,
			MaxRetries:    c.maxRetries,
			CorrelationID: req.CorrelationID,
			Timestamp:     time.Now(),
		}}
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		result, nerr := normalizeResponse(body, req.Count)
		if nerr != nil {
			nerr.Status = resp.StatusCode
			nerr.Attempts = attempt + 1
			nerr.MaxRetries = c.maxRetries
			nerr.CorrelationID = req.CorrelationID
			return attemptOutcome{kind: outcomeTerminal, err: nerr, breakerFailure: true}
		}
		return attemptOutcome{kind: outcomeSuccess, result: result}

	case resp.StatusCode == http.StatusTooManyRequests:
		hint := parseRetryAfter(resp.Header.Get("Retry-After"))
		var delay time.Duration
		if hint > 0 {
			delay = backoff.RetryAfter(hint, c.jitter.hintLo, c.jitter.hintHi)
		} else {
			delay = c.backoff.Exponential(attempt, c.jitter.rateLo, c.jitter.rateHi)
		}
		return attemptOutcome{kind: outcomeRetryable, delay: delay, err: &FetchError{
			Type:          ErrorTypeRateLimited,
			Message:       "export API rate limit exceeded",
			Status:        resp.StatusCode,
			BodyExcerpt:   excerpt(body),
			RetryAfter:    hint,
			Attempts:      attempt + 1,
			MaxRetries:    c.maxRetries,
			CorrelationID: req.CorrelationID,
			Timestamp:     time.Now(),
		}}

	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		// Client errors are not transient; no retry.
		return attemptOutcome{kind: outcomeTerminal, err: &FetchError{
			Type:          ErrorTypeClient,
			Message:       fmt.Sprintf("export API returned status %d", resp.StatusCode),
			Status:        resp.StatusCode,
			BodyExcerpt:   excerpt(body),
			Attempts:      attempt + 1,
			MaxRetries:    c.maxRetries,
			CorrelationID: req.CorrelationID,
			Timestamp:     time.Now(),
		}}

	default:
		return attemptOutcome{kind: outcomeRetryable, err: &FetchError{
			Type:          ErrorTypeServer,
			Message:       fmt.Sprintf("export API returned status %d", resp.StatusCode),
			Status:        resp.StatusCode,
			BodyExcerpt:   excerpt(body),
			Attempts:      attempt + 1,
			MaxRetries:    c.maxRetries,
			CorrelationID: req.CorrelationID,
			Timestamp:     time.Now(),
		}}
	}
}

// newExportRequest maps a FetchRequest onto the export endpoint's query
// parameters and auth header.
func (c *Client) newExportRequest(ctx context.Context, req FetchRequest) (*http.Request, error) {
	q := url.Values{}
	q.Set("size", strconv.Itoa(req.Count))
	q.Set("prefer", req.Prefer)
	q.Set("from", strconv.FormatInt(req.From, 10))
	q.Set("to", strconv.FormatInt(req.To, 10))
	if len(req.Apps) > 0 {
		q.Set("apps", strings.Join(req.Apps, ","))
	}
	if len(req.Hosts) > 0 {
		q.Set("hosts", strings.Join(req.Hosts, ","))
	}
	if len(req.Levels) > 0 {
		q.Set("levels", strings.Join(req.Levels, ","))
	}
	if req.Query != "" {
		q.Set("query", req.Query)
	}
	if req.PaginationID != "" {
		q.Set("pagination_id", req.PaginationID)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+exportPath+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("servicekey", c.apiKey)
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", "mezport/"+Version)
	return httpReq, nil
}

// classifyTransportError distinguishes timeouts from connection failures.
func classifyTransportError(err error) (string, string) {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorTypeTimeout, "request to export API timed out"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrorTypeTimeout, "request to export API timed out"
	}
	return ErrorTypeConnect, "failed to connect to export API"
}

// parseRetryAfter parses a Retry-After header value, supporting both
// delay-seconds and HTTP-date formats. Values are capped at one hour.
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}

	if seconds, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
		if seconds > 0 {
			delay := time.Duration(seconds) * time.Second
			if delay > time.Hour {
				delay = time.Hour
			}
			return delay
		}
		return 0
	}

	if t, err := http.ParseTime(value); err == nil {
		delay := time.Until(t)
		if delay > 0 && delay <= time.Hour {
			return delay
		}
	}

	return 0
}

// finishError records error metrics before surfacing the failure.
func (c *Client) finishError(start time.Time, err *FetchError) *FetchError {
	if c.metrics != nil {
		c.metrics.RecordError(err.Type)
		c.metrics.RecordFetch(err.Type, time.Since(start))
	}
	return err
}

// sleep waits for d or until ctx is cancelled.
func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
