package mezport

import (
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// WithAPIKey sets the service key sent on every export request
func WithAPIKey(key string) Option {
	return func(c *Client) {
		c.apiKey = key
	}
}

// WithBaseURL overrides the export API base URL
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithMaxRetries sets the attempt budget for one logical fetch
func WithMaxRetries(n int) Option {
	return func(c *Client) {
		c.maxRetries = n
	}
}

// WithInitialBackoff sets the base retry delay
func WithInitialBackoff(d time.Duration) Option {
	return func(c *Client) {
		c.backoff.Base = d
	}
}

// WithMaxBackoff sets the retry delay cap
func WithMaxBackoff(d time.Duration) Option {
	return func(c *Client) {
		c.backoff.Max = d
	}
}

// WithTimeout sets the per-attempt request timeout
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if c.httpClient != nil {
			c.httpClient.Timeout = d
		}
	}
}

// WithHTTPClient replaces the pooled HTTP client. Use this to supply a
// transport with different pool limits or TLS settings.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithCircuitBreaker sets the circuit breaker configuration
func WithCircuitBreaker(config CircuitBreakerConfig) Option {
	return func(c *Client) {
		c.circuitBreaker = NewCircuitBreaker(config)
	}
}

// WithRateLimiter enables client-side token bucket throttling
func WithRateLimiter(maxTokens int, refillRate time.Duration) Option {
	return func(c *Client) {
		c.rateLimiter = NewRateLimiter(maxTokens, refillRate)
	}
}

// WithMetrics enables Prometheus metrics collection
func WithMetrics() Option {
	return func(c *Client) {
		c.metrics = NewMetricsCollector()
	}
}

// WithMetricsCollector sets a custom metrics collector
func WithMetricsCollector(collector *MetricsCollector) Option {
	return func(c *Client) {
		c.metrics = collector
	}
}

// WithDebug enables debug logging with default configuration
func WithDebug() Option {
	return func(c *Client) {
		if c.debug == nil {
			c.debug = DefaultDebugConfig()
		}
		c.debug.Enabled = true
	}
}

// WithDebugConfig sets custom debug configuration
func WithDebugConfig(config *DebugConfig) Option {
	return func(c *Client) {
		c.debug = config
	}
}

// WithLogger sets a custom logger for debug output
func WithLogger(logger Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithSimpleLogger enables debug logging with a simple console logger
func WithSimpleLogger() Option {
	return func(c *Client) {
		if c.debug == nil {
			c.debug = DefaultDebugConfig()
		}
		c.debug.Enabled = true
		c.logger = NewSimpleLogger()
	}
}

// ValidateConfiguration validates the client configuration and returns an
// error if invalid
func (c *Client) ValidateConfiguration() error {
	var errors []string

	errors = append(errors, c.validateAuthConfig()...)
	errors = append(errors, c.validateRetryConfig()...)
	errors = append(errors, c.validateCircuitBreakerConfig()...)
	errors = append(errors, c.validateRateLimiterConfig()...)
	errors = append(errors, c.validateHTTPClientConfig()...)
	errors = append(errors, c.validateDebugConfig()...)
	errors = append(errors, c.validateExtremeValues()...)

	if len(errors) > 0 {
		return &FetchError{
			Type:    ErrorTypeValidation,
			Message: "configuration validation failed",
			Cause:   fmt.Errorf("validation errors: %v", errors),
		}
	}

	return nil
}

func (c *Client) validateAuthConfig() []string {
	var errors []string

	if c.apiKey == "" {
		errors = append(errors, "api key must be set")
	}

	if c.baseURL == "" {
		errors = append(errors, "base URL must be set")
	} else if u, err := url.Parse(c.baseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errors = append(errors, "base URL must be an absolute URL")
	}

	return errors
}

func (c *Client) validateRetryConfig() []string {
	var errors []string

	if c.maxRetries < 1 {
		errors = append(errors, "maxRetries must be at least 1")
	}

	if c.backoff.Base <= 0 {
		errors = append(errors, "initialBackoff must be positive")
	}

	if c.backoff.Max < c.backoff.Base {
		errors = append(errors, "maxBackoff must be greater than or equal to initialBackoff")
	}

	return errors
}

func (c *Client) validateCircuitBreakerConfig() []string {
	var errors []string

	if c.circuitBreaker == nil {
		errors = append(errors, "circuit breaker cannot be nil")
		return errors
	}

	if c.circuitBreaker.config.FailureThreshold <= 0 {
		errors = append(errors, "circuitBreaker FailureThreshold must be positive")
	}
	if c.circuitBreaker.config.RecoveryTimeout <= 0 {
		errors = append(errors, "circuitBreaker RecoveryTimeout must be positive")
	}

	return errors
}

func (c *Client) validateRateLimiterConfig() []string {
	var errors []string

	if c.rateLimiter != nil {
		if c.rateLimiter.maxTokens <= 0 {
			errors = append(errors, "rateLimiter maxTokens must be positive")
		}
		if c.rateLimiter.refillRate <= 0 {
			errors = append(errors, "rateLimiter refillRate must be positive")
		}
	}

	return errors
}

func (c *Client) validateHTTPClientConfig() []string {
	var errors []string

	if c.httpClient == nil {
		errors = append(errors, "HTTP client cannot be nil")
	} else if c.httpClient.Timeout <= 0 {
		errors = append(errors, "timeout must be positive")
	}

	return errors
}

func (c *Client) validateDebugConfig() []string {
	var errors []string

	if c.debug != nil && c.debug.Enabled && c.logger == nil {
		errors = append(errors, "logger must be set when debug is enabled")
	}

	return errors
}

func (c *Client) validateExtremeValues() []string {
	var errors []string

	if c.maxRetries > 10 {
		errors = append(errors, "maxRetries > 10 may hammer the export API")
	}

	if c.backoff.Base > 10*time.Minute {
		errors = append(errors, "initialBackoff > 10m may cause very long delays")
	}
	if c.backoff.Max > time.Hour {
		errors = append(errors, "maxBackoff > 1h may cause extremely long delays")
	}

	if c.httpClient != nil && c.httpClient.Timeout > 10*time.Minute {
		errors = append(errors, "timeout > 10m may cause requests to hang for too long")
	}

	if c.rateLimiter != nil && c.rateLimiter.refillRate < time.Millisecond && c.rateLimiter.refillRate > 0 {
		errors = append(errors, "rateLimiter refillRate < 1ms may cause excessive CPU usage")
	}

	return errors
}
