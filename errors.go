package mezport

import (
	"errors"
	"fmt"
	"time"
)

// Error type tags carried by FetchError.
const (
	ErrorTypeRateLimited = "RateLimited"
	ErrorTypeCircuitOpen = "CircuitOpen"
	ErrorTypeClient      = "ClientError"
	ErrorTypeServer      = "ServerError"
	ErrorTypeTimeout     = "Timeout"
	ErrorTypeConnect     = "ConnectFailed"
	ErrorTypeMalformed   = "MalformedResponse"
	ErrorTypeValidation  = "InvalidParameters"
)

// Sentinel errors for common failure scenarios
var (
	// ErrCircuitOpen is returned when the circuit breaker rejects a fetch.
	ErrCircuitOpen = errors.New("mezport: circuit open")

	// ErrRateLimited is returned when a fetch is denied by rate limiting,
	// either the client-side token bucket or a 429 from the export API.
	ErrRateLimited = errors.New("mezport: rate limited")
)

// excerptLimit bounds how much response body is carried in errors.
const excerptLimit = 512

// FetchError is the typed failure returned by every fetch operation. The
// Type tag selects the variant; the remaining fields carry whatever context
// that variant has (status code, body excerpt, rate-limit hint, attempts)
// so the caller can decide whether to retry, narrow filters, or wait.
type FetchError struct {
	Type          string
	Message       string
	Detail        string
	Status        int
	BodyExcerpt   string
	RetryAfter    time.Duration
	Attempts      int
	MaxRetries    int
	CorrelationID string
	Timestamp     time.Time
	Cause         error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := fmt.Sprintf("%s: %s", e.Type, e.Message)
	if e.Detail != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Detail)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s (%v)", msg, e.Cause)
	}
	if e.Status > 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.Status)
	}
	if e.CorrelationID != "" {
		msg = fmt.Sprintf("[%s] %s", e.CorrelationID, msg)
	}
	if e.Attempts > 0 {
		msg = fmt.Sprintf("%s (attempt %d/%d)", msg, e.Attempts, e.MaxRetries)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *FetchError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Is matches either another FetchError with the same Type, or one of the
// package sentinel errors, so callers can write
// errors.Is(err, mezport.ErrCircuitOpen).
func (e *FetchError) Is(target error) bool {
	if e == nil {
		return false
	}
	switch target {
	case ErrCircuitOpen:
		return e.Type == ErrorTypeCircuitOpen
	case ErrRateLimited:
		return e.Type == ErrorTypeRateLimited
	}
	if targetErr, ok := target.(*FetchError); ok {
		return e.Type == targetErr.Type
	}
	return false
}

// IsRetryable reports whether a later retry of the whole fetch may succeed:
// rate limiting, server errors, timeouts, connection failures and an open
// circuit (after its recovery window) are transient. Client errors,
// invalid parameters and malformed responses are not.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var fetchErr *FetchError
	if errors.As(err, &fetchErr) {
		switch fetchErr.Type {
		case ErrorTypeRateLimited, ErrorTypeServer, ErrorTypeTimeout, ErrorTypeConnect, ErrorTypeCircuitOpen:
			return true
		default:
			return false
		}
	}

	return errors.Is(err, ErrCircuitOpen) || errors.Is(err, ErrRateLimited)
}

// DebugInfo renders a multi-line string with diagnostic context.
func (e *FetchError) DebugInfo() string {
	if e == nil {
		return "Error: <nil>"
	}
	info := fmt.Sprintf("Error Type: %s\n", e.Type)
	info += fmt.Sprintf("Message: %s\n", e.Message)
	if e.Detail != "" {
		info += fmt.Sprintf("Detail: %s\n", e.Detail)
	}
	if e.CorrelationID != "" {
		info += fmt.Sprintf("Correlation ID: %s\n", e.CorrelationID)
	}
	if e.Status > 0 {
		info += fmt.Sprintf("Status Code: %d\n", e.Status)
	}
	if e.BodyExcerpt != "" {
		info += fmt.Sprintf("Body Excerpt: %s\n", e.BodyExcerpt)
	}
	if e.RetryAfter > 0 {
		info += fmt.Sprintf("Retry After: %v\n", e.RetryAfter)
	}
	if e.Attempts > 0 {
		info += fmt.Sprintf("Attempt: %d/%d\n", e.Attempts, e.MaxRetries)
	}
	if !e.Timestamp.IsZero() {
		info += fmt.Sprintf("Timestamp: %s\n", e.Timestamp.Format(time.RFC3339))
	}
	if e.Cause != nil {
		info += fmt.Sprintf("Cause: %v\n", e.Cause)
	}
	return info
}

// excerpt truncates a response body for inclusion in errors.
func excerpt(body []byte) string {
	if len(body) > excerptLimit {
		body = body[:excerptLimit]
	}
	return string(body)
}
