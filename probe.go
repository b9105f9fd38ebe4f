package mezport

import "context"

// ConnectionStatus reports the outcome of a connectivity probe.
type ConnectionStatus struct {
	OK            bool
	Message       string
	LogsAvailable bool
	Breaker       BreakerSnapshot
}

// CheckConnection fetches a single log line to verify the export API is
// reachable with the configured credentials. It goes through the full
// fetch pipeline, so a probe also exercises (and is gated by) the shared
// circuit breaker.
func (c *Client) CheckConnection(ctx context.Context) ConnectionStatus {
	result, err := c.FetchLogs(ctx, Params{Count: 1})
	if err != nil {
		return ConnectionStatus{
			OK:      false,
			Message: err.Error(),
			Breaker: c.BreakerSnapshot(),
		}
	}

	return ConnectionStatus{
		OK:            true,
		Message:       "connected to export API",
		LogsAvailable: len(result.Logs) > 0,
		Breaker:       c.BreakerSnapshot(),
	}
}
