package mezport

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// validLevels is the fixed level set accepted by the export API.
var validLevels = map[string]struct{}{
	"DEBUG":     {},
	"INFO":      {},
	"NOTICE":    {},
	"WARNING":   {},
	"ERROR":     {},
	"CRITICAL":  {},
	"ALERT":     {},
	"EMERGENCY": {},
}

// identifierPattern constrains app and host names.
var identifierPattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// maxTimestampFuture bounds how far in the future a timestamp may lie.
const maxTimestampFuture = 10 * 365 * 24 * time.Hour

// ValidateParams normalizes raw request parameters into a FetchRequest or
// fails with an InvalidParameters error. It performs no network activity.
// A "from" later than "to" is accepted as-is: the export API tolerates it
// and simply returns nothing.
func ValidateParams(p Params) (FetchRequest, error) {
	return validateParamsAt(p, time.Now())
}

// validateParamsAt is the clock-injected form used by tests.
func validateParamsAt(p Params, now time.Time) (FetchRequest, error) {
	count := p.Count
	if count == 0 {
		count = DefaultCount
	}
	if count < MinCount || count > MaxCount {
		return FetchRequest{}, invalidParams(fmt.Sprintf("count must be between %d and %d, got %d", MinCount, MaxCount, p.Count))
	}

	prefer := p.Prefer
	if prefer == "" {
		prefer = PreferTail
	}
	if prefer != PreferHead && prefer != PreferTail {
		return FetchRequest{}, invalidParams(fmt.Sprintf("prefer must be %q or %q, got %q", PreferHead, PreferTail, p.Prefer))
	}

	apps, err := splitIdentifierList("apps", p.Apps)
	if err != nil {
		return FetchRequest{}, err
	}
	hosts, err := splitIdentifierList("hosts", p.Hosts)
	if err != nil {
		return FetchRequest{}, err
	}
	levels, err := splitLevelList(p.Levels)
	if err != nil {
		return FetchRequest{}, err
	}

	from, ok, err := parseTimestamp("from_ts", p.From, now)
	if err != nil {
		return FetchRequest{}, err
	}
	if !ok {
		from = now.Add(-DefaultWindow).Unix()
	}
	to, ok, err := parseTimestamp("to_ts", p.To, now)
	if err != nil {
		return FetchRequest{}, err
	}
	if !ok {
		to = now.Unix()
	}

	correlationID := p.CorrelationID
	if correlationID == "" {
		correlationID = uuid.NewString()
	}

	return FetchRequest{
		Count:         count,
		Apps:          apps,
		Hosts:         hosts,
		Levels:        levels,
		Query:         p.Query,
		From:          from,
		To:            to,
		Prefer:        prefer,
		PaginationID:  p.PaginationID,
		CorrelationID: correlationID,
	}, nil
}

// splitIdentifierList splits a comma-separated list, trims whitespace and
// drops empty tokens. Order is preserved and duplicates are kept. An input
// that is non-empty but yields no tokens, or any token outside the
// identifier alphabet, is rejected.
func splitIdentifierList(field, raw string) ([]string, error) {
	if raw == "" {
		return nil, nil
	}
	var out []string
	for _, token := range strings.Split(raw, ",") {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		if !identifierPattern.MatchString(token) {
			return nil, invalidParams(fmt.Sprintf("%s contains invalid identifier %q", field, token))
		}
		out = append(out, token)
	}
	if len(out) == 0 {
		return nil, invalidParams(fmt.Sprintf("%s must contain at least one identifier", field))
	}
	return out, nil
}

// splitLevelList splits and upper-cases log levels, reporting every token
// outside the fixed level set.
func splitLevelList(raw string) ([]string, error) {
	if raw == "" {
		return nil, nil
	}
	var out []string
	var unknown []string
	for _, token := range strings.Split(raw, ",") {
		token = strings.ToUpper(strings.TrimSpace(token))
		if token == "" {
			continue
		}
		if _, ok := validLevels[token]; !ok {
			unknown = append(unknown, token)
			continue
		}
		out = append(out, token)
	}
	if len(unknown) > 0 {
		return nil, invalidParams(fmt.Sprintf("unknown levels: %s", strings.Join(unknown, ", ")))
	}
	if len(out) == 0 {
		return nil, invalidParams("levels must contain at least one level")
	}
	return out, nil
}

// parseTimestamp parses an optional UNIX-seconds value. The second return
// reports whether a value was present.
func parseTimestamp(field, raw string, now time.Time) (int64, bool, error) {
	if raw == "" {
		return 0, false, nil
	}
	ts, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, false, invalidParams(fmt.Sprintf("%s must be an integer UNIX timestamp, got %q", field, raw))
	}
	if ts < 0 {
		return 0, false, invalidParams(fmt.Sprintf("%s must be non-negative, got %d", field, ts))
	}
	if ts > now.Add(maxTimestampFuture).Unix() {
		return 0, false, invalidParams(fmt.Sprintf("%s is more than 10 years in the future: %d", field, ts))
	}
	return ts, true, nil
}

func invalidParams(detail string) *FetchError {
	return &FetchError{
		Type:      ErrorTypeValidation,
		Message:   "invalid request parameters",
		Detail:    detail,
		Timestamp: time.Now(),
	}
}
