package mezport

import "time"

// Prefer values accepted by the export API.
const (
	PreferHead = "head"
	PreferTail = "tail"
)

// Count bounds enforced by the export API.
const (
	MinCount     = 1
	MaxCount     = 10000
	DefaultCount = 10
)

// DefaultWindow is the lookback applied when no "from" timestamp is given.
const DefaultWindow = 6 * time.Hour

// Params carries raw, caller-supplied request fields before validation.
// Zero values mean "absent"; ValidateParams fills in defaults. List fields
// (Apps, Hosts, Levels) are comma-separated, matching the export API's
// query string conventions.
type Params struct {
	Count         int
	Apps          string
	Hosts         string
	Levels        string
	Query         string
	From          string // UNIX seconds
	To            string // UNIX seconds
	Prefer        string // "head" or "tail"
	PaginationID  string
	CorrelationID string
}

// FetchRequest is a validated, normalized request. Construct it with
// ValidateParams; a hand-built FetchRequest bypasses validation.
type FetchRequest struct {
	Count         int
	Apps          []string
	Hosts         []string
	Levels        []string
	Query         string
	From          int64
	To            int64
	Prefer        string
	PaginationID  string
	CorrelationID string
}

// Record is a single log line as returned by the export API. The field
// schema is owned by the remote service and is not validated here.
type Record map[string]any

// FetchResult is one page of logs.
type FetchResult struct {
	// Logs holds the returned lines in server order.
	Logs []Record
	// PaginationID is the opaque continuation token for the next page,
	// empty when the server issued none.
	PaginationID string
	// HasMore is true iff the server returned exactly the requested count.
	// This is a heuristic, not a server-provided signal: it can be true
	// with no further data and false when the server truncated for other
	// reasons.
	HasMore bool
}

// Option configures a Client.
type Option func(*Client)
