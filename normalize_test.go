package mezport

import (
	"strings"
	"testing"
)

func TestNormalizeResponseEnvelope(t *testing.T) {
	body := []byte(`{
		"lines": [
			{"_line": "GET /checkout 500", "_host": "web-01", "level": "ERROR", "_ts": 1700000000123},
			{"_line": "payment retried", "level": "WARNING", "meta": {"attempt": 2, "tags": ["billing", "retry"]}}
		],
		"pagination_id": "b64token=="
	}`)

	result, fetchErr := normalizeResponse(body, 10)
	if fetchErr != nil {
		t.Fatalf("normalizeResponse() returned error: %v", fetchErr)
	}

	if len(result.Logs) != 2 {
		t.Fatalf("Expected 2 logs, got %d", len(result.Logs))
	}
	if result.PaginationID != "b64token==" {
		t.Errorf("Expected pagination_id preserved, got %q", result.PaginationID)
	}
	if result.HasMore {
		t.Error("Expected HasMore=false for 2 of 10 requested")
	}

	first := result.Logs[0]
	if first["_line"] != "GET /checkout 500" {
		t.Errorf("Expected _line preserved, got %v", first["_line"])
	}
	if first["_ts"] != float64(1700000000123) {
		t.Errorf("Expected numeric _ts as float64, got %T %v", first["_ts"], first["_ts"])
	}

	meta, ok := result.Logs[1]["meta"].(map[string]any)
	if !ok {
		t.Fatalf("Expected nested object as map, got %T", result.Logs[1]["meta"])
	}
	if meta["attempt"] != float64(2) {
		t.Errorf("Expected meta.attempt=2, got %v", meta["attempt"])
	}
	tags, ok := meta["tags"].([]any)
	if !ok || len(tags) != 2 || tags[0] != "billing" {
		t.Errorf("Expected nested array preserved, got %v", meta["tags"])
	}
}

func TestNormalizeResponseHasMoreHeuristic(t *testing.T) {
	body := []byte(`{"lines":[{"a":1},{"a":2},{"a":3}]}`)

	result, fetchErr := normalizeResponse(body, 3)
	if fetchErr != nil {
		t.Fatalf("normalizeResponse() returned error: %v", fetchErr)
	}
	if !result.HasMore {
		t.Error("Expected HasMore=true when returned count equals requested count")
	}

	result, fetchErr = normalizeResponse(body, 4)
	if fetchErr != nil {
		t.Fatalf("normalizeResponse() returned error: %v", fetchErr)
	}
	if result.HasMore {
		t.Error("Expected HasMore=false when fewer lines than requested")
	}
}

func TestNormalizeResponseMissingLines(t *testing.T) {
	for _, body := range []string{`{}`, `{"pagination_id":"tok"}`, `{"lines":null}`} {
		result, fetchErr := normalizeResponse([]byte(body), 10)
		if fetchErr != nil {
			t.Fatalf("normalizeResponse(%s) returned error: %v", body, fetchErr)
		}
		if len(result.Logs) != 0 {
			t.Errorf("Expected empty page for %s, got %d logs", body, len(result.Logs))
		}
		if result.HasMore {
			t.Errorf("Expected HasMore=false for %s", body)
		}
	}
}

func TestNormalizeResponseEmptyLines(t *testing.T) {
	result, fetchErr := normalizeResponse([]byte(`{"lines":[]}`), 10)
	if fetchErr != nil {
		t.Fatalf("normalizeResponse() returned error: %v", fetchErr)
	}
	if len(result.Logs) != 0 || result.HasMore || result.PaginationID != "" {
		t.Errorf("Expected empty result, got %+v", result)
	}
}

func TestNormalizeResponseMalformed(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"invalid json", `{"lines": [`},
		{"html error page", `<html><body>502 Bad Gateway</body></html>`},
		{"top-level array", `[{"_line":"a"}]`},
		{"top-level string", `"ok"`},
		{"lines not an array", `{"lines": "nope"}`},
		{"line not an object", `{"lines": [42]}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result, fetchErr := normalizeResponse([]byte(tc.body), 10)
			if fetchErr == nil {
				t.Fatalf("Expected error, got result %+v", result)
			}
			if fetchErr.Type != ErrorTypeMalformed {
				t.Errorf("Expected type %s, got %s", ErrorTypeMalformed, fetchErr.Type)
			}
			if fetchErr.BodyExcerpt == "" {
				t.Error("Expected a body excerpt for diagnosis")
			}
		})
	}
}

func TestNormalizeResponseExcerptTruncated(t *testing.T) {
	body := []byte("x" + strings.Repeat("y", 4096))

	_, fetchErr := normalizeResponse(body, 10)
	if fetchErr == nil {
		t.Fatal("Expected error for non-JSON body")
	}
	if len(fetchErr.BodyExcerpt) != excerptLimit {
		t.Errorf("Expected excerpt capped at %d bytes, got %d", excerptLimit, len(fetchErr.BodyExcerpt))
	}
}
