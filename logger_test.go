package mezport

import (
	"bytes"
	"context"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// capturingLogger collects log calls for assertions.
type capturingLogger struct {
	mu      sync.Mutex
	entries []string
}

func (l *capturingLogger) record(level, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, level+" "+msg)
}

func (l *capturingLogger) Debug(msg string, keysAndValues ...any) { l.record("DEBUG", msg) }
func (l *capturingLogger) Info(msg string, keysAndValues ...any)  { l.record("INFO", msg) }
func (l *capturingLogger) Warn(msg string, keysAndValues ...any)  { l.record("WARN", msg) }
func (l *capturingLogger) Error(msg string, keysAndValues ...any) { l.record("ERROR", msg) }

func (l *capturingLogger) contains(fragment string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.entries {
		if strings.Contains(e, fragment) {
			return true
		}
	}
	return false
}

func TestSimpleLoggerFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := &SimpleLogger{out: log.New(&buf, "", 0)}

	logger.Info("fetch completed", "logs", 25, "hasMore", true)

	got := strings.TrimSpace(buf.String())
	want := "INFO fetch completed logs=25 hasMore=true"
	if got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
}

func TestSimpleLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := &SimpleLogger{out: log.New(&buf, "", 0)}

	logger.Debug("d")
	logger.Info("i")
	logger.Warn("w")
	logger.Error("e")

	out := buf.String()
	for _, want := range []string{"DEBUG d", "INFO i", "WARN w", "ERROR e"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in output, got %q", want, out)
		}
	}
}

func TestSimpleLoggerOddKeyValues(t *testing.T) {
	var buf bytes.Buffer
	logger := &SimpleLogger{out: log.New(&buf, "", 0)}

	// A dangling key must not panic or print a half pair.
	logger.Info("msg", "key")

	got := strings.TrimSpace(buf.String())
	if got != "INFO msg" {
		t.Errorf("Expected dangling key dropped, got %q", got)
	}
}

func TestDefaultDebugConfig(t *testing.T) {
	cfg := DefaultDebugConfig()

	if cfg.Enabled {
		t.Error("Expected logging disabled by default")
	}
	if !cfg.LogRequests || !cfg.LogRetries || !cfg.LogCircuit || !cfg.LogRateLimit {
		t.Errorf("Expected all event classes enabled, got %+v", cfg)
	}
}

func TestClientDebugLogging(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(twoLinesBody)); err != nil {
			t.Fatalf("Failed to write response: %v", err)
		}
	}))
	defer server.Close()

	logger := &capturingLogger{}
	client := newTestClient(server.URL, WithDebug(), WithLogger(logger))
	client.jitter = jitterWindows{}

	if _, err := client.FetchLogs(context.Background(), Params{Count: 5}); err != nil {
		t.Fatalf("FetchLogs() returned error: %v", err)
	}

	for _, want := range []string{"Starting fetch", "Attempt failed", "Scheduling retry", "Fetch completed"} {
		if !logger.contains(want) {
			t.Errorf("Expected log entry containing %q, got %v", want, logger.entries)
		}
	}
}

func TestClientSilentWithoutDebug(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(twoLinesBody)); err != nil {
			t.Fatalf("Failed to write response: %v", err)
		}
	}))
	defer server.Close()

	logger := &capturingLogger{}
	client := newTestClient(server.URL, WithLogger(logger))

	if _, err := client.FetchLogs(context.Background(), Params{Count: 5}); err != nil {
		t.Fatalf("FetchLogs() returned error: %v", err)
	}

	if len(logger.entries) != 0 {
		t.Errorf("Expected no log output while debug disabled, got %v", logger.entries)
	}
}
