package main

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestStatusCommand_RendersIncidents(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/status" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"monitored_url":"https://example.test",
			"latency_threshold":1,
			"state":{"url":"https://example.test","checking":false,"last_status_code":503,
				"last_snapshot":{"timestamp":"2024-05-01T12:00:00Z","url":"https://example.test","status":503,"latency":0.25,"healthy":false},
				"last_outcome":"unhealthy","last_checked":"2024-05-01T12:00:00Z"},
			"latest_incident":{"timestamp":"2024-05-01T12:00:00Z","type":"UNHEALTHY","details":{"probe":{"timestamp":"2024-05-01T12:00:00Z","url":"https://example.test","status":503,"latency":0.25,"healthy":false}}},
			"incidents":[{"timestamp":"2024-05-01T12:00:00Z","type":"UNHEALTHY","details":{"probe":{"timestamp":"2024-05-01T12:00:00Z","url":"https://example.test","status":503,"latency":0.25,"healthy":false}}}]
		}`))
	}))
	defer srv.Close()

	out, err := run(t, "status", "--api", srv.URL)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	for _, want := range []string{"Health:    unhealthy", "Status:    503", "UNHEALTHY", "status=503"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestStatusCommand_Non200IsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	if _, err := run(t, "status", "--api", srv.URL); err == nil {
		t.Fatal("expected error on 429")
	}
}

func TestCheckCommand(t *testing.T) {
	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer healthy.Close()
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer broken.Close()

	out, err := run(t, "check", healthy.URL)
	if err != nil {
		t.Fatalf("healthy check: %v", err)
	}
	if !strings.Contains(out, "healthy: status=200") {
		t.Fatalf("unexpected output %q", out)
	}

	out, err = run(t, "check", broken.URL)
	if !errors.Is(err, errCheckFailed) {
		t.Fatalf("want errCheckFailed, got %v", err)
	}
	if !strings.Contains(out, "unhealthy: status=502") {
		t.Fatalf("unexpected output %q", out)
	}
}
