package probe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hamed0406/cloudpulse/internal/domain"
)

func TestHTTPChecker_StatusOK(t *testing.T) {
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("want GET, got %s", r.Method)
		}
		w.WriteHeader(200)
		w.Write([]byte("ok"))
	}))
	defer s.Close()

	chk := NewHTTPChecker(2*time.Second, 1.0)
	out := chk.Check(context.Background(), s.URL)
	if out.Outcome != domain.OutcomeHealthy || !out.Result.Healthy {
		t.Fatalf("want healthy, got %+v", out)
	}
	if out.Result.StatusCode == nil || *out.Result.StatusCode != 200 {
		t.Fatalf("want status 200, got %v", out.Result.StatusCode)
	}
	if out.Err != nil {
		t.Fatalf("unexpected error: %v", out.Err)
	}
	if out.Result.Latency < 0 {
		t.Fatalf("latency should be >= 0, got %f", out.Result.Latency)
	}
	if out.Result.URL != s.URL || out.Result.Timestamp.IsZero() {
		t.Fatalf("url/timestamp not set: %+v", out.Result)
	}
}

func TestHTTPChecker_Status500(t *testing.T) {
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", 500)
	}))
	defer s.Close()

	chk := NewHTTPChecker(2*time.Second, 1.0)
	out := chk.Check(context.Background(), s.URL)
	if out.Outcome != domain.OutcomeUnhealthy || out.Result.Healthy {
		t.Fatalf("want unhealthy, got %+v", out)
	}
	if out.Result.StatusCode == nil || *out.Result.StatusCode != 500 {
		t.Fatalf("want status 500, got %v", out.Result.StatusCode)
	}
	if out.Err != nil {
		t.Fatalf("reachable failures carry no error, got %v", out.Err)
	}
}

func TestHTTPChecker_NonOKSuccessIsUnhealthy(t *testing.T) {
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer s.Close()

	out := NewHTTPChecker(2*time.Second, 1.0).Check(context.Background(), s.URL)
	if out.Outcome != domain.OutcomeUnhealthy {
		t.Fatalf("only 200 counts as healthy, got %v", out.Outcome)
	}
}

func TestHTTPChecker_SlowResponseIsUnhealthy(t *testing.T) {
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(200)
	}))
	defer s.Close()

	// fake clock advancing 2s between start and end
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	calls := 0
	chk := NewHTTPChecker(2*time.Second, 1.0)
	chk.Now = func() time.Time {
		calls++
		if calls == 1 {
			return base
		}
		return base.Add(2 * time.Second)
	}

	out := chk.Check(context.Background(), s.URL)
	if out.Outcome != domain.OutcomeUnhealthy {
		t.Fatalf("want unhealthy by latency, got %+v", out)
	}
	if out.Result.Latency != 2 {
		t.Fatalf("want latency 2s, got %v", out.Result.Latency)
	}
	if !out.Result.Timestamp.Equal(base) {
		t.Fatalf("timestamp should be probe start, got %v", out.Result.Timestamp)
	}
}

func TestHTTPChecker_TimeoutIsUnreachable(t *testing.T) {
	// Server sleeps longer than client timeout
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(200)
	}))
	defer s.Close()

	chk := NewHTTPChecker(50*time.Millisecond, 1.0)
	out := chk.Check(context.Background(), s.URL)
	if out.Outcome != domain.OutcomeUnreachable {
		t.Fatalf("want unreachable due to timeout, got %+v", out)
	}
	if out.Result.StatusCode != nil {
		t.Fatalf("want no status on transport error, got %d", *out.Result.StatusCode)
	}
	if out.Err == nil || out.Err.Error() == "" {
		t.Fatalf("want non-empty error")
	}
}

func TestHTTPChecker_InvalidURLIsUnreachable(t *testing.T) {
	out := NewHTTPChecker(time.Second, 1.0).Check(context.Background(), "http://[::1")
	if out.Outcome != domain.OutcomeUnreachable || out.Err == nil {
		t.Fatalf("want unreachable with error, got %+v", out)
	}
}
