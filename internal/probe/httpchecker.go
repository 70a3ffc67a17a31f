package probe

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/hamed0406/cloudpulse/internal/domain"
)

const maxBodyBytes = 1 << 20

type HTTPChecker struct {
	Client    *http.Client
	Threshold float64 // seconds
	Now       func() time.Time
}

func NewHTTPChecker(timeout time.Duration, threshold float64) *HTTPChecker {
	return &HTTPChecker{
		Client:    &http.Client{Timeout: timeout},
		Threshold: threshold,
		Now:       time.Now,
	}
}

// Check issues one GET. Transport failures are reported as OutcomeUnreachable,
// never as an unhealthy status.
func (h *HTTPChecker) Check(ctx context.Context, target string) CheckResult {
	now := h.Now
	if now == nil {
		now = time.Now
	}
	start := now()
	res := domain.ProbeResult{Timestamp: start.UTC(), URL: target}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return CheckResult{Outcome: domain.OutcomeUnreachable, Result: res, Err: err}
	}

	resp, err := h.Client.Do(req)
	if err != nil {
		res.Latency = domain.Seconds(now().Sub(start))
		return CheckResult{Outcome: domain.OutcomeUnreachable, Result: res, Err: err}
	}
	// latency covers the body download, like a plain GET would
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
	resp.Body.Close()
	res.Latency = domain.Seconds(now().Sub(start))

	code := resp.StatusCode
	res.StatusCode = &code
	res.Healthy = domain.Classify(code, res.Latency, h.Threshold)

	out := domain.OutcomeUnhealthy
	if res.Healthy {
		out = domain.OutcomeHealthy
	}
	return CheckResult{Outcome: out, Result: res}
}
