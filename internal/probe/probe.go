package probe

import (
	"context"

	"github.com/hamed0406/cloudpulse/internal/domain"
)

// CheckResult is the typed outcome of a single probe.
//
// Result is always populated with the target URL, timestamp and latency.
// Result.StatusCode is nil and Err is set when Outcome is OutcomeUnreachable.
type CheckResult struct {
	Outcome domain.Outcome
	Result  domain.ProbeResult
	Err     error
}

// Checker performs a single check for a given target URL.
type Checker interface {
	Check(ctx context.Context, target string) CheckResult
}
