package domain

import (
	"math"
	"net/http"
	"time"
)

// Classify reports whether a reachable probe is healthy.
func Classify(statusCode int, latency, threshold float64) bool {
	return statusCode == http.StatusOK && latency <= threshold
}

// Seconds converts a measured duration to seconds rounded to the millisecond.
func Seconds(d time.Duration) float64 {
	if d < 0 {
		d = 0
	}
	return math.Round(d.Seconds()*1000) / 1000
}

// StatusCodeOf returns the status code of r, or 0 when r is nil or unreachable.
func StatusCodeOf(r *ProbeResult) int {
	if r == nil || r.StatusCode == nil {
		return 0
	}
	return *r.StatusCode
}
