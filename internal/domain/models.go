package domain

import (
	"encoding/json"
	"time"
)

// Outcome is the classification of one probe.
type Outcome int

const (
	OutcomeUnknown Outcome = iota
	OutcomeHealthy
	OutcomeUnhealthy
	OutcomeUnreachable
)

func (o Outcome) String() string {
	switch o {
	case OutcomeHealthy:
		return "healthy"
	case OutcomeUnhealthy:
		return "unhealthy"
	case OutcomeUnreachable:
		return "unreachable"
	default:
		return "unknown"
	}
}

func (o Outcome) MarshalText() ([]byte, error) { return []byte(o.String()), nil }

func (o *Outcome) UnmarshalText(b []byte) error {
	switch string(b) {
	case "healthy":
		*o = OutcomeHealthy
	case "unhealthy":
		*o = OutcomeUnhealthy
	case "unreachable":
		*o = OutcomeUnreachable
	default:
		*o = OutcomeUnknown
	}
	return nil
}

type Kind string

const (
	KindUnhealthy Kind = "UNHEALTHY"
	KindRecovery  Kind = "RECOVERY"
	KindError     Kind = "ERROR"
	// KindOK is only used by the "no data" sentinel and is never persisted.
	KindOK Kind = "OK"
)

// ProbeResult is one measured GET against the monitored URL.
// StatusCode is nil when the target could not be reached.
type ProbeResult struct {
	Timestamp  time.Time `json:"timestamp"`
	URL        string    `json:"url"`
	StatusCode *int      `json:"status"`
	Latency    float64   `json:"latency"` // seconds
	Healthy    bool      `json:"healthy"`
}

type Details struct {
	Probe *ProbeResult `json:"probe,omitempty"`
	Error string       `json:"error,omitempty"`
}

type Incident struct {
	ID        string    `json:"id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Kind      Kind      `json:"type"`
	Details   Details   `json:"details"`
}

// OKIncident is returned in place of the latest incident when none exist.
func OKIncident() Incident {
	return Incident{Kind: KindOK}
}

type incidentJSON struct {
	ID        string     `json:"id,omitempty"`
	Timestamp *time.Time `json:"timestamp"`
	Kind      Kind       `json:"type"`
	Details   Details    `json:"details"`
}

// MarshalJSON writes a zero timestamp as null so the sentinel reads as "no data".
func (i Incident) MarshalJSON() ([]byte, error) {
	out := incidentJSON{ID: i.ID, Kind: i.Kind, Details: i.Details}
	if !i.Timestamp.IsZero() {
		ts := i.Timestamp
		out.Timestamp = &ts
	}
	return json.Marshal(out)
}

func (i *Incident) UnmarshalJSON(b []byte) error {
	var in incidentJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	*i = Incident{ID: in.ID, Kind: in.Kind, Details: in.Details}
	if in.Timestamp != nil {
		i.Timestamp = *in.Timestamp
	}
	return nil
}

// MonitorState is the process-wide view of the monitored endpoint.
// LastStatusCode is the last status code seen on a reachable probe.
type MonitorState struct {
	URL            string       `json:"url"`
	Checking       bool         `json:"checking"`
	LastStatusCode *int         `json:"last_status_code"`
	LastSnapshot   *ProbeResult `json:"last_snapshot"`
	LastOutcome    Outcome      `json:"last_outcome"`
	LastError      string       `json:"last_error,omitempty"`
	LastChecked    *time.Time   `json:"last_checked"`
}

// InitialState is the state before the first probe completes.
func InitialState(url string) MonitorState {
	return MonitorState{URL: url, Checking: true}
}
