package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hamed0406/cloudpulse/internal/domain"
	"github.com/hamed0406/cloudpulse/internal/notify"
	"github.com/hamed0406/cloudpulse/internal/probe"
	"github.com/hamed0406/cloudpulse/internal/status"
)

const notifyTimeout = 30 * time.Second

// Diagnoser explains why a target was unreachable.
type Diagnoser interface {
	Diagnose(ctx context.Context, target string) probe.DNSStatus
}

// Monitor polls one URL, records incidents on transitions and failures, and
// publishes the latest state through the Tracker.
type Monitor struct {
	Logger   *zap.Logger
	Checker  probe.Checker
	Tracker  *status.Tracker
	Notifier notify.Notifier
	URL      string
	Interval time.Duration
	Timeout  time.Duration

	// NotifyOnRecovery also alerts on RECOVERY incidents.
	NotifyOnRecovery bool
	// DNS, when set, appends a DNS classification to ERROR incidents.
	DNS   Diagnoser
	Clock Clock
	NewID func() string

	lastStatus *int // last status code seen on a reachable probe
	done       chan struct{}
}

// Cycle is what one poll produced.
type Cycle struct {
	Check      probe.CheckResult
	Incidents  []domain.Incident
	Notified   int
	PersistErr error
}

func New(
	logger *zap.Logger,
	checker probe.Checker,
	tracker *status.Tracker,
	notifier notify.Notifier,
	url string,
	interval time.Duration,
	timeout time.Duration,
) *Monitor {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Monitor{
		Logger:   logger,
		Checker:  checker,
		Tracker:  tracker,
		Notifier: notifier,
		URL:      url,
		Interval: interval,
		Timeout:  timeout,
		Clock:    realClock{},
		NewID:    uuid.NewString,
	}
}

// Start runs the loop on its own goroutine until ctx is cancelled.
func (m *Monitor) Start(ctx context.Context) {
	m.done = make(chan struct{})
	go func() {
		defer close(m.done)
		m.Run(ctx)
	}()
}

// Wait blocks until a loop started with Start has returned.
func (m *Monitor) Wait() {
	if m.done != nil {
		<-m.done
	}
}

// Run does an immediate cycle, then one per Interval. It returns only when
// ctx is cancelled; probe and persistence failures never stop it.
func (m *Monitor) Run(ctx context.Context) {
	m.Logger.Info("monitor_started",
		zap.String("url", m.URL),
		zap.Duration("interval", m.Interval),
	)
	for {
		if ctx.Err() != nil {
			break
		}
		m.safeRunOnce(ctx)
		if !m.sleep(ctx) {
			break
		}
	}
	m.Logger.Info("monitor_stopped")
}

func (m *Monitor) safeRunOnce(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			m.Logger.Error("monitor_panic", zap.Any("panic", r))
		}
	}()
	m.RunOnce(ctx)
}

// sleep waits for the next cycle and reports false once ctx is done.
func (m *Monitor) sleep(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	case <-m.clock().After(m.Interval):
		return true
	}
}

// RunOnce probes, records and notifies exactly once.
//
// Only the probe and the commit are detached from ctx cancellation, so an
// in-flight probe finishes or times out on its own. DNS diagnosis and
// notifications stop as soon as ctx is done.
func (m *Monitor) RunOnce(ctx context.Context) Cycle {
	detached := context.WithoutCancel(ctx)
	ts := m.clock().Now().UTC()

	pctx, cancel := context.WithTimeout(detached, m.Timeout)
	out := m.Checker.Check(pctx, m.URL)
	cancel()
	res := out.Result

	cycle := Cycle{Check: out}
	state := domain.MonitorState{
		URL:          m.URL,
		LastSnapshot: &res,
		LastOutcome:  out.Outcome,
		LastChecked:  &ts,
	}

	switch out.Outcome {
	case domain.OutcomeUnreachable:
		desc := m.describe(ctx, out.Err)
		state.LastError = desc
		cycle.Incidents = append(cycle.Incidents, m.incident(ts, domain.KindError, domain.Details{Error: desc}))
		m.Logger.Warn("monitor_error",
			zap.String("url", m.URL),
			zap.String("error", desc),
		)
	case domain.OutcomeUnhealthy:
		cycle.Incidents = append(cycle.Incidents, m.incident(ts, domain.KindUnhealthy, domain.Details{Probe: copyProbe(res)}))
		m.Logger.Warn("monitor_alert",
			zap.String("url", m.URL),
			zap.Int("status", domain.StatusCodeOf(&res)),
			zap.Float64("latency_s", res.Latency),
		)
	default:
		m.Logger.Debug("monitor_checked",
			zap.String("url", m.URL),
			zap.Int("status", domain.StatusCodeOf(&res)),
			zap.Float64("latency_s", res.Latency),
		)
	}

	// Recovery is keyed on the status code moving to 200, not on Healthy.
	if res.StatusCode != nil {
		code := *res.StatusCode
		if m.lastStatus != nil && *m.lastStatus != code && code == 200 {
			cycle.Incidents = append(cycle.Incidents, m.incident(ts, domain.KindRecovery, domain.Details{Probe: copyProbe(res)}))
			m.Logger.Info("monitor_recovery",
				zap.String("url", m.URL),
				zap.Int("previous_status", *m.lastStatus),
				zap.Float64("latency_s", res.Latency),
			)
		}
		m.lastStatus = &code
	}
	if m.lastStatus != nil {
		code := *m.lastStatus
		state.LastStatusCode = &code
	}

	if err := m.Tracker.Commit(detached, state, cycle.Incidents...); err != nil {
		cycle.PersistErr = err
		m.Logger.Warn("monitor_persist_error",
			zap.String("url", m.URL),
			zap.Int("incidents", len(cycle.Incidents)),
			zap.Error(err),
		)
	}

	for _, inc := range cycle.Incidents {
		if inc.Kind == domain.KindRecovery && !m.NotifyOnRecovery {
			continue
		}
		subject, body := m.message(inc)
		nctx, cancel := context.WithTimeout(ctx, notifyTimeout)
		if notify.Dispatch(nctx, m.Logger, m.Notifier, subject, body) {
			cycle.Notified++
		}
		cancel()
	}
	return cycle
}

func (m *Monitor) incident(ts time.Time, kind domain.Kind, d domain.Details) domain.Incident {
	id := ""
	if m.NewID != nil {
		id = m.NewID()
	}
	return domain.Incident{ID: id, Timestamp: ts, Kind: kind, Details: d}
}

func (m *Monitor) describe(ctx context.Context, err error) string {
	desc := "unreachable"
	if err != nil {
		desc = err.Error()
	}
	if m.DNS != nil {
		if d := m.DNS.Diagnose(ctx, m.URL); d.Class != "" {
			desc = fmt.Sprintf("%s dns=%s", desc, d.Class)
		}
	}
	return desc
}

func (m *Monitor) message(inc domain.Incident) (subject, body string) {
	at := inc.Timestamp.Format(time.RFC3339)
	switch inc.Kind {
	case domain.KindError:
		subject = fmt.Sprintf("[CloudPulse] ERROR: %s unreachable", m.URL)
		body = fmt.Sprintf("Time: %s\nError: %s\nURL: %s", at, inc.Details.Error, m.URL)
	case domain.KindRecovery:
		subject = fmt.Sprintf("[CloudPulse] RECOVERY: %s is back (200)", m.URL)
		latency := 0.0
		if inc.Details.Probe != nil {
			latency = inc.Details.Probe.Latency
		}
		body = fmt.Sprintf("Time: %s\nLatency: %.3fs\nURL: %s", at, latency, m.URL)
	default:
		code := domain.StatusCodeOf(inc.Details.Probe)
		latency := 0.0
		if inc.Details.Probe != nil {
			latency = inc.Details.Probe.Latency
		}
		subject = fmt.Sprintf("[CloudPulse] ALERT: %s unhealthy (%d)", m.URL, code)
		body = fmt.Sprintf("Time: %s\nStatus: %d\nLatency: %.3fs\nURL: %s", at, code, latency, m.URL)
	}
	return subject, body
}

func copyProbe(r domain.ProbeResult) *domain.ProbeResult {
	if r.StatusCode != nil {
		code := *r.StatusCode
		r.StatusCode = &code
	}
	return &r
}

func (m *Monitor) clock() Clock {
	if m.Clock == nil {
		return realClock{}
	}
	return m.Clock
}
