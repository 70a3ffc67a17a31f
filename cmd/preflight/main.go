// cmd/preflight/main.go
package main

import (
	"fmt"
	"os"

	"go.uber.org/multierr"

	"github.com/hamed0406/cloudpulse/internal/config"
)

func main() {
	fail := func(msg string) {
		fmt.Fprintln(os.Stderr, "✖", msg)
	}
	warn := func(msg string) { fmt.Fprintln(os.Stderr, "⚠", msg) }
	ok := func(msg string) { fmt.Println("✔", msg) }

	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		fail(err.Error())
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		for _, e := range multierr.Errors(err) {
			fail(e.Error())
		}
		os.Exit(1)
	}

	ok("MONITOR_URL=" + cfg.MonitorURL)
	ok(fmt.Sprintf("CHECK_INTERVAL=%s LATENCY_THRESHOLD=%gs", cfg.CheckInterval, cfg.LatencyThreshold))
	ok("API_ADDR=" + cfg.Addr)

	for _, w := range warnings(cfg) {
		warn(w)
	}
	ok("preflight passed")
}

func warnings(cfg config.Config) []string {
	var out []string
	smtpSet := cfg.SMTPHost != "" || cfg.SMTPUser != "" || cfg.SMTPPass != "" || len(cfg.AlertTo) > 0
	switch {
	case cfg.SMTPEnabled():
	case smtpSet:
		out = append(out, "SMTP is partially configured (need SMTP_HOST, SMTP_USER, SMTP_PASS, ALERT_TO); mail alerts are disabled.")
	case cfg.SlackWebhook == "":
		out = append(out, "No SMTP or SLACK_WEBHOOK_URL configured; incidents will be recorded but nobody is alerted.")
	}
	if cfg.DatabaseURL == "" {
		out = append(out, "DATABASE_URL empty; incidents are kept in "+cfg.IncidentFile+".")
	}
	if len(cfg.AllowedOrigins) == 0 {
		out = append(out, "ALLOWED_ORIGINS empty; any origin may read the status API.")
	}
	return out
}
