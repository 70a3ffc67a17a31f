package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/hamed0406/cloudpulse/internal/domain"
	"github.com/hamed0406/cloudpulse/internal/probe"
)

// errCheckFailed makes the process exit non-zero without a usage dump.
var errCheckFailed = errors.New("check failed")

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "cloudpulse",
		Short:         "Query a CloudPulse server or probe a URL once",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newStatusCommand(), newCheckCommand())
	return root
}

type statusResponse struct {
	MonitoredURL     string              `json:"monitored_url"`
	LatencyThreshold float64             `json:"latency_threshold"`
	State            domain.MonitorState `json:"state"`
	LatestIncident   domain.Incident     `json:"latest_incident"`
	Incidents        []domain.Incident   `json:"incidents"`
}

func newStatusCommand() *cobra.Command {
	var api string
	var raw bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the monitored URL's current status",
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, strings.TrimRight(api, "/")+"/api/status", nil)
			if err != nil {
				return err
			}
			client := &http.Client{Timeout: 10 * time.Second}
			resp, err := client.Do(req)
			if err != nil {
				return fmt.Errorf("contact API: %w", err)
			}
			defer resp.Body.Close()
			body, err := io.ReadAll(resp.Body)
			if err != nil {
				return fmt.Errorf("read response: %w", err)
			}
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("API returned %s", resp.Status)
			}
			if raw {
				_, err := cmd.OutOrStdout().Write(body)
				return err
			}
			var st statusResponse
			if err := json.Unmarshal(body, &st); err != nil {
				return fmt.Errorf("decode status: %w", err)
			}
			renderStatus(cmd.OutOrStdout(), st)
			return nil
		},
	}
	cmd.Flags().StringVar(&api, "api", envOr("API_BASE", "http://127.0.0.1:5000"), "CloudPulse server base URL")
	cmd.Flags().BoolVar(&raw, "json", false, "Print the raw JSON response")
	return cmd
}

func renderStatus(w io.Writer, st statusResponse) {
	fmt.Fprintf(w, "URL:       %s\n", st.MonitoredURL)
	switch {
	case st.State.Checking:
		fmt.Fprintln(w, "Health:    checking")
	default:
		fmt.Fprintf(w, "Health:    %s\n", st.State.LastOutcome)
	}
	if snap := st.State.LastSnapshot; snap != nil {
		code := "n/a"
		if snap.StatusCode != nil {
			code = fmt.Sprint(*snap.StatusCode)
		}
		fmt.Fprintf(w, "Status:    %s\nLatency:   %.3fs (threshold %.3fs)\n", code, snap.Latency, st.LatencyThreshold)
	}
	if st.State.LastError != "" {
		fmt.Fprintf(w, "Error:     %s\n", st.State.LastError)
	}
	if st.State.LastChecked != nil {
		fmt.Fprintf(w, "Checked:   %s\n", st.State.LastChecked.Format(time.RFC3339))
	}
	if len(st.Incidents) == 0 {
		fmt.Fprintln(w, "Incidents: none")
		return
	}
	fmt.Fprintf(w, "Incidents (%d):\n", len(st.Incidents))
	for _, inc := range st.Incidents {
		fmt.Fprintf(w, "  %s  %-9s %s\n", inc.Timestamp.Format(time.RFC3339), inc.Kind, incidentDetail(inc.Details))
	}
}

func incidentDetail(d domain.Details) string {
	if d.Error != "" {
		return d.Error
	}
	if d.Probe != nil {
		return fmt.Sprintf("status=%d latency=%.3fs", domain.StatusCodeOf(d.Probe), d.Probe.Latency)
	}
	return ""
}

func newCheckCommand() *cobra.Command {
	var timeout time.Duration
	var threshold float64
	cmd := &cobra.Command{
		Use:   "check <url>",
		Short: "Probe a URL once and report its health",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := args[0]
			if !strings.Contains(target, "://") {
				target = "https://" + target
			}
			res := probe.NewHTTPChecker(timeout, threshold).Check(cmd.Context(), target)

			out := cmd.OutOrStdout()
			switch res.Outcome {
			case domain.OutcomeUnreachable:
				fmt.Fprintf(out, "%s unreachable after %.3fs: %v\n", target, res.Result.Latency, res.Err)
			default:
				fmt.Fprintf(out, "%s %s: status=%d latency=%.3fs\n", target, res.Outcome, domain.StatusCodeOf(&res.Result), res.Result.Latency)
			}
			if res.Outcome != domain.OutcomeHealthy {
				return errCheckFailed
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "Request timeout")
	cmd.Flags().Float64Var(&threshold, "threshold", 1.0, "Latency threshold in seconds")
	return cmd
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}
