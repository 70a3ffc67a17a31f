package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/hamed0406/cloudpulse/internal/domain"
	apimw "github.com/hamed0406/cloudpulse/internal/httpapi/middleware"
	"github.com/hamed0406/cloudpulse/internal/repo"
	"github.com/hamed0406/cloudpulse/internal/status"
)

// Server is the read-only query surface. Handlers only read state already
// computed by the monitor loop; none of them touch the network.
type Server struct {
	Logger      *zap.Logger
	Tracker     *status.Tracker
	Threshold   float64
	StatusLimit int
	MaxLimit    int
}

func NewServer(l *zap.Logger, tracker *status.Tracker, threshold float64, statusLimit, maxLimit int) *Server {
	if statusLimit <= 0 {
		statusLimit = 20
	}
	if maxLimit <= 0 {
		maxLimit = repo.DefaultCap
	}
	return &Server{Logger: l, Tracker: tracker, Threshold: threshold, StatusLimit: statusLimit, MaxLimit: maxLimit}
}

// Router wires routes. An empty allowedOrigins list allows every origin;
// rpm <= 0 disables rate limiting.
func (s *Server) Router(allowedOrigins []string, rpm, burst int) http.Handler {
	r := chi.NewRouter()
	if len(allowedOrigins) == 0 {
		r.Use(cors.AllowAll().Handler)
	} else {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: allowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		}))
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Get("/", s.handleDashboard)

	r.Group(func(r chi.Router) {
		r.Use(apimw.RateLimit(rpm, burst))
		r.Get("/api/status", s.handleStatus)
		r.Get("/status", s.handleStatus)
		r.Get("/api/incidents", s.handleIncidents)
	})
	r.Get("/api/status/stream", s.handleStream(allowedOrigins))

	return r
}

type statusPayload struct {
	MonitoredURL     string              `json:"monitored_url"`
	LatencyThreshold float64             `json:"latency_threshold"`
	State            domain.MonitorState `json:"state"`
	LatestIncident   domain.Incident     `json:"latest_incident"`
	Incidents        []domain.Incident   `json:"incidents"`
}

// snapshot never fails: a store read error is logged and the state is
// served with an empty incident list.
func (s *Server) snapshot(r *http.Request) statusPayload {
	v, err := s.Tracker.View(r.Context(), s.StatusLimit)
	if err != nil {
		s.Logger.Warn("status_read_error", zap.Error(err))
	}
	return statusPayload{
		MonitoredURL:     v.State.URL,
		LatencyThreshold: s.Threshold,
		State:            v.State,
		LatestIncident:   v.Latest,
		Incidents:        v.Incidents,
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.snapshot(r))
}

func (s *Server) handleIncidents(w http.ResponseWriter, r *http.Request) {
	limit := s.StatusLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}
	if limit > s.MaxLimit {
		limit = s.MaxLimit
	}

	v, err := s.Tracker.View(r.Context(), limit)
	if err != nil {
		s.Logger.Warn("incidents_read_error", zap.Error(err))
	}
	writeJSON(w, http.StatusOK, v.Incidents)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
