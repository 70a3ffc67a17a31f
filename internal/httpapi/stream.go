package httpapi

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	streamWriteTimeout  = 5 * time.Second
	streamKeepaliveTick = 30 * time.Second
)

func newUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" || len(allowedOrigins) == 0 {
				return true
			}
			for _, o := range allowedOrigins {
				if o == "*" || strings.EqualFold(o, origin) {
					return true
				}
			}
			u, err := url.Parse(origin)
			if err != nil {
				return false
			}
			return strings.EqualFold(u.Host, r.Host)
		},
	}
}

// handleStream pushes the status payload on connect and after every commit.
func (s *Server) handleStream(allowedOrigins []string) http.HandlerFunc {
	upgrader := newUpgrader(allowedOrigins)
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		updates, unsubscribe := s.Tracker.Subscribe()
		defer unsubscribe()

		if err := writeStreamPayload(conn, s.snapshot(r)); err != nil {
			return
		}

		done := make(chan struct{})
		go func() {
			defer close(done)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		ticker := time.NewTicker(streamKeepaliveTick)
		defer ticker.Stop()

		for {
			select {
			case <-updates:
			case <-ticker.C:
			case <-done:
				return
			}
			if err := writeStreamPayload(conn, s.snapshot(r)); err != nil {
				s.Logger.Debug("stream_write_error", zap.Error(err))
				return
			}
		}
	}
}

func writeStreamPayload(conn *websocket.Conn, payload statusPayload) error {
	_ = conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
	return conn.WriteJSON(payload)
}
