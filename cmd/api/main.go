package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/cloudpulse/internal/config"
	"github.com/hamed0406/cloudpulse/internal/httpapi"
	"github.com/hamed0406/cloudpulse/internal/logging"
	"github.com/hamed0406/cloudpulse/internal/monitor"
	"github.com/hamed0406/cloudpulse/internal/notify"
	"github.com/hamed0406/cloudpulse/internal/probe"
	"github.com/hamed0406/cloudpulse/internal/repo"
	"github.com/hamed0406/cloudpulse/internal/repo/file"
	"github.com/hamed0406/cloudpulse/internal/repo/memory"
	"github.com/hamed0406/cloudpulse/internal/repo/postgres"
	"github.com/hamed0406/cloudpulse/internal/status"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		log.Fatal(err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}
	logger, err := logging.NewLogger(cfg.LogDir, cfg.LogLevel)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore := openStore(ctx, cfg, logger)
	defer closeStore()

	notifier := notify.Multi{
		&notify.SMTP{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			User:     cfg.SMTPUser,
			Password: cfg.SMTPPass,
			From:     cfg.AlertFrom,
			To:       cfg.AlertTo,
		},
		notify.NewSlack(cfg.SlackWebhook),
	}
	if !cfg.SMTPEnabled() && cfg.SlackWebhook == "" {
		logger.Warn("notify_disabled", zap.String("reason", "no SMTP or Slack configuration"))
	}

	tracker := status.NewTracker(cfg.MonitorURL, store)
	mon := monitor.New(
		logger,
		probe.NewHTTPChecker(cfg.HTTPTimeout, cfg.LatencyThreshold),
		tracker,
		notifier,
		cfg.MonitorURL,
		cfg.CheckInterval,
		cfg.HTTPTimeout,
	)
	mon.NotifyOnRecovery = cfg.NotifyOnRecovery
	if cfg.DNSDiagnose {
		mon.DNS = probe.NewDNSDiagnoser()
	}

	api := httpapi.NewServer(logger, tracker, cfg.LatencyThreshold, cfg.StatusLimit, cfg.IncidentCap)
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Router(cfg.AllowedOrigins, cfg.PublicRPM, cfg.PublicBurst),
		ReadHeaderTimeout: 10 * time.Second,
	}

	mon.Start(ctx)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("api_listen", zap.String("addr", cfg.Addr), zap.String("monitor_url", cfg.MonitorURL))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		logger.Error("api_listen_failed", zap.Error(err))
		stop()
	}

	mon.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("api_shutdown", zap.Error(err))
	}
	logger.Info("api_stopped")
}

// openStore prefers postgres, then the JSON file, and falls back to memory
// so the process keeps serving even when persistence is unavailable.
func openStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (repo.IncidentStore, func()) {
	if cfg.DatabaseURL != "" {
		pg, err := postgres.New(ctx, cfg.DatabaseURL, cfg.IncidentCap, logger)
		if err == nil {
			err = pg.EnsureSchema(ctx)
			if err == nil {
				logger.Info("store_postgres")
				return pg, pg.Close
			}
			pg.Close()
		}
		logger.Warn("store_postgres_unavailable", zap.Error(err))
	}

	fileStore, err := file.Open(cfg.IncidentFile, cfg.IncidentCap)
	if err == nil {
		logger.Info("store_file", zap.String("path", fileStore.Path()))
		return fileStore, func() {}
	}
	logger.Warn("store_memory_fallback", zap.String("path", cfg.IncidentFile), zap.Error(err))
	return memory.New(cfg.IncidentCap), func() {}
}
