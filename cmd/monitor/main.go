// Command monitor watches the presentation backend and raises notifications
// when it stays unreachable.
//
// It runs the connectivity monitor, fans connectivity events out to the
// configured Discord and Slack webhooks, and serves its own health and
// Prometheus endpoints until SIGINT or SIGTERM.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"pptgen/internal/config"
	"pptgen/internal/connectivity"
	"pptgen/internal/infra/healthserver"
	"pptgen/internal/infra/notifier"
	"pptgen/internal/observability/logging"
	pkgconfig "pptgen/internal/pkg/config"
)

func main() {
	logger := logging.NewLogger()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger); err != nil {
		logger.Error("monitor exited with error", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("monitor stopped")
}

// run wires the daemon and blocks until ctx is cancelled or a server fails.
func run(ctx context.Context, logger *slog.Logger) error {
	reg := newRegistry()

	cfg, err := config.Load(logger, pkgconfig.NewConfigMetrics("pptgen", reg))
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	mc := cfg.Monitor
	logger.Info("monitor configuration loaded",
		slog.String("health_url", mc.Connectivity.HealthURL),
		slog.Duration("interval", mc.Connectivity.Interval),
		slog.Duration("probe_timeout", mc.Connectivity.ProbeTimeout),
		slog.Duration("max_offline_time", mc.Connectivity.MaxOfflineTime),
		slog.Int("health_port", mc.HealthPort),
		slog.Int("metrics_port", mc.MetricsPort))

	monitor, err := connectivity.New(mc.Connectivity,
		connectivity.WithLogger(logger),
		connectivity.WithMetrics(connectivity.NewMetrics(reg)),
		connectivity.WithPresence(connectivity.NewInterfacePresence(0)),
	)
	if err != nil {
		return fmt.Errorf("create connectivity monitor: %w", err)
	}

	dispatcher := notifier.NewDispatcher(buildNotifiers(mc, logger), mc.NotifyTimeout, logger)
	defer dispatcher.Close()
	unsubscribe := monitor.Subscribe(dispatcher.Handle)
	defer unsubscribe()
	logger.Info("notification dispatcher initialized", slog.Int("notifiers", dispatcher.Len()))

	var healthOpts []healthserver.Option
	sharedPort := mc.MetricsPort == mc.HealthPort
	if sharedPort {
		healthOpts = append(healthOpts, healthserver.WithMetrics(reg))
	}
	health := healthserver.New(fmt.Sprintf(":%d", mc.HealthPort), monitor, logger, healthOpts...)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return ignoreServerClosed(health.Start(gctx))
	})
	if !sharedPort {
		g.Go(func() error {
			return serveMetrics(gctx, logger, mc.MetricsPort, reg)
		})
	}
	g.Go(func() error {
		if err := monitor.Start(gctx); err != nil {
			return fmt.Errorf("start connectivity monitor: %w", err)
		}
		defer monitor.Stop()

		// Probe once so readiness reflects the backend before the first tick.
		monitor.Check(gctx)
		health.SetReady(true)

		<-gctx.Done()
		health.SetReady(false)
		return nil
	})

	return g.Wait()
}

// buildNotifiers returns the enabled webhook notifiers, or a no-op notifier when none is.
func buildNotifiers(mc config.MonitorConfig, logger *slog.Logger) []notifier.Notifier {
	var notifiers []notifier.Notifier
	if mc.Discord.Enabled {
		notifiers = append(notifiers, notifier.NewDiscordNotifier(mc.Discord, notifier.WithLogger(logger)))
		logger.Info("Discord notifier initialized", slog.String("status", "enabled"))
	} else {
		logger.Info("Discord notifier disabled")
	}
	if mc.Slack.Enabled {
		notifiers = append(notifiers, notifier.NewSlackNotifier(mc.Slack, notifier.WithLogger(logger)))
		logger.Info("Slack notifier initialized", slog.String("status", "enabled"))
	} else {
		logger.Info("Slack notifier disabled")
	}
	if len(notifiers) == 0 {
		notifiers = append(notifiers, notifier.NewNoOpNotifier())
	}
	return notifiers
}

func newRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func ignoreServerClosed(err error) error {
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
