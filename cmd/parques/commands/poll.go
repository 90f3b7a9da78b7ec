package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/parkfeeds/parques-reunidos/internal/connector"
	"github.com/parkfeeds/parques-reunidos/internal/metrics"
	"github.com/parkfeeds/parques-reunidos/internal/models"
	"github.com/spf13/cobra"
)

type pollConfig struct {
	Interval    time.Duration
	Count       int
	MetricsAddr string `mapstructure:"metrics-addr"`
}

// pollLine is one line of the poll output.
type pollLine struct {
	Park  string              `json:"park"`
	Time  time.Time           `json:"time"`
	Live  []models.LiveStatus `json:"live,omitempty"`
	Error string              `json:"error,omitempty"`
}

func installPoll(app *App) {
	cmd := &cobra.Command{
		Use:   "poll PARK",
		Short: "Rebuild the live statuses of a park at a fixed interval",
		Long: `Rebuild the live statuses of a park at a fixed interval, until interrupted.

Every build is written as a single JSON line. A failed build is logged and reported in its
line, and polling goes on. The registry file is reloaded when it changes.
With --metrics-addr, the build and fetch metrics are served on /metrics.`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: app.completeParks,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if app.config.Poll.Interval <= 0 {
				return fmt.Errorf("poll interval must be positive, got %s", app.config.Poll.Interval)
			}
			if app.config.Poll.Count < 0 {
				return fmt.Errorf("poll count must not be negative, got %d", app.config.Poll.Count)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			slog.Info("Running poll command", "park", args[0], "interval", app.config.Poll.Interval)
			return app.poll(cmd, args[0])
		},
	}
	cmd.Flags().DurationVar(&app.config.Poll.Interval, "interval", connector.LiveTTL, "duration between two builds")
	cmd.Flags().IntVar(&app.config.Poll.Count, "count", 0, "stop after this many builds, 0 to poll until interrupted")
	cmd.Flags().StringVar(&app.config.Poll.MetricsAddr, "metrics-addr", "", "serve metrics on this host:port")

	app.cmd.AddCommand(cmd)
}

func (a *App) poll(cmd *cobra.Command, id string) (err error) {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	c, err := a.newConnector(id)
	if err != nil {
		return err
	}

	var reloads <-chan struct{}
	var watchErrs <-chan error
	if a.registryPath != "" {
		if reloads, watchErrs, err = a.registry.Watch(ctx); err != nil {
			return err
		}
	}

	if addr := a.config.Poll.MetricsAddr; addr != "" {
		srv := metrics.NewServer(metrics.Config{Addr: addr, ReadTimeout: 5 * time.Second, WriteTimeout: 10 * time.Second}, a.gatherer)
		serveErr := make(chan error, 1)
		go func() {
			serveErr <- srv.ListenAndServe()
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if e := srv.Shutdown(shutdownCtx); e != nil {
				slog.Warn("Could not shut down metrics server", "err", e)
			}
			if e := <-serveErr; !errors.Is(e, http.ErrServerClosed) {
				err = errors.Join(err, fmt.Errorf("metrics server failed: %v", e))
			}
		}()
		slog.Info("Serving metrics", "addr", addr)
	}

	ticker := time.NewTicker(a.config.Poll.Interval)
	defer ticker.Stop()

	enc := json.NewEncoder(cmd.OutOrStdout())
	for n := 1; ; n++ {
		line := pollLine{Park: id, Time: time.Now()}
		bctx, bcancel := a.buildContext(ctx)
		line.Live, err = c.BuildEntityLiveData(bctx)
		bcancel()
		if ctx.Err() != nil {
			slog.Info("Polling stopped", "park", id, "builds", n-1)
			return nil
		}
		if err != nil {
			slog.Warn("Live build failed", "park", id, "err", err)
			line.Error = err.Error()
		}
		if err := enc.Encode(line); err != nil {
			return fmt.Errorf("could not write poll output: %v", err)
		}

		if n == a.config.Poll.Count {
			return nil
		}

	wait:
		for {
			select {
			case <-ctx.Done():
				slog.Info("Polling stopped", "park", id, "builds", n)
				return nil
			case err, ok := <-watchErrs:
				if !ok {
					watchErrs = nil
					continue
				}
				return fmt.Errorf("park registry watcher failed: %v", err)
			case _, ok := <-reloads:
				if !ok {
					reloads = nil
					continue
				}
				park, err := a.registry.Park(id)
				if err != nil {
					slog.Warn("Park removed from registry, keeping previous record", "park", id, "err", err)
					continue
				}
				nc, err := connector.New(park, connector.WithLogger(slog.Default()), connector.WithMetrics(a.metrics))
				if err != nil {
					slog.Warn("Keeping previous park record", "park", id, "err", err)
					continue
				}
				slog.Info("Park record reloaded", "park", id)
				c = nc
			case <-ticker.C:
				break wait
			}
		}
	}
}
