package commands

import (
	"io"

	"github.com/prometheus/client_golang/prometheus"
)

type (
	AppConfig = appConfig
)

// Config returns the configuration of the app.
func (a *App) Config() AppConfig {
	return a.config
}

// SetArgs set some arguments on root command for tests.
func (a *App) SetArgs(args ...string) {
	a.cmd.SetArgs(args)
}

// SetSilenceUsage set the SilenceUsage flag on root command for tests.
func (a *App) SetSilenceUsage(silence bool) {
	a.cmd.SilenceUsage = silence
}

// SetOutput redirects the command output to w.
func (a *App) SetOutput(w io.Writer) {
	a.cmd.SetOut(w)
	a.cmd.SetErr(io.Discard)
}

// Gatherer returns the metrics registry of the app.
func (a *App) Gatherer() prometheus.Gatherer {
	return a.gatherer
}
