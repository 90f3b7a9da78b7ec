// Package commands implements the parques command line interface.
package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/parkfeeds/parques-reunidos/internal/cli"
	"github.com/parkfeeds/parques-reunidos/internal/connector"
	"github.com/parkfeeds/parques-reunidos/internal/constants"
	"github.com/parkfeeds/parques-reunidos/internal/metrics"
	"github.com/parkfeeds/parques-reunidos/internal/registry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// App represents the application.
type App struct {
	cmd    *cobra.Command
	viper  *viper.Viper
	config appConfig

	ctx    context.Context
	cancel context.CancelFunc

	registry     *registry.Manager
	registryPath string
	gatherer     *prometheus.Registry
	metrics      *metrics.Metrics
}

// appConfig holds the configuration for the application.
type appConfig struct {
	Verbosity int
	JSONLogs  bool `mapstructure:"json-logs"`
	Registry  string
	APIKey    string `mapstructure:"api-key"`
	Format    string
	Timeout   time.Duration

	Poll pollConfig
}

// New creates a new App instance with default values.
func New() (*App, error) {
	ctx, cancel := context.WithCancel(context.Background())
	reg := prometheus.NewRegistry()
	a := App{
		ctx:      ctx,
		cancel:   cancel,
		gatherer: reg,
		metrics:  metrics.New(reg),
	}

	a.cmd = &cobra.Command{
		Use:   constants.CmdName,
		Short: "Parques Reunidos theme park connector",
		Long: `Parques Reunidos theme park connector.

Builds the entities, live statuses and opening schedules of the Parques Reunidos parks
from the vendor services, and prints them as JSON or YAML.`,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Command parsing has been successful. Returns to not print usage anymore.
			a.cmd.SilenceUsage = true
			cli.SetVerbosity(a.config.Verbosity) // Set verbosity before loading config
			if err := cli.InitViperConfig(constants.CmdName, a.cmd, a.viper); err != nil {
				return err
			}
			if err := cli.BindFlagsEnv(constants.CmdName, a.cmd.PersistentFlags(), a.viper); err != nil {
				return err
			}
			if err := a.viper.Unmarshal(&a.config); err != nil {
				return fmt.Errorf("unable to strictly decode configuration into struct: %w", err)
			}

			cli.SetSlog(a.config.Verbosity, a.config.JSONLogs)
			slog.Debug("Got app config", "verbosity", a.config.Verbosity, "registry", a.config.Registry, "format", a.config.Format)

			if _, err := newPrinter(a.config.Format); err != nil {
				return err
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Usage()
		},
	}
	a.viper = viper.New()

	installRootCmd(&a)
	cli.InstallConfigFlag(a.cmd)
	a.cmd.CompletionOptions.HiddenDefaultCmd = true

	if err := a.viper.BindPFlags(a.cmd.PersistentFlags()); err != nil {
		return nil, err
	}

	installParks(&a)
	installEntities(&a)
	installLive(&a)
	installSchedule(&a)
	installSnapshot(&a)
	installPoll(&a)
	installVersion(&a)

	return &a, nil
}

func installRootCmd(app *App) {
	cmd := app.cmd

	cmd.PersistentFlags().CountVarP(&app.config.Verbosity, "verbose", "v", "issue INFO (-v), DEBUG (-vv)")
	cmd.PersistentFlags().Bool("json-logs", false, "write logs as JSON lines on stderr")
	cmd.PersistentFlags().String("registry", "", fmt.Sprintf("park registry file (default %q when it exists)", constants.GetDefaultRegistryPath()))
	cmd.PersistentFlags().String("api-key", "", "vendor API key for parks which do not set their own")
	cmd.PersistentFlags().StringP("format", "o", formatJSON, "output format: json or yaml")
	cmd.PersistentFlags().Duration("timeout", time.Minute, "maximum duration of one build, 0 for none")
}

// Run executes the command and associated process, returning an error if any.
func (a App) Run() error {
	return a.cmd.ExecuteContext(a.ctx)
}

// UsageError returns if the error is a command parsing or runtime one.
func (a App) UsageError() bool {
	return !a.cmd.SilenceUsage
}

// Hup prints all goroutine stack traces and return false to signal you shouldn't quit.
func (a App) Hup() (shouldQuit bool) {
	buf := make([]byte, 1<<16)
	runtime.Stack(buf, true)
	fmt.Printf("%s", buf)
	return false
}

// Quit cancels any running build and stops polling.
func (a *App) Quit() {
	a.cancel()
}

// RootCmd returns the root command.
func (a App) RootCmd() cobra.Command {
	return *a.cmd
}

// parkRegistry loads the registry on first use. Without a configured file, the one in the
// user config folder is used when it exists.
func (a *App) parkRegistry() (*registry.Manager, error) {
	if a.registry != nil {
		return a.registry, nil
	}

	path := a.config.Registry
	if path == "" {
		if p := constants.GetDefaultRegistryPath(); p != "" {
			if _, err := os.Stat(p); err == nil {
				path = p
			}
		}
	}

	m := registry.NewManager(path, registry.WithAPIKey(a.config.APIKey), registry.WithLogger(slog.Default()))
	if err := m.Load(); err != nil {
		return nil, err
	}
	a.registry = m
	a.registryPath = path
	return m, nil
}

// newConnector returns the connector of the park registered under id.
func (a *App) newConnector(id string) (*connector.Connector, error) {
	m, err := a.parkRegistry()
	if err != nil {
		return nil, err
	}
	park, err := m.Park(id)
	if err != nil {
		return nil, err
	}
	return connector.New(park, connector.WithLogger(slog.Default()), connector.WithMetrics(a.metrics))
}

// buildContext bounds one build with the configured timeout.
func (a App) buildContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.config.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, a.config.Timeout)
}

// build runs f for the park given as single argument and prints its result.
func build[T any](a *App, cmd *cobra.Command, id string, f func(*connector.Connector, context.Context) (T, error)) error {
	c, err := a.newConnector(id)
	if err != nil {
		return err
	}

	ctx, cancel := a.buildContext(cmd.Context())
	defer cancel()

	v, err := f(c, ctx)
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("build of park %q timed out after %s: %w", id, a.config.Timeout, err)
	}
	if err != nil {
		return err
	}

	p, err := newPrinter(a.config.Format)
	if err != nil {
		return err
	}
	return p.print(cmd.OutOrStdout(), v)
}
