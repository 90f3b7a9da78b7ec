package commands

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"

	"github.com/parkfeeds/parques-reunidos/internal/connector"
	"github.com/parkfeeds/parques-reunidos/internal/fileutils"
	"github.com/parkfeeds/parques-reunidos/internal/models"
	"github.com/spf13/cobra"
)

// Entity kinds selectable with the entities command.
const (
	kindAll         = "all"
	kindDestination = "destination"
	kindPark        = "park"
	kindAttraction  = "attraction"
	kindRestaurant  = "restaurant"
	kindShow        = "show"
)

var entityKinds = []string{kindAll, kindDestination, kindPark, kindAttraction, kindRestaurant, kindShow}

// completeParks completes the first argument with the registered park ids.
func (a *App) completeParks(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	m, err := a.parkRegistry()
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	return m.Registry().IDs(), cobra.ShellCompDirectiveNoFileComp
}

func installEntities(app *App) {
	var kind string

	cmd := &cobra.Command{
		Use:   "entities PARK",
		Short: "Print the entities of a park",
		Long: `Print the entities of a park: its destination, the park itself, its attractions,
restaurants and shows.`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: app.completeParks,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(entityKinds, kind) {
				return fmt.Errorf("unknown entity kind %q, expected one of %v", kind, entityKinds)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			slog.Info("Running entities command", "park", args[0], "kind", kind)
			return build(app, cmd, args[0], func(c *connector.Connector, ctx context.Context) ([]models.Entity, error) {
				return entities(ctx, c, kind)
			})
		},
	}
	cmd.Flags().StringVar(&kind, "kind", kindAll, fmt.Sprintf("entity kind to print, one of %v", entityKinds))

	app.cmd.AddCommand(cmd)
}

func entities(ctx context.Context, c *connector.Connector, kind string) ([]models.Entity, error) {
	switch kind {
	case kindDestination:
		d, err := c.BuildDestinationEntity(ctx)
		return []models.Entity{d}, err
	case kindPark:
		return c.BuildParkEntities(ctx)
	case kindAttraction:
		return c.BuildAttractionEntities(ctx)
	case kindRestaurant:
		return c.BuildRestaurantEntities(ctx)
	case kindShow:
		return c.BuildShowEntities(ctx)
	}

	var all []models.Entity
	for _, k := range entityKinds[1:] {
		e, err := entities(ctx, c, k)
		if err != nil {
			return nil, err
		}
		all = append(all, e...)
	}
	return all, nil
}

func installLive(app *App) {
	app.cmd.AddCommand(&cobra.Command{
		Use:               "live PARK",
		Short:             "Print the live statuses of the attractions of a park",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: app.completeParks,
		RunE: func(cmd *cobra.Command, args []string) error {
			slog.Info("Running live command", "park", args[0])
			return build(app, cmd, args[0], (*connector.Connector).BuildEntityLiveData)
		},
	})
}

func installSchedule(app *App) {
	app.cmd.AddCommand(&cobra.Command{
		Use:               "schedule PARK",
		Short:             "Print the opening schedule of a park for the current year",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: app.completeParks,
		RunE: func(cmd *cobra.Command, args []string) error {
			slog.Info("Running schedule command", "park", args[0])
			return build(app, cmd, args[0], (*connector.Connector).BuildEntityScheduleData)
		},
	})
}

func installSnapshot(app *App) {
	var out string

	cmd := &cobra.Command{
		Use:   "snapshot PARK",
		Short: "Build every output of a park in a single run",
		Long: `Build every output of a park in a single run: entities, live statuses and schedule.

With --out, the snapshot is written as PARK.json in the given directory instead of being printed.`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: app.completeParks,
		RunE: func(cmd *cobra.Command, args []string) error {
			slog.Info("Running snapshot command", "park", args[0])
			if out == "" {
				return build(app, cmd, args[0], (*connector.Connector).Snapshot)
			}

			c, err := app.newConnector(args[0])
			if err != nil {
				return err
			}
			ctx, cancel := app.buildContext(cmd.Context())
			defer cancel()

			s, err := c.Snapshot(ctx)
			if err != nil {
				return err
			}
			path := filepath.Join(out, args[0]+".json")
			if err := fileutils.WriteJSON(path, s); err != nil {
				return err
			}
			slog.Info("Snapshot written", "file", path)
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "directory to write the snapshot to")
	if err := cmd.MarkFlagDirname("out"); err != nil {
		slog.Warn("Could not mark out flag as directory", "err", err)
	}

	app.cmd.AddCommand(cmd)
}
