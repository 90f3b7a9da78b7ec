package commands

import (
	"log/slog"

	"github.com/spf13/cobra"
)

type parkSummary struct {
	ID              string `json:"id" yaml:"id"`
	Name            string `json:"name" yaml:"name"`
	DestinationSlug string `json:"destinationSlug" yaml:"destination_slug"`
	ParkSlug        string `json:"parkSlug" yaml:"park_slug"`
	Culture         string `json:"culture" yaml:"culture"`
	Timezone        string `json:"timezone" yaml:"timezone"`
	HasAPIKey       bool   `json:"hasApiKey" yaml:"has_api_key"`
}

func installParks(app *App) {
	var export string

	cmd := &cobra.Command{
		Use:   "parks",
		Short: "List the registered parks",
		Long: `List the registered parks.

The built-in parks are completed and overridden by the registry file, if any.
With --export, the registry is written as a registry file instead, without API keys.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := app.parkRegistry()
			if err != nil {
				return err
			}
			r := m.Registry()

			if export != "" {
				slog.Info("Exporting park registry", "file", export)
				return r.Save(export)
			}

			var parks []parkSummary
			for _, p := range r.Parks() {
				parks = append(parks, parkSummary{
					ID:              p.ID,
					Name:            p.Name,
					DestinationSlug: p.DestinationSlug,
					ParkSlug:        p.ParkSlug,
					Culture:         p.Culture,
					Timezone:        p.Timezone,
					HasAPIKey:       p.APIKey != "",
				})
			}

			pr, err := newPrinter(app.config.Format)
			if err != nil {
				return err
			}
			return pr.print(cmd.OutOrStdout(), parks)
		},
	}
	cmd.Flags().StringVar(&export, "export", "", "write the registry to this file")

	app.cmd.AddCommand(cmd)
}
