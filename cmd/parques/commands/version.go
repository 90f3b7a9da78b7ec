package commands

import (
	"fmt"

	"github.com/parkfeeds/parques-reunidos/internal/constants"
	"github.com/spf13/cobra"
)

func installVersion(app *App) {
	app.cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Returns the running version of " + constants.CmdName + " and exits",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", constants.CmdName, constants.Version)
			return err
		},
	})
}
