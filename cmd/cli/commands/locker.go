package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// ExportLockerCmd creates the exportLocker command
func ExportLockerCmd(app *AppContext) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "exportLocker",
		Short: "Write every pool into the locker sheet",
		Long: `Write the rows of the work, rest and overtime pools into the locker sheet, joined with
employee numbers. Nothing is written when the pools have not changed since the last export,
unless --force is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := app.Core.ExportLocker(app.Ctx, force)
			if err != nil {
				return userError(err)
			}

			if res.Skipped {
				fmt.Printf("\nLocker is up to date (%d rows), nothing written\n\n", res.Rows)
				return nil
			}
			fmt.Printf("\n✓ Exported %d rows to the locker\n\n", res.Rows)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Export even if the pools have not changed")

	return cmd
}
