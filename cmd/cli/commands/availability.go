package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jakechorley/hourbank/pkg/core/model"
)

// FreeSlotsCmd creates the freeSlots command
func FreeSlotsCmd(app *AppContext) *cobra.Command {
	var campaign, from, to string
	var days int

	cmd := &cobra.Command{
		Use:   "freeSlots <pool>",
		Short: "List the free slots of a pool (work, rest or overtime)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pool, err := model.ParsePoolKind(args[0])
			if err != nil {
				return err
			}

			loc := app.location()
			start := app.today().At(0, 0, loc)
			if from != "" {
				if start, err = model.ParseInstant(from, loc); err != nil {
					return err
				}
			}
			end := start.AddDate(0, 0, days)
			if to != "" {
				if end, err = model.ParseInstant(to, loc); err != nil {
					return err
				}
			}

			free, err := app.Core.ListFreeSlots(app.Ctx, pool, campaign, start, end)
			if err != nil {
				return err
			}

			printFreeSlots(os.Stdout, free)
			return nil
		},
	}

	cmd.Flags().StringVarP(&campaign, "campaign", "c", "", "Only list slots of this campaign")
	cmd.Flags().StringVar(&from, "from", "", "Start of the range, e.g. 2024-06-10T08:00 (default: today)")
	cmd.Flags().StringVar(&to, "to", "", "End of the range (default: --days after the start)")
	cmd.Flags().IntVar(&days, "days", 7, "Length of the range in days when --to is not set")

	return cmd
}

// CampaignsCmd creates the campaigns command
func CampaignsCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "campaigns <pool>",
		Short: "List the campaigns that have capacity rows in a pool",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pool, err := model.ParsePoolKind(args[0])
			if err != nil {
				return err
			}

			campaigns, err := app.Core.Campaigns(app.Ctx, pool)
			if err != nil {
				return err
			}

			fmt.Printf("\n%s campaigns (%d):\n", pool, len(campaigns))
			for _, c := range campaigns {
				fmt.Printf("  %s\n", c)
			}
			fmt.Println()
			return nil
		},
	}
}

// CanUseOvertimeCmd creates the canUseOvertime command
func CanUseOvertimeCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "canUseOvertime <campaign>",
		Short: "Check whether a campaign may book overtime",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ok, err := app.Core.CanUseOvertimePool(args[0])
			if err != nil {
				return err
			}

			if ok {
				fmt.Printf("✓ %s may book overtime\n", args[0])
			} else {
				fmt.Printf("✗ %s is not on the overtime allow-list\n", args[0])
			}
			return nil
		},
	}
}
