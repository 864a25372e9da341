package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jakechorley/hourbank/pkg/core/model"
	"github.com/jakechorley/hourbank/pkg/core/services"
)

// ReserveCmd creates the reserve command
func ReserveCmd(app *AppContext) *cobra.Command {
	var hours int

	cmd := &cobra.Command{
		Use:   "reserve <pool> <campaign> <start> <email>",
		Short: "Book a continuous run of hours starting at <start>",
		Example: `  hourbank -e prod reserve work Ventas 2024-06-10T09:00 ana@example.com --hours 2
  hourbank -e prod reserve librar "Atención cliente" "10/06/2024 16:00" ana@example.com`,
		Args: cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			pool, err := model.ParsePoolKind(args[0])
			if err != nil {
				return err
			}
			start, err := model.ParseInstant(args[2], app.location())
			if err != nil {
				return err
			}

			res, err := app.Core.Reserve(app.Ctx, services.ReserveRequest{
				Pool:     pool,
				Campaign: args[1],
				Start:    start,
				Hours:    hours,
				Email:    args[3],
			})
			if err != nil {
				return userError(err)
			}

			fmt.Printf("\n✓ %s\n\n", res.Message)
			fmt.Println("Keys:")
			for _, k := range res.Keys() {
				fmt.Printf("  %s\n", k)
			}
			fmt.Println()
			return nil
		},
	}

	cmd.Flags().IntVar(&hours, "hours", 1, "Number of consecutive hours to book")

	return cmd
}

// CancelCmd creates the cancel command
func CancelCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <key>",
		Short: "Cancel the reservation row with the given key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := app.Core.Cancel(app.Ctx, args[0])
			if err != nil {
				return userError(err)
			}

			fmt.Printf("\n✓ Cancelled %s %s %s (%s) from the %s pool\n\n",
				res.Row.Campaign, res.Row.Date, res.Row.Slot, res.Row.ReservationID, res.Pool)
			return nil
		},
	}
}

// CancelBatchCmd creates the cancelBatch command
func CancelBatchCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "cancelBatch <key>...",
		Short: "Cancel several reservation rows, reporting each key",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := app.Core.CancelBatch(app.Ctx, cleanKeys(args))
			if err != nil {
				return userError(err)
			}

			printBatchCancel(os.Stdout, res)
			return nil
		},
	}
}

// UpdateCmd creates the update command
func UpdateCmd(app *AppContext) *cobra.Command {
	var hours int
	var slot, email, status string

	cmd := &cobra.Command{
		Use:   "update <key> <campaign> <start>",
		Short: "Rewrite a reservation row and recompute its key",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			start, err := model.ParseInstant(args[2], app.location())
			if err != nil {
				return err
			}

			res, err := app.Core.Update(app.Ctx, args[0], services.UpdateFields{
				Campaign:      args[1],
				Start:         start,
				Hours:         hours,
				Slot:          slot,
				Email:         email,
				RequestStatus: status,
			})
			if err != nil {
				return userError(err)
			}

			fmt.Printf("\n✓ Updated row in the %s pool\n", res.Pool)
			fmt.Printf("Old key: %s\n", res.OldKey)
			fmt.Printf("New key: %s\n\n", res.NewKey)
			return nil
		},
	}

	cmd.Flags().IntVar(&hours, "hours", 1, "Hours of the row")
	cmd.Flags().StringVar(&slot, "slot", "", "Slot label, e.g. 09:00-10:00 (default: derived from start and hours)")
	cmd.Flags().StringVar(&email, "email", "", "New requester email (default: unchanged)")
	cmd.Flags().StringVar(&status, "status", "", "New request status (default: unchanged)")

	return cmd
}

// MyReservationsCmd creates the myReservations command
func MyReservationsCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "myReservations <email>",
		Short: "List every reservation made by a requester",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			owned, err := app.Core.MyReservations(app.Ctx, args[0])
			if err != nil {
				return userError(err)
			}

			printReservations(os.Stdout, owned)
			return nil
		},
	}
}

// SummaryCmd creates the summary command
func SummaryCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "summary <email>",
		Short: "Show hour totals and balance for a requester",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.Core.Summarize(app.Ctx, args[0], app.today())
			if err != nil {
				return userError(err)
			}

			printSummary(os.Stdout, args[0], s)
			return nil
		},
	}
}

// ReviewCmd creates the review command
func ReviewCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "review <key> <OK|KO>",
		Short: "Approve (OK) or reject (KO) a reservation row",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := app.Core.Review(app.Ctx, args[0], args[1])
			if err != nil {
				return userError(err)
			}

			fmt.Printf("\n%s %s %s %s is now %s\n\n",
				stateIcon(res.State), res.Row.Campaign, res.Row.Date, res.Row.Slot, res.State)
			return nil
		},
	}
}

// userError replaces err with its requester-facing message, keeping the error chain
func userError(err error) error {
	msg := model.UserMessage(err)
	if msg == err.Error() {
		return err
	}
	return fmt.Errorf("%s: %w", msg, err)
}
