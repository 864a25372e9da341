package commands

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/jakechorley/hourbank/pkg/core/model"
	"github.com/jakechorley/hourbank/pkg/core/services"
	"github.com/jakechorley/hourbank/pkg/core/slots"
)

func stateIcon(state model.ValidationState) string {
	switch state {
	case model.StateApproved:
		return "✓"
	case model.StateCancelled:
		return "✗"
	default:
		return "…"
	}
}

// printFreeSlots groups the slots by campaign and then by day
func printFreeSlots(w io.Writer, free []slots.FreeSlot) {
	if len(free) == 0 {
		fmt.Fprintln(w, "No free slots in that range.")
		return
	}

	var campaigns []string
	byCampaign := make(map[string][]slots.FreeSlot)
	for _, s := range free {
		if _, ok := byCampaign[s.Campaign]; !ok {
			campaigns = append(campaigns, s.Campaign)
		}
		byCampaign[s.Campaign] = append(byCampaign[s.Campaign], s)
	}

	for _, campaign := range campaigns {
		fmt.Fprintf(w, "\n%s\n", campaign)
		day := ""
		for _, s := range byCampaign[campaign] {
			if d := s.Start.Format("Mon 02/01/2006"); d != day {
				day = d
				fmt.Fprintf(w, "  %s\n", day)
			}
			fmt.Fprintf(w, "    %-12s %s\n", s.Label, s.RemainingLabel())
		}
	}
	fmt.Fprintln(w)
}

func printReservations(w io.Writer, owned []services.OwnedReservation) {
	if len(owned) == 0 {
		fmt.Fprintln(w, "No reservations found.")
		return
	}

	fmt.Fprintf(w, "\n  %-9s %-10s %-12s %-14s %-11s %s\n", "Pool", "Date", "Slot", "Campaign", "ID", "Key")
	for _, o := range owned {
		fmt.Fprintf(w, "%s %-9s %-10s %-12s %-14s %-11s %s\n",
			stateIcon(o.State), o.Pool, o.Row.Date, o.Row.Slot, o.Row.Campaign, o.Row.ReservationID, o.Row.Key)
	}
	fmt.Fprintln(w)
}

func printSummary(w io.Writer, email string, s *services.Summary) {
	fmt.Fprintf(w, "\nSummary for %s\n", email)
	fmt.Fprintf(w, "  Reservations: %d (%d upcoming)\n", s.Total, s.UpcomingCount)
	for _, pool := range model.Pools {
		fmt.Fprintf(w, "  %-9s %3d h\n", pool, s.Hours[pool])
	}
	fmt.Fprintf(w, "  Balance:  %+d h\n", s.Balance)

	if len(s.Upcoming) > 0 {
		fmt.Fprintln(w, "\n  Next up:")
		for _, o := range s.Upcoming {
			fmt.Fprintf(w, "  %s %-9s %-10s %-12s %s\n", stateIcon(o.State), o.Pool, o.Row.Date, o.Row.Slot, o.Row.Campaign)
		}
	}

	fmt.Fprintln(w, "\n  Hours by month:")
	for _, m := range s.Monthly {
		fmt.Fprintf(w, "  %s %3d h\n", m.Label(), m.Hours)
	}
	fmt.Fprintln(w)
}

func printBatchCancel(w io.Writer, res *services.BatchCancelResult) {
	fmt.Fprintf(w, "\n✓ Cancelled: %d\n", len(res.Cancelled))
	for _, k := range res.Cancelled {
		fmt.Fprintf(w, "    %s\n", k)
	}
	if len(res.NotFound) > 0 {
		fmt.Fprintf(w, "⚠️  Not found: %d\n", len(res.NotFound))
		for _, k := range res.NotFound {
			fmt.Fprintf(w, "    %q\n", k)
		}
	}
	if len(res.Failed) > 0 {
		keys := make([]string, 0, len(res.Failed))
		for k := range res.Failed {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fmt.Fprintf(w, "❌ Failed: %d\n", len(res.Failed))
		for _, k := range keys {
			fmt.Fprintf(w, "    %s: %s\n", k, res.Failed[k])
		}
	}
	fmt.Fprintln(w)
}

// cleanKeys trims the keys given on the command line and drops blank ones
func cleanKeys(args []string) []string {
	var keys []string
	for _, k := range args {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}
