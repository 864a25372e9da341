package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jakechorley/hourbank/pkg/core/model"
	"github.com/jakechorley/hourbank/pkg/db"
)

// OwnedReservation is a row visible to its requester
type OwnedReservation struct {
	Pool  model.PoolKind
	State model.ValidationState
	Row   db.Reservation
}

// SummaryMonths is the length of the monthly hours series
const SummaryMonths = 6

// SummaryUpcoming caps the upcoming rows listed in a summary
const SummaryUpcoming = 5

// MonthHours is the booked hours of one calendar month
type MonthHours struct {
	Year  int
	Month time.Month
	Hours int
}

// Label renders the month as YYYY-MM
func (m MonthHours) Label() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

// Summary totals the reservations of one requester. Cancelled rows are left out of every
// figure.
type Summary struct {
	Total int
	// UpcomingCount counts rows dated today or later; Upcoming lists the first of them
	UpcomingCount int
	Upcoming      []OwnedReservation
	Hours         map[model.PoolKind]int
	// Balance is rest hours minus the hours owed to work, overtime included
	Balance int
	// Monthly holds the hours of the last SummaryMonths months, oldest first, ending with the
	// month of today
	Monthly []MonthHours
}

// MyReservations lists every row booked by email (trimmed, case-insensitive) across the pools,
// sorted by date and then pool. Rows with an unreadable date sort last. The employee number is
// filled from the roster when the row has none.
func (c *Core) MyReservations(ctx context.Context, email string) ([]OwnedReservation, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, model.ValidationError("requester email is required")
	}

	logger := c.opLogger("myReservations", zap.String("email", email))

	var out []OwnedReservation
	for _, pool := range model.Pools {
		rows, err := c.Store.ListReservations(ctx, pool)
		if err != nil {
			return nil, fmt.Errorf("failed to list %s reservations: %w", pool, err)
		}
		for _, r := range rows {
			if strings.ToLower(strings.TrimSpace(r.Email)) != email {
				continue
			}
			out = append(out, OwnedReservation{Pool: pool, State: r.State(), Row: r})
		}
	}

	if employee := c.employeeNumbers(logger)[email]; employee != "" {
		for i := range out {
			if out[i].Row.EmployeeNumber == "" {
				out[i].Row.EmployeeNumber = employee
			}
		}
	}

	sortOwned(out)
	logger.Debug("Listed reservations", zap.Int("count", len(out)))
	return out, nil
}

func sortOwned(rows []OwnedReservation) {
	far := model.NewDate(2100, time.January, 1)
	dateOf := func(r OwnedReservation) model.Date {
		d, err := r.Row.ParsedDate()
		if err != nil {
			return far
		}
		return d
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if c := dateOf(rows[i]).Compare(dateOf(rows[j])); c != 0 {
			return c < 0
		}
		return rows[i].Pool < rows[j].Pool
	})
}

// Summarize totals the reservations of email. today decides which rows are upcoming and which
// months the series covers.
func (c *Core) Summarize(ctx context.Context, email string, today model.Date) (*Summary, error) {
	owned, err := c.MyReservations(ctx, email)
	if err != nil {
		return nil, err
	}

	s := &Summary{Hours: make(map[model.PoolKind]int), Monthly: monthSeries(today)}
	first := s.Monthly[0]
	for _, o := range owned {
		if o.State == model.StateCancelled {
			continue
		}
		s.Total++
		s.Hours[o.Pool] += o.Row.Hours

		d, err := o.Row.ParsedDate()
		if err != nil {
			continue
		}
		if d.Compare(today) >= 0 {
			s.UpcomingCount++
			if len(s.Upcoming) < SummaryUpcoming {
				s.Upcoming = append(s.Upcoming, o)
			}
		}
		if i := monthsBetween(first.Year, first.Month, d); i >= 0 && i < len(s.Monthly) {
			s.Monthly[i].Hours += o.Row.Hours
		}
	}
	s.Balance = s.Hours[model.PoolRest] - s.Hours[model.PoolWork] - s.Hours[model.PoolOvertime]
	return s, nil
}

// monthSeries returns the SummaryMonths months ending with the month of today, all at zero
func monthSeries(today model.Date) []MonthHours {
	series := make([]MonthHours, SummaryMonths)
	start := time.Date(today.Year, today.Month, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1-SummaryMonths, 0)
	for i := range series {
		m := start.AddDate(0, i, 0)
		series[i] = MonthHours{Year: m.Year(), Month: m.Month()}
	}
	return series
}

func monthsBetween(year int, month time.Month, d model.Date) int {
	return (d.Year-year)*12 + int(d.Month-month)
}
