package slots

import (
	"fmt"
	"strings"
	"time"

	"github.com/jakechorley/hourbank/pkg/core/model"
)

// FreeSlot is one capacity row that can still take a reservation
type FreeSlot struct {
	Campaign  string
	Label     string
	Start     time.Time
	End       time.Time
	Remaining int
}

// RemainingLabel is the text shown next to a free slot
func (f FreeSlot) RemainingLabel() string {
	return fmt.Sprintf("%d h", f.Remaining)
}

// BookedSlot identifies the slot a persisted reservation occupies
type BookedSlot struct {
	Campaign string
	Date     model.Date
	Label    string
}

// Booked counts live reservations per slot. A nil Booked leaves capacity untouched.
type Booked map[BookedSlot]int

// Add records one reservation in the given slot. Malformed labels are ignored.
func (b Booked) Add(campaign string, date model.Date, label string) {
	canonical, ok := NormalizeLabel(label)
	if !ok {
		return
	}
	b[BookedSlot{Campaign: strings.TrimSpace(campaign), Date: date, Label: canonical}]++
}

// Index answers availability questions over one pool's capacity rows
type Index struct {
	rows   []model.CapacityRow
	booked Booked
	loc    *time.Location
}

func NewIndex(rows []model.CapacityRow, booked Booked, loc *time.Location) *Index {
	return &Index{rows: rows, booked: booked, loc: loc}
}

type candidate struct {
	row       model.CapacityRow
	slot      Slot
	label     string
	remaining int
}

// candidates returns the well-formed rows for campaign ("" means every campaign) with their
// effective remaining capacity. Booked reservations are consumed from duplicate rows of the
// same slot in table order.
func (ix *Index) candidates(campaign string) []candidate {
	campaign = strings.TrimSpace(campaign)
	left := make(map[BookedSlot]int, len(ix.booked))
	for k, v := range ix.booked {
		left[k] = v
	}

	var out []candidate
	for _, row := range ix.rows {
		rowCampaign := strings.TrimSpace(row.Campaign)
		if campaign != "" && rowCampaign != campaign {
			continue
		}
		if row.Date.IsZero() {
			continue
		}
		slot, ok := ParseLabel(row.SlotLabel)
		if !ok {
			continue
		}

		label := slot.Label()
		remaining := row.Remaining
		key := BookedSlot{Campaign: rowCampaign, Date: row.Date, Label: label}
		if used := left[key]; used > 0 && remaining > 0 {
			take := min(used, remaining)
			remaining -= take
			left[key] -= take
		}
		if remaining <= 0 {
			continue
		}
		out = append(out, candidate{row: row, slot: slot, label: label, remaining: remaining})
	}
	return out
}

// FreeSlots lists every row with capacity whose slot starts in [from, to). Parallel rows for the
// same slot are reported separately.
func (ix *Index) FreeSlots(campaign string, from, to time.Time) []FreeSlot {
	var out []FreeSlot
	for _, c := range ix.candidates(campaign) {
		start := c.row.Date.At(c.slot.StartHour, c.slot.StartMinute, ix.loc)
		if start.Before(from) || !start.Before(to) {
			continue
		}
		out = append(out, FreeSlot{
			Campaign:  strings.TrimSpace(c.row.Campaign),
			Label:     c.label,
			Start:     start,
			End:       start.Add(time.Hour),
			Remaining: c.remaining,
		})
	}
	return out
}

// FreeSlotSet returns the distinct canonical labels that are free for campaign on date
func (ix *Index) FreeSlotSet(campaign string, date model.Date) map[string]struct{} {
	set := make(map[string]struct{})
	for _, c := range ix.candidates(campaign) {
		if c.row.Date == date {
			set[c.label] = struct{}{}
		}
	}
	return set
}

// Campaigns returns the distinct campaign names in the capacity rows, in table order
func (ix *Index) Campaigns() []string {
	seen := make(map[string]bool)
	var out []string
	for _, row := range ix.rows {
		c := strings.TrimSpace(row.Campaign)
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}
