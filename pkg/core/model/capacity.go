package model

// CapacityRow is one line of a pool's capacity table: how many more reservations a campaign
// can take for one slot on one date.
type CapacityRow struct {
	Campaign  string
	Date      Date
	SlotLabel string // as written in the source table, not yet normalised
	Remaining int
}
