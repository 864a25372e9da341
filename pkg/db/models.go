package db

import (
	"github.com/jakechorley/hourbank/pkg/core/model"
)

// Reservation is one booked hour. Multi-hour bookings are stored as adjacent rows sharing a
// ReservationID. Column order is fixed: ReservationID is the 11th column.
type Reservation struct {
	Campaign       string `ssql_header:"campaign" ssql_type:"text"`
	Date           string `ssql_header:"date" ssql_type:"date"`
	Hours          int    `ssql_header:"hours" ssql_type:"int"`
	Slot           string `ssql_header:"slot" ssql_type:"text"`
	Key            string `ssql_header:"key" ssql_type:"text"`
	Email          string `ssql_header:"email" ssql_type:"text"`
	Kind           string `ssql_header:"kind" ssql_type:"text"`
	Validation     string `ssql_header:"validation" ssql_type:"text"`
	RequestStatus  string `ssql_header:"request_status" ssql_type:"text"`
	EmployeeNumber string `ssql_header:"employee_number" ssql_type:"text"`
	ReservationID  string `ssql_header:"reservation_id" ssql_type:"id"`
}

// State returns the review state of the row
func (r Reservation) State() model.ValidationState {
	return model.StateOf(r.Validation)
}

// ParsedDate parses the display date of the row
func (r Reservation) ParsedDate() (model.Date, error) {
	return model.ParseDate(r.Date)
}

// Property is a named value in the property table (counters and export state)
type Property struct {
	Name  string `ssql_header:"name" ssql_type:"text"`
	Value string `ssql_header:"value" ssql_type:"text"`
}

// Column names shared by every backend
var ReservationColumns = []string{
	"campaign", "date", "hours", "slot", "key", "email", "kind",
	"validation", "request_status", "employee_number", "reservation_id",
}

// Values returns the row cells in column order
func (r Reservation) Values() []string {
	return []string{
		r.Campaign, r.Date, itoa(r.Hours), r.Slot, r.Key, r.Email, r.Kind,
		r.Validation, r.RequestStatus, r.EmployeeNumber, r.ReservationID,
	}
}
