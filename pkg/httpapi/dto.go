package httpapi

import (
	"time"

	"github.com/jakechorley/hourbank/pkg/core/services"
	"github.com/jakechorley/hourbank/pkg/core/slots"
	"github.com/jakechorley/hourbank/pkg/db"
)

type reserveRequest struct {
	Pool     string `json:"pool" binding:"required"`
	Campaign string `json:"campaign" binding:"required"`
	Start    string `json:"start" binding:"required"`
	Hours    int    `json:"hours" binding:"required,min=1"`
	Email    string `json:"email" binding:"required,email"`
}

type updateRequest struct {
	Key           string `json:"key" binding:"required"`
	Campaign      string `json:"campaign" binding:"required"`
	Start         string `json:"start" binding:"required"`
	Hours         int    `json:"hours" binding:"required,min=1"`
	Slot          string `json:"slot"`
	Email         string `json:"email" binding:"omitempty,email"`
	RequestStatus string `json:"request_status"`
}

type keyRequest struct {
	Key string `json:"key" binding:"required"`
}

type keysRequest struct {
	Keys []string `json:"keys" binding:"required,min=1"`
}

type reviewRequest struct {
	Key        string `json:"key" binding:"required"`
	Validation string `json:"validation" binding:"required"`
}

type exportRequest struct {
	Force bool `json:"force"`
}

type freeSlotResponse struct {
	Campaign  string    `json:"campaign"`
	Label     string    `json:"label"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	Remaining int       `json:"remaining"`
}

func toFreeSlots(in []slots.FreeSlot) []freeSlotResponse {
	out := make([]freeSlotResponse, len(in))
	for i, s := range in {
		out[i] = freeSlotResponse{Campaign: s.Campaign, Label: s.Label, Start: s.Start, End: s.End, Remaining: s.Remaining}
	}
	return out
}

type reservationResponse struct {
	Pool           string `json:"pool,omitempty"`
	State          string `json:"state,omitempty"`
	Campaign       string `json:"campaign"`
	Date           string `json:"date"`
	Hours          int    `json:"hours"`
	Slot           string `json:"slot"`
	Key            string `json:"key"`
	Email          string `json:"email"`
	Kind           string `json:"kind"`
	Validation     string `json:"validation"`
	RequestStatus  string `json:"request_status"`
	EmployeeNumber string `json:"employee_number"`
	ReservationID  string `json:"reservation_id"`
}

func toReservation(r db.Reservation) reservationResponse {
	return reservationResponse{
		Campaign:       r.Campaign,
		Date:           r.Date,
		Hours:          r.Hours,
		Slot:           r.Slot,
		Key:            r.Key,
		Email:          r.Email,
		Kind:           r.Kind,
		Validation:     r.Validation,
		RequestStatus:  r.RequestStatus,
		EmployeeNumber: r.EmployeeNumber,
		ReservationID:  r.ReservationID,
	}
}

type reserveResponse struct {
	ReservationID string   `json:"reservation_id"`
	Keys          []string `json:"keys"`
	Message       string   `json:"message"`
}

type updateResponse struct {
	Pool   string              `json:"pool"`
	OldKey string              `json:"old_key"`
	NewKey string              `json:"new_key"`
	Row    reservationResponse `json:"row"`
}

type batchCancelResponse struct {
	Cancelled []string          `json:"cancelled"`
	NotFound  []string          `json:"not_found"`
	Failed    map[string]string `json:"failed"`
}

func toBatchCancel(r *services.BatchCancelResult) batchCancelResponse {
	resp := batchCancelResponse{Cancelled: r.Cancelled, NotFound: r.NotFound, Failed: r.Failed}
	if resp.Cancelled == nil {
		resp.Cancelled = []string{}
	}
	if resp.NotFound == nil {
		resp.NotFound = []string{}
	}
	if resp.Failed == nil {
		resp.Failed = map[string]string{}
	}
	return resp
}

type monthHoursResponse struct {
	Month string `json:"month"`
	Hours int    `json:"hours"`
}

type summaryResponse struct {
	Total         int                   `json:"total"`
	UpcomingCount int                   `json:"upcoming_count"`
	Upcoming      []reservationResponse `json:"upcoming"`
	Hours         map[string]int        `json:"hours"`
	Balance       int                   `json:"balance"`
	Monthly       []monthHoursResponse  `json:"monthly"`
}

func toOwned(o services.OwnedReservation) reservationResponse {
	r := toReservation(o.Row)
	r.Pool = o.Pool.String()
	r.State = string(o.State)
	return r
}

func toSummary(s *services.Summary) summaryResponse {
	resp := summaryResponse{
		Total:         s.Total,
		UpcomingCount: s.UpcomingCount,
		Upcoming:      make([]reservationResponse, len(s.Upcoming)),
		Hours:         make(map[string]int, len(s.Hours)),
		Balance:       s.Balance,
		Monthly:       make([]monthHoursResponse, len(s.Monthly)),
	}
	for i, o := range s.Upcoming {
		resp.Upcoming[i] = toOwned(o)
	}
	for pool, h := range s.Hours {
		resp.Hours[pool.String()] = h
	}
	for i, m := range s.Monthly {
		resp.Monthly[i] = monthHoursResponse{Month: m.Label(), Hours: m.Hours}
	}
	return resp
}
