package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jakechorley/hourbank/pkg/core/model"
	"github.com/jakechorley/hourbank/pkg/core/slots"
	"github.com/jakechorley/hourbank/pkg/db"
)

// ReserveRequest books Hours consecutive one-hour slots from Start
type ReserveRequest struct {
	Pool     model.PoolKind
	Campaign string
	Start    time.Time
	Hours    int
	Email    string
}

// ReserveResult describes a stored booking
type ReserveResult struct {
	ReservationID string
	Rows          []db.Reservation
	Message       string
}

// Keys returns the identity key of every stored row
func (r *ReserveResult) Keys() []string {
	keys := make([]string, len(r.Rows))
	for i, row := range r.Rows {
		keys[i] = row.Key
	}
	return keys
}

func (req ReserveRequest) validate() error {
	if !req.Pool.IsValid() {
		return model.ValidationError(fmt.Sprintf("unknown pool %q", req.Pool))
	}
	if strings.TrimSpace(req.Campaign) == "" {
		return model.ValidationError("campaign is required")
	}
	if req.Hours < 1 {
		return model.ValidationError(fmt.Sprintf("hours must be at least 1, got %d", req.Hours))
	}
	if req.Start.IsZero() {
		return model.ValidationError("start time is required")
	}
	if !isEmail(req.Email) {
		return model.ValidationError(fmt.Sprintf("invalid requester email %q", req.Email))
	}
	return nil
}

// Reserve books a run of consecutive hours. Eligibility is checked before any availability scan;
// the whole run must be free or nothing is written. The run is stored as one row per hour, all
// sharing one reservation id.
func (c *Core) Reserve(ctx context.Context, req ReserveRequest) (*ReserveResult, error) {
	req.Campaign = strings.TrimSpace(req.Campaign)
	req.Email = strings.TrimSpace(req.Email)
	if err := req.validate(); err != nil {
		return nil, err
	}

	logger := c.opLogger("reserve",
		zap.String("pool", string(req.Pool)),
		zap.String("campaign", req.Campaign),
		zap.Time("start", req.Start),
		zap.Int("hours", req.Hours),
		zap.String("email", req.Email))
	logger.Info("Starting reservation")

	if err := c.checkEligibility(req.Pool, req.Campaign); err != nil {
		logger.Info("Reservation rejected by eligibility gate", zap.Error(err))
		return nil, err
	}

	// Bookings of the same bucket run one at a time so two of them cannot both pass the
	// continuity check before either writes
	date := model.DateOf(req.Start, c.loc())
	release, err := c.lock(ctx, bucketLockName(req.Pool, req.Campaign, date))
	if err != nil {
		return nil, err
	}
	defer release()

	scanCtx, cancelScan := c.storeCtx(ctx)
	defer cancelScan()
	ix, err := c.buildIndex(scanCtx, req.Pool)
	if err != nil {
		return nil, err
	}

	continuity := ix.IsContinuouslyAvailable(req.Campaign, req.Start, req.Hours)
	if !continuity.OK() {
		logger.Info("Reservation rejected, slots not free", zap.Strings("missing", continuity.Missing))
		return nil, model.AvailabilityConflict(continuity.Missing)
	}

	id, err := c.Issuer.Issue(ctx)
	if err != nil {
		return nil, err
	}

	employee := c.employeeNumbers(logger)[strings.ToLower(req.Email)]
	rows := buildRows(req, id, employee, c.loc())

	if err := c.insertRows(ctx, req.Pool, rows); err != nil {
		return nil, err
	}

	span := slots.SpanLabel(req.Start, time.Duration(req.Hours)*time.Hour, c.loc())
	logger.Info("Reservation stored",
		zap.String("reservation_id", id),
		zap.String("span", span),
		zap.Int("rows", len(rows)))

	c.sendConfirmation(logger, req, id, span)

	return &ReserveResult{
		ReservationID: id,
		Rows:          rows,
		Message: fmt.Sprintf("Request registered for %s %s from %s (%dh) [%s]. Reservation ID: %s",
			req.Campaign, model.DateOf(req.Start, c.loc()).Display(), span, req.Hours, req.Pool, id),
	}, nil
}

// buildRows lays out one row per hour. Each row carries the date and label of its own hour and
// the key derived from them.
func buildRows(req ReserveRequest, id, employee string, loc *time.Location) []db.Reservation {
	rows := make([]db.Reservation, 0, req.Hours)
	for k := 0; k < req.Hours; k++ {
		start := req.Start.Add(time.Duration(k) * time.Hour)
		date := model.DateOf(start, loc)
		label := slots.LabelFor(start, loc)
		rows = append(rows, db.Reservation{
			Campaign:       req.Campaign,
			Date:           date.Display(),
			Hours:          1,
			Slot:           label,
			Key:            model.DeriveKey(req.Campaign, date.Serial(), label, req.Email, req.Pool),
			Email:          req.Email,
			Kind:           string(req.Pool),
			EmployeeNumber: employee,
			ReservationID:  id,
		})
	}
	return rows
}

func (c *Core) insertRows(ctx context.Context, pool model.PoolKind, rows []db.Reservation) error {
	release, err := c.lock(ctx, poolLockName(pool))
	if err != nil {
		return err
	}
	defer release()

	storeCtx, cancel := c.storeCtx(ctx)
	defer cancel()
	if err := c.Store.InsertReservations(storeCtx, pool, rows); err != nil {
		return fmt.Errorf("failed to store reservation: %w", err)
	}
	return nil
}

func (c *Core) sendConfirmation(logger *zap.Logger, req ReserveRequest, id, span string) {
	body, err := renderMail("confirmation", mailData{
		ReservationID: id,
		Campaign:      req.Campaign,
		Date:          model.DateOf(req.Start, c.loc()).Display(),
		Span:          span,
		Hours:         req.Hours,
		AppURL:        c.AppURL,
	})
	if err != nil {
		logger.Warn("Failed to render confirmation mail", zap.Error(err))
		return
	}
	c.notify(logger, req.Email, fmt.Sprintf(confirmationSubject, req.Pool), body)
}
