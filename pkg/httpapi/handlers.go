package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jakechorley/hourbank/pkg/core/model"
	"github.com/jakechorley/hourbank/pkg/core/services"
)

// Handler adapts HTTP requests to Service calls
type Handler struct {
	svc    Service
	loc    *time.Location
	logger *zap.Logger
	now    func() time.Time
}

func (h *Handler) location() *time.Location {
	if h.loc == nil {
		return time.Local
	}
	return h.loc
}

func (h *Handler) today() model.Date {
	now := time.Now
	if h.now != nil {
		now = h.now
	}
	return model.DateOf(now(), h.location())
}

func (h *Handler) pool(c *gin.Context) (model.PoolKind, bool) {
	pool, err := model.ParsePoolKind(c.Param("pool"))
	if err != nil {
		abortWithError(c, err)
		return "", false
	}
	return pool, true
}

func bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return false
	}
	return true
}

// Campaigns handles GET /api/pools/:pool/campaigns
func (h *Handler) Campaigns(c *gin.Context) {
	pool, ok := h.pool(c)
	if !ok {
		return
	}

	campaigns, err := h.svc.Campaigns(c.Request.Context(), pool)
	if err != nil {
		abortWithError(c, err)
		return
	}
	if campaigns == nil {
		campaigns = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"campaigns": campaigns})
}

// FreeSlots handles GET /api/pools/:pool/free-slots?campaign=&from=&to=
// A missing range covers the current day.
func (h *Handler) FreeSlots(c *gin.Context) {
	pool, ok := h.pool(c)
	if !ok {
		return
	}

	from := h.today().At(0, 0, h.location())
	to := from.AddDate(0, 0, 1)
	if raw := c.Query("from"); raw != "" {
		t, err := model.ParseInstant(raw, h.location())
		if err != nil {
			abortWithError(c, err)
			return
		}
		from = t
	}
	if raw := c.Query("to"); raw != "" {
		t, err := model.ParseInstant(raw, h.location())
		if err != nil {
			abortWithError(c, err)
			return
		}
		to = t
	}

	free, err := h.svc.ListFreeSlots(c.Request.Context(), pool, c.Query("campaign"), from, to)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"slots": toFreeSlots(free)})
}

// Reserve handles POST /api/reservations
func (h *Handler) Reserve(c *gin.Context) {
	var req reserveRequest
	if !bind(c, &req) {
		return
	}

	pool, err := model.ParsePoolKind(req.Pool)
	if err != nil {
		abortWithError(c, err)
		return
	}
	start, err := model.ParseInstant(req.Start, h.location())
	if err != nil {
		abortWithError(c, err)
		return
	}

	res, err := h.svc.Reserve(c.Request.Context(), services.ReserveRequest{
		Pool:     pool,
		Campaign: req.Campaign,
		Start:    start,
		Hours:    req.Hours,
		Email:    req.Email,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, reserveResponse{ReservationID: res.ReservationID, Keys: res.Keys(), Message: res.Message})
}

// Update handles PUT /api/reservations
func (h *Handler) Update(c *gin.Context) {
	var req updateRequest
	if !bind(c, &req) {
		return
	}

	start, err := model.ParseInstant(req.Start, h.location())
	if err != nil {
		abortWithError(c, err)
		return
	}

	res, err := h.svc.Update(c.Request.Context(), req.Key, services.UpdateFields{
		Campaign:      req.Campaign,
		Start:         start,
		Hours:         req.Hours,
		Slot:          req.Slot,
		Email:         req.Email,
		RequestStatus: req.RequestStatus,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, updateResponse{
		Pool:   res.Pool.String(),
		OldKey: res.OldKey,
		NewKey: res.NewKey,
		Row:    toReservation(res.Row),
	})
}

// Cancel handles POST /api/reservations/cancel
func (h *Handler) Cancel(c *gin.Context) {
	var req keyRequest
	if !bind(c, &req) {
		return
	}

	res, err := h.svc.Cancel(c.Request.Context(), req.Key)
	if err != nil {
		abortWithError(c, err)
		return
	}

	row := toReservation(res.Row)
	row.Pool = res.Pool.String()
	c.JSON(http.StatusOK, row)
}

// CancelBatch handles POST /api/reservations/cancel-batch
func (h *Handler) CancelBatch(c *gin.Context) {
	var req keysRequest
	if !bind(c, &req) {
		return
	}

	res, err := h.svc.CancelBatch(c.Request.Context(), req.Keys)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBatchCancel(res))
}

// MyReservations handles GET /api/reservations?email=
func (h *Handler) MyReservations(c *gin.Context) {
	email := strings.TrimSpace(c.Query("email"))
	if email == "" {
		badRequest(c, "email query parameter is required")
		return
	}

	owned, err := h.svc.MyReservations(c.Request.Context(), email)
	if err != nil {
		abortWithError(c, err)
		return
	}

	out := make([]reservationResponse, len(owned))
	for i, o := range owned {
		out[i] = toOwned(o)
	}
	c.JSON(http.StatusOK, gin.H{"reservations": out})
}

// Summary handles GET /api/reservations/summary?email=
func (h *Handler) Summary(c *gin.Context) {
	email := strings.TrimSpace(c.Query("email"))
	if email == "" {
		badRequest(c, "email query parameter is required")
		return
	}

	s, err := h.svc.Summarize(c.Request.Context(), email, h.today())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, toSummary(s))
}

// Review handles POST /api/reservations/review
func (h *Handler) Review(c *gin.Context) {
	var req reviewRequest
	if !bind(c, &req) {
		return
	}

	res, err := h.svc.Review(c.Request.Context(), req.Key, req.Validation)
	if err != nil {
		abortWithError(c, err)
		return
	}

	row := toReservation(res.Row)
	row.Pool = res.Pool.String()
	row.State = string(res.State)
	c.JSON(http.StatusOK, row)
}

// ExportLocker handles POST /api/locker/export. An empty body exports only when the pools changed.
func (h *Handler) ExportLocker(c *gin.Context) {
	var req exportRequest
	if c.Request.ContentLength > 0 && !bind(c, &req) {
		return
	}

	res, err := h.svc.ExportLocker(c.Request.Context(), req.Force)
	if err != nil {
		abortWithError(c, err)
		return
	}
	h.logger.Info("Locker export requested", zap.Bool("skipped", res.Skipped), zap.Int("rows", res.Rows))
	c.JSON(http.StatusOK, gin.H{"skipped": res.Skipped, "rows": res.Rows})
}
