package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jakechorley/hourbank/pkg/core/model"
	"github.com/jakechorley/hourbank/pkg/core/services"
	"github.com/jakechorley/hourbank/pkg/core/slots"
	"github.com/jakechorley/hourbank/pkg/db"
)

type fakeService struct {
	err error

	gotPool     model.PoolKind
	gotCampaign string
	gotFrom     time.Time
	gotTo       time.Time
	gotReserve  services.ReserveRequest
	gotKey      string
	gotKeys     []string
	gotFields   services.UpdateFields
	gotForce    bool
	gotToday    model.Date
	gotReview   string
	panicOnCall bool
}

func (f *fakeService) ListFreeSlots(ctx context.Context, pool model.PoolKind, campaign string, from, to time.Time) ([]slots.FreeSlot, error) {
	f.gotPool, f.gotCampaign, f.gotFrom, f.gotTo = pool, campaign, from, to
	if f.err != nil {
		return nil, f.err
	}
	return []slots.FreeSlot{{Campaign: "Ventas", Label: "09:00-10:00", Start: from, End: from.Add(time.Hour), Remaining: 2}}, nil
}

func (f *fakeService) Campaigns(ctx context.Context, pool model.PoolKind) ([]string, error) {
	if f.panicOnCall {
		panic("boom")
	}
	f.gotPool = pool
	return []string{"Soporte", "Ventas"}, f.err
}

func (f *fakeService) Reserve(ctx context.Context, req services.ReserveRequest) (*services.ReserveResult, error) {
	f.gotReserve = req
	if f.err != nil {
		return nil, f.err
	}
	return &services.ReserveResult{
		ReservationID: "BH00000007",
		Rows:          []db.Reservation{{Key: "k1"}, {Key: "k2"}},
		Message:       "registered",
	}, nil
}

func (f *fakeService) Cancel(ctx context.Context, key string) (*services.CancelResult, error) {
	f.gotKey = key
	if f.err != nil {
		return nil, f.err
	}
	return &services.CancelResult{Pool: model.PoolRest, Row: db.Reservation{Key: key, ReservationID: "BH00000007"}}, nil
}

func (f *fakeService) CancelBatch(ctx context.Context, keys []string) (*services.BatchCancelResult, error) {
	f.gotKeys = keys
	if f.err != nil {
		return nil, f.err
	}
	return &services.BatchCancelResult{Cancelled: keys[:1], NotFound: keys[1:]}, nil
}

func (f *fakeService) Update(ctx context.Context, key string, fields services.UpdateFields) (*services.UpdateResult, error) {
	f.gotKey, f.gotFields = key, fields
	if f.err != nil {
		return nil, f.err
	}
	return &services.UpdateResult{Pool: model.PoolWork, OldKey: key, NewKey: "new", Row: db.Reservation{Key: "new"}}, nil
}

func (f *fakeService) MyReservations(ctx context.Context, email string) ([]services.OwnedReservation, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []services.OwnedReservation{
		{Pool: model.PoolWork, State: model.StateApproved, Row: db.Reservation{Key: "w", Email: email}},
	}, nil
}

func (f *fakeService) Summarize(ctx context.Context, email string, today model.Date) (*services.Summary, error) {
	f.gotToday = today
	return &services.Summary{
		Total:         3,
		UpcomingCount: 1,
		Upcoming: []services.OwnedReservation{
			{Pool: model.PoolWork, State: model.StatePending, Row: db.Reservation{Key: "w", Date: "12/06/2024", Email: email}},
		},
		Hours:   map[model.PoolKind]int{model.PoolWork: 3},
		Balance: -3,
		Monthly: []services.MonthHours{{Year: 2024, Month: time.May}, {Year: 2024, Month: time.June, Hours: 3}},
	}, f.err
}

func (f *fakeService) Review(ctx context.Context, key, validation string) (*services.ReviewResult, error) {
	f.gotKey, f.gotReview = key, validation
	if f.err != nil {
		return nil, f.err
	}
	return &services.ReviewResult{Pool: model.PoolWork, State: model.StateCancelled, Row: db.Reservation{Key: key, Validation: validation}}, nil
}

func (f *fakeService) ExportLocker(ctx context.Context, force bool) (*services.LockerExportResult, error) {
	f.gotForce = force
	if f.err != nil {
		return nil, f.err
	}
	return &services.LockerExportResult{Rows: 4}, nil
}

func setupRouter(svc *fakeService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return NewRouter(svc, time.UTC, zap.NewNop())
}

func doJSON(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestHealth(t *testing.T) {
	w := doJSON(t, setupRouter(&fakeService{}), http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestFreeSlots(t *testing.T) {
	svc := &fakeService{}

	w := doJSON(t, setupRouter(svc), http.MethodGet,
		"/api/pools/trabajar/free-slots?campaign=Ventas&from=2024-06-10T08:00&to=2024-06-10T12:00", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, model.PoolWork, svc.gotPool)
	assert.Equal(t, "Ventas", svc.gotCampaign)
	assert.Equal(t, time.Date(2024, time.June, 10, 8, 0, 0, 0, time.UTC), svc.gotFrom)
	assert.Equal(t, time.Date(2024, time.June, 10, 12, 0, 0, 0, time.UTC), svc.gotTo)

	body := decode[struct {
		Slots []freeSlotResponse `json:"slots"`
	}](t, w)
	require.Len(t, body.Slots, 1)
	assert.Equal(t, "09:00-10:00", body.Slots[0].Label)
	assert.Equal(t, 2, body.Slots[0].Remaining)
}

func TestFreeSlots_BadInput(t *testing.T) {
	r := setupRouter(&fakeService{})

	w := doJSON(t, r, http.MethodGet, "/api/pools/holiday/free-slots", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/pools/work/free-slots?from=yesterday", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "validation", decode[ErrorResponse](t, w).Error.Code)
}

func TestCampaigns(t *testing.T) {
	svc := &fakeService{}

	w := doJSON(t, setupRouter(svc), http.MethodGet, "/api/pools/overtime/campaigns", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, model.PoolOvertime, svc.gotPool)
	assert.JSONEq(t, `{"campaigns":["Soporte","Ventas"]}`, w.Body.String())
}

func TestReserve(t *testing.T) {
	svc := &fakeService{}

	w := doJSON(t, setupRouter(svc), http.MethodPost, "/api/reservations", map[string]any{
		"pool": "rest", "campaign": "Ventas", "start": "2024-06-10T09:00:00+02:00", "hours": 2, "email": "ana@example.com",
	})

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, model.PoolRest, svc.gotReserve.Pool)
	assert.Equal(t, 2, svc.gotReserve.Hours)
	assert.True(t, svc.gotReserve.Start.Equal(time.Date(2024, time.June, 10, 7, 0, 0, 0, time.UTC)))

	body := decode[reserveResponse](t, w)
	assert.Equal(t, "BH00000007", body.ReservationID)
	assert.Equal(t, []string{"k1", "k2"}, body.Keys)
}

func TestReserve_RejectsInvalidBody(t *testing.T) {
	tests := []struct {
		name string
		body map[string]any
	}{
		{"missing campaign", map[string]any{"pool": "work", "start": "2024-06-10T09:00", "hours": 1, "email": "ana@example.com"}},
		{"zero hours", map[string]any{"pool": "work", "campaign": "Ventas", "start": "2024-06-10T09:00", "hours": 0, "email": "ana@example.com"}},
		{"bad email", map[string]any{"pool": "work", "campaign": "Ventas", "start": "2024-06-10T09:00", "hours": 1, "email": "ana"}},
		{"bad pool", map[string]any{"pool": "holiday", "campaign": "Ventas", "start": "2024-06-10T09:00", "hours": 1, "email": "ana@example.com"}},
		{"bad start", map[string]any{"pool": "work", "campaign": "Ventas", "start": "soon", "hours": 1, "email": "ana@example.com"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeService{}
			w := doJSON(t, setupRouter(svc), http.MethodPost, "/api/reservations", tt.body)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Empty(t, svc.gotReserve.Campaign, "service must not be called")
		})
	}
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		status    int
		code      string
		retryable bool
	}{
		{"policy", model.PolicyError("overtime is not available for Ventas"), http.StatusForbidden, "policy", false},
		{"availability", model.AvailabilityConflict([]string{"11:00-12:00"}), http.StatusConflict, "availability", false},
		{"not found", model.NotFoundError("no reservation"), http.StatusNotFound, "not_found", false},
		{"lock timeout", model.LockTimeoutError("reservation-id", time.Second, context.DeadlineExceeded), http.StatusServiceUnavailable, "lock_timeout", true},
		{"internal", assert.AnError, http.StatusInternalServerError, "internal", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeService{err: tt.err}
			w := doJSON(t, setupRouter(svc), http.MethodPost, "/api/reservations", map[string]any{
				"pool": "work", "campaign": "Ventas", "start": "2024-06-10T09:00", "hours": 1, "email": "ana@example.com",
			})

			require.Equal(t, tt.status, w.Code)
			body := decode[ErrorResponse](t, w)
			assert.Equal(t, tt.code, body.Error.Code)
			assert.Equal(t, tt.retryable, body.Error.Retryable)
			assert.NotEmpty(t, body.Error.Message)
			if tt.code == "internal" {
				assert.NotContains(t, body.Error.Message, assert.AnError.Error())
			}
		})
	}
}

func TestUpdate(t *testing.T) {
	svc := &fakeService{}

	w := doJSON(t, setupRouter(svc), http.MethodPut, "/api/reservations", map[string]any{
		"key": "old", "campaign": "Soporte", "start": "2024-06-11 14:00", "hours": 2, "request_status": "done",
	})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "old", svc.gotKey)
	assert.Equal(t, "Soporte", svc.gotFields.Campaign)
	assert.Equal(t, time.Date(2024, time.June, 11, 14, 0, 0, 0, time.UTC), svc.gotFields.Start)
	assert.Equal(t, "done", svc.gotFields.RequestStatus)

	body := decode[updateResponse](t, w)
	assert.Equal(t, "Work", body.Pool)
	assert.Equal(t, "new", body.NewKey)
}

func TestCancel(t *testing.T) {
	svc := &fakeService{}

	w := doJSON(t, setupRouter(svc), http.MethodPost, "/api/reservations/cancel", map[string]any{"key": "k1"})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "k1", svc.gotKey)
	body := decode[reservationResponse](t, w)
	assert.Equal(t, "Rest", body.Pool)
	assert.Equal(t, "BH00000007", body.ReservationID)
}

func TestCancel_MissingKey(t *testing.T) {
	w := doJSON(t, setupRouter(&fakeService{}), http.MethodPost, "/api/reservations/cancel", map[string]any{})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCancelBatch(t *testing.T) {
	svc := &fakeService{}

	w := doJSON(t, setupRouter(svc), http.MethodPost, "/api/reservations/cancel-batch", map[string]any{"keys": []string{"a", "b"}})

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"cancelled":["a"],"not_found":["b"],"failed":{}}`, w.Body.String())
}

func TestMyReservationsAndSummary(t *testing.T) {
	svc := &fakeService{}
	r := setupRouter(svc)

	w := doJSON(t, r, http.MethodGet, "/api/reservations?email=ana@example.com", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[struct {
		Reservations []reservationResponse `json:"reservations"`
	}](t, w)
	require.Len(t, list.Reservations, 1)
	assert.Equal(t, "Work", list.Reservations[0].Pool)
	assert.Equal(t, "Approved", list.Reservations[0].State)

	w = doJSON(t, r, http.MethodGet, "/api/reservations/summary?email=ana@example.com", nil)
	require.Equal(t, http.StatusOK, w.Code)
	summary := decode[summaryResponse](t, w)
	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 1, summary.UpcomingCount)
	require.Len(t, summary.Upcoming, 1)
	assert.Equal(t, "w", summary.Upcoming[0].Key)
	assert.Equal(t, "Work", summary.Upcoming[0].Pool)
	assert.Equal(t, "Pending", summary.Upcoming[0].State)
	assert.Equal(t, map[string]int{"Work": 3}, summary.Hours)
	assert.Equal(t, -3, summary.Balance)
	assert.Equal(t, []monthHoursResponse{{Month: "2024-05", Hours: 0}, {Month: "2024-06", Hours: 3}}, summary.Monthly)
	assert.False(t, svc.gotToday.IsZero())

	w = doJSON(t, r, http.MethodGet, "/api/reservations", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReview(t *testing.T) {
	svc := &fakeService{}

	w := doJSON(t, setupRouter(svc), http.MethodPost, "/api/reservations/review", map[string]any{"key": "k", "validation": "KO"})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "KO", svc.gotReview)
	assert.Equal(t, "Cancelled", decode[reservationResponse](t, w).State)
}

func TestExportLocker(t *testing.T) {
	svc := &fakeService{}
	r := setupRouter(svc)

	w := doJSON(t, r, http.MethodPost, "/api/locker/export", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, svc.gotForce)

	w = doJSON(t, r, http.MethodPost, "/api/locker/export", map[string]any{"force": true})
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, svc.gotForce)
	assert.JSONEq(t, `{"skipped":false,"rows":4}`, w.Body.String())
}

func TestRecovery(t *testing.T) {
	w := doJSON(t, setupRouter(&fakeService{panicOnCall: true}), http.MethodGet, "/api/pools/work/campaigns", nil)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "internal", decode[ErrorResponse](t, w).Error.Code)
}
