package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jakechorley/hourbank/pkg/core/model"
	"github.com/jakechorley/hourbank/pkg/core/services"
	"github.com/jakechorley/hourbank/pkg/core/slots"
)

// Service is the set of core operations exposed over HTTP. *services.Core implements it.
type Service interface {
	ListFreeSlots(ctx context.Context, pool model.PoolKind, campaign string, from, to time.Time) ([]slots.FreeSlot, error)
	Campaigns(ctx context.Context, pool model.PoolKind) ([]string, error)
	Reserve(ctx context.Context, req services.ReserveRequest) (*services.ReserveResult, error)
	Cancel(ctx context.Context, key string) (*services.CancelResult, error)
	CancelBatch(ctx context.Context, keys []string) (*services.BatchCancelResult, error)
	Update(ctx context.Context, key string, fields services.UpdateFields) (*services.UpdateResult, error)
	MyReservations(ctx context.Context, email string) ([]services.OwnedReservation, error)
	Summarize(ctx context.Context, email string, today model.Date) (*services.Summary, error)
	Review(ctx context.Context, key, validation string) (*services.ReviewResult, error)
	ExportLocker(ctx context.Context, force bool) (*services.LockerExportResult, error)
}

type route struct {
	Method  string
	Path    string
	Handler gin.HandlerFunc
}

// NewRouter builds the gin engine serving the reservation API. Instants without an offset are
// read in loc.
func NewRouter(svc Service, loc *time.Location, logger *zap.Logger) *gin.Engine {
	engine := gin.New()
	h := &Handler{svc: svc, loc: loc, logger: logger}

	// Recovery must be outermost to catch panics from the other middleware
	engine.Use(Recovery(logger))
	engine.Use(RequestLogger(logger))

	engine.GET("/health", healthCheck)

	api := engine.Group("/api")
	addRoutes(api, []route{
		{Method: http.MethodGet, Path: "/pools/:pool/campaigns", Handler: h.Campaigns},
		{Method: http.MethodGet, Path: "/pools/:pool/free-slots", Handler: h.FreeSlots},
		{Method: http.MethodPost, Path: "/reservations", Handler: h.Reserve},
		{Method: http.MethodGet, Path: "/reservations", Handler: h.MyReservations},
		{Method: http.MethodGet, Path: "/reservations/summary", Handler: h.Summary},
		{Method: http.MethodPut, Path: "/reservations", Handler: h.Update},
		{Method: http.MethodPost, Path: "/reservations/cancel", Handler: h.Cancel},
		{Method: http.MethodPost, Path: "/reservations/cancel-batch", Handler: h.CancelBatch},
		{Method: http.MethodPost, Path: "/reservations/review", Handler: h.Review},
		{Method: http.MethodPost, Path: "/locker/export", Handler: h.ExportLocker},
	})

	return engine
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func addRoutes(g *gin.RouterGroup, rs []route) {
	for _, r := range rs {
		g.Handle(r.Method, r.Path, r.Handler)
	}
}
