package commands

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/teambition/rrule-go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jakechorley/hourbank/pkg/httpapi"
)

const shutdownTimeout = 10 * time.Second

// ServeCmd creates the serve command
func ServeCmd(app *AppContext) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the reservation API over HTTP",
		Long: `Serve the reservation API over HTTP until interrupted. When lockerExportRRule is set in
the config the locker export also runs on that schedule.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = app.Cfg.HTTPAddr
			}

			ctx, stop := signal.NotifyContext(app.Ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			gin.SetMode(gin.ReleaseMode)
			server := &http.Server{
				Addr:              addr,
				Handler:           httpapi.NewRouter(app.Core, app.location(), app.Logger),
				ReadHeaderTimeout: 10 * time.Second,
			}

			g, ctx := errgroup.WithContext(ctx)

			g.Go(func() error {
				app.Logger.Info("HTTP server listening", zap.String("addr", addr))
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("http server failed: %w", err)
				}
				return nil
			})

			g.Go(func() error {
				<-ctx.Done()
				app.Logger.Info("Shutting down HTTP server")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				return server.Shutdown(shutdownCtx)
			})

			if app.Cfg.LockerExportRRule != "" {
				rule, err := rrule.StrToRRule(app.Cfg.LockerExportRRule)
				if err != nil {
					return fmt.Errorf("invalid locker export rule: %w", err)
				}
				g.Go(func() error {
					if err := app.Core.RunLockerSchedule(ctx, rule); err != nil && !errors.Is(err, context.Canceled) {
						return err
					}
					return nil
				})
			}

			return g.Wait()
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default: httpAddr from the config)")

	return cmd
}
