package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	httpapi "github.com/tbourn/go-outreach/internal/http"
	"github.com/tbourn/go-outreach/internal/jobs"
	"github.com/tbourn/go-outreach/internal/observability"
)

const shutdownTimeout = 15 * time.Second

// ServeCmd returns the serve command: admin API plus scheduled jobs.
func ServeCmd() *cobra.Command {
	var (
		skipVerify bool
		noJobs     bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the admin API and the scheduled send and reply jobs",
		Long: `Start the HTTP admin API and the cron jobs that send batches during
business hours and poll the inbox for replies. SIGINT or SIGTERM stop the
jobs, cancel an in-flight batch and drain HTTP connections.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.close()
			cfg := a.cfg

			shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, Version)
			if err != nil {
				return err
			}
			defer func() {
				sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				if err := shutdownOTel(sctx); err != nil {
					log.Warn().Err(err).Msg("otel shutdown")
				}
			}()

			tr, err := a.transport(ctx)
			if err != nil {
				return err
			}
			if !skipVerify {
				if err := tr.Verify(ctx); err != nil {
					return err
				}
				log.Info().Str("provider", cfg.Mail.Provider).Msg("mail transport verified")
			}
			sched := a.scheduler(tr)

			// Background batch runs started over HTTP share this context.
			runCtx, cancelRuns := context.WithCancel(context.Background())
			defer cancelRuns()

			var runner *jobs.Runner
			if !noJobs {
				var rc jobs.ReplyChecker
				if ch := a.checker(); ch != nil {
					rc = ch
				} else {
					log.Info().Msg("IMAP_HOST not set, reply checking disabled")
				}
				runner = jobs.New(cfg.Campaign.Location, sched, rc)
				if err := runner.Schedule(cfg.Jobs.SendSchedule, cfg.Jobs.ReplySchedule); err != nil {
					return err
				}
				runner.Start()
			}

			gin.SetMode(cfg.GinMode)
			r := gin.New()
			httpapi.RegisterRoutes(r, httpapi.Deps{
				Store:     a.store,
				Scheduler: sched,
				Replies:   a.replies(),
				RunCtx:    runCtx,
			}, cfg)

			srv := &http.Server{
				Addr:              ":" + cfg.Port,
				Handler:           r,
				ReadTimeout:       cfg.ReadTimeout,
				ReadHeaderTimeout: cfg.ReadHeaderTimeout,
				WriteTimeout:      cfg.WriteTimeout,
				IdleTimeout:       cfg.IdleTimeout,
				MaxHeaderBytes:    cfg.MaxHeaderBytes,
			}

			errCh := make(chan error, 1)
			go func() {
				log.Info().Str("addr", srv.Addr).Str("base_path", cfg.APIBasePath).Msg("http server listening")
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			var serveErr error
			select {
			case <-ctx.Done():
				log.Info().Msg("shutdown requested")
			case serveErr = <-errCh:
				log.Error().Err(serveErr).Msg("http server failed")
			}

			sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if runner != nil {
				if err := runner.Stop(sctx); err != nil {
					log.Warn().Err(err).Msg("jobs did not stop in time")
				}
			}
			cancelRuns()
			if err := srv.Shutdown(sctx); err != nil {
				log.Warn().Err(err).Msg("http shutdown")
			}
			log.Info().Msg("stopped")
			return serveErr
		},
	}

	cmd.Flags().BoolVar(&skipVerify, "skip-verify", false, "start without verifying the mail transport")
	cmd.Flags().BoolVar(&noJobs, "no-jobs", false, "serve the API only, without cron jobs")
	return cmd
}
