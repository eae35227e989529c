package cli

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/99minutos/tracking-service/internal/api"
	"github.com/99minutos/tracking-service/internal/infrastructure/scheduler"
)

const shutdownTimeout = 15 * time.Second

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	NoSchedule bool
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the periodic sweep",
		Long: `Start the HTTP API and schedule a sweep over every non-delivered tracking
record on SWEEP_SCHEDULE. The process stops gracefully on SIGINT or SIGTERM.

Example:
  trackingd serve
  trackingd serve --no-schedule`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts)
		},
	}

	cmd.Flags().BoolVar(&opts.NoSchedule, "no-schedule", false, "serve HTTP only, without the periodic sweep")

	return cmd
}

func runServe(ctx context.Context, opts *ServeOptions) error {
	cfg, log := opts.Config, opts.Log

	a, err := newApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := a.Close(closeCtx); err != nil {
			log.Error().Err(err).Msg("closing dependencies")
		}
	}()

	e := api.NewRouter(api.Deps{
		Service:        a.service,
		Providers:      a.registry,
		ActiveProvider: cfg.Carrier.Provider,
		Health:         a.health,
		JWTSecret:      cfg.JWTSecret,
		Log:            log,
	})

	var sched *scheduler.Scheduler
	if !opts.NoSchedule {
		sched = scheduler.New(ctx, log)
		if err := sched.Add("sweep", cfg.Sweep.Schedule, sweepJob(a.service, log)); err != nil {
			return err
		}
		sched.Start()
	}

	srv := &http.Server{
		Addr:              net.JoinHostPort("", cfg.Port),
		Handler:           e,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return err
		}
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if sched != nil {
		if err := sched.Stop(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("sweep still running at shutdown")
		}
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	log.Info().Msg("server stopped")
	return nil
}
