// Package server runs the API process: HTTP, the gRPC health endpoint, the
// websocket hub and, optionally, in-process queue workers and the
// scheduler. Everything stops when the context ends.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/shashiranjanraj/panaya/app/routes"
	"github.com/shashiranjanraj/panaya/config"
	"github.com/shashiranjanraj/panaya/internal/bootstrap"
	"github.com/shashiranjanraj/panaya/internal/kernel"
	"github.com/shashiranjanraj/panaya/pkg/logger"
)

type Options struct {
	Port     string
	GRPCPort string // empty disables gRPC
	Workers  int    // in-process queue workers; 0 leaves jobs to queue:work
	Schedule bool

	ShutdownTimeout time.Duration
}

func OptionsFromConfig() Options {
	return Options{
		Port:            config.AppPort(),
		GRPCPort:        config.GRPCPort(),
		Workers:         config.GetInt("QUEUE_WORKERS"),
		Schedule:        true,
		ShutdownTimeout: 15 * time.Second,
	}
}

// Handler builds the HTTP kernel for a.
func Handler(a *bootstrap.App) (*kernel.HTTP, error) {
	return kernel.New(routes.Deps{
		Services:      a.Services,
		Broker:        a.Broker,
		Hub:           a.Hub,
		ProofMaxBytes: config.ProofMaxBytes(),
		Ready:         a.Ready,
	})
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func Run(ctx context.Context, a *bootstrap.App, opts Options) error {
	k, err := Handler(a)
	if err != nil {
		return err
	}
	defer k.Stop()

	go a.Hub.Run(ctx)
	go a.Health.Watch(ctx, 15*time.Second)

	if opts.GRPCPort != "" {
		if _, err := a.Health.Listen(opts.GRPCPort); err != nil {
			return err
		}
		defer a.Health.Stop()
	}
	if opts.Workers > 0 {
		a.Queue.StartWorkers(ctx, opts.Workers)
	}
	if opts.Schedule {
		if err := a.Scheduler.Start(ctx); err != nil {
			return err
		}
	}

	srv := &http.Server{
		Addr:              ":" + opts.Port,
		Handler:           k.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("http: listening", "addr", srv.Addr, "env", config.AppEnv())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- fmt.Errorf("http: %w", err)
		}
		close(errc)
	}()

	select {
	case err, ok := <-errc:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("http: shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), opts.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return fmt.Errorf("http: shutdown: %w", err)
	}
	return nil
}
