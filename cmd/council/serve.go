package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/modelcouncil/council/internal/httpapi"
	"github.com/modelcouncil/council/pkg/metrics"
)

// ServeCmd starts the thin HTTP/SSE demo server: one deliberation endpoint
// plus /metrics, wired over the same Orchestrator the run command uses.
type ServeCmd struct {
	ConfigFile      string        `help:"YAML config file path." type:"existingfile" name:"config-file" required:""`
	Address         string        `help:"Override the configured listen address." name:"address"`
	ShutdownTimeout time.Duration `help:"Grace period for in-flight requests on shutdown." default:"10s" name:"shutdown-timeout"`
}

func (s *ServeCmd) Run() error {
	a, err := buildApp(s.ConfigFile)
	if err != nil {
		return err
	}

	addr := a.cfg.Server.Address
	if s.Address != "" {
		addr = s.Address
	}

	router := httpapi.NewRouter(a.orch, metrics.NewPrometheusExporter(a.counters).Handler(), a.cfg.CORS.AllowedOrigins)

	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("council serving", "address", addr)
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen and serve: %w", err)
		}
		return nil
	case <-ctx.Done():
		slog.Info("council shutting down", "timeout", s.ShutdownTimeout)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown: %w", err)
		}
		return nil
	}
}
