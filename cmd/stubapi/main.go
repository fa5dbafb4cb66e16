// Command stubapi serves a local document-create endpoint for running the
// examples without access to the real API.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mhpenta/crptapi/internal/config"
	"github.com/mhpenta/crptapi/internal/stubapi"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logger := cfg.Logger()

	stub := stubapi.New(stubapi.WithLogger(logger), stubapi.WithLatency(20*time.Millisecond))

	srv := &http.Server{
		Addr:              cfg.Stub.Addr,
		Handler:           stub.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("stub API listening", "addr", cfg.Stub.Addr)
		if err := srv.ListenAndServe(); err != nil {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err.Error())
	}
	logger.Info("stub API stopped",
		"accepted", stub.Accepted(),
		"rejected", stub.Rejected(),
	)
}
