package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// serve runs server on ln until a signal arrives. It then calls onShutdown,
// drains in-flight requests for up to drainTimeout and only returns once the
// drain has finished.
func serve(server *http.Server, ln net.Listener, signals <-chan os.Signal, onShutdown func(), drainTimeout time.Duration, log *zerolog.Logger) error {
	shutdownErr := make(chan error, 1)
	go func() {
		sig, ok := <-signals
		if ok {
			log.Info().Str("signal", sig.String()).Msg("Shutting down...")
		}
		if onShutdown != nil {
			onShutdown()
		}

		ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
		defer cancel()
		shutdownErr <- server.Shutdown(ctx)
	}()

	// Serve returns as soon as Shutdown starts, not when it finishes
	if err := server.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}

	if err := <-shutdownErr; err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}
