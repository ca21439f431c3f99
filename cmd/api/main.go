package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"videotube-accounts/internal/app"
	"videotube-accounts/internal/observability"
)

const shutdownTimeout = 10 * time.Second

func main() {
	runtime, err := app.Build(app.Options{LoadDotEnv: true})
	if err != nil {
		observability.NewLogger("info").Error("bootstrap_failed", map[string]any{"error": err.Error()})
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", runtime.Config.Port),
		Handler:           runtime.Handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	runtime.Logger.Info("server_start", map[string]any{"addr": srv.Addr, "env": runtime.Config.AppEnv})
	serveErr := serve(srv, quit, runtime.Logger)
	_ = runtime.Close()
	if serveErr != nil {
		os.Exit(1)
	}
}

// serve runs srv until it fails or a signal arrives on quit, then shuts it down.
func serve(srv *http.Server, quit <-chan os.Signal, logger *observability.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			logger.Error("server_failed", map[string]any{"error": err.Error()})
			return err
		}
		return nil
	case <-quit:
	}
	logger.Info("server_shutdown", nil)

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server_forced_shutdown", map[string]any{"error": err.Error()})
		return err
	}
	return nil
}
