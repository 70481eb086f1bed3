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

	"go.uber.org/zap"

	"github.com/pillapp/pillapp-api/api/handlers"
	"github.com/pillapp/pillapp-api/config"
)

const shutdownTimeout = 15 * time.Second

func main() {
	a := handlers.App{}
	a.Config = *config.New()
	defer func() { _ = zap.L().Sync() }()

	// initialize database, router and scheduler
	if err := a.Initialize(); err != nil {
		zap.S().Fatalw("failed to initialize pillapp-api", "error", err)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%v", a.Config.Port),
		Handler:           a.Handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zap.S().Infow("pillapp-api is up and running",
			"port", a.Config.Port,
			"url", a.Config.BaseURL,
			"env", a.Config.Env,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zap.S().Fatalw("server stopped unexpectedly", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	zap.S().Infow("shutting down", "signal", sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zap.S().Errorw("failed to shut down http server", "error", err)
	}
	if err := a.Close(ctx); err != nil {
		zap.S().Errorw("failed to close app", "error", err)
	}
	zap.S().Info("pillapp-api stopped")
}
