// Package app assembles the HTTP server.
package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ncobase/askflow/config"
	"github.com/ncobase/askflow/handler"
	"github.com/ncobase/askflow/job"
	"github.com/ncobase/askflow/logging/logger"
	"github.com/sirupsen/logrus"
)

// App is the runnable service.
type App struct {
	Config  *config.Config
	Logger  *logger.Logger
	Engine  *gin.Engine
	Manager *job.Manager
}

// NewApp builds the router around h.
func NewApp(cfg *config.Config, log *logger.Logger, h *handler.Handler, m *job.Manager) *App {
	return &App{
		Config:  cfg,
		Logger:  log,
		Engine:  NewEngine(cfg, log, h),
		Manager: m,
	}
}

// NewEngine creates the gin engine with recovery, tracing and access logs.
func NewEngine(cfg *config.Config, log *logger.Logger, h *handler.Handler) *gin.Engine {
	if cfg.IsDevelopment() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(traceMiddleware())
	r.Use(loggerMiddleware(log))
	h.Register(r)
	return r
}

// Run serves HTTP until ctx is done, then drains in-flight requests.
// Running jobs are drained by the worker pool cleanup afterwards.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         a.Config.Addr(),
		Handler:      a.Engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info(ctx, "Starting server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.Logger.Info(context.Background(), "Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.Logger.Error(shutdownCtx, "Server forced to shutdown", "error", err)
		return err
	}
	return nil
}

// OnConfigChange applies the settings that can change without a restart.
func (a *App) OnConfigChange(cfg *config.Config) {
	if cfg == nil || cfg.Logger == nil {
		return
	}
	a.Logger.SetLevel(logrus.Level(cfg.Logger.Level))
	a.Logger.Info(context.Background(), "Configuration reloaded", "log_level", cfg.Logger.Level)
}
