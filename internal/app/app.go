package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/sandeepkv93/endorsement-backend/internal/config"
	"github.com/sandeepkv93/endorsement-backend/internal/observability"
)

type App struct {
	Config        *config.Config
	Logger        *slog.Logger
	Server        *http.Server
	Observability *observability.Runtime
	DB            *gorm.DB
	Redis         redis.UniversalClient
	// Closers are released after the HTTP server drains, in order.
	Closers []io.Closer
	Workers []Worker

	workersWG     sync.WaitGroup
	cancelWorkers context.CancelFunc
}

// Worker is a background loop that returns once its context is cancelled.
type Worker func(ctx context.Context)

func New(
	cfg *config.Config,
	logger *slog.Logger,
	server *http.Server,
	runtime *observability.Runtime,
	db *gorm.DB,
	redisClient redis.UniversalClient,
	closers []io.Closer,
	workers []Worker,
) *App {
	return &App{
		Config:        cfg,
		Logger:        logger,
		Server:        server,
		Observability: runtime,
		DB:            db,
		Redis:         redisClient,
		Closers:       closers,
		Workers:       workers,
	}
}

// Run serves until ctx is cancelled, then shuts down within the configured budgets.
func (a *App) Run(ctx context.Context) error {
	a.startWorkers(ctx)

	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info("server starting", "addr", a.Server.Addr, "env", a.Config.Env)
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			a.shutdown()
			return err
		}
	case <-ctx.Done():
		a.Logger.Info("shutdown requested")
	}
	a.shutdown()
	return nil
}

func (a *App) shutdown() {
	totalCtx, totalCancel := context.WithTimeout(context.Background(), durationOr(a.Config.ShutdownTimeout, 20*time.Second))
	defer totalCancel()

	httpCtx, httpCancel := context.WithTimeout(totalCtx, durationOr(a.Config.ShutdownHTTPDrainTimeout, 10*time.Second))
	if err := a.Server.Shutdown(httpCtx); err != nil {
		a.Logger.Error("failed to shutdown http server", "error", err)
	}
	httpCancel()

	a.stopWorkers()

	for _, c := range a.Closers {
		if err := c.Close(); err != nil {
			a.Logger.Error("failed to close dependency", "error", err)
		}
	}

	if a.Observability != nil {
		obsCtx, obsCancel := context.WithTimeout(totalCtx, durationOr(a.Config.ShutdownObservabilityTimeout, 8*time.Second))
		if err := a.Observability.Shutdown(obsCtx); err != nil {
			a.Logger.Error("failed to shutdown observability", "error", err)
		}
		obsCancel()
	}

	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.Logger.Error("failed to close redis client", "error", err)
		}
	}
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				a.Logger.Error("failed to close database connection", "error", err)
			}
		}
	}
	a.Logger.Info("shutdown complete")
}

func (a *App) startWorkers(parent context.Context) {
	workerCtx, cancel := context.WithCancel(context.WithoutCancel(parent))
	a.cancelWorkers = cancel
	for _, w := range a.Workers {
		if w == nil {
			continue
		}
		a.workersWG.Add(1)
		go func(run Worker) {
			defer a.workersWG.Done()
			run(workerCtx)
		}(w)
	}
}

func (a *App) stopWorkers() {
	if a.cancelWorkers == nil {
		return
	}
	a.cancelWorkers()
	a.workersWG.Wait()
}

func durationOr(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return d
}
