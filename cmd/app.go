// Package cmd wires configuration, storage, the HTTP API and the outbox relay into a runnable App
package cmd

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"dddkit/api"
	"dddkit/application"
	"dddkit/config"
	"dddkit/infrastructure/persistence/gormstore"
	"dddkit/pkg/logger"
)

const (
	healthCheckInterval    = 30 * time.Second
	defaultShutdownTimeout = 10 * time.Second
)

// App holds the long-lived components of a process
type App struct {
	config  *config.Config
	db      *gorm.DB
	uows    *gormstore.UnitOfWorkFactory
	worker  *gormstore.OutboxWorker
	router  *api.Router
	server  *http.Server
	closers []func() error
}

// UnitOfWork starts a fresh unit of work; create one per request or job
func (a *App) UnitOfWork() *gormstore.UnitOfWork {
	return a.uows.New()
}

// Session opens a unit of work with the order and customer repositories bound to it.
// It satisfies application.SessionFactory.
func (a *App) Session() (*application.Session, error) {
	uow := a.uows.New()
	orders, err := gormstore.NewOrderRepository(uow)
	if err != nil {
		return nil, err
	}
	customers, err := gormstore.NewCustomerRepository(uow)
	if err != nil {
		return nil, err
	}
	return &application.Session{UnitOfWork: uow, Orders: orders, Customers: customers}, nil
}

func (a *App) DB() *gorm.DB {
	return a.db
}

// Handler is the HTTP API, usable without starting the server
func (a *App) Handler() http.Handler {
	return a.router.GetEngine()
}

// Run runs the HTTP server, the outbox worker and the database health check until
// ctx is cancelled. The server is shut down gracefully within Server.ShutdownTimeout.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	if a.server != nil {
		g.Go(func() error {
			logger.Info("HTTP server started", zap.String("addr", a.server.Addr))
			if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			timeout := a.config.Server.ShutdownTimeout
			if timeout <= 0 {
				timeout = defaultShutdownTimeout
			}
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
			defer cancel()
			err := a.server.Shutdown(shutdownCtx)
			logger.Info("HTTP server stopped")
			return err
		})
	}

	if a.worker != nil {
		g.Go(func() error {
			logger.Info("Outbox worker started",
				zap.Duration("poll_interval", a.config.Outbox.PollInterval),
				zap.Int("batch_size", a.config.Outbox.BatchSize),
				zap.Int("max_retries", a.config.Outbox.MaxRetries),
			)
			err := a.worker.Run(ctx)
			logger.Info("Outbox worker stopped")
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}

	g.Go(func() error {
		ticker := time.NewTicker(healthCheckInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				if err := gormstore.Ping(ctx, a.db); err != nil && ctx.Err() == nil {
					logger.Warn("Database health check failed", zap.Error(err))
				}
			}
		}
	})

	return g.Wait()
}

// Close releases connections in reverse order of acquisition
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	_ = logger.Sync()
	return errors.Join(errs...)
}
