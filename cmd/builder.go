package cmd

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"dddkit/api"
	apicustomer "dddkit/api/customer"
	"dddkit/api/health"
	apiorder "dddkit/api/order"
	customerapp "dddkit/application/customer"
	orderapp "dddkit/application/order"
	"dddkit/config"
	"dddkit/domain/shared"
	"dddkit/infrastructure/messaging"
	"dddkit/infrastructure/messaging/redisstream"
	"dddkit/infrastructure/persistence/gormstore"
	"dddkit/infrastructure/persistence/retry"
	"dddkit/pkg/logger"
)

// AppBuilder builds an App with customizable components
type AppBuilder struct {
	cfg         *config.Config
	db          *gorm.DB
	publisher   messaging.Publisher
	dispatcher  shared.EventDispatcher
	controllers []api.ControllerRegister
	migrate     bool
}

// NewBuilder creates a new AppBuilder
func NewBuilder(cfg *config.Config) *AppBuilder {
	return &AppBuilder{cfg: cfg}
}

// WithDB uses an already opened database instead of connecting from config
func (b *AppBuilder) WithDB(db *gorm.DB) *AppBuilder {
	b.db = db
	return b
}

// WithPublisher overrides the outbox publisher chosen by config
func (b *AppBuilder) WithPublisher(p messaging.Publisher) *AppBuilder {
	b.publisher = p
	return b
}

// WithDispatcher delivers committed events in process as well
func (b *AppBuilder) WithDispatcher(d shared.EventDispatcher) *AppBuilder {
	b.dispatcher = d
	return b
}

// WithController mounts an extra controller next to the default ones
func (b *AppBuilder) WithController(c api.ControllerRegister) *AppBuilder {
	b.controllers = append(b.controllers, c)
	return b
}

// WithAutoMigrate migrates the schema outside development too
func (b *AppBuilder) WithAutoMigrate() *AppBuilder {
	b.migrate = true
	return b
}

// Build connects, migrates and wires the unit of work factory, the outbox worker and the HTTP router
func (b *AppBuilder) Build(ctx context.Context) (*App, error) {
	logger.Info("Starting application",
		zap.String("app", b.cfg.App.Name),
		zap.String("version", b.cfg.App.Version),
		zap.String("env", b.cfg.App.Env))

	app := &App{config: b.cfg, db: b.db}
	if app.db == nil {
		db, err := gormstore.Connect(b.cfg.Database)
		if err != nil {
			return nil, err
		}
		app.db = db
		app.closers = append(app.closers, func() error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		})
	}
	if err := gormstore.Ping(ctx, app.db); err != nil {
		_ = app.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if b.migrate || b.cfg.IsDevelopment() {
		if err := gormstore.AutoMigrate(app.db); err != nil {
			_ = app.Close()
			return nil, err
		}
	}

	opts := []gormstore.Option{gormstore.WithRetryConfig(retry.FromAppConfig(b.cfg))}
	if b.dispatcher != nil {
		opts = append(opts, gormstore.WithDispatcher(b.dispatcher))
	}

	var outbox *gormstore.OutboxRepository
	if b.cfg.Outbox.Enabled {
		outbox = gormstore.NewOutboxRepository(app.db)
		opts = append(opts, gormstore.WithOutbox(outbox))

		publisher, err := b.outboxPublisher(app)
		if err != nil {
			_ = app.Close()
			return nil, err
		}
		worker, err := gormstore.NewOutboxWorker(outbox, publisher, b.cfg.Outbox)
		if err != nil {
			_ = app.Close()
			return nil, fmt.Errorf("failed to create outbox worker: %w", err)
		}
		app.worker = worker
	}

	app.uows = gormstore.NewUnitOfWorkFactory(app.db, opts...)

	controllers := append([]api.ControllerRegister{
		health.NewController(b.cfg, app.db, outbox),
		apicustomer.NewController(customerapp.NewApplicationService(app.Session)),
		apiorder.NewController(orderapp.NewApplicationService(app.Session)),
	}, b.controllers...)
	app.router = api.NewRouter(b.cfg, controllers...)
	app.router.SetupRoutes()

	if b.cfg.Server.Enabled {
		app.server = &http.Server{
			Addr:         ":" + b.cfg.Server.Port,
			Handler:      app.router.GetEngine(),
			ReadTimeout:  b.cfg.Server.ReadTimeout,
			WriteTimeout: b.cfg.Server.WriteTimeout,
		}
	}
	return app, nil
}

func (b *AppBuilder) outboxPublisher(app *App) (messaging.Publisher, error) {
	if b.publisher != nil {
		return b.publisher, nil
	}

	switch b.cfg.Outbox.Publisher {
	case "redis":
		client := redisstream.NewClient(b.cfg.Outbox.Redis)
		app.closers = append(app.closers, client.Close)
		logger.Info("Publishing outbox events to Redis stream",
			zap.String("addr", b.cfg.Outbox.Redis.Addr),
			zap.String("stream", b.cfg.Outbox.Redis.Stream))
		return redisstream.NewPublisher(client, b.cfg.Outbox.Redis.Stream, b.cfg.Outbox.Redis.MaxLen)
	case "", "log":
		return messaging.LoggingPublisher{}, nil
	}
	return nil, fmt.Errorf("unsupported outbox publisher %q", b.cfg.Outbox.Publisher)
}
