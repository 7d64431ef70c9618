package gormstore

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"dddkit/domain/shared"
	"dddkit/infrastructure/persistence"
	"dddkit/infrastructure/persistence/retry"
	apperrors "dddkit/pkg/errors"
	"dddkit/pkg/logger"
)

const tracerName = "dddkit/infrastructure/persistence/gormstore"

type auditStamp struct {
	at time.Time
	by string
}

// tracked is the part of a Store the unit of work drives on commit
type tracked interface {
	detectChanges()
	sources() []shared.EventSource
	flush(tx *gorm.DB, stamp auditStamp) (int64, []func(), error)
	acceptChanges()
	clear()
}

// UnitOfWork commits the intents recorded by every store created on it in a single
// transaction. Stores and the unit of work belong to one goroutine.
type UnitOfWork struct {
	db          *gorm.DB
	stores      []tracked
	outbox      *OutboxRepository
	dispatcher  shared.EventDispatcher
	retryConfig retry.Config
	now         func() time.Time
	tracer      trace.Tracer
}

type Option func(*UnitOfWork)

// WithOutbox writes every collected event to the outbox inside the commit transaction
func WithOutbox(outbox *OutboxRepository) Option {
	return func(u *UnitOfWork) { u.outbox = outbox }
}

// WithDispatcher delivers events in process after a successful commit
func WithDispatcher(dispatcher shared.EventDispatcher) Option {
	return func(u *UnitOfWork) { u.dispatcher = dispatcher }
}

func WithRetryConfig(config retry.Config) Option {
	return func(u *UnitOfWork) { u.retryConfig = config }
}

// WithClock replaces time.Now for audit stamps
func WithClock(now func() time.Time) Option {
	return func(u *UnitOfWork) { u.now = now }
}

func WithTracer(tracer trace.Tracer) Option {
	return func(u *UnitOfWork) { u.tracer = tracer }
}

func NewUnitOfWork(db *gorm.DB, opts ...Option) *UnitOfWork {
	u := &UnitOfWork{
		db:          db,
		retryConfig: retry.DefaultConfig,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(u)
	}
	if u.tracer == nil {
		u.tracer = otel.Tracer(tracerName)
	}
	return u
}

func (u *UnitOfWork) register(store tracked) {
	u.stores = append(u.stores, store)
}

// DB returns the connection the unit of work commits through
func (u *UnitOfWork) DB() *gorm.DB {
	return u.db
}

// Commit writes all pending intents, and the outbox rows when configured, in one
// transaction retried on deadlocks and lock timeouts. After the commit generated ids
// and versions are applied to the aggregates, they become unchanged, and their events
// are dispatched and cleared. On failure nothing is applied and the intents stay pending.
func (u *UnitOfWork) Commit(ctx context.Context) (affected int64, err error) {
	ctx, span := u.tracer.Start(ctx, "UnitOfWork.Commit")
	defer func() {
		span.SetAttributes(attribute.Int64("db.rows_affected", affected))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, string(apperrors.Classify(err)))
		}
		span.End()
	}()

	if err := ctx.Err(); err != nil {
		return 0, err
	}

	var sources []shared.EventSource
	for _, s := range u.stores {
		s.detectChanges()
		sources = append(sources, s.sources()...)
	}
	stamp := auditStamp{at: u.now().UTC(), by: persistence.ActorFromContext(ctx)}

	var effects []func()
	executeOnce := func(ctx context.Context) error {
		affected, effects = 0, nil

		tx := u.db.WithContext(ctx).Begin()
		if tx.Error != nil {
			return fmt.Errorf("failed to begin transaction: %w", tx.Error)
		}
		txCtx := persistence.ContextWithTx(ctx, tx)

		for _, s := range u.stores {
			n, fx, err := s.flush(tx, stamp)
			if err != nil {
				tx.Rollback()
				return err
			}
			affected += n
			effects = append(effects, fx...)
		}

		if u.outbox != nil {
			for _, event := range persistence.CollectEvents(sources) {
				if err := u.outbox.SaveEvent(txCtx, event); err != nil {
					tx.Rollback()
					return err
				}
			}
		}

		if err := tx.Commit().Error; err != nil {
			return fmt.Errorf("failed to commit transaction: %w", err)
		}
		return nil
	}

	if err := retry.ExecuteWithRetry(ctx, u.retryConfig, executeOnce); err != nil {
		logger.FromContext(ctx).Warn("unit of work commit failed",
			zap.String("error_code", string(apperrors.Classify(err))),
			zap.Error(err),
		)
		return 0, err
	}

	for _, apply := range effects {
		apply()
	}
	for _, s := range u.stores {
		s.acceptChanges()
	}
	persistence.PublishCommitted(ctx, u.dispatcher, sources)

	logger.FromContext(ctx).Debug("unit of work committed", zap.Int64("rows_affected", affected))
	return affected, nil
}

// Clear detaches everything from every store without writing
func (u *UnitOfWork) Clear() {
	for _, s := range u.stores {
		s.clear()
	}
}

// UnitOfWorkFactory creates units of work that share a connection and settings
type UnitOfWorkFactory struct {
	db   *gorm.DB
	opts []Option
}

func NewUnitOfWorkFactory(db *gorm.DB, opts ...Option) *UnitOfWorkFactory {
	return &UnitOfWorkFactory{db: db, opts: opts}
}

func (f *UnitOfWorkFactory) New() *UnitOfWork {
	return NewUnitOfWork(f.db, f.opts...)
}

var _ shared.UnitOfWork = (*UnitOfWork)(nil)
